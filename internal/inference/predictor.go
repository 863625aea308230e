package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"

	"ipinsights-workflow/internal/tuples"
	"ipinsights-workflow/pkg/models"
)

// Request and response codec for the endpoint. Fixed per predictor, never
// mutated after construction.
const (
	requestContentType = "text/csv"
	responseAcceptType = "application/json"
)

type RuntimeAPI interface {
	InvokeEndpoint(ctx context.Context, params *sagemakerruntime.InvokeEndpointInput, optFns ...func(*sagemakerruntime.Options)) (*sagemakerruntime.InvokeEndpointOutput, error)
}

type predictionResponse struct {
	Predictions []models.ScoreResult `json:"predictions"`
}

// Predictor scores tuple batches against one live endpoint.
type Predictor struct {
	client   RuntimeAPI
	endpoint string
}

func NewPredictor(client RuntimeAPI, endpoint string) *Predictor {
	return &Predictor{client: client, endpoint: endpoint}
}

func (p *Predictor) Endpoint() string {
	return p.endpoint
}

// Score serializes records to header-less CSV, invokes the endpoint once, and
// returns one score per input row in input order. Any marshaling or call
// failure fails the whole batch; there is no partial result.
func (p *Predictor) Score(ctx context.Context, records []tuples.Record) ([]models.ScoreResult, error) {
	if len(records) == 0 {
		return nil, nil
	}

	body, err := tuples.Serialize(records)
	if err != nil {
		return nil, err
	}

	out, err := p.client.InvokeEndpoint(ctx, &sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(p.endpoint),
		ContentType:  aws.String(requestContentType),
		Accept:       aws.String(responseAcceptType),
		Body:         body,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to invoke endpoint %s: %v: %w", p.endpoint, err, models.ErrRemoteCallError)
	}

	var resp predictionResponse
	if err := json.Unmarshal(out.Body, &resp); err != nil {
		return nil, fmt.Errorf("failed to decode response from endpoint %s: %v: %w", p.endpoint, err, models.ErrMalformedData)
	}

	if len(resp.Predictions) != len(records) {
		return nil, fmt.Errorf("endpoint %s returned %d scores for %d rows: %w", p.endpoint, len(resp.Predictions), len(records), models.ErrMalformedData)
	}

	slog.Info("Scored tuple batch", "endpoint", p.endpoint, "rows", len(records))
	return resp.Predictions, nil
}

// MeanScore averages dot products over a batch. The workflow reports means
// for the normal-vs-finding comparison but never thresholds them.
func MeanScore(scores []models.ScoreResult) float64 {
	if len(scores) == 0 {
		return 0
	}
	var sum float64
	for _, s := range scores {
		sum += s.DotProduct
	}
	return sum / float64(len(scores))
}
