package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"

	"ipinsights-workflow/pkg/models"
)

const defaultPollInterval = 30 * time.Second

type SageMakerAPI interface {
	CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error)

	CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error)

	CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error)

	DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error)

	DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error)

	DeleteEndpointConfig(ctx context.Context, params *sagemaker.DeleteEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error)

	DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error)
}

// Request provisions an endpoint from a completed training job's artifact.
// Serving sizing is independent of training sizing.
type Request struct {
	Name             string
	ModelArtifactURI string
	ImageRef         string
	RoleArn          string
	InstanceType     string
	InstanceCount    int32
}

// Endpoint is the live deployment handle. It holds the names of all three
// remote resources so Teardown can release them.
type Endpoint struct {
	Name       string
	ConfigName string
	ModelName  string
}

type Deployer struct {
	client       SageMakerAPI
	pollInterval time.Duration
	onStatus     func(status string)
}

type Option func(*Deployer)

func WithPollInterval(d time.Duration) Option {
	return func(dep *Deployer) { dep.pollInterval = d }
}

func WithStatusHook(hook func(status string)) Option {
	return func(dep *Deployer) { dep.onStatus = hook }
}

func NewDeployer(client SageMakerAPI, opts ...Option) *Deployer {
	d := &Deployer{
		client:       client,
		pollInterval: defaultPollInterval,
		onStatus:     func(string) {},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (r Request) validate() error {
	if r.Name == "" {
		return fmt.Errorf("endpoint name is empty: %w", models.ErrInvalidConfiguration)
	}
	if r.ModelArtifactURI == "" {
		return fmt.Errorf("model artifact reference is empty: %w", models.ErrInvalidConfiguration)
	}
	if r.InstanceCount < 1 {
		return fmt.Errorf("serving instance count must be >= 1, got %d: %w", r.InstanceCount, models.ErrInvalidConfiguration)
	}
	return nil
}

// Deploy provisions model, endpoint config, and endpoint, then blocks until
// the endpoint is in service. Provisioning failures report the endpoint name
// attempted; there is no automatic retry.
func (d *Deployer) Deploy(ctx context.Context, req Request) (*Endpoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	ep := &Endpoint{
		Name:       req.Name,
		ConfigName: req.Name + "-config",
		ModelName:  req.Name + "-model",
	}

	_, err := d.client.CreateModel(ctx, &sagemaker.CreateModelInput{
		ModelName:        aws.String(ep.ModelName),
		ExecutionRoleArn: aws.String(req.RoleArn),
		PrimaryContainer: &types.ContainerDefinition{
			Image:        aws.String(req.ImageRef),
			ModelDataUrl: aws.String(req.ModelArtifactURI),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create model %s: %v: %w", ep.ModelName, err, models.ErrRemoteCallError)
	}

	_, err = d.client.CreateEndpointConfig(ctx, &sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(ep.ConfigName),
		ProductionVariants: []types.ProductionVariant{{
			VariantName:          aws.String("primary"),
			ModelName:            aws.String(ep.ModelName),
			InstanceType:         types.ProductionVariantInstanceType(req.InstanceType),
			InitialInstanceCount: aws.Int32(req.InstanceCount),
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint config %s: %v: %w", ep.ConfigName, err, models.ErrRemoteCallError)
	}

	_, err = d.client.CreateEndpoint(ctx, &sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(ep.Name),
		EndpointConfigName: aws.String(ep.ConfigName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create endpoint %s: %v: %w", ep.Name, err, models.ErrRemoteCallError)
	}
	slog.Info("Endpoint requested", "endpoint", ep.Name, "config", ep.ConfigName)

	if err := d.wait(ctx, ep.Name); err != nil {
		return nil, err
	}
	return ep, nil
}

func (d *Deployer) wait(ctx context.Context, endpointName string) error {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		out, err := d.client.DescribeEndpoint(ctx, &sagemaker.DescribeEndpointInput{
			EndpointName: aws.String(endpointName),
		})
		if err != nil {
			return fmt.Errorf("failed to poll endpoint %s: %v: %w", endpointName, err, models.ErrRemoteCallError)
		}

		status := out.EndpointStatus
		d.onStatus(string(status))

		switch status {
		case types.EndpointStatusInService:
			slog.Info("Endpoint in service", "endpoint", endpointName)
			return nil
		case types.EndpointStatusFailed:
			reason := aws.ToString(out.FailureReason)
			slog.Error("Endpoint provisioning failed", "endpoint", endpointName, "reason", reason)
			return fmt.Errorf("endpoint %s failed to provision (%s): %w", endpointName, reason, models.ErrRemoteJobFailed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Teardown deletes the endpoint, its config, and the model. Errors are
// reported but deletion continues so partial teardown releases what it can.
func (d *Deployer) Teardown(ctx context.Context, ep *Endpoint) error {
	var firstErr error

	if _, err := d.client.DeleteEndpoint(ctx, &sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(ep.Name),
	}); err != nil {
		firstErr = fmt.Errorf("failed to delete endpoint %s: %v: %w", ep.Name, err, models.ErrRemoteCallError)
		slog.Error("Failed to delete endpoint", "endpoint", ep.Name, "error", err)
	}

	if _, err := d.client.DeleteEndpointConfig(ctx, &sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(ep.ConfigName),
	}); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to delete endpoint config %s: %v: %w", ep.ConfigName, err, models.ErrRemoteCallError)
		}
		slog.Error("Failed to delete endpoint config", "config", ep.ConfigName, "error", err)
	}

	if _, err := d.client.DeleteModel(ctx, &sagemaker.DeleteModelInput{
		ModelName: aws.String(ep.ModelName),
	}); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("failed to delete model %s: %v: %w", ep.ModelName, err, models.ErrRemoteCallError)
		}
		slog.Error("Failed to delete model", "model", ep.ModelName, "error", err)
	}

	if firstErr == nil {
		slog.Info("Endpoint torn down", "endpoint", ep.Name)
	}
	return firstErr
}
