package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ipinsights-workflow/internal/deploy"
	"ipinsights-workflow/internal/inference"
	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/internal/training"
	"ipinsights-workflow/internal/tuples"
	"ipinsights-workflow/internal/workflow"
	"ipinsights-workflow/pkg/models"
)

// Service exposes the workflow over HTTP. Each run executes synchronously in
// the request goroutine, mirroring the workflow's strictly sequential
// contract.
type Service struct {
	cfg      workflow.Config
	store    storage.ObjectStore
	trainer  *training.Submitter
	deployer *deploy.Deployer
	runtime  inference.RuntimeAPI
}

func NewService(cfg workflow.Config, store storage.ObjectStore, trainer *training.Submitter, deployer *deploy.Deployer, runtime inference.RuntimeAPI) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		trainer:  trainer,
		deployer: deployer,
		runtime:  runtime,
	}
}

func (s *Service) AddRoutes(r chi.Router) {
	r.Get("/health", RestHandler(func(r *http.Request) (any, error) { return nil, nil }))
	r.Get("/bucket/check", RestHandler(s.CheckBucket))
	r.Post("/workflows", RestHandler(s.RunWorkflow))
	r.Post("/predict", RestHandler(s.Predict))
}

func (s *Service) CheckBucket(r *http.Request) (any, error) {
	query, err := ParseRequestQueryParams[models.BucketCheckQuery](r)
	if err != nil {
		return nil, err
	}

	if err := storage.CheckBucket(r.Context(), s.store, query.Bucket); err != nil {
		return nil, TaxonomyError(err)
	}

	return models.BucketCheckResponse{
		Bucket:  query.Bucket,
		Message: "bucket exists and is accessible",
	}, nil
}

func (s *Service) RunWorkflow(r *http.Request) (any, error) {
	req, err := ParseRequest[models.WorkflowRequest](r)
	if err != nil {
		return nil, err
	}

	cfg := s.cfg.WithLocation(req.Bucket, req.Prefix)

	runner := workflow.NewRunner(cfg, s.store, s.trainer, s.deployer, s.runtime)
	report, err := runner.Run(r.Context())
	if err != nil {
		slog.Error("workflow run failed", "bucket", cfg.Bucket, "prefix", cfg.Prefix, "error", err)
		return nil, TaxonomyError(err)
	}

	return report, nil
}

func (s *Service) Predict(r *http.Request) (any, error) {
	req, err := ParseRequest[models.PredictRequest](r)
	if err != nil {
		return nil, err
	}

	if req.EndpointName == "" {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required field: endpoint_name")
	}
	if len(req.Tuples) == 0 {
		return nil, CodedErrorf(http.StatusUnprocessableEntity, "missing required field: tuples")
	}

	predictor := inference.NewPredictor(s.runtime, req.EndpointName)
	scores, err := predictor.Score(r.Context(), tuples.FromAPI(req.Tuples))
	if err != nil {
		return nil, TaxonomyError(err)
	}

	return models.PredictResponse{
		EndpointName: req.EndpointName,
		Scores:       scores,
	}, nil
}
