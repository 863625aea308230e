package workflow

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ipinsights-workflow/internal/deploy"
	"ipinsights-workflow/internal/inference"
	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/internal/training"
	"ipinsights-workflow/internal/tuples"
	"ipinsights-workflow/pkg/models"
)

// RunReport summarizes one workflow run. A copy is uploaded under the runs/
// prefix so results outlive the process without any local persistence.
type RunReport struct {
	RunId           uuid.UUID `json:"run_id"`
	TrainingJobName string    `json:"training_job_name"`
	EndpointName    string    `json:"endpoint_name"`

	TrainKey string `json:"train_key"`
	InferKey string `json:"infer_key"`

	TrainRowCount  int     `json:"train_row_count"`
	InferRowCount  int     `json:"infer_row_count"`
	TrainMeanScore float64 `json:"train_mean_score"`
	InferMeanScore float64 `json:"infer_mean_score"`

	StartTime      time.Time `json:"start_time"`
	CompletionTime time.Time `json:"completion_time"`
}

// Runner executes the five stages strictly sequentially: precondition check,
// training, deployment, inference on both datasets, report. It halts at the
// first failure; there is no retry and no concurrency.
type Runner struct {
	cfg      Config
	store    storage.ObjectStore
	trainer  *training.Submitter
	deployer *deploy.Deployer
	runtime  inference.RuntimeAPI
}

func NewRunner(cfg Config, store storage.ObjectStore, trainer *training.Submitter, deployer *deploy.Deployer, runtime inference.RuntimeAPI) *Runner {
	return &Runner{
		cfg:      cfg,
		store:    store,
		trainer:  trainer,
		deployer: deployer,
		runtime:  runtime,
	}
}

func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := &RunReport{
		RunId:     uuid.New(),
		StartTime: time.Now().UTC(),
	}

	// Stage 1: configuration resolution and storage precondition check.
	if err := storage.CheckBucket(ctx, r.store, r.cfg.Bucket); err != nil {
		return nil, err
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, err
	}

	trainKey, inferKey, err := r.locateTuples(ctx)
	if err != nil {
		return nil, err
	}
	report.TrainKey, report.InferKey = trainKey, inferKey
	slog.Info("Tuple datasets located", "bucket", r.cfg.Bucket, "train", trainKey, "infer", inferKey)

	// Stage 2: training submission, blocking until terminal state.
	suffix := report.RunId.String()[:8]
	report.TrainingJobName = "ip-insights-" + suffix

	trained, err := r.trainer.Run(ctx, training.Request{
		JobName:         report.TrainingJobName,
		ImageRef:        r.cfg.TrainingImage,
		RoleArn:         r.cfg.RoleArn,
		InstanceType:    r.cfg.TrainingInstanceType,
		InstanceCount:   r.cfg.TrainingInstanceCount,
		InputDataURI:    storage.S3URI(r.cfg.Bucket, storage.TrainPrefix(r.cfg.Prefix)),
		OutputDataURI:   storage.S3URI(r.cfg.Bucket, storage.OutputPrefix(r.cfg.Prefix)),
		Hyperparameters: r.cfg.Hyperparameters,
		MaxRuntime:      r.cfg.MaxTrainingRuntime,
	})
	if err != nil {
		return nil, err
	}

	// Stage 3: deployment, blocking until the endpoint serves.
	endpoint, err := r.deployer.Deploy(ctx, deploy.Request{
		Name:             "ip-insights-" + suffix,
		ModelArtifactURI: trained.ModelArtifactURI,
		ImageRef:         r.cfg.TrainingImage,
		RoleArn:          r.cfg.RoleArn,
		InstanceType:     r.cfg.ServingInstanceType,
		InstanceCount:    r.cfg.ServingInstanceCount,
	})
	if err != nil {
		return nil, err
	}
	report.EndpointName = endpoint.Name

	if r.cfg.TeardownEndpoint {
		defer func() {
			if err := r.deployer.Teardown(context.WithoutCancel(ctx), endpoint); err != nil {
				slog.Error("Endpoint teardown failed", "endpoint", endpoint.Name, "error", err)
			}
		}()
	}

	// Stage 4: score both datasets against the live endpoint.
	predictor := inference.NewPredictor(r.runtime, endpoint.Name)

	trainScores, trainCount, err := r.scoreDataset(ctx, predictor, trainKey)
	if err != nil {
		return nil, err
	}
	inferScores, inferCount, err := r.scoreDataset(ctx, predictor, inferKey)
	if err != nil {
		return nil, err
	}

	report.TrainRowCount = trainCount
	report.InferRowCount = inferCount
	report.TrainMeanScore = inference.MeanScore(trainScores)
	report.InferMeanScore = inference.MeanScore(inferScores)
	report.CompletionTime = time.Now().UTC()

	slog.Info("Score comparison",
		"train_mean", report.TrainMeanScore,
		"infer_mean", report.InferMeanScore,
		"train_rows", trainCount,
		"infer_rows", inferCount)

	// Stage 5: persist the run summary by delegating to object storage.
	if err := r.uploadReport(ctx, report); err != nil {
		return nil, err
	}

	return report, nil
}

// locateTuples finds the first CSV under the train/ and infer/ prefixes.
func (r *Runner) locateTuples(ctx context.Context) (trainKey, inferKey string, err error) {
	trainKey, err = r.firstCSVUnder(ctx, storage.TrainPrefix(r.cfg.Prefix))
	if err != nil {
		return "", "", err
	}
	inferKey, err = r.firstCSVUnder(ctx, storage.InferPrefix(r.cfg.Prefix))
	if err != nil {
		return "", "", err
	}
	return trainKey, inferKey, nil
}

func (r *Runner) firstCSVUnder(ctx context.Context, prefix string) (string, error) {
	objects, err := r.store.ListObjects(ctx, r.cfg.Bucket, prefix)
	if err != nil {
		return "", err
	}
	obj, ok := storage.FirstCSV(objects)
	if !ok {
		return "", fmt.Errorf("no tuple csv found under s3://%s/%s: %w", r.cfg.Bucket, prefix, models.ErrNotFound)
	}
	return obj.Name, nil
}

func (r *Runner) scoreDataset(ctx context.Context, predictor *inference.Predictor, key string) ([]models.ScoreResult, int, error) {
	data, err := r.store.GetObject(ctx, r.cfg.Bucket, key)
	if err != nil {
		return nil, 0, err
	}

	records, err := tuples.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", key, err)
	}

	scores, err := predictor.Score(ctx, records)
	if err != nil {
		return nil, 0, err
	}
	return scores, len(records), nil
}

func (r *Runner) uploadReport(ctx context.Context, report *RunReport) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize run report: %w", err)
	}

	key := storage.RunReportKey(r.cfg.Prefix, report.RunId.String())
	if err := storage.PutObjectBytes(ctx, r.store, r.cfg.Bucket, key, data); err != nil {
		return err
	}

	slog.Info("Run report uploaded", "bucket", r.cfg.Bucket, "key", key)
	return nil
}
