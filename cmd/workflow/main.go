package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/schollz/progressbar/v3"

	"ipinsights-workflow/cmd"
	"ipinsights-workflow/internal/datasets"
	"ipinsights-workflow/internal/deploy"
	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/internal/training"
	"ipinsights-workflow/internal/workflow"
)

type WorkflowConfig struct {
	S3EndpointURL     string `env:"S3_ENDPOINT_URL"`
	S3AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	S3SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	S3Region          string `env:"AWS_REGION" envDefault:"us-east-1"`

	TuplesBucket string `env:"TUPLES_BUCKET,notEmpty,required"`
	TuplesPrefix string `env:"TUPLES_PREFIX" envDefault:"sec405"`

	RoleArn       string `env:"EXECUTION_ROLE_ARN,notEmpty,required"`
	TrainingImage string `env:"TRAINING_IMAGE,notEmpty,required"`

	TrainingInstanceType  string `env:"TRAINING_INSTANCE_TYPE" envDefault:"ml.m5.xlarge"`
	TrainingInstanceCount int32  `env:"TRAINING_INSTANCE_COUNT" envDefault:"1"`
	ServingInstanceType   string `env:"SERVING_INSTANCE_TYPE" envDefault:"ml.m5.large"`
	ServingInstanceCount  int32  `env:"SERVING_INSTANCE_COUNT" envDefault:"1"`

	MaxTrainingRuntime time.Duration `env:"MAX_TRAINING_RUNTIME" envDefault:"24h"`
	TeardownEndpoint   bool          `env:"TEARDOWN_ENDPOINT" envDefault:"true"`

	// When set, prepared tuple datasets are fetched from this URL and staged
	// into the bucket before the run.
	DatasetBaseURL string `env:"DATASET_BASE_URL"`
}

func main() {
	log.Println("Starting anomaly scoring workflow...")

	cmd.LoadEnvFile()

	var cfg WorkflowConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	smClient, runtimeClient, err := cmd.NewSageMakerClients(ctx, cfg.S3Region)
	if err != nil {
		log.Fatalf("Failed to create sagemaker clients: %v", err)
	}

	if cfg.DatasetBaseURL != "" {
		fetcher := datasets.NewFetcher(cfg.DatasetBaseURL, store)
		if err := fetcher.Stage(ctx, cfg.TuplesBucket, cfg.TuplesPrefix); err != nil {
			log.Fatalf("Failed to stage tuple datasets: %v", err)
		}
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("waiting for remote service"),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionClearOnFinish(),
	)
	statusHook := func(stage string) func(string) {
		return func(status string) {
			bar.Describe(stage + ": " + status)
			bar.Add(1) //nolint:errcheck
		}
	}

	trainer := training.NewSubmitter(smClient, training.WithStatusHook(statusHook("training")))
	deployer := deploy.NewDeployer(smClient, deploy.WithStatusHook(statusHook("deploying")))

	hyperparameters, err := training.DefaultHyperparameters()
	if err != nil {
		log.Fatalf("Failed to load hyperparameters: %v", err)
	}

	runner := workflow.NewRunner(workflow.Config{
		Bucket:                cfg.TuplesBucket,
		Prefix:                cfg.TuplesPrefix,
		RoleArn:               cfg.RoleArn,
		TrainingImage:         cfg.TrainingImage,
		TrainingInstanceType:  cfg.TrainingInstanceType,
		TrainingInstanceCount: cfg.TrainingInstanceCount,
		ServingInstanceType:   cfg.ServingInstanceType,
		ServingInstanceCount:  cfg.ServingInstanceCount,
		Hyperparameters:       hyperparameters,
		MaxTrainingRuntime:    cfg.MaxTrainingRuntime,
		TeardownEndpoint:      cfg.TeardownEndpoint,
	}, store, trainer, deployer, runtimeClient)

	report, err := runner.Run(ctx)
	bar.Finish() //nolint:errcheck
	if err != nil {
		log.Fatalf("Workflow failed: %v", err)
	}

	log.Printf("Run %s complete", report.RunId)
	log.Printf("Training job: %s, endpoint: %s", report.TrainingJobName, report.EndpointName)
	log.Printf("Mean score on training tuples (%d rows):  %.6f", report.TrainRowCount, report.TrainMeanScore)
	log.Printf("Mean score on finding tuples (%d rows):   %.6f", report.InferRowCount, report.InferMeanScore)
	log.Printf("Lower scores on the finding tuples indicate pairings inconsistent with trained behavior; interpretation is left to the operator.")
}
