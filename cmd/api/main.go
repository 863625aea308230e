package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"ipinsights-workflow/cmd"
	"ipinsights-workflow/internal/api"
	"ipinsights-workflow/internal/deploy"
	"ipinsights-workflow/internal/storage"
	"ipinsights-workflow/internal/training"
	"ipinsights-workflow/internal/workflow"
)

type APIConfig struct {
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
	TeardownEndpoint   bool          `env:"TEARDOWN_ENDPOINT" envDefault:"false"`

	APIPort string `env:"API_PORT" envDefault:"8001"`
}

func main() {
	log.Println("Starting API Server...")

	cmd.LoadEnvFile()

	var cfg APIConfig
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("error parsing config: %v", err)
	}

	store, err := storage.NewS3ObjectStore(storage.S3ClientConfig{
		Endpoint:        cfg.S3EndpointURL,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKeyID,
		SecretAccessKey: cfg.S3SecretAccessKey,
	})
	if err != nil {
		log.Fatalf("Failed to create object store: %v", err)
	}

	smClient, runtimeClient, err := cmd.NewSageMakerClients(context.Background(), cfg.S3Region)
	if err != nil {
		log.Fatalf("Failed to create sagemaker clients: %v", err)
	}

	hyperparameters, err := training.DefaultHyperparameters()
	if err != nil {
		log.Fatalf("Failed to load hyperparameters: %v", err)
	}

	workflowCfg := workflow.Config{
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
	}

	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	trainer := training.NewSubmitter(smClient)
	deployer := deploy.NewDeployer(smClient)

	service := api.NewService(workflowCfg, store, trainer, deployer, runtimeClient)
	service.AddRoutes(r)

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: r,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.APIPort)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.APIPort, err)
	}

	log.Println("Server stopped.")
}
