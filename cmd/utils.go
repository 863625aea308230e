package cmd

import (
	"context"
	"flag"
	"log"

	aws_config "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime"
	"github.com/joho/godotenv"
)

func LoadEnvFile() {
	var configPath string

	flag.StringVar(&configPath, "env", "", "path to load env from")
	flag.Parse()

	if configPath == "" {
		log.Printf("no env file specified, using os.Environ only")
		return
	}

	log.Printf("loading env from file %s", configPath)
	err := godotenv.Load(configPath)
	if err != nil {
		log.Fatalf("error loading .env file '%s': %v", configPath, err)
	}
}

// NewSageMakerClients builds the training/deployment client and the runtime
// client from the ambient credential chain.
func NewSageMakerClients(ctx context.Context, region string) (*sagemaker.Client, *sagemakerruntime.Client, error) {
	opts := []func(*aws_config.LoadOptions) error{}
	if region != "" {
		opts = append(opts, aws_config.WithRegion(region))
	}

	awsCfg, err := aws_config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, nil, err
	}

	return sagemaker.NewFromConfig(awsCfg), sagemakerruntime.NewFromConfig(awsCfg), nil
}
