package workflow

import (
	"fmt"
	"time"

	"ipinsights-workflow/pkg/models"
)

// Config is the single configuration record threaded through all stages.
// It is built once at workflow start and passed by value; stages never
// mutate it.
type Config struct {
	Bucket string
	Prefix string

	RoleArn       string
	TrainingImage string

	TrainingInstanceType  string
	TrainingInstanceCount int32
	ServingInstanceType   string
	ServingInstanceCount  int32

	Hyperparameters    map[string]string
	MaxTrainingRuntime time.Duration

	// TeardownEndpoint releases the endpoint after scoring completes.
	TeardownEndpoint bool
}

func (c Config) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("bucket name is empty: %w", models.ErrInvalidConfiguration)
	}
	if c.TrainingImage == "" {
		return fmt.Errorf("training image is empty: %w", models.ErrInvalidConfiguration)
	}
	if c.RoleArn == "" {
		return fmt.Errorf("execution role is empty: %w", models.ErrInvalidConfiguration)
	}
	if c.TrainingInstanceCount < 1 {
		return fmt.Errorf("training instance count must be >= 1, got %d: %w", c.TrainingInstanceCount, models.ErrInvalidConfiguration)
	}
	if c.ServingInstanceCount < 1 {
		return fmt.Errorf("serving instance count must be >= 1, got %d: %w", c.ServingInstanceCount, models.ErrInvalidConfiguration)
	}
	return nil
}

// WithLocation returns a copy with the data location overridden. Empty
// arguments keep the configured values.
func (c Config) WithLocation(bucket, prefix string) Config {
	if bucket != "" {
		c.Bucket = bucket
	}
	if prefix != "" {
		c.Prefix = prefix
	}
	return c
}
