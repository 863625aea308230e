package training

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

const (
	trainChannelName   = "train"
	channelContentType = "text/csv"

	defaultPollInterval = 30 * time.Second
	defaultVolumeSizeGB = 30
)

type SageMakerAPI interface {
	CreateTrainingJob(ctx context.Context, params *sagemaker.CreateTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateTrainingJobOutput, error)

	DescribeTrainingJob(ctx context.Context, params *sagemaker.DescribeTrainingJobInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeTrainingJobOutput, error)
}

// Request describes one training submission. Hyperparameters pass through to
// the service verbatim; any range validation happens remotely and surfaces as
// a job failure.
type Request struct {
	JobName         string
	ImageRef        string
	RoleArn         string
	InstanceType    string
	InstanceCount   int32
	InputDataURI    string
	OutputDataURI   string
	Hyperparameters map[string]string
	MaxRuntime      time.Duration
}

type Result struct {
	JobName          string
	ModelArtifactURI string
}

type Submitter struct {
	client       SageMakerAPI
	pollInterval time.Duration
	onStatus     func(status string)
}

type Option func(*Submitter)

func WithPollInterval(d time.Duration) Option {
	return func(s *Submitter) { s.pollInterval = d }
}

// WithStatusHook registers a callback invoked on every observed job status.
func WithStatusHook(hook func(status string)) Option {
	return func(s *Submitter) { s.onStatus = hook }
}

func NewSubmitter(client SageMakerAPI, opts ...Option) *Submitter {
	s := &Submitter{
		client:       client,
		pollInterval: defaultPollInterval,
		onStatus:     func(string) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (r Request) validate() error {
	if r.JobName == "" {
		return fmt.Errorf("training job name is empty: %w", models.ErrInvalidConfiguration)
	}
	if r.ImageRef == "" {
		return fmt.Errorf("algorithm image reference is empty: %w", models.ErrInvalidConfiguration)
	}
	if r.RoleArn == "" {
		return fmt.Errorf("execution role is empty: %w", models.ErrInvalidConfiguration)
	}
	if r.InstanceCount < 1 {
		return fmt.Errorf("training instance count must be >= 1, got %d: %w", r.InstanceCount, models.ErrInvalidConfiguration)
	}
	return nil
}

// Run submits the training job and blocks until it reaches a terminal state.
// Only a Completed job returns a result; Failed and Stopped surface the job
// name and failure reason as ErrRemoteJobFailed.
func (s *Submitter) Run(ctx context.Context, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	maxRuntime := req.MaxRuntime
	if maxRuntime <= 0 {
		maxRuntime = 24 * time.Hour
	}

	input := &sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(req.JobName),
		RoleArn:         aws.String(req.RoleArn),
		AlgorithmSpecification: &types.AlgorithmSpecification{
			TrainingImage:     aws.String(req.ImageRef),
			TrainingInputMode: types.TrainingInputModeFile,
		},
		HyperParameters: req.Hyperparameters,
		InputDataConfig: []types.Channel{{
			ChannelName: aws.String(trainChannelName),
			ContentType: aws.String(channelContentType),
			DataSource: &types.DataSource{
				S3DataSource: &types.S3DataSource{
					S3DataType:             types.S3DataTypeS3Prefix,
					S3Uri:                  aws.String(req.InputDataURI),
					S3DataDistributionType: types.S3DataDistributionFullyReplicated,
				},
			},
		}},
		OutputDataConfig: &types.OutputDataConfig{
			S3OutputPath: aws.String(req.OutputDataURI),
		},
		ResourceConfig: &types.ResourceConfig{
			InstanceType:   types.TrainingInstanceType(req.InstanceType),
			InstanceCount:  aws.Int32(req.InstanceCount),
			VolumeSizeInGB: aws.Int32(defaultVolumeSizeGB),
		},
		StoppingCondition: &types.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int32(int32(maxRuntime.Seconds())),
		},
	}

	if _, err := s.client.CreateTrainingJob(ctx, input); err != nil {
		return nil, fmt.Errorf("failed to submit training job %s: %v: %w", req.JobName, err, models.ErrRemoteCallError)
	}
	slog.Info("Training job submitted", "job", req.JobName, "input", req.InputDataURI)

	return s.wait(ctx, req.JobName)
}

func (s *Submitter) wait(ctx context.Context, jobName string) (*Result, error) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		out, err := s.client.DescribeTrainingJob(ctx, &sagemaker.DescribeTrainingJobInput{
			TrainingJobName: aws.String(jobName),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to poll training job %s: %v: %w", jobName, err, models.ErrRemoteCallError)
		}

		status := out.TrainingJobStatus
		s.onStatus(string(status))

		switch status {
		case types.TrainingJobStatusCompleted:
			artifact := ""
			if out.ModelArtifacts != nil {
				artifact = aws.ToString(out.ModelArtifacts.S3ModelArtifacts)
			}
			slog.Info("Training job completed", "job", jobName, "artifact", artifact)
			return &Result{JobName: jobName, ModelArtifactURI: artifact}, nil

		case types.TrainingJobStatusFailed, types.TrainingJobStatusStopped:
			reason := aws.ToString(out.FailureReason)
			slog.Error("Training job ended without completing", "job", jobName, "status", status, "reason", reason)
			return nil, fmt.Errorf("training job %s ended with status %s (%s): %w", jobName, status, reason, models.ErrRemoteJobFailed)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
