package deploy_test

import (
	"context"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker"
	"github.com/aws/aws-sdk-go-v2/service/sagemaker/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ipinsights-workflow/internal/deploy"
	"ipinsights-workflow/pkg/models"
)

type fakeSageMaker struct {
	modelInput    *sagemaker.CreateModelInput
	configInput   *sagemaker.CreateEndpointConfigInput
	endpointInput *sagemaker.CreateEndpointInput

	statuses      []types.EndpointStatus
	polls         int
	failureReason string

	deleted []string
}

func (f *fakeSageMaker) CreateModel(ctx context.Context, params *sagemaker.CreateModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateModelOutput, error) {
	f.modelInput = params
	return &sagemaker.CreateModelOutput{}, nil
}

func (f *fakeSageMaker) CreateEndpointConfig(ctx context.Context, params *sagemaker.CreateEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointConfigOutput, error) {
	f.configInput = params
	return &sagemaker.CreateEndpointConfigOutput{}, nil
}

func (f *fakeSageMaker) CreateEndpoint(ctx context.Context, params *sagemaker.CreateEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.CreateEndpointOutput, error) {
	f.endpointInput = params
	return &sagemaker.CreateEndpointOutput{}, nil
}

func (f *fakeSageMaker) DescribeEndpoint(ctx context.Context, params *sagemaker.DescribeEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DescribeEndpointOutput, error) {
	status := f.statuses[min(f.polls, len(f.statuses)-1)]
	f.polls++

	out := &sagemaker.DescribeEndpointOutput{
		EndpointName:   params.EndpointName,
		EndpointStatus: status,
	}
	if f.failureReason != "" {
		out.FailureReason = aws.String(f.failureReason)
	}
	return out, nil
}

func (f *fakeSageMaker) DeleteEndpoint(ctx context.Context, params *sagemaker.DeleteEndpointInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.EndpointName))
	return &sagemaker.DeleteEndpointOutput{}, nil
}

func (f *fakeSageMaker) DeleteEndpointConfig(ctx context.Context, params *sagemaker.DeleteEndpointConfigInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteEndpointConfigOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.EndpointConfigName))
	return &sagemaker.DeleteEndpointConfigOutput{}, nil
}

func (f *fakeSageMaker) DeleteModel(ctx context.Context, params *sagemaker.DeleteModelInput, optFns ...func(*sagemaker.Options)) (*sagemaker.DeleteModelOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ModelName))
	return &sagemaker.DeleteModelOutput{}, nil
}

func testRequest() deploy.Request {
	return deploy.Request{
		Name:             "ip-insights-test",
		ModelArtifactURI: "s3://bucket/sec405/output/ip-insights-test/model.tar.gz",
		ImageRef:         "123456789012.dkr.ecr.us-east-1.amazonaws.com/ipinsights:1",
		RoleArn:          "arn:aws:iam::123456789012:role/workflow",
		InstanceType:     "ml.m5.large",
		InstanceCount:    1,
	}
}

func TestDeployWaitsForInService(t *testing.T) {
	client := &fakeSageMaker{
		statuses: []types.EndpointStatus{
			types.EndpointStatusCreating,
			types.EndpointStatusCreating,
			types.EndpointStatusInService,
		},
	}
	deployer := deploy.NewDeployer(client, deploy.WithPollInterval(time.Millisecond))

	endpoint, err := deployer.Deploy(context.Background(), testRequest())
	require.NoError(t, err)

	assert.Equal(t, "ip-insights-test", endpoint.Name)
	assert.Equal(t, "ip-insights-test-config", endpoint.ConfigName)
	assert.Equal(t, "ip-insights-test-model", endpoint.ModelName)
	assert.Equal(t, 3, client.polls)

	// Serving sizing flows into the production variant.
	variant := client.configInput.ProductionVariants[0]
	assert.Equal(t, types.ProductionVariantInstanceType("ml.m5.large"), variant.InstanceType)
	assert.Equal(t, int32(1), aws.ToInt32(variant.InitialInstanceCount))
}

func TestDeployFailureSurfacesEndpointName(t *testing.T) {
	client := &fakeSageMaker{
		statuses:      []types.EndpointStatus{types.EndpointStatusCreating, types.EndpointStatusFailed},
		failureReason: "insufficient capacity",
	}
	deployer := deploy.NewDeployer(client, deploy.WithPollInterval(time.Millisecond))

	_, err := deployer.Deploy(context.Background(), testRequest())
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrRemoteJobFailed)
	assert.Contains(t, err.Error(), "ip-insights-test")
	assert.Contains(t, err.Error(), "insufficient capacity")
}

func TestDeployRejectsMissingArtifact(t *testing.T) {
	client := &fakeSageMaker{}
	deployer := deploy.NewDeployer(client)

	req := testRequest()
	req.ModelArtifactURI = ""

	_, err := deployer.Deploy(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrInvalidConfiguration)
	assert.Nil(t, client.modelInput)
}

func TestTeardownDeletesAllResources(t *testing.T) {
	client := &fakeSageMaker{}
	deployer := deploy.NewDeployer(client)

	err := deployer.Teardown(context.Background(), &deploy.Endpoint{
		Name:       "ip-insights-test",
		ConfigName: "ip-insights-test-config",
		ModelName:  "ip-insights-test-model",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ip-insights-test", "ip-insights-test-config", "ip-insights-test-model"}, client.deleted)
}
