package aws

import (
	"context"
	"testing"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/stretchr/testify/assert"
)

func TestEndpointPrecedence(t *testing.T) {
	t.Setenv("AWS_ENDPOINT", "")
	t.Setenv("AWS_DYNAMODB_ENDPOINT", "")
	t.Setenv("AWS_S3_ENDPOINT", "")
	assert.Empty(t, Endpoint())

	t.Setenv("AWS_S3_ENDPOINT", "http://s3:4566")
	assert.Equal(t, "http://s3:4566", Endpoint())

	t.Setenv("AWS_DYNAMODB_ENDPOINT", "http://ddb:8000")
	assert.Equal(t, "http://ddb:8000", Endpoint())

	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	assert.Equal(t, "http://localstack:4566", Endpoint())
}

func TestLoadAWSConfigWithEndpoint(t *testing.T) {
	t.Setenv("AWS_ENDPOINT", "http://localstack:4566")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	cfg, err := LoadAWSConfig(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "eu-west-1", cfg.Region)
	assert.Equal(t, "http://localstack:4566", sdkaws.ToString(cfg.BaseEndpoint))

	creds, err := cfg.Credentials.Retrieve(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, "test", creds.AccessKeyID)
}

func TestDisabledMetricsClientIsNoop(t *testing.T) {
	var nilClient *MetricsClient
	assert.False(t, nilClient.IsEnabled())
	assert.NoError(t, nilClient.PutMetric(context.Background(), MetricHTTPRequests, 1, types.StandardUnitCount, nil))
	nilClient.RecordResolution(context.Background(), "legacy-id", true, time.Millisecond)
	nilClient.RecordCache(true)

	disabled := NewMetricsClient(sdkaws.Config{Region: "us-east-1"}, false, nil)
	assert.False(t, disabled.IsEnabled())
	assert.NoError(t, disabled.RecordCount(context.Background(), MetricResolutions, map[string]string{"Schema": "none"}))
	assert.NoError(t, disabled.RecordLatency(context.Background(), MetricResolutionLatency, time.Second, nil))
}
