package aws

import (
	"context"
	"fmt"
	"os"
	"time"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"go.uber.org/zap"
)

// Metric names published by the catalog service.
const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricResolutions        = "CatalogResolutions"
	MetricResolutionLatency  = "CatalogResolutionLatency"
	MetricUnresolvedCategory = "CatalogUnresolvedCategory"
	MetricCacheHits          = "CacheHits"
	MetricCacheMisses        = "CacheMisses"
)

// MetricsClient wraps CloudWatch PutMetricData. When disabled every call is
// a no-op.
type MetricsClient struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
	logger    *zap.Logger
}

func NewMetricsClient(cfg sdkaws.Config, enabled bool, logger *zap.Logger) *MetricsClient {
	namespace := os.Getenv("CLOUDWATCH_NAMESPACE")
	if namespace == "" {
		namespace = "Catalog"
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
		logger:    logger,
	}
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

func (m *MetricsClient) PutMetric(ctx context.Context, name string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	if !m.IsEnabled() {
		return nil
	}
	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{Name: sdkaws.String(k), Value: sdkaws.String(v)})
	}
	_, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: sdkaws.String(m.namespace),
		MetricData: []types.MetricDatum{{
			MetricName: sdkaws.String(name),
			Value:      sdkaws.Float64(value),
			Unit:       unit,
			Timestamp:  sdkaws.Time(time.Now()),
			Dimensions: dims,
		}},
	})
	if err != nil {
		return fmt.Errorf("failed to put metric: %w", err)
	}
	return nil
}

func (m *MetricsClient) RecordCount(ctx context.Context, name string, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, 1, types.StandardUnitCount, dimensions)
}

func (m *MetricsClient) RecordLatency(ctx context.Context, name string, d time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, name, float64(d.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// RecordResolution publishes one catalog resolution observation. It is
// asynchronous so the request path never waits on CloudWatch.
func (m *MetricsClient) RecordResolution(_ context.Context, schema string, unresolved bool, duration time.Duration) {
	if !m.IsEnabled() {
		return
	}
	if schema == "" {
		schema = "none"
	}
	dims := map[string]string{"Schema": schema}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.RecordCount(ctx, MetricResolutions, dims); err != nil {
			m.logger.Debug("metric publish failed", zap.Error(err))
		}
		_ = m.RecordLatency(ctx, MetricResolutionLatency, duration, dims)
		if unresolved {
			_ = m.RecordCount(ctx, MetricUnresolvedCategory, nil)
		}
	}()
}

// RecordCache counts a list-cache hit or miss.
func (m *MetricsClient) RecordCache(hit bool) {
	if !m.IsEnabled() {
		return
	}
	name := MetricCacheMisses
	if hit {
		name = MetricCacheHits
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, name, map[string]string{"Cache": "product-list"})
	}()
}
