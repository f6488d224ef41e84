package middleware

import (
	"context"
	"time"

	awspkg "github.com/yashrajoria/catalog-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// Metrics records request count, latency and error counts in CloudWatch.
func Metrics(client *awspkg.MetricsClient, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !client.IsEnabled() {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		duration := time.Since(start)
		status := c.Writer.Status()

		dims := map[string]string{
			"Service": serviceName,
			"Method":  c.Request.Method,
			"Path":    c.FullPath(),
			"Status":  statusRange(status),
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.RecordCount(ctx, awspkg.MetricHTTPRequests, dims)
			_ = client.RecordLatency(ctx, awspkg.MetricHTTPLatency, duration, dims)
			switch {
			case status >= 500:
				_ = client.RecordCount(ctx, awspkg.MetricHTTPErrors, dims)
				_ = client.RecordCount(ctx, awspkg.MetricHTTP5xx, dims)
			case status >= 400:
				_ = client.RecordCount(ctx, awspkg.MetricHTTPErrors, dims)
				_ = client.RecordCount(ctx, awspkg.MetricHTTP4xx, dims)
			}
		}()
	}
}

func statusRange(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	}
	return "unknown"
}
