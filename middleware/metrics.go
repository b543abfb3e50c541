package middleware

import (
	"context"
	"strconv"
	"time"

	"checkout-service/metrics"
	awspkg "checkout-service/pkg/aws"

	"github.com/gin-gonic/gin"
)

// CloudWatchRecorder is the subset of awspkg.MetricsClient the middleware
// needs.
type CloudWatchRecorder interface {
	IsEnabled() bool
	RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error
	RecordLatency(ctx context.Context, metricName string, d time.Duration, dimensions map[string]string) error
}

// CloudWatchMetrics tracks request counts, latency and error ranges. Metrics
// are sent off the request path.
func CloudWatchMetrics(client CloudWatchRecorder, serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if client == nil || !client.IsEnabled() {
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
			"Path":    routeLabel(c),
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

// PrometheusMetrics records request counts and latency labelled by route
// template, so attempt ids do not explode label cardinality.
func PrometheusMetrics(m *metrics.ServerMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := routeLabel(c)
		m.Requests.WithLabelValues(route, strconv.Itoa(c.Writer.Status())).Inc()
		m.LatencyMS.WithLabelValues(route).Observe(float64(time.Since(start).Milliseconds()))
	}
}

func routeLabel(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

func statusRange(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500:
		return "5xx"
	default:
		return "unknown"
	}
}
