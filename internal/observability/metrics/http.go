package metrics

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// HTTPMetrics records inbound request latency.
type HTTPMetrics struct {
	duration metric.Float64Histogram
	inFlight metric.Int64UpDownCounter
}

func NewHTTPMetrics(cfg Config, provider metric.MeterProvider) (*HTTPMetrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "medicore"
	}
	meter := provider.Meter(name + "/http")

	duration, err := meter.Float64Histogram(
		"http_server_request_duration_seconds",
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5),
	)
	if err != nil {
		return nil, err
	}
	inFlight, err := meter.Int64UpDownCounter("http_server_requests_in_flight")
	if err != nil {
		return nil, err
	}
	return &HTTPMetrics{duration: duration, inFlight: inFlight}, nil
}

// GinMiddleware records one duration sample per request, labelled by route
// template so ids never become label values.
func (m *HTTPMetrics) GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		start := time.Now()
		m.inFlight.Add(ctx, 1)

		c.Next()

		m.inFlight.Add(ctx, -1)
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		attrs := FilterAttributes(
			attribute.String("route", route),
			attribute.String("method", c.Request.Method),
			attribute.String("status_code", strconv.Itoa(c.Writer.Status())),
		)
		m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
}
