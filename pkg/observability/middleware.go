package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "companion-chat/backend/http"

// HTTPMetrics records request counts and latency per route
func HTTPMetrics() gin.HandlerFunc {
	meter := otel.Meter(instrumentationName)
	requests, _ := meter.Int64Counter("http_server_requests",
		metric.WithDescription("HTTP requests served"))
	latency, _ := meter.Float64Histogram("http_server_duration",
		metric.WithDescription("HTTP request latency"),
		metric.WithUnit("ms"))

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		attrs := metric.WithAttributes(
			attribute.String("method", c.Request.Method),
			attribute.String("route", route),
			attribute.String("status", strconv.Itoa(c.Writer.Status())),
		)
		requests.Add(c.Request.Context(), 1, attrs)
		latency.Record(c.Request.Context(), float64(time.Since(start).Microseconds())/1000, attrs)
	}
}
