package logger

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	obscontext "github.com/smallbiznis/medicore/internal/observability/context"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const HeaderRequestID = "X-Request-Id"

type MiddlewareConfig struct {
	Debug bool
	// ErrorClassifier maps a handler error to the (type, code) pair that is
	// logged. Without it errors are logged by message only.
	ErrorClassifier func(err error) (string, string)
}

// GinMiddleware writes one http_request entry per request. Route ids are
// logged under the name of the resource they address; request bodies and
// query strings are never logged since they can hold patient details.
func GinMiddleware(cfg MiddlewareConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := requestIDFor(c)

		ctx := obscontext.WithRequestID(c.Request.Context(), requestID)
		ctx = obscontext.WithClient(ctx, c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		status := c.Writer.Status()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.Int("status", status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			zap.Int64("bytes_in", max(c.Request.ContentLength, 0)),
			zap.Int("bytes_out", max(c.Writer.Size(), 0)),
		}
		fields = append(fields, resourceFields(c, route)...)
		fields = append(fields, errorFields(c, cfg)...)

		log := FromContext(c.Request.Context())
		log.Log(levelFor(route, status), "http_request", fields...)
	}
}

func requestIDFor(c *gin.Context) string {
	requestID := strings.TrimSpace(c.GetHeader(HeaderRequestID))
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set("request_id", requestID)
	c.Header(HeaderRequestID, requestID)
	return requestID
}

// resourceFields names the :id param after the resource in the route.
func resourceFields(c *gin.Context, route string) []zap.Field {
	var fields []zap.Field

	if id := strings.TrimSpace(c.Param("id")); id != "" {
		key := "resource_id"
		switch {
		case strings.Contains(route, "/bill-drafts/"):
			key = "draft_id"
		case strings.Contains(route, "/bills/"):
			key = "bill_id"
		}
		fields = append(fields, zap.String(key, id))
	}
	if index := strings.TrimSpace(c.Param("index")); index != "" {
		fields = append(fields, zap.String("item_index", index))
	}
	if key := strings.TrimSpace(c.GetHeader("Idempotency-Key")); key != "" {
		fields = append(fields, zap.String("idempotency_key", key))
	}
	return fields
}

func errorFields(c *gin.Context, cfg MiddlewareConfig) []zap.Field {
	lastErr := c.Errors.Last()
	if lastErr == nil {
		return nil
	}

	fields := make([]zap.Field, 0, 3)
	if cfg.ErrorClassifier != nil {
		errorType, errorCode := cfg.ErrorClassifier(lastErr.Err)
		fields = append(fields,
			zap.String("error_type", errorType),
			zap.String("error_code", errorCode),
		)
	} else {
		fields = append(fields, zap.String("error", lastErr.Err.Error()))
	}
	if cfg.Debug {
		fields = append(fields, zap.Stack("stack"))
	}
	return fields
}

func levelFor(route string, status int) zapcore.Level {
	switch {
	case route == "/health" || route == "/metrics":
		return zapcore.DebugLevel
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status == http.StatusConflict:
		return zapcore.WarnLevel
	default:
		return zapcore.InfoLevel
	}
}
