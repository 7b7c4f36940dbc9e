package tracing

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/medicore/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/baggage"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "medicore/http"

// GinMiddleware starts a server span per request. The span is renamed to the
// matched route once the handler has run, and carries the acting role but
// never the actor's identity.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer(tracerName)
	return func(c *gin.Context) {
		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, spanName(c.Request.Method, ""), trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		if requestID := obscontext.RequestIDFromContext(ctx); requestID != "" {
			ctx = withBaggage(ctx, "request_id", requestID)
			span.SetAttributes(attribute.String("request_id", requestID))
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		route := c.FullPath()
		status := c.Writer.Status()
		span.SetName(spanName(c.Request.Method, route))

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
		}
		if role := obscontext.RoleFromContext(c.Request.Context()); role != "" {
			attrs = append(attrs, attribute.String("medicore.actor.role", role))
		}
		if id := c.Param("id"); id != "" && strings.HasPrefix(route, "/api/bills/") {
			attrs = append(attrs, attribute.String("medicore.bill.id", id))
		}
		span.SetAttributes(SafeAttributes(attrs...)...)

		// 4xx responses are the caller's mistake and leave the span status unset.
		if status >= http.StatusInternalServerError {
			if lastErr := c.Errors.Last(); lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

func spanName(method, route string) string {
	name := "HTTP " + strings.ToUpper(method)
	if route != "" {
		name += " " + route
	}
	return name
}

func withBaggage(ctx context.Context, key, value string) context.Context {
	member, err := baggage.NewMember(key, value)
	if err != nil {
		return ctx
	}
	bag, err := baggage.FromContext(ctx).SetMember(member)
	if err != nil {
		return ctx
	}
	return baggage.ContextWithBaggage(ctx, bag)
}
