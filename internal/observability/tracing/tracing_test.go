package tracing

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

func TestSafeAttributesDropsPatientFields(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/bills/:id"),
		attribute.String("patient.name", "Jane"),
		attribute.String("patient.contact", "9876543210"),
	)
	require.Len(t, attrs, 1)
	assert.Equal(t, attribute.Key("http.route"), attrs[0].Key)
}

func TestSafeError(t *testing.T) {
	assert.Nil(t, SafeError(nil))

	err := SafeError(fmt.Errorf("insert bill: %w", errors.New("patient 9876543210")))
	assert.EqualError(t, err, "insert bill")
}

func TestGinMiddlewareWithDisabledProvider(t *testing.T) {
	gin.SetMode(gin.TestMode)
	_, err := NewProvider(nil, Config{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/bills/:id", func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/bills/1", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestWrapHTTPClientInjectsHeaders(t *testing.T) {
	var seen http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Clone()
	}))
	defer srv.Close()

	client := WrapHTTPClient(nil)
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	resp.Body.Close()

	assert.NotNil(t, seen)
}

func TestGinMiddlewareNamesSpanByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/bills/:id", func(c *gin.Context) {
		_ = c.Error(errors.New("select bill: patient 9876543210"))
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/bills/77", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP GET /api/bills/:id", span.Name())
	assert.Equal(t, codes.Error, span.Status().Code)

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "77", attrs["medicore.bill.id"].AsString())
	assert.Equal(t, int64(500), attrs["http.status_code"].AsInt64())

	require.Len(t, span.Events(), 1)
	for _, kv := range span.Events()[0].Attributes {
		assert.NotContains(t, kv.Value.Emit(), "9876543210")
	}
}
