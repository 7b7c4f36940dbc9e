package logger

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/medicore/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	restore := zap.ReplaceGlobals(zap.New(core))
	t.Cleanup(restore)
	return logs
}

func TestBuildZapConfig(t *testing.T) {
	cfg, err := buildZapConfig(Config{Format: "console", Level: "debug"})
	require.NoError(t, err)
	assert.Equal(t, "console", cfg.Encoding)
	assert.Equal(t, zapcore.DebugLevel, cfg.Level.Level())

	cfg, err = buildZapConfig(Config{})
	require.NoError(t, err)
	assert.Equal(t, "json", cfg.Encoding)
	assert.Equal(t, zapcore.InfoLevel, cfg.Level.Level())

	_, err = buildZapConfig(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestContextFieldsSkipsEmpty(t *testing.T) {
	assert.Empty(t, ContextFields(context.Background()))

	ctx := obscontext.WithRequestID(context.Background(), "req-9")
	ctx = obscontext.WithActor(ctx, "user", "u-1", "Doctor")

	got := map[string]string{}
	for _, f := range ContextFields(ctx) {
		got[f.Key] = f.String
	}
	assert.Equal(t, map[string]string{
		"request_id": "req-9",
		"actor_type": "user",
		"actor_id":   "u-1",
		"actor_role": "Doctor",
	}, got)
}

func TestGinMiddlewareLogsResourceFields(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observe(t)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{
		ErrorClassifier: func(error) (string, string) { return "conflict", "submission_in_flight" },
	}))
	r.POST("/api/bill-drafts/:id/submit", func(c *gin.Context) {
		_ = c.Error(errors.New("in flight"))
		c.Status(http.StatusConflict)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/bill-drafts/d-1/submit", nil)
	req.Header.Set(HeaderRequestID, "req-1")
	req.Header.Set("Idempotency-Key", "01HZX")
	r.ServeHTTP(w, req)

	assert.Equal(t, "req-1", w.Header().Get(HeaderRequestID))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)

	fields := entries[0].ContextMap()
	assert.Equal(t, "d-1", fields["draft_id"])
	assert.Equal(t, "01HZX", fields["idempotency_key"])
	assert.Equal(t, "submission_in_flight", fields["error_code"])
	assert.Equal(t, "req-1", fields["request_id"])
	assert.NotContains(t, fields, "bill_id")
}

func TestGinMiddlewareGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	logs := observe(t)

	r := gin.New()
	r.Use(GinMiddleware(MiddlewareConfig{}))
	r.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
	entries := logs.FilterMessage("http_request").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.DebugLevel, entries[0].Level)
}

func TestDescribeSQL(t *testing.T) {
	tests := []struct {
		sql   string
		op    string
		table string
	}{
		{`SELECT * FROM "bills" WHERE id = $1`, "SELECT", "bills"},
		{`INSERT INTO "bill_items" ("bill_id") VALUES ($1)`, "INSERT", "bill_items"},
		{"UPDATE `patients` SET name = ?", "UPDATE", "patients"},
		{`DELETE FROM audit_logs`, "DELETE", "audit_logs"},
		{`PRAGMA foreign_keys`, "UNKNOWN", ""},
	}
	for _, tt := range tests {
		op, table := describeSQL(tt.sql)
		assert.Equal(t, tt.op, op, tt.sql)
		assert.Equal(t, tt.table, table, tt.sql)
	}
}

func TestGormLoggerDropsParams(t *testing.T) {
	l := NewGormLogger(DefaultGormLoggerConfig())
	sql, params := l.ParamsFilter(context.Background(), "SELECT 1", "9876543210")
	assert.Equal(t, "SELECT 1", sql)
	assert.Nil(t, params)
}
