package billingmetrics

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/prometheus/prometheus/prompb"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type staticSource struct {
	rows []billdomain.StatusSummary
	err  error
}

func (s staticSource) Summary(context.Context) ([]billdomain.StatusSummary, error) {
	return s.rows, s.err
}

type recordingPusher struct {
	calls int
	err   error
}

func (p *recordingPusher) Push(context.Context, prometheus.Gatherer) error {
	p.calls++
	return p.err
}

func TestCollectorRefresh(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	source := staticSource{rows: []billdomain.StatusSummary{
		{PaymentStatus: billdomain.PaymentStatusPaid, Count: 3, Amount: 4500},
		{PaymentStatus: billdomain.PaymentStatusPending, Count: 1, Amount: -2000},
	}}

	require.NoError(t, c.Refresh(context.Background(), source))

	assert.Equal(t, 3.0, testutil.ToFloat64(c.bills.WithLabelValues("Paid")))
	assert.Equal(t, 4500.0, testutil.ToFloat64(c.amount.WithLabelValues("Paid")))
	assert.Equal(t, -2000.0, testutil.ToFloat64(c.amount.WithLabelValues("Pending")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.bills.WithLabelValues("Partial")))
	assert.Greater(t, testutil.ToFloat64(c.memoryBytes), 0.0)
}

func TestCollectorRefreshError(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	err := c.Refresh(context.Background(), staticSource{err: errors.New("db down")})
	assert.EqualError(t, err, "db down")
}

func TestWorkerRunOnce(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	pusher := &recordingPusher{}
	w := NewWorker(c, staticSource{}, pusher, 0, zap.NewNop())

	w.RunOnce(context.Background())
	assert.Equal(t, 1, pusher.calls)
	assert.Equal(t, defaultInterval, w.interval)

	// refresh failure skips the push
	w.source = staticSource{err: errors.New("db down")}
	w.RunOnce(context.Background())
	assert.Equal(t, 1, pusher.calls)
	assert.True(t, w.errorOnce.Load())
}

func TestWorkerStartStop(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	w := NewWorker(c, staticSource{}, nil, time.Hour, zap.NewNop())

	w.Start()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, w.Stop(ctx))
}

func TestRemoteWritePusher(t *testing.T) {
	var got prompb.WriteRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		raw, err := snappy.Decode(nil, body)
		require.NoError(t, err)
		require.NoError(t, got.Unmarshal(raw))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewCollector(prometheus.NewRegistry())
	require.NoError(t, c.Refresh(context.Background(), staticSource{rows: []billdomain.StatusSummary{
		{PaymentStatus: billdomain.PaymentStatusPaid, Count: 2, Amount: 1055},
	}}))

	p := NewRemoteWritePusher(srv.URL, "secret")
	p.now = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	require.NoError(t, p.Push(context.Background(), c.Registry()))

	assert.Equal(t, "snappy", headers.Get("Content-Encoding"))
	assert.Equal(t, "Bearer secret", headers.Get("Authorization"))

	found := false
	for _, ts := range got.Timeseries {
		labels := map[string]string{}
		for _, l := range ts.Labels {
			labels[l.Name] = l.Value
		}
		if labels["__name__"] == "medicore_bill_amount" && labels["payment_status"] == "Paid" {
			found = true
			require.Len(t, ts.Samples, 1)
			assert.Equal(t, 1055.0, ts.Samples[0].Value)
			assert.Equal(t, int64(1_700_000_000_000), ts.Samples[0].Timestamp)
		}
	}
	assert.True(t, found)
}

func TestRemoteWritePusherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewCollector(prometheus.NewRegistry())
	require.NoError(t, c.Refresh(context.Background(), nil))

	err := NewRemoteWritePusher(srv.URL, "").Push(context.Background(), c.Registry())
	assert.ErrorContains(t, err, "401")
}

func TestPushgatewayPusher(t *testing.T) {
	var path, method string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		method = r.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewCollector(prometheus.NewRegistry())
	require.NoError(t, c.Refresh(context.Background(), nil))

	p := NewPushgatewayPusher(srv.URL, "medicore", map[string]string{"environment": "test"})
	require.NoError(t, p.Push(context.Background(), c.Registry()))
	assert.Equal(t, http.MethodPut, method)
	assert.Equal(t, "/metrics/job/medicore/environment/test", path)

	assert.Error(t, NewPushgatewayPusher(srv.URL, "", nil).Push(context.Background(), c.Registry()))
}

func TestNewPusher(t *testing.T) {
	base := config.Config{AppName: "medicore", Environment: "test"}
	tests := []struct {
		name string
		push config.MetricsPushConfig
		want any
	}{
		{"disabled", config.MetricsPushConfig{}, nil},
		{"missing exporter", config.MetricsPushConfig{Enabled: true, Endpoint: "http://x"}, nil},
		{"missing endpoint", config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite}, nil},
		{"bad url", config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "not a url"}, nil},
		{"unknown exporter", config.MetricsPushConfig{Enabled: true, Exporter: "statsd", Endpoint: "http://x"}, nil},
		{"remote write", config.MetricsPushConfig{Enabled: true, Exporter: ExporterRemoteWrite, Endpoint: "http://prom/api/v1/write"}, &RemoteWritePusher{}},
		{"pushgateway", config.MetricsPushConfig{Enabled: true, Exporter: ExporterPushgateway, Endpoint: "http://pgw:9091"}, &PushgatewayPusher{}},
		{"otlp", config.MetricsPushConfig{Enabled: true, Exporter: ExporterOTLP, Endpoint: "https://collector:4317"}, &OTLPPusher{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.MetricsPush = tt.push
			got := NewPusher(cfg, zap.NewNop())
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			assert.IsType(t, tt.want, got)
		})
	}
}

func TestParseOTLPEndpoint(t *testing.T) {
	addr, secure, err := parseOTLPEndpoint("https://collector:4317")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", addr)
	assert.True(t, secure)

	addr, secure, err = parseOTLPEndpoint("collector:4317")
	require.NoError(t, err)
	assert.Equal(t, "collector:4317", addr)
	assert.False(t, secure)

	_, _, err = parseOTLPEndpoint("http://")
	assert.Error(t, err)
}
