package billingmetrics

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/golang/snappy"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"github.com/prometheus/prometheus/prompb"
	"github.com/smallbiznis/medicore/internal/config"
	obstracing "github.com/smallbiznis/medicore/internal/observability/tracing"
	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

const (
	ExporterRemoteWrite = "prometheus_remote_write"
	ExporterPushgateway = "prometheus_pushgateway"
	ExporterOTLP        = "otlp"

	defaultPushTimeout = 5 * time.Second
)

// Pusher sends the gathered billing metrics to an external collector.
type Pusher interface {
	Push(ctx context.Context, gatherer prometheus.Gatherer) error
}

// NewPusher builds a pusher from config. A misconfigured exporter is logged
// and disables pushing; it never blocks billing.
func NewPusher(cfg config.Config, logger *zap.Logger) Pusher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if !cfg.MetricsPush.Enabled {
		return nil
	}

	exporter := strings.ToLower(strings.TrimSpace(cfg.MetricsPush.Exporter))
	endpoint := strings.TrimSpace(cfg.MetricsPush.Endpoint)
	authToken := strings.TrimSpace(cfg.MetricsPush.AuthToken)

	if exporter == "" {
		logger.Warn("metrics push disabled", zap.Error(errors.New("metrics push exporter is required")))
		return nil
	}
	if endpoint == "" {
		logger.Warn("metrics push disabled", zap.Error(errors.New("metrics push endpoint is required")))
		return nil
	}

	switch exporter {
	case ExporterRemoteWrite:
		if _, err := url.ParseRequestURI(endpoint); err != nil {
			logger.Warn("metrics push disabled", zap.Error(fmt.Errorf("invalid metrics push endpoint: %w", err)))
			return nil
		}
		return NewRemoteWritePusher(endpoint, authToken)
	case ExporterPushgateway:
		return NewPushgatewayPusher(endpoint, cfg.AppName, map[string]string{
			"environment": strings.TrimSpace(cfg.Environment),
		})
	case ExporterOTLP:
		addr, secure, err := parseOTLPEndpoint(endpoint)
		if err != nil {
			logger.Warn("metrics push disabled", zap.Error(err))
			return nil
		}
		return NewOTLPPusher(addr, secure, authToken, buildResource(cfg.AppName, cfg.AppVersion, cfg.Environment))
	default:
		logger.Warn("metrics push disabled", zap.String("exporter", exporter))
		return nil
	}
}

// RemoteWritePusher sends metrics to a Prometheus remote_write endpoint.
type RemoteWritePusher struct {
	endpoint   string
	authToken  string
	httpClient *http.Client
	now        func() time.Time
}

func NewRemoteWritePusher(endpoint, authToken string) *RemoteWritePusher {
	return &RemoteWritePusher{
		endpoint:  endpoint,
		authToken: strings.TrimSpace(authToken),
		httpClient: obstracing.WrapHTTPClient(&http.Client{
			Timeout: defaultPushTimeout,
		}),
		now: time.Now,
	}
}

func (p *RemoteWritePusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}

	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	series := buildRemoteWriteSeries(families, p.now().UnixMilli())
	if len(series) == 0 {
		return nil
	}

	req := &prompb.WriteRequest{Timeseries: series}
	payload, err := req.Marshal()
	if err != nil {
		return err
	}

	compressed := snappy.Encode(nil, payload)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(compressed))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/x-protobuf")
	httpReq.Header.Set("Content-Encoding", "snappy")
	httpReq.Header.Set("X-Prometheus-Remote-Write-Version", "0.1.0")
	if p.authToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.authToken)
	}

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("remote write returned %s", resp.Status)
	}
	return nil
}

// PushgatewayPusher sends metrics to a Prometheus Pushgateway.
type PushgatewayPusher struct {
	endpoint string
	job      string
	grouping map[string]string
}

func NewPushgatewayPusher(endpoint, job string, grouping map[string]string) *PushgatewayPusher {
	return &PushgatewayPusher{
		endpoint: endpoint,
		job:      strings.TrimSpace(job),
		grouping: grouping,
	}
}

func (p *PushgatewayPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	if strings.TrimSpace(p.endpoint) == "" {
		return errors.New("pushgateway endpoint is required")
	}
	if p.job == "" {
		return errors.New("pushgateway job is required")
	}

	pusher := push.New(p.endpoint, p.job).Gatherer(gatherer)
	for key, value := range p.grouping {
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		pusher = pusher.Grouping(key, value)
	}
	return pusher.PushContext(ctx)
}

// OTLPPusher exports metrics to an OTLP gRPC collector. The connection is
// opened on first push.
type OTLPPusher struct {
	address   string
	secure    bool
	authToken string
	resource  *resourcepb.Resource
	conn      *grpc.ClientConn
	now       func() time.Time
}

func NewOTLPPusher(address string, secure bool, authToken string, resource *resourcepb.Resource) *OTLPPusher {
	return &OTLPPusher{
		address:   address,
		secure:    secure,
		authToken: strings.TrimSpace(authToken),
		resource:  resource,
		now:       time.Now,
	}
}

func (p *OTLPPusher) Push(ctx context.Context, gatherer prometheus.Gatherer) error {
	if p == nil || gatherer == nil {
		return nil
	}
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	metrics := buildOTLPMetrics(families, uint64(p.now().UnixNano()))
	if len(metrics) == 0 {
		return nil
	}

	if p.conn == nil {
		var creds credentials.TransportCredentials
		if p.secure {
			creds = credentials.NewClientTLSFromCert(nil, "")
		} else {
			creds = insecure.NewCredentials()
		}
		conn, err := grpc.NewClient(p.address, grpc.WithTransportCredentials(creds))
		if err != nil {
			return err
		}
		p.conn = conn
	}

	if p.authToken != "" {
		ctx = metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+p.authToken)
	}

	client := collectormetricspb.NewMetricsServiceClient(p.conn)
	_, err = client.Export(ctx, &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{{
			Resource: p.resource,
			ScopeMetrics: []*metricspb.ScopeMetrics{{
				Scope:   &commonpb.InstrumentationScope{Name: "medicore.billingmetrics"},
				Metrics: metrics,
			}},
		}},
	})
	return err
}

func (p *OTLPPusher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	return p.conn.Close()
}

func parseOTLPEndpoint(endpoint string) (string, bool, error) {
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		if err != nil {
			return "", false, fmt.Errorf("invalid metrics push endpoint: %w", err)
		}
		if parsed.Host == "" {
			return "", false, errors.New("metrics push endpoint host is required")
		}
		secure := parsed.Scheme == "https" || parsed.Scheme == "grpcs"
		return parsed.Host, secure, nil
	}
	if strings.TrimSpace(endpoint) == "" {
		return "", false, errors.New("metrics push endpoint is required")
	}
	return endpoint, false, nil
}

func buildResource(serviceName, serviceVersion, environment string) *resourcepb.Resource {
	attrs := make([]*commonpb.KeyValue, 0, 3)
	for _, kv := range [][2]string{
		{"service.name", serviceName},
		{"service.version", serviceVersion},
		{"deployment.environment", environment},
	} {
		if strings.TrimSpace(kv[1]) == "" {
			continue
		}
		attrs = append(attrs, &commonpb.KeyValue{
			Key:   kv[0],
			Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: kv[1]}},
		})
	}
	return &resourcepb.Resource{Attributes: attrs}
}
