package metrics

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Config configures the metrics provider.
type Config struct {
	Enabled          bool
	ExporterEndpoint string
	ExporterProtocol string
	ServiceName      string
	Environment      string
}

// Metrics exposes application-level instruments.
type Metrics struct {
	billsCreated     metric.Int64Counter
	billsRejected    metric.Int64Counter
	negativeTotals   metric.Int64Counter
	invoicesRendered metric.Int64Counter
	authzDenied      metric.Int64Counter
}

// NewProvider configures and registers the meter provider.
func NewProvider(lc fx.Lifecycle, cfg Config, log *zap.Logger) (metric.MeterProvider, error) {
	if !cfg.Enabled {
		provider := noop.NewMeterProvider()
		otel.SetMeterProvider(provider)
		return provider, nil
	}

	exporter, err := newExporter(cfg.ExporterProtocol, cfg.ExporterEndpoint)
	if err != nil {
		return nil, err
	}

	reader := sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(10*time.Second))
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	if lc != nil {
		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				if log != nil {
					log.Info("shutting down meter provider")
				}
				return provider.Shutdown(ctx)
			},
		})
	}

	if log != nil {
		log.Info("metrics initialized",
			zap.String("endpoint", cfg.ExporterEndpoint),
			zap.String("protocol", cfg.ExporterProtocol),
		)
	}

	return provider, nil
}

// New configures the domain metrics instruments.
func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "medicore"
	}
	meter := provider.Meter(name)

	billsCreated, err := meter.Int64Counter("medicore_bills_created_total")
	if err != nil {
		return nil, err
	}
	billsRejected, err := meter.Int64Counter("medicore_bills_rejected_total")
	if err != nil {
		return nil, err
	}
	negativeTotals, err := meter.Int64Counter("medicore_bills_negative_total")
	if err != nil {
		return nil, err
	}
	invoicesRendered, err := meter.Int64Counter("medicore_invoices_rendered_total")
	if err != nil {
		return nil, err
	}
	authzDenied, err := meter.Int64Counter("medicore_authorization_denied_total")
	if err != nil {
		return nil, err
	}

	return &Metrics{
		billsCreated:     billsCreated,
		billsRejected:    billsRejected,
		negativeTotals:   negativeTotals,
		invoicesRendered: invoicesRendered,
		authzDenied:      authzDenied,
	}, nil
}

// RecordBillCreated increments created bill counts.
func (m *Metrics) RecordBillCreated(ctx context.Context, paymentStatus, paymentMethod string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("payment_status", strings.TrimSpace(paymentStatus)),
		attribute.String("payment_method", strings.TrimSpace(paymentMethod)),
	)
	m.billsCreated.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordBillRejected increments rejected submissions by reason code.
func (m *Metrics) RecordBillRejected(ctx context.Context, reason string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("reason", strings.TrimSpace(reason)))
	m.billsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordNegativeTotal counts bills saved with a total below zero.
func (m *Metrics) RecordNegativeTotal(ctx context.Context) {
	if m == nil {
		return
	}
	m.negativeTotals.Add(ctx, 1)
}

// RecordInvoiceRendered increments rendered invoice counts.
func (m *Metrics) RecordInvoiceRendered(ctx context.Context, format string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(attribute.String("format", strings.TrimSpace(format)))
	m.invoicesRendered.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordAuthorizationDenied increments denied checks.
func (m *Metrics) RecordAuthorizationDenied(ctx context.Context, role, action string) {
	if m == nil {
		return
	}
	attrs := FilterAttributes(
		attribute.String("role", strings.TrimSpace(role)),
		attribute.String("action", strings.TrimSpace(action)),
	)
	m.authzDenied.Add(ctx, 1, metric.WithAttributes(attrs...))
}

func newExporter(protocol, endpoint string) (sdkmetric.Exporter, error) {
	protocol = strings.ToLower(strings.TrimSpace(protocol))
	switch protocol {
	case "http", "http/protobuf":
		opts := []otlpmetrichttp.Option{}
		if endpoint != "" {
			opts = append(opts, otlpmetrichttp.WithEndpoint(endpoint))
		}
		return otlpmetrichttp.New(context.Background(), opts...)
	case "grpc", "grpc/protobuf", "":
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithInsecure()}
		if endpoint != "" {
			opts = append(opts, otlpmetricgrpc.WithEndpoint(endpoint))
		}
		return otlpmetricgrpc.New(context.Background(), opts...)
	default:
		return nil, fmt.Errorf("unsupported OTLP protocol %q", protocol)
	}
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"route":          {},
	"method":         {},
	"status_code":    {},
	"payment_status": {},
	"payment_method": {},
	"format":         {},
	"role":           {},
	"action":         {},
	"reason":         {},
}

// FilterAttributes strips disallowed labels to keep metrics low-cardinality.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attr)
	}
	return filtered
}
