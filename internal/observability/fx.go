package observability

import (
	"github.com/smallbiznis/medicore/internal/observability/logger"
	"github.com/smallbiznis/medicore/internal/observability/metrics"
	"github.com/smallbiznis/medicore/internal/observability/tracing"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/fx"
)

// Module provides the zap logger, the GORM logger, the tracer provider and
// the billing instruments. It must come after config.Module.
var Module = fx.Module("observability",
	fx.Provide(LoadConfig),
	fx.Provide(
		Config.Logger,
		Config.Gorm,
		Config.Tracing,
		Config.Metrics,
	),
	fx.Provide(
		logger.New,
		logger.NewGormLogger,
		tracing.NewProvider,
		metrics.NewProvider,
		metrics.New,
		metrics.NewHTTPMetrics,
	),
	// Nothing else depends on the tracer provider; force it to start.
	fx.Invoke(func(*sdktrace.TracerProvider) {}),
)
