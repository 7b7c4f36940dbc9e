package observability

import (
	"strings"
	"time"

	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/observability/logger"
	"github.com/smallbiznis/medicore/internal/observability/metrics"
	"github.com/smallbiznis/medicore/internal/observability/tracing"
)

// Config is the observability slice of the application config.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string
	SlowQuery time.Duration

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "medicore"
	}

	return Config{
		ServiceName:          serviceName,
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             strings.TrimSpace(cfg.LogLevel),
		LogFormat:            strings.TrimSpace(cfg.LogFormat),
		SlowQuery:            time.Duration(cfg.SlowQueryMs) * time.Millisecond,
		OtelEnabled:          cfg.Otel.Enabled,
		OtelExporterEndpoint: strings.TrimSpace(cfg.OTLPEndpoint),
		OtelExporterProtocol: strings.TrimSpace(cfg.Otel.Protocol),
		OtelSamplingRatio:    cfg.Otel.SamplingRatio,
	}
}

// Debug is true for debug logging or a development environment. It turns on
// stack traces in request logs.
func (c Config) Debug() bool {
	if strings.EqualFold(c.LogLevel, "debug") {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

func (c Config) Logger() logger.Config {
	return logger.Config{
		ServiceName:         c.ServiceName,
		Environment:         c.Environment,
		Version:             c.Version,
		Level:               c.LogLevel,
		Format:              c.LogFormat,
		IncludeCaller:       true,
		IncludeStackOnError: c.Debug(),
	}
}

func (c Config) Gorm() logger.GormLoggerConfig {
	cfg := logger.DefaultGormLoggerConfig()
	if c.SlowQuery > 0 {
		cfg.SlowThreshold = c.SlowQuery
	}
	return cfg
}

func (c Config) Tracing() tracing.Config {
	return tracing.Config{
		Enabled:          c.OtelEnabled,
		ServiceName:      c.ServiceName,
		ServiceVersion:   c.Version,
		Environment:      c.Environment,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		SamplingRatio:    c.OtelSamplingRatio,
	}
}

func (c Config) Metrics() metrics.Config {
	return metrics.Config{
		Enabled:          c.OtelEnabled,
		ExporterEndpoint: c.OtelExporterEndpoint,
		ExporterProtocol: c.OtelExporterProtocol,
		ServiceName:      c.ServiceName,
		Environment:      c.Environment,
	}
}
