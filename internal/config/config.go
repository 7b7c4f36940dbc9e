package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string

	LogLevel    string
	LogFormat   string
	SlowQueryMs int64

	OTLPEndpoint string
	Otel         OtelConfig

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int

	RedisAddr     string
	RedisPassword string

	BootstrapDemoData bool

	MetricsPush MetricsPushConfig
}

// OtelConfig controls the OpenTelemetry trace and metric exporters.
type OtelConfig struct {
	Enabled       bool
	Protocol      string
	SamplingRatio float64
}

type MetricsPushConfig struct {
	Enabled   bool
	Exporter  string
	Endpoint  string
	AuthToken string
	Interval  int64
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	environment := getenv("ENVIRONMENT", "development")

	cfg := Config{
		AppName:      getenv("APP_SERVICE", "medicore"),
		AppVersion:   getenv("SERVICE_VERSION", getenv("APP_VERSION", "0.1.0")),
		Environment:  environment,
		HTTPAddr:     getenv("HTTP_ADDR", ":8080"),
		LogLevel:     strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogFormat:    strings.ToLower(getenv("LOG_FORMAT", "json")),
		SlowQueryMs:  getenvInt64("DATABASE_SLOW_QUERY_MS", 200),
		OTLPEndpoint: getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317")),

		Otel: OtelConfig{
			Enabled:       getenvBool("OTEL_ENABLED", true),
			Protocol:      strings.ToLower(getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "medicore"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     int(getenvInt64("DATABASE_MAX_IDLE_CONN", 10)),
		DBMaxOpenConn:     int(getenvInt64("DATABASE_MAX_OPEN_CONN", 50)),
		DBConnMaxLifetime: int(getenvInt64("DATABASE_CONN_MAX_LIFETIME", 1800)),
		DBConnMaxIdleTime: int(getenvInt64("DATABASE_CONN_MAX_IDLE_TIME", 300)),

		RedisAddr:     strings.TrimSpace(getenv("REDIS_ADDR", "")),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		BootstrapDemoData: getenvBool("BOOTSTRAP_DEMO_DATA", environment != "production"),

		MetricsPush: MetricsPushConfig{
			Enabled:   getenvBool("METRICS_PUSH_ENABLED", false),
			Exporter:  strings.ToLower(getenv("METRICS_PUSH_EXPORTER", "")),
			Endpoint:  strings.TrimSpace(getenv("METRICS_PUSH_ENDPOINT", "")),
			AuthToken: strings.TrimSpace(getenv("METRICS_PUSH_AUTH_TOKEN", "")),
			Interval:  getenvInt64("METRICS_PUSH_INTERVAL_SECONDS", 60),
		},
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}
