package db

import (
	"fmt"
	"strings"

	"github.com/smallbiznis/medicore/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DialectPostgres = "postgres"
	DialectMySQL    = "mysql"
	DialectSQLite   = "sqlite"
)

// Dialect picks the GORM driver for cfg.DBType. Timestamps are UTC on every
// driver so bill numbers derive from the same calendar day.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	dsn, err := DSN(cfg)
	if err != nil {
		return nil, err
	}

	switch normalizeType(cfg.DBType) {
	case DialectPostgres:
		return postgres.Open(dsn), nil
	case DialectMySQL:
		return mysql.Open(dsn), nil
	default:
		return sqlite.Open(dsn), nil
	}
}

func DSN(cfg config.Config) (string, error) {
	dbType := normalizeType(cfg.DBType)
	name := strings.TrimSpace(cfg.DBName)
	if name == "" {
		return "", fmt.Errorf("database name is required for %s", dbType)
	}

	switch dbType {
	case DialectPostgres:
		if strings.TrimSpace(cfg.DBHost) == "" {
			return "", fmt.Errorf("database host is required for %s", dbType)
		}
		sslMode := strings.TrimSpace(cfg.DBSSLMode)
		if sslMode == "" {
			sslMode = "disable"
		}
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, name, sslMode), nil
	case DialectMySQL:
		if strings.TrimSpace(cfg.DBHost) == "" {
			return "", fmt.Errorf("database host is required for %s", dbType)
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, name), nil
	case DialectSQLite:
		// ":memory:" runs the service against a throwaway database.
		if name == ":memory:" {
			return "file::memory:?cache=shared", nil
		}
		if !strings.HasSuffix(name, ".db") {
			name += ".db"
		}
		return "file:" + name + "?_foreign_keys=1", nil
	default:
		return "", fmt.Errorf("unsupported database type %q", cfg.DBType)
	}
}

func normalizeType(dbType string) string {
	switch t := strings.ToLower(strings.TrimSpace(dbType)); t {
	case "postgresql", "pg":
		return DialectPostgres
	case "sqlite3":
		return DialectSQLite
	default:
		return t
	}
}
