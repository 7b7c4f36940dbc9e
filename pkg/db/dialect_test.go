package db

import (
	"testing"

	"github.com/smallbiznis/medicore/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	base := config.Config{
		DBHost:     "db.local",
		DBPort:     "5432",
		DBUser:     "billing",
		DBPassword: "s3cret",
		DBName:     "medicore",
	}

	tests := []struct {
		name   string
		dbType string
		dbName string
		want   string
	}{
		{"postgres", "postgres", "", "host=db.local port=5432 user=billing password=s3cret dbname=medicore sslmode=disable TimeZone=UTC"},
		{"postgres alias", "PostgreSQL", "", "host=db.local port=5432 user=billing password=s3cret dbname=medicore sslmode=disable TimeZone=UTC"},
		{"mysql", "mysql", "", "billing:s3cret@tcp(db.local:5432)/medicore?charset=utf8mb4&parseTime=True&loc=UTC"},
		{"sqlite file", "sqlite", "", "file:medicore.db?_foreign_keys=1"},
		{"sqlite keeps suffix", "sqlite3", "ward.db", "file:ward.db?_foreign_keys=1"},
		{"sqlite memory", "sqlite", ":memory:", "file::memory:?cache=shared"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			cfg.DBType = tt.dbType
			if tt.dbName != "" {
				cfg.DBName = tt.dbName
			}
			got, err := DSN(cfg)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDSNErrors(t *testing.T) {
	_, err := DSN(config.Config{DBType: "oracle", DBName: "x"})
	assert.ErrorContains(t, err, "unsupported")

	_, err = DSN(config.Config{DBType: "postgres"})
	assert.ErrorContains(t, err, "name is required")

	_, err = DSN(config.Config{DBType: "mysql", DBName: "medicore"})
	assert.ErrorContains(t, err, "host is required")

	_, err = Dialect(config.Config{DBType: "oracle", DBName: "x"})
	assert.Error(t, err)

	d, err := Dialect(config.Config{DBType: "sqlite", DBName: ":memory:"})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())
}
