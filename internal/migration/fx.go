package migration

import (
	"github.com/smallbiznis/medicore/internal/config"
	"github.com/smallbiznis/medicore/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if err := Apply(conn); err != nil {
			return err
		}

		if !cfg.BootstrapDemoData {
			return nil
		}
		created, err := seed.EnsureDemoPatients(conn)
		if err != nil {
			return err
		}
		if created > 0 {
			log.Named("migrations").Info("seeded demo patients", zap.Int("count", created))
		}
		return nil
	}),
)

// Apply brings the schema up to date. Postgres runs the versioned SQL
// migrations; other dialects are migrated from the models.
func Apply(conn *gorm.DB) error {
	if conn == nil {
		return errNilDB
	}
	if conn.Dialector.Name() != "postgres" {
		return AutoMigrate(conn)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}
