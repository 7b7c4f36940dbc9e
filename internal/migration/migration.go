package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/smallbiznis/medicore/internal/audit/domain"
	billdomain "github.com/smallbiznis/medicore/internal/bill/domain"
	patientdomain "github.com/smallbiznis/medicore/internal/patient/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

var errNilDB = errors.New("migration database handle is required")

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errNilDB
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// AutoMigrate creates the schema from the models. Used for mysql and sqlite,
// which the embedded migrations do not target.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errNilDB
	}
	return conn.AutoMigrate(
		&patientdomain.Patient{},
		&billdomain.Bill{},
		&billdomain.BillItem{},
		&auditdomain.AuditLog{},
	)
}
