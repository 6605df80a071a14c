package migration

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
)

// ExportRunner applies a directory written by Export to a postgres database
// with golang-migrate. Each exported step also records its ledger row, so a
// database prepared this way is seen as migrated by the Executor.
type ExportRunner struct {
	migrate *migrate.Migrate
	logger  *zap.Logger
}

// ExportVersionTable is where golang-migrate keeps the applied step number.
const ExportVersionTable = "ledger_export_version"

// NewExportRunner creates a runner on an open postgres connection.
func NewExportRunner(db *sql.DB, dir string, logger *zap.Logger) (*ExportRunner, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{MigrationsTable: ExportVersionTable})
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("failed to open export %s: %w", dir, err)
	}
	return &ExportRunner{migrate: m, logger: logger}, nil
}

// Up applies every exported step not yet applied.
func (r *ExportRunner) Up() error {
	r.logger.Info("Applying exported migrations")

	err := r.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No exported migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("export up failed: %w", err)
	}
	return r.logVersion("Exported migrations applied")
}

// Steps applies n steps forwards, or -n steps backwards when n is negative.
func (r *ExportRunner) Steps(n int) error {
	r.logger.Info("Running exported migration steps", zap.Int("steps", n))

	err := r.migrate.Steps(n)
	if errors.Is(err, migrate.ErrNoChange) {
		r.logger.Info("No exported migrations to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("export steps failed: %w", err)
	}
	return r.logVersion("Exported migration steps completed")
}

func (r *ExportRunner) logVersion(msg string) error {
	version, dirty, err := r.Version()
	if err != nil {
		return err
	}
	r.logger.Info(msg, zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

// Version returns the last applied step, zero when none is.
func (r *ExportRunner) Version() (uint, bool, error) {
	version, dirty, err := r.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get export version: %w", err)
	}
	return version, dirty, nil
}

// Force sets the step version without running anything, to clear a dirty state.
func (r *ExportRunner) Force(version int) error {
	r.logger.Warn("Forcing export version", zap.Int("version", version))
	if err := r.migrate.Force(version); err != nil {
		return fmt.Errorf("failed to force version %d: %w", version, err)
	}
	return nil
}

// Close releases the source and database handles.
func (r *ExportRunner) Close() error {
	sourceErr, dbErr := r.migrate.Close()
	if sourceErr != nil {
		return fmt.Errorf("failed to close source: %w", sourceErr)
	}
	if dbErr != nil {
		return fmt.Errorf("failed to close database: %w", dbErr)
	}
	return nil
}
