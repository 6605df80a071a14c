package migration

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/domain/ledger"
)

// AppliedMigration is one row of the recorder table.
type AppliedMigration struct {
	ID        uint      `gorm:"primaryKey"`
	App       string    `gorm:"type:varchar(255);not null;uniqueIndex:ledger_migrations_app_name_uniq"`
	Name      string    `gorm:"type:varchar(255);not null;uniqueIndex:ledger_migrations_app_name_uniq"`
	AppliedAt time.Time `gorm:"not null"`
}

// TableName returns the recorder table name.
func (AppliedMigration) TableName() string {
	return "ledger_migrations"
}

// Recorder tracks which migrations have been applied to a database.
type Recorder struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRecorder creates a recorder on db.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db, now: time.Now}
}

// EnsureSchema creates the recorder table when it does not exist.
func (r *Recorder) EnsureSchema(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&AppliedMigration{}); err != nil {
		return fmt.Errorf("failed to create recorder table: %w", err)
	}
	return nil
}

// Applied returns every recorded migration with the time it was applied.
func (r *Recorder) Applied(ctx context.Context) (map[ledger.Key]time.Time, error) {
	var rows []AppliedMigration
	if err := r.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load applied migrations: %w", err)
	}
	applied := make(map[ledger.Key]time.Time, len(rows))
	for _, row := range rows {
		applied[ledger.Key{App: row.App, Name: row.Name}] = row.AppliedAt
	}
	return applied, nil
}

// RecordApplied inserts the row for key using tx, so it commits with the migration.
func (r *Recorder) RecordApplied(ctx context.Context, tx *gorm.DB, key ledger.Key) error {
	row := AppliedMigration{App: key.App, Name: key.Name, AppliedAt: r.now().UTC()}
	if err := tx.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record %s: %w", key, err)
	}
	return nil
}

// RecordUnapplied removes the row for key using tx.
func (r *Recorder) RecordUnapplied(ctx context.Context, tx *gorm.DB, key ledger.Key) error {
	err := tx.WithContext(ctx).
		Where("app = ? AND name = ?", key.App, key.Name).
		Delete(&AppliedMigration{}).Error
	if err != nil {
		return fmt.Errorf("failed to unrecord %s: %w", key, err)
	}
	return nil
}
