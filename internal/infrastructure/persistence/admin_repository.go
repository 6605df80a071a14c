package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/internal/domain/shared"
)

// AdminRepository reads rows of any ledger model without a Go struct for it.
// Rows come back keyed by column name.
type AdminRepository struct {
	db *gorm.DB
}

// NewAdminRepository creates a new AdminRepository
func NewAdminRepository(db *gorm.DB) *AdminRepository {
	return &AdminRepository{db: db}
}

// List returns one page of m's rows and the total row count. Without an
// ordering in the filter the model's own ordering option applies.
func (r *AdminRepository) List(ctx context.Context, m *schema.Model, filter shared.Filter) ([]map[string]any, int64, error) {
	table := m.Table()

	var total int64
	if err := r.db.WithContext(ctx).Table(table).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	ordering := filter.Ordering
	if len(ordering) == 0 {
		ordering = m.Options.Ordering
	}

	query := r.db.WithContext(ctx).Table(table).
		Select(m.Columns()).
		Order(clause.OrderBy{Columns: OrderBy(m, ordering)})
	if filter.PageSize > 0 {
		query = query.Limit(filter.PageSize).Offset(filter.Offset())
	}

	rows := []map[string]any{}
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// Get returns the row of m whose primary key is id.
func (r *AdminRepository) Get(ctx context.Context, m *schema.Model, id uint) (map[string]any, error) {
	row := map[string]any{}
	err := r.db.WithContext(ctx).Table(m.Table()).
		Select(m.Columns()).
		Where(clause.Eq{Column: clause.Column{Name: m.PrimaryKey().Column()}, Value: id}).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return row, nil
}
