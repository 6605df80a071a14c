package persistence

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/domain/books"
	"github.com/xerocraft/backend/internal/domain/shared"
	"github.com/xerocraft/backend/internal/infrastructure/persistence/models"
)

// GormSaleRepository implements books.SaleRepository using GORM
type GormSaleRepository struct {
	db *gorm.DB
}

// NewGormSaleRepository creates a new GormSaleRepository
func NewGormSaleRepository(db *gorm.DB) *GormSaleRepository {
	return &GormSaleRepository{db: db}
}

var _ books.SaleRepository = (*GormSaleRepository)(nil)

// Create inserts sale and sets its ID. A (payment_method, ctrlid) pair that
// is already taken yields shared.ErrAlreadyExists.
func (r *GormSaleRepository) Create(ctx context.Context, sale *books.Sale) error {
	row := models.SaleFromDomain(sale)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return shared.ErrAlreadyExists
		}
		return err
	}
	sale.ID = row.ID
	return nil
}

// LatestPhysicalCtrlid returns the greatest ctrlid of any cash or check sale.
func (r *GormSaleRepository) LatestPhysicalCtrlid(ctx context.Context) (string, bool, error) {
	var ctrlids []string
	err := r.db.WithContext(ctx).Model(&models.Sale{}).
		Where("payment_method IN ?", []string{string(books.PaidByCash), string(books.PaidByCheck)}).
		Order("ctrlid DESC").
		Limit(1).
		Pluck("ctrlid", &ctrlids).Error
	if err != nil {
		return "", false, err
	}
	if len(ctrlids) == 0 {
		return "", false, nil
	}
	return ctrlids[0], true, nil
}
