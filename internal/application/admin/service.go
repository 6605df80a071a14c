package admin

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/xerocraft/backend/internal/domain/books"
	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/internal/domain/shared"
)

// maxCtrlidAttempts bounds retries when two clerks enter physical sales at
// the same time and draw the same generated ctrlid.
const maxCtrlidAttempts = 3

// RowReader reads rows of a model generically.
type RowReader interface {
	List(ctx context.Context, m *schema.Model, filter shared.Filter) ([]map[string]any, int64, error)
	Get(ctx context.Context, m *schema.Model, id uint) (map[string]any, error)
}

// Changelist is one page of a model's rows.
type Changelist struct {
	Entry *ModelEntry
	Page  shared.Paginated[Record]
}

// Service handles admin operations
type Service struct {
	site   *Site
	rows   RowReader
	sales  books.SaleRepository
	today  func() time.Time
	logger *zap.Logger
}

// NewService creates a new admin service. today decides which dates count as
// "in the future".
func NewService(site *Site, rows RowReader, sales books.SaleRepository, today func() time.Time, logger *zap.Logger) *Service {
	return &Service{
		site:   site,
		rows:   rows,
		sales:  sales,
		today:  today,
		logger: logger,
	}
}

// Site returns the model registry the service serves.
func (s *Service) Site() *Site {
	return s.site
}

// Today returns the current date as the service sees it.
func (s *Service) Today() time.Time {
	return s.today()
}

// Changelist returns one page of rows of app.model.
func (s *Service) Changelist(ctx context.Context, app, model string, filter shared.Filter) (*Changelist, error) {
	entry, err := s.site.Lookup(app, model)
	if err != nil {
		return nil, err
	}

	rows, total, err := s.rows.List(ctx, entry.Model, filter)
	if err != nil {
		s.logger.Error("Failed to list rows", zap.String("model", entry.Model.Key().String()), zap.Error(err))
		return nil, err
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record{Entry: entry, Values: row}
	}
	return &Changelist{
		Entry: entry,
		Page:  shared.NewPaginated(records, total, filter.Page, filter.PageSize),
	}, nil
}

// Change returns the row of app.model with the given id.
func (s *Service) Change(ctx context.Context, app, model string, id uint) (*Record, error) {
	entry, err := s.site.Lookup(app, model)
	if err != nil {
		return nil, err
	}
	row, err := s.rows.Get(ctx, entry.Model, id)
	if err != nil {
		return nil, err
	}
	return &Record{Entry: entry, Values: row}, nil
}

// AddSale validates and stores a manually entered sale. Cash and check sales
// without a ctrlid get the next number in the physical sequence.
func (s *Service) AddSale(ctx context.Context, sale *books.Sale) error {
	if err := sale.Validate(s.today()); err != nil {
		return err
	}

	generate := sale.Ctrlid == "" && sale.PaymentMethod.IsPhysical()
	for attempt := 1; ; attempt++ {
		if generate {
			latest, found, err := s.sales.LatestPhysicalCtrlid(ctx)
			if err != nil {
				return err
			}
			if sale.Ctrlid, err = books.NextPhysicalCtrlid(latest, found); err != nil {
				return err
			}
		}

		err := s.sales.Create(ctx, sale)
		if err == nil {
			break
		}
		if !generate || !errors.Is(err, shared.ErrAlreadyExists) || attempt == maxCtrlidAttempts {
			if errors.Is(err, shared.ErrAlreadyExists) {
				return shared.NewValidationError("ctrlid", "Income transaction with this Payment method and Ctrlid already exists.", sale.Ctrlid)
			}
			return err
		}
		s.logger.Warn("Generated ctrlid was taken, retrying",
			zap.String("ctrlid", sale.Ctrlid),
			zap.Int("attempt", attempt))
	}

	s.logger.Info("Sale added",
		zap.Uint("id", sale.ID),
		zap.String("payment_method", string(sale.PaymentMethod)),
		zap.String("ctrlid", sale.Ctrlid))
	return nil
}
