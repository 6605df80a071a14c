package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xerocraft/backend/internal/domain/books"
)

// Account maps books_account.
type Account struct {
	LedgerModel
	Name        string `gorm:"type:varchar(40);not null"`
	Category    string `gorm:"type:varchar(1);not null"`
	Type        string `gorm:"type:varchar(1);not null"`
	Description string `gorm:"type:text;not null"`
	ManagerID   *uint
}

func (Account) TableName() string { return "books_account" }
func (Account) AppLabel() string  { return "books" }
func (Account) ModelName() string { return "account" }

// Sale maps books_sale.
type Sale struct {
	LedgerModel
	SaleDate            time.Time       `gorm:"type:date;not null"`
	PayerName           string          `gorm:"type:varchar(40);not null"`
	PayerEmail          string          `gorm:"type:varchar(40);not null"`
	PayerAcctID         *uint           `gorm:"index"`
	PaymentMethod       string          `gorm:"type:varchar(1);not null"`
	MethodDetail        string          `gorm:"type:varchar(40);not null"`
	TotalPaidByCustomer decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	ProcessingFee       decimal.Decimal `gorm:"type:numeric(6,2);not null"`
	Ctrlid              string          `gorm:"type:varchar(40);not null"`
	Protected           bool            `gorm:"not null"`
	DepositDate         *time.Time      `gorm:"type:date"`
}

func (Sale) TableName() string { return "books_sale" }
func (Sale) AppLabel() string  { return "books" }
func (Sale) ModelName() string { return "sale" }

// SaleFromDomain builds a row from a domain Sale.
func SaleFromDomain(s *books.Sale) *Sale {
	return &Sale{
		LedgerModel:         LedgerModel{ID: s.ID},
		SaleDate:            s.SaleDate,
		PayerName:           s.PayerName,
		PayerEmail:          s.PayerEmail,
		PayerAcctID:         s.PayerAcctID,
		PaymentMethod:       string(s.PaymentMethod),
		MethodDetail:        s.MethodDetail,
		TotalPaidByCustomer: s.TotalPaidByCustomer,
		ProcessingFee:       s.ProcessingFee,
		Ctrlid:              s.Ctrlid,
		Protected:           s.Protected,
		DepositDate:         s.DepositDate,
	}
}
