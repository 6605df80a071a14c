package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xerocraft/backend/internal/domain/books"
	"github.com/xerocraft/backend/internal/domain/shared"
)

// DateLayout is the form and query layout of calendar dates.
const DateLayout = "2006-01-02"

// ModelResponse describes one model registered with the admin
type ModelResponse struct {
	App               string `json:"app"`
	Model             string `json:"model"`
	VerboseName       string `json:"verbose_name"`
	VerboseNamePlural string `json:"verbose_name_plural"`
	ChangelistURL     string `json:"changelist_url"`
}

// RecordResponse is one row as shown by the admin
type RecordResponse struct {
	ID          uint           `json:"id"`
	VerboseName string         `json:"verbose_name"`
	URL         string         `json:"url"`
	Values      map[string]any `json:"values"`
}

// ChangelistResponse is one page of a model's rows
type ChangelistResponse struct {
	Model   ModelResponse    `json:"model"`
	Results []RecordResponse `json:"results"`
}

// SaleForm is the add form of an income transaction. Dates and amounts
// arrive as text and are parsed by ToDomain.
type SaleForm struct {
	SaleDate            string `form:"sale_date" binding:"required,datetime=2006-01-02,notfuture"`
	PayerName           string `form:"payer_name" binding:"max=40"`
	PayerEmail          string `form:"payer_email" binding:"omitempty,email,max=40"`
	PayerAcctID         *uint  `form:"payer_acct"`
	PaymentMethod       string `form:"payment_method" binding:"required,oneof=$ C S 2 W P"`
	MethodDetail        string `form:"method_detail" binding:"max=40"`
	TotalPaidByCustomer string `form:"total_paid_by_customer" binding:"required,numeric"`
	ProcessingFee       string `form:"processing_fee" binding:"omitempty,numeric"`
	Ctrlid              string `form:"ctrlid" binding:"max=40"`
	Protected           bool   `form:"protected"`
	DepositDate         string `form:"deposit_date" binding:"omitempty,datetime=2006-01-02"`
}

// ToDomain converts the form into a sale. Dates are read as calendar days in
// loc, the zone that decides what "today" is.
func (f SaleForm) ToDomain(loc *time.Location) (*books.Sale, error) {
	saleDate, err := time.ParseInLocation(DateLayout, f.SaleDate, loc)
	if err != nil {
		return nil, shared.NewValidationError("sale_date", "Enter a valid date.", f.SaleDate)
	}
	total, err := decimal.NewFromString(f.TotalPaidByCustomer)
	if err != nil {
		return nil, shared.NewValidationError("total_paid_by_customer", "Enter a number.", f.TotalPaidByCustomer)
	}
	fee := decimal.Zero
	if f.ProcessingFee != "" {
		if fee, err = decimal.NewFromString(f.ProcessingFee); err != nil {
			return nil, shared.NewValidationError("processing_fee", "Enter a number.", f.ProcessingFee)
		}
	}

	sale := &books.Sale{
		SaleDate:            saleDate,
		PayerName:           f.PayerName,
		PayerEmail:          f.PayerEmail,
		PayerAcctID:         f.PayerAcctID,
		PaymentMethod:       books.PaymentMethod(f.PaymentMethod),
		MethodDetail:        f.MethodDetail,
		TotalPaidByCustomer: total,
		ProcessingFee:       fee,
		Ctrlid:              f.Ctrlid,
		Protected:           f.Protected,
	}
	if f.DepositDate != "" {
		d, err := time.ParseInLocation(DateLayout, f.DepositDate, loc)
		if err != nil {
			return nil, shared.NewValidationError("deposit_date", fmt.Sprintf("Enter a date as %s.", DateLayout), f.DepositDate)
		}
		sale.DepositDate = &d
	}
	return sale, nil
}
