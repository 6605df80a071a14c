// Package books holds the bookkeeping records the admin can create directly.
package books

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/xerocraft/backend/internal/domain/shared"
)

// PaymentMethod is how a customer paid for a sale.
type PaymentMethod string

const (
	PaidByCash      PaymentMethod = "$"
	PaidByCheck     PaymentMethod = "C"
	PaidBySquare    PaymentMethod = "S"
	PaidBy2Checkout PaymentMethod = "2"
	PaidByWePay     PaymentMethod = "W"
	PaidByPayPal    PaymentMethod = "P"
)

const (
	ctrlidWidth       = 6
	maxPaymentDigits  = 6
	paymentDecimalPos = 2
)

// IsPhysical reports whether the payment was handed over in person. Physical
// payments have no processor id, so their ctrlid is generated.
func (m PaymentMethod) IsPhysical() bool {
	return m == PaidByCash || m == PaidByCheck
}

// Valid reports whether m is one of the known methods.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaidByCash, PaidByCheck, PaidBySquare, PaidBy2Checkout, PaidByWePay, PaidByPayPal:
		return true
	}
	return false
}

// Label returns the display name of the method.
func (m PaymentMethod) Label() string {
	switch m {
	case PaidByCash:
		return "Cash"
	case PaidByCheck:
		return "Check"
	case PaidBySquare:
		return "Square"
	case PaidBy2Checkout:
		return "2Checkout"
	case PaidByWePay:
		return "WePay"
	case PaidByPayPal:
		return "PayPal"
	}
	return string(m)
}

// Sale is an income transaction.
type Sale struct {
	ID                  uint
	SaleDate            time.Time
	PayerName           string
	PayerEmail          string
	PayerAcctID         *uint
	PaymentMethod       PaymentMethod
	MethodDetail        string
	TotalPaidByCustomer decimal.Decimal
	ProcessingFee       decimal.Decimal
	Ctrlid              string
	Protected           bool
	DepositDate         *time.Time
}

// SaleRepository persists sales.
type SaleRepository interface {
	Create(ctx context.Context, sale *Sale) error
	// LatestPhysicalCtrlid returns the greatest ctrlid among cash and check
	// sales, and false when there are none.
	LatestPhysicalCtrlid(ctx context.Context) (string, bool, error)
}

// Validate checks the sale the way the add form does. today decides what
// "in the future" means.
func (s *Sale) Validate(today time.Time) error {
	if err := shared.ValidateNotFuture(s.SaleDate, today); err != nil {
		return shared.NewValidationError("sale_date", "Date cannot be in the future.", s.SaleDate)
	}
	if err := shared.ValidateDepositDate(s.SaleDate, s.DepositDate); err != nil {
		return err
	}
	if !s.PaymentMethod.Valid() {
		return shared.NewValidationError("payment_method", "Unknown payment method.", s.PaymentMethod)
	}
	if err := checkAmount("total_paid_by_customer", s.TotalPaidByCustomer); err != nil {
		return err
	}
	if err := checkAmount("processing_fee", s.ProcessingFee); err != nil {
		return err
	}
	if s.ProcessingFee.GreaterThan(s.TotalPaidByCustomer) {
		return shared.NewValidationError("processing_fee", "Fee cannot exceed the total paid.", s.ProcessingFee)
	}
	if s.Ctrlid == "" && !s.PaymentMethod.IsPhysical() {
		return shared.NewValidationError("ctrlid", "Payment processor's id is required for electronic payments.", s.Ctrlid)
	}
	return nil
}

// checkAmount enforces the numeric(6, 2) columns amounts are stored in.
func checkAmount(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return shared.NewValidationError(field, "Amount cannot be negative.", v)
	}
	if v.Exponent() < -paymentDecimalPos {
		return shared.NewValidationError(field, fmt.Sprintf("Ensure that there are no more than %d decimal places.", paymentDecimalPos), v)
	}
	whole := v.Truncate(0).String()
	if len(whole) > maxPaymentDigits-paymentDecimalPos {
		return shared.NewValidationError(field, fmt.Sprintf("Ensure that there are no more than %d digits before the decimal point.", maxPaymentDigits-paymentDecimalPos), v)
	}
	return nil
}

// NextPhysicalCtrlid returns the ctrlid following latest, zero padded to six
// digits. With no previous physical sale the sequence starts at "000000".
func NextPhysicalCtrlid(latest string, found bool) (string, error) {
	if !found {
		return strings.Repeat("0", ctrlidWidth), nil
	}
	n, err := strconv.Atoi(latest)
	if err != nil {
		return "", fmt.Errorf("ctrlid %q of a physical sale is not numeric: %w", latest, err)
	}
	return fmt.Sprintf("%0*d", ctrlidWidth, n+1), nil
}

// String describes the sale by date and whoever paid.
func (s *Sale) String() string {
	date := s.SaleDate.Format("2006-01-02")
	switch {
	case s.PayerName != "":
		return fmt.Sprintf("%s sale to %s", date, s.PayerName)
	case s.PayerAcctID != nil:
		return fmt.Sprintf("%s sale to account %d", date, *s.PayerAcctID)
	case s.PayerEmail != "":
		return fmt.Sprintf("%s sale to %s", date, s.PayerEmail)
	}
	return date + " sale"
}
