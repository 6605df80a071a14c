package books

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerocraft/backend/internal/domain/shared"
)

var today = time.Date(2016, time.May, 14, 16, 0, 0, 0, time.UTC)

func cashSale() *Sale {
	return &Sale{
		SaleDate:            time.Date(2016, time.May, 10, 0, 0, 0, 0, time.UTC),
		PayerName:           "Ada",
		PaymentMethod:       PaidByCash,
		TotalPaidByCustomer: decimal.RequireFromString("25.00"),
		ProcessingFee:       decimal.Zero,
	}
}

func fieldOf(t *testing.T, err error) string {
	t.Helper()
	var verr *shared.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	return verr.Field
}

func TestSale_Validate(t *testing.T) {
	deposit := time.Date(2016, time.May, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		edit  func(s *Sale)
		field string
	}{
		{"valid cash sale", func(s *Sale) {}, ""},
		{"sale today", func(s *Sale) { s.SaleDate = today }, ""},
		{"sale tomorrow", func(s *Sale) { s.SaleDate = today.AddDate(0, 0, 1) }, "sale_date"},
		{"deposit before sale", func(s *Sale) { s.DepositDate = &deposit }, "deposit_date"},
		{"unknown method", func(s *Sale) { s.PaymentMethod = "Z" }, "payment_method"},
		{"negative total", func(s *Sale) { s.TotalPaidByCustomer = decimal.NewFromInt(-1) }, "total_paid_by_customer"},
		{"too many places", func(s *Sale) { s.TotalPaidByCustomer = decimal.RequireFromString("1.005") }, "total_paid_by_customer"},
		{"too many digits", func(s *Sale) { s.TotalPaidByCustomer = decimal.NewFromInt(12345) }, "total_paid_by_customer"},
		{"largest amount", func(s *Sale) { s.TotalPaidByCustomer = decimal.RequireFromString("9999.99") }, ""},
		{"fee above total", func(s *Sale) { s.ProcessingFee = decimal.NewFromInt(30) }, "processing_fee"},
		{"electronic without ctrlid", func(s *Sale) { s.PaymentMethod = PaidBySquare }, "ctrlid"},
		{"electronic with ctrlid", func(s *Sale) { s.PaymentMethod = PaidBySquare; s.Ctrlid = "sq-1" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := cashSale()
			tt.edit(s)
			err := s.Validate(today)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.field, fieldOf(t, err))
		})
	}
}

func TestNextPhysicalCtrlid(t *testing.T) {
	id, err := NextPhysicalCtrlid("", false)
	require.NoError(t, err)
	assert.Equal(t, "000000", id)

	id, err = NextPhysicalCtrlid("000041", true)
	require.NoError(t, err)
	assert.Equal(t, "000042", id)

	_, err = NextPhysicalCtrlid("GEN:1", true)
	assert.Error(t, err)
}

func TestPaymentMethod(t *testing.T) {
	assert.True(t, PaidByCheck.IsPhysical())
	assert.False(t, PaidByPayPal.IsPhysical())
	assert.Equal(t, "2Checkout", PaidBy2Checkout.Label())
	assert.False(t, PaymentMethod("Z").Valid())
}

func TestSale_String(t *testing.T) {
	s := cashSale()
	assert.Equal(t, "2016-05-10 sale to Ada", s.String())

	s.PayerName = ""
	acct := uint(7)
	s.PayerAcctID = &acct
	assert.Equal(t, "2016-05-10 sale to account 7", s.String())

	s.PayerAcctID = nil
	s.PayerEmail = "ada@example.com"
	assert.Equal(t, "2016-05-10 sale to ada@example.com", s.String())

	s.PayerEmail = ""
	assert.Equal(t, "2016-05-10 sale", s.String())
}
