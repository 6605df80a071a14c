package persistence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"

	"github.com/xerocraft/backend/internal/domain/schema"
)

func saleModel() *schema.Model {
	return &schema.Model{
		App:  "books",
		Name: "Sale",
		Fields: []schema.Field{
			schema.Auto(),
			schema.Date("sale_date"),
			schema.Char("payer_name", 40),
			schema.FK("payer_acct", schema.Key("auth", "User"), schema.SetNull).Nullable(),
		},
	}
}

func TestValidateSortField(t *testing.T) {
	allowed := SortFields(saleModel())

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string returns default", "", "id"},
		{"field name", "sale_date", "sale_date"},
		{"relation by field name", "payer_acct", "payer_acct_id"},
		{"relation by column", "payer_acct_id", "payer_acct_id"},
		{"pk alias", "pk", "id"},
		{"unknown field returns default", "amount", "id"},
		{"sql injection attempt returns default", "id; DROP TABLE books_sale;--", "id"},
		{"case sensitive", "SALE_DATE", "id"},
		{"whitespace around valid field", "  payer_name  ", "payer_name"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateSortField(tt.input, allowed, "id"))
		})
	}
}

func TestOrderBy(t *testing.T) {
	m := saleModel()

	cols := OrderBy(m, []string{"-sale_date", "bogus", "payer_name", "sale_date"})
	assert.Equal(t, []clause.OrderByColumn{
		{Column: clause.Column{Name: "sale_date"}, Desc: true},
		{Column: clause.Column{Name: "payer_name"}},
		{Column: clause.Column{Name: "id"}},
	}, cols)

	cols = OrderBy(m, []string{"-pk"})
	assert.Equal(t, []clause.OrderByColumn{{Column: clause.Column{Name: "id"}, Desc: true}}, cols)

	cols = OrderBy(m, nil)
	assert.Equal(t, []clause.OrderByColumn{{Column: clause.Column{Name: "id"}}}, cols)
}
