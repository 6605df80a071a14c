package migrations

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

func init() {
	register(
		&ledger.Migration{
			App:  "auth",
			Name: "0001_initial",
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "User",
					Fields: []schema.Field{
						schema.Char("username", 150).AsUnique(),
						schema.Char("first_name", 30).AllowBlank().WithDefault(""),
						schema.Char("last_name", 30).AllowBlank().WithDefault(""),
						schema.Email("email", 254).AllowBlank().WithDefault(""),
						schema.Boolean("is_staff").WithDefault(false),
						schema.Boolean("is_active").WithDefault(true),
						schema.DateTime("date_joined").WithDefault(schema.CurrentTimestamp),
					},
					Options: schema.Options{Ordering: []string{"username"}},
				},
			},
		},
	)
}
