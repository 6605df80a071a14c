// Package migrations holds the schema history of every app. Migrations are
// authored once and never edited; later changes are new migrations.
package migrations

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

var registry []*ledger.Migration

func register(ms ...*ledger.Migration) {
	registry = append(registry, ms...)
}

// All returns every registered migration.
func All() []*ledger.Migration {
	return append([]*ledger.Migration(nil), registry...)
}

// Graph builds the dependency graph over All.
func Graph() (*ledger.Graph, error) {
	return ledger.NewGraph(All())
}

func dep(app, name string) ledger.Key {
	return ledger.Key{App: app, Name: name}
}

var (
	authUser     = schema.Key("auth", "User")
	membersModel = schema.Key("members", "Member")
)

var paymentMethods = []schema.Choice{
	{Value: "$", Label: "Cash"},
	{Value: "C", Label: "Check"},
	{Value: "S", Label: "Square"},
	{Value: "2", Label: "2Checkout"},
	{Value: "W", Label: "WePay"},
	{Value: "P", Label: "PayPal"},
}

func noteFields(parent string, to schema.ModelKey) []schema.Field {
	return []schema.Field{
		schema.Text("content", 2048).WithHelp("Anything you want to say about the item on which this note appears."),
		schema.FK("author", authUser, schema.SetNull).Nullable().WithHelp("The member who wrote this note."),
		schema.FK(parent, to, schema.Cascade),
	}
}
