package migrations

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

var (
	inventoryLocation = schema.Key("inventory", "Location")
	inventoryPermit   = schema.Key("inventory", "ParkingPermit")
)

func init() {
	register(
		&ledger.Migration{
			App:          "inventory",
			Name:         "0001_initial",
			Dependencies: []ledger.Key{dep("members", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Location",
					Fields: []schema.Field{
						schema.Float("x").Nullable().WithHelp("An x-like coordinate."),
						schema.Float("y").Nullable().WithHelp("A y-like coordinate."),
						schema.Float("z").Nullable().WithHelp("A z-like coordinate."),
						schema.Char("short_desc", 40).Nullable().WithHelp("A short description of the location."),
					},
					Options: schema.Options{Ordering: []string{"pk"}},
				},
				ledger.CreateModel{
					Name: "ParkingPermit",
					Fields: []schema.Field{
						schema.Date("created").WithDefault(schema.CurrentDate).
							WithHelp("Date/time on which the parking permit was created."),
						schema.Char("short_desc", 40).WithHelp("A short description of the item parked."),
						schema.Boolean("ok_to_move").WithDefault(true).
							WithHelp("Is it OK to carefully move the item to another location without involving owner?"),
						schema.Boolean("is_in_inventoried_space").WithDefault(true).
							WithHelp("True if the item is in our inventoried space/building(s). False if it's parked outside."),
						schema.FK("owner", membersModel, schema.Protect).
							WithHelp("The member who owns the parked item."),
					},
					Options: schema.Options{Ordering: []string{"owner", "created"}},
				},
				ledger.CreateModel{
					Name: "PermitRenewal",
					Fields: []schema.Field{
						schema.DateTime("when").WithHelp("Date on which the parking permit was renewed."),
						schema.FK("permit", inventoryPermit, schema.Cascade).Related("renewals"),
					},
					Options: schema.Options{Ordering: []string{"when"}},
				},
				ledger.CreateModel{
					Name: "PermitScan",
					Fields: []schema.Field{
						schema.DateTime("when").WithHelp("Date/time on which the parking permit was created."),
						schema.FK("permit", inventoryPermit, schema.Cascade).Related("scans"),
						schema.FK("where", inventoryLocation, schema.Protect).
							WithHelp("The location at which the parking permit was scanned."),
					},
					Options: schema.Options{Ordering: []string{"where", "when"}},
				},
			},
		},
		&ledger.Migration{
			App:  "inventory",
			Name: "0002_auto_20151223_1212",
			Dependencies: []ledger.Key{
				dep("inventory", "0001_initial"),
				dep("members", "0004_visitevent"),
			},
			Operations: []ledger.Operation{
				ledger.AlterModelOptions{Name: "ParkingPermit", Options: schema.Options{Ordering: []string{"owner", "pk", "created"}}},
				ledger.AlterModelOptions{Name: "PermitRenewal", Options: schema.Options{Ordering: []string{"permit", "when"}}},
				ledger.NewAddField("PermitScan", schema.FK("who", membersModel, schema.SetNull).Nullable().
					WithHelp("The member who scanned the permit.")),
				ledger.NewAlterField("PermitRenewal", "when", schema.Date("when").
					WithHelp("Date on which the parking permit was renewed.")),
			},
		},
		&ledger.Migration{
			App:          "inventory",
			Name:         "0003_auto_20151224_2159",
			Dependencies: []ledger.Key{dep("inventory", "0002_auto_20151223_1212")},
			Operations: []ledger.Operation{
				ledger.NewAddField("ParkingPermit", schema.FK("approving_member", membersModel, schema.SetNull).
					Nullable().Related("permits_approved").
					WithHelp("The member who approved the parking of this item.")),
				ledger.NewAlterField("ParkingPermit", "owner", schema.FK("owner", membersModel, schema.Protect).
					Related("permits_owned").WithHelp("The member who owns the parked item.")),
			},
		},
		&ledger.Migration{
			App:          "inventory",
			Name:         "0004_auto_20151224_2226",
			Dependencies: []ledger.Key{dep("inventory", "0003_auto_20151224_2159")},
			Operations: []ledger.Operation{
				ledger.AlterUniqueTogether{
					Model:          "ParkingPermit",
					UniqueTogether: [][]string{{"owner", "created", "short_desc"}},
				},
			},
		},
	)
}
