package migrations

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

var (
	booksAccount     = schema.Key("books", "Account")
	booksDonation    = schema.Key("books", "Donation")
	booksSale        = schema.Key("books", "Sale")
	booksClaim       = schema.Key("books", "ExpenseClaim")
	booksTransaction = schema.Key("books", "ExpenseTransaction")
	booksItemType    = schema.Key("books", "OtherItemType")
)

func init() {
	register(
		&ledger.Migration{
			App:          "books",
			Name:         "0001_initial",
			Dependencies: []ledger.Key{dep("auth", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Donation",
					Fields: []schema.Field{
						schema.Date("donation_date").WithDefault(schema.CurrentDate).
							WithHelp("The date on which the donation was made. Best guess if exact date not known."),
						schema.Char("payer_name", 40).AllowBlank().WithHelp("Name of person who made the payment."),
						schema.Email("payer_email", 40).AllowBlank().WithHelp("Email address of person who made the payment."),
					},
				},
				ledger.CreateModel{Name: "DonationNote", Fields: noteFields("donation", booksDonation)},
				ledger.CreateModel{
					Name: "MonetaryDonation",
					Fields: []schema.Field{
						schema.Decimal("amount", 6, 2).WithHelp("The amount donated."),
						schema.FK("donation", booksDonation, schema.Protect).Nullable(),
					},
				},
				ledger.CreateModel{
					Name: "PhysicalDonation",
					Fields: []schema.Field{
						schema.Decimal("value", 6, 2).WithHelp("The value of the item donated."),
						schema.Text("description", 1024).WithHelp("A description of the item donated."),
						schema.FK("donation", booksDonation, schema.Protect).Nullable(),
					},
				},
				ledger.CreateModel{
					Name: "Sale",
					Fields: []schema.Field{
						schema.Date("sale_date").WithDefault(schema.CurrentDate).
							WithHelp("The date on which the sale was made. Best guess if exact date not known."),
						schema.Char("payer_name", 40).AllowBlank().WithHelp("Name of person who made the payment."),
						schema.Email("payer_email", 40).AllowBlank().WithHelp("Email address of person who made the payment."),
						schema.Char("payment_method", 1).WithDefault("$").WithChoices(paymentMethods...).
							WithHelp("The payment method used."),
						schema.Decimal("total_paid_by_customer", 6, 2).
							WithHelp("The full amount paid by the person, including payment processing fee IF CUSTOMER PAID IT."),
						schema.Decimal("processing_fee", 6, 2).WithDefault(0).
							WithHelp("Payment processor's fee, REGARDLESS OF WHO PAID FOR IT. Zero for cash/check."),
						schema.Char("ctrlid", 40).WithHelp("Payment processor's id for this payment."),
					},
				},
				ledger.CreateModel{Name: "SaleNote", Fields: noteFields("purchase", booksSale)},
				ledger.AlterUniqueTogether{Model: "Sale", UniqueTogether: [][]string{{"payment_method", "ctrlid"}}},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0002_auto_20160218_1143",
			Dependencies: []ledger.Key{dep("books", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.RemoveField{Model: "Donation", Name: "payer_email"},
				ledger.RemoveField{Model: "Donation", Name: "payer_name"},
				ledger.AddField{Model: "Donation", Field: schema.Email("donators_email", 40).AllowBlank().WithDefault("")},
				ledger.AddField{Model: "Donation", Field: schema.Char("donators_name", 40).AllowBlank().WithDefault("")},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0003_auto_20160218_1202",
			Dependencies: []ledger.Key{dep("books", "0002_auto_20160218_1143")},
			Operations: []ledger.Operation{
				ledger.RenameField{Model: "Donation", OldName: "donators_email", NewName: "donator_email"},
				ledger.RenameField{Model: "Donation", OldName: "donators_name", NewName: "donator_name"},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0004_sale_method_detail",
			Dependencies: []ledger.Key{dep("books", "0003_auto_20160218_1202")},
			Operations: []ledger.Operation{
				ledger.AddField{
					Model: "Sale",
					Field: schema.Char("method_detail", 40).AllowBlank().WithDefault("").
						WithHelp("Optional detail specific to the payment method. Check# for check payments."),
				},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0005_auto_20160221_2216",
			Dependencies: []ledger.Key{dep("books", "0004_sale_method_detail")},
			Operations: []ledger.Operation{
				ledger.RenameField{Model: "SaleNote", OldName: "purchase", NewName: "sale"},
			},
		},
		&ledger.Migration{
			App:  "books",
			Name: "0009_auto_20160225_1442",
			Dependencies: []ledger.Key{
				dep("auth", "0001_initial"),
				dep("books", "0005_auto_20160221_2216"),
			},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Account",
					Fields: []schema.Field{
						schema.Char("name", 40).AllowBlank().WithHelp("Name of the account."),
						schema.Char("category", 1).WithChoices(
							schema.Choice{Value: "A", Label: "Asset"},
							schema.Choice{Value: "L", Label: "Liability"},
							schema.Choice{Value: "Q", Label: "Equity"},
							schema.Choice{Value: "R", Label: "Revenue"},
							schema.Choice{Value: "X", Label: "Expense"},
						),
						schema.Char("type", 1).WithChoices(
							schema.Choice{Value: "C", Label: "Credit"},
							schema.Choice{Value: "D", Label: "Debit"},
						),
						schema.Text("description", 1024).WithHelp("A discussion of the account's purpose."),
						schema.FK("manager", authUser, schema.SetNull).Nullable().
							WithHelp("The user who manages this account."),
					},
					Options: schema.Options{Ordering: []string{"name"}},
				},
				ledger.CreateModel{
					Name: "ExpenseClaim",
					Fields: []schema.Field{
						schema.Date("claim_date").WithDefault(schema.CurrentDate),
						schema.FK("claimant", authUser, schema.SetNull).Nullable(),
					},
				},
				ledger.NewAddField("Donation", schema.FK("donator_acct", authUser, schema.SetNull).Nullable()),
				ledger.NewAddField("Sale", schema.FK("payer_acct", authUser, schema.SetNull).Nullable().
					WithHelp("It's preferable, but not necessary, to refer to the customer's account.")),
				ledger.NewAddField("MonetaryDonation", schema.FK("sale", booksSale, schema.Cascade).Nullable()),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0011_sale_protected",
			Dependencies: []ledger.Key{dep("books", "0009_auto_20160225_1442")},
			Operations: []ledger.Operation{
				ledger.NewAddField("Sale", schema.Boolean("protected").WithDefault(false).
					WithHelp("Protect against further auto processing by ETL, etc. Prevents overwrites of manually enetered data.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0013_auto_20160304_2228",
			Dependencies: []ledger.Key{dep("books", "0011_sale_protected")},
			Operations: []ledger.Operation{
				ledger.NewAddField("MonetaryDonation", schema.Char("ctrlid", 40).Nullable().
					WithHelp("Payment processor's id for this donation, if any.")),
				ledger.NewAddField("MonetaryDonation", schema.Boolean("protected").WithDefault(false)),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0014_auto_20160304_2237",
			Dependencies: []ledger.Key{dep("books", "0013_auto_20160304_2228")},
			Operations: []ledger.Operation{
				ledger.RunSQL{
					Description: "generate control ids for monetary donations",
					SQL: []string{
						`UPDATE "books_monetarydonation" SET "ctrlid" = 'GEN' || CAST("id" AS TEXT) WHERE "ctrlid" IS NULL`,
					},
					ReverseSQL: []string{},
				},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0015_auto_20160304_2237",
			Dependencies: []ledger.Key{dep("books", "0014_auto_20160304_2237")},
			Operations: []ledger.Operation{
				ledger.AlterField{
					Model: "MonetaryDonation",
					Name:  "ctrlid",
					Field: schema.Char("ctrlid", 40).AsUnique().WithDefault("").
						WithHelp("Payment processor's id for this donation, if any."),
				},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0016_auto_20160314_1432",
			Dependencies: []ledger.Key{dep("books", "0015_auto_20160304_2237")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "OtherItemType",
					Fields: []schema.Field{
						schema.Char("name", 40).AsUnique().WithHelp("A short name for the item."),
						schema.Text("description", 1024).WithHelp("A description of the item."),
					},
				},
				ledger.CreateModel{
					Name: "OtherItem",
					Fields: []schema.Field{
						schema.Decimal("sale_price", 6, 2).WithHelp("The UNIT price at which this/these item(s) sold."),
						schema.Integer("qty_sold").WithDefault(1).WithHelp("The number of items sold."),
						schema.Char("ctrlid", 40).AsUnique(),
						schema.Boolean("protected").WithDefault(false),
						schema.FK("sale", booksSale, schema.Cascade),
						schema.FK("type", booksItemType, schema.Protect),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0017_auto_20160316_1250",
			Dependencies: []ledger.Key{dep("books", "0016_auto_20160314_1432")},
			Operations: []ledger.Operation{
				ledger.NewAlterField("Sale", "sale_date", schema.Date("sale_date").WithDefault(schema.CurrentDate).
					WithHelp("The date on which the sale was made. Best guess if exact date not known.")),
				ledger.NewAlterField("Donation", "donation_date", schema.Date("donation_date").WithDefault(schema.CurrentDate).
					WithHelp("The date on which the donation was made. Best guess if exact date not known.")),
				ledger.NewAlterField("ExpenseClaim", "claim_date", schema.Date("claim_date").WithDefault(schema.CurrentDate).
					WithHelp("The date on which the claim was filed. Best guess if exact date not known.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0018_auto_20160323_1309",
			Dependencies: []ledger.Key{dep("books", "0017_auto_20160316_1250")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "DonatedItem",
					Fields: []schema.Field{
						schema.Decimal("value", 6, 2).WithHelp("The value of the item donated."),
						schema.Text("description", 1024).WithHelp("A description of the item donated."),
						schema.FK("donation", booksDonation, schema.Cascade),
					},
				},
				ledger.CreateModel{
					Name: "ExpenseTransaction",
					Fields: []schema.Field{
						schema.Decimal("amount", 6, 2).WithHelp("The dollar amount for this payment."),
						schema.Char("payment_method", 1).WithDefault("$").WithChoices(
							schema.Choice{Value: "$", Label: "Cash"},
							schema.Choice{Value: "C", Label: "Check"},
						),
						schema.Char("method_detail", 40).AllowBlank().WithDefault(""),
					},
				},
				ledger.CreateModel{
					Name: "ExpenseClaimReference",
					Fields: []schema.Field{
						schema.FK("claim", booksClaim, schema.Cascade),
						schema.FK("exp", booksTransaction, schema.Cascade),
					},
				},
				ledger.RemoveField{Model: "PhysicalDonation", Name: "donation"},
				ledger.DeleteModel{Name: "PhysicalDonation"},
				ledger.RemoveField{Model: "MonetaryDonation", Name: "donation"},
				ledger.AlterModelOptions{Name: "Donation", Options: schema.Options{VerboseName: "Physical donation"}},
				ledger.AlterModelOptions{Name: "Sale", Options: schema.Options{VerboseName: "Income transaction"}},
				ledger.AddField{Model: "ExpenseClaim", Field: schema.Decimal("amount", 6, 2).WithDefault(0)},
			},
		},
		&ledger.Migration{
			App:  "books",
			Name: "0019_auto_20160323_1349",
			Dependencies: []ledger.Key{
				dep("auth", "0001_initial"),
				dep("books", "0018_auto_20160323_1309"),
			},
			Operations: []ledger.Operation{
				ledger.NewAddField("ExpenseTransaction", schema.Date("payment_date").WithDefault(schema.CurrentDate)),
				ledger.NewAddField("ExpenseTransaction", schema.FK("recipient_acct", authUser, schema.SetNull).Nullable()),
				ledger.AddField{Model: "ExpenseTransaction", Field: schema.Email("recipient_email", 40).AllowBlank().WithDefault("")},
				ledger.AddField{Model: "ExpenseTransaction", Field: schema.Char("recipient_name", 40).AllowBlank().WithDefault("")},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0022_auto_20160323_1427",
			Dependencies: []ledger.Key{dep("books", "0019_auto_20160323_1349")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "ExpenseLineItem",
					Fields: []schema.Field{
						schema.Char("description", 80).WithHelp("A brief description of this line item."),
						schema.Date("expense_date").WithHelp("The date on which the expense was incurred."),
						schema.Decimal("amount", 6, 2).WithHelp("The dollar amount for this line item."),
						schema.FK("account", booksAccount, schema.Cascade),
						schema.FK("claim", booksClaim, schema.Cascade),
						schema.FK("exp", booksTransaction, schema.Cascade),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0023_auto_20160323_1435",
			Dependencies: []ledger.Key{dep("books", "0022_auto_20160323_1427")},
			Operations: []ledger.Operation{
				ledger.NewAlterField("ExpenseLineItem", "claim", schema.FK("claim", booksClaim, schema.Cascade).Nullable()),
				ledger.NewAlterField("ExpenseLineItem", "exp", schema.FK("exp", booksTransaction, schema.Cascade).Nullable()),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0026_auto_20160420_1107",
			Dependencies: []ledger.Key{dep("books", "0023_auto_20160323_1435")},
			Operations: []ledger.Operation{
				ledger.NewAddField("Donation", schema.Boolean("send_receipt").WithDefault(true).
					WithHelp("(Re)send a receipt to the donor. Note: Will send at night.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0027_auto_20160503_1457",
			Dependencies: []ledger.Key{dep("books", "0026_auto_20160420_1107")},
			Operations: []ledger.Operation{
				ledger.NewAlterField("ExpenseLineItem", "exp",
					schema.FK("exp", booksTransaction, schema.SetNull).Nullable().
						WithHelp("The expense transaction that paid for this line item.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0027_auto_20180903_1542",
			Dependencies: []ledger.Key{dep("books", "0026_auto_20160420_1107")},
			Operations: []ledger.Operation{
				ledger.NewAddField("OtherItemType", schema.FK("cash_acct", booksAccount, schema.Protect).
					WithDefault(1).Related("otheritemtypes_cash").
					WithHelp("The cash account associated with this type.")),
				ledger.NewAddField("OtherItemType", schema.FK("revenue_acct", booksAccount, schema.Protect).
					Nullable().Related("otheritemtypes_revenue").
					WithHelp("The revenue account associated with this type.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0028_expenselineitem_receipt_num",
			Dependencies: []ledger.Key{dep("books", "0027_auto_20160503_1457")},
			Operations: []ledger.Operation{
				ledger.NewAddField("ExpenseLineItem", schema.Integer("receipt_num").Nullable().
					WithHelp("The receipt number assigned by the treasurer and written on the receipt.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0034_expenseclaimreference_portion",
			Dependencies: []ledger.Key{dep("books", "0028_expenselineitem_receipt_num")},
			Operations: []ledger.Operation{
				ledger.NewAddField("ExpenseClaimReference", schema.Decimal("portion", 6, 2).Nullable().
					WithHelp("Leave blank unless you're only paying a portion of the claim.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0036_auto_20160514_2256",
			Dependencies: []ledger.Key{dep("books", "0034_expenseclaimreference_portion")},
			Operations: []ledger.Operation{
				ledger.NewAlterField("ExpenseTransaction", "payment_method",
					schema.Char("payment_method", 1).WithDefault("$").WithChoices(
						schema.Choice{Value: "$", Label: "Cash"},
						schema.Choice{Value: "C", Label: "Check"},
						schema.Choice{Value: "X", Label: "Electronic"},
					).WithHelp("The payment method used.")),
			},
		},
		&ledger.Migration{
			App:          "books",
			Name:         "0037_sale_deposit_date",
			Dependencies: []ledger.Key{dep("books", "0036_auto_20160514_2256")},
			Operations: []ledger.Operation{
				ledger.NewAddField("Sale", schema.Date("deposit_date").Nullable().
					WithHelp("The date on which the income from this sale was (or will be) deposited.")),
			},
		},
		&ledger.Migration{
			App:  "books",
			Name: "0040_merge",
			Dependencies: []ledger.Key{
				dep("books", "0027_auto_20180903_1542"),
				dep("books", "0037_sale_deposit_date"),
			},
		},
	)
}
