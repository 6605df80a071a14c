package migrations

import (
	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

var (
	membersTag      = schema.Key("members", "Tag")
	membersPurchase = schema.Key("members", "Purchase")
	membersGroup    = schema.Key("members", "GroupMembership")
)

var membershipTypes = []schema.Choice{
	{Value: "R", Label: "Regular"},
	{Value: "W", Label: "Work-Trade"},
	{Value: "S", Label: "Scholarship"},
}

func init() {
	register(
		&ledger.Migration{
			App:          "members",
			Name:         "0001_initial",
			Dependencies: []ledger.Key{dep("auth", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Member",
					Fields: []schema.Field{
						schema.Char("membership_card_md5", 32).Nullable().
							WithHelp("MD5 checksum of the random urlsafe base64 string on the membership card."),
						schema.DateTime("membership_card_when").Nullable().
							WithHelp("Date/time on which the membership card was created."),
						schema.FK("auth_user", authUser, schema.Cascade).AsUnique().Related("member").
							WithHelp("This must point to the corresponding auth.User object."),
					},
				},
				ledger.CreateModel{
					Name: "Tag",
					Fields: []schema.Field{
						schema.Char("name", 40).AsUnique().WithHelp("A short name for the tag."),
						schema.Text("meaning", 500).WithHelp("A discussion of the tag's semantics."),
					},
					Options: schema.Options{Ordering: []string{"name"}},
				},
				ledger.CreateModel{
					Name: "MemberNote",
					Fields: []schema.Field{
						schema.Text("content", 2048).WithHelp("For staff. Anything you want to say about the member."),
						schema.FK("author", membersModel, schema.SetNull).Nullable().Related("member_notes_authored"),
						schema.FK("task", membersModel, schema.Cascade),
					},
				},
				ledger.CreateModel{
					Name: "Tagging",
					Fields: []schema.Field{
						schema.FK("tagged_member", membersModel, schema.Cascade).Related("taggings"),
						schema.FK("tag", membersTag, schema.Cascade),
						schema.Boolean("can_tag").WithDefault(false).
							WithHelp("If True, the tagged member can be a authorizing member for this tag."),
						schema.DateTime("date_tagged").WithDefault(schema.CurrentTimestamp),
						schema.FK("authorizing_member", membersModel, schema.SetNull).Nullable().Related("+"),
					},
					UniqueTogether: [][]string{{"tagged_member", "tag"}},
				},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0002_auto_20150728_1250",
			Dependencies: []ledger.Key{dep("members", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.NewAlterField("Tagging", "authorizing_member",
					schema.FK("authorizing_member", membersModel, schema.SetNull).Nullable().
						Related("authorized_taggings").
						WithHelp("The member that authorized that the member be tagged.")),
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0003_auto_20150728_2128",
			Dependencies: []ledger.Key{dep("members", "0002_auto_20150728_1250")},
			Operations: []ledger.Operation{
				ledger.RenameField{Model: "MemberNote", OldName: "task", NewName: "member"},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0004_visitevent",
			Dependencies: []ledger.Key{dep("members", "0003_auto_20150728_2128")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "VisitEvent",
					Fields: []schema.Field{
						schema.DateTime("when").WithDefault(schema.CurrentTimestamp).
							WithHelp("Date/time of visit event."),
						schema.Char("event_type", 1).WithChoices(
							schema.Choice{Value: "A", Label: "Arrival"},
							schema.Choice{Value: "P", Label: "Present"},
							schema.Choice{Value: "D", Label: "Departure"},
						).WithHelp("The type of visit event."),
						schema.FK("who", membersModel, schema.Protect).WithHelp("The member who's visiting or visited."),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0008_visitevent_method",
			Dependencies: []ledger.Key{dep("members", "0004_visitevent")},
			Operations: []ledger.Operation{
				ledger.NewAddField("VisitEvent", schema.Char("method", 1).WithDefault("U").WithChoices(
					schema.Choice{Value: "R", Label: "RFID"},
					schema.Choice{Value: "F", Label: "Front Desk"},
					schema.Choice{Value: "M", Label: "Mobile App"},
					schema.Choice{Value: "U", Label: "Unknown"},
				).WithHelp("The method used to record the visit, such as 'Front Desk' or 'RFID'.")),
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0015_auto_20160111_1113",
			Dependencies: []ledger.Key{dep("members", "0008_visitevent_method")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "PaidMembership",
					Fields: []schema.Field{
						schema.Char("membership_type", 1).WithDefault("R").WithChoices(membershipTypes...).
							WithHelp("The type of membership."),
						schema.Integer("family_count").WithDefault(0).
							WithHelp("The number of ADDITIONAL family members included in this membership. Usually zero."),
						schema.Date("start_date").WithHelp("The first day on which the membership is valid."),
						schema.Date("end_date").WithHelp("The last day on which the membership is valid."),
						schema.Char("payer_name", 40).AllowBlank(),
						schema.Email("payer_email", 40).AllowBlank(),
						schema.Char("payment_method", 1).WithDefault("$").WithChoices(paymentMethods...),
						schema.Decimal("paid_by_member", 6, 2),
						schema.Decimal("processing_fee", 6, 2),
						schema.Date("payment_date").Nullable(),
						schema.FK("member", membersModel, schema.Protect).Nullable().Related("terms"),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0016_paidmembership_ctrlid",
			Dependencies: []ledger.Key{dep("members", "0015_auto_20160111_1113")},
			Operations: []ledger.Operation{
				ledger.NewAddField("PaidMembership", schema.Char("ctrlid", 20).Nullable().
					WithHelp("Payment processor's id for this payment.")),
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0025_auto_20160215_1529",
			Dependencies: []ledger.Key{dep("members", "0016_paidmembership_ctrlid")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Purchase",
					Fields: []schema.Field{
						schema.Date("payment_date").WithDefault(schema.CurrentDate),
						schema.Char("payer_name", 40).AllowBlank(),
						schema.Email("payer_email", 40).AllowBlank(),
						schema.Char("payment_method", 1).WithDefault("$").WithChoices(paymentMethods...),
						schema.Decimal("total_paid_by_customer", 6, 2),
						schema.Decimal("processing_fee", 6, 2).WithDefault(0),
						schema.Char("ctrlid", 40),
					},
				},
				ledger.CreateModel{
					Name: "DonationLineItem",
					Fields: []schema.Field{
						schema.Decimal("value", 6, 2).WithHelp("The value of the item donated."),
						schema.Text("description", 2048).WithHelp("A description of the item donated."),
						schema.FK("purchase", membersPurchase, schema.Protect).Nullable(),
					},
				},
			},
		},
		&ledger.Migration{
			App:  "members",
			Name: "0028_auto_20160218_1014",
			Dependencies: []ledger.Key{
				dep("books", "0001_initial"),
				dep("members", "0025_auto_20160215_1529"),
			},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Membership",
					Fields: []schema.Field{
						schema.Char("membership_type", 1).WithDefault("R").WithChoices(
							append(append([]schema.Choice(nil), membershipTypes...), schema.Choice{Value: "C", Label: "Complimentary"})...,
						),
						schema.Integer("family_count").WithDefault(0),
						schema.Date("start_date"),
						schema.Date("end_date"),
						schema.Boolean("protected").WithDefault(false),
						schema.FK("member", membersModel, schema.Protect).Nullable(),
						schema.FK("purchase", booksSale, schema.Protect).Nullable(),
					},
				},
				ledger.RemoveField{Model: "DonationLineItem", Name: "purchase"},
				ledger.DeleteModel{Name: "DonationLineItem"},
				ledger.DeleteModel{Name: "Purchase"},
			},
		},
		&ledger.Migration{
			App:  "members",
			Name: "0030_groupmembership",
			Dependencies: []ledger.Key{
				dep("books", "0003_auto_20160218_1202"),
				dep("members", "0028_auto_20160218_1014"),
			},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "GroupMembership",
					Fields: []schema.Field{
						schema.Date("start_date"),
						schema.Date("end_date"),
						schema.Integer("max_members").Nullable(),
						schema.FK("group_tag", membersTag, schema.Protect),
						schema.FK("purchase", booksSale, schema.Protect).Nullable(),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0031_membership_group",
			Dependencies: []ledger.Key{dep("members", "0030_groupmembership")},
			Operations: []ledger.Operation{
				ledger.NewAddField("Membership", schema.FK("group", membersGroup, schema.Protect).Nullable()),
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0032_auto_20160219_1202",
			Dependencies: []ledger.Key{dep("members", "0031_membership_group")},
			Operations: []ledger.Operation{
				ledger.RenameField{Model: "GroupMembership", OldName: "purchase", NewName: "sale"},
				ledger.RenameField{Model: "Membership", OldName: "purchase", NewName: "sale"},
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0044_groupmembership_sale_price",
			Dependencies: []ledger.Key{dep("members", "0032_auto_20160219_1202")},
			Operations: []ledger.Operation{
				ledger.NewAddField("GroupMembership", schema.Decimal("sale_price", 6, 2).WithDefault(0).
					WithHelp("The price at which this item sold.")),
			},
		},
		&ledger.Migration{
			App:          "members",
			Name:         "0050_wifimacdetected",
			Dependencies: []ledger.Key{dep("members", "0044_groupmembership_sale_price")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "WifiMacDetected",
					Fields: []schema.Field{
						schema.DateTime("when").WithDefault(schema.CurrentTimestamp),
						schema.Char("mac", 12),
					},
				},
			},
		},
	)
}
