package migrations

import (
	"time"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

var (
	tasksTask  = schema.Key("tasks", "Task")
	tasksClaim = schema.Key("tasks", "Claim")
)

func init() {
	register(
		&ledger.Migration{
			App:          "tasks",
			Name:         "0001_initial",
			Dependencies: []ledger.Key{dep("members", "0001_initial")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Task",
					Fields: []schema.Field{
						schema.Char("short_desc", 40).WithHelp("A short description of the task."),
						schema.Date("creation_date").WithDefault(schema.CurrentDate).
							WithHelp("The date on which this task was created in the database."),
						schema.Date("scheduled_date").Nullable().
							WithHelp("If appropriate, set a date on which the task must be performed."),
						schema.Date("deadline").Nullable().
							WithHelp("If appropriate, specify a deadline by which the task must be completed."),
						schema.Boolean("work_done").WithDefault(false).
							WithHelp("The person who did the work sets this to true when the work is completely done."),
						schema.Boolean("nag").WithDefault(false).
							WithHelp("If true, people will be encouraged to work on the task."),
						schema.FK("reviewer", membersModel, schema.SetNull).Nullable().Related("tasks_to_review").
							WithHelp("If required, a member who will review the work once its completed."),
						schema.Char("status", 1).WithDefault("A").WithChoices(
							schema.Choice{Value: "A", Label: "Active"},
							schema.Choice{Value: "R", Label: "Reviewable"},
							schema.Choice{Value: "D", Label: "Done"},
							schema.Choice{Value: "C", Label: "Canceled"},
						),
					},
				},
				ledger.CreateModel{
					Name: "TaskNote",
					Fields: []schema.Field{
						schema.FK("author", membersModel, schema.SetNull).Nullable().Related("task_notes_authored").
							WithHelp("The member who wrote this note."),
						schema.Text("content", 2048).WithHelp("Anything you want to say about the task."),
						schema.FK("task", tasksTask, schema.Cascade).Related("notes"),
						schema.Char("status", 1).WithDefault("I").WithChoices(
							schema.Choice{Value: "C", Label: "Critical"},
							schema.Choice{Value: "R", Label: "Resolved"},
							schema.Choice{Value: "I", Label: "Informational"},
						),
					},
				},
			},
		},
		&ledger.Migration{
			App:  "tasks",
			Name: "0006_auto_20150830_2007",
			Dependencies: []ledger.Key{
				dep("members", "0004_visitevent"),
				dep("tasks", "0001_initial"),
			},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Nag",
					Fields: []schema.Field{
						schema.DateTime("when").WithDefault(schema.CurrentTimestamp).
							WithHelp("The date and time when member was asked to work the task."),
						schema.FK("who", membersModel, schema.SetNull).Nullable().
							WithHelp("The member who was nagged."),
						schema.Char("auth_token_md5", 32).WithDefault("").
							WithHelp("MD5 checksum of the random urlsafe base64 string used in the nagging email's URLs."),
					},
				},
				ledger.RenameField{Model: "Task", OldName: "nag", NewName: "should_nag"},
			},
		},
		&ledger.Migration{
			App:          "tasks",
			Name:         "0017_auto_20150615_2305",
			Dependencies: []ledger.Key{dep("tasks", "0006_auto_20150830_2007")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Claim",
					Fields: []schema.Field{
						schema.FK("claimed_task", tasksTask, schema.Cascade).WithHelp("The task against which the claim to work is made."),
						schema.FK("claiming_member", membersModel, schema.Cascade).WithHelp("The member claiming the task."),
						schema.Date("stake_date").WithDefault(schema.CurrentDate).
							WithHelp("The date on which the member staked this claim."),
						schema.Time("claimed_start_time").Nullable().
							WithHelp("If the task specifies a start time and duration, this must fall within that time span."),
						schema.Duration("claimed_duration").
							WithHelp("The amount of work the member plans to do on the task."),
						schema.Date("date_verified").Nullable(),
						schema.Char("status", 1).WithChoices(
							schema.Choice{Value: "C", Label: "Current"},
							schema.Choice{Value: "X", Label: "Expired"},
							schema.Choice{Value: "Q", Label: "Queued"},
							schema.Choice{Value: "A", Label: "Abandoned"},
							schema.Choice{Value: "W", Label: "Working"},
							schema.Choice{Value: "D", Label: "Done"},
							schema.Choice{Value: "U", Label: "Uninterested"},
						),
					},
					UniqueTogether: [][]string{{"claiming_member", "claimed_task"}},
				},
				ledger.CreateModel{
					Name: "Work",
					Fields: []schema.Field{
						schema.FK("claim", tasksClaim, schema.Cascade).WithHelp("The claim against which the work is being reported."),
						schema.Date("work_date").WithHelp("The date on which the work was done."),
						schema.Time("work_start_time").Nullable().WithHelp("The time at which work on the task began."),
						schema.Duration("work_duration").Nullable().WithHelp("The amount of time the member spent working."),
						schema.FK("witness", membersModel, schema.SetNull).Nullable().Related("works_witnessed").
							WithHelp("A director or officer that witnessed the work."),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "tasks",
			Name:         "0028_tasknote_when_written",
			Dependencies: []ledger.Key{dep("tasks", "0017_auto_20150615_2305")},
			Operations: []ledger.Operation{
				ledger.AddField{
					Model: "TaskNote",
					Field: schema.DateTime("when_written").WithDefault(schema.CurrentTimestamp).
						WithHelp("The date and time when the note was written."),
				},
			},
		},
		&ledger.Migration{
			App:  "tasks",
			Name: "0029_worker",
			Dependencies: []ledger.Key{
				dep("members", "0008_visitevent_method"),
				dep("tasks", "0028_tasknote_when_written"),
			},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Worker",
					Fields: []schema.Field{
						schema.FK("member", membersModel, schema.Cascade).AsUnique().Related("worker").
							WithHelp("This must point to the corresponding member."),
						schema.Char("calendar_token", 32).Nullable().
							WithHelp("Random token used to authenticate calendar requests."),
						schema.Duration("last_work_mtd_reported").WithDefault(time.Duration(0)).
							WithHelp("The most recent work MTD total reported to the worker."),
						schema.Boolean("should_include_alarms").WithDefault(false).
							WithHelp("Controls whether or not a worker's calendar includes alarms."),
						schema.Boolean("should_nag").WithDefault(false).
							WithHelp("If true, the worker will be encouraged to work on tasks."),
						schema.Boolean("should_report_work_mtd").WithDefault(false).
							WithHelp("Controls whether reports should be sent to worker when work MTD changes."),
					},
				},
			},
		},
		&ledger.Migration{
			App:          "tasks",
			Name:         "0041_class",
			Dependencies: []ledger.Key{dep("tasks", "0029_worker")},
			Operations: []ledger.Operation{
				ledger.CreateModel{
					Name: "Class",
					Fields: []schema.Field{
						schema.Char("title", 80).WithHelp("The title of the class."),
						schema.Text("description", 2048).WithHelp("A description of the class."),
						schema.DateTime("starts").WithHelp("The date and time the class begins."),
						schema.Integer("max_students").Nullable().WithHelp("Leave blank if there is no limit."),
						schema.FK("teacher", membersModel, schema.Protect).Related("classes_taught"),
					},
					Options: schema.Options{VerboseNamePlural: "Classes", Ordering: []string{"-starts"}},
				},
			},
		},
		&ledger.Migration{
			App:          "tasks",
			Name:         "0042_class_rsvp_period",
			Dependencies: []ledger.Key{dep("tasks", "0041_class")},
			Operations: []ledger.Operation{
				ledger.NewAddField("Class", schema.Integer("rsvp_period").WithDefault(3).
					WithHelp("Number of days before the class that RSVPs close.")),
			},
		},
	)
}
