package migration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/internal/migrations"
	"github.com/xerocraft/backend/tests/testutil"
)

func newExecutor(t *testing.T, db *gorm.DB, all ...*ledger.Migration) *Executor {
	t.Helper()
	g, err := ledger.NewGraph(all)
	require.NoError(t, err)
	e, err := NewExecutor(db, g, zap.NewNop())
	require.NoError(t, err)
	return e
}

func ledgerExecutor(t *testing.T, db *gorm.DB) *Executor {
	t.Helper()
	g, err := migrations.Graph()
	require.NoError(t, err)
	e, err := NewExecutor(db, g, zap.NewNop())
	require.NoError(t, err)
	return e
}

func appliedCount(t *testing.T, db *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&AppliedMigration{}).Count(&n).Error)
	return n
}

func TestExecutor_MigrateFullLedgerOnSQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)
	ctx := context.Background()

	require.NoError(t, e.Migrate(ctx))

	assert.Equal(t, int64(len(e.Graph().Keys())), appliedCount(t, db))
	for _, col := range []string{"method_detail", "protected", "deposit_date", "payer_acct_id", "ctrlid"} {
		assert.True(t, db.Migrator().HasColumn("books_sale", col), "books_sale.%s", col)
	}
	assert.True(t, db.Migrator().HasColumn("tasks_class", "rsvp_period"))
	assert.True(t, db.Migrator().HasColumn("tasks_task", "should_nag"))
	assert.False(t, db.Migrator().HasColumn("tasks_task", "nag"))
	assert.False(t, db.Migrator().HasTable("books_physicaldonation"))
	assert.False(t, db.Migrator().HasTable("members_purchase"))

	pending, err := e.Pending(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestExecutor_MigrateIsIdempotent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)
	ctx := context.Background()

	require.NoError(t, e.Migrate(ctx))
	require.NoError(t, db.Exec(`INSERT INTO "books_account" ("name", "category", "type", "manager_id", "description")
		VALUES ('Cash', 'A', 'D', NULL, 'Petty cash')`).Error)

	before := appliedCount(t, db)
	require.NoError(t, e.Migrate(ctx))
	assert.Equal(t, before, appliedCount(t, db))

	var n int64
	require.NoError(t, db.Table("books_account").Count(&n).Error)
	assert.Equal(t, int64(1), n, "re-running must not touch data")
}

func TestExecutor_MigrateToTarget(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)
	ctx := context.Background()

	target := ledger.Key{App: "books", Name: "0004_sale_method_detail"}
	require.NoError(t, e.Migrate(ctx, target))

	assert.True(t, db.Migrator().HasColumn("books_sale", "method_detail"))
	assert.False(t, db.Migrator().HasColumn("books_sale", "protected"))
	assert.False(t, db.Migrator().HasTable("tasks_task"))

	steps, err := e.Plan(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, steps)
	for _, s := range steps {
		assert.NotEqual(t, target, s.Key)
	}
}

func TestExecutor_DataSurvivesRenames(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)
	ctx := context.Background()

	require.NoError(t, e.Migrate(ctx, ledger.Key{App: "books", Name: "0002_auto_20160218_1143"}))
	require.NoError(t, db.Exec(`INSERT INTO "books_donation" ("donation_date", "donators_name", "donators_email")
		VALUES ('2016-02-01', 'Ada', 'ada@example.com')`).Error)

	require.NoError(t, e.Migrate(ctx, ledger.Key{App: "books", Name: "0003_auto_20160218_1202"}))

	var name string
	require.NoError(t, db.Raw(`SELECT "donator_name" FROM "books_donation"`).Scan(&name).Error)
	assert.Equal(t, "Ada", name)
}

func TestExecutor_Unapply(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)
	ctx := context.Background()

	require.NoError(t, e.Migrate(ctx))
	require.NoError(t, e.Unapply(ctx, "tasks", "0041_class"))

	assert.True(t, db.Migrator().HasTable("tasks_class"))
	assert.False(t, db.Migrator().HasColumn("tasks_class", "rsvp_period"))

	statuses, err := e.Show(ctx)
	require.NoError(t, err)
	for _, s := range statuses {
		if s.Key == (ledger.Key{App: "tasks", Name: "0042_class_rsvp_period"}) {
			assert.False(t, s.Applied)
		} else {
			assert.True(t, s.Applied, "%s", s.Key)
		}
	}

	require.NoError(t, e.Migrate(ctx))
	assert.True(t, db.Migrator().HasColumn("tasks_class", "rsvp_period"))
}

func TestExecutor_UnapplyIrreversibleTouchesNothing(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := newExecutor(t, db,
		shopInitial(),
		shopMigration("0002_fill", ledger.RunSQL{SQL: []string{`UPDATE "shop_owner" SET "name" = upper("name")`}}),
		&ledger.Migration{
			App:          "shop",
			Name:         "0003_pet_notes",
			Dependencies: []ledger.Key{{App: "shop", Name: "0002_fill"}},
			Operations:   []ledger.Operation{ledger.NewAddField("Pet", schema.Text("notes", 200).Nullable())},
		},
	)
	ctx := context.Background()
	require.NoError(t, e.Migrate(ctx))

	err := e.Unapply(ctx, "shop", ZeroTarget)
	require.ErrorIs(t, err, ledger.ErrIrreversible)
	assert.True(t, db.Migrator().HasColumn("shop_pet", "notes"))
	assert.Equal(t, int64(3), appliedCount(t, db))

	require.NoError(t, e.Unapply(ctx, "shop", "0002_fill"))
	assert.False(t, db.Migrator().HasColumn("shop_pet", "notes"))
	assert.Equal(t, int64(2), appliedCount(t, db))
}

func TestExecutor_FailureStopsAtLastGoodMigration(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := newExecutor(t, db,
		shopInitial(),
		shopMigration("0002_broken",
			ledger.NewAddField("Pet", schema.Text("notes", 200).Nullable()),
			ledger.RunSQL{SQL: []string{`UPDATE "no_such_table" SET "x" = 1`}, ReverseSQL: []string{}},
		),
		&ledger.Migration{
			App:          "shop",
			Name:         "0003_later",
			Dependencies: []ledger.Key{{App: "shop", Name: "0002_broken"}},
			Operations:   []ledger.Operation{ledger.NewAddField("Owner", schema.Email("email", 254).Nullable())},
		},
	)
	ctx := context.Background()

	err := e.Migrate(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shop.0002_broken")

	applied, err := e.recorder.Applied(ctx)
	require.NoError(t, err)
	assert.Len(t, applied, 1)
	assert.Contains(t, applied, ledger.Key{App: "shop", Name: "0001_initial"})
	assert.False(t, db.Migrator().HasColumn("shop_pet", "notes"), "failed migration must roll back")
	assert.False(t, db.Migrator().HasColumn("shop_owner", "email"))
}

func TestExecutor_RefusesConflictingLeaves(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := newExecutor(t, db,
		shopInitial(),
		shopMigration("0002_a", ledger.NewAddField("Pet", schema.Text("a", 10).Nullable())),
		shopMigration("0002_b", ledger.NewAddField("Pet", schema.Text("b", 10).Nullable())),
	)

	err := e.Migrate(context.Background())
	require.ErrorIs(t, err, ledger.ErrConflictingLeaves)
	assert.False(t, db.Migrator().HasTable("shop_pet"))
}

func TestExecutor_RefusesInconsistentHistory(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := newExecutor(t, db,
		shopInitial(),
		shopMigration("0002_a", ledger.NewAddField("Pet", schema.Text("a", 10).Nullable())),
	)
	ctx := context.Background()
	require.NoError(t, e.recorder.EnsureSchema(ctx))
	require.NoError(t, e.recorder.RecordApplied(ctx, db, ledger.Key{App: "shop", Name: "0002_a"}))

	err := e.Migrate(ctx)
	require.ErrorIs(t, err, ledger.ErrInconsistentHistory)
}

func TestExecutor_StateMatchesApplied(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := newExecutor(t, db,
		shopInitial(),
		shopMigration("0002_a", ledger.NewAddField("Pet", schema.Text("a", 10).Nullable())),
	)
	ctx := context.Background()
	require.NoError(t, e.Migrate(ctx, ledger.Key{App: "shop", Name: "0001_initial"}))

	s, err := e.State(ctx)
	require.NoError(t, err)
	pet, ok := s.Model(schema.Key("shop", "Pet"))
	require.True(t, ok)
	_, ok = pet.Field("a")
	assert.False(t, ok)
}

func TestExecutor_SQL(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	e := ledgerExecutor(t, db)

	stmts, err := e.SQL(ledger.Key{App: "books", Name: "0037_sale_deposit_date"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{`ALTER TABLE "books_sale" ADD COLUMN "deposit_date" date NULL`}, stmts)

	_, err = e.SQL(ledger.Key{App: "books", Name: "0014_auto_20160304_2237"}, true)
	assert.NoError(t, err, "a RunSQL with an empty reverse is reversible")

	_, err = e.SQL(ledger.Key{App: "books", Name: "9999_missing"}, false)
	assert.ErrorIs(t, err, ledger.ErrNodeNotFound)
}

func TestIsLedgerError(t *testing.T) {
	assert.True(t, IsLedgerError(ledger.ErrIrreversible))
	assert.False(t, IsLedgerError(assert.AnError))
}
