package migration

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/tests/testutil"
)

var shopOwner = schema.Key("shop", "Owner")

func shopInitial() *ledger.Migration {
	return &ledger.Migration{
		App:  "shop",
		Name: "0001_initial",
		Operations: []ledger.Operation{
			ledger.CreateModel{Name: "Owner", Fields: []schema.Field{schema.Char("name", 40)}},
			ledger.CreateModel{
				Name: "Pet",
				Fields: []schema.Field{
					schema.FK("owner", shopOwner, schema.Protect),
					schema.Char("name", 20).AsUnique(),
					schema.Date("born").Nullable(),
				},
				UniqueTogether: [][]string{{"owner", "born"}},
			},
		},
	}
}

func shopMigration(name string, ops ...ledger.Operation) *ledger.Migration {
	return &ledger.Migration{
		App:          "shop",
		Name:         name,
		Dependencies: []ledger.Key{{App: "shop", Name: "0001_initial"}},
		Operations:   ops,
	}
}

func renderAfterInitial(t *testing.T, d Dialect, m *ledger.Migration, backwards bool) []string {
	t.Helper()
	state := schema.NewState()
	require.NoError(t, shopInitial().Apply(state))
	stmts, err := renderMigration(m, state, d, backwards)
	require.NoError(t, err)
	return stmts
}

func TestPostgresEditor_CreateModel(t *testing.T) {
	stmts, err := renderMigration(shopInitial(), schema.NewState(), DialectPostgres, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE TABLE "shop_owner" ("id" serial NOT NULL PRIMARY KEY, "name" varchar(40) NOT NULL)`,
		`CREATE TABLE "shop_pet" ("id" serial NOT NULL PRIMARY KEY, "owner_id" integer NOT NULL, "name" varchar(20) NOT NULL CONSTRAINT "shop_pet_name_uniq" UNIQUE, "born" date NULL)`,
		`ALTER TABLE "shop_pet" ADD CONSTRAINT "shop_pet_owner_id_fk" FOREIGN KEY ("owner_id") REFERENCES "shop_owner" ("id") ON DELETE RESTRICT DEFERRABLE INITIALLY DEFERRED`,
		`CREATE INDEX "shop_pet_owner_id_idx" ON "shop_pet" ("owner_id")`,
		`CREATE UNIQUE INDEX "shop_pet_owner_id_born_uniq" ON "shop_pet" ("owner_id", "born")`,
	}, stmts)
}

func TestSQLiteEditor_CreateModel(t *testing.T) {
	stmts, err := renderMigration(shopInitial(), schema.NewState(), DialectSQLite, false)
	require.NoError(t, err)
	assert.Equal(t, []string{
		`CREATE TABLE "shop_owner" ("id" integer NOT NULL PRIMARY KEY AUTOINCREMENT, "name" varchar(40) NOT NULL)`,
		`CREATE TABLE "shop_pet" ("id" integer NOT NULL PRIMARY KEY AUTOINCREMENT, "owner_id" integer NOT NULL REFERENCES "shop_owner" ("id") ON DELETE RESTRICT DEFERRABLE INITIALLY DEFERRED, "name" varchar(20) NOT NULL UNIQUE, "born" date NULL)`,
		`CREATE INDEX "shop_pet_owner_id_idx" ON "shop_pet" ("owner_id")`,
		`CREATE UNIQUE INDEX "shop_pet_owner_id_born_uniq" ON "shop_pet" ("owner_id", "born")`,
	}, stmts)
}

func TestPostgresEditor_AddFieldWithOneOffDefault(t *testing.T) {
	m := shopMigration("0002_pet_vaccinated",
		ledger.AddField{Model: "Pet", Field: schema.Boolean("vaccinated").WithDefault(false)})

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" ADD COLUMN "vaccinated" boolean NOT NULL DEFAULT false`,
		`ALTER TABLE "shop_pet" ALTER COLUMN "vaccinated" DROP DEFAULT`,
	}, renderAfterInitial(t, DialectPostgres, m, false))

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" DROP COLUMN "vaccinated" CASCADE`,
	}, renderAfterInitial(t, DialectPostgres, m, true))
}

func TestSQLiteEditor_AddFieldRebuildsTable(t *testing.T) {
	m := shopMigration("0002_pet_vaccinated",
		ledger.AddField{Model: "Pet", Field: schema.Boolean("vaccinated").WithDefault(false)})

	assert.Equal(t, []string{
		`CREATE TABLE "new__shop_pet" ("id" integer NOT NULL PRIMARY KEY AUTOINCREMENT, "owner_id" integer NOT NULL REFERENCES "shop_owner" ("id") ON DELETE RESTRICT DEFERRABLE INITIALLY DEFERRED, "name" varchar(20) NOT NULL UNIQUE, "born" date NULL, "vaccinated" bool NOT NULL)`,
		`INSERT INTO "new__shop_pet" ("id", "owner_id", "name", "born", "vaccinated") SELECT "id", "owner_id", "name", "born", 0 FROM "shop_pet"`,
		`DROP TABLE "shop_pet"`,
		`ALTER TABLE "new__shop_pet" RENAME TO "shop_pet"`,
		`CREATE INDEX "shop_pet_owner_id_idx" ON "shop_pet" ("owner_id")`,
		`CREATE UNIQUE INDEX "shop_pet_owner_id_born_uniq" ON "shop_pet" ("owner_id", "born")`,
	}, renderAfterInitial(t, DialectSQLite, m, false))
}

func TestSQLiteEditor_NullableAddFieldUsesAlterTable(t *testing.T) {
	m := shopMigration("0002_pet_notes", ledger.NewAddField("Pet", schema.Text("notes", 500).Nullable()))

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" ADD COLUMN "notes" text NULL`,
	}, renderAfterInitial(t, DialectSQLite, m, false))
}

func TestPostgresEditor_RenameField(t *testing.T) {
	m := shopMigration("0002_rename", ledger.RenameField{Model: "Pet", OldName: "name", NewName: "nickname"})

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" RENAME COLUMN "name" TO "nickname"`,
		`ALTER TABLE "shop_pet" RENAME CONSTRAINT "shop_pet_name_uniq" TO "shop_pet_nickname_uniq"`,
	}, renderAfterInitial(t, DialectPostgres, m, false))
}

func TestPostgresEditor_RenameFieldInUniqueTogether(t *testing.T) {
	m := shopMigration("0002_rename", ledger.RenameField{Model: "Pet", OldName: "born", NewName: "birthday"})

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" RENAME COLUMN "born" TO "birthday"`,
		`ALTER INDEX "shop_pet_owner_id_born_uniq" RENAME TO "shop_pet_owner_id_birthday_uniq"`,
	}, renderAfterInitial(t, DialectPostgres, m, false))
}

func TestSQLiteEditor_RenameFieldCopiesData(t *testing.T) {
	m := shopMigration("0002_rename", ledger.RenameField{Model: "Pet", OldName: "name", NewName: "nickname"})

	stmts := renderAfterInitial(t, DialectSQLite, m, false)
	require.Len(t, stmts, 6)
	assert.Equal(t,
		`INSERT INTO "new__shop_pet" ("id", "owner_id", "nickname", "born") SELECT "id", "owner_id", "name", "born" FROM "shop_pet"`,
		stmts[1])
}

func TestPostgresEditor_AlterFieldToNotNull(t *testing.T) {
	m := shopMigration("0002_born_required",
		ledger.AlterField{Model: "Pet", Name: "born", Field: schema.Date("born").WithDefault(schema.CurrentDate)})

	assert.Equal(t, []string{
		`UPDATE "shop_pet" SET "born" = CURRENT_DATE WHERE "born" IS NULL`,
		`ALTER TABLE "shop_pet" ALTER COLUMN "born" SET NOT NULL`,
	}, renderAfterInitial(t, DialectPostgres, m, false))

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" ALTER COLUMN "born" DROP NOT NULL`,
	}, renderAfterInitial(t, DialectPostgres, m, true))
}

func TestPostgresEditor_AlterFieldTypeAndForeignKey(t *testing.T) {
	m := shopMigration("0002_alter",
		ledger.NewAlterField("Pet", "name", schema.Text("name", 200)),
		ledger.NewAlterField("Pet", "owner", schema.FK("owner", shopOwner, schema.Cascade)),
	)

	assert.Equal(t, []string{
		`ALTER TABLE "shop_pet" DROP CONSTRAINT "shop_pet_name_uniq"`,
		`ALTER TABLE "shop_pet" ALTER COLUMN "name" TYPE text USING "name"::text`,
		`ALTER TABLE "shop_pet" DROP CONSTRAINT "shop_pet_owner_id_fk"`,
		`ALTER TABLE "shop_pet" ADD CONSTRAINT "shop_pet_owner_id_fk" FOREIGN KEY ("owner_id") REFERENCES "shop_owner" ("id") ON DELETE CASCADE DEFERRABLE INITIALLY DEFERRED`,
	}, renderAfterInitial(t, DialectPostgres, m, false))
}

func TestPostgresEditor_HelpTextChangeIsNoop(t *testing.T) {
	m := shopMigration("0002_help",
		ledger.NewAlterField("Pet", "born", schema.Date("born").Nullable().WithHelp("Day of birth.")))

	assert.Empty(t, renderAfterInitial(t, DialectPostgres, m, false))
}

func TestEditor_AlterUniqueTogether(t *testing.T) {
	m := shopMigration("0002_unique", ledger.AlterUniqueTogether{Model: "Pet", UniqueTogether: [][]string{{"owner", "name"}}})

	want := []string{
		`DROP INDEX IF EXISTS "shop_pet_owner_id_born_uniq"`,
		`CREATE UNIQUE INDEX "shop_pet_owner_id_name_uniq" ON "shop_pet" ("owner_id", "name")`,
	}
	assert.Equal(t, want, renderAfterInitial(t, DialectPostgres, m, false))
	assert.Equal(t, want, renderAfterInitial(t, DialectSQLite, m, false))

	assert.Equal(t, []string{
		`DROP INDEX IF EXISTS "shop_pet_owner_id_name_uniq"`,
		`CREATE UNIQUE INDEX "shop_pet_owner_id_born_uniq" ON "shop_pet" ("owner_id", "born")`,
	}, renderAfterInitial(t, DialectPostgres, m, true))
}

func TestEditor_DeleteModel(t *testing.T) {
	m := shopMigration("0002_delete", ledger.DeleteModel{Name: "Pet"})
	assert.Equal(t, []string{`DROP TABLE "shop_pet" CASCADE`}, renderAfterInitial(t, DialectPostgres, m, false))
	assert.Equal(t, []string{`DROP TABLE "shop_pet"`}, renderAfterInitial(t, DialectSQLite, m, false))
}

func TestGormExecer_RunsStatementsInOrder(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectExec(`ALTER TABLE "shop_pet" ADD COLUMN "vaccinated" boolean NOT NULL DEFAULT false`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.Mock.ExpectExec(`ALTER TABLE "shop_pet" ALTER COLUMN "vaccinated" DROP DEFAULT`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	state := schema.NewState()
	require.NoError(t, shopInitial().Apply(state))
	before := state.Clone()
	op := ledger.AddField{Model: "Pet", Field: schema.Boolean("vaccinated").WithDefault(false)}
	require.NoError(t, op.StateForwards("shop", state))

	ed, err := newSchemaEditor(DialectPostgres, gormExecer{db: mockDB.DB})
	require.NoError(t, err)
	require.NoError(t, op.DatabaseForwards(context.Background(), ed, "shop", before, state))

	mockDB.ExpectationsWereMet(t)
}

func TestGormExecer_StopsAtFirstError(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.Mock.ExpectExec(`DROP TABLE "shop_pet" CASCADE`).WillReturnError(assert.AnError)

	state := schema.NewState()
	require.NoError(t, shopInitial().Apply(state))
	m, _ := state.Model(schema.Key("shop", "Pet"))

	ed, err := newSchemaEditor(DialectPostgres, gormExecer{db: mockDB.DB})
	require.NoError(t, err)
	err = ed.DeleteModel(context.Background(), m)
	require.Error(t, err)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Contains(t, err.Error(), `DROP TABLE "shop_pet" CASCADE`)

	mockDB.ExpectationsWereMet(t)
}

func TestNewSchemaEditor_UnknownDialect(t *testing.T) {
	_, err := newSchemaEditor(Dialect("oracle"), &collector{})
	assert.Error(t, err)
}
