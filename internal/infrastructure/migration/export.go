package migration

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

// ExportedStep is one numbered up/down pair written by Export.
type ExportedStep struct {
	Version  int
	Key      ledger.Key
	UpPath   string
	DownPath string
}

// Export writes the full plan as numbered NNNN_<app>_<name>.up.sql and
// .down.sql files that golang-migrate can apply. Step 1 creates the recorder
// table; every later step records its own ledger row.
func Export(g *ledger.Graph, d Dialect, dir string) ([]ExportedStep, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export directory: %w", err)
	}

	steps := make([]ExportedStep, 0, len(g.Keys())+1)
	first, err := writeStep(dir, 1, "ledger_recorder", recorderDDL(d), []string{`DROP TABLE IF EXISTS "ledger_migrations"`})
	if err != nil {
		return nil, err
	}
	steps = append(steps, first)

	state := schema.NewState()
	for i, k := range g.FullPlan() {
		m, _ := g.Node(k)
		up, err := renderMigration(m, state, d, false)
		if err != nil {
			return nil, fmt.Errorf("render %s: %w", k, err)
		}
		var down []string
		if m.Reversible() {
			if down, err = renderMigration(m, state, d, true); err != nil {
				return nil, fmt.Errorf("render %s backwards: %w", k, err)
			}
		} else {
			down = []string{irreversibleSQL(d, k)}
		}
		if err := m.Apply(state); err != nil {
			return nil, err
		}

		up = append(up, fmt.Sprintf(`INSERT INTO "ledger_migrations" ("app", "name", "applied_at") VALUES (%s, %s, CURRENT_TIMESTAMP)`,
			quoteString(k.App), quoteString(k.Name)))
		down = append(down, fmt.Sprintf(`DELETE FROM "ledger_migrations" WHERE "app" = %s AND "name" = %s`,
			quoteString(k.App), quoteString(k.Name)))

		step, err := writeStep(dir, i+2, k.App+"_"+k.Name, up, down)
		if err != nil {
			return nil, err
		}
		step.Key = k
		steps = append(steps, step)
	}
	return steps, nil
}

func recorderDDL(d Dialect) []string {
	id, ts := `"id" bigserial PRIMARY KEY`, "timestamp with time zone"
	if d == DialectSQLite {
		id, ts = `"id" integer PRIMARY KEY AUTOINCREMENT`, "datetime"
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS "ledger_migrations" (%s, "app" varchar(255) NOT NULL, "name" varchar(255) NOT NULL, "applied_at" %s NOT NULL)`, id, ts),
		`CREATE UNIQUE INDEX IF NOT EXISTS "ledger_migrations_app_name_uniq" ON "ledger_migrations" ("app", "name")`,
	}
}

func irreversibleSQL(d Dialect, k ledger.Key) string {
	if d == DialectPostgres {
		return fmt.Sprintf("DO $$ BEGIN RAISE EXCEPTION '%s is irreversible'; END $$", k)
	}
	return fmt.Sprintf("-- %s is irreversible", k)
}

func writeStep(dir string, version int, title string, up, down []string) (ExportedStep, error) {
	base := fmt.Sprintf("%04d_%s", version, title)
	step := ExportedStep{
		Version:  version,
		UpPath:   filepath.Join(dir, base+".up.sql"),
		DownPath: filepath.Join(dir, base+".down.sql"),
	}
	if err := os.WriteFile(step.UpPath, []byte(joinStatements(up)), 0o644); err != nil {
		return step, fmt.Errorf("failed to write %s: %w", step.UpPath, err)
	}
	if err := os.WriteFile(step.DownPath, []byte(joinStatements(down)), 0o644); err != nil {
		return step, fmt.Errorf("failed to write %s: %w", step.DownPath, err)
	}
	return step, nil
}

func joinStatements(stmts []string) string {
	var b strings.Builder
	for _, s := range stmts {
		b.WriteString(s)
		if !strings.HasPrefix(s, "--") {
			b.WriteString(";")
		}
		b.WriteString("\n")
	}
	return b.String()
}
