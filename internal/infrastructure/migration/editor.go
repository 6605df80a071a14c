package migration

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/xerocraft/backend/internal/domain/ledger"
	"github.com/xerocraft/backend/internal/domain/schema"
)

// execer runs one SQL statement.
type execer interface {
	Exec(ctx context.Context, sql string) error
}

type gormExecer struct {
	db *gorm.DB
}

func (g gormExecer) Exec(ctx context.Context, sql string) error {
	return g.db.WithContext(ctx).Exec(sql).Error
}

// collector records statements instead of running them.
type collector struct {
	statements []string
}

func (c *collector) Exec(_ context.Context, sql string) error {
	c.statements = append(c.statements, sql)
	return nil
}

func newSchemaEditor(d Dialect, exec execer) (ledger.SchemaEditor, error) {
	base := baseEditor{dialect: d, exec: exec}
	switch d {
	case DialectPostgres:
		return &postgresEditor{baseEditor: base}, nil
	case DialectSQLite:
		return &sqliteEditor{baseEditor: base}, nil
	default:
		return nil, fmt.Errorf("unsupported dialect %q", d)
	}
}

type baseEditor struct {
	dialect Dialect
	exec    execer
}

func (e *baseEditor) run(ctx context.Context, stmts ...string) error {
	for _, s := range stmts {
		if err := e.exec.Exec(ctx, s); err != nil {
			return fmt.Errorf("%s: %w", s, err)
		}
	}
	return nil
}

func (e *baseEditor) Execute(ctx context.Context, sql string) error {
	return e.run(ctx, sql)
}

// columnSQL renders one column definition. def is the DEFAULT to emit, nil for none.
func (e *baseEditor) columnSQL(table string, f schema.Field, def any, inlineFK bool) (string, error) {
	var b strings.Builder
	b.WriteString(quote(f.Column()))
	b.WriteString(" ")
	b.WriteString(e.dialect.ColumnType(f))
	if f.Null && !f.PrimaryKey {
		b.WriteString(" NULL")
	} else {
		b.WriteString(" NOT NULL")
	}
	if f.PrimaryKey {
		b.WriteString(" PRIMARY KEY")
		if f.Type == schema.AutoField && e.dialect == DialectSQLite {
			b.WriteString(" AUTOINCREMENT")
		}
	}
	if def != nil {
		lit, err := e.dialect.Literal(f, def)
		if err != nil {
			return "", fmt.Errorf("default of %s.%s: %w", table, f.Name, err)
		}
		b.WriteString(" DEFAULT ")
		b.WriteString(lit)
	}
	if f.Unique && !f.PrimaryKey {
		if e.dialect == DialectPostgres {
			b.WriteString(" CONSTRAINT " + quote(uniqueName(table, f.Column())) + " UNIQUE")
		} else {
			b.WriteString(" UNIQUE")
		}
	}
	if inlineFK && f.ForeignKey != nil {
		b.WriteString(" ")
		b.WriteString(referencesClause(f.ForeignKey))
	}
	return b.String(), nil
}

func (e *baseEditor) createIndexSQL(table string, f schema.Field) string {
	return fmt.Sprintf("CREATE INDEX %s ON %s (%s)",
		quote(indexName(table, f.Column())), quote(table), quote(f.Column()))
}

func (e *baseEditor) createUniqueTogetherSQL(m *schema.Model, names []string) string {
	cols := uniqueTogetherColumns(m, names)
	return fmt.Sprintf("CREATE UNIQUE INDEX %s ON %s (%s)",
		quote(uniqueTogetherName(m.Table(), cols)), quote(m.Table()), quoteAll(cols))
}

// indexSQL returns the indexes a freshly created table needs.
func (e *baseEditor) indexSQL(m *schema.Model) []string {
	var stmts []string
	for _, f := range m.Fields {
		if needsIndex(f) {
			stmts = append(stmts, e.createIndexSQL(m.Table(), f))
		}
	}
	for _, names := range m.UniqueTogether {
		stmts = append(stmts, e.createUniqueTogetherSQL(m, names))
	}
	return stmts
}

func dropIndexSQL(name string) string {
	return "DROP INDEX IF EXISTS " + quote(name)
}

// uniqueTogetherDiff returns the index names to drop and the field tuples to create.
func uniqueTogetherDiff(before, after *schema.Model) (drop []string, create [][]string) {
	oldNames := make(map[string]bool)
	for _, names := range before.UniqueTogether {
		oldNames[uniqueTogetherName(before.Table(), uniqueTogetherColumns(before, names))] = true
	}
	newNames := make(map[string]bool)
	for _, names := range after.UniqueTogether {
		n := uniqueTogetherName(after.Table(), uniqueTogetherColumns(after, names))
		newNames[n] = true
		if !oldNames[n] {
			create = append(create, names)
		}
	}
	for _, names := range before.UniqueTogether {
		n := uniqueTogetherName(before.Table(), uniqueTogetherColumns(before, names))
		if !newNames[n] {
			drop = append(drop, n)
		}
	}
	return drop, create
}

type postgresEditor struct {
	baseEditor
}

func (e *postgresEditor) addForeignKeySQL(table string, f schema.Field) string {
	return fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) %s",
		quote(table), quote(foreignKeyName(table, f.Column())), quote(f.Column()), referencesClause(f.ForeignKey))
}

func (e *postgresEditor) dropConstraintSQL(table, name string) string {
	return fmt.Sprintf("ALTER TABLE %s DROP CONSTRAINT %s", quote(table), quote(name))
}

func (e *postgresEditor) CreateModel(ctx context.Context, m *schema.Model) error {
	cols := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		col, err := e.columnSQL(m.Table(), f, nil, false)
		if err != nil {
			return err
		}
		cols = append(cols, col)
	}
	stmts := []string{fmt.Sprintf("CREATE TABLE %s (%s)", quote(m.Table()), strings.Join(cols, ", "))}
	for _, f := range m.Fields {
		if f.ForeignKey != nil {
			stmts = append(stmts, e.addForeignKeySQL(m.Table(), f))
		}
	}
	stmts = append(stmts, e.indexSQL(m)...)
	return e.run(ctx, stmts...)
}

func (e *postgresEditor) DeleteModel(ctx context.Context, m *schema.Model) error {
	return e.run(ctx, fmt.Sprintf("DROP TABLE %s CASCADE", quote(m.Table())))
}

// AddField backfills existing rows from the default and then drops it, so
// defaults live in the application, not the database.
func (e *postgresEditor) AddField(ctx context.Context, _, after *schema.Model, f schema.Field) error {
	table := after.Table()
	col, err := e.columnSQL(table, f, f.Default, false)
	if err != nil {
		return err
	}
	stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(table), col)}
	if f.HasDefault() {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP DEFAULT", quote(table), quote(f.Column())))
	}
	if f.ForeignKey != nil {
		stmts = append(stmts, e.addForeignKeySQL(table, f))
	}
	if needsIndex(f) {
		stmts = append(stmts, e.createIndexSQL(table, f))
	}
	return e.run(ctx, stmts...)
}

func (e *postgresEditor) RemoveField(ctx context.Context, before, _ *schema.Model, f schema.Field) error {
	return e.run(ctx, fmt.Sprintf("ALTER TABLE %s DROP COLUMN %s CASCADE", quote(before.Table()), quote(f.Column())))
}

func (e *postgresEditor) AlterField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error {
	table := after.Table()
	col := quote(to.Column())
	var stmts []string

	fkChanged := from.ForeignKey != nil && (to.ForeignKey == nil ||
		from.ForeignKey.ToTable != to.ForeignKey.ToTable || from.ForeignKey.OnDelete != to.ForeignKey.OnDelete)
	if fkChanged {
		stmts = append(stmts, e.dropConstraintSQL(table, foreignKeyName(table, from.Column())))
	}
	if from.Unique && !to.Unique {
		stmts = append(stmts, e.dropConstraintSQL(table, uniqueName(table, from.Column())))
	}
	if needsIndex(from) && !needsIndex(to) {
		stmts = append(stmts, dropIndexSQL(indexName(table, from.Column())))
	}

	if oldType, newType := e.dialect.ColumnType(from), e.dialect.ColumnType(to); oldType != newType {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s",
			quote(table), col, newType, col, newType))
	}
	if from.Null && !to.Null {
		if to.HasDefault() {
			lit, err := e.dialect.Literal(to, to.Default)
			if err != nil {
				return err
			}
			stmts = append(stmts, fmt.Sprintf("UPDATE %s SET %s = %s WHERE %s IS NULL", quote(table), col, lit, col))
		}
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s SET NOT NULL", quote(table), col))
	} else if !from.Null && to.Null {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s DROP NOT NULL", quote(table), col))
	}

	if !from.Unique && to.Unique {
		stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s ADD CONSTRAINT %s UNIQUE (%s)",
			quote(table), quote(uniqueName(table, to.Column())), col))
	}
	if !needsIndex(from) && needsIndex(to) {
		stmts = append(stmts, e.createIndexSQL(table, to))
	}
	if to.ForeignKey != nil && (fkChanged || from.ForeignKey == nil) {
		stmts = append(stmts, e.addForeignKeySQL(table, to))
	}
	return e.run(ctx, stmts...)
}

func (e *postgresEditor) RenameField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error {
	table := after.Table()
	if from.Column() == to.Column() {
		return nil
	}
	stmts := []string{fmt.Sprintf("ALTER TABLE %s RENAME COLUMN %s TO %s", quote(table), quote(from.Column()), quote(to.Column()))}
	renameConstraint := func(oldName, newName string) {
		if oldName != newName {
			stmts = append(stmts, fmt.Sprintf("ALTER TABLE %s RENAME CONSTRAINT %s TO %s", quote(table), quote(oldName), quote(newName)))
		}
	}
	renameIndex := func(oldName, newName string) {
		if oldName != newName {
			stmts = append(stmts, fmt.Sprintf("ALTER INDEX %s RENAME TO %s", quote(oldName), quote(newName)))
		}
	}
	if from.Unique {
		renameConstraint(uniqueName(table, from.Column()), uniqueName(table, to.Column()))
	}
	if from.ForeignKey != nil {
		renameConstraint(foreignKeyName(table, from.Column()), foreignKeyName(table, to.Column()))
	}
	if needsIndex(from) {
		renameIndex(indexName(table, from.Column()), indexName(table, to.Column()))
	}
	for i := range before.UniqueTogether {
		if i >= len(after.UniqueTogether) {
			break
		}
		renameIndex(
			uniqueTogetherName(table, uniqueTogetherColumns(before, before.UniqueTogether[i])),
			uniqueTogetherName(table, uniqueTogetherColumns(after, after.UniqueTogether[i])),
		)
	}
	return e.run(ctx, stmts...)
}

func (e *postgresEditor) AlterUniqueTogether(ctx context.Context, before, after *schema.Model) error {
	drop, create := uniqueTogetherDiff(before, after)
	var stmts []string
	for _, n := range drop {
		stmts = append(stmts, dropIndexSQL(n))
	}
	for _, names := range create {
		stmts = append(stmts, e.createUniqueTogetherSQL(after, names))
	}
	return e.run(ctx, stmts...)
}

// sqliteEditor changes tables that ALTER TABLE cannot handle by rebuilding
// them: create a copy with the new definition, move the rows, drop the old
// table and rename the copy.
type sqliteEditor struct {
	baseEditor
}

func (e *sqliteEditor) createTableSQL(m *schema.Model, name string) (string, error) {
	cols := make([]string, 0, len(m.Fields))
	for _, f := range m.Fields {
		col, err := e.columnSQL(m.Table(), f, f.Default, true)
		if err != nil {
			return "", err
		}
		cols = append(cols, col)
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", quote(name), strings.Join(cols, ", ")), nil
}

// rebuild recreates after's table from before's rows. exprs maps a new column
// to the expression that fills it; columns missing from both exprs and the
// old table are left to their default.
func (e *sqliteEditor) rebuild(ctx context.Context, before, after *schema.Model, exprs map[string]string) error {
	table := after.Table()
	tmp := "new__" + table
	create, err := e.createTableSQL(after, tmp)
	if err != nil {
		return err
	}
	oldCols := make(map[string]bool)
	for _, c := range before.Columns() {
		oldCols[c] = true
	}
	var targets, sources []string
	for _, f := range after.Fields {
		col := f.Column()
		if expr, ok := exprs[col]; ok {
			targets = append(targets, quote(col))
			sources = append(sources, expr)
		} else if oldCols[col] {
			targets = append(targets, quote(col))
			sources = append(sources, quote(col))
		}
	}
	stmts := []string{create}
	if len(targets) > 0 {
		stmts = append(stmts, fmt.Sprintf("INSERT INTO %s (%s) SELECT %s FROM %s",
			quote(tmp), strings.Join(targets, ", "), strings.Join(sources, ", "), quote(before.Table())))
	}
	stmts = append(stmts,
		"DROP TABLE "+quote(before.Table()),
		fmt.Sprintf("ALTER TABLE %s RENAME TO %s", quote(tmp), quote(table)),
	)
	stmts = append(stmts, e.indexSQL(after)...)
	return e.run(ctx, stmts...)
}

func (e *sqliteEditor) CreateModel(ctx context.Context, m *schema.Model) error {
	create, err := e.createTableSQL(m, m.Table())
	if err != nil {
		return err
	}
	return e.run(ctx, append([]string{create}, e.indexSQL(m)...)...)
}

func (e *sqliteEditor) DeleteModel(ctx context.Context, m *schema.Model) error {
	return e.run(ctx, "DROP TABLE "+quote(m.Table()))
}

func (e *sqliteEditor) AddField(ctx context.Context, before, after *schema.Model, f schema.Field) error {
	if f.Null && !f.HasDefault() && !f.Unique {
		col, err := e.columnSQL(after.Table(), f, nil, true)
		if err != nil {
			return err
		}
		stmts := []string{fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s", quote(after.Table()), col)}
		if needsIndex(f) {
			stmts = append(stmts, e.createIndexSQL(after.Table(), f))
		}
		return e.run(ctx, stmts...)
	}
	lit, err := e.dialect.Literal(f, f.Default)
	if err != nil {
		return err
	}
	return e.rebuild(ctx, before, after, map[string]string{f.Column(): lit})
}

func (e *sqliteEditor) RemoveField(ctx context.Context, before, after *schema.Model, _ schema.Field) error {
	return e.rebuild(ctx, before, after, nil)
}

func (e *sqliteEditor) AlterField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error {
	expr := quote(from.Column())
	if from.Type == schema.DateTimeField && to.Type == schema.DateField {
		expr = "date(" + expr + ")"
	}
	if from.Null && !to.Null {
		def := to.Default
		if def == nil {
			def = schema.ZeroValue(to.Type)
		}
		lit, err := e.dialect.Literal(to, def)
		if err != nil {
			return err
		}
		expr = "COALESCE(" + expr + ", " + lit + ")"
	}
	return e.rebuild(ctx, before, after, map[string]string{to.Column(): expr})
}

func (e *sqliteEditor) RenameField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error {
	return e.rebuild(ctx, before, after, map[string]string{to.Column(): quote(from.Column())})
}

func (e *sqliteEditor) AlterUniqueTogether(ctx context.Context, before, after *schema.Model) error {
	drop, create := uniqueTogetherDiff(before, after)
	var stmts []string
	for _, n := range drop {
		stmts = append(stmts, dropIndexSQL(n))
	}
	for _, names := range create {
		stmts = append(stmts, e.createUniqueTogetherSQL(after, names))
	}
	return e.run(ctx, stmts...)
}
