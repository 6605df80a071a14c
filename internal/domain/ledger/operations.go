package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/xerocraft/backend/internal/domain/schema"
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidOperation, fmt.Sprintf(format, args...))
}

func lookup(s *schema.State, app, model string) (*schema.Model, error) {
	m, ok := s.Model(schema.Key(app, model))
	if !ok {
		return nil, invalid("model %s.%s does not exist", app, strings.ToLower(model))
	}
	return m, nil
}

// CreateModel adds a new table. A model without a primary key gets an "id" auto field.
type CreateModel struct {
	Name           string
	Fields         []schema.Field
	Options        schema.Options
	UniqueTogether [][]string
}

func (op CreateModel) Describe() string { return "Create model " + op.Name }
func (op CreateModel) Reversible() bool { return true }

func (op CreateModel) StateForwards(app string, s *schema.State) error {
	key := schema.Key(app, op.Name)
	if _, exists := s.Models[key]; exists {
		return invalid("model %s already exists", key)
	}
	m := &schema.Model{App: app, Name: op.Name, Options: op.Options}
	hasPK := false
	for _, f := range op.Fields {
		if f.PrimaryKey {
			hasPK = true
		}
	}
	if !hasPK {
		m.Fields = append(m.Fields, schema.Auto())
	}
	for _, f := range op.Fields {
		m.Fields = append(m.Fields, f.Clone())
	}
	if op.UniqueTogether != nil {
		m.UniqueTogether = schema.CloneUniqueTogether(op.UniqueTogether)
	}
	m = m.Clone()
	if err := m.Validate(); err != nil {
		return invalid("%v", err)
	}
	if err := s.CheckRelations(m); err != nil {
		return invalid("%v", err)
	}
	s.Models[key] = m
	return nil
}

func (op CreateModel) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, _, to *schema.State) error {
	m, err := lookup(to, app, op.Name)
	if err != nil {
		return err
	}
	return ed.CreateModel(ctx, m)
}

func (op CreateModel) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, _ *schema.State) error {
	m, err := lookup(from, app, op.Name)
	if err != nil {
		return err
	}
	return ed.DeleteModel(ctx, m)
}

// DeleteModel drops a table. It fails while other models still reference it.
type DeleteModel struct {
	Name string
}

func (op DeleteModel) Describe() string { return "Delete model " + op.Name }
func (op DeleteModel) Reversible() bool { return true }

func (op DeleteModel) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Name)
	if err != nil {
		return err
	}
	if refs := s.References(m.Key()); len(refs) > 0 {
		return invalid("cannot delete %s: referenced by %s.%s", m.Key(), refs[0].From, refs[0].Field)
	}
	delete(s.Models, m.Key())
	return nil
}

func (op DeleteModel) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, _ *schema.State) error {
	m, err := lookup(from, app, op.Name)
	if err != nil {
		return err
	}
	return ed.DeleteModel(ctx, m)
}

func (op DeleteModel) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, _, to *schema.State) error {
	m, err := lookup(to, app, op.Name)
	if err != nil {
		return err
	}
	return ed.CreateModel(ctx, m)
}

// AddField adds a column to an existing model.
//
// A non-null field must carry a default. With PreserveDefault false the
// default only backfills existing rows and is not kept in the model state.
type AddField struct {
	Model           string
	Field           schema.Field
	PreserveDefault bool
}

// NewAddField returns an AddField that keeps the field's default.
func NewAddField(model string, f schema.Field) AddField {
	return AddField{Model: model, Field: f, PreserveDefault: true}
}

func (op AddField) Describe() string {
	return fmt.Sprintf("Add field %s to %s", op.Field.Name, strings.ToLower(op.Model))
}

func (op AddField) Reversible() bool { return true }

func (op AddField) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Model)
	if err != nil {
		return err
	}
	f := op.Field.Clone()
	if f.PrimaryKey {
		return invalid("%s: cannot add a second primary key %q", m.Key(), f.Name)
	}
	if !f.Null && !f.HasDefault() {
		return invalid("%s.%s: non-nullable field added without a default", m.Key(), f.Name)
	}
	if err := f.Validate(); err != nil {
		return invalid("%s: %v", m.Key(), err)
	}
	if err := s.ResolveRelation(m, &f); err != nil {
		return invalid("%v", err)
	}
	if !op.PreserveDefault {
		f.Default = nil
	}
	if err := m.AddField(f); err != nil {
		return invalid("%v", err)
	}
	return nil
}

func (op AddField) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	before, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	after, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	f, _ := after.Field(op.Field.Name)
	f.Default = op.Field.Default
	return ed.AddField(ctx, before, after, f)
}

func (op AddField) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	withField, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	without, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	f, _ := withField.Field(op.Field.Name)
	return ed.RemoveField(ctx, withField, without, f)
}

// RemoveField drops a column. Fields used by unique-together or ordering must be released first.
type RemoveField struct {
	Model string
	Name  string
}

func (op RemoveField) Describe() string {
	return fmt.Sprintf("Remove field %s from %s", op.Name, strings.ToLower(op.Model))
}

func (op RemoveField) Reversible() bool { return true }

func (op RemoveField) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Model)
	if err != nil {
		return err
	}
	f, ok := m.Field(op.Name)
	if !ok {
		return invalid("%s has no field %q", m.Key(), op.Name)
	}
	if f.PrimaryKey {
		return invalid("%s: cannot remove the primary key", m.Key())
	}
	if m.UsesField(op.Name) {
		return invalid("%s.%s is still used by unique_together or ordering", m.Key(), op.Name)
	}
	return m.RemoveField(op.Name)
}

func (op RemoveField) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	before, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	after, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	f, _ := before.Field(op.Name)
	return ed.RemoveField(ctx, before, after, f)
}

// DatabaseBackwards restores the column. Rows get the field default, or the
// type's zero value when the field had none.
func (op RemoveField) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	without, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	withField, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	f, _ := withField.Field(op.Name)
	if !f.Null && !f.HasDefault() {
		f.Default = schema.ZeroValue(f.Type)
	}
	return ed.AddField(ctx, without, withField, f)
}

// AlterField replaces the definition of a column.
type AlterField struct {
	Model           string
	Name            string
	Field           schema.Field
	PreserveDefault bool
}

// NewAlterField returns an AlterField that keeps the field's default.
func NewAlterField(model, name string, f schema.Field) AlterField {
	return AlterField{Model: model, Name: name, Field: f, PreserveDefault: true}
}

func (op AlterField) Describe() string {
	return fmt.Sprintf("Alter field %s on %s", op.Name, strings.ToLower(op.Model))
}

func (op AlterField) Reversible() bool { return true }

func (op AlterField) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Model)
	if err != nil {
		return err
	}
	old, ok := m.Field(op.Name)
	if !ok {
		return invalid("%s has no field %q", m.Key(), op.Name)
	}
	f := op.Field.Clone()
	f.Name = op.Name
	if old.IsRelation() != f.IsRelation() {
		return invalid("%s.%s: cannot change a field between relation and non-relation", m.Key(), op.Name)
	}
	if old.PrimaryKey != f.PrimaryKey {
		return invalid("%s.%s: cannot change primary key status", m.Key(), op.Name)
	}
	if old.Null && !f.Null && !f.HasDefault() {
		return invalid("%s.%s: making a field non-nullable requires a default", m.Key(), op.Name)
	}
	if err := f.Validate(); err != nil {
		return invalid("%s: %v", m.Key(), err)
	}
	if err := s.ResolveRelation(m, &f); err != nil {
		return invalid("%v", err)
	}
	if !op.PreserveDefault {
		f.Default = nil
	}
	return m.ReplaceField(op.Name, f)
}

func (op AlterField) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	before, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	after, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	old, _ := before.Field(op.Name)
	f, _ := after.Field(op.Name)
	f.Default = op.Field.Default
	return ed.AlterField(ctx, before, after, old, f)
}

func (op AlterField) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	current, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	previous, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	cur, _ := current.Field(op.Name)
	prev, _ := previous.Field(op.Name)
	if cur.Null && !prev.Null && !prev.HasDefault() {
		prev.Default = schema.ZeroValue(prev.Type)
	}
	return ed.AlterField(ctx, current, previous, cur, prev)
}

// RenameField renames a column, keeping its data.
type RenameField struct {
	Model   string
	OldName string
	NewName string
}

func (op RenameField) Describe() string {
	return fmt.Sprintf("Rename field %s on %s to %s", op.OldName, strings.ToLower(op.Model), op.NewName)
}

func (op RenameField) Reversible() bool { return true }

func (op RenameField) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Model)
	if err != nil {
		return err
	}
	f, ok := m.Field(op.OldName)
	if !ok {
		return invalid("%s has no field %q", m.Key(), op.OldName)
	}
	if _, exists := m.Field(op.NewName); exists {
		return invalid("%s already has a field %q", m.Key(), op.NewName)
	}
	f.Name = op.NewName
	if err := f.Validate(); err != nil {
		return invalid("%s: %v", m.Key(), err)
	}
	if err := m.ReplaceField(op.OldName, f); err != nil {
		return err
	}
	for _, set := range m.UniqueTogether {
		for i, n := range set {
			if n == op.OldName {
				set[i] = op.NewName
			}
		}
	}
	for i, o := range m.Options.Ordering {
		switch o {
		case op.OldName:
			m.Options.Ordering[i] = op.NewName
		case "-" + op.OldName:
			m.Options.Ordering[i] = "-" + op.NewName
		}
	}
	return nil
}

func (op RenameField) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	before, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	after, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	old, _ := before.Field(op.OldName)
	f, _ := after.Field(op.NewName)
	return ed.RenameField(ctx, before, after, old, f)
}

func (op RenameField) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	current, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	previous, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	cur, _ := current.Field(op.NewName)
	prev, _ := previous.Field(op.OldName)
	return ed.RenameField(ctx, current, previous, cur, prev)
}

// AlterUniqueTogether replaces the set of composite unique constraints.
type AlterUniqueTogether struct {
	Model          string
	UniqueTogether [][]string
}

func (op AlterUniqueTogether) Describe() string {
	return fmt.Sprintf("Alter unique_together for %s (%d constraint(s))", strings.ToLower(op.Model), len(op.UniqueTogether))
}

func (op AlterUniqueTogether) Reversible() bool { return true }

func (op AlterUniqueTogether) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Model)
	if err != nil {
		return err
	}
	next := m.Clone()
	next.UniqueTogether = schema.CloneUniqueTogether(op.UniqueTogether)
	if err := next.Validate(); err != nil {
		return invalid("%v", err)
	}
	m.UniqueTogether = next.UniqueTogether
	return nil
}

func (op AlterUniqueTogether) DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	before, err := lookup(from, app, op.Model)
	if err != nil {
		return err
	}
	after, err := lookup(to, app, op.Model)
	if err != nil {
		return err
	}
	return ed.AlterUniqueTogether(ctx, before, after)
}

func (op AlterUniqueTogether) DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error {
	return op.DatabaseForwards(ctx, ed, app, from, to)
}

// AlterModelOptions changes ordering and verbose names. It has no database effect.
type AlterModelOptions struct {
	Name    string
	Options schema.Options
}

func (op AlterModelOptions) Describe() string { return "Change Meta options on " + op.Name }
func (op AlterModelOptions) Reversible() bool { return true }

func (op AlterModelOptions) StateForwards(app string, s *schema.State) error {
	m, err := lookup(s, app, op.Name)
	if err != nil {
		return err
	}
	if op.Options.DBTable != m.Options.DBTable {
		return invalid("%s: the table name cannot be changed through model options", m.Key())
	}
	next := m.Clone()
	next.Options.Ordering = append([]string(nil), op.Options.Ordering...)
	next.Options.VerboseName = op.Options.VerboseName
	next.Options.VerboseNamePlural = op.Options.VerboseNamePlural
	if err := next.Validate(); err != nil {
		return invalid("%v", err)
	}
	m.Options = next.Options
	return nil
}

func (op AlterModelOptions) DatabaseForwards(context.Context, SchemaEditor, string, *schema.State, *schema.State) error {
	return nil
}

func (op AlterModelOptions) DatabaseBackwards(context.Context, SchemaEditor, string, *schema.State, *schema.State) error {
	return nil
}

// RunSQL executes raw statements, typically to transform data between schema steps.
// The statements must be valid on every supported dialect. A nil ReverseSQL marks
// the operation irreversible; an empty non-nil slice reverses as a no-op.
type RunSQL struct {
	Description string
	SQL         []string
	ReverseSQL  []string
}

func (op RunSQL) Describe() string {
	if op.Description != "" {
		return "Raw SQL: " + op.Description
	}
	return "Raw SQL operation"
}

func (op RunSQL) Reversible() bool { return op.ReverseSQL != nil }

func (op RunSQL) StateForwards(string, *schema.State) error { return nil }

func (op RunSQL) DatabaseForwards(ctx context.Context, ed SchemaEditor, _ string, _, _ *schema.State) error {
	return runStatements(ctx, ed, op.SQL)
}

func (op RunSQL) DatabaseBackwards(ctx context.Context, ed SchemaEditor, _ string, _, _ *schema.State) error {
	if op.ReverseSQL == nil {
		return fmt.Errorf("%w: %s", ErrIrreversible, op.Describe())
	}
	return runStatements(ctx, ed, op.ReverseSQL)
}

func runStatements(ctx context.Context, ed SchemaEditor, stmts []string) error {
	for _, stmt := range stmts {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := ed.Execute(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
