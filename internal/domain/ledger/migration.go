// Package ledger models the schema version history: migrations, the
// operations they carry, and the dependency graph that orders them.
package ledger

import (
	"context"
	"fmt"

	"github.com/xerocraft/backend/internal/domain/schema"
)

// Key identifies a migration by app label and name.
type Key struct {
	App  string
	Name string
}

// String renders the key as "app.name".
func (k Key) String() string {
	return k.App + "." + k.Name
}

// Migration is one authored step in an app's history.
type Migration struct {
	App          string
	Name         string
	Dependencies []Key
	Operations   []Operation
}

// Key returns the identity of the migration.
func (m *Migration) Key() Key {
	return Key{App: m.App, Name: m.Name}
}

// Reversible reports whether every operation can be undone.
func (m *Migration) Reversible() bool {
	for _, op := range m.Operations {
		if !op.Reversible() {
			return false
		}
	}
	return true
}

// IsMerge reports whether the migration joins two branches of its own app.
func (m *Migration) IsMerge() bool {
	n := 0
	for _, d := range m.Dependencies {
		if d.App == m.App {
			n++
		}
	}
	return n > 1
}

// Apply runs every operation's state transition against s in order.
func (m *Migration) Apply(s *schema.State) error {
	for i, op := range m.Operations {
		if err := op.StateForwards(m.App, s); err != nil {
			return fmt.Errorf("%s operation %d (%s): %w", m.Key(), i+1, op.Describe(), err)
		}
	}
	return nil
}

// Operation is a single schema transformation.
//
// StateForwards mutates the in-memory state. DatabaseForwards receives the
// state before (from) and after (to) the operation. DatabaseBackwards receives
// the state with the operation applied (from) and the state it reverts to (to).
type Operation interface {
	Describe() string
	StateForwards(app string, s *schema.State) error
	DatabaseForwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error
	DatabaseBackwards(ctx context.Context, ed SchemaEditor, app string, from, to *schema.State) error
	Reversible() bool
}

// SchemaEditor renders and executes DDL for a database dialect.
//
// Methods that change a table receive the model before and after the change
// so dialects that cannot alter in place can rebuild the table.
type SchemaEditor interface {
	CreateModel(ctx context.Context, m *schema.Model) error
	DeleteModel(ctx context.Context, m *schema.Model) error
	AddField(ctx context.Context, before, after *schema.Model, f schema.Field) error
	RemoveField(ctx context.Context, before, after *schema.Model, f schema.Field) error
	AlterField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error
	RenameField(ctx context.Context, before, after *schema.Model, from, to schema.Field) error
	AlterUniqueTogether(ctx context.Context, before, after *schema.Model) error
	Execute(ctx context.Context, sql string) error
}
