package schema

import (
	"fmt"
	"strings"
)

// ModelKey identifies a model by app label and lowercase model name.
type ModelKey struct {
	App  string
	Name string
}

// Key builds a ModelKey, normalizing the model name to lower case.
func Key(app, name string) ModelKey {
	return ModelKey{App: app, Name: strings.ToLower(name)}
}

// String renders the key as "app.model".
func (k ModelKey) String() string {
	return k.App + "." + k.Name
}

// Options are model level settings consumed by the admin layer.
type Options struct {
	DBTable           string
	Ordering          []string
	VerboseName       string
	VerboseNamePlural string
}

func (o Options) clone() Options {
	c := o
	if o.Ordering != nil {
		c.Ordering = append([]string(nil), o.Ordering...)
	}
	return c
}

// Model is the state of one table.
type Model struct {
	App            string
	Name           string
	Fields         []Field
	Options        Options
	UniqueTogether [][]string
}

// Key returns the identity of the model.
func (m *Model) Key() ModelKey {
	return Key(m.App, m.Name)
}

// Table returns the database table name.
func (m *Model) Table() string {
	if m.Options.DBTable != "" {
		return m.Options.DBTable
	}
	return m.App + "_" + strings.ToLower(m.Name)
}

// Field looks up a field by name.
func (m *Model) Field(name string) (Field, bool) {
	if i := m.fieldIndex(name); i >= 0 {
		return m.Fields[i], true
	}
	return Field{}, false
}

func (m *Model) fieldIndex(name string) int {
	for i, f := range m.Fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

// PrimaryKey returns the primary key field.
func (m *Model) PrimaryKey() Field {
	for _, f := range m.Fields {
		if f.PrimaryKey {
			return f
		}
	}
	return Auto()
}

// Columns returns the column names in field order.
func (m *Model) Columns() []string {
	cols := make([]string, len(m.Fields))
	for i, f := range m.Fields {
		cols[i] = f.Column()
	}
	return cols
}

// AddField appends a field, failing on a duplicate name.
func (m *Model) AddField(f Field) error {
	if m.fieldIndex(f.Name) >= 0 {
		return fmt.Errorf("%s already has a field named %q", m.Key(), f.Name)
	}
	m.Fields = append(m.Fields, f)
	return nil
}

// ReplaceField swaps the definition of an existing field in place.
func (m *Model) ReplaceField(name string, f Field) error {
	i := m.fieldIndex(name)
	if i < 0 {
		return fmt.Errorf("%s has no field named %q", m.Key(), name)
	}
	m.Fields[i] = f
	return nil
}

// RemoveField drops a field by name.
func (m *Model) RemoveField(name string) error {
	i := m.fieldIndex(name)
	if i < 0 {
		return fmt.Errorf("%s has no field named %q", m.Key(), name)
	}
	m.Fields = append(m.Fields[:i:i], m.Fields[i+1:]...)
	return nil
}

// UsesField reports whether unique-together sets or ordering reference the field.
func (m *Model) UsesField(name string) bool {
	for _, set := range m.UniqueTogether {
		for _, n := range set {
			if n == name {
				return true
			}
		}
	}
	for _, o := range m.Options.Ordering {
		if strings.TrimPrefix(o, "-") == name {
			return true
		}
	}
	return false
}

// Validate checks field names, primary key count, unique-together and ordering.
func (m *Model) Validate() error {
	if m.App == "" || m.Name == "" {
		return fmt.Errorf("model requires an app and a name")
	}
	seen := make(map[string]bool, len(m.Fields))
	cols := make(map[string]bool, len(m.Fields))
	pks := 0
	for _, f := range m.Fields {
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%s: %w", m.Key(), err)
		}
		if seen[f.Name] {
			return fmt.Errorf("%s: duplicate field %q", m.Key(), f.Name)
		}
		if cols[f.Column()] {
			return fmt.Errorf("%s: duplicate column %q", m.Key(), f.Column())
		}
		seen[f.Name] = true
		cols[f.Column()] = true
		if f.PrimaryKey {
			pks++
		}
	}
	if pks != 1 {
		return fmt.Errorf("%s: expected exactly one primary key, found %d", m.Key(), pks)
	}
	for _, set := range m.UniqueTogether {
		if len(set) == 0 {
			return fmt.Errorf("%s: empty unique_together entry", m.Key())
		}
		for _, n := range set {
			if !seen[n] {
				return fmt.Errorf("%s: unique_together refers to unknown field %q", m.Key(), n)
			}
		}
	}
	for _, o := range m.Options.Ordering {
		n := strings.TrimPrefix(o, "-")
		if n != "pk" && !seen[n] {
			return fmt.Errorf("%s: ordering refers to unknown field %q", m.Key(), n)
		}
	}
	return nil
}

// Clone returns a deep copy of the model.
func (m *Model) Clone() *Model {
	c := &Model{
		App:     m.App,
		Name:    m.Name,
		Fields:  make([]Field, len(m.Fields)),
		Options: m.Options.clone(),
	}
	for i, f := range m.Fields {
		c.Fields[i] = f.Clone()
	}
	if m.UniqueTogether != nil {
		c.UniqueTogether = CloneUniqueTogether(m.UniqueTogether)
	}
	return c
}

// CloneUniqueTogether copies a unique-together set.
func CloneUniqueTogether(sets [][]string) [][]string {
	out := make([][]string, len(sets))
	for i, s := range sets {
		out[i] = append([]string(nil), s...)
	}
	return out
}
