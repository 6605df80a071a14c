package schema

import (
	"fmt"
	"sort"
)

// State is the full set of models at a point in the migration history.
type State struct {
	Models map[ModelKey]*Model
}

// NewState returns an empty state.
func NewState() *State {
	return &State{Models: make(map[ModelKey]*Model)}
}

// Clone returns a deep copy of the state.
func (s *State) Clone() *State {
	c := NewState()
	for k, m := range s.Models {
		c.Models[k] = m.Clone()
	}
	return c
}

// Model looks up a model by key.
func (s *State) Model(key ModelKey) (*Model, bool) {
	m, ok := s.Models[key]
	return m, ok
}

// MustModel looks up a model and fails with a descriptive error when absent.
func (s *State) MustModel(key ModelKey) (*Model, error) {
	m, ok := s.Models[key]
	if !ok {
		return nil, fmt.Errorf("model %s does not exist", key)
	}
	return m, nil
}

// Keys returns all model keys sorted by app then name.
func (s *State) Keys() []ModelKey {
	keys := make([]ModelKey, 0, len(s.Models))
	for k := range s.Models {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].App != keys[j].App {
			return keys[i].App < keys[j].App
		}
		return keys[i].Name < keys[j].Name
	})
	return keys
}

// ByTable finds the model stored in the given table.
func (s *State) ByTable(table string) (*Model, bool) {
	for _, m := range s.Models {
		if m.Table() == table {
			return m, true
		}
	}
	return nil, false
}

// Reference is a foreign key that points at a model.
type Reference struct {
	From  ModelKey
	Field string
}

// References lists the foreign keys of other models that target key.
func (s *State) References(key ModelKey) []Reference {
	var refs []Reference
	for _, k := range s.Keys() {
		if k == key {
			continue
		}
		for _, f := range s.Models[k].Fields {
			if f.ForeignKey != nil && f.ForeignKey.To == key {
				refs = append(refs, Reference{From: k, Field: f.Name})
			}
		}
	}
	return refs
}

// ResolveRelation checks that the target of a foreign key exists and records
// the table and column it points at.
func (s *State) ResolveRelation(owner *Model, f *Field) error {
	if f.ForeignKey == nil {
		return nil
	}
	target := owner
	if f.ForeignKey.To != owner.Key() {
		var ok bool
		if target, ok = s.Models[f.ForeignKey.To]; !ok {
			return fmt.Errorf("%s.%s references unknown model %s", owner.Key(), f.Name, f.ForeignKey.To)
		}
	}
	f.ForeignKey.ToTable = target.Table()
	f.ForeignKey.ToColumn = target.PrimaryKey().Column()
	return nil
}

// CheckRelations resolves every foreign key of m against the state.
func (s *State) CheckRelations(m *Model) error {
	for i := range m.Fields {
		if err := s.ResolveRelation(m, &m.Fields[i]); err != nil {
			return err
		}
	}
	return nil
}
