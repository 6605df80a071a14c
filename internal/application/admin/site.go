package admin

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/xerocraft/backend/internal/domain/schema"
	"github.com/xerocraft/backend/internal/domain/shared"
)

// ModelEntry is a model registered with the admin site.
type ModelEntry struct {
	App               string
	Name              string
	Class             string
	VerboseName       string
	VerboseNamePlural string
	Model             *schema.Model
}

// ClassName reports the model class so verbose_name renders the model,
// not the entry.
func (e *ModelEntry) ClassName() string { return e.Class }

// AppEntry groups the registered models of one app.
type AppEntry struct {
	Label  string
	Models []*ModelEntry
}

// Site is the registry of models the admin exposes, taken from the ledger's
// final state so it always matches the database.
type Site struct {
	entries map[schema.ModelKey]*ModelEntry
	keys    []schema.ModelKey
}

// NewSite registers keys from state. With no keys every model in the state
// is registered.
func NewSite(state *schema.State, keys ...schema.ModelKey) (*Site, error) {
	if len(keys) == 0 {
		keys = state.Keys()
	}
	s := &Site{entries: make(map[schema.ModelKey]*ModelEntry, len(keys))}
	for _, key := range keys {
		m, err := state.MustModel(key)
		if err != nil {
			return nil, fmt.Errorf("register %s: %w", key, err)
		}
		if _, dup := s.entries[key]; dup {
			continue
		}
		verbose := ModelVerboseName(m.Name, m.Options.VerboseName)
		s.entries[key] = &ModelEntry{
			App:               m.App,
			Name:              key.Name,
			Class:             m.Name,
			VerboseName:       verbose,
			VerboseNamePlural: ModelVerboseNamePlural(verbose, m.Options.VerboseNamePlural),
			Model:             m,
		}
		s.keys = append(s.keys, key)
	}
	sort.Slice(s.keys, func(i, j int) bool {
		if s.keys[i].App != s.keys[j].App {
			return s.keys[i].App < s.keys[j].App
		}
		return s.keys[i].Name < s.keys[j].Name
	})
	return s, nil
}

// Lookup finds a registered model by app label and model name.
func (s *Site) Lookup(app, model string) (*ModelEntry, error) {
	e, ok := s.entries[schema.Key(app, model)]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is not registered with the admin", shared.ErrNotFound, app, model)
	}
	return e, nil
}

// Models returns every registered model sorted by app then name.
func (s *Site) Models() []*ModelEntry {
	out := make([]*ModelEntry, len(s.keys))
	for i, k := range s.keys {
		out[i] = s.entries[k]
	}
	return out
}

// Apps returns the registered models grouped by app.
func (s *Site) Apps() []AppEntry {
	var apps []AppEntry
	for _, e := range s.Models() {
		if n := len(apps); n == 0 || apps[n-1].Label != e.App {
			apps = append(apps, AppEntry{Label: e.App})
		}
		last := &apps[len(apps)-1]
		last.Models = append(last.Models, e)
	}
	return apps
}

// Record is one row of a registered model. It satisfies Object so templates
// can link to it and name it.
type Record struct {
	Entry  *ModelEntry
	Values map[string]any
}

func (r Record) AppLabel() string  { return r.Entry.App }
func (r Record) ModelName() string { return r.Entry.Name }
func (r Record) ClassName() string { return r.Entry.Class }

// GetID returns the primary key, or zero when the row has none.
func (r Record) GetID() uint {
	id, _ := toUint(r.Values[r.Entry.Model.PrimaryKey().Column()])
	return id
}

func toUint(v any) (uint, bool) {
	switch n := v.(type) {
	case int64:
		return uint(n), n >= 0
	case int32:
		return uint(n), n >= 0
	case int:
		return uint(n), n >= 0
	case uint:
		return n, true
	case uint64:
		return uint(n), true
	case uint32:
		return uint(n), true
	case []byte:
		return parseUint(string(n))
	case string:
		return parseUint(n)
	}
	return 0, false
}

func parseUint(s string) (uint, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	return uint(n), err == nil
}
