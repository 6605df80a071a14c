package migration

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hashicorp/go-multierror"
	gormschema "gorm.io/gorm/schema"

	"github.com/xerocraft/backend/internal/domain/schema"
)

// CheckModels compares gorm models against the ledger state and reports every
// table or column they disagree on.
func CheckModels(state *schema.State, models ...any) error {
	cache := &sync.Map{}
	var result *multierror.Error
	for _, model := range models {
		parsed, err := gormschema.Parse(model, cache, gormschema.NamingStrategy{})
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("parse %T: %w", model, err))
			continue
		}
		m, ok := state.ByTable(parsed.Table)
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: table %q is not created by any migration", parsed.Name, parsed.Table))
			continue
		}
		if err := compareColumns(parsed, m); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

func compareColumns(parsed *gormschema.Schema, m *schema.Model) error {
	fields := make(map[string]schema.Field, len(m.Fields))
	for _, f := range m.Fields {
		fields[f.Column()] = f
	}
	declared := make(map[string]bool, len(parsed.DBNames))

	var result *multierror.Error
	for _, name := range parsed.DBNames {
		declared[name] = true
		f, ok := fields[name]
		if !ok {
			result = multierror.Append(result, fmt.Errorf("%s: column %q has no migration", parsed.Table, name))
			continue
		}
		gf := parsed.FieldsByDBName[name]
		if gf.PrimaryKey != f.PrimaryKey {
			result = multierror.Append(result, fmt.Errorf("%s: column %q primary key mismatch", parsed.Table, name))
		}
		if gf.NotNull && f.Null {
			result = multierror.Append(result, fmt.Errorf("%s: column %q is nullable in the ledger but not null in the model", parsed.Table, name))
		}
	}

	var missing []string
	for col := range fields {
		if !declared[col] {
			missing = append(missing, col)
		}
	}
	sort.Strings(missing)
	for _, col := range missing {
		result = multierror.Append(result, fmt.Errorf("%s: column %q is missing from the model", parsed.Table, col))
	}
	return result.ErrorOrNil()
}
