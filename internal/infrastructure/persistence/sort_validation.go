package persistence

import (
	"strings"

	"gorm.io/gorm/clause"

	"github.com/xerocraft/backend/internal/domain/schema"
)

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]string, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if trimmed == "" {
		return defaultField
	}
	if col, ok := allowedFields[trimmed]; ok {
		return col
	}
	return defaultField
}

// SortFields maps every orderable name of m to its column. Relations are
// reachable by field name and by column, and "pk" names the primary key.
func SortFields(m *schema.Model) map[string]string {
	fields := make(map[string]string, len(m.Fields)*2+1)
	for _, f := range m.Fields {
		fields[f.Name] = f.Column()
		fields[f.Column()] = f.Column()
	}
	fields["pk"] = m.PrimaryKey().Column()
	return fields
}

// OrderBy turns model ordering entries ("name", "-sale_date") into order
// clauses. Unknown names are dropped and the primary key is appended so pages
// are stable.
func OrderBy(m *schema.Model, ordering []string) []clause.OrderByColumn {
	allowed := SortFields(m)
	pk := m.PrimaryKey().Column()

	var cols []clause.OrderByColumn
	seen := make(map[string]bool)
	for _, entry := range ordering {
		desc := strings.HasPrefix(entry, "-")
		col := ValidateSortField(strings.TrimPrefix(entry, "-"), allowed, "")
		if col == "" || seen[col] {
			continue
		}
		seen[col] = true
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: desc})
	}
	if !seen[pk] {
		cols = append(cols, clause.OrderByColumn{Column: clause.Column{Name: pk}})
	}
	return cols
}
