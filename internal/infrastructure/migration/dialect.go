package migration

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/shopspring/decimal"

	"github.com/xerocraft/backend/internal/domain/schema"
)

// Dialect names a supported SQL dialect. Values match gorm's Dialector.Name().
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// maxIdentifierLength is the postgres limit; sqlite uses the same names.
const maxIdentifierLength = 63

// ParseDialect validates a dialect name.
func ParseDialect(name string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(name)); d {
	case DialectPostgres, DialectSQLite:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported dialect %q", name)
	}
}

func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

func quoteAll(idents []string) string {
	quoted := make([]string, len(idents))
	for i, id := range idents {
		quoted[i] = quote(id)
	}
	return strings.Join(quoted, ", ")
}

func quoteString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// constraintName builds a deterministic identifier for a constraint or index.
// Names over the identifier limit are shortened and suffixed with a hash of the full name.
func constraintName(table string, columns []string, suffix string) string {
	name := table + "_" + strings.Join(columns, "_") + "_" + suffix
	if len(name) <= maxIdentifierLength {
		return name
	}
	hash := fmt.Sprintf("%08x", uint32(xxhash.Sum64String(name)))
	keep := maxIdentifierLength - len(hash) - len(suffix) - 2
	return name[:keep] + "_" + hash + "_" + suffix
}

func uniqueName(table, column string) string { return constraintName(table, []string{column}, "uniq") }
func foreignKeyName(table, column string) string {
	return constraintName(table, []string{column}, "fk")
}
func indexName(table, column string) string { return constraintName(table, []string{column}, "idx") }

func uniqueTogetherName(table string, columns []string) string {
	return constraintName(table, columns, "uniq")
}

// ColumnType returns the column type of f.
func (d Dialect) ColumnType(f schema.Field) string {
	switch f.Type {
	case schema.AutoField:
		if d == DialectPostgres {
			return "serial"
		}
		return "integer"
	case schema.CharField, schema.EmailField:
		return fmt.Sprintf("varchar(%d)", f.MaxLength)
	case schema.TextField:
		return "text"
	case schema.IntegerField, schema.ForeignKeyField:
		return "integer"
	case schema.SmallIntegerField:
		return "smallint"
	case schema.BigIntegerField, schema.DurationField:
		return "bigint"
	case schema.DecimalField:
		if d == DialectPostgres {
			return fmt.Sprintf("numeric(%d, %d)", f.MaxDigits, f.DecimalPlaces)
		}
		return "decimal"
	case schema.FloatField:
		if d == DialectPostgres {
			return "double precision"
		}
		return "real"
	case schema.DateField:
		return "date"
	case schema.DateTimeField:
		if d == DialectPostgres {
			return "timestamp with time zone"
		}
		return "datetime"
	case schema.TimeField:
		return "time"
	case schema.BooleanField:
		if d == DialectPostgres {
			return "boolean"
		}
		return "bool"
	default:
		return "text"
	}
}

// Literal renders v as a SQL literal for a column of f's type.
func (d Dialect) Literal(f schema.Field, v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case schema.DefaultExpr:
		return string(x), nil
	case string:
		return quoteString(x), nil
	case bool:
		if d == DialectPostgres {
			return strconv.FormatBool(x), nil
		}
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return d.Literal(f, int64(x))
	case int64:
		if f.Type == schema.DecimalField {
			return decimal.NewFromInt(x).StringFixed(int32(f.DecimalPlaces)), nil
		}
		return strconv.FormatInt(x, 10), nil
	case float64:
		if f.Type == schema.DecimalField {
			return decimal.NewFromFloat(x).StringFixed(int32(f.DecimalPlaces)), nil
		}
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	case decimal.Decimal:
		return x.StringFixed(int32(f.DecimalPlaces)), nil
	case time.Duration:
		return strconv.FormatInt(x.Microseconds(), 10), nil
	case time.Time:
		switch f.Type {
		case schema.DateField:
			return quoteString(x.Format("2006-01-02")), nil
		case schema.TimeField:
			return quoteString(x.Format("15:04:05")), nil
		default:
			if d == DialectPostgres {
				return quoteString(x.Format("2006-01-02 15:04:05-07:00")), nil
			}
			return quoteString(x.UTC().Format("2006-01-02 15:04:05")), nil
		}
	default:
		return "", fmt.Errorf("cannot render %T as a literal", v)
	}
}

// onDeleteClause maps a referential action to its SQL form.
func onDeleteClause(a schema.OnDelete) string {
	switch a {
	case schema.Protect:
		return "RESTRICT"
	case schema.SetNull:
		return "SET NULL"
	case schema.DoNothing:
		return "NO ACTION"
	default:
		return "CASCADE"
	}
}

func referencesClause(fk *schema.ForeignKey) string {
	column := fk.ToColumn
	if column == "" {
		column = "id"
	}
	return fmt.Sprintf("REFERENCES %s (%s) ON DELETE %s DEFERRABLE INITIALLY DEFERRED",
		quote(fk.ToTable), quote(column), onDeleteClause(fk.OnDelete))
}

// needsIndex reports whether f gets a plain index of its own.
func needsIndex(f schema.Field) bool {
	return (f.IsRelation() || f.DBIndex) && !f.Unique && !f.PrimaryKey
}

func uniqueTogetherColumns(m *schema.Model, names []string) []string {
	cols := make([]string, 0, len(names))
	for _, n := range names {
		if f, ok := m.Field(n); ok {
			cols = append(cols, f.Column())
		} else {
			cols = append(cols, n)
		}
	}
	return cols
}
