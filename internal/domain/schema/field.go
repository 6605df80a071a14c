package schema

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FieldType identifies the storage class of a column.
type FieldType string

const (
	AutoField         FieldType = "auto"
	CharField         FieldType = "char"
	TextField         FieldType = "text"
	EmailField        FieldType = "email"
	IntegerField      FieldType = "integer"
	SmallIntegerField FieldType = "small_integer"
	BigIntegerField   FieldType = "big_integer"
	DecimalField      FieldType = "decimal"
	FloatField        FieldType = "float"
	DateField         FieldType = "date"
	DateTimeField     FieldType = "datetime"
	TimeField         FieldType = "time"
	DurationField     FieldType = "duration"
	BooleanField      FieldType = "boolean"
	ForeignKeyField   FieldType = "foreign_key"
)

// OnDelete is the referential action of a foreign key.
type OnDelete string

const (
	Cascade   OnDelete = "CASCADE"
	Protect   OnDelete = "PROTECT"
	SetNull   OnDelete = "SET_NULL"
	DoNothing OnDelete = "DO_NOTHING"
)

// DefaultExpr is a default evaluated by the database at write time.
type DefaultExpr string

const (
	CurrentDate      DefaultExpr = "CURRENT_DATE"
	CurrentTimestamp DefaultExpr = "CURRENT_TIMESTAMP"
)

// Choice is one allowed value of a field and its display label.
type Choice struct {
	Value string
	Label string
}

// ForeignKey describes the target of a relation field. ToTable and ToColumn
// are filled in when the field enters a State.
type ForeignKey struct {
	To          ModelKey
	OnDelete    OnDelete
	RelatedName string
	ToTable     string
	ToColumn    string
}

// Field is a single column of a model.
//
// Default holds one of: string, bool, int, int64, float64, decimal.Decimal,
// time.Duration, time.Time or DefaultExpr. A nil Default means no default.
type Field struct {
	Name          string
	Type          FieldType
	MaxLength     int
	MaxDigits     int
	DecimalPlaces int
	Null          bool
	Blank         bool
	Default       any
	PrimaryKey    bool
	Unique        bool
	DBIndex       bool
	HelpText      string
	Choices       []Choice
	ForeignKey    *ForeignKey
}

// Column returns the database column name of the field.
func (f Field) Column() string {
	if f.Type == ForeignKeyField {
		return f.Name + "_id"
	}
	return f.Name
}

// HasDefault reports whether the field carries a default value.
func (f Field) HasDefault() bool {
	return f.Default != nil
}

// IsRelation reports whether the field references another model.
func (f Field) IsRelation() bool {
	return f.Type == ForeignKeyField
}

// Clone returns a deep copy of the field.
func (f Field) Clone() Field {
	c := f
	if f.Choices != nil {
		c.Choices = append([]Choice(nil), f.Choices...)
	}
	if f.ForeignKey != nil {
		fk := *f.ForeignKey
		c.ForeignKey = &fk
	}
	return c
}

// Validate checks that the field definition is internally consistent.
func (f Field) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("field has no name")
	}
	if strings.ContainsAny(f.Name, " \"'`;") {
		return fmt.Errorf("field %q: invalid name", f.Name)
	}
	switch f.Type {
	case CharField, EmailField:
		if f.MaxLength <= 0 {
			return fmt.Errorf("field %q: max length must be positive", f.Name)
		}
	case DecimalField:
		if f.MaxDigits <= 0 || f.DecimalPlaces < 0 || f.DecimalPlaces > f.MaxDigits {
			return fmt.Errorf("field %q: invalid decimal precision %d,%d", f.Name, f.MaxDigits, f.DecimalPlaces)
		}
	case ForeignKeyField:
		if f.ForeignKey == nil || f.ForeignKey.To.Name == "" {
			return fmt.Errorf("field %q: foreign key has no target", f.Name)
		}
		if f.ForeignKey.OnDelete == SetNull && !f.Null {
			return fmt.Errorf("field %q: SET_NULL requires a nullable field", f.Name)
		}
	case AutoField:
		if !f.PrimaryKey {
			return fmt.Errorf("field %q: auto fields must be primary keys", f.Name)
		}
	case TextField, IntegerField, SmallIntegerField, BigIntegerField, FloatField,
		DateField, DateTimeField, TimeField, DurationField, BooleanField:
	default:
		return fmt.Errorf("field %q: unknown type %q", f.Name, f.Type)
	}
	if f.Type != ForeignKeyField && f.ForeignKey != nil {
		return fmt.Errorf("field %q: only foreign keys may reference a model", f.Name)
	}
	if f.HasDefault() {
		if err := checkDefault(f); err != nil {
			return fmt.Errorf("field %q: %w", f.Name, err)
		}
	}
	return nil
}

func checkDefault(f Field) error {
	switch v := f.Default.(type) {
	case DefaultExpr:
		if v == CurrentDate && f.Type != DateField {
			return fmt.Errorf("%s applies to date fields only", v)
		}
		if v == CurrentTimestamp && f.Type != DateTimeField {
			return fmt.Errorf("%s applies to datetime fields only", v)
		}
	case string:
		if f.Type != CharField && f.Type != TextField && f.Type != EmailField {
			return fmt.Errorf("string default on %s field", f.Type)
		}
		if f.MaxLength > 0 && len(v) > f.MaxLength {
			return fmt.Errorf("default %q exceeds max length %d", v, f.MaxLength)
		}
	case bool:
		if f.Type != BooleanField {
			return fmt.Errorf("bool default on %s field", f.Type)
		}
	case int, int64:
		switch f.Type {
		case IntegerField, SmallIntegerField, BigIntegerField, ForeignKeyField, DecimalField, FloatField:
		default:
			return fmt.Errorf("integer default on %s field", f.Type)
		}
	case float64:
		if f.Type != FloatField && f.Type != DecimalField {
			return fmt.Errorf("float default on %s field", f.Type)
		}
	case decimal.Decimal:
		if f.Type != DecimalField {
			return fmt.Errorf("decimal default on %s field", f.Type)
		}
	case time.Duration:
		if f.Type != DurationField {
			return fmt.Errorf("duration default on %s field", f.Type)
		}
	case time.Time:
		switch f.Type {
		case DateField, DateTimeField, TimeField:
		default:
			return fmt.Errorf("time default on %s field", f.Type)
		}
	default:
		return fmt.Errorf("unsupported default type %T", f.Default)
	}
	return nil
}

// Auto returns the conventional integer primary key named id.
func Auto() Field {
	return Field{Name: "id", Type: AutoField, PrimaryKey: true}
}

// Char returns a varchar field.
func Char(name string, maxLength int) Field {
	return Field{Name: name, Type: CharField, MaxLength: maxLength}
}

// Email returns a varchar field that holds an email address.
func Email(name string, maxLength int) Field {
	return Field{Name: name, Type: EmailField, MaxLength: maxLength}
}

// Text returns an unbounded text field. maxLength is enforced by forms only.
func Text(name string, maxLength int) Field {
	return Field{Name: name, Type: TextField, MaxLength: maxLength}
}

func Integer(name string) Field      { return Field{Name: name, Type: IntegerField} }
func SmallInteger(name string) Field { return Field{Name: name, Type: SmallIntegerField} }
func BigInteger(name string) Field   { return Field{Name: name, Type: BigIntegerField} }
func Float(name string) Field        { return Field{Name: name, Type: FloatField} }
func Date(name string) Field         { return Field{Name: name, Type: DateField} }
func DateTime(name string) Field     { return Field{Name: name, Type: DateTimeField} }
func Time(name string) Field         { return Field{Name: name, Type: TimeField} }
func Duration(name string) Field     { return Field{Name: name, Type: DurationField} }
func Boolean(name string) Field      { return Field{Name: name, Type: BooleanField} }

// Decimal returns a fixed precision numeric field.
func Decimal(name string, maxDigits, decimalPlaces int) Field {
	return Field{Name: name, Type: DecimalField, MaxDigits: maxDigits, DecimalPlaces: decimalPlaces}
}

// FK returns a foreign key field referencing the primary key of to.
func FK(name string, to ModelKey, onDelete OnDelete) Field {
	return Field{
		Name:       name,
		Type:       ForeignKeyField,
		ForeignKey: &ForeignKey{To: to, OnDelete: onDelete},
	}
}

// Nullable marks the field as accepting NULL and empty form input.
func (f Field) Nullable() Field {
	f.Null = true
	f.Blank = true
	return f
}

// AllowBlank lets forms submit an empty value without making the column nullable.
func (f Field) AllowBlank() Field {
	f.Blank = true
	return f
}

func (f Field) WithDefault(v any) Field {
	f.Default = v
	return f
}

func (f Field) WithHelp(text string) Field {
	f.HelpText = text
	return f
}

func (f Field) WithChoices(choices ...Choice) Field {
	f.Choices = choices
	return f
}

func (f Field) AsUnique() Field {
	f.Unique = true
	return f
}

func (f Field) Indexed() Field {
	f.DBIndex = true
	return f
}

// Related sets the reverse accessor name of a foreign key.
func (f Field) Related(name string) Field {
	if f.ForeignKey != nil {
		fk := *f.ForeignKey
		fk.RelatedName = name
		f.ForeignKey = &fk
	}
	return f
}

// ZeroValue returns the value used to backfill a non-null column that has no default.
func ZeroValue(t FieldType) any {
	switch t {
	case CharField, TextField, EmailField:
		return ""
	case BooleanField:
		return false
	case DecimalField:
		return decimal.Zero
	case FloatField:
		return float64(0)
	case DurationField:
		return time.Duration(0)
	case DateField:
		return CurrentDate
	case DateTimeField:
		return CurrentTimestamp
	case TimeField:
		return time.Date(0, 1, 1, 0, 0, 0, 0, time.UTC)
	default:
		return 0
	}
}
