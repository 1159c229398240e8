// Package model describes table models as static schema descriptors.
//
// A Descriptor is an explicit record of a table's name and column
// definitions, built once per model type and shared by reference. The
// migration engine consumes descriptors for DDL generation and schema
// comparison; the row persistence layer can consume the same descriptors
// for statement generation.
package model

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"
)

var ErrNotStruct = errors.New("model must be a struct type")

// UnsupportedFieldError reports a struct field whose Go type has no SQLite
// column type mapping.
type UnsupportedFieldError struct {
	Model string
	Field string
	Type  reflect.Type
}

func (e *UnsupportedFieldError) Error() string {
	return fmt.Sprintf("model %s: field %s has unsupported type %s", e.Model, e.Field, e.Type)
}

// Field is one column of a table model.
type Field struct {
	Name       string
	SQLType    string
	Nullable   bool
	PrimaryKey bool
}

// ColumnDef renders the column definition exactly as it appears in
// generated DDL.
func (f Field) ColumnDef() string {
	def := f.Name + " " + f.SQLType
	if f.PrimaryKey {
		return def + " PRIMARY KEY"
	}
	if !f.Nullable {
		def += " NOT NULL"
	}
	return def
}

// Descriptor is the schema description of one table model.
type Descriptor struct {
	ModelName string
	TableName string
	Fields    []Field
}

// DDL renders the canonical CREATE TABLE statement for the model. The
// formatting is deterministic; schema comparison relies on the generator
// and the live catalog agreeing after whitespace normalization.
func (d *Descriptor) DDL() string {
	defs := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		defs[i] = f.ColumnDef()
	}
	return "CREATE TABLE " + d.TableName + " (" + strings.Join(defs, ", ") + ")"
}

// registry memoizes descriptors by model identity so each model type is
// described exactly once.
var registry = struct {
	sync.RWMutex
	byType map[reflect.Type]*Descriptor
}{byType: make(map[reflect.Type]*Descriptor)}

// Describe builds the Descriptor for a struct model, memoized by the
// struct's reflect.Type. Passing the same model type again returns the
// same *Descriptor.
//
// Column mapping: the field named ID becomes "id INTEGER PRIMARY KEY";
// other exported fields map to snake_case columns with SQLite types
// derived from their Go types. Pointer fields are nullable.
func Describe(v any) (*Descriptor, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, ErrNotStruct
	}

	registry.RLock()
	d, ok := registry.byType[t]
	registry.RUnlock()
	if ok {
		return d, nil
	}

	d, err := describe(t)
	if err != nil {
		return nil, err
	}

	registry.Lock()
	// Another caller may have raced us here; keep the first descriptor so
	// identity stays stable.
	if existing, ok := registry.byType[t]; ok {
		d = existing
	} else {
		registry.byType[t] = d
	}
	registry.Unlock()

	return d, nil
}

// MustDescribe is like Describe but panics on error. Use at model
// registration time.
func MustDescribe(v any) *Descriptor {
	d, err := Describe(v)
	if err != nil {
		panic(err)
	}
	return d
}

func describe(t reflect.Type) (*Descriptor, error) {
	d := &Descriptor{
		ModelName: t.Name(),
		TableName: t.Name(),
		Fields:    make([]Field, 0, t.NumField()),
	}

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}

		if sf.Name == "ID" {
			d.Fields = append(d.Fields, Field{
				Name:       "id",
				SQLType:    "INTEGER",
				Nullable:   true,
				PrimaryKey: true,
			})
			continue
		}

		ft := sf.Type
		nullable := false
		if ft.Kind() == reflect.Pointer {
			nullable = true
			ft = ft.Elem()
		}

		sqlType, ok := sqliteTypeOf(ft)
		if !ok {
			return nil, &UnsupportedFieldError{Model: t.Name(), Field: sf.Name, Type: sf.Type}
		}

		d.Fields = append(d.Fields, Field{
			Name:     snakeCase(sf.Name),
			SQLType:  sqlType,
			Nullable: nullable,
		})
	}

	return d, nil
}

var timeType = reflect.TypeOf(time.Time{})

func sqliteTypeOf(t reflect.Type) (string, bool) {
	if t == timeType {
		return "TEXT", true
	}
	switch t.Kind() {
	case reflect.String:
		return "TEXT", true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64, reflect.Bool:
		return "INTEGER", true
	case reflect.Float32, reflect.Float64:
		return "REAL", true
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return "BLOB", true
		}
	}
	return "", false
}

func snakeCase(name string) string {
	var b strings.Builder
	for i, r := range name {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
