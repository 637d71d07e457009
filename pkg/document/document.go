// Package document provides an in-process, collection-oriented store of
// schema-less documents together with the query builder used to address them.
//
// Documents are plain field maps. Reads, inserts, updates and deletes always
// hand back shallow copies, so callers can never mutate stored state through a
// returned value.
package document

import (
	"math"
	"reflect"
)

// IDField is the field that identifies a document within its collection.
const IDField = "id"

// Document is a single schema-less record.
type Document map[string]any

// Update holds the fields merged onto matching documents by an update.
type Update map[string]any

// ID returns the document identifier when it is a string.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// HasID reports whether the document carries a truthy id.
func (d Document) HasID() bool {
	return truthy(d[IDField])
}

// Clone returns a shallow copy of the document. Nested maps and slices are shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func (d Document) merge(u Update) {
	for k, v := range u {
		d[k] = v
	}
}

func cloneAll(docs []Document) []Document {
	out := make([]Document, len(docs))
	for i, doc := range docs {
		out[i] = doc.Clone()
	}
	return out
}

// truthy follows JavaScript truthiness for the scalar values a document id can hold.
func truthy(v any) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.Len() > 0
	case reflect.Bool:
		return rv.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		return f != 0 && !math.IsNaN(f)
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	default:
		return true
	}
}

// String returns the field when it holds a string, or "".
func (d Document) String(field string) string {
	s, _ := d[field].(string)
	return s
}

// OptionalString returns nil when the field is absent, nil or not a string.
func (d Document) OptionalString(field string) *string {
	s, ok := d[field].(string)
	if !ok {
		return nil
	}
	return &s
}

// Int returns the field as an int. JSON and BSON decoders hand numbers back as
// float64, int32 or int64, so all numeric kinds are accepted.
func (d Document) Int(field string) int {
	rv := reflect.ValueOf(d[field])
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return int(rv.Float())
	default:
		return 0
	}
}

// Nullable converts an optional string to a document value, mapping nil to a stored null.
func Nullable(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
