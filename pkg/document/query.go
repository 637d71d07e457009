package document

import (
	"fmt"
	"reflect"
	"strings"
)

// Scalar lists the value types a query condition may compare against.
// Maps, slices and structs are deliberately absent: conditions never deep-compare.
type Scalar interface {
	~string | ~bool |
		~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 |
		~float32 | ~float64
}

// Condition requires Field to hold a value equal to Value. A nil Value
// requires the field to be present and nil.
type Condition struct {
	Field string
	Value any
}

// Query is a conjunction of equality conditions. The zero Query matches every document.
type Query struct {
	conditions []Condition
}

// All matches every document.
var All = Query{}

// Eq builds a condition comparing field against a scalar value.
// Numbers are compared by value regardless of their Go type.
func Eq[V Scalar](field string, value V) Condition {
	return Condition{Field: field, Value: normalize(value)}
}

// IsNull builds a condition matching documents whose field is present and nil.
// A missing field does not match.
func IsNull(field string) Condition {
	return Condition{Field: field}
}

// Match combines conditions into a query.
func Match(conditions ...Condition) Query {
	return Query{conditions: append([]Condition(nil), conditions...)}
}

// ByID matches the document whose id equals id.
func ByID(id string) Query {
	return Match(Eq(IDField, id))
}

// Conditions returns a copy of the query's conditions.
func (q Query) Conditions() []Condition {
	return append([]Condition(nil), q.conditions...)
}

// IsEmpty reports whether the query has no conditions.
func (q Query) IsEmpty() bool {
	return len(q.conditions) == 0
}

// Matches reports whether doc satisfies every condition of the query.
func (q Query) Matches(doc Document) bool {
	for _, c := range q.conditions {
		value, ok := doc[c.Field]
		if !ok {
			return false
		}
		if !scalarEqual(value, c.Value) {
			return false
		}
	}
	return true
}

func (q Query) String() string {
	parts := make([]string, len(q.conditions))
	for i, c := range q.conditions {
		parts[i] = fmt.Sprintf("%s=%v", c.Field, c.Value)
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func scalarEqual(stored, want any) bool {
	if want == nil {
		return isNil(stored)
	}
	if isNil(stored) {
		return false
	}
	normalized, ok := normalizeAny(stored)
	if !ok {
		return false
	}
	return normalized == want
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func normalize[V Scalar](value V) any {
	n, _ := normalizeAny(value)
	return n
}

// normalizeAny reduces named scalar types to their base type and every number
// to float64. It reports false for values that are not scalars.
func normalizeAny(v any) (any, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), true
	case reflect.Bool:
		return rv.Bool(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	default:
		return nil, false
	}
}
