// Package schema validates plain field maps against declarative field rules.
package schema

import (
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"

	"github.com/nimburion/taskboard/pkg/identifier"
)

// Kind enumerates the supported value types.
type Kind int

const (
	String Kind = iota + 1
	Number
	Boolean
	Array
	Object
	Date
	UUID
)

// Type describes the expected type of a field. Elem is set for typed arrays.
type Type struct {
	Kind Kind
	Elem *Type
}

// Of returns the plain type for kind.
func Of(kind Kind) Type {
	return Type{Kind: kind}
}

// ArrayOf returns an array type whose elements must all be of elem.
func ArrayOf(elem Type) Type {
	return Type{Kind: Array, Elem: &elem}
}

func (t Type) String() string {
	switch t.Kind {
	case String:
		return "String"
	case Number:
		return "Number"
	case Boolean:
		return "Boolean"
	case Array:
		if t.Elem != nil {
			return "[" + t.Elem.String() + "]"
		}
		return "Array"
	case Object:
		return "Object"
	case Date:
		return "Date"
	case UUID:
		return "UUID"
	default:
		return "Unknown"
	}
}

// Rule lists the constraints of a single field. Nil bounds are not checked.
type Rule struct {
	Type     Type
	Required bool
	MinLen   *int
	MaxLen   *int
	Min      *float64
	Max      *float64
}

// Field binds a rule to a field name.
type Field struct {
	Name string
	Rule Rule
}

// Schema is an ordered list of fields; the first failing field is reported.
type Schema []Field

// Int returns a pointer to v, for MinLen and MaxLen.
func Int(v int) *int { return &v }

// Float returns a pointer to v, for Min and Max.
func Float(v float64) *float64 { return &v }

// ValidationError reports the first field that failed validation.
type ValidationError struct {
	Field   string
	Rule    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Validate checks data against s. name prefixes "required" messages, e.g. "User.login is required.".
func Validate(name string, s Schema, data map[string]any) error {
	for _, field := range s {
		value, present := data[field.Name]
		if field.Rule.Required && !present {
			return &ValidationError{
				Field:   field.Name,
				Rule:    "required",
				Message: fmt.Sprintf("%s.%s is required.", name, field.Name),
			}
		}
		if !present {
			continue
		}
		if err := checkField(field, value); err != nil {
			return err
		}
	}
	return nil
}

func checkField(field Field, value any) error {
	rule := field.Rule
	fail := func(ruleName, ruleValue string) error {
		return &ValidationError{
			Field:   field.Name,
			Rule:    ruleName,
			Message: fmt.Sprintf("%s is not valid => [%s]", field.Name, ruleValue),
		}
	}

	if rule.Type.Kind != 0 && !rule.Type.accepts(value) {
		return fail("type", rule.Type.String())
	}
	if rule.MinLen != nil && length(value) < *rule.MinLen {
		return fail("minlen", strconv.Itoa(*rule.MinLen))
	}
	if rule.MaxLen != nil && length(value) > *rule.MaxLen {
		return fail("maxlen", strconv.Itoa(*rule.MaxLen))
	}
	if rule.Min != nil {
		if n, ok := number(value); !ok || n < *rule.Min {
			return fail("min", formatFloat(*rule.Min))
		}
	}
	if rule.Max != nil {
		if n, ok := number(value); !ok || n > *rule.Max {
			return fail("max", formatFloat(*rule.Max))
		}
	}
	return nil
}

func (t Type) accepts(value any) bool {
	switch t.Kind {
	case String:
		_, ok := value.(string)
		return ok
	case Number:
		n, ok := number(value)
		return ok && !math.IsNaN(n) && !math.IsInf(n, 0)
	case Boolean:
		_, ok := value.(bool)
		return ok
	case Object:
		if value == nil {
			return false
		}
		return reflect.TypeOf(value).Kind() == reflect.Map
	case Date:
		_, ok := value.(time.Time)
		return ok
	case UUID:
		s, ok := value.(string)
		return ok && identifier.IsValid(s)
	case Array:
		if value == nil {
			return false
		}
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
			return false
		}
		if t.Elem == nil {
			return true
		}
		for i := 0; i < rv.Len(); i++ {
			if !t.Elem.accepts(rv.Index(i).Interface()) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func number(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// length measures strings in runes and arrays in elements. Other values have length 0.
func length(value any) int {
	if s, ok := value.(string); ok {
		return len([]rune(s))
	}
	if value == nil {
		return 0
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.Map:
		return rv.Len()
	default:
		return 0
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
