package schema

import (
	"errors"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

var userSchema = Schema{
	{Name: "name", Rule: Rule{Type: Of(String), Required: true, MinLen: Int(1), MaxLen: Int(20)}},
	{Name: "login", Rule: Rule{Type: Of(String), Required: true}},
	{Name: "age", Rule: Rule{Type: Of(Number), Min: Float(0), Max: Float(150)}},
	{Name: "tags", Rule: Rule{Type: ArrayOf(Of(String))}},
	{Name: "boardId", Rule: Rule{Type: Of(UUID)}},
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		data    map[string]any
		wantMsg string
		rule    string
	}{
		{
			name: "valid",
			data: map[string]any{"name": "Ann", "login": "ann", "age": 30, "tags": []any{"a"}, "boardId": "3b241101-e2bb-4255-8caf-4136c566a962"},
		},
		{
			name:    "missing required",
			data:    map[string]any{"name": "Ann"},
			wantMsg: "User.login is required.",
			rule:    "required",
		},
		{
			name:    "first failing field wins",
			data:    map[string]any{},
			wantMsg: "User.name is required.",
			rule:    "required",
		},
		{
			name:    "wrong type",
			data:    map[string]any{"name": 5, "login": "ann"},
			wantMsg: "name is not valid => [String]",
			rule:    "type",
		},
		{
			name:    "too short",
			data:    map[string]any{"name": "", "login": "ann"},
			wantMsg: "name is not valid => [1]",
			rule:    "minlen",
		},
		{
			name:    "too long",
			data:    map[string]any{"name": "abcdefghijklmnopqrstuvwxyz", "login": "ann"},
			wantMsg: "name is not valid => [20]",
			rule:    "maxlen",
		},
		{
			name:    "below min",
			data:    map[string]any{"name": "Ann", "login": "ann", "age": -1.5},
			wantMsg: "age is not valid => [0]",
			rule:    "min",
		},
		{
			name:    "above max",
			data:    map[string]any{"name": "Ann", "login": "ann", "age": 200},
			wantMsg: "age is not valid => [150]",
			rule:    "max",
		},
		{
			name:    "typed array element",
			data:    map[string]any{"name": "Ann", "login": "ann", "tags": []any{"a", 1}},
			wantMsg: "tags is not valid => [[String]]",
			rule:    "type",
		},
		{
			name:    "invalid uuid",
			data:    map[string]any{"name": "Ann", "login": "ann", "boardId": "nope"},
			wantMsg: "boardId is not valid => [UUID]",
			rule:    "type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate("User", userSchema, tt.data)
			if tt.wantMsg == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected *ValidationError, got %v", err)
			}
			if verr.Message != tt.wantMsg {
				t.Errorf("message = %q, want %q", verr.Message, tt.wantMsg)
			}
			if verr.Rule != tt.rule {
				t.Errorf("rule = %q, want %q", verr.Rule, tt.rule)
			}
		})
	}
}

func TestTypeAccepts(t *testing.T) {
	tests := []struct {
		typ   Type
		value any
		want  bool
	}{
		{Of(Number), 1, true},
		{Of(Number), 1.5, true},
		{Of(Number), "1", false},
		{Of(Boolean), false, true},
		{Of(Boolean), 0, false},
		{Of(Object), map[string]any{}, true},
		{Of(Object), []any{}, false},
		{Of(Object), nil, false},
		{Of(Array), []string{"a"}, true},
		{Of(Array), "abc", false},
		{Of(Date), time.Now(), true},
		{Of(Date), "2024-01-01", false},
		{ArrayOf(Of(Number)), []any{1, 2.5}, true},
		{ArrayOf(Of(Number)), []any{1, "2"}, false},
	}

	for _, tt := range tests {
		if got := tt.typ.accepts(tt.value); got != tt.want {
			t.Errorf("%s.accepts(%#v) = %v, want %v", tt.typ, tt.value, got, tt.want)
		}
	}
}

func TestProperty_StringLengthBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	s := Schema{{Name: "title", Rule: Rule{Type: Of(String), MinLen: Int(2), MaxLen: Int(8)}}}

	properties.Property("strings validate iff their rune length is within bounds", prop.ForAll(
		func(title string) bool {
			n := len([]rune(title))
			err := Validate("Board", s, map[string]any{"title": title})
			return (err == nil) == (n >= 2 && n <= 8)
		},
		gen.AlphaString(),
	))

	properties.TestingRun(t)
}
