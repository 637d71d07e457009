package document

import (
	"math"
	"testing"
)

type boardID string

func TestQuery_Matches(t *testing.T) {
	doc := Document{
		"id":      "1",
		"title":   "Backlog",
		"order":   3,
		"done":    false,
		"ratio":   0.5,
		"columns": []any{"a"},
		"meta":    map[string]any{"k": "v"},
		"nothing": nil,
		"userId":  (*string)(nil),
	}

	tests := []struct {
		name  string
		query Query
		want  bool
	}{
		{name: "empty query", query: All, want: true},
		{name: "string field", query: Match(Eq("title", "Backlog")), want: true},
		{name: "named string type", query: Match(Eq("id", boardID("1"))), want: true},
		{name: "int against stored int", query: Match(Eq("order", 3)), want: true},
		{name: "int64 against stored int", query: Match(Eq("order", int64(3))), want: true},
		{name: "float against stored int", query: Match(Eq("order", 3.0)), want: true},
		{name: "bool false", query: Match(Eq("done", false)), want: true},
		{name: "float", query: Match(Eq("ratio", float32(0.5))), want: true},
		{name: "all conditions must hold", query: Match(Eq("title", "Backlog"), Eq("order", 4)), want: false},
		{name: "case sensitive", query: Match(Eq("title", "backlog")), want: false},
		{name: "array field", query: Match(Eq("columns", "a")), want: false},
		{name: "object field", query: Match(Eq("meta", "v")), want: false},
		{name: "nil stored value", query: Match(Eq("nothing", "")), want: false},
		{name: "absent field", query: Match(Eq("absent", false)), want: false},
		{name: "bool vs number", query: Match(Eq("done", 0)), want: false},
		{name: "null field", query: Match(IsNull("nothing")), want: true},
		{name: "typed nil pointer is null", query: Match(IsNull("userId")), want: true},
		{name: "absent field is not null", query: Match(IsNull("absent")), want: false},
		{name: "set field is not null", query: Match(IsNull("title")), want: false},
		{name: "null with other conditions", query: Match(IsNull("nothing"), Eq("order", 3)), want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.query.Matches(doc); got != tt.want {
				t.Errorf("%s.Matches() = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestQuery_NaNNeverMatches(t *testing.T) {
	doc := Document{"v": math.NaN()}
	if Match(Eq("v", math.NaN())).Matches(doc) {
		t.Error("NaN must not equal NaN")
	}
}

func TestQuery_ConditionsAreCopied(t *testing.T) {
	q := Match(Eq("a", 1))
	conds := q.Conditions()
	conds[0].Field = "b"

	if q.Conditions()[0].Field != "a" {
		t.Error("Conditions must return a copy")
	}
	if q.IsEmpty() || !All.IsEmpty() {
		t.Error("IsEmpty mismatch")
	}
}

func TestTruthy(t *testing.T) {
	tests := []struct {
		value any
		want  bool
	}{
		{nil, false},
		{"", false},
		{"x", true},
		{0, false},
		{int64(7), true},
		{uint(0), false},
		{0.0, false},
		{math.NaN(), false},
		{false, false},
		{true, true},
		{[]any{}, true},
		{map[string]any{}, true},
	}

	for _, tt := range tests {
		if got := truthy(tt.value); got != tt.want {
			t.Errorf("truthy(%#v) = %v, want %v", tt.value, got, tt.want)
		}
	}
}
