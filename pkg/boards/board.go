// Package boards manages boards and the ordered columns that belong to them.
package boards

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/schema"
)

// Document collections.
const (
	BoardCollection  = "Board"
	ColumnCollection = "Column"
)

// Board is a kanban board. Columns is always present in responses.
type Board struct {
	ID      string   `json:"id" db:"id"`
	Title   string   `json:"title" db:"title"`
	Columns []Column `json:"columns" db:"-"`
}

// Column is a lane of a board.
type Column struct {
	ID      string `json:"id" db:"id"`
	Title   string `json:"title" db:"title"`
	Order   int    `json:"order" db:"order"`
	BoardID string `json:"boardId" db:"boardId"`
}

var boardCreateSchema = schema.Schema{
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
	{Name: "columns", Rule: schema.Rule{Type: schema.ArrayOf(schema.Of(schema.Object))}},
}

var boardUpdateSchema = schema.Schema{
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String)}},
	{Name: "columns", Rule: schema.Rule{Type: schema.ArrayOf(schema.Of(schema.Object))}},
}

var columnCreateSchema = schema.Schema{
	{Name: "id", Rule: schema.Rule{Type: schema.Of(schema.String)}},
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
	{Name: "order", Rule: schema.Rule{Type: schema.Of(schema.Number), Required: true}},
}

var columnUpdateSchema = schema.Schema{
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String)}},
	{Name: "order", Rule: schema.Rule{Type: schema.Of(schema.Number)}},
}

// ColumnInput is a column submitted inside a board body or to the column routes.
// ID is kept when it is a valid identifier; otherwise a new one is assigned.
type ColumnInput struct {
	ID    string
	Title string
	Order int
}

func parseColumns(raw any) ([]ColumnInput, error) {
	items, _ := raw.([]any)
	columns := make([]ColumnInput, 0, len(items))
	for i, item := range items {
		fields, _ := item.(map[string]any)
		if err := schema.Validate("Column", columnCreateSchema, fields); err != nil {
			var verr *schema.ValidationError
			if errors.As(err, &verr) {
				verr.Field = fmt.Sprintf("columns[%d].%s", i, verr.Field)
			}
			return nil, err
		}
		doc := document.Document(fields)
		columns = append(columns, ColumnInput{ID: doc.String("id"), Title: doc.String("title"), Order: doc.Int("order")})
	}
	return columns, nil
}

// CreateBoardRequest is the body of POST /boards.
type CreateBoardRequest struct {
	Title   string
	Columns []ColumnInput

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *CreateBoardRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and every column in it.
func (r *CreateBoardRequest) Validate() error {
	if err := schema.Validate("Board", boardCreateSchema, r.raw); err != nil {
		return err
	}
	columns, err := parseColumns(r.raw["columns"])
	if err != nil {
		return err
	}
	r.Title = document.Document(r.raw).String("title")
	r.Columns = columns
	return nil
}

// UpdateBoardRequest is the body of PUT /boards/:boardID.
// A columns array replaces the board's whole column set.
type UpdateBoardRequest struct {
	Title      *string
	Columns    []ColumnInput
	SetColumns bool

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *UpdateBoardRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and every column in it.
func (r *UpdateBoardRequest) Validate() error {
	if err := schema.Validate("Board", boardUpdateSchema, r.raw); err != nil {
		return err
	}
	r.Title = document.Document(r.raw).OptionalString("title")
	if raw, ok := r.raw["columns"]; ok {
		columns, err := parseColumns(raw)
		if err != nil {
			return err
		}
		r.Columns, r.SetColumns = columns, true
	}
	return nil
}

// CreateColumnRequest is the body of POST /boards/:boardID/columns.
type CreateColumnRequest struct {
	ColumnInput

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *CreateColumnRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the typed fields.
func (r *CreateColumnRequest) Validate() error {
	if err := schema.Validate("Column", columnCreateSchema, r.raw); err != nil {
		return err
	}
	doc := document.Document(r.raw)
	r.ColumnInput = ColumnInput{ID: doc.String("id"), Title: doc.String("title"), Order: doc.Int("order")}
	return nil
}

// UpdateColumnRequest is the body of PUT /boards/:boardID/columns/:columnID.
type UpdateColumnRequest struct {
	Title *string
	Order *int

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *UpdateColumnRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the fields that were sent.
func (r *UpdateColumnRequest) Validate() error {
	if err := schema.Validate("Column", columnUpdateSchema, r.raw); err != nil {
		return err
	}
	doc := document.Document(r.raw)
	r.Title = doc.OptionalString("title")
	if _, ok := doc["order"]; ok {
		order := doc.Int("order")
		r.Order = &order
	}
	return nil
}

func boardToDocument(b *Board) document.Document {
	return document.Document{document.IDField: b.ID, "title": b.Title}
}

func boardFromDocument(doc document.Document) *Board {
	return &Board{ID: doc.ID(), Title: doc.String("title"), Columns: []Column{}}
}

func columnToDocument(c *Column) document.Document {
	return document.Document{
		document.IDField: c.ID,
		"title":          c.Title,
		"order":          c.Order,
		"boardId":        c.BoardID,
	}
}

func columnFromDocument(doc document.Document) Column {
	return Column{
		ID:      doc.ID(),
		Title:   doc.String("title"),
		Order:   doc.Int("order"),
		BoardID: doc.String("boardId"),
	}
}
