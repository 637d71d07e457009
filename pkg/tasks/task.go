// Package tasks manages the cards placed on a board.
package tasks

import (
	"encoding/json"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/schema"
)

// Collection is the document collection holding tasks.
const Collection = "Task"

// Task is a card on a board. The references are null when unset.
type Task struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Order       int     `json:"order"`
	Description string  `json:"description"`
	UserID      *string `json:"userId"`
	BoardID     *string `json:"boardId"`
	ColumnID    *string `json:"columnId"`
}

var createSchema = schema.Schema{
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
	{Name: "order", Rule: schema.Rule{Type: schema.Of(schema.Number), Required: true}},
	{Name: "description", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
}

var updateSchema = schema.Schema{
	{Name: "title", Rule: schema.Rule{Type: schema.Of(schema.String)}},
	{Name: "order", Rule: schema.Rule{Type: schema.Of(schema.Number)}},
	{Name: "description", Rule: schema.Rule{Type: schema.Of(schema.String)}},
}

// referenceFields may be a string or null.
var referenceFields = []string{"userId", "boardId", "columnId"}

func validateReferences(raw map[string]any) error {
	for _, field := range referenceFields {
		value, ok := raw[field]
		if !ok || value == nil {
			continue
		}
		if _, isString := value.(string); !isString {
			return &schema.ValidationError{
				Field:   field,
				Rule:    "type",
				Message: field + " is not valid => [String]",
			}
		}
	}
	return nil
}

// CreateTaskRequest is the body of POST /boards/:boardID/tasks.
type CreateTaskRequest struct {
	Title       string
	Order       int
	Description string
	UserID      *string
	ColumnID    *string

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *CreateTaskRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the typed fields. A boardId in the body is ignored.
func (r *CreateTaskRequest) Validate() error {
	if err := schema.Validate("Task", createSchema, r.raw); err != nil {
		return err
	}
	if err := validateReferences(r.raw); err != nil {
		return err
	}
	fields := document.Document(r.raw)
	r.Title = fields.String("title")
	r.Order = fields.Int("order")
	r.Description = fields.String("description")
	r.UserID = fields.OptionalString("userId")
	r.ColumnID = fields.OptionalString("columnId")
	return nil
}

// Reference is a nullable reference that was either sent or left out of an update.
type Reference struct {
	Set   bool
	Value *string
}

// UpdateTaskRequest is the body of PUT /boards/:boardID/tasks/:taskID.
// Absent fields keep their value; a null reference clears it.
type UpdateTaskRequest struct {
	Title       *string
	Order       *int
	Description *string
	UserID      Reference
	BoardID     Reference
	ColumnID    Reference

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the fields that were sent.
func (r *UpdateTaskRequest) Validate() error {
	if err := schema.Validate("Task", updateSchema, r.raw); err != nil {
		return err
	}
	if err := validateReferences(r.raw); err != nil {
		return err
	}
	fields := document.Document(r.raw)
	r.Title = fields.OptionalString("title")
	r.Description = fields.OptionalString("description")
	if _, ok := fields["order"]; ok {
		order := fields.Int("order")
		r.Order = &order
	}
	r.UserID = reference(fields, "userId")
	r.BoardID = reference(fields, "boardId")
	r.ColumnID = reference(fields, "columnId")
	return nil
}

func reference(fields document.Document, name string) Reference {
	if _, ok := fields[name]; !ok {
		return Reference{}
	}
	return Reference{Set: true, Value: fields.OptionalString(name)}
}

func (r Reference) apply(target **string) {
	if r.Set {
		*target = r.Value
	}
}

func toDocument(t *Task) document.Document {
	return document.Document{
		document.IDField: t.ID,
		"title":          t.Title,
		"order":          t.Order,
		"description":    t.Description,
		"userId":         document.Nullable(t.UserID),
		"boardId":        document.Nullable(t.BoardID),
		"columnId":       document.Nullable(t.ColumnID),
	}
}

func fromDocument(doc document.Document) *Task {
	return &Task{
		ID:          doc.ID(),
		Title:       doc.String("title"),
		Order:       doc.Int("order"),
		Description: doc.String("description"),
		UserID:      doc.OptionalString("userId"),
		BoardID:     doc.OptionalString("boardId"),
		ColumnID:    doc.OptionalString("columnId"),
	}
}
