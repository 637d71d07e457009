// Package users manages board members: their accounts, credentials and the
// cleanup of task assignments when an account is removed.
package users

import (
	"encoding/json"

	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/schema"
)

// Collection is the document collection holding users.
const Collection = "User"

// User is a board member. Password holds the bcrypt hash and is never serialized.
type User struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Login    string `json:"login" db:"login"`
	Password string `json:"-" db:"password"`
}

var createSchema = schema.Schema{
	{Name: "name", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true}},
	{Name: "login", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true, MinLen: schema.Int(1)}},
	{Name: "password", Rule: schema.Rule{Type: schema.Of(schema.String), Required: true, MinLen: schema.Int(1)}},
}

var updateSchema = schema.Schema{
	{Name: "name", Rule: schema.Rule{Type: schema.Of(schema.String)}},
	{Name: "login", Rule: schema.Rule{Type: schema.Of(schema.String), MinLen: schema.Int(1)}},
	{Name: "password", Rule: schema.Rule{Type: schema.Of(schema.String), MinLen: schema.Int(1)}},
}

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Name     string
	Login    string
	Password string

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *CreateUserRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the typed fields.
func (r *CreateUserRequest) Validate() error {
	if err := schema.Validate("User", createSchema, r.raw); err != nil {
		return err
	}
	fields := document.Document(r.raw)
	r.Name = fields.String("name")
	r.Login = fields.String("login")
	r.Password = fields.String("password")
	return nil
}

// UpdateUserRequest is the body of PUT /users/:userID. Absent fields keep their value.
type UpdateUserRequest struct {
	Name     *string
	Login    *string
	Password *string

	raw map[string]any
}

// UnmarshalJSON keeps the raw field map so Validate can check the submitted types.
func (r *UpdateUserRequest) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &r.raw)
}

// Validate checks the body and fills the fields that were sent.
func (r *UpdateUserRequest) Validate() error {
	if err := schema.Validate("User", updateSchema, r.raw); err != nil {
		return err
	}
	fields := document.Document(r.raw)
	r.Name = fields.OptionalString("name")
	r.Login = fields.OptionalString("login")
	r.Password = fields.OptionalString("password")
	return nil
}

func toDocument(u *User) document.Document {
	return document.Document{
		document.IDField: u.ID,
		"name":           u.Name,
		"login":          u.Login,
		"password":       u.Password,
	}
}

func fromDocument(doc document.Document) *User {
	return &User{
		ID:       doc.ID(),
		Name:     doc.String("name"),
		Login:    doc.String("login"),
		Password: doc.String("password"),
	}
}
