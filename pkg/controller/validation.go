package controller

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"

	"github.com/nimburion/taskboard/pkg/schema"
	"github.com/nimburion/taskboard/pkg/server/router"
)

const (
	// DefaultLimit is the page size used when the request does not set one.
	DefaultLimit = 50
	// MaxLimit caps the page size a client can request.
	MaxLimit = 500
)

// Validator is an interface that DTOs can implement to provide custom validation logic.
type Validator interface {
	Validate() error
}

// ValidateDTO runs the DTO's Validate method when it has one.
// Schema errors pass through untouched so MapError can report the failing field.
func ValidateDTO(dto interface{}) error {
	if dto == nil {
		return NewValidationError("dto cannot be nil", nil)
	}
	v := reflect.ValueOf(dto)
	if v.Kind() == reflect.Ptr && v.IsNil() {
		return NewValidationError("dto cannot be nil", nil)
	}

	validator, ok := dto.(Validator)
	if !ok {
		return nil
	}
	err := validator.Validate()
	if err == nil {
		return nil
	}

	var appErr *AppError
	var schemaErr *schema.ValidationError
	if errors.As(err, &appErr) || errors.As(err, &schemaErr) {
		return err
	}
	return NewValidationError(err.Error(), map[string]interface{}{"cause": err.Error()})
}

// BindAndValidate decodes the request body into dto and validates it.
func BindAndValidate(c router.Context, dto interface{}) error {
	if err := c.Bind(dto); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return NewPayloadTooLargeError(tooLarge.Limit)
		}
		return NewValidationError("request body is not valid JSON", map[string]interface{}{"cause": err.Error()})
	}
	return ValidateDTO(dto)
}

// Page holds list pagination parameters.
type Page struct {
	Limit  int
	Offset int
}

// ParsePage reads the limit and offset query parameters.
func ParsePage(c router.Context) (Page, error) {
	page := Page{Limit: DefaultLimit}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return Page{}, NewValidationError("limit must be a non-negative integer", map[string]interface{}{"limit": raw})
		}
		if limit > 0 {
			page.Limit = limit
		}
	}
	if page.Limit > MaxLimit {
		page.Limit = MaxLimit
	}

	if raw := c.Query("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			return Page{}, NewValidationError("offset must be a non-negative integer", map[string]interface{}{"offset": raw})
		}
		page.Offset = offset
	}
	return page, nil
}
