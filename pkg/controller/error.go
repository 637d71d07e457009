package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/nimburion/taskboard/pkg/middleware"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/schema"
)

// AppError is the single application error contract shared across layers.
type AppError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]interface{}
	Cause      error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// ErrorResponse represents the consistent error response format.
type ErrorResponse struct {
	Error     string                 `json:"error"`
	Code      string                 `json:"code,omitempty"`
	Message   string                 `json:"message,omitempty"`
	RequestID string                 `json:"request_id,omitempty"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// MapError maps application errors to HTTP responses.
func MapError(ctx context.Context, err error) (int, ErrorResponse) {
	requestID := getRequestID(ctx)

	var schemaErr *schema.ValidationError
	if errors.As(err, &schemaErr) {
		return http.StatusBadRequest, ErrorResponse{
			Error:     "validation_error",
			Code:      "validation.schema",
			Message:   schemaErr.Message,
			RequestID: requestID,
			Details:   map[string]interface{}{"field": schemaErr.Field, "rule": schemaErr.Rule},
		}
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:     "payload_too_large",
			Code:      "request.too_large",
			Message:   fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", tooLarge.Limit),
			RequestID: requestID,
		}
	}

	var appErr *AppError
	if !errors.As(err, &appErr) {
		if errors.Is(err, repository.ErrNotFound) {
			return http.StatusNotFound, ErrorResponse{
				Error:     "not_found",
				Code:      "resource.not_found",
				Message:   "resource not found",
				RequestID: requestID,
			}
		}
		return http.StatusInternalServerError, ErrorResponse{
			Error:     "internal_server_error",
			Message:   "an unexpected error occurred",
			RequestID: requestID,
		}
	}

	status := appErr.HTTPStatus
	if status == 0 {
		status = http.StatusInternalServerError
	}

	message := appErr.Message
	if message == "" {
		message = "an unexpected error occurred"
	}

	return status, ErrorResponse{
		Error:     errorCategory(status),
		Code:      appErr.Code,
		Message:   message,
		RequestID: requestID,
		Details:   appErr.Details,
	}
}

func getRequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := ctx.Value(middleware.RequestIDKey).(string); ok {
		return id
	}
	return ""
}

// NewValidationError creates a new validation error.
func NewValidationError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       "validation.failed",
		Message:    message,
		HTTPStatus: http.StatusBadRequest,
		Details:    details,
	}
}

// NewNotFoundError creates a new not found error.
func NewNotFoundError(message string) *AppError {
	return &AppError{Code: "resource.not_found", Message: message, HTTPStatus: http.StatusNotFound}
}

// NewConflictError creates a new conflict error.
func NewConflictError(message string, details map[string]interface{}) *AppError {
	return &AppError{
		Code:       "resource.conflict",
		Message:    message,
		HTTPStatus: http.StatusConflict,
		Details:    details,
	}
}

// NewUnauthorizedError creates a new unauthorized error.
func NewUnauthorizedError(message string) *AppError {
	return &AppError{Code: "auth.unauthorized", Message: message, HTTPStatus: http.StatusUnauthorized}
}

// NewForbiddenError creates a new forbidden error.
func NewForbiddenError(message string) *AppError {
	return &AppError{Code: "auth.forbidden", Message: message, HTTPStatus: http.StatusForbidden}
}

// NewPayloadTooLargeError creates a 413 error for bodies over limit bytes.
func NewPayloadTooLargeError(limit int64) *AppError {
	return &AppError{
		Code:       "request.too_large",
		Message:    fmt.Sprintf("request body exceeds maximum allowed size of %d bytes", limit),
		HTTPStatus: http.StatusRequestEntityTooLarge,
		Details:    map[string]interface{}{"max_size": limit},
	}
}

// NewTooManyRequestsError creates a 429 error.
func NewTooManyRequestsError(message string) *AppError {
	return &AppError{Code: "request.rate_limited", Message: message, HTTPStatus: http.StatusTooManyRequests}
}

// NewInternalError creates a new internal error with optional cause.
func NewInternalError(message string, cause error) *AppError {
	return &AppError{
		Code:       "internal.error",
		Message:    message,
		HTTPStatus: http.StatusInternalServerError,
		Cause:      cause,
	}
}

func errorCategory(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "validation_error"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusConflict:
		return "conflict"
	case http.StatusRequestEntityTooLarge:
		return "payload_too_large"
	case http.StatusTooManyRequests:
		return "rate_limited"
	default:
		if status >= 500 {
			return "internal_server_error"
		}
		return "application_error"
	}
}
