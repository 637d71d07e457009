package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/nimburion/taskboard/pkg/middleware"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/schema"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appError *AppError
		want     string
	}{
		{
			name:     "error without cause",
			appError: NewValidationError("validation failed", nil),
			want:     "validation failed",
		},
		{
			name:     "error with cause",
			appError: NewInternalError("database error", errors.New("connection timeout")),
			want:     "database error: connection timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.appError.Error(); got != tt.want {
				t.Errorf("AppError.Error() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	appErr := NewInternalError("boom", cause)

	if !errors.Is(appErr, cause) {
		t.Errorf("errors.Is(appErr, cause) = false, want true")
	}
}

func TestMapError(t *testing.T) {
	withID := func(id string) context.Context {
		return context.WithValue(context.Background(), middleware.RequestIDKey, id)
	}

	tests := []struct {
		name           string
		err            error
		ctx            context.Context
		wantStatus     int
		wantCategory   string
		wantMessage    string
		wantRequestID  string
		wantHasDetails bool
	}{
		{
			name:           "validation error",
			err:            NewValidationError("invalid input", map[string]interface{}{"field": "login"}),
			ctx:            withID("req-123"),
			wantStatus:     http.StatusBadRequest,
			wantCategory:   "validation_error",
			wantMessage:    "invalid input",
			wantRequestID:  "req-123",
			wantHasDetails: true,
		},
		{
			name:           "schema error",
			err:            fmt.Errorf("create board: %w", &schema.ValidationError{Field: "title", Rule: "required", Message: "Board.title is required."}),
			ctx:            withID("req-schema"),
			wantStatus:     http.StatusBadRequest,
			wantCategory:   "validation_error",
			wantMessage:    "Board.title is required.",
			wantRequestID:  "req-schema",
			wantHasDetails: true,
		},
		{
			name:          "not found error",
			err:           NewNotFoundError("Board with the id 1 is not found"),
			ctx:           withID("req-456"),
			wantStatus:    http.StatusNotFound,
			wantCategory:  "not_found",
			wantMessage:   "Board with the id 1 is not found",
			wantRequestID: "req-456",
		},
		{
			name:          "repository not found",
			err:           fmt.Errorf("find task: %w", repository.ErrNotFound),
			ctx:           context.Background(),
			wantStatus:    http.StatusNotFound,
			wantCategory:  "not_found",
			wantMessage:   "resource not found",
			wantRequestID: "",
		},
		{
			name:           "conflict error",
			err:            NewConflictError("User with this login already exists", map[string]interface{}{"login": "admin"}),
			ctx:            withID("req-789"),
			wantStatus:     http.StatusConflict,
			wantCategory:   "conflict",
			wantMessage:    "User with this login already exists",
			wantRequestID:  "req-789",
			wantHasDetails: true,
		},
		{
			name:          "unauthorized error",
			err:           NewUnauthorizedError("Token is not valid"),
			ctx:           withID("req-abc"),
			wantStatus:    http.StatusUnauthorized,
			wantCategory:  "unauthorized",
			wantMessage:   "Token is not valid",
			wantRequestID: "req-abc",
		},
		{
			name:          "forbidden error",
			err:           NewForbiddenError("Login or password is incorrect"),
			ctx:           withID("req-def"),
			wantStatus:    http.StatusForbidden,
			wantCategory:  "forbidden",
			wantMessage:   "Login or password is incorrect",
			wantRequestID: "req-def",
		},
		{
			name:          "internal error",
			err:           NewInternalError("database connection failed", nil),
			ctx:           withID("req-ghi"),
			wantStatus:    http.StatusInternalServerError,
			wantCategory:  "internal_server_error",
			wantMessage:   "database connection failed",
			wantRequestID: "req-ghi",
		},
		{
			name:          "unknown error type",
			err:           errors.New("some random error"),
			ctx:           withID("req-jkl"),
			wantStatus:    http.StatusInternalServerError,
			wantCategory:  "internal_server_error",
			wantMessage:   "an unexpected error occurred",
			wantRequestID: "req-jkl",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, errResp := MapError(tt.ctx, tt.err)

			if status != tt.wantStatus {
				t.Errorf("MapError() status = %v, want %v", status, tt.wantStatus)
			}
			if errResp.Error != tt.wantCategory {
				t.Errorf("MapError() category = %v, want %v", errResp.Error, tt.wantCategory)
			}
			if errResp.Message != tt.wantMessage {
				t.Errorf("MapError() message = %v, want %v", errResp.Message, tt.wantMessage)
			}
			if errResp.RequestID != tt.wantRequestID {
				t.Errorf("MapError() request ID = %v, want %v", errResp.RequestID, tt.wantRequestID)
			}
			if tt.wantHasDetails && errResp.Details == nil {
				t.Errorf("MapError() expected details but got nil")
			}
		})
	}
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   string
	}{
		{"validation", NewValidationError("v", nil), http.StatusBadRequest, "validation.failed"},
		{"not found", NewNotFoundError("n"), http.StatusNotFound, "resource.not_found"},
		{"conflict", NewConflictError("c", nil), http.StatusConflict, "resource.conflict"},
		{"unauthorized", NewUnauthorizedError("u"), http.StatusUnauthorized, "auth.unauthorized"},
		{"forbidden", NewForbiddenError("f"), http.StatusForbidden, "auth.forbidden"},
		{"rate limited", NewTooManyRequestsError("r"), http.StatusTooManyRequests, "request.rate_limited"},
		{"internal", NewInternalError("i", nil), http.StatusInternalServerError, "internal.error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestMapError_MaxBytes(t *testing.T) {
	status, body := MapError(context.Background(), fmt.Errorf("read: %w", &http.MaxBytesError{Limit: 32}))
	if status != http.StatusRequestEntityTooLarge || body.Error != "payload_too_large" {
		t.Errorf("MapError() = %d %+v", status, body)
	}

	status, body = MapError(context.Background(), NewPayloadTooLargeError(64))
	if status != http.StatusRequestEntityTooLarge || body.Details["max_size"] != int64(64) {
		t.Errorf("MapError() = %d %+v", status, body)
	}
}
