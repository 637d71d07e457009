package router

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// ErrEmptyBody is returned by BindJSON for requests without a body.
var ErrEmptyBody = errors.New("request body is empty")

// BindJSON decodes the JSON body of req into v and closes the body.
// Adapters implement Context.Bind with it.
func BindJSON(req *http.Request, v interface{}) error {
	if req.Body == nil || req.Body == http.NoBody {
		return ErrEmptyBody
	}
	defer req.Body.Close()

	contentType := req.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil || mediaType != "application/json" {
		return fmt.Errorf("unsupported content type: %s", contentType)
	}
	return json.NewDecoder(req.Body).Decode(v)
}

// WriteJSON writes v as a JSON body.
func WriteJSON(w http.ResponseWriter, code int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}

// WriteText writes s as a plain text body.
func WriteText(w http.ResponseWriter, code int, s string) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(code)
	_, err := io.WriteString(w, s)
	return err
}

// WriteStream copies body to w. Headers are committed before the copy, so a
// failed copy can only be reported through the returned error.
func WriteStream(w http.ResponseWriter, code int, contentType string, body io.Reader) error {
	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.WriteHeader(code)
	_, err := io.Copy(w, body)
	return err
}

// FallbackBody is the JSON body adapters write when no handler produced a response.
// It has the same shape as controller.ErrorResponse.
type FallbackBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// WriteNotFound answers a request that matched no route.
func WriteNotFound(w http.ResponseWriter) {
	_ = WriteJSON(w, http.StatusNotFound, FallbackBody{
		Error:   "not_found",
		Code:    "route.not_found",
		Message: "route not found",
	})
}

// WriteUnhandledError answers a request whose handler failed without writing a response.
// The error text is never exposed to the client.
func WriteUnhandledError(w http.ResponseWriter) {
	_ = WriteJSON(w, http.StatusInternalServerError, FallbackBody{
		Error:   "internal_server_error",
		Message: "an unexpected error occurred",
	})
}
