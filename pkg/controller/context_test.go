package controller

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// mockResponseWriter implements router.ResponseWriter for testing
type mockResponseWriter struct {
	statusCode int
	written    bool
	header     http.Header
}

func newMockResponseWriter() *mockResponseWriter {
	return &mockResponseWriter{
		header:     make(http.Header),
		statusCode: http.StatusOK,
	}
}

func (m *mockResponseWriter) Header() http.Header {
	return m.header
}

func (m *mockResponseWriter) Write(b []byte) (int, error) {
	m.written = true
	return len(b), nil
}

func (m *mockResponseWriter) WriteHeader(statusCode int) {
	m.statusCode = statusCode
	m.written = true
}

func (m *mockResponseWriter) Status() int {
	return m.statusCode
}

func (m *mockResponseWriter) Written() bool {
	return m.written
}

// mockContext implements router.Context for testing
type mockContext struct {
	request      *http.Request
	response     *mockResponseWriter
	body         string
	responseCode int
	responseBody interface{}
}

func (m *mockContext) Request() *http.Request              { return m.request }
func (m *mockContext) SetRequest(r *http.Request)          { m.request = r }
func (m *mockContext) Response() router.ResponseWriter     { return m.response }
func (m *mockContext) SetResponse(w router.ResponseWriter) {}
func (m *mockContext) Param(name string) string            { return "" }
func (m *mockContext) Get(key string) interface{}          { return nil }
func (m *mockContext) Set(key string, value interface{})   {}

func (m *mockContext) Query(name string) string {
	values, _ := url.ParseQuery(m.request.URL.RawQuery)
	return values.Get(name)
}

func (m *mockContext) Bind(v interface{}) error {
	return json.Unmarshal([]byte(m.body), v)
}

func (m *mockContext) JSON(code int, v interface{}) error {
	m.responseCode = code
	m.responseBody = v
	return nil
}

func (m *mockContext) String(code int, s string) error {
	m.responseCode = code
	m.responseBody = s
	return nil
}

func (m *mockContext) NoContent(code int) error {
	m.responseCode = code
	m.response.WriteHeader(code)
	return nil
}

func (m *mockContext) Stream(code int, _ string, body io.Reader) error {
	data, err := io.ReadAll(body)
	m.responseCode = code
	m.responseBody = string(data)
	return err
}
