package files

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/middleware/testutil"
	"github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

func newTestRouter(t *testing.T, limit int64) http.Handler {
	t.Helper()
	r := nethttp.NewRouter()
	storage := newLocalStorage(afero.NewMemMapFs(), "uploads")
	NewHandler(storage, "http://localhost:4000/", limit, &testutil.MockLogger{}).Register(r)
	return r
}

func multipartBody(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = io.WriteString(part, content)
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart writer: %v", err)
	}
	return buf, mw.FormDataContentType()
}

func upload(t *testing.T, h http.Handler, field, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, field, filename, content)
	req := httptest.NewRequest(http.MethodPost, "/file", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestUploadThenDownload(t *testing.T) {
	h := newTestRouter(t, 0)

	// Given: an uploaded text file
	rec := upload(t, h, FormField, "my notes.txt", "remember the milk")
	if rec.Code != http.StatusOK {
		t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	if resp.Message != MsgUploaded || resp.Filename != "my notes.txt" {
		t.Fatalf("unexpected upload response: %+v", resp)
	}
	if resp.URL != "http://localhost:4000/file/my%20notes.txt" {
		t.Fatalf("url = %q", resp.URL)
	}

	// When: the file is requested by its url path
	req := httptest.NewRequest(http.MethodGet, "/file/my%20notes.txt", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	// Then: the stored bytes come back
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "remember the milk" {
		t.Fatalf("download body = %q", rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type = %q", ct)
	}
}

func TestUploadStripsDirectories(t *testing.T) {
	h := newTestRouter(t, 0)
	rec := upload(t, h, FormField, "../../etc/passwd", "x")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp UploadResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Filename != "passwd" {
		t.Fatalf("filename = %q, want passwd", resp.Filename)
	}
}

func TestUploadErrors(t *testing.T) {
	tests := []struct {
		name    string
		limit   int64
		build   func(t *testing.T) *http.Request
		message string
	}{
		{
			name: "wrong field",
			build: func(t *testing.T) *http.Request {
				body, ct := multipartBody(t, "attachment", "a.txt", "x")
				req := httptest.NewRequest(http.MethodPost, "/file", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			message: MsgNoFile,
		},
		{
			name: "not multipart",
			build: func(t *testing.T) *http.Request {
				req := httptest.NewRequest(http.MethodPost, "/file", strings.NewReader(`{"file":"a"}`))
				req.Header.Set("Content-Type", "application/json")
				return req
			},
			message: MsgNoFile,
		},
		{
			name:  "over the limit",
			limit: 16,
			build: func(t *testing.T) *http.Request {
				body, ct := multipartBody(t, FormField, "big.bin", strings.Repeat("a", 64))
				req := httptest.NewRequest(http.MethodPost, "/file", body)
				req.Header.Set("Content-Type", ct)
				return req
			},
			message: MsgTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t, tt.limit)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, tt.build(t))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400 (body %s)", rec.Code, rec.Body.String())
			}
			var body controller.ErrorResponse
			_ = json.Unmarshal(rec.Body.Bytes(), &body)
			if body.Message != tt.message {
				t.Fatalf("message = %q, want %q", body.Message, tt.message)
			}
		})
	}
}

func TestDownloadMissing(t *testing.T) {
	h := newTestRouter(t, 0)
	req := httptest.NewRequest(http.MethodGet, "/file/nothing.txt", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var body controller.ErrorResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Message != MsgNotFound {
		t.Fatalf("message = %q, want %q", body.Message, MsgNotFound)
	}
}
