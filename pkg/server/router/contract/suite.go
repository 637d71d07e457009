// Package contract holds the conformance suite every router adapter must pass.
package contract

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/server/router"
)

// TestRouterContract runs the shared router conformance suite against routers built by createRouter.
func TestRouterContract(t *testing.T, createRouter func() router.Router) {
	t.Helper()

	t.Run("http_methods", func(t *testing.T) {
		register := map[string]func(r router.Router, h router.HandlerFunc){
			http.MethodGet:    func(r router.Router, h router.HandlerFunc) { r.GET("/boards", h) },
			http.MethodPost:   func(r router.Router, h router.HandlerFunc) { r.POST("/boards", h) },
			http.MethodPut:    func(r router.Router, h router.HandlerFunc) { r.PUT("/boards", h) },
			http.MethodDelete: func(r router.Router, h router.HandlerFunc) { r.DELETE("/boards", h) },
			http.MethodPatch:  func(r router.Router, h router.HandlerFunc) { r.PATCH("/boards", h) },
		}

		for method, add := range register {
			t.Run(method, func(t *testing.T) {
				r := createRouter()
				add(r, func(c router.Context) error {
					return c.String(http.StatusOK, c.Request().Method)
				})

				res := performRequest(r, method, "/boards", nil, "")
				if res.Code != http.StatusOK || res.Body.String() != method {
					t.Fatalf("expected 200 %q, got %d %q", method, res.Code, res.Body.String())
				}
			})
		}
	})

	t.Run("not_found_is_json", func(t *testing.T) {
		r := createRouter()
		r.GET("/boards", func(c router.Context) error { return c.String(http.StatusOK, "[]") })

		for _, tc := range []struct{ method, path string }{
			{http.MethodGet, "/unknown"},
			{http.MethodGet, "/boards/extra/segments"},
			{http.MethodDelete, "/boards"},
		} {
			res := performRequest(r, tc.method, tc.path, nil, "")
			if res.Code != http.StatusNotFound {
				t.Fatalf("%s %s: expected 404, got %d", tc.method, tc.path, res.Code)
			}
			body := decodeFallback(t, res)
			if body.Error != "not_found" {
				t.Fatalf("%s %s: expected not_found body, got %+v", tc.method, tc.path, body)
			}
		}
	})

	t.Run("groups", func(t *testing.T) {
		r := createRouter()
		boards := r.Group("/boards")
		boards.GET("/:boardId", func(c router.Context) error {
			return c.String(http.StatusOK, "board "+c.Param("boardId"))
		})

		tasks := boards.Group("/:boardId/tasks", func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("scope", "tasks")
				return next(c)
			}
		})
		tasks.GET("/:taskId", func(c router.Context) error {
			return c.String(http.StatusOK, c.Get("scope").(string)+" "+c.Param("boardId")+"/"+c.Param("taskId"))
		})

		if res := performRequest(r, http.MethodGet, "/boards/b1", nil, ""); res.Body.String() != "board b1" {
			t.Fatalf("unexpected group response %d %q", res.Code, res.Body.String())
		}
		if res := performRequest(r, http.MethodGet, "/boards/b1/tasks/t7", nil, ""); res.Body.String() != "tasks b1/t7" {
			t.Fatalf("unexpected nested group response %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("middleware_order", func(t *testing.T) {
		r := createRouter()
		var order []string
		trace := func(name string) router.MiddlewareFunc {
			return func(next router.HandlerFunc) router.HandlerFunc {
				return func(c router.Context) error {
					order = append(order, name)
					return next(c)
				}
			}
		}

		r.Use(trace("global"))
		r.GET("/users", func(c router.Context) error {
			order = append(order, "handler")
			return c.String(http.StatusOK, "ok")
		}, trace("route"))

		performRequest(r, http.MethodGet, "/users", nil, "")
		if strings.Join(order, ",") != "global,route,handler" {
			t.Fatalf("unexpected middleware order: %v", order)
		}
	})

	t.Run("middleware_short_circuit", func(t *testing.T) {
		r := createRouter()
		called := false
		r.GET("/users", func(c router.Context) error {
			called = true
			return c.String(http.StatusOK, "never")
		}, func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				return c.JSON(http.StatusUnauthorized, map[string]string{"message": "Unauthorized"})
			}
		})

		res := performRequest(r, http.MethodGet, "/users", nil, "")
		if called {
			t.Fatal("handler must not run after middleware answered")
		}
		if res.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401, got %d", res.Code)
		}
	})

	t.Run("path_params", func(t *testing.T) {
		r := createRouter()
		r.GET("/file/:filename", func(c router.Context) error {
			if c.Param("missing") != "" {
				t.Error("missing parameter must return empty string")
			}
			return c.String(http.StatusOK, c.Param("filename"))
		})

		if res := performRequest(r, http.MethodGet, "/file/photo.png", nil, ""); res.Body.String() != "photo.png" {
			t.Fatalf("expected photo.png, got %q", res.Body.String())
		}
	})

	t.Run("query_params", func(t *testing.T) {
		r := createRouter()
		r.GET("/tasks", func(c router.Context) error { return c.String(http.StatusOK, c.Query("limit")) })

		for query, want := range map[string]string{"?limit=5": "5", "?limit=1&limit=2": "1", "": ""} {
			if res := performRequest(r, http.MethodGet, "/tasks"+query, nil, ""); res.Body.String() != want {
				t.Fatalf("query %q: expected %q, got %q", query, want, res.Body.String())
			}
		}
	})

	t.Run("bind", func(t *testing.T) {
		type board struct {
			Title string `json:"title"`
		}

		r := createRouter()
		r.POST("/boards", func(c router.Context) error {
			var in board
			if err := c.Bind(&in); err != nil {
				return c.String(http.StatusBadRequest, "bind-error")
			}
			return c.String(http.StatusOK, in.Title)
		})

		payload, _ := json.Marshal(board{Title: "Sprint"})
		if res := performRequest(r, http.MethodPost, "/boards", bytes.NewReader(payload), "application/json"); res.Body.String() != "Sprint" {
			t.Fatalf("expected Sprint, got %q", res.Body.String())
		}

		rejected := []struct {
			name        string
			body        io.Reader
			contentType string
		}{
			{"invalid json", strings.NewReader("{"), "application/json"},
			{"empty body", nil, "application/json"},
			{"unsupported content type", strings.NewReader("title=x"), "text/plain"},
		}
		for _, tc := range rejected {
			if res := performRequest(r, http.MethodPost, "/boards", tc.body, tc.contentType); res.Code != http.StatusBadRequest {
				t.Fatalf("%s: expected 400, got %d", tc.name, res.Code)
			}
		}
	})

	t.Run("responses", func(t *testing.T) {
		r := createRouter()
		r.POST("/json", func(c router.Context) error {
			return c.JSON(http.StatusCreated, map[string]string{"id": "b1"})
		})
		r.GET("/string", func(c router.Context) error {
			return c.String(http.StatusAccepted, "hello")
		})

		res := performRequest(r, http.MethodPost, "/json", nil, "")
		if res.Code != http.StatusCreated || !strings.Contains(res.Header().Get("Content-Type"), "application/json") {
			t.Fatalf("expected 201 json, got %d %q", res.Code, res.Header().Get("Content-Type"))
		}

		res = performRequest(r, http.MethodGet, "/string", nil, "")
		if res.Code != http.StatusAccepted || res.Body.String() != "hello" {
			t.Fatalf("expected 202 hello, got %d %q", res.Code, res.Body.String())
		}
		if !strings.Contains(res.Header().Get("Content-Type"), "text/plain") {
			t.Fatalf("expected text/plain, got %q", res.Header().Get("Content-Type"))
		}
	})

	t.Run("no_content_and_stream", func(t *testing.T) {
		r := createRouter()
		r.DELETE("/boards/:boardId", func(c router.Context) error {
			return c.NoContent(http.StatusNoContent)
		})
		r.GET("/file/:filename", func(c router.Context) error {
			c.Response().Header().Set("Content-Disposition", "inline")
			return c.Stream(http.StatusOK, "image/png", strings.NewReader("\x89PNG"))
		})

		res := performRequest(r, http.MethodDelete, "/boards/b1", nil, "")
		if res.Code != http.StatusNoContent || res.Body.Len() != 0 {
			t.Fatalf("expected empty 204, got %d %q", res.Code, res.Body.String())
		}

		res = performRequest(r, http.MethodGet, "/file/logo.png", nil, "")
		if res.Code != http.StatusOK || res.Body.String() != "\x89PNG" {
			t.Fatalf("expected streamed body, got %d %q", res.Code, res.Body.String())
		}
		if res.Header().Get("Content-Type") != "image/png" || res.Header().Get("Content-Disposition") != "inline" {
			t.Fatalf("unexpected headers %v", res.Header())
		}
	})

	t.Run("context_storage", func(t *testing.T) {
		r := createRouter()
		r.Use(func(next router.HandlerFunc) router.HandlerFunc {
			return func(c router.Context) error {
				c.Set("userId", "u1")
				return next(c)
			}
		})
		r.GET("/ctx", func(c router.Context) error {
			if c.Get("missing") != nil {
				t.Error("expected nil for missing key")
			}
			return c.String(http.StatusOK, c.Get("userId").(string))
		})

		if res := performRequest(r, http.MethodGet, "/ctx", nil, ""); res.Body.String() != "u1" {
			t.Fatalf("expected u1, got %q", res.Body.String())
		}
	})

	t.Run("unhandled_error_hides_cause", func(t *testing.T) {
		r := createRouter()
		r.GET("/boom", func(c router.Context) error { return errors.New("pq: connection refused") })

		res := performRequest(r, http.MethodGet, "/boom", nil, "")
		if res.Code != http.StatusInternalServerError {
			t.Fatalf("expected 500, got %d", res.Code)
		}
		if strings.Contains(res.Body.String(), "connection refused") {
			t.Fatalf("error text leaked: %q", res.Body.String())
		}
		if body := decodeFallback(t, res); body.Error != "internal_server_error" {
			t.Fatalf("unexpected body %+v", body)
		}
	})

	t.Run("written_response_wins_over_error", func(t *testing.T) {
		r := createRouter()
		r.GET("/partial", func(c router.Context) error {
			if err := c.String(http.StatusBadRequest, "bad"); err != nil {
				return err
			}
			return errors.New("ignored")
		})

		res := performRequest(r, http.MethodGet, "/partial", nil, "")
		if res.Code != http.StatusBadRequest || res.Body.String() != "bad" {
			t.Fatalf("expected 400 bad, got %d %q", res.Code, res.Body.String())
		}
	})

	t.Run("response_writer", func(t *testing.T) {
		r := createRouter()
		r.DELETE("/boards/:boardId", func(c router.Context) error {
			rw := c.Response()
			if rw.Written() {
				t.Error("Written must be false before writes")
			}
			rw.WriteHeader(http.StatusNoContent)
			if !rw.Written() || rw.Status() != http.StatusNoContent {
				t.Errorf("expected written 204, got %v %d", rw.Written(), rw.Status())
			}
			return nil
		})

		if res := performRequest(r, http.MethodDelete, "/boards/b1", nil, ""); res.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", res.Code)
		}
	})
}

func decodeFallback(t *testing.T, res *httptest.ResponseRecorder) router.FallbackBody {
	t.Helper()
	var body router.FallbackBody
	if err := json.Unmarshal(res.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body, got %q: %v", res.Body.String(), err)
	}
	return body
}

func performRequest(r router.Router, method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	var testBody io.Reader = http.NoBody
	if body != nil {
		testBody = body
	}
	req := httptest.NewRequest(method, path, testBody)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}
