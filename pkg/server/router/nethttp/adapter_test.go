package nethttp

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/contract"
)

func TestRouterContract(t *testing.T) {
	contract.TestRouterContract(t, func() router.Router {
		return NewRouter()
	})
}

func TestMatchRoute(t *testing.T) {
	tests := []struct {
		name    string
		pattern string
		path    string
		want    map[string]string
		ok      bool
	}{
		{name: "static", pattern: "/boards", path: "/boards", want: map[string]string{}, ok: true},
		{name: "trailing slash", pattern: "/boards", path: "/boards/", want: map[string]string{}, ok: true},
		{name: "two params", pattern: "/boards/:boardId/tasks/:taskId", path: "/boards/b1/tasks/t2", want: map[string]string{"boardId": "b1", "taskId": "t2"}, ok: true},
		{name: "static mismatch", pattern: "/boards/:boardId/tasks", path: "/boards/b1/columns", ok: false},
		{name: "length mismatch", pattern: "/users/:userId", path: "/users", ok: false},
		{name: "empty param", pattern: "/file/:filename", path: "/file//", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := matchRoute(tt.pattern, tt.path)
			if ok != tt.ok {
				t.Fatalf("expected match=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if len(got) != len(tt.want) {
				t.Fatalf("expected params %v, got %v", tt.want, got)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("param %s: expected %q, got %q", k, v, got[k])
				}
			}
		})
	}
}

func TestNetHTTPRouter_FirstRegisteredRouteWins(t *testing.T) {
	r := NewRouter()
	r.GET("/users/:userId", func(c router.Context) error { return c.String(http.StatusOK, "param") })
	r.GET("/users/me", func(c router.Context) error { return c.String(http.StatusOK, "static") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	if w.Body.String() != "param" {
		t.Fatalf("expected first registered route, got %q", w.Body.String())
	}
}

func TestNetHTTPRouter_GroupSnapshotsMiddleware(t *testing.T) {
	r := NewRouter()
	api := r.Group("/api")
	r.Use(func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Response().Header().Set("X-Late", "1")
			return next(c)
		}
	})
	api.GET("/ping", func(c router.Context) error { return c.String(http.StatusOK, "pong") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if w.Header().Get("X-Late") != "" {
		t.Fatal("middleware added to the parent after Group must not apply to the group")
	}
}
