package gin

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

func TestGinRouter_MiddlewareBoundAtRegistration(t *testing.T) {
	r := NewRouter()
	tag := func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			c.Response().Header().Set("X-Request-ID", "r1")
			return next(c)
		}
	}
	ok := func(c router.Context) error { return c.NoContent(http.StatusNoContent) }

	r.GET("/early", ok)
	r.Use(tag)
	r.GET("/late", ok)

	for path, want := range map[string]string{"/early": "", "/late": "r1"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if got := w.Header().Get("X-Request-ID"); got != want {
			t.Fatalf("%s: X-Request-ID = %q, want %q", path, got, want)
		}
	}
}
