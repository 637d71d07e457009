package contract

import (
	"net/http"
	"testing"

	"github.com/nimburion/taskboard/pkg/server/router"
	nethttpadapter "github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

func TestPerformRequest_SetsContentType(t *testing.T) {
	r := nethttpadapter.NewRouter()
	r.POST("/file", func(c router.Context) error {
		return c.String(http.StatusOK, c.Request().Header.Get("Content-Type"))
	})

	res := performRequest(r, http.MethodPost, "/file", nil, "multipart/form-data")
	if got := res.Body.String(); got != "multipart/form-data" {
		t.Fatalf("expected content-type echo, got %q", got)
	}
}
