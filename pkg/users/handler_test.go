package users

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/nimburion/taskboard/pkg/controller"
	"github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	svc, _, _ := newTestService(t)
	r := nethttp.NewRouter()
	NewHandler(svc).Register(r)
	return r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) controller.ErrorResponse {
	t.Helper()
	var body controller.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("error body is not JSON: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHandler_CreateAndGet(t *testing.T) {
	h := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/users", `{"name":"Ann","login":"ann","password":"pw"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("password leaked in response: %s", rec.Body.String())
	}
	var created User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = do(t, h, http.MethodGet, "/users/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}
	var got User
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != created.ID || got.Login != "ann" || got.Name != "Ann" {
		t.Errorf("unexpected user %+v", got)
	}
}

func TestHandler_Errors(t *testing.T) {
	const missing = "6f1c8a4e-1b5e-4c5a-9d6e-2a3b4c5d6e7f"

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		wantStatus  int
		wantMessage string
	}{
		{
			name: "missing required field", method: http.MethodPost, path: "/users",
			body: `{"name":"Ann","password":"pw"}`, wantStatus: http.StatusBadRequest, wantMessage: "User.login is required.",
		},
		{
			name: "wrong field type", method: http.MethodPost, path: "/users",
			body: `{"name":1,"login":"ann","password":"pw"}`, wantStatus: http.StatusBadRequest, wantMessage: "name is not valid => [String]",
		},
		{
			name: "malformed json", method: http.MethodPost, path: "/users",
			body: `{"name":`, wantStatus: http.StatusBadRequest,
		},
		{
			name: "invalid id", method: http.MethodGet, path: "/users/42",
			wantStatus: http.StatusBadRequest, wantMessage: MsgInvalidID,
		},
		{
			name: "unknown user", method: http.MethodGet, path: "/users/" + missing,
			wantStatus: http.StatusNotFound, wantMessage: "User with the id " + missing + " is not found",
		},
		{
			name: "update unknown user", method: http.MethodPut, path: "/users/" + missing,
			body: `{"name":"x"}`, wantStatus: http.StatusNotFound,
		},
		{
			name: "delete invalid id", method: http.MethodDelete, path: "/users/not-a-uuid",
			wantStatus: http.StatusBadRequest, wantMessage: MsgInvalidID,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(t)
			rec := do(t, h, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d, body = %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantMessage != "" {
				if got := decodeError(t, rec).Message; got != tt.wantMessage {
					t.Errorf("message = %q, want %q", got, tt.wantMessage)
				}
			}
		})
	}
}

func TestHandler_DuplicateLogin(t *testing.T) {
	h := newTestRouter(t)
	body := `{"name":"Ann","login":"ann","password":"pw"}`

	if rec := do(t, h, http.MethodPost, "/users", body); rec.Code != http.StatusCreated {
		t.Fatalf("first create status = %d", rec.Code)
	}
	rec := do(t, h, http.MethodPost, "/users", body)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if got := decodeError(t, rec).Message; got != MsgLoginTaken {
		t.Errorf("message = %q", got)
	}
}

func TestHandler_ListPaginates(t *testing.T) {
	h := newTestRouter(t)
	for _, login := range []string{"a", "b", "c"} {
		if rec := do(t, h, http.MethodPost, "/users", `{"name":"n","login":"`+login+`","password":"pw"}`); rec.Code != http.StatusCreated {
			t.Fatalf("create %s status = %d", login, rec.Code)
		}
	}

	rec := do(t, h, http.MethodGet, "/users?limit=2&offset=1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var list []User
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list) != 2 || list[0].Login != "b" || list[1].Login != "c" {
		t.Errorf("unexpected page %+v", list)
	}

	if rec := do(t, h, http.MethodGet, "/users?limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("invalid limit status = %d, want 400", rec.Code)
	}
}

func TestHandler_Delete(t *testing.T) {
	h := newTestRouter(t)
	rec := do(t, h, http.MethodPost, "/users", `{"name":"Ann","login":"ann","password":"pw"}`)
	var created User
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	if rec := do(t, h, http.MethodDelete, "/users/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/users/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete status = %d", rec.Code)
	}
}
