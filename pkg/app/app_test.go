package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/nimburion/taskboard/pkg/boards"
	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/document"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/middleware/testutil"
	"github.com/nimburion/taskboard/pkg/repository"
	"github.com/nimburion/taskboard/pkg/server"
	"github.com/nimburion/taskboard/pkg/server/router/factory"
	"github.com/nimburion/taskboard/pkg/tasks"
)

func testConfig(t *testing.T, routerType string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.RouterType = routerType
	cfg.Auth.Enabled = true
	cfg.Auth.Secret = "test-secret"
	cfg.Files.Dir = t.TempDir()
	cfg.Files.PublicBaseURL = "http://files.test"
	cfg.RateLimit.RequestsPerSecond = 100
	cfg.RateLimit.Burst = 100
	return cfg
}

// newTestAPI serves the app behind the public middleware stack, as serve does.
func newTestAPI(t *testing.T, cfg *config.Config) (http.Handler, *App) {
	t.Helper()
	log := &testutil.MockLogger{}
	a, err := New(cfg, log)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })
	if err := a.Prepare(context.Background()); err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}

	r, err := factory.NewRouter(cfg.RouterType)
	if err != nil {
		t.Fatal(err)
	}
	public := server.NewPublicAPIServer(cfg, r, log)
	a.RegisterRoutes(r)
	return public.Handler(), a
}

type client struct {
	t     *testing.T
	h     http.Handler
	token string
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.h.ServeHTTP(rec, req)
	return rec
}

func (c *client) expect(method, path, body string, status int) map[string]interface{} {
	c.t.Helper()
	rec := c.do(method, path, body)
	if rec.Code != status {
		c.t.Fatalf("%s %s status = %d, want %d, body = %s", method, path, rec.Code, status, rec.Body.String())
	}
	if rec.Body.Len() == 0 || rec.Body.Bytes()[0] != '{' {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		c.t.Fatalf("%s %s: decode body: %v", method, path, err)
	}
	return out
}

func (c *client) expectList(path string) []map[string]interface{} {
	c.t.Helper()
	rec := c.do(http.MethodGet, path, "")
	if rec.Code != http.StatusOK {
		c.t.Fatalf("GET %s status = %d, body = %s", path, rec.Code, rec.Body.String())
	}
	var out []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		c.t.Fatalf("GET %s: decode body: %v", path, err)
	}
	return out
}

func TestAPI_EndToEnd(t *testing.T) {
	for _, routerType := range factory.SupportedTypes() {
		t.Run(routerType, func(t *testing.T) {
			h, _ := newTestAPI(t, testConfig(t, routerType))
			c := &client{t: t, h: h}

			// Given no token, protected routes are rejected
			body := c.expect(http.MethodGet, "/users", "", http.StatusUnauthorized)
			if body["message"] != "Authorization header is required" {
				t.Fatalf("unexpected 401 body %v", body)
			}

			// When the seeded admin logs in with a wrong password
			body = c.expect(http.MethodPost, "/login", `{"login":"admin","password":"nope"}`, http.StatusForbidden)
			if body["message"] != "Login or password is incorrect" {
				t.Fatalf("unexpected 403 body %v", body)
			}

			// Then the right password yields a usable token
			body = c.expect(http.MethodPost, "/login", `{"login":"admin","password":"admin"}`, http.StatusOK)
			token, _ := body["token"].(string)
			if token == "" {
				t.Fatalf("login returned no token: %v", body)
			}
			c.token = token

			user := c.expect(http.MethodPost, "/users", `{"name":"Ann","login":"ann","password":"secret"}`, http.StatusCreated)
			userID := user["id"].(string)
			if _, ok := user["password"]; ok {
				t.Fatal("password must not be serialized")
			}
			c.expect(http.MethodPost, "/users", `{"name":"Other","login":"ann","password":"x"}`, http.StatusConflict)

			list := c.expectList("/users")
			if len(list) != 2 {
				t.Fatalf("users = %d, want admin and ann", len(list))
			}

			board := c.expect(http.MethodPost, "/boards", `{"title":"Sprint","columns":[{"title":"Todo","order":1}]}`, http.StatusCreated)
			boardID := board["id"].(string)

			task := c.expect(http.MethodPost, "/boards/"+boardID+"/tasks",
				`{"title":"Write","order":1,"description":"docs","userId":"`+userID+`","columnId":null}`,
				http.StatusCreated)
			taskID := task["id"].(string)
			if task["boardId"] != boardID {
				t.Fatalf("boardId = %v, want path board %s", task["boardId"], boardID)
			}

			// When the assignee is deleted the task stays, unassigned
			c.expect(http.MethodDelete, "/users/"+userID, "", http.StatusNoContent)
			task = c.expect(http.MethodGet, "/boards/"+boardID+"/tasks/"+taskID, "", http.StatusOK)
			if task["userId"] != nil {
				t.Fatalf("userId = %v, want null after user delete", task["userId"])
			}

			// When the board is deleted its tasks go with it
			c.expect(http.MethodDelete, "/boards/"+boardID, "", http.StatusNoContent)
			c.expect(http.MethodGet, "/boards/"+boardID, "", http.StatusNotFound)
			c.expect(http.MethodGet, "/boards/"+boardID+"/tasks/"+taskID, "", http.StatusNotFound)
		})
	}
}

func TestAPI_FileRoundTrip(t *testing.T) {
	for _, routerType := range factory.SupportedTypes() {
		t.Run(routerType, func(t *testing.T) {
			h, _ := newTestAPI(t, testConfig(t, routerType))

			var buf bytes.Buffer
			mw := multipart.NewWriter(&buf)
			part, err := mw.CreateFormFile("file", "notes.txt")
			if err != nil {
				t.Fatal(err)
			}
			_, _ = part.Write([]byte("hello board"))
			_ = mw.Close()

			// Uploads need no token
			req := httptest.NewRequest(http.MethodPost, "/file", &buf)
			req.Header.Set("Content-Type", mw.FormDataContentType())
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != http.StatusOK {
				t.Fatalf("upload status = %d, body = %s", rec.Code, rec.Body.String())
			}
			var uploaded struct {
				Filename string `json:"filename"`
				URL      string `json:"url"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &uploaded); err != nil {
				t.Fatal(err)
			}
			if uploaded.URL != "http://files.test/file/notes.txt" {
				t.Fatalf("url = %q", uploaded.URL)
			}

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/file/notes.txt", nil))
			if rec.Code != http.StatusOK || rec.Body.String() != "hello board" {
				t.Fatalf("download status = %d, body = %q", rec.Code, rec.Body.String())
			}

			rec = httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/file/missing.txt", nil))
			if rec.Code != http.StatusNotFound {
				t.Fatalf("missing file status = %d", rec.Code)
			}
		})
	}
}

func TestAPI_AuthDisabled(t *testing.T) {
	cfg := testConfig(t, "nethttp")
	cfg.Auth.Enabled = false
	h, _ := newTestAPI(t, cfg)
	c := &client{t: t, h: h}

	list := c.expectList("/boards")
	if len(list) != 0 {
		t.Fatalf("boards = %v, want empty", list)
	}
	c.expect(http.MethodPost, "/login", `{"login":"admin","password":"admin"}`, http.StatusOK)
}

func TestAPI_LoginRateLimited(t *testing.T) {
	cfg := testConfig(t, "nethttp")
	cfg.RateLimit.RequestsPerSecond = 1
	cfg.RateLimit.Burst = 1
	h, _ := newTestAPI(t, cfg)
	c := &client{t: t, h: h}

	c.expect(http.MethodPost, "/login", `{"login":"admin","password":"nope"}`, http.StatusForbidden)
	rec := c.do(http.MethodPost, "/login", `{"login":"admin","password":"nope"}`)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second login status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Fatal("missing Retry-After header")
	}
}

func TestApp_WithoutSecretHasNoLogin(t *testing.T) {
	cfg := testConfig(t, "nethttp")
	cfg.Auth.Enabled = false
	cfg.Auth.Secret = ""
	h, a := newTestAPI(t, cfg)

	if a.Login != nil {
		t.Fatal("login service must be nil without a secret")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{}`)))
	if rec.Code != http.StatusNotFound && rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("login status = %d, want route missing", rec.Code)
	}
}

func TestApp_HealthAndPrepare(t *testing.T) {
	_, a := newTestAPI(t, testConfig(t, "nethttp"))

	result := a.Health.Check(context.Background())
	if result.Status != health.StatusHealthy {
		t.Fatalf("health status = %s, checks = %+v", result.Status, result.Checks)
	}

	// Prepare is idempotent: the admin is seeded once
	if err := a.Prepare(context.Background()); err != nil {
		t.Fatal(err)
	}
	list, err := a.Users.List(context.Background(), repository.Pagination{Limit: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Login != "admin" {
		t.Fatalf("users = %+v, want the single admin", list)
	}

	mem, ok := a.Backend.Documents.(*document.MemoryCollections)
	if !ok {
		t.Fatalf("documents backend = %T", a.Backend.Documents)
	}
	if got := strings.Join(mem.Store().Collections(), ","); got != "Board,Column,Task,User" {
		t.Fatalf("collections = %s", got)
	}
}

func TestNewWithBackend_Validation(t *testing.T) {
	log := &testutil.MockLogger{}
	if _, err := NewWithBackend(nil, log, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
	if _, err := NewWithBackend(config.DefaultConfig(), nil, nil, nil); err == nil {
		t.Fatal("expected error for nil logger")
	}
	if _, err := NewWithBackend(config.DefaultConfig(), log, nil, nil); err == nil {
		t.Fatal("expected error for nil backend")
	}
}

func TestApp_ServerOptions(t *testing.T) {
	cfg := testConfig(t, "nethttp")
	a, err := New(cfg, &testutil.MockLogger{})
	if err != nil {
		t.Fatal(err)
	}
	r, _ := factory.NewRouter(cfg.RouterType)

	opts := a.ServerOptions(r)
	if opts.PublicRouter != r || opts.HealthRegistry != a.Health {
		t.Fatal("options must carry the app router and health registry")
	}
	if len(opts.StartupHooks) != 1 || len(opts.ShutdownHooks) != 1 {
		t.Fatalf("hooks = %d/%d", len(opts.StartupHooks), len(opts.ShutdownHooks))
	}
	if err := opts.StartupHooks[0].Fn(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := opts.ShutdownHooks[0].Fn(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestApp_BoardDeleteLeavesNoOrphanTasks(t *testing.T) {
	_, a := newTestAPI(t, testConfig(t, "nethttp"))
	ctx := context.Background()
	store := a.Backend.Documents.(*document.MemoryCollections).Store()

	for round := 0; round < 20; round++ {
		b, err := a.Boards.Create(ctx, &boards.CreateBoardRequest{Title: "race"})
		if err != nil {
			t.Fatal(err)
		}

		// Given: tasks being created while the board is deleted
		var wg sync.WaitGroup
		for w := 0; w < 4; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 10; i++ {
					_, _ = a.Tasks.Create(ctx, b.ID, &tasks.CreateTaskRequest{Title: "t", Description: "d"})
				}
			}()
		}
		if err := a.Boards.Delete(ctx, b.ID); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		wg.Wait()

		// Then: none of the board's tasks survive
		if left := store.GetDocuments(tasks.Collection, document.Match(document.Eq("boardId", b.ID))); len(left) != 0 {
			t.Fatalf("round %d: %d orphan tasks", round, len(left))
		}
	}
}
