package server

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/nimburion/taskboard/pkg/middleware/testutil"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/nethttp"
)

func TestServerStartAndShutdown(t *testing.T) {
	// Given: a server on a free port
	r := nethttp.NewRouter()
	r.GET("/ping", func(c router.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	log := &testutil.MockLogger{}
	srv := NewServer(Config{Port: 0, ReadTimeout: 5 * time.Second, WriteTimeout: 5 * time.Second}, r, log)
	if err := srv.Listen(); err != nil {
		t.Fatalf("Listen() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errChan := make(chan error, 1)
	go func() { errChan <- srv.Start(ctx) }()

	// When: a request is made
	resp, err := http.Get("http://" + srv.Addr() + "/ping")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()

	// Then: it is served
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	// When: the context is cancelled
	cancel()

	// Then: shutdown completes cleanly
	select {
	case err := <-errChan:
		if err != nil {
			t.Errorf("Start() returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server shutdown timed out")
	}
	if _, ok := log.Find("server shutdown complete"); !ok {
		t.Error("expected shutdown to be logged")
	}
}

func TestServerPortInUse(t *testing.T) {
	first := NewServer(Config{}, nethttp.NewRouter(), &testutil.MockLogger{})
	if err := first.Listen(); err != nil {
		t.Fatal(err)
	}
	defer first.Shutdown(context.Background())

	port := first.Addr()[strings.LastIndex(first.Addr(), ":")+1:]
	second := NewServer(Config{}, nethttp.NewRouter(), &testutil.MockLogger{})
	second.httpServer.Addr = ":" + port

	err := second.Start(context.Background())
	if err == nil || !strings.Contains(err.Error(), "server failed to start") {
		t.Fatalf("Start() error = %v, want bind failure", err)
	}
}

func TestNewServerDefaults(t *testing.T) {
	srv := NewServer(Config{Port: 4000}, nethttp.NewRouter(), &testutil.MockLogger{})
	if srv.config.ShutdownTimeout != defaultShutdownTimeout {
		t.Errorf("shutdown timeout = %v, want %v", srv.config.ShutdownTimeout, defaultShutdownTimeout)
	}
	if srv.Addr() != ":4000" {
		t.Errorf("Addr() before Listen = %q", srv.Addr())
	}
	if srv.Handler() == nil {
		t.Error("expected handler")
	}
}
