// Package app assembles the board service from configuration: persistence
// backend, repositories, services, HTTP handlers and health checks.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/auth/login"
	"github.com/nimburion/taskboard/pkg/boards"
	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/files"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/middleware/authz"
	"github.com/nimburion/taskboard/pkg/middleware/ratelimit"
	"github.com/nimburion/taskboard/pkg/migrate"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/factory"
	"github.com/nimburion/taskboard/pkg/store"
	"github.com/nimburion/taskboard/pkg/store/s3"
	"github.com/nimburion/taskboard/pkg/tasks"
	"github.com/nimburion/taskboard/pkg/users"
)

// App holds the wired components of one service instance.
type App struct {
	Config  *config.Config
	Backend *store.Backend
	Health  *health.Registry

	Users  *users.Service
	Boards *boards.Service
	Tasks  *tasks.Service
	// Login is nil when no signing secret is configured.
	Login  *login.Service
	Signer *auth.HMACSigner

	files        files.Storage
	objectStore  *s3.Adapter
	limiter      ratelimit.RateLimiter
	closeLimiter func() error
	log          logger.Logger
}

// New opens the configured backends and wires the services on top of them.
func New(cfg *config.Config, log logger.Logger) (*App, error) {
	backend, err := store.Open(cfg.Database, log)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	objectStore, err := store.OpenObjectStore(cfg.Files, cfg.S3, log)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("open object store: %w", err)
	}

	var storage files.Storage
	if objectStore != nil {
		storage = files.NewS3Storage(objectStore)
	} else {
		storage = files.NewLocalStorage(cfg.Files.Dir)
	}

	a, err := NewWithBackend(cfg, log, backend, storage)
	if err != nil {
		_ = backend.Close()
		if objectStore != nil {
			_ = objectStore.Close()
		}
		return nil, err
	}
	a.objectStore = objectStore
	if objectStore != nil {
		a.Health.Register(health.NewObjectStoreChecker("object_store", objectStore))
	}
	return a, nil
}

// NewWithBackend wires the services over an already opened backend and file storage.
func NewWithBackend(cfg *config.Config, log logger.Logger, backend *store.Backend, storage files.Storage) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}
	if backend == nil {
		return nil, errors.New("backend is required")
	}

	a := &App{
		Config:       cfg,
		Backend:      backend,
		Health:       health.NewRegistry(),
		files:        storage,
		closeLimiter: func() error { return nil },
		log:          log,
	}

	var (
		userRepo  users.Repository
		boardRepo boards.Repository
		taskRepo  tasks.Repository
	)
	if backend.IsSQL() {
		userRepo = users.NewPostgresRepository(backend.SQL)
		boardRepo = boards.NewPostgresRepository(backend.SQL)
		taskRepo = tasks.NewPostgresRepository(backend.SQL)
	} else {
		userRepo = users.NewDocumentRepository(backend.Documents)
		boardRepo = boards.NewDocumentRepository(backend.Documents)
		taskRepo = tasks.NewDocumentRepository(backend.Documents)
	}

	a.Boards = boards.NewService(boardRepo, taskRepo, backend.Tx, log)
	a.Tasks = tasks.NewService(taskRepo, a.Boards, log)
	a.Users = users.NewService(userRepo, a.Tasks, backend.Tx, log)

	if cfg.Auth.Secret != "" {
		signer, err := auth.NewHMACSigner(cfg.Auth.Secret,
			auth.WithTTL(cfg.Auth.TokenTTL),
			auth.WithIssuer(cfg.Auth.Issuer),
		)
		if err != nil {
			return nil, fmt.Errorf("create token signer: %w", err)
		}
		a.Signer = signer
		a.Login = login.NewService(userRepo, signer, log)
	}

	if cfg.RateLimit.Enabled {
		limiter, closeFn, err := ratelimit.New(cfg.RateLimit, log)
		if err != nil {
			return nil, fmt.Errorf("create rate limiter: %w", err)
		}
		a.limiter = limiter
		a.closeLimiter = closeFn
		if checkable, ok := limiter.(health.Checkable); ok {
			a.Health.Register(health.NewRateLimiterChecker("rate_limiter", checkable))
		}
	}

	a.Health.Register(health.NewDatabaseChecker("database", backend))
	return a, nil
}

// Prepare brings the backend to a usable state: postgres gets its schema
// when database.auto_migrate is set, document backends get their collections
// and the admin user.
// Migration 001 seeds the admin on postgres.
func (a *App) Prepare(ctx context.Context) error {
	if a.Backend.IsSQL() {
		if !a.Config.Database.AutoMigrate {
			return nil
		}
		return migrate.AutoMigrate(ctx, a.Backend.DB, a.log)
	}
	for _, name := range []string{users.Collection, boards.BoardCollection, boards.ColumnCollection, tasks.Collection} {
		if err := a.Backend.Documents.EnsureCollection(ctx, name); err != nil {
			return fmt.Errorf("ensure collection %s: %w", name, err)
		}
	}
	return a.Users.EnsureAdmin(ctx)
}

// RegisterRoutes mounts the API on r. Outside /login and /file every route
// requires a bearer token when auth.enabled is set.
func (a *App) RegisterRoutes(r router.Router) {
	if a.Login != nil {
		var mw []router.MiddlewareFunc
		if a.limiter != nil {
			mw = append(mw, ratelimit.RateLimit(a.limiter, ratelimit.Config{}))
		}
		login.NewHandler(a.Login).Register(r, mw...)
	}

	files.NewHandler(a.files, a.Config.FilesBaseURL(), a.Config.Files.MaxUploadSize, a.log).Register(r)

	var protected []router.MiddlewareFunc
	if a.Config.Auth.Enabled && a.Signer != nil {
		protected = append(protected, authz.Authenticate(a.Signer, a.log))
	}
	users.NewHandler(a.Users).Register(r, protected...)
	boards.NewHandler(a.Boards).Register(r, protected...)
	tasks.NewHandler(a.Tasks).Register(r, protected...)
}

// Close releases the limiter, object store and backend, joining their errors.
func (a *App) Close() error {
	var errs []error
	if err := a.closeLimiter(); err != nil {
		errs = append(errs, fmt.Errorf("close rate limiter: %w", err))
	}
	if a.objectStore != nil {
		if err := a.objectStore.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close object store: %w", err))
		}
	}
	if err := a.Backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}

// ServerOptions returns the bootstrap options that serve this app:
// Prepare runs as a startup hook and Close as a shutdown hook.
func (a *App) ServerOptions(publicRouter router.Router) *server.Options {
	return &server.Options{
		Config:         a.Config,
		PublicRouter:   publicRouter,
		Logger:         a.log,
		HealthRegistry: a.Health,
		StartupHooks: []server.LifecycleHook{
			{Name: "prepare-backend", Fn: a.Prepare},
		},
		ShutdownHooks: []server.LifecycleHook{
			{Name: "close-backends", Fn: func(context.Context) error { return a.Close() }},
		},
	}
}

// Serve runs the public and management servers until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	r, err := factory.NewRouter(a.Config.RouterType)
	if err != nil {
		_ = a.Close()
		return fmt.Errorf("create public router: %w", err)
	}
	opts := a.ServerOptions(r)
	servers, err := server.BuildHTTPServers(opts)
	if err != nil {
		_ = a.Close()
		return err
	}
	// Routes go in after the middleware stack: gin binds global middleware at registration.
	a.RegisterRoutes(r)
	return server.RunHTTPServers(ctx, servers, opts)
}
