package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/observability/tracing"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/server/router/factory"
	"github.com/nimburion/taskboard/pkg/version"
)

// LifecycleHook defines a named startup/shutdown action.
type LifecycleHook struct {
	Name string
	Fn   func(context.Context) error
}

// Options defines inputs for building and running the HTTP servers.
type Options struct {
	Config *config.Config

	// PublicRouter is optional. If nil, a router is created from Config.RouterType.
	PublicRouter router.Router
	// ManagementRouter is optional. If nil and management is enabled, a router is created.
	ManagementRouter router.Router

	Logger logger.Logger

	HealthRegistry  *health.Registry
	MetricsRegistry *metrics.Registry

	StartupHooks        []LifecycleHook
	ShutdownHooks       []LifecycleHook
	ShutdownHookTimeout time.Duration
}

// HTTPServers groups the runtime public/management servers.
type HTTPServers struct {
	Public     *PublicAPIServer
	Management *ManagementServer
}

// BuildHTTPServers constructs the servers. Missing routers are created from
// Config.RouterType and missing registries are created empty.
func BuildHTTPServers(opts *Options) (*HTTPServers, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if opts.Logger == nil {
		log, err := logger.NewZapLogger(logger.Config{Level: logger.InfoLevel, Format: logger.JSONFormat})
		if err != nil {
			return nil, err
		}
		opts.Logger = log
	}

	if opts.PublicRouter == nil {
		r, err := factory.NewRouter(opts.Config.RouterType)
		if err != nil {
			return nil, fmt.Errorf("create public router: %w", err)
		}
		opts.PublicRouter = r
	}
	servers := &HTTPServers{Public: NewPublicAPIServer(opts.Config, opts.PublicRouter, opts.Logger)}
	if !opts.Config.Management.Enabled {
		return servers, nil
	}

	if opts.ManagementRouter == nil {
		r, err := factory.NewRouter(opts.Config.RouterType)
		if err != nil {
			return nil, fmt.Errorf("create management router: %w", err)
		}
		opts.ManagementRouter = r
	}
	if opts.HealthRegistry == nil {
		opts.HealthRegistry = health.NewRegistry()
	}
	if opts.MetricsRegistry == nil {
		opts.MetricsRegistry = metrics.NewRegistry()
	}

	managementServer, err := NewManagementServer(
		opts.Config.Management,
		opts.ManagementRouter,
		opts.Logger,
		opts.HealthRegistry,
		opts.MetricsRegistry,
		version.Current(serviceName(opts.Config)),
	)
	if err != nil {
		return nil, fmt.Errorf("create management server: %w", err)
	}
	servers.Management = managementServer
	return servers, nil
}

// RunHTTPServers runs the startup hooks, serves until ctx is cancelled or a
// server fails, then runs the shutdown hooks.
func RunHTTPServers(ctx context.Context, servers *HTTPServers, opts *Options) error {
	if servers == nil || servers.Public == nil {
		return errors.New("servers and public server are required")
	}
	if opts.Logger == nil {
		return errors.New("logger is required")
	}
	if opts.Config == nil {
		return errors.New("config is required")
	}

	info := version.Current(serviceName(opts.Config))
	opts.Logger.Info("application version metadata",
		"service", info.Service,
		"version", info.Version,
		"commit", info.Commit,
		"build_time", info.BuildTime,
	)

	provider, err := tracing.NewTracerProvider(ctx, tracerConfig(opts.Config, info))
	if err != nil {
		return fmt.Errorf("initialize tracing provider: %w", err)
	}
	defer shutdownTracerProvider(provider, opts.Logger)

	if err := runStartupHooks(ctx, opts); err != nil {
		return err
	}
	defer func() {
		if shutdownErr := runShutdownHooks(opts); shutdownErr != nil {
			opts.Logger.Error("shutdown hooks completed with errors", "error", shutdownErr)
		}
	}()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	running := []interface{ Start(context.Context) error }{servers.Public}
	if servers.Management != nil {
		running = append(running, servers.Management)
	}
	errCh := make(chan error, len(running))
	for _, srv := range running {
		go func(srv interface{ Start(context.Context) error }) { errCh <- srv.Start(runCtx) }(srv)
	}

	var firstErr error
	for range running {
		if err := <-errCh; err != nil && firstErr == nil {
			firstErr = err
			cancel()
		}
	}
	return firstErr
}

// RunHTTPServersWithSignals runs servers until SIGINT or SIGTERM.
func RunHTTPServersWithSignals(servers *HTTPServers, opts *Options, signals ...os.Signal) error {
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	ctx, stop := signal.NotifyContext(context.Background(), signals...)
	defer stop()
	return RunHTTPServers(ctx, servers, opts)
}

func tracerConfig(cfg *config.Config, info version.Info) tracing.TracerConfig {
	name := strings.TrimSpace(cfg.Observability.ServiceName)
	if name == "" {
		name = info.Service
	}
	env := strings.TrimSpace(cfg.Service.Environment)
	if env == "" {
		env = version.Unknown
	}
	return tracing.TracerConfig{
		ServiceName:    name,
		ServiceVersion: info.Version,
		Environment:    env,
		Endpoint:       cfg.Observability.TracingEndpoint,
		SampleRate:     cfg.Observability.TracingSampleRate,
		Insecure:       cfg.Observability.TracingInsecure,
		Enabled:        cfg.Observability.TracingEnabled,
	}
}

func shutdownTracerProvider(provider *tracing.TracerProvider, log logger.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := provider.Shutdown(ctx); err != nil {
		log.Error("failed to shutdown tracing provider", "error", err)
	}
}

func serviceName(cfg *config.Config) string {
	if cfg != nil {
		if name := strings.TrimSpace(cfg.Service.Name); name != "" {
			return name
		}
	}
	return version.Unknown
}

func hookName(h LifecycleHook) string {
	if name := strings.TrimSpace(h.Name); name != "" {
		return name
	}
	return "unnamed"
}

func runStartupHooks(ctx context.Context, opts *Options) error {
	for _, hook := range opts.StartupHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("startup hook start", "hook", name)
		if err := hook.Fn(ctx); err != nil {
			opts.Logger.Error("startup hook failed", "hook", name, "error", err)
			return fmt.Errorf("startup hook %q failed: %w", name, err)
		}
		opts.Logger.Info("startup hook complete", "hook", name)
	}
	return nil
}

// runShutdownHooks runs every hook, each with its own timeout, and joins the failures.
func runShutdownHooks(opts *Options) error {
	timeout := opts.ShutdownHookTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var errs []error
	for _, hook := range opts.ShutdownHooks {
		if hook.Fn == nil {
			continue
		}
		name := hookName(hook)
		opts.Logger.Info("shutdown hook start", "hook", name)

		hookCtx, cancel := context.WithTimeout(context.Background(), timeout)
		err := hook.Fn(hookCtx)
		cancel()

		if err != nil {
			opts.Logger.Error("shutdown hook failed", "hook", name, "error", err)
			errs = append(errs, fmt.Errorf("shutdown hook %q failed: %w", name, err))
			continue
		}
		opts.Logger.Info("shutdown hook complete", "hook", name)
	}
	return errors.Join(errs...)
}
