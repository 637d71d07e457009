package server

import (
	"net/http"
	"time"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/health"
	"github.com/nimburion/taskboard/pkg/middleware/logging"
	"github.com/nimburion/taskboard/pkg/middleware/recovery"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/observability/metrics"
	"github.com/nimburion/taskboard/pkg/server/router"
	"github.com/nimburion/taskboard/pkg/version"
)

// ManagementServer serves health, readiness, metrics and version on a
// port separate from the public API.
type ManagementServer struct {
	*Server
	healthRegistry  *health.Registry
	metricsRegistry *metrics.Registry
}

// NewManagementServer registers the management endpoints on r:
//
//	GET /health   liveness, always 200
//	GET /ready    readiness, 503 when a dependency check fails
//	GET /metrics  Prometheus exposition
//	GET /version  build metadata
//
// With mtls_enabled the server requires client certificates signed by tls_ca_file.
func NewManagementServer(
	cfg config.ManagementConfig,
	r router.Router,
	log logger.Logger,
	healthRegistry *health.Registry,
	metricsRegistry *metrics.Registry,
	info version.Info,
) (*ManagementServer, error) {
	if healthRegistry == nil {
		healthRegistry = health.NewRegistry()
	}
	if metricsRegistry == nil {
		metricsRegistry = metrics.NewRegistry()
	}

	r.Use(
		requestid.RequestID(),
		logging.WithConfig(log, managementLogging()),
		recovery.Recovery(log),
	)

	serverCfg := Config{
		Port:         cfg.Port,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}
	if cfg.MTLSEnabled {
		tlsConfig, err := managementTLS(cfg)
		if err != nil {
			return nil, err
		}
		serverCfg.TLSConfig = tlsConfig
		log.Info("management mTLS enabled")
	}

	s := &ManagementServer{
		Server:          NewServer(serverCfg, r, log),
		healthRegistry:  healthRegistry,
		metricsRegistry: metricsRegistry,
	}
	r.GET("/health", s.handleHealth)
	r.GET("/ready", s.handleReady)
	r.GET("/metrics", s.handleMetrics)
	r.GET("/version", func(c router.Context) error {
		return c.JSON(http.StatusOK, info)
	})
	return s, nil
}

// Probes are polled constantly; only failures are worth an entry.
func managementLogging() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.LogStart = false
	cfg.PathPolicies = []logging.PathPolicy{
		{Prefix: "/health", Mode: logging.ModeOff},
		{Prefix: "/metrics", Mode: logging.ModeOff},
	}
	return cfg
}

func (s *ManagementServer) handleHealth(c router.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status": "healthy",
	})
}

func (s *ManagementServer) handleReady(c router.Context) error {
	result := s.healthRegistry.Check(c.Request().Context())
	if !result.IsHealthy() {
		return c.JSON(http.StatusServiceUnavailable, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (s *ManagementServer) handleMetrics(c router.Context) error {
	s.metricsRegistry.Handler().ServeHTTP(c.Response(), c.Request())
	return nil
}
