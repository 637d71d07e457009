package server

import (
	"strings"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/middleware/logging"
	"github.com/nimburion/taskboard/pkg/middleware/metrics"
	"github.com/nimburion/taskboard/pkg/middleware/recovery"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/middleware/requestsize"
	"github.com/nimburion/taskboard/pkg/middleware/tracing"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// UploadPathPrefix is exempt from http.max_request_size; the upload
// handler applies files.max_upload_size itself.
const UploadPathPrefix = "/file"

// PublicAPIServer serves the board API.
type PublicAPIServer struct {
	*Server
}

// NewPublicAPIServer installs the standard middleware stack on r:
// request id, request logging, recovery, metrics, tracing when enabled,
// and the request size cap. Routes are registered on r by the caller.
func NewPublicAPIServer(cfg *config.Config, r router.Router, log logger.Logger) *PublicAPIServer {
	r.Use(PublicMiddleware(cfg, log)...)

	return &PublicAPIServer{
		Server: NewServer(Config{
			Port:         cfg.HTTP.Port,
			ReadTimeout:  cfg.HTTP.ReadTimeout,
			WriteTimeout: cfg.HTTP.WriteTimeout,
			IdleTimeout:  cfg.HTTP.IdleTimeout,
		}, r, log),
	}
}

// PublicMiddleware returns the ordered middleware of the public API.
func PublicMiddleware(cfg *config.Config, log logger.Logger) []router.MiddlewareFunc {
	obs := cfg.Observability

	loggingCfg := logging.DefaultConfig()
	loggingCfg.Enabled = obs.RequestLogging.Enabled
	loggingCfg.LogStart = obs.RequestLogging.LogStart
	loggingCfg.LogBody = obs.RequestLogging.LogBody
	if len(obs.RequestLogging.Fields) > 0 {
		loggingCfg.Fields = obs.RequestLogging.Fields
	}
	loggingCfg.ExcludedPathPrefixes = obs.RequestLogging.ExcludedPathPrefixes
	for _, policy := range obs.RequestLogging.PathPolicies {
		loggingCfg.PathPolicies = append(loggingCfg.PathPolicies, logging.PathPolicy{
			Prefix: policy.PathPrefix,
			Mode:   logging.Mode(policy.Mode),
		})
	}

	type entry struct {
		name string
		fn   router.MiddlewareFunc
	}
	stack := []entry{
		{name: "request_id", fn: requestid.RequestID()},
		{name: "logging", fn: logging.WithConfig(log, loggingCfg)},
		{name: "recovery", fn: recovery.Recovery(log)},
		{name: "metrics", fn: metrics.Metrics()},
	}
	if obs.TracingEnabled && obs.RequestTracing.Enabled {
		stack = append(stack, entry{name: "tracing", fn: tracing.Tracing(tracing.Config{
			ExcludedPathPrefixes: obs.RequestTracing.ExcludedPathPrefixes,
		})})
	}
	stack = append(stack, entry{name: "request_size", fn: requestsize.WithPathLimits(
		cfg.HTTP.MaxRequestSize,
		requestsize.PathLimit{Prefix: UploadPathPrefix},
	)})

	fns := make([]router.MiddlewareFunc, 0, len(stack))
	names := make([]string, 0, len(stack))
	for _, e := range stack {
		fns = append(fns, e.fn)
		names = append(names, e.name)
	}
	log.Debug("active middleware stack", "middlewares", strings.Join(names, ", "))
	return fns
}
