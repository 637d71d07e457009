// Package logging writes one structured entry per HTTP request.
package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nimburion/taskboard/pkg/auth"
	"github.com/nimburion/taskboard/pkg/middleware/requestid"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/server/router"
)

// Mode defines logging verbosity for matching request paths.
type Mode string

// Logging mode constants
const (
	// ModeOff disables request logging
	ModeOff Mode = "off"
	// ModeMinimal logs only the completion entry
	ModeMinimal Mode = "minimal"
	// ModeFull logs start and completion, plus the body when enabled
	ModeFull Mode = "full"
)

// Log field name constants
const (
	FieldRequestID     = "request_id"
	FieldMethod        = "method"
	FieldPath          = "path"
	FieldStatus        = "status"
	FieldDurationMS    = "duration_ms"
	FieldError         = "error"
	FieldRemoteAddr    = "remote_addr"
	FieldQueryString   = "query_string"
	FieldUserAgent     = "user_agent"
	FieldRequestLength = "request_length"
	FieldUserID        = "user_id"
	FieldBody          = "body"
)

var (
	defaultFields = []string{
		FieldRequestID,
		FieldMethod,
		FieldPath,
		FieldStatus,
		FieldDurationMS,
		FieldQueryString,
		FieldRemoteAddr,
		FieldError,
	}
	validFields = map[string]struct{}{
		FieldRequestID:     {},
		FieldMethod:        {},
		FieldPath:          {},
		FieldStatus:        {},
		FieldDurationMS:    {},
		FieldError:         {},
		FieldRemoteAddr:    {},
		FieldQueryString:   {},
		FieldUserAgent:     {},
		FieldRequestLength: {},
		FieldUserID:        {},
	}
	fieldAliases = map[string]string{
		"query":           FieldQueryString,
		"http_user_agent": FieldUserAgent,
		"user":            FieldUserID,
	}
)

// Config configures request logging middleware behavior.
type Config struct {
	Enabled              bool
	LogStart             bool
	Fields               []string
	ExcludedPathPrefixes []string
	PathPolicies         []PathPolicy
	// LogBody adds the decoded JSON request body to the completion entry.
	LogBody bool
	// BodyExcludedPrefixes never get their body logged; they carry credentials.
	BodyExcludedPrefixes []string
	// MaxBodyBytes bounds how much of the body is captured.
	MaxBodyBytes int64
}

// PathPolicy configures a logging mode for a path prefix.
type PathPolicy struct {
	Prefix string
	Mode   Mode
}

// DefaultConfig returns default request logging behavior.
func DefaultConfig() Config {
	return Config{
		Enabled:              true,
		LogStart:             true,
		Fields:               append([]string{}, defaultFields...),
		ExcludedPathPrefixes: []string{},
		PathPolicies:         []PathPolicy{},
		BodyExcludedPrefixes: []string{"/login", "/users"},
		MaxBodyBytes:         16 << 10,
	}
}

// Logging creates middleware with default configuration.
func Logging(log logger.Logger) router.MiddlewareFunc {
	return WithConfig(log, DefaultConfig())
}

// WithConfig creates request logging middleware with custom configuration.
// It emits "request started", then "request completed" or "request failed".
func WithConfig(log logger.Logger, cfg Config) router.MiddlewareFunc {
	normalized := normalize(cfg)

	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(c router.Context) error {
			path := c.Request().URL.Path
			mode := normalized.modeForPath(path)
			if mode == ModeOff {
				return next(c)
			}

			start := time.Now()
			req := c.Request()

			var body []byte
			if mode == ModeFull && normalized.bodyLogged(req) {
				body = captureBody(req, normalized.MaxBodyBytes)
			}

			if normalized.LogStart && mode == ModeFull {
				log.Info("request started", normalized.buildFields(c, start, 0, nil, true)...)
			}

			err := next(c)
			status := c.Response().Status()
			if err != nil && !c.Response().Written() {
				status = http.StatusInternalServerError
			}

			fields := normalized.buildFields(c, start, status, err, false)
			if body != nil {
				fields = append(fields, FieldBody, decodeBody(body))
			}

			if err != nil || status >= http.StatusInternalServerError {
				log.Error("request failed", fields...)
				return err
			}
			log.Info("request completed", fields...)
			return nil
		}
	}
}

func normalize(cfg Config) Config {
	normalized := cfg
	if !normalized.Enabled {
		return normalized
	}

	for index := range normalized.PathPolicies {
		normalized.PathPolicies[index].Mode = parseMode(normalized.PathPolicies[index].Mode)
	}
	normalized.Fields = normalizeFields(normalized.Fields)
	if normalized.MaxBodyBytes <= 0 {
		normalized.MaxBodyBytes = DefaultConfig().MaxBodyBytes
	}
	return normalized
}

func (c Config) modeForPath(path string) Mode {
	if !c.Enabled {
		return ModeOff
	}

	for _, prefix := range c.ExcludedPathPrefixes {
		if strings.HasPrefix(path, prefix) {
			return ModeOff
		}
	}

	bestLen := -1
	bestMode := ModeFull
	for _, policy := range c.PathPolicies {
		if strings.TrimSpace(policy.Prefix) == "" {
			continue
		}
		if strings.HasPrefix(path, policy.Prefix) && len(policy.Prefix) > bestLen {
			bestLen = len(policy.Prefix)
			bestMode = policy.Mode
		}
	}
	return bestMode
}

func (c Config) bodyLogged(req *http.Request) bool {
	if !c.LogBody || req.Body == nil || req.Body == http.NoBody {
		return false
	}
	if !strings.Contains(req.Header.Get("Content-Type"), "application/json") {
		return false
	}
	for _, prefix := range c.BodyExcludedPrefixes {
		if strings.HasPrefix(req.URL.Path, prefix) {
			return false
		}
	}
	return true
}

// captureBody reads up to limit bytes and puts them back in front of the remaining body.
func captureBody(req *http.Request, limit int64) []byte {
	buf, err := io.ReadAll(io.LimitReader(req.Body, limit))
	req.Body = struct {
		io.Reader
		io.Closer
	}{io.MultiReader(bytes.NewReader(buf), req.Body), req.Body}
	if err != nil {
		return nil
	}
	return buf
}

func decodeBody(raw []byte) any {
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw)
	}
	return decoded
}

func parseMode(mode Mode) Mode {
	switch strings.ToLower(strings.TrimSpace(string(mode))) {
	case string(ModeOff):
		return ModeOff
	case string(ModeMinimal):
		return ModeMinimal
	default:
		return ModeFull
	}
}

func normalizeFields(fields []string) []string {
	if len(fields) == 0 {
		return append([]string{}, defaultFields...)
	}

	normalized := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, field := range fields {
		name := strings.ToLower(strings.TrimSpace(field))
		if alias, ok := fieldAliases[name]; ok {
			name = alias
		}
		if _, ok := validFields[name]; !ok {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		normalized = append(normalized, name)
	}
	if len(normalized) == 0 {
		return append([]string{}, defaultFields...)
	}
	return normalized
}

func (c Config) buildFields(rc router.Context, start time.Time, status int, err error, isStart bool) []any {
	args := make([]any, 0, len(c.Fields)*2)
	for _, field := range c.Fields {
		value, ok := resolveFieldValue(field, rc, start, status, err, isStart)
		if !ok {
			continue
		}
		args = append(args, field, value)
	}
	return args
}

func resolveFieldValue(field string, rc router.Context, start time.Time, status int, err error, isStart bool) (any, bool) {
	req := rc.Request()
	switch field {
	case FieldRequestID:
		return requestid.GetRequestID(req.Context()), true
	case FieldMethod:
		return req.Method, true
	case FieldPath:
		return req.URL.Path, true
	case FieldStatus:
		if isStart {
			return nil, false
		}
		return status, true
	case FieldDurationMS:
		if isStart {
			return nil, false
		}
		return time.Since(start).Milliseconds(), true
	case FieldError:
		if err == nil {
			return nil, false
		}
		return err.Error(), true
	case FieldRemoteAddr:
		return req.RemoteAddr, true
	case FieldQueryString:
		return req.URL.RawQuery, true
	case FieldUserAgent:
		return req.UserAgent(), true
	case FieldRequestLength:
		if req.ContentLength < 0 {
			return int64(0), true
		}
		return req.ContentLength, true
	case FieldUserID:
		claims := auth.GetClaims(req.Context())
		if claims == nil {
			return nil, false
		}
		return claims.UserID, true
	default:
		return nil, false
	}
}
