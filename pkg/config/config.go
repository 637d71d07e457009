package config

import "time"

// Router types selectable with router_type.
const (
	RouterNetHTTP = "nethttp"
	RouterGin     = "gin"
	RouterGorilla = "gorilla"
)

// Database type constants
const (
	// DatabaseTypeMemory keeps every collection in process memory
	DatabaseTypeMemory = "memory"
	// DatabaseTypePostgres represents PostgreSQL database
	DatabaseTypePostgres = "postgres"
	// DatabaseTypeMongoDB represents MongoDB database
	DatabaseTypeMongoDB = "mongodb"
)

// File storage backend constants
const (
	// FilesBackendLocal stores uploads in a local directory
	FilesBackendLocal = "local"
	// FilesBackendS3 stores uploads in an S3 bucket
	FilesBackendS3 = "s3"
)

// Rate limit backend constants
const (
	// RateLimitBackendMemory keeps token buckets per process
	RateLimitBackendMemory = "memory"
	// RateLimitBackendRedis shares fixed windows across replicas through Redis
	RateLimitBackendRedis = "redis"
)

// Config is the root configuration structure of the taskboard service
type Config struct {
	RouterType    string `mapstructure:"router_type"`
	Service       ServiceConfig
	HTTP          HTTPConfig
	Management    ManagementConfig
	Database      DatabaseConfig
	Auth          AuthConfig
	Files         FilesConfig
	S3            S3Config
	RateLimit     RateLimitConfig `mapstructure:"rate_limit"`
	Observability ObservabilityConfig
}

// ServiceConfig configures service identity metadata.
type ServiceConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// HTTPConfig configures the public API server
type HTTPConfig struct {
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	MaxRequestSize int64         `mapstructure:"max_request_size"`
}

// ManagementConfig configures the management server
type ManagementConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	MTLSEnabled  bool          `mapstructure:"mtls_enabled"`
	TLSCertFile  string        `mapstructure:"tls_cert_file"`
	TLSKeyFile   string        `mapstructure:"tls_key_file"`
	TLSCAFile    string        `mapstructure:"tls_ca_file"`
}

// DatabaseConfig configures the persistence backend.
// For postgres either URL or the Postgres parts are used; URL wins when both are set.
type DatabaseConfig struct {
	Type            string         `mapstructure:"type"` // memory, postgres, mongodb
	URL             string         `mapstructure:"url"`
	Postgres        PostgresConfig `mapstructure:"postgres"`
	DatabaseName    string         `mapstructure:"database_name"`
	MaxOpenConns    int            `mapstructure:"max_open_conns"`
	MaxIdleConns    int            `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration  `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration  `mapstructure:"conn_max_idle_time"`
	QueryTimeout    time.Duration  `mapstructure:"query_timeout"`
	ConnectTimeout  time.Duration  `mapstructure:"connect_timeout"`
	AutoMigrate     bool           `mapstructure:"auto_migrate"`
}

// PostgresConfig holds the discrete connection settings of the legacy deployment.
type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DB       string `mapstructure:"db"`
	SSLMode  string `mapstructure:"sslmode"`
}

// AuthConfig configures token issuing and verification
type AuthConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Secret   string        `mapstructure:"secret"`
	TokenTTL time.Duration `mapstructure:"token_ttl"`
	Issuer   string        `mapstructure:"issuer"`
}

// FilesConfig configures upload storage.
type FilesConfig struct {
	Backend string `mapstructure:"backend"` // local, s3
	Dir     string `mapstructure:"dir"`
	// PublicBaseURL prefixes the download url returned after an upload.
	// Empty means http://localhost:<http.port>.
	PublicBaseURL string `mapstructure:"public_base_url"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

// S3Config configures the S3-compatible object store used for uploads.
type S3Config struct {
	Bucket           string        `mapstructure:"bucket"`
	Region           string        `mapstructure:"region"`
	Endpoint         string        `mapstructure:"endpoint"`
	Prefix           string        `mapstructure:"prefix"`
	AccessKeyID      string        `mapstructure:"access_key_id"`
	SecretAccessKey  string        `mapstructure:"secret_access_key"`
	SessionToken     string        `mapstructure:"session_token"`
	UsePathStyle     bool          `mapstructure:"use_path_style"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
}

// RateLimitConfig configures the rate limit middleware in front of /login.
type RateLimitConfig struct {
	Enabled           bool                 `mapstructure:"enabled"`
	Backend           string               `mapstructure:"backend"` // memory, redis
	RequestsPerSecond int                  `mapstructure:"requests_per_second"`
	Burst             int                  `mapstructure:"burst"`
	Window            time.Duration        `mapstructure:"window"`
	Redis             RateLimitRedisConfig `mapstructure:"redis"`
}

// RateLimitRedisConfig configures the Redis-backed rate limiter backend.
type RateLimitRedisConfig struct {
	URL              string        `mapstructure:"url"`
	MaxConns         int           `mapstructure:"max_conns"`
	OperationTimeout time.Duration `mapstructure:"operation_timeout"`
	Prefix           string        `mapstructure:"prefix"`
}

// ObservabilityConfig configures logging, metrics, and tracing
type ObservabilityConfig struct {
	LogLevel          string               `mapstructure:"log_level"`
	LogFormat         string               `mapstructure:"log_format"` // json, text
	LogStacktrace     bool                 `mapstructure:"log_stacktrace"`
	LogFiles          []LogFileConfig      `mapstructure:"log_files"`
	ServiceName       string               `mapstructure:"service_name"`
	TracingEnabled    bool                 `mapstructure:"tracing_enabled"`
	TracingSampleRate float64              `mapstructure:"tracing_sample_rate"`
	TracingEndpoint   string               `mapstructure:"tracing_endpoint"`
	TracingInsecure   bool                 `mapstructure:"tracing_insecure"`
	RequestLogging    RequestLoggingConfig `mapstructure:"request_logging"`
	RequestTracing    RequestTracingConfig `mapstructure:"request_tracing"`
}

// LogFileConfig configures one file transport with its own level.
type LogFileConfig struct {
	Path  string `mapstructure:"path"`
	Level string `mapstructure:"level"`
}

// RequestLoggingConfig configures HTTP request logging middleware behavior.
type RequestLoggingConfig struct {
	Enabled              bool                   `mapstructure:"enabled"`
	LogStart             bool                   `mapstructure:"log_start"`
	Fields               []string               `mapstructure:"fields"`
	ExcludedPathPrefixes []string               `mapstructure:"excluded_path_prefixes"`
	PathPolicies         []RequestLogPathPolicy `mapstructure:"path_policies"`
	LogBody              bool                   `mapstructure:"log_body"`
}

// RequestLogPathPolicy configures request logging mode for a path prefix.
type RequestLogPathPolicy struct {
	PathPrefix string `mapstructure:"path_prefix"`
	Mode       string `mapstructure:"mode"` // off, minimal, full
}

// RequestTracingConfig configures HTTP tracing middleware behavior.
type RequestTracingConfig struct {
	Enabled              bool     `mapstructure:"enabled"`
	ExcludedPathPrefixes []string `mapstructure:"excluded_path_prefixes"`
}

// DefaultConfig returns a configuration that runs standalone on the memory backend.
func DefaultConfig() *Config {
	return &Config{
		RouterType: RouterNetHTTP,
		Service: ServiceConfig{
			Name:        "taskboard",
			Environment: "development",
		},
		HTTP: HTTPConfig{
			Port:           4000,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxRequestSize: 1 << 20,
		},
		Management: ManagementConfig{
			Enabled:      true,
			Port:         9090,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Type: DatabaseTypeMemory,
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
			DatabaseName:    "taskboard",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 5 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
			QueryTimeout:    10 * time.Second,
			ConnectTimeout:  10 * time.Second,
		},
		Auth: AuthConfig{
			Enabled:  false,
			TokenTTL: 12 * time.Hour,
			Issuer:   "taskboard",
		},
		Files: FilesConfig{
			Backend:       FilesBackendLocal,
			Dir:           "uploads",
			MaxUploadSize: 32 << 20,
		},
		S3: S3Config{
			Region:           "us-east-1",
			OperationTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			Backend:           RateLimitBackendMemory,
			RequestsPerSecond: 5,
			Burst:             10,
			Window:            time.Second,
			Redis: RateLimitRedisConfig{
				Prefix:           "taskboard:ratelimit",
				MaxConns:         10,
				OperationTimeout: 2 * time.Second,
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:          "info",
			LogFormat:         "json",
			TracingSampleRate: 0.1,
			TracingEndpoint:   "localhost:4317",
			TracingInsecure:   true,
			RequestLogging: RequestLoggingConfig{
				Enabled:  true,
				LogStart: true,
				Fields: []string{
					"request_id", "method", "path", "query_string", "status", "duration_ms", "remote_addr", "user_id",
				},
			},
			RequestTracing: RequestTracingConfig{
				Enabled: true,
			},
		},
	}
}
