package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DefaultEnvPrefix is used when the loader is created without a prefix.
const DefaultEnvPrefix = "TASKBOARD"

// Loader defines the interface for loading configuration
type Loader interface {
	Load() (*Config, error)
	Validate(*Config) error
}

// ViperLoader implements Loader using Viper for configuration management
type ViperLoader struct {
	configFile string
	envPrefix  string
}

// NewViperLoader creates a new ViperLoader
// configFile: path to configuration file (optional, can be empty)
// envPrefix: prefix for environment variables (e.g., "TASKBOARD")
func NewViperLoader(configFile, envPrefix string) *ViperLoader {
	return &ViperLoader{
		configFile: configFile,
		envPrefix:  envPrefix,
	}
}

// ConfigFile returns the configured file path, possibly empty.
func (l *ViperLoader) ConfigFile() string {
	return l.configFile
}

// Load loads configuration with precedence: ENV > file > defaults
func (l *ViperLoader) Load() (*Config, error) {
	cfg, _, err := l.load(false)
	return cfg, err
}

func (l *ViperLoader) load(withSecrets bool) (*Config, *Config, error) {
	v := viper.New()
	l.setDefaults(v, DefaultConfig())

	if l.configFile != "" {
		v.SetConfigFile(l.configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
	}

	var secrets *Config
	if withSecrets {
		var err error
		if secrets, err = l.mergeSecrets(v); err != nil {
			return nil, nil, err
		}
	}

	l.bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := l.Validate(&cfg); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, secrets, nil
}

// envBinding maps a config key to its prefixed env suffix and any unprefixed
// names the service has historically been deployed with.
type envBinding struct {
	key    string
	suffix string
	legacy []string
}

var envBindings = []envBinding{
	{key: "router_type", suffix: "ROUTER_TYPE"},
	{key: "service.name", suffix: "SERVICE_NAME"},
	{key: "service.environment", suffix: "ENVIRONMENT", legacy: []string{"NODE_ENV"}},

	{key: "http.port", suffix: "HTTP_PORT", legacy: []string{"PORT"}},
	{key: "http.read_timeout", suffix: "HTTP_READ_TIMEOUT"},
	{key: "http.write_timeout", suffix: "HTTP_WRITE_TIMEOUT"},
	{key: "http.idle_timeout", suffix: "HTTP_IDLE_TIMEOUT"},
	{key: "http.max_request_size", suffix: "HTTP_MAX_REQUEST_SIZE"},

	{key: "management.enabled", suffix: "MGMT_ENABLED"},
	{key: "management.port", suffix: "MGMT_PORT"},
	{key: "management.read_timeout", suffix: "MGMT_READ_TIMEOUT"},
	{key: "management.write_timeout", suffix: "MGMT_WRITE_TIMEOUT"},
	{key: "management.mtls_enabled", suffix: "MGMT_MTLS_ENABLED"},
	{key: "management.tls_cert_file", suffix: "MGMT_TLS_CERT_FILE"},
	{key: "management.tls_key_file", suffix: "MGMT_TLS_KEY_FILE"},
	{key: "management.tls_ca_file", suffix: "MGMT_TLS_CA_FILE"},

	{key: "database.type", suffix: "DB_TYPE"},
	{key: "database.url", suffix: "DB_URL", legacy: []string{"DATABASE_URL"}},
	{key: "database.postgres.host", suffix: "DB_POSTGRES_HOST", legacy: []string{"POSTGRES_HOST"}},
	{key: "database.postgres.port", suffix: "DB_POSTGRES_PORT", legacy: []string{"POSTGRES_PORT"}},
	{key: "database.postgres.user", suffix: "DB_POSTGRES_USER", legacy: []string{"POSTGRES_USER"}},
	{key: "database.postgres.password", suffix: "DB_POSTGRES_PASSWORD", legacy: []string{"POSTGRES_PASSWORD"}},
	{key: "database.postgres.db", suffix: "DB_POSTGRES_DB", legacy: []string{"POSTGRES_DB"}},
	{key: "database.postgres.sslmode", suffix: "DB_POSTGRES_SSLMODE"},
	{key: "database.database_name", suffix: "DB_DATABASE_NAME"},
	{key: "database.max_open_conns", suffix: "DB_MAX_OPEN_CONNS"},
	{key: "database.max_idle_conns", suffix: "DB_MAX_IDLE_CONNS"},
	{key: "database.conn_max_lifetime", suffix: "DB_CONN_MAX_LIFETIME"},
	{key: "database.conn_max_idle_time", suffix: "DB_CONN_MAX_IDLE_TIME"},
	{key: "database.query_timeout", suffix: "DB_QUERY_TIMEOUT"},
	{key: "database.connect_timeout", suffix: "DB_CONNECT_TIMEOUT"},
	{key: "database.auto_migrate", suffix: "DB_AUTO_MIGRATE"},

	{key: "auth.enabled", suffix: "AUTH_ENABLED", legacy: []string{"AUTH_MODE"}},
	{key: "auth.secret", suffix: "AUTH_SECRET", legacy: []string{"JWT_SECRET_KEY"}},
	{key: "auth.token_ttl", suffix: "AUTH_TOKEN_TTL"},
	{key: "auth.issuer", suffix: "AUTH_ISSUER"},

	{key: "files.backend", suffix: "FILES_BACKEND"},
	{key: "files.dir", suffix: "FILES_DIR"},
	{key: "files.public_base_url", suffix: "FILES_PUBLIC_BASE_URL"},
	{key: "files.max_upload_size", suffix: "FILES_MAX_UPLOAD_SIZE"},

	{key: "s3.bucket", suffix: "S3_BUCKET"},
	{key: "s3.region", suffix: "S3_REGION", legacy: []string{"AWS_REGION"}},
	{key: "s3.endpoint", suffix: "S3_ENDPOINT"},
	{key: "s3.prefix", suffix: "S3_PREFIX"},
	{key: "s3.access_key_id", suffix: "S3_ACCESS_KEY_ID"},
	{key: "s3.secret_access_key", suffix: "S3_SECRET_ACCESS_KEY"},
	{key: "s3.session_token", suffix: "S3_SESSION_TOKEN"},
	{key: "s3.use_path_style", suffix: "S3_USE_PATH_STYLE"},
	{key: "s3.operation_timeout", suffix: "S3_OPERATION_TIMEOUT"},

	{key: "rate_limit.enabled", suffix: "RATE_LIMIT_ENABLED"},
	{key: "rate_limit.backend", suffix: "RATE_LIMIT_BACKEND"},
	{key: "rate_limit.requests_per_second", suffix: "RATE_LIMIT_REQUESTS_PER_SECOND"},
	{key: "rate_limit.burst", suffix: "RATE_LIMIT_BURST"},
	{key: "rate_limit.window", suffix: "RATE_LIMIT_WINDOW"},
	{key: "rate_limit.redis.url", suffix: "RATE_LIMIT_REDIS_URL", legacy: []string{"REDIS_URL"}},
	{key: "rate_limit.redis.max_conns", suffix: "RATE_LIMIT_REDIS_MAX_CONNS"},
	{key: "rate_limit.redis.operation_timeout", suffix: "RATE_LIMIT_REDIS_OPERATION_TIMEOUT"},
	{key: "rate_limit.redis.prefix", suffix: "RATE_LIMIT_REDIS_PREFIX"},

	{key: "observability.log_level", suffix: "LOG_LEVEL", legacy: []string{"LOGGER_LEVEL"}},
	{key: "observability.log_format", suffix: "LOG_FORMAT"},
	{key: "observability.log_stacktrace", suffix: "LOG_STACKTRACE"},
	{key: "observability.service_name", suffix: "OBSERVABILITY_SERVICE_NAME"},
	{key: "observability.tracing_enabled", suffix: "TRACING_ENABLED"},
	{key: "observability.tracing_sample_rate", suffix: "TRACING_SAMPLE_RATE"},
	{key: "observability.tracing_endpoint", suffix: "TRACING_ENDPOINT", legacy: []string{"OTEL_EXPORTER_OTLP_ENDPOINT"}},
	{key: "observability.tracing_insecure", suffix: "TRACING_INSECURE"},
	{key: "observability.request_logging.enabled", suffix: "REQUEST_LOGGING_ENABLED"},
	{key: "observability.request_logging.log_start", suffix: "REQUEST_LOGGING_LOG_START"},
	{key: "observability.request_logging.fields", suffix: "REQUEST_LOGGING_FIELDS"},
	{key: "observability.request_logging.excluded_path_prefixes", suffix: "REQUEST_LOGGING_EXCLUDED_PATH_PREFIXES"},
	{key: "observability.request_logging.log_body", suffix: "REQUEST_LOGGING_LOG_BODY"},
	{key: "observability.request_tracing.enabled", suffix: "REQUEST_TRACING_ENABLED"},
	{key: "observability.request_tracing.excluded_path_prefixes", suffix: "REQUEST_TRACING_EXCLUDED_PATH_PREFIXES"},
}

// bindEnvVars explicitly binds environment variables for nested structs.
// The prefixed name always wins over a legacy one.
func (l *ViperLoader) bindEnvVars(v *viper.Viper) {
	for _, binding := range envBindings {
		names := append([]string{l.prefixedEnv(binding.suffix)}, binding.legacy...)
		_ = v.BindEnv(append([]string{binding.key}, names...)...)
	}
}

func (l *ViperLoader) prefixedEnv(suffix string) string {
	prefix := strings.TrimSpace(l.envPrefix)
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	return fmt.Sprintf("%s_%s", strings.ToUpper(prefix), suffix)
}

// setDefaults sets default values in Viper from the default config
func (l *ViperLoader) setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("router_type", cfg.RouterType)
	v.SetDefault("service.name", cfg.Service.Name)
	v.SetDefault("service.environment", cfg.Service.Environment)

	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("http.read_timeout", cfg.HTTP.ReadTimeout)
	v.SetDefault("http.write_timeout", cfg.HTTP.WriteTimeout)
	v.SetDefault("http.idle_timeout", cfg.HTTP.IdleTimeout)
	v.SetDefault("http.max_request_size", cfg.HTTP.MaxRequestSize)

	v.SetDefault("management.enabled", cfg.Management.Enabled)
	v.SetDefault("management.port", cfg.Management.Port)
	v.SetDefault("management.read_timeout", cfg.Management.ReadTimeout)
	v.SetDefault("management.write_timeout", cfg.Management.WriteTimeout)
	v.SetDefault("management.mtls_enabled", cfg.Management.MTLSEnabled)
	v.SetDefault("management.tls_cert_file", cfg.Management.TLSCertFile)
	v.SetDefault("management.tls_key_file", cfg.Management.TLSKeyFile)
	v.SetDefault("management.tls_ca_file", cfg.Management.TLSCAFile)

	v.SetDefault("database.type", cfg.Database.Type)
	v.SetDefault("database.url", cfg.Database.URL)
	v.SetDefault("database.postgres.host", cfg.Database.Postgres.Host)
	v.SetDefault("database.postgres.port", cfg.Database.Postgres.Port)
	v.SetDefault("database.postgres.user", cfg.Database.Postgres.User)
	v.SetDefault("database.postgres.password", cfg.Database.Postgres.Password)
	v.SetDefault("database.postgres.db", cfg.Database.Postgres.DB)
	v.SetDefault("database.postgres.sslmode", cfg.Database.Postgres.SSLMode)
	v.SetDefault("database.database_name", cfg.Database.DatabaseName)
	v.SetDefault("database.max_open_conns", cfg.Database.MaxOpenConns)
	v.SetDefault("database.max_idle_conns", cfg.Database.MaxIdleConns)
	v.SetDefault("database.conn_max_lifetime", cfg.Database.ConnMaxLifetime)
	v.SetDefault("database.conn_max_idle_time", cfg.Database.ConnMaxIdleTime)
	v.SetDefault("database.query_timeout", cfg.Database.QueryTimeout)
	v.SetDefault("database.connect_timeout", cfg.Database.ConnectTimeout)
	v.SetDefault("database.auto_migrate", cfg.Database.AutoMigrate)

	v.SetDefault("auth.enabled", cfg.Auth.Enabled)
	v.SetDefault("auth.secret", cfg.Auth.Secret)
	v.SetDefault("auth.token_ttl", cfg.Auth.TokenTTL)
	v.SetDefault("auth.issuer", cfg.Auth.Issuer)

	v.SetDefault("files.backend", cfg.Files.Backend)
	v.SetDefault("files.dir", cfg.Files.Dir)
	v.SetDefault("files.public_base_url", cfg.Files.PublicBaseURL)
	v.SetDefault("files.max_upload_size", cfg.Files.MaxUploadSize)

	v.SetDefault("s3.bucket", cfg.S3.Bucket)
	v.SetDefault("s3.region", cfg.S3.Region)
	v.SetDefault("s3.endpoint", cfg.S3.Endpoint)
	v.SetDefault("s3.prefix", cfg.S3.Prefix)
	v.SetDefault("s3.access_key_id", cfg.S3.AccessKeyID)
	v.SetDefault("s3.secret_access_key", cfg.S3.SecretAccessKey)
	v.SetDefault("s3.session_token", cfg.S3.SessionToken)
	v.SetDefault("s3.use_path_style", cfg.S3.UsePathStyle)
	v.SetDefault("s3.operation_timeout", cfg.S3.OperationTimeout)

	v.SetDefault("rate_limit.enabled", cfg.RateLimit.Enabled)
	v.SetDefault("rate_limit.backend", cfg.RateLimit.Backend)
	v.SetDefault("rate_limit.requests_per_second", cfg.RateLimit.RequestsPerSecond)
	v.SetDefault("rate_limit.burst", cfg.RateLimit.Burst)
	v.SetDefault("rate_limit.window", cfg.RateLimit.Window)
	v.SetDefault("rate_limit.redis.url", cfg.RateLimit.Redis.URL)
	v.SetDefault("rate_limit.redis.max_conns", cfg.RateLimit.Redis.MaxConns)
	v.SetDefault("rate_limit.redis.operation_timeout", cfg.RateLimit.Redis.OperationTimeout)
	v.SetDefault("rate_limit.redis.prefix", cfg.RateLimit.Redis.Prefix)

	v.SetDefault("observability.log_level", cfg.Observability.LogLevel)
	v.SetDefault("observability.log_format", cfg.Observability.LogFormat)
	v.SetDefault("observability.log_stacktrace", cfg.Observability.LogStacktrace)
	v.SetDefault("observability.service_name", cfg.Observability.ServiceName)
	v.SetDefault("observability.tracing_enabled", cfg.Observability.TracingEnabled)
	v.SetDefault("observability.tracing_sample_rate", cfg.Observability.TracingSampleRate)
	v.SetDefault("observability.tracing_endpoint", cfg.Observability.TracingEndpoint)
	v.SetDefault("observability.tracing_insecure", cfg.Observability.TracingInsecure)
	v.SetDefault("observability.request_logging.enabled", cfg.Observability.RequestLogging.Enabled)
	v.SetDefault("observability.request_logging.log_start", cfg.Observability.RequestLogging.LogStart)
	v.SetDefault("observability.request_logging.fields", cfg.Observability.RequestLogging.Fields)
	v.SetDefault("observability.request_logging.excluded_path_prefixes", cfg.Observability.RequestLogging.ExcludedPathPrefixes)
	v.SetDefault("observability.request_logging.log_body", cfg.Observability.RequestLogging.LogBody)
	v.SetDefault("observability.request_tracing.enabled", cfg.Observability.RequestTracing.Enabled)
	v.SetDefault("observability.request_tracing.excluded_path_prefixes", cfg.Observability.RequestTracing.ExcludedPathPrefixes)
}

// Validate normalizes list settings, then checks cross-field rules.
func (l *ViperLoader) Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.RouterType = strings.ToLower(strings.TrimSpace(cfg.RouterType))
	cfg.Database.Type = strings.ToLower(strings.TrimSpace(cfg.Database.Type))
	cfg.Files.Backend = strings.ToLower(strings.TrimSpace(cfg.Files.Backend))
	cfg.RateLimit.Backend = strings.ToLower(strings.TrimSpace(cfg.RateLimit.Backend))
	cfg.Observability.RequestLogging.Fields = normalizeStringSlice(cfg.Observability.RequestLogging.Fields)
	cfg.Observability.RequestLogging.ExcludedPathPrefixes = normalizeStringSlice(cfg.Observability.RequestLogging.ExcludedPathPrefixes)
	cfg.Observability.RequestTracing.ExcludedPathPrefixes = normalizeStringSlice(cfg.Observability.RequestTracing.ExcludedPathPrefixes)
	return cfg.Validate()
}

// contains checks if a string slice contains a specific string
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// normalizeStringSlice removes empty strings and trims whitespace
func normalizeStringSlice(values []string) []string {
	result := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
