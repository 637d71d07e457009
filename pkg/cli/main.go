// Package cli builds the service command line: serve, migrate, version,
// healthcheck and config subcommands over a shared config loader.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/nimburion/taskboard/pkg/config"
	"github.com/nimburion/taskboard/pkg/observability/logger"
	"github.com/nimburion/taskboard/pkg/version"
	"github.com/spf13/cobra"
)

const (
	policiesAnnotationPrefix = "policies."
	defaultPolicyContext     = "run"
)

// CommandPolicy tells deployment tooling when a command is meant to run.
type CommandPolicy string

const (
	PolicyAlways    CommandPolicy = "always"
	PolicyOnce      CommandPolicy = "once"
	PolicyMigration CommandPolicy = "migration"
	PolicyRun       CommandPolicy = "run"
	PolicyOnDemand  CommandPolicy = "on_demand"
)

// ServiceCommandOptions defines callbacks for service-specific logic.
type ServiceCommandOptions struct {
	Name        string
	Description string
	ConfigPath  string
	EnvPrefix   string

	// Required: server startup logic. ctx is cancelled on SIGINT or SIGTERM.
	RunServer func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: migration logic
	RunMigrations func(ctx context.Context, cfg *config.Config, log logger.Logger, direction string, args []string) error

	// Optional: dependency health checks
	CheckDependencies func(ctx context.Context, cfg *config.Config, log logger.Logger) error

	// Optional: custom config validation, run after the built-in validation
	ValidateConfig func(cfg *config.Config) error

	// Optional: additional custom commands
	CustomCommands []*cobra.Command
}

// NewServiceCommand creates the CLI with serve, migrate, version, healthcheck, and config subcommands.
func NewServiceCommand(opts ServiceCommandOptions) *cobra.Command {
	if opts.EnvPrefix == "" {
		opts.EnvPrefix = config.DefaultEnvPrefix
	}

	rootCmd := &cobra.Command{
		Use:           opts.Name,
		Short:         opts.Description,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	SetCommandPolicies(rootCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})

	var cfgPath string
	var envPrefix string
	var secretFilePath string
	var serviceNameOverride string
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", opts.ConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&envPrefix, "env-prefix", opts.EnvPrefix, "prefix of the environment variables")
	rootCmd.PersistentFlags().StringVar(&secretFilePath, "secret-file", "", "path to secrets file (sets <PREFIX>_SECRETS_FILE)")
	rootCmd.PersistentFlags().StringVar(&serviceNameOverride, "service-name", "", "service name override")

	loadConfig := func() (*config.Config, *config.Config, error) {
		return LoadConfig(cfgPath, envPrefix, secretFilePath, opts.ValidateConfig, opts.Name, serviceNameOverride)
	}
	withLogger := func(run func(cfg *config.Config, log logger.Logger) error) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		log, err := NewLogger(cfg.Observability)
		if err != nil {
			return err
		}
		defer func() { _ = log.Close() }()
		logConfigIfDebug(log, cfg)
		return run(cfg, log)
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout(), version.Current(opts.Name))
		},
	}
	SetCommandPolicies(versionCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	rootCmd.AddCommand(versionCmd)

	if opts.RunServer != nil {
		serveCmd := &cobra.Command{
			Use:   "serve",
			Short: "Start the HTTP servers",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLogger(func(cfg *config.Config, log logger.Logger) error {
					ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
					defer stop()
					return opts.RunServer(ctx, cfg, log)
				})
			},
		}
		SetCommandPolicies(serveCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyRun})
		rootCmd.AddCommand(serveCmd)
		rootCmd.RunE = serveCmd.RunE
	}

	if opts.RunMigrations != nil {
		migrateCmd := &cobra.Command{
			Use:   "migrate",
			Short: "Database migration commands",
		}
		SetCommandPolicies(migrateCmd, map[string]CommandPolicy{"migration": PolicyMigration})

		for _, sub := range []struct {
			use, short string
			args       cobra.PositionalArgs
			policy     CommandPolicy
		}{
			{use: "up", short: "Run pending migrations", args: cobra.NoArgs, policy: PolicyRun},
			{use: "down [steps]", short: "Roll back the last migrations (default 1)", args: cobra.MaximumNArgs(1), policy: PolicyOnce},
			{use: "status", short: "Show migration status", args: cobra.NoArgs, policy: PolicyRun},
		} {
			direction := strings.Fields(sub.use)[0]
			subCmd := &cobra.Command{
				Use:   sub.use,
				Short: sub.short,
				Args:  sub.args,
				RunE: func(cmd *cobra.Command, args []string) error {
					return withLogger(func(cfg *config.Config, log logger.Logger) error {
						return opts.RunMigrations(cmd.Context(), cfg, log, direction, args)
					})
				},
			}
			SetCommandPolicies(subCmd, map[string]CommandPolicy{"migration": sub.policy})
			migrateCmd.AddCommand(subCmd)
		}
		rootCmd.AddCommand(migrateCmd)
	}

	if opts.CheckDependencies != nil {
		healthCmd := &cobra.Command{
			Use:   "healthcheck",
			Short: "Check connectivity to dependencies (database, object store, rate limiter)",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withLogger(func(cfg *config.Config, log logger.Logger) error {
					return opts.CheckDependencies(cmd.Context(), cfg, log)
				})
			},
		}
		SetCommandPolicies(healthCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
		rootCmd.AddCommand(healthCmd)
	}

	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management commands",
	}
	SetCommandPolicies(configCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, _, err := loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid")
			return nil
		},
	}
	SetCommandPolicies(validateCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	configCmd.AddCommand(validateCmd)

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show current configuration with credentials masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, secrets, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), cfg.Redacted(secrets))
			return nil
		},
	}
	SetCommandPolicies(showCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	configCmd.AddCommand(showCmd)

	rootCmd.AddCommand(configCmd)

	for _, customCmd := range opts.CustomCommands {
		ensureDefaultPolicy(customCmd)
		rootCmd.AddCommand(customCmd)
	}

	rootCmd.CompletionOptions.DisableDefaultCmd = false
	rootCmd.InitDefaultCompletionCmd()
	for _, subCmd := range rootCmd.Commands() {
		if subCmd != nil && subCmd.Name() == "completion" {
			SetCommandPolicies(subCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyOnDemand})
			break
		}
	}

	return rootCmd
}

func printVersion(w io.Writer, info version.Info) {
	fmt.Fprintf(w, "Service:    %s\n", info.Service)
	fmt.Fprintf(w, "Version:    %s\n", info.Version)
	fmt.Fprintf(w, "Commit:     %s\n", info.Commit)
	fmt.Fprintf(w, "Build Time: %s\n", info.BuildTime)
	fmt.Fprintf(w, "Go:         %s\n", info.GoVersion)
}

// SetCommandPolicies stores policies as a map[string]string on command annotations using the "policies." prefix.
func SetCommandPolicies(cmd *cobra.Command, policies map[string]CommandPolicy) {
	if cmd == nil {
		return
	}
	if cmd.Annotations == nil {
		cmd.Annotations = make(map[string]string)
	}
	for _, key := range policyAnnotationKeys(cmd.Annotations) {
		delete(cmd.Annotations, key)
	}
	for context, policy := range policies {
		trimmedContext := strings.TrimSpace(context)
		if trimmedContext == "" {
			continue
		}
		cmd.Annotations[policiesAnnotationPrefix+trimmedContext] = string(policy)
	}
}

// GetCommandPolicies returns command policies from annotations.
func GetCommandPolicies(cmd *cobra.Command) map[string]string {
	out := map[string]string{}
	if cmd == nil {
		return out
	}
	for key, value := range cmd.Annotations {
		if !strings.HasPrefix(key, policiesAnnotationPrefix) {
			continue
		}
		context := strings.TrimPrefix(key, policiesAnnotationPrefix)
		if strings.TrimSpace(context) == "" {
			continue
		}
		out[context] = value
	}
	return out
}

func ensureDefaultPolicy(cmd *cobra.Command) {
	if cmd == nil {
		return
	}
	if len(GetCommandPolicies(cmd)) == 0 {
		SetCommandPolicies(cmd, map[string]CommandPolicy{defaultPolicyContext: PolicyAlways})
	}
}

func policyAnnotationKeys(annotations map[string]string) []string {
	keys := make([]string, 0, len(annotations))
	for key := range annotations {
		if strings.HasPrefix(key, policiesAnnotationPrefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// LoadConfig loads and validates the configuration. The second value holds
// the fields set by the secrets file, for Config.Redacted.
func LoadConfig(
	cfgPath,
	envPrefix,
	secretFilePath string,
	customValidator func(*config.Config) error,
	defaultServiceName string,
	serviceNameOverride string,
) (*config.Config, *config.Config, error) {
	envPrefix = resolveEnvPrefix(envPrefix)
	if err := applySecretFileFlag(envPrefix, secretFilePath); err != nil {
		return nil, nil, err
	}
	cfg, secrets, err := config.NewViperLoader(cfgPath, envPrefix).LoadWithSecrets()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	applyResolvedServiceName(cfg, defaultServiceName, serviceNameOverride)

	if customValidator != nil {
		if err := customValidator(cfg); err != nil {
			return nil, nil, fmt.Errorf("custom validation failed: %w", err)
		}
	}
	return cfg, secrets, nil
}

// NewLogger builds the zap logger described by the observability section:
// the console plus one file transport per log_files entry, each with its own level.
func NewLogger(obs config.ObservabilityConfig) (*logger.ZapLogger, error) {
	level, err := logger.ParseLogLevel(strings.ToLower(strings.TrimSpace(obs.LogLevel)))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	format, err := logger.ParseLogFormat(strings.ToLower(strings.TrimSpace(obs.LogFormat)))
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	logCfg := logger.Config{
		Level:      level,
		Format:     format,
		Stacktrace: obs.LogStacktrace,
	}
	for _, file := range obs.LogFiles {
		fileLevel := level
		if strings.TrimSpace(file.Level) != "" {
			if fileLevel, err = logger.ParseLogLevel(strings.ToLower(strings.TrimSpace(file.Level))); err != nil {
				return nil, fmt.Errorf("create logger: log file %s: %w", file.Path, err)
			}
		}
		logCfg.Files = append(logCfg.Files, logger.FileConfig{Enabled: true, Path: file.Path, Level: fileLevel})
	}

	log, err := logger.NewZapLogger(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}
	return log, nil
}

func applySecretFileFlag(envPrefix, secretFilePath string) error {
	if secretFilePath == "" {
		return nil
	}
	info, err := os.Stat(secretFilePath)
	if err != nil {
		return fmt.Errorf("secret file %s is not accessible: %w", secretFilePath, err)
	}
	if info.IsDir() {
		return fmt.Errorf("secret file %s must not be a directory", secretFilePath)
	}
	return os.Setenv(resolveEnvPrefix(envPrefix)+"_SECRETS_FILE", filepath.Clean(secretFilePath))
}

// Execute runs the command and exits with appropriate code.
func Execute(cmd *cobra.Command) {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func logConfigIfDebug(log logger.Logger, cfg *config.Config) {
	if log == nil || cfg == nil {
		return
	}
	level, err := logger.ParseLogLevel(strings.ToLower(strings.TrimSpace(cfg.Observability.LogLevel)))
	if err != nil || level != logger.DebugLevel {
		return
	}
	log.Debug("effective configuration", "config", cfg.String())
}

func resolveEnvPrefix(prefix string) string {
	trimmed := strings.TrimSpace(prefix)
	if trimmed == "" {
		return config.DefaultEnvPrefix
	}
	return strings.ToUpper(trimmed)
}

func applyResolvedServiceName(cfg *config.Config, defaultServiceName, serviceNameOverride string) {
	if cfg == nil {
		return
	}
	cfg.Service.Name = resolveServiceNameValue(cfg.Service.Name, defaultServiceName, serviceNameOverride)
}

func resolveServiceNameValue(currentConfigName, defaultServiceName, serviceNameOverride string) string {
	if override := strings.TrimSpace(serviceNameOverride); override != "" {
		return override
	}
	if configured := strings.TrimSpace(currentConfigName); configured != "" {
		return configured
	}
	if fallback := strings.TrimSpace(defaultServiceName); fallback != "" {
		return fallback
	}
	return "taskboard"
}
