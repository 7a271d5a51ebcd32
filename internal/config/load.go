package config

import (
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var defineFlagsOnce sync.Once

// Load loads configuration from multiple sources with the following precedence:
// 1. Explicit overrides (v.Set) – used only for secret files and the password prompt
// 2. Command line flags
// 3. Environment variables
// 4. Config file
// 5. Default values
func Load() (*Config, error) {
	v := viper.New()

	// Defaults (lowest priority)
	setDefaults(v)

	// --- Flags ---
	defineFlags()
	if !pflag.Parsed() {
		pflag.Parse()
	}

	// --- Config file ---
	cfgPath, _ := pflag.CommandLine.GetString("config")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.SetConfigName("storefront-api")
		v.SetConfigType("yaml")
		v.AddConfigPath("/etc/storefront-api/")
		v.AddConfigPath("$HOME/.storefront-api")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if cfgPath != "" {
			return nil, fmt.Errorf("failed to read config file %q: %w", cfgPath, err)
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// --- Environment variables ---
	// Canonical keys: dot + snake_case
	// Env vars: STOREFRONT_DATABASE_POOL_MAX_OPEN
	v.SetEnvPrefix("STOREFRONT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	// --- Flags binding (highest normal priority) ---
	bindChangedFlagsToViper(v)
	if err := validateSingleStdinFileSource(v); err != nil {
		return nil, err
	}

	// --- Secret indirection (explicit overrides) ---
	if err := applySecretOverrides(v); err != nil {
		return nil, err
	}
	if v.GetString("database.password") == "" && v.GetBool("database.password_prompt") {
		pwd, err := promptPassword()
		if err != nil {
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		v.Set("database.password", pwd)
	}

	// --- Unmarshal (strict) ---
	var cfg Config
	if err := v.UnmarshalExact(
		&cfg,
		viper.DecodeHook(
			mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				stringToStringSliceHookFunc(","),
			),
		),
	); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

// secretSource maps a value key to its *_file companion; the file content
// fills the value only when the value is not already set, and required
// secrets reject empty files.
type secretSource struct {
	valueKey string
	fileKey  string
	label    string
	required bool
}

var secretSources = []secretSource{
	{valueKey: "database.dsn", fileKey: "database.dsn_file", label: "database DSN"},
	{valueKey: "database.password", fileKey: "database.password_file", label: "database password"},
	{valueKey: "server.auth.bearer_signing_key", fileKey: "server.auth.bearer_signing_key_file", label: "bearer signing key", required: true},
	{valueKey: "server.auth.admin_token", fileKey: "server.auth.admin_token_file", label: "admin token", required: true},
}

func applySecretOverrides(v *viper.Viper) error {
	for _, src := range secretSources {
		path := v.GetString(src.fileKey)
		if path == "" || v.GetString(src.valueKey) != "" {
			continue
		}
		secret, err := readSecretFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s file: %w", src.label, err)
		}
		if secret == "" && src.required {
			return fmt.Errorf("%s file %q is empty", src.label, path)
		}
		v.Set(src.valueKey, secret)
	}
	return nil
}

// bindChangedFlagsToViper copies only explicitly-set flags into Viper,
// preserving precedence: flags > env > file > defaults.
func bindChangedFlagsToViper(v *viper.Viper) {
	pflag.CommandLine.Visit(func(f *pflag.Flag) {
		if f.Name == "config" || f.Name == "version" {
			return
		}
		v.Set(f.Name, typedFlagValue(f))
	})
}

// typedFlagValue pulls the flag out with its native type so viper does not
// have to re-parse durations and slices from their string form.
func typedFlagValue(f *pflag.Flag) any {
	flags := pflag.CommandLine
	switch f.Value.Type() {
	case "string":
		val, _ := flags.GetString(f.Name)
		return val
	case "int":
		val, _ := flags.GetInt(f.Name)
		return val
	case "bool":
		val, _ := flags.GetBool(f.Name)
		return val
	case "float64":
		val, _ := flags.GetFloat64(f.Name)
		return val
	case "duration":
		val, _ := flags.GetDuration(f.Name)
		return val
	case "stringSlice":
		val, _ := flags.GetStringSlice(f.Name)
		return val
	default:
		return f.Value.String()
	}
}

// defineFlags defines all command line flags using canonical snake_case keys.
func defineFlags() {
	defineFlagsOnce.Do(func() {
		// Database connection flags
		pflag.String("database.dsn", "", "Complete MySQL DSN (user:pass@tcp(host:port)/db)")
		pflag.String("database.dsn_file", "", "Path to file containing database DSN (use @- for stdin)")

		// Database discrete connection flags (used when DSN is not set)
		pflag.String("database.host", "", "Database host")
		pflag.Int("database.port", 0, "Database port")
		pflag.String("database.user", "", "Database user")
		pflag.String("database.password", "", "Database password")
		pflag.String("database.password_file", "", "Path to file containing database password (use @- for stdin)")
		pflag.Bool("database.password_prompt", false, "Prompt for database password securely")
		pflag.String("database.database", "", "Database name")

		// Database pool flags
		pflag.Int("database.pool.max_open", 0, "Maximum open database connections")
		pflag.Int("database.pool.max_idle", 0, "Maximum idle connections in pool")
		pflag.Duration("database.pool.max_lifetime", 0, "Connection max lifetime (e.g. 5m, 30s)")
		pflag.Duration("database.connection_timeout", 0, "Max time to wait for database on startup (0 = fail immediately)")
		pflag.Duration("database.connection_retry_interval", 0, "Interval between connection retries")
		pflag.Bool("database.bootstrap", false, "Create the storefront tables at startup if missing")

		// Server flags
		pflag.String("server.host", "", "HTTP server listen host")
		pflag.Int("server.port", 0, "HTTP server port")
		pflag.Int("server.default_page_size", 0, "Default page size for list endpoints")
		pflag.Duration("server.read_timeout", 0, "HTTP server read timeout")
		pflag.Duration("server.write_timeout", 0, "HTTP server write timeout")
		pflag.Duration("server.idle_timeout", 0, "HTTP server idle timeout")
		pflag.Duration("server.shutdown_timeout", 0, "HTTP server graceful shutdown timeout")

		// Auth flags
		pflag.Bool("server.auth.bearer_enabled", false, "Require a JWT bearer token on write endpoints")
		pflag.String("server.auth.bearer_signing_key", "", "Shared HS256 key for bearer token validation")
		pflag.String("server.auth.bearer_signing_key_file", "", "Path to file containing the signing key (use @- for stdin)")
		pflag.String("server.auth.bearer_issuer", "", "Expected JWT issuer claim")
		pflag.String("server.auth.bearer_audience", "", "Expected JWT audience claim")
		pflag.Duration("server.auth.bearer_clock_skew", 0, "Allowed JWT clock skew (e.g. 2m)")
		pflag.String("server.auth.admin_token", "", "Shared secret required in X-Admin-Token header for admin endpoints")
		pflag.String("server.auth.admin_token_file", "", "Path to file containing admin token (use @- for stdin)")

		// CORS flags
		pflag.Bool("server.cors.enabled", false, "Enable CORS (Cross-Origin Resource Sharing)")
		pflag.StringSlice("server.cors.allowed_origins", nil, "Allowed CORS origins (comma-separated or repeated)")
		pflag.StringSlice("server.cors.allowed_methods", nil, "Allowed CORS methods (comma-separated or repeated)")
		pflag.StringSlice("server.cors.allowed_headers", nil, "Allowed CORS headers (comma-separated or repeated)")
		pflag.StringSlice("server.cors.expose_headers", nil, "CORS headers to expose to browser (comma-separated or repeated)")
		pflag.Bool("server.cors.allow_credentials", false, "Allow credentials in CORS requests")
		pflag.Int("server.cors.max_age", 0, "CORS preflight cache duration (seconds)")

		// Rate limit flags
		pflag.Bool("server.rate_limit.enabled", false, "Enable global rate limiting for all HTTP endpoints")
		pflag.Float64("server.rate_limit.rps", 0, "Global rate limit requests per second")
		pflag.Int("server.rate_limit.burst", 0, "Global rate limit burst size")

		// Observability flags
		pflag.String("observability.service_name", "", "Service name for observability")
		pflag.String("observability.service_version", "", "Service version for observability")
		pflag.String("observability.environment", "", "Environment name (dev, staging, prod)")
		pflag.Bool("observability.metrics_enabled", false, "Enable metrics collection")
		pflag.Bool("observability.tracing_enabled", false, "Enable distributed tracing")
		pflag.Bool("observability.log_export_enabled", false, "Enable OTLP log export")
		pflag.Float64("observability.trace_sample_ratio", 0, "Trace sampling ratio from 0.0 to 1.0")

		// Logging flags (under observability)
		pflag.String("observability.logging.level", "", "Log level (debug, info, warn, error)")
		pflag.String("observability.logging.format", "", "Log format (json, text)")

		// OTLP flags
		pflag.String("observability.otlp.endpoint", "", "OTLP endpoint for traces and logs (e.g., localhost:4317)")
		pflag.String("observability.otlp.protocol", "", "OTLP protocol (grpc, http/protobuf)")
		pflag.Bool("observability.otlp.insecure", false, "Use insecure connection (no TLS)")
		pflag.String("observability.otlp.tls_cert_file", "", "Path to TLS certificate file for server verification")
		pflag.String("observability.otlp.tls_client_cert_file", "", "Path to client certificate file for mTLS")
		pflag.String("observability.otlp.tls_client_key_file", "", "Path to client key file for mTLS")
		pflag.Duration("observability.otlp.timeout", 0, "OTLP export timeout")

		// Config file flag
		pflag.StringP("config", "c", "", "Config file path")
	})
}

// setDefaults sets default values (lowest precedence).
func setDefaults(v *viper.Viper) {
	// Database connection defaults
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.dsn_file", "")

	// Database discrete connection defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "storefront")
	v.SetDefault("database.password", "")
	v.SetDefault("database.password_file", "")
	v.SetDefault("database.password_prompt", false)
	v.SetDefault("database.database", "storefront")

	// Database pool defaults
	v.SetDefault("database.pool.max_open", 25)
	v.SetDefault("database.pool.max_idle", 5)
	v.SetDefault("database.pool.max_lifetime", 5*time.Minute)
	v.SetDefault("database.connection_timeout", 60*time.Second)
	v.SetDefault("database.connection_retry_interval", 2*time.Second)
	v.SetDefault("database.bootstrap", false)

	// Server defaults
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.default_page_size", 100)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)

	// Auth defaults
	v.SetDefault("server.auth.bearer_enabled", false)
	v.SetDefault("server.auth.bearer_signing_key", "")
	v.SetDefault("server.auth.bearer_signing_key_file", "")
	v.SetDefault("server.auth.bearer_issuer", "")
	v.SetDefault("server.auth.bearer_audience", "")
	v.SetDefault("server.auth.bearer_clock_skew", 2*time.Minute)
	v.SetDefault("server.auth.admin_token", "")
	v.SetDefault("server.auth.admin_token_file", "")

	// CORS defaults
	v.SetDefault("server.cors.enabled", false)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("server.cors.allowed_methods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("server.cors.allowed_headers", []string{"Content-Type", "Authorization"})
	v.SetDefault("server.cors.expose_headers", []string{})
	v.SetDefault("server.cors.allow_credentials", false)
	v.SetDefault("server.cors.max_age", 86400)

	// Rate limit defaults
	v.SetDefault("server.rate_limit.enabled", false)
	v.SetDefault("server.rate_limit.rps", 0.0)
	v.SetDefault("server.rate_limit.burst", 0)

	// Observability defaults
	v.SetDefault("observability.service_name", "storefront-api")
	v.SetDefault("observability.service_version", "")
	v.SetDefault("observability.environment", "development")
	v.SetDefault("observability.metrics_enabled", true)
	v.SetDefault("observability.tracing_enabled", false)
	v.SetDefault("observability.log_export_enabled", false)
	v.SetDefault("observability.trace_sample_ratio", 1.0)

	// Logging defaults (under observability)
	v.SetDefault("observability.logging.level", "info")
	v.SetDefault("observability.logging.format", "json")

	// OTLP defaults
	v.SetDefault("observability.otlp.endpoint", "localhost:4317")
	v.SetDefault("observability.otlp.protocol", "grpc")
	v.SetDefault("observability.otlp.insecure", false)
	v.SetDefault("observability.otlp.tls_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_cert_file", "")
	v.SetDefault("observability.otlp.tls_client_key_file", "")
	v.SetDefault("observability.otlp.headers", map[string]string{})
	v.SetDefault("observability.otlp.timeout", 10*time.Second)
}

// promptPassword prompts the user for a password without echoing to terminal.
func promptPassword() (string, error) {
	fmt.Print("Enter database password: ")
	bytePassword, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}

// readSecretFile reads a trimmed secret from a file, or from stdin when the
// path is "@-".
func readSecretFile(path string) (string, error) {
	var data []byte
	var err error

	if path == "@-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// validateSingleStdinFileSource rejects configurations where more than one
// file-backed secret wants to read stdin.
func validateSingleStdinFileSource(v *viper.Viper) error {
	var configured []string
	for _, src := range secretSources {
		if strings.TrimSpace(v.GetString(src.fileKey)) == "@-" {
			configured = append(configured, src.fileKey)
		}
	}

	if len(configured) > 1 {
		return fmt.Errorf(
			"multiple stdin-backed file settings use @- (%s); only one @- source is allowed",
			strings.Join(configured, ", "),
		)
	}

	return nil
}

func stringToStringSliceHookFunc(sep string) mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if from.Kind() != reflect.String || to != reflect.TypeOf([]string{}) {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return []string{}, nil
		}

		parts := strings.Split(raw, sep)
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts, nil
	}
}
