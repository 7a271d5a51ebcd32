package config

import "time"

// Config holds the application configuration.
type Config struct {
	Database      DatabaseConfig      `mapstructure:"database"`
	Server        ServerConfig        `mapstructure:"server"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// PoolConfig holds connection pool parameters.
type PoolConfig struct {
	MaxOpen     int           `mapstructure:"max_open"`
	MaxIdle     int           `mapstructure:"max_idle"`
	MaxLifetime time.Duration `mapstructure:"max_lifetime"`
}

// DatabaseConfig holds database connection parameters.
type DatabaseConfig struct {
	// ConnectionString is a complete go-sql-driver/mysql Data Source Name.
	// Format: user:password@tcp(host:port)/database?params
	// When set, overrides Host/Port/User/Password/Database fields.
	ConnectionString string `mapstructure:"dsn"`
	// ConnectionStringFile is a path to a file containing the DSN (for
	// secrets management). Supports "@-" to read from stdin.
	ConnectionStringFile string `mapstructure:"dsn_file"`

	// Discrete connection fields (used when DSN is not set)
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	PasswordFile   string `mapstructure:"password_file"`
	PasswordPrompt bool   `mapstructure:"password_prompt"`
	Database       string `mapstructure:"database"`

	Pool PoolConfig `mapstructure:"pool"`

	// ConnectionTimeout bounds the startup wait for a reachable database.
	ConnectionTimeout time.Duration `mapstructure:"connection_timeout"`
	// ConnectionRetryInterval is the ping interval during the startup wait.
	ConnectionRetryInterval time.Duration `mapstructure:"connection_retry_interval"`

	// Bootstrap runs the idempotent schema DDL at startup.
	Bootstrap bool `mapstructure:"bootstrap"`
}

// AuthConfig holds authentication settings for the API.
type AuthConfig struct {
	// BearerEnabled requires a JWT bearer token on write endpoints.
	BearerEnabled bool `mapstructure:"bearer_enabled"`
	// BearerSigningKey is the shared HS256 key for bearer validation.
	BearerSigningKey string `mapstructure:"bearer_signing_key"`
	// BearerSigningKeyFile is a path to a file containing the signing key.
	BearerSigningKeyFile string `mapstructure:"bearer_signing_key_file"`
	// BearerIssuer is the expected iss claim, optional.
	BearerIssuer string `mapstructure:"bearer_issuer"`
	// BearerAudience is the expected aud claim, optional.
	BearerAudience string `mapstructure:"bearer_audience"`
	// BearerClockSkew tolerates clock drift during claim validation.
	BearerClockSkew time.Duration `mapstructure:"bearer_clock_skew"`

	// AdminToken guards the admin endpoints. Empty disables them.
	AdminToken string `mapstructure:"admin_token"`
	// AdminTokenFile is a path to a file containing the admin token.
	AdminTokenFile string `mapstructure:"admin_token_file"`
}

// CORSConfig holds Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposeHeaders    []string `mapstructure:"expose_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// RateLimitConfig holds global request rate limiting settings.
type RateLimitConfig struct {
	Enabled bool    `mapstructure:"enabled"`
	RPS     float64 `mapstructure:"rps"`
	Burst   int     `mapstructure:"burst"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// DefaultPageSize caps list endpoints that do not pass a limit.
	DefaultPageSize int `mapstructure:"default_page_size"`

	Auth      AuthConfig      `mapstructure:"auth"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`  // debug, info, warn, error
	Format string `mapstructure:"format"` // json, text
}

// OTLPConfig holds OTLP exporter settings for traces and logs.
type OTLPConfig struct {
	Endpoint          string            `mapstructure:"endpoint"`
	Protocol          string            `mapstructure:"protocol"` // grpc, http/protobuf
	Insecure          bool              `mapstructure:"insecure"`
	TLSCertFile       string            `mapstructure:"tls_cert_file"`
	TLSClientCertFile string            `mapstructure:"tls_client_cert_file"`
	TLSClientKeyFile  string            `mapstructure:"tls_client_key_file"`
	Headers           map[string]string `mapstructure:"headers"`
	Timeout           time.Duration     `mapstructure:"timeout"`
}

// ObservabilityConfig holds metrics, tracing, and log-export settings.
type ObservabilityConfig struct {
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
	Environment    string `mapstructure:"environment"`

	MetricsEnabled   bool    `mapstructure:"metrics_enabled"`
	TracingEnabled   bool    `mapstructure:"tracing_enabled"`
	LogExportEnabled bool    `mapstructure:"log_export_enabled"`
	TraceSampleRatio float64 `mapstructure:"trace_sample_ratio"`

	Logging LoggingConfig `mapstructure:"logging"`
	OTLP    OTLPConfig    `mapstructure:"otlp"`
}
