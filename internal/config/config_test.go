package config

import (
	"os"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "basic DSN",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "password",
				Database: "storefront",
			},
			expected: "root:password@tcp(localhost:3306)/storefront?parseTime=true&loc=UTC",
		},
		{
			name: "empty password",
			config: DatabaseConfig{
				Host:     "localhost",
				Port:     3306,
				User:     "root",
				Password: "",
				Database: "storefront",
			},
			expected: "root:@tcp(localhost:3306)/storefront?parseTime=true&loc=UTC",
		},
		{
			name: "connection string passes through",
			config: DatabaseConfig{
				ConnectionString: "app:secret@tcp(db:3306)/shop?parseTime=true&loc=UTC",
			},
			expected: "app:secret@tcp(db:3306)/shop?parseTime=true&loc=UTC",
		},
		{
			name: "connection string gains parseTime and loc",
			config: DatabaseConfig{
				ConnectionString: "app:secret@tcp(db:3306)/shop",
			},
			expected: "app:secret@tcp(db:3306)/shop?parseTime=true&loc=UTC",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

func TestDatabaseConfig_EffectiveDatabaseName(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
		wantErr  bool
	}{
		{
			name:     "discrete field",
			config:   DatabaseConfig{Database: "storefront"},
			expected: "storefront",
		},
		{
			name:     "from DSN",
			config:   DatabaseConfig{ConnectionString: "u:p@tcp(h:3306)/shop?parseTime=true"},
			expected: "shop",
		},
		{
			name: "matching field and DSN",
			config: DatabaseConfig{
				Database:         "shop",
				ConnectionString: "u:p@tcp(h:3306)/shop",
			},
			expected: "shop",
		},
		{
			name: "mismatched field and DSN",
			config: DatabaseConfig{
				Database:         "storefront",
				ConnectionString: "u:p@tcp(h:3306)/shop",
			},
			wantErr: true,
		},
		{
			name:    "nothing configured",
			config:  DatabaseConfig{},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.config.EffectiveDatabaseName()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

// TestLoad_WithEnvVars tests configuration loading from environment variables.
func TestLoad_WithEnvVars(t *testing.T) {
	t.Cleanup(func() {
		os.Unsetenv("STOREFRONT_DATABASE_HOST")
		os.Unsetenv("STOREFRONT_DATABASE_PORT")
		os.Unsetenv("STOREFRONT_DATABASE_USER")
		os.Unsetenv("STOREFRONT_SERVER_PORT")
	})

	os.Setenv("STOREFRONT_DATABASE_HOST", "envhost")
	os.Setenv("STOREFRONT_DATABASE_PORT", "3307")
	os.Setenv("STOREFRONT_DATABASE_USER", "envuser")
	os.Setenv("STOREFRONT_SERVER_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "envhost", cfg.Database.Host)
	assert.Equal(t, 3307, cfg.Database.Port)
	assert.Equal(t, "envuser", cfg.Database.User)
	assert.Equal(t, 9090, cfg.Server.Port)

	// Defaults survive where env is silent
	assert.Equal(t, 25, cfg.Database.Pool.MaxOpen)
	assert.Equal(t, 100, cfg.Server.DefaultPageSize)
	assert.Equal(t, 2*time.Minute, cfg.Server.Auth.BearerClockSkew)
	assert.Equal(t, "info", cfg.Observability.Logging.Level)
}

func defaultTestConfig() Config {
	return Config{
		Database: DatabaseConfig{
			Host:                    "localhost",
			Port:                    3306,
			User:                    "storefront",
			Database:                "storefront",
			Pool:                    PoolConfig{MaxOpen: 25, MaxIdle: 5, MaxLifetime: 5 * time.Minute},
			ConnectionTimeout:       60 * time.Second,
			ConnectionRetryInterval: 2 * time.Second,
		},
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			DefaultPageSize: 100,
			Auth:            AuthConfig{BearerClockSkew: 2 * time.Minute},
		},
		Observability: ObservabilityConfig{
			ServiceName:      "storefront-api",
			TraceSampleRatio: 1.0,
			Logging:          LoggingConfig{Level: "info", Format: "json"},
			OTLP:             OTLPConfig{Endpoint: "localhost:4317", Protocol: "grpc"},
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*Config)
		wantErrs   int
		wantWarns  int
		errorField string
	}{
		{
			name:   "valid defaults",
			mutate: func(c *Config) {},
		},
		{
			name:       "database port out of range",
			mutate:     func(c *Config) { c.Database.Port = 99999 },
			wantErrs:   1,
			errorField: "database.port",
		},
		{
			name:       "no database name",
			mutate:     func(c *Config) { c.Database.Database = "" },
			wantErrs:   1,
			errorField: "database.database",
		},
		{
			name:       "negative pool size",
			mutate:     func(c *Config) { c.Database.Pool.MaxOpen = -1 },
			wantErrs:   1,
			errorField: "database.pool.max_open",
		},
		{
			name: "idle exceeds open warns",
			mutate: func(c *Config) {
				c.Database.Pool.MaxOpen = 2
				c.Database.Pool.MaxIdle = 10
			},
			wantWarns: 1,
		},
		{
			name:       "server port out of range",
			mutate:     func(c *Config) { c.Server.Port = 0 },
			wantErrs:   1,
			errorField: "server.port",
		},
		{
			name:       "page size must be positive",
			mutate:     func(c *Config) { c.Server.DefaultPageSize = 0 },
			wantErrs:   1,
			errorField: "server.default_page_size",
		},
		{
			name:       "bearer enabled without key",
			mutate:     func(c *Config) { c.Server.Auth.BearerEnabled = true },
			wantErrs:   1,
			errorField: "server.auth.bearer_signing_key",
		},
		{
			name: "signing key without bearer warns",
			mutate: func(c *Config) {
				c.Server.Auth.BearerSigningKey = "secret"
			},
			wantWarns: 1,
		},
		{
			name: "wildcard origin with credentials",
			mutate: func(c *Config) {
				c.Server.CORS.Enabled = true
				c.Server.CORS.AllowedOrigins = []string{"*"}
				c.Server.CORS.AllowCredentials = true
			},
			wantErrs:   1,
			errorField: "server.cors.allowed_origins",
		},
		{
			name: "rate limit enabled without rps",
			mutate: func(c *Config) {
				c.Server.RateLimit.Enabled = true
				c.Server.RateLimit.Burst = 10
			},
			wantErrs:   1,
			errorField: "server.rate_limit.rps",
		},
		{
			name:       "invalid log level",
			mutate:     func(c *Config) { c.Observability.Logging.Level = "verbose" },
			wantErrs:   1,
			errorField: "observability.logging.level",
		},
		{
			name:       "invalid log format",
			mutate:     func(c *Config) { c.Observability.Logging.Format = "xml" },
			wantErrs:   1,
			errorField: "observability.logging.format",
		},
		{
			name:       "trace sample ratio out of range",
			mutate:     func(c *Config) { c.Observability.TraceSampleRatio = 1.5 },
			wantErrs:   1,
			errorField: "observability.trace_sample_ratio",
		},
		{
			name:       "invalid OTLP protocol",
			mutate:     func(c *Config) { c.Observability.OTLP.Protocol = "thrift" },
			wantErrs:   1,
			errorField: "observability.otlp.protocol",
		},
		{
			name: "http protocol requires parseable endpoint",
			mutate: func(c *Config) {
				c.Observability.OTLP.Protocol = "http/protobuf"
				c.Observability.OTLP.Endpoint = "not a url"
			},
			wantErrs:   1,
			errorField: "observability.otlp.endpoint",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultTestConfig()
			tt.mutate(&cfg)

			result := cfg.Validate()
			assert.Len(t, result.Errors, tt.wantErrs)
			assert.Len(t, result.Warnings, tt.wantWarns)

			if tt.errorField != "" {
				require.NotEmpty(t, result.Errors)
				assert.Equal(t, tt.errorField, result.Errors[0].Field)
			}
			if tt.wantErrs > 0 {
				assert.True(t, result.HasErrors())
				assert.NotEmpty(t, result.Error())
			} else {
				assert.False(t, result.HasErrors())
				assert.Empty(t, result.Error())
			}
		})
	}
}

func TestValidationError_Error(t *testing.T) {
	withHint := ValidationError{Field: "database.port", Message: "out of range", Hint: "use 1-65535"}
	assert.Equal(t, "database.port: out of range (hint: use 1-65535)", withHint.Error())

	withoutHint := ValidationError{Field: "database.port", Message: "out of range"}
	assert.Equal(t, "database.port: out of range", withoutHint.Error())
}

func TestValidateSingleStdinFileSource(t *testing.T) {
	t.Run("zero or one stdin source is allowed", func(t *testing.T) {
		v := viper.New()
		assert.NoError(t, validateSingleStdinFileSource(v))

		v.Set("database.password_file", "@-")
		assert.NoError(t, validateSingleStdinFileSource(v))
	})

	t.Run("multiple stdin sources are rejected", func(t *testing.T) {
		v := viper.New()
		v.Set("database.dsn_file", "@-")
		v.Set("server.auth.admin_token_file", "@-")

		err := validateSingleStdinFileSource(v)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "only one @- source is allowed")
	})
}

func TestReadSecretFile(t *testing.T) {
	path := t.TempDir() + "/secret"
	require.NoError(t, os.WriteFile(path, []byte("  s3cret \n"), 0o600))

	got, err := readSecretFile(path)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", got)

	_, err = readSecretFile(path + ".missing")
	assert.Error(t, err)
}
