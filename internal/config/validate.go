package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a configuration validation error with context.
type ValidationError struct {
	Field   string
	Message string
	Hint    string
}

func (e ValidationError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("%s: %s (hint: %s)", e.Field, e.Message, e.Hint)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Field   string
	Message string
	Hint    string
}

// ValidationResult collects errors (fatal) and warnings (advisory) from one
// validation pass.
type ValidationResult struct {
	Errors   []ValidationError
	Warnings []ValidationWarning
}

func (r *ValidationResult) addError(field, message string, hint ...string) {
	e := ValidationError{Field: field, Message: message}
	if len(hint) > 0 {
		e.Hint = hint[0]
	}
	r.Errors = append(r.Errors, e)
}

func (r *ValidationResult) addWarning(field, message string, hint ...string) {
	w := ValidationWarning{Field: field, Message: message}
	if len(hint) > 0 {
		w.Hint = hint[0]
	}
	r.Warnings = append(r.Warnings, w)
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// Error returns a combined error message if there are validation errors.
func (r *ValidationResult) Error() string {
	if !r.HasErrors() {
		return ""
	}
	msgs := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Validate checks the configuration and reports every problem it finds, so a
// bad deployment surfaces all mistakes in one run instead of one at a time.
func (c *Config) Validate() *ValidationResult {
	result := &ValidationResult{}
	c.Database.validate(result)
	c.Server.validate(result)
	c.Observability.validate(result)
	return result
}

func (d *DatabaseConfig) validate(result *ValidationResult) {
	// Discrete fields only matter without a DSN.
	if d.ConnectionString == "" && !validPort(d.Port) {
		result.addError("database.port", fmt.Sprintf("port %d is out of valid range (1-65535)", d.Port))
	}

	if _, err := d.EffectiveDatabaseName(); err != nil {
		result.addError("database.database", err.Error(),
			"set database.database, or include a database in database.dsn")
	}

	if d.Pool.MaxOpen < 0 {
		result.addError("database.pool.max_open", "max_open cannot be negative")
	}
	if d.Pool.MaxIdle < 0 {
		result.addError("database.pool.max_idle", "max_idle cannot be negative")
	}
	if d.Pool.MaxIdle > d.Pool.MaxOpen && d.Pool.MaxOpen > 0 {
		result.addWarning("database.pool.max_idle", "max_idle is greater than max_open",
			"idle connections will be limited to max_open")
	}

	if d.ConnectionRetryInterval < 0 {
		result.addError("database.connection_retry_interval", "connection_retry_interval cannot be negative")
	} else if d.ConnectionTimeout > 0 && d.ConnectionRetryInterval > d.ConnectionTimeout {
		result.addWarning("database.connection_retry_interval", "retry interval exceeds connection timeout",
			"only one connection attempt will be made")
	}
}

func (s *ServerConfig) validate(result *ValidationResult) {
	if !validPort(s.Port) {
		result.addError("server.port", fmt.Sprintf("port %d is out of valid range (1-65535)", s.Port))
	}
	if s.DefaultPageSize < 1 {
		result.addError("server.default_page_size", "default_page_size must be at least 1")
	}

	for field, d := range map[string]int64{
		"server.read_timeout":     int64(s.ReadTimeout),
		"server.write_timeout":    int64(s.WriteTimeout),
		"server.idle_timeout":     int64(s.IdleTimeout),
		"server.shutdown_timeout": int64(s.ShutdownTimeout),
	} {
		if d < 0 {
			result.addError(field, "timeout cannot be negative")
		}
	}

	s.Auth.validate(result)
	s.CORS.validate(result)
	s.RateLimit.validate(result)
}

func (a *AuthConfig) validate(result *ValidationResult) {
	keyConfigured := strings.TrimSpace(a.BearerSigningKey) != ""
	switch {
	case a.BearerEnabled && !keyConfigured:
		result.addError("server.auth.bearer_signing_key",
			"bearer auth is enabled but no signing key is configured",
			"set server.auth.bearer_signing_key or bearer_signing_key_file")
	case !a.BearerEnabled && keyConfigured:
		result.addWarning("server.auth.bearer_enabled",
			"a bearer signing key is configured but bearer auth is disabled",
			"set server.auth.bearer_enabled=true to enforce it")
	}
	if a.BearerClockSkew < 0 {
		result.addError("server.auth.bearer_clock_skew", "bearer_clock_skew cannot be negative")
	}
}

func (c *CORSConfig) validate(result *ValidationResult) {
	if c.Enabled && len(c.AllowedOrigins) == 0 {
		result.addWarning("server.cors.allowed_origins", "CORS is enabled but no origins are allowed",
			"add origins to server.cors.allowed_origins or disable CORS")
	}
	if !c.AllowCredentials {
		return
	}
	for _, origin := range c.AllowedOrigins {
		if origin == "*" {
			result.addError("server.cors.allowed_origins",
				"wildcard origin cannot be combined with allow_credentials",
				"list explicit origins when credentials are allowed")
			return
		}
	}
}

func (rl *RateLimitConfig) validate(result *ValidationResult) {
	if !rl.Enabled {
		return
	}
	if rl.RPS <= 0 {
		result.addError("server.rate_limit.rps", "rps must be positive when rate limiting is enabled")
	}
	if rl.Burst < 1 {
		result.addError("server.rate_limit.burst", "burst must be at least 1 when rate limiting is enabled")
	}
}

func (o *ObservabilityConfig) validate(result *ValidationResult) {
	if !oneOf(o.Logging.Level, "debug", "info", "warn", "error") {
		result.addError("observability.logging.level",
			fmt.Sprintf("invalid log level %q", o.Logging.Level),
			"valid values are: debug, info, warn, error")
	}
	if !oneOf(o.Logging.Format, "json", "text") {
		result.addError("observability.logging.format",
			fmt.Sprintf("invalid log format %q", o.Logging.Format),
			"valid values are: json, text")
	}
	if o.TraceSampleRatio < 0 || o.TraceSampleRatio > 1 {
		result.addError("observability.trace_sample_ratio",
			fmt.Sprintf("trace_sample_ratio %v is out of range (0.0-1.0)", o.TraceSampleRatio))
	}

	o.OTLP.validate("observability.otlp", result)
}

func (o *OTLPConfig) validate(prefix string, result *ValidationResult) {
	if !oneOf(o.Protocol, "", "grpc", "http/protobuf") {
		result.addError(prefix+".protocol",
			fmt.Sprintf("invalid OTLP protocol %q", o.Protocol),
			"valid values are: grpc, http/protobuf")
	}
	if o.Protocol == "http/protobuf" && !validOTLPEndpoint(o.Endpoint) {
		result.addError(prefix+".endpoint",
			fmt.Sprintf("invalid OTLP endpoint %q for http/protobuf", o.Endpoint),
			"use host:port or a full URL")
	}
}

func validPort(port int) bool {
	return port >= 1 && port <= 65535
}

func oneOf(value string, allowed ...string) bool {
	for _, a := range allowed {
		if value == a {
			return true
		}
	}
	return false
}

func validOTLPEndpoint(endpoint string) bool {
	if endpoint == "" {
		return false
	}
	if strings.Contains(endpoint, "://") {
		parsed, err := url.Parse(endpoint)
		return err == nil && parsed.Host != ""
	}
	_, _, err := net.SplitHostPort(endpoint)
	return err == nil
}
