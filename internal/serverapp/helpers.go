package serverapp

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"storefront-api/internal/config"
	"storefront-api/internal/dbexec"
	"storefront-api/internal/httpapi"
	"storefront-api/internal/logging"
	"storefront-api/internal/middleware"
	"storefront-api/internal/observability"
	"storefront-api/internal/schema"
	"storefront-api/internal/store"
	"storefront-api/internal/txwriter"

	"github.com/XSAM/otelsql"
	_ "github.com/go-sql-driver/mysql"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitLogger builds the process logger and, when log export is enabled, the
// OTLP logger provider feeding it.
func InitLogger(cfg *config.Config) (*logging.Logger, *observability.LoggerProvider, error) {
	loggerCfg := logging.Config{
		Level:  cfg.Observability.Logging.Level,
		Format: cfg.Observability.Logging.Format,
	}
	logger := logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	if !cfg.Observability.LogExportEnabled {
		return logger, nil, nil
	}

	logger.Info("initializing OpenTelemetry logging",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
		slog.Bool("insecure", cfg.Observability.OTLP.Insecure),
	)

	loggerProvider, err := observability.InitLoggerProvider(otelConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	logger.Info("OpenTelemetry logging initialized successfully")

	loggerCfg.LoggerProvider = loggerProvider.Provider()
	logger = logging.NewLogger(loggerCfg)
	slog.SetDefault(logger.Logger)

	return logger, loggerProvider, nil
}

func otelConfig(cfg *config.Config) observability.Config {
	return observability.Config{
		ServiceName:      cfg.Observability.ServiceName,
		ServiceVersion:   cfg.Observability.ServiceVersion,
		Environment:      cfg.Observability.Environment,
		TraceSampleRatio: cfg.Observability.TraceSampleRatio,
		OTLP: observability.OTLPExporterConfig{
			Endpoint:          cfg.Observability.OTLP.Endpoint,
			Protocol:          cfg.Observability.OTLP.Protocol,
			Insecure:          cfg.Observability.OTLP.Insecure,
			TLSCertFile:       cfg.Observability.OTLP.TLSCertFile,
			TLSClientCertFile: cfg.Observability.OTLP.TLSClientCertFile,
			TLSClientKeyFile:  cfg.Observability.OTLP.TLSClientKeyFile,
			Headers:           cfg.Observability.OTLP.Headers,
			Timeout:           cfg.Observability.OTLP.Timeout,
		},
	}
}

func initMetrics(cfg *config.Config, logger *logging.Logger) (*observability.MeterProvider, *observability.StoreMetrics, error) {
	if !cfg.Observability.MetricsEnabled {
		return nil, nil, nil
	}

	logger.Info("initializing OpenTelemetry metrics",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("service_version", cfg.Observability.ServiceVersion),
		slog.String("environment", cfg.Observability.Environment),
	)

	meterProvider, err := observability.InitMeterProvider(otelConfig(cfg))
	if err != nil {
		return nil, nil, err
	}

	storeMetrics, err := observability.InitStoreMetrics()
	if err != nil {
		return nil, nil, err
	}

	logger.Info("OpenTelemetry metrics initialized successfully")
	return meterProvider, storeMetrics, nil
}

func initTracing(cfg *config.Config, logger *logging.Logger) (*observability.TracerProvider, error) {
	if !cfg.Observability.TracingEnabled {
		return nil, nil
	}

	logger.Info("initializing OpenTelemetry tracing",
		slog.String("service_name", cfg.Observability.ServiceName),
		slog.String("otlp_endpoint", cfg.Observability.OTLP.Endpoint),
		slog.String("otlp_protocol", cfg.Observability.OTLP.Protocol),
		slog.Bool("insecure", cfg.Observability.OTLP.Insecure),
	)

	tracerProvider, err := observability.InitTracerProvider(otelConfig(cfg))
	if err != nil {
		return nil, err
	}

	logger.Info("OpenTelemetry tracing initialized successfully")
	return tracerProvider, nil
}

func connectDB(cfg *config.Config, logger *logging.Logger) (*sql.DB, interface{ Unregister() error }, error) {
	dsn := cfg.Database.DSN()

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		opts := []otelsql.Option{
			otelsql.WithAttributes(semconv.DBSystemMySQL),
		}
		if cfg.Observability.TracingEnabled {
			opts = append(opts, otelsql.WithSpanOptions(otelsql.SpanOptions{
				DisableErrSkip: true,
			}))
		}

		db, err := otelsql.Open("mysql", dsn, opts...)
		if err != nil {
			return nil, nil, err
		}

		var dbStatsReg interface{ Unregister() error }
		if cfg.Observability.MetricsEnabled {
			dbStatsReg, err = otelsql.RegisterDBStatsMetrics(db, otelsql.WithAttributes(semconv.DBSystemMySQL))
			if err != nil {
				logger.Warn("failed to register DB stats metrics", slog.String("error", err.Error()))
			}
		}

		logger.Info("database instrumentation enabled",
			slog.Bool("metrics", cfg.Observability.MetricsEnabled),
			slog.Bool("tracing", cfg.Observability.TracingEnabled),
		)
		return db, dbStatsReg, nil
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, nil, err
	}
	return db, nil, nil
}

func configureDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB, effectiveDatabase string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	db.SetMaxOpenConns(cfg.Database.Pool.MaxOpen)
	db.SetMaxIdleConns(cfg.Database.Pool.MaxIdle)
	db.SetConnMaxLifetime(cfg.Database.Pool.MaxLifetime)

	if err := waitForDatabase(ctx, cfg, logger, db); err != nil {
		return err
	}

	logger.Info("connected to database",
		slog.String("database", effectiveDatabase),
		slog.Int("pool_max_open", cfg.Database.Pool.MaxOpen),
		slog.Int("pool_max_idle", cfg.Database.Pool.MaxIdle),
		slog.Duration("pool_max_lifetime", cfg.Database.Pool.MaxLifetime),
	)
	return nil
}

func waitForDatabase(ctx context.Context, cfg *config.Config, logger *logging.Logger, db *sql.DB) error {
	if ctx == nil {
		ctx = context.Background()
	}
	timeout := cfg.Database.ConnectionTimeout
	interval := cfg.Database.ConnectionRetryInterval

	// If timeout is 0, try once and fail immediately
	if timeout == 0 {
		return db.PingContext(ctx)
	}

	deadline := time.Now().Add(timeout)
	attempt := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		attempt++
		err := db.PingContext(ctx)

		if err == nil {
			if attempt > 1 {
				logger.Info("database connection established", slog.Int("attempts", attempt))
			}
			return nil
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("database not available after %v: %w", timeout, err)
		}

		logger.Warn("database not ready, retrying...",
			slog.Int("attempt", attempt),
			slog.Duration("retry_in", interval),
			slog.String("error", err.Error()),
		)
		time.Sleep(interval)

		// Exponential backoff, capped at 30s
		interval = min(interval*2, 30*time.Second)
	}
}

// buildAPI wires stores into the handler set. The admin bootstrap hook is
// exposed only when an admin token is configured to guard it.
func buildAPI(cfg *config.Config, db *sql.DB, executor dbexec.QueryExecutor, writer *txwriter.Writer, metrics *observability.StoreMetrics, logger *logging.Logger) *httpapi.API {
	apiCfg := httpapi.Config{
		Products:        store.NewProductStore(executor, metrics),
		Customers:       store.NewCustomerStore(executor, metrics),
		Orders:          store.NewOrderStore(executor, writer, metrics),
		Pinger:          db,
		DefaultPageSize: uint64(cfg.Server.DefaultPageSize),
		MetricsEnabled:  cfg.Observability.MetricsEnabled,
	}
	if strings.TrimSpace(cfg.Server.Auth.AdminToken) != "" {
		apiCfg.Bootstrap = func(ctx context.Context) error {
			return schema.Bootstrap(ctx, executor, logger)
		}
	}
	return httpapi.New(apiCfg)
}

// buildHTTPHandler assembles the middleware chain around the route table:
// admin token auth on /admin/, bearer auth on API writes, then the outer
// otelhttp / CORS / rate limit / request logging layers.
func buildHTTPHandler(cfg *config.Config, logger *logging.Logger, api *httpapi.API) (http.Handler, error) {
	var handler http.Handler = api.Routes()

	if strings.TrimSpace(cfg.Server.Auth.AdminToken) != "" {
		adminAuth, err := middleware.AdminTokenAuthMiddleware(middleware.AdminTokenAuthConfig{
			Token: cfg.Server.Auth.AdminToken,
		})
		if err != nil {
			return nil, err
		}
		handler = pathPrefixGuard("/admin/", adminAuth(handler), handler)
	}

	if cfg.Server.Auth.BearerEnabled {
		bearerAuth, err := middleware.BearerAuthMiddleware(middleware.BearerAuthConfig{
			Enabled:    true,
			SigningKey: cfg.Server.Auth.BearerSigningKey,
			Issuer:     cfg.Server.Auth.BearerIssuer,
			Audience:   cfg.Server.Auth.BearerAudience,
			ClockSkew:  cfg.Server.Auth.BearerClockSkew,
		})
		if err != nil {
			return nil, err
		}
		handler = writeGuard(bearerAuth, handler)
		logger.Info("bearer auth enabled for write endpoints")
	}

	if cfg.Observability.MetricsEnabled || cfg.Observability.TracingEnabled {
		handler = otelhttp.NewHandler(handler, "http.server",
			otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
				return httpRootSpanName(r)
			}),
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents),
		)
		logger.Info("HTTP instrumentation enabled")
	}

	if cfg.Server.CORS.Enabled {
		handler = middleware.CORSMiddleware(middleware.CORSConfig{
			Enabled:          cfg.Server.CORS.Enabled,
			AllowedOrigins:   cfg.Server.CORS.AllowedOrigins,
			AllowedMethods:   cfg.Server.CORS.AllowedMethods,
			AllowedHeaders:   cfg.Server.CORS.AllowedHeaders,
			ExposeHeaders:    cfg.Server.CORS.ExposeHeaders,
			AllowCredentials: cfg.Server.CORS.AllowCredentials,
			MaxAge:           cfg.Server.CORS.MaxAge,
		})(handler)
	}

	if cfg.Server.RateLimit.Enabled {
		handler = middleware.RateLimitMiddleware(middleware.RateLimitConfig{
			Enabled: cfg.Server.RateLimit.Enabled,
			RPS:     cfg.Server.RateLimit.RPS,
			Burst:   cfg.Server.RateLimit.Burst,
		})(handler)
	}

	handler = middleware.LoggingMiddleware(logger)(handler)
	return handler, nil
}

// pathPrefixGuard routes requests under prefix through the guarded handler
// and everything else through the rest of the chain untouched.
func pathPrefixGuard(prefix string, guarded http.Handler, rest http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, prefix) {
			guarded.ServeHTTP(w, r)
			return
		}
		rest.ServeHTTP(w, r)
	})
}

// writeGuard applies mw to mutating API requests only; reads, health, and
// metrics stay open.
func writeGuard(mw func(http.Handler) http.Handler, next http.Handler) http.Handler {
	protected := mw(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/api/") {
			protected.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func httpRootSpanName(r *http.Request) string {
	if r == nil {
		return "HTTP /*"
	}

	method := strings.TrimSpace(r.Method)
	if method == "" {
		method = "HTTP"
	}

	return method + " " + normalizeHTTPSpanRoute(r.URL.Path)
}

// normalizeHTTPSpanRoute keeps span cardinality bounded by collapsing the
// id-bearing API routes to their patterns.
func normalizeHTTPSpanRoute(rawPath string) string {
	switch rawPath {
	case "/", "/healthz", "/metrics", "/admin/bootstrap",
		"/api/products", "/api/customers", "/api/orders":
		return rawPath
	}
	for _, root := range []string{"/api/products/", "/api/customers/", "/api/orders/"} {
		if strings.HasPrefix(rawPath, root) {
			rest := strings.TrimPrefix(rawPath, root)
			if idx := strings.IndexByte(rest, '/'); idx >= 0 {
				return root + "{id}/" + rest[idx+1:]
			}
			return root + "{id}"
		}
	}
	return "/*"
}

func buildServer(cfg *config.Config, handler http.Handler, serverAddr string) *http.Server {
	return &http.Server{
		Addr:         serverAddr,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
}

func startServer(cfg *config.Config, logger *logging.Logger, srv *http.Server, serverAddr string) chan error {
	serverErrors := make(chan error, 1)
	go func() {
		logAttrs := []any{
			slog.String("address", serverAddr),
			slog.String("api_root", "/api"),
			slog.String("health_endpoint", "/healthz"),
			slog.String("log_level", cfg.Observability.Logging.Level),
			slog.String("log_format", cfg.Observability.Logging.Format),
		}

		if cfg.Observability.MetricsEnabled {
			logAttrs = append(logAttrs, slog.String("metrics_endpoint", "/metrics"))
		}
		if cfg.Server.RateLimit.Enabled {
			logAttrs = append(logAttrs,
				slog.Float64("rate_limit_rps", cfg.Server.RateLimit.RPS),
				slog.Int("rate_limit_burst", cfg.Server.RateLimit.Burst),
			)
		}

		logger.Info("server starting", logAttrs...)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- fmt.Errorf("server failed: %w", err)
		}
	}()
	return serverErrors
}
