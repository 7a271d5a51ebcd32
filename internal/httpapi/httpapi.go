// Package httpapi exposes the storefront stores over a JSON REST surface.
// Handlers translate between HTTP and the store layer; all persistence
// error classification happens via dberr kinds, never string matching.
package httpapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"storefront-api/internal/logging"
	"storefront-api/internal/store"
)

// Pinger reports database reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Config wires the API's dependencies.
type Config struct {
	Products  *store.ProductStore
	Customers *store.CustomerStore
	Orders    *store.OrderStore

	// Pinger reports database health on /healthz; nil skips the check.
	Pinger Pinger

	// Bootstrap re-runs the schema DDL; nil disables /admin/bootstrap.
	Bootstrap func(ctx context.Context) error

	// DefaultPageSize caps list responses when the request passes no limit.
	DefaultPageSize uint64

	// MetricsEnabled mounts the Prometheus handler on /metrics.
	MetricsEnabled bool

	// HealthCheckTimeout bounds the database ping in /healthz.
	HealthCheckTimeout time.Duration
}

// API is the HTTP handler set for the storefront endpoints.
type API struct {
	cfg Config
}

// New creates the API. Handlers log through the request-scoped logger that
// the logging middleware places on the context.
func New(cfg Config) *API {
	if cfg.DefaultPageSize == 0 {
		cfg.DefaultPageSize = 100
	}
	if cfg.HealthCheckTimeout == 0 {
		cfg.HealthCheckTimeout = 2 * time.Second
	}
	return &API{cfg: cfg}
}

// Routes returns the route table. Method patterns handle dispatch; the
// handlers themselves never switch on r.Method.
func (a *API) Routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/products", a.listProducts)
	mux.HandleFunc("POST /api/products", a.createProduct)
	mux.HandleFunc("GET /api/products/{id}", a.getProduct)
	mux.HandleFunc("PUT /api/products/{id}", a.updateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", a.deleteProduct)
	mux.HandleFunc("POST /api/products/{id}/stock", a.adjustProductStock)

	mux.HandleFunc("GET /api/customers", a.listCustomers)
	mux.HandleFunc("POST /api/customers", a.createCustomer)
	mux.HandleFunc("GET /api/customers/{id}", a.getCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", a.updateCustomer)
	mux.HandleFunc("DELETE /api/customers/{id}", a.deleteCustomer)
	mux.HandleFunc("GET /api/customers/{id}/orders", a.listCustomerOrders)

	mux.HandleFunc("GET /api/orders", a.listOrders)
	mux.HandleFunc("POST /api/orders", a.createOrder)
	mux.HandleFunc("GET /api/orders/{id}", a.getOrder)
	mux.HandleFunc("PATCH /api/orders/{id}/status", a.updateOrderStatus)
	mux.HandleFunc("DELETE /api/orders/{id}", a.deleteOrder)

	mux.HandleFunc("GET /healthz", a.health)
	if a.cfg.Bootstrap != nil {
		mux.HandleFunc("POST /admin/bootstrap", a.adminBootstrap)
	}
	if a.cfg.MetricsEnabled {
		mux.Handle("GET /metrics", promhttp.Handler())
	}

	return mux
}

func (a *API) health(w http.ResponseWriter, r *http.Request) {
	reqLogger := logging.FromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")

	if a.cfg.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), a.cfg.HealthCheckTimeout)
		defer cancel()

		if err := a.cfg.Pinger.PingContext(ctx); err != nil {
			reqLogger.Error("health check failed",
				slog.String("error", err.Error()),
				slog.String("check", "database"),
			)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = fmt.Fprint(w, `{"status":"unhealthy","database":"failed"}`)
			return
		}
	}

	reqLogger.Debug("health check passed")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, `{"status":"healthy","database":"ok"}`)
}

func (a *API) adminBootstrap(w http.ResponseWriter, r *http.Request) {
	reqLogger := logging.FromContext(r.Context())
	w.Header().Set("Content-Type", "application/json")

	reqLogger.Info("admin endpoint accessed",
		slog.String("operation", "bootstrap"),
		slog.String("remote_addr", r.RemoteAddr),
	)

	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := a.cfg.Bootstrap(ctx); err != nil {
		reqLogger.Error("schema bootstrap failed", slog.String("error", err.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = fmt.Fprint(w, `{"status":"error","message":"schema bootstrap failed"}`)
		return
	}

	reqLogger.Info("schema bootstrap completed")
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprint(w, `{"status":"ok"}`)
}
