package serverapp

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/config"
	"storefront-api/internal/httpapi"
)

func testHandlerConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:            8080,
			DefaultPageSize: 10,
		},
		Observability: config.ObservabilityConfig{
			Logging: config.LoggingConfig{Level: "error", Format: "text"},
		},
	}
}

func buildTestHandler(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	api := httpapi.New(httpapi.Config{DefaultPageSize: 10})
	handler, err := buildHTTPHandler(cfg, testLogger(), api)
	require.NoError(t, err)
	return handler
}

func TestBuildHTTPHandler_AdminGuard(t *testing.T) {
	cfg := testHandlerConfig()
	cfg.Server.Auth.AdminToken = "sekrit"
	handler := buildTestHandler(t, cfg)

	t.Run("admin path without token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/admin/bootstrap", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("health path stays open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestBuildHTTPHandler_BearerWriteGuard(t *testing.T) {
	cfg := testHandlerConfig()
	cfg.Server.Auth.BearerEnabled = true
	cfg.Server.Auth.BearerSigningKey = "0123456789abcdef"
	handler := buildTestHandler(t, cfg)

	t.Run("write without token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/products/1", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("read stays open", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("write with valid token passes auth", func(t *testing.T) {
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"sub": "tester",
			"exp": time.Now().Add(time.Minute).Unix(),
		})
		signed, err := token.SignedString([]byte("0123456789abcdef"))
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodDelete, "/api/products/nonnumeric", nil)
		req.Header.Set("Authorization", "Bearer "+signed)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		// Past the auth layer; the handler itself rejects the id.
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestNormalizeHTTPSpanRoute(t *testing.T) {
	tests := []struct {
		path     string
		expected string
	}{
		{"/", "/"},
		{"/healthz", "/healthz"},
		{"/metrics", "/metrics"},
		{"/api/products", "/api/products"},
		{"/api/products/42", "/api/products/{id}"},
		{"/api/products/42/stock", "/api/products/{id}/stock"},
		{"/api/orders/7", "/api/orders/{id}"},
		{"/api/customers/3/orders", "/api/customers/{id}/orders"},
		{"/favicon.ico", "/*"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, normalizeHTTPSpanRoute(tt.path))
		})
	}
}

func TestHTTPRootSpanName(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/orders/12", nil)
	assert.Equal(t, "GET /api/orders/{id}", httpRootSpanName(req))
	assert.Equal(t, "HTTP /*", httpRootSpanName(nil))
}
