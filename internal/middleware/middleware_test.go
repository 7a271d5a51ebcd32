package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront-api/internal/logging"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestLoggingMiddleware(t *testing.T) {
	logger := logging.NewLogger(logging.Config{Level: "error", Format: "json"})

	t.Run("generates a request id", func(t *testing.T) {
		handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, logging.GetRequestID(r.Context()))
			w.WriteHeader(http.StatusOK)
		}))

		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
	})

	t.Run("propagates a caller request id", func(t *testing.T) {
		handler := LoggingMiddleware(logger)(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set(RequestIDHeader, "caller-id-1")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "caller-id-1", rec.Header().Get(RequestIDHeader))
	})
}

func TestCORSMiddleware(t *testing.T) {
	t.Run("disabled passes through", func(t *testing.T) {
		handler := CORSMiddleware(CORSConfig{Enabled: false})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("allowed origin gets headers", func(t *testing.T) {
		handler := CORSMiddleware(CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://shop.example.com"},
			AllowedMethods: []string{"GET", "POST"},
		})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://shop.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "https://shop.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight gets methods and no body", func(t *testing.T) {
		handler := CORSMiddleware(CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "PUT", "DELETE"},
			MaxAge:         600,
		})(okHandler())

		req := httptest.NewRequest(http.MethodOptions, "/api/products", nil)
		req.Header.Set("Origin", "https://anywhere.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, "GET, POST, PUT, DELETE", rec.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "600", rec.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("unknown origin gets no allow header", func(t *testing.T) {
		handler := CORSMiddleware(CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://shop.example.com"},
		})(okHandler())

		req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	t.Run("burst is enforced", func(t *testing.T) {
		handler := RateLimitMiddleware(RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 2})(okHandler())

		statuses := make([]int, 0, 3)
		for range 3 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
			statuses = append(statuses, rec.Code)
		}

		assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
	})

	t.Run("disabled never limits", func(t *testing.T) {
		handler := RateLimitMiddleware(RateLimitConfig{Enabled: false})(okHandler())
		for range 10 {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))
			assert.Equal(t, http.StatusOK, rec.Code)
		}
	})
}

func TestAdminTokenAuthMiddleware(t *testing.T) {
	t.Run("requires a configured token", func(t *testing.T) {
		_, err := AdminTokenAuthMiddleware(AdminTokenAuthConfig{Token: "  "})
		require.Error(t, err)
	})

	t.Run("rejects a wrong token", func(t *testing.T) {
		mw, err := AdminTokenAuthMiddleware(AdminTokenAuthConfig{Token: "secret"})
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodPost, "/admin/bootstrap", nil)
		req.Header.Set(defaultAdminTokenHeader, "wrong")
		rec := httptest.NewRecorder()
		mw(okHandler()).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("accepts the right token and sets auth context", func(t *testing.T) {
		mw, err := AdminTokenAuthMiddleware(AdminTokenAuthConfig{Token: "secret"})
		require.NoError(t, err)

		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "admin_token", auth.Subject)
			w.WriteHeader(http.StatusOK)
		}))

		req := httptest.NewRequest(http.MethodPost, "/admin/bootstrap", nil)
		req.Header.Set(defaultAdminTokenHeader, "secret")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func mintToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(key))
	require.NoError(t, err)
	return signed
}

func TestBearerAuthMiddleware(t *testing.T) {
	const key = "test-signing-key"

	newHandler := func(t *testing.T, cfg BearerAuthConfig) http.Handler {
		t.Helper()
		mw, err := BearerAuthMiddleware(cfg)
		require.NoError(t, err)
		return mw(okHandler())
	}

	t.Run("disabled passes through", func(t *testing.T) {
		handler := newHandler(t, BearerAuthConfig{Enabled: false})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("requires a signing key", func(t *testing.T) {
		_, err := BearerAuthMiddleware(BearerAuthConfig{Enabled: true})
		require.Error(t, err)
	})

	t.Run("missing token is unauthorized", func(t *testing.T) {
		handler := newHandler(t, BearerAuthConfig{Enabled: true, SigningKey: key})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler with claims", func(t *testing.T) {
		mw, err := BearerAuthMiddleware(BearerAuthConfig{Enabled: true, SigningKey: key, Issuer: "storefront"})
		require.NoError(t, err)

		handler := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth, ok := AuthFromContext(r.Context())
			assert.True(t, ok)
			assert.Equal(t, "ada", auth.Subject)
			w.WriteHeader(http.StatusOK)
		}))

		token := mintToken(t, key, jwt.MapClaims{
			"sub": "ada",
			"iss": "storefront",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired token is unauthorized", func(t *testing.T) {
		handler := newHandler(t, BearerAuthConfig{Enabled: true, SigningKey: key})

		token := mintToken(t, key, jwt.MapClaims{
			"sub": "ada",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("token signed with another key is unauthorized", func(t *testing.T) {
		handler := newHandler(t, BearerAuthConfig{Enabled: true, SigningKey: key})

		token := mintToken(t, "other-key", jwt.MapClaims{
			"sub": "ada",
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		req := httptest.NewRequest(http.MethodPost, "/api/orders", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}
