package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type authContextKey struct{}

// AuthContext carries validated token claims.
type AuthContext struct {
	Subject string
	Issuer  string
	Claims  map[string]interface{}
}

// WithAuthContext attaches an auth context to a request context.
func WithAuthContext(ctx context.Context, auth AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, auth)
}

// AuthFromContext returns the auth context from a request context.
func AuthFromContext(ctx context.Context) (AuthContext, bool) {
	value := ctx.Value(authContextKey{})
	if value == nil {
		return AuthContext{}, false
	}
	auth, ok := value.(AuthContext)
	return auth, ok
}

// BearerAuthConfig controls JWT bearer validation for write endpoints.
type BearerAuthConfig struct {
	Enabled    bool
	SigningKey string // shared HS256 key
	Issuer     string // expected iss claim, optional
	Audience   string // expected aud claim, optional
	ClockSkew  time.Duration
}

// BearerAuthMiddleware validates an HS256 bearer token from the
// Authorization header and places the claims on the request context.
func BearerAuthMiddleware(cfg BearerAuthConfig) (func(http.Handler) http.Handler, error) {
	if !cfg.Enabled {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}
	key := strings.TrimSpace(cfg.SigningKey)
	if key == "" {
		return nil, fmt.Errorf("bearer auth signing key is required")
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(cfg.ClockSkew),
	}
	if cfg.Issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(cfg.Audience))
	}
	parser := jwt.NewParser(parserOpts...)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}

			claims := jwt.MapClaims{}
			token, err := parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(key), nil
			})
			if err != nil || !token.Valid {
				writeUnauthorized(w, "invalid bearer token")
				return
			}

			subject, _ := claims.GetSubject()
			issuer, _ := claims.GetIssuer()
			ctx := WithAuthContext(r.Context(), AuthContext{
				Subject: subject,
				Issuer:  issuer,
				Claims:  claims,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", `Bearer realm="storefront-api"`)
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = fmt.Fprintf(w, `{"error":%q}`, message)
}
