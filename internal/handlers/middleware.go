package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"learnloop/internal/security"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const OwnerContextKey ContextKey = "owner"

// Middleware holds dependencies for middleware functions
type Middleware struct {
	jwtSecret []byte
	limiter   *security.RateLimiter
}

// NewMiddleware creates a new middleware instance
func NewMiddleware(jwtSecret string, limiter *security.RateLimiter) *Middleware {
	return &Middleware{
		jwtSecret: []byte(jwtSecret),
		limiter:   limiter,
	}
}

// RequireOwner validates the bearer token and puts the owner ID on the
// request context. Token issuance lives in the platform's auth service; this
// backend only verifies.
func (m *Middleware) RequireOwner(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ownerID, err := m.parseOwnerToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), OwnerContextKey, ownerID)
		next(w, r.WithContext(ctx))
	}
}

// RateLimit rejects requests once the owner's bucket for AI-backed endpoints
// is empty. Must run after RequireOwner.
func (m *Middleware) RateLimit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ownerID := OwnerFromContext(r.Context())
		if ownerID != 0 && !m.limiter.AllowOwner(ownerID) {
			http.Error(w, "Too many requests", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

func (m *Middleware) parseOwnerToken(token string) (int64, error) {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256"}))

	claims := &jwt.RegisteredClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return m.jwtSecret, nil
	})
	if err != nil {
		return 0, err
	}
	if !parsed.Valid || claims.Subject == "" {
		return 0, fmt.Errorf("invalid token claims")
	}

	ownerID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid subject claim: %w", err)
	}
	return ownerID, nil
}

// OwnerFromContext returns the authenticated owner ID, or 0 if absent
func OwnerFromContext(ctx context.Context) int64 {
	ownerID, _ := ctx.Value(OwnerContextKey).(int64)
	return ownerID
}

// Logging logs all HTTP requests
func Logging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		next.ServeHTTP(w, r)

		log.Printf("%s %s %s", r.Method, r.URL.Path, time.Since(start))
	})
}
