// Package middleware provides HTTP middleware components for the Leadgate API.
package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// publicEndpoints defines public endpoints that bypass authentication.
// These endpoints are accessible without a bearer token (e.g., K8s health
// probes, Prometheus scrapers).
//
// Security note: Only health and metrics endpoints should be in this map.
// Never add business logic endpoints to this bypass list.
var publicEndpoints = map[string]bool{} //nolint: gochecknoglobals

// RegisterPublicEndpoint registers an endpoint that bypasses authentication.
// This should only be called during route setup.
//
// Example:
//
//	middleware.RegisterPublicEndpoint("/health")
//	middleware.RegisterPublicEndpoint("/metrics")
func RegisterPublicEndpoint(endpoint string) {
	publicEndpoints[endpoint] = true
}

type (
	// AuthError represents an authentication error with a specific type.
	AuthError struct {
		Type    error
		Message string
	}

	// TokenVerifier checks presented bearer tokens against the configured
	// service token.
	//
	// Two configuration modes are supported:
	//   - plaintext token: compared in constant time
	//   - bcrypt hash of the token: the presented token never needs to be
	//     stored in cleartext on the server side
	//
	// The hash mode takes precedence when both are configured.
	TokenVerifier struct {
		token []byte
		hash  []byte
	}
)

// Authentication error types for granular error handling.
var (
	// ErrMissingToken is returned when no bearer token is provided.
	ErrMissingToken = errors.New("missing bearer token")

	// ErrInvalidToken is returned for a malformed or unrecognized token.
	// Generic error prevents enumeration attacks.
	ErrInvalidToken = errors.New("invalid bearer token")

	// ErrNoTokenConfigured is returned by NewTokenVerifier when neither a
	// token nor a token hash is configured.
	ErrNoTokenConfigured = errors.New("no API token configured")
)

// NewTokenVerifier creates a verifier from the auth configuration.
// Returns ErrNoTokenConfigured if neither Token nor TokenHash is set:
// the service fails closed rather than running with open endpoints.
func NewTokenVerifier(cfg *AuthConfig) (*TokenVerifier, error) {
	if cfg.TokenHash != "" {
		return &TokenVerifier{hash: []byte(cfg.TokenHash)}, nil
	}

	if cfg.Token != "" {
		return &TokenVerifier{token: []byte(cfg.Token)}, nil
	}

	return nil, ErrNoTokenConfigured
}

// Verify reports whether the presented token matches the configured one.
// Both comparison modes are constant time with respect to the token value.
func (v *TokenVerifier) Verify(candidate string) bool {
	if len(v.hash) > 0 {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(candidate)) == nil
	}

	return subtle.ConstantTimeCompare(v.token, []byte(candidate)) == 1
}

// extractBearerToken extracts the token from the Authorization header.
//
// Returns (token, true) if found and valid, ("", false) otherwise.
//
// Security considerations:
// - Rejects tokens containing newlines (header injection prevention)
// - Trims whitespace from tokens
// - Case-sensitive "Bearer " prefix check.
func extractBearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", false
	}

	// Check for "Bearer " prefix (note the space)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	token := strings.TrimPrefix(authHeader, "Bearer ")

	// Security: Reject tokens containing newlines (header injection prevention)
	if strings.ContainsAny(token, "\r\n") {
		return "", false
	}

	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}

	return token, true
}

// Error implements the error interface for AuthError.
func (e *AuthError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("authentication failed: %s: %s", e.Type.Error(), e.Message)
	}

	return "authentication failed: " + e.Type.Error()
}

// Unwrap returns the wrapped error type, enabling standard errors.Is() and errors.As() behavior.
func (e *AuthError) Unwrap() error {
	return e.Type
}

// Authenticate creates a middleware that validates the bearer token on
// every request that is not a registered public endpoint.
//
// The middleware:
// - Extracts the token from the Authorization: Bearer header
// - Verifies it against the configured service token
// - Returns RFC 7807 compliant error responses on failure
func Authenticate(verifier *TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Check if this path bypasses authentication (public endpoints)
			if publicEndpoints[r.URL.Path] {
				next.ServeHTTP(w, r)

				return
			}

			authStart := time.Now()

			token, found := extractBearerToken(r)
			if !found {
				writeAuthError(w, r, logger, &AuthError{
					Type:    ErrMissingToken,
					Message: "Missing bearer token",
				})

				return
			}

			if !verifier.Verify(token) {
				writeAuthError(w, r, logger, &AuthError{
					Type:    ErrInvalidToken,
					Message: "Invalid bearer token",
				})

				return
			}

			logger.Debug("Bearer token authenticated",
				slog.Duration("auth_latency", time.Since(authStart)),
				slog.String("correlation_id", GetCorrelationID(r.Context())),
				slog.String("endpoint", r.URL.Path),
			)

			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthError writes an RFC 7807 compliant error response for authentication failures.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	correlationID := GetCorrelationID(r.Context())

	// All token failures map to 401; the generic detail prevents enumeration
	statusCode := http.StatusUnauthorized

	// Log authentication failure (no sensitive data)
	logger.Warn("Authentication failed",
		slog.String("reason", err.Error()),
		slog.String("correlation_id", correlationID),
		slog.String("endpoint", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
	)

	w.Header().Set("WWW-Authenticate", `Bearer realm="leadgate"`)

	detail := err.Error()
	if writeErr := writeRFC7807Error(w, r, statusCode, detail, correlationID); writeErr != nil {
		logger.Error("failed to write response with RFC 7807 error format",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("detail", detail),
			slog.Any("error", writeErr),
		)

		// Fallback to plain text if writeRFC7807Error fails
		http.Error(w, detail, statusCode)
	}
}

// writeRFC7807Error writes an RFC 7807 compliant error response without importing the api package.
func writeRFC7807Error(
	w http.ResponseWriter,
	r *http.Request,
	statusCode int,
	detail,
	correlationID string,
) error {
	// Map status code to title
	var title string

	switch statusCode {
	case http.StatusUnauthorized:
		title = "Unauthorized"
	case http.StatusForbidden:
		title = "Forbidden"
	case http.StatusTooManyRequests:
		title = "Too Many Requests"
	default:
		title = "Authentication Failed"
	}

	// Create RFC 7807 problem detail
	problem := map[string]interface{}{
		"type":          fmt.Sprintf("https://leadgate.io/problems/%d", statusCode),
		"title":         title,
		"status":        statusCode,
		"detail":        detail,
		"instance":      r.URL.Path,
		"correlationId": correlationID,
	}

	// Set proper content type and status code
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(problem)
}
