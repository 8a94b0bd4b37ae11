// Package middleware provides HTTP middleware components for the Leadgate API.
package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"net/http"
	"strconv"
	"time"
)

// requestIDSize is the number of random bytes in a generated request
// correlation ID (8 bytes = 16 hex chars).
const requestIDSize = 8

// correlationIDKey is the context key for the request correlation ID.
type correlationIDKey struct{}

// CorrelationID creates a middleware that tags each request with a
// correlation ID for log tracing.
//
// This is the transport-level trace ID, distinct from the lead correlation
// id minted by the ingestion pipeline: the former identifies an HTTP
// exchange, the latter identifies a lead across store and stream.
//
// If the request already has a X-Correlation-ID header, that value is used.
// Otherwise a new ID is generated.
func CorrelationID() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			correlationID := r.Header.Get("X-Correlation-ID")

			if correlationID == "" {
				correlationID = generateRequestID()
			}

			// Echo back so callers can correlate responses with their logs
			w.Header().Set("X-Correlation-ID", correlationID)

			ctx := context.WithValue(r.Context(), correlationIDKey{}, correlationID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetCorrelationID extracts the request correlation ID from the context.
func GetCorrelationID(ctx context.Context) string {
	if correlationID, ok := ctx.Value(correlationIDKey{}).(string); ok {
		return correlationID
	}

	return "unknown"
}

// generateRequestID generates a new request correlation ID.
// Uses crypto/rand, falling back to a timestamp when entropy is unavailable.
func generateRequestID() string {
	bytes := make([]byte, requestIDSize)
	if _, err := rand.Read(bytes); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}

	return hex.EncodeToString(bytes)
}
