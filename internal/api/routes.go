// Package api provides the HTTP API server for the Leadgate service.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/leadgate-io/leadgate/internal/api/middleware"
)

const (
	healthCheckTimeout = 2 * time.Second
	expectedURLParts   = 2
)

// setupRoutes sets up all HTTP routes for the API server.
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Public health and observability endpoints
	s.registerPublicRoutes(
		mux,
		Route{"GET /health", s.handleHealth}, // Basic health check - status, uptime, version
		Route{"GET /ready", s.handleReady},   // K8s readiness probe - checks database
		Route{"/", s.handleNotFound},         // Catch-all handler for 404 responses
	)

	if s.metricsHandler != nil {
		s.registerPublicRoutes(mux, Route{"GET /metrics", s.metricsHandler.ServeHTTP})
	}

	// Write path
	mux.HandleFunc("POST /v1/lead", s.handleIngestLead)

	// Read path
	mux.HandleFunc("GET /api/leads", s.handleListLeads)
	mux.HandleFunc("GET /api/leads/raw/count", s.handleCountLeads)
}

// registerPublicRoutes registers HTTP routes that bypass authentication.
// This is a convenience method that:
//  1. Registers the route handler with the HTTP mux
//  2. Automatically registers the path as a public endpoint (bypasses auth middleware)
//
// Public routes should only be used for endpoints that need to be accessible
// without a bearer token (K8s probes, Prometheus scrapers).
//
// Security Warning: Never register business logic endpoints as public routes.
func (s *Server) registerPublicRoutes(mux *http.ServeMux, routes ...Route) {
	validHTTPMethods := map[string]bool{
		"GET":    true,
		"POST":   true,
		"PUT":    true,
		"PATCH":  true,
		"DELETE": true,
	}

	for _, route := range routes {
		mux.Handle(route.Path, route.Handler)

		// Strip method prefix for public endpoint bypass registration.
		// Go 1.22+ method-based routing uses "GET /path" format but
		// r.URL.Path is just "/path" (no method prefix).
		path := route.Path

		parts := strings.Fields(path)
		if len(parts) == expectedURLParts && validHTTPMethods[parts[0]] {
			path = strings.TrimSpace(parts[1])
		}

		if path == "" {
			s.logger.Warn("Malformed route path detected, ignoring route", slog.String("path", path))

			continue
		}

		middleware.RegisterPublicEndpoint(path)
	}
}

// handleHealth returns detailed health status information.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	// Calculate uptime if server has started
	var uptime string

	if !s.startTime.IsZero() {
		uptime = time.Since(s.startTime).Round(time.Second).String()
	}

	health := HealthStatus{
		Status:      "ok",
		ServiceName: serviceName,
		Version:     Version,
		Uptime:      uptime,
	}

	data, err := json.Marshal(health)
	if err != nil {
		s.logger.Error("Failed to encode health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode health response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Leadgate-Version", Version)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write health response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleReady responds to Kubernetes readiness probes.
//
// Response codes:
//   - 200 OK: the database is reachable
//   - 503 Service Unavailable: the database is unhealthy or unreachable
//
// Broker status is reported in the body but does not flip readiness: the
// ingestion protocol stores leads durably even when the broker is down, so
// the pod can still serve traffic.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	correlationID := middleware.GetCorrelationID(r.Context())

	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := ReadyStatus{
		Status:   "ready",
		Database: "ok",
		Broker:   "ok",
	}
	statusCode := http.StatusOK

	if err := s.store.HealthCheck(ctx); err != nil {
		s.logger.Error("Database health check failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		status.Status = "unavailable"
		status.Database = "unavailable"
		statusCode = http.StatusServiceUnavailable
	}

	if !s.publisher.Connected() {
		status.Broker = "unavailable"
	}

	data, err := json.Marshal(status)
	if err != nil {
		s.logger.Error("Failed to encode ready response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode ready response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write ready response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
	}
}

// handleNotFound returns RFC 7807 compliant 404 responses for unknown endpoints.
func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	WriteErrorResponse(w, r, s.logger, NotFound("The requested resource was not found"))
}

// hasJSONContentType checks if Content-Type header starts with "application/json".
// This allows charset parameters (e.g., "application/json; charset=utf-8").
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}
