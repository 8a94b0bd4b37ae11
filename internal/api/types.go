// Package api provides the HTTP API server for the Leadgate service.
package api

import (
	"net/http"

	"github.com/leadgate-io/leadgate/internal/lead"
)

type (
	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// ReadyStatus represents the readiness check response structure.
	// Each dependency reports "ok" or "unavailable".
	ReadyStatus struct {
		Status   string `json:"status"`
		Database string `json:"database"`
		Broker   string `json:"broker"`
	}

	// IngestResponse is the body of a successful lead submission.
	IngestResponse struct {
		Status string        `json:"status"`
		Lead   *lead.RawLead `json:"lead"`
	}

	// LeadListResponse is the body of a lead listing request.
	LeadListResponse struct {
		Success    bool           `json:"success"`
		Data       []lead.RawLead `json:"data"`
		Pagination Pagination     `json:"pagination"`
	}

	// Pagination describes the page window of a list response.
	Pagination struct {
		Page       int   `json:"page"`
		PageSize   int   `json:"pageSize"`
		Total      int64 `json:"total"`
		TotalPages int64 `json:"totalPages"`
	}

	// LeadCountResponse is the body of a lead count request.
	LeadCountResponse struct {
		Success bool      `json:"success"`
		Data    CountData `json:"data"`
	}

	// CountData wraps the count value.
	CountData struct {
		Count int64 `json:"count"`
	}

	// Route represents an HTTP route configuration with a path and handler.
	// Used for declarative route registration with middleware bypass support.
	Route struct {
		Path    string           // The URL path for this route (e.g., "/health", "/metrics")
		Handler http.HandlerFunc // The HTTP handler function for this route
	}
)
