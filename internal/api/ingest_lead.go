package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/leadgate-io/leadgate/internal/api/middleware"
	"github.com/leadgate-io/leadgate/internal/lead"
)

// handleIngestLead handles lead submission.
// POST /v1/lead - Validate, deduplicate, persist and publish one lead
//
// Request validation (returns 4xx):
//   - 415 Unsupported Media Type: Content-Type must be application/json
//   - 413 Payload Too Large: Request body exceeds MaxRequestSize
//   - 400 Bad Request: Empty body, invalid JSON, or field validation failure
//   - 409 Conflict: An existing lead matches an identifying field
//
// Success response:
//   - 202 Accepted: lead persisted and published to the primary topic
//
// Failure responses after the store commit:
//   - 503 Service Unavailable: broker down, lead stored but not published
//   - 500 Internal Server Error: primary publish failed, envelope dead-lettered
func (s *Server) handleIngestLead(w http.ResponseWriter, r *http.Request) {
	startTime := time.Now()
	correlationID := middleware.GetCorrelationID(r.Context())

	// Content-Type validation
	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, UnsupportedMediaType("Content-Type must be application/json"))

		return
	}

	submission, problem := s.parseLeadRequest(r)
	if problem != nil {
		WriteErrorResponse(w, r, s.logger, problem)

		return
	}

	result := s.ingestor.Ingest(r.Context(), submission)

	statusCode := s.sendIngestResponse(w, r, result)

	s.logger.Info("Lead submission processed",
		slog.String("correlation_id", correlationID),
		slog.String("lead_correlation_id", result.CorrelationID),
		slog.Int("status_code", statusCode),
		slog.Duration("duration", time.Since(startTime)),
	)
}

// parseLeadRequest parses and validates the HTTP request body.
// Returns the parsed submission or a ProblemDetail if parsing fails.
//
// Validates:
//   - Request size (optimization for known oversized requests)
//   - Empty body check (better UX than JSON decode error)
//   - JSON parsing
func (s *Server) parseLeadRequest(r *http.Request) (*lead.Submission, *ProblemDetail) {
	// Request size check (optimization: fail fast for known oversized requests)
	// Allow unknown sizes (-1) or 0 (empty, caught later)
	if r.ContentLength > 0 && r.ContentLength > s.config.MaxRequestSize {
		return nil, PayloadTooLarge(
			fmt.Sprintf("Request body exceeds maximum size of %d bytes", s.config.MaxRequestSize),
		)
	}

	// Empty body check (better UX: specific error message)
	if r.ContentLength == 0 {
		return nil, BadRequest("Request body cannot be empty")
	}

	var submission lead.Submission

	decoder := json.NewDecoder(io.LimitReader(r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&submission); err != nil {
		return nil, BadRequest("Invalid JSON: " + err.Error())
	}

	return &submission, nil
}

// sendIngestResponse maps the ingestion outcome to an HTTP response.
// Returns the status code written, for logging.
func (s *Server) sendIngestResponse(w http.ResponseWriter, r *http.Request, result *lead.Result) int {
	switch result.Outcome {
	case lead.OutcomeAccepted:
		return s.writeAccepted(w, r, result)

	case lead.OutcomeInvalid:
		problem := BadRequest("Lead validation failed").WithErrors(result.Violations)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusBadRequest

	case lead.OutcomeDuplicate:
		problem := Conflict("A lead with the same email, company or website already exists").
			WithCorrelationID(result.CorrelationID)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusConflict

	case lead.OutcomeStoreFailed:
		problem := InternalServerError("Failed to store lead").
			WithCorrelationID(result.CorrelationID)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusInternalServerError

	case lead.OutcomePublisherUnavailable:
		problem := ServiceUnavailable("Lead stored but event broker is unavailable").
			WithCorrelationID(result.CorrelationID)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusServiceUnavailable

	case lead.OutcomePublishFailed:
		problem := InternalServerError(
			"Lead stored but event delivery failed; the event was dead-lettered",
		).WithCorrelationID(result.CorrelationID)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusInternalServerError

	default:
		problem := InternalServerError("Unknown ingestion outcome").
			WithCorrelationID(result.CorrelationID)
		WriteErrorResponse(w, r, s.logger, problem)

		return http.StatusInternalServerError
	}
}

// writeAccepted writes the 202 response carrying the stored lead.
func (s *Server) writeAccepted(w http.ResponseWriter, r *http.Request, result *lead.Result) int {
	correlationID := middleware.GetCorrelationID(r.Context())

	response := IngestResponse{
		Status: "accepted",
		Lead:   result.Lead,
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.Error("Failed to marshal ingest response",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write(data)

	return http.StatusAccepted
}
