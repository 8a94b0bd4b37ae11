package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/leadgate-io/leadgate/internal/api/middleware"
	"github.com/leadgate-io/leadgate/internal/lead"
)

type (
	// leadListParams holds parsed query parameters for lead listing.
	leadListParams struct {
		query    string
		from     *time.Time
		to       *time.Time
		page     int
		pageSize int
	}

	// paramError represents a parameter validation error.
	paramError struct {
		param string
		msg   string
	}
)

func (e *paramError) Error() string {
	return "Invalid parameter '" + e.param + "': " + e.msg
}

// handleListLeads handles GET /api/leads.
// Returns a paginated list of stored leads with optional filtering.
//
// Query Parameters:
//   - q: free-text filter, matched as case-insensitive substring against
//     email, name, company and website
//   - from: ISO8601 timestamp (inclusive lower bound on createdAt)
//   - to: ISO8601 timestamp (inclusive upper bound on createdAt)
//   - page: >= 1 (default: 1)
//   - pageSize: 1-200 (default: 20)
//
// Response: LeadListResponse with leads sorted by id DESC.
func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	params, err := parseLeadListParams(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	filter := lead.Filter{Query: params.query, From: params.from, To: params.to}
	page := lead.Page{Number: params.page, Size: params.pageSize}.Normalize()

	leads, total, err := s.store.Find(ctx, filter, page)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query leads",
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to query leads"))

		return
	}

	totalPages := total / int64(page.Size)
	if total%int64(page.Size) != 0 {
		totalPages++
	}

	response := LeadListResponse{
		Success: true,
		Data:    leads,
		Pagination: Pagination{
			Page:       page.Number,
			PageSize:   page.Size,
			Total:      total,
			TotalPages: totalPages,
		},
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal leads response",
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// handleCountLeads handles GET /api/leads/raw/count.
// Returns the total number of stored leads matching the same filters as the
// listing endpoint.
func (s *Server) handleCountLeads(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	correlationID := middleware.GetCorrelationID(ctx)

	params, err := parseLeadListParams(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	filter := lead.Filter{Query: params.query, From: params.from, To: params.to}

	count, err := s.store.Count(ctx, filter)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to count leads",
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to count leads"))

		return
	}

	response := LeadCountResponse{
		Success: true,
		Data:    CountData{Count: count},
	}

	data, err := json.Marshal(response)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to marshal count response",
			"correlation_id", correlationID,
			"error", err.Error(),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// parseLeadListParams parses and validates query parameters.
func parseLeadListParams(r *http.Request) (*leadListParams, error) {
	q := r.URL.Query()

	params := &leadListParams{
		query:    q.Get("q"),
		page:     1,
		pageSize: lead.DefaultPageSize,
	}

	// Parse from (ISO8601 timestamp)
	if from := q.Get("from"); from != "" {
		t, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return nil, &paramError{param: "from", msg: "must be valid ISO8601 timestamp"}
		}

		params.from = &t
	}

	// Parse to (ISO8601 timestamp)
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return nil, &paramError{param: "to", msg: "must be valid ISO8601 timestamp"}
		}

		params.to = &t
	}

	// Parse page
	if pageStr := q.Get("page"); pageStr != "" {
		page, err := strconv.Atoi(pageStr)
		if err != nil {
			return nil, &paramError{param: "page", msg: "must be a valid integer"}
		}

		if page < 1 {
			return nil, &paramError{param: "page", msg: "must be >= 1"}
		}

		params.page = page
	}

	// Parse pageSize
	if sizeStr := q.Get("pageSize"); sizeStr != "" {
		size, err := strconv.Atoi(sizeStr)
		if err != nil {
			return nil, &paramError{param: "pageSize", msg: "must be a valid integer"}
		}

		if size < 1 || size > lead.MaxPageSize {
			return nil, &paramError{param: "pageSize", msg: "must be between 1 and 200"}
		}

		params.pageSize = size
	}

	return params, nil
}
