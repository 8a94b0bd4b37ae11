package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/leadgate-io/leadgate/internal/lead"
)

type (
	// stubStore implements lead.Store with canned responses for handler tests.
	stubStore struct {
		exists    bool
		existsErr error
		createErr error
		healthErr error
		findErr   error
		countErr  error
		leads     []lead.RawLead
		total     int64
	}

	// stubPublisher implements lead.Publisher with canned responses.
	stubPublisher struct {
		connected  bool
		publishErr error
		dlqErr     error
	}
)

func (s *stubStore) Create(_ context.Context, record *lead.RawLead) (*lead.RawLead, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}

	stored := *record
	stored.ID = 1
	stored.CreatedAt = time.Now()

	return &stored, nil
}

func (s *stubStore) ExistsAny(_ context.Context, _ lead.DuplicateKey) (bool, error) {
	return s.exists, s.existsErr
}

func (s *stubStore) Find(_ context.Context, _ lead.Filter, _ lead.Page) ([]lead.RawLead, int64, error) {
	if s.findErr != nil {
		return nil, 0, s.findErr
	}

	return s.leads, s.total, nil
}

func (s *stubStore) Count(_ context.Context, _ lead.Filter) (int64, error) {
	if s.countErr != nil {
		return 0, s.countErr
	}

	return s.total, nil
}

func (s *stubStore) HealthCheck(_ context.Context) error {
	return s.healthErr
}

func (p *stubPublisher) Connected() bool {
	return p.connected
}

func (p *stubPublisher) Publish(_ context.Context, _ *lead.Event) error {
	return p.publishErr
}

func (p *stubPublisher) PublishDeadLetter(_ context.Context, _ *lead.Event) error {
	return p.dlqErr
}

// newTestServer wires a Server around stubs with auth and rate limiting disabled.
func newTestServer(store *stubStore, pub *stubPublisher) *Server {
	cfg := LoadServerConfig()
	ingestor := lead.NewIngestor(store, pub, nil, "lead.raw", "lead.dlq")

	return NewServer(cfg, store, pub, ingestor, nil, nil, nil)
}

func healthyStubs() (*stubStore, *stubPublisher) {
	return &stubStore{}, &stubPublisher{connected: true}
}

const validLeadBody = `{
	"name": "Ada Lovelace",
	"company": "Analytical Engines Ltd",
	"website": "https://analytical-engines.example",
	"email": "ada@analytical-engines.example",
	"phone": "+44 20 7946 0958"
}`

func postLead(t *testing.T, server *Server, body, contentType string) *httptest.ResponseRecorder {
	t.Helper()

	r := httptest.NewRequest(http.MethodPost, "/v1/lead", strings.NewReader(body))
	r.Header.Set("Content-Type", contentType)

	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response body: %v\n%s", err, rec.Body.String())
	}

	return body
}

func TestHandleIngestLead_Accepted(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, validLeadBody, "application/json")

	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeJSON(t, rec)

	if body["status"] != "accepted" {
		t.Errorf("expected accepted status, got %v", body["status"])
	}

	leadBody, ok := body["lead"].(map[string]any)
	if !ok {
		t.Fatalf("expected lead object in response, got %v", body["lead"])
	}

	if leadBody["correlationId"] == "" || leadBody["correlationId"] == nil {
		t.Error("expected correlationId on the stored lead")
	}
}

func TestHandleIngestLead_UnsupportedMediaType(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, validLeadBody, "text/plain")

	if rec.Code != http.StatusUnsupportedMediaType {
		t.Errorf("expected 415, got %d", rec.Code)
	}
}

func TestHandleIngestLead_CharsetParameterAccepted(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, validLeadBody, "application/json; charset=utf-8")

	if rec.Code != http.StatusAccepted {
		t.Errorf("expected 202 with charset parameter, got %d", rec.Code)
	}
}

func TestHandleIngestLead_EmptyBody(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, "", "application/json")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty body, got %d", rec.Code)
	}
}

func TestHandleIngestLead_InvalidJSON(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, "{not json", "application/json")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid JSON, got %d", rec.Code)
	}
}

func TestHandleIngestLead_PayloadTooLarge(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	r := httptest.NewRequest(http.MethodPost, "/v1/lead", strings.NewReader(validLeadBody))
	r.Header.Set("Content-Type", "application/json")
	r.ContentLength = server.config.MaxRequestSize + 1

	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected 413, got %d", rec.Code)
	}
}

func TestHandleIngestLead_ValidationFailure(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	rec := postLead(t, server, `{"name": "Ada"}`, "application/json")

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	violations, ok := body["errors"].([]any)
	if !ok || len(violations) == 0 {
		t.Errorf("expected field violations in errors, got %v", body["errors"])
	}
}

func TestHandleIngestLead_Duplicate(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.exists = true

	server := newTestServer(store, pub)

	rec := postLead(t, server, validLeadBody, "application/json")

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	if body["title"] != "Conflict" {
		t.Errorf("expected Conflict title, got %v", body["title"])
	}
}

func TestHandleIngestLead_StoreFailure(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.createErr = errors.New("disk full")

	server := newTestServer(store, pub)

	rec := postLead(t, server, validLeadBody, "application/json")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleIngestLead_PublisherUnavailable(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	pub.connected = false

	server := newTestServer(store, pub)

	rec := postLead(t, server, validLeadBody, "application/json")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when broker is down, got %d", rec.Code)
	}
}

func TestHandleIngestLead_PublishFailure(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	pub.publishErr = errors.New("broker timeout")

	server := newTestServer(store, pub)

	rec := postLead(t, server, validLeadBody, "application/json")

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500 on dead-lettered publish, got %d", rec.Code)
	}
}

func TestHandleIngestLead_WrongMethod(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	// GET on the write path falls through to the catch-all route
	r := httptest.NewRequest(http.MethodGet, "/v1/lead", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for GET on write path, got %d", rec.Code)
	}
}

func TestHandleListLeads(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.leads = []lead.RawLead{
		{ID: 2, CorrelationID: "c2", Name: "B", Company: "B Co", Website: "https://b.example", Email: "b@b.example", Phone: "+2"},
		{ID: 1, CorrelationID: "c1", Name: "A", Company: "A Co", Website: "https://a.example", Email: "a@a.example", Phone: "+1"},
	}
	store.total = 42

	server := newTestServer(store, pub)

	r := httptest.NewRequest(http.MethodGet, "/api/leads?page=2&pageSize=10", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	body := decodeJSON(t, rec)

	if body["success"] != true {
		t.Errorf("expected success=true, got %v", body["success"])
	}

	data, ok := body["data"].([]any)
	if !ok || len(data) != 2 {
		t.Fatalf("expected 2 leads in data, got %v", body["data"])
	}

	pagination, ok := body["pagination"].(map[string]any)
	if !ok {
		t.Fatalf("expected pagination object, got %v", body["pagination"])
	}

	if pagination["page"] != float64(2) || pagination["pageSize"] != float64(10) {
		t.Errorf("expected page 2 size 10, got %v", pagination)
	}

	if pagination["total"] != float64(42) || pagination["totalPages"] != float64(5) {
		t.Errorf("expected total 42 across 5 pages, got %v", pagination)
	}
}

func TestHandleListLeads_InvalidParams(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	cases := []struct {
		name  string
		query string
	}{
		{"bad from", "?from=yesterday"},
		{"bad to", "?to=not-a-date"},
		{"page zero", "?page=0"},
		{"page not a number", "?page=abc"},
		{"pageSize too large", "?pageSize=500"},
		{"pageSize zero", "?pageSize=0"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/leads"+tc.query, nil)
			rec := httptest.NewRecorder()
			server.httpServer.Handler.ServeHTTP(rec, r)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected 400 for %s, got %d", tc.query, rec.Code)
			}
		})
	}
}

func TestHandleListLeads_StoreError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.findErr = errors.New("connection reset")

	server := newTestServer(store, pub)

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
}

func TestHandleCountLeads(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.total = 7

	server := newTestServer(store, pub)

	r := httptest.NewRequest(http.MethodGet, "/api/leads/raw/count", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	data, ok := body["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data object, got %v", body["data"])
	}

	if data["count"] != float64(7) {
		t.Errorf("expected count 7, got %v", data["count"])
	}
}

func TestHandleHealth(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	r := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	if got := rec.Header().Get("X-Leadgate-Version"); got != Version {
		t.Errorf("expected version header %q, got %q", Version, got)
	}

	body := decodeJSON(t, rec)

	if body["status"] != "ok" {
		t.Errorf("expected ok status, got %v", body["status"])
	}

	if body["serviceName"] != serviceName {
		t.Errorf("expected service %q, got %v", serviceName, body["serviceName"])
	}
}

func TestHandleReady(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	r := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	if body["status"] != "ready" || body["database"] != "ok" || body["broker"] != "ok" {
		t.Errorf("expected fully ready status, got %v", body)
	}
}

func TestHandleReady_DatabaseDown(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	store.healthErr = errors.New("connection refused")

	server := newTestServer(store, pub)

	r := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when database is down, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	if body["database"] != "unavailable" {
		t.Errorf("expected database unavailable, got %v", body)
	}
}

func TestHandleReady_BrokerDownStaysReady(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	store, pub := healthyStubs()
	pub.connected = false

	server := newTestServer(store, pub)

	r := httptest.NewRequest(http.MethodGet, "/ready", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	// Broker status is informational only: leads are stored durably without it
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with broker down, got %d", rec.Code)
	}

	body := decodeJSON(t, rec)

	if body["broker"] != "unavailable" {
		t.Errorf("expected broker unavailable in body, got %v", body)
	}
}

func TestHandleNotFound(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server := newTestServer(healthyStubs())

	r := httptest.NewRequest(http.MethodGet, "/no/such/path", nil)
	rec := httptest.NewRecorder()
	server.httpServer.Handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", got)
	}
}
