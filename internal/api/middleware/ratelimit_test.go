package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestInMemoryRateLimiter_PerClientLimit(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	// High global ceiling so only the per-client tier can reject
	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   10000,
		ClientRPS:   1,
		ClientBurst: 2,
	})

	t.Cleanup(func() {
		_ = rl.Close()
	})

	if !rl.Allow("10.0.0.1") || !rl.Allow("10.0.0.1") {
		t.Fatal("expected burst of 2 to be allowed for first client")
	}

	if rl.Allow("10.0.0.1") {
		t.Error("expected third immediate request from same client to be rejected")
	}

	// A different client has its own bucket
	if !rl.Allow("10.0.0.2") {
		t.Error("expected second client to be unaffected")
	}
}

func TestInMemoryRateLimiter_GlobalLimit(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   1,
		GlobalBurst: 2,
		ClientRPS:   10000,
	})

	t.Cleanup(func() {
		_ = rl.Close()
	})

	// Global tier rejects regardless of the client key
	allowed := 0

	for i := range 5 {
		if rl.Allow("10.0.0." + string(rune('1'+i))) {
			allowed++
		}
	}

	if allowed != 2 {
		t.Errorf("expected exactly the global burst of 2 allowed, got %d", allowed)
	}
}

func TestInMemoryRateLimiter_EmptyClientSkipsPerClientTier(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   10000,
		ClientRPS:   1,
		ClientBurst: 1,
	})

	t.Cleanup(func() {
		_ = rl.Close()
	})

	for range 10 {
		if !rl.Allow("") {
			t.Fatal("expected empty client id to bypass the per-client tier")
		}
	}
}

func TestClientKey(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := httptest.NewRequest(http.MethodGet, "/v1/lead", nil)
	r.RemoteAddr = "192.0.2.7:54321"

	if got := clientKey(r); got != "192.0.2.7" {
		t.Errorf("expected ephemeral port stripped, got %q", got)
	}

	// No port: use the address as-is
	r.RemoteAddr = "192.0.2.7"

	if got := clientKey(r); got != "192.0.2.7" {
		t.Errorf("expected raw address when no port present, got %q", got)
	}
}

func TestRateLimit_Returns429(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	rl := NewInMemoryRateLimiter(&Config{
		GlobalRPS:   1,
		GlobalBurst: 1,
		ClientRPS:   10000,
	})

	t.Cleanup(func() {
		_ = rl.Close()
	})

	handler := RateLimit(rl, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodPost, "/v1/lead", nil)
	r.RemoteAddr = "192.0.2.7:54321"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected first request allowed, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once the bucket is drained, got %d", rec.Code)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", got)
	}

	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem response: %v", err)
	}

	if problem["title"] != "Too Many Requests" {
		t.Errorf("expected Too Many Requests title, got %v", problem["title"])
	}
}
