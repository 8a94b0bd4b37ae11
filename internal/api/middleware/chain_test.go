package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

// appendOption records its tag when the request passes through it.
func appendOption(tag string, order *[]string) Option {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			*order = append(*order, tag)
			next.ServeHTTP(w, r)
		})
	}
}

func TestApply_OrderIsOutermostFirst(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	var order []string

	handler := Apply(
		http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
			order = append(order, "handler")
		}),
		appendOption("first", &order),
		appendOption("second", &order),
		appendOption("third", &order),
	)

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	handler.ServeHTTP(httptest.NewRecorder(), r)

	expected := []string{"first", "second", "third", "handler"}
	if len(order) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, order)
	}

	for i := range expected {
		if order[i] != expected[i] {
			t.Fatalf("expected %v, got %v", expected, order)
		}
	}
}

func TestApply_NoOptions(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	base := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	handler := Apply(base)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusTeapot {
		t.Errorf("expected base handler unchanged, got %d", rec.Code)
	}
}

func TestWithAuth_NilVerifierIsNoOp(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	called := false

	handler := Apply(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}),
		WithAuth(nil, discardLogger()),
	)

	// No Authorization header; nil verifier must pass everything through
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/leads", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("expected pass-through with nil verifier, called=%v code=%d", called, rec.Code)
	}
}

func TestWithRateLimit_NilLimiterIsNoOp(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	called := false

	handler := Apply(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			called = true
			w.WriteHeader(http.StatusOK)
		}),
		WithRateLimit(nil, discardLogger()),
	)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/lead", nil))

	if !called || rec.Code != http.StatusOK {
		t.Errorf("expected pass-through with nil limiter, called=%v code=%d", called, rec.Code)
	}
}
