package middleware

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestExtractBearerToken(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	cases := []struct {
		name          string
		header        string
		expectedToken string
		expectedFound bool
	}{
		{
			name:          "valid token",
			header:        "Bearer secret-token",
			expectedToken: "secret-token",
			expectedFound: true,
		},
		{
			name:          "token with surrounding whitespace",
			header:        "Bearer   secret-token  ",
			expectedToken: "secret-token",
			expectedFound: true,
		},
		{
			name:          "no header",
			header:        "",
			expectedFound: false,
		},
		{
			name:          "wrong scheme",
			header:        "Basic dXNlcjpwYXNz",
			expectedFound: false,
		},
		{
			name:          "lowercase bearer",
			header:        "bearer secret-token",
			expectedFound: false,
		},
		{
			name:          "bearer with no token",
			header:        "Bearer ",
			expectedFound: false,
		},
		{
			name:          "token containing newline",
			header:        "Bearer secret\ntoken",
			expectedFound: false,
		},
		{
			name:          "token containing carriage return",
			header:        "Bearer secret\rtoken",
			expectedFound: false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
			if tc.header != "" {
				r.Header.Set("Authorization", tc.header)
			}

			token, found := extractBearerToken(r)

			if found != tc.expectedFound {
				t.Fatalf("expected found=%v, got %v", tc.expectedFound, found)
			}

			if found && token != tc.expectedToken {
				t.Errorf("expected token %q, got %q", tc.expectedToken, token)
			}
		})
	}
}

func TestNewTokenVerifier(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	t.Run("plaintext token", func(t *testing.T) {
		v, err := NewTokenVerifier(&AuthConfig{Token: "secret"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !v.Verify("secret") {
			t.Error("expected matching token to verify")
		}

		if v.Verify("wrong") {
			t.Error("expected wrong token to fail")
		}
	})

	t.Run("bcrypt hash", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash token: %v", err)
		}

		v, err := NewTokenVerifier(&AuthConfig{TokenHash: string(hash)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !v.Verify("secret") {
			t.Error("expected matching token to verify against hash")
		}

		if v.Verify("wrong") {
			t.Error("expected wrong token to fail against hash")
		}
	})

	t.Run("hash takes precedence over token", func(t *testing.T) {
		hash, err := bcrypt.GenerateFromPassword([]byte("hashed-secret"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("failed to hash token: %v", err)
		}

		v, err := NewTokenVerifier(&AuthConfig{Token: "plain-secret", TokenHash: string(hash)})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !v.Verify("hashed-secret") {
			t.Error("expected hash mode to win")
		}

		if v.Verify("plain-secret") {
			t.Error("plaintext token must be ignored when a hash is configured")
		}
	})

	t.Run("fails closed when nothing configured", func(t *testing.T) {
		_, err := NewTokenVerifier(&AuthConfig{})
		if !errors.Is(err, ErrNoTokenConfigured) {
			t.Errorf("expected ErrNoTokenConfigured, got %v", err)
		}
	})
}

func TestAuthenticate_ValidToken(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	v, err := NewTokenVerifier(&AuthConfig{Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	called := false
	handler := Authenticate(v, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	r.Header.Set("Authorization", "Bearer secret")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if !called {
		t.Error("expected handler to be called with valid token")
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthenticate_MissingToken(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	v, err := NewTokenVerifier(&AuthConfig{Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handler := Authenticate(v, discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not be called without a token")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	if got := rec.Header().Get("WWW-Authenticate"); got != `Bearer realm="leadgate"` {
		t.Errorf("expected WWW-Authenticate challenge, got %q", got)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", got)
	}

	var problem map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &problem); err != nil {
		t.Fatalf("failed to decode problem response: %v", err)
	}

	if problem["title"] != "Unauthorized" {
		t.Errorf("expected Unauthorized title, got %v", problem["title"])
	}

	if _, ok := problem["correlationId"]; !ok {
		t.Error("expected correlationId in problem response")
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	v, err := NewTokenVerifier(&AuthConfig{Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	handler := Authenticate(v, discardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("handler must not be called with an invalid token")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/leads", nil)
	r.Header.Set("Authorization", "Bearer wrong")

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestAuthenticate_PublicEndpointBypass(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	RegisterPublicEndpoint("/health-auth-test")

	t.Cleanup(func() {
		delete(publicEndpoints, "/health-auth-test")
	})

	v, err := NewTokenVerifier(&AuthConfig{Token: "secret"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	called := false
	handler := Authenticate(v, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))

	// No Authorization header at all
	r := httptest.NewRequest(http.MethodGet, "/health-auth-test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, r)

	if !called {
		t.Error("expected public endpoint to bypass authentication")
	}

	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
}

func TestAuthError(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	err := &AuthError{Type: ErrMissingToken, Message: "Missing bearer token"}

	if !errors.Is(err, ErrMissingToken) {
		t.Error("expected AuthError to unwrap to ErrMissingToken")
	}

	if err.Error() == "" {
		t.Error("expected non-empty error message")
	}
}
