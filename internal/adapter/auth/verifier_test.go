package auth

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/user/plugin-gateway/internal/domain"
)

const testSecret = "test-secret"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHMACVerifier(t *testing.T) {
	v := NewHMACVerifier(testSecret)
	identity := domain.Identity{ID: "user-1", Email: "u@example.com", Name: "U", Scopes: []string{"settings"}}

	t.Run("valid token round-trips identity", func(t *testing.T) {
		token, err := GenerateToken(identity, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}

		got, err := v.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got.ID != identity.ID || got.Email != identity.Email || got.Name != identity.Name {
			t.Errorf("identity mismatch: got %+v want %+v", got, identity)
		}
	})

	t.Run("expired token rejected despite valid signature", func(t *testing.T) {
		token, err := GenerateToken(identity, testSecret, -time.Minute)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}

		_, err = v.Verify(context.Background(), token)
		assertUnauthorized(t, err)
	})

	t.Run("wrong secret rejected", func(t *testing.T) {
		token, err := GenerateToken(identity, "other-secret", time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}

		_, err = v.Verify(context.Background(), token)
		assertUnauthorized(t, err)
	})

	t.Run("malformed token rejected", func(t *testing.T) {
		_, err := v.Verify(context.Background(), "not.a.token")
		assertUnauthorized(t, err)
	})

	t.Run("empty subject rejected", func(t *testing.T) {
		token, err := GenerateToken(domain.Identity{}, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken: %v", err)
		}

		_, err = v.Verify(context.Background(), token)
		assertUnauthorized(t, err)
	})
}

func TestFederatedVerifier(t *testing.T) {
	t.Run("accepts provider-confirmed token", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer provider-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"sub": "fed-user", "email": "fed@example.com", "name": "Fed",
			})
		}))
		defer srv.Close()

		v := NewFederatedVerifier(srv.URL, time.Second)
		got, err := v.Verify(context.Background(), "provider-token")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got.ID != "fed-user" || got.Email != "fed@example.com" {
			t.Errorf("unexpected identity: %+v", got)
		}
	})

	t.Run("provider rejection fails verification", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		v := NewFederatedVerifier(srv.URL, time.Second)
		_, err := v.Verify(context.Background(), "bad-token")
		assertUnauthorized(t, err)
	})

	t.Run("timeout fails verification", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer srv.Close()

		v := NewFederatedVerifier(srv.URL, 20*time.Millisecond)
		_, err := v.Verify(context.Background(), "slow-token")
		assertUnauthorized(t, err)
	})

	t.Run("missing subject fails verification", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"email": "nobody@example.com"})
		}))
		defer srv.Close()

		v := NewFederatedVerifier(srv.URL, time.Second)
		_, err := v.Verify(context.Background(), "subjectless")
		assertUnauthorized(t, err)
	})
}

func TestChainVerifier(t *testing.T) {
	hmacVerifier := NewHMACVerifier(testSecret)

	t.Run("first strategy wins", func(t *testing.T) {
		chain := NewChainVerifier(discardLogger(), hmacVerifier)
		token, _ := GenerateToken(domain.Identity{ID: "u1"}, testSecret, time.Hour)

		got, err := chain.Verify(context.Background(), token)
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got.ID != "u1" {
			t.Errorf("ID = %q, want u1", got.ID)
		}
	})

	t.Run("falls through to federated strategy", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{"sub": "fed-user"})
		}))
		defer srv.Close()

		chain := NewChainVerifier(discardLogger(), hmacVerifier, NewFederatedVerifier(srv.URL, time.Second))
		got, err := chain.Verify(context.Background(), "opaque-provider-token")
		if err != nil {
			t.Fatalf("Verify: %v", err)
		}
		if got.ID != "fed-user" {
			t.Errorf("ID = %q, want fed-user", got.ID)
		}
	})

	t.Run("all strategies failing yields unauthorized", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer srv.Close()

		chain := NewChainVerifier(discardLogger(), hmacVerifier, NewFederatedVerifier(srv.URL, time.Second))
		_, err := chain.Verify(context.Background(), "garbage")
		assertUnauthorized(t, err)
	})

	t.Run("empty token yields unauthorized", func(t *testing.T) {
		chain := NewChainVerifier(discardLogger(), hmacVerifier)
		_, err := chain.Verify(context.Background(), "")
		assertUnauthorized(t, err)
	})
}

func assertUnauthorized(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	appErr, ok := domain.AsError(err)
	if !ok {
		t.Fatalf("expected a domain error, got %v", err)
	}
	if appErr.Code != domain.CodeUnauthorized {
		t.Errorf("code = %q, want %q", appErr.Code, domain.CodeUnauthorized)
	}
}
