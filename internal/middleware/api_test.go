// Copyright (c) 2025-2026 MudBeaver Labs
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/mudbeaver/site-api/internal/model"
	"github.com/mudbeaver/site-api/internal/store"
	"github.com/mudbeaver/site-api/internal/testutil"
)

// seedAPIKey inserts an API key row and returns the raw key for use in
// Authorization headers.
func seedAPIKey(t *testing.T, q *store.Queries, role string, active bool, expiresAt sql.NullTime) string {
	t.Helper()

	rawKey, prefix, err := model.GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	userID := testutil.CreateTestUser(t, q)
	now := time.Now()
	_, err = q.CreateAPIKey(context.Background(), store.CreateAPIKeyParams{
		Name:      "test key",
		KeyHash:   model.HashAPIKey(rawKey),
		KeyPrefix: prefix,
		Role:      role,
		IsActive:  active,
		ExpiresAt: expiresAt,
		CreatedBy: userID,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreateAPIKey: %v", err)
	}
	return rawKey
}

// okHandler records whether it ran and echoes the context key's role.
func okHandler(called *bool) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*called = true
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyAuth_ValidKey(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	q := store.New(db)
	rawKey := seedAPIKey(t, q, model.RoleAdmin, true, sql.NullTime{})

	var called bool
	handler := APIKeyAuth(db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		apiKey := GetAPIKey(r)
		if apiKey == nil {
			t.Fatal("GetAPIKey returned nil inside authenticated handler")
		}
		if !apiKey.IsAdmin() {
			t.Error("expected admin key in context")
		}
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
	req.Header.Set("Authorization", "Bearer "+rawKey)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if !called {
		t.Error("handler was not called with a valid key")
	}
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestAPIKeyAuth_Rejections(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	q := store.New(db)
	inactiveKey := seedAPIKey(t, q, model.RoleAdmin, false, sql.NullTime{})
	expiredKey := seedAPIKey(t, q, model.RoleAdmin, true,
		sql.NullTime{Time: time.Now().Add(-time.Hour), Valid: true})

	tests := []struct {
		name       string
		authHeader string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty key", "Bearer "},
		{"unknown key", "Bearer mbk_does-not-exist"},
		{"inactive key", "Bearer " + inactiveKey},
		{"expired key", "Bearer " + expiredKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var called bool
			handler := APIKeyAuth(db)(okHandler(&called))

			req := httptest.NewRequest(http.MethodGet, "/api/v1/posts", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if called {
				t.Error("handler ran despite invalid credentials")
			}
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
			}

			var apiErr APIError
			if err := json.Unmarshal(rec.Body.Bytes(), &apiErr); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if apiErr.Error.Code != "unauthorized" {
				t.Errorf("error code = %q, want %q", apiErr.Error.Code, "unauthorized")
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Run("admin key passes", func(t *testing.T) {
		var called bool
		handler := RequireAdmin()(okHandler(&called))

		key := model.APIKey{Role: model.RoleAdmin, IsActive: true}
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/posts/1", nil)
		req = req.WithContext(context.WithValue(req.Context(), ContextKeyAPIKey, key))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if !called {
			t.Error("handler was not called for admin key")
		}
	})

	t.Run("non-admin key forbidden", func(t *testing.T) {
		var called bool
		handler := RequireAdmin()(okHandler(&called))

		key := model.APIKey{Role: "viewer", IsActive: true}
		req := httptest.NewRequest(http.MethodDelete, "/api/v1/posts/1", nil)
		req = req.WithContext(context.WithValue(req.Context(), ContextKeyAPIKey, key))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if called {
			t.Error("handler ran for non-admin key")
		}
		if rec.Code != http.StatusForbidden {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("no key unauthorized", func(t *testing.T) {
		var called bool
		handler := RequireAdmin()(okHandler(&called))

		req := httptest.NewRequest(http.MethodDelete, "/api/v1/posts/1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if called {
			t.Error("handler ran without a key")
		}
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
		}
	})
}

func TestGlobalRateLimiter(t *testing.T) {
	rl := NewGlobalRateLimiter(1, 2)
	handler := rl.Middleware()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/contact", nil)
		req.Header.Set("X-Forwarded-For", ip)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	// Burst of 2, then rejected.
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("first request status = %d, want 200", code)
	}
	if code := send("10.0.0.1"); code != http.StatusOK {
		t.Errorf("second request status = %d, want 200", code)
	}
	if code := send("10.0.0.1"); code != http.StatusTooManyRequests {
		t.Errorf("third request status = %d, want 429", code)
	}

	// A different client is unaffected.
	if code := send("10.0.0.2"); code != http.StatusOK {
		t.Errorf("other client status = %d, want 200", code)
	}
}

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"remote addr only", "192.168.1.5:4444", nil, "192.168.1.5"},
		{"x-forwarded-for single", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.7"}, "203.0.113.7"},
		{"x-forwarded-for list", "10.0.0.1:80", map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.2"}, "203.0.113.7"},
		{"x-real-ip", "10.0.0.1:80", map[string]string{"X-Real-IP": "198.51.100.3"}, "198.51.100.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := GetClientIP(req); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
