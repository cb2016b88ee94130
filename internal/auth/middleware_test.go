// ABOUTME: Tests for token authentication middleware.
// ABOUTME: Verifies header parsing, token resolution, and the RequireUser guard.

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/2389/restadmin/internal/store"
)

type fakeTokens map[string]*store.User

func (f fakeTokens) UserForToken(key string) (*store.User, error) {
	if key == "broken" {
		return nil, errors.New("disk on fire")
	}
	u, ok := f[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return u, nil
}

func TestMiddleware_ResolvesUser(t *testing.T) {
	alice := &store.User{ID: 2, Username: "alice"}
	tokens := fakeTokens{"abc123": alice}

	tests := []struct {
		name       string
		authHeader string
		wantStatus int
		wantUser   *store.User
		wantDetail string
	}{
		{"no header", "", http.StatusOK, nil, ""},
		{"token scheme", "Token abc123", http.StatusOK, alice, ""},
		{"lowercase scheme", "token abc123", http.StatusOK, alice, ""},
		{"other scheme ignored", "Bearer abc123", http.StatusOK, nil, ""},
		{"unknown token", "Token nope", http.StatusUnauthorized, nil, "Invalid token."},
		{"missing key", "Token", http.StatusUnauthorized, nil, "No credentials provided"},
		{"key with spaces", "Token abc 123", http.StatusUnauthorized, nil, "should not contain spaces"},
		{"store failure", "Token broken", http.StatusInternalServerError, nil, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUser *store.User
			handler := Middleware(tokens)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = UserFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest("GET", "/posts/", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler.ServeHTTP(rr, req)

			if rr.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.wantStatus)
			}
			if gotUser != tt.wantUser {
				t.Errorf("UserFromContext() = %v, want %v", gotUser, tt.wantUser)
			}
			if tt.wantDetail != "" && !strings.Contains(rr.Body.String(), tt.wantDetail) {
				t.Errorf("body = %s, want detail containing %q", rr.Body.String(), tt.wantDetail)
			}
			if rr.Code == http.StatusUnauthorized && rr.Header().Get("WWW-Authenticate") != "Token" {
				t.Errorf("WWW-Authenticate = %q, want Token", rr.Header().Get("WWW-Authenticate"))
			}
		})
	}
}

func TestRequireUser(t *testing.T) {
	handler := RequireUser(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/users/1/", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "Authentication credentials were not provided.") {
		t.Errorf("anonymous body = %s", rr.Body.String())
	}

	req := httptest.NewRequest("GET", "/users/1/", nil)
	req = req.WithContext(WithUser(req.Context(), &store.User{ID: 1}))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusNoContent {
		t.Errorf("authenticated status = %d, want 204", rr.Code)
	}
}
