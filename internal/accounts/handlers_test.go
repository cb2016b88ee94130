// ABOUTME: Tests for the token and user-info endpoints.
// ABOUTME: Covers credential checks, token reuse, and user-info visibility rules.

package accounts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/2389/restadmin/internal/auth"
	"github.com/2389/restadmin/internal/store"
)

func setupRouter(t *testing.T) (http.Handler, *store.Store) {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "accounts.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	r := chi.NewRouter()
	r.Use(auth.Middleware(s))
	NewHandlers(s, nil).RegisterRoutes(r)
	return r, s
}

func serve(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var body map[string]any
	json.Unmarshal(rr.Body.Bytes(), &body)
	return rr, body
}

func TestObtainToken(t *testing.T) {
	router, s := setupRouter(t)
	alice := &store.User{Username: "alice"}
	if err := s.CreateUser(alice, "secret"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantKey    string
	}{
		{"valid", `{"username":"alice","password":"secret"}`, http.StatusOK, "token"},
		{"wrong password", `{"username":"alice","password":"nope"}`, http.StatusBadRequest, "non_field_errors"},
		{"unknown user", `{"username":"zed","password":"secret"}`, http.StatusBadRequest, "non_field_errors"},
		{"missing password", `{"username":"alice"}`, http.StatusBadRequest, "password"},
		{"malformed", `{"username":`, http.StatusBadRequest, "detail"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/api-token-auth/", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rr, body := serve(router, req)

			if rr.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d (body %s)", rr.Code, tt.wantStatus, rr.Body.String())
			}
			if _, ok := body[tt.wantKey]; !ok {
				t.Errorf("body %v missing key %q", body, tt.wantKey)
			}
			if tt.wantStatus == http.StatusOK && body["id"] != float64(alice.ID) {
				t.Errorf("id = %v, want %d", body["id"], alice.ID)
			}
		})
	}
}

func TestObtainToken_ReusesTokenAndAcceptsForms(t *testing.T) {
	router, s := setupRouter(t)
	if err := s.CreateUser(&store.User{Username: "alice"}, "secret"); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("POST", "/api-token-auth/", strings.NewReader(`{"username":"alice","password":"secret"}`))
	req.Header.Set("Content-Type", "application/json")
	_, first := serve(router, req)

	form := url.Values{"username": {"alice"}, "password": {"secret"}}
	req = httptest.NewRequest("POST", "/api-token-auth/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr, second := serve(router, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("form login status = %d", rr.Code)
	}
	if first["token"] == nil || first["token"] != second["token"] {
		t.Errorf("tokens differ: %v vs %v", first["token"], second["token"])
	}
}

func TestGetUser(t *testing.T) {
	router, s := setupRouter(t)

	alice := &store.User{
		Username:        "alice",
		FullName:        "Alice Liddell",
		Avatar:          "alice.png",
		Groups:          []string{"editors"},
		UserPermissions: []string{"view_posts"},
	}
	bob := &store.User{Username: "bob"}
	root := &store.User{Username: "root", IsSuperuser: true}
	tokens := map[string]string{}
	for _, u := range []*store.User{alice, bob, root} {
		if err := s.CreateUser(u, "pw"); err != nil {
			t.Fatal(err)
		}
		tokens[u.Username], _ = s.TokenForUser(u.ID)
	}

	get := func(token string, id int64) (*httptest.ResponseRecorder, map[string]any) {
		req := httptest.NewRequest("GET", "/users/"+strconv.FormatInt(id, 10)+"/", nil)
		if token != "" {
			req.Header.Set("Authorization", "Token "+token)
		}
		return serve(router, req)
	}

	rr, body := get(tokens["alice"], alice.ID)
	if rr.Code != http.StatusOK {
		t.Fatalf("own record status = %d", rr.Code)
	}
	if body["fullName"] != "Alice Liddell" || body["avatar"] != "alice.png" {
		t.Errorf("user info = %v", body)
	}
	if groups, ok := body["groups"].([]any); !ok || len(groups) != 1 || groups[0] != "editors" {
		t.Errorf("groups = %#v", body["groups"])
	}
	if perms, ok := body["user_permissions"].([]any); !ok || len(perms) != 1 {
		t.Errorf("user_permissions = %#v", body["user_permissions"])
	}
	if _, leaked := body["password_hash"]; leaked {
		t.Error("password hash exposed")
	}

	if rr, _ := get(tokens["bob"], alice.ID); rr.Code != http.StatusForbidden {
		t.Errorf("other user status = %d, want 403", rr.Code)
	}
	if rr, _ := get(tokens["root"], alice.ID); rr.Code != http.StatusOK {
		t.Errorf("superuser status = %d, want 200", rr.Code)
	}
	if rr, _ := get(tokens["root"], 9999); rr.Code != http.StatusNotFound {
		t.Errorf("missing user status = %d, want 404", rr.Code)
	}
	if rr, _ := get("", alice.ID); rr.Code != http.StatusUnauthorized {
		t.Errorf("anonymous status = %d, want 401", rr.Code)
	}
}

func TestGetUser_EmptyListsSerializeAsArrays(t *testing.T) {
	router, s := setupRouter(t)
	u := &store.User{Username: "plain"}
	if err := s.CreateUser(u, "pw"); err != nil {
		t.Fatal(err)
	}
	token, _ := s.TokenForUser(u.ID)

	req := httptest.NewRequest("GET", "/users/"+strconv.FormatInt(u.ID, 10)+"/", nil)
	req.Header.Set("Authorization", "token "+token)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if !strings.Contains(rr.Body.String(), `"groups":[]`) || !strings.Contains(rr.Body.String(), `"user_permissions":[]`) {
		t.Errorf("body = %s, want empty arrays", rr.Body.String())
	}
}
