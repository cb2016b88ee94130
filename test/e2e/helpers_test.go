// ABOUTME: Test helpers for E2E testing.
// ABOUTME: Starts a seeded fake backend over real HTTP and wires the client providers to it.

package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/2389/restadmin/authprovider"
	"github.com/2389/restadmin/dataprovider"
	"github.com/2389/restadmin/httpclient"
	"github.com/2389/restadmin/internal/seed"
	"github.com/2389/restadmin/internal/server"
	"github.com/2389/restadmin/internal/store"
	"github.com/2389/restadmin/session"
)

// seededPosts is how many posts StartTestServer creates.
const seededPosts = 4

// TestServer wraps a test HTTP server with a store
type TestServer struct {
	Server *httptest.Server
	Store  *store.Store
	// Token belongs to the seeded superuser "admin".
	Token string
}

// StartTestServer creates a seeded backend. It is closed when the test ends.
func StartTestServer(t *testing.T) *TestServer {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "e2e.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := seed.Run(context.Background(), s, seed.NewGenerator("", "", nil), seededPosts); err != nil {
		t.Fatalf("failed to seed store: %v", err)
	}

	admin, err := s.GetUserByUsername("admin")
	if err != nil {
		t.Fatalf("failed to load admin: %v", err)
	}
	token, err := s.TokenForUser(admin.ID)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}

	ts := &TestServer{
		Server: httptest.NewServer(server.New(s, nil)),
		Store:  s,
		Token:  token,
	}
	t.Cleanup(ts.Close)
	return ts
}

// Close shuts down the test server and cleans up
func (ts *TestServer) Close() {
	ts.Server.Close()
	ts.Store.Close()
}

// Client is one user's view of the backend: an auth provider and a data
// provider sharing a session store.
type Client struct {
	Auth *authprovider.Provider
	Data *dataprovider.Provider
}

// NewClient wires both providers to the test server with an in-memory session.
func (ts *TestServer) NewClient() *Client {
	auth := authprovider.New(authprovider.Options{
		ObtainAuthTokenURL: ts.Server.URL + "/api-token-auth/",
		ObtainUserInfoURL:  ts.Server.URL + "/users/",
		HTTPClient:         ts.Server.Client(),
		Store:              session.NewStore(session.NewMemoryStorage()),
	})
	return &Client{
		Auth: auth,
		Data: dataprovider.New(ts.Server.URL, auth.Client(httpclient.FetchJSON(ts.Server.Client()))),
	}
}

// LoggedInClient returns a client with a stored session for username.
func (ts *TestServer) LoggedInClient(t *testing.T, username, password string) *Client {
	t.Helper()
	c := ts.NewClient()
	if err := c.Auth.Login(context.Background(), username, password); err != nil {
		t.Fatalf("login %s failed: %v", username, err)
	}
	return c
}

// Do makes a request with the admin token unless token is overridden.
// An empty token sends no Authorization header.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequest(method, ts.Server.URL+path, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ts.Server.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

// GET makes a GET request as admin
func (ts *TestServer) GET(t *testing.T, path string) *http.Response {
	t.Helper()
	return ts.Do(t, http.MethodGet, path, ts.Token, nil)
}

// AssertStatusCode checks if response has expected status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Errorf("expected status %d, got %d. Body: %s", expected, resp.StatusCode, string(body))
	}
}

// DecodeJSON decodes response body as JSON
func DecodeJSON(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode JSON: %v", err)
	}
}
