// ABOUTME: Tests for HTTP request logging middleware.
// ABOUTME: Verifies body buffering limits, response capture, and what gets logged per request.

package logging

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/2389/restadmin/internal/auth"
	"github.com/2389/restadmin/internal/store"
)

type recordingLogger struct {
	mu   sync.Mutex
	logs []*store.RequestLog
	err  error
}

func (r *recordingLogger) LogRequest(log *store.RequestLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logs = append(r.logs, log)
	return r.err
}

func TestResponseWriter_BuffersResponseBody(t *testing.T) {
	tests := []struct {
		name           string
		responseBody   string
		expectedCapped bool
	}{
		{
			name:           "small response",
			responseBody:   "Hello, World!",
			expectedCapped: false,
		},
		{
			name:           "response at limit",
			responseBody:   strings.Repeat("x", maxBodySize),
			expectedCapped: false,
		},
		{
			name:           "response exceeds limit",
			responseBody:   strings.Repeat("x", maxBodySize+1000),
			expectedCapped: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			wrapped := &responseWriter{
				ResponseWriter: rr,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			// Write response body
			n, err := wrapped.Write([]byte(tt.responseBody))
			if err != nil {
				t.Fatalf("Write() error = %v", err)
			}

			// Verify all bytes were written to the underlying writer
			if n != len(tt.responseBody) {
				t.Errorf("Write() returned %d, want %d", n, len(tt.responseBody))
			}

			// Verify buffered body respects size limit
			buffered := wrapped.body.String()
			if len(buffered) > maxBodySize {
				t.Errorf("Buffered body size %d exceeds maxBodySize %d", len(buffered), maxBodySize)
			}

			if tt.expectedCapped && len(buffered) != maxBodySize {
				t.Errorf("Expected buffered body to be capped at %d, got %d", maxBodySize, len(buffered))
			}
		})
	}
}

func TestResponseWriter_CapturesStatusCode(t *testing.T) {
	tests := []struct {
		name     string
		explicit bool
		code     int
	}{
		{"explicit status", true, http.StatusCreated},
		{"implicit status", false, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			wrapped := &responseWriter{
				ResponseWriter: rr,
				statusCode:     200,
				body:           &bytes.Buffer{},
			}

			if tt.explicit {
				wrapped.WriteHeader(tt.code)
			}

			// Write triggers implicit status if not set
			wrapped.Write([]byte("body"))

			if wrapped.statusCode != tt.code {
				t.Errorf("statusCode = %d, want %d", wrapped.statusCode, tt.code)
			}
		})
	}
}

func TestResponseWriter_PartialBufferOnLargeResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	wrapped := &responseWriter{
		ResponseWriter: rr,
		statusCode:     200,
		body:           &bytes.Buffer{},
	}

	// Write multiple chunks that exceed limit
	chunk1 := strings.Repeat("a", maxBodySize/2)
	chunk2 := strings.Repeat("b", maxBodySize)

	wrapped.Write([]byte(chunk1))
	wrapped.Write([]byte(chunk2))

	buffered := wrapped.body.String()
	if len(buffered) > maxBodySize {
		t.Errorf("Buffered body size %d exceeds maxBodySize %d", len(buffered), maxBodySize)
	}

	// Verify we got the first part of chunk1
	if !strings.HasPrefix(buffered, "a") {
		t.Errorf("Expected buffered body to start with 'a'")
	}
}

func TestResponseWriter_Hijack(t *testing.T) {
	rr := httptest.NewRecorder()
	wrapped := &responseWriter{
		ResponseWriter: rr,
		statusCode:     200,
		body:           &bytes.Buffer{},
	}

	// httptest.ResponseRecorder doesn't implement Hijacker, should return error
	_, _, err := wrapped.Hijack()
	if err != http.ErrNotSupported {
		t.Errorf("Hijack() error = %v, want %v", err, http.ErrNotSupported)
	}
}

func TestMiddleware_RequestBodySizeLimit(t *testing.T) {
	logs := &recordingLogger{}
	largeBody := strings.Repeat("x", maxBodySize+1000)

	var handlerRead int
	handler := Middleware(logs, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		handlerRead = len(body)
		w.WriteHeader(http.StatusCreated)
	}))

	req := httptest.NewRequest("POST", "/posts/", strings.NewReader(largeBody))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusCreated)
	}
	if handlerRead != len(largeBody) {
		t.Errorf("handler read %d bytes, want the full %d", handlerRead, len(largeBody))
	}
	if len(logs.logs) != 1 || len(logs.logs[0].RequestBody) != maxBodySize {
		t.Errorf("captured request body should be capped at %d bytes", maxBodySize)
	}
}

func TestMiddleware_SkipsHealthcheckLogging(t *testing.T) {
	logs := &recordingLogger{}

	handler := Middleware(logs, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/healthz", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Status code = %d, want %d", rr.Code, http.StatusOK)
	}
	if len(logs.logs) != 0 {
		t.Errorf("health check was logged: %+v", logs.logs)
	}
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	logs := &recordingLogger{}
	core, observed := observer.New(zapcore.InfoLevel)
	alice := &store.User{ID: 7, Username: "alice"}

	handler := Middleware(logs, zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Stands in for the auth middleware resolving a token.
		auth.WithUser(r.Context(), alice)
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`{"detail":"no"}`))
	}))

	req := httptest.NewRequest("DELETE", "/posts/3/?force=1", nil)
	req.Header.Set("X-Forwarded-For", "10.0.0.1, 10.0.0.2")
	req.Header.Set("User-Agent", "restadmin-test")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if len(logs.logs) != 1 {
		t.Fatalf("stored %d logs, want 1", len(logs.logs))
	}
	got := logs.logs[0]
	if got.Resource != "posts" || got.Method != "DELETE" || got.Path != "/posts/3/" || got.Query != "force=1" {
		t.Errorf("log = %+v", got)
	}
	if got.StatusCode != http.StatusForbidden {
		t.Errorf("StatusCode = %d, want 403", got.StatusCode)
	}
	if got.UserID != 7 {
		t.Errorf("UserID = %d, want 7", got.UserID)
	}
	if got.IPAddress != "10.0.0.1" || got.UserAgent != "restadmin-test" {
		t.Errorf("client info = %q %q", got.IPAddress, got.UserAgent)
	}
	if got.ResponseBody != `{"detail":"no"}` {
		t.Errorf("ResponseBody = %q", got.ResponseBody)
	}

	entries := observed.FilterMessage("request").All()
	if len(entries) != 1 {
		t.Fatalf("zap entries = %d, want 1", len(entries))
	}
	if status := entries[0].ContextMap()["status"]; status != int64(http.StatusForbidden) {
		t.Errorf("zap status field = %v, want 403", status)
	}
}

func TestMiddleware_StoreFailureIsLogged(t *testing.T) {
	logs := &recordingLogger{err: errors.New("database is locked")}
	core, observed := observer.New(zapcore.WarnLevel)

	handler := Middleware(logs, zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest("GET", "/posts/", nil))

	if rr.Code != http.StatusOK {
		t.Errorf("Status code = %d, want 200", rr.Code)
	}
	if observed.FilterMessage("failed to store request log").Len() != 1 {
		t.Error("expected a warning for the failed store write")
	}
}

func TestResponseWriter_RestoresRequestBody(t *testing.T) {
	originalBody := `{"title":"Hello"}`
	var handlerReadBody string

	handler := Middleware(nil, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		handlerReadBody = string(body)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("POST", "/posts/", strings.NewReader(originalBody))
	rr := httptest.NewRecorder()

	handler.ServeHTTP(rr, req)

	if handlerReadBody != originalBody {
		t.Errorf("Handler read body = %q, want %q", handlerReadBody, originalBody)
	}
}

func TestResourceFromPath(t *testing.T) {
	tests := map[string]string{
		"/posts/":          "posts",
		"/posts/3/":        "posts",
		"/api-token-auth/": "api-token-auth",
		"/users/2/":        "users",
		"/":                "",
		"":                 "",
	}
	for path, want := range tests {
		if got := ResourceFromPath(path); got != want {
			t.Errorf("ResourceFromPath(%q) = %q, want %q", path, got, want)
		}
	}
}
