// ABOUTME: Superuser inspection endpoints for the fake backend.
// ABOUTME: Serves the request log and a per-resource dashboard as JSON under /_admin.

package admin

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389/restadmin/internal/auth"
	apierrors "github.com/2389/restadmin/internal/errors"
	"github.com/2389/restadmin/internal/store"
)

// Prefix is where the admin routes are mounted.
const Prefix = "/_admin"

type Handlers struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewHandlers(s *store.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{store: s, logger: logger, now: time.Now}
}

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route(Prefix, func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Use(requireSuperuser)
		r.Get("/", h.dashboard)
		r.Get("/logs/", h.logsList)
	})
}

func requireSuperuser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := auth.UserFromContext(r.Context()); u == nil || !u.IsSuperuser {
			apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrPermissionDenied,
				"You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// LogEntry is a request log as served by /_admin/logs/.
type LogEntry struct {
	ID           int64     `json:"id"`
	Timestamp    time.Time `json:"timestamp"`
	Resource     string    `json:"resource"`
	Method       string    `json:"method"`
	Path         string    `json:"path"`
	Query        string    `json:"query,omitempty"`
	StatusCode   int       `json:"status_code"`
	DurationMs   int       `json:"duration_ms"`
	UserID       int64     `json:"user_id,omitempty"`
	RequestBody  any       `json:"request_body,omitempty"`
	ResponseBody any       `json:"response_body,omitempty"`
}

func newLogEntry(l *store.RequestLog) LogEntry {
	return LogEntry{
		ID:           l.ID,
		Timestamp:    l.Timestamp,
		Resource:     l.Resource,
		Method:       l.Method,
		Path:         l.Path,
		Query:        l.Query,
		StatusCode:   l.StatusCode,
		DurationMs:   l.DurationMs,
		UserID:       l.UserID,
		RequestBody:  decodeBody(l.RequestBody),
		ResponseBody: decodeBody(l.ResponseBody),
	}
}

// logsList handles GET /_admin/logs/ with optional resource, method, path,
// status, limit, and offset filters.
func (h *Handlers) logsList(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	q := &store.RequestLogQuery{
		Limit:      100,
		Resource:   values.Get("resource"),
		Method:     values.Get("method"),
		PathPrefix: values.Get("path"),
	}
	for key, dest := range map[string]*int{"status": &q.StatusCode, "limit": &q.Limit, "offset": &q.Offset} {
		raw := values.Get(key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Invalid "+key+".")
			return
		}
		*dest = n
	}

	total, err := h.store.CountRequestLogs(q)
	if err != nil {
		h.serverError(w, "count logs", err)
		return
	}
	logs, err := h.store.GetRequestLogs(q)
	if err != nil {
		h.serverError(w, "list logs", err)
		return
	}

	results := make([]LogEntry, 0, len(logs))
	for _, l := range logs {
		results = append(results, newLogEntry(l))
	}
	writeJSON(w, map[string]any{"count": total, "results": results})
}

// ResourceSummary is one row of the dashboard.
type ResourceSummary struct {
	Resource       string     `json:"resource"`
	Records        int        `json:"records"`
	RequestCount   int        `json:"request_count"`
	ErrorRate      float64    `json:"error_rate"`
	RecentRequests []LogEntry `json:"recent_requests"`
}

// dashboard handles GET /_admin/ with activity over the last 24 hours.
func (h *Handlers) dashboard(w http.ResponseWriter, r *http.Request) {
	since := h.now().Add(-24 * time.Hour)

	counts, err := h.store.ListResources()
	if err != nil {
		h.serverError(w, "list resources", err)
		return
	}

	summaries := make([]ResourceSummary, 0, len(counts))
	for _, c := range counts {
		summary := ResourceSummary{Resource: c.Resource, Records: c.Count, RecentRequests: []LogEntry{}}

		if summary.RequestCount, err = h.store.CountRequestLogs(&store.RequestLogQuery{Resource: c.Resource, Since: since}); err != nil {
			h.serverError(w, "count requests", err)
			return
		}
		if summary.ErrorRate, err = h.store.GetResourceErrorRate(c.Resource, since); err != nil {
			h.serverError(w, "error rate", err)
			return
		}
		recent, err := h.store.GetRequestLogs(&store.RequestLogQuery{Resource: c.Resource, Limit: 5})
		if err != nil {
			h.serverError(w, "recent requests", err)
			return
		}
		for _, l := range recent {
			summary.RecentRequests = append(summary.RecentRequests, newLogEntry(l))
		}
		summaries = append(summaries, summary)
	}

	writeJSON(w, map[string]any{"resources": summaries})
}

// decodeBody returns captured JSON bodies as values so they nest in the
// response, and anything else as the raw string.
func decodeBody(s string) any {
	if s == "" {
		return nil
	}
	var obj any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return s
	}
	return obj
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("admin handler failed", zap.String("op", op), zap.Error(err))
	apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}
