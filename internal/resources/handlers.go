// ABOUTME: Generic REST handlers serving every resource collection of the fake backend.
// ABOUTME: Implements paginated listing plus member get/create/update/delete with permission checks.

package resources

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389/restadmin/internal/auth"
	apierrors "github.com/2389/restadmin/internal/errors"
	"github.com/2389/restadmin/internal/store"
)

const maxUploadSize = 32 << 20

// Reserved paths are served by other handlers, never as resources.
var reserved = map[string]bool{
	"users":          true,
	"api-token-auth": true,
	"healthz":        true,
	"_admin":         true,
}

// listParams are the query keys with a fixed meaning; every other key is
// an equality filter.
var listParams = map[string]bool{
	"page":      true,
	"page_size": true,
	"ordering":  true,
	"search":    true,
	"format":    true,
}

type Handlers struct {
	store  *store.Store
	logger *zap.Logger
}

func NewHandlers(s *store.Store, logger *zap.Logger) *Handlers {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{store: s, logger: logger}
}

// RegisterRoutes mounts /{resource}/ and /{resource}/{id}/. Every route
// needs an authenticated user holding the matching permission.
func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Route("/{resource}", func(r chi.Router) {
		r.Use(auth.RequireUser)
		r.Use(h.requirePermission)

		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}/", h.get)
		r.Patch("/{id}/", h.update)
		r.Put("/{id}/", h.update)
		r.Delete("/{id}/", h.delete)
	})
}

// Action returns the permission prefix a method requires.
func Action(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return "view"
	case http.MethodPost:
		return "add"
	case http.MethodPut, http.MethodPatch:
		return "change"
	case http.MethodDelete:
		return "delete"
	default:
		return ""
	}
}

// Codename is the permission name for an action on a resource, e.g. "view_posts".
func Codename(action, resource string) string {
	return action + "_" + resource
}

func (h *Handlers) requirePermission(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		resource := chi.URLParam(r, "resource")
		if reserved[resource] {
			notFound(w)
			return
		}

		action := Action(r.Method)
		user := auth.UserFromContext(r.Context())
		if action == "" || !user.HasPermission(Codename(action, resource)) {
			apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrPermissionDenied,
				"You do not have permission to perform this action.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// list handles GET /{resource}/
func (h *Handlers) list(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	values, err := url.ParseQuery(r.URL.RawQuery)
	if err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Malformed query string.")
		return
	}

	q := store.ListQuery{
		Search:  values.Get("search"),
		Filters: map[string][]string{},
	}
	if q.Page, err = positiveInt(values.Get("page"), 1); err != nil {
		notFoundDetail(w, "Invalid page.")
		return
	}
	if q.PageSize, err = positiveInt(values.Get("page_size"), store.DefaultPageSize); err != nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, "Invalid page_size.")
		return
	}
	if q.PageSize > store.MaxPageSize {
		q.PageSize = store.MaxPageSize
	}
	if ordering := values.Get("ordering"); ordering != "" {
		q.Ordering = strings.Split(ordering, ",")
	}
	for key, vals := range values {
		if !listParams[key] {
			q.Filters[key] = vals
		}
	}

	records, total, err := h.store.ListRecords(resource, q)
	if errors.Is(err, store.ErrInvalidField) {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrInvalidRequest, err.Error())
		return
	}
	if err != nil {
		h.serverError(w, "list records", err)
		return
	}

	// DRF rejects pages past the end, except the first page of an empty set.
	if q.Page > 1 && (q.Page-1)*q.PageSize >= total {
		notFoundDetail(w, "Invalid page.")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"count":    total,
		"next":     pageURL(r, q.Page+1, q.Page*q.PageSize < total),
		"previous": pageURL(r, q.Page-1, q.Page > 1),
		"results":  records,
	})
}

// get handles GET /{resource}/{id}/
func (h *Handlers) get(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	rec, err := h.store.GetRecord(resource, id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// create handles POST /{resource}/
func (h *Handlers) create(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	data, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	rec, err := h.store.CreateRecord(resource, data)
	if err != nil {
		h.serverError(w, "create record", err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// update handles PATCH and PUT /{resource}/{id}/
func (h *Handlers) update(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id, ok := recordID(w, r)
	if !ok {
		return
	}
	data, ok := h.decodeBody(w, r)
	if !ok {
		return
	}

	rec, err := h.store.UpdateRecord(resource, id, data, r.Method == http.MethodPatch)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "update record", err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// delete handles DELETE /{resource}/{id}/
func (h *Handlers) delete(w http.ResponseWriter, r *http.Request) {
	resource := chi.URLParam(r, "resource")
	id, ok := recordID(w, r)
	if !ok {
		return
	}

	err := h.store.DeleteRecord(resource, id)
	if errors.Is(err, store.ErrNotFound) {
		notFound(w)
		return
	}
	if err != nil {
		h.serverError(w, "delete record", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody reads a JSON object or a multipart form into a record.
func (h *Handlers) decodeBody(w http.ResponseWriter, r *http.Request) (store.Record, bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		data, err := decodeMultipart(r)
		if err != nil {
			apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrParseError, "Multipart form parse error - "+err.Error())
			return nil, false
		}
		return data, true
	}

	var data store.Record
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil || data == nil {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrParseError, "JSON parse error - expected an object")
		return nil, false
	}
	return data, true
}

// decodeMultipart keeps JSON-looking values decoded and everything else
// as text. File parts are stored as metadata only.
func decodeMultipart(r *http.Request) (store.Record, error) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		return nil, err
	}
	defer r.MultipartForm.RemoveAll()

	data := store.Record{}
	for key, values := range r.MultipartForm.Value {
		if len(values) == 0 {
			continue
		}
		var decoded any
		if err := json.Unmarshal([]byte(values[0]), &decoded); err == nil {
			data[key] = decoded
		} else {
			data[key] = values[0]
		}
	}
	for key, files := range r.MultipartForm.File {
		if len(files) == 0 {
			continue
		}
		f := files[0]
		data[key] = map[string]any{
			"name":         f.Filename,
			"content_type": f.Header.Get("Content-Type"),
			"size":         f.Size,
		}
	}
	return data, nil
}

func recordID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		notFound(w)
		return 0, false
	}
	return id, true
}

func positiveInt(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid positive integer %q", raw)
	}
	return n, nil
}

// pageURL rebuilds the request URL pointing at page, or returns nil when
// there is no such page.
func pageURL(r *http.Request, page int, exists bool) any {
	if !exists {
		return nil
	}
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	values := r.URL.Query()
	values.Set("page", strconv.Itoa(page))
	u := url.URL{Scheme: scheme, Host: r.Host, Path: r.URL.Path, RawQuery: values.Encode()}
	return u.String()
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("resource handler failed", zap.String("op", op), zap.Error(err))
	apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Internal server error")
}

func notFound(w http.ResponseWriter) {
	notFoundDetail(w, "Not found.")
}

func notFoundDetail(w http.ResponseWriter, detail string) {
	apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, detail)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
