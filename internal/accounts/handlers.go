// ABOUTME: Account endpoints of the fake backend: token issuance and user info.
// ABOUTME: Mirrors DRF's obtain_auth_token and a users detail view used by the auth provider.

package accounts

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/2389/restadmin/internal/auth"
	apierrors "github.com/2389/restadmin/internal/errors"
	"github.com/2389/restadmin/internal/store"
)

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

func (h *Handlers) RegisterRoutes(r chi.Router) {
	r.Post("/api-token-auth/", h.obtainToken)
	r.With(auth.RequireUser).Get("/users/{id}/", h.getUser)
}

// UserInfo is the user-info document.
type UserInfo struct {
	ID              int64    `json:"id"`
	Username        string   `json:"username"`
	FullName        string   `json:"fullName"`
	Avatar          string   `json:"avatar"`
	IsSuperuser     bool     `json:"is_superuser"`
	Groups          []string `json:"groups"`
	UserPermissions []string `json:"user_permissions"`
}

func NewUserInfo(u *store.User) UserInfo {
	return UserInfo{
		ID:              u.ID,
		Username:        u.Username,
		FullName:        u.FullName,
		Avatar:          u.Avatar,
		IsSuperuser:     u.IsSuperuser,
		Groups:          u.Groups,
		UserPermissions: u.UserPermissions,
	}
}

// obtainToken handles POST /api-token-auth/ with a JSON or form body.
func (h *Handlers) obtainToken(w http.ResponseWriter, r *http.Request) {
	username, password, ok := credentials(r)
	if !ok {
		apierrors.WriteError(w, http.StatusBadRequest, apierrors.ErrParseError, "JSON parse error")
		return
	}

	missing := map[string][]string{}
	if username == "" {
		missing["username"] = []string{"This field is required."}
	}
	if password == "" {
		missing["password"] = []string{"This field is required."}
	}
	if len(missing) > 0 {
		apierrors.WriteFieldErrors(w, missing)
		return
	}

	user, err := h.store.Authenticate(username, password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		h.logger.Info("login rejected", zap.String("username", username))
		apierrors.WriteFieldErrors(w, map[string][]string{
			"non_field_errors": {"Unable to log in with provided credentials."},
		})
		return
	}
	if err != nil {
		h.serverError(w, "authenticate", err)
		return
	}

	token, err := h.store.TokenForUser(user.ID)
	if err != nil {
		h.serverError(w, "issue token", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"token": token, "id": user.ID})
}

// getUser handles GET /users/{id}/. Users may read only their own record
// unless they are superusers.
func (h *Handlers) getUser(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "Not found.")
		return
	}

	caller := auth.UserFromContext(r.Context())
	if caller.ID != id && !caller.IsSuperuser {
		apierrors.WriteError(w, http.StatusForbidden, apierrors.ErrPermissionDenied,
			"You do not have permission to perform this action.")
		return
	}

	user, err := h.store.GetUser(id)
	if errors.Is(err, store.ErrNotFound) {
		apierrors.WriteError(w, http.StatusNotFound, apierrors.ErrNotFound, "Not found.")
		return
	}
	if err != nil {
		h.serverError(w, "get user", err)
		return
	}

	writeJSON(w, http.StatusOK, NewUserInfo(user))
}

func credentials(r *http.Request) (username, password string, ok bool) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		if err := r.ParseMultipartForm(1 << 20); err != nil && !errors.Is(err, http.ErrNotMultipart) {
			return "", "", false
		}
		return r.FormValue("username"), r.FormValue("password"), true
	default:
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			return "", "", false
		}
		return body.Username, body.Password, true
	}
}

func (h *Handlers) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error("account handler failed", zap.String("op", op), zap.Error(err))
	apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Internal server error")
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
