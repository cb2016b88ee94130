// ABOUTME: Token authentication middleware for the fake REST backend.
// ABOUTME: Resolves "Token <key>" headers to users and guards routes that need one.

package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	apierrors "github.com/2389/restadmin/internal/errors"
	"github.com/2389/restadmin/internal/store"
)

type contextKey string

const (
	userContextKey contextKey = "user"
	slotContextKey contextKey = "user-slot"
)

// Scheme is the Authorization keyword, matched case-insensitively.
const Scheme = "Token"

// TokenResolver maps a token key to its user. *store.Store satisfies it.
type TokenResolver interface {
	UserForToken(key string) (*store.User, error)
}

// Middleware attaches the user named by a Token header to the request
// context. Requests without a Token header pass through anonymously;
// malformed or unknown tokens are rejected with 401.
func Middleware(tokens TokenResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key, ok, err := extractToken(r.Header.Get("Authorization"))
			if err != nil {
				unauthorized(w, apierrors.ErrAuthFailed, err.Error())
				return
			}
			if !ok {
				next.ServeHTTP(w, r)
				return
			}

			user, err := tokens.UserForToken(key)
			if errors.Is(err, store.ErrNotFound) {
				unauthorized(w, apierrors.ErrAuthFailed, "Invalid token.")
				return
			}
			if err != nil {
				apierrors.WriteError(w, http.StatusInternalServerError, apierrors.ErrDatabaseError, "Failed to resolve token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// RequireUser rejects anonymous requests with 401.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			unauthorized(w, apierrors.ErrNotAuthenticated, "Authentication credentials were not provided.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithUser returns a context carrying user. It also fills the slot of an
// enclosing TrackUser.
func WithUser(ctx context.Context, user *store.User) context.Context {
	if slot, ok := ctx.Value(slotContextKey).(*userSlot); ok {
		slot.user = user
	}
	return context.WithValue(ctx, userContextKey, user)
}

type userSlot struct {
	user *store.User
}

// TrackUser lets outer middleware learn which user an inner Middleware
// resolved. The returned func reports nil until then.
func TrackUser(ctx context.Context) (context.Context, func() *store.User) {
	slot := &userSlot{}
	return context.WithValue(ctx, slotContextKey, slot), func() *store.User { return slot.user }
}

// UserFromContext returns the authenticated user, or nil.
func UserFromContext(ctx context.Context) *store.User {
	user, _ := ctx.Value(userContextKey).(*store.User)
	return user
}

// extractToken returns the key from a Token header. ok is false when the
// header is absent or uses another scheme.
func extractToken(header string) (key string, ok bool, err error) {
	parts := strings.Fields(header)
	if len(parts) == 0 || !strings.EqualFold(parts[0], Scheme) {
		return "", false, nil
	}
	switch len(parts) {
	case 1:
		return "", false, errors.New("Invalid token header. No credentials provided.")
	case 2:
		return parts[1], true, nil
	default:
		return "", false, errors.New("Invalid token header. Token string should not contain spaces.")
	}
}

func unauthorized(w http.ResponseWriter, code, message string) {
	w.Header().Set("WWW-Authenticate", Scheme)
	apierrors.WriteError(w, http.StatusUnauthorized, code, message)
}
