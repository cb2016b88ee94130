// ABOUTME: Token auth provider managing the client-side login session.
// ABOUTME: Implements login, logout, auth/error checks, identity, and permissions lookups.

package authprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/2389/restadmin/httpclient"
	"github.com/2389/restadmin/session"
)

// Options configures a Provider.
type Options struct {
	// ObtainAuthTokenURL accepts POST {username, password} and returns {token, id}.
	ObtainAuthTokenURL string
	// ObtainUserInfoURL is the user-info prefix; the id and a slash are appended.
	ObtainUserInfoURL string

	HTTPClient     *http.Client
	Store          *session.Store
	Logger         *zap.Logger
	AnonymousPaths []string // defaults to DefaultAnonymousPaths
}

// Identity is the current user as shown by the admin UI. All fields are
// nil on anonymous pages.
type Identity struct {
	ID       any `json:"id"`
	FullName any `json:"fullName"`
	Avatar   any `json:"avatar"`
}

// Permissions are the stored group and permission lists.
type Permissions struct {
	Groups          []any `json:"groups"`
	UserPermissions []any `json:"user_permissions"`
}

// Provider holds no session state of its own; everything lives in the
// session store.
type Provider struct {
	tokenURL       string
	userInfoURL    string
	http           *http.Client
	store          *session.Store
	logger         *zap.Logger
	anonymousPaths []string
}

func New(opts Options) *Provider {
	p := &Provider{
		tokenURL:       opts.ObtainAuthTokenURL,
		userInfoURL:    opts.ObtainUserInfoURL,
		http:           opts.HTTPClient,
		store:          opts.Store,
		logger:         opts.Logger,
		anonymousPaths: opts.AnonymousPaths,
	}
	if p.http == nil {
		p.http = http.DefaultClient
	}
	if p.store == nil {
		p.store = session.NewStore(session.NewMemoryStorage())
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.anonymousPaths == nil {
		p.anonymousPaths = DefaultAnonymousPaths
	}
	return p
}

// Store returns the session store the provider reads and writes.
func (p *Provider) Store() *session.Store {
	return p.store
}

// Login exchanges credentials for a token, stores {token, id}, then
// replaces it with the token merged with the user-info response.
func (p *Provider) Login(ctx context.Context, username, password string) error {
	payload, err := json.Marshal(map[string]string{"username": username, "password": password})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &AuthenticationError{Status: resp.StatusCode, StatusText: statusText(resp)}
	}

	var issued struct {
		Token string `json:"token"`
		ID    any    `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&issued); err != nil {
		return fmt.Errorf("decode token response: %w", err)
	}

	if err := p.store.Save(ctx, session.Record{"token": issued.Token, "id": issued.ID}); err != nil {
		return err
	}

	rec, err := p.fetchUserData(ctx, issued.ID, issued.Token)
	if err != nil {
		return err
	}
	return p.store.Save(ctx, rec)
}

// Logout removes the session and the legacy token item. It never fails;
// storage errors are logged.
func (p *Provider) Logout(ctx context.Context) error {
	if err := p.store.Clear(ctx); err != nil {
		p.logger.Warn("failed to clear session", zap.Error(err))
	}
	if err := p.store.ClearLegacy(ctx); err != nil {
		p.logger.Warn("failed to clear legacy token", zap.Error(err))
	}
	return nil
}

// CheckAuth succeeds when a session item exists. Every call also removes
// the legacy token item.
func (p *Provider) CheckAuth(ctx context.Context) error {
	exists, err := p.store.Exists(ctx)
	if err != nil {
		return err
	}
	if err := p.store.ClearLegacy(ctx); err != nil {
		p.logger.Warn("failed to clear legacy token", zap.Error(err))
	}
	if !exists {
		return ErrNotLoggedIn
	}
	return nil
}

// CheckError returns an error wrapping ErrForceLogout, after clearing the
// session, when err carries a 401 or 403 status. Other errors are not fatal.
func (p *Provider) CheckError(ctx context.Context, err error) error {
	status := StatusOf(err)
	if status != http.StatusUnauthorized && status != http.StatusForbidden {
		return nil
	}
	if clearErr := p.store.Clear(ctx); clearErr != nil {
		p.logger.Warn("failed to clear session", zap.Error(clearErr))
	}
	return forceLogout(err)
}

// GetIdentity refreshes the stored user data and returns the identity.
// Anonymous pages get an empty identity without touching the network.
func (p *Provider) GetIdentity(ctx context.Context, pathname string) (*Identity, error) {
	if p.IsAnonymous(pathname) {
		return &Identity{}, nil
	}

	identity, err := p.getIdentity(ctx)
	if err != nil {
		p.logger.Error("an error occurred while fetching identity", zap.Error(err))
		return nil, err
	}
	return identity, nil
}

func (p *Provider) getIdentity(ctx context.Context) (*Identity, error) {
	rec, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil || !rec.Valid() {
		return nil, ErrNotLoggedIn
	}

	refreshed, err := p.fetchUserData(ctx, rec.ID(), rec.Token())
	if err != nil {
		return nil, err
	}
	if err := p.store.Save(ctx, refreshed); err != nil {
		return nil, err
	}

	return &Identity{
		ID:       rec.ID(),
		FullName: refreshed.FullName(),
		Avatar:   refreshed.Avatar(),
	}, nil
}

// GetPermissions returns the stored groups and user_permissions. Anonymous
// pages get empty lists.
func (p *Provider) GetPermissions(ctx context.Context, pathname string) (*Permissions, error) {
	if p.IsAnonymous(pathname) {
		return &Permissions{Groups: []any{}, UserPermissions: []any{}}, nil
	}

	rec, err := p.store.Load(ctx)
	if errors.Is(err, session.ErrCorrupt) {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSession, err)
	}
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, ErrNoSession
	}
	if !rec.Valid() {
		return nil, ErrInvalidSession
	}

	groups, ok := rec["groups"].([]any)
	if !ok {
		return nil, ErrInvalidSession
	}
	perms, ok := rec["user_permissions"].([]any)
	if !ok {
		return nil, ErrInvalidSession
	}
	return &Permissions{Groups: groups, UserPermissions: perms}, nil
}

// fetchUserData loads the user-info document and merges it over
// {token, id}. Server fields win on conflict.
func (p *Provider) fetchUserData(ctx context.Context, id any, token string) (session.Record, error) {
	url := p.userInfoURL + formatID(id) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "token "+token)

	resp, err := p.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var detail any
		json.Unmarshal(body, &detail)
		return nil, &httpclient.HTTPError{
			Status:  resp.StatusCode,
			Message: http.StatusText(resp.StatusCode),
			Body:    detail,
		}
	}

	var userData map[string]any
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &userData); err != nil {
			return nil, fmt.Errorf("decode user info: %w", err)
		}
	}

	rec := session.Record{"token": token, "id": id}
	for key, value := range userData {
		rec[key] = value
	}
	return rec, nil
}

func formatID(id any) string {
	switch v := id.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}

// statusText returns the server's reason phrase, or the standard text when
// the status line carries none.
func statusText(resp *http.Response) string {
	text := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))
	if text = strings.TrimSpace(text); text != "" {
		return text
	}
	return http.StatusText(resp.StatusCode)
}
