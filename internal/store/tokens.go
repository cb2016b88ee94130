// ABOUTME: Auth token storage and management.
// ABOUTME: Issues one opaque token per user and resolves tokens back to users.

package store

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// TokenForUser returns the user's existing token or issues a new one.
// Like DRF's obtain_auth_token, repeated logins return the same key.
func (s *Store) TokenForUser(userID int64) (string, error) {
	var key string
	err := s.db.QueryRow(`SELECT key FROM auth_tokens WHERE user_id = ?`, userID).Scan(&key)
	if err == nil {
		return key, nil
	}
	if err != sql.ErrNoRows {
		return "", err
	}

	key = strings.ReplaceAll(uuid.NewString(), "-", "")
	if _, err := s.db.Exec(`INSERT INTO auth_tokens (key, user_id) VALUES (?, ?)`, key, userID); err != nil {
		return "", errors.Wrapf(err, "issue token for user %d", userID)
	}
	return key, nil
}

// UserForToken resolves a token key to its user.
func (s *Store) UserForToken(key string) (*User, error) {
	var userID int64
	err := s.db.QueryRow(`SELECT user_id FROM auth_tokens WHERE key = ?`, key).Scan(&userID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetUser(userID)
}

// RevokeToken deletes a token key.
func (s *Store) RevokeToken(key string) error {
	result, err := s.db.Exec(`DELETE FROM auth_tokens WHERE key = ?`, key)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
