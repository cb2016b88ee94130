// ABOUTME: User account storage for the fake backend.
// ABOUTME: Stores bcrypt password hashes, profile fields, groups, and permission codenames.

package store

import (
	"database/sql"
	"encoding/json"
	"slices"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

// ErrNotFound is returned when a user, token, or record does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidCredentials is returned by Authenticate for an unknown user or
// a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// User is a backend account.
type User struct {
	ID              int64
	Username        string
	PasswordHash    string
	FullName        string
	Avatar          string
	IsSuperuser     bool
	Groups          []string
	UserPermissions []string
}

// HasPermission reports whether the user holds codename. Superusers hold
// every permission.
func (u *User) HasPermission(codename string) bool {
	return u.IsSuperuser || slices.Contains(u.UserPermissions, codename)
}

// CreateUser hashes password and inserts the user, filling in u.ID.
func (s *Store) CreateUser(u *User, password string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return errors.Wrap(err, "hash password")
	}
	groups, perms, err := encodeLists(u)
	if err != nil {
		return err
	}

	result, err := s.db.Exec(`
		INSERT INTO users (username, password_hash, full_name, avatar, is_superuser, groups, user_permissions)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, u.Username, string(hash), u.FullName, u.Avatar, u.IsSuperuser, groups, perms)
	if err != nil {
		return errors.Wrapf(err, "insert user %q", u.Username)
	}
	u.ID, err = result.LastInsertId()
	u.PasswordHash = string(hash)
	return err
}

// GetUser retrieves a user by id.
func (s *Store) GetUser(id int64) (*User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+" WHERE id = ?", id))
}

// GetUserByUsername retrieves a user by username.
func (s *Store) GetUserByUsername(username string) (*User, error) {
	return s.scanUser(s.db.QueryRow(userSelect+" WHERE username = ?", username))
}

// ListUsers returns every user ordered by id.
func (s *Store) ListUsers() ([]*User, error) {
	rows, err := s.db.Query(userSelect + " ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := s.scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Authenticate checks a username and password pair.
func (s *Store) Authenticate(username, password string) (*User, error) {
	u, err := s.GetUserByUsername(username)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// UpdateUserProfile changes the display fields of a user.
func (s *Store) UpdateUserProfile(u *User) error {
	groups, perms, err := encodeLists(u)
	if err != nil {
		return err
	}
	result, err := s.db.Exec(`
		UPDATE users SET full_name = ?, avatar = ?, is_superuser = ?, groups = ?, user_permissions = ?
		WHERE id = ?
	`, u.FullName, u.Avatar, u.IsSuperuser, groups, perms, u.ID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

const userSelect = `SELECT id, username, password_hash, COALESCE(full_name, ''), COALESCE(avatar, ''),
	is_superuser, COALESCE(groups, '[]'), COALESCE(user_permissions, '[]') FROM users`

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanUser(row rowScanner) (*User, error) {
	u := &User{}
	var groups, perms string
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.Avatar, &u.IsSuperuser, &groups, &perms)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(groups), &u.Groups); err != nil {
		return nil, errors.Wrapf(err, "decode groups for user %d", u.ID)
	}
	if err := json.Unmarshal([]byte(perms), &u.UserPermissions); err != nil {
		return nil, errors.Wrapf(err, "decode permissions for user %d", u.ID)
	}
	return u, nil
}

func encodeLists(u *User) (string, string, error) {
	groups := u.Groups
	if groups == nil {
		groups = []string{}
	}
	perms := u.UserPermissions
	if perms == nil {
		perms = []string{}
	}
	g, err := json.Marshal(groups)
	if err != nil {
		return "", "", err
	}
	p, err := json.Marshal(perms)
	if err != nil {
		return "", "", err
	}
	return string(g), string(p), nil
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
