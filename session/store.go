// ABOUTME: Typed access to the persisted session record.
// ABOUTME: Reads and writes the "auth" item and clears the legacy "token" item.

package session

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"
)

const (
	// Key holds the JSON session record.
	Key = "auth"
	// LegacyKey held a bare token in older clients; it is only ever removed.
	LegacyKey = "token"
)

// ErrCorrupt is returned when the stored record is not a JSON object.
var ErrCorrupt = errors.New("session record is corrupt")

// Record is the session blob: the token response merged with the user-info
// response. Unknown server fields are kept.
type Record map[string]any

func (r Record) Token() string {
	s, _ := r["token"].(string)
	return s
}

func (r Record) ID() any {
	return r["id"]
}

func (r Record) FullName() any {
	return r["fullName"]
}

func (r Record) Avatar() any {
	return r["avatar"]
}

// Valid reports whether the record carries both a token and an id.
func (r Record) Valid() bool {
	return Present(r["token"]) && Present(r["id"])
}

// Present treats nil, "", 0 and false as missing, the way the stored
// JSON was checked by earlier clients.
func Present(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case string:
		return val != ""
	case float64:
		return val != 0
	case int:
		return val != 0
	case int64:
		return val != 0
	case json.Number:
		return val.String() != "0" && val.String() != ""
	case bool:
		return val
	default:
		return true
	}
}

// Store is the session store owned by the auth provider and shared with
// anything that needs the current token.
type Store struct {
	storage Storage
}

func NewStore(storage Storage) *Store {
	return &Store{storage: storage}
}

// Load returns the stored record, or nil when no session exists.
func (s *Store) Load(ctx context.Context) (Record, error) {
	raw, ok, err := s.storage.GetItem(ctx, Key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, errors.Wrap(ErrCorrupt, err.Error())
	}
	if rec == nil {
		return nil, ErrCorrupt
	}
	return rec, nil
}

// Exists reports whether a session item is stored, without parsing it.
func (s *Store) Exists(ctx context.Context) (bool, error) {
	_, ok, err := s.storage.GetItem(ctx, Key)
	return ok, err
}

// Save overwrites the stored record wholesale.
func (s *Store) Save(ctx context.Context, rec Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	return s.storage.SetItem(ctx, Key, string(raw))
}

func (s *Store) Clear(ctx context.Context) error {
	return s.storage.RemoveItem(ctx, Key)
}

func (s *Store) ClearLegacy(ctx context.Context) error {
	return s.storage.RemoveItem(ctx, LegacyKey)
}

// Token returns the stored token, or "" when there is none.
func (s *Store) Token(ctx context.Context) (string, error) {
	rec, err := s.Load(ctx)
	if err != nil || rec == nil {
		return "", err
	}
	return rec.Token(), nil
}
