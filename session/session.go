// Package session implements SessionMembership: the per-user list of
// joined-list descriptors that lives in the session object, plus the
// Session wrapper tying a User's identity to that membership list and to
// persistence through store.SessionStore.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/user"
)

// Expiry is how long a session remains valid after its last refresh.
const Expiry = 24 * time.Hour

// Membership is an ordered, dedup-by-id list of a user's joined lists. A
// given list id appears at most once; insertion order is preserved, the
// same linear-scan-then-append idiom the domain model uses for
// ConnectedUsers.
type Membership struct {
	Lists []todolist.TodoListInfo `json:"lists"`
}

func (m *Membership) find(id uuid.UUID) int {
	for i := range m.Lists {
		if m.Lists[i].ID == id {
			return i
		}
	}
	return -1
}

// Add inserts info if no entry with the same id is already present.
// Reports whether the membership changed.
func (m *Membership) Add(info todolist.TodoListInfo) bool {
	if m.find(info.ID) >= 0 {
		return false
	}
	m.Lists = append(m.Lists, info)
	return true
}

// Remove deletes the entry for id, if present. Reports whether the
// membership changed.
func (m *Membership) Remove(id uuid.UUID) bool {
	i := m.find(id)
	if i < 0 {
		return false
	}
	m.Lists = append(m.Lists[:i], m.Lists[i+1:]...)
	return true
}

// Session pairs a caller's identity with their list membership and
// expiry, the in-memory form of the opaque store.Session blob.
type Session struct {
	ID         string
	User       user.User
	Membership Membership
	ExpiresAt  time.Time
}

func (s Session) toStore() (store.Session, error) {
	userJSON, err := json.Marshal(s.User)
	if err != nil {
		return store.Session{}, fmt.Errorf("session: marshal user: %w", err)
	}
	memberJSON, err := json.Marshal(s.Membership)
	if err != nil {
		return store.Session{}, fmt.Errorf("session: marshal membership: %w", err)
	}
	return store.Session{ID: s.ID, User: userJSON, Membership: memberJSON, ExpiresAt: s.ExpiresAt}, nil
}

func fromStore(raw store.Session) (Session, error) {
	var u user.User
	if err := json.Unmarshal(raw.User, &u); err != nil {
		return Session{}, fmt.Errorf("session: unmarshal user: %w", err)
	}
	var m Membership
	if len(raw.Membership) > 0 {
		if err := json.Unmarshal(raw.Membership, &m); err != nil {
			return Session{}, fmt.Errorf("session: unmarshal membership: %w", err)
		}
	}
	return Session{ID: raw.ID, User: u, Membership: m, ExpiresAt: raw.ExpiresAt}, nil
}

// Manager issues, loads, and refreshes sessions against a store.SessionStore.
type Manager struct {
	st store.SessionStore
}

// NewManager wraps a SessionStore.
func NewManager(st store.SessionStore) *Manager {
	return &Manager{st: st}
}

// Load fetches the session for id. Expiry is not enforced by the store
// itself (MemSessionStore/BuntSessionStore have no TTL); an expired session is still
// returned so the caller can decide whether to reissue it.
func (m *Manager) Load(ctx context.Context, id string) (Session, error) {
	raw, err := m.st.Load(ctx, id)
	if err != nil {
		return Session{}, err
	}
	return fromStore(raw)
}

// Create issues a brand-new session for a freshly-generated user with the
// given handle, valid for Expiry from now.
func (m *Manager) Create(ctx context.Context, id string, handle string) (Session, error) {
	s := Session{ID: id, User: user.New(handle), ExpiresAt: time.Now().Add(Expiry)}
	if err := m.Save(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Refresh extends s's expiry by Expiry from now and persists it.
func (m *Manager) Refresh(ctx context.Context, s Session) (Session, error) {
	s.ExpiresAt = time.Now().Add(Expiry)
	if err := m.Save(ctx, s); err != nil {
		return Session{}, err
	}
	return s, nil
}

// Save persists s as-is.
func (m *Manager) Save(ctx context.Context, s Session) error {
	raw, err := s.toStore()
	if err != nil {
		return err
	}
	return m.st.Store(ctx, raw)
}

// Destroy removes the session for id.
func (m *Manager) Destroy(ctx context.Context, id string) error {
	return m.st.Destroy(ctx, id)
}

// ErrNoSession is returned by transport handlers when no session cookie
// accompanies a request that requires one.
var ErrNoSession = errors.New("session: no session")
