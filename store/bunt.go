package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/tidwall/buntdb"

	"collab-todo/todolist"
)

// listKeyPrefix/sessionKeyPrefix mirror the logical persistence layout:
// "list:<uuid>" and "session:<id>" documents.
const (
	listKeyPrefix    = "list:"
	sessionKeyPrefix = "session:"
)

func listKey(id uuid.UUID) string { return listKeyPrefix + id.String() }

func sessionKey(id string) string { return sessionKeyPrefix + id }

// BuntStore is a Store backed by an embedded tidwall/buntdb database: a
// single file holding JSON blobs keyed by "list:<uuid>". Reporting is
// context-aware and logged through structured slog, onto a real embedded
// KV instead of a bare file.
type BuntStore struct {
	db *buntdb.DB
}

// NewBuntStore opens (creating if necessary) a buntdb database at path.
// Pass ":memory:" for a non-persistent instance, handy in tests that still
// want to exercise the real backend rather than MemStore.
func NewBuntStore(path string) (*BuntStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open buntdb at %s: %w", path, err)
	}
	return &BuntStore{db: db}, nil
}

// Close releases the underlying database handle.
func (b *BuntStore) Close() error {
	return b.db.Close()
}

func (b *BuntStore) Load(ctx context.Context, id uuid.UUID) (todolist.TodoList, error) {
	var out todolist.TodoList
	err := b.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(listKey(id))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("%w: list %s", ErrNotFound, id)
			}
			return err
		}
		return json.Unmarshal([]byte(val), &out)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "list load failed", "error", err, "list_id", id)
		}
		return todolist.TodoList{}, err
	}
	return out, nil
}

func (b *BuntStore) Store(ctx context.Context, list todolist.TodoList) error {
	data, err := json.Marshal(list)
	if err != nil {
		slog.ErrorContext(ctx, "list marshal failed", "error", err, "list_id", list.ID)
		return err
	}
	err = b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(listKey(list.ID), string(data), nil)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "list store failed", "error", err, "list_id", list.ID)
		return err
	}
	return nil
}

func (b *BuntStore) GetName(ctx context.Context, id uuid.UUID) (string, error) {
	var name string
	err := b.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(listKey(id))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("%w: list %s", ErrNotFound, id)
			}
			return err
		}
		var doc struct {
			Name string `json:"name"`
		}
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			return err
		}
		name = doc.Name
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "list name lookup failed", "error", err, "list_id", id)
		}
		return "", err
	}
	return name, nil
}

// BuntSessionStore is a SessionStore backed by a buntdb database, under
// the "session:<id>" key family.
type BuntSessionStore struct {
	db *buntdb.DB
}

// NewBuntSessionStore opens (creating if necessary) its own buntdb
// database at path; it does not share a *buntdb.DB with a BuntStore.
func NewBuntSessionStore(path string) (*BuntSessionStore, error) {
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("store: open buntdb at %s: %w", path, err)
	}
	return &BuntSessionStore{db: db}, nil
}

func (b *BuntSessionStore) Close() error {
	return b.db.Close()
}

func (b *BuntSessionStore) Load(ctx context.Context, id string) (Session, error) {
	var out Session
	err := b.db.View(func(tx *buntdb.Tx) error {
		val, err := tx.Get(sessionKey(id))
		if err != nil {
			if errors.Is(err, buntdb.ErrNotFound) {
				return fmt.Errorf("%w: session %s", ErrNotFound, id)
			}
			return err
		}
		return json.Unmarshal([]byte(val), &out)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			slog.ErrorContext(ctx, "session load failed", "error", err, "session_id", id)
		}
		return Session{}, err
	}
	return out, nil
}

func (b *BuntSessionStore) Store(ctx context.Context, s Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	err = b.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(sessionKey(s.ID), string(data), nil)
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "session store failed", "error", err, "session_id", s.ID)
	}
	return err
}

func (b *BuntSessionStore) Destroy(ctx context.Context, id string) error {
	err := b.db.Update(func(tx *buntdb.Tx) error {
		_, err := tx.Delete(sessionKey(id))
		if errors.Is(err, buntdb.ErrNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		slog.ErrorContext(ctx, "session destroy failed", "error", err, "session_id", id)
	}
	return err
}

func (b *BuntSessionStore) ClearAll(ctx context.Context) error {
	var keys []string
	err := b.db.View(func(tx *buntdb.Tx) error {
		return tx.AscendKeys(sessionKeyPrefix+"*", func(key, _ string) bool {
			keys = append(keys, key)
			return true
		})
	})
	if err != nil {
		return err
	}
	return b.db.Update(func(tx *buntdb.Tx) error {
		for _, k := range keys {
			if _, err := tx.Delete(k); err != nil && !errors.Is(err, buntdb.ErrNotFound) {
				return err
			}
		}
		return nil
	})
}
