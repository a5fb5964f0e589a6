// Package handle implements ListHandle: the control surface around one
// ListActor. It owns the per-user entry table (with one-shot eviction
// signals for at-most-one-session-per-user enforcement) and the snapshot
// watch slot subscribers read from.
package handle

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-todo/actor"
	"collab-todo/command"
	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/user"
)

// Sender enqueues a command for the owning actor to apply. Implemented by
// *actor.ListActor; abstracted here so handle's exported surface does not
// force callers to import actor directly for this one method.
type Sender interface {
	Send(ctx context.Context, cmd command.TodoCommand) error
}

// userEntry tracks one connected user's current session on this list. The
// epoch lets a late-arriving disconnect from a superseded session (racing
// a newer UserJoin for the same user) recognise it no longer owns the
// slot, without needing a distinct "evicted" flag.
type userEntry struct {
	epoch uint64
	evict chan struct{}
	once  sync.Once
}

func (e *userEntry) fireEvict() {
	e.once.Do(func() { close(e.evict) })
}

// ListHandle is created lazily by the Registry on first join and dropped
// once the last subscriber leaves (Registry owns that lifecycle; ListHandle
// only reports IsEmpty()).
type ListHandle struct {
	mu        sync.Mutex
	users     map[uuid.UUID]*userEntry
	nextEpoch uint64

	actor    *actor.ListActor
	snapshot *Snapshot
}

// New spawns a ListActor for initial and wraps it in a ListHandle.
func New(initial todolist.TodoList, st store.Store, storeInterval time.Duration) *ListHandle {
	h := &ListHandle{users: make(map[uuid.UUID]*userEntry)}
	h.snapshot = newSnapshot(initial.Clone())
	h.actor = actor.New(initial, st, storeInterval, h.snapshot.publish)
	return h
}

// Join registers u as connected, evicting any prior session for the same
// user id exactly once, then enqueues UserJoin so the list reflects the
// new presence, and waits until the published snapshot shows u connected.
// It returns a Reader whose first Next returns that post-UserJoin snapshot
// immediately and then every subsequent publish, a Sender for issuing
// further commands, a one-shot eviction signal, and the epoch this session
// owns (used by Disconnect to avoid clobbering a newer session's entry).
func (h *ListHandle) Join(ctx context.Context, u user.User) (*Reader, Sender, <-chan struct{}, uint64, error) {
	h.mu.Lock()
	if prev, ok := h.users[u.ID]; ok {
		prev.fireEvict()
	}
	h.nextEpoch++
	epoch := h.nextEpoch
	entry := &userEntry{epoch: epoch, evict: make(chan struct{})}
	h.users[u.ID] = entry
	h.mu.Unlock()

	reader := h.snapshot.newReader()
	if err := h.actor.Send(ctx, command.TodoCommand{Cmd: command.UserJoin{User: u}, Issuer: u}); err != nil {
		return nil, nil, nil, 0, err
	}
	// Wait until the published snapshot shows u connected, so the reader's
	// first Next returns the post-UserJoin state rather than an older one.
	for {
		val, _, wake := h.snapshot.state()
		for _, cu := range val.ConnectedUsers {
			if cu.ID == u.ID {
				return reader, h.actor, entry.evict, epoch, nil
			}
		}
		select {
		case <-wake:
		case <-ctx.Done():
			return nil, nil, nil, 0, ctx.Err()
		}
	}
}

// Disconnect removes userID's table entry, but only if epoch still matches
// the live entry — a disconnect from a session that has since been
// evicted (and therefore superseded by a newer epoch) is a no-op against
// the table, since the newer session now owns that slot.
func (h *ListHandle) Disconnect(userID uuid.UUID, epoch uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	cur, ok := h.users[userID]
	if !ok || cur.epoch != epoch {
		return
	}
	delete(h.users, userID)
}

// IsEmpty reports whether no user entries remain. The Registry uses this
// to decide whether to tear the handle (and its actor) down.
func (h *ListHandle) IsEmpty() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.users) == 0
}

// Info returns the current snapshot's lightweight membership projection,
// used by Registry.FillInfos to answer "list my memberships with
// up-to-date names" without round-tripping to the Store.
func (h *ListHandle) Info() todolist.TodoListInfo {
	val, _, _ := h.snapshot.state()
	return val.Info()
}

// Close stops the owning actor, draining any in-flight commands and
// performing a final best-effort store first.
func (h *ListHandle) Close() {
	h.actor.Close()
}
