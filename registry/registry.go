// Package registry implements the process-wide Registry: the only mutator
// of the list-id -> ListHandle table, and the only component that spawns
// or tears down a ListActor.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"collab-todo/handle"
	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/user"
)

// slot is a reservation for a list id. The two-phase "reserve slot then
// load" shape keeps the registry lock held only across table surgery,
// never across the Store.Load I/O, so concurrent joins for different
// lists never serialise on each other.
type slot struct {
	ready chan struct{}
	h     *handle.ListHandle
	err   error
}

// Registry is the process-wide map list-id -> ListHandle, guarded by an
// RWMutex (readers common, writers rare).
type Registry struct {
	mu            sync.RWMutex
	slots         map[uuid.UUID]*slot
	store         store.Store
	storeInterval time.Duration
}

// New constructs an empty Registry backed by st, with actors using
// storeInterval for their write-behind cadence.
func New(st store.Store, storeInterval time.Duration) *Registry {
	return &Registry{
		slots:         make(map[uuid.UUID]*slot),
		store:         st,
		storeInterval: storeInterval,
	}
}

// Join spawns a ListHandle for listID on first access (loading it from the
// Store) and delegates to the handle's Join. Store failures during spawn
// propagate as a join failure and never leave a half-spawned handle in
// the map.
func (r *Registry) Join(ctx context.Context, listID uuid.UUID, u user.User) (*handle.Reader, handle.Sender, <-chan struct{}, uint64, error) {
	s, isNew := r.reserve(listID)
	if isNew {
		list, err := r.store.Load(ctx, listID) // I/O happens outside r.mu
		if err != nil {
			s.err = err
			close(s.ready)
			r.mu.Lock()
			if cur, ok := r.slots[listID]; ok && cur == s {
				delete(r.slots, listID)
			}
			r.mu.Unlock()
			return nil, nil, nil, 0, fmt.Errorf("registry: load list %s: %w", listID, err)
		}
		s.h = handle.New(list, r.store, r.storeInterval)
		close(s.ready)
	} else {
		select {
		case <-s.ready:
		case <-ctx.Done():
			return nil, nil, nil, 0, ctx.Err()
		}
		if s.err != nil {
			return nil, nil, nil, 0, s.err
		}
	}
	return s.h.Join(ctx, u)
}

// reserve returns the slot for listID, creating and inserting a pending
// reservation if none exists yet. isNew tells the caller whether it is
// responsible for loading the list and completing the reservation.
func (r *Registry) reserve(listID uuid.UUID) (s *slot, isNew bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.slots[listID]; ok {
		return existing, false
	}
	s = &slot{ready: make(chan struct{})}
	r.slots[listID] = s
	return s, true
}

// Leave disconnects userID from listID and tears the handle down if it is
// now empty, removing it from the table within this call.
func (r *Registry) Leave(ctx context.Context, listID, userID uuid.UUID, epoch uint64) {
	r.mu.RLock()
	s, ok := r.slots[listID]
	r.mu.RUnlock()
	if !ok {
		return
	}
	select {
	case <-s.ready:
	case <-ctx.Done():
		return
	}
	if s.h == nil {
		return
	}

	s.h.Disconnect(userID, epoch)
	if !s.h.IsEmpty() {
		return
	}

	r.mu.Lock()
	cur, ok := r.slots[listID]
	empty := ok && cur == s && cur.h != nil && cur.h.IsEmpty()
	if empty {
		delete(r.slots, listID)
	}
	r.mu.Unlock()

	if empty {
		s.h.Close()
	}
}

// FillInfos refreshes each descriptor's name: from the live handle's
// current snapshot if the list has an active handle, otherwise via the
// Store.
func (r *Registry) FillInfos(ctx context.Context, infos []todolist.TodoListInfo) []todolist.TodoListInfo {
	out := make([]todolist.TodoListInfo, len(infos))
	for i, info := range infos {
		r.mu.RLock()
		s, ok := r.slots[info.ID]
		r.mu.RUnlock()

		if ok {
			select {
			case <-s.ready:
			case <-ctx.Done():
				out[i] = info
				continue
			}
			if s.h != nil {
				out[i] = s.h.Info()
				continue
			}
		}

		name, err := r.store.GetName(ctx, info.ID)
		if err != nil {
			slog.WarnContext(ctx, "fill_infos: name lookup failed, keeping stale name", "error", err, "list_id", info.ID)
			out[i] = info
			continue
		}
		out[i] = todolist.TodoListInfo{ID: info.ID, Name: name}
	}
	return out
}
