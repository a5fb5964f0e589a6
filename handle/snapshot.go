package handle

import (
	"context"
	"sync"

	"collab-todo/todolist"
)

// Snapshot is a single-slot publisher that always overwrites: readers
// observe "value changed since last read" and fetch the current value.
// Coalescing is explicit rather than a dropped message.
//
// The broadcast/coalesce shape follows a non-blocking broadcaster where
// slow subscribers miss intermediate events rather than stall the
// publisher, adapted from "many independent channels" to "one versioned
// cell" since every subscriber here wants the latest value, not a full
// event history.
type Snapshot struct {
	mu    sync.Mutex
	value todolist.TodoList
	ver   uint64
	wake  chan struct{}
}

func newSnapshot(initial todolist.TodoList) *Snapshot {
	return &Snapshot{value: initial, wake: make(chan struct{})}
}

// publish overwrites the current value and wakes every waiting reader.
// Called only by the owning ListActor's Publisher callback.
func (s *Snapshot) publish(v todolist.TodoList) {
	s.mu.Lock()
	s.value = v
	s.ver++
	old := s.wake
	s.wake = make(chan struct{})
	s.mu.Unlock()
	close(old)
}

func (s *Snapshot) state() (todolist.TodoList, uint64, chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.ver, s.wake
}

// Reader is a cursor into a Snapshot. The zero value is not usable; obtain
// one via Snapshot's newReader (exposed through ListHandle.Join).
type Reader struct {
	slot *Snapshot
	seen int64 // -1 means "never read": forces the first Next() to return
	// immediately with whatever is current, so a fresh subscriber observes
	// the current value immediately rather than waiting for the next publish.
}

func (s *Snapshot) newReader() *Reader {
	return &Reader{slot: s, seen: -1}
}

// Next blocks until a value is available that this reader has not yet
// seen, then returns it. The very first call always returns immediately.
// Subsequent calls block until the next publish; a reader that is slow
// only ever observes the latest value, never a stale intermediate one —
// snapshot publication is strictly monotone.
func (r *Reader) Next(ctx context.Context) (todolist.TodoList, error) {
	for {
		val, ver, wake := r.slot.state()
		if int64(ver) != r.seen {
			r.seen = int64(ver)
			return val, nil
		}
		select {
		case <-wake:
			continue
		case <-ctx.Done():
			return todolist.TodoList{}, ctx.Err()
		}
	}
}
