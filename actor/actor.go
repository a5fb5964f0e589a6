// Package actor implements a per-list single-writer loop. One ListActor
// owns exactly one TodoList: it is the only goroutine that ever touches
// that list's fields. Everything else observes it through published
// snapshots.
//
// The shape follows a goroutine-owned value draining a channel of
// commands through a select loop, with a dirty flag cleared by a
// successful periodic store: many commands applied in order, each fanned
// out to many subscribers via a publish callback.
package actor

import (
	"context"
	"log/slog"
	"time"

	"collab-todo/command"
	"collab-todo/store"
	"collab-todo/todolist"
)

// intakeCapacity bounds in-flight commands: producers await capacity when
// full rather than being dropped.
const intakeCapacity = 16

// DefaultStoreInterval is used when a zero interval is configured.
const DefaultStoreInterval = time.Second

// Publisher is called by the actor after every mutating command, with a
// deep-copied snapshot safe to hand to other goroutines. ListHandle
// supplies this when it constructs an actor, wiring the actor's output to
// its watch slot.
type Publisher func(todolist.TodoList)

// ListActor owns one TodoList end to end: apply, stamp, publish, and
// write-behind to the Store on a throttled cadence.
type ListActor struct {
	intake chan command.TodoCommand
	done   chan struct{}

	list          todolist.TodoList
	st            store.Store
	storeInterval time.Duration
	publish       Publisher
}

// New constructs and starts a ListActor for the given initial list state.
// The returned actor is already running its loop goroutine.
func New(initial todolist.TodoList, st store.Store, storeInterval time.Duration, publish Publisher) *ListActor {
	if storeInterval <= 0 {
		storeInterval = DefaultStoreInterval
	}
	a := &ListActor{
		intake:        make(chan command.TodoCommand, intakeCapacity),
		done:          make(chan struct{}),
		list:          initial.Clone(),
		st:            st,
		storeInterval: storeInterval,
		publish:       publish,
	}
	go a.run()
	return a
}

// Send enqueues a command, awaiting intake capacity. It respects ctx
// cancellation instead of blocking forever.
func (a *ListActor) Send(ctx context.Context, cmd command.TodoCommand) error {
	select {
	case a.intake <- cmd:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close signals the actor to drain and stop: it closes the intake channel,
// which the run loop observes as end-of-stream once any buffered commands
// have been delivered (Go's closed-channel drain semantics implement the
// Draining state directly), then waits for the loop to finish its final
// best-effort store.
func (a *ListActor) Close() {
	close(a.intake)
	<-a.done
}

// run is the single-writer loop: Running while the intake is open,
// Draining once closed (remaining buffered commands still apply), then
// Stopped after a final best-effort store attempt.
func (a *ListActor) run() {
	defer close(a.done)

	ctx := context.Background()
	ticker := time.NewTicker(a.storeInterval)
	defer ticker.Stop()

	dirty := false

	for {
		select {
		case cmd, ok := <-a.intake:
			if !ok {
				// Draining complete (channel closed and emptied): final
				// best-effort write, then Stopped.
				if dirty {
					if err := a.st.Store(ctx, a.list); err != nil {
						slog.ErrorContext(ctx, "final list store failed", "error", err, "list_id", a.list.ID)
					}
				}
				return
			}
			if cmd.Cmd.Apply(&a.list, cmd.Issuer) {
				dirty = true
				a.publish(a.list.Clone())
			}

		case <-ticker.C:
			if !dirty {
				continue
			}
			if err := a.st.Store(ctx, a.list); err != nil {
				slog.WarnContext(ctx, "list store tick failed, will retry", "error", err, "list_id", a.list.ID)
				continue
			}
			dirty = false
		}
	}
}
