package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/user"
)

// TestJoinSpawnsAndLoadsOnFirstAccess verifies a first join loads the list
// from the Store and spawns a handle; a later join for the same id reuses
// it rather than reloading.
func TestJoinSpawnsAndLoadsOnFirstAccess(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := todolist.New("groceries")
	if err := st.Store(ctx, l); err != nil {
		t.Fatalf("seed Store() error: %v", err)
	}

	r := New(st, time.Hour)
	u1 := user.New("u1")
	reader, _, _, _, err := r.Join(ctx, l.ID, u1)
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}
	got, err := reader.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	if got.Name != "groceries" {
		t.Fatalf("Next() Name=%q want groceries", got.Name)
	}

	u2 := user.New("u2")
	reader2, _, _, _, err := r.Join(ctx, l.ID, u2)
	if err != nil {
		t.Fatalf("second Join() error: %v", err)
	}
	got2, err := reader2.Next(ctx)
	if err != nil {
		t.Fatalf("Next() error: %v", err)
	}
	foundBoth := 0
	for _, cu := range got2.ConnectedUsers {
		if cu.Equal(u1) || cu.Equal(u2) {
			foundBoth++
		}
	}
	if foundBoth != 2 {
		t.Fatalf("expected both users connected to the same handle, got %+v", got2.ConnectedUsers)
	}
}

// TestJoinPropagatesLoadFailure verifies a Store failure during spawn
// surfaces as a join error and leaves no half-spawned entry.
func TestJoinPropagatesLoadFailure(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore() // never seeded: Load() returns ErrNotFound
	r := New(st, time.Hour)

	missing := uuid.New()
	_, _, _, _, err := r.Join(ctx, missing, user.New("u1"))
	if err == nil {
		t.Fatalf("Join() expected error for unseeded list")
	}
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Join() error=%v want wrapping store.ErrNotFound", err)
	}

	// A subsequent Store + Join for the same id must succeed: nothing
	// should be left wedged in the table from the failed attempt.
	l := todolist.New("recovered")
	l.ID = missing
	if err := st.Store(ctx, l); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	if _, _, _, _, err := r.Join(ctx, missing, user.New("u1")); err != nil {
		t.Fatalf("Join() after recovery error: %v", err)
	}
}

// TestLeaveTearsDownWhenEmpty verifies the handle is removed from the
// table within one Leave call once the last user departs.
func TestLeaveTearsDownWhenEmpty(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()
	l := todolist.New("list")
	if err := st.Store(ctx, l); err != nil {
		t.Fatalf("seed Store() error: %v", err)
	}
	r := New(st, time.Hour)

	u := user.New("u1")
	_, _, _, epoch, err := r.Join(ctx, l.ID, u)
	if err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	r.Leave(ctx, l.ID, u.ID, epoch)

	r.mu.RLock()
	_, stillPresent := r.slots[l.ID]
	r.mu.RUnlock()
	if stillPresent {
		t.Fatalf("Leave() did not remove the handle from the table")
	}
}

// TestFillInfosLiveAndStored covers both FillInfos paths: a live handle's
// current name, and a Store-backed lookup when no handle exists.
func TestFillInfosLiveAndStored(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemStore()

	live := todolist.New("live-name")
	if err := st.Store(ctx, live); err != nil {
		t.Fatalf("seed Store() error: %v", err)
	}
	stored := todolist.New("stored-name")
	if err := st.Store(ctx, stored); err != nil {
		t.Fatalf("seed Store() error: %v", err)
	}

	r := New(st, time.Hour)
	if _, _, _, _, err := r.Join(ctx, live.ID, user.New("u1")); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	infos := []todolist.TodoListInfo{{ID: live.ID, Name: "stale"}, {ID: stored.ID, Name: "stale"}}
	out := r.FillInfos(ctx, infos)
	if out[0].Name != "live-name" {
		t.Fatalf("FillInfos()[0].Name = %q want live-name", out[0].Name)
	}
	if out[1].Name != "stored-name" {
		t.Fatalf("FillInfos()[1].Name = %q want stored-name", out[1].Name)
	}
}

