package session

import (
	"context"
	"errors"
	"testing"

	"collab-todo/store"
	"collab-todo/todolist"
)

// TestMembershipAddDedupAndOrder verifies dedup-by-id and insertion order
// (S6: creation order preserved, a list id appears at most once).
func TestMembershipAddDedupAndOrder(t *testing.T) {
	var m Membership
	l1 := todolist.New("").Info()
	l2 := todolist.New("").Info()

	if !m.Add(l1) {
		t.Fatalf("Add() first insert should report true")
	}
	if !m.Add(l2) {
		t.Fatalf("Add() second insert should report true")
	}
	if m.Add(l1) {
		t.Fatalf("Add() duplicate should report false")
	}
	if len(m.Lists) != 2 || m.Lists[0].ID != l1.ID || m.Lists[1].ID != l2.ID {
		t.Fatalf("Membership order = %+v want [%v %v]", m.Lists, l1.ID, l2.ID)
	}
}

// TestMembershipRemove verifies removal by id (DELETE /todos/:id).
func TestMembershipRemove(t *testing.T) {
	var m Membership
	l1 := todolist.New("").Info()
	l2 := todolist.New("").Info()
	m.Add(l1)
	m.Add(l2)

	if !m.Remove(l1.ID) {
		t.Fatalf("Remove() should report true for present id")
	}
	if len(m.Lists) != 1 || m.Lists[0].ID != l2.ID {
		t.Fatalf("Membership after Remove = %+v want [%v]", m.Lists, l2.ID)
	}
	if m.Remove(l1.ID) {
		t.Fatalf("Remove() should report false for absent id")
	}
}

// TestManagerCreateLoadRoundTrip verifies a created session round-trips
// through the store with its user and membership intact.
func TestManagerCreateLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemSessionStore())

	s, err := mgr.Create(ctx, "sid-1", "alice")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	info := todolist.New("groceries").Info()
	s.Membership.Add(info)
	if err := mgr.Save(ctx, s); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, err := mgr.Load(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.User.Handle != "alice" || !got.User.Equal(s.User) {
		t.Fatalf("Load() User=%+v want %+v", got.User, s.User)
	}
	if len(got.Membership.Lists) != 1 || got.Membership.Lists[0].ID != info.ID {
		t.Fatalf("Load() Membership=%+v want [%v]", got.Membership.Lists, info.ID)
	}
}

// TestManagerDestroy verifies a destroyed session cannot be loaded again.
func TestManagerDestroy(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemSessionStore())

	if _, err := mgr.Create(ctx, "sid-1", "bob"); err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if err := mgr.Destroy(ctx, "sid-1"); err != nil {
		t.Fatalf("Destroy() error: %v", err)
	}
	if _, err := mgr.Load(ctx, "sid-1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("Load(destroyed) err=%v want ErrNotFound", err)
	}
}

// TestManagerRefreshExtendsExpiry verifies Refresh persists a later expiry.
func TestManagerRefreshExtendsExpiry(t *testing.T) {
	ctx := context.Background()
	mgr := NewManager(store.NewMemSessionStore())

	s, err := mgr.Create(ctx, "sid-1", "carol")
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	before := s.ExpiresAt

	refreshed, err := mgr.Refresh(ctx, s)
	if err != nil {
		t.Fatalf("Refresh() error: %v", err)
	}
	if refreshed.ExpiresAt.Before(before) {
		t.Fatalf("Refresh() ExpiresAt=%v want >= %v", refreshed.ExpiresAt, before)
	}

	reloaded, err := mgr.Load(ctx, "sid-1")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !reloaded.ExpiresAt.Equal(refreshed.ExpiresAt) {
		t.Fatalf("Load() ExpiresAt=%v want %v (persisted)", reloaded.ExpiresAt, refreshed.ExpiresAt)
	}
}
