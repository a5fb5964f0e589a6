// Package user holds the identity value shared across the rest of the
// collaboration engine. A User is immutable once issued: nothing in this
// package mutates a User in place.
package user

import "github.com/google/uuid"

// User is a caller's identity. Handle is human-readable and need not be
// unique — uniqueness is carried entirely by ID.
type User struct {
	ID     uuid.UUID `json:"id"`
	Handle string    `json:"handle"`
}

// New issues a fresh User with a random id and the given handle.
func New(handle string) User {
	return User{ID: uuid.New(), Handle: handle}
}

// Equal reports whether two users share the same id. Handles are not part
// of identity, so two Users with the same ID but different Handles are
// still considered the same user.
func (u User) Equal(other User) bool {
	return u.ID == other.ID
}
