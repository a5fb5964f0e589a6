// Package todolist is the domain model and core operations for a shared
// todo list. No I/O or logging here — just state shape and in-place
// mutation, kept separate from persistence.
package todolist

import (
	"time"

	"github.com/google/uuid"

	"collab-todo/user"
)

// TodoTask is a single item on a list.
type TodoTask struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Assignee user.User `json:"assignee"`
	Done     bool      `json:"done"`
}

// TodoList is the in-memory replica owned exclusively by one ListActor.
// External observers only ever see it by value, via a published snapshot.
type TodoList struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Tasks          []TodoTask `json:"tasks"`
	CreatedAt      time.Time  `json:"created_at"`
	LastUpdatedAt  time.Time  `json:"last_updated_at"`
	ConnectedUsers []user.User `json:"connected_users"`
}

// TodoListInfo is the lightweight projection used to list a user's
// memberships without shipping every task.
type TodoListInfo struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

// New creates an empty list with a fresh id and created_at/last_updated_at
// both set to now.
func New(name string) TodoList {
	now := time.Now()
	return TodoList{
		ID:            uuid.New(),
		Name:          name,
		Tasks:         []TodoTask{},
		CreatedAt:     now,
		LastUpdatedAt: now,
	}
}

// Info projects a list down to its lightweight membership-listing form.
func (l TodoList) Info() TodoListInfo {
	return TodoListInfo{ID: l.ID, Name: l.Name}
}

// Clone returns a deep copy suitable for publishing to subscribers that
// must never observe mutation of the actor's owned state. User values are
// immutable so only the slices need copying.
func (l TodoList) Clone() TodoList {
	out := l
	out.Tasks = append([]TodoTask(nil), l.Tasks...)
	out.ConnectedUsers = append([]user.User(nil), l.ConnectedUsers...)
	return out
}

// touch stamps LastUpdatedAt. time.Now() is monotonic within a process, so
// successive calls from the single-writer actor are non-decreasing.
func (l *TodoList) touch() {
	l.LastUpdatedAt = time.Now()
}

// findTask returns the index of the task with the given id, or -1.
func (l *TodoList) findTask(id uuid.UUID) int {
	for i := range l.Tasks {
		if l.Tasks[i].ID == id {
			return i
		}
	}
	return -1
}

// AddTask appends a fresh task assigned to issuer and returns it.
func (l *TodoList) AddTask(issuer user.User) TodoTask {
	t := TodoTask{ID: uuid.New(), Assignee: issuer, Done: false}
	l.Tasks = append(l.Tasks, t)
	l.touch()
	return t
}

// SetTaskDone sets done and claims the task for issuer (claim-on-toggle).
// Reports whether the task existed; a missing task is a silent no-op.
func (l *TodoList) SetTaskDone(taskID uuid.UUID, done bool, issuer user.User) bool {
	i := l.findTask(taskID)
	if i < 0 {
		return false
	}
	l.Tasks[i].Done = done
	l.Tasks[i].Assignee = issuer
	l.touch()
	return true
}

// RenameTask replaces a task's name. No assignee change.
func (l *TodoList) RenameTask(taskID uuid.UUID, name string) bool {
	i := l.findTask(taskID)
	if i < 0 {
		return false
	}
	l.Tasks[i].Name = name
	l.touch()
	return true
}

// SetTaskAssignee reassigns a task.
func (l *TodoList) SetTaskAssignee(taskID uuid.UUID, assignee user.User) bool {
	i := l.findTask(taskID)
	if i < 0 {
		return false
	}
	l.Tasks[i].Assignee = assignee
	l.touch()
	return true
}

// findUser returns the index of u in ConnectedUsers by id, or -1.
func (l *TodoList) findUser(id uuid.UUID) int {
	for i := range l.ConnectedUsers {
		if l.ConnectedUsers[i].ID == id {
			return i
		}
	}
	return -1
}

// AddUser appends u to ConnectedUsers if not already present by id.
// Reports whether the list changed.
func (l *TodoList) AddUser(u user.User) bool {
	if l.findUser(u.ID) >= 0 {
		return false
	}
	l.ConnectedUsers = append(l.ConnectedUsers, u)
	l.touch()
	return true
}

// RemoveUser removes a user from ConnectedUsers by id. Reports whether the
// list changed.
func (l *TodoList) RemoveUser(id uuid.UUID) bool {
	i := l.findUser(id)
	if i < 0 {
		return false
	}
	l.ConnectedUsers = append(l.ConnectedUsers[:i], l.ConnectedUsers[i+1:]...)
	l.touch()
	return true
}

// SetName sets the list's name.
func (l *TodoList) SetName(name string) {
	l.Name = name
	l.touch()
}
