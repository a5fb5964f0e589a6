// Package command implements the closed set of mutations a ListActor
// applies to a TodoList, plus their JSON wire shape. Command issuers are
// always the authenticated user of the originating
// connection — never trusted from the wire — so every Command is paired
// with an Issuer to form a TodoCommand before it reaches an actor.
package command

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"collab-todo/todolist"
	"collab-todo/user"
)

// Command is implemented by every mutation kind in the closed set. Apply
// mutates l in place and reports whether the list actually changed, so the
// actor knows whether to publish a new snapshot: a no-op command must not
// trigger a spurious publication.
type Command interface {
	Apply(l *todolist.TodoList, issuer user.User) bool
}

// TodoCommand pairs a Command with the issuer identity the actor must use,
// regardless of what (if anything) the wire frame claimed.
type TodoCommand struct {
	Cmd    Command
	Issuer user.User
}

// CreateTask appends a new task assigned to the issuer.
type CreateTask struct{}

func (CreateTask) Apply(l *todolist.TodoList, issuer user.User) bool {
	l.AddTask(issuer)
	return true
}

// SetTaskDone sets a task's done flag to Done and claims it for the issuer.
type SetTaskDone struct {
	Task uuid.UUID
	Done bool
}

func (c SetTaskDone) Apply(l *todolist.TodoList, issuer user.User) bool {
	return l.SetTaskDone(c.Task, c.Done, issuer)
}

// RenameTask replaces a task's display name.
type RenameTask struct {
	Task uuid.UUID
	Name string
}

func (c RenameTask) Apply(l *todolist.TodoList, _ user.User) bool {
	return l.RenameTask(c.Task, c.Name)
}

// SetTaskAssignee reassigns a task to a different user.
type SetTaskAssignee struct {
	Task     uuid.UUID
	Assignee user.User
}

func (c SetTaskAssignee) Apply(l *todolist.TodoList, _ user.User) bool {
	return l.SetTaskAssignee(c.Task, c.Assignee)
}

// SetListName renames the list.
type SetListName struct {
	Name string
}

func (c SetListName) Apply(l *todolist.TodoList, _ user.User) bool {
	l.SetName(c.Name)
	return true
}

// UserJoin and UserLeave are internal-only: the server injects them, they
// are never accepted from a wire frame (see DecodeFrame).

// UserJoin marks a user as connected to the list.
type UserJoin struct {
	User user.User
}

func (c UserJoin) Apply(l *todolist.TodoList, _ user.User) bool {
	return l.AddUser(c.User)
}

// UserLeave marks a user as disconnected from the list.
type UserLeave struct {
	User user.User
}

func (c UserLeave) Apply(l *todolist.TodoList, _ user.User) bool {
	return l.RemoveUser(c.User.ID)
}

// frame is the outer JSON envelope: a type discriminator plus an opaque
// payload, deferred-decoded once the type is known.
type frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// taskCommandPayload is the inner shape of a "task_command" frame.
type taskCommandPayload struct {
	Task   uuid.UUID       `json:"task"`
	Action string          `json:"action"`
	Data   json.RawMessage `json:"data"`
}

// ErrUnknownFrame is returned for any frame whose type/action does not
// match the closed set. The transport layer should drop such frames
// silently rather than fail the session.
var ErrUnknownFrame = fmt.Errorf("command: unrecognized frame")

// DecodeFrame parses one inbound wire frame into a Command.
// user_join/user_leave are intentionally not recognized here — they are
// injected by the server (UserJoin by handle.Join, UserLeave by the
// transport's connection handler), never accepted from a client
// connection.
func DecodeFrame(data []byte) (Command, error) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("command: malformed frame: %w", err)
	}
	switch f.Type {
	case "create_task":
		return CreateTask{}, nil
	case "set_list_name":
		var name string
		if err := json.Unmarshal(f.Data, &name); err != nil {
			return nil, fmt.Errorf("command: malformed set_list_name: %w", err)
		}
		return SetListName{Name: name}, nil
	case "task_command":
		var p taskCommandPayload
		if err := json.Unmarshal(f.Data, &p); err != nil {
			return nil, fmt.Errorf("command: malformed task_command: %w", err)
		}
		switch p.Action {
		case "set_done":
			var done bool
			if err := json.Unmarshal(p.Data, &done); err != nil {
				return nil, fmt.Errorf("command: malformed set_done: %w", err)
			}
			return SetTaskDone{Task: p.Task, Done: done}, nil
		case "rename":
			var name string
			if err := json.Unmarshal(p.Data, &name); err != nil {
				return nil, fmt.Errorf("command: malformed rename: %w", err)
			}
			return RenameTask{Task: p.Task, Name: name}, nil
		case "set_assignee":
			var u user.User
			if err := json.Unmarshal(p.Data, &u); err != nil {
				return nil, fmt.Errorf("command: malformed set_assignee: %w", err)
			}
			return SetTaskAssignee{Task: p.Task, Assignee: u}, nil
		default:
			return nil, fmt.Errorf("%w: task_command action %q", ErrUnknownFrame, p.Action)
		}
	default:
		return nil, fmt.Errorf("%w: type %q", ErrUnknownFrame, f.Type)
	}
}
