package transport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"collab-todo/command"
	"collab-todo/handle"
	"collab-todo/registry"
	"collab-todo/session"
	"collab-todo/todolist"
	"collab-todo/user"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

type websocketUpgrader = websocket.Upgrader

func newWebsocketUpgrader() websocketUpgrader {
	return websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}

func parseListID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, "id"))
}

// handleJoinTodo implements "GET /todos/:id" (websocket upgrade):
// subscribes the caller's session user to list id.
func (s *Server) handleJoinTodo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if err != nil {
		status := http.StatusInternalServerError
		if err == session.ErrNoSession {
			status = http.StatusUnauthorized
		}
		respondErr(r, w, status, "load session failed", err)
		return
	}

	listID, err := parseListID(r)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list id"})
		return
	}

	reader, sender, evicted, epoch, err := s.registry.Join(r.Context(), listID, sess.User)
	if err != nil {
		respondErr(r, w, http.StatusInternalServerError, "join list failed", err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.ErrorContext(r.Context(), "websocket upgrade failed", "error", err)
		_ = sender.Send(context.Background(), command.TodoCommand{Cmd: command.UserLeave{User: sess.User}, Issuer: sess.User})
		s.registry.Leave(context.Background(), listID, sess.User.ID, epoch)
		return
	}

	if sess.Membership.Add(todolist.TodoListInfo{ID: listID}) {
		if err := s.sessions.Save(r.Context(), sess); err != nil {
			slog.ErrorContext(r.Context(), "save membership on join failed", "error", err)
		}
	}

	runConnection(conn, reader, sender, evicted, s.registry, listID, sess.User, epoch)
}

// runConnection drives one websocket connection end to end: a read pump
// decoding inbound command frames into the actor's intake, and a write
// pump forwarding every published snapshot, mirroring a hub-less
// read-pump/write-pump split.
func runConnection(conn *websocket.Conn, reader *handle.Reader, sender handle.Sender, evicted <-chan struct{}, reg *registry.Registry, listID uuid.UUID, issuer user.User, epoch uint64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		writePump(ctx, conn, reader)
	}()

	// A fired eviction signal means a newer session now owns this user's
	// slot; the connection must close promptly rather than wait out
	// readPump's read deadline.
	go func() {
		select {
		case <-evicted:
			cancel()
			conn.Close()
		case <-ctx.Done():
		}
	}()

	readPump(ctx, conn, sender, issuer)
	cancel()
	conn.Close()
	<-done

	select {
	case <-evicted:
		// A newer session took this user's slot; it now owns
		// connected_users, so this connection must not send UserLeave.
	default:
		_ = sender.Send(context.Background(), command.TodoCommand{Cmd: command.UserLeave{User: issuer}, Issuer: issuer})
	}
	reg.Leave(context.Background(), listID, issuer.ID, epoch)
	conn.Close()
}

func readPump(ctx context.Context, conn *websocket.Conn, sender handle.Sender, issuer user.User) {
	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}
		cmd, err := command.DecodeFrame(raw)
		if err != nil {
			// Malformed frame: drop silently, keep the session alive. A
			// stray client bug must not disconnect collaborators.
			continue
		}
		if err := sender.Send(ctx, command.TodoCommand{Cmd: cmd, Issuer: issuer}); err != nil {
			return
		}
	}
}

type snapshotResult struct {
	val todolist.TodoList
	err error
}

func writePump(ctx context.Context, conn *websocket.Conn, reader *handle.Reader) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer conn.Close()

	for {
		snapCtx, cancel := context.WithCancel(ctx)
		valCh := make(chan snapshotResult, 1)
		go func() {
			v, err := reader.Next(snapCtx)
			valCh <- snapshotResult{v, err}
		}()

		select {
		case res := <-valCh:
			cancel()
			if res.err != nil {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			payload, err := json.Marshal(res.val)
			if err != nil {
				continue
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			cancel()
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			cancel()
			return
		}
	}
}
