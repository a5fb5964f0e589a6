// Package transport implements the HTTP surface and websocket frame
// protocol: the only externally-visible boundary of the collaboration
// engine. Handlers are small functions closing over the shared
// dependencies (Registry, Store, session Manager), wrapped with the
// trace/logging middleware, following the same shape as a thin handler
// layer over a shared service.
package transport

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"collab-todo/registry"
	"collab-todo/session"
	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/trace"
	"collab-todo/user"
)

// Server wires the HTTP surface to the live-collaboration engine.
type Server struct {
	registry *registry.Registry
	store    store.Store
	sessions *session.Manager
	names    *user.Generator
	secret   []byte
	upgrader websocketUpgrader
}

// New constructs a Server. secretPath is read (or created) once at boot
// for signing session cookies. nameSeed seeds the handle generator used
// for freshly created sessions.
func New(reg *registry.Registry, st store.Store, sessions *session.Manager, secretPath string, nameSeed int64) (*Server, error) {
	secret, err := loadOrCreateSecret(secretPath)
	if err != nil {
		return nil, err
	}
	return &Server{
		registry: reg,
		store:    st,
		sessions: sessions,
		names:    user.NewGenerator(nameSeed),
		secret:   secret,
		upgrader: newWebsocketUpgrader(),
	}, nil
}

// Handler returns the composed root handler, ready to pass to
// http.ListenAndServe.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(trace.Middleware)
	r.Get("/session", s.handleGetSession)
	r.Post("/todos", s.handleCreateTodo)
	r.Get("/todos", s.handleListTodos)
	r.Delete("/todos/{id}", s.handleDeleteTodo)
	r.Get("/todos/{id}", s.handleJoinTodo)
	return r
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func respondErr(r *http.Request, w http.ResponseWriter, status int, msg string, err error) {
	slog.ErrorContext(r.Context(), msg, "error", err, "status", status)
	respondJSON(w, status, map[string]string{"error": msg})
}

// currentSession resolves the caller's session from the sid cookie,
// verifying its signature. Returns session.ErrNoSession if absent,
// malformed, or unknown to the store.
func (s *Server) currentSession(r *http.Request) (session.Session, error) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return session.Session{}, session.ErrNoSession
	}
	id, ok := verifyCookie(s.secret, c.Value)
	if !ok {
		return session.Session{}, session.ErrNoSession
	}
	sess, err := s.sessions.Load(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return session.Session{}, session.ErrNoSession
		}
		return session.Session{}, err
	}
	return sess, nil
}

func (s *Server) setCookie(w http.ResponseWriter, sessionID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    signCookie(s.secret, sessionID),
		Path:     "/",
		HttpOnly: false,
		SameSite: http.SameSiteStrictMode,
		Expires:  time.Now().Add(session.Expiry),
	})
}

// handleGetSession implements "GET /session": returns the caller's User,
// creating a session lazily, and refreshes its expiry to 1 day.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if errors.Is(err, session.ErrNoSession) {
		id := uuid.NewString()
		sess, err = s.sessions.Create(r.Context(), id, s.names.Handle())
		if err != nil {
			respondErr(r, w, http.StatusInternalServerError, "create session failed", err)
			return
		}
		s.setCookie(w, id)
	} else if err != nil {
		respondErr(r, w, http.StatusInternalServerError, "load session failed", err)
		return
	} else {
		sess, err = s.sessions.Refresh(r.Context(), sess)
		if err != nil {
			respondErr(r, w, http.StatusInternalServerError, "refresh session failed", err)
			return
		}
		s.setCookie(w, sess.ID)
	}
	respondJSON(w, http.StatusOK, sess.User)
}

// handleCreateTodo implements "POST /todos".
func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if errors.Is(err, session.ErrNoSession) {
		respondJSON(w, http.StatusUnauthorized, nil)
		return
	}
	if err != nil {
		respondErr(r, w, http.StatusInternalServerError, "load session failed", err)
		return
	}

	list := todolist.New("")
	if err := s.store.Store(r.Context(), list); err != nil {
		respondErr(r, w, http.StatusInternalServerError, "persist list failed", err)
		return
	}

	sess.Membership.Add(list.Info())
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		respondErr(r, w, http.StatusInternalServerError, "save membership failed", err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"id": list.ID.String()})
}

// handleListTodos implements "GET /todos".
func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if errors.Is(err, session.ErrNoSession) {
		respondJSON(w, http.StatusOK, []todolist.TodoListInfo{})
		return
	}
	if err != nil {
		respondErr(r, w, http.StatusInternalServerError, "load session failed", err)
		return
	}

	infos := s.registry.FillInfos(r.Context(), sess.Membership.Lists)
	respondJSON(w, http.StatusOK, infos)
}

// handleDeleteTodo implements "DELETE /todos/:id": removes the list from
// the caller's membership only. It intentionally never touches the
// Registry or an open websocket for that list.
func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	sess, err := s.currentSession(r)
	if errors.Is(err, session.ErrNoSession) {
		respondJSON(w, http.StatusOK, nil)
		return
	}
	if err != nil {
		respondErr(r, w, http.StatusInternalServerError, "load session failed", err)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid list id"})
		return
	}

	sess.Membership.Remove(id)
	if err := s.sessions.Save(r.Context(), sess); err != nil {
		respondErr(r, w, http.StatusInternalServerError, "save membership failed", err)
		return
	}
	respondJSON(w, http.StatusOK, nil)
}
