package transport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"collab-todo/todolist"
)

// dialTodo connects a websocket client to srv's "GET /todos/:id" endpoint,
// carrying the given session cookie.
func dialTodo(t *testing.T, ts *httptest.Server, listID string, cookie *http.Cookie) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "/todos/" + listID
	header := http.Header{}
	if cookie != nil {
		header.Set("Cookie", cookie.Name+"="+cookie.Value)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		t.Fatalf("Dial() error: %v (status %d)", err, status)
	}
	return conn
}

func readSnapshot(t *testing.T, conn *websocket.Conn) todolist.TodoList {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got todolist.TodoList
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("ReadJSON() error: %v", err)
	}
	return got
}

// TestTodoListWorkflowWorks is the full collaboration round trip: connect,
// read the initial snapshot, create a task, read the updated snapshot, rename
// the task, read the renamed snapshot. Grounded in original_source/tests/
// api/todo.rs's todo_list_workflow_works.
func TestTodoListWorkflowWorks(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	sessRec := doRequest(srv, http.MethodGet, "/session", nil)
	if sessRec.Code != http.StatusOK {
		t.Fatalf("GET /session status = %d want 200", sessRec.Code)
	}
	cookie := sessionCookie(t, sessRec)

	createRec := doRequest(srv, http.MethodPost, "/todos", cookie)
	if createRec.Code != http.StatusOK {
		t.Fatalf("POST /todos status = %d want 200", createRec.Code)
	}
	var created struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(createRec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}

	conn := dialTodo(t, ts, created.ID, cookie)
	defer conn.Close()

	initial := readSnapshot(t, conn)
	if len(initial.ConnectedUsers) != 1 {
		t.Fatalf("initial snapshot ConnectedUsers = %+v want 1 entry", initial.ConnectedUsers)
	}
	if len(initial.Tasks) != 0 {
		t.Fatalf("initial snapshot Tasks = %+v want none", initial.Tasks)
	}

	if err := conn.WriteJSON(map[string]any{"type": "create_task"}); err != nil {
		t.Fatalf("WriteJSON(create_task) error: %v", err)
	}
	afterCreate := readSnapshot(t, conn)
	if len(afterCreate.Tasks) != 1 {
		t.Fatalf("after create_task Tasks = %+v want 1 task", afterCreate.Tasks)
	}
	task := afterCreate.Tasks[0]

	renamePayload := map[string]any{
		"type": "task_command",
		"data": map[string]any{
			"task":   task.ID,
			"action": "rename",
			"data":   "buy groceries",
		},
	}
	if err := conn.WriteJSON(renamePayload); err != nil {
		t.Fatalf("WriteJSON(rename) error: %v", err)
	}
	afterRename := readSnapshot(t, conn)
	if len(afterRename.Tasks) != 1 || afterRename.Tasks[0].Name != "buy groceries" {
		t.Fatalf("after rename Tasks = %+v want single task named %q", afterRename.Tasks, "buy groceries")
	}
}
