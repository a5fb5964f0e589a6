package actor

import (
	"context"
	"sync"
	"testing"
	"time"

	"collab-todo/command"
	"collab-todo/store"
	"collab-todo/todolist"
	"collab-todo/user"
)

// TestActorParallelSenders verifies many concurrent senders never lose a
// command: the final task count equals the number of CreateTask sends.
// Run with `go test -race` for best coverage.
func TestActorParallelSenders(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	st := store.NewMemStore()
	l := todolist.New("list")
	u := user.New("alice")
	pub, snapshots := collectingPublisher()

	a := New(l, st, 20*time.Millisecond, pub)

	const senders = 8
	const perSender = 25
	var wg sync.WaitGroup
	wg.Add(senders)
	for i := 0; i < senders; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perSender; j++ {
				if err := a.Send(ctx, command.TodoCommand{Cmd: command.CreateTask{}, Issuer: u}); err != nil {
					t.Errorf("Send() error: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	a.Close()

	snaps := snapshots()
	if len(snaps) == 0 {
		t.Fatalf("no snapshots published")
	}
	last := snaps[len(snaps)-1]
	if len(last.Tasks) != senders*perSender {
		t.Fatalf("final task count = %d want %d", len(last.Tasks), senders*perSender)
	}
}
