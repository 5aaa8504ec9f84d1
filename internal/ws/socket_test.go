package ws

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	socketio "github.com/googollee/go-socket.io"
	"github.com/kiliankoe/codewords/internal/game"
	"github.com/kiliankoe/codewords/internal/store"
)

type emitted struct {
	event string
	args  []any
}

// fakeConn records what the server emits. Methods the handlers never call
// fall through to the nil embedded Conn.
type fakeConn struct {
	socketio.Conn
	mu     sync.Mutex
	ctx    any
	events chan emitted
}

func newFakeConn() *fakeConn {
	return &fakeConn{events: make(chan emitted, 64)}
}

func (c *fakeConn) ID() string { return "sid-1" }

func (c *fakeConn) Context() any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctx
}

func (c *fakeConn) SetContext(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ctx = v
}

func (c *fakeConn) Emit(event string, args ...any) {
	c.events <- emitted{event: event, args: args}
}

// nextState waits for the next room:state push.
func (c *fakeConn) nextState(t *testing.T) game.View {
	t.Helper()
	for {
		select {
		case e := <-c.events:
			if e.event != "room:state" {
				continue
			}
			return e.args[0].(game.View)
		case <-time.After(time.Second):
			t.Fatal("no room:state received")
		}
	}
}

func newTestServer(t *testing.T) (*Server, *game.Service) {
	t.Helper()
	words := make([]string, game.BoardSize)
	for i := range words {
		words[i] = fmt.Sprintf("word%02d", i)
	}
	svc := game.NewService(store.NewMemoryStore(), game.WithDefaultWords(words))
	return New(svc, 100, 100), svc
}

func TestConnCtxStop(t *testing.T) {
	calls := 0
	cc := &ConnCtx{Code: "ABC123", PlayerID: "p1", cancel: func() { calls++ }}

	code, player := cc.watching()
	if code != "ABC123" || player != "p1" {
		t.Fatalf("unexpected watch target %s/%s", code, player)
	}
	cc.stop()
	cc.stop()
	if calls != 1 {
		t.Fatalf("cancel should run once, ran %d times", calls)
	}
}

func TestActRequiresJoinedRoom(t *testing.T) {
	srv, _ := newTestServer(t)
	conn := newFakeConn()
	conn.SetContext(&ConnCtx{})

	called := false
	ack := srv.act(conn, "game:start", func(ctx context.Context, code, playerID string) error {
		called = true
		return nil
	})
	if called {
		t.Fatal("action should not run before joining")
	}
	if ack["error"] != "not_joined" || ack["message"] == "" {
		t.Fatalf("unexpected ack %v", ack)
	}
	e := <-conn.events
	payload, ok := e.args[0].(map[string]any)
	if e.event != "error" || !ok || payload["code"] != "not_joined" {
		t.Fatalf("expected an error push, got %+v", e)
	}
}

func TestActAcks(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	room, err := svc.CreateRoom(ctx, game.Player{ID: "host", Name: "Host"}, nil, game.TeamRed)
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	conn := newFakeConn()
	conn.SetContext(&ConnCtx{})
	if err := srv.watch(conn, room.ID, "host"); err != nil {
		t.Fatalf("should be able to watch: %v", err)
	}
	defer conn.Context().(*ConnCtx).stop()
	conn.nextState(t)

	ack := srv.act(conn, "game:start", func(ctx context.Context, code, playerID string) error {
		_, err := svc.StartGame(ctx, code, playerID)
		return err
	})
	if ack["error"] != "team_incomplete" {
		t.Fatalf("expected team_incomplete ack, got %v", ack)
	}

	spy := game.RoleSpymaster
	ack = srv.act(conn, "room:setRole", func(ctx context.Context, code, playerID string) error {
		_, err := svc.SetPlayerRole(ctx, code, playerID, game.RoleUpdate{Role: &spy})
		return err
	})
	if ack["ok"] != true {
		t.Fatalf("expected ok ack, got %v", ack)
	}
	v := conn.nextState(t)
	if v.You == nil || v.You.Role != game.RoleSpymaster {
		t.Fatalf("pushed state should show the new role, got %+v", v.You)
	}
}

func TestWatchReplacesSubscription(t *testing.T) {
	srv, svc := newTestServer(t)
	ctx := context.Background()
	first, err := svc.CreateRoom(ctx, game.Player{ID: "a", Name: "A"}, nil, game.TeamRed)
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}
	second, err := svc.CreateRoom(ctx, game.Player{ID: "b", Name: "B"}, nil, game.TeamRed)
	if err != nil {
		t.Fatalf("should be able to create room: %v", err)
	}

	conn := newFakeConn()
	conn.SetContext(&ConnCtx{})
	if err := srv.watch(conn, first.ID, "a"); err != nil {
		t.Fatalf("should be able to watch: %v", err)
	}
	if v := conn.nextState(t); v.ID != first.ID {
		t.Fatalf("expected state of %s, got %s", first.ID, v.ID)
	}
	if err := srv.watch(conn, second.ID, "b"); err != nil {
		t.Fatalf("should be able to watch: %v", err)
	}
	defer conn.Context().(*ConnCtx).stop()
	if v := conn.nextState(t); v.ID != second.ID {
		t.Fatalf("expected state of %s, got %s", second.ID, v.ID)
	}
	if code, player := conn.Context().(*ConnCtx).watching(); code != second.ID || player != "b" {
		t.Fatalf("connection should watch %s as b, got %s as %s", second.ID, code, player)
	}

	if _, _, err := svc.JoinRoom(ctx, first.ID, game.Player{Name: "Late"}); err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	if _, _, err := svc.JoinRoom(ctx, second.ID, game.Player{Name: "Other"}); err != nil {
		t.Fatalf("should be able to join: %v", err)
	}
	v := conn.nextState(t)
	if v.ID != second.ID || len(v.Players) != 2 {
		t.Fatalf("only the watched room should push, got %s with %d players", v.ID, len(v.Players))
	}

	if err := srv.watch(conn, "NOPE00", "b"); err == nil {
		t.Fatal("watching an unknown room should fail")
	}
}
