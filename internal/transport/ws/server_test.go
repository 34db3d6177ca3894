package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"tunnelrun.ai/internal/protocol"
	"tunnelrun.ai/internal/sim/game"
	"tunnelrun.ai/internal/sim/match"
)

type fakeRunner struct {
	mu      sync.Mutex
	running bool
	keys    []string
	subs    map[string]chan []byte
	quits   []string
}

func newFakeRunner() *fakeRunner { return &fakeRunner{subs: map[string]chan []byte{}} }

func (f *fakeRunner) Start(ctx context.Context, name string) (match.StartResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.running {
		return match.StartResponse{}, match.ErrBusy
	}
	f.running = true
	return match.StartResponse{MatchID: "m-" + name, Info: game.Info{FPS: 10, Lives: 3, Level: 1}}, nil
}

func (f *fakeRunner) Keypress(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return game.ErrNotRunning
	}
	f.keys = append(f.keys, key)
	return nil
}

func (f *fakeRunner) QuitMatch(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quits = append(f.quits, id)
	f.running = false
}

func (f *fakeRunner) Subscribe(id string, out chan []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[id] = out
}

func (f *fakeRunner) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.subs, id)
}

func (f *fakeRunner) snapshot() (keys, quits []string, subs int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.keys...), append([]string(nil), f.quits...), len(f.subs)
}

func (f *fakeRunner) broadcast(b []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, out := range f.subs {
		out <- b
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn
}

func readMsg(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, b, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
	return m
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestJoinKeysAndDisconnect(t *testing.T) {
	runner := newFakeRunner()
	srv := httptest.NewServer(NewServer(runner, log.New(io.Discard, "", 0)).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	if err := conn.WriteJSON(protocol.JoinCmd{Cmd: protocol.CmdJoin, Name: "ana"}); err != nil {
		t.Fatalf("write join: %v", err)
	}
	info := readMsg(t, conn)
	if info["type"] != protocol.TypeInfo || info["match_id"] != "m-ana" || info["player"] != "ana" {
		t.Fatalf("info=%v", info)
	}
	waitFor(t, "subscription", func() bool { _, _, n := runner.snapshot(); return n == 1 })

	runner.broadcast([]byte(`{"type":"STATE","tick":1}`))
	if st := readMsg(t, conn); st["type"] != protocol.TypeState {
		t.Fatalf("state=%v", st)
	}

	if err := conn.WriteJSON(protocol.KeyCmd{Cmd: protocol.CmdKey, Key: "d"}); err != nil {
		t.Fatalf("write key: %v", err)
	}
	if err := conn.WriteJSON(protocol.KeyCmd{Cmd: protocol.CmdKey, Key: "x"}); err != nil {
		t.Fatalf("write key: %v", err)
	}
	e := readMsg(t, conn)
	if e["type"] != protocol.TypeError || e["code"] != protocol.ErrBadKey {
		t.Fatalf("error=%v", e)
	}
	keys, _, _ := runner.snapshot()
	if len(keys) != 2 || keys[0] != "d" || keys[1] != "x" {
		t.Fatalf("keys=%v", keys)
	}

	if err := conn.WriteMessage(websocket.TextMessage, []byte(`{"cmd":"dance"}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	if e := readMsg(t, conn); e["code"] != protocol.ErrProtoBadRequest {
		t.Fatalf("error=%v", e)
	}

	_ = conn.Close()
	waitFor(t, "quit on disconnect", func() bool {
		_, quits, subs := runner.snapshot()
		return len(quits) == 1 && quits[0] == "m-ana" && subs == 0
	})
}

func TestSecondPlayerIsBusy(t *testing.T) {
	runner := newFakeRunner()
	srv := httptest.NewServer(NewServer(runner, nil).Handler())
	defer srv.Close()

	first := dial(t, srv)
	defer first.Close()
	_ = first.WriteJSON(protocol.JoinCmd{Cmd: protocol.CmdJoin, Name: "ana"})
	if m := readMsg(t, first); m["type"] != protocol.TypeInfo {
		t.Fatalf("first=%v", m)
	}

	second := dial(t, srv)
	defer second.Close()
	_ = second.WriteJSON(protocol.JoinCmd{Cmd: protocol.CmdJoin, Name: "bob"})
	m := readMsg(t, second)
	if m["type"] != protocol.TypeError || m["code"] != protocol.ErrMatchBusy {
		t.Fatalf("second=%v", m)
	}
	if _, quits, _ := runner.snapshot(); len(quits) != 0 {
		t.Fatalf("busy rejection must not quit the running match: %v", quits)
	}
}

func TestKeyBeforeJoinIsRejected(t *testing.T) {
	runner := newFakeRunner()
	srv := httptest.NewServer(NewServer(runner, nil).Handler())
	defer srv.Close()

	conn := dial(t, srv)
	defer conn.Close()
	_ = conn.WriteJSON(protocol.KeyCmd{Cmd: protocol.CmdKey, Key: "d"})
	m := readMsg(t, conn)
	if m["type"] != protocol.TypeError || m["code"] != protocol.ErrNotJoined {
		t.Fatalf("got %v", m)
	}
}
