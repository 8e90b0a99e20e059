package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
)

func dialWS(t *testing.T, ts *httptest.Server) (*websocket.Conn, context.Context) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.CloseNow() })
	return conn, ctx
}

func TestWS_TurnRoundTrip(t *testing.T) {
	t.Parallel()

	agent := &fakeAgent{reply: "pong"}
	s := New(Config{}, agent, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)

	conn, ctx := dialWS(t, ts)

	if err := conn.Write(ctx, websocket.MessageText, []byte("ping")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	typ, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if typ != websocket.MessageText || string(data) != "pong" {
		t.Fatalf("got %v %q, want text \"pong\"", typ, data)
	}
	if len(agent.turns) != 1 || agent.turns[0] != "ping" {
		t.Errorf("agent saw turns %v", agent.turns)
	}
}

func TestWS_TurnFailureClosesSocket(t *testing.T) {
	t.Parallel()

	s := New(Config{}, &fakeAgent{turnErr: errors.New("backend down")}, slog.New(slog.DiscardHandler))
	ts := httptest.NewServer(s.routes())
	t.Cleanup(ts.Close)

	conn, ctx := dialWS(t, ts)

	if err := conn.Write(ctx, websocket.MessageText, []byte("hi")); err != nil {
		t.Fatalf("Write: %v", err)
	}

	_, _, err := conn.Read(ctx)
	if err == nil {
		t.Fatal("Read succeeded, want a closed socket after a turn failure")
	}
	if got := websocket.CloseStatus(err); got != websocket.StatusInternalError {
		t.Fatalf("close status = %v, want StatusInternalError", got)
	}
}
