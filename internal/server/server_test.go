// ABOUTME: Tests for the feeder server lifecycle
// ABOUTME: Tests shutdown behavior with connected players
package server

import (
	"fmt"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/hapticore/hapticore-go/internal/protocol"
)

// dialFeeder retries until the server's listener is accepting.
func dialFeeder(t *testing.T, port int) *websocket.Conn {
	t.Helper()

	url := fmt.Sprintf("ws://127.0.0.1:%d/hapticore", port)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err == nil {
			return conn
		}
		time.Sleep(20 * time.Millisecond)
	}

	t.Fatalf("server on port %d never accepted a connection", port)
	return nil
}

func TestStopReturnsWithConnectedPlayer(t *testing.T) {
	const port = 19742

	srv, err := New(Config{
		Port:     port,
		Name:     "test-feeder",
		Interval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("expected server, got error: %v", err)
	}

	go srv.Start()

	conn := dialFeeder(t, port)
	defer conn.Close()

	hello := protocol.Message{
		Type: "client/hello",
		Payload: protocol.ClientHello{
			ClientID: "test-client",
			Name:     "test-player",
			Version:  1,
		},
	}
	if err := conn.WriteJSON(hello); err != nil {
		t.Fatalf("failed to send client/hello: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("failed to read server/hello: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for srv.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if srv.ClientCount() != 1 {
		t.Fatalf("expected 1 connected player, got %d", srv.ClientCount())
	}

	// A connected player parks a read goroutine in ReadMessage; Stop must
	// still return once it closes the connection.
	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return while a player was connected")
	}
}

func TestStopWithoutClientsReturns(t *testing.T) {
	srv, err := New(Config{
		Port:     19743,
		Name:     "test-feeder",
		Interval: 50 * time.Millisecond,
	})
	if err != nil {
		t.Fatalf("expected server, got error: %v", err)
	}

	go srv.Start()
	time.Sleep(50 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		srv.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("Stop did not return with no players connected")
	}
}
