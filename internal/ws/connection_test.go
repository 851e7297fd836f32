package ws

import (
	"net"
	"testing"
	"time"

	"github.com/gobwas/ws/wsutil"
)

// TestWriteMessage_StalledReaderFailsFast covers the case of a client that
// has stopped draining its socket. The write must come back with an error
// once the deadline passes; notification fan-out runs under the gateway's
// mutex, so a write that blocks until heartbeat eviction would stall every
// other connection's events with it.
func TestWriteMessage_StalledReaderFailsFast(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &Connection{
		ID:           "stalled",
		Conn:         server,
		WriteTimeout: 50 * time.Millisecond,
	}

	// The client end never reads, so the write can only end via the deadline.
	start := time.Now()
	err := c.WriteMessage([]byte(`{"type":"peer-ready","room":"r1"}`))
	elapsed := time.Since(start)

	if err == nil {
		t.Fatal("expected a write error against a reader that never drains")
	}
	if netErr, ok := err.(net.Error); !ok || !netErr.Timeout() {
		t.Errorf("expected a timeout error, got %v", err)
	}
	if elapsed > time.Second {
		t.Errorf("write took %v to fail, deadline not applied", elapsed)
	}
}

func TestWriteMessage_DeliversWhenReaderKeepsUp(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &Connection{
		ID:           "healthy",
		Conn:         server,
		WriteTimeout: time.Second,
	}

	payload := []byte(`{"type":"pong"}`)
	readErr := make(chan error, 1)
	got := make(chan []byte, 1)
	go func() {
		data, err := wsutil.ReadServerText(client)
		got <- data
		readErr <- err
	}()

	if err := c.WriteMessage(payload); err != nil {
		t.Fatalf("WriteMessage() error: %v", err)
	}
	if err := <-readErr; err != nil {
		t.Fatalf("client read error: %v", err)
	}
	if data := <-got; string(data) != string(payload) {
		t.Errorf("client read %q, want %q", data, payload)
	}

	// The deadline from this write must not linger and break a later one.
	go func() { _, _ = wsutil.ReadServerText(client) }()
	if err := c.WriteMessage(payload); err != nil {
		t.Errorf("second WriteMessage() error: %v", err)
	}
}

func TestWritePing_StalledReaderFailsFast(t *testing.T) {
	client, server := net.Pipe()
	defer client.Close()
	defer server.Close()

	c := &Connection{
		ID:           "stalled-ping",
		Conn:         server,
		WriteTimeout: 50 * time.Millisecond,
	}

	if err := c.WritePing(); err == nil {
		t.Fatal("expected ping write to fail against a reader that never drains")
	}
}
