package exchange

import (
	"context"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// WebSocketTransport is a Mailbox realized over a long-lived websocket
// connection per peer name, the same transport shape the teacher's
// own REST/websocket gateway dependency implies but that this core
// never required directly. A deployment dials or accepts one
// connection per counterparty name and registers it here; Send/Receive
// then look the connection up by name.
type WebSocketTransport struct {
	mu    sync.RWMutex
	conns map[string]*websocket.Conn
}

// NewWebSocketTransport returns a transport with no connections
// registered; call Register as peers connect.
func NewWebSocketTransport() *WebSocketTransport {
	return &WebSocketTransport{conns: make(map[string]*websocket.Conn)}
}

// Register binds name to an already-established websocket connection.
// Replacing an existing binding closes the old connection.
func (t *WebSocketTransport) Register(name string, conn *websocket.Conn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if old, ok := t.conns[name]; ok {
		old.Close()
	}
	t.conns[name] = conn
}

// Send writes payload as a single binary websocket message to the
// connection registered under to.
func (t *WebSocketTransport) Send(ctx context.Context, to string, payload []byte) error {
	t.mu.RLock()
	conn, ok := t.conns[to]
	t.mu.RUnlock()
	if !ok {
		return fmt.Errorf("exchange: no connection registered for %q", to)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- conn.WriteMessage(websocket.BinaryMessage, payload) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Receive blocks on the connection registered under self until one
// binary message arrives, ctx is canceled, or the connection errors.
func (t *WebSocketTransport) Receive(ctx context.Context, self string) ([]byte, error) {
	t.mu.RLock()
	conn, ok := t.conns[self]
	t.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("exchange: no connection registered for %q", self)
	}

	type result struct {
		payload []byte
		err     error
	}
	resCh := make(chan result, 1)
	go func() {
		_, payload, err := conn.ReadMessage()
		resCh <- result{payload, err}
	}()
	select {
	case res := <-resCh:
		return res.payload, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
