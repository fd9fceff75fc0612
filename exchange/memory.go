package exchange

import (
	"context"
	"fmt"
	"sync"
)

// MemoryMailbox is an in-process Mailbox backed by one buffered
// channel per recipient name, used by tests and single-process
// dry-run tooling in place of a real websocket deployment.
type MemoryMailbox struct {
	mu    sync.Mutex
	boxes map[string]chan []byte
}

// NewMemoryMailbox returns a mailbox with no recipients registered.
func NewMemoryMailbox() *MemoryMailbox {
	return &MemoryMailbox{boxes: make(map[string]chan []byte)}
}

// Register creates the inbox for name if it does not already exist.
func (m *MemoryMailbox) Register(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.boxes[name]; !ok {
		m.boxes[name] = make(chan []byte, 16)
	}
}

func (m *MemoryMailbox) Send(ctx context.Context, to string, payload []byte) error {
	m.mu.Lock()
	box, ok := m.boxes[to]
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("exchange: no mailbox registered for %q", to)
	}
	select {
	case box <- payload:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryMailbox) Receive(ctx context.Context, self string) ([]byte, error) {
	m.mu.Lock()
	box, ok := m.boxes[self]
	m.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("exchange: no mailbox registered for %q", self)
	}
	select {
	case payload := <-box:
		return payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
