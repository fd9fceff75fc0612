package exchange

import (
	"context"
	"testing"
	"time"
)

func TestMemoryMailboxSendReceive(t *testing.T) {
	m := NewMemoryMailbox()
	m.Register("arbiter")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := m.Send(ctx, "arbiter", []byte("contract_bytes")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	got, err := m.Receive(ctx, "arbiter")
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(got) != "contract_bytes" {
		t.Fatalf("unexpected payload: %q", got)
	}
}

func TestMemoryMailboxUnregisteredRecipient(t *testing.T) {
	m := NewMemoryMailbox()
	if err := m.Send(context.Background(), "nobody", []byte("x")); err == nil {
		t.Fatalf("expected error sending to unregistered recipient")
	}
}

func TestMemoryMailboxReceiveCancel(t *testing.T) {
	m := NewMemoryMailbox()
	m.Register("p1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := m.Receive(ctx, "p1"); err == nil {
		t.Fatalf("expected error on canceled context")
	}
}
