package nameservice

import (
	"context"
	"testing"
)

func TestMemoryRegistryResolveAndNames(t *testing.T) {
	reg := NewMemoryRegistry()
	var pubkey [33]byte
	pubkey[0] = 0x02
	pubkey[1] = 0xAA

	reg.Register("alice", pubkey)

	got, err := reg.Resolve(context.Background(), "alice")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != pubkey {
		t.Fatalf("resolved pubkey mismatch")
	}

	names, err := reg.Names(context.Background(), pubkey)
	if err != nil {
		t.Fatalf("Names: %v", err)
	}
	if len(names) != 1 || names[0] != "alice" {
		t.Fatalf("unexpected names: %+v", names)
	}
}

func TestMemoryRegistryReregisterMovesName(t *testing.T) {
	reg := NewMemoryRegistry()
	var pk1, pk2 [33]byte
	pk1[0] = 0x01
	pk2[0] = 0x02

	reg.Register("bob", pk1)
	reg.Register("bob", pk2)

	names1, _ := reg.Names(context.Background(), pk1)
	if len(names1) != 0 {
		t.Fatalf("expected bob removed from pk1, got %+v", names1)
	}
	names2, _ := reg.Names(context.Background(), pk2)
	if len(names2) != 1 || names2[0] != "bob" {
		t.Fatalf("expected bob registered under pk2, got %+v", names2)
	}
}

func TestMemoryRegistryResolveUnknownName(t *testing.T) {
	reg := NewMemoryRegistry()
	if _, err := reg.Resolve(context.Background(), "nobody"); err == nil {
		t.Fatalf("expected error for unregistered name")
	}
}
