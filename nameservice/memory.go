package nameservice

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRegistry is a process-local Registry backed by a plain map. It
// is the realization used by tests and by the single-process dry-run
// mode of the player tooling; a deployment that needs names shared
// across processes swaps in a different Registry without the core
// noticing.
type MemoryRegistry struct {
	mu       sync.RWMutex
	byName   map[string][33]byte
	byPubkey map[[33]byte][]string
}

// NewMemoryRegistry returns an empty registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		byName:   make(map[string][33]byte),
		byPubkey: make(map[[33]byte][]string),
	}
}

// Register binds name to pubkey, overwriting any previous binding for
// that name. A pubkey may be registered under several names.
func (m *MemoryRegistry) Register(name string, pubkey [33]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.byName[name]; ok {
		m.byPubkey[old] = removeName(m.byPubkey[old], name)
	}
	m.byName[name] = pubkey
	m.byPubkey[pubkey] = append(m.byPubkey[pubkey], name)
}

func (m *MemoryRegistry) Resolve(_ context.Context, name string) ([33]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	pubkey, ok := m.byName[name]
	if !ok {
		return [33]byte{}, fmt.Errorf("nameservice: name %q is not registered", name)
	}
	return pubkey, nil
}

func (m *MemoryRegistry) Names(_ context.Context, pubkey [33]byte) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := m.byPubkey[pubkey]
	out := make([]string, len(names))
	copy(out, names)
	return out, nil
}

func removeName(names []string, target string) []string {
	out := names[:0]
	for _, n := range names {
		if n != target {
			out = append(out, n)
		}
	}
	return out
}
