package arbiter

import (
	"path/filepath"
	"testing"
)

func TestDurableStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotence.db")
	store, err := openDurableStore(path)
	if err != nil {
		t.Fatalf("openDurableStore: %v", err)
	}
	defer store.Close()

	var cxid [32]byte
	cxid[0] = 0x07

	if _, ok := store.get(contractSigBucket, cxid); ok {
		t.Fatalf("expected miss before any put")
	}

	want := []byte{0xde, 0xad, 0xbe, 0xef}
	if err := store.put(contractSigBucket, cxid, want); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok := store.get(contractSigBucket, cxid)
	if !ok {
		t.Fatalf("expected hit after put")
	}
	if string(got) != string(want) {
		t.Fatalf("round-trip mismatch: got %x want %x", got, want)
	}
}

func TestDurableStoreSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idempotence.db")
	store, err := openDurableStore(path)
	if err != nil {
		t.Fatalf("openDurableStore: %v", err)
	}

	var cxid [32]byte
	cxid[0] = 0x09
	if err := store.put(payoutResultBucket, cxid, []byte("psbt")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	reopened, err := openDurableStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()

	got, ok := reopened.get(payoutResultBucket, cxid)
	if !ok || string(got) != "psbt" {
		t.Fatalf("expected persisted record to survive reopen, got %q ok=%v", got, ok)
	}
}
