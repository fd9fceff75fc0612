package arbiter

import (
	"path/filepath"
	"testing"
	"time"
)

func TestAuditQueueDrainsToLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := OpenAuditLog(path)
	if err != nil {
		t.Fatalf("OpenAuditLog: %v", err)
	}
	defer log.Close()

	aq := newAuditQueue(log)
	aq.Start()
	defer aq.Stop()

	var cxid [32]byte
	cxid[0] = 0x11
	aq.Enqueue(cxid, "submit-contract", true, "ok")

	deadline := time.Now().Add(2 * time.Second)
	var count int
	for time.Now().Before(deadline) {
		row := log.db.QueryRow(`SELECT COUNT(*) FROM certifications`)
		if err := row.Scan(&count); err != nil {
			t.Fatalf("query: %v", err)
		}
		if count == 1 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("expected 1 drained record, got %d", count)
}
