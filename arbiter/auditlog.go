package arbiter

import (
	"database/sql"
	"encoding/hex"
	"time"

	_ "modernc.org/sqlite"

	"github.com/btcwager/wagerd/wagererr"
)

const opAudit = "arbiter_audit"

// AuditLog records every certification decision (not the key material,
// not the full contract/payout — just enough for an operator to
// reconstruct who asked for what and what the arbiter decided). It is
// intentionally separate from the idempotence cache: the cache is a
// correctness mechanism, the audit log is a record for humans.
type AuditLog struct {
	db *sql.DB
}

// OpenAuditLog opens (creating if absent) a sqlite-backed audit log at
// path.
func OpenAuditLog(path string) (*AuditLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opAudit,
			"opening audit log database", err)
	}
	const schema = `
CREATE TABLE IF NOT EXISTS certifications (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	cxid TEXT NOT NULL,
	kind TEXT NOT NULL,
	accepted INTEGER NOT NULL,
	detail TEXT NOT NULL,
	recorded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_certifications_cxid ON certifications(cxid);
`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opAudit,
			"creating audit log schema", err)
	}
	return &AuditLog{db: db}, nil
}

// Record appends one certification decision.
func (a *AuditLog) Record(cxid [32]byte, kind string, accepted bool, detail string) error {
	_, err := a.db.Exec(
		`INSERT INTO certifications (cxid, kind, accepted, detail, recorded_at)
		 VALUES (?, ?, ?, ?, ?)`,
		hex.EncodeToString(cxid[:]), kind, accepted, detail, time.Now().Unix(),
	)
	if err != nil {
		return wagererr.Wrap(wagererr.KindFundingTxMalformed, opAudit,
			"recording audit entry", err)
	}
	return nil
}

// Close closes the underlying database handle.
func (a *AuditLog) Close() error {
	return a.db.Close()
}

// Entry is one recorded certification decision, as read back by Tail.
type Entry struct {
	ID         int64
	Cxid       string
	Kind       string
	Accepted   bool
	Detail     string
	RecordedAt time.Time
}

// Tail returns the n most recently recorded entries, newest first. It
// is the read side operator tooling (cmd/escrowctl) uses; the
// certifier itself only ever writes.
func (a *AuditLog) Tail(n int) ([]Entry, error) {
	rows, err := a.db.Query(
		`SELECT id, cxid, kind, accepted, detail, recorded_at
		   FROM certifications ORDER BY id DESC LIMIT ?`, n,
	)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opAudit,
			"querying audit log", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			accepted   int
			recordedAt int64
		)
		if err := rows.Scan(&e.ID, &e.Cxid, &e.Kind, &accepted, &e.Detail, &recordedAt); err != nil {
			return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opAudit,
				"scanning audit row", err)
		}
		e.Accepted = accepted != 0
		e.RecordedAt = time.Unix(recordedAt, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
