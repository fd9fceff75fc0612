package arbiter

import (
	"github.com/lightningnetwork/lnd/queue"
)

// auditRecord is one queued certification outcome awaiting a write to
// the AuditLog.
type auditRecord struct {
	cxid     [32]byte
	kind     string
	accepted bool
	detail   string
}

// auditQueue decouples the signing hot path from the audit log's disk
// I/O: SubmitContract/SubmitPayout enqueue a record and return
// immediately, and a single background goroutine drains the queue into
// sqlite. A burst of submissions never makes a submitter wait on the
// audit write.
type auditQueue struct {
	log   *AuditLog
	queue *queue.ConcurrentQueue
}

func newAuditQueue(log *AuditLog) *auditQueue {
	return &auditQueue{
		log:   log,
		queue: queue.NewConcurrentQueue(64),
	}
}

// Start begins draining the queue. Must be called once before Enqueue.
func (q *auditQueue) Start() {
	q.queue.Start()
	go q.drain()
}

// Stop halts the background drain goroutine after flushing whatever is
// already enqueued.
func (q *auditQueue) Stop() {
	q.queue.Stop()
}

// Enqueue records a certification outcome without blocking on disk
// I/O. The queue buffers without bound, so Enqueue neither drops a
// record nor waits on the write; the audit log is an operational
// record, not a correctness mechanism.
func (q *auditQueue) Enqueue(cxid [32]byte, kind string, accepted bool, detail string) {
	q.queue.ChanIn() <- auditRecord{cxid: cxid, kind: kind, accepted: accepted, detail: detail}
}

func (q *auditQueue) drain() {
	for item := range q.queue.ChanOut() {
		rec := item.(auditRecord)
		_ = q.log.Record(rec.cxid, rec.kind, rec.accepted, rec.detail)
	}
}
