// Package exchange defines the message-exchange collaborator spec.md
// §6 places outside the core: a mailbox keyed by name, used by players
// to pass contract/payout blobs and ephemeral auth tokens back and
// forth. The core treats it as opaque byte-oriented transport — it
// never interprets what is sent or received, only that delivery is
// addressed by name.
package exchange

import "context"

// Mailbox is the exchange wrapper the core treats as an external
// collaborator. Send/Receive carry opaque bytes; callers are
// responsible for framing contract_bytes, payout_bytes, or auth
// tokens however their own protocol requires.
type Mailbox interface {
	// Send delivers payload to the mailbox registered under to.
	Send(ctx context.Context, to string, payload []byte) error

	// Receive blocks until a message addressed to self arrives, or ctx
	// is done.
	Receive(ctx context.Context, self string) ([]byte, error)
}
