// Package nameservice defines the name-registry collaborator spec.md
// §6 places outside the core: resolving a human-chosen name to the
// escrow-capable pubkey it names, and the reverse lookup used when
// routing an incoming message back to a name. The core only ever
// requires that a name maps deterministically to exactly one pubkey;
// it never reasons about how that mapping is maintained.
package nameservice

import (
	"context"
)

// Registry is the name-resolution wrapper the core treats as an
// external collaborator. Escrow/contract/payout/arbiter code never
// imports this package directly — only player/operator tooling that
// needs to turn a human-entered name into a pubkey before building a
// Contract.
type Registry interface {
	// Resolve returns the escrow-capable pubkey registered for name.
	Resolve(ctx context.Context, name string) (pubkey [33]byte, err error)

	// Names returns every name currently registered to pubkey. A
	// pubkey may be registered under more than one name; the core
	// only cares that Resolve is a function, not that this reverse
	// direction is.
	Names(ctx context.Context, pubkey [33]byte) ([]string, error)
}
