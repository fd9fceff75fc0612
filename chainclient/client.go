// Package chainclient defines the chain-access collaborator spec.md
// §1/§6 places outside the core: listing unspent outputs for an
// address, broadcasting a finalized transaction, and estimating fees.
// The core only ever holds this interface; escrow.BuildParams' UTXO
// lists are expected to come from a Client.ListUnspent call.
package chainclient

import (
	"context"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/escrow"
)

// Client is the chain-access wrapper the core treats as an external
// collaborator. It never appears in the predicate/contract/payout/
// arbiter packages directly — only in the player/operator tooling that
// assembles their inputs.
type Client interface {
	// ListUnspent returns every UTXO currently paying addr.
	ListUnspent(ctx context.Context, addr btcutil.Address) ([]escrow.UTXO, error)

	// Broadcast submits a finalized transaction to the network.
	Broadcast(ctx context.Context, tx *wire.MsgTx) error

	// EstimateFee returns a satoshi-per-vbyte estimate for confirmation
	// within confTarget blocks.
	EstimateFee(ctx context.Context, confTarget uint32) (btcutil.Amount, error)
}
