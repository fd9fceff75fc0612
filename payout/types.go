// Package payout implements the Payout object: the redemption side of
// a wager, pairing a by-value copy of its Contract with a partially
// signed redemption transaction and the oracle's outcome signature.
package payout

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg/chainhash"

	"github.com/btcwager/wagerd/contract"
)

const opPayout = "payout"

// Version is the only serialization version this package emits or
// accepts.
const Version uint8 = 1

// Payout bundles a frozen Contract with the redemption transaction
// that spends its escrow output. Contract is embedded by value per
// spec.md §9's design note: a Payout must be self-contained and
// verifiable without external lookup, even though Contract's own
// funding tx is what the redemption spends from.
type Payout struct {
	Version uint8

	Contract contract.Contract

	Psbt *psbt.Packet

	// ScriptSig is the oracle's signature on the redemption tx's txid;
	// nil until the oracle has signed one of the two predetermined
	// outcomes.
	ScriptSig []byte
}

// RedemptionTxID implements predicate.RedemptionContext: the txid
// OP_VERIFYSIG binds every signature to. It is the unsigned tx's hash,
// which is stable across partial signing since witness data never
// enters the non-witness txid under segwit.
func (p *Payout) RedemptionTxID() chainhash.Hash {
	return p.Psbt.UnsignedTx.TxHash()
}
