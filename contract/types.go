// Package contract implements the immutable Contract object: the bundle
// of pubkeys, payout addresses, funding transaction, predicate script
// and signature chain that binds two players and an arbiter to a
// single deterministic wager outcome.
package contract

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/predicate"
)

const opContract = "contract"

// Version is the only serialization version this package emits or
// accepts.
const Version uint8 = 1

// Slot indexes the three signature positions. Pubkey order, signature
// order and multisig redeem-script order all agree: p1, p2, arbiter.
const (
	SlotP1 = iota
	SlotP2
	SlotArbiter
	numSlots
)

// State is the contract's derived classification, a pure function of
// which signature slots currently hold a signature that verifies
// against that slot's pubkey over Cxid.
type State int

const (
	StateUnsigned State = iota
	StateP1Signed
	StateP2Signed
	// StateAccepted is spec.md's "Live-ready": both player signatures
	// present and verify, arbiter has not yet signed.
	StateAccepted
	StateCertified
	StateInvalid
)

func (s State) String() string {
	switch s {
	case StateUnsigned:
		return "unsigned"
	case StateP1Signed:
		return "p1_signed"
	case StateP2Signed:
		return "p2_signed"
	case StateAccepted:
		return "accepted"
	case StateCertified:
		return "certified"
	case StateInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Contract is the frozen-after-three-signatures commitment binding the
// funding transaction to the predicate that governs its redemption.
// Params is not part of the wire encoding; it is required to decode and
// re-encode the two payout addresses and must be supplied out of band
// by whoever calls FromBytes (both players and the arbiter already know
// which network they're on).
type Contract struct {
	Version uint8

	P1Pubkey, P2Pubkey, ArbiterPubkey [33]byte

	P1PayoutAddress, P2PayoutAddress btcutil.Address

	FundingTx    *wire.MsgTx
	PayoutScript predicate.Script

	// Sigs is indexed by Slot; a nil entry means that slot is unsigned.
	// This is deliberately sparse rather than append-only: a contract
	// can carry a p1 and an arbiter signature with p2's slot empty
	// (spec.md §8 scenario 5), which the strict per-slot state table
	// in §4.G requires be distinguishable from a contract signed only
	// by p1 and p2.
	Sigs [numSlots][]byte

	Params *chaincfg.Params
}

// pubkeyAt returns the pubkey bytes for the given slot.
func (c *Contract) pubkeyAt(slot int) []byte {
	switch slot {
	case SlotP1:
		return c.P1Pubkey[:]
	case SlotP2:
		return c.P2Pubkey[:]
	case SlotArbiter:
		return c.ArbiterPubkey[:]
	default:
		return nil
	}
}
