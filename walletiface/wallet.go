// Package walletiface defines the capability-set wallet interface
// spec.md §9 describes: a single trait exposing sign_tx, sign_message,
// fingerprint and xpubkey, implemented polymorphically by distinct
// player and arbiter wallets. The core never branches on which
// implementation it holds.
package walletiface

import (
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"
)

// DerivationPath is a BIP32 path, account-relative (no master
// fingerprint component — the wallet that owns the key knows its own
// fingerprint).
type DerivationPath []uint32

// Wallet is the capability set every signer — player or arbiter —
// implements. The core never needs to know whether a given Wallet is
// backed by a hot key, an HSM, or a hardware device; it only calls
// these four operations.
type Wallet interface {
	// SignTx adds this wallet's signature(s) to packet's applicable
	// inputs in place and returns it.
	SignTx(packet *psbt.Packet, path DerivationPath) (*psbt.Packet, error)

	// SignMessage signs an arbitrary digest (e.g. a cxid) and returns a
	// DER-encoded ECDSA signature.
	SignMessage(digest [32]byte, path DerivationPath) ([]byte, error)

	// Fingerprint returns a short, human-shareable identifier for the
	// wallet's extended public key, used for out-of-band verification
	// between players before trusting a pubkey over the exchange
	// collaborator.
	Fingerprint(path DerivationPath) (string, error)

	// XPubKey returns the extended public key at path, letting a
	// counterparty derive the same pubkey(s) this wallet will use.
	XPubKey(path DerivationPath) (*hdkeychain.ExtendedKey, error)
}

// SingleInputSigner is implemented by wallets that only ever need to
// produce one witness-level signature per call (every wallet in this
// system: players sign their own funding-tx inputs one at a time, the
// arbiter signs the one escrow input of a redemption). Kept distinct
// from Wallet so a mock can satisfy it without pulling in psbt.
type SingleInputSigner interface {
	SignWitnessInput(tx *wire.MsgTx, inputIndex int, prevOutScript []byte,
		prevOutValue int64, path DerivationPath) ([]byte, error)
}
