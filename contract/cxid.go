package contract

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"

	"github.com/btcwager/wagerd/predicate"
	"github.com/btcwager/wagerd/wagererr"
)

// Cxid returns SHA-256 of the canonical predicate encoding. It is
// stable for the lifetime of the object: nothing that mutates a
// Contract (SignAs) touches PayoutScript.
func (c *Contract) Cxid() [32]byte {
	return sha256.Sum256(predicate.Encode(c.PayoutScript))
}

// SignAs appends a signature to the given slot. It rejects the
// signature outright if it does not verify against that slot's pubkey
// over Cxid, so an invalid signature can never be recorded.
func (c *Contract) SignAs(slot int, sig []byte) error {
	if slot < 0 || slot >= numSlots {
		return wagererr.New(wagererr.KindSignatureSlotMismatch, opContract,
			"signature slot out of range")
	}
	cxid := c.Cxid()
	if !verifySlot(c.pubkeyAt(slot), cxid[:], sig) {
		return wagererr.New(wagererr.KindSignatureInvalid, opContract,
			"signature does not verify against slot pubkey over cxid")
	}
	c.Sigs[slot] = append([]byte(nil), sig...)
	return nil
}

func verifySlot(pubkeyBytes, msg, sigBytes []byte) bool {
	pubkey, err := btcec.ParsePubKey(pubkeyBytes)
	if err != nil {
		return false
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		return false
	}
	return sig.Verify(msg, pubkey)
}
