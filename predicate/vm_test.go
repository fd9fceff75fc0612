package predicate

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

type fakeRedemption struct {
	txid chainhash.Hash
}

func (f fakeRedemption) RedemptionTxID() chainhash.Hash { return f.txid }

func sign(t *testing.T, priv *btcec.PrivateKey, msg []byte) []byte {
	t.Helper()
	sig := ecdsa.Sign(priv, msg)
	return sig.Serialize()
}

// TestTwoOutcomeOracleSignsP1 is spec scenario 3: the oracle signs
// tx_p1's txid, the winner redeems to p1, and the predicate must end
// valid=true.
func TestTwoOutcomeOracleSignsP1(t *testing.T) {
	oraclePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	oraclePub := oraclePriv.PubKey().SerializeCompressed()

	txidP1 := mustHash(0x01)
	txidP2 := mustHash(0x02)
	script := TwoOutcome(oraclePub, txidP1, txidP2)

	oracleSig := sign(t, oraclePriv, txidP1[:])

	valid, err := Execute(script, oracleSig, fakeRedemption{txid: txidP1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if !valid {
		t.Fatalf("expected valid=true when oracle signs the redeemed outcome")
	}
}

// TestTwoOutcomeOracleSignsOtherOutcome is spec scenario 4: the oracle
// signs tx_p2's txid but the submitted payout redeems to p1. The first
// VERIFYSIG must fail (signature doesn't match txid_p1), the ELSE
// branch's VERIFYSIG must also fail (txid_p2 != the actual redemption
// txid, which is txid_p1), and the predicate must end valid=false.
func TestTwoOutcomeOracleSignsOtherOutcome(t *testing.T) {
	oraclePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	oraclePub := oraclePriv.PubKey().SerializeCompressed()

	txidP1 := mustHash(0x01)
	txidP2 := mustHash(0x02)
	script := TwoOutcome(oraclePub, txidP1, txidP2)

	oracleSig := sign(t, oraclePriv, txidP2[:])

	// The submitted payout redeems to p1: RedemptionTxID == txidP1.
	valid, err := Execute(script, oracleSig, fakeRedemption{txid: txidP1})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if valid {
		t.Fatalf("expected valid=false: oracle signed the other outcome")
	}
}

// TestReplayResistance: swapping the redemption transaction for one
// whose txid differs from both embedded outcomes invalidates
// OP_VERIFYSIG on both branches even with a genuine oracle signature.
func TestReplayResistance(t *testing.T) {
	oraclePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	oraclePub := oraclePriv.PubKey().SerializeCompressed()

	txidP1 := mustHash(0x01)
	txidP2 := mustHash(0x02)
	unrelatedTxid := mustHash(0x03)
	script := TwoOutcome(oraclePub, txidP1, txidP2)

	oracleSig := sign(t, oraclePriv, txidP1[:])

	valid, err := Execute(script, oracleSig, fakeRedemption{txid: unrelatedTxid})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if valid {
		t.Fatalf("expected valid=false: redemption tx replayed under a different txid")
	}
}

// TestPredicateDeterminism: repeated execution of the same (payout,
// predicate) yields the same verdict.
func TestPredicateDeterminism(t *testing.T) {
	oraclePriv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	oraclePub := oraclePriv.PubKey().SerializeCompressed()
	txidP1 := mustHash(0x01)
	txidP2 := mustHash(0x02)
	script := TwoOutcome(oraclePub, txidP1, txidP2)
	oracleSig := sign(t, oraclePriv, txidP1[:])

	var results []bool
	for i := 0; i < 5; i++ {
		valid, err := Execute(script, oracleSig, fakeRedemption{txid: txidP1})
		if err != nil {
			t.Fatalf("execute: %v", err)
		}
		results = append(results, valid)
	}
	for _, r := range results {
		if r != results[0] {
			t.Fatalf("non-deterministic verdicts: %v", results)
		}
	}
}

func TestStackUnderflow(t *testing.T) {
	script := Script{Drop{}, Validate{}}
	_, err := Execute(script, nil, fakeRedemption{})
	if err == nil {
		t.Fatalf("expected stack underflow error")
	}
}
