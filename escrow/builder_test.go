package escrow

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/wire"
)

func fixedPubkey(b byte) [PubKeyLen]byte {
	priv, _ := btcec.NewPrivateKey()
	var out [PubKeyLen]byte
	copy(out[:], priv.PubKey().SerializeCompressed())
	out[0] = b // keep the 0x02/0x03 parity byte range for readability in failures
	return out
}

func testAddress(t *testing.T) btcutil.Address {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	pkHash := btcutil.Hash160(priv.PubKey().SerializeCompressed())
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return addr
}

// TestFundingInvariant is spec scenario 1: escrow output equals the
// stated amount, fee output equals amount/100, and both players
// contribute a change output under these exact numbers.
func TestFundingInvariant(t *testing.T) {
	amount := btcutil.Amount(100_000_000) // 1.0 BTC
	fee := amount / 100                   // 1_000_000
	buyin := (amount + fee + MinerFee) / 2

	utxo := func(value btcutil.Amount, idx uint32) UTXO {
		return UTXO{
			OutPoint: wire.OutPoint{Index: idx},
			Value:    value,
		}
	}

	p1Total := btcutil.Amount(60_000_000)
	p2Total := btcutil.Amount(60_000_000)

	params := BuildParams{
		P1Pubkey:          fixedPubkey(0x02),
		P2Pubkey:          fixedPubkey(0x02),
		ArbiterPubkey:     fixedPubkey(0x02),
		OraclePubkey:      fixedPubkey(0x02)[:],
		P1PayoutAddress:   testAddress(t),
		P2PayoutAddress:   testAddress(t),
		ArbiterFeeAddress: testAddress(t),
		P1ChangeAddress:   testAddress(t),
		P2ChangeAddress:   testAddress(t),
		Amount:            amount,
		P1UTXOs:           []UTXO{utxo(p1Total, 0)},
		P2UTXOs:           []UTXO{utxo(p2Total, 1)},
		Params:            &chaincfg.RegressionNetParams,
	}

	built, err := Build(params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if got := btcutil.Amount(built.FundingTx.TxOut[0].Value); got != amount {
		t.Fatalf("escrow output = %d, want %d", got, amount)
	}
	if got := btcutil.Amount(built.FundingTx.TxOut[1].Value); got != fee {
		t.Fatalf("fee output = %d, want %d", got, fee)
	}
	if len(built.FundingTx.TxOut) != 4 {
		t.Fatalf("expected 4 outputs (escrow, fee, 2 changes), got %d",
			len(built.FundingTx.TxOut))
	}

	var outSum int64
	for _, out := range built.FundingTx.TxOut {
		outSum += out.Value
	}
	inSum := int64(p1Total + p2Total)
	// Each buyin carries half the miner fee, so what must hold exactly
	// is conservation with the miner fee as the only difference.
	if inSum-outSum != int64(MinerFee) {
		// p1Total and p2Total were each selected in full (single UTXO
		// covering the buyin with change), so total in == total out +
		// MinerFee.
		t.Fatalf("input/output sum mismatch: in=%d out=%d (buyin=%d)",
			inSum, outSum, buyin)
	}
}

func TestInsufficientFunds(t *testing.T) {
	amount := btcutil.Amount(100_000_000)
	params := BuildParams{
		P1Pubkey:          fixedPubkey(0x02),
		P2Pubkey:          fixedPubkey(0x02),
		ArbiterPubkey:     fixedPubkey(0x02),
		OraclePubkey:      fixedPubkey(0x02)[:],
		P1PayoutAddress:   testAddress(t),
		P2PayoutAddress:   testAddress(t),
		ArbiterFeeAddress: testAddress(t),
		P1ChangeAddress:   testAddress(t),
		P2ChangeAddress:   testAddress(t),
		Amount:            amount,
		P1UTXOs:           []UTXO{{Value: 1_000}},
		P2UTXOs:           []UTXO{{Value: 60_000_000}},
		Params:            &chaincfg.RegressionNetParams,
	}

	_, err := Build(params)
	if err == nil {
		t.Fatalf("expected InsufficientFunds error")
	}
}

func TestPredicateEmbedsPayoutTxids(t *testing.T) {
	amount := btcutil.Amount(100_000_000)
	params := BuildParams{
		P1Pubkey:          fixedPubkey(0x02),
		P2Pubkey:          fixedPubkey(0x02),
		ArbiterPubkey:     fixedPubkey(0x02),
		OraclePubkey:      fixedPubkey(0x02)[:],
		P1PayoutAddress:   testAddress(t),
		P2PayoutAddress:   testAddress(t),
		ArbiterFeeAddress: testAddress(t),
		P1ChangeAddress:   testAddress(t),
		P2ChangeAddress:   testAddress(t),
		Amount:            amount,
		P1UTXOs:           []UTXO{{Value: 60_000_000}},
		P2UTXOs:           []UTXO{{Value: 60_000_000}},
		Params:            &chaincfg.RegressionNetParams,
	}
	built, err := Build(params)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	// Changing a payout address after construction must change the
	// resulting txid and therefore invalidate a predicate built for the
	// original addresses — this is implicit since Build derives the
	// predicate from the actual constructed templates, never from the
	// caller's addresses directly.
	if built.PayoutP1Tx.TxHash() == built.PayoutP2Tx.TxHash() {
		t.Fatalf("expected distinct txids for the two payout templates")
	}
}
