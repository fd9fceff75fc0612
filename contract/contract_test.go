package contract

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"

	"github.com/btcwager/wagerd/escrow"
)

type keypair struct {
	priv *btcec.PrivateKey
	pub  [33]byte
}

func genKey(t *testing.T) keypair {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	var pub [33]byte
	copy(pub[:], priv.PubKey().SerializeCompressed())
	return keypair{priv: priv, pub: pub}
}

func genAddr(t *testing.T) btcutil.Address {
	t.Helper()
	k := genKey(t)
	pkHash := btcutil.Hash160(k.pub[:])
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("address: %v", err)
	}
	return addr
}

func buildTestContract(t *testing.T) (*Contract, keypair, keypair, keypair, btcutil.Address) {
	t.Helper()

	p1 := genKey(t)
	p2 := genKey(t)
	arb := genKey(t)
	feeAddr := genAddr(t)
	oracle := genKey(t)

	built, err := escrow.Build(escrow.BuildParams{
		P1Pubkey:          p1.pub,
		P2Pubkey:          p2.pub,
		ArbiterPubkey:     arb.pub,
		OraclePubkey:      oracle.pub[:],
		P1PayoutAddress:   genAddr(t),
		P2PayoutAddress:   genAddr(t),
		ArbiterFeeAddress: feeAddr,
		P1ChangeAddress:   genAddr(t),
		P2ChangeAddress:   genAddr(t),
		Amount:            100_000_000,
		P1UTXOs:           []escrow.UTXO{{Value: 60_000_000}},
		P2UTXOs:           []escrow.UTXO{{Value: 60_000_000}},
		Params:            &chaincfg.RegressionNetParams,
	})
	if err != nil {
		t.Fatalf("escrow.Build: %v", err)
	}

	c := &Contract{
		Version:         Version,
		P1Pubkey:        p1.pub,
		P2Pubkey:        p2.pub,
		ArbiterPubkey:   arb.pub,
		P1PayoutAddress: genAddr(t),
		P2PayoutAddress: genAddr(t),
		FundingTx:       built.FundingTx,
		PayoutScript:    built.Predicate,
		Params:          &chaincfg.RegressionNetParams,
	}
	return c, p1, p2, arb, feeAddr
}

func signCxid(t *testing.T, c *Contract, k keypair) []byte {
	t.Helper()
	cxid := c.Cxid()
	sig := ecdsa.Sign(k.priv, cxid[:])
	return sig.Serialize()
}

func TestSignAsRejectsWrongSlot(t *testing.T) {
	c, p1, _, _, _ := buildTestContract(t)
	sig := signCxid(t, c, p1)
	if err := c.SignAs(SlotP2, sig); err == nil {
		t.Fatalf("expected signature for p1 key to be rejected for the p2 slot")
	}
}

func TestStateProgression(t *testing.T) {
	c, p1, p2, arb, _ := buildTestContract(t)

	if got := c.State(); got != StateUnsigned {
		t.Fatalf("state = %v, want Unsigned", got)
	}

	if err := c.SignAs(SlotP1, signCxid(t, c, p1)); err != nil {
		t.Fatalf("SignAs p1: %v", err)
	}
	if got := c.State(); got != StateP1Signed {
		t.Fatalf("state = %v, want P1Signed", got)
	}

	if err := c.SignAs(SlotP2, signCxid(t, c, p2)); err != nil {
		t.Fatalf("SignAs p2: %v", err)
	}
	if got := c.State(); got != StateAccepted {
		t.Fatalf("state = %v, want Accepted", got)
	}

	if err := c.SignAs(SlotArbiter, signCxid(t, c, arb)); err != nil {
		t.Fatalf("SignAs arbiter: %v", err)
	}
	if got := c.State(); got != StateCertified {
		t.Fatalf("state = %v, want Certified", got)
	}
}

// TestInvalidStateMissingPlayerSig mirrors spec scenario 5: an arbiter
// signature present alongside only one valid player signature is
// Invalid, not Certified.
func TestInvalidStateMissingPlayerSig(t *testing.T) {
	c, p1, _, arb, _ := buildTestContract(t)

	if err := c.SignAs(SlotP1, signCxid(t, c, p1)); err != nil {
		t.Fatalf("SignAs p1: %v", err)
	}
	if err := c.SignAs(SlotArbiter, signCxid(t, c, arb)); err != nil {
		t.Fatalf("SignAs arbiter: %v", err)
	}
	if got := c.State(); got != StateInvalid {
		t.Fatalf("state = %v, want Invalid", got)
	}
}

func TestValidateChecksFundingShape(t *testing.T) {
	c, _, _, _, feeAddr := buildTestContract(t)
	if err := c.Validate(feeAddr); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidateRejectsWrongFeeAddress(t *testing.T) {
	c, _, _, _, _ := buildTestContract(t)
	wrongFeeAddr := genAddr(t)
	if err := c.Validate(wrongFeeAddr); err == nil {
		t.Fatalf("expected validation to fail against the wrong fee address")
	}
}

func TestSerializeRoundTrip(t *testing.T) {
	c, p1, p2, arb, _ := buildTestContract(t)
	if err := c.SignAs(SlotP1, signCxid(t, c, p1)); err != nil {
		t.Fatalf("SignAs p1: %v", err)
	}
	if err := c.SignAs(SlotArbiter, signCxid(t, c, arb)); err != nil {
		t.Fatalf("SignAs arbiter: %v", err)
	}
	_ = p2 // left unsigned to exercise the sparse-slot path

	data, err := c.ToBytes()
	if err != nil {
		t.Fatalf("ToBytes: %v", err)
	}
	got, err := FromBytes(data, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("FromBytes: %v", err)
	}

	if got.P1Pubkey != c.P1Pubkey || got.P2Pubkey != c.P2Pubkey || got.ArbiterPubkey != c.ArbiterPubkey {
		t.Fatalf("pubkeys did not round-trip")
	}
	if got.Sigs[SlotP1] == nil || got.Sigs[SlotP2] != nil || got.Sigs[SlotArbiter] == nil {
		t.Fatalf("sparse signature slots did not round-trip: %v", got.Sigs)
	}
	if got.Cxid() != c.Cxid() {
		t.Fatalf("cxid changed across round-trip")
	}
}
