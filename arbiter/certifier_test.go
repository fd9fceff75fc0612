package arbiter

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/escrow"
)

type keypair struct {
	priv *btcec.PrivateKey
	pub  [33]byte
}

func genKey(t *testing.T) keypair {
	t.Helper()
	priv, err := btcec.NewPrivateKey()
	require.NoError(t, err)
	var pub [33]byte
	copy(pub[:], priv.PubKey().SerializeCompressed())
	return keypair{priv: priv, pub: pub}
}

func genAddr(t *testing.T) btcutil.Address {
	t.Helper()
	k := genKey(t)
	pkHash := btcutil.Hash160(k.pub[:])
	addr, err := btcutil.NewAddressWitnessPubKeyHash(pkHash, &chaincfg.RegressionNetParams)
	require.NoError(t, err)
	return addr
}

func buildAcceptedContract(t *testing.T) (*contract.Contract, keypair, keypair, keypair, btcutil.Address) {
	t.Helper()

	p1 := genKey(t)
	p2 := genKey(t)
	arb := genKey(t)
	oracle := genKey(t)
	feeAddr := genAddr(t)

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
	require.NoError(t, err)

	c := &contract.Contract{
		Version:         contract.Version,
		P1Pubkey:        p1.pub,
		P2Pubkey:        p2.pub,
		ArbiterPubkey:   arb.pub,
		P1PayoutAddress: genAddr(t),
		P2PayoutAddress: genAddr(t),
		FundingTx:       built.FundingTx,
		PayoutScript:    built.Predicate,
		Params:          &chaincfg.RegressionNetParams,
	}

	cxid := c.Cxid()
	p1Sig := ecdsa.Sign(p1.priv, cxid[:])
	require.NoError(t, c.SignAs(contract.SlotP1, p1Sig.Serialize()))
	p2Sig := ecdsa.Sign(p2.priv, cxid[:])
	require.NoError(t, c.SignAs(contract.SlotP2, p2Sig.Serialize()))

	return c, p1, p2, arb, feeAddr
}

func newTestCertifier(t *testing.T, arb keypair, feeAddr btcutil.Address) *Certifier {
	t.Helper()
	cert, err := New(Config{
		PrivKey:              arb.priv,
		FeeAddress:           feeAddr,
		Params:               &chaincfg.RegressionNetParams,
		IdempotenceCacheSize: 64,
		RateLimit:            rate.Inf,
		RateBurst:            1,
	})
	require.NoError(t, err)
	return cert
}

func TestSubmitContractCertifies(t *testing.T) {
	c, _, _, arb, feeAddr := buildAcceptedContract(t)
	cert := newTestCertifier(t, arb, feeAddr)

	data, err := c.ToBytes()
	require.NoError(t, err)

	sigHex, err := cert.SubmitContract(data)
	require.NoError(t, err)
	require.NotEmpty(t, sigHex)

	// Idempotent resubmission must return the exact same signature.
	sigHex2, err := cert.SubmitContract(data)
	require.NoError(t, err)
	require.Equal(t, sigHex, sigHex2)
}

func TestSubmitContractRejectsIncomplete(t *testing.T) {
	p1 := genKey(t)
	p2 := genKey(t)
	arb := genKey(t)
	oracle := genKey(t)
	feeAddr := genAddr(t)

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
	require.NoError(t, err)

	c := &contract.Contract{
		Version:         contract.Version,
		P1Pubkey:        p1.pub,
		P2Pubkey:        p2.pub,
		ArbiterPubkey:   arb.pub,
		P1PayoutAddress: genAddr(t),
		P2PayoutAddress: genAddr(t),
		FundingTx:       built.FundingTx,
		PayoutScript:    built.Predicate,
		Params:          &chaincfg.RegressionNetParams,
	}
	cxid := c.Cxid()
	p1Sig := ecdsa.Sign(p1.priv, cxid[:])
	require.NoError(t, c.SignAs(contract.SlotP1, p1Sig.Serialize()))

	cert := newTestCertifier(t, arb, feeAddr)
	data, err := c.ToBytes()
	require.NoError(t, err)
	_, err = cert.SubmitContract(data)
	require.Error(t, err, "expected ContractIncomplete for a contract missing p2's signature")
}

func TestSubmitContractRejectsWrongArbiter(t *testing.T) {
	c, _, _, _, feeAddr := buildAcceptedContract(t)
	otherArb := genKey(t)
	cert := newTestCertifier(t, otherArb, feeAddr)

	data, err := c.ToBytes()
	require.NoError(t, err)
	_, err = cert.SubmitContract(data)
	require.Error(t, err, "expected rejection when arbiter pubkey slot is not this arbiter's key")
}
