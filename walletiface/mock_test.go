package walletiface

import (
	"testing"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/chaincfg"
)

func TestMockWalletSignMessageVerifies(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	w, err := NewMockWallet(priv, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("NewMockWallet: %v", err)
	}

	var digest [32]byte
	digest[0] = 0x42

	sigBytes, err := w.SignMessage(digest, nil)
	if err != nil {
		t.Fatalf("SignMessage: %v", err)
	}
	sig, err := ecdsa.ParseDERSignature(sigBytes)
	if err != nil {
		t.Fatalf("ParseDERSignature: %v", err)
	}
	if !sig.Verify(digest[:], priv.PubKey()) {
		t.Fatalf("signature does not verify")
	}
}

func TestFingerprintStable(t *testing.T) {
	priv, err := btcec.NewPrivateKey()
	if err != nil {
		t.Fatalf("keygen: %v", err)
	}
	w, err := NewMockWallet(priv, &chaincfg.RegressionNetParams)
	if err != nil {
		t.Fatalf("NewMockWallet: %v", err)
	}
	a, err := w.Fingerprint(nil)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	b, err := w.Fingerprint(nil)
	if err != nil {
		t.Fatalf("Fingerprint: %v", err)
	}
	if a != b {
		t.Fatalf("fingerprint is not stable across calls: %s vs %s", a, b)
	}
}
