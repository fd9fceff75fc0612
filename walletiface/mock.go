package walletiface

import (
	"crypto/sha256"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/tv42/zbase32"

	"github.com/btcwager/wagerd/wagererr"
)

const opWallet = "walletiface_mock"

// MockWallet is a single-keypair stand-in for a real HD wallet, used in
// tests and in the player-facing tooling's dry-run mode. Every
// DerivationPath is ignored; MockWallet always signs with the one key
// it was built from.
type MockWallet struct {
	priv   *btcec.PrivateKey
	xpub   *hdkeychain.ExtendedKey
	params *chaincfg.Params
}

// NewMockWallet builds a MockWallet around a single keypair and a
// zero-depth extended key seeded from it, so Fingerprint/XPubKey still
// return real BIP32 values rather than placeholders.
func NewMockWallet(priv *btcec.PrivateKey, params *chaincfg.Params) (*MockWallet, error) {
	seed := sha256.Sum256(priv.Serialize())
	master, err := hdkeychain.NewMaster(seed[:], params)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWallet,
			"deriving master extended key", err)
	}
	xpub, err := master.Neuter()
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWallet,
			"neutering master extended key", err)
	}
	return &MockWallet{priv: priv, xpub: xpub, params: params}, nil
}

func (w *MockWallet) SignTx(packet *psbt.Packet, _ DerivationPath) (*psbt.Packet, error) {
	for i, in := range packet.Inputs {
		if in.WitnessScript == nil {
			continue
		}
		sig, err := w.SignWitnessInput(packet.UnsignedTx, i, in.WitnessScript,
			in.WitnessUtxo.Value, nil)
		if err != nil {
			return nil, err
		}
		packet.Inputs[i].PartialSigs = append(packet.Inputs[i].PartialSigs, &psbt.PartialSig{
			PubKey:    w.priv.PubKey().SerializeCompressed(),
			Signature: sig,
		})
	}
	return packet, nil
}

func (w *MockWallet) SignMessage(digest [32]byte, _ DerivationPath) ([]byte, error) {
	sig := ecdsa.Sign(w.priv, digest[:])
	return sig.Serialize(), nil
}

func (w *MockWallet) Fingerprint(_ DerivationPath) (string, error) {
	pub, err := w.xpub.ECPubKey()
	if err != nil {
		return "", wagererr.Wrap(wagererr.KindSignatureInvalid, opWallet,
			"deriving fingerprint pubkey", err)
	}
	sum := sha256.Sum256(pub.SerializeCompressed())
	return zbase32.EncodeToString(sum[:8]), nil
}

func (w *MockWallet) XPubKey(_ DerivationPath) (*hdkeychain.ExtendedKey, error) {
	return w.xpub, nil
}

func (w *MockWallet) SignWitnessInput(tx *wire.MsgTx, inputIndex int, prevOutScript []byte,
	prevOutValue int64, _ DerivationPath) ([]byte, error) {

	fetcher := txscript.NewCannedPrevOutputFetcher(prevOutScript, prevOutValue)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	hash, err := txscript.CalcWitnessSigHash(
		prevOutScript, sigHashes, txscript.SigHashAll, tx, inputIndex, prevOutValue)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWallet,
			"computing witness sighash", err)
	}
	sig := ecdsa.Sign(w.priv, hash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}
