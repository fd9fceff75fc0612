package walletiface

import (
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/waddrmgr"
	"github.com/btcsuite/btcwallet/walletdb"

	"github.com/btcwager/wagerd/wagererr"
)

const opWaddrmgr = "walletiface_waddrmgr"

// waddrmgrNamespaceKey is the top-level bucket a caller must have used
// when creating/opening the waddrmgr.Manager passed to
// NewWaddrmgrWallet, matching the bucket name rpcserver.go's own wallet
// initialization reserves for its address manager.
var waddrmgrNamespaceKey = []byte("waddrmgr")

// DefaultScope and DefaultAccount pin every key this system derives to
// a single native-segwit account, the same default account scope
// rpcserver.go names with its own `defaultAccount uint32 =
// waddrmgr.DefaultAccountNum` constant. Every player and arbiter wallet
// backed by WaddrmgrWallet shares this one (scope, account) pair; the
// DerivationPath passed to each Wallet method only ever varies the
// branch/index leaf under it.
var (
	DefaultScope   = waddrmgr.KeyScopeBIP0084
	DefaultAccount = waddrmgr.DefaultAccountNum
)

// WaddrmgrWallet realizes Wallet on top of a real btcwallet address
// manager instead of a single bare keypair: every DerivationPath is
// resolved through the manager's scoped key derivation, so a player or
// arbiter operator can back this system with the same encrypted,
// account-scoped keystore a full btcwallet process maintains (mnemonic
// backup, passphrase-locked private keys, crash-safe walletdb storage)
// rather than keeping a raw private key in memory the way MockWallet
// does. The manager must already be open and unlocked; WaddrmgrWallet
// never stores or logs the unlocking passphrase.
type WaddrmgrWallet struct {
	db      walletdb.DB
	manager *waddrmgr.Manager
	scope   waddrmgr.KeyScope
	account uint32
}

// NewWaddrmgrWallet wraps an already-open, already-unlocked manager
// scoped to DefaultScope/DefaultAccount. db must be the same walletdb.DB
// the manager was created against.
func NewWaddrmgrWallet(db walletdb.DB, manager *waddrmgr.Manager) *WaddrmgrWallet {
	return &WaddrmgrWallet{
		db:      db,
		manager: manager,
		scope:   DefaultScope,
		account: DefaultAccount,
	}
}

// toManagerPath turns this package's account-relative DerivationPath
// (no master fingerprint component, per its doc comment) into the
// {branch, index} leaf waddrmgr.DerivationPath expects under this
// wallet's fixed account, defaulting to the external (non-change)
// branch when path names only a single index.
func toManagerPath(account uint32, path DerivationPath) waddrmgr.DerivationPath {
	switch len(path) {
	case 0:
		return waddrmgr.DerivationPath{Account: account, Branch: 0, Index: 0}
	case 1:
		return waddrmgr.DerivationPath{Account: account, Branch: 0, Index: path[0]}
	default:
		return waddrmgr.DerivationPath{Account: account, Branch: path[0], Index: path[1]}
	}
}

// derive resolves path to the manager-tracked address backing it,
// deriving it fresh from the account's extended key rather than
// requiring the address to already exist in the manager's address
// index (the same DeriveFromKeyPath shortcut lnd's own btcwallet signer
// uses to sign for a KeyLocator without first importing an address).
func (w *WaddrmgrWallet) derive(path DerivationPath) (waddrmgr.ManagedPubKeyAddress, error) {
	scoped, err := w.manager.FetchScopedKeyManager(w.scope)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"fetching scoped key manager", err)
	}

	var addr waddrmgr.ManagedAddress
	err = walletdb.View(w.db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(waddrmgrNamespaceKey)
		var derr error
		addr, derr = scoped.DeriveFromKeyPath(ns, toManagerPath(w.account, path))
		return derr
	})
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"deriving key at path", err)
	}

	pubAddr, ok := addr.(waddrmgr.ManagedPubKeyAddress)
	if !ok {
		return nil, wagererr.New(wagererr.KindSignatureInvalid, opWaddrmgr,
			"derived address does not expose a public key")
	}
	return pubAddr, nil
}

func (w *WaddrmgrWallet) SignTx(packet *psbt.Packet, path DerivationPath) (*psbt.Packet, error) {
	addr, err := w.derive(path)
	if err != nil {
		return nil, err
	}
	priv, err := addr.PrivKey()
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"manager locked or private key unavailable", err)
	}

	for i, in := range packet.Inputs {
		if in.WitnessScript == nil {
			continue
		}
		sig, err := signWitnessScript(packet.UnsignedTx, i, in.WitnessScript,
			in.WitnessUtxo.Value, priv)
		if err != nil {
			return nil, err
		}
		packet.Inputs[i].PartialSigs = append(packet.Inputs[i].PartialSigs, &psbt.PartialSig{
			PubKey:    priv.PubKey().SerializeCompressed(),
			Signature: sig,
		})
	}
	return packet, nil
}

func (w *WaddrmgrWallet) SignMessage(digest [32]byte, path DerivationPath) ([]byte, error) {
	addr, err := w.derive(path)
	if err != nil {
		return nil, err
	}
	priv, err := addr.PrivKey()
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"manager locked or private key unavailable", err)
	}
	sig := ecdsa.Sign(priv, digest[:])
	return sig.Serialize(), nil
}

func (w *WaddrmgrWallet) Fingerprint(path DerivationPath) (string, error) {
	addr, err := w.derive(path)
	if err != nil {
		return "", err
	}
	return addr.Address().String(), nil
}

func (w *WaddrmgrWallet) XPubKey(path DerivationPath) (*hdkeychain.ExtendedKey, error) {
	scoped, err := w.manager.FetchScopedKeyManager(w.scope)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"fetching scoped key manager", err)
	}

	var props *waddrmgr.AccountProperties
	err = walletdb.View(w.db, func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(waddrmgrNamespaceKey)
		var derr error
		props, derr = scoped.AccountProperties(ns, w.account)
		return derr
	})
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"fetching account properties", err)
	}
	return props.AccountPubKey, nil
}

// SignWitnessInput satisfies SingleInputSigner the same way MockWallet
// does: one witness signature per call, independent of psbt.
func (w *WaddrmgrWallet) SignWitnessInput(tx *wire.MsgTx, inputIndex int, prevOutScript []byte,
	prevOutValue int64, path DerivationPath) ([]byte, error) {

	addr, err := w.derive(path)
	if err != nil {
		return nil, err
	}
	priv, err := addr.PrivKey()
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"manager locked or private key unavailable", err)
	}
	return signWitnessScript(tx, inputIndex, prevOutScript, prevOutValue, priv)
}

func signWitnessScript(tx *wire.MsgTx, inputIndex int, prevOutScript []byte,
	prevOutValue int64, priv *btcec.PrivateKey) ([]byte, error) {

	fetcher := txscript.NewCannedPrevOutputFetcher(prevOutScript, prevOutValue)
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	hash, err := txscript.CalcWitnessSigHash(
		prevOutScript, sigHashes, txscript.SigHashAll, tx, inputIndex, prevOutValue)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindSignatureInvalid, opWaddrmgr,
			"computing witness sighash", err)
	}
	sig := ecdsa.Sign(priv, hash)
	return append(sig.Serialize(), byte(txscript.SigHashAll)), nil
}
