package escrow

import (
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/wagererr"
)

const opScript = "escrow_script"

// PubKeyLen is the length of a compressed secp256k1 public key.
const PubKeyLen = 33

// MultisigScript builds the exact 2-of-3 escrow redeem script named in
// spec.md §6: OP_2 <p1> <p2> <arb> OP_3 OP_CHECKMULTISIG.
//
// Unlike lnd's 2-of-2 channel funding script (lnwallet.genMultiSigScript),
// which canonically sorts the two pubkeys so either side can derive the
// same script independently of call order, this script is positional:
// pubkey order defines signature-slot order (spec.md §3, §6), so sorting
// would silently scramble which signature authenticates which party.
func MultisigScript(p1, p2, arb [PubKeyLen]byte) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()
	bldr.AddOp(txscript.OP_2)
	bldr.AddData(p1[:])
	bldr.AddData(p2[:])
	bldr.AddData(arb[:])
	bldr.AddOp(txscript.OP_3)
	bldr.AddOp(txscript.OP_CHECKMULTISIG)
	return bldr.Script()
}

// witnessScriptHash wraps redeemScript as a version-0 witness program,
// the same p2wsh construction lnwallet.witnessScriptHash uses for
// channel funding outputs.
func witnessScriptHash(redeemScript []byte) ([]byte, error) {
	bldr := txscript.NewScriptBuilder()
	scriptHash := sha256Sum(redeemScript)
	bldr.AddOp(txscript.OP_0)
	bldr.AddData(scriptHash[:])
	return bldr.Script()
}

// EscrowAddress derives the witness-script-hash address and matching
// pkScript for the 2-of-3 escrow over (p1, p2, arb) in that order.
func EscrowAddress(p1, p2, arb [PubKeyLen]byte, params *chaincfg.Params) (
	redeemScript []byte, pkScript []byte, addr btcutil.Address, err error) {

	redeemScript, err = MultisigScript(p1, p2, arb)
	if err != nil {
		return nil, nil, nil, wagererr.Wrap(wagererr.KindFundingTxMalformed,
			opScript, "building multisig redeem script", err)
	}

	pkScript, err = witnessScriptHash(redeemScript)
	if err != nil {
		return nil, nil, nil, wagererr.Wrap(wagererr.KindFundingTxMalformed,
			opScript, "building witness script hash", err)
	}

	scriptHash := sha256Sum(redeemScript)
	addr, err = btcutil.NewAddressWitnessScriptHash(scriptHash[:], params)
	if err != nil {
		return nil, nil, nil, wagererr.Wrap(wagererr.KindFundingTxMalformed,
			opScript, "deriving escrow address", err)
	}
	return redeemScript, pkScript, addr, nil
}

// SpendWitness builds the witness stack for redeeming the 2-of-3 p2wsh
// escrow output, given exactly two of the three possible signatures in
// escrow-script order (the multisig op requires signatures in the same
// relative order as their corresponding pubkeys in the redeem script).
func SpendWitness(redeemScript []byte, sigs [][]byte) wire.TxWitness {
	witness := make(wire.TxWitness, 0, len(sigs)+2)
	// CHECKMULTISIG's long-standing off-by-one bug consumes one extra
	// stack element; a nil witness item absorbs it, same as
	// lnwallet.spendMultiSig does for the 2-of-2 channel case.
	witness = append(witness, nil)
	for _, sig := range sigs {
		witness = append(witness, sig)
	}
	witness = append(witness, redeemScript)
	return witness
}
