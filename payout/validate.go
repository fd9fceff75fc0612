package payout

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/escrow"
	"github.com/btcwager/wagerd/predicate"
	"github.com/btcwager/wagerd/wagererr"
)

const opValidate = "payout_validate"

// Validate runs the pipeline from spec.md §4.E: validate the embedded
// contract, assert the redemption spends exactly the escrow outpoint,
// assert it pays the expected amount to a permitted address, then
// execute the predicate and require a true verdict.
func (p *Payout) Validate(arbiterFeeAddress btcutil.Address) error {
	if err := p.Contract.Validate(arbiterFeeAddress); err != nil {
		return err
	}
	if p.Psbt == nil || p.Psbt.UnsignedTx == nil {
		return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
			"payout has no redemption transaction")
	}

	_, escrowPkScript, _, err := escrow.EscrowAddress(
		p.Contract.P1Pubkey, p.Contract.P2Pubkey, p.Contract.ArbiterPubkey, p.Contract.Params)
	if err != nil {
		return err
	}

	escrowOutpoint, amount, err := findEscrowOutpoint(&p.Contract, escrowPkScript)
	if err != nil {
		return err
	}

	tx := p.Psbt.UnsignedTx
	if len(tx.TxIn) != 1 || tx.TxIn[0].PreviousOutPoint != escrowOutpoint {
		return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
			"redemption tx does not spend exactly the escrow outpoint")
	}
	if len(tx.TxOut) != 1 {
		return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
			"redemption tx must have exactly one output")
	}

	expectedValue := int64(amount - escrow.MinerFee)
	if tx.TxOut[0].Value != expectedValue {
		return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
			"redemption output value is not amount minus the miner fee")
	}
	if err := assertPermittedPayee(tx.TxOut[0].PkScript, &p.Contract); err != nil {
		return err
	}

	if p.ScriptSig == nil {
		return wagererr.New(wagererr.KindOracleTokenMissing, opValidate,
			"payout has no oracle script-sig")
	}
	valid, err := predicate.Execute(p.Contract.PayoutScript, p.ScriptSig, p)
	if err != nil {
		return err
	}
	if !valid {
		return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
			"predicate did not validate the redemption")
	}
	return nil
}

// findEscrowOutpoint locates the contract's funding-tx output paying
// escrowPkScript and returns the outpoint spending it plus its value.
func findEscrowOutpoint(c *contract.Contract, escrowPkScript []byte) (wire.OutPoint, btcutil.Amount, error) {
	txHash := c.FundingTx.TxHash()
	for i, out := range c.FundingTx.TxOut {
		if bytes.Equal(out.PkScript, escrowPkScript) {
			return wire.OutPoint{Hash: txHash, Index: uint32(i)},
				btcutil.Amount(out.Value), nil
		}
	}
	return wire.OutPoint{}, 0, wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
		"funding tx is missing the escrow output")
}

func assertPermittedPayee(pkScript []byte, c *contract.Contract) error {
	p1Script, err := txscript.PayToAddrScript(c.P1PayoutAddress)
	if err != nil {
		return wagererr.Wrap(wagererr.KindPayoutMalformed, opValidate,
			"building p1 payout script", err)
	}
	p2Script, err := txscript.PayToAddrScript(c.P2PayoutAddress)
	if err != nil {
		return wagererr.Wrap(wagererr.KindPayoutMalformed, opValidate,
			"building p2 payout script", err)
	}
	if bytes.Equal(pkScript, p1Script) || bytes.Equal(pkScript, p2Script) {
		return nil
	}
	return wagererr.New(wagererr.KindPayoutMalformed, opValidate,
		"redemption output does not pay either permitted payout address")
}
