package contract

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/escrow"
	"github.com/btcwager/wagerd/wagererr"
)

const opValidate = "contract_validate"

// Validate verifies the funding-tx shape, the fee output, and every
// signature slot currently populated. It does not itself require any
// particular slot to be populated — callers (the arbiter's
// submit-contract handler, in particular) decide what state a contract
// must be in before acting on it; see State.
func (c *Contract) Validate(arbiterFeeAddress btcutil.Address) error {
	if c.FundingTx == nil {
		return wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
			"contract has no funding transaction")
	}

	_, escrowPkScript, _, err := escrow.EscrowAddress(
		c.P1Pubkey, c.P2Pubkey, c.ArbiterPubkey, c.Params)
	if err != nil {
		return err
	}

	amount, err := findOutput(c.FundingTx, escrowPkScript)
	if err != nil {
		return wagererr.Wrap(wagererr.KindFundingTxMalformed, opValidate,
			"funding tx is missing the escrow output", err)
	}

	feeScript, err := addrScript(arbiterFeeAddress)
	if err != nil {
		return err
	}
	expectedFee := amount / 100
	feeValue, err := findOutput(c.FundingTx, feeScript)
	if err != nil {
		return wagererr.Wrap(wagererr.KindFundingTxMalformed, opValidate,
			"funding tx is missing the arbiter fee output", err)
	}
	if feeValue != expectedFee {
		return wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
			"arbiter fee output value does not equal amount/100")
	}

	cxid := c.Cxid()
	for slot := 0; slot < numSlots; slot++ {
		sig := c.Sigs[slot]
		if sig == nil {
			continue
		}
		if !verifySlot(c.pubkeyAt(slot), cxid[:], sig) {
			return wagererr.New(wagererr.KindSignatureInvalid, opValidate,
				"signature in slot does not verify against that slot's pubkey")
		}
	}

	return nil
}

// findOutput returns the value of the single output whose script-pubkey
// equals script, or an error if none or more than one match.
func findOutput(tx *wire.MsgTx, script []byte) (btcutil.Amount, error) {
	var (
		found bool
		value btcutil.Amount
	)
	for _, out := range tx.TxOut {
		if bytes.Equal(out.PkScript, script) {
			if found {
				return 0, wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
					"more than one output matches the expected script")
			}
			found = true
			value = btcutil.Amount(out.Value)
		}
	}
	if !found {
		return 0, wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
			"no output matches the expected script")
	}
	return value, nil
}

func addrScript(addr btcutil.Address) ([]byte, error) {
	if addr == nil {
		return nil, wagererr.New(wagererr.KindFundingTxMalformed, opValidate,
			"nil arbiter fee address")
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opValidate,
			"building arbiter fee pay-to-address script", err)
	}
	return script, nil
}
