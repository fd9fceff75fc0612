package payout

import (
	"bytes"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"

	"github.com/btcwager/wagerd/wagererr"
)

const opAddress = "payout_address"

// Address returns the intended payee by inspecting the redemption tx's
// single output against the contract's two permitted payout addresses.
func (p *Payout) Address() (btcutil.Address, error) {
	if p.Psbt == nil || p.Psbt.UnsignedTx == nil || len(p.Psbt.UnsignedTx.TxOut) != 1 {
		return nil, wagererr.New(wagererr.KindPayoutMalformed, opAddress,
			"payout has no single-output redemption transaction")
	}
	pkScript := p.Psbt.UnsignedTx.TxOut[0].PkScript

	p1Script, err := txscript.PayToAddrScript(p.Contract.P1PayoutAddress)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opAddress,
			"building p1 payout script", err)
	}
	if bytes.Equal(pkScript, p1Script) {
		return p.Contract.P1PayoutAddress, nil
	}

	p2Script, err := txscript.PayToAddrScript(p.Contract.P2PayoutAddress)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opAddress,
			"building p2 payout script", err)
	}
	if bytes.Equal(pkScript, p2Script) {
		return p.Contract.P2PayoutAddress, nil
	}

	return nil, wagererr.New(wagererr.KindPayoutMalformed, opAddress,
		"redemption output does not pay either permitted payout address")
}
