package payout

import (
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/wire"

	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/wagererr"
)

const opBuild = "payout_build"

// New wraps one of escrow.Built's payout templates (tx_p1 or tx_p2) and
// the frozen contract into an unsigned Payout, ready for the winning
// player to attach ScriptSig once the oracle has signed.
func New(c contract.Contract, redemptionTx *wire.MsgTx) (*Payout, error) {
	packet, err := psbt.NewFromUnsignedTx(redemptionTx)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opBuild,
			"wrapping redemption tx as a psbt packet", err)
	}
	return &Payout{
		Version:  Version,
		Contract: c,
		Psbt:     packet,
	}, nil
}
