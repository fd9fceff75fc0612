package escrow

import (
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"

	"github.com/btcwager/wagerd/predicate"
	"github.com/btcwager/wagerd/wagererr"
)

const opBuild = "escrow_build"

// MinerFee is the flat fee (in satoshis) charged against the escrow
// amount when building the redemption transaction, per spec.md §3/§8.
const MinerFee btcutil.Amount = 10_000

// UTXO is a single unspent output posted by a player as funding-tx
// input material, mirroring what a chain-access wrapper's UTXO listing
// call returns (spec.md §6).
type UTXO struct {
	OutPoint wire.OutPoint
	Value    btcutil.Amount
	PkScript []byte
}

// BuildParams is everything the escrow builder needs to construct a
// funding transaction and the two payout templates. Pubkey order is
// significant throughout (see MultisigScript).
type BuildParams struct {
	P1Pubkey, P2Pubkey, ArbiterPubkey [PubKeyLen]byte

	// OraclePubkey authenticates the oracle's outcome token inside the
	// generated predicate (see predicate.TwoOutcome's doc comment).
	OraclePubkey []byte

	P1PayoutAddress, P2PayoutAddress btcutil.Address
	ArbiterFeeAddress                btcutil.Address
	P1ChangeAddress, P2ChangeAddress btcutil.Address

	Amount btcutil.Amount

	P1UTXOs, P2UTXOs []UTXO

	Params *chaincfg.Params
}

// Built is the output of Build: the funding transaction, the two
// unsigned payout-transaction templates whose txids are baked into the
// predicate, and the predicate itself.
type Built struct {
	RedeemScript []byte
	EscrowPkScript []byte
	EscrowAddress  btcutil.Address

	FundingTx *wire.MsgTx
	// EscrowOutputIndex is the index of FundingTx's output paying the
	// 2-of-3 escrow address.
	EscrowOutputIndex uint32

	PayoutP1Tx *wire.MsgTx
	PayoutP2Tx *wire.MsgTx

	Predicate predicate.Script
}

// Build constructs the funding transaction, the two payout templates,
// and the predicate script binding them together, per spec.md §4.C.
//
// Inputs are drawn greedily from each player's posted UTXO list until
// that player's half of (amount + arbiter fee + miner fee) is covered;
// a shortfall on either side fails with InsufficientFunds.
func Build(p BuildParams) (*Built, error) {
	fee := p.Amount / 100
	buyin := (p.Amount + fee + MinerFee) / 2

	p1Inputs, p1Total, err := selectUTXOs(p.P1UTXOs, buyin)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindInsufficientFunds, opBuild,
			"player 1 could not cover buyin", err)
	}
	p2Inputs, p2Total, err := selectUTXOs(p.P2UTXOs, buyin)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindInsufficientFunds, opBuild,
			"player 2 could not cover buyin", err)
	}

	redeemScript, pkScript, escrowAddr, err := EscrowAddress(
		p.P1Pubkey, p.P2Pubkey, p.ArbiterPubkey, p.Params)
	if err != nil {
		return nil, err
	}

	fundingTx := wire.NewMsgTx(wire.TxVersion)
	for _, in := range p1Inputs {
		fundingTx.AddTxIn(wire.NewTxIn(&in.OutPoint, nil, nil))
	}
	for _, in := range p2Inputs {
		fundingTx.AddTxIn(wire.NewTxIn(&in.OutPoint, nil, nil))
	}

	fundingTx.AddTxOut(wire.NewTxOut(int64(p.Amount), pkScript))
	escrowIdx := uint32(0)

	feeScript, err := addrPkScript(p.ArbiterFeeAddress)
	if err != nil {
		return nil, err
	}
	fundingTx.AddTxOut(wire.NewTxOut(int64(fee), feeScript))

	if err := addChangeOutput(fundingTx, p.P2ChangeAddress, p2Total-buyin); err != nil {
		return nil, err
	}
	if err := addChangeOutput(fundingTx, p.P1ChangeAddress, p1Total-buyin); err != nil {
		return nil, err
	}

	escrowOutPoint := wire.OutPoint{
		Hash:  fundingTx.TxHash(),
		Index: escrowIdx,
	}

	payoutP1Tx, err := buildPayoutTemplate(escrowOutPoint, p.Amount, p.P1PayoutAddress)
	if err != nil {
		return nil, err
	}
	payoutP2Tx, err := buildPayoutTemplate(escrowOutPoint, p.Amount, p.P2PayoutAddress)
	if err != nil {
		return nil, err
	}

	script := predicate.TwoOutcome(p.OraclePubkey, payoutP1Tx.TxHash(), payoutP2Tx.TxHash())

	return &Built{
		RedeemScript:      redeemScript,
		EscrowPkScript:    pkScript,
		EscrowAddress:     escrowAddr,
		FundingTx:         fundingTx,
		EscrowOutputIndex: escrowIdx,
		PayoutP1Tx:        payoutP1Tx,
		PayoutP2Tx:        payoutP2Tx,
		Predicate:         script,
	}, nil
}

func buildPayoutTemplate(escrowOutPoint wire.OutPoint, amount btcutil.Amount,
	payoutAddr btcutil.Address) (*wire.MsgTx, error) {

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(wire.NewTxIn(&escrowOutPoint, nil, nil))

	pkScript, err := addrPkScript(payoutAddr)
	if err != nil {
		return nil, err
	}
	value := int64(amount - MinerFee)
	if txrules.IsDustAmount(btcutil.Amount(value), len(pkScript), txrules.DefaultRelayFeePerKb) {
		return nil, wagererr.New(wagererr.KindPayoutMalformed, opBuild,
			"payout output value is below the dust threshold")
	}
	tx.AddTxOut(wire.NewTxOut(value, pkScript))
	return tx, nil
}

func addChangeOutput(tx *wire.MsgTx, addr btcutil.Address, value btcutil.Amount) error {
	if value <= 0 {
		return nil
	}
	pkScript, err := addrPkScript(addr)
	if err != nil {
		return err
	}
	tx.AddTxOut(wire.NewTxOut(int64(value), pkScript))
	return nil
}

func addrPkScript(addr btcutil.Address) ([]byte, error) {
	if addr == nil {
		return nil, wagererr.New(wagererr.KindFundingTxMalformed, opBuild,
			"nil payout/change/fee address")
	}
	script, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opBuild,
			"building pay-to-address script", err)
	}
	return script, nil
}

// selectUTXOs greedily accumulates UTXOs (in posted order) until target
// is covered, per spec.md §4.C's "drawn greedily" wording.
func selectUTXOs(utxos []UTXO, target btcutil.Amount) ([]UTXO, btcutil.Amount, error) {
	var (
		selected []UTXO
		total    btcutil.Amount
	)
	for _, u := range utxos {
		if total >= target {
			break
		}
		selected = append(selected, u)
		total += u.Value
	}
	if total < target {
		return nil, 0, wagererr.New(wagererr.KindInsufficientFunds, opBuild,
			"posted UTXOs do not cover the required buyin")
	}
	return selected, total, nil
}
