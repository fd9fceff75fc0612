package chainclient

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/btcsuite/btcwallet/wallet/txrules"
	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/btcsuite/btcwallet/wtxmgr"
	"github.com/lightninglabs/neutrino"
	"golang.org/x/sync/errgroup"

	"github.com/btcwager/wagerd/escrow"
	"github.com/btcwager/wagerd/wagererr"
)

// utxoNamespaceKey names the walletdb top-level bucket the wtxmgr store
// was opened against, mirroring how a real wallet process keeps one
// well-known bucket per subsystem.
var utxoNamespaceKey = []byte("wagerd-utxos")

const opChain = "chainclient_neutrino"

// FeeSource returns a sat/vbyte estimate for confTarget, or an error if
// it has no opinion. NeutrinoClient queries every configured source in
// parallel and takes the median of whatever answers, so a source that
// returns an error is skipped rather than skewing the estimate. The
// estimate waits for every source to return, bounded only by ctx.
type FeeSource interface {
	EstimateFee(ctx context.Context, confTarget uint32) (btcutil.Amount, error)
}

// NeutrinoClient realizes Client on top of a light (SPV/compact-filter)
// neutrino.ChainService, with unspent-output bookkeeping delegated to a
// wtxmgr.Store fed by that chain service's rescan notifications.
type NeutrinoClient struct {
	cs         *neutrino.ChainService
	db         walletdb.DB
	store      *wtxmgr.Store
	feeSources []FeeSource
}

// NewNeutrinoClient wraps an already-running chain service and its
// wallet transaction store. db is the walletdb.DB the store was opened
// against; ListUnspent opens a fresh read transaction per call rather
// than holding one open for the client's lifetime.
func NewNeutrinoClient(cs *neutrino.ChainService, db walletdb.DB, store *wtxmgr.Store, feeSources ...FeeSource) *NeutrinoClient {
	return &NeutrinoClient{cs: cs, db: db, store: store, feeSources: feeSources}
}

// ListUnspent scans the wallet tx store for credits paying addr's
// script and have not been spent.
func (n *NeutrinoClient) ListUnspent(ctx context.Context, addr btcutil.Address) ([]escrow.UTXO, error) {
	wantScript, err := txscript.PayToAddrScript(addr)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opChain,
			"building address script", err)
	}

	var out []escrow.UTXO
	err = n.db.View(func(tx walletdb.ReadTx) error {
		ns := tx.ReadBucket(utxoNamespaceKey)
		credits, err := n.store.UnspentOutputs(ns)
		if err != nil {
			return err
		}
		for _, c := range credits {
			if !bytes.Equal(c.PkScript, wantScript) {
				continue
			}
			out = append(out, escrow.UTXO{
				OutPoint: c.OutPoint,
				Value:    c.Amount,
				PkScript: c.PkScript,
			})
		}
		return nil
	}, "list-unspent")
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindInsufficientFunds, opChain,
			"listing unspent outputs", err)
	}
	return out, nil
}

// Broadcast relays tx through the chain service's peer set.
func (n *NeutrinoClient) Broadcast(ctx context.Context, tx *wire.MsgTx) error {
	if err := n.cs.SendTransaction(tx); err != nil {
		return wagererr.Wrap(wagererr.KindFundingTxMalformed, opChain,
			"broadcasting transaction", err)
	}
	return nil
}

// EstimateFee queries every configured FeeSource concurrently and
// returns the median of the sources that answered without error.
func (n *NeutrinoClient) EstimateFee(ctx context.Context, confTarget uint32) (btcutil.Amount, error) {
	if len(n.feeSources) == 0 {
		return btcutil.Amount(txrules.DefaultRelayFeePerKb / 1000), nil
	}

	var (
		mu   sync.Mutex
		fees []btcutil.Amount
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range n.feeSources {
		src := src
		g.Go(func() error {
			fee, err := src.EstimateFee(gctx, confTarget)
			if err != nil {
				// A single source's failure to answer is not fatal;
				// the estimate degrades gracefully to fewer samples.
				return nil
			}
			mu.Lock()
			fees = append(fees, fee)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return 0, wagererr.Wrap(wagererr.KindInsufficientFunds, opChain,
			"estimating fee", err)
	}
	if len(fees) == 0 {
		return 0, wagererr.New(wagererr.KindInsufficientFunds, opChain,
			"no fee source returned an estimate")
	}

	sort.Slice(fees, func(i, j int) bool { return fees[i] < fees[j] })
	return fees[len(fees)/2], nil
}
