// Package arbiter implements the long-lived certification service:
// validating submitted contracts and payouts and producing the
// arbiter's own signature once, and only once, every rule in the
// contract and predicate is satisfied.
package arbiter

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/ecdsa"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/btcutil/psbt"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/lightningnetwork/lnd/clock"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/btcwager/wagerd/contract"
	"github.com/btcwager/wagerd/escrow"
	"github.com/btcwager/wagerd/payout"
	"github.com/btcwager/wagerd/wagererr"
)

const opCertify = "arbiter_certify"

// Config supplies everything the Certifier needs to validate
// submissions and sign on the arbiter's behalf. PrivKey never leaves
// this process: it is read only inside SubmitContract's signing step and
// signPayout, and the resulting signature, never the key, is what
// callers see.
type Config struct {
	PrivKey    *btcec.PrivateKey
	FeeAddress btcutil.Address
	Params     *chaincfg.Params

	// IdempotenceCacheSize bounds the recently-certified cxid -> sig
	// cache (spec.md §5: a bounded LRU is sufficient for idempotence).
	IdempotenceCacheSize uint64

	// RateLimit and RateBurst gate signing calls to mitigate
	// denial-of-service against the arbiter's key (spec.md §5).
	RateLimit rate.Limit
	RateBurst int

	Clock clock.Clock

	// DurableStorePath, if non-empty, backs the in-memory idempotence
	// caches with an on-disk kvdb database so a restarted arbiter
	// cannot be tricked into re-signing a cxid it already certified.
	// Left empty, the arbiter relies solely on the bounded in-memory
	// LRU spec.md §5 calls sufficient.
	DurableStorePath string

	// AuditLog, if set, receives one record per certification
	// decision. Writes are queued and drained by a background
	// goroutine so a slow disk never adds latency to the signing
	// path itself.
	AuditLog *AuditLog
}

// Certifier is the arbiter's certification pipeline: submit-contract
// and submit-payout entry points, serialized per cxid so concurrent
// duplicate submissions against non-deterministic ECDSA never produce
// two different accepted signatures for the same contract.
type Certifier struct {
	cfg Config

	pubkeyBytes [33]byte

	contractSigs  *idempotenceCache
	payoutResults *idempotenceCache
	durable       *durableStore
	auditQueue    *auditQueue

	inflight singleflight.Group
	limiter  *rate.Limiter

	metrics *metrics
}

// New constructs a Certifier bound to a single arbiter keypair. If
// cfg.DurableStorePath is set, it opens (or creates) the backing kvdb
// database; callers should Close the returned Certifier on shutdown.
func New(cfg Config) (*Certifier, error) {
	if cfg.Clock == nil {
		cfg.Clock = clock.NewDefaultClock()
	}
	var pubkeyBytes [33]byte
	copy(pubkeyBytes[:], cfg.PrivKey.PubKey().SerializeCompressed())

	var durable *durableStore
	if cfg.DurableStorePath != "" {
		var err error
		durable, err = openDurableStore(cfg.DurableStorePath)
		if err != nil {
			return nil, err
		}
	}

	var aq *auditQueue
	if cfg.AuditLog != nil {
		aq = newAuditQueue(cfg.AuditLog)
		aq.Start()
	}

	return &Certifier{
		cfg:           cfg,
		pubkeyBytes:   pubkeyBytes,
		contractSigs:  newIdempotenceCache(cfg.IdempotenceCacheSize),
		payoutResults: newIdempotenceCache(cfg.IdempotenceCacheSize),
		durable:       durable,
		auditQueue:    aq,
		limiter:       rate.NewLimiter(cfg.RateLimit, cfg.RateBurst),
		metrics:       newMetrics(),
	}, nil
}

// Metrics returns the certifier's Prometheus collectors, for a caller
// to register with whatever registry backs its /metrics endpoint.
func (c *Certifier) Metrics() []prometheus.Collector {
	return c.metrics.Collectors()
}

// Close releases the Certifier's durable storage handle and stops its
// background audit-log writer, if either was configured.
func (c *Certifier) Close() error {
	if c.auditQueue != nil {
		c.auditQueue.Stop()
	}
	if c.durable != nil {
		return c.durable.Close()
	}
	return nil
}

// SubmitContract validates a serialized contract, already carrying both
// player signatures, and returns the arbiter's own signature over cxid.
// Submitting the same contract twice returns the same signature without
// re-signing.
func (c *Certifier) SubmitContract(contractBytes []byte) (sigHex string, err error) {
	if !c.limiter.Allow() {
		c.metrics.rateLimited.Inc()
		return "", wagererr.New(wagererr.KindScriptLimitExceeded, opCertify,
			"arbiter signing is rate-limited")
	}

	ct, err := contract.FromBytes(contractBytes, c.cfg.Params)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(ct.ArbiterPubkey[:], c.pubkeyBytes[:]) {
		return "", wagererr.New(wagererr.KindSignatureSlotMismatch, opCertify,
			"contract's arbiter pubkey slot is not this arbiter's own key")
	}

	cxid := ct.Cxid()
	key := hex.EncodeToString(cxid[:])

	result, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		if sig, ok := c.contractSigs.get(cxid); ok {
			c.metrics.idempotentHits.Inc()
			return hex.EncodeToString(sig), nil
		}
		if c.durable != nil {
			if sig, ok := c.durable.get(contractSigBucket, cxid); ok {
				c.contractSigs.put(cxid, sig)
				c.metrics.idempotentHits.Inc()
				return hex.EncodeToString(sig), nil
			}
		}

		if ct.State() != contract.StateAccepted {
			return "", wagererr.New(wagererr.KindContractIncomplete, opCertify,
				"contract does not yet carry both valid player signatures")
		}
		if err := ct.Validate(c.cfg.FeeAddress); err != nil {
			return "", err
		}

		sig := ecdsa.Sign(c.cfg.PrivKey, cxid[:])
		der := sig.Serialize()
		c.contractSigs.put(cxid, der)
		if c.durable != nil {
			if err := c.durable.put(contractSigBucket, cxid, der); err != nil {
				return "", err
			}
		}
		c.metrics.contractsCertified.Inc()
		return hex.EncodeToString(der), nil
	})
	if c.auditQueue != nil {
		c.auditQueue.Enqueue(cxid, "submit-contract", err == nil, detailOf(err))
	}
	if err != nil {
		c.metrics.contractsRejected.Inc()
		return "", err
	}
	return result.(string), nil
}

// SubmitPayout validates a serialized payout whose oracle script-sig is
// already attached, and returns the updated psbt carrying the
// arbiter's witness-level partial signature. It never broadcasts;
// broadcast is the winning player's responsibility.
func (c *Certifier) SubmitPayout(payoutBytes []byte) (psbtHex string, err error) {
	if !c.limiter.Allow() {
		c.metrics.rateLimited.Inc()
		return "", wagererr.New(wagererr.KindScriptLimitExceeded, opCertify,
			"arbiter signing is rate-limited")
	}

	p, err := payout.FromBytes(payoutBytes, c.cfg.Params)
	if err != nil {
		return "", err
	}
	if !bytes.Equal(p.Contract.ArbiterPubkey[:], c.pubkeyBytes[:]) {
		return "", wagererr.New(wagererr.KindSignatureSlotMismatch, opCertify,
			"payout's contract arbiter pubkey slot is not this arbiter's own key")
	}

	cxid := p.Contract.Cxid()
	txid := p.RedemptionTxID()
	key := fmt.Sprintf("%s:%s", hex.EncodeToString(cxid[:]), txid.String())
	// Certified psbts are cached per (cxid, redemption txid), the same
	// pair the in-flight key names.
	resultKey := sha256.Sum256([]byte(key))

	result, err, _ := c.inflight.Do(key, func() (interface{}, error) {
		if cached, ok := c.payoutResults.get(resultKey); ok {
			c.metrics.idempotentHits.Inc()
			return hex.EncodeToString(cached), nil
		}
		if c.durable != nil {
			if cached, ok := c.durable.get(payoutResultBucket, resultKey); ok {
				c.payoutResults.put(resultKey, cached)
				c.metrics.idempotentHits.Inc()
				return hex.EncodeToString(cached), nil
			}
		}

		if err := p.Validate(c.cfg.FeeAddress); err != nil {
			return "", err
		}

		updated, err := c.signPayout(p)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := updated.Serialize(&buf); err != nil {
			return "", wagererr.Wrap(wagererr.KindPayoutMalformed, opCertify,
				"serializing certified psbt", err)
		}
		c.payoutResults.put(resultKey, buf.Bytes())
		if c.durable != nil {
			if err := c.durable.put(payoutResultBucket, resultKey, buf.Bytes()); err != nil {
				return "", err
			}
		}
		c.metrics.payoutsCertified.Inc()
		return hex.EncodeToString(buf.Bytes()), nil
	})
	if c.auditQueue != nil {
		c.auditQueue.Enqueue([32]byte(cxid), "submit-payout", err == nil, detailOf(err))
	}
	if err != nil {
		c.metrics.payoutsRejected.Inc()
		return "", err
	}
	return result.(string), nil
}

func detailOf(err error) string {
	if err == nil {
		return "ok"
	}
	return err.Error()
}

// signPayout computes the arbiter's witness-level multisig signature
// over the redemption tx's single input and attaches it as a PSBT
// partial signature, the same shape the escrow script will later
// assemble with escrow.SpendWitness.
func (c *Certifier) signPayout(p *payout.Payout) (*psbt.Packet, error) {
	redeemScript, err := escrow.MultisigScript(
		p.Contract.P1Pubkey, p.Contract.P2Pubkey, p.Contract.ArbiterPubkey)
	if err != nil {
		return nil, err
	}

	escrowValue, err := escrowOutputValue(&p.Contract)
	if err != nil {
		return nil, err
	}

	tx := p.Psbt.UnsignedTx
	fetcher := txscript.NewCannedPrevOutputFetcher(nil, int64(escrowValue))
	sigHashes := txscript.NewTxSigHashes(tx, fetcher)
	hash, err := txscript.CalcWitnessSigHash(
		redeemScript, sigHashes, txscript.SigHashAll, tx, 0, int64(escrowValue))
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindPayoutMalformed, opCertify,
			"computing witness sighash", err)
	}

	sig := ecdsa.Sign(c.cfg.PrivKey, hash)
	der := append(sig.Serialize(), byte(txscript.SigHashAll))

	if len(p.Psbt.Inputs) == 0 {
		return nil, wagererr.New(wagererr.KindPayoutMalformed, opCertify,
			"psbt has no inputs to attach a partial signature to")
	}
	p.Psbt.Inputs[0].PartialSigs = append(p.Psbt.Inputs[0].PartialSigs, &psbt.PartialSig{
		PubKey:    append([]byte(nil), c.pubkeyBytes[:]...),
		Signature: der,
	})
	p.Psbt.Inputs[0].WitnessScript = redeemScript

	return p.Psbt, nil
}

func escrowOutputValue(ct *contract.Contract) (btcutil.Amount, error) {
	_, pkScript, _, err := escrow.EscrowAddress(
		ct.P1Pubkey, ct.P2Pubkey, ct.ArbiterPubkey, ct.Params)
	if err != nil {
		return 0, err
	}
	for _, out := range ct.FundingTx.TxOut {
		if bytes.Equal(out.PkScript, pkScript) {
			return btcutil.Amount(out.Value), nil
		}
	}
	return 0, wagererr.New(wagererr.KindFundingTxMalformed, opCertify,
		"funding tx is missing the escrow output")
}
