package arbiter

import (
	"encoding/hex"

	"github.com/btcsuite/btcwallet/walletdb"
	"github.com/lightningnetwork/lnd/kvdb"

	"github.com/btcwager/wagerd/wagererr"
)

const opPersist = "arbiter_persist"

var (
	contractSigBucket  = []byte("contract-sigs")
	payoutResultBucket = []byte("payout-results")
)

// durableStore backs the in-memory idempotence caches with an on-disk
// kvdb database, so a restarted arbiter does not re-sign (and is not
// tricked into re-signing) a cxid it already certified before the
// restart. The in-memory LRU remains the hot path; this is only
// consulted on a cache miss and written through on every new
// certification.
type durableStore struct {
	db walletdb.DB
}

// openDurableStore opens (creating if absent) a bolt-backed kvdb
// database at path with the two top-level buckets this package needs.
func openDurableStore(path string) (*durableStore, error) {
	db, err := kvdb.Create(kvdb.BoltBackendName, path, true)
	if err != nil {
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opPersist,
			"opening durable idempotence store", err)
	}

	err = walletdb.Update(db, func(tx walletdb.ReadWriteTx) error {
		if _, err := tx.CreateTopLevelBucket(contractSigBucket); err != nil {
			return err
		}
		_, err := tx.CreateTopLevelBucket(payoutResultBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, wagererr.Wrap(wagererr.KindFundingTxMalformed, opPersist,
			"initializing durable idempotence buckets", err)
	}
	return &durableStore{db: db}, nil
}

func (s *durableStore) get(bucket []byte, cxid [32]byte) ([]byte, bool) {
	var out []byte
	_ = walletdb.View(s.db, func(tx walletdb.ReadTx) error {
		b := tx.ReadBucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(hex.EncodeToString(cxid[:]))); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	return out, out != nil
}

func (s *durableStore) put(bucket []byte, cxid [32]byte, value []byte) error {
	err := walletdb.Update(s.db, func(tx walletdb.ReadWriteTx) error {
		b := tx.ReadWriteBucket(bucket)
		if b == nil {
			var err error
			b, err = tx.CreateTopLevelBucket(bucket)
			if err != nil {
				return err
			}
		}
		return b.Put([]byte(hex.EncodeToString(cxid[:])), value)
	})
	if err != nil {
		return wagererr.Wrap(wagererr.KindFundingTxMalformed, opPersist,
			"persisting idempotence record", err)
	}
	return nil
}

func (s *durableStore) Close() error {
	return s.db.Close()
}
