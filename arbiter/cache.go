package arbiter

import (
	"encoding/hex"

	"github.com/lightninglabs/neutrino/cache/lru"
)

// idempotenceCache maps cxid (hex-encoded) to the arbiter signature
// already produced for it, so a duplicate submit-contract call returns
// the same signature instead of re-signing (spec.md §4.F, §5).
type idempotenceCache struct {
	cache *lru.Cache[string, []byte]
}

func newIdempotenceCache(capacity uint64) *idempotenceCache {
	return &idempotenceCache{cache: lru.NewCache[string, []byte](capacity)}
}

func (c *idempotenceCache) get(cxid [32]byte) ([]byte, bool) {
	sig, err := c.cache.Get(hex.EncodeToString(cxid[:]))
	if err != nil {
		return nil, false
	}
	return sig, true
}

func (c *idempotenceCache) put(cxid [32]byte, sig []byte) {
	c.cache.Put(hex.EncodeToString(cxid[:]), sig)
}
