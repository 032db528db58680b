package crypto

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gocache "github.com/patrickmn/go-cache"
)

const (
	DefaultRecoveryTTL     = 10 * time.Minute
	defaultCleanupInterval = 15 * time.Minute
)

/*
RecoveryCache memoizes signer recovery. Recovery is a pure function of the
digest and the signature so cached results never go stale, the TTL only
bounds memory.
*/
type RecoveryCache struct {
	cache *gocache.Cache
}

func NewRecoveryCache(ttl time.Duration) *RecoveryCache {
	if ttl <= 0 {
		ttl = DefaultRecoveryTTL
	}
	return &RecoveryCache{cache: gocache.New(ttl, defaultCleanupInterval)}
}

// Recover returns cached signer address or recovers it and caches the result.
// Failed recoveries are not cached.
func (c *RecoveryCache) Recover(digest common.Hash, sig []byte) (common.Address, error) {
	if c == nil {
		return Recover(digest, sig)
	}
	key := digest.Hex() + hexutil.Encode(sig)
	if v, found := c.cache.Get(key); found {
		return v.(common.Address), nil
	}
	addr, err := Recover(digest, sig)
	if err != nil {
		return common.Address{}, err
	}
	c.cache.SetDefault(key, addr)
	return addr, nil
}

func (c *RecoveryCache) Len() int {
	return c.cache.ItemCount()
}
