package store

import (
	"encoding/json"
	"time"

	"github.com/crowdproof/crowdproof/internal/cache"
	"github.com/crowdproof/crowdproof/internal/model"
)

// CachedStore wraps a Store with a read-through TTL cache for trust
// scores, the hottest read path (every vote snapshots the voter's
// score). Writes invalidate the cached entry, so the "last update"
// timestamp bump on a trust update is immediately visible.
type CachedStore struct {
	Store
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedStore wraps inner with a trust score cache.
func NewCachedStore(inner Store, c cache.Cache, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store: inner,
		cache: c,
		ttl:   ttl,
	}
}

// GetTrustScore checks the cache before hitting the inner store.
func (s *CachedStore) GetTrustScore(userID string) (*model.TrustScore, error) {
	key := cache.TrustScoreKey(userID)
	if data, found := s.cache.Get(key); found {
		var score model.TrustScore
		if err := json.Unmarshal(data, &score); err == nil {
			return &score, nil
		}
		// Corrupt entry: drop it and fall through to the store.
		_ = s.cache.Delete(key)
	}

	score, err := s.Store.GetTrustScore(userID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(score); err == nil {
		_ = s.cache.Set(key, data, s.ttl)
	}
	return score, nil
}

// PutTrustScore writes through and invalidates the cached entry.
func (s *CachedStore) PutTrustScore(score *model.TrustScore) error {
	if err := s.Store.PutTrustScore(score); err != nil {
		return err
	}
	return s.cache.Delete(cache.TrustScoreKey(score.UserID))
}
