package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// TrustScoreKey generates the cache key for a user's trust score.
// User identifiers are opaque and possibly long, so they are hashed.
func TrustScoreKey(userID string) string {
	hash := sha256.Sum256([]byte(userID))
	return "crowdproof:v1:trust:" + hex.EncodeToString(hash[:])
}
