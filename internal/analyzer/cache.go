package analyzer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/mmynk/onecount/internal/models"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores raw analysis results.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// CacheKeyPrefix namespaces analysis results in a shared cache.
const CacheKeyPrefix = "onecount:receipt:"

// CacheKey returns the cache key for an image.
func CacheKey(image []byte) string {
	sum := sha256.Sum256(image)
	return CacheKeyPrefix + hex.EncodeToString(sum[:])
}

// CachingAnalyzer serves repeated images from a cache.
// Cache errors are logged and never fail an analysis.
type CachingAnalyzer struct {
	next   Analyzer
	cache  Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCachingAnalyzer wraps next with cache. A ttl of 0 means no expiry.
func NewCachingAnalyzer(next Analyzer, cache Cache, ttl time.Duration, logger *slog.Logger) *CachingAnalyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &CachingAnalyzer{next: next, cache: cache, ttl: ttl, logger: logger}
}

func (c *CachingAnalyzer) Analyze(ctx context.Context, image []byte) (*models.ParsedReceipt, error) {
	if err := CheckImageSize(image); err != nil {
		return nil, err
	}

	key := CacheKey(image)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var receipt models.ParsedReceipt
		if err := json.Unmarshal(data, &receipt); err == nil {
			c.logger.Debug("analysis cache hit", "key", key)
			return &receipt, nil
		}
		c.logger.Warn("discarding corrupt cache entry", "key", key)
	} else if !errors.Is(err, ErrCacheMiss) {
		c.logger.Warn("analysis cache read failed", "error", err)
	}

	receipt, err := c.next.Analyze(ctx, image)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(receipt); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl); err != nil {
			c.logger.Warn("analysis cache write failed", "error", err)
		}
	}
	return receipt, nil
}
