package cache

import (
	"context"
	"fmt"
	"time"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// CorpusSource is the authoritative corpus store
type CorpusSource interface {
	ListRecentEntries(ctx context.Context, domainHint string) ([]models.CorpusEntry, error)
}

// CorpusCache keeps short-lived corpus snapshots in Redis in front of a
// CorpusSource. A snapshot is immutable once written, so concurrent
// verifications of one domain all see the same corpus. Redis failures fall
// through to the source.
type CorpusCache struct {
	source CorpusSource
	cache  *RedisCache
	ttl    time.Duration
	logger *logger.Logger
}

// NewCorpusCache creates a new CorpusCache
func NewCorpusCache(source CorpusSource, cache *RedisCache, ttl time.Duration, log *logger.Logger) *CorpusCache {
	return &CorpusCache{
		source: source,
		cache:  cache,
		ttl:    ttl,
		logger: log.WithComponent("corpus-cache"),
	}
}

// ListRecentEntries returns the cached snapshot for domainHint, loading it
// from the source on a miss
func (c *CorpusCache) ListRecentEntries(ctx context.Context, domainHint string) ([]models.CorpusEntry, error) {
	if c.ttl <= 0 {
		return c.source.ListRecentEntries(ctx, domainHint)
	}

	gen, err := c.cache.CorpusGeneration(ctx)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read corpus generation, bypassing cache")
		return c.source.ListRecentEntries(ctx, domainHint)
	}
	key := fmt.Sprintf("%s%d:%s", KeyCorpusPrefix, gen, domainHint)

	var entries []models.CorpusEntry
	err = c.cache.GetJSON(ctx, key, &entries)
	if err == nil {
		return entries, nil
	}
	if !IsMiss(err) {
		c.logger.Warn().Err(err).Str("domain", domainHint).Msg("failed to read corpus snapshot")
	}

	entries, err = c.source.ListRecentEntries(ctx, domainHint)
	if err != nil {
		return nil, err
	}

	if err := c.cache.SetJSON(ctx, key, entries, c.ttl); err != nil {
		c.logger.Warn().Err(err).Str("domain", domainHint).Msg("failed to store corpus snapshot")
	}
	return entries, nil
}

// Invalidate retires every cached snapshot. Called after a corpus append.
func (c *CorpusCache) Invalidate(ctx context.Context) error {
	if _, err := c.cache.BumpCorpusGeneration(ctx); err != nil {
		return fmt.Errorf("failed to bump corpus generation: %w", err)
	}
	return nil
}
