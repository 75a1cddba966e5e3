package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

func newTestCache(t *testing.T) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisFromClient(client, "test:", logger.NewNop()), mr
}

func TestRedisCache_VerificationRoundTrip(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	result := &models.WebsiteVerificationResult{
		ID:         uuid.New(),
		URL:        "https://example.com",
		Domain:     "example.com",
		TrustScore: 85,
		RiskLevel:  models.RiskLevelLow,
	}
	require.NoError(t, c.CacheVerification(ctx, result, time.Minute))
	assert.True(t, mr.Exists("test:"+KeyVerificationPrefix+result.ID.String()))

	got, err := c.GetCachedVerification(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.URL, got.URL)
	assert.Equal(t, 85, got.TrustScore)
	assert.Equal(t, models.RiskLevelLow, got.RiskLevel)

	mr.FastForward(2 * time.Minute)
	got, err = c.GetCachedVerification(ctx, result.ID)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisCache_CorpusGeneration(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	gen, err := c.CorpusGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), gen)

	next, err := c.BumpCorpusGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	gen, err = c.CorpusGeneration(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), gen)
}

func TestRedisCache_CheckRateLimit(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, remaining, _, err := c.CheckRateLimit(ctx, "client", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
		assert.Equal(t, int64(2-i), remaining)
	}

	allowed, remaining, reset, err := c.CheckRateLimit(ctx, "client", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, int64(0), remaining)
	assert.True(t, reset.After(time.Now()))
}

type countingSource struct {
	entries []models.CorpusEntry
	calls   int
	err     error
}

func (s *countingSource) ListRecentEntries(context.Context, string) ([]models.CorpusEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.entries, nil
}

func TestCorpusCache_ServesSnapshotUntilInvalidated(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	src := &countingSource{entries: []models.CorpusEntry{{
		ID:                 uuid.New(),
		URL:                "https://shop.example",
		Domain:             "shop.example",
		ContentFingerprint: "abc",
		CreatedAt:          time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}}}
	cc := NewCorpusCache(src, c, time.Minute, logger.NewNop())

	first, err := cc.ListRecentEntries(ctx, "example.com")
	require.NoError(t, err)
	second, err := cc.ListRecentEntries(ctx, "example.com")
	require.NoError(t, err)

	assert.Equal(t, 1, src.calls)
	require.Len(t, second, 1)
	assert.Equal(t, first[0].ID, second[0].ID)
	assert.True(t, first[0].CreatedAt.Equal(second[0].CreatedAt))

	// A different hint is a different snapshot
	_, err = cc.ListRecentEntries(ctx, "other.com")
	require.NoError(t, err)
	assert.Equal(t, 2, src.calls)

	require.NoError(t, cc.Invalidate(ctx))
	_, err = cc.ListRecentEntries(ctx, "example.com")
	require.NoError(t, err)
	assert.Equal(t, 3, src.calls)
}

func TestCorpusCache_SourceErrorIsReturned(t *testing.T) {
	c, _ := newTestCache(t)
	src := &countingSource{err: errors.New("connection refused")}
	cc := NewCorpusCache(src, c, time.Minute, logger.NewNop())

	_, err := cc.ListRecentEntries(context.Background(), "example.com")
	assert.Error(t, err)
}

func TestCorpusCache_RedisDownFallsThrough(t *testing.T) {
	c, mr := newTestCache(t)
	src := &countingSource{entries: []models.CorpusEntry{{ID: uuid.New()}}}
	cc := NewCorpusCache(src, c, time.Minute, logger.NewNop())

	mr.Close()
	entries, err := cc.ListRecentEntries(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, 1, src.calls)
}
