package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/metrics"
	"sitetrust/pkg/logger"
)

type mapCache struct {
	mu    sync.Mutex
	items map[uuid.UUID]models.WebsiteVerificationResult
}

func newMapCache() *mapCache {
	return &mapCache{items: make(map[uuid.UUID]models.WebsiteVerificationResult)}
}

func (c *mapCache) CacheVerification(_ context.Context, r *models.WebsiteVerificationResult, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[r.ID] = *r
	return nil
}

func (c *mapCache) GetCachedVerification(_ context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.items[id]
	if !ok {
		return nil, nil
	}
	return &r, nil
}

type recordingPublisher struct {
	published []uuid.UUID
	err       error
}

func (p *recordingPublisher) PublishVerification(_ context.Context, r *models.WebsiteVerificationResult) error {
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, r.ID)
	return nil
}

type brokenStore struct{ *MemoryStore }

func (brokenStore) SaveVerification(context.Context, *models.WebsiteVerificationResult) error {
	return errors.New("disk full")
}

func newTestService(t *testing.T, store ResultStore, corpus CorpusReader) (*VerificationService, *mapCache, *recordingPublisher, *metrics.Metrics) {
	t.Helper()
	cache := newMapCache()
	events := &recordingPublisher{}
	m := metrics.New(prometheus.NewRegistry())
	svc := NewVerificationService(VerificationDeps{
		Engine:   newTestEngine(t),
		Store:    store,
		Corpus:   corpus,
		Cache:    cache,
		Events:   events,
		Metrics:  m,
		CacheTTL: time.Minute,
	}, logger.NewNop())
	return svc, cache, events, m
}

func TestVerificationService_VerifyPersistsAndAppendsCorpus(t *testing.T) {
	store := NewMemoryStore(0)
	svc, cache, events, m := newTestService(t, store, store)
	ctx := context.Background()

	first, err := svc.Verify(ctx, &models.VerificationRequest{URL: "https://riverside-bakery.com", Probes: *legitimateProbe()})
	require.NoError(t, err)
	assert.Equal(t, 1, store.CorpusSize())
	assert.Equal(t, []uuid.UUID{first.ID}, events.published)
	_, cached := cache.items[first.ID]
	assert.True(t, cached)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.VerificationsTotal.WithLabelValues("Low")))

	// Same page on another domain is an exact duplicate of the first site
	second, err := svc.Verify(ctx, &models.VerificationRequest{URL: "https://riverside-bakery-deals.net", Probes: *legitimateProbe()})
	require.NoError(t, err)
	assert.True(t, second.Duplicate.IsExactMatch)
	require.NotNil(t, second.Duplicate.OriginalURL)
	assert.Equal(t, "https://riverside-bakery.com", *second.Duplicate.OriginalURL)
	assert.Equal(t, 2, store.CorpusSize())

	// Re-verifying the first site skips its own earlier entry
	again, err := svc.Verify(ctx, &models.VerificationRequest{URL: "https://riverside-bakery.com", Probes: *legitimateProbe()})
	require.NoError(t, err)
	require.NotEmpty(t, again.SimilarSites)
	assert.Equal(t, "https://riverside-bakery-deals.net", again.SimilarSites[0].URL)
}

func TestVerificationService_MalformedProbeStoresNothing(t *testing.T) {
	store := NewMemoryStore(0)
	svc, _, events, _ := newTestService(t, store, store)

	_, err := svc.Verify(context.Background(), &models.VerificationRequest{URL: "https://example.com"})
	var malformed *MalformedProbeError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, 0, store.CorpusSize())
	assert.Empty(t, events.published)
}

func TestVerificationService_StoreFailureFailsVerify(t *testing.T) {
	store := brokenStore{NewMemoryStore(0)}
	svc, _, events, _ := newTestService(t, store, store)

	_, err := svc.Verify(context.Background(), &models.VerificationRequest{URL: "https://example.com", Probes: *legitimateProbe()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Empty(t, events.published)
}

func TestVerificationService_PublishFailureIsNotFatal(t *testing.T) {
	store := NewMemoryStore(0)
	svc, _, events, m := newTestService(t, store, store)
	events.err = errors.New("nats down")

	_, err := svc.Verify(context.Background(), &models.VerificationRequest{URL: "https://example.com", Probes: *legitimateProbe()})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EventPublishFailures))
}

func TestVerificationService_GetUsesCacheThenStore(t *testing.T) {
	store := NewMemoryStore(0)
	svc, cache, _, m := newTestService(t, store, store)
	ctx := context.Background()

	result, err := svc.Verify(ctx, &models.VerificationRequest{URL: "https://example.com", Probes: *legitimateProbe()})
	require.NoError(t, err)

	got, err := svc.Get(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.TrustScore, got.TrustScore)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("hit")))

	delete(cache.items, result.ID)
	got, err = svc.Get(ctx, result.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheLookupsTotal.WithLabelValues("miss")))
	_, refilled := cache.items[result.ID]
	assert.True(t, refilled)

	missing, err := svc.Get(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestVerificationService_ListAndExplain(t *testing.T) {
	store := NewMemoryStore(0)
	svc, _, _, _ := newTestService(t, store, store)
	ctx := context.Background()

	a, err := svc.Verify(ctx, &models.VerificationRequest{URL: "https://example.com", Probes: *legitimateProbe()})
	require.NoError(t, err)
	_, err = svc.Verify(ctx, &models.VerificationRequest{URL: "https://unreachable.example.org", Probes: *reachableProbe(503)})
	require.NoError(t, err)

	all, err := svc.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := svc.List(ctx, "WWW.Example.com", 10)
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, a.ID, filtered[0].ID)

	breakdown, err := svc.Explain(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, a.FactorBreakdown, breakdown)

	none, err := svc.Explain(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestMemoryStore_CorpusLimitAndOrder(t *testing.T) {
	store := NewMemoryStore(2)
	ctx := context.Background()

	for i, domain := range []string{"a.com", "b.com", "c.com"} {
		require.NoError(t, store.SaveVerification(ctx, &models.WebsiteVerificationResult{
			ID:           uuid.New(),
			Domain:       domain,
			CheckedAt:    baseTime.Add(time.Duration(i) * time.Hour),
			Fingerprints: models.SiteFingerprints{Domain: domain, Registrable: domain},
		}))
	}

	entries, err := store.ListRecentEntries(ctx, "c.com")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "b.com", entries[0].Domain)
	assert.Equal(t, "a.com", entries[1].Domain)
}
