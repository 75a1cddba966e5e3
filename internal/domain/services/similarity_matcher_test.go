package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

var baseTime = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func corpusEntry(domain, fingerprint string, age time.Duration) models.CorpusEntry {
	return models.CorpusEntry{
		ID:                 uuid.New(),
		URL:                "https://" + domain + "/",
		Domain:             domain,
		ContentFingerprint: fingerprint,
		CreatedAt:          baseTime.Add(-age),
	}
}

func siteFingerprints(domain, fingerprint string) models.SiteFingerprints {
	return models.SiteFingerprints{
		URL:     "https://" + domain + "/",
		Domain:  domain,
		Content: fingerprint,
	}
}

func newTestMatcher() *SimilarityMatcher {
	return NewSimilarityMatcher(DefaultBrandSignatures(), logger.NewNop())
}

func defaultOpts() MatchOptions {
	return MatchOptions{Threshold: DefaultSimilarityThreshold, Now: baseTime}
}

func TestFindSimilar_ExactMatchPrefersOldest(t *testing.T) {
	m := newTestMatcher()
	newer := corpusEntry("copy-one.com", "f1 f2 f3", time.Hour)
	oldest := corpusEntry("original.com", "f1 f2 f3", 48*time.Hour)
	unrelated := corpusEntry("other.com", "z1 z2 z3", 72*time.Hour)

	got, summary := m.FindSimilar(context.Background(), siteFingerprints("copy-two.com", "f1 f2 f3"), []models.CorpusEntry{newer, oldest, unrelated}, defaultOpts())

	require.Len(t, got, 1)
	assert.Equal(t, oldest.ID, got[0].CorpusEntryID)
	assert.Equal(t, 100, got[0].SimilarityScore)
	assert.Equal(t, models.RelationshipDuplicate, got[0].RelationshipType)
	assert.True(t, got[0].ExactMatch)
	assert.Equal(t, 3, summary.Scanned)
	assert.False(t, summary.Truncated)
}

func TestFindSimilar_ExactDuplicateIsSymmetric(t *testing.T) {
	m := newTestMatcher()
	a := corpusEntry("site-a.com", "h1 h2 h3 h4", 24*time.Hour)
	b := corpusEntry("site-b.org", "h1 h2 h3 h4", time.Hour)

	fromA, _ := m.FindSimilar(context.Background(), siteFingerprints(a.Domain, a.ContentFingerprint), []models.CorpusEntry{b}, defaultOpts())
	fromB, _ := m.FindSimilar(context.Background(), siteFingerprints(b.Domain, b.ContentFingerprint), []models.CorpusEntry{a}, defaultOpts())

	require.Len(t, fromA, 1)
	require.Len(t, fromB, 1)
	assert.Equal(t, b.ID, fromA[0].CorpusEntryID)
	assert.Equal(t, a.ID, fromB[0].CorpusEntryID)
	assert.True(t, m.DuplicateVerdict(siteFingerprints(a.Domain, a.ContentFingerprint), fromA).IsExactMatch)
	assert.True(t, m.DuplicateVerdict(siteFingerprints(b.Domain, b.ContentFingerprint), fromB).IsExactMatch)
}

func TestFindSimilar_SkipsOwnSite(t *testing.T) {
	m := newTestMatcher()
	previous := corpusEntry("shop.example.com", "p1 p2 p3", 24*time.Hour)

	got, summary := m.FindSimilar(context.Background(), siteFingerprints("example.com", "p1 p2 p3"), []models.CorpusEntry{previous}, defaultOpts())

	assert.Empty(t, got)
	assert.Equal(t, 1, summary.Skipped)
	assert.Equal(t, 0, summary.Scanned)
}

func TestFindSimilar_NearMatchImitation(t *testing.T) {
	m := newTestMatcher()
	original := corpusEntry("paypal.com", "a b c d e f g h i j", 400*24*time.Hour)
	original.Title = "PayPal: Log in to your account"
	original.SocialLinks = []string{"twitter.com/paypal"}

	fp := siteFingerprints("paypa1-secure.com", "a b c d e f g h x y")
	fp.Title = "PayPal: Log in to your account"
	fp.SocialLinks = []string{"twitter.com/paypal"}

	got, _ := m.FindSimilar(context.Background(), fp, []models.CorpusEntry{original}, defaultOpts())

	require.Len(t, got, 1)
	require.NotNil(t, got[0].Breakdown)
	assert.Equal(t, 67, got[0].Breakdown.ContentSimilarity)
	assert.Equal(t, 85, got[0].Breakdown.DomainSimilarity)
	assert.Equal(t, 100, got[0].Breakdown.StructuralSimilarity)
	assert.Equal(t, 82, got[0].SimilarityScore)
	assert.Equal(t, models.RelationshipImitation, got[0].RelationshipType)
	assert.False(t, got[0].ExactMatch)
}

func TestFindSimilar_ThresholdAndLimit(t *testing.T) {
	m := newTestMatcher()
	corpus := []models.CorpusEntry{
		corpusEntry("unrelated.net", "q1 q2 q3", time.Hour),
		corpusEntry("bakery-one.com", "a b c d e", 2*time.Hour),
		corpusEntry("bakery-one.net", "a b c d e", 3*time.Hour),
	}
	for i := range corpus[1:] {
		corpus[i+1].Title = "Riverside Bakery"
	}

	fp := siteFingerprints("bakery-three.com", "a b c d f")
	fp.Title = "Riverside Bakery"

	got, summary := m.FindSimilar(context.Background(), fp, corpus, defaultOpts())
	require.Len(t, got, 2)
	assert.Equal(t, 3, summary.Scanned)
	// equal scores: older entry first
	assert.Equal(t, got[0].SimilarityScore, got[1].SimilarityScore)
	assert.Equal(t, corpus[2].ID, got[0].CorpusEntryID)

	opts := defaultOpts()
	opts.Limit = 1
	got, _ = m.FindSimilar(context.Background(), fp, corpus, opts)
	require.Len(t, got, 1)
	assert.Equal(t, corpus[2].ID, got[0].CorpusEntryID)

	opts = defaultOpts()
	opts.Threshold = 100
	got, _ = m.FindSimilar(context.Background(), fp, corpus, opts)
	assert.Empty(t, got)
}

func TestFindSimilar_RecencyWindow(t *testing.T) {
	m := newTestMatcher()
	recent := corpusEntry("bakery-one.com", "a b c d e", 24*time.Hour)
	stale := corpusEntry("bakery-two.com", "a b c d e", 90*24*time.Hour)

	opts := defaultOpts()
	opts.RecencyWindow = 30 * 24 * time.Hour
	_, summary := m.FindSimilar(context.Background(), siteFingerprints("bakery-three.com", "a b c d e f"), []models.CorpusEntry{recent, stale}, opts)

	assert.Equal(t, 1, summary.Scanned)
	assert.Equal(t, 1, summary.Skipped)
}

func TestFindSimilar_BudgetReturnsPartialResults(t *testing.T) {
	m := newTestMatcher()
	corpus := make([]models.CorpusEntry, 0, 10)
	for i := 0; i < 10; i++ {
		corpus = append(corpus, corpusEntry(uuid.NewString()[:8]+".com", "a b c", time.Duration(i)*time.Hour))
	}

	opts := defaultOpts()
	opts.MaxCandidates = 4
	_, summary := m.FindSimilar(context.Background(), siteFingerprints("candidate.com", "a b c d"), corpus, opts)
	assert.True(t, summary.Truncated)
	assert.Equal(t, 4, summary.Scanned)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	got, summary := m.FindSimilar(ctx, siteFingerprints("candidate.com", "a b c d"), corpus, defaultOpts())
	assert.True(t, summary.Truncated)
	assert.Equal(t, 0, summary.Scanned)
	assert.Empty(t, got)
}

func TestRelationshipFor(t *testing.T) {
	tests := []struct {
		name    string
		score   int
		domain  int
		flagged bool
		want    models.RelationshipType
	}{
		{"near duplicate", 93, 10, false, models.RelationshipDuplicate},
		{"imitation", 75, 90, false, models.RelationshipImitation},
		{"high score low domain", 75, 40, false, models.RelationshipSimilar},
		{"high score low domain flagged", 75, 40, true, models.RelationshipSuspicious},
		{"similar band", 65, 95, true, models.RelationshipSimilar},
		{"below default band flagged", 45, 20, true, models.RelationshipSuspicious},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := relationshipFor(tt.score, models.SimilarityBreakdown{DomainSimilarity: tt.domain}, tt.flagged)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDuplicateVerdict(t *testing.T) {
	m := newTestMatcher()
	fp := siteFingerprints("copy.com", "f1 f2")
	fp.Title = "Copy"

	none := m.DuplicateVerdict(fp, nil)
	assert.False(t, none.IsExactMatch)
	assert.Nil(t, none.OriginalURL)
	assert.NotNil(t, none.Differences)
	assert.Empty(t, none.Differences)

	similar := m.DuplicateVerdict(fp, []models.SimilarityCandidate{{RelationshipType: models.RelationshipSimilar, SimilarityScore: 65}})
	assert.Nil(t, similar.OriginalURL)

	original := corpusEntry("original.com", "f1 f2", 24*time.Hour)
	original.Title = "Original"
	got, _ := m.FindSimilar(context.Background(), fp, []models.CorpusEntry{original}, defaultOpts())
	verdict := m.DuplicateVerdict(fp, got)

	assert.True(t, verdict.IsExactMatch)
	require.NotNil(t, verdict.OriginalURL)
	assert.Equal(t, "https://original.com/", *verdict.OriginalURL)
	require.NotNil(t, verdict.OriginalDate)
	assert.Equal(t, original.CreatedAt, *verdict.OriginalDate)
	assert.Contains(t, verdict.Differences, "domain: copy.com vs original.com")
	assert.Contains(t, verdict.Differences, `title: "Copy" vs "Original"`)
}

func TestSortCandidates(t *testing.T) {
	older := baseTime.Add(-time.Hour)
	c := []models.SimilarityCandidate{
		{CorpusEntryID: uuid.New(), SimilarityScore: 70, CreatedAt: baseTime},
		{CorpusEntryID: uuid.New(), SimilarityScore: 90, CreatedAt: baseTime},
		{CorpusEntryID: uuid.New(), SimilarityScore: 70, CreatedAt: older},
	}
	sortCandidates(c)
	assert.Equal(t, 90, c[0].SimilarityScore)
	assert.Equal(t, older, c[1].CreatedAt)
	assert.Equal(t, baseTime, c[2].CreatedAt)
}
