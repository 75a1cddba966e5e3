package services

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"sitetrust/internal/config"
	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// Similarity weights and classification thresholds
const (
	contentWeight    = 0.40
	domainWeight     = 0.35
	structuralWeight = 0.25

	DefaultSimilarityThreshold = 60
	duplicateThreshold         = 90
	imitationThreshold         = 70
	highDomainSimilarity       = 80
)

// MatchOptions bounds a single FindSimilar call
type MatchOptions struct {
	Threshold     int
	RecencyWindow time.Duration
	MaxCandidates int
	MaxDuration   time.Duration
	Limit         int
	Now           time.Time
}

// MatchOptionsFromConfig builds options from the engine configuration
func MatchOptionsFromConfig(cfg config.EngineConfig) MatchOptions {
	return MatchOptions{
		Threshold:     cfg.SimilarityThreshold,
		RecencyWindow: cfg.RecencyWindow,
		MaxCandidates: cfg.MaxCandidates,
		MaxDuration:   cfg.MaxScanTime,
		Limit:         cfg.ResultLimit,
	}
}

// SimilarityMatcher compares a site's fingerprints against the corpus
type SimilarityMatcher struct {
	brands []models.BrandSignature
	logger *logger.Logger
}

// NewSimilarityMatcher creates a new SimilarityMatcher. brands feed the
// heuristic that marks otherwise unclassified matches as suspicious.
func NewSimilarityMatcher(brands []models.BrandSignature, log *logger.Logger) *SimilarityMatcher {
	return &SimilarityMatcher{
		brands: brands,
		logger: log.WithComponent("similarity-matcher"),
	}
}

// FindSimilar returns corpus entries related to fp, best first. An exact
// content match short-circuits into a single duplicate candidate. Entries
// from the site's own registrable domain are earlier verifications of the
// same site and are skipped. When the scan budget runs out the candidates
// found so far are returned with Truncated set.
func (m *SimilarityMatcher) FindSimilar(ctx context.Context, fp models.SiteFingerprints, corpus []models.CorpusEntry, opts MatchOptions) ([]models.SimilarityCandidate, models.ScanSummary) {
	var summary models.ScanSummary
	if opts.Now.IsZero() {
		opts.Now = time.Now().UTC()
	}

	if exact := m.exactMatch(fp, corpus); exact != nil {
		summary.Scanned = len(corpus)
		return []models.SimilarityCandidate{*exact}, summary
	}

	var cutoff time.Time
	if opts.RecencyWindow > 0 {
		cutoff = opts.Now.Add(-opts.RecencyWindow)
	}
	flagged := brandHitFor(fp.Domain, m.brands).Score > 0
	started := time.Now()

	candidates := make([]models.SimilarityCandidate, 0)
	for i := range corpus {
		if m.budgetExhausted(ctx, opts, summary.Scanned, started) {
			summary.Truncated = true
			break
		}

		entry := corpus[i]
		if sameSite(fp.Domain, entry.Domain) || (!cutoff.IsZero() && entry.CreatedAt.Before(cutoff)) {
			summary.Skipped++
			continue
		}
		summary.Scanned++

		breakdown := compareEntry(fp, entry)
		score := combinedScore(breakdown)
		if score < opts.Threshold {
			continue
		}

		candidates = append(candidates, models.SimilarityCandidate{
			CorpusEntryID:    entry.ID,
			URL:              entry.URL,
			SimilarityScore:  score,
			RelationshipType: relationshipFor(score, breakdown, flagged),
			Breakdown:        &breakdown,
			CreatedAt:        entry.CreatedAt,
			Entry:            entry,
		})
	}

	sortCandidates(candidates)
	if opts.Limit > 0 && len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	if summary.Truncated {
		m.logger.Warn().
			Int("scanned", summary.Scanned).
			Int("corpus_size", len(corpus)).
			Str("domain", fp.Domain).
			Msg("similarity scan budget exhausted, returning partial results")
	}

	return candidates, summary
}

func (m *SimilarityMatcher) budgetExhausted(ctx context.Context, opts MatchOptions, scanned int, started time.Time) bool {
	if opts.MaxCandidates > 0 && scanned >= opts.MaxCandidates {
		return true
	}
	if opts.MaxDuration > 0 && time.Since(started) > opts.MaxDuration {
		return true
	}
	return ctx.Err() != nil
}

// exactMatch finds the oldest entry with an identical content fingerprint
func (m *SimilarityMatcher) exactMatch(fp models.SiteFingerprints, corpus []models.CorpusEntry) *models.SimilarityCandidate {
	if fp.Content == "" {
		return nil
	}

	var original *models.CorpusEntry
	for i := range corpus {
		e := &corpus[i]
		if e.ContentFingerprint != fp.Content || sameSite(fp.Domain, e.Domain) {
			continue
		}
		if original == nil || olderEntry(e, original) {
			original = e
		}
	}
	if original == nil {
		return nil
	}

	breakdown := compareEntry(fp, *original)
	return &models.SimilarityCandidate{
		CorpusEntryID:    original.ID,
		URL:              original.URL,
		SimilarityScore:  100,
		RelationshipType: models.RelationshipDuplicate,
		ExactMatch:       true,
		Breakdown:        &breakdown,
		CreatedAt:        original.CreatedAt,
		Entry:            *original,
	}
}

// DuplicateVerdict derives the duplicate verdict from the top candidate
func (m *SimilarityMatcher) DuplicateVerdict(fp models.SiteFingerprints, candidates []models.SimilarityCandidate) models.DuplicateVerdict {
	verdict := models.DuplicateVerdict{Differences: []string{}}
	if len(candidates) == 0 || candidates[0].RelationshipType != models.RelationshipDuplicate {
		return verdict
	}

	top := candidates[0]
	url := top.URL
	date := top.CreatedAt
	verdict.IsExactMatch = top.ExactMatch
	verdict.OriginalURL = &url
	verdict.OriginalDate = &date
	verdict.Differences = differences(fp, top)
	return verdict
}

func differences(fp models.SiteFingerprints, top models.SimilarityCandidate) []string {
	e := top.Entry
	diffs := []string{}
	if fp.URL != e.URL {
		diffs = append(diffs, fmt.Sprintf("url: %s vs %s", fp.URL, e.URL))
	}
	if fp.Domain != e.Domain {
		diffs = append(diffs, fmt.Sprintf("domain: %s vs %s", fp.Domain, e.Domain))
	}
	if !strings.EqualFold(strings.TrimSpace(fp.Title), strings.TrimSpace(e.Title)) {
		diffs = append(diffs, fmt.Sprintf("title: %q vs %q", fp.Title, e.Title))
	}
	if fp.Visual != "" && e.VisualFingerprint != "" && fp.Visual != e.VisualFingerprint {
		diffs = append(diffs, "visual fingerprint differs")
	}
	if !top.ExactMatch && top.Breakdown != nil && top.Breakdown.ContentSimilarity < 100 {
		diffs = append(diffs, fmt.Sprintf("content %d%% similar", top.Breakdown.ContentSimilarity))
	}
	if !slices.Equal(normalizeList(fp.Technologies, lowerTrim), normalizeList(e.Technologies, lowerTrim)) {
		diffs = append(diffs, "technology stack differs")
	}
	if !slices.Equal(normalizeList(fp.SocialLinks, normalizeLink), normalizeList(e.SocialLinks, normalizeLink)) {
		diffs = append(diffs, "social links differ")
	}
	return diffs
}

func compareEntry(fp models.SiteFingerprints, e models.CorpusEntry) models.SimilarityBreakdown {
	return models.SimilarityBreakdown{
		ContentSimilarity:    contentSimilarity(fp.Content, e.ContentFingerprint),
		DomainSimilarity:     domainSimilarity(fp.Domain, e.Domain),
		StructuralSimilarity: structuralSimilarity(fp.Title, fp.Technologies, fp.SocialLinks, e.Title, e.Technologies, e.SocialLinks),
	}
}

func combinedScore(b models.SimilarityBreakdown) int {
	score := contentWeight*float64(b.ContentSimilarity) +
		domainWeight*float64(b.DomainSimilarity) +
		structuralWeight*float64(b.StructuralSimilarity)
	return clampScore(int(math.Round(score)))
}

func relationshipFor(score int, b models.SimilarityBreakdown, flagged bool) models.RelationshipType {
	switch {
	case score >= duplicateThreshold:
		return models.RelationshipDuplicate
	case score >= imitationThreshold && b.DomainSimilarity >= highDomainSimilarity:
		return models.RelationshipImitation
	case score >= DefaultSimilarityThreshold && score < imitationThreshold:
		return models.RelationshipSimilar
	case flagged:
		return models.RelationshipSuspicious
	default:
		return models.RelationshipSimilar
	}
}

func olderEntry(a, b *models.CorpusEntry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// sortCandidates orders by score, then the older entry first
func sortCandidates(c []models.SimilarityCandidate) {
	slices.SortStableFunc(c, func(a, b models.SimilarityCandidate) int {
		if a.SimilarityScore != b.SimilarityScore {
			return b.SimilarityScore - a.SimilarityScore
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		return strings.Compare(a.CorpusEntryID.String(), b.CorpusEntryID.String())
	})
}
