package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitetrust/internal/config"
	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// CorpusReader lists previously verified sites. Implementations must return a
// consistent snapshot; the engine never writes through it.
type CorpusReader interface {
	ListRecentEntries(ctx context.Context, domainHint string) ([]models.CorpusEntry, error)
}

// StaticCorpus is an in-memory CorpusReader
type StaticCorpus []models.CorpusEntry

// ListRecentEntries returns every entry
func (c StaticCorpus) ListRecentEntries(context.Context, string) ([]models.CorpusEntry, error) {
	return c, nil
}

// Engine runs one verification end to end. It is safe for concurrent use.
type Engine struct {
	extractor  *SignalExtractor
	matcher    *SimilarityMatcher
	classifier *ImitationClassifier
	scorer     *TrustScorer
	explainer  *RiskExplainer
	brands     *BrandCatalog
	matchOpts  MatchOptions
	now        func() time.Time
	logger     *logger.Logger
}

// NewEngine creates a new Engine
func NewEngine(cfg config.EngineConfig, brands *BrandCatalog, log *logger.Logger) *Engine {
	if brands == nil {
		brands = NewBrandCatalog(nil)
	}
	return &Engine{
		extractor:  NewSignalExtractor(log),
		matcher:    NewSimilarityMatcher(brands.Signatures(), log),
		classifier: NewImitationClassifier(log),
		scorer:     NewTrustScorer(cfg.StrictInvariants, log),
		explainer:  NewRiskExplainer(cfg.StrictInvariants, log),
		brands:     brands,
		matchOpts:  MatchOptionsFromConfig(cfg),
		now:        func() time.Time { return time.Now().UTC() },
		logger:     log.WithComponent("engine"),
	}
}

// Brands returns the active brand catalog
func (e *Engine) Brands() *BrandCatalog {
	return e.brands
}

// VerifyAndScore verifies one site against the corpus. A corpus read failure
// degrades to an empty corpus; a malformed probe fails the call.
func (e *Engine) VerifyAndScore(ctx context.Context, rawURL string, probes *models.RawProbe, corpus CorpusReader) (*models.WebsiteVerificationResult, error) {
	parsed, host, err := parseSiteURL(rawURL)
	if err != nil {
		var malformed *MalformedProbeError
		if errors.As(err, &malformed) {
			return nil, err
		}
		return nil, &MalformedProbeError{Field: "url"}
	}

	signals, err := e.extractor.Extract(probes)
	if err != nil {
		return nil, err
	}

	siteURL := canonicalURL(parsed, host)
	fp := e.extractor.Fingerprints(siteURL, host, probes)
	now := e.now()

	entries, corpusChecked := e.loadCorpus(ctx, host, corpus)

	opts := e.matchOpts
	opts.Now = now
	// Engines built from a zero EngineConfig leave the threshold unset
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultSimilarityThreshold
	}
	candidates, scan := e.matcher.FindSimilar(ctx, fp, entries, opts)

	duplicate := e.matcher.DuplicateVerdict(fp, candidates)
	imitation := e.classifier.Classify(host, *signals, candidates, e.brands.Signatures())

	assessment, err := e.scorer.Score(*signals, duplicate, imitation)
	if err != nil {
		return nil, fmt.Errorf("failed to score %s: %w", host, err)
	}
	breakdown, err := e.explainer.Explain(*signals, duplicate, imitation, assessment.TrustScore)
	if err != nil {
		return nil, fmt.Errorf("failed to explain score for %s: %w", host, err)
	}

	result := &models.WebsiteVerificationResult{
		ID:              uuid.New(),
		URL:             siteURL,
		Domain:          host,
		CheckedAt:       now,
		Signals:         *signals,
		Duplicate:       duplicate,
		Imitation:       imitation,
		SimilarSites:    candidates,
		TrustScore:      assessment.TrustScore,
		RiskLevel:       assessment.RiskLevel,
		Recommendation:  Recommendation(assessment, duplicate, imitation),
		FactorBreakdown: breakdown,
		CorpusChecked:   corpusChecked,
		Scan:            scan,
		Fingerprints:    fp,
	}

	e.logger.Debug().
		Str("verification_id", result.ID.String()).
		Str("domain", host).
		Int("trust_score", result.TrustScore).
		Str("risk_level", string(result.RiskLevel)).
		Int("similar_sites", len(candidates)).
		Msg("verification completed")

	return result, nil
}

func (e *Engine) loadCorpus(ctx context.Context, host string, corpus CorpusReader) ([]models.CorpusEntry, bool) {
	if corpus == nil {
		return nil, false
	}
	hint := registrableDomain(host)
	entries, err := corpus.ListRecentEntries(ctx, hint)
	if err != nil {
		unavailable := &CorpusUnavailableError{DomainHint: hint, Err: err}
		e.logger.Warn().Err(unavailable).Msg("verifying without corpus")
		return nil, false
	}
	return entries, true
}

// Score runs the stateless scorer and explainer over supplied verdicts
func (e *Engine) Score(req models.ScoreRequest) (*models.ScoreResponse, error) {
	if req.Duplicate.Differences == nil {
		req.Duplicate.Differences = []string{}
	}
	req.Imitation.ImitationScore = clampScore(req.Imitation.ImitationScore)

	assessment, err := e.scorer.Score(req.Signals, req.Duplicate, req.Imitation)
	if err != nil {
		return nil, err
	}
	breakdown, err := e.explainer.Explain(req.Signals, req.Duplicate, req.Imitation, assessment.TrustScore)
	if err != nil {
		return nil, err
	}
	return &models.ScoreResponse{
		TrustScore:      assessment.TrustScore,
		RiskLevel:       assessment.RiskLevel,
		FactorBreakdown: breakdown,
	}, nil
}

// Explain re-derives the factor breakdown of a stored result
func (e *Engine) Explain(result *models.WebsiteVerificationResult) ([]models.FactorContribution, error) {
	return e.explainer.Explain(result.Signals, result.Duplicate, result.Imitation, result.TrustScore)
}
