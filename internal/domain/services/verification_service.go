package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/metrics"
	"sitetrust/pkg/logger"
)

// ResultStore persists verification results and the corpus entries derived
// from them
type ResultStore interface {
	SaveVerification(ctx context.Context, result *models.WebsiteVerificationResult) error
	GetVerification(ctx context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error)
	ListVerifications(ctx context.Context, domain string, limit int) ([]models.VerificationSummary, error)
}

// ResultCache is a read-through cache of stored results
type ResultCache interface {
	CacheVerification(ctx context.Context, result *models.WebsiteVerificationResult, ttl time.Duration) error
	GetCachedVerification(ctx context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error)
}

// CorpusInvalidator is implemented by corpus readers that cache snapshots
type CorpusInvalidator interface {
	Invalidate(ctx context.Context) error
}

// EventPublisher announces completed verifications
type EventPublisher interface {
	PublishVerification(ctx context.Context, result *models.WebsiteVerificationResult) error
}

// VerificationDeps are the collaborators of a VerificationService. Only
// Engine and Store are required.
type VerificationDeps struct {
	Engine   *Engine
	Store    ResultStore
	Corpus   CorpusReader
	Cache    ResultCache
	Events   EventPublisher
	Metrics  *metrics.Metrics
	CacheTTL time.Duration
}

// VerificationService runs verifications and owns their side effects:
// persistence, corpus append, caching and event publication
type VerificationService struct {
	engine   *Engine
	store    ResultStore
	corpus   CorpusReader
	cache    ResultCache
	events   EventPublisher
	metrics  *metrics.Metrics
	cacheTTL time.Duration
	logger   *logger.Logger
}

// NewVerificationService creates a new verification service
func NewVerificationService(deps VerificationDeps, log *logger.Logger) *VerificationService {
	return &VerificationService{
		engine:   deps.Engine,
		store:    deps.Store,
		corpus:   deps.Corpus,
		cache:    deps.Cache,
		events:   deps.Events,
		metrics:  deps.Metrics,
		cacheTTL: deps.CacheTTL,
		logger:   log.WithComponent("verification-service"),
	}
}

// Verify verifies one site, stores the result and appends the site to the
// corpus. Caching and event failures are logged, never returned.
func (s *VerificationService) Verify(ctx context.Context, req *models.VerificationRequest) (*models.WebsiteVerificationResult, error) {
	start := time.Now()

	result, err := s.engine.VerifyAndScore(ctx, req.URL, &req.Probes, s.corpus)
	if err != nil {
		return nil, err
	}
	log := s.logger.WithVerificationID(result.ID.String())

	if err := s.store.SaveVerification(ctx, result); err != nil {
		return nil, fmt.Errorf("failed to store verification: %w", err)
	}

	if inv, ok := s.corpus.(CorpusInvalidator); ok {
		if err := inv.Invalidate(ctx); err != nil {
			log.Warn().Err(err).Msg("failed to invalidate corpus snapshots")
		}
	}

	if s.cache != nil {
		if err := s.cache.CacheVerification(ctx, result, s.cacheTTL); err != nil {
			log.Warn().Err(err).Msg("failed to cache verification")
		}
	}

	if s.events != nil {
		if err := s.events.PublishVerification(ctx, result); err != nil {
			log.Warn().Err(err).Msg("failed to publish verification event")
			if s.metrics != nil {
				s.metrics.EventPublishFailures.Inc()
			}
		}
	}

	if s.metrics != nil {
		s.metrics.ObserveVerification(result, time.Since(start))
	}

	log.Info().
		Str("url", result.URL).
		Int("trust_score", result.TrustScore).
		Str("risk_level", string(result.RiskLevel)).
		Bool("exact_duplicate", result.Duplicate.IsExactMatch).
		Bool("potential_imitation", result.Imitation.IsPotentialImitation).
		Bool("corpus_checked", result.CorpusChecked).
		Dur("elapsed", time.Since(start)).
		Msg("website verified")

	return result, nil
}

// Get returns a stored result, or nil when none exists
func (s *VerificationService) Get(ctx context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error) {
	if s.cache != nil {
		cached, err := s.cache.GetCachedVerification(ctx, id)
		if err != nil {
			s.logger.Warn().Err(err).Str("verification_id", id.String()).Msg("failed to read cached verification")
		}
		if cached != nil {
			s.observeCache(true)
			return cached, nil
		}
		s.observeCache(false)
	}

	result, err := s.store.GetVerification(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get verification: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	if s.cache != nil {
		if err := s.cache.CacheVerification(ctx, result, s.cacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("verification_id", id.String()).Msg("failed to cache verification")
		}
	}
	return result, nil
}

// List returns stored result summaries, newest first
func (s *VerificationService) List(ctx context.Context, domain string, limit int) ([]models.VerificationSummary, error) {
	if domain != "" {
		host, err := normalizeHost(domain)
		if err != nil {
			// No stored result can carry an unparseable domain
			return []models.VerificationSummary{}, nil
		}
		domain = host
	}
	summaries, err := s.store.ListVerifications(ctx, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verifications: %w", err)
	}
	return summaries, nil
}

// Explain re-derives the factor breakdown of a stored result. It returns nil
// when the result does not exist.
func (s *VerificationService) Explain(ctx context.Context, id uuid.UUID) ([]models.FactorContribution, error) {
	result, err := s.Get(ctx, id)
	if err != nil || result == nil {
		return nil, err
	}
	return s.engine.Explain(result)
}

// Score scores caller-supplied signals and verdicts without touching storage
func (s *VerificationService) Score(req models.ScoreRequest) (*models.ScoreResponse, error) {
	return s.engine.Score(req)
}

// Brands returns the active brand signatures
func (s *VerificationService) Brands() []models.BrandSignature {
	return s.engine.Brands().Signatures()
}

func (s *VerificationService) observeCache(hit bool) {
	if s.metrics == nil {
		return
	}
	if hit {
		s.metrics.CacheHit()
	} else {
		s.metrics.CacheMiss()
	}
}
