package services

import (
	"fmt"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// TrustScorer turns signals and verdicts into a trust score and risk level
type TrustScorer struct {
	strict bool
	logger *logger.Logger
}

// NewTrustScorer creates a new TrustScorer. In strict mode an out-of-range
// score is returned as an error instead of being clamped.
func NewTrustScorer(strict bool, log *logger.Logger) *TrustScorer {
	return &TrustScorer{
		strict: strict,
		logger: log.WithComponent("trust-scorer"),
	}
}

// Score is deterministic and has no side effects apart from warnings
func (s *TrustScorer) Score(signals models.ProbeSignals, duplicate models.DuplicateVerdict, imitation models.ImitationVerdict) (models.TrustAssessment, error) {
	score, _ := evaluateTrust(scoreInput{signals: &signals, duplicate: &duplicate, imitation: &imitation})

	if score < 0 || score > 100 {
		violation := &ScoringInvariantViolation{Check: "trust score within [0,100]", Expected: clampScore(score), Actual: score}
		if s.strict {
			return models.TrustAssessment{}, violation
		}
		s.logger.Warn().Err(violation).Msg("clamping out-of-range trust score")
		score = clampScore(score)
	}

	return models.TrustAssessment{
		TrustScore: score,
		RiskLevel:  models.RiskLevelForScore(score),
	}, nil
}

// Recommendation produces the one-line advice shown next to the score
func Recommendation(assessment models.TrustAssessment, duplicate models.DuplicateVerdict, imitation models.ImitationVerdict) string {
	switch {
	case duplicate.IsExactMatch && duplicate.OriginalURL != nil:
		return fmt.Sprintf("Do not rely on this site: its content duplicates %s. Treat it as a copy and verify the original.", *duplicate.OriginalURL)
	case duplicate.IsExactMatch:
		return "Do not rely on this site: its content duplicates a previously verified site."
	case imitation.IsPotentialImitation && imitation.TargetBrand != nil:
		return fmt.Sprintf("Likely impersonation of %s. Block or escalate for manual review before any interaction.", *imitation.TargetBrand)
	case imitation.IsPotentialImitation:
		return "Likely brand impersonation. Block or escalate for manual review before any interaction."
	}

	switch assessment.RiskLevel {
	case models.RiskLevelLow:
		return "Site appears legitimate. Proceed with standard due diligence."
	case models.RiskLevelMedium:
		return "Some trust signals are missing. Verify ownership and contact details before proceeding."
	default:
		return "Significant risk indicators present. Do not proceed without manual investigation."
	}
}
