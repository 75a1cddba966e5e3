package services

import (
	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// RiskExplainer itemises how a trust score was reached
type RiskExplainer struct {
	strict bool
	logger *logger.Logger
}

// NewRiskExplainer creates a new RiskExplainer
func NewRiskExplainer(strict bool, log *logger.Logger) *RiskExplainer {
	return &RiskExplainer{
		strict: strict,
		logger: log.WithComponent("risk-explainer"),
	}
}

// Explain recomputes the factor list from the scoring table and checks that
// it adds up to finalScore
func (e *RiskExplainer) Explain(signals models.ProbeSignals, duplicate models.DuplicateVerdict, imitation models.ImitationVerdict, finalScore int) ([]models.FactorContribution, error) {
	_, contributions := evaluateTrust(scoreInput{signals: &signals, duplicate: &duplicate, imitation: &imitation})

	sum := 0
	for _, c := range contributions {
		sum += c.Points
	}
	if sum != finalScore {
		violation := &ScoringInvariantViolation{Check: "factor breakdown sums to trust score", Expected: finalScore, Actual: sum}
		if e.strict {
			return nil, violation
		}
		e.logger.Warn().Err(violation).Msg("factor breakdown drifted from trust score")
	}

	return contributions, nil
}
