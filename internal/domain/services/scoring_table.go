package services

import (
	"fmt"

	"sitetrust/internal/domain/models"
)

// scoreInput is everything the scoring table looks at
type scoreInput struct {
	signals   *models.ProbeSignals
	duplicate *models.DuplicateVerdict
	imitation *models.ImitationVerdict
}

// scoringFactor is an additive contribution
type scoringFactor struct {
	key     string
	label   string
	points  int
	applies func(in scoreInput) bool
	justify func(in scoreInput) string
}

// scoringPenalty rewrites the running score after the positives are summed
type scoringPenalty struct {
	key     string
	label   string
	applies func(in scoreInput) bool
	apply   func(score int, in scoreInput) int
	justify func(in scoreInput, before, after int) string
}

// positiveCap bounds the sum of positive factors before penalties
const positiveCap = 100

// threatScoreCap is the ceiling for blacklisted or phishing-flagged sites
const threatScoreCap = 20

// scoringFactors and scoringPenalties are the only definition of how a trust
// score is built. TrustScorer and RiskExplainer both walk them through
// evaluateTrust. Risk thresholds live in models.RiskLevelForScore.
var scoringFactors = []scoringFactor{
	{
		key:     "reachable",
		label:   "Reachable",
		points:  25,
		applies: func(in scoreInput) bool { return in.signals.Reachable },
		justify: func(in scoreInput) string {
			return fmt.Sprintf("site responded with HTTP %d in %dms", in.signals.HTTPStatus, in.signals.ResponseTimeMs)
		},
	},
	{
		key:     "valid_ssl",
		label:   "Valid SSL",
		points:  20,
		applies: func(in scoreInput) bool { return in.signals.SSL.Enabled && in.signals.SSL.Valid },
		justify: func(in scoreInput) string {
			issuer := in.signals.SSL.Issuer
			if issuer == "" {
				issuer = "unknown issuer"
			}
			return fmt.Sprintf("valid certificate from %s, grade %s", issuer, in.signals.SSL.Grade)
		},
	},
	{
		key:     "established_domain",
		label:   "Established domain",
		points:  15,
		applies: func(in scoreInput) bool { return in.signals.Domain.AgeInDays > 365 },
		justify: func(in scoreInput) string {
			return fmt.Sprintf("domain registered %d days ago", in.signals.Domain.AgeInDays)
		},
	},
	{
		key:     "quality_content",
		label:   "Quality content",
		points:  15,
		applies: func(in scoreInput) bool { return in.signals.Content.Score > 70 },
		justify: func(in scoreInput) string {
			return fmt.Sprintf("content quality score %d/100", in.signals.Content.Score)
		},
	},
	{
		key:     "good_reputation",
		label:   "Good reputation",
		points:  15,
		applies: func(in scoreInput) bool { return in.signals.Security.ReputationScore > 70 },
		justify: func(in scoreInput) string {
			return fmt.Sprintf("reputation score %d/100", in.signals.Security.ReputationScore)
		},
	},
	{
		key:    "uniqueness",
		label:  "Uniqueness",
		points: 10,
		// An unreachable site served no content that could be unique.
		applies: func(in scoreInput) bool {
			return in.signals.Reachable && !in.duplicate.IsExactMatch && !in.imitation.IsPotentialImitation
		},
		justify: func(scoreInput) string { return "reachable with no exact duplicate or brand imitation found" },
	},
}

var scoringPenalties = []scoringPenalty{
	{
		key:     "exact_duplicate",
		label:   "Exact duplicate",
		applies: func(in scoreInput) bool { return in.duplicate.IsExactMatch },
		apply:   func(score int, _ scoreInput) int { return score - 100 },
		justify: func(in scoreInput, _, _ int) string {
			if in.duplicate.OriginalURL != nil {
				return fmt.Sprintf("content is identical to %s", *in.duplicate.OriginalURL)
			}
			return "content is identical to a previously verified site"
		},
	},
	{
		key:     "potential_imitation",
		label:   "Potential imitation",
		applies: func(in scoreInput) bool { return in.imitation.IsPotentialImitation },
		apply: func(score int, in scoreInput) int {
			return min(score, 100-in.imitation.ImitationScore)
		},
		justify: func(in scoreInput, _, after int) string {
			target := "a known brand"
			if in.imitation.TargetBrand != nil {
				target = *in.imitation.TargetBrand
			}
			return fmt.Sprintf("imitation score %d against %s caps trust at %d", in.imitation.ImitationScore, target, after)
		},
	},
	{
		key:   "threat_flagged",
		label: "Blacklisted or phishing risk",
		applies: func(in scoreInput) bool {
			return in.signals.Security.Blacklisted || in.signals.Security.PhishingRisk
		},
		apply: func(score int, _ scoreInput) int { return min(score, threatScoreCap) },
		justify: func(in scoreInput, _, _ int) string {
			switch {
			case in.signals.Security.Blacklisted && in.signals.Security.PhishingRisk:
				return fmt.Sprintf("blacklisted and flagged for phishing, trust capped at %d", threatScoreCap)
			case in.signals.Security.Blacklisted:
				return fmt.Sprintf("blacklisted by reputation provider, trust capped at %d", threatScoreCap)
			default:
				return fmt.Sprintf("flagged for phishing risk, trust capped at %d", threatScoreCap)
			}
		},
	},
}

// evaluateTrust walks the table and returns the raw score with every
// non-zero contribution. The contributions always sum to the score.
func evaluateTrust(in scoreInput) (int, []models.FactorContribution) {
	score := 0
	contributions := []models.FactorContribution{}

	for _, f := range scoringFactors {
		if !f.applies(in) {
			continue
		}
		points := min(f.points, positiveCap-score)
		if points <= 0 {
			continue
		}
		score += points
		contributions = append(contributions, models.FactorContribution{
			Key:           f.key,
			Label:         f.label,
			Points:        points,
			Justification: f.justify(in),
		})
	}

	for _, p := range scoringPenalties {
		if !p.applies(in) {
			continue
		}
		after := max(p.apply(score, in), 0)
		if after >= score {
			continue
		}
		contributions = append(contributions, models.FactorContribution{
			Key:           p.key,
			Label:         p.label,
			Points:        after - score,
			Justification: p.justify(in, score, after),
		})
		score = after
	}

	return score, contributions
}
