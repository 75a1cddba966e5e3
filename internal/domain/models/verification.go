package models

import (
	"time"

	"github.com/google/uuid"
)

// DuplicateVerdict is derived from the similarity matcher's top candidate
type DuplicateVerdict struct {
	IsExactMatch bool       `json:"isExactMatch"`
	OriginalURL  *string    `json:"originalUrl,omitempty"`
	OriginalDate *time.Time `json:"originalDate,omitempty"`
	Differences  []string   `json:"differences"`
}

// ImitationVerdict states whether the site likely impersonates a known brand
type ImitationVerdict struct {
	IsPotentialImitation bool     `json:"isPotentialImitation"`
	TargetBrand          *string  `json:"targetBrand,omitempty"`
	ImitationScore       int      `json:"imitationScore"`
	SuspiciousElements   []string `json:"suspiciousElements"`
	LegitimateIndicators []string `json:"legitimateIndicators"`
}

// RiskLevel is the discrete bucket derived from the trust score
type RiskLevel string

const (
	RiskLevelLow    RiskLevel = "Low"
	RiskLevelMedium RiskLevel = "Medium"
	RiskLevelHigh   RiskLevel = "High"
)

// RiskLevelForScore maps a trust score to its risk level. The thresholds are
// shared with stored history and must not change.
func RiskLevelForScore(score int) RiskLevel {
	switch {
	case score >= 80:
		return RiskLevelLow
	case score >= 60:
		return RiskLevelMedium
	default:
		return RiskLevelHigh
	}
}

// FactorContribution is one line of the itemised score explanation
type FactorContribution struct {
	Key           string `json:"key"`
	Label         string `json:"label"`
	Points        int    `json:"points"`
	Justification string `json:"justification"`
}

// TrustAssessment is the scorer's output
type TrustAssessment struct {
	TrustScore int       `json:"trustScore"`
	RiskLevel  RiskLevel `json:"riskLevel"`
}

// ScanSummary reports how much of the corpus the matcher looked at
type ScanSummary struct {
	Scanned   int  `json:"scanned"`
	Skipped   int  `json:"skipped"`
	Truncated bool `json:"truncated"`
}

// WebsiteVerificationResult is the engine's sole output. It is never updated
// in place; re-verification produces a new record.
type WebsiteVerificationResult struct {
	ID              uuid.UUID             `json:"id"`
	URL             string                `json:"url"`
	Domain          string                `json:"domain"`
	CheckedAt       time.Time             `json:"checkedAt"`
	Signals         ProbeSignals          `json:"signals"`
	Duplicate       DuplicateVerdict      `json:"duplicate"`
	Imitation       ImitationVerdict      `json:"imitation"`
	SimilarSites    []SimilarityCandidate `json:"similarSites"`
	TrustScore      int                   `json:"trustScore"`
	RiskLevel       RiskLevel             `json:"riskLevel"`
	Recommendation  string                `json:"recommendation"`
	FactorBreakdown []FactorContribution  `json:"factorBreakdown"`
	CorpusChecked   bool                  `json:"corpusChecked"`
	Scan            ScanSummary           `json:"scan"`

	Fingerprints SiteFingerprints `json:"-"`
}

// VerificationSummary is the list view of a stored verification
type VerificationSummary struct {
	ID         uuid.UUID `json:"id"`
	URL        string    `json:"url"`
	Domain     string    `json:"domain"`
	TrustScore int       `json:"trustScore"`
	RiskLevel  RiskLevel `json:"riskLevel"`
	CheckedAt  time.Time `json:"checkedAt"`
}

// BrandCategory groups brands by the security posture they are expected to keep
type BrandCategory string

const (
	BrandCategoryFinancial BrandCategory = "financial"
	BrandCategoryRetail    BrandCategory = "retail"
	BrandCategoryTech      BrandCategory = "technology"
	BrandCategoryLogistics BrandCategory = "logistics"
	BrandCategoryMedia     BrandCategory = "media"
)

// BrandSignature describes a brand that imitation detection protects
type BrandSignature struct {
	Name             string        `json:"name"`
	Domains          []string      `json:"domains"`
	Tokens           []string      `json:"tokens"`
	Category         BrandCategory `json:"category"`
	RequiresValidSSL bool          `json:"requiresValidSsl"`
	MinSSLGrade      SSLGrade      `json:"minSslGrade,omitempty"`
}

// VerificationRequest is the body of a verify call
type VerificationRequest struct {
	URL    string   `json:"url"`
	Probes RawProbe `json:"probes"`
}

// ScoreRequest scores an already extracted signal set
type ScoreRequest struct {
	Signals   ProbeSignals     `json:"signals"`
	Duplicate DuplicateVerdict `json:"duplicate"`
	Imitation ImitationVerdict `json:"imitation"`
}

// ScoreResponse is the stateless scoring result
type ScoreResponse struct {
	TrustScore      int                  `json:"trustScore"`
	RiskLevel       RiskLevel            `json:"riskLevel"`
	FactorBreakdown []FactorContribution `json:"factorBreakdown"`
}
