package streaming

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"sitetrust/internal/domain/models"
)

// EventType represents the type of verification event
type EventType string

const (
	EventTypeWebsiteVerified   EventType = "website_verified"
	EventTypeImitationDetected EventType = "imitation_detected"
	EventTypeDuplicateDetected EventType = "duplicate_detected"
)

// VerificationEvent announces a completed verification
type VerificationEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	VerificationID string           `json:"verification_id"`
	URL            string           `json:"url"`
	Domain         string           `json:"domain"`
	TrustScore     int              `json:"trust_score"`
	RiskLevel      models.RiskLevel `json:"risk_level"`

	IsExactMatch         bool   `json:"is_exact_match,omitempty"`
	OriginalURL          string `json:"original_url,omitempty"`
	IsPotentialImitation bool   `json:"is_potential_imitation,omitempty"`
	TargetBrand          string `json:"target_brand,omitempty"`
	ImitationScore       int    `json:"imitation_score,omitempty"`
	SimilarSites         int    `json:"similar_sites"`
}

// NewVerificationEvent creates an event from a verification result. The type
// reflects the most severe finding.
func NewVerificationEvent(result *models.WebsiteVerificationResult) *VerificationEvent {
	event := &VerificationEvent{
		ID:                   uuid.New().String(),
		Type:                 EventTypeWebsiteVerified,
		Timestamp:            time.Now().UTC(),
		VerificationID:       result.ID.String(),
		URL:                  result.URL,
		Domain:               result.Domain,
		TrustScore:           result.TrustScore,
		RiskLevel:            result.RiskLevel,
		IsExactMatch:         result.Duplicate.IsExactMatch,
		IsPotentialImitation: result.Imitation.IsPotentialImitation,
		ImitationScore:       result.Imitation.ImitationScore,
		SimilarSites:         len(result.SimilarSites),
	}

	if result.Duplicate.OriginalURL != nil {
		event.OriginalURL = *result.Duplicate.OriginalURL
	}
	if result.Imitation.TargetBrand != nil {
		event.TargetBrand = *result.Imitation.TargetBrand
	}

	switch {
	case result.Imitation.IsPotentialImitation:
		event.Type = EventTypeImitationDetected
	case result.Duplicate.IsExactMatch || result.Duplicate.OriginalURL != nil:
		event.Type = EventTypeDuplicateDetected
	}

	return event
}

// Subject returns the NATS subject for the event:
// website.verified.<risk>
func (e *VerificationEvent) Subject() string {
	risk := strings.ToLower(string(e.RiskLevel))
	if risk == "" {
		risk = "unknown"
	}
	return "website.verified." + risk
}

// Subscription represents a client's subscription preferences
type Subscription struct {
	// Only events at or above this risk (empty = all)
	MinRiskLevel models.RiskLevel `json:"min_risk_level,omitempty"`

	// Filter by event types (empty = all)
	Types []EventType `json:"types,omitempty"`

	// Filter by domains (empty = all)
	Domains []string `json:"domains,omitempty"`

	// Filter by targeted brands (empty = all)
	Brands []string `json:"brands,omitempty"`
}

var riskOrder = map[models.RiskLevel]int{
	models.RiskLevelLow:    1,
	models.RiskLevelMedium: 2,
	models.RiskLevelHigh:   3,
}

// Matches checks if an event matches the subscription filters
func (s *Subscription) Matches(event *VerificationEvent) bool {
	if s.MinRiskLevel != "" && riskOrder[event.RiskLevel] < riskOrder[s.MinRiskLevel] {
		return false
	}

	if len(s.Types) > 0 && !slices.Contains(s.Types, event.Type) {
		return false
	}

	if len(s.Domains) > 0 && !slices.Contains(s.Domains, event.Domain) {
		return false
	}

	if len(s.Brands) > 0 {
		found := slices.ContainsFunc(s.Brands, func(b string) bool {
			return strings.EqualFold(b, event.TargetBrand)
		})
		if !found {
			return false
		}
	}

	return true
}
