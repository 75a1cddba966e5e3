package services

import (
	"fmt"
	"strings"

	"github.com/cloudflare/ahocorasick"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// Domain age boundaries used by the advisory lists
const (
	youngDomainDays       = 30
	recentDomainDays      = 365
	establishedDomainDays = 5 * 365
)

// financialKeywords mark a site that handles money or credentials
var financialKeywords = []string{
	"bank", "banking", "wallet", "crypto", "bitcoin", "payment", "paypal",
	"credit", "loan", "invest", "trading", "finance", "billing", "checkout",
	"login", "signin", "password", "account",
}

// ImitationClassifier decides whether a site impersonates a known brand
type ImitationClassifier struct {
	keywords *ahocorasick.Matcher
	logger   *logger.Logger
}

// NewImitationClassifier creates a new ImitationClassifier
func NewImitationClassifier(log *logger.Logger) *ImitationClassifier {
	return &ImitationClassifier{
		keywords: ahocorasick.NewStringMatcher(financialKeywords),
		logger:   log.WithComponent("imitation-classifier"),
	}
}

// Classify combines imitation candidates from the similarity matcher with the
// brand-token heuristic. host must already be normalised.
func (c *ImitationClassifier) Classify(host string, signals models.ProbeSignals, topMatches []models.SimilarityCandidate, brands []models.BrandSignature) models.ImitationVerdict {
	verdict := models.ImitationVerdict{
		SuspiciousElements:   []string{},
		LegitimateIndicators: []string{},
	}

	var best *models.SimilarityCandidate
	for i := range topMatches {
		if topMatches[i].RelationshipType != models.RelationshipImitation {
			continue
		}
		if best == nil || topMatches[i].SimilarityScore > best.SimilarityScore {
			best = &topMatches[i]
		}
	}

	hit := brandHitFor(host, brands)
	var posture []string
	if hit.Brand != nil {
		posture = postureFailures(signals, hit.Brand)
	}

	var target string
	if best != nil {
		verdict.IsPotentialImitation = true
		verdict.ImitationScore = best.SimilarityScore
		if owner := brandOwning(best.Entry.Domain, brands); owner != nil {
			target = owner.Name
		} else if best.Entry.Domain != "" {
			target = best.Entry.Domain
		}
	}
	if hit.Brand != nil {
		verdict.ImitationScore = max(verdict.ImitationScore, hit.Score)
		if len(posture) > 0 {
			verdict.IsPotentialImitation = true
		}
		if target == "" {
			target = hit.Brand.Name
		}
	}
	verdict.ImitationScore = clampScore(verdict.ImitationScore)
	if verdict.IsPotentialImitation && target != "" {
		verdict.TargetBrand = &target
	}

	verdict.SuspiciousElements = c.suspiciousElements(host, signals, topMatches, best, hit, posture)
	verdict.LegitimateIndicators = legitimateIndicators(host, signals, brands)

	if verdict.IsPotentialImitation {
		c.logger.Debug().
			Str("domain", host).
			Str("target", target).
			Int("imitation_score", verdict.ImitationScore).
			Msg("potential imitation detected")
	}

	return verdict
}

// postureFailures lists how the site falls short of what the brand would serve
func postureFailures(signals models.ProbeSignals, brand *models.BrandSignature) []string {
	var failures []string
	if brand.RequiresValidSSL && !signals.SSL.Trusted() {
		failures = append(failures, "missing valid SSL")
	}
	if brand.MinSSLGrade != "" && signals.SSL.Trusted() && signals.SSL.Grade.WorseThan(brand.MinSSLGrade) {
		failures = append(failures, fmt.Sprintf("SSL grade %s below %s", signals.SSL.Grade, brand.MinSSLGrade))
	}
	if signals.Security.Blacklisted {
		failures = append(failures, "blacklisted")
	}
	if signals.Security.PhishingRisk {
		failures = append(failures, "phishing risk")
	}
	return failures
}

func (c *ImitationClassifier) suspiciousElements(host string, signals models.ProbeSignals, matches []models.SimilarityCandidate, best *models.SimilarityCandidate, hit brandHit, posture []string) []string {
	elements := []string{}

	if hit.Brand != nil {
		elements = append(elements, fmt.Sprintf("near-identical domain to %s (%s)", hit.Brand.Name, hit.Trick))
		if len(posture) > 0 {
			elements = append(elements, fmt.Sprintf("lacks %s security posture: %s", hit.Brand.Name, strings.Join(posture, ", ")))
		}
	}
	if best != nil {
		elements = append(elements, fmt.Sprintf("closely resembles %s (%d%% similar)", best.URL, best.SimilarityScore))
	}
	for _, m := range matches {
		if m.RelationshipType == models.RelationshipSuspicious {
			elements = append(elements, fmt.Sprintf("suspicious similarity to %s", m.URL))
		}
	}

	if signals.Domain.AgeInDays < youngDomainDays {
		elements = append(elements, "domain age < 30 days")
	}
	if !signals.SSL.Trusted() {
		if c.mentionsFinance(host, signals.Content) {
			elements = append(elements, "no SSL despite financial keywords")
		} else {
			elements = append(elements, "no valid SSL certificate")
		}
	}
	if signals.Domain.WhoisPrivacyEnabled && signals.Domain.AgeInDays < recentDomainDays {
		elements = append(elements, "WHOIS privacy on a recently registered domain")
	}
	if signals.Security.Blacklisted {
		elements = append(elements, "listed on a reputation blacklist")
	}
	if signals.Security.PhishingRisk {
		elements = append(elements, "flagged for phishing risk")
	}
	if missing := missingHeaders(signals.Security.Headers); signals.Reachable && len(missing) > 0 {
		elements = append(elements, "missing security headers: "+strings.Join(missing, ", "))
	}
	if !signals.Content.HasContactInfo {
		elements = append(elements, "no contact information published")
	}
	elements = append(elements, hostnameWarnings(host)...)

	return elements
}

func legitimateIndicators(host string, signals models.ProbeSignals, brands []models.BrandSignature) []string {
	indicators := []string{}

	if owner := brandOwning(host, brands); owner != nil {
		indicators = append(indicators, fmt.Sprintf("domain belongs to %s", owner.Name))
	}
	switch {
	case signals.Domain.AgeInDays > establishedDomainDays:
		indicators = append(indicators, "domain age > 5 years")
	case signals.Domain.AgeInDays > recentDomainDays:
		indicators = append(indicators, "domain age > 1 year")
	}
	if signals.SSL.Trusted() {
		switch {
		case isExtendedValidation(signals.SSL.Issuer):
			indicators = append(indicators, "valid extended-validation SSL")
		case signals.SSL.Grade == models.SSLGradeA:
			indicators = append(indicators, "valid SSL certificate (grade A)")
		default:
			indicators = append(indicators, "valid SSL certificate")
		}
	}
	if signals.Content.HasContactInfo {
		indicators = append(indicators, "verified contact info present")
	}
	if signals.Content.HasPrivacyPolicy && signals.Content.HasTermsOfService {
		indicators = append(indicators, "privacy policy and terms of service published")
	}
	if len(missingHeaders(signals.Security.Headers)) == 0 {
		indicators = append(indicators, "full security header set")
	}
	if signals.Security.ReputationScore > 70 && !signals.Security.Blacklisted {
		indicators = append(indicators, fmt.Sprintf("good reputation score (%d)", signals.Security.ReputationScore))
	}

	return indicators
}

// mentionsFinance scans the folded hostname, title and description
func (c *ImitationClassifier) mentionsFinance(host string, content models.ContentSignals) bool {
	text := foldHomoglyphs(host) + " " + strings.ToLower(content.Title) + " " + strings.ToLower(content.Description)
	return len(c.keywords.MatchThreadSafe([]byte(text))) > 0
}

func missingHeaders(h models.SecurityHeaders) []string {
	var missing []string
	if !h.HSTS {
		missing = append(missing, "HSTS")
	}
	if !h.CSP {
		missing = append(missing, "CSP")
	}
	if !h.XFrameOptions {
		missing = append(missing, "X-Frame-Options")
	}
	return missing
}

func isExtendedValidation(issuer string) bool {
	issuer = strings.ToLower(issuer)
	return strings.Contains(issuer, "extended validation") || strings.Contains(issuer, " ev ") || strings.HasSuffix(issuer, " ev")
}
