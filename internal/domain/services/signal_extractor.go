package services

import (
	"strings"
	"time"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

// SignalExtractor normalises raw probe results into the flat signal set the
// scorer consumes. It performs no I/O.
type SignalExtractor struct {
	logger *logger.Logger
}

// NewSignalExtractor creates a new SignalExtractor
func NewSignalExtractor(log *logger.Logger) *SignalExtractor {
	return &SignalExtractor{
		logger: log.WithComponent("signal-extractor"),
	}
}

// Extract validates the mandatory reachability outcome and fills every
// optional block with absent/neutral defaults. Missing data therefore lowers
// the trust score instead of raising it.
func (e *SignalExtractor) Extract(raw *models.RawProbe) (*models.ProbeSignals, error) {
	if raw == nil || raw.Reachability == nil {
		return nil, &MalformedProbeError{Field: "reachability"}
	}
	if raw.Reachability.Reachable == nil {
		return nil, &MalformedProbeError{Field: "reachability.reachable"}
	}
	if raw.Reachability.HTTPStatus == nil {
		return nil, &MalformedProbeError{Field: "reachability.httpStatus"}
	}

	signals := &models.ProbeSignals{
		Reachable:      *raw.Reachability.Reachable,
		HTTPStatus:     *raw.Reachability.HTTPStatus,
		ResponseTimeMs: max(raw.Reachability.ResponseTimeMs, 0),
		SSL:            models.SSLSignals{Grade: models.SSLGradeF},
		Domain:         models.DomainSignals{NameServers: []string{}},
		Content:        models.ContentSignals{SocialLinks: []string{}},
	}

	if ssl := raw.SSL; ssl != nil {
		signals.SSL = models.SSLSignals{
			Enabled: ssl.Enabled,
			Valid:   ssl.Valid,
			Grade:   parseSSLGrade(ssl.Grade),
			Issuer:  strings.TrimSpace(ssl.Issuer),
			Expiry:  parseExpiry(ssl.Expiry),
		}
		if ssl.Valid && !ssl.Enabled {
			e.logger.Debug().Msg("ssl probe reported valid certificate with ssl disabled")
		}
	}

	if d := raw.Domain; d != nil {
		signals.Domain = models.DomainSignals{
			AgeInDays:           max(d.AgeInDays, 0),
			Registrar:           strings.TrimSpace(d.Registrar),
			WhoisPrivacyEnabled: d.WhoisPrivacyEnabled,
			NameServers:         normalizeList(d.NameServers, lowerTrim),
		}
	}

	if c := raw.Content; c != nil {
		signals.Content = models.ContentSignals{
			Score:             clampScore(c.Score),
			Title:             strings.TrimSpace(c.Title),
			Description:       strings.TrimSpace(c.Description),
			Language:          lowerTrim(c.Language),
			HasContactInfo:    c.HasContactInfo,
			HasPrivacyPolicy:  c.HasPrivacyPolicy,
			HasTermsOfService: c.HasTermsOfService,
			HasCookiePolicy:   c.HasCookiePolicy,
			SocialLinks:       normalizeList(c.SocialLinks, strings.TrimSpace),
		}
	}

	if r := raw.Reputation; r != nil {
		signals.Security = models.SecuritySignals{
			ReputationScore: clampScore(r.ReputationScore),
			Blacklisted:     r.Blacklisted,
			PhishingRisk:    r.PhishingRisk,
			Headers:         r.SecurityHeaders,
		}
	}

	return signals, nil
}

// Fingerprints collects the comparable attributes of a site. host must
// already be normalised.
func (e *SignalExtractor) Fingerprints(siteURL, host string, raw *models.RawProbe) models.SiteFingerprints {
	fp := models.SiteFingerprints{
		URL:          siteURL,
		Domain:       host,
		Registrable:  registrableDomain(host),
		Technologies: []string{},
		SocialLinks:  []string{},
	}
	if raw == nil || raw.Content == nil {
		return fp
	}

	c := raw.Content
	fp.Content = strings.TrimSpace(c.Fingerprint)
	if fp.Content == "" && strings.TrimSpace(c.Text) != "" {
		fp.Content = ContentFingerprint(c.Text)
	}
	fp.Visual = VisualFingerprint(c)
	fp.Title = strings.TrimSpace(c.Title)
	fp.Technologies = normalizeList(c.Technologies, lowerTrim)
	fp.SocialLinks = normalizeList(c.SocialLinks, normalizeLink)
	return fp
}

// parseSSLGrade maps free-form grades ("A+", "b", "T") onto A..F
func parseSSLGrade(grade string) models.SSLGrade {
	grade = strings.ToUpper(strings.TrimSpace(grade))
	if grade == "" {
		return models.SSLGradeF
	}
	switch g := models.SSLGrade(grade[:1]); g {
	case models.SSLGradeA, models.SSLGradeB, models.SSLGradeC, models.SSLGradeD, models.SSLGradeE:
		return g
	default:
		return models.SSLGradeF
	}
}

func parseExpiry(expiry *string) *time.Time {
	if expiry == nil {
		return nil
	}
	s := strings.TrimSpace(*expiry)
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}
