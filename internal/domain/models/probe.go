package models

import "time"

// RawProbe is a website verification payload as assembled by the probe
// collaborators. Only the reachability block is mandatory.
type RawProbe struct {
	Reachability *ReachabilityProbe `json:"reachability"`
	SSL          *SSLProbe          `json:"ssl,omitempty"`
	Domain       *DomainProbe       `json:"domain,omitempty"`
	Content      *ContentProbe      `json:"content,omitempty"`
	Reputation   *ReputationProbe   `json:"reputation,omitempty"`
}

// ReachabilityProbe is the HTTP reachability outcome
type ReachabilityProbe struct {
	HTTPStatus     *int  `json:"httpStatus"`
	ResponseTimeMs int   `json:"responseTimeMs"`
	Reachable      *bool `json:"reachable"`
}

// SSLProbe is the certificate inspection outcome
type SSLProbe struct {
	Enabled bool    `json:"enabled"`
	Valid   bool    `json:"valid"`
	Grade   string  `json:"grade"`
	Issuer  string  `json:"issuer"`
	Expiry  *string `json:"expiry,omitempty"` // ISO-8601
}

// DomainProbe is the WHOIS lookup outcome
type DomainProbe struct {
	AgeInDays           int      `json:"ageInDays"`
	Registrar           string   `json:"registrar"`
	NameServers         []string `json:"nameServers"`
	WhoisPrivacyEnabled bool     `json:"whoisPrivacyEnabled"`
}

// ContentProbe is the page content analysis outcome
type ContentProbe struct {
	Score             int      `json:"score"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Language          string   `json:"language"`
	HasContactInfo    bool     `json:"hasContactInfo"`
	HasPrivacyPolicy  bool     `json:"hasPrivacyPolicy"`
	HasTermsOfService bool     `json:"hasTermsOfService"`
	HasCookiePolicy   bool     `json:"hasCookiePolicy"`
	SocialLinks       []string `json:"socialLinks"`
	Technologies      []string `json:"technologies,omitempty"`
	Fingerprint       string   `json:"fingerprint"`
	// Text is the normalised page text. Used to build a fingerprint when the
	// probe did not supply one; never persisted.
	Text string `json:"text,omitempty"`
}

// ReputationProbe is the reputation/blocklist lookup outcome
type ReputationProbe struct {
	ReputationScore int             `json:"reputationScore"`
	Blacklisted     bool            `json:"blacklisted"`
	PhishingRisk    bool            `json:"phishingRisk"`
	SecurityHeaders SecurityHeaders `json:"securityHeaders"`
}

// SecurityHeaders records which protective response headers were observed
type SecurityHeaders struct {
	XFrameOptions bool `json:"xFrameOptions"`
	CSP           bool `json:"csp"`
	HSTS          bool `json:"hsts"`
}

// SSLGrade is a certificate grade from A (best) to F (worst)
type SSLGrade string

const (
	SSLGradeA SSLGrade = "A"
	SSLGradeB SSLGrade = "B"
	SSLGradeC SSLGrade = "C"
	SSLGradeD SSLGrade = "D"
	SSLGradeE SSLGrade = "E"
	SSLGradeF SSLGrade = "F"
)

// Rank returns 0 for A through 5 for F. Unknown grades rank as F.
func (g SSLGrade) Rank() int {
	switch g {
	case SSLGradeA:
		return 0
	case SSLGradeB:
		return 1
	case SSLGradeC:
		return 2
	case SSLGradeD:
		return 3
	case SSLGradeE:
		return 4
	default:
		return 5
	}
}

// WorseThan reports whether g ranks below other
func (g SSLGrade) WorseThan(other SSLGrade) bool {
	return g.Rank() > other.Rank()
}

// ProbeSignals is the normalised, flat signal set the scorer consumes
type ProbeSignals struct {
	Reachable      bool            `json:"reachable"`
	HTTPStatus     int             `json:"httpStatus"`
	ResponseTimeMs int             `json:"responseTimeMs"`
	SSL            SSLSignals      `json:"ssl"`
	Domain         DomainSignals   `json:"domain"`
	Content        ContentSignals  `json:"content"`
	Security       SecuritySignals `json:"security"`
}

type SSLSignals struct {
	Enabled bool       `json:"enabled"`
	Valid   bool       `json:"valid"`
	Grade   SSLGrade   `json:"grade"`
	Issuer  string     `json:"issuer"`
	Expiry  *time.Time `json:"expiry,omitempty"`
}

// Trusted reports whether the site serves a valid certificate
func (s SSLSignals) Trusted() bool {
	return s.Enabled && s.Valid
}

type DomainSignals struct {
	AgeInDays           int      `json:"ageInDays"`
	Registrar           string   `json:"registrar"`
	WhoisPrivacyEnabled bool     `json:"whoisPrivacyEnabled"`
	NameServers         []string `json:"nameServers"`
}

type ContentSignals struct {
	Score             int      `json:"score"`
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	Language          string   `json:"language"`
	HasContactInfo    bool     `json:"hasContactInfo"`
	HasPrivacyPolicy  bool     `json:"hasPrivacyPolicy"`
	HasTermsOfService bool     `json:"hasTermsOfService"`
	HasCookiePolicy   bool     `json:"hasCookiePolicy"`
	SocialLinks       []string `json:"socialLinks"`
}

type SecuritySignals struct {
	ReputationScore int             `json:"reputationScore"`
	Blacklisted     bool            `json:"blacklisted"`
	PhishingRisk    bool            `json:"phishingRisk"`
	Headers         SecurityHeaders `json:"headers"`
}
