package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitetrust/internal/domain/models"
	"sitetrust/pkg/logger"
)

func youngUnsecuredSignals() models.ProbeSignals {
	return models.ProbeSignals{
		Reachable:  true,
		HTTPStatus: 200,
		SSL:        models.SSLSignals{Grade: models.SSLGradeF},
		Domain:     models.DomainSignals{AgeInDays: 10},
	}
}

func establishedSignals() models.ProbeSignals {
	return models.ProbeSignals{
		Reachable:  true,
		HTTPStatus: 200,
		SSL:        models.SSLSignals{Enabled: true, Valid: true, Grade: models.SSLGradeA, Issuer: "DigiCert Extended Validation Server CA"},
		Domain:     models.DomainSignals{AgeInDays: 9000},
		Content:    models.ContentSignals{Score: 90, HasContactInfo: true, HasPrivacyPolicy: true, HasTermsOfService: true},
		Security: models.SecuritySignals{
			ReputationScore: 95,
			Headers:         models.SecurityHeaders{XFrameOptions: true, CSP: true, HSTS: true},
		},
	}
}

func TestBrandHitFor(t *testing.T) {
	brands := DefaultBrandSignatures()

	tests := []struct {
		host      string
		wantBrand string
		wantScore int
	}{
		{"paypa1.com", "PayPal", 90},
		{"paypa1-secure.com", "PayPal", 90},
		{"paypal-secure.com", "PayPal", 75},
		{"paypal.support", "PayPal", 80},
		{"securepaypal.net", "PayPal", 70},
		{"netflx.com", "Netflix", 86},
		{"paypal.com", "", 0},
		{"login.paypal.com", "", 0},
		{"riverside-bakery.com", "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			hit := brandHitFor(tt.host, brands)
			assert.Equal(t, tt.wantScore, hit.Score)
			if tt.wantBrand == "" {
				assert.Nil(t, hit.Brand)
				return
			}
			require.NotNil(t, hit.Brand)
			assert.Equal(t, tt.wantBrand, hit.Brand.Name)
		})
	}
}

func TestBrandHitFor_IDNHomoglyphs(t *testing.T) {
	brands := DefaultBrandSignatures()

	tests := []struct {
		name      string
		host      string
		wantBrand string
	}{
		{"all cyrillic paypal", "раураl.com", "PayPal"},
		{"single cyrillic a", "pаypal.com", "PayPal"},
		{"cyrillic apple with palochka", "аррӏе.com", "Apple"},
		{"cyrillic paypal with suffix word", "раураl-login.com", "PayPal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, err := normalizeHost(tt.host)
			require.NoError(t, err)

			hit := brandHitFor(host, brands)
			require.NotNil(t, hit.Brand)
			assert.Equal(t, tt.wantBrand, hit.Brand.Name)
			assert.Equal(t, 90, hit.Score)
			assert.Equal(t, "homoglyph substitution", hit.Trick)
		})
	}
}

func TestClassify_IDNHomoglyphWithoutSSL(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	host, err := normalizeHost("аррӏе.com")
	require.NoError(t, err)
	verdict := c.Classify(host, youngUnsecuredSignals(), nil, DefaultBrandSignatures())

	assert.True(t, verdict.IsPotentialImitation)
	require.NotNil(t, verdict.TargetBrand)
	assert.Equal(t, "Apple", *verdict.TargetBrand)
	assert.Equal(t, 90, verdict.ImitationScore)
	assert.Contains(t, verdict.SuspiciousElements, "near-identical domain to Apple (homoglyph substitution)")
}

func TestClassify_HomoglyphWithoutSSL(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	verdict := c.Classify("paypa1-secure.com", youngUnsecuredSignals(), nil, DefaultBrandSignatures())

	assert.True(t, verdict.IsPotentialImitation)
	require.NotNil(t, verdict.TargetBrand)
	assert.Equal(t, "PayPal", *verdict.TargetBrand)
	assert.Equal(t, 90, verdict.ImitationScore)
	assert.Contains(t, verdict.SuspiciousElements, "domain age < 30 days")
	assert.Contains(t, verdict.SuspiciousElements, "no SSL despite financial keywords")
	assert.Contains(t, verdict.SuspiciousElements, "near-identical domain to PayPal (homoglyph substitution)")
	assert.Contains(t, verdict.SuspiciousElements, "credential keyword in hostname")
}

func TestClassify_BrandHitWithGoodPostureIsNotImitation(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	verdict := c.Classify("paypal-community.org", establishedSignals(), nil, DefaultBrandSignatures())

	assert.False(t, verdict.IsPotentialImitation)
	assert.Nil(t, verdict.TargetBrand)
	assert.Equal(t, 75, verdict.ImitationScore)
}

func TestClassify_WeakSSLGradeIsPostureFailure(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	signals := establishedSignals()
	signals.SSL.Grade = models.SSLGradeC
	verdict := c.Classify("paypal-community.org", signals, nil, DefaultBrandSignatures())

	assert.True(t, verdict.IsPotentialImitation)
	assert.Contains(t, verdict.SuspiciousElements, "lacks PayPal security posture: SSL grade C below A")
}

func TestClassify_ImitationCandidate(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	candidate := models.SimilarityCandidate{
		CorpusEntryID:    uuid.New(),
		URL:              "https://www.netflix.com/",
		SimilarityScore:  78,
		RelationshipType: models.RelationshipImitation,
		Entry:            models.CorpusEntry{Domain: "netflix.com"},
	}
	signals := establishedSignals()

	verdict := c.Classify("streamflix-watch.com", signals, []models.SimilarityCandidate{candidate}, DefaultBrandSignatures())

	assert.True(t, verdict.IsPotentialImitation)
	require.NotNil(t, verdict.TargetBrand)
	assert.Equal(t, "Netflix", *verdict.TargetBrand)
	assert.Equal(t, 78, verdict.ImitationScore)
	assert.Contains(t, verdict.SuspiciousElements, "closely resembles https://www.netflix.com/ (78% similar)")
}

func TestClassify_LegitimateBrandSite(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	verdict := c.Classify("paypal.com", establishedSignals(), nil, DefaultBrandSignatures())

	assert.False(t, verdict.IsPotentialImitation)
	assert.Zero(t, verdict.ImitationScore)
	assert.Empty(t, verdict.SuspiciousElements)
	assert.Equal(t, []string{
		"domain belongs to PayPal",
		"domain age > 5 years",
		"valid extended-validation SSL",
		"verified contact info present",
		"privacy policy and terms of service published",
		"full security header set",
		"good reputation score (95)",
	}, verdict.LegitimateIndicators)
}

func TestClassify_NoSSLWithoutFinancialKeywords(t *testing.T) {
	c := NewImitationClassifier(logger.NewNop())

	signals := youngUnsecuredSignals()
	signals.Content.Title = "Riverside Bakery"
	verdict := c.Classify("riverside-bakery.com", signals, nil, DefaultBrandSignatures())

	assert.False(t, verdict.IsPotentialImitation)
	assert.Contains(t, verdict.SuspiciousElements, "no valid SSL certificate")
	assert.NotContains(t, verdict.SuspiciousElements, "no SSL despite financial keywords")
	assert.Contains(t, verdict.SuspiciousElements, "missing security headers: HSTS, CSP, X-Frame-Options")
}

func TestHostnameWarnings(t *testing.T) {
	assert.Contains(t, hostnameWarnings("login.secure-pay.xyz"), "credential subdomain on a free TLD")
	assert.Contains(t, hostnameWarnings("login.secure-pay.xyz"), "domain uses a high-risk TLD")
	assert.Equal(t, []string{"URL uses IP address instead of domain name"}, hostnameWarnings("203.0.113.7"))
	assert.Empty(t, hostnameWarnings("riverside-bakery.com"))
}

func TestNewBrandCatalog_OverridesByName(t *testing.T) {
	catalog := NewBrandCatalog(BrandsFromConfig(nil))
	assert.Len(t, catalog.Signatures(), len(DefaultBrandSignatures()))

	extra := []models.BrandSignature{
		{Name: "paypal", Domains: []string{"paypal.com", "paypal.co"}, Tokens: []string{"paypal"}},
		{Name: "Riverside Bank", Domains: []string{"riversidebank.com"}, Tokens: []string{"riversidebank"}},
	}
	catalog = NewBrandCatalog(extra)

	assert.Len(t, catalog.Signatures(), len(DefaultBrandSignatures())+1)
	owner := catalog.OwnerOf("www.paypal.co")
	require.NotNil(t, owner)
	assert.Equal(t, "paypal", owner.Name)
	require.NotNil(t, catalog.OwnerOf("online.riversidebank.com"))
	assert.Nil(t, catalog.OwnerOf("riversidebank.net"))
}
