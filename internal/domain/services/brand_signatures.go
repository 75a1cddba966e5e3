package services

import (
	"math"
	"net"
	"regexp"
	"strings"

	"sitetrust/internal/config"
	"sitetrust/internal/domain/models"
)

// DefaultBrandSignatures returns the brands imitation detection protects out
// of the box
func DefaultBrandSignatures() []models.BrandSignature {
	return []models.BrandSignature{
		{Name: "PayPal", Domains: []string{"paypal.com", "paypal.me"}, Tokens: []string{"paypal"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
		{Name: "Amazon", Domains: []string{"amazon.com", "amazon.co.uk", "amazon.de", "amazonaws.com"}, Tokens: []string{"amazon"}, Category: models.BrandCategoryRetail, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeB},
		{Name: "Apple", Domains: []string{"apple.com", "icloud.com"}, Tokens: []string{"apple", "icloud"}, Category: models.BrandCategoryTech, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeB},
		{Name: "Google", Domains: []string{"google.com", "gmail.com", "youtube.com"}, Tokens: []string{"google", "gmail"}, Category: models.BrandCategoryTech, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeB},
		{Name: "Microsoft", Domains: []string{"microsoft.com", "live.com", "outlook.com", "office.com"}, Tokens: []string{"microsoft", "outlook", "office365"}, Category: models.BrandCategoryTech, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeB},
		{Name: "Netflix", Domains: []string{"netflix.com"}, Tokens: []string{"netflix"}, Category: models.BrandCategoryMedia, RequiresValidSSL: true},
		{Name: "USPS", Domains: []string{"usps.com"}, Tokens: []string{"usps"}, Category: models.BrandCategoryLogistics, RequiresValidSSL: true},
		{Name: "UPS", Domains: []string{"ups.com"}, Tokens: []string{"ups"}, Category: models.BrandCategoryLogistics, RequiresValidSSL: true},
		{Name: "FedEx", Domains: []string{"fedex.com"}, Tokens: []string{"fedex"}, Category: models.BrandCategoryLogistics, RequiresValidSSL: true},
		{Name: "Chase", Domains: []string{"chase.com"}, Tokens: []string{"chase"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
		{Name: "Wells Fargo", Domains: []string{"wellsfargo.com", "wf.com"}, Tokens: []string{"wellsfargo"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
		{Name: "Bank of America", Domains: []string{"bankofamerica.com", "bofa.com"}, Tokens: []string{"bankofamerica"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
		{Name: "Citibank", Domains: []string{"citibank.com", "citi.com"}, Tokens: []string{"citibank"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
		{Name: "Coinbase", Domains: []string{"coinbase.com"}, Tokens: []string{"coinbase"}, Category: models.BrandCategoryFinancial, RequiresValidSSL: true, MinSSLGrade: models.SSLGradeA},
	}
}

// BrandsFromConfig converts configured brand entries to signatures. Tokens
// default to the first label of each domain.
func BrandsFromConfig(cfgs []config.BrandConfig) []models.BrandSignature {
	brands := make([]models.BrandSignature, 0, len(cfgs))
	for _, c := range cfgs {
		b := models.BrandSignature{
			Name:             c.Name,
			Domains:          normalizeList(c.Domains, lowerTrim),
			Tokens:           normalizeList(c.Tokens, lowerTrim),
			Category:         models.BrandCategory(lowerTrim(c.Category)),
			RequiresValidSSL: c.RequiresValidSSL,
		}
		if c.MinSSLGrade != "" {
			b.MinSSLGrade = parseSSLGrade(c.MinSSLGrade)
		}
		if len(b.Tokens) == 0 {
			for _, d := range b.Domains {
				if _, label := hostLabels(d); label != "" {
					b.Tokens = append(b.Tokens, label)
				}
			}
		}
		brands = append(brands, b)
	}
	return brands
}

// BrandCatalog is the set of brands checked during a verification. Configured
// brands replace a default of the same name.
type BrandCatalog struct {
	brands []models.BrandSignature
}

// NewBrandCatalog merges the defaults with extra signatures
func NewBrandCatalog(extra []models.BrandSignature) *BrandCatalog {
	byName := make(map[string]int)
	brands := make([]models.BrandSignature, 0, len(extra)+16)
	for _, b := range append(DefaultBrandSignatures(), extra...) {
		key := strings.ToLower(b.Name)
		if i, ok := byName[key]; ok {
			brands[i] = b
			continue
		}
		byName[key] = len(brands)
		brands = append(brands, b)
	}
	return &BrandCatalog{brands: brands}
}

// Signatures returns a copy of the catalog
func (c *BrandCatalog) Signatures() []models.BrandSignature {
	out := make([]models.BrandSignature, len(c.brands))
	copy(out, c.brands)
	return out
}

// OwnerOf returns the brand that legitimately owns host, if any
func (c *BrandCatalog) OwnerOf(host string) *models.BrandSignature {
	return brandOwning(host, c.brands)
}

func brandOwning(host string, brands []models.BrandSignature) *models.BrandSignature {
	host = strings.ToLower(host)
	for i := range brands {
		for _, d := range brands[i].Domains {
			if host == d || strings.HasSuffix(host, "."+d) {
				return &brands[i]
			}
		}
	}
	return nil
}

// brandHit is the strongest brand-token resemblance found in a hostname
type brandHit struct {
	Brand *models.BrandSignature
	Token string
	Score int
	Trick string
}

const minBrandHitScore = 70

// brandHitFor scores host against every brand token. Hosts owned by a brand
// never produce a hit.
func brandHitFor(host string, brands []models.BrandSignature) brandHit {
	var best brandHit
	if host == "" || net.ParseIP(host) != nil || brandOwning(host, brands) != nil {
		return best
	}

	tokens := hostTokens(host)
	for i := range brands {
		for _, brandToken := range brands[i].Tokens {
			brandToken = strings.ToLower(brandToken)
			folded := foldHomoglyphs(brandToken)
			for _, raw := range tokens {
				score, trick := tokenResemblance(raw, brandToken, folded, len(tokens) > 1)
				if score > best.Score {
					best = brandHit{Brand: &brands[i], Token: raw, Score: score, Trick: trick}
				}
			}
		}
	}
	if best.Score < minBrandHitScore {
		return brandHit{}
	}
	return best
}

func tokenResemblance(raw, brand, foldedBrand string, hasExtraTokens bool) (int, string) {
	folded := foldHomoglyphs(raw)
	switch {
	case folded == foldedBrand && raw != brand:
		return 90, "homoglyph substitution"
	case raw == brand && hasExtraTokens:
		return 75, "brand name with added words"
	case raw == brand:
		return 80, "brand name on unrelated domain"
	}

	score := 0
	trick := ""
	if len(foldedBrand) >= 5 && len(folded) >= 4 {
		if r := levenshteinRatio(folded, foldedBrand); r >= 80 {
			score, trick = min(int(math.Round(r)), 89), "misspelled brand name"
		}
	}
	if len(foldedBrand) >= 4 && strings.Contains(folded, foldedBrand) {
		embedded := 70
		if !strings.Contains(raw, brand) {
			embedded = 80
		}
		if embedded > score {
			score, trick = embedded, "brand name embedded in longer label"
		}
	}
	return score, trick
}

// DomainPattern is a hostname shape commonly used by phishing kits
type DomainPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

var domainPatterns = []DomainPattern{
	{
		Name:        "login_subdomain",
		Pattern:     regexp.MustCompile(`(?i)(login|signin|secure|account|verify|update)\.[a-z0-9-]+\.(xyz|top|club|work|click|link|gq|ml|cf|tk|ga)$`),
		Description: "credential subdomain on a free TLD",
	},
	{
		Name:        "credential_label",
		Pattern:     regexp.MustCompile(`(?i)(^|[.-])(login|signin|secure|verify|account|update|support)[.-]`),
		Description: "credential keyword in hostname",
	},
}

var highRiskTLDs = map[string]bool{
	"xyz": true, "top": true, "club": true, "work": true, "click": true, "link": true,
	"gq": true, "ml": true, "cf": true, "tk": true, "ga": true, "buzz": true, "icu": true,
}

// hostnameWarnings lists structural red flags of a hostname
func hostnameWarnings(host string) []string {
	var warnings []string
	if net.ParseIP(host) != nil {
		return append(warnings, "URL uses IP address instead of domain name")
	}
	if highRiskTLDs[publicSuffix(host)] {
		warnings = append(warnings, "domain uses a high-risk TLD")
	}
	if len(strings.Split(host, ".")) > 4 {
		warnings = append(warnings, "unusually complex domain structure")
	}
	if len(host) > 50 {
		warnings = append(warnings, "domain name is unusually long")
	}
	for _, p := range domainPatterns {
		if p.Pattern.MatchString(host) {
			warnings = append(warnings, p.Description)
		}
	}
	return warnings
}
