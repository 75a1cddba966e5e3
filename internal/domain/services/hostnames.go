package services

import (
	"math"
	"net"
	"net/url"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/weppos/publicsuffix-go/publicsuffix"
	"golang.org/x/net/idna"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// parseSiteURL parses a URL that may lack a scheme and returns it together
// with its normalised ASCII hostname
func parseSiteURL(rawURL string) (*url.URL, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		rawURL = "https://" + rawURL
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", err
	}
	host, err := normalizeHost(parsed.Hostname())
	if err != nil {
		return nil, "", err
	}
	return parsed, host, nil
}

// canonicalURL rebuilds a parsed URL around its normalized host, keeping an
// explicit port and the query
func canonicalURL(parsed *url.URL, host string) string {
	hostPort := host
	if strings.Contains(host, ":") {
		hostPort = "[" + host + "]"
	}
	if p := parsed.Port(); p != "" {
		hostPort = net.JoinHostPort(host, p)
	}
	out := parsed.Scheme + "://" + hostPort + parsed.EscapedPath()
	if parsed.RawQuery != "" {
		out += "?" + parsed.RawQuery
	}
	return out
}

// normalizeHost lowercases, strips "www." and converts IDNs to ASCII
func normalizeHost(host string) (string, error) {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return "", &MalformedProbeError{Field: "url"}
	}
	if net.ParseIP(host) != nil {
		return host, nil
	}
	ascii, err := idna.Lookup.ToASCII(host)
	if err != nil {
		// Hosts that fail strict IDNA validation are often the lookalikes
		// we want to catch; fall back to the lowercased input.
		return host, nil
	}
	return ascii, nil
}

// registrableDomain returns the eTLD+1 of host, or host itself when it has none
func registrableDomain(host string) string {
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	domain, err := publicsuffix.Domain(host)
	if err != nil {
		return host
	}
	return domain
}

// hostLabels splits host into its subdomain part and registrable label,
// dropping the public suffix
func hostLabels(host string) (subdomain, label string) {
	if host == "" || net.ParseIP(host) != nil {
		return "", host
	}
	dn, err := publicsuffix.Parse(host)
	if err != nil || dn.SLD == "" {
		if i := strings.Index(host, "."); i > 0 {
			return "", host[:i]
		}
		return "", host
	}
	return dn.TRD, dn.SLD
}

// publicSuffix returns the public suffix of host ("com", "co.uk")
func publicSuffix(host string) string {
	dn, err := publicsuffix.Parse(host)
	if err != nil {
		if i := strings.LastIndex(host, "."); i >= 0 {
			return host[i+1:]
		}
		return ""
	}
	return dn.TLD
}

// hostTokens splits the non-suffix part of host on dots, hyphens and
// underscores. Punycode labels are decoded first: the hyphens of an "xn--"
// prefix are not word boundaries.
func hostTokens(host string) []string {
	sub, label := hostLabels(host)
	joined := label
	if sub != "" {
		joined = sub + "." + label
	}

	var tokens []string
	for _, l := range strings.Split(joined, ".") {
		tokens = append(tokens, strings.FieldsFunc(unicodeLabel(l), func(r rune) bool {
			return r == '-' || r == '_'
		})...)
	}
	return tokens
}

// unicodeLabel decodes a single "xn--" label, returning other labels as is
func unicodeLabel(label string) string {
	if !strings.HasPrefix(label, "xn--") {
		return label
	}
	if u, err := idna.Punycode.ToUnicode(label); err == nil {
		return u
	}
	return label
}

// confusables maps characters commonly substituted in lookalike domains to
// the Latin letter they imitate
var confusables = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '7': 't', '@': 'a', '$': 's',
	// Cyrillic
	'а': 'a', 'е': 'e', 'о': 'o', 'р': 'p', 'с': 'c', 'у': 'y', 'х': 'x',
	'і': 'i', 'ј': 'j', 'ԁ': 'd', 'ѕ': 's', 'һ': 'h', 'ӏ': 'l', 'в': 'b',
	// Greek
	'α': 'a', 'ο': 'o', 'ρ': 'p', 'ι': 'i', 'ν': 'v', 'κ': 'k', 'τ': 't',
	// Latin lookalikes that survive NFKD
	'ı': 'i', 'ɡ': 'g', 'ɑ': 'a', 'ł': 'l', 'ø': 'o', 'đ': 'd',
}

var multiCharConfusables = strings.NewReplacer("rn", "m", "vv", "w")

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// foldHomoglyphs reduces s to the Latin skeleton a human would read. It is
// applied to both sides of every comparison, so comparisons stay symmetric.
func foldHomoglyphs(s string) string {
	s = strings.ToLower(s)
	if strings.Contains(s, "xn--") {
		labels := strings.Split(s, ".")
		for i, l := range labels {
			labels[i] = unicodeLabel(l)
		}
		s = strings.Join(labels, ".")
	}
	if folded, _, err := transform.String(stripMarks, s); err == nil {
		s = folded
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if c, ok := confusables[r]; ok {
			r = c
		}
		b.WriteRune(r)
	}
	return multiCharConfusables.Replace(b.String())
}

// levenshteinRatio returns 100 for identical strings and 0 for entirely
// different ones
func levenshteinRatio(a, b string) float64 {
	la, lb := utf8.RuneCountInString(a), utf8.RuneCountInString(b)
	longest := max(la, lb)
	if longest == 0 {
		return 0
	}
	d := fuzzy.LevenshteinDistance(a, b)
	return 100 * (1 - float64(d)/float64(longest))
}

// domainSimilarity scores how closely two hostnames resemble each other on a
// 0-100 scale. Typosquats such as paypa1.com vs paypal.com score >= 90.
func domainSimilarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if registrableDomain(a) == registrableDomain(b) {
		return 100
	}

	_, la := hostLabels(a)
	_, lb := hostLabels(b)
	fa, fb := foldHomoglyphs(la), foldHomoglyphs(lb)
	if fa == fb {
		return 95
	}

	best := max(levenshteinRatio(la, lb), levenshteinRatio(fa, fb))

	short, long := fa, fb
	if len(short) > len(long) {
		short, long = long, short
	}
	if len(short) >= 4 && strings.Contains(long, short) {
		best = math.Max(best, 85)
	}

	return clampScore(int(math.Round(best)))
}

// sameSite reports whether two hosts share a registrable domain
func sameSite(a, b string) bool {
	return a != "" && b != "" && registrableDomain(a) == registrableDomain(b)
}

func clampScore(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
