package services

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"

	"sitetrust/internal/domain/models"
)

const (
	shingleSize = 3
	sketchSize  = 64
)

// ContentFingerprint builds a bottom-k sketch of the page text: every
// 3-word shingle is hashed and the sketchSize smallest hashes are kept.
// Two sketches compared with Jaccard estimate the overlap of the texts.
func ContentFingerprint(text string) string {
	words := textTokens(text)
	if len(words) == 0 {
		return ""
	}

	seen := make(map[uint64]struct{})
	if len(words) < shingleSize {
		seen[xxhash.Sum64String(strings.Join(words, " "))] = struct{}{}
	} else {
		for i := 0; i+shingleSize <= len(words); i++ {
			seen[xxhash.Sum64String(strings.Join(words[i:i+shingleSize], " "))] = struct{}{}
		}
	}

	hashes := make([]uint64, 0, len(seen))
	for h := range seen {
		hashes = append(hashes, h)
	}
	slices.Sort(hashes)
	if len(hashes) > sketchSize {
		hashes = hashes[:sketchSize]
	}

	parts := make([]string, len(hashes))
	for i, h := range hashes {
		parts[i] = fmt.Sprintf("%016x", h)
	}
	return strings.Join(parts, " ")
}

// VisualFingerprint is reserved for a screenshot perceptual hash. Probes do
// not carry a rendering yet, so it always yields the empty fingerprint,
// which never matches anything.
func VisualFingerprint(*models.ContentProbe) string {
	return ""
}

func textTokens(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

func tokenSet(tokens []string) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t != "" {
			set[t] = struct{}{}
		}
	}
	return set
}

// jaccard returns |a∩b| / |a∪b| scaled to 0-100. Two empty sets share nothing.
func jaccard(a, b map[string]struct{}) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for k := range a {
		if _, ok := b[k]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return int(math.Round(100 * float64(inter) / float64(union)))
}

// contentSimilarity compares two opaque content fingerprints by their
// whitespace-separated tokens
func contentSimilarity(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}
	return jaccard(tokenSet(strings.Fields(a)), tokenSet(strings.Fields(b)))
}

// structuralSimilarity compares page titles, technology stacks and social
// profile links as one prefixed token set
func structuralSimilarity(titleA string, techA, socialA []string, titleB string, techB, socialB []string) int {
	return jaccard(
		structuralTokens(titleA, techA, socialA),
		structuralTokens(titleB, techB, socialB),
	)
}

func structuralTokens(title string, technologies, socialLinks []string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range textTokens(title) {
		set["t:"+w] = struct{}{}
	}
	for _, t := range technologies {
		if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
			set["x:"+t] = struct{}{}
		}
	}
	for _, l := range socialLinks {
		if l = normalizeLink(l); l != "" {
			set["s:"+l] = struct{}{}
		}
	}
	return set
}

// normalizeLink drops scheme, "www." and trailing slashes from a profile link
func normalizeLink(link string) string {
	link = strings.ToLower(strings.TrimSpace(link))
	link = strings.TrimPrefix(link, "https://")
	link = strings.TrimPrefix(link, "http://")
	link = strings.TrimPrefix(link, "www.")
	return strings.TrimRight(link, "/")
}

// normalizeList lowercases, trims, de-duplicates and sorts values
func normalizeList(values []string, normalize func(string) string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = normalize(v); v != "" {
			out = append(out, v)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

func lowerTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
