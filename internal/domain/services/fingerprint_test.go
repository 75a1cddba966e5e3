package services

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const samplePage = `Welcome to the Riverside Bakery. We bake fresh sourdough bread every
morning and deliver across the valley. Order cakes for birthdays and weddings, or
visit our shop on Main Street for coffee and pastries.`

func TestContentFingerprint_Deterministic(t *testing.T) {
	a := ContentFingerprint(samplePage)
	b := ContentFingerprint(samplePage)
	assert.NotEmpty(t, a)
	assert.Equal(t, a, b)
}

func TestContentFingerprint_IgnoresCaseAndPunctuation(t *testing.T) {
	shouted := strings.ToUpper(strings.ReplaceAll(samplePage, ".", "!"))
	assert.Equal(t, ContentFingerprint(samplePage), ContentFingerprint(shouted))
}

func TestContentFingerprint_Empty(t *testing.T) {
	assert.Empty(t, ContentFingerprint(""))
	assert.Empty(t, ContentFingerprint("  ...  "))
	assert.NotEmpty(t, ContentFingerprint("hello"))
}

func TestContentFingerprint_SketchSize(t *testing.T) {
	words := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		words = append(words, strings.Repeat(string(rune('a'+i%26)), 1+i%7))
	}
	fp := ContentFingerprint(strings.Join(words, " "))
	assert.Len(t, strings.Fields(fp), sketchSize)
}

func TestContentSimilarity(t *testing.T) {
	a := ContentFingerprint(samplePage)
	edited := ContentFingerprint(samplePage + " Gift cards available at the counter.")
	other := ContentFingerprint("Quarterly earnings report for the semiconductor division shows strong growth.")

	assert.Equal(t, 100, contentSimilarity(a, a))
	assert.Greater(t, contentSimilarity(a, edited), 60)
	assert.Less(t, contentSimilarity(a, other), 10)
	assert.Equal(t, contentSimilarity(a, edited), contentSimilarity(edited, a))
	assert.Equal(t, 0, contentSimilarity("", a))
}

func TestJaccard(t *testing.T) {
	a := tokenSet([]string{"a", "b", "c", "d"})
	b := tokenSet([]string{"c", "d", "e", "f"})
	assert.Equal(t, 33, jaccard(a, b))
	assert.Equal(t, 0, jaccard(a, nil))
	assert.Equal(t, 0, jaccard(nil, nil))
}

func TestStructuralSimilarity(t *testing.T) {
	got := structuralSimilarity(
		"PayPal: Log in", []string{"React", "Cloudflare"}, []string{"https://twitter.com/paypal/"},
		"paypal log in", []string{"cloudflare", "react"}, []string{"twitter.com/PayPal"},
	)
	assert.Equal(t, 100, got)

	assert.Equal(t, 0, structuralSimilarity("", nil, nil, "", nil, nil))
}

func TestNormalizeList(t *testing.T) {
	got := normalizeList([]string{" React", "react", "", "Vue"}, lowerTrim)
	assert.Equal(t, []string{"react", "vue"}, got)
}
