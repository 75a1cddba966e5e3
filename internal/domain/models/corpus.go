package models

import (
	"time"

	"github.com/google/uuid"
)

// CorpusEntry is one previously verified site. Entries are append-only and
// never mutated once written.
type CorpusEntry struct {
	ID                 uuid.UUID `json:"id"`
	URL                string    `json:"url"`
	Domain             string    `json:"domain"`
	RegistrableDomain  string    `json:"registrableDomain,omitempty"`
	ContentFingerprint string    `json:"contentFingerprint"`
	VisualFingerprint  string    `json:"visualFingerprint"`
	Title              string    `json:"title,omitempty"`
	Technologies       []string  `json:"technologies,omitempty"`
	SocialLinks        []string  `json:"socialLinks,omitempty"`
	CreatedAt          time.Time `json:"createdAt"`
}

// SiteFingerprints are the comparable attributes of the site under verification
type SiteFingerprints struct {
	URL          string   `json:"url"`
	Domain       string   `json:"domain"`
	Registrable  string   `json:"registrableDomain,omitempty"`
	Content      string   `json:"contentFingerprint"`
	Visual       string   `json:"visualFingerprint"`
	Title        string   `json:"title,omitempty"`
	Technologies []string `json:"technologies,omitempty"`
	SocialLinks  []string `json:"socialLinks,omitempty"`
}

// ToCorpusEntry turns a completed verification's fingerprints into the entry
// appended to the corpus
func (f SiteFingerprints) ToCorpusEntry(id uuid.UUID, createdAt time.Time) CorpusEntry {
	return CorpusEntry{
		ID:                 id,
		URL:                f.URL,
		Domain:             f.Domain,
		RegistrableDomain:  f.Registrable,
		ContentFingerprint: f.Content,
		VisualFingerprint:  f.Visual,
		Title:              f.Title,
		Technologies:       f.Technologies,
		SocialLinks:        f.SocialLinks,
		CreatedAt:          createdAt,
	}
}

// RelationshipType classifies how a corpus entry relates to the candidate site
type RelationshipType string

const (
	RelationshipDuplicate  RelationshipType = "duplicate"
	RelationshipSimilar    RelationshipType = "similar"
	RelationshipImitation  RelationshipType = "imitation"
	RelationshipSuspicious RelationshipType = "suspicious"
)

// SimilarityBreakdown holds the per-dimension scores, each 0-100
type SimilarityBreakdown struct {
	ContentSimilarity    int `json:"contentSimilarity"`
	DomainSimilarity     int `json:"domainSimilarity"`
	StructuralSimilarity int `json:"structuralSimilarity"`
}

// SimilarityCandidate is one corpus entry related to the candidate site
type SimilarityCandidate struct {
	CorpusEntryID    uuid.UUID            `json:"corpusEntryRef"`
	URL              string               `json:"urlOfMatch"`
	SimilarityScore  int                  `json:"similarityScore"`
	RelationshipType RelationshipType     `json:"relationshipType"`
	ExactMatch       bool                 `json:"exactMatch,omitempty"`
	Breakdown        *SimilarityBreakdown `json:"breakdown,omitempty"`
	CreatedAt        time.Time            `json:"createdAt"`

	Entry CorpusEntry `json:"-"`
}
