package services

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"sitetrust/internal/domain/models"
)

// MemoryStore is an in-process ResultStore and CorpusReader, used when
// Postgres is disabled and in tests. Contents are lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	results map[uuid.UUID]*models.WebsiteVerificationResult
	order   []uuid.UUID
	corpus  []models.CorpusEntry
	limit   int
}

// NewMemoryStore creates an empty store. limit bounds corpus reads; zero
// means unbounded.
func NewMemoryStore(limit int) *MemoryStore {
	return &MemoryStore{
		results: make(map[uuid.UUID]*models.WebsiteVerificationResult),
		limit:   limit,
	}
}

// SaveVerification stores result and appends its corpus entry
func (m *MemoryStore) SaveVerification(_ context.Context, result *models.WebsiteVerificationResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *result
	m.results[result.ID] = &stored
	m.order = append(m.order, result.ID)
	m.corpus = append(m.corpus, result.Fingerprints.ToCorpusEntry(uuid.New(), result.CheckedAt))
	return nil
}

// GetVerification returns a copy of a stored result, or nil
func (m *MemoryStore) GetVerification(_ context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.results[id]
	if !ok {
		return nil, nil
	}
	out := *r
	return &out, nil
}

// ListVerifications lists results newest first. An empty domain lists all.
func (m *MemoryStore) ListVerifications(_ context.Context, domain string, limit int) ([]models.VerificationSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	summaries := make([]models.VerificationSummary, 0)
	for i := len(m.order) - 1; i >= 0 && len(summaries) < limit; i-- {
		r := m.results[m.order[i]]
		if domain != "" && r.Domain != domain {
			continue
		}
		summaries = append(summaries, models.VerificationSummary{
			ID:         r.ID,
			URL:        r.URL,
			Domain:     r.Domain,
			TrustScore: r.TrustScore,
			RiskLevel:  r.RiskLevel,
			CheckedAt:  r.CheckedAt,
		})
	}
	return summaries, nil
}

// ListRecentEntries returns a snapshot of entries from sites other than
// domainHint, newest first
func (m *MemoryStore) ListRecentEntries(_ context.Context, domainHint string) ([]models.CorpusEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]models.CorpusEntry, 0, len(m.corpus))
	for i := len(m.corpus) - 1; i >= 0; i-- {
		e := m.corpus[i]
		if e.RegistrableDomain == domainHint {
			continue
		}
		e.Technologies = slices.Clone(e.Technologies)
		e.SocialLinks = slices.Clone(e.SocialLinks)
		entries = append(entries, e)
		if m.limit > 0 && len(entries) >= m.limit {
			break
		}
	}
	return entries, nil
}

// CorpusSize returns the number of corpus entries
func (m *MemoryStore) CorpusSize() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.corpus)
}
