package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/infrastructure/database"
)

// Repositories groups the repositories backed by one database
type Repositories struct {
	db            *database.PostgresDB
	Corpus        *CorpusRepository
	Verifications *VerificationRepository
}

// NewRepositories creates every repository over db
func NewRepositories(db *database.PostgresDB, corpusLimit int, corpusWindow time.Duration) *Repositories {
	pool := db.Pool()
	return &Repositories{
		db:            db,
		Corpus:        NewCorpusRepository(pool, corpusLimit, corpusWindow),
		Verifications: NewVerificationRepository(pool),
	}
}

// SaveVerification stores a result together with the corpus entry built from
// its fingerprints, in a single transaction
func (r *Repositories) SaveVerification(ctx context.Context, result *models.WebsiteVerificationResult) error {
	entry := result.Fingerprints.ToCorpusEntry(uuid.New(), result.CheckedAt)

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.Corpus.Insert(ctx, tx, &entry); err != nil {
			return err
		}
		return r.Verifications.Insert(ctx, tx, result, &entry.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to save verification %s: %w", result.ID, err)
	}
	return nil
}

// GetVerification retrieves a stored result by id
func (r *Repositories) GetVerification(ctx context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error) {
	return r.Verifications.GetByID(ctx, id)
}

// ListVerifications lists stored results, newest first
func (r *Repositories) ListVerifications(ctx context.Context, domain string, limit int) ([]models.VerificationSummary, error) {
	return r.Verifications.List(ctx, domain, limit)
}
