package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/infrastructure/database"
)

const corpusColumns = `
	id, url, domain, registrable_domain, content_fingerprint, visual_fingerprint,
	title, technologies, social_links, created_at`

// CorpusRepository handles persistence of previously verified sites.
// Entries are append-only.
type CorpusRepository struct {
	pool          *pgxpool.Pool
	limit         int
	recencyWindow time.Duration
}

// NewCorpusRepository creates a new corpus repository. limit bounds how many
// entries one corpus read returns; recencyWindow, when set, excludes older
// entries at query time.
func NewCorpusRepository(pool *pgxpool.Pool, limit int, recencyWindow time.Duration) *CorpusRepository {
	if limit <= 0 {
		limit = 5000
	}
	return &CorpusRepository{pool: pool, limit: limit, recencyWindow: recencyWindow}
}

// Insert appends an entry using db, which may be a transaction
func (r *CorpusRepository) Insert(ctx context.Context, db database.DBTX, e *models.CorpusEntry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO website_corpus (` + corpusColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := db.Exec(ctx, query,
		e.ID, e.URL, e.Domain, e.RegistrableDomain, e.ContentFingerprint, e.VisualFingerprint,
		e.Title, stringsOrEmpty(e.Technologies), stringsOrEmpty(e.SocialLinks), e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert corpus entry: %w", err)
	}
	return nil
}

// ListRecentEntries returns the most recent entries from other sites, newest
// first. Entries of domainHint itself are earlier verifications of the same
// site and are left out.
func (r *CorpusRepository) ListRecentEntries(ctx context.Context, domainHint string) ([]models.CorpusEntry, error) {
	var since pgtype.Timestamptz
	if r.recencyWindow > 0 {
		since = timeToTimestamptz(time.Now().UTC().Add(-r.recencyWindow))
	}

	query := `
		SELECT ` + corpusColumns + `
		FROM website_corpus
		WHERE registrable_domain <> $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		ORDER BY created_at DESC
		LIMIT $3`

	rows, err := r.pool.Query(ctx, query, domainHint, since, r.limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list corpus entries: %w", err)
	}
	defer rows.Close()

	entries := make([]models.CorpusEntry, 0)
	for rows.Next() {
		e, err := r.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate corpus entries: %w", err)
	}

	return entries, nil
}

// GetByID retrieves a single entry
func (r *CorpusRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.CorpusEntry, error) {
	query := `SELECT ` + corpusColumns + ` FROM website_corpus WHERE id = $1`

	e, err := r.scanEntry(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

// Count returns the corpus size
func (r *CorpusRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM website_corpus`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count corpus entries: %w", err)
	}
	return n, nil
}

func (r *CorpusRepository) scanEntry(row pgx.Row) (*models.CorpusEntry, error) {
	var (
		e         models.CorpusEntry
		createdAt pgtype.Timestamptz
	)
	err := row.Scan(
		&e.ID, &e.URL, &e.Domain, &e.RegistrableDomain, &e.ContentFingerprint, &e.VisualFingerprint,
		&e.Title, &e.Technologies, &e.SocialLinks, &createdAt,
	)
	if err != nil {
		if isNoRows(err) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan corpus entry: %w", err)
	}
	e.CreatedAt = timestamptzToTime(createdAt)
	return &e, nil
}
