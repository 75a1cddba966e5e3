package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"sitetrust/internal/domain/models"
	"sitetrust/internal/infrastructure/database"
)

// VerificationRepository stores verification results. The full result is
// kept as JSONB in exactly the shape returned to clients; a handful of
// columns are broken out for listing.
type VerificationRepository struct {
	pool *pgxpool.Pool
}

// NewVerificationRepository creates a new verification repository
func NewVerificationRepository(pool *pgxpool.Pool) *VerificationRepository {
	return &VerificationRepository{pool: pool}
}

// Insert writes a result using db, which may be a transaction
func (r *VerificationRepository) Insert(ctx context.Context, db database.DBTX, result *models.WebsiteVerificationResult, corpusEntryID *uuid.UUID) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to encode verification result: %w", err)
	}

	query := `
		INSERT INTO verification_results (
			id, url, domain, trust_score, risk_level, corpus_entry_id, result, checked_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err = db.Exec(ctx, query,
		result.ID, result.URL, result.Domain, result.TrustScore, string(result.RiskLevel),
		uuidToNullUUID(corpusEntryID), payload, timeToTimestamptz(result.CheckedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert verification result: %w", err)
	}
	return nil
}

// GetByID retrieves a stored result. It returns nil, nil when none exists.
func (r *VerificationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.WebsiteVerificationResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT result FROM verification_results WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if isNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get verification result: %w", err)
	}

	var result models.WebsiteVerificationResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, fmt.Errorf("failed to decode verification result %s: %w", id, err)
	}
	return &result, nil
}

// List returns result summaries, newest first. An empty domain lists all.
func (r *VerificationRepository) List(ctx context.Context, domain string, limit int) ([]models.VerificationSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT id, url, domain, trust_score, risk_level, checked_at
		FROM verification_results
		WHERE ($1 = '' OR domain = $1)
		ORDER BY checked_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, domain, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list verification results: %w", err)
	}
	defer rows.Close()

	summaries := make([]models.VerificationSummary, 0)
	for rows.Next() {
		var (
			s         models.VerificationSummary
			riskLevel string
			checkedAt pgtype.Timestamptz
		)
		if err := rows.Scan(&s.ID, &s.URL, &s.Domain, &s.TrustScore, &riskLevel, &checkedAt); err != nil {
			return nil, fmt.Errorf("failed to scan verification summary: %w", err)
		}
		s.RiskLevel = models.RiskLevel(riskLevel)
		s.CheckedAt = timestamptzToTime(checkedAt)
		summaries = append(summaries, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate verification results: %w", err)
	}

	return summaries, nil
}
