package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// APITokenRepository implements domain.APITokenRepository using PostgreSQL
type APITokenRepository struct {
	pool *pgxpool.Pool
}

// NewAPITokenRepository creates a new APITokenRepository
func NewAPITokenRepository(pool *pgxpool.Pool) *APITokenRepository {
	return &APITokenRepository{pool: pool}
}

const tokenColumns = `id, staff_id, school_id, description, token_hash,
	token_prefix, last_used_at, created_at, revoked_at`

// Create creates a new API token
func (r *APITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	return r.pool.QueryRow(ctx, `
		INSERT INTO api_tokens (staff_id, school_id, description, token_hash, token_prefix)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		token.StaffID, token.SchoolID, token.Description,
		token.TokenHash, token.TokenPrefix,
	).Scan(&token.ID, &token.CreatedAt)
}

// GetBySchool retrieves all active API tokens for a school
func (r *APITokenRepository) GetBySchool(ctx context.Context, schoolID int32) ([]*domain.APIToken, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+tokenColumns+`
		FROM api_tokens
		WHERE school_id = $1 AND revoked_at IS NULL
		ORDER BY created_at DESC`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tokens := make([]*domain.APIToken, 0)
	for rows.Next() {
		token, err := scanAPIToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, token)
	}
	return tokens, rows.Err()
}

// GetByID retrieves an API token by ID within a school
func (r *APITokenRepository) GetByID(ctx context.Context, schoolID int32, id uuid.UUID) (*domain.APIToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM api_tokens
		WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)

	token, err := scanAPIToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPITokenNotFound
		}
		return nil, err
	}
	return token, nil
}

// GetByHash retrieves an active API token by its hash (for authentication)
func (r *APITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+tokenColumns+`
		FROM api_tokens
		WHERE token_hash = $1 AND revoked_at IS NULL`,
		hash,
	)

	token, err := scanAPIToken(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAPITokenNotFound
		}
		return nil, err
	}
	return token, nil
}

// Revoke marks an API token as revoked
func (r *APITokenRepository) Revoke(ctx context.Context, schoolID int32, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE api_tokens
		SET revoked_at = now()
		WHERE school_id = $1 AND id = $2 AND revoked_at IS NULL`,
		schoolID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAPITokenNotFound
	}
	return nil
}

// UpdateLastUsed updates the last_used_at timestamp for a token
func (r *APITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE api_tokens SET last_used_at = now() WHERE id = $1`,
		id,
	)
	return err
}

func scanAPIToken(row rowScanner) (*domain.APIToken, error) {
	var token domain.APIToken
	err := row.Scan(
		&token.ID, &token.StaffID, &token.SchoolID, &token.Description,
		&token.TokenHash, &token.TokenPrefix, &token.LastUsedAt,
		&token.CreatedAt, &token.RevokedAt,
	)
	if err != nil {
		return nil, err
	}
	return &token, nil
}
