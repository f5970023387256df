package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// StaffRepository implements domain.StaffRepository using PostgreSQL
type StaffRepository struct {
	pool *pgxpool.Pool
}

// NewStaffRepository creates a new StaffRepository
func NewStaffRepository(pool *pgxpool.Pool) *StaffRepository {
	return &StaffRepository{pool: pool}
}

// GetByAuth0ID resolves a staff member from an Auth0 subject.
func (r *StaffRepository) GetByAuth0ID(auth0ID string) (*domain.Staff, error) {
	ctx := context.Background()

	var staff domain.Staff
	err := r.pool.QueryRow(ctx, `
		SELECT id, school_id, auth0_id, name, email, created_at, updated_at
		FROM staff
		WHERE auth0_id = $1`,
		auth0ID,
	).Scan(
		&staff.ID, &staff.SchoolID, &staff.Auth0ID, &staff.Name,
		&staff.Email, &staff.CreatedAt, &staff.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStaffNotFound
		}
		return nil, err
	}
	return &staff, nil
}

// GetSchoolByAuth0ID implements the auth middleware's school lookup.
func (r *StaffRepository) GetSchoolByAuth0ID(auth0ID string) (int32, error) {
	staff, err := r.GetByAuth0ID(auth0ID)
	if err != nil {
		return 0, err
	}
	return staff.SchoolID, nil
}
