package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// FeeStructureRepository implements domain.FeeStructureRepository using PostgreSQL
type FeeStructureRepository struct {
	pool *pgxpool.Pool
}

// NewFeeStructureRepository creates a new FeeStructureRepository
func NewFeeStructureRepository(pool *pgxpool.Pool) *FeeStructureRepository {
	return &FeeStructureRepository{pool: pool}
}

const structureColumns = `id, school_id, course_name, session, duration_years,
	years, additional_charges, active, created_at, updated_at`

// Create inserts a new fee structure template.
func (r *FeeStructureRepository) Create(structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	ctx := context.Background()

	years, charges, err := encodeStructure(structure)
	if err != nil {
		return nil, err
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO fee_structures (
			school_id, course_name, session, duration_years, years,
			additional_charges, active
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`,
		structure.SchoolID, structure.CourseName, structure.Session,
		structure.DurationYears, years, charges, structure.Active,
	).Scan(&structure.ID, &structure.CreatedAt, &structure.UpdatedAt)
	if err != nil {
		return nil, err
	}

	return structure, nil
}

// GetByID retrieves a fee structure by ID within a school.
func (r *FeeStructureRepository) GetByID(schoolID int32, id int64) (*domain.FeeStructure, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+structureColumns+`
		FROM fee_structures
		WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)

	structure, err := scanStructure(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStructureNotFound
		}
		return nil, err
	}
	return structure, nil
}

// GetActiveByCourseSession finds the active template for a course and
// session. At most one is active per pair; the newest wins if data drifts.
func (r *FeeStructureRepository) GetActiveByCourseSession(schoolID int32, courseName, session string) (*domain.FeeStructure, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+structureColumns+`
		FROM fee_structures
		WHERE school_id = $1 AND course_name = $2 AND session = $3 AND active = true
		ORDER BY created_at DESC
		LIMIT 1`,
		schoolID, courseName, session,
	)

	structure, err := scanStructure(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStructureNotFound
		}
		return nil, err
	}
	return structure, nil
}

// GetAllBySchool retrieves every fee structure for a school.
func (r *FeeStructureRepository) GetAllBySchool(schoolID int32) ([]*domain.FeeStructure, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+structureColumns+`
		FROM fee_structures
		WHERE school_id = $1
		ORDER BY course_name ASC, session DESC`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	structures := make([]*domain.FeeStructure, 0)
	for rows.Next() {
		structure, err := scanStructure(rows)
		if err != nil {
			return nil, err
		}
		structures = append(structures, structure)
	}
	return structures, rows.Err()
}

// Update replaces a fee structure template.
func (r *FeeStructureRepository) Update(structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	ctx := context.Background()

	years, charges, err := encodeStructure(structure)
	if err != nil {
		return nil, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_structures
		SET course_name = $1, session = $2, duration_years = $3, years = $4,
			additional_charges = $5, updated_at = now()
		WHERE school_id = $6 AND id = $7`,
		structure.CourseName, structure.Session, structure.DurationYears,
		years, charges, structure.SchoolID, structure.ID,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrStructureNotFound
	}

	return r.GetByID(structure.SchoolID, structure.ID)
}

// Deactivate retires a template from seeding new ledgers.
func (r *FeeStructureRepository) Deactivate(schoolID int32, id int64) error {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_structures
		SET active = false, updated_at = now()
		WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrStructureNotFound
	}
	return nil
}

func encodeStructure(structure *domain.FeeStructure) ([]byte, []byte, error) {
	years, err := json.Marshal(structure.Years)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode year schedules: %w", err)
	}
	charges, err := json.Marshal(structure.AdditionalCharges)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to encode additional charges: %w", err)
	}
	return years, charges, nil
}

func scanStructure(row rowScanner) (*domain.FeeStructure, error) {
	var structure domain.FeeStructure
	var years, charges []byte

	err := row.Scan(
		&structure.ID, &structure.SchoolID, &structure.CourseName,
		&structure.Session, &structure.DurationYears, &years, &charges,
		&structure.Active, &structure.CreatedAt, &structure.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(years, &structure.Years); err != nil {
		return nil, fmt.Errorf("failed to decode year schedules: %w", err)
	}
	if err := json.Unmarshal(charges, &structure.AdditionalCharges); err != nil {
		return nil, fmt.Errorf("failed to decode additional charges: %w", err)
	}

	return &structure, nil
}
