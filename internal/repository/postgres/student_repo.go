package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// StudentRepository implements domain.StudentDirectory using PostgreSQL
type StudentRepository struct {
	pool *pgxpool.Pool
}

// NewStudentRepository creates a new StudentRepository
func NewStudentRepository(pool *pgxpool.Pool) *StudentRepository {
	return &StudentRepository{pool: pool}
}

const studentColumns = `id, school_id, name, program, guardian_name,
	guardian_contact, created_at, updated_at`

// GetByID resolves one student reference within a school.
func (r *StudentRepository) GetByID(schoolID int32, id uuid.UUID) (*domain.Student, error) {
	ctx := context.Background()

	var student domain.Student
	err := r.pool.QueryRow(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	).Scan(
		&student.ID, &student.SchoolID, &student.Name, &student.Program,
		&student.GuardianName, &student.GuardianContact,
		&student.CreatedAt, &student.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrStudentNotFound
		}
		return nil, err
	}
	return &student, nil
}

// GetByIDs resolves a batch of student references. Missing IDs are
// simply absent from the result, not an error.
func (r *StudentRepository) GetByIDs(schoolID int32, ids []uuid.UUID) (map[uuid.UUID]*domain.Student, error) {
	ctx := context.Background()

	result := make(map[uuid.UUID]*domain.Student, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+studentColumns+`
		FROM students
		WHERE school_id = $1 AND id = ANY($2)`,
		schoolID, ids,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var student domain.Student
		if err := rows.Scan(
			&student.ID, &student.SchoolID, &student.Name, &student.Program,
			&student.GuardianName, &student.GuardianContact,
			&student.CreatedAt, &student.UpdatedAt,
		); err != nil {
			return nil, err
		}
		result[student.ID] = &student
	}
	return result, rows.Err()
}
