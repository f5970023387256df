package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// LedgerRepository implements domain.LedgerRepository using PostgreSQL
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

const ledgerColumns = `id, school_id, student_id, academic_year, term, program, section,
	course_duration, year_number, items, total_due, paid_amount, due_amount,
	overdue_fine, status, due_date, last_payment, version, created_at, updated_at`

// Create inserts a new ledger with its reconciled aggregates.
func (r *LedgerRepository) Create(ledger *domain.FeeLedger) (*domain.FeeLedger, error) {
	ctx := context.Background()

	items, err := json.Marshal(ledger.Items)
	if err != nil {
		return nil, fmt.Errorf("failed to encode items: %w", err)
	}

	err = r.pool.QueryRow(ctx, `
		INSERT INTO fee_ledgers (
			school_id, student_id, academic_year, term, program, section,
			course_duration, year_number, items, total_due, paid_amount,
			due_amount, overdue_fine, status, due_date, version
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, 1)
		RETURNING id, version, created_at, updated_at`,
		ledger.SchoolID, ledger.StudentID, ledger.AcademicYear, string(ledger.Term),
		ledger.Program, ledger.Section, string(ledger.Duration), ledger.YearNumber,
		items, ledger.TotalDue, ledger.PaidAmount, ledger.DueAmount,
		ledger.OverdueFine, string(ledger.Status), ledger.DueDate,
	).Scan(&ledger.ID, &ledger.Version, &ledger.CreatedAt, &ledger.UpdatedAt)
	if err != nil {
		return nil, err
	}

	ledger.Payments = []domain.Payment{}
	return ledger, nil
}

// GetByID retrieves a ledger and its full payment history.
func (r *LedgerRepository) GetByID(schoolID int32, id int64) (*domain.FeeLedger, error) {
	ctx := context.Background()

	row := r.pool.QueryRow(ctx, `
		SELECT `+ledgerColumns+`
		FROM fee_ledgers
		WHERE school_id = $1 AND id = $2`,
		schoolID, id,
	)

	ledger, err := scanLedger(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLedgerNotFound
		}
		return nil, err
	}

	payments, err := r.paymentsForLedgers(ctx, schoolID, id)
	if err != nil {
		return nil, err
	}
	ledger.Payments = payments[ledger.ID]
	if ledger.Payments == nil {
		ledger.Payments = []domain.Payment{}
	}

	return ledger, nil
}

// GetAllBySchool retrieves every ledger for a school with payments attached.
func (r *LedgerRepository) GetAllBySchool(schoolID int32) ([]*domain.FeeLedger, error) {
	ctx := context.Background()

	rows, err := r.pool.Query(ctx, `
		SELECT `+ledgerColumns+`
		FROM fee_ledgers
		WHERE school_id = $1
		ORDER BY created_at DESC`,
		schoolID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ledgers := make([]*domain.FeeLedger, 0)
	for rows.Next() {
		ledger, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		ledgers = append(ledgers, ledger)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	payments, err := r.paymentsForLedgers(ctx, schoolID, 0)
	if err != nil {
		return nil, err
	}
	for _, ledger := range ledgers {
		ledger.Payments = payments[ledger.ID]
		if ledger.Payments == nil {
			ledger.Payments = []domain.Payment{}
		}
	}

	return ledgers, nil
}

// AppendPayment inserts the payment and persists the recomputed
// aggregates in one transaction. The aggregate update is conditional on
// the version the caller read; zero rows affected means another writer
// got there first and the whole transaction rolls back.
func (r *LedgerRepository) AppendPayment(ledger *domain.FeeLedger, payment *domain.Payment) (*domain.FeeLedger, error) {
	ctx := context.Background()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO fee_payments (
			ledger_id, amount, method, paid_at, transaction_id, remarks, collected_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		payment.LedgerID, payment.Amount, string(payment.Method), payment.PaidAt,
		payment.TransactionID, payment.Remarks, payment.CollectedBy,
	).Scan(&payment.ID, &payment.CreatedAt)
	if err != nil {
		return nil, err
	}

	tag, err := tx.Exec(ctx, `
		UPDATE fee_ledgers
		SET total_due = $1, paid_amount = $2, due_amount = $3, status = $4,
			last_payment = $5, version = version + 1, updated_at = now()
		WHERE school_id = $6 AND id = $7 AND version = $8`,
		ledger.TotalDue, ledger.PaidAmount, ledger.DueAmount, string(ledger.Status),
		ledger.LastPayment, ledger.SchoolID, ledger.ID, ledger.Version,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrVersionConflict
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	ledger.Version++
	if len(ledger.Payments) > 0 {
		last := &ledger.Payments[len(ledger.Payments)-1]
		last.ID = payment.ID
		last.CreatedAt = payment.CreatedAt
	}
	return ledger, nil
}

// UpdateCorrections edits due date and overdue fine only. Aggregates and
// version are untouched; corrections never contend with payment writes.
func (r *LedgerRepository) UpdateCorrections(schoolID int32, id int64, dueDate *time.Time, overdueFine *decimal.Decimal) (*domain.FeeLedger, error) {
	ctx := context.Background()

	tag, err := r.pool.Exec(ctx, `
		UPDATE fee_ledgers
		SET due_date = COALESCE($1, due_date),
			overdue_fine = COALESCE($2, overdue_fine),
			updated_at = now()
		WHERE school_id = $3 AND id = $4`,
		dueDate, overdueFine, schoolID, id,
	)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, domain.ErrLedgerNotFound
	}

	return r.GetByID(schoolID, id)
}

// paymentsForLedgers loads payments grouped by ledger ID. A ledgerID of
// zero loads the whole school.
func (r *LedgerRepository) paymentsForLedgers(ctx context.Context, schoolID int32, ledgerID int64) (map[int64][]domain.Payment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT p.id, p.ledger_id, p.amount, p.method, p.paid_at,
			p.transaction_id, p.remarks, p.collected_by, p.created_at
		FROM fee_payments p
		JOIN fee_ledgers l ON l.id = p.ledger_id
		WHERE l.school_id = $1 AND ($2::bigint = 0 OR p.ledger_id = $2)
		ORDER BY p.paid_at ASC, p.id ASC`,
		schoolID, ledgerID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := make(map[int64][]domain.Payment)
	for rows.Next() {
		var p domain.Payment
		var method string
		if err := rows.Scan(&p.ID, &p.LedgerID, &p.Amount, &method, &p.PaidAt,
			&p.TransactionID, &p.Remarks, &p.CollectedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Method = domain.PaymentMethod(method)
		result[p.LedgerID] = append(result[p.LedgerID], p)
	}
	return result, rows.Err()
}

// rowScanner covers pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedger(row rowScanner) (*domain.FeeLedger, error) {
	var ledger domain.FeeLedger
	var term, duration, status string
	var items []byte

	err := row.Scan(
		&ledger.ID, &ledger.SchoolID, &ledger.StudentID, &ledger.AcademicYear,
		&term, &ledger.Program, &ledger.Section, &duration, &ledger.YearNumber,
		&items, &ledger.TotalDue, &ledger.PaidAmount, &ledger.DueAmount,
		&ledger.OverdueFine, &status, &ledger.DueDate, &ledger.LastPayment,
		&ledger.Version, &ledger.CreatedAt, &ledger.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	ledger.Term = domain.Term(term)
	ledger.Duration = domain.CourseDuration(duration)
	ledger.Status = domain.LedgerStatus(status)

	if err := json.Unmarshal(items, &ledger.Items); err != nil {
		return nil, fmt.Errorf("failed to decode items: %w", err)
	}

	return &ledger, nil
}
