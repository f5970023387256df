package service

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// StatementService builds the per-ledger detail projection.
type StatementService struct {
	ledgerRepo domain.LedgerRepository
	students   domain.StudentDirectory
}

// NewStatementService creates a new StatementService
func NewStatementService(ledgerRepo domain.LedgerRepository, students domain.StudentDirectory) *StatementService {
	return &StatementService{
		ledgerRepo: ledgerRepo,
		students:   students,
	}
}

// GetStatement assembles one student's fee statement from a ledger.
// Installment lines mirror the ledger's charge items with a timeline
// label; they all read pending because payment is tracked as a balance
// against the whole ledger, not per line.
func (s *StatementService) GetStatement(schoolID int32, ledgerID int64) (*domain.StudentStatement, error) {
	ledger, err := s.ledgerRepo.GetByID(schoolID, ledgerID)
	if err != nil {
		return nil, err
	}

	student, err := s.students.GetByID(schoolID, ledger.StudentID)
	if err != nil {
		return nil, err
	}

	timeline := "Scheduled"
	if ledger.DueDate != nil {
		timeline = "Due by " + ledger.DueDate.Format("02 Jan 2006")
	}

	installments := make([]domain.InstallmentLine, 0, len(ledger.Items))
	for _, item := range ledger.Items {
		installments = append(installments, domain.InstallmentLine{
			Label:    item.Label,
			Amount:   item.Amount,
			Timeline: timeline,
			Status:   domain.InstallmentPending,
		})
	}

	history := make([]domain.PaymentEntry, 0, len(ledger.Payments))
	for i := range ledger.Payments {
		history = append(history, domain.PaymentEntry{
			Amount:        ledger.Payments[i].Amount,
			Method:        ledger.Payments[i].Method,
			PaidAt:        ledger.Payments[i].PaidAt,
			TransactionID: ledger.Payments[i].TransactionID,
			Remarks:       ledger.Payments[i].Remarks,
		})
	}
	sort.Slice(history, func(i, j int) bool { return history[i].PaidAt.After(history[j].PaidAt) })

	return &domain.StudentStatement{
		LedgerID:     ledger.ID,
		Student:      student,
		AcademicYear: ledger.AcademicYear,
		Term:         ledger.Term,
		Status:       ledger.Status,
		Totals: domain.StatementTotals{
			TotalDue:    ledger.TotalDue,
			PaidAmount:  ledger.PaidAmount,
			DueAmount:   ledger.DueAmount,
			OverdueFine: ledger.OverdueFine,
			Progress:    collectionProgress(ledger.PaidAmount, ledger.TotalDue),
		},
		Installments:   installments,
		PaymentHistory: history,
	}, nil
}

// collectionProgress is the paid share of the total as a whole percent,
// clamped to 0-100. A zero total reads as no progress.
func collectionProgress(paid, total decimal.Decimal) int {
	if !total.IsPositive() {
		return 0
	}
	progress := int(paid.Mul(decimal.NewFromInt(100)).Div(total).Round(0).IntPart())
	if progress < 0 {
		return 0
	}
	if progress > 100 {
		return 100
	}
	return progress
}
