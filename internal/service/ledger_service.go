package service

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/websocket"
)

// LedgerService handles fee ledger creation and administrative corrections.
type LedgerService struct {
	ledgerRepo     domain.LedgerRepository
	structureRepo  domain.FeeStructureRepository
	students       domain.StudentDirectory
	fallbackTotal  decimal.Decimal
	eventPublisher websocket.EventPublisher
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(ledgerRepo domain.LedgerRepository, structureRepo domain.FeeStructureRepository, students domain.StudentDirectory, fallbackTotal decimal.Decimal) *LedgerService {
	return &LedgerService{
		ledgerRepo:    ledgerRepo,
		structureRepo: structureRepo,
		students:      students,
		fallbackTotal: fallbackTotal,
	}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *LedgerService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *LedgerService) publishEvent(schoolID int32, event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(schoolID, event)
	}
}

// CreateLedger creates a ledger for one student and academic year.
// ledger.Items carries the caller's charge overrides; when empty the
// active fee structure for (program, academicYear) seeds the items, and
// when no structure matches, the default charge schedule applies. Items
// are copied at creation, so later structure edits never reach the ledger.
func (s *LedgerService) CreateLedger(schoolID int32, ledger *domain.FeeLedger) (*domain.FeeLedger, error) {
	ledger.SchoolID = schoolID
	if ledger.Term == "" {
		ledger.Term = domain.TermAnnual
	}

	if err := ledger.Validate(); err != nil {
		return nil, err
	}

	// The student reference must resolve before any money is tracked against it.
	if _, err := s.students.GetByID(schoolID, ledger.StudentID); err != nil {
		return nil, err
	}

	if len(ledger.Items) == 0 {
		ledger.Items = s.seedItems(schoolID, ledger)
	}

	ledger.PaidAmount = decimal.Zero
	ledger.OverdueFine = decimal.Zero
	ledger.Payments = nil
	ledger.Reconcile(s.fallbackTotal)

	created, err := s.ledgerRepo.Create(ledger)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("ledger_id", created.ID).
		Str("student_id", created.StudentID.String()).
		Str("total_due", created.TotalDue.StringFixed(2)).
		Msg("Fee ledger created")

	s.publishEvent(schoolID, websocket.LedgerCreated(map[string]interface{}{
		"ledgerId":  created.ID,
		"studentId": created.StudentID.String(),
		"totalDue":  created.TotalDue.StringFixed(2),
		"dueAmount": created.DueAmount.StringFixed(2),
		"status":    string(created.Status),
	}))

	return created, nil
}

// seedItems copies line items from the active fee structure matching the
// ledger's program and session, falling back to the default charge
// schedule when no structure is defined.
func (s *LedgerService) seedItems(schoolID int32, ledger *domain.FeeLedger) []domain.ChargeLineItem {
	structure, err := s.structureRepo.GetActiveByCourseSession(schoolID, ledger.Program, ledger.AcademicYear)
	if err != nil {
		log.Debug().
			Int32("school_id", schoolID).
			Str("program", ledger.Program).
			Str("session", ledger.AcademicYear).
			Msg("No active fee structure, using default charge schedule")
		return domain.DefaultChargeSchedule()
	}

	schedule := structure.ScheduleForYear(ledger.YearNumber)
	if schedule == nil {
		return domain.DefaultChargeSchedule()
	}

	items := make([]domain.ChargeLineItem, 0, len(schedule.Items)+len(structure.AdditionalCharges))
	items = append(items, schedule.Items...)
	for _, charge := range structure.AdditionalCharges {
		items = append(items, domain.ChargeLineItem{Label: charge.Label, Amount: charge.Amount})
	}
	return items
}

// ListLedgers returns every ledger for the school.
func (s *LedgerService) ListLedgers(schoolID int32) ([]*domain.FeeLedger, error) {
	return s.ledgerRepo.GetAllBySchool(schoolID)
}

// GetLedger retrieves a single ledger with its payment history.
func (s *LedgerService) GetLedger(schoolID int32, ledgerID int64) (*domain.FeeLedger, error) {
	return s.ledgerRepo.GetByID(schoolID, ledgerID)
}

// UpdateCorrections applies the only administrative edits a ledger
// supports: due date and overdue fine. Payment aggregates are left
// untouched, so a correction can never flip the reconciled status.
func (s *LedgerService) UpdateCorrections(schoolID int32, ledgerID int64, dueDate *time.Time, overdueFine *decimal.Decimal) (*domain.FeeLedger, error) {
	if overdueFine != nil && overdueFine.IsNegative() {
		return nil, domain.ErrLedgerFineNegative
	}

	ledger, err := s.ledgerRepo.UpdateCorrections(schoolID, ledgerID, dueDate, overdueFine)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("ledger_id", ledgerID).
		Msg("Ledger corrections applied")

	s.publishEvent(schoolID, websocket.LedgerUpdated(map[string]interface{}{
		"ledgerId":  ledger.ID,
		"dueAmount": ledger.DueAmount.StringFixed(2),
		"status":    string(ledger.Status),
	}))

	return ledger, nil
}
