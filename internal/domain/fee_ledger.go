package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrLedgerNotFound        = errors.New("fee ledger not found")
	ErrLedgerYearMismatch    = errors.New("year number must be 1 for a one-year course")
	ErrLedgerYearInvalid     = errors.New("year number must be 1 or 2")
	ErrLedgerStudentRequired = errors.New("student is required")
	ErrLedgerAcademicYear    = errors.New("academic year is required")
	ErrLedgerTermInvalid     = errors.New("term is not recognized")
	ErrLedgerDurationInvalid = errors.New("course duration is not recognized")
	ErrLedgerFineNegative    = errors.New("overdue fine must not be negative")
)

// LedgerStatus is derived from the reconciled balance, never set directly.
type LedgerStatus string

const (
	StatusDue     LedgerStatus = "due"
	StatusPartial LedgerStatus = "partial"
	StatusPaid    LedgerStatus = "paid"
)

// Term identifies the billing period a ledger covers.
type Term string

const (
	TermOne        Term = "Term 1"
	TermTwo        Term = "Term 2"
	TermAnnual     Term = "Annual"
	TermSemesterI  Term = "Semester 1"
	TermSemesterII Term = "Semester 2"
)

// ValidTerms lists every accepted term value.
var ValidTerms = map[Term]bool{
	TermOne:        true,
	TermTwo:        true,
	TermAnnual:     true,
	TermSemesterI:  true,
	TermSemesterII: true,
}

// CourseDuration is the length of the enrolled program.
type CourseDuration string

const (
	DurationOneYear  CourseDuration = "1 Year"
	DurationTwoYears CourseDuration = "2 Years"
)

// ChargeLineItem is a single named charge contributing to totalDue.
// Immutable once the ledger is created.
type ChargeLineItem struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// FeeLedger is the per-student, per-academic-year financial record.
// Derived aggregate fields are recomputed by Reconcile from the charge
// items and the full payment history; they are stored so the read path
// never recomputes.
type FeeLedger struct {
	ID           int64            `json:"id"`
	SchoolID     int32            `json:"schoolId"`
	StudentID    uuid.UUID        `json:"studentId"`
	AcademicYear string           `json:"academicYear"`
	Term         Term             `json:"term"`
	Program      string           `json:"program"`
	Section      string           `json:"section"`
	Duration     CourseDuration   `json:"courseDuration"`
	YearNumber   int32            `json:"yearNumber"`
	Items        []ChargeLineItem `json:"items"`
	TotalDue     decimal.Decimal  `json:"totalDue"`
	PaidAmount   decimal.Decimal  `json:"paidAmount"`
	DueAmount    decimal.Decimal  `json:"dueAmount"`
	OverdueFine  decimal.Decimal  `json:"overdueFine"`
	Status       LedgerStatus     `json:"status"`
	DueDate      *time.Time       `json:"dueDate,omitempty"`
	LastPayment  *time.Time       `json:"lastPayment,omitempty"`
	Payments     []Payment        `json:"payments"`
	Version      int32            `json:"version"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// Validate checks the identity and descriptive fields at creation time.
func (l *FeeLedger) Validate() error {
	if l.StudentID == uuid.Nil {
		return ErrLedgerStudentRequired
	}
	if l.AcademicYear == "" {
		return ErrLedgerAcademicYear
	}
	if !ValidTerms[l.Term] {
		return ErrLedgerTermInvalid
	}
	if l.Duration != DurationOneYear && l.Duration != DurationTwoYears {
		return ErrLedgerDurationInvalid
	}
	if l.YearNumber < 1 || l.YearNumber > 2 {
		return ErrLedgerYearInvalid
	}
	if l.Duration == DurationOneYear && l.YearNumber != 1 {
		return ErrLedgerYearMismatch
	}
	return nil
}

// Reconcile recomputes every derived aggregate from the charge items and
// the complete payment history. It is invoked deliberately by ledger
// creation and payment application, never as a side effect of unrelated
// field edits. fallbackTotal is applied when the line items sum to zero,
// so totalDue is never zero or unset.
func (l *FeeLedger) Reconcile(fallbackTotal decimal.Decimal) {
	total := decimal.Zero
	for _, item := range l.Items {
		total = total.Add(item.Amount)
	}
	if total.IsZero() {
		total = fallbackTotal
	}
	l.TotalDue = total

	paid := decimal.Zero
	var last *time.Time
	for i := range l.Payments {
		paid = paid.Add(l.Payments[i].Amount)
		if last == nil || l.Payments[i].PaidAt.After(*last) {
			t := l.Payments[i].PaidAt
			last = &t
		}
	}
	l.PaidAmount = paid
	l.LastPayment = last

	due := l.TotalDue.Sub(paid)
	if due.IsNegative() {
		due = decimal.Zero
	}
	l.DueAmount = due

	switch {
	case due.IsZero():
		l.Status = StatusPaid
	case paid.GreaterThan(decimal.Zero):
		l.Status = StatusPartial
	default:
		l.Status = StatusDue
	}
}

// IsOverdue reports whether an outstanding balance is past its due date.
func (l *FeeLedger) IsOverdue(now time.Time) bool {
	return l.DueAmount.GreaterThan(decimal.Zero) && l.DueDate != nil && l.DueDate.Before(now)
}

// DefaultChargeSchedule returns the fixed named charge set used when a
// ledger is created with neither explicit overrides nor an active fee
// structure. The amounts sum to the documented fallback annual total.
func DefaultChargeSchedule() []ChargeLineItem {
	items := []ChargeLineItem{
		{Label: "Admission Fee", Amount: decimal.NewFromInt(10000)},
		{Label: "Commencement Fee", Amount: decimal.NewFromInt(5000)},
	}
	for i := 1; i <= 3; i++ {
		items = append(items, ChargeLineItem{
			Label:  fmt.Sprintf("Registration Part %d", i),
			Amount: decimal.NewFromInt(5000),
		})
	}
	for i := 1; i <= 10; i++ {
		items = append(items, ChargeLineItem{
			Label:  fmt.Sprintf("Installment %d", i),
			Amount: decimal.NewFromInt(12000),
		})
	}
	items = append(items, ChargeLineItem{Label: "Annual Subscription", Amount: decimal.NewFromInt(5000)})
	return items
}

// LedgerRepository defines persistence for fee ledgers.
// AppendPayment must insert the payment and persist the recomputed
// aggregates atomically, conditional on the ledger version being
// unchanged; it returns ErrVersionConflict otherwise.
type LedgerRepository interface {
	Create(ledger *FeeLedger) (*FeeLedger, error)
	GetByID(schoolID int32, id int64) (*FeeLedger, error)
	GetAllBySchool(schoolID int32) ([]*FeeLedger, error)
	AppendPayment(ledger *FeeLedger, payment *Payment) (*FeeLedger, error)
	UpdateCorrections(schoolID int32, id int64, dueDate *time.Time, overdueFine *decimal.Decimal) (*FeeLedger, error)
}
