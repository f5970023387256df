package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Dashboard limits
const (
	// TopOutstandingSegments caps the outstanding-by-program ranking.
	TopOutstandingSegments = 5
	// RecentPaymentsLimit caps the flattened recent payment feed.
	RecentPaymentsLimit = 10
	// DefaultTrendDays is the trailing window for the collection trend.
	DefaultTrendDays = 7
	// MaxTrendDays bounds the trailing window a caller may request.
	MaxTrendDays = 90
)

// DashboardTotals holds the headline numbers for a school.
type DashboardTotals struct {
	TotalOutstanding  decimal.Decimal `json:"totalOutstanding"`
	MonthlyCollection decimal.Decimal `json:"monthlyCollection"`
	TotalCollected    decimal.Decimal `json:"totalCollected"`
	OverduePayments   int             `json:"overduePayments"`
	TotalEnrolled     int             `json:"totalEnrolled"`
}

// EnrollmentSlice is one program's share of enrollment.
// Percent is rounded to a whole number, so slices need not sum to 100.
type EnrollmentSlice struct {
	Program string `json:"program"`
	Count   int    `json:"count"`
	Percent int    `json:"percent"`
}

// OutstandingSegment is one program's share of the outstanding balance.
type OutstandingSegment struct {
	Program   string          `json:"program"`
	DueAmount decimal.Decimal `json:"dueAmount"`
	Percent   int             `json:"percent"`
}

// RecentPayment is a payment flattened across ledgers with denormalized
// student data for the dashboard feed.
type RecentPayment struct {
	LedgerID    int64           `json:"ledgerId"`
	StudentID   uuid.UUID       `json:"studentId"`
	StudentName string          `json:"studentName"`
	Program     string          `json:"program"`
	Amount      decimal.Decimal `json:"amount"`
	Method      PaymentMethod   `json:"method"`
	PaidAt      time.Time       `json:"paidAt"`
}

// TrendPoint is one calendar day's collection total.
type TrendPoint struct {
	Date  string          `json:"date"` // YYYY-MM-DD
	Total decimal.Decimal `json:"total"`
}

// DashboardSummary is the aggregation engine's output for one school.
type DashboardSummary struct {
	Totals              DashboardTotals      `json:"totals"`
	EnrollmentByProgram []EnrollmentSlice    `json:"enrollmentByProgram"`
	OutstandingSegments []OutstandingSegment `json:"outstandingSegments"`
	RecentPayments      []RecentPayment      `json:"recentPayments"`
}
