package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/testutil"
)

func seedDashboardLedger(repo *testutil.MockLedgerRepository, schoolID int32, studentID uuid.UUID, program string, total int64, payments ...domain.Payment) *domain.FeeLedger {
	ledger := &domain.FeeLedger{
		SchoolID:     schoolID,
		StudentID:    studentID,
		AcademicYear: "2026-27",
		Term:         domain.TermAnnual,
		Program:      program,
		Duration:     domain.DurationOneYear,
		YearNumber:   1,
		Items: []domain.ChargeLineItem{
			{Label: "Tuition", Amount: decimal.NewFromInt(total)},
		},
		Payments: payments,
	}
	ledger.Reconcile(testFallbackTotal)
	created, _ := repo.Create(ledger)
	return created
}

func payment(amount int64, paidAt time.Time) domain.Payment {
	return domain.Payment{
		Amount:      decimal.NewFromInt(amount),
		Method:      domain.MethodCash,
		PaidAt:      paidAt,
		CollectedBy: uuid.New(),
	}
}

func TestGetSummary_Totals(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	now := time.Now()
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	students.AddStudent(&domain.Student{ID: a, SchoolID: 1, Name: "Asha"})
	students.AddStudent(&domain.Student{ID: b, SchoolID: 1, Name: "Bilal"})
	students.AddStudent(&domain.Student{ID: c, SchoolID: 1, Name: "Chitra"})

	seedDashboardLedger(repo, 1, a, "Science", 10000, payment(10000, now)) // settled
	seedDashboardLedger(repo, 1, b, "Science", 20000)                      // untouched
	seedDashboardLedger(repo, 1, c, "Commerce", 10000, payment(5000, now)) // partial

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.True(t, summary.Totals.TotalOutstanding.Equal(decimal.NewFromInt(25000)))
	assert.True(t, summary.Totals.TotalCollected.Equal(decimal.NewFromInt(15000)))
	assert.True(t, summary.Totals.MonthlyCollection.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, 3, summary.Totals.TotalEnrolled)
	assert.Equal(t, 0, summary.Totals.OverduePayments)
}

func TestGetSummary_MonthlyCollectionExcludesPostDatedPayments(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	now := time.Now()
	studentID := uuid.New()
	students.AddStudent(&domain.Student{ID: studentID, SchoolID: 1, Name: "Asha"})

	// One payment this month, one post-dated into next month.
	seedDashboardLedger(repo, 1, studentID, "Science", 30000,
		payment(5000, now),
		payment(8000, now.AddDate(0, 1, 2)))

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.True(t, summary.Totals.MonthlyCollection.Equal(decimal.NewFromInt(5000)))
	// The post-dated payment still counts toward the all-time figure.
	assert.True(t, summary.Totals.TotalCollected.Equal(decimal.NewFromInt(13000)))
}

func TestGetSummary_EmptyScope(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.True(t, summary.Totals.TotalOutstanding.IsZero())
	assert.True(t, summary.Totals.TotalCollected.IsZero())
	assert.Equal(t, 0, summary.Totals.TotalEnrolled)
	assert.Empty(t, summary.EnrollmentByProgram)
	assert.Empty(t, summary.OutstandingSegments)
	assert.Empty(t, summary.RecentPayments)
}

func TestGetSummary_EnrollmentPercents(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	s1, s2, s3 := uuid.New(), uuid.New(), uuid.New()
	seedDashboardLedger(repo, 1, s1, "Science", 10000)
	seedDashboardLedger(repo, 1, s2, "Science", 10000)
	seedDashboardLedger(repo, 1, s3, "Commerce", 10000)
	// A second ledger for an already-counted student must not inflate
	// the program's head count.
	seedDashboardLedger(repo, 1, s1, "Science", 5000)

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.Len(t, summary.EnrollmentByProgram, 2)
	assert.Equal(t, "Science", summary.EnrollmentByProgram[0].Program)
	assert.Equal(t, 2, summary.EnrollmentByProgram[0].Count)
	assert.Equal(t, 67, summary.EnrollmentByProgram[0].Percent)
	assert.Equal(t, "Commerce", summary.EnrollmentByProgram[1].Program)
	assert.Equal(t, 1, summary.EnrollmentByProgram[1].Count)
	assert.Equal(t, 33, summary.EnrollmentByProgram[1].Percent)
}

func TestGetSummary_OutstandingSegmentsTopFive(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	for i := 1; i <= 6; i++ {
		seedDashboardLedger(repo, 1, uuid.New(), fmt.Sprintf("Program %d", i), int64(i*1000))
	}
	// A fully-settled program carries no outstanding share.
	now := time.Now()
	seedDashboardLedger(repo, 1, uuid.New(), "Settled", 10000, payment(10000, now))

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.Len(t, summary.OutstandingSegments, 5)
	assert.Equal(t, "Program 6", summary.OutstandingSegments[0].Program)
	assert.True(t, summary.OutstandingSegments[0].DueAmount.Equal(decimal.NewFromInt(6000)))
	assert.Equal(t, "Program 2", summary.OutstandingSegments[4].Program)
	for _, segment := range summary.OutstandingSegments {
		assert.NotEqual(t, "Settled", segment.Program)
		assert.True(t, segment.DueAmount.IsPositive())
	}
}

func TestGetSummary_RecentPaymentsNewestFirstCapped(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	studentID := uuid.New()
	students.AddStudent(&domain.Student{ID: studentID, SchoolID: 1, Name: "Asha Verma"})

	now := time.Now()
	payments := make([]domain.Payment, 0, 12)
	for i := 0; i < 12; i++ {
		payments = append(payments, payment(int64(100+i), now.Add(-time.Duration(i)*time.Hour)))
	}
	seedDashboardLedger(repo, 1, studentID, "Science", 500000, payments...)

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.Len(t, summary.RecentPayments, 10)
	assert.True(t, summary.RecentPayments[0].Amount.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "Asha Verma", summary.RecentPayments[0].StudentName)
	for i := 1; i < len(summary.RecentPayments); i++ {
		assert.False(t, summary.RecentPayments[i].PaidAt.After(summary.RecentPayments[i-1].PaidAt))
	}
}

func TestGetSummary_OverdueCount(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	yesterday := time.Now().AddDate(0, 0, -1)
	overdue := seedDashboardLedger(repo, 1, uuid.New(), "Science", 10000)
	repo.Ledgers[overdue.ID].DueDate = &yesterday

	// Past due date but fully paid: not overdue.
	now := time.Now()
	settled := seedDashboardLedger(repo, 1, uuid.New(), "Science", 10000, payment(10000, now))
	repo.Ledgers[settled.ID].DueDate = &yesterday

	summary, err := svc.GetSummary(1)
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.Totals.OverduePayments)
}

func TestGetCollectionTrend_ZeroFilledAscending(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	now := time.Now()
	seedDashboardLedger(repo, 1, uuid.New(), "Science", 100000,
		payment(3000, now),
		payment(2000, now),
		payment(7000, now.AddDate(0, 0, -2)),
	)

	points, err := svc.GetCollectionTrend(1, 3)
	assert.NoError(t, err)
	assert.Len(t, points, 3)
	assert.Equal(t, now.AddDate(0, 0, -2).Format("2006-01-02"), points[0].Date)
	assert.True(t, points[0].Total.Equal(decimal.NewFromInt(7000)))
	assert.True(t, points[1].Total.IsZero())
	assert.Equal(t, now.Format("2006-01-02"), points[2].Date)
	assert.True(t, points[2].Total.Equal(decimal.NewFromInt(5000)))
}

func TestGetCollectionTrend_ExcludesPaymentsOutsideWindow(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	now := time.Now()
	seedDashboardLedger(repo, 1, uuid.New(), "Science", 100000,
		payment(9000, now.AddDate(0, 0, -10)),
	)

	points, err := svc.GetCollectionTrend(1, 7)
	assert.NoError(t, err)
	assert.Len(t, points, 7)
	for _, point := range points {
		assert.True(t, point.Total.IsZero())
	}
}

func TestGetCollectionTrend_ClampsDays(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	students := testutil.NewMockStudentDirectory()
	svc := NewDashboardService(repo, students)

	points, err := svc.GetCollectionTrend(1, 0)
	assert.NoError(t, err)
	assert.Len(t, points, domain.DefaultTrendDays)

	points, err = svc.GetCollectionTrend(1, 500)
	assert.NoError(t, err)
	assert.Len(t, points, domain.MaxTrendDays)
}
