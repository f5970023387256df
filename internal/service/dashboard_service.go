package service

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// DashboardService is the read-only aggregation engine. It scans every
// ledger in a school's scope and never mutates one.
type DashboardService struct {
	ledgerRepo domain.LedgerRepository
	students   domain.StudentDirectory
}

// NewDashboardService creates a new DashboardService
func NewDashboardService(ledgerRepo domain.LedgerRepository, students domain.StudentDirectory) *DashboardService {
	return &DashboardService{
		ledgerRepo: ledgerRepo,
		students:   students,
	}
}

// GetSummary builds the dashboard for one school. An empty scope yields
// zeroed totals and empty lists, never an error.
func (s *DashboardService) GetSummary(schoolID int32) (*domain.DashboardSummary, error) {
	ledgers, err := s.ledgerRepo.GetAllBySchool(schoolID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	nextMonthStart := monthStart.AddDate(0, 1, 0)

	totals := domain.DashboardTotals{
		TotalOutstanding:  decimal.Zero,
		MonthlyCollection: decimal.Zero,
		TotalCollected:    decimal.Zero,
	}

	enrolled := make(map[uuid.UUID]bool)
	programStudents := make(map[string]map[uuid.UUID]bool)
	programDue := make(map[string]decimal.Decimal)

	for _, ledger := range ledgers {
		totals.TotalOutstanding = totals.TotalOutstanding.Add(ledger.DueAmount)
		totals.TotalCollected = totals.TotalCollected.Add(ledger.PaidAmount)
		if ledger.IsOverdue(now) {
			totals.OverduePayments++
		}

		enrolled[ledger.StudentID] = true
		if programStudents[ledger.Program] == nil {
			programStudents[ledger.Program] = make(map[uuid.UUID]bool)
		}
		programStudents[ledger.Program][ledger.StudentID] = true
		programDue[ledger.Program] = programDue[ledger.Program].Add(ledger.DueAmount)

		// Post-dated entries belong to their own month, not this one.
		for i := range ledger.Payments {
			paidAt := ledger.Payments[i].PaidAt
			if !paidAt.Before(monthStart) && paidAt.Before(nextMonthStart) {
				totals.MonthlyCollection = totals.MonthlyCollection.Add(ledger.Payments[i].Amount)
			}
		}
	}
	totals.TotalEnrolled = len(enrolled)

	recent, err := s.recentPayments(schoolID, ledgers)
	if err != nil {
		return nil, err
	}

	return &domain.DashboardSummary{
		Totals:              totals,
		EnrollmentByProgram: enrollmentSlices(programStudents, totals.TotalEnrolled),
		OutstandingSegments: outstandingSegments(programDue, totals.TotalOutstanding),
		RecentPayments:      recent,
	}, nil
}

// enrollmentSlices groups enrollment by program with whole-percent
// shares. Rounding means the percentages need not sum to exactly 100;
// the last bucket is not adjusted to force it.
func enrollmentSlices(programStudents map[string]map[uuid.UUID]bool, totalEnrolled int) []domain.EnrollmentSlice {
	slices := make([]domain.EnrollmentSlice, 0, len(programStudents))
	for program, students := range programStudents {
		slice := domain.EnrollmentSlice{Program: program, Count: len(students)}
		if totalEnrolled > 0 {
			slice.Percent = int(decimal.NewFromInt(int64(len(students) * 100)).
				Div(decimal.NewFromInt(int64(totalEnrolled))).
				Round(0).IntPart())
		}
		slices = append(slices, slice)
	}
	sort.Slice(slices, func(i, j int) bool {
		if slices[i].Count != slices[j].Count {
			return slices[i].Count > slices[j].Count
		}
		return slices[i].Program < slices[j].Program
	})
	return slices
}

// outstandingSegments ranks programs by outstanding balance, top N only.
func outstandingSegments(programDue map[string]decimal.Decimal, totalOutstanding decimal.Decimal) []domain.OutstandingSegment {
	segments := make([]domain.OutstandingSegment, 0, len(programDue))
	for program, due := range programDue {
		if due.LessThanOrEqual(decimal.Zero) {
			continue
		}
		segment := domain.OutstandingSegment{Program: program, DueAmount: due}
		if totalOutstanding.GreaterThan(decimal.Zero) {
			segment.Percent = int(due.Mul(decimal.NewFromInt(100)).Div(totalOutstanding).Round(0).IntPart())
		}
		segments = append(segments, segment)
	}
	sort.Slice(segments, func(i, j int) bool {
		if !segments[i].DueAmount.Equal(segments[j].DueAmount) {
			return segments[i].DueAmount.GreaterThan(segments[j].DueAmount)
		}
		return segments[i].Program < segments[j].Program
	})
	if len(segments) > domain.TopOutstandingSegments {
		segments = segments[:domain.TopOutstandingSegments]
	}
	return segments
}

// recentPayments flattens payments across ledgers, newest first, with
// student name and program joined in from the directory.
func (s *DashboardService) recentPayments(schoolID int32, ledgers []*domain.FeeLedger) ([]domain.RecentPayment, error) {
	flat := make([]domain.RecentPayment, 0)
	studentIDs := make([]uuid.UUID, 0, len(ledgers))
	seen := make(map[uuid.UUID]bool)

	for _, ledger := range ledgers {
		if !seen[ledger.StudentID] {
			seen[ledger.StudentID] = true
			studentIDs = append(studentIDs, ledger.StudentID)
		}
		for i := range ledger.Payments {
			flat = append(flat, domain.RecentPayment{
				LedgerID:  ledger.ID,
				StudentID: ledger.StudentID,
				Program:   ledger.Program,
				Amount:    ledger.Payments[i].Amount,
				Method:    ledger.Payments[i].Method,
				PaidAt:    ledger.Payments[i].PaidAt,
			})
		}
	}

	sort.Slice(flat, func(i, j int) bool { return flat[i].PaidAt.After(flat[j].PaidAt) })
	if len(flat) > domain.RecentPaymentsLimit {
		flat = flat[:domain.RecentPaymentsLimit]
	}

	if len(flat) == 0 {
		return flat, nil
	}

	students, err := s.students.GetByIDs(schoolID, studentIDs)
	if err != nil {
		return nil, err
	}
	for i := range flat {
		if student, ok := students[flat[i].StudentID]; ok {
			flat[i].StudentName = student.Name
		}
	}
	return flat, nil
}

// GetCollectionTrend buckets payments by calendar day over a trailing
// window, zero-filled, in ascending date order.
func (s *DashboardService) GetCollectionTrend(schoolID int32, days int) ([]domain.TrendPoint, error) {
	if days < 1 {
		days = domain.DefaultTrendDays
	}
	if days > domain.MaxTrendDays {
		days = domain.MaxTrendDays
	}

	ledgers, err := s.ledgerRepo.GetAllBySchool(schoolID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	windowStart := today.AddDate(0, 0, -(days - 1))

	buckets := make(map[string]decimal.Decimal, days)
	for _, ledger := range ledgers {
		for i := range ledger.Payments {
			paidAt := ledger.Payments[i].PaidAt
			if paidAt.Before(windowStart) {
				continue
			}
			key := paidAt.Format("2006-01-02")
			buckets[key] = buckets[key].Add(ledger.Payments[i].Amount)
		}
	}

	points := make([]domain.TrendPoint, 0, days)
	for day := 0; day < days; day++ {
		date := windowStart.AddDate(0, 0, day)
		key := date.Format("2006-01-02")
		total := buckets[key]
		points = append(points, domain.TrendPoint{Date: key, Total: total})
	}
	return points, nil
}
