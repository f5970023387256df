package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
)

// DashboardHandler handles dashboard aggregation HTTP requests
type DashboardHandler struct {
	dashboardService *service.DashboardService
}

// NewDashboardHandler creates a new DashboardHandler
func NewDashboardHandler(dashboardService *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// DashboardTotalsResponse holds the headline numbers with fixed-point amounts
type DashboardTotalsResponse struct {
	TotalOutstanding  string `json:"totalOutstanding"`
	MonthlyCollection string `json:"monthlyCollection"`
	TotalCollected    string `json:"totalCollected"`
	OverduePayments   int    `json:"overduePayments"`
	TotalEnrolled     int    `json:"totalEnrolled"`
}

// OutstandingSegmentResponse is one program's outstanding share
type OutstandingSegmentResponse struct {
	Program   string `json:"program"`
	DueAmount string `json:"dueAmount"`
	Percent   int    `json:"percent"`
}

// RecentPaymentResponse is one row of the recent payment feed
type RecentPaymentResponse struct {
	LedgerID    int64  `json:"ledgerId"`
	StudentID   string `json:"studentId"`
	StudentName string `json:"studentName"`
	Program     string `json:"program"`
	Amount      string `json:"amount"`
	Method      string `json:"method"`
	PaidAt      string `json:"paidAt"`
}

// TrendPointResponse is one calendar day's collection total
type TrendPointResponse struct {
	Date  string `json:"date"`
	Total string `json:"total"`
}

// DashboardSummaryResponse is the full dashboard payload
type DashboardSummaryResponse struct {
	Totals              DashboardTotalsResponse      `json:"totals"`
	EnrollmentByProgram []domain.EnrollmentSlice     `json:"enrollmentByProgram"`
	OutstandingSegments []OutstandingSegmentResponse `json:"outstandingSegments"`
	RecentPayments      []RecentPaymentResponse      `json:"recentPayments"`
}

// GetSummary handles GET /api/v1/fee-ledgers/dashboard-summary
func (h *DashboardHandler) GetSummary(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	summary, err := h.dashboardService.GetSummary(schoolID)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to build dashboard summary")
		return NewInternalError(c, "Failed to build dashboard summary")
	}

	return c.JSON(http.StatusOK, toDashboardResponse(summary))
}

// GetCollectionTrend handles GET /api/v1/fee-ledgers/collection-trend?days=N
func (h *DashboardHandler) GetCollectionTrend(c echo.Context) error {
	schoolID := middleware.GetSchoolID(c)
	if schoolID == 0 {
		return NewUnauthorizedError(c, "School required")
	}

	days := domain.DefaultTrendDays
	if raw := c.QueryParam("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return NewValidationError(c, "Validation failed", []ValidationError{
				{Field: "days", Message: "Must be an integer"},
			})
		}
		days = parsed
	}

	points, err := h.dashboardService.GetCollectionTrend(schoolID, days)
	if err != nil {
		log.Error().Err(err).Int32("school_id", schoolID).Msg("Failed to build collection trend")
		return NewInternalError(c, "Failed to build collection trend")
	}

	response := make([]TrendPointResponse, len(points))
	for i, point := range points {
		response[i] = TrendPointResponse{Date: point.Date, Total: point.Total.StringFixed(2)}
	}
	return c.JSON(http.StatusOK, response)
}

func toDashboardResponse(summary *domain.DashboardSummary) DashboardSummaryResponse {
	segments := make([]OutstandingSegmentResponse, len(summary.OutstandingSegments))
	for i, segment := range summary.OutstandingSegments {
		segments[i] = OutstandingSegmentResponse{
			Program:   segment.Program,
			DueAmount: segment.DueAmount.StringFixed(2),
			Percent:   segment.Percent,
		}
	}

	recents := make([]RecentPaymentResponse, len(summary.RecentPayments))
	for i, payment := range summary.RecentPayments {
		recents[i] = RecentPaymentResponse{
			LedgerID:    payment.LedgerID,
			StudentID:   payment.StudentID.String(),
			StudentName: payment.StudentName,
			Program:     payment.Program,
			Amount:      payment.Amount.StringFixed(2),
			Method:      string(payment.Method),
			PaidAt:      payment.PaidAt.Format(time.RFC3339),
		}
	}

	return DashboardSummaryResponse{
		Totals: DashboardTotalsResponse{
			TotalOutstanding:  summary.Totals.TotalOutstanding.StringFixed(2),
			MonthlyCollection: summary.Totals.MonthlyCollection.StringFixed(2),
			TotalCollected:    summary.Totals.TotalCollected.StringFixed(2),
			OverduePayments:   summary.Totals.OverduePayments,
			TotalEnrolled:     summary.Totals.TotalEnrolled,
		},
		EnrollmentByProgram: summary.EnrollmentByProgram,
		OutstandingSegments: segments,
		RecentPayments:      recents,
	}
}
