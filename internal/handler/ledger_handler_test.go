package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/middleware"
	"github.com/vedalabs/veda/veda-backend/internal/service"
	"github.com/vedalabs/veda/veda-backend/internal/testutil"
)

var handlerFallbackTotal = decimal.NewFromInt(155000)

// Helper to set up auth context the way the JWT middleware would
func setupAuthContext(c echo.Context, auth0ID string, schoolID int32) {
	customClaims := &middleware.CustomClaims{
		Email: "staff@example.com",
		Name:  "Test Staff",
	}
	claims := &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{
			Subject: auth0ID,
		},
		CustomClaims: customClaims,
	}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	ctx = context.WithValue(ctx, middleware.Auth0IDKey, auth0ID)
	if schoolID > 0 {
		ctx = context.WithValue(ctx, middleware.SchoolIDKey, schoolID)
	}
	c.SetRequest(c.Request().WithContext(ctx))
}

// Helper to also inject a staff ID, as the API-token path does
func setupStaffContext(c echo.Context, schoolID int32, staffID uuid.UUID) {
	setupAuthContext(c, "auth0|test", schoolID)
	ctx := context.WithValue(c.Request().Context(), middleware.StaffIDKey, staffID)
	c.SetRequest(c.Request().WithContext(ctx))
}

type ledgerHandlerFixture struct {
	handler    *LedgerHandler
	ledgerRepo *testutil.MockLedgerRepository
	students   *testutil.MockStudentDirectory
}

func newLedgerHandlerFixture() *ledgerHandlerFixture {
	ledgerRepo := testutil.NewMockLedgerRepository()
	structureRepo := testutil.NewMockFeeStructureRepository()
	students := testutil.NewMockStudentDirectory()
	ledgerService := service.NewLedgerService(ledgerRepo, structureRepo, students, handlerFallbackTotal)
	statementService := service.NewStatementService(ledgerRepo, students)
	return &ledgerHandlerFixture{
		handler:    NewLedgerHandler(ledgerService, statementService),
		ledgerRepo: ledgerRepo,
		students:   students,
	}
}

func (f *ledgerHandlerFixture) addStudent(schoolID int32, name string) uuid.UUID {
	id := uuid.New()
	f.students.AddStudent(&domain.Student{ID: id, SchoolID: schoolID, Name: name, Program: "Science"})
	return id
}

func (f *ledgerHandlerFixture) addLedger(schoolID int32, studentID uuid.UUID, total int64) *domain.FeeLedger {
	ledger := &domain.FeeLedger{
		SchoolID:     schoolID,
		StudentID:    studentID,
		AcademicYear: "2026-27",
		Term:         domain.TermAnnual,
		Program:      "Science",
		Duration:     domain.DurationOneYear,
		YearNumber:   1,
		Items: []domain.ChargeLineItem{
			{Label: "Tuition", Amount: decimal.NewFromInt(total)},
		},
	}
	ledger.Reconcile(handlerFallbackTotal)
	created, _ := f.ledgerRepo.Create(ledger)
	return created
}

func TestCreateLedger_Success(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")

	body := `{
		"studentId": "` + studentID.String() + `",
		"academicYear": "2026-27",
		"term": "Annual",
		"program": "Science",
		"courseDuration": "1 Year",
		"yearNumber": 1,
		"items": [{"label": "Tuition", "amount": "20000"}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-ledgers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.CreateLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var response LedgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.TotalDue != "20000.00" {
		t.Errorf("Expected totalDue 20000.00, got %s", response.TotalDue)
	}
	if response.Status != "due" {
		t.Errorf("Expected status due, got %s", response.Status)
	}
	if response.Version != 1 {
		t.Errorf("Expected version 1, got %d", response.Version)
	}
}

func TestCreateLedger_InvalidStudentID(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	body := `{"studentId": "not-a-uuid", "academicYear": "2026-27", "courseDuration": "1 Year", "yearNumber": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-ledgers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.CreateLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateLedger_StudentNotFound(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	body := `{"studentId": "` + uuid.NewString() + `", "academicYear": "2026-27", "courseDuration": "1 Year", "yearNumber": 1}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-ledgers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.CreateLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestCreateLedger_YearMismatch(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")

	body := `{"studentId": "` + studentID.String() + `", "academicYear": "2026-27", "courseDuration": "1 Year", "yearNumber": 2}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-ledgers", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.CreateLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestCreateLedger_NoSchoolContext(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/fee-ledgers", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := f.handler.CreateLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestGetLedger_ReturnsStatement(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")
	ledger := f.addLedger(1, studentID, 20000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-ledgers/1", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(ledger.ID, 10))
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.GetLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var statement domain.StudentStatement
	if err := json.Unmarshal(rec.Body.Bytes(), &statement); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if statement.LedgerID != ledger.ID {
		t.Errorf("Expected ledgerId %d, got %d", ledger.ID, statement.LedgerID)
	}
	if statement.Student == nil || statement.Student.Name != "Asha Verma" {
		t.Errorf("Expected student name in statement, got %+v", statement.Student)
	}
	if len(statement.Installments) != 1 {
		t.Errorf("Expected 1 installment line, got %d", len(statement.Installments))
	}
}

func TestGetLedger_NotFound(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-ledgers/999", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.GetLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}

func TestGetLedger_InvalidID(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-ledgers/abc", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("abc")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.GetLedger(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestListLedgers_Success(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")
	f.addLedger(1, studentID, 20000)
	f.addLedger(1, studentID, 30000)
	f.addLedger(2, uuid.New(), 40000)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/fee-ledgers", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.ListLedgers(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	var response []LedgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if len(response) != 2 {
		t.Errorf("Expected 2 ledgers, got %d", len(response))
	}
}

func TestUpdateCorrections_SetsDueDateAndFine(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")
	ledger := f.addLedger(1, studentID, 20000)

	body := `{"dueDate": "2027-03-15T00:00:00Z", "overdueFine": "500"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/fee-ledgers/1", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(ledger.ID, 10))
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.UpdateCorrections(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var response LedgerResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal response: %v", err)
	}
	if response.DueDate == nil {
		t.Fatal("Expected dueDate to be set")
	}
	if response.OverdueFine != "500.00" {
		t.Errorf("Expected overdueFine 500.00, got %s", response.OverdueFine)
	}
	// Aggregates survive the correction untouched
	if response.TotalDue != "20000.00" {
		t.Errorf("Expected totalDue 20000.00, got %s", response.TotalDue)
	}
}

func TestUpdateCorrections_NegativeFine(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()
	studentID := f.addStudent(1, "Asha Verma")
	ledger := f.addLedger(1, studentID, 20000)

	body := `{"overdueFine": "-100"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/fee-ledgers/1", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(strconv.FormatInt(ledger.ID, 10))
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.UpdateCorrections(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
}

func TestUpdateCorrections_NotFound(t *testing.T) {
	e := echo.New()
	f := newLedgerHandlerFixture()

	body := `{"overdueFine": "100"}`
	req := httptest.NewRequest(http.MethodPatch, "/api/v1/fee-ledgers/999", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues("999")
	setupAuthContext(c, "auth0|test", 1)

	if err := f.handler.UpdateCorrections(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rec.Code)
	}
}
