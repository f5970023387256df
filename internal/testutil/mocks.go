package testutil

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// MockLedgerRepository is a mock implementation of domain.LedgerRepository
type MockLedgerRepository struct {
	Ledgers       map[int64]*domain.FeeLedger
	nextLedgerID  int64
	nextPaymentID int64

	// AppendConflicts injects that many version conflicts before
	// AppendPayment succeeds, to exercise the retry path.
	AppendConflicts int
	// OnConflict runs when a conflict is injected, so tests can mutate
	// the stored ledger the way a concurrent writer would.
	OnConflict func(stored *domain.FeeLedger)
}

// NewMockLedgerRepository creates a new MockLedgerRepository
func NewMockLedgerRepository() *MockLedgerRepository {
	return &MockLedgerRepository{Ledgers: make(map[int64]*domain.FeeLedger)}
}

// Create stores a new ledger and assigns IDs
func (m *MockLedgerRepository) Create(ledger *domain.FeeLedger) (*domain.FeeLedger, error) {
	m.nextLedgerID++
	ledger.ID = m.nextLedgerID
	ledger.Version = 1
	ledger.CreatedAt = time.Now()
	ledger.UpdatedAt = ledger.CreatedAt
	m.Ledgers[ledger.ID] = cloneLedger(ledger)
	return cloneLedger(ledger), nil
}

// GetByID retrieves a copy of a ledger
func (m *MockLedgerRepository) GetByID(schoolID int32, id int64) (*domain.FeeLedger, error) {
	ledger, ok := m.Ledgers[id]
	if !ok || ledger.SchoolID != schoolID {
		return nil, domain.ErrLedgerNotFound
	}
	return cloneLedger(ledger), nil
}

// GetAllBySchool retrieves copies of all ledgers for a school
func (m *MockLedgerRepository) GetAllBySchool(schoolID int32) ([]*domain.FeeLedger, error) {
	result := make([]*domain.FeeLedger, 0)
	for _, ledger := range m.Ledgers {
		if ledger.SchoolID == schoolID {
			result = append(result, cloneLedger(ledger))
		}
	}
	return result, nil
}

// AppendPayment persists the payment and aggregates under a version check
func (m *MockLedgerRepository) AppendPayment(ledger *domain.FeeLedger, payment *domain.Payment) (*domain.FeeLedger, error) {
	stored, ok := m.Ledgers[ledger.ID]
	if !ok || stored.SchoolID != ledger.SchoolID {
		return nil, domain.ErrLedgerNotFound
	}

	if m.AppendConflicts > 0 {
		m.AppendConflicts--
		if m.OnConflict != nil {
			m.OnConflict(stored)
		}
		return nil, domain.ErrVersionConflict
	}

	if stored.Version != ledger.Version {
		return nil, domain.ErrVersionConflict
	}

	m.nextPaymentID++
	payment.ID = m.nextPaymentID
	payment.CreatedAt = time.Now()

	updated := cloneLedger(ledger)
	updated.Version++
	if len(updated.Payments) > 0 {
		updated.Payments[len(updated.Payments)-1].ID = payment.ID
	}
	m.Ledgers[ledger.ID] = cloneLedger(updated)
	return updated, nil
}

// UpdateCorrections edits due date and fine without touching aggregates
func (m *MockLedgerRepository) UpdateCorrections(schoolID int32, id int64, dueDate *time.Time, overdueFine *decimal.Decimal) (*domain.FeeLedger, error) {
	stored, ok := m.Ledgers[id]
	if !ok || stored.SchoolID != schoolID {
		return nil, domain.ErrLedgerNotFound
	}
	if dueDate != nil {
		d := *dueDate
		stored.DueDate = &d
	}
	if overdueFine != nil {
		stored.OverdueFine = *overdueFine
	}
	stored.UpdatedAt = time.Now()
	return cloneLedger(stored), nil
}

// ApplyConcurrentPayment simulates another writer landing a payment
// directly against the stored ledger, bumping its version.
func (m *MockLedgerRepository) ApplyConcurrentPayment(id int64, payment domain.Payment, fallbackTotal decimal.Decimal) {
	stored, ok := m.Ledgers[id]
	if !ok {
		return
	}
	m.nextPaymentID++
	payment.ID = m.nextPaymentID
	payment.LedgerID = id
	stored.Payments = append(stored.Payments, payment)
	stored.Reconcile(fallbackTotal)
	stored.Version++
}

func cloneLedger(ledger *domain.FeeLedger) *domain.FeeLedger {
	clone := *ledger
	clone.Items = append([]domain.ChargeLineItem(nil), ledger.Items...)
	clone.Payments = append([]domain.Payment(nil), ledger.Payments...)
	if ledger.DueDate != nil {
		d := *ledger.DueDate
		clone.DueDate = &d
	}
	if ledger.LastPayment != nil {
		l := *ledger.LastPayment
		clone.LastPayment = &l
	}
	return &clone
}

// MockFeeStructureRepository is a mock implementation of domain.FeeStructureRepository
type MockFeeStructureRepository struct {
	Structures map[int64]*domain.FeeStructure
	nextID     int64
}

// NewMockFeeStructureRepository creates a new MockFeeStructureRepository
func NewMockFeeStructureRepository() *MockFeeStructureRepository {
	return &MockFeeStructureRepository{Structures: make(map[int64]*domain.FeeStructure)}
}

// Create stores a new fee structure
func (m *MockFeeStructureRepository) Create(structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	m.nextID++
	structure.ID = m.nextID
	structure.CreatedAt = time.Now()
	structure.UpdatedAt = structure.CreatedAt
	m.Structures[structure.ID] = structure
	return structure, nil
}

// GetByID retrieves a fee structure by ID
func (m *MockFeeStructureRepository) GetByID(schoolID int32, id int64) (*domain.FeeStructure, error) {
	structure, ok := m.Structures[id]
	if !ok || structure.SchoolID != schoolID {
		return nil, domain.ErrStructureNotFound
	}
	return structure, nil
}

// GetActiveByCourseSession finds the active template for a course and session
func (m *MockFeeStructureRepository) GetActiveByCourseSession(schoolID int32, courseName, session string) (*domain.FeeStructure, error) {
	for _, structure := range m.Structures {
		if structure.SchoolID == schoolID && structure.CourseName == courseName &&
			structure.Session == session && structure.Active {
			return structure, nil
		}
	}
	return nil, domain.ErrStructureNotFound
}

// GetAllBySchool retrieves every fee structure for a school
func (m *MockFeeStructureRepository) GetAllBySchool(schoolID int32) ([]*domain.FeeStructure, error) {
	result := make([]*domain.FeeStructure, 0)
	for _, structure := range m.Structures {
		if structure.SchoolID == schoolID {
			result = append(result, structure)
		}
	}
	return result, nil
}

// Update replaces a fee structure
func (m *MockFeeStructureRepository) Update(structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	stored, ok := m.Structures[structure.ID]
	if !ok || stored.SchoolID != structure.SchoolID {
		return nil, domain.ErrStructureNotFound
	}
	structure.UpdatedAt = time.Now()
	m.Structures[structure.ID] = structure
	return structure, nil
}

// Deactivate retires a fee structure
func (m *MockFeeStructureRepository) Deactivate(schoolID int32, id int64) error {
	structure, ok := m.Structures[id]
	if !ok || structure.SchoolID != schoolID {
		return domain.ErrStructureNotFound
	}
	structure.Active = false
	return nil
}

// MockStudentDirectory is a mock implementation of domain.StudentDirectory
type MockStudentDirectory struct {
	Students map[uuid.UUID]*domain.Student
}

// NewMockStudentDirectory creates a new MockStudentDirectory
func NewMockStudentDirectory() *MockStudentDirectory {
	return &MockStudentDirectory{Students: make(map[uuid.UUID]*domain.Student)}
}

// AddStudent adds a student to the directory (helper for tests)
func (m *MockStudentDirectory) AddStudent(student *domain.Student) {
	m.Students[student.ID] = student
}

// GetByID resolves one student reference
func (m *MockStudentDirectory) GetByID(schoolID int32, id uuid.UUID) (*domain.Student, error) {
	student, ok := m.Students[id]
	if !ok || student.SchoolID != schoolID {
		return nil, domain.ErrStudentNotFound
	}
	return student, nil
}

// GetByIDs resolves a batch of student references
func (m *MockStudentDirectory) GetByIDs(schoolID int32, ids []uuid.UUID) (map[uuid.UUID]*domain.Student, error) {
	result := make(map[uuid.UUID]*domain.Student)
	for _, id := range ids {
		if student, ok := m.Students[id]; ok && student.SchoolID == schoolID {
			result[id] = student
		}
	}
	return result, nil
}

// MockAPITokenRepository is a mock implementation of domain.APITokenRepository
type MockAPITokenRepository struct {
	Tokens map[uuid.UUID]*domain.APIToken
}

// NewMockAPITokenRepository creates a new MockAPITokenRepository
func NewMockAPITokenRepository() *MockAPITokenRepository {
	return &MockAPITokenRepository{Tokens: make(map[uuid.UUID]*domain.APIToken)}
}

// Create stores a new API token
func (m *MockAPITokenRepository) Create(ctx context.Context, token *domain.APIToken) error {
	token.ID = uuid.New()
	token.CreatedAt = time.Now()
	m.Tokens[token.ID] = token
	return nil
}

// GetBySchool retrieves all active tokens for a school
func (m *MockAPITokenRepository) GetBySchool(ctx context.Context, schoolID int32) ([]*domain.APIToken, error) {
	result := make([]*domain.APIToken, 0)
	for _, token := range m.Tokens {
		if token.SchoolID == schoolID && token.RevokedAt == nil {
			result = append(result, token)
		}
	}
	return result, nil
}

// GetByID retrieves a token by ID within a school
func (m *MockAPITokenRepository) GetByID(ctx context.Context, schoolID int32, id uuid.UUID) (*domain.APIToken, error) {
	token, ok := m.Tokens[id]
	if !ok || token.SchoolID != schoolID {
		return nil, domain.ErrAPITokenNotFound
	}
	return token, nil
}

// GetByHash retrieves an active token by its hash
func (m *MockAPITokenRepository) GetByHash(ctx context.Context, hash string) (*domain.APIToken, error) {
	for _, token := range m.Tokens {
		if token.TokenHash == hash && token.RevokedAt == nil {
			return token, nil
		}
	}
	return nil, domain.ErrAPITokenNotFound
}

// Revoke marks a token as revoked
func (m *MockAPITokenRepository) Revoke(ctx context.Context, schoolID int32, id uuid.UUID) error {
	token, ok := m.Tokens[id]
	if !ok || token.SchoolID != schoolID || token.RevokedAt != nil {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	token.RevokedAt = &now
	return nil
}

// UpdateLastUsed updates the last_used_at timestamp
func (m *MockAPITokenRepository) UpdateLastUsed(ctx context.Context, id uuid.UUID) error {
	token, ok := m.Tokens[id]
	if !ok {
		return domain.ErrAPITokenNotFound
	}
	now := time.Now()
	token.LastUsedAt = &now
	return nil
}

// MockStaffRepository is a mock implementation of domain.StaffRepository
type MockStaffRepository struct {
	Staff map[string]*domain.Staff
}

// NewMockStaffRepository creates a new MockStaffRepository
func NewMockStaffRepository() *MockStaffRepository {
	return &MockStaffRepository{Staff: make(map[string]*domain.Staff)}
}

// AddStaff adds a staff member (helper for tests)
func (m *MockStaffRepository) AddStaff(staff *domain.Staff) {
	m.Staff[staff.Auth0ID] = staff
}

// GetByAuth0ID resolves a staff member from an Auth0 subject
func (m *MockStaffRepository) GetByAuth0ID(auth0ID string) (*domain.Staff, error) {
	staff, ok := m.Staff[auth0ID]
	if !ok {
		return nil, domain.ErrStaffNotFound
	}
	return staff, nil
}

// GetSchoolByAuth0ID implements the auth middleware's school lookup
func (m *MockStaffRepository) GetSchoolByAuth0ID(auth0ID string) (int32, error) {
	staff, err := m.GetByAuth0ID(auth0ID)
	if err != nil {
		return 0, err
	}
	return staff.SchoolID, nil
}
