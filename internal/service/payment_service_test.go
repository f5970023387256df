package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/testutil"
	"github.com/vedalabs/veda/veda-backend/internal/websocket"
)

var testFallbackTotal = decimal.NewFromInt(155000)

func seedLedger(repo *testutil.MockLedgerRepository, schoolID int32, total int64) *domain.FeeLedger {
	ledger := &domain.FeeLedger{
		SchoolID:     schoolID,
		StudentID:    uuid.New(),
		AcademicYear: "2026-27",
		Term:         domain.TermAnnual,
		Program:      "Science",
		Duration:     domain.DurationOneYear,
		YearNumber:   1,
		Items: []domain.ChargeLineItem{
			{Label: "Tuition", Amount: decimal.NewFromInt(total)},
		},
	}
	ledger.Reconcile(testFallbackTotal)
	created, _ := repo.Create(ledger)
	return created
}

func TestApplyPayment_PartialStatus(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(5000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(5000)))
	assert.True(t, result.DueAmount.Equal(decimal.NewFromInt(15000)))
	assert.Equal(t, domain.StatusPartial, result.Status)
	assert.Equal(t, int32(2), result.Version)
	assert.Len(t, result.Payments, 1)
	assert.NotNil(t, result.LastPayment)
}

func TestApplyPayment_FullPaymentMarksPaid(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(20000),
		Method:      domain.MethodUPI,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Equal(t, domain.StatusPaid, result.Status)
	assert.True(t, result.DueAmount.IsZero())
}

func TestApplyPayment_OverpaymentClampsDueToZero(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(25000),
		Method:      domain.MethodCard,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.True(t, result.DueAmount.IsZero())
	assert.Equal(t, domain.StatusPaid, result.Status)
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(25000)))
}

func TestApplyPayment_DefaultsPaidAt(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(1000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.False(t, result.Payments[0].PaidAt.IsZero())
}

func TestApplyPayment_InvalidAmount(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.Zero,
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrPaymentAmountInvalid, err)
	assert.Nil(t, result)
}

func TestApplyPayment_InvalidMethod(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(500),
		Method:      "barter",
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrPaymentMethodInvalid, err)
	assert.Nil(t, result)
}

func TestApplyPayment_LedgerNotFound(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)

	result, err := svc.ApplyPayment(1, 999, &domain.Payment{
		Amount:      decimal.NewFromInt(500),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrLedgerNotFound, err)
	assert.Nil(t, result)
}

func TestApplyPayment_WrongSchool(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyPayment(2, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(500),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrLedgerNotFound, err)
	assert.Nil(t, result)
}

func TestApplyPayment_RetriesAfterConflict(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	// A concurrent writer lands 10000 between our read and our write.
	repo.AppendConflicts = 1
	repo.OnConflict = func(stored *domain.FeeLedger) {
		repo.ApplyConcurrentPayment(stored.ID, domain.Payment{
			Amount:      decimal.NewFromInt(10000),
			Method:      domain.MethodCash,
			PaidAt:      time.Now(),
			CollectedBy: uuid.New(),
		}, testFallbackTotal)
	}

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(10000),
		Method:      domain.MethodUPI,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	// Both payments survive: the retry re-reads and reconciles over the
	// concurrent writer's entry instead of overwriting it.
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(20000)))
	assert.Equal(t, domain.StatusPaid, result.Status)
	assert.Len(t, result.Payments, 2)
	assert.Equal(t, int32(3), result.Version)
}

func TestApplyPayment_ConflictExhausted(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	repo.AppendConflicts = 3

	result, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(1000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrVersionConflict, err)
	assert.Nil(t, result)
}

func TestApplyAdjustment_NetsAgainstPayments(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	_, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(10000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)

	remarks := "Data entry error, cashier keyed 10000 instead of 6000"
	result, err := svc.ApplyAdjustment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(-4000),
		Method:      domain.MethodCash,
		Remarks:     &remarks,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.True(t, result.PaidAmount.Equal(decimal.NewFromInt(6000)))
	assert.True(t, result.DueAmount.Equal(decimal.NewFromInt(14000)))
	assert.Equal(t, domain.StatusPartial, result.Status)
	// History is append-only: the original entry stays, the correction is
	// a second entry.
	assert.Len(t, result.Payments, 2)
}

func TestApplyAdjustment_RequiresRemarks(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	result, err := svc.ApplyAdjustment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(-4000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrAdjustmentNeedsRemarks, err)
	assert.Nil(t, result)
}

func TestApplyAdjustment_RejectsPositiveAmount(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	remarks := "not actually a correction"
	result, err := svc.ApplyAdjustment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(4000),
		Method:      domain.MethodCash,
		Remarks:     &remarks,
		CollectedBy: uuid.New(),
	})
	assert.Error(t, err)
	assert.Equal(t, domain.ErrAdjustmentNotNegative, err)
	assert.Nil(t, result)
}

type capturingPublisher struct {
	schoolIDs []int32
	events    []websocket.Event
}

func (p *capturingPublisher) Publish(schoolID int32, event websocket.Event) {
	p.schoolIDs = append(p.schoolIDs, schoolID)
	p.events = append(p.events, event)
}

func TestApplyPayment_PublishesEvent(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 7, 20000)

	publisher := &capturingPublisher{}
	svc.SetEventPublisher(publisher)

	_, err := svc.ApplyPayment(7, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(5000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, int32(7), publisher.schoolIDs[0])
	assert.Equal(t, "payment.recorded", publisher.events[0].Type)
}

func TestApplyAdjustment_PublishesEvent(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 7, 20000)

	publisher := &capturingPublisher{}
	svc.SetEventPublisher(publisher)

	remarks := "Cashier keyed the wrong amount"
	_, err := svc.ApplyAdjustment(7, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(-4000),
		Method:      domain.MethodCash,
		Remarks:     &remarks,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
	assert.Len(t, publisher.events, 1)
	assert.Equal(t, int32(7), publisher.schoolIDs[0])
	assert.Equal(t, "payment.adjusted", publisher.events[0].Type)
}

func TestApplyPayment_NoPublisherConfigured(t *testing.T) {
	repo := testutil.NewMockLedgerRepository()
	svc := NewPaymentService(repo, testFallbackTotal)
	ledger := seedLedger(repo, 1, 20000)

	_, err := svc.ApplyPayment(1, ledger.ID, &domain.Payment{
		Amount:      decimal.NewFromInt(5000),
		Method:      domain.MethodCash,
		CollectedBy: uuid.New(),
	})
	assert.NoError(t, err)
}
