package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
	"github.com/vedalabs/veda/veda-backend/internal/testutil"
)

func validStructure() *domain.FeeStructure {
	return &domain.FeeStructure{
		CourseName:    "Science",
		Session:       "2026-27",
		DurationYears: 2,
		Years: []domain.YearSchedule{
			{Year: 1, Items: []domain.ChargeLineItem{
				{Label: "Tuition", Amount: decimal.NewFromInt(60000)},
				{Label: "Lab Fee", Amount: decimal.NewFromInt(5000)},
			}},
			{Year: 2, Items: []domain.ChargeLineItem{
				{Label: "Tuition", Amount: decimal.NewFromInt(65000)},
			}},
		},
	}
}

func TestCreateStructure_Success(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	created, err := svc.CreateStructure(1, validStructure())
	assert.NoError(t, err)
	assert.True(t, created.Active)
	assert.Equal(t, int32(1), created.SchoolID)
	// Year totals are derived from the items, never trusted from input.
	assert.True(t, created.Years[0].TotalYear.Equal(decimal.NewFromInt(65000)))
	assert.True(t, created.Years[1].TotalYear.Equal(decimal.NewFromInt(65000)))
}

func TestCreateStructure_MissingCourseName(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	structure := validStructure()
	structure.CourseName = ""
	created, err := svc.CreateStructure(1, structure)
	assert.Error(t, err)
	assert.Equal(t, domain.ErrStructureCourseEmpty, err)
	assert.Nil(t, created)
}

func TestCreateStructure_MoreYearsThanDuration(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	structure := validStructure()
	structure.DurationYears = 1
	created, err := svc.CreateStructure(1, structure)
	assert.Error(t, err)
	assert.Equal(t, domain.ErrStructureYearsMismatch, err)
	assert.Nil(t, created)
}

func TestUpdateStructure_PreservesActiveFlag(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	created, err := svc.CreateStructure(1, validStructure())
	assert.NoError(t, err)
	assert.NoError(t, svc.DeactivateStructure(1, created.ID))

	replacement := validStructure()
	replacement.Years[0].Items[0].Amount = decimal.NewFromInt(70000)
	updated, err := svc.UpdateStructure(1, created.ID, replacement)
	assert.NoError(t, err)
	assert.False(t, updated.Active)
	assert.True(t, updated.Years[0].TotalYear.Equal(decimal.NewFromInt(75000)))
}

func TestUpdateStructure_NotFound(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	updated, err := svc.UpdateStructure(1, 999, validStructure())
	assert.Error(t, err)
	assert.Equal(t, domain.ErrStructureNotFound, err)
	assert.Nil(t, updated)
}

func TestDeactivateStructure_StopsSeedingLookups(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	created, err := svc.CreateStructure(1, validStructure())
	assert.NoError(t, err)

	found, err := repo.GetActiveByCourseSession(1, "Science", "2026-27")
	assert.NoError(t, err)
	assert.Equal(t, created.ID, found.ID)

	assert.NoError(t, svc.DeactivateStructure(1, created.ID))

	_, err = repo.GetActiveByCourseSession(1, "Science", "2026-27")
	assert.Equal(t, domain.ErrStructureNotFound, err)
}

func TestGetStructure_WrongSchool(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	created, err := svc.CreateStructure(1, validStructure())
	assert.NoError(t, err)

	found, err := svc.GetStructure(2, created.ID)
	assert.Error(t, err)
	assert.Equal(t, domain.ErrStructureNotFound, err)
	assert.Nil(t, found)
}

func TestListStructures_IncludesInactive(t *testing.T) {
	repo := testutil.NewMockFeeStructureRepository()
	svc := NewFeeStructureService(repo)

	first, err := svc.CreateStructure(1, validStructure())
	assert.NoError(t, err)
	second := validStructure()
	second.CourseName = "Commerce"
	_, err = svc.CreateStructure(1, second)
	assert.NoError(t, err)

	assert.NoError(t, svc.DeactivateStructure(1, first.ID))

	structures, err := svc.ListStructures(1)
	assert.NoError(t, err)
	assert.Len(t, structures, 2)
}
