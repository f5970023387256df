package service

import (
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vedalabs/veda/veda-backend/internal/domain"
)

// FeeStructureService manages the catalog of charge templates.
type FeeStructureService struct {
	structureRepo domain.FeeStructureRepository
}

// NewFeeStructureService creates a new FeeStructureService
func NewFeeStructureService(structureRepo domain.FeeStructureRepository) *FeeStructureService {
	return &FeeStructureService{structureRepo: structureRepo}
}

// CreateStructure validates and stores a charge template. Year totals
// are recomputed from the line items so they can never drift.
func (s *FeeStructureService) CreateStructure(schoolID int32, structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	structure.SchoolID = schoolID
	structure.Active = true
	if err := structure.Validate(); err != nil {
		return nil, err
	}
	recomputeYearTotals(structure)

	created, err := s.structureRepo.Create(structure)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("structure_id", created.ID).
		Str("course", created.CourseName).
		Str("session", created.Session).
		Msg("Fee structure created")

	return created, nil
}

// GetStructure retrieves a single charge template.
func (s *FeeStructureService) GetStructure(schoolID int32, id int64) (*domain.FeeStructure, error) {
	return s.structureRepo.GetByID(schoolID, id)
}

// ListStructures returns every template for the school, active or not.
func (s *FeeStructureService) ListStructures(schoolID int32) ([]*domain.FeeStructure, error) {
	return s.structureRepo.GetAllBySchool(schoolID)
}

// UpdateStructure replaces a template. Existing ledgers keep the items
// they were seeded with; only new ledgers see the update.
func (s *FeeStructureService) UpdateStructure(schoolID int32, id int64, structure *domain.FeeStructure) (*domain.FeeStructure, error) {
	existing, err := s.structureRepo.GetByID(schoolID, id)
	if err != nil {
		return nil, err
	}

	structure.ID = existing.ID
	structure.SchoolID = schoolID
	structure.Active = existing.Active
	if err := structure.Validate(); err != nil {
		return nil, err
	}
	recomputeYearTotals(structure)

	updated, err := s.structureRepo.Update(structure)
	if err != nil {
		return nil, err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("structure_id", id).
		Msg("Fee structure updated")

	return updated, nil
}

// DeactivateStructure retires a template from seeding new ledgers.
func (s *FeeStructureService) DeactivateStructure(schoolID int32, id int64) error {
	if err := s.structureRepo.Deactivate(schoolID, id); err != nil {
		return err
	}

	log.Info().
		Int32("school_id", schoolID).
		Int64("structure_id", id).
		Msg("Fee structure deactivated")

	return nil
}

func recomputeYearTotals(structure *domain.FeeStructure) {
	for i := range structure.Years {
		total := decimal.Zero
		for _, item := range structure.Years[i].Items {
			total = total.Add(item.Amount)
		}
		structure.Years[i].TotalYear = total
	}
}
