package domain

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrStructureNotFound      = errors.New("fee structure not found")
	ErrStructureCourseEmpty   = errors.New("course name is required")
	ErrStructureSessionEmpty  = errors.New("session is required")
	ErrStructureDuration      = errors.New("duration must be at least one year")
	ErrStructureYearsMismatch = errors.New("year schedules must cover the course duration")
)

// ChargeFrequency says how often an additional charge recurs.
type ChargeFrequency string

const (
	FrequencyOneTime ChargeFrequency = "one_time"
	FrequencyAnnual  ChargeFrequency = "annual"
	FrequencyPerTerm ChargeFrequency = "per_term"
)

// AdditionalCharge is a recurring charge defined outside the year schedules.
type AdditionalCharge struct {
	Label     string          `json:"label"`
	Amount    decimal.Decimal `json:"amount"`
	Frequency ChargeFrequency `json:"frequency"`
	PayableTo string          `json:"payableTo"`
}

// YearSchedule is the charge template for one year of a course.
type YearSchedule struct {
	Year      int32            `json:"year"`
	Items     []ChargeLineItem `json:"items"`
	TotalYear decimal.Decimal  `json:"totalYear"`
}

// FeeStructure is the read-only template a ledger is seeded from.
// Line items are copied into the ledger at creation; later edits to the
// structure never change existing ledgers.
type FeeStructure struct {
	ID                int64              `json:"id"`
	SchoolID          int32              `json:"schoolId"`
	CourseName        string             `json:"courseName"`
	Session           string             `json:"session"`
	DurationYears     int32              `json:"durationYears"`
	Years             []YearSchedule     `json:"years"`
	AdditionalCharges []AdditionalCharge `json:"additionalCharges"`
	Active            bool               `json:"active"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// Validate checks template shape before persistence.
func (f *FeeStructure) Validate() error {
	if f.CourseName == "" {
		return ErrStructureCourseEmpty
	}
	if f.Session == "" {
		return ErrStructureSessionEmpty
	}
	if f.DurationYears < 1 {
		return ErrStructureDuration
	}
	if len(f.Years) > int(f.DurationYears) {
		return ErrStructureYearsMismatch
	}
	return nil
}

// ScheduleForYear returns the year schedule matching the given year number,
// or nil when the structure does not define one.
func (f *FeeStructure) ScheduleForYear(year int32) *YearSchedule {
	for i := range f.Years {
		if f.Years[i].Year == year {
			return &f.Years[i]
		}
	}
	return nil
}

// FeeStructureRepository defines persistence for fee structure templates.
type FeeStructureRepository interface {
	Create(structure *FeeStructure) (*FeeStructure, error)
	GetByID(schoolID int32, id int64) (*FeeStructure, error)
	GetActiveByCourseSession(schoolID int32, courseName, session string) (*FeeStructure, error)
	GetAllBySchool(schoolID int32) ([]*FeeStructure, error)
	Update(structure *FeeStructure) (*FeeStructure, error)
	Deactivate(schoolID int32, id int64) error
}
