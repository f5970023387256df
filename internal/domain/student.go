package domain

import (
	"time"

	"github.com/google/uuid"
)

// Student is the directory record this core denormalizes from.
// The directory itself is maintained elsewhere; ledgers only resolve
// references against it.
type Student struct {
	ID              uuid.UUID `json:"id"`
	SchoolID        int32     `json:"schoolId"`
	Name            string    `json:"name"`
	Program         string    `json:"program"`
	GuardianName    *string   `json:"guardianName,omitempty"`
	GuardianContact *string   `json:"guardianContact,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// StudentDirectory resolves student references for validation and
// read-side denormalization.
type StudentDirectory interface {
	GetByID(schoolID int32, id uuid.UUID) (*Student, error)
	GetByIDs(schoolID int32, ids []uuid.UUID) (map[uuid.UUID]*Student, error)
}
