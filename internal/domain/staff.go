package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrStaffNotFound = errors.New("staff member not found")

// Staff is a school employee who signs in through Auth0 and collects fees.
type Staff struct {
	ID        uuid.UUID `json:"id"`
	SchoolID  int32     `json:"schoolId"`
	Auth0ID   string    `json:"-"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// StaffRepository resolves staff identities from Auth0 subjects.
type StaffRepository interface {
	GetByAuth0ID(auth0ID string) (*Staff, error)
}
