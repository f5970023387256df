package domain

import "errors"

// Domain errors
var (
	ErrNotFound        = errors.New("resource not found")
	ErrAlreadyExists   = errors.New("resource already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthorized    = errors.New("unauthorized")
	ErrForbidden       = errors.New("forbidden")
	ErrInternalError   = errors.New("internal error")
	ErrStudentNotFound = errors.New("student not found")
	ErrSchoolNotFound  = errors.New("school not found")
	ErrVersionConflict = errors.New("ledger was modified concurrently")
)

// Validation constants
const (
	MaxLabelLength = 255
)
