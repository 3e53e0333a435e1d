package employee

import "errors"

var (
	ErrInvalidID          = errors.New("employee: invalid id")
	ErrInvalidName        = errors.New("employee: invalid name")
	ErrInvalidEmail       = errors.New("employee: invalid email")
	ErrInvalidPhone       = errors.New("employee: invalid phone number")
	ErrInvalidGender      = errors.New("employee: invalid gender")
	ErrInvalidPageSize    = errors.New("employee: invalid page size")
	ErrInvalidPageToken   = errors.New("employee: invalid page token")
	ErrEmployeeNotFound   = errors.New("employee: not found")
	ErrCafeNotFound       = errors.New("employee: cafe not found")
	ErrAssignmentNotFound = errors.New("employee: assignment not found")
	ErrEmployeeConflict   = errors.New("employee: conflict")
)
