package handler

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ogurasousui/cafe-staffing/internal/core/cafe"
	"github.com/ogurasousui/cafe-staffing/internal/core/employee"
	"github.com/ogurasousui/cafe-staffing/internal/core/identifier"
)

func toStatusError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, employee.ErrInvalidID),
		errors.Is(err, employee.ErrInvalidName),
		errors.Is(err, employee.ErrInvalidEmail),
		errors.Is(err, employee.ErrInvalidPhone),
		errors.Is(err, employee.ErrInvalidGender),
		errors.Is(err, employee.ErrInvalidPageSize),
		errors.Is(err, employee.ErrInvalidPageToken),
		errors.Is(err, cafe.ErrInvalidID),
		errors.Is(err, cafe.ErrInvalidName),
		errors.Is(err, cafe.ErrInvalidDescription),
		errors.Is(err, cafe.ErrInvalidLocation),
		errors.Is(err, cafe.ErrInvalidLogo),
		errors.Is(err, cafe.ErrInvalidPageSize),
		errors.Is(err, cafe.ErrInvalidPageToken):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, employee.ErrCafeNotFound):
		return status.Error(codes.NotFound, "assigned cafe does not exist: "+err.Error())
	case errors.Is(err, employee.ErrEmployeeNotFound), errors.Is(err, cafe.ErrCafeNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, identifier.ErrSpaceExhausted):
		return status.Error(codes.ResourceExhausted, err.Error())
	case errors.Is(err, employee.ErrEmployeeConflict), errors.Is(err, cafe.ErrCafeConflict):
		return status.Error(codes.AlreadyExists, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
