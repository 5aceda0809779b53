package service

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies failures surfaced by the ledger
type ErrorKind int

const (
	KindStorageFailure ErrorKind = iota
	KindValidation
	KindInsufficientResource
	KindNotFound
	KindExternalUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindInsufficientResource:
		return "insufficient_resource"
	case KindNotFound:
		return "not_found"
	case KindExternalUnavailable:
		return "external_unavailable"
	default:
		return "storage_failure"
	}
}

var (
	// Validation
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotAuthorized = errors.New("not authorized")
	ErrUserBanned    = errors.New("user is banned")
	ErrRewardExists  = fmt.Errorf("%w: reward already exists", ErrInvalidInput)

	// Insufficient resource
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrOutOfStock         = errors.New("out of stock")

	// Not found
	ErrUserNotFound   = errors.New("user not found")
	ErrRewardNotFound = errors.New("reward not found")

	// External
	ErrMembershipUnavailable = errors.New("membership check unavailable")
)

// KindOf maps an error onto the failure taxonomy. Unrecognized errors are storage failures.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrNotAuthorized), errors.Is(err, ErrUserBanned):
		return KindValidation
	case errors.Is(err, ErrInsufficientPoints), errors.Is(err, ErrOutOfStock):
		return KindInsufficientResource
	case errors.Is(err, ErrUserNotFound), errors.Is(err, ErrRewardNotFound):
		return KindNotFound
	case errors.Is(err, ErrMembershipUnavailable), errors.Is(err, context.DeadlineExceeded):
		return KindExternalUnavailable
	default:
		return KindStorageFailure
	}
}

// IsRetryable reports whether the caller may retry the same request later
func IsRetryable(err error) bool {
	switch KindOf(err) {
	case KindInsufficientResource, KindExternalUnavailable, KindStorageFailure:
		return true
	default:
		return false
	}
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
