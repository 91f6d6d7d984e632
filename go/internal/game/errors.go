package game

import (
	"errors"
	"fmt"
)

var (
	ErrNoSubject       = errors.New("no subject selected")
	ErrSubjectNotFound = errors.New("subject not found")
	ErrTooManyUnits    = errors.New("too many units at once")
	ErrInvalidUnits    = errors.New("unit amount must be positive")
)

// InsufficientBalanceError is returned when a purchase costs more than the
// subject holds.
type InsufficientBalanceError struct {
	Have int64
	Need int64
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: you have %d, but %d is needed", e.Have, e.Need)
}

// IsRejection reports whether err is a rule violation the caller should see
// as a failed request rather than a server fault.
func IsRejection(err error) bool {
	var insufficient *InsufficientBalanceError
	return errors.Is(err, ErrNoSubject) ||
		errors.Is(err, ErrSubjectNotFound) ||
		errors.Is(err, ErrTooManyUnits) ||
		errors.Is(err, ErrInvalidUnits) ||
		errors.As(err, &insufficient)
}
