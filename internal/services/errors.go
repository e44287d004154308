package services

import "errors"

var (
	ErrForbidden       = errors.New("forbidden")
	ErrPayerNotMember  = errors.New("designated payer is not a member of the plan")
	ErrTooManyIDs      = errors.New("too many ids (max 50)")
	ErrNotRecurring    = errors.New("planned expense is not recurring")
	ErrUnknownCategory = errors.New("unknown category")
)

// ValidationError marks a rejected input. The HTTP layer reports it as 422
// with the wrapped message.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Err: err}
}
