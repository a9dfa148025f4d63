package ledger

import (
	"errors"
	"strings"
)

// Error kinds. Match with errors.Is.
var (
	ErrValidation  = errors.New("validation failed")
	ErrNotFound    = errors.New("not found")
	ErrConsistency = errors.New("ledger inconsistent")
)

// Error describes a rejected ledger operation.
type Error struct {
	Op     string
	Kind   error
	Reason string
	Err    error
}

func (e *Error) Error() string {
	parts := []string{e.Op, e.Kind.Error()}
	if e.Reason != "" {
		parts = append(parts, e.Reason)
	}
	if e.Err != nil {
		parts = append(parts, e.Err.Error())
	}
	return strings.Join(parts, ": ")
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func validation(op, reason string) error {
	return &Error{Op: op, Kind: ErrValidation, Reason: reason}
}

func notFound(op, reason string, err error) error {
	return &Error{Op: op, Kind: ErrNotFound, Reason: reason, Err: err}
}

func inconsistent(op, reason string) error {
	return &Error{Op: op, Kind: ErrConsistency, Reason: reason}
}

// kindLabel names err's kind for metrics.
func kindLabel(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrConsistency):
		return "consistency"
	default:
		return "internal"
	}
}
