package api

import (
	"errors"
	"net/http"

	"github.com/okian/rally/internal/adapters/mq/worker"
	service "github.com/okian/rally/internal/app"
	"github.com/okian/rally/internal/domain/dedupe"
	"github.com/okian/rally/internal/domain/ledger"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrBackpressure = errors.New("backpressure")
	ErrRateLimited  = errors.New("rate limited")
	ErrConfirm      = errors.New("confirmation required")
)

// Error carries the handler op, a sentinel kind and the cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	msg := e.Op
	if e.Kind != nil {
		msg += ": " + e.Kind.Error()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	var out []error
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind returns an error of kind without a cause.
func NewKind(op string, kind error) error { return &Error{Op: op, Kind: kind} }

// Wrap annotates err with op.
func Wrap(op string, err error) error { return &Error{Op: op, Err: err} }

// WrapKind annotates err with op and kind.
func WrapKind(op string, kind, err error) error { return &Error{Op: op, Kind: kind, Err: err} }

// classify maps an error to an HTTP status and a stable code.
func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ledger.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrConfirm):
		return http.StatusBadRequest, "confirmation_required"
	case errors.Is(err, ledger.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, dedupe.ErrInFlight):
		return http.StatusConflict, "request_in_flight"
	case errors.Is(err, dedupe.ErrKeyReuse):
		return http.StatusUnprocessableEntity, "idempotency_key_reused"
	case errors.Is(err, worker.ErrBusy), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, "rate_limited"
	case errors.Is(err, service.ErrNotStarted), errors.Is(err, worker.ErrStopped):
		return http.StatusServiceUnavailable, "unavailable"
	case errors.Is(err, ledger.ErrConsistency):
		return http.StatusInternalServerError, "consistency_error"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
