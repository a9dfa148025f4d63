package dedupe

import "errors"

// Sentinel kinds for idempotency errors.
var (
	ErrInFlight = errors.New("request with this idempotency key is in progress")
	ErrKeyReuse = errors.New("idempotency key reused with a different request")
)
