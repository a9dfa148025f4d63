package loadtest

// WorkerMultiplier scales the default worker count by CPU cores.
const WorkerMultiplier = 2

// Table tennis scoring used by generated matches.
const (
	gamePoint   = 11
	maxOvertime = 3
)

const (
	headerIdempotencyKey = "Idempotency-Key"
	headerReplayed       = "Idempotent-Replayed"
)
