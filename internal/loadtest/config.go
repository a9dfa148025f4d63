// Package loadtest drives a running ladder service over HTTP with concurrent
// match submissions and checks that the resulting standings add up.
package loadtest

import (
	"runtime"
	"time"
)

// Config holds configuration for a load test run.
type Config struct {
	BaseURL string        // Base URL of the service
	Players int           // Players to register before submitting
	Matches int           // Matches to submit
	Workers int           // Concurrent submitters
	Timeout time.Duration // HTTP request timeout
	// RetryRatio is the fraction of matches sent a second time with the
	// same Idempotency-Key. The retry must be answered as a replay.
	RetryRatio float64
	Seed       int64
	// MaxAttempts bounds resubmissions of a request refused with 429.
	MaxAttempts int
	Backoff     time.Duration
	Verbose     bool
}

// DefaultConfig returns a small run against a local service.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9080",
		Players:     16,
		Matches:     200,
		Workers:     runtime.NumCPU() * WorkerMultiplier,
		Timeout:     30 * time.Second,
		RetryRatio:  0.1,
		Seed:        1,
		MaxAttempts: 8,
		Backoff:     100 * time.Millisecond,
	}
}

// Stats holds run statistics.
type Stats struct {
	PlayersRegistered int
	MatchesPlanned    int
	MatchesRecorded   int
	Replays           int
	RateLimited       int
	Failed            int
	LadderEntries     int
	StartTime         time.Time
	EndTime           time.Time
	Duration          time.Duration
}

// MatchesPerSecond is the recorded match throughput.
func (s Stats) MatchesPerSecond() float64 {
	if s.Duration <= 0 {
		return 0
	}
	return float64(s.MatchesRecorded) / s.Duration.Seconds()
}
