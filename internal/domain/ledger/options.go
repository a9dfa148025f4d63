package ledger

import (
	"time"

	"github.com/okian/rally/pkg/logger"
)

// Option configures a Ledger.
type Option func(*Ledger)

// WithClock replaces time.Now, used for match timestamps and player updates.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets the ledger logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.log = lg
		}
	}
}

// WithDefaultSeason sets the season used until one is stored.
func WithDefaultSeason(season int) Option {
	return func(l *Ledger) {
		if season >= 1 {
			l.defaultSeason = season
		}
	}
}
