package api

import "github.com/okian/rally/pkg/logger"

type options struct {
	rps    float64
	burst  int
	logger logger.Logger
}

// Option configures the Server.
type Option func(*options)

// WithRateLimit sets the per-client budget for mutating routes.
func WithRateLimit(rps float64, burst int) Option {
	return func(o *options) {
		if rps > 0 {
			o.rps = rps
		}
		if burst > 0 {
			o.burst = burst
		}
	}
}

// WithLogger sets the logger used for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
