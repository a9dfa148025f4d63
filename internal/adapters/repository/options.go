package repository

import "github.com/okian/rally/pkg/logger"

// Option applies a configuration option to the SQLStore.
type Option func(*SQLStore)

// WithLogger sets the logger used for store diagnostics.
func WithLogger(l logger.Logger) Option {
	return func(s *SQLStore) {
		if l != nil {
			s.log = l
		}
	}
}

// WithMigrate controls whether Open applies the embedded schema. On by default.
func WithMigrate(enabled bool) Option {
	return func(s *SQLStore) {
		s.migrate = enabled
	}
}
