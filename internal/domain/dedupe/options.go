package dedupe

type config struct {
	maxSize int
}

// Option configures NewInMemoryDeduper.
type Option func(*config)

// WithMaxSize sets the number of keys kept before the oldest is evicted.
// maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(c *config) {
		c.maxSize = maxSize
	}
}
