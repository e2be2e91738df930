package dedupe

// Option applies a configuration option to the in-memory deduper.
type Option func(*inMemoryDeduper)

// WithMaxSize sets the maximum number of ids kept in memory.
// maxSize <= 0 disables eviction.
func WithMaxSize(maxSize int) Option {
	return func(d *inMemoryDeduper) {
		d.maxSize = maxSize
	}
}

// WithCaseFolding makes ids that differ only in letter case collide.
func WithCaseFolding() Option {
	return func(d *inMemoryDeduper) {
		d.foldCase = true
	}
}
