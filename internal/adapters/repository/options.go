package repository

import "time"

// Option applies a configuration option to a store.
type Option func(*options)

type options struct {
	ttl    time.Duration
	now    func() time.Time
	prefix string
}

func defaultOptions() options {
	return options{ttl: 24 * time.Hour, now: time.Now, prefix: "squadron:run:"}
}

// WithTTL sets how long runs are kept. Zero or negative keeps them forever.
// Postgres ignores it.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) { o.ttl = ttl }
}

// WithClock overrides the time source used for expiry.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithKeyPrefix sets the Redis key prefix.
func WithKeyPrefix(prefix string) Option {
	return func(o *options) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}
