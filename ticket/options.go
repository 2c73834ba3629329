package ticket

import (
	"log/slog"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// DefaultLifetime is how long a ticket stays live unless configured
	// otherwise.
	DefaultLifetime = time.Hour

	// DefaultMaxAttempts bounds the retries on a collision with a live ticket.
	DefaultMaxAttempts = 8
)

type options struct {
	clock       clock.Clock
	lifetime    time.Duration
	maxAttempts int
	logger      *slog.Logger
	registerer  prometheus.Registerer
}

func defaultOptions() options {
	return options{
		clock:       clock.New(),
		lifetime:    DefaultLifetime,
		maxAttempts: DefaultMaxAttempts,
		logger:      slog.New(slog.DiscardHandler),
	}
}

// Option configures a [Manager].
type Option func(*options)

// WithClock sets the clock used for timestamps and expiry timers.
func WithClock(c clock.Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLifetime sets how long new tickets stay live.
func WithLifetime(d time.Duration) Option {
	return func(o *options) { o.lifetime = d }
}

// WithMaxAttempts sets how many times Create draws a fresh ticket before
// giving up with [ErrCollision].
func WithMaxAttempts(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithLogger sets the logger for ticket lifecycle events.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics registers the manager's collectors with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}
