package ticket

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// Randomizer supplies the random bytes tickets are drawn from.
// [*digest.Engine] satisfies it.
type Randomizer interface {
	Random(n int) ([]byte, error)
}

type record[A comparable] struct {
	ticket  Ticket
	owner   A
	created time.Time
	expires time.Time
	timer   *clock.Timer
}

func (r *record[A]) info() Info[A] {
	return Info[A]{Ticket: r.ticket, Owner: r.owner, Created: r.created, Expires: r.expires}
}

// Manager issues and tracks the tickets of owners of type A.
//
// # Thread safety
//
// Manager is safe for concurrent use. Expiry timers fire on their own
// goroutines and take the same lock as every other operation.
type Manager[A comparable] struct {
	rnd         Randomizer
	clock       clock.Clock
	lifetime    time.Duration
	maxAttempts int
	logger      *slog.Logger
	metrics     *metrics

	mu      sync.Mutex
	closed  bool
	live    map[Ticket]*record[A]
	byOwner map[A]map[Ticket]struct{}
}

// NewManager returns a Manager that draws tickets from rnd.
func NewManager[A comparable](rnd Randomizer, opts ...Option) (*Manager[A], error) {
	if rnd == nil {
		return nil, fmt.Errorf("%w: randomizer must not be nil", ErrInvalidOption)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.lifetime <= 0 {
		return nil, fmt.Errorf("%w: lifetime must be positive, got %s", ErrInvalidOption, o.lifetime)
	}
	if o.maxAttempts < 1 {
		return nil, fmt.Errorf("%w: max attempts must be ≥ 1, got %d", ErrInvalidOption, o.maxAttempts)
	}

	m := &Manager[A]{
		rnd:         rnd,
		clock:       o.clock,
		lifetime:    o.lifetime,
		maxAttempts: o.maxAttempts,
		logger:      o.logger,
		metrics:     newMetrics(),
		live:        make(map[Ticket]*record[A]),
		byOwner:     make(map[A]map[Ticket]struct{}),
	}
	m.metrics.register(o.registerer)
	return m, nil
}

// Lifetime returns the lifetime given to new tickets.
func (m *Manager[A]) Lifetime() time.Duration { return m.lifetime }

// Create issues a new ticket for owner, live until now plus the lifetime.
// A randomness failure is returned as is; only a draw that collides with a
// live ticket is retried.
func (m *Manager[A]) Create(owner A) (Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return Ticket{}, ErrClosed
	}

	for attempt := 0; attempt < m.maxAttempts; attempt++ {
		b, err := m.rnd.Random(Size)
		if err != nil {
			return Ticket{}, fmt.Errorf("ticket: random: %w", err)
		}
		t, err := FromBytes(b)
		if err != nil {
			return Ticket{}, fmt.Errorf("ticket: random: %w", err)
		}
		if _, taken := m.live[t]; taken {
			m.metrics.events.WithLabelValues(eventCollision).Inc()
			continue
		}

		now := m.clock.Now()
		rec := &record[A]{ticket: t, owner: owner, created: now, expires: now.Add(m.lifetime)}
		rec.timer = m.clock.AfterFunc(m.lifetime, func() { m.expire(rec) })
		m.link(rec)

		m.metrics.events.WithLabelValues(eventCreated).Inc()
		m.logger.Debug("authcookie created", "owner", owner, "expires", rec.expires)
		return t, nil
	}

	m.logger.Warn("authcookie collision limit reached", "attempts", m.maxAttempts)
	return Ticket{}, ErrCollision
}

// Find returns the live ticket t if it belongs to owner. A ticket presented
// with the wrong owner is not found.
func (m *Manager[A]) Find(t Ticket, owner A) (Info[A], bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.live[t]
	if !ok || rec.owner != owner {
		return Info[A]{}, false
	}
	return rec.info(), true
}

// Validate reports whether t is a live ticket of owner whose expiry is still
// in the future. It neither consumes nor extends the ticket.
func (m *Manager[A]) Validate(t Ticket, owner A) bool {
	info, ok := m.Find(t, owner)
	return ok && m.clock.Now().Before(info.Expires)
}

// Destroy stops t's timer and forgets it. It reports whether t was live.
func (m *Manager[A]) Destroy(t Ticket) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.live[t]
	if !ok {
		return false
	}
	m.destroy(rec)
	return true
}

// DestroyAll destroys every live ticket of owner and returns how many there
// were. Other owners' tickets are untouched.
func (m *Manager[A]) DestroyAll(owner A) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	set := m.byOwner[owner]
	n := len(set)
	for t := range set {
		m.destroy(m.live[t])
	}
	if n > 0 {
		m.logger.Debug("authcookies destroyed", "owner", owner, "count", n)
	}
	return n
}

// Count returns the number of live tickets owned by owner.
func (m *Manager[A]) Count(owner A) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.byOwner[owner])
}

// Len returns the number of live tickets.
func (m *Manager[A]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.live)
}

// Close destroys every live ticket. Create fails with [ErrClosed] afterwards.
func (m *Manager[A]) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := len(m.live)
	for _, rec := range m.live {
		m.destroy(rec)
	}
	m.closed = true
	m.logger.Info("authcookie manager closed", "destroyed", n)
}

// expire runs on the timer's goroutine. The record must still be the live
// one for its ticket bytes; anything else means it was already destroyed.
func (m *Manager[A]) expire(rec *record[A]) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if cur, ok := m.live[rec.ticket]; !ok || cur != rec {
		return
	}
	m.unlink(rec)
	m.metrics.events.WithLabelValues(eventExpired).Inc()
	m.logger.Debug("authcookie expired", "owner", rec.owner)
}

func (m *Manager[A]) destroy(rec *record[A]) {
	rec.timer.Stop()
	m.unlink(rec)
	m.metrics.events.WithLabelValues(eventDestroyed).Inc()
}

func (m *Manager[A]) link(rec *record[A]) {
	m.live[rec.ticket] = rec
	set, ok := m.byOwner[rec.owner]
	if !ok {
		set = make(map[Ticket]struct{})
		m.byOwner[rec.owner] = set
	}
	set[rec.ticket] = struct{}{}
	m.metrics.live.Inc()
}

func (m *Manager[A]) unlink(rec *record[A]) {
	delete(m.live, rec.ticket)
	if set, ok := m.byOwner[rec.owner]; ok {
		delete(set, rec.ticket)
		if len(set) == 0 {
			delete(m.byOwner, rec.owner)
		}
	}
	m.metrics.live.Dec()
}
