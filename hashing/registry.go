package hashing

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Record is the account-side holder of a stored credential. The registry
// reads it before verifying and writes it back at most once per call.
type Record interface {
	Credential() string
	SetCredential(encoded string)
}

// Handle is the opaque token returned by [Registry.Install]. It refers to
// the scheme that was displaced, and handing it to [Registry.Restore] puts
// that scheme back. The zero Handle refers to "no scheme".
type Handle struct {
	prev Hasher
}

// Driver names the scheme the handle restores, or "" for none.
func (h Handle) Driver() DriverName {
	if h.prev == nil {
		return ""
	}
	return h.prev.Driver()
}

// RegistryOption configures a [Registry].
type RegistryOption func(*Registry)

// WithLogger sets the logger for scheme changes and credential upgrades.
func WithLogger(l *slog.Logger) RegistryOption {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMetrics registers the registry's collectors with reg.
func WithMetrics(reg prometheus.Registerer) RegistryOption {
	return func(r *Registry) {
		if reg != nil {
			reg.MustRegister(r.metrics.collectors()...)
		}
	}
}

// Registry holds the active password scheme and the ordered list of legacy
// verifiers. It creates new credentials with the active scheme and, when a
// credential written by a legacy scheme verifies, upgrades it in place.
//
// # Thread safety
//
// Registry is safe for concurrent use. Scheme changes are expected to happen
// at startup and shutdown only.
type Registry struct {
	mu     sync.RWMutex
	active Hasher
	legacy []Hasher

	logger  *slog.Logger
	metrics *registryMetrics
}

// NewRegistry returns a Registry with no active scheme.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		logger:  slog.New(slog.DiscardHandler),
		metrics: newRegistryMetrics(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// AddLegacy appends h to the legacy verifiers. Legacy verifiers are tried in
// the order they were added, and only for credentials whose tag matches.
func (r *Registry) AddLegacy(h Hasher) error {
	if h == nil {
		return ErrNilHasher
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.legacy = append(r.legacy, h)
	return nil
}

// Install makes h the active scheme and returns a handle to the scheme it
// displaced. Drivers that fail their self-test or are verify-only are
// refused and the active scheme is left as it was.
func (r *Registry) Install(h Hasher) (Handle, error) {
	if h == nil {
		return Handle{}, ErrNilHasher
	}
	if lo, ok := h.(LegacyOnly); ok && lo.LegacyOnly() {
		return Handle{}, fmt.Errorf("%w: %s", ErrLegacyOnly, h.Driver())
	}
	if st, ok := h.(SelfTester); ok {
		if err := st.SelfTest(); err != nil {
			r.logger.Error("password scheme refused", "driver", string(h.Driver()), "error", err)
			return Handle{}, err
		}
	}

	r.mu.Lock()
	prev := r.active
	r.active = h
	r.mu.Unlock()

	r.metrics.schemeChanges.Inc()
	r.logger.Info("password scheme installed", "driver", string(h.Driver()), "previous", string(Handle{prev}.Driver()))
	return Handle{prev: prev}, nil
}

// Restore reinstates the scheme referred to by h. Restoring the zero Handle
// leaves the registry without an active scheme.
func (r *Registry) Restore(h Handle) {
	r.mu.Lock()
	r.active = h.prev
	r.mu.Unlock()

	r.metrics.schemeChanges.Inc()
	r.logger.Info("password scheme restored", "driver", string(h.Driver()))
}

// Active returns the active scheme, if any.
func (r *Registry) Active() (Hasher, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.active, r.active != nil
}

// SetCredential hashes plaintext with the active scheme and stores it in rec.
// Without an active scheme it returns [ErrNoActiveScheme] and rec keeps its
// previous value.
func (r *Registry) SetCredential(rec Record, plaintext string) error {
	active, ok := r.Active()
	if !ok {
		return ErrNoActiveScheme
	}
	encoded, err := active.Make(plaintext)
	if err != nil {
		return fmt.Errorf("hashing: set credential: %w", err)
	}
	rec.SetCredential(encoded)
	return nil
}

// VerifyCredential reports whether candidate matches the credential stored
// in rec. A credential the active scheme wrote is checked by the active
// scheme only; any other is tried against the legacy verifiers with the same
// tag, and a match is rewritten under the active scheme.
//
// Every failure, including a malformed credential or a backend error,
// reports false.
func (r *Registry) VerifyCredential(rec Record, candidate string) bool {
	a, ok := r.prepare(rec.Credential(), candidate)
	if !ok {
		r.metrics.verifications.WithLabelValues(resultMismatch).Inc()
		return false
	}
	return r.commit(rec, a, a.run())
}

// attempt is everything one verification needs. It holds copies only, so it
// can be run away from the goroutine that owns the record.
type attempt struct {
	stored    string
	candidate string
	tag       DriverName
	verifiers []Hasher
	active    Hasher
	upgrade   bool
}

type outcome struct {
	match    bool
	upgraded string
	err      error
}

// prepare picks the verifiers for stored. It reports false when nothing can
// verify it.
func (r *Registry) prepare(stored, candidate string) (*attempt, bool) {
	if stored == "" {
		return nil, false
	}
	tag, ok := DetectDriver(stored)
	if !ok {
		return nil, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.active == nil {
		return nil, false
	}
	a := &attempt{stored: stored, candidate: candidate, tag: tag, active: r.active}
	if r.active.Driver() == tag {
		a.verifiers = []Hasher{r.active}
		return a, true
	}
	for _, h := range r.legacy {
		if h.Driver() == tag {
			a.verifiers = append(a.verifiers, h)
		}
	}
	if len(a.verifiers) == 0 {
		return nil, false
	}
	a.upgrade = true
	return a, true
}

// run performs the expensive work: the checks, stopping at the first match,
// and after a legacy match the rehash under the active scheme.
func (a *attempt) run() outcome {
	var lastErr error
	for _, v := range a.verifiers {
		ok, err := v.Check(a.candidate, a.stored)
		if err != nil {
			lastErr = err
			continue
		}
		if !ok {
			continue
		}
		o := outcome{match: true}
		if a.upgrade {
			o.upgraded, o.err = a.active.Make(a.candidate)
		}
		return o
	}
	return outcome{err: lastErr}
}

// commit applies the outcome to rec. The record is written at most once,
// and only if it still holds the credential that was verified; a record
// that changed in the meantime reports false.
func (r *Registry) commit(rec Record, a *attempt, o outcome) bool {
	if !o.match {
		if o.err != nil {
			r.logger.Debug("credential check failed", "driver", string(a.tag), "error", o.err)
		}
		r.metrics.verifications.WithLabelValues(resultMismatch).Inc()
		return false
	}
	if rec.Credential() != a.stored {
		r.logger.Debug("credential changed during verification", "driver", string(a.tag))
		r.metrics.verifications.WithLabelValues(resultMismatch).Inc()
		return false
	}
	if !a.upgrade {
		r.metrics.verifications.WithLabelValues(resultMatch).Inc()
		return true
	}
	if o.err != nil {
		r.metrics.rehashFailed.Inc()
		r.logger.Warn("credential upgrade failed",
			"from", string(a.tag), "to", string(a.active.Driver()), "error", o.err)
		r.metrics.verifications.WithLabelValues(resultMatch).Inc()
		return true
	}
	rec.SetCredential(o.upgraded)
	r.metrics.verifications.WithLabelValues(resultMigrated).Inc()
	r.logger.Info("credential upgraded", "from", string(a.tag), "to", string(a.active.Driver()))
	return true
}
