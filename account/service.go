package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/hasbyte1/go-ircservices/hashing"
	"github.com/hasbyte1/go-ircservices/ticket"
)

var _ hashing.Record = (*Account)(nil)

// ServiceOption configures a [Service].
type ServiceOption func(*Service)

// WithPool routes password checks through p instead of running them on the
// calling goroutine.
func WithPool(p *hashing.Pool) ServiceOption {
	return func(s *Service) { s.pool = p }
}

// WithServiceLogger sets the logger.
func WithServiceLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// Service implements the account commands that touch credentials and
// authcookies. Tickets are owned by the folded account name.
type Service struct {
	store   *Store
	creds   *hashing.Registry
	tickets *ticket.Manager[string]
	pool    *hashing.Pool
	logger  *slog.Logger
}

// NewService wires store, creds and tickets together. Dropping an account
// from store destroys its tickets.
func NewService(store *Store, creds *hashing.Registry, tickets *ticket.Manager[string], opts ...ServiceOption) *Service {
	s := &Service{
		store:   store,
		creds:   creds,
		tickets: tickets,
		logger:  slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(s)
	}
	store.OnDrop(func(a *Account) {
		n := tickets.DestroyAll(a.Key())
		s.logger.Info("account dropped", "account", a.Name(), "authcookies", n)
	})
	return s
}

// Register creates name with password. Nothing is left behind if the
// password cannot be hashed.
func (s *Service) Register(name, password string) (*Account, error) {
	a, err := s.store.Register(name)
	if err != nil {
		return nil, err
	}
	if err := s.creds.SetCredential(a, password); err != nil {
		s.store.remove(a)
		return nil, fmt.Errorf("account: register %s: %w", name, err)
	}
	s.logger.Info("account registered", "account", name)
	return a, nil
}

// Identify checks password against name's credential.
func (s *Service) Identify(ctx context.Context, name, password string) (*Account, error) {
	a, ok := s.store.Find(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoSuchAccount, name)
	}
	if !s.verify(ctx, a, password) {
		s.logger.Info("identify failed", "account", a.Name())
		return nil, ErrBadPassword
	}
	return a, nil
}

func (s *Service) verify(ctx context.Context, a *Account, password string) bool {
	if s.pool == nil {
		return s.creds.VerifyCredential(a, password)
	}
	select {
	case c := <-s.pool.Submit(ctx, a, password):
		return c.Result()
	case <-ctx.Done():
		return false
	}
}

// ChangePassword replaces name's credential and logs out every session.
func (s *Service) ChangePassword(name, password string) error {
	a, ok := s.store.Find(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoSuchAccount, name)
	}
	if err := s.creds.SetCredential(a, password); err != nil {
		return fmt.Errorf("account: change password for %s: %w", name, err)
	}
	n := s.tickets.DestroyAll(a.Key())
	s.logger.Info("password changed", "account", a.Name(), "authcookies", n)
	return nil
}

// Drop deletes name. Its tickets go with it.
func (s *Service) Drop(name string) error {
	return s.store.Drop(name)
}

// Login identifies name and issues an authcookie.
func (s *Service) Login(ctx context.Context, name, password string) (ticket.Ticket, error) {
	a, err := s.Identify(ctx, name, password)
	if err != nil {
		return ticket.Ticket{}, err
	}
	t, err := s.tickets.Create(a.Key())
	if err != nil {
		return ticket.Ticket{}, fmt.Errorf("account: login %s: %w", name, err)
	}
	return t, nil
}

// CheckCookie reports whether t is a valid authcookie for name.
func (s *Service) CheckCookie(name string, t ticket.Ticket) bool {
	if _, ok := s.store.Find(name); !ok {
		return false
	}
	return s.tickets.Validate(t, Fold(name))
}

// Logout destroys t if it belongs to name.
func (s *Service) Logout(name string, t ticket.Ticket) bool {
	if _, ok := s.tickets.Find(t, Fold(name)); !ok {
		return false
	}
	return s.tickets.Destroy(t)
}

// LogoutAll destroys every authcookie of name and returns how many there were.
func (s *Service) LogoutAll(name string) int {
	return s.tickets.DestroyAll(Fold(name))
}

// IsAuthFailure reports whether err means the caller gave a wrong name or
// password, as opposed to a server-side problem.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrBadPassword) || errors.Is(err, ErrNoSuchAccount)
}
