package account

import (
	"fmt"
	"slices"
	"strings"
	"sync"
	"unicode"

	"github.com/benbjohnson/clock"
)

// MaxNameLen is the longest name, in bytes, that can be registered.
const MaxNameLen = 32

// Store is a thread-safe in-memory account store.
type Store struct {
	clock clock.Clock

	mu       sync.RWMutex
	accounts map[string]*Account
	onDrop   []func(*Account)
}

// NewStore returns an empty Store. A nil clock means the wall clock.
func NewStore(c clock.Clock) *Store {
	if c == nil {
		c = clock.New()
	}
	return &Store{clock: c, accounts: make(map[string]*Account)}
}

// ValidateName reports whether name may be registered.
func ValidateName(name string) error {
	if name == "" || len(name) > MaxNameLen {
		return fmt.Errorf("%w: length must be 1..%d", ErrInvalidName, MaxNameLen)
	}
	if strings.IndexFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || unicode.IsControl(r) || r == ',' || r == '*' || r == '!' || r == '@'
	}) >= 0 {
		return fmt.Errorf("%w: %q contains a reserved character", ErrInvalidName, name)
	}
	if name[0] == '#' || name[0] == '&' || name[0] == ':' {
		return fmt.Errorf("%w: %q starts with a reserved character", ErrInvalidName, name)
	}
	return nil
}

// Register creates an account with no credential.
func (s *Store) Register(name string) (*Account, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	key := Fold(name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[key]; ok {
		return nil, fmt.Errorf("%w: %s", ErrAccountExists, name)
	}
	a := &Account{name: name, registered: s.clock.Now()}
	s.accounts[key] = a
	return a, nil
}

// Find looks an account up by name, ignoring case.
func (s *Store) Find(name string) (*Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[Fold(name)]
	return a, ok
}

// Drop removes the account and then runs the drop hooks.
func (s *Store) Drop(name string) error {
	s.mu.Lock()
	key := Fold(name)
	a, ok := s.accounts[key]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNoSuchAccount, name)
	}
	delete(s.accounts, key)
	hooks := slices.Clone(s.onDrop)
	s.mu.Unlock()

	for _, fn := range hooks {
		fn(a)
	}
	return nil
}

// remove deletes a without running the drop hooks. It is a no-op when the
// name is held by another account.
func (s *Store) remove(a *Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.accounts[a.Key()]; ok && cur == a {
		delete(s.accounts, a.Key())
	}
}

// OnDrop registers fn to run after an account is dropped.
func (s *Store) OnDrop(fn func(*Account)) {
	s.mu.Lock()
	s.onDrop = append(s.onDrop, fn)
	s.mu.Unlock()
}

// Len returns the number of registered accounts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.accounts)
}
