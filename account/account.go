package account

import (
	"sync"
	"time"
)

// Account is a registered name and its stored credential. It implements
// [hashing.Record].
type Account struct {
	name       string
	registered time.Time

	mu         sync.Mutex
	credential string
}

// Name returns the name as it was registered.
func (a *Account) Name() string { return a.name }

// Key returns the folded name the account is indexed by.
func (a *Account) Key() string { return Fold(a.name) }

// Registered returns the registration time.
func (a *Account) Registered() time.Time { return a.registered }

// Credential returns the stored credential text.
func (a *Account) Credential() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.credential
}

// SetCredential replaces the stored credential text.
func (a *Account) SetCredential(encoded string) {
	a.mu.Lock()
	a.credential = encoded
	a.mu.Unlock()
}
