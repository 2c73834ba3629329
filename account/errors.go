package account

import "errors"

var (
	// ErrAccountExists is returned when registering a name already taken.
	ErrAccountExists = errors.New("account: already registered")

	// ErrNoSuchAccount is returned when the named account does not exist.
	ErrNoSuchAccount = errors.New("account: no such account")

	// ErrBadPassword is returned when a password does not verify. It says
	// nothing about why.
	ErrBadPassword = errors.New("account: password incorrect")

	// ErrInvalidName is returned for names that cannot be registered.
	ErrInvalidName = errors.New("account: invalid name")
)
