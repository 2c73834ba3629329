package ticket

import "errors"

var (
	// ErrCollision is returned by [Manager.Create] when every attempt produced
	// a ticket that is already live.
	ErrCollision = errors.New("ticket: could not generate a unique ticket")

	// ErrClosed is returned by [Manager.Create] after [Manager.Close].
	ErrClosed = errors.New("ticket: manager closed")

	// ErrMalformed is returned when a ticket string or byte slice has the
	// wrong length or encoding.
	ErrMalformed = errors.New("ticket: malformed ticket")

	// ErrInvalidOption is returned by [NewManager] for an unusable option.
	ErrInvalidOption = errors.New("ticket: invalid option value")
)
