package ticket

import (
	"encoding/hex"
	"fmt"
	"time"
)

// Size is the length of a ticket in bytes.
const Size = 20

// Ticket is an authcookie value.
type Ticket [Size]byte

// String returns the lower-case hex form handed to clients.
func (t Ticket) String() string { return hex.EncodeToString(t[:]) }

// Parse decodes the hex form produced by [Ticket.String].
func Parse(s string) (Ticket, error) {
	var t Ticket
	if hex.DecodedLen(len(s)) != Size {
		return t, fmt.Errorf("%w: want %d hex characters, got %d", ErrMalformed, 2*Size, len(s))
	}
	if _, err := hex.Decode(t[:], []byte(s)); err != nil {
		return t, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return t, nil
}

// FromBytes copies b into a Ticket.
func FromBytes(b []byte) (Ticket, error) {
	var t Ticket
	if len(b) != Size {
		return t, fmt.Errorf("%w: want %d bytes, got %d", ErrMalformed, Size, len(b))
	}
	copy(t[:], b)
	return t, nil
}

// Info describes a live ticket.
type Info[A comparable] struct {
	Ticket  Ticket
	Owner   A
	Created time.Time
	Expires time.Time
}
