package hashing

import "errors"

// Sentinel errors returned by hashing operations.
//
// Use [errors.Is] for comparisons:
//
//	ok, err := hasher.Check(password, hash)
//	if errors.Is(err, hashing.ErrInvalidHash) {
//	    // hash string is malformed
//	}
var (
	// ErrInvalidHash is returned when a hash string cannot be parsed because
	// it has an unrecognised format, missing fields, or invalid encoding.
	ErrInvalidHash = errors.New("hashing: invalid or unrecognised hash string")

	// ErrInvalidOption is returned when a constructor or compute function is
	// called with a parameter value outside the allowed range (e.g. a bcrypt
	// cost above 31 or a scrypt memory cost below 14).
	ErrInvalidOption = errors.New("hashing: invalid option value")

	// ErrAlgorithmMismatch is returned by a [Hasher]'s Check or Info method
	// when the hash string was produced by a different scheme.
	ErrAlgorithmMismatch = errors.New("hashing: hash was produced by a different algorithm")

	// ErrSelfTestFailed is returned when a driver fails its known-answer
	// test. Such a driver must not hash new credentials.
	ErrSelfTestFailed = errors.New("hashing: self-test failed")

	// ErrNoActiveScheme is returned by [Registry.SetCredential] when no
	// scheme has been installed.
	ErrNoActiveScheme = errors.New("hashing: no active scheme")

	// ErrLegacyOnly is returned by [Registry.Install] for a driver that may
	// only verify existing credentials.
	ErrLegacyOnly = errors.New("hashing: driver is verify-only")

	// ErrNilHasher is returned when a nil [Hasher] is supplied.
	ErrNilHasher = errors.New("hashing: hasher must not be nil")

	// ErrChallengeUsed is returned when a proof is presented for a challenge
	// that has already been answered.
	ErrChallengeUsed = errors.New("hashing: challenge already used")
)
