package digest

import "errors"

var (
	// ErrUnsupportedAlgorithm is returned when the selected backend cannot
	// compute the requested algorithm.
	ErrUnsupportedAlgorithm = errors.New("digest: unsupported algorithm")

	// ErrUnknownBackend is returned by [BackendByName] for an unrecognised name.
	ErrUnknownBackend = errors.New("digest: unknown backend")

	// ErrFinalized is returned by [Context.Update] and [Context.Final] once the
	// context has been consumed by Final.
	ErrFinalized = errors.New("digest: context already finalized")

	// ErrShortRandom is returned when the randomness source yields fewer bytes
	// than requested.
	ErrShortRandom = errors.New("digest: short read from random source")
)
