package digest

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"fmt"
	"hash"

	sha256simd "github.com/minio/sha256-simd"
)

// Backend is a native implementation of the raw hash functions.
//
// Implementations must return a fresh, independent hash.Hash on every call
// and report [ErrUnsupportedAlgorithm] for anything they cannot compute.
type Backend interface {
	// Name returns the configuration name of the backend.
	Name() string

	// New returns a new hash.Hash computing alg.
	New(alg Algorithm) (hash.Hash, error)
}

var (
	// Std is the backend built on Go's standard crypto packages.
	Std Backend = stdBackend{}

	// SIMD computes SHA-256 with github.com/minio/sha256-simd (SHA-NI / AVX
	// where the CPU offers them) and uses the standard code for the rest.
	SIMD Backend = simdBackend{}
)

// BackendByName returns the backend registered under name ("std" or "simd").
func BackendByName(name string) (Backend, error) {
	switch name {
	case "", "std":
		return Std, nil
	case "simd":
		return SIMD, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, name)
	}
}

type stdBackend struct{}

func (stdBackend) Name() string { return "std" }

func (stdBackend) New(alg Algorithm) (hash.Hash, error) {
	switch alg {
	case MD5:
		return md5.New(), nil
	case SHA1:
		return sha1.New(), nil
	case SHA256:
		return sha256.New(), nil
	case SHA512:
		return sha512.New(), nil
	default:
		return nil, fmt.Errorf("%w: %v on backend std", ErrUnsupportedAlgorithm, alg)
	}
}

type simdBackend struct{}

func (simdBackend) Name() string { return "simd" }

func (simdBackend) New(alg Algorithm) (hash.Hash, error) {
	if alg == SHA256 {
		return sha256simd.New(), nil
	}
	h, err := Std.New(alg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v on backend simd", ErrUnsupportedAlgorithm, alg)
	}
	return h, nil
}
