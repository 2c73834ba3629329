package digest

import (
	"fmt"
	"strings"
)

// Algorithm identifies a digest algorithm.
type Algorithm int

const (
	// MD5 produces a 16-byte digest. Kept for legacy credential formats only.
	MD5 Algorithm = iota + 1
	// SHA1 produces a 20-byte digest.
	SHA1
	// SHA256 produces a 32-byte digest.
	SHA256
	// SHA512 produces a 64-byte digest.
	SHA512
)

// Algorithms lists every algorithm in the enumeration, in declaration order.
var Algorithms = []Algorithm{MD5, SHA1, SHA256, SHA512}

// Size returns the digest length in bytes, or 0 for an unknown algorithm.
func (a Algorithm) Size() int {
	switch a {
	case MD5:
		return 16
	case SHA1:
		return 20
	case SHA256:
		return 32
	case SHA512:
		return 64
	default:
		return 0
	}
}

// BlockSize returns the algorithm's input block length in bytes, which is
// also the HMAC key pad length. Returns 0 for an unknown algorithm.
func (a Algorithm) BlockSize() int {
	switch a {
	case MD5, SHA1, SHA256:
		return 64
	case SHA512:
		return 128
	default:
		return 0
	}
}

// Valid reports whether a is a member of the enumeration.
func (a Algorithm) Valid() bool { return a.Size() != 0 }

func (a Algorithm) String() string {
	switch a {
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	case SHA256:
		return "sha256"
	case SHA512:
		return "sha512"
	default:
		return fmt.Sprintf("digest.Algorithm(%d)", int(a))
	}
}

// ParseAlgorithm maps a case-insensitive name ("md5", "sha1", "sha-256", ...)
// to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ReplaceAll(strings.ToLower(name), "-", "") {
	case "md5":
		return MD5, nil
	case "sha1":
		return SHA1, nil
	case "sha256":
		return SHA256, nil
	case "sha512":
		return SHA512, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, name)
	}
}
