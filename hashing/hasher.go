package hashing

import "strings"

// DriverName identifies a password-hashing scheme. It is also the tag the
// stored credential text carries, so a credential can always be routed back
// to the driver that produced it.
type DriverName string

const (
	// DriverBcrypt selects the adaptive Blowfish-EKS scheme.
	DriverBcrypt DriverName = "bcrypt"
	// DriverScrypt selects the memory-hard KDF scheme.
	DriverScrypt DriverName = "scrypt"
	// DriverCrypt3 selects the system crypt(3) scheme.
	DriverCrypt3 DriverName = "crypt3"
	// DriverSaltedMD5 selects the historical salted-MD5 format (verify only).
	DriverSaltedMD5 DriverName = "saltedmd5"
)

// Hasher is the core interface satisfied by all password-hashing drivers.
//
// All implementations must be safe for concurrent use by multiple goroutines.
type Hasher interface {
	// Make hashes a plaintext password and returns the encoded credential.
	// A fresh salt is generated for every call, so two calls with the same
	// password produce different outputs.
	Make(password string) (string, error)

	// Check verifies that password matches the previously encoded hash.
	// Returns (true, nil) on match, (false, nil) on mismatch, or
	// (false, err) if the hash is structurally invalid or cannot be computed.
	//
	// Comparison is performed in constant time.
	Check(password, hash string) (bool, error)

	// Info extracts metadata from an encoded hash string without verifying it.
	Info(hash string) (HashInfo, error)

	// Driver returns the DriverName implemented by this hasher.
	Driver() DriverName
}

// SelfTester is implemented by drivers that must pass a known-answer test
// before they may hash new credentials. The [Registry] refuses to install a
// driver whose SelfTest fails.
type SelfTester interface {
	SelfTest() error
}

// LegacyOnly is implemented by drivers that exist only to read credentials
// written by older deployments. Such drivers are never installed as the
// active scheme.
type LegacyOnly interface {
	LegacyOnly() bool
}

// HashInfo carries metadata parsed from an encoded hash string.
type HashInfo struct {
	// Driver is the hashing scheme that produced the hash.
	Driver DriverName

	// Params holds scheme-specific parameters extracted from the hash string.
	//
	// For bcrypt:
	//   "version" → string ("2a", "2b", "2y")
	//   "cost"    → int
	//
	// For scrypt:
	//   "ln" → int (log2 N)
	//   "r"  → int
	//   "p"  → int
	//
	// For crypt3:
	//   "method" → string ("md5", "sha256", "sha512")
	//
	// For saltedmd5:
	//   "salt_len" → int
	Params map[string]any
}

// DetectDriver inspects a hash string and returns the [DriverName] that
// produced it, based on its self-describing prefix. It does not verify the
// hash itself.
//
// The second return value is false when the hash format is not recognised.
func DetectDriver(hash string) (DriverName, bool) {
	switch {
	case strings.HasPrefix(hash, "$2a$"),
		strings.HasPrefix(hash, "$2b$"),
		strings.HasPrefix(hash, "$2y$"):
		return DriverBcrypt, true
	case strings.HasPrefix(hash, "$scrypt$"):
		return DriverScrypt, true
	case strings.HasPrefix(hash, "$1$"),
		strings.HasPrefix(hash, "$5$"),
		strings.HasPrefix(hash, "$6$"):
		return DriverCrypt3, true
	case strings.HasPrefix(hash, "$smd5$"):
		return DriverSaltedMD5, true
	default:
		return "", false
	}
}

// ParseDriverName maps a configuration string to a DriverName.
func ParseDriverName(s string) (DriverName, bool) {
	switch d := DriverName(strings.ToLower(strings.TrimSpace(s))); d {
	case DriverBcrypt, DriverScrypt, DriverCrypt3, DriverSaltedMD5:
		return d, true
	default:
		return "", false
	}
}
