package hashing

import (
	"crypto/subtle"
	"fmt"

	"github.com/hasbyte1/go-ircservices/digest"
)

const (
	saltedMD5ID      = "smd5"
	saltedMD5SaltLen = 8
)

// SaltedMD5Hasher reads the salted-MD5 credentials written by older
// deployments:
//
//	$smd5$<b64 salt>$<b64 MD5(salt || password)>
//
// It can still produce such strings for fixtures and tooling, but the
// [Registry] never installs it as the active scheme.
type SaltedMD5Hasher struct {
	engine *digest.Engine
}

// NewSaltedMD5Hasher returns a SaltedMD5Hasher that digests through e.
func NewSaltedMD5Hasher(e *digest.Engine) (*SaltedMD5Hasher, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: salted-md5 needs a digest engine", ErrInvalidOption)
	}
	return &SaltedMD5Hasher{engine: e}, nil
}

// Driver returns [DriverSaltedMD5].
func (h *SaltedMD5Hasher) Driver() DriverName { return DriverSaltedMD5 }

// LegacyOnly reports true.
func (h *SaltedMD5Hasher) LegacyOnly() bool { return true }

// Make hashes password with a fresh salt.
func (h *SaltedMD5Hasher) Make(password string) (string, error) {
	salt, err := h.engine.Random(saltedMD5SaltLen)
	if err != nil {
		return "", fmt.Errorf("hashing: salted-md5: failed to generate salt: %w", err)
	}
	sum, err := h.engine.Oneshot(digest.MD5, digest.Vector{salt, []byte(password)})
	if err != nil {
		return "", fmt.Errorf("hashing: salted-md5: %w", err)
	}
	return encodePHC(phcRecord{id: saltedMD5ID, salt: salt, hash: sum}), nil
}

// Check verifies password against a $smd5$ credential.
func (h *SaltedMD5Hasher) Check(password, hash string) (bool, error) {
	rec, err := decodePHC(hash, saltedMD5ID, false)
	if err != nil {
		return false, err
	}
	if len(rec.hash) != digest.MD5.Size() {
		return false, fmt.Errorf("%w: salted-md5 digest must be %d bytes", ErrInvalidHash, digest.MD5.Size())
	}
	sum, err := h.engine.Oneshot(digest.MD5, digest.Vector{rec.salt, []byte(password)})
	if err != nil {
		return false, fmt.Errorf("hashing: salted-md5: %w", err)
	}
	return subtle.ConstantTimeCompare(sum, rec.hash) == 1, nil
}

// Info reports the salt length.
func (h *SaltedMD5Hasher) Info(hash string) (HashInfo, error) {
	rec, err := decodePHC(hash, saltedMD5ID, false)
	if err != nil {
		return HashInfo{}, err
	}
	return HashInfo{Driver: DriverSaltedMD5, Params: map[string]any{"salt_len": len(rec.salt)}}, nil
}
