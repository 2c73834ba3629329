package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
)

const (
	// Crypt3MinRounds, Crypt3MaxRounds and DefaultCrypt3Rounds bound the
	// SHA-512-crypt round count used for new credentials.
	Crypt3MinRounds     = 1000
	Crypt3MaxRounds     = 999999999
	DefaultCrypt3Rounds = 5000

	crypt3SaltBytes = 12
)

var crypt3Encoding = base64.NewEncoding("./0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz").
	WithPadding(base64.NoPadding)

// Crypt3Options configures a [Crypt3Hasher].
type Crypt3Options struct {
	// Rounds is the SHA-512-crypt round count for new credentials.
	// Valid range: [Crypt3MinRounds, Crypt3MaxRounds]. Default: 5000.
	Rounds int

	// Random supplies salts. Nil means crypto/rand.
	Random Randomizer
}

// DefaultCrypt3Options returns Crypt3Options with [DefaultCrypt3Rounds].
func DefaultCrypt3Options() Crypt3Options {
	return Crypt3Options{Rounds: DefaultCrypt3Rounds}
}

// Crypt3Hasher speaks the system crypt(3) formats: it writes $6$
// (SHA-512-crypt) and reads $1$, $5$ and $6$.
type Crypt3Hasher struct {
	rounds int
	rnd    Randomizer
}

// NewCrypt3Hasher constructs a Crypt3Hasher.
// Returns [ErrInvalidOption] if Rounds is out of range.
func NewCrypt3Hasher(opts Crypt3Options) (*Crypt3Hasher, error) {
	if opts.Rounds < Crypt3MinRounds || opts.Rounds > Crypt3MaxRounds {
		return nil, fmt.Errorf("%w: crypt3 rounds %d must be in [%d, %d]",
			ErrInvalidOption, opts.Rounds, Crypt3MinRounds, Crypt3MaxRounds)
	}
	return &Crypt3Hasher{rounds: opts.Rounds, rnd: randomizerOrDefault(opts.Random)}, nil
}

// Driver returns [DriverCrypt3].
func (h *Crypt3Hasher) Driver() DriverName { return DriverCrypt3 }

// Make hashes password with SHA-512-crypt.
func (h *Crypt3Hasher) Make(password string) (string, error) {
	raw, err := newSalt(h.rnd, crypt3SaltBytes)
	if err != nil {
		return "", fmt.Errorf("hashing: crypt3: failed to generate salt: %w", err)
	}
	salt := "$6$"
	if h.rounds != DefaultCrypt3Rounds {
		salt += "rounds=" + strconv.Itoa(h.rounds) + "$"
	}
	salt += crypt3Encoding.EncodeToString(raw)

	out, err := crypt.SHA512.New().Generate([]byte(password), []byte(salt))
	if err != nil {
		return "", fmt.Errorf("hashing: crypt3: %w", err)
	}
	return out, nil
}

// Check re-crypts password with the salt embedded in hash and compares the
// results in constant time.
func (h *Crypt3Hasher) Check(password, hash string) (bool, error) {
	if d, ok := DetectDriver(hash); !ok || d != DriverCrypt3 {
		return false, fmt.Errorf("%w: hash does not appear to be crypt(3)", ErrAlgorithmMismatch)
	}
	if strings.Count(hash, "$") < 3 {
		return false, fmt.Errorf("%w: malformed crypt(3) string", ErrInvalidHash)
	}
	c := crypt.NewFromHash(hash)
	if c == nil {
		return false, fmt.Errorf("%w: unsupported crypt(3) method", ErrInvalidHash)
	}
	out, err := c.Generate([]byte(password), []byte(hash))
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidHash, err)
	}
	return subtle.ConstantTimeCompare([]byte(out), []byte(hash)) == 1, nil
}

// Info reports the crypt(3) method and, when present, the round count.
func (h *Crypt3Hasher) Info(hash string) (HashInfo, error) {
	if d, ok := DetectDriver(hash); !ok || d != DriverCrypt3 {
		return HashInfo{}, fmt.Errorf("%w: hash does not appear to be crypt(3)", ErrAlgorithmMismatch)
	}
	parts := strings.Split(hash, "$")
	if len(parts) < 4 {
		return HashInfo{}, fmt.Errorf("%w: malformed crypt(3) string", ErrInvalidHash)
	}
	params := map[string]any{}
	switch parts[1] {
	case "1":
		params["method"] = "md5"
	case "5":
		params["method"] = "sha256"
	case "6":
		params["method"] = "sha512"
	}
	if r, ok := strings.CutPrefix(parts[2], "rounds="); ok {
		n, err := strconv.Atoi(r)
		if err != nil {
			return HashInfo{}, fmt.Errorf("%w: bad rounds %q", ErrInvalidHash, r)
		}
		params["rounds"] = n
	}
	return HashInfo{Driver: DriverCrypt3, Params: params}, nil
}
