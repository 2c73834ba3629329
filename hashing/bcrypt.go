package hashing

import (
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"strconv"
	"sync"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/crypto/blowfish"
)

const (
	// DefaultBcryptCost is the work factor used for new credentials unless
	// configured otherwise. Each step doubles the work.
	DefaultBcryptCost = 7

	// BcryptMinCost and BcryptMaxCost bound the accepted work factor.
	BcryptMinCost = bcrypt.MinCost
	BcryptMaxCost = bcrypt.MaxCost

	// BcryptSaltLen is the raw salt length in bytes.
	BcryptSaltLen = 16

	// BcryptHashLen is the raw output length of [BcryptCompute] in bytes.
	BcryptHashLen = 24

	// bcryptEncodedHashLen is the number of output bytes kept in the modular
	// crypt text. C implementations drop the last byte and everyone followed.
	bcryptEncodedHashLen = 23

	// bcryptMaxKeyLen is the number of key bytes (password plus NUL) that
	// influence the result. Anything longer is ignored.
	bcryptMaxKeyLen = 72

	bcryptVersion = "2b"
)

var (
	bcryptMagic = []byte("OrpheanBeholderScryDoubt")

	bcryptEncoding = base64.NewEncoding("./ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789").
			WithPadding(base64.NoPadding)
)

// BcryptCompute runs the Blowfish-EKS password hash and returns the 24-byte
// raw output. It is deterministic: identical inputs give identical output.
// The work done is proportional to 2^cost.
func BcryptCompute(password []byte, cost int, salt []byte) ([]byte, error) {
	if cost < BcryptMinCost || cost > BcryptMaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d must be in [%d, %d]",
			ErrInvalidOption, cost, BcryptMinCost, BcryptMaxCost)
	}
	if len(salt) != BcryptSaltLen {
		return nil, fmt.Errorf("%w: bcrypt salt must be %d bytes, got %d",
			ErrInvalidOption, BcryptSaltLen, len(salt))
	}

	key := make([]byte, 0, len(password)+1)
	key = append(key, password...)
	key = append(key, 0)
	if len(key) > bcryptMaxKeyLen {
		key = key[:bcryptMaxKeyLen]
	}
	defer wipe(key)

	c, err := blowfish.NewSaltedCipher(key, salt)
	if err != nil {
		return nil, fmt.Errorf("hashing: bcrypt: %w", err)
	}
	rounds := uint64(1) << uint(cost)
	for i := uint64(0); i < rounds; i++ {
		blowfish.ExpandKey(key, c)
		blowfish.ExpandKey(salt, c)
	}

	out := make([]byte, BcryptHashLen)
	copy(out, bcryptMagic)
	for i := 0; i < BcryptHashLen; i += 8 {
		for j := 0; j < 64; j++ {
			c.Encrypt(out[i:i+8], out[i:i+8])
		}
	}
	return out, nil
}

// bcryptRecord is a decoded $2x$ modular crypt string.
type bcryptRecord struct {
	version string
	cost    int
	salt    []byte
	hash    []byte
}

func encodeBcrypt(version string, cost int, salt, hash []byte) string {
	return fmt.Sprintf("$%s$%02d$%s%s", version, cost,
		bcryptEncoding.EncodeToString(salt),
		bcryptEncoding.EncodeToString(hash[:bcryptEncodedHashLen]))
}

// decodeBcrypt parses "$2b$07$<22 salt chars><31 hash chars>".
func decodeBcrypt(encoded string) (*bcryptRecord, error) {
	const saltChars, hashChars = 22, 31
	if len(encoded) != 7+saltChars+hashChars || encoded[0] != '$' || encoded[3] != '$' || encoded[6] != '$' {
		return nil, fmt.Errorf("%w: malformed bcrypt string", ErrInvalidHash)
	}
	version := encoded[1:3]
	switch version {
	case "2a", "2b", "2y":
	default:
		return nil, fmt.Errorf("%w: unknown bcrypt version %q", ErrInvalidHash, version)
	}
	cost, err := strconv.Atoi(encoded[4:6])
	if err != nil || cost < BcryptMinCost || cost > BcryptMaxCost {
		return nil, fmt.Errorf("%w: bad bcrypt cost %q", ErrInvalidHash, encoded[4:6])
	}
	salt, err := bcryptEncoding.DecodeString(encoded[7 : 7+saltChars])
	if err != nil || len(salt) != BcryptSaltLen {
		return nil, fmt.Errorf("%w: invalid bcrypt salt", ErrInvalidHash)
	}
	hash, err := bcryptEncoding.DecodeString(encoded[7+saltChars:])
	if err != nil || len(hash) != bcryptEncodedHashLen {
		return nil, fmt.Errorf("%w: invalid bcrypt hash", ErrInvalidHash)
	}
	return &bcryptRecord{version: version, cost: cost, salt: salt, hash: hash}, nil
}

// bcryptVector is a known-answer test case in modular crypt form.
type bcryptVector struct {
	password string
	encoded  string
}

// bcryptSelfTestVectors come from the OpenBSD and Openwall crypt_blowfish
// test suites. They run at cost 5 to keep startup fast.
var bcryptSelfTestVectors = []bcryptVector{
	{"U*U", "$2a$05$CCCCCCCCCCCCCCCCCCCCC.E5YPO9kmyuRGyh0XouQYb4YMJKvyOeW"},
	{"U*U*", "$2a$05$CCCCCCCCCCCCCCCCCCCCC.VGOzA784oUp/Z0DY336zx7pLYAy0lwK"},
	{"U*U*U", "$2a$05$XXXXXXXXXXXXXXXXXXXXXOAcXxm9kjPGEMsLznoKqmqw7tc8WCx4a"},
	{"", "$2a$05$CCCCCCCCCCCCCCCCCCCCC.7uG0VCzI2bS7j6ymqJi9CdcdxiRTWNy"},
}

// BcryptSelfTest checks [BcryptCompute] against the built-in vector table.
func BcryptSelfTest() error {
	return runBcryptVectors(bcryptSelfTestVectors)
}

func runBcryptVectors(vectors []bcryptVector) error {
	for i, v := range vectors {
		rec, err := decodeBcrypt(v.encoded)
		if err != nil {
			return fmt.Errorf("%w: vector %d: %v", ErrSelfTestFailed, i, err)
		}
		out, err := BcryptCompute([]byte(v.password), rec.cost, rec.salt)
		if err != nil {
			return fmt.Errorf("%w: vector %d: %v", ErrSelfTestFailed, i, err)
		}
		if subtle.ConstantTimeCompare(out[:bcryptEncodedHashLen], rec.hash) != 1 {
			return fmt.Errorf("%w: vector %d: output mismatch", ErrSelfTestFailed, i)
		}
	}
	return nil
}

// BcryptOptions configures a [BcryptHasher].
type BcryptOptions struct {
	// Cost is the bcrypt work factor (logarithmic).
	// Valid range: [BcryptMinCost (4), BcryptMaxCost (31)].
	// Default: [DefaultBcryptCost] (7).
	Cost int

	// Random supplies salts. Nil means crypto/rand.
	Random Randomizer
}

// DefaultBcryptOptions returns BcryptOptions with [DefaultBcryptCost].
func DefaultBcryptOptions() BcryptOptions {
	return BcryptOptions{Cost: DefaultBcryptCost}
}

// BcryptHasher hashes passwords with the adaptive Blowfish-EKS scheme.
//
// The self-test runs once, on first use. When it fails, Make refuses to
// produce new credentials while Check keeps verifying existing ones.
//
// Passwords longer than 71 bytes are truncated, as every bcrypt
// implementation does.
//
// # Thread safety
//
// BcryptHasher is safe for concurrent use.
type BcryptHasher struct {
	cost    int
	rnd     Randomizer
	vectors []bcryptVector

	once    sync.Once
	testErr error
}

// NewBcryptHasher constructs a BcryptHasher with the provided options.
// Returns [ErrInvalidOption] if Cost is outside [BcryptMinCost, BcryptMaxCost].
func NewBcryptHasher(opts BcryptOptions) (*BcryptHasher, error) {
	if opts.Cost < BcryptMinCost || opts.Cost > BcryptMaxCost {
		return nil, fmt.Errorf("%w: bcrypt cost %d must be in [%d, %d]",
			ErrInvalidOption, opts.Cost, BcryptMinCost, BcryptMaxCost)
	}
	return &BcryptHasher{cost: opts.Cost, rnd: randomizerOrDefault(opts.Random), vectors: bcryptSelfTestVectors}, nil
}

// Driver returns [DriverBcrypt].
func (h *BcryptHasher) Driver() DriverName { return DriverBcrypt }

// Cost returns the configured bcrypt work factor.
func (h *BcryptHasher) Cost() int { return h.cost }

// SelfTest runs the known-answer vectors once and caches the result.
func (h *BcryptHasher) SelfTest() error {
	h.once.Do(func() { h.testErr = runBcryptVectors(h.vectors) })
	return h.testErr
}

// Make hashes password and returns "$2b$<cost>$<salt><hash>".
func (h *BcryptHasher) Make(password string) (string, error) {
	if err := h.SelfTest(); err != nil {
		return "", err
	}
	salt, err := newSalt(h.rnd, BcryptSaltLen)
	if err != nil {
		return "", fmt.Errorf("hashing: bcrypt: failed to generate salt: %w", err)
	}
	out, err := BcryptCompute([]byte(password), h.cost, salt)
	if err != nil {
		return "", err
	}
	return encodeBcrypt(bcryptVersion, h.cost, salt, out), nil
}

// Check verifies that password matches the bcrypt-encoded hash. The cost is
// read from the hash, so credentials made at an older cost keep verifying.
func (h *BcryptHasher) Check(password, hash string) (bool, error) {
	if d, ok := DetectDriver(hash); !ok || d != DriverBcrypt {
		return false, fmt.Errorf("%w: hash does not appear to be bcrypt", ErrAlgorithmMismatch)
	}
	rec, err := decodeBcrypt(hash)
	if err != nil {
		return false, err
	}
	out, err := BcryptCompute([]byte(password), rec.cost, rec.salt)
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(out[:bcryptEncodedHashLen], rec.hash) == 1, nil
}

// Info extracts the version and work factor from a bcrypt hash string.
func (h *BcryptHasher) Info(hash string) (HashInfo, error) {
	if d, ok := DetectDriver(hash); !ok || d != DriverBcrypt {
		return HashInfo{}, fmt.Errorf("%w: hash does not appear to be bcrypt", ErrAlgorithmMismatch)
	}
	rec, err := decodeBcrypt(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return HashInfo{
		Driver: DriverBcrypt,
		Params: map[string]any{"version": rec.version, "cost": rec.cost},
	}, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
