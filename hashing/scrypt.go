package hashing

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Options
// ──────────────────────────────────────────────────────────────────────────────

const (
	// ScryptMemCostMin, ScryptMemCostMax and DefaultScryptMemCost bound the
	// memory cost, expressed as log2 of the memory limit in KiB
	// (14 → 16 MiB, 26 → 64 GiB).
	ScryptMemCostMin     uint = 14
	ScryptMemCostMax     uint = 26
	DefaultScryptMemCost uint = 14

	// ScryptOpsCostMin, ScryptOpsCostMax and DefaultScryptOpsCost bound the
	// operation cost, the number of salsa20/8 core invocations budgeted.
	ScryptOpsCostMin     uint64 = 32768
	ScryptOpsCostMax     uint64 = 4294967295
	DefaultScryptOpsCost uint64 = 524288

	// DefaultScryptSaltLen is the random salt length in bytes.
	DefaultScryptSaltLen = 32

	// DefaultScryptKeyLen is the derived key length in bytes.
	DefaultScryptKeyLen = 32

	scryptID = "scrypt"
)

// ScryptOptions configures a [ScryptHasher].
type ScryptOptions struct {
	// MemCost is log2 of the memory limit in KiB.
	// Valid range: [ScryptMemCostMin, ScryptMemCostMax]. Default: 14.
	MemCost uint

	// OpsCost is the operation limit.
	// Valid range: [ScryptOpsCostMin, ScryptOpsCostMax]. Default: 524288.
	OpsCost uint64

	// SaltLen is the length of the random salt in bytes. Minimum: 16.
	SaltLen int

	// KeyLen is the length of the derived key in bytes. Minimum: 16.
	KeyLen int

	// Random supplies salts. Nil means crypto/rand.
	Random Randomizer
}

// DefaultScryptOptions returns ScryptOptions with the interactive defaults
// (16 MiB, 524288 operations, which maps to N=2^14, r=8, p=1).
func DefaultScryptOptions() ScryptOptions {
	return ScryptOptions{
		MemCost: DefaultScryptMemCost,
		OpsCost: DefaultScryptOpsCost,
		SaltLen: DefaultScryptSaltLen,
		KeyLen:  DefaultScryptKeyLen,
	}
}

// ScryptParams is the concrete (N, r, p) triple derived from a memory and an
// operation cost.
type ScryptParams struct {
	LogN uint
	R    int
	P    int
}

// N returns 2^LogN.
func (p ScryptParams) N() int { return 1 << p.LogN }

// ScryptParamsFor validates memCost and opsCost and maps them to scrypt
// parameters: r is fixed at 8; when the operation budget is the binding
// constraint p is 1 and N is sized from it, otherwise N is sized from the
// memory limit and p absorbs the remaining operations.
//
// Out-of-range costs are rejected with [ErrInvalidOption] before anything else
// happens.
func ScryptParamsFor(memCost uint, opsCost uint64) (ScryptParams, error) {
	if memCost < ScryptMemCostMin || memCost > ScryptMemCostMax {
		return ScryptParams{}, fmt.Errorf("%w: scrypt memory cost %d must be in [%d, %d]",
			ErrInvalidOption, memCost, ScryptMemCostMin, ScryptMemCostMax)
	}
	if opsCost < ScryptOpsCostMin || opsCost > ScryptOpsCostMax {
		return ScryptParams{}, fmt.Errorf("%w: scrypt operation cost %d must be in [%d, %d]",
			ErrInvalidOption, opsCost, ScryptOpsCostMin, ScryptOpsCostMax)
	}

	const r = 8
	memLimit := uint64(1) << (memCost + 10)

	var maxN uint64
	p := uint64(1)
	if opsCost < memLimit/32 {
		maxN = opsCost / (r * 4)
	} else {
		maxN = memLimit / (r * 128)
	}
	logN := uint(1)
	for ; logN < 63; logN++ {
		if uint64(1)<<logN > maxN/2 {
			break
		}
	}
	if opsCost >= memLimit/32 {
		maxRP := (opsCost / 4) / (uint64(1) << logN)
		if maxRP > 0x3fffffff {
			maxRP = 0x3fffffff
		}
		p = maxRP / r
		if p < 1 {
			p = 1
		}
	}
	return ScryptParams{LogN: logN, R: r, P: int(p)}, nil
}

// ScryptCompute derives a keyLen-byte key from password and salt under the
// given costs. Costs are validated before any hashing work starts.
func ScryptCompute(password []byte, memCost uint, opsCost uint64, salt []byte, keyLen int) ([]byte, error) {
	params, err := ScryptParamsFor(memCost, opsCost)
	if err != nil {
		return nil, err
	}
	return scryptKey(password, salt, params, keyLen)
}

func scryptKey(password, salt []byte, p ScryptParams, keyLen int) ([]byte, error) {
	key, err := scrypt.Key(password, salt, p.N(), p.R, p.P, keyLen)
	if err != nil {
		return nil, fmt.Errorf("hashing: scrypt: %w", err)
	}
	return key, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// ScryptHasher
// ──────────────────────────────────────────────────────────────────────────────

// ScryptHasher hashes passwords with the memory-hard scrypt KDF.
//
// Output format: $scrypt$ln=<log2 N>,r=<r>,p=<p>$<salt>$<key>.
// Verification reads (N, r, p) from the string, so stored credentials stay
// valid when the configured costs change.
//
// # Thread safety
//
// ScryptHasher is immutable after construction and safe for concurrent use.
type ScryptHasher struct {
	opts   ScryptOptions
	params ScryptParams
	rnd    Randomizer
}

// NewScryptHasher constructs a ScryptHasher with the given options.
// Returns [ErrInvalidOption] for out-of-range costs or lengths.
func NewScryptHasher(opts ScryptOptions) (*ScryptHasher, error) {
	params, err := ScryptParamsFor(opts.MemCost, opts.OpsCost)
	if err != nil {
		return nil, err
	}
	if opts.SaltLen < 16 {
		return nil, fmt.Errorf("%w: scrypt salt_len must be ≥ 16, got %d", ErrInvalidOption, opts.SaltLen)
	}
	if opts.KeyLen < 16 {
		return nil, fmt.Errorf("%w: scrypt key_len must be ≥ 16, got %d", ErrInvalidOption, opts.KeyLen)
	}
	return &ScryptHasher{opts: opts, params: params, rnd: randomizerOrDefault(opts.Random)}, nil
}

// Driver returns [DriverScrypt].
func (h *ScryptHasher) Driver() DriverName { return DriverScrypt }

// Options returns the configured options.
func (h *ScryptHasher) Options() ScryptOptions { return h.opts }

// Params returns the (N, r, p) triple used for new credentials.
func (h *ScryptHasher) Params() ScryptParams { return h.params }

// Make hashes password and returns the encoded credential.
func (h *ScryptHasher) Make(password string) (string, error) {
	salt, err := newSalt(h.rnd, h.opts.SaltLen)
	if err != nil {
		return "", fmt.Errorf("hashing: scrypt: failed to generate salt: %w", err)
	}
	key, err := scryptKey([]byte(password), salt, h.params, h.opts.KeyLen)
	if err != nil {
		return "", err
	}
	return encodeScrypt(h.params, salt, key), nil
}

// Check verifies that password matches the scrypt credential.
func (h *ScryptHasher) Check(password, hash string) (bool, error) {
	stored, err := decodeScrypt(hash)
	if err != nil {
		return false, err
	}
	key, err := scryptKey([]byte(password), stored.salt, stored.params, len(stored.key))
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(key, stored.key) == 1, nil
}

// Info parses the credential and returns its parameters.
func (h *ScryptHasher) Info(hash string) (HashInfo, error) {
	stored, err := decodeScrypt(hash)
	if err != nil {
		return HashInfo{}, err
	}
	return HashInfo{
		Driver: DriverScrypt,
		Params: map[string]any{
			"ln": int(stored.params.LogN),
			"r":  stored.params.R,
			"p":  stored.params.P,
		},
	}, nil
}

type scryptRecord struct {
	params ScryptParams
	salt   []byte
	key    []byte
}

func encodeScrypt(p ScryptParams, salt, key []byte) string {
	return encodePHC(phcRecord{
		id:     scryptID,
		params: map[string]uint64{"ln": uint64(p.LogN), "r": uint64(p.R), "p": uint64(p.P)},
		order:  []string{"ln", "r", "p"},
		salt:   salt,
		hash:   key,
	})
}

func decodeScrypt(encoded string) (*scryptRecord, error) {
	rec, err := decodePHC(encoded, scryptID, true)
	if err != nil {
		return nil, err
	}
	ln, ok1 := rec.params["ln"]
	r, ok2 := rec.params["r"]
	p, ok3 := rec.params["p"]
	if !ok1 || !ok2 || !ok3 {
		return nil, fmt.Errorf("%w: missing ln/r/p in scrypt parameters", ErrInvalidHash)
	}
	if ln < 1 || ln > 62 || r < 1 || p < 1 || r >= 1<<30 || p >= 1<<30 || r*p >= 1<<30 {
		return nil, fmt.Errorf("%w: scrypt parameters out of range", ErrInvalidHash)
	}
	return &scryptRecord{
		params: ScryptParams{LogN: uint(ln), R: int(r), P: int(p)},
		salt:   rec.salt,
		key:    rec.hash,
	}, nil
}
