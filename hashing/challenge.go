package hashing

import (
	"crypto/subtle"
	"fmt"
	"sync"

	"github.com/hasbyte1/go-ircservices/digest"
)

// ChallengeNonceLen is the length of the server nonce in a [Challenge].
const ChallengeNonceLen = 32

// Challenge is one round of the scrypt proof exchange. The server publishes
// the salt and parameters of the stored credential along with a fresh nonce;
// the client answers with HMAC-SHA256(scrypt(password, salt), nonce).
//
// A Challenge can be answered once. Presenting a second proof for the same
// Challenge fails, so a captured proof cannot be replayed.
type Challenge struct {
	Nonce  []byte
	Salt   []byte
	Params ScryptParams
	KeyLen int

	mu   sync.Mutex
	used bool
}

// Prover issues and checks scrypt challenges. The stored credential doubles
// as the verifier, so existing $scrypt$ records need no migration.
type Prover struct {
	engine *digest.Engine
}

// NewProver returns a Prover that draws nonces from and computes HMACs with e.
func NewProver(e *digest.Engine) *Prover {
	return &Prover{engine: e}
}

// NewChallenge builds a challenge for the stored scrypt credential.
func (p *Prover) NewChallenge(stored string) (*Challenge, error) {
	rec, err := decodeScrypt(stored)
	if err != nil {
		return nil, err
	}
	nonce, err := p.engine.Random(ChallengeNonceLen)
	if err != nil {
		return nil, fmt.Errorf("hashing: challenge nonce: %w", err)
	}
	return &Challenge{
		Nonce:  nonce,
		Salt:   rec.salt,
		Params: rec.params,
		KeyLen: len(rec.key),
	}, nil
}

// Prove computes the client's answer to c for password.
func (p *Prover) Prove(password string, c *Challenge) ([]byte, error) {
	key, err := scryptKey([]byte(password), c.Salt, c.Params, c.KeyLen)
	if err != nil {
		return nil, err
	}
	defer wipe(key)
	return p.engine.HMAC(digest.SHA256, key, digest.Vector{c.Nonce})
}

// CheckProof verifies proof against the stored credential and marks c as
// used. It returns [ErrChallengeUsed] when c has already been answered.
func (p *Prover) CheckProof(stored string, c *Challenge, proof []byte) (bool, error) {
	c.mu.Lock()
	if c.used {
		c.mu.Unlock()
		return false, ErrChallengeUsed
	}
	c.used = true
	c.mu.Unlock()

	rec, err := decodeScrypt(stored)
	if err != nil {
		return false, err
	}
	if subtle.ConstantTimeCompare(rec.salt, c.Salt) != 1 || rec.params != c.Params {
		return false, nil
	}
	want, err := p.engine.HMAC(digest.SHA256, rec.key, digest.Vector{c.Nonce})
	if err != nil {
		return false, err
	}
	return subtle.ConstantTimeCompare(want, proof) == 1, nil
}
