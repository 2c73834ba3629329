package digest

import (
	"crypto/rand"
	"fmt"
	"hash"
	"io"
)

const (
	ipad = 0x36
	opad = 0x5c
)

// Vector is a message held as an ordered list of buffers. Hashing a Vector is
// equivalent to hashing the concatenation of its elements.
type Vector [][]byte

// Len returns the total number of bytes in v.
func (v Vector) Len() int {
	n := 0
	for _, b := range v {
		n += len(b)
	}
	return n
}

// Option configures an [Engine].
type Option func(*Engine)

// WithRandom replaces the randomness source used by [Engine.Random].
// The default is crypto/rand.Reader.
func WithRandom(r io.Reader) Option {
	return func(e *Engine) { e.random = r }
}

// Engine computes digests and HMACs over a single [Backend].
//
// An Engine holds no per-operation state and is safe for concurrent use; the
// [Context] values it creates are not.
type Engine struct {
	backend Backend
	random  io.Reader
}

// New returns an Engine over backend. A nil backend selects [Std].
func New(backend Backend, opts ...Option) *Engine {
	if backend == nil {
		backend = Std
	}
	e := &Engine{backend: backend, random: rand.Reader}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Backend returns the engine's backend.
func (e *Engine) Backend() Backend { return e.backend }

// Context is the state of one digest or HMAC computation.
//
// A Context belongs to the caller that created it and must not be shared
// between goroutines. [Context.Final] consumes it.
type Context struct {
	alg   Algorithm
	inner hash.Hash

	// HMAC only.
	hmac    bool
	backend Backend
	okey    []byte

	done bool
}

// Init starts a computation of alg. When hmacKey is non-nil (an empty,
// non-nil slice included) the context computes HMAC-alg keyed with it.
func (e *Engine) Init(alg Algorithm, hmacKey []byte) (*Context, error) {
	if !alg.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedAlgorithm, alg)
	}
	inner, err := e.backend.New(alg)
	if err != nil {
		return nil, err
	}
	c := &Context{alg: alg, inner: inner}
	if hmacKey == nil {
		return c, nil
	}

	block := alg.BlockSize()
	key := make([]byte, block)
	if len(hmacKey) > block {
		kh, err := e.backend.New(alg)
		if err != nil {
			return nil, err
		}
		kh.Write(hmacKey)
		copy(key, kh.Sum(nil))
	} else {
		copy(key, hmacKey)
	}

	ikey := make([]byte, block)
	okey := make([]byte, block)
	for i, b := range key {
		ikey[i] = b ^ ipad
		okey[i] = b ^ opad
	}
	wipe(key)
	c.inner.Write(ikey)
	wipe(ikey)

	c.hmac = true
	c.backend = e.backend
	c.okey = okey
	return c, nil
}

// Algorithm returns the algorithm the context computes.
func (c *Context) Algorithm() Algorithm { return c.alg }

// Update feeds p into the computation. The result does not depend on how the
// message is split across calls.
func (c *Context) Update(p []byte) error {
	if c.done {
		return ErrFinalized
	}
	c.inner.Write(p)
	return nil
}

// Final returns the digest and consumes the context. Any later call to
// Update or Final returns [ErrFinalized].
func (c *Context) Final() ([]byte, error) {
	if c.done {
		return nil, ErrFinalized
	}
	c.done = true

	sum := c.inner.Sum(nil)
	c.inner = nil
	if !c.hmac {
		return sum, nil
	}

	defer func() {
		wipe(c.okey)
		c.okey = nil
	}()
	outer, err := c.backend.New(c.alg)
	if err != nil {
		return nil, err
	}
	outer.Write(c.okey)
	outer.Write(sum)
	return outer.Sum(nil), nil
}

// Oneshot hashes the concatenation of v with alg.
func (e *Engine) Oneshot(alg Algorithm, v Vector) ([]byte, error) {
	return e.run(alg, nil, v)
}

// HMAC computes HMAC-alg of the concatenation of v keyed with key.
func (e *Engine) HMAC(alg Algorithm, key []byte, v Vector) ([]byte, error) {
	if key == nil {
		key = []byte{}
	}
	return e.run(alg, key, v)
}

func (e *Engine) run(alg Algorithm, key []byte, v Vector) ([]byte, error) {
	c, err := e.Init(alg, key)
	if err != nil {
		return nil, err
	}
	for _, b := range v {
		if err := c.Update(b); err != nil {
			return nil, err
		}
	}
	return c.Final()
}

// Random returns n cryptographically random bytes from the engine's source.
func (e *Engine) Random(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(e.random, b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrShortRandom, err)
	}
	return b, nil
}

func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
