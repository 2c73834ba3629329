package hashing

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool runs credential verifications on a bounded set of goroutines so the
// caller's loop is not stalled by bcrypt or scrypt. The worker sees copies of
// the stored credential and the candidate only; the record itself is read
// and written on the caller's side, in [Completion.Result].
type Pool struct {
	reg *Registry
	sem *semaphore.Weighted
	wg  sync.WaitGroup
}

// NewPool returns a Pool that runs at most size verifications at once.
func NewPool(reg *Registry, size int) (*Pool, error) {
	if reg == nil {
		return nil, fmt.Errorf("%w: pool needs a registry", ErrInvalidOption)
	}
	if size < 1 {
		return nil, fmt.Errorf("%w: pool size must be ≥ 1, got %d", ErrInvalidOption, size)
	}
	return &Pool{reg: reg, sem: semaphore.NewWeighted(int64(size))}, nil
}

// Completion is the result of one submitted verification.
type Completion struct {
	reg *Registry
	rec Record
	a   *attempt
	o   outcome

	once   sync.Once
	result bool
}

// Result reports whether the candidate matched and applies the credential
// upgrade, if any. It must be called from the goroutine that owns the
// record. Repeated calls return the same answer without writing again.
func (c *Completion) Result() bool {
	c.once.Do(func() {
		if c.a == nil {
			c.reg.metrics.verifications.WithLabelValues(resultMismatch).Inc()
			return
		}
		c.result = c.reg.commit(c.rec, c.a, c.o)
	})
	return c.result
}

// Submit starts verifying candidate against rec. The returned channel yields
// exactly one Completion and is then closed. A cancelled ctx while waiting
// for a worker slot yields a Completion that reports false.
func (p *Pool) Submit(ctx context.Context, rec Record, candidate string) <-chan *Completion {
	ch := make(chan *Completion, 1)
	c := &Completion{reg: p.reg, rec: rec}

	a, ok := p.reg.prepare(rec.Credential(), candidate)
	if !ok {
		ch <- c
		close(ch)
		return ch
	}
	c.a = a

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer close(ch)
		if err := p.sem.Acquire(ctx, 1); err != nil {
			c.o = outcome{err: err}
			ch <- c
			return
		}
		c.o = a.run()
		p.sem.Release(1)
		ch <- c
	}()
	return ch
}

// Wait blocks until every submitted verification has finished.
func (p *Pool) Wait() {
	p.wg.Wait()
}
