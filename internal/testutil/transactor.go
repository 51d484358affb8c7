// Package testutil holds helpers shared by service tests.
package testutil

import (
	"context"
	"sync"
)

type txKey struct{}

type txState struct {
	mu     sync.Mutex
	afters []func()
}

// Transactor runs fn directly and records how often a transaction was
// opened. Nested calls reuse the outer one, like the real implementation.
type Transactor struct {
	mu    sync.Mutex
	Calls int
	// Err, when set, is returned before fn runs.
	Err error
}

func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}
	t.mu.Lock()
	t.Calls++
	err := t.Err
	t.mu.Unlock()
	if err != nil {
		return err
	}

	state := &txState{}
	defer state.finish()
	return fn(context.WithValue(ctx, txKey{}, state))
}

func (s *txState) finish() {
	s.mu.Lock()
	afters := s.afters
	s.afters = nil
	s.mu.Unlock()
	for i := len(afters) - 1; i >= 0; i-- {
		afters[i]()
	}
}

// InTx reports whether ctx was produced by Transactor.WithinTx.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// AfterTx runs fn when the transaction in ctx ends, or right away when ctx
// carries none.
func AfterTx(ctx context.Context, fn func()) {
	state, ok := ctx.Value(txKey{}).(*txState)
	if !ok {
		fn()
		return
	}
	state.mu.Lock()
	state.afters = append(state.afters, fn)
	state.mu.Unlock()
}
