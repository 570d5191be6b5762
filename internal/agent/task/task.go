// Package task is the agent's cooperative unit-of-work model. Each
// platform event gets a Scope; work registered on it keeps the event
// open until everything settles, so the host cannot tear the agent
// down mid-operation.
package task

import (
	"context"
	"errors"
	"sync"
)

type Scope struct {
	wg   sync.WaitGroup
	mu   sync.Mutex
	errs []error
}

func NewScope() *Scope { return &Scope{} }

// Go registers fn as work the event must outlive. Errors are collected,
// never propagated as panics; a failed sub-task must not kill the
// event itself.
func (s *Scope) Go(fn func() error) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := fn(); err != nil {
			s.mu.Lock()
			s.errs = append(s.errs, err)
			s.mu.Unlock()
		}
	}()
}

// Wait blocks until all registered work settles or ctx is canceled.
// The joined error of all failed sub-tasks is returned either way.
func (s *Scope) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return errors.Join(s.errs...)
}
