package client

import (
	"context"
	"sync"
)

// RequestScope keeps at most one live request context. Starting a new one
// cancels the previous, so a superseded fetch (new filter, new screen) does
// not land after the one that replaced it.
type RequestScope struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	gen    uint64
}

// Begin cancels the current request, if any, and returns a context for the
// next one. The returned release func must be called when that request is
// done.
func (s *RequestScope) Begin(parent context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(parent)

	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.gen++
	gen := s.gen
	s.cancel = cancel
	s.mu.Unlock()

	return ctx, func() {
		s.mu.Lock()
		if s.gen == gen {
			s.cancel = nil
		}
		s.mu.Unlock()
		cancel()
	}
}

// Cancel aborts the current request.
func (s *RequestScope) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
