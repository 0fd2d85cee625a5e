package fetch

import (
	"context"
	"sync"
)

// Session is one cancellable orchestration run targeting a single area.
// The coordinator keeps at most one live session per area; a superseding
// trigger cancels the old session and waits on Done before starting anew.
type Session struct {
	AreaID string

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewSession derives a cancellable context from parent for one area's run.
func NewSession(parent context.Context, areaID string) *Session {
	ctx, cancel := context.WithCancel(parent)
	return &Session{
		AreaID: areaID,
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Context returns the session's cancellation context, passed into every
// network call and backoff wait of the run.
func (s *Session) Context() context.Context {
	return s.ctx
}

// Cancel asks the running orchestration to stop at its next suspension
// point. Safe to call from any goroutine, any number of times.
func (s *Session) Cancel() {
	s.cancel()
}

// Done is closed once the run has fully wound down, cancelled or not.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Finish marks the run complete and releases the context. Called by the
// goroutine that owns the run; later calls are no-ops.
func (s *Session) Finish() {
	s.once.Do(func() {
		s.cancel()
		close(s.done)
	})
}
