package shutdown

import (
	"context"
	"sync"
	"time"
)

// Token signals that shutdown has been requested.
// The zero value is not usable; create tokens with New or NewWithParent.
type Token struct {
	ctx    context.Context
	cancel context.CancelFunc

	once        sync.Once
	mu          sync.RWMutex
	requestedAt time.Time
}

// New creates a token that is only fired by Request.
func New() *Token {
	return NewWithParent(context.Background())
}

// NewWithParent creates a token that also fires when parent is done.
// Values stored in parent remain visible through Context.
func NewWithParent(parent context.Context) *Token {
	ctx, cancel := context.WithCancel(parent)
	t := &Token{ctx: ctx, cancel: cancel}

	if parent.Done() != nil {
		context.AfterFunc(parent, func() { t.Request() })
	}
	return t
}

// Request fires the token. It returns true only for the call that actually
// fired it; later calls have no effect.
func (t *Token) Request() bool {
	fired := false
	t.once.Do(func() {
		t.mu.Lock()
		t.requestedAt = time.Now()
		t.mu.Unlock()
		t.cancel()
		fired = true
	})
	return fired
}

// Requested reports whether shutdown has been requested.
func (t *Token) Requested() bool {
	return t.ctx.Err() != nil
}

// Done returns a channel that is closed when shutdown is requested.
func (t *Token) Done() <-chan struct{} {
	return t.ctx.Done()
}

// Context returns a context that is canceled when shutdown is requested.
func (t *Token) Context() context.Context {
	return t.ctx
}

// RequestedAt returns the time shutdown was requested, or the zero time.
func (t *Token) RequestedAt() time.Time {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.requestedAt
}
