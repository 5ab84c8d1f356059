package observable

import "sync"

// Latest is a single-writer, multi-reader broadcast of the latest value.
type Latest[T any] struct {
	mu     sync.Mutex
	value  T
	has    bool
	closed bool
	subs   map[*Subscription[T]]struct{}
}

// NewLatest creates an empty Latest.
func NewLatest[T any]() *Latest[T] {
	return &Latest[T]{subs: make(map[*Subscription[T]]struct{})}
}

// Publish stores v as the latest value and offers it to every subscriber.
// Publishing after Close is a no-op.
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.value = v
	l.has = true
	for s := range l.subs {
		s.offer(v)
	}
}

// Latest returns the most recently published value.
// ok is false if nothing has been published yet.
func (l *Latest[T]) Latest() (v T, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.has
}

// Subscribe registers a new subscriber. If a value has already been
// published, it is waiting in the subscription when Subscribe returns.
// Subscribing to a closed Latest yields a subscription whose channel holds
// the final value (if any) and is already closed.
func (l *Latest[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{ch: make(chan T, 1), parent: l}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.has {
		s.offer(l.value)
	}
	if l.closed {
		close(s.ch)
		return s
	}
	l.subs[s] = struct{}{}
	return s
}

// Close closes every subscription channel. A value still sitting in a
// subscriber's mailbox can be read before the channel reports closed.
func (l *Latest[T]) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return
	}
	l.closed = true
	for s := range l.subs {
		close(s.ch)
		delete(l.subs, s)
	}
}

// Subscribers returns the number of attached subscriptions.
func (l *Latest[T]) Subscribers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.subs)
}

// Subscription receives values from a Latest.
type Subscription[T any] struct {
	ch     chan T
	parent *Latest[T]
}

// C returns the delivery channel. It is closed when the subscription or
// its publisher is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Close detaches the subscription and closes its channel.
func (s *Subscription[T]) Close() {
	l := s.parent
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.subs[s]; !ok {
		return
	}
	delete(l.subs, s)
	close(s.ch)
}

// offer replaces any unread value with v. Must be called with the parent
// lock held, which makes it the only sender.
func (s *Subscription[T]) offer(v T) {
	select {
	case <-s.ch:
	default:
	}
	select {
	case s.ch <- v:
	default:
	}
}
