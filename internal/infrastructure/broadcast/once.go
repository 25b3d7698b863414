// Package broadcast provides a resolve-once value that replays its outcome to
// every subscriber, and a race combinator that settles one from competing
// one-shot channels.
package broadcast

import (
	"context"
	"sync"
)

// Once settles at most once with either a value or an error. Subscribers
// registered before or after settlement each observe the outcome exactly once.
type Once[T any] struct {
	mu      sync.Mutex
	done    chan struct{}
	settled bool
	value   T
	err     error
	subs    []func(T, error)
}

// NewOnce creates an unsettled value
func NewOnce[T any]() *Once[T] {
	return &Once[T]{done: make(chan struct{})}
}

// Resolve settles with v. Returns false if already settled.
func (o *Once[T]) Resolve(v T) bool {
	return o.settle(v, nil)
}

// Reject settles with err. Returns false if already settled.
func (o *Once[T]) Reject(err error) bool {
	var zero T
	return o.settle(zero, err)
}

func (o *Once[T]) settle(v T, err error) bool {
	o.mu.Lock()
	if o.settled {
		o.mu.Unlock()
		return false
	}
	o.settled = true
	o.value = v
	o.err = err
	subs := o.subs
	o.subs = nil
	close(o.done)
	o.mu.Unlock()

	// Subscribers run on the settling goroutine, in registration order.
	for _, fn := range subs {
		fn(v, err)
	}
	return true
}

// Subscribe registers fn. If the value already settled, fn runs immediately on
// the caller's goroutine.
func (o *Once[T]) Subscribe(fn func(T, error)) {
	o.mu.Lock()
	if !o.settled {
		o.subs = append(o.subs, fn)
		o.mu.Unlock()
		return
	}
	v, err := o.value, o.err
	o.mu.Unlock()
	fn(v, err)
}

// Wait blocks until settlement or ctx is done
func (o *Once[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-o.done:
		o.mu.Lock()
		defer o.mu.Unlock()
		return o.value, o.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Done is closed on settlement
func (o *Once[T]) Done() <-chan struct{} {
	return o.done
}

// Peek returns the outcome without blocking. ok is false while unsettled.
func (o *Once[T]) Peek() (value T, err error, ok bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.err, o.settled
}
