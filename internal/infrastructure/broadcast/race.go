package broadcast

import (
	"context"
	"errors"
)

// Channel is a one-shot source. It returns ok=false when it finished without
// producing anything, which withdraws it from a race. Implementations must
// return promptly once ctx is cancelled.
type Channel[T any] func(ctx context.Context) (value T, ok bool, err error)

// Race starts every channel and settles the returned Once with the first value
// or error produced. The remaining channels are cancelled as soon as one wins.
// If every channel withdraws, the Once stays unsettled.
func Race[T any](ctx context.Context, channels ...Channel[T]) *Once[T] {
	out := NewOnce[T]()
	raceCtx, cancel := context.WithCancel(ctx)

	remaining := make(chan struct{}, len(channels))
	for _, ch := range channels {
		go func(ch Channel[T]) {
			defer func() { remaining <- struct{}{} }()

			v, ok, err := ch(raceCtx)
			if raceCtx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
				return
			}
			switch {
			case err != nil:
				cancel()
				out.Reject(err)
			case ok:
				cancel()
				out.Resolve(v)
			}
		}(ch)
	}

	go func() {
		for range channels {
			<-remaining
		}
		cancel()
	}()

	return out
}
