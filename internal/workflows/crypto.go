package workflows

import (
	"context"
)

// runCrypto runs fn on its own goroutine so a cancelled ctx returns
// promptly even while a KDF or RSA operation is in flight. A cancelled call
// is all-or-nothing: the caller gets ctx.Err(), and if fn later produces a
// value, discard (when non-nil) receives it so secrets can be zeroed.
func runCrypto[T any](ctx context.Context, fn func() (T, error), discard func(T)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		go func() {
			r := <-done
			if r.err == nil && discard != nil {
				discard(r.value)
			}
		}()
		return zero, ctx.Err()
	}
}

func zeroBytes(b []byte) {
	clear(b)
}
