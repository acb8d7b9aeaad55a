// Package wait provides the bounded poll used for every in-page signal.
package wait

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned by For when the condition never held.
var ErrTimeout = errors.New("condition not met before timeout")

// For polls cond every interval until it returns true, the timeout elapses
// or ctx is done. cond errors abort the wait immediately.
func For(ctx context.Context, timeout, interval time.Duration, cond func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		ok, err := cond(ctx)
		if err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return ErrTimeout
			}
			return err
		}
		if ok {
			return nil
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return ErrTimeout
			}
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
