package common

import (
	"context"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/cenkalti/backoff/v4"
)

const (
	readAttempts     = 4
	readInitialDelay = 250 * time.Millisecond
	readMaxDelay     = 2 * time.Second
)

// RetryRead runs a read-only chain call with bounded exponential backoff.
// Only KindNetwork failures are retried; anything else returns at once.
// Never use it for broadcasts.
func RetryRead[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = readInitialDelay
	b.MaxInterval = readMaxDelay

	policy := backoff.WithContext(backoff.WithMaxRetries(b, readAttempts-1), ctx)
	return backoff.RetryWithData(func() (T, error) {
		v, err := fn()
		if err != nil && model.KindOf(err) != model.KindNetwork {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, policy)
}
