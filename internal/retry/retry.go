// Package retry runs fallible operations with exponential backoff.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Options controls how an operation is retried.
type Options struct {
	// Attempts is the total number of tries, including the first. Values
	// below 1 mean a single try.
	Attempts int
	// Initial is the delay before the first retry. It doubles on every
	// retry up to Max.
	Initial time.Duration
	Max     time.Duration
	// OnRetry, if set, is called before sleeping for a retry.
	OnRetry func(err error, next time.Duration)
}

// DefaultOptions are used for zero fields.
var DefaultOptions = Options{
	Attempts: 3,
	Initial:  100 * time.Millisecond,
	Max:      2 * time.Second,
}

// Permanent marks err so that Do stops retrying and returns it unchanged.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// Do calls op until it succeeds, returns a Permanent error, runs out of
// attempts or ctx is done.
func Do[T any](ctx context.Context, opts Options, op func(ctx context.Context) (T, error)) (T, error) {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.Initial <= 0 {
		opts.Initial = DefaultOptions.Initial
	}
	if opts.Max < opts.Initial {
		opts.Max = opts.Initial
		if DefaultOptions.Max > opts.Max {
			opts.Max = DefaultOptions.Max
		}
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = opts.Initial
	b.MaxInterval = opts.Max
	b.Multiplier = 2
	b.RandomizationFactor = 0.2

	retryOpts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(opts.Attempts)),
	}
	if opts.OnRetry != nil {
		retryOpts = append(retryOpts, backoff.WithNotify(backoff.Notify(opts.OnRetry)))
	}

	return backoff.Retry(ctx, func() (T, error) {
		return op(ctx)
	}, retryOpts...)
}
