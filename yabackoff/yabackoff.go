// Package yabackoff provides the back-off strategy used by retry loops such as
// the long-polling transport.
//
// # Quick start
//
//	backoff := yabackoff.NewExponential(time.Second, 2, time.Minute)
//	for {
//	    if err := poll(ctx); err == nil {
//	        backoff.Reset()
//	        continue
//	    }
//
//	    if err := backoff.WaitContext(ctx); err != nil {
//	        return err // stopped while waiting
//	    }
//	}
package yabackoff

import (
	"context"
	"time"
)

// Default* constants are applied when the caller provides zero values to
// NewExponential, or when an Exponential is used as a zero value.
const (
	DefaultInitialInterval = 500 * time.Millisecond
	DefaultMultiplier      = 1.5
	DefaultMaxInterval     = 60 * time.Second
)

// Backoff is the behaviour shared by back-off strategies. Implementations are
// not safe for concurrent use.
type Backoff interface {
	// Next returns the delay for this attempt and advances the strategy.
	Next() time.Duration

	// Current returns the delay the next call to Next will produce.
	Current() time.Duration

	// Wait sleeps for Next().
	Wait()

	// WaitContext sleeps for Next() or until ctx is done, whichever comes first.
	WaitContext(ctx context.Context) error

	// Reset puts the strategy back to its initial interval.
	Reset()
}
