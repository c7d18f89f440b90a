package yabackoff

import (
	"context"
	"time"
)

// Exponential multiplies the delay by a constant factor after every attempt,
// capping at maxInterval.
//
// Example:
//
//	backoff := yabackoff.NewExponential(100*time.Millisecond, 2, 300*time.Millisecond)
//	fmt.Println(backoff.Next()) // 100 ms
//	fmt.Println(backoff.Next()) // 200 ms
//	fmt.Println(backoff.Next()) // 300 ms (capped)
//	fmt.Println(backoff.Next()) // 300 ms
//
// The zero value is usable: package defaults are substituted on first use.
type Exponential struct {
	initialInterval time.Duration
	multiplier      float64
	maxInterval     time.Duration
	currentInterval time.Duration
}

// NewExponential creates a new exponential back-off. Any zero argument is
// replaced by the corresponding package default.
func NewExponential(
	initialInterval time.Duration,
	multiplier float64,
	maxInterval time.Duration,
) *Exponential {
	backoff := &Exponential{
		initialInterval: initialInterval,
		multiplier:      multiplier,
		maxInterval:     maxInterval,
		currentInterval: initialInterval,
	}

	backoff.safety()

	return backoff
}

// Reset sets the current interval back to the initial value.
func (e *Exponential) Reset() {
	e.safety()

	e.currentInterval = e.initialInterval
}

// Next returns the current delay and advances the internal state.
func (e *Exponential) Next() time.Duration {
	e.safety()

	delay := e.currentInterval

	e.incrementCurrentInterval()

	return delay
}

// Current reports the delay the next call to Next returns. It never mutates state.
func (e *Exponential) Current() time.Duration {
	if e.currentInterval == 0 {
		return DefaultInitialInterval
	}

	return e.currentInterval
}

// Wait sleeps for Next().
func (e *Exponential) Wait() {
	time.Sleep(e.Next())
}

// WaitContext sleeps for Next() and returns ctx.Err() if ctx is done first.
//
// Example:
//
//	if err := backoff.WaitContext(ctx); err != nil {
//	    return // shutting down
//	}
func (e *Exponential) WaitContext(ctx context.Context) error {
	timer := time.NewTimer(e.Next())
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (e *Exponential) incrementCurrentInterval() {
	if e.currentInterval >= e.maxInterval {
		e.currentInterval = e.maxInterval

		return
	}

	e.currentInterval = min(time.Duration(float64(e.currentInterval)*e.multiplier), e.maxInterval)
}

// safety lazily substitutes defaults so a zero value Exponential works.
func (e *Exponential) safety() {
	if e.initialInterval <= 0 {
		e.initialInterval = DefaultInitialInterval
	}

	if e.currentInterval <= 0 {
		e.currentInterval = e.initialInterval
	}

	if e.maxInterval <= 0 {
		e.maxInterval = DefaultMaxInterval
	}

	if e.maxInterval < e.initialInterval {
		e.maxInterval = e.initialInterval
	}

	if e.multiplier < 1 {
		e.multiplier = DefaultMultiplier
	}
}
