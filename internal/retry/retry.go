package retry

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
)

type retriableError struct {
	err error
}

type retriableFunc func(context.Context) error

// Intervals are the pauses between attempts made by Do.
var Intervals = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

func RetriableError(err error) *retriableError {
	return &retriableError{err: err}
}

func (e retriableError) Error() string {
	if e.err == nil {
		return "retriable: <nil>"
	}
	return "retriable: " + e.err.Error()
}

func (e retriableError) Unwrap() error {
	return e.err
}

// IsRetriable reports whether err was wrapped with RetriableError.
func IsRetriable(err error) bool {
	var rerr *retriableError
	return errors.As(err, &rerr)
}

// Do calls f until it succeeds, returns an error not wrapped with
// RetriableError or Intervals are exhausted.
func Do(ctx context.Context, f retriableFunc) error {
	var err error
	for i, interval := range Intervals {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		err = f(ctx)
		if err == nil {
			return nil
		}

		if !IsRetriable(err) {
			return err
		}
		if i == len(Intervals)-1 {
			break
		}

		timer := time.NewTimer(interval)
		select {
		case <-timer.C:
			continue
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	}

	return errors.Unwrap(err)
}
