package service

import (
	"context"
	"errors"
	"fmt"
)

// Outcome is the result of WithFallback. Cause is set when Degraded.
type Outcome[T any] struct {
	Value    T
	Degraded bool
	Cause    error
}

// WithFallback runs primary and substitutes fallback() when it returns an
// error or panics. It never fails.
func WithFallback[T any](ctx context.Context, primary func(context.Context) (T, error), fallback func() T) (out Outcome[T]) {
	defer func() {
		if r := recover(); r != nil {
			out = Outcome[T]{Value: fallback(), Degraded: true, Cause: &InferenceFailure{Reason: ReasonPanic, Err: fmt.Errorf("%v", r)}}
		}
	}()

	value, err := primary(ctx)
	if err != nil {
		return Outcome[T]{Value: fallback(), Degraded: true, Cause: err}
	}
	return Outcome[T]{Value: value}
}

// FailureReasonOf extracts the reason tag from err, or "" when err is not an InferenceFailure.
func FailureReasonOf(err error) FailureReason {
	var f *InferenceFailure
	if errors.As(err, &f) {
		return f.Reason
	}
	return ""
}
