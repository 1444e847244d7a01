package util

import (
	"context"
	"time"
)

// sleep is swapped in tests.
var sleep = func(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// WaitFor blocks for d or until ctx is done.
func WaitFor(ctx context.Context, d time.Duration) error {
	return sleep(ctx, d)
}
