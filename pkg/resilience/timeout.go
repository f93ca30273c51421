package resilience

import (
	"context"
	"errors"
	"fmt"
	"time"

	apperrors "github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/errors"
)

// Timeout calls fn with a context cancelled after timeout. fn must honour
// its context. A timeout of zero or less calls fn with ctx unchanged. When
// the deadline cuts fn short the error matches both apperrors.ErrTimeout and
// context.DeadlineExceeded; cancellation of ctx itself is reported as is.
func Timeout[T any](ctx context.Context, timeout time.Duration, name string, fn func(ctx context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	tctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	v, err := fn(tctx)
	if err == nil {
		return v, nil
	}
	var zero T
	if ctx.Err() != nil {
		return zero, fmt.Errorf("%s: %w", name, ctx.Err())
	}
	if errors.Is(tctx.Err(), context.DeadlineExceeded) {
		return zero, fmt.Errorf("%s: %w: %w (limit: %v)", name, apperrors.ErrTimeout, context.DeadlineExceeded, timeout)
	}
	return zero, err
}
