package certscraper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mazen160/go-random"
)

// RetryPolicy retries an operation with jittered backoff. Delays are
// randomized so repeated attempts do not form a recognizable cadence.
type RetryPolicy struct {
	MaxAttempts int
	MinBackoff  time.Duration
	MaxBackoff  time.Duration
}

func (p RetryPolicy) Do(ctx context.Context, name string, op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		slog.Warn("operation failed",
			"op", name,
			"attempt", attempt,
			"err", lastErr)

		if attempt < p.MaxAttempts {
			if err := sleepJitter(ctx, p.MinBackoff, p.MaxBackoff); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("%s: giving up after %d attempts: %w", name, p.MaxAttempts, lastErr)
}

// sleepJitter blocks for a uniformly random duration in [min, max].
func sleepJitter(ctx context.Context, min, max time.Duration) error {
	d := min
	if max > min {
		ms, err := random.IntRange(int(min.Milliseconds()), int(max.Milliseconds())+1)
		if err == nil {
			d = time.Duration(ms) * time.Millisecond
		}
	}
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
