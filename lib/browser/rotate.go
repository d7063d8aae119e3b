package browser

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	maxRotateAttempts = 3
	sanityCheckURL    = "https://www.example.com"
)

// Rotate tears down a session and replaces it with a fresh identity.
// Each candidate is sanity checked against a known good page before it
// is handed back, since a dead proxy makes a session useless.
func Rotate(ctx context.Context, source Source, old Session) (Session, error) {
	if old != nil {
		old.Close()
	}

	var lastErr error
	for attempt := 1; attempt <= maxRotateAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		session, err := source.NewSession(ctx)
		if err != nil {
			slog.Warn("session rotation failed",
				"attempt", attempt,
				"err", err)
			lastErr = err
			continue
		}

		if err := session.Navigate(ctx, sanityCheckURL); err != nil {
			slog.Warn("rotated session failed sanity check",
				"attempt", attempt,
				"err", err)
			session.Close()
			lastErr = err
			continue
		}

		slog.Info("rotated to a fresh session", "attempt", attempt)
		return session, nil
	}

	return nil, fmt.Errorf("failed to rotate session after %d attempts: %w", maxRotateAttempts, lastErr)
}
