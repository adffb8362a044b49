package database

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	connectAttempts = 5
	connectBackoff  = time.Second
	pingTimeout     = 3 * time.Second
)

// retry calls ping until it succeeds, doubling the wait between attempts.
// Containers for PostgreSQL and Redis often start after the API.
func retry(ctx context.Context, log zerolog.Logger, name string, ping func(context.Context) error) error {
	wait := connectBackoff
	var err error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == connectAttempts {
			break
		}

		log.Warn().Err(err).
			Str("target", name).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msg("Connection not ready")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return err
}
