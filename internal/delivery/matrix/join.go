package matrix

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	joinBaseDelay = 2 * time.Second
	joinMaxDelay  = 3600 * time.Second
)

// joinWithBackoff retries join with doubling delays starting at base. Once
// the next delay would exceed ceiling the attempt is abandoned with a single
// permanent-failure log line. Rate-limited homeservers can keep a join
// pending for a long time, so the ceiling is generous.
func joinWithBackoff(
	ctx context.Context,
	log zerolog.Logger,
	room string,
	join func(ctx context.Context) error,
	sleep func(ctx context.Context, d time.Duration) error,
	base, ceiling time.Duration,
) error {
	delay := base
	for {
		err := join(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if delay > ceiling {
			log.Error().Str("room", room).Err(err).Msg("giving up joining room")
			return err
		}
		log.Warn().Str("room", room).Dur("retry_in", delay).Err(err).Msg("room join failed, retrying")
		if err := sleep(ctx, delay); err != nil {
			return err
		}
		delay *= 2
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
