package pipeline

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job is one scheduled execution.
type Job func(ctx context.Context) error

// Schedule runs job on the standard five-field cron spec until ctx is done.
// Runs never overlap: a tick that fires while the previous run is still
// going is skipped.
func Schedule(ctx context.Context, spec string, job Job, logger zerolog.Logger) error {
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))

	_, err := c.AddFunc(spec, func() {
		logger.Info().Str("schedule", spec).Msg("scheduled run starting")
		if err := job(ctx); err != nil {
			logger.Error().Err(err).Msg("scheduled run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}

	c.Start()
	logger.Info().Str("schedule", spec).Msg("scheduler started")

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
