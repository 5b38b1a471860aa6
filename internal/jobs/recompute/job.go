package recompute

import (
	"context"
	"fmt"

	"github.com/kocahmet1/ultrasat-progress/internal/jobs/worker"
	"github.com/kocahmet1/ultrasat-progress/internal/platform/logger"
)

// NewJob adapts a full recompute run to the cron worker. A run that finishes
// with per-user errors still counts as a success for the scheduler; the
// summary is logged.
func NewJob(o *Orchestrator, mode Mode, log *logger.Logger) worker.Job {
	return worker.JobFunc{
		JobName: "recompute_" + string(mode),
		Fn: func(ctx context.Context) error {
			sum, err := o.Run(ctx, mode)
			if err != nil {
				return fmt.Errorf("recompute %s: %w", mode, err)
			}
			log.Info("Scheduled recompute finished",
				"mode", sum.Mode,
				"users", sum.Users,
				"processed", sum.Processed,
				"errors", sum.Errors,
				"interrupted", sum.Interrupted,
			)
			return nil
		},
	}
}
