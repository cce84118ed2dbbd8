package usecase

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"NoteAnalytics/internal/domain"
	"NoteAnalytics/internal/ports"
)

// AutoSync drives the sync runner on a schedule using the server-held
// credential pair. An overlap with a manual sync is absorbed by the run
// guard and logged, nothing else.
type AutoSync struct {
	driver ports.Scheduler
	runner *SyncRunner
	creds  domain.Credentials
	logger *slog.Logger
}

// NewAutoSync returns a helper to start/stop the recurring sync.
func NewAutoSync(driver ports.Scheduler, runner *SyncRunner, creds domain.Credentials, logger *slog.Logger) *AutoSync {
	return &AutoSync{driver: driver, runner: runner, creds: creds, logger: logger}
}

// Start registers the sync job with the provided scheduler.
func (a *AutoSync) Start(ctx context.Context) error {
	if a.driver == nil || a.runner == nil {
		return nil
	}

	job := func(trigger time.Time) {
		count, err := a.runner.Run(ctx, a.creds, trigger)
		switch {
		case errors.Is(err, ErrAlreadyRunning):
			a.log().Debug("auto sync skipped, run already active")
		case err != nil:
			a.log().Error("auto sync failed", "error", err)
		default:
			a.log().Info("auto sync completed", "articles", count)
		}
	}

	return a.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (a *AutoSync) Stop(ctx context.Context) error {
	if a.driver == nil {
		return nil
	}
	return a.driver.Stop(ctx)
}

func (a *AutoSync) log() *slog.Logger {
	if a.logger != nil {
		return a.logger
	}
	return slog.Default()
}
