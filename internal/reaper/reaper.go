// Package reaper removes expired cache rows on a daily schedule.
//
// Expiry is enforced at read time by the repository; the reaper is
// housekeeping that keeps the table from growing without bound. Missing a
// run is harmless.
package reaper

import (
	"context"
	"log/slog"
	"time"

	cacherepoport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/cacherepo"
	clockport "github.com/Damoxy/Experian-ProspectIQ-Search/internal/ports/out/clock"
)

// RunHour is the local hour at which the daily sweep fires.
const RunHour = 2

type Reaper struct {
	store cacherepoport.Repository
	clk   clockport.Clock
	log   *slog.Logger
}

func New(store cacherepoport.Repository, clk clockport.Clock, log *slog.Logger) *Reaper {
	if log == nil {
		log = slog.Default()
	}
	return &Reaper{store: store, clk: clk, log: log}
}

// Run blocks until ctx is cancelled, sweeping once per day at RunHour.
func (r *Reaper) Run(ctx context.Context) {
	for {
		wait := untilNextRun(r.clk.Now())
		r.log.Info("cache reaper sleeping", "until_next_run", wait.Round(time.Second).String())

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.log.Info("cache reaper stopping", "reason", ctx.Err())
			return
		case <-timer.C:
		}

		if _, err := r.RunOnce(ctx, false); err != nil {
			// Logged and retried on the next cycle.
			r.log.Error("cache sweep failed", "error", err)
		}
	}
}

// RunOnce performs a single sweep. With dryRun it reports what would be
// deleted without deleting.
func (r *Reaper) RunOnce(ctx context.Context, dryRun bool) (int64, error) {
	before, err := r.store.Statistics(ctx)
	if err != nil {
		return 0, err
	}
	r.log.Info("cache sweep starting",
		"dry_run", dryRun,
		"total", before.Total,
		"active", before.Active,
		"expired", before.Expired)

	removed, err := r.store.CleanupExpired(ctx, dryRun)
	if err != nil {
		return 0, err
	}

	after, err := r.store.Statistics(ctx)
	if err != nil {
		// The sweep itself succeeded; report it without the after-stats.
		r.log.Warn("cache sweep stats unavailable", "error", err)
		return removed, nil
	}
	r.log.Info("cache sweep finished",
		"dry_run", dryRun,
		"removed", removed,
		"remaining", after.Total)
	return removed, nil
}

// untilNextRun returns the duration until the next RunHour boundary strictly
// after now.
func untilNextRun(now time.Time) time.Duration {
	next := time.Date(now.Year(), now.Month(), now.Day(), RunHour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next.Sub(now)
}
