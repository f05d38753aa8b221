// Package jobs contains implementations of scheduled jobs for the scoring engine.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/codearena/scoring-engine/internal/application/command"
	"github.com/codearena/scoring-engine/internal/domain/contest"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD CACHES JOB
// ══════════════════════════════════════════════════════════════════════════════

// RebuildCachesJob rebuilds the score and rank caches for every active
// contest from the raw submission history. The caches are maintained
// incrementally by the judging event pipeline; this job is the safety net
// that repairs any drift, whatever its cause: a crashed worker mid-recompute,
// a missed event, a manual database edit.
type RebuildCachesJob struct {
	// Dependencies
	contestRepo    contest.Repository
	rebuildHandler *command.RebuildScoreCacheHandler
	logger         *slog.Logger

	// Configuration
	config RebuildCachesConfig

	// State
	lastRunStats atomic.Value // *RebuildRunStats
}

// RebuildCachesConfig contains configuration for the rebuild job.
type RebuildCachesConfig struct {
	// PerContestTimeout bounds a single contest's rebuild.
	PerContestTimeout time.Duration

	// Timeout is the maximum duration for the whole run.
	Timeout time.Duration

	// ContinueOnError keeps rebuilding the remaining contests after one
	// contest fails.
	ContinueOnError bool
}

// DefaultRebuildCachesConfig returns sensible defaults.
func DefaultRebuildCachesConfig() RebuildCachesConfig {
	return RebuildCachesConfig{
		PerContestTimeout: 10 * time.Minute,
		Timeout:           30 * time.Minute,
		ContinueOnError:   true,
	}
}

// RebuildRunStats summarizes a completed run.
type RebuildRunStats struct {
	RunID        string
	StartedAt    time.Time
	Duration     time.Duration
	Contests     int
	RowsRebuilt  int
	TeamsRebuilt int
	Failures     int
}

// NewRebuildCachesJob creates a new cache rebuild job.
func NewRebuildCachesJob(
	contestRepo contest.Repository,
	rebuildHandler *command.RebuildScoreCacheHandler,
	logger *slog.Logger,
	config RebuildCachesConfig,
) *RebuildCachesJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &RebuildCachesJob{
		contestRepo:    contestRepo,
		rebuildHandler: rebuildHandler,
		logger:         logger.With("job", "rebuild_caches"),
		config:         config,
	}
}

// Name implements the Job interface.
func (j *RebuildCachesJob) Name() string {
	return "rebuild_caches"
}

// Description implements the Job interface.
func (j *RebuildCachesJob) Description() string {
	return "Rebuilds score and rank caches for active contests from the submission history"
}

// Run implements the Job interface.
func (j *RebuildCachesJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	runID := uuid.New().String()
	start := time.Now()

	j.logger.Info("starting cache rebuild run", "run_id", runID)

	contests, err := j.contestRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active contests: %w", err)
	}

	stats := &RebuildRunStats{
		RunID:     runID,
		StartedAt: start,
		Contests:  len(contests),
	}

	for _, c := range contests {
		if ctx.Err() != nil {
			return fmt.Errorf("cache rebuild run cancelled: %w", ctx.Err())
		}

		if err := j.rebuildContest(ctx, c, runID, stats); err != nil {
			stats.Failures++
			j.logger.Error("contest rebuild failed",
				"run_id", runID,
				"contest_id", c.ID,
				"error", err,
			)
			if !j.config.ContinueOnError {
				stats.Duration = time.Since(start)
				j.lastRunStats.Store(stats)
				return fmt.Errorf("rebuild contest %d: %w", c.ID, err)
			}
		}
	}

	stats.Duration = time.Since(start)
	j.lastRunStats.Store(stats)

	j.logger.Info("cache rebuild run completed",
		"run_id", runID,
		"contests", stats.Contests,
		"rows_rebuilt", stats.RowsRebuilt,
		"teams_rebuilt", stats.TeamsRebuilt,
		"failures", stats.Failures,
		"duration", stats.Duration,
	)

	if stats.Failures > 0 && !j.config.ContinueOnError {
		return fmt.Errorf("cache rebuild run had %d failures", stats.Failures)
	}

	return nil
}

// LastRunStats returns statistics of the most recent completed run, or nil.
func (j *RebuildCachesJob) LastRunStats() *RebuildRunStats {
	if v := j.lastRunStats.Load(); v != nil {
		return v.(*RebuildRunStats)
	}
	return nil
}

// rebuildContest rebuilds one contest's caches under its own timeout.
func (j *RebuildCachesJob) rebuildContest(
	ctx context.Context,
	c *contest.Contest,
	runID string,
	stats *RebuildRunStats,
) error {
	if j.config.PerContestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.PerContestTimeout)
		defer cancel()
	}

	result, err := j.rebuildHandler.Handle(ctx, command.RebuildScoreCacheCommand{
		ContestID:     c.ID,
		CorrelationID: runID,
	})
	if err != nil {
		return err
	}

	stats.RowsRebuilt += result.RowsRebuilt
	stats.TeamsRebuilt += result.TeamsRebuilt

	j.logger.Info("contest caches rebuilt",
		"run_id", runID,
		"contest_id", c.ID,
		"rows_rebuilt", result.RowsRebuilt,
		"teams_rebuilt", result.TeamsRebuilt,
		"duration", result.Duration,
	)

	return nil
}
