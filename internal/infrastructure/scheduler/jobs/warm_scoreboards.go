package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codearena/scoring-engine/internal/application/query"
	"github.com/codearena/scoring-engine/internal/domain/contest"
)

// ══════════════════════════════════════════════════════════════════════════════
// WARM SCOREBOARDS JOB
// ══════════════════════════════════════════════════════════════════════════════

// WarmScoreboardsJob pre-assembles the public scoreboard of every active
// contest so the first spectator after a cache invalidation gets a cached
// board instead of paying the assembly cost. Running it at an interval
// shorter than the scoreboard TTL keeps the cache effectively always warm
// during a contest.
type WarmScoreboardsJob struct {
	// Dependencies
	contestRepo       contest.Repository
	scoreboardHandler *query.GetScoreboardHandler
	logger            *slog.Logger

	// Configuration
	config WarmScoreboardsConfig
}

// WarmScoreboardsConfig contains configuration for the warming job.
type WarmScoreboardsConfig struct {
	// PerContestTimeout bounds a single scoreboard assembly.
	PerContestTimeout time.Duration

	// Timeout is the maximum duration for the whole run.
	Timeout time.Duration
}

// DefaultWarmScoreboardsConfig returns sensible defaults.
func DefaultWarmScoreboardsConfig() WarmScoreboardsConfig {
	return WarmScoreboardsConfig{
		PerContestTimeout: 15 * time.Second,
		Timeout:           2 * time.Minute,
	}
}

// NewWarmScoreboardsJob creates a new scoreboard warming job.
func NewWarmScoreboardsJob(
	contestRepo contest.Repository,
	scoreboardHandler *query.GetScoreboardHandler,
	logger *slog.Logger,
	config WarmScoreboardsConfig,
) *WarmScoreboardsJob {
	if logger == nil {
		logger = slog.Default()
	}

	return &WarmScoreboardsJob{
		contestRepo:       contestRepo,
		scoreboardHandler: scoreboardHandler,
		logger:            logger.With("job", "warm_scoreboards"),
		config:            config,
	}
}

// Name implements the Job interface.
func (j *WarmScoreboardsJob) Name() string {
	return "warm_scoreboards"
}

// Description implements the Job interface.
func (j *WarmScoreboardsJob) Description() string {
	return "Pre-assembles public scoreboards of active contests into the cache"
}

// Run implements the Job interface.
func (j *WarmScoreboardsJob) Run(ctx context.Context) error {
	if j.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.Timeout)
		defer cancel()
	}

	contests, err := j.contestRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active contests: %w", err)
	}

	var warmed, skipped, failed int
	for _, c := range contests {
		if ctx.Err() != nil {
			return fmt.Errorf("scoreboard warming cancelled: %w", ctx.Err())
		}

		available, err := j.warmContest(ctx, c)
		switch {
		case err != nil:
			failed++
			j.logger.Error("scoreboard warming failed",
				"contest_id", c.ID,
				"error", err,
			)
		case !available:
			// Contest has not started yet, nothing to warm
			skipped++
		default:
			warmed++
		}
	}

	j.logger.Info("scoreboard warming completed",
		"contests", len(contests),
		"warmed", warmed,
		"skipped", skipped,
		"failed", failed,
	)

	return nil
}

// warmContest assembles the public board once; the query handler stores it
// in the cache as a side effect.
func (j *WarmScoreboardsJob) warmContest(ctx context.Context, c *contest.Contest) (bool, error) {
	if j.config.PerContestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, j.config.PerContestTimeout)
		defer cancel()
	}

	result, err := j.scoreboardHandler.Handle(ctx, query.GetScoreboardQuery{
		ContestID: c.ID,
	})
	if err != nil {
		return false, err
	}

	return result.Available, nil
}
