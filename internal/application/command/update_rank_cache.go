package command

import (
	"context"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// UPDATE RANK CACHE COMMAND
// Rolls a team's score cache rows up into its rank cache row: total points
// and total penalized time, per variant. A pure deterministic function of
// the current score rows, so recomputing is always safe.
// ══════════════════════════════════════════════════════════════════════════════

// UpdateRankCacheCommand contains the key of the rank row to recompute.
type UpdateRankCacheCommand struct {
	// ContestID is the contest the row belongs to.
	ContestID shared.ContestID

	// TeamID is the team the row belongs to.
	TeamID shared.TeamID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c UpdateRankCacheCommand) Validate() error {
	if !c.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	if !c.TeamID.IsValid() {
		return shared.ErrInvalidTeamID
	}
	return nil
}

// UpdateRankCacheResult contains the recomputed row.
type UpdateRankCacheResult struct {
	// Row is the row as it was upserted.
	Row *scoring.RankRow

	// Events contains domain events generated.
	Events []shared.Event

	// UpdatedAt is when the recompute ran.
	UpdatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// UpdateRankCacheHandler handles the UpdateRankCacheCommand.
//
// The rollup reads score rows without locking them. A concurrent score row
// recompute may leave this aggregate momentarily stale; the follow-up rank
// recompute that recompute triggers fixes it. Same non-transactional rule
// as the score row recompute.
type UpdateRankCacheHandler struct {
	teamRepo       team.Repository
	problemRepo    problem.Repository
	scoreRepo      scoring.ScoreRepository
	rankRepo       scoring.RankRepository
	locker         scoring.RowLocker
	options        scoring.OptionsProvider
	eventPublisher shared.EventPublisher
}

// NewUpdateRankCacheHandler creates a new UpdateRankCacheHandler.
func NewUpdateRankCacheHandler(
	teamRepo team.Repository,
	problemRepo problem.Repository,
	scoreRepo scoring.ScoreRepository,
	rankRepo scoring.RankRepository,
	locker scoring.RowLocker,
	options scoring.OptionsProvider,
	eventPublisher shared.EventPublisher,
) *UpdateRankCacheHandler {
	return &UpdateRankCacheHandler{
		teamRepo:       teamRepo,
		problemRepo:    problemRepo,
		scoreRepo:      scoreRepo,
		rankRepo:       rankRepo,
		locker:         locker,
		options:        options,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the rank cache recompute.
func (h *UpdateRankCacheHandler) Handle(ctx context.Context, cmd UpdateRankCacheCommand) (*UpdateRankCacheResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrValidation, "invalid command", err)
	}

	opts, err := h.options.OptionsForContest(ctx, cmd.ContestID)
	if err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrExternalService, "failed to load scoring options", err)
	}

	tm, err := h.teamRepo.GetByID(ctx, cmd.TeamID)
	if err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrNotFound, "failed to load team", err)
	}

	// Only problems still open for submission contribute points.
	problems, err := h.problemRepo.ListForContest(ctx, cmd.ContestID)
	if err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrExternalService, "failed to load contest problems", err)
	}
	pointsByProblem := make(map[shared.ProblemID]int, len(problems))
	for _, p := range problems {
		pointsByProblem[p.ProblemID] = p.Points
	}

	unlock, err := h.locker.LockRankRow(ctx, cmd.ContestID, cmd.TeamID)
	if err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrLockContention, "rank row lock wait timed out", err)
	}

	row, calcErr := h.rollupLocked(ctx, cmd, tm, pointsByProblem, opts)

	if uerr := unlock.Unlock(ctx); uerr != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrLockRelease, "rank row lock was not released", uerr)
	}
	if calcErr != nil {
		return nil, calcErr
	}

	result := &UpdateRankCacheResult{
		Row:       row,
		UpdatedAt: time.Now().UTC(),
		Events:    make([]shared.Event, 0, 1),
	}

	event := shared.NewRankRowUpdatedEvent(
		cmd.ContestID.Int64(), cmd.TeamID.Int64(),
		row.Restricted.Points, row.Restricted.TotalTime)
	if cmd.CorrelationID != "" {
		event.BaseEvent = event.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, event)

	if h.eventPublisher != nil {
		for _, evt := range result.Events {
			_ = h.eventPublisher.Publish(evt)
		}
	}

	return result, nil
}

// rollupLocked performs the rollup while the rank row lock is held.
func (h *UpdateRankCacheHandler) rollupLocked(
	ctx context.Context,
	cmd UpdateRankCacheCommand,
	tm *team.Team,
	pointsByProblem map[shared.ProblemID]int,
	opts scoring.Options,
) (*scoring.RankRow, error) {
	rows, err := h.scoreRepo.ListForTeam(ctx, cmd.ContestID, cmd.TeamID)
	if err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrExternalService, "failed to load score rows", err)
	}

	rank := &scoring.RankRow{
		ContestID: cmd.ContestID,
		TeamID:    cmd.TeamID,
	}

	for _, variant := range scoring.Variants() {
		score := scoring.RankScore{TotalTime: tm.PenaltyOffset}
		for _, row := range rows {
			cell := row.Cell(variant)
			if !cell.Correct {
				continue
			}
			points, open := pointsByProblem[row.ProblemID]
			if !open {
				continue
			}
			score.Points += points
			score.TotalTime += scoring.ScoreTime(cell.SolveTime, opts.ScoreInSeconds) +
				scoring.Penalty(true, cell.Attempts, opts.PenaltyTime, opts.ScoreInSeconds)
		}
		rank.SetScore(variant, score)
	}

	if err := h.rankRepo.Upsert(ctx, rank); err != nil {
		return nil, shared.WrapError("scoring", "UpdateRankCache", shared.ErrExternalService, "failed to upsert rank row", err)
	}

	return rank, nil
}
