// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"errors"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// CALCULATE SCORE ROW COMMAND
// Recomputes one score cache row from the raw submission history for a
// (contest, team, problem) key. Invoked by the judging pipeline whenever a
// verdict appears, changes, or is invalidated.
// ══════════════════════════════════════════════════════════════════════════════

// CalculateScoreRowCommand contains the key of the row to recompute.
type CalculateScoreRowCommand struct {
	// ContestID is the contest the row belongs to.
	ContestID shared.ContestID

	// TeamID is the team the row belongs to.
	TeamID shared.TeamID

	// ProblemID is the problem the row belongs to.
	ProblemID shared.ProblemID

	// UpdateRank triggers a rank cache recompute when the recomputed row
	// contributes to the team's standing. Disabled during a full rebuild,
	// where ranks are recomputed once per team at the end.
	UpdateRank bool

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c CalculateScoreRowCommand) Validate() error {
	if !c.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	if !c.TeamID.IsValid() {
		return shared.ErrInvalidTeamID
	}
	if !c.ProblemID.IsValid() {
		return errors.New("calculate_score_row: problem_id is required")
	}
	return nil
}

// CalculateScoreRowResult contains the recomputed row.
type CalculateScoreRowResult struct {
	// Row is the row as it was upserted.
	Row *scoring.ScoreRow

	// BecameCorrect indicates that a variant's correctness flag flipped
	// from false to true in this recompute.
	BecameCorrect bool

	// RankUpdated indicates that the rank cache was recomputed as a
	// follow-up.
	RankUpdated bool

	// Events contains domain events generated.
	Events []shared.Event

	// CalculatedAt is when the recompute ran.
	CalculatedAt time.Time
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// CalculateScoreRowHandler handles the CalculateScoreRowCommand.
//
// The recompute is serialized per row by an advisory lock with a bounded
// wait. It must never run inside an ambient transaction: the upsert has to
// become visible to concurrent readers immediately, and holding the lock
// across an outer commit risks deadlock.
type CalculateScoreRowHandler struct {
	teamRepo       team.Repository
	submissionRepo submission.Repository
	scoreRepo      scoring.ScoreRepository
	locker         scoring.RowLocker
	options        scoring.OptionsProvider
	rankHandler    *UpdateRankCacheHandler
	eventPublisher shared.EventPublisher
}

// NewCalculateScoreRowHandler creates a new CalculateScoreRowHandler.
func NewCalculateScoreRowHandler(
	teamRepo team.Repository,
	submissionRepo submission.Repository,
	scoreRepo scoring.ScoreRepository,
	locker scoring.RowLocker,
	options scoring.OptionsProvider,
	rankHandler *UpdateRankCacheHandler,
	eventPublisher shared.EventPublisher,
) *CalculateScoreRowHandler {
	return &CalculateScoreRowHandler{
		teamRepo:       teamRepo,
		submissionRepo: submissionRepo,
		scoreRepo:      scoreRepo,
		locker:         locker,
		options:        options,
		rankHandler:    rankHandler,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the score row recompute.
func (h *CalculateScoreRowHandler) Handle(ctx context.Context, cmd CalculateScoreRowCommand) (*CalculateScoreRowResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrValidation, "invalid command", err)
	}

	opts, err := h.options.OptionsForContest(ctx, cmd.ContestID)
	if err != nil {
		return nil, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrExternalService, "failed to load scoring options", err)
	}

	// The sort-order class is needed for first-to-solve detection. A team
	// without a category is a data error: the scoreboard cannot be correct
	// with partial metadata.
	tm, err := h.teamRepo.GetByID(ctx, cmd.TeamID)
	if err != nil {
		return nil, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrNotFound, "failed to load team", err)
	}
	sortOrder, err := tm.SortOrder()
	if err != nil {
		return nil, err
	}

	unlock, err := h.locker.LockScoreRow(ctx, cmd.ContestID, cmd.TeamID, cmd.ProblemID)
	if err != nil {
		return nil, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrLockContention, "score row lock wait timed out", err)
	}

	row, becameCorrect, rankAffected, newFirstToSolve, calcErr := h.recomputeLocked(ctx, cmd, sortOrder, opts)

	// A release failure is a consistency bug and trumps any recompute error.
	if uerr := unlock.Unlock(ctx); uerr != nil {
		return nil, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrLockRelease, "score row lock was not released", uerr)
	}
	if calcErr != nil {
		return nil, calcErr
	}

	result := &CalculateScoreRowResult{
		Row:           row,
		BecameCorrect: becameCorrect,
		CalculatedAt:  time.Now().UTC(),
		Events:        make([]shared.Event, 0, 2),
	}

	rowEvent := shared.NewScoreRowUpdatedEvent(
		cmd.ContestID.Int64(), cmd.TeamID.Int64(), cmd.ProblemID.Int64(), becameCorrect)
	if cmd.CorrelationID != "" {
		rowEvent.BaseEvent = rowEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
	}
	result.Events = append(result.Events, rowEvent)

	if newFirstToSolve {
		ftsEvent := shared.NewFirstToSolveEvent(
			cmd.ContestID.Int64(), cmd.TeamID.Int64(), cmd.ProblemID.Int64(),
			row.Restricted.SolveTime.Float64())
		if cmd.CorrelationID != "" {
			ftsEvent.BaseEvent = ftsEvent.BaseEvent.WithCorrelationID(cmd.CorrelationID)
		}
		result.Events = append(result.Events, ftsEvent)
	}

	// The rank recompute runs after the row lock is released: it takes its
	// own lock and nesting the two would serialize unrelated rows.
	if rankAffected && cmd.UpdateRank && h.rankHandler != nil {
		if _, err := h.rankHandler.Handle(ctx, UpdateRankCacheCommand{
			ContestID:     cmd.ContestID,
			TeamID:        cmd.TeamID,
			CorrelationID: cmd.CorrelationID,
		}); err != nil {
			return nil, err
		}
		result.RankUpdated = true
	}

	if h.eventPublisher != nil {
		for _, event := range result.Events {
			_ = h.eventPublisher.Publish(event)
		}
	}

	return result, nil
}

// recomputeLocked performs the actual recompute while the row lock is held.
// It returns the upserted row, whether a variant became correct, whether the
// row is relevant to the team's rank, and whether the first-to-solve flag was
// newly set.
func (h *CalculateScoreRowHandler) recomputeLocked(
	ctx context.Context,
	cmd CalculateScoreRowCommand,
	sortOrder shared.SortOrder,
	opts scoring.Options,
) (*scoring.ScoreRow, bool, bool, bool, error) {
	prev, err := h.scoreRepo.Get(ctx, cmd.ContestID, cmd.TeamID, cmd.ProblemID)
	if err != nil {
		if !shared.IsNotFound(err) {
			return nil, false, false, false, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrExternalService, "failed to load previous row", err)
		}
		prev = nil
	}

	subs, err := h.submissionRepo.ListForScoring(ctx, submission.ScoringQuery{
		ContestID:            cmd.ContestID,
		TeamID:               cmd.TeamID,
		ProblemID:            cmd.ProblemID,
		ExcludeCompilerError: !opts.CompilePenalty,
	})
	if err != nil {
		return nil, false, false, false, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrExternalService, "failed to load submissions", err)
	}

	public, restricted := walkSubmissions(subs, opts)

	row := &scoring.ScoreRow{
		ContestID:  cmd.ContestID,
		TeamID:     cmd.TeamID,
		ProblemID:  cmd.ProblemID,
		Public:     public,
		Restricted: restricted,
	}

	if restricted.Correct {
		earlier, err := h.submissionRepo.CountEarlierPending(
			ctx, cmd.ContestID, cmd.ProblemID, sortOrder, restricted.SolveTime)
		if err != nil {
			return nil, false, false, false, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrExternalService, "first-to-solve query failed", err)
		}
		row.FirstToSolve = earlier == 0
	}

	if err := h.scoreRepo.Upsert(ctx, row); err != nil {
		return nil, false, false, false, shared.WrapError("scoring", "CalculateScoreRow", shared.ErrExternalService, "failed to upsert score row", err)
	}

	becameCorrect := (row.Public.Correct && (prev == nil || !prev.Public.Correct)) ||
		(row.Restricted.Correct && (prev == nil || !prev.Restricted.Correct))
	// The rank row is derived from correct score rows. A recompute can change
	// the attempt count, and with it the penalty, while correctness stays
	// true, so any row that is or was correct in either variant refreshes
	// the rank.
	rankAffected := row.Public.Correct || row.Restricted.Correct ||
		(prev != nil && (prev.Public.Correct || prev.Restricted.Correct))
	newFirstToSolve := row.FirstToSolve && (prev == nil || !prev.FirstToSolve)

	return row, becameCorrect, rankAffected, newFirstToSolve, nil
}

// walkSubmissions folds a team's submission history for one problem into the
// two variant cells. Submissions arrive ordered by submit time; the first
// correct one is authoritative and stops the walk.
func walkSubmissions(subs []*submission.Submission, opts scoring.Options) (public, restricted scoring.ScoreCell) {
	for _, sub := range subs {
		// No verdict visible yet: pending for both variants.
		if sub.Pending(opts.VerificationRequired) {
			public.Pending++
			restricted.Pending++
			continue
		}

		restricted.Attempts++

		// The public variant freezes at the freeze time: post-freeze
		// submissions show up as pending, never as judged.
		if sub.AfterFreeze {
			if opts.ShowPending {
				public.Pending++
			}
		} else {
			public.Attempts++
		}

		if sub.Verdict().IsCorrect() {
			restricted.Correct = true
			restricted.SolveTime = sub.ContestTime
			if !sub.AfterFreeze {
				public.Correct = true
				public.SolveTime = sub.ContestTime
			}
			break
		}
	}
	return public, restricted
}
