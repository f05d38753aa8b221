package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// REBUILD SCORE CACHE COMMAND
// Truncates both cache tables for a contest and replays the score row
// recompute over every (team, problem) pair with valid submissions, then
// recomputes every affected team's rank row once. The caches are durable
// but disposable: a rebuild must reproduce exactly what incremental updates
// would have produced.
// ══════════════════════════════════════════════════════════════════════════════

// RebuildScoreCacheCommand contains the contest to rebuild.
type RebuildScoreCacheCommand struct {
	// ContestID is the contest whose caches are rebuilt.
	ContestID shared.ContestID

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RebuildScoreCacheCommand) Validate() error {
	if !c.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	return nil
}

// RebuildScoreCacheResult contains rebuild statistics.
type RebuildScoreCacheResult struct {
	// RunID identifies this rebuild run in logs and events.
	RunID string

	// RowsRebuilt is the number of score rows recomputed.
	RowsRebuilt int

	// TeamsRebuilt is the number of rank rows recomputed.
	TeamsRebuilt int

	// Duration is how long the rebuild took.
	Duration time.Duration

	// Events contains domain events generated.
	Events []shared.Event
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// RebuildScoreCacheHandler handles the RebuildScoreCacheCommand.
type RebuildScoreCacheHandler struct {
	submissionRepo submission.Repository
	scoreRepo      scoring.ScoreRepository
	rankRepo       scoring.RankRepository
	scoreHandler   *CalculateScoreRowHandler
	rankHandler    *UpdateRankCacheHandler
	eventPublisher shared.EventPublisher
}

// NewRebuildScoreCacheHandler creates a new RebuildScoreCacheHandler.
func NewRebuildScoreCacheHandler(
	submissionRepo submission.Repository,
	scoreRepo scoring.ScoreRepository,
	rankRepo scoring.RankRepository,
	scoreHandler *CalculateScoreRowHandler,
	rankHandler *UpdateRankCacheHandler,
	eventPublisher shared.EventPublisher,
) *RebuildScoreCacheHandler {
	return &RebuildScoreCacheHandler{
		submissionRepo: submissionRepo,
		scoreRepo:      scoreRepo,
		rankRepo:       rankRepo,
		scoreHandler:   scoreHandler,
		rankHandler:    rankHandler,
		eventPublisher: eventPublisher,
	}
}

// Handle executes the full cache rebuild.
func (h *RebuildScoreCacheHandler) Handle(ctx context.Context, cmd RebuildScoreCacheCommand) (*RebuildScoreCacheResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, shared.WrapError("scoring", "RebuildScoreCache", shared.ErrValidation, "invalid command", err)
	}

	runID := uuid.New().String()
	start := time.Now()

	keys, err := h.submissionRepo.ListScoringKeys(ctx, cmd.ContestID)
	if err != nil {
		return nil, shared.WrapError("scoring", "RebuildScoreCache", shared.ErrExternalService, "failed to list scoring keys", err)
	}

	if err := h.scoreRepo.Truncate(ctx, cmd.ContestID); err != nil {
		return nil, shared.WrapError("scoring", "RebuildScoreCache", shared.ErrExternalService, "failed to truncate score cache", err)
	}
	if err := h.rankRepo.Truncate(ctx, cmd.ContestID); err != nil {
		return nil, shared.WrapError("scoring", "RebuildScoreCache", shared.ErrExternalService, "failed to truncate rank cache", err)
	}

	// Replay score rows first; rank rollups run once per team afterwards,
	// so each team's aggregate sees its complete set of rebuilt rows.
	teams := make(map[shared.TeamID]struct{})
	for _, key := range keys {
		if _, err := h.scoreHandler.Handle(ctx, CalculateScoreRowCommand{
			ContestID:     cmd.ContestID,
			TeamID:        key.TeamID,
			ProblemID:     key.ProblemID,
			UpdateRank:    false,
			CorrelationID: cmd.CorrelationID,
		}); err != nil {
			return nil, err
		}
		teams[key.TeamID] = struct{}{}
	}

	for teamID := range teams {
		if _, err := h.rankHandler.Handle(ctx, UpdateRankCacheCommand{
			ContestID:     cmd.ContestID,
			TeamID:        teamID,
			CorrelationID: cmd.CorrelationID,
		}); err != nil {
			return nil, err
		}
	}

	result := &RebuildScoreCacheResult{
		RunID:        runID,
		RowsRebuilt:  len(keys),
		TeamsRebuilt: len(teams),
		Duration:     time.Since(start),
		Events:       make([]shared.Event, 0, 1),
	}

	event := shared.NewCacheRebuiltEvent(cmd.ContestID.Int64(), runID, result.RowsRebuilt, result.Duration)
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
