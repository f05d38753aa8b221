package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
)

// ══════════════════════════════════════════════════════════════════════════════
// JUDGING INGEST
// The judging pipeline runs outside this service and reports its results
// over a webhook. The payload is translated into a domain event and handed
// to the event bus; the recompute pipeline does the rest.
// ══════════════════════════════════════════════════════════════════════════════

// JudgingUpdate is the webhook payload reported by the judging pipeline.
type JudgingUpdate struct {
	// ContestID, TeamID, ProblemID identify the affected score cache row.
	ContestID int64 `json:"contest_id"`
	TeamID    int64 `json:"team_id"`
	ProblemID int64 `json:"problem_id"`

	// SubmissionID is the judged submission.
	SubmissionID int64 `json:"submission_id"`

	// Verdict is the judging outcome, empty while judging is in progress.
	Verdict string `json:"verdict"`

	// Invalidated marks the submission as withdrawn from scoring, for
	// example after a jury disqualification.
	Invalidated bool `json:"invalidated,omitempty"`
}

// Validate checks the payload identifies a real row.
func (u *JudgingUpdate) Validate() error {
	if u.ContestID <= 0 {
		return fmt.Errorf("contest_id is required")
	}
	if u.TeamID <= 0 {
		return fmt.Errorf("team_id is required")
	}
	if u.ProblemID <= 0 {
		return fmt.Errorf("problem_id is required")
	}
	if u.SubmissionID <= 0 {
		return fmt.Errorf("submission_id is required")
	}
	if !submission.Verdict(u.Verdict).IsValid() {
		return fmt.Errorf("unknown verdict %q", u.Verdict)
	}
	return nil
}

// IngestHandler consumes raw judging webhook payloads.
type IngestHandler interface {
	// HandleJudgingUpdate processes a judging pipeline payload.
	HandleJudgingUpdate(ctx context.Context, payload []byte) error
}

// JudgingIngest translates judging webhook payloads into domain events.
type JudgingIngest struct {
	mu           sync.RWMutex
	publisher    shared.EventPublisher
	errorHandler func(error)
}

// NewJudgingIngest creates a judging ingest publishing to the given bus.
func NewJudgingIngest(publisher shared.EventPublisher) *JudgingIngest {
	return &JudgingIngest{publisher: publisher}
}

// SetErrorHandler sets a callback for publish errors.
func (h *JudgingIngest) SetErrorHandler(handler func(error)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errorHandler = handler
}

// HandleJudgingUpdate implements IngestHandler.
func (h *JudgingIngest) HandleJudgingUpdate(ctx context.Context, payload []byte) error {
	var update JudgingUpdate
	if err := json.Unmarshal(payload, &update); err != nil {
		return shared.WrapError("ingest", "HandleJudgingUpdate", shared.ErrValidation, "parse judging update", err)
	}

	if err := update.Validate(); err != nil {
		return shared.WrapError("ingest", "HandleJudgingUpdate", shared.ErrValidation, "invalid judging update", err)
	}

	var event shared.Event
	if update.Invalidated {
		event = shared.NewSubmissionInvalidatedEvent(
			update.ContestID, update.TeamID, update.ProblemID, update.SubmissionID)
	} else {
		event = shared.NewJudgingResultChangedEvent(
			update.ContestID, update.TeamID, update.ProblemID, update.SubmissionID, update.Verdict)
	}

	if err := h.publisher.Publish(event); err != nil {
		h.handleError(err)
		return shared.WrapError("ingest", "HandleJudgingUpdate", shared.ErrExternalService, "publish judging event", err)
	}

	return nil
}

func (h *JudgingIngest) handleError(err error) {
	h.mu.RLock()
	handler := h.errorHandler
	h.mu.RUnlock()

	if handler != nil {
		handler(err)
	}
}
