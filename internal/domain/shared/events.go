// Package shared contains common domain types, errors, and events that are
// used across all domain packages.
package shared

import (
	"encoding/json"
	"strconv"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven recompute pipeline.
// Each event represents something significant that happened in the domain.
const (
	// Judging events (produced by the external judging pipeline)
	EventJudgingResultChanged  EventType = "judging.result_changed"
	EventSubmissionInvalidated EventType = "judging.submission_invalidated"

	// Scoring events (produced by the cache recompute commands)
	EventScoreRowUpdated EventType = "scoring.score_row_updated"
	EventRankRowUpdated  EventType = "scoring.rank_row_updated"
	EventFirstToSolve    EventType = "scoring.first_to_solve"
	EventCacheRebuilt    EventType = "scoring.cache_rebuilt"

	// Contest events
	EventContestFrozen   EventType = "contest.frozen"
	EventContestUnfrozen EventType = "contest.unfrozen"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Judging Events
// ═══════════════════════════════════════════════════════════════════════════

// JudgingResultChangedEvent is emitted by the judging pipeline whenever a
// judging verdict appears, changes, or is invalidated by a rejudging. It is
// the trigger for a score row recompute.
type JudgingResultChangedEvent struct {
	BaseEvent
	ContestID    int64  `json:"contest_id"`
	TeamID       int64  `json:"team_id"`
	ProblemID    int64  `json:"problem_id"`
	SubmissionID int64  `json:"submission_id"`
	Verdict      string `json:"verdict"`
}

// Payload implements Event interface.
func (e JudgingResultChangedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":    e.ContestID,
		"team_id":       e.TeamID,
		"problem_id":    e.ProblemID,
		"submission_id": e.SubmissionID,
		"verdict":       e.Verdict,
	}
}

// NewJudgingResultChangedEvent creates a new JudgingResultChangedEvent.
func NewJudgingResultChangedEvent(contestID, teamID, problemID, submissionID int64, verdict string) JudgingResultChangedEvent {
	return JudgingResultChangedEvent{
		BaseEvent:    NewBaseEvent(EventJudgingResultChanged, strconv.FormatInt(submissionID, 10)),
		ContestID:    contestID,
		TeamID:       teamID,
		ProblemID:    problemID,
		SubmissionID: submissionID,
		Verdict:      verdict,
	}
}

// SubmissionInvalidatedEvent is emitted when a submission is marked invalid,
// for example after a jury disqualification. The affected score row has to be
// recomputed without the submission.
type SubmissionInvalidatedEvent struct {
	BaseEvent
	ContestID    int64 `json:"contest_id"`
	TeamID       int64 `json:"team_id"`
	ProblemID    int64 `json:"problem_id"`
	SubmissionID int64 `json:"submission_id"`
}

// Payload implements Event interface.
func (e SubmissionInvalidatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":    e.ContestID,
		"team_id":       e.TeamID,
		"problem_id":    e.ProblemID,
		"submission_id": e.SubmissionID,
	}
}

// NewSubmissionInvalidatedEvent creates a new SubmissionInvalidatedEvent.
func NewSubmissionInvalidatedEvent(contestID, teamID, problemID, submissionID int64) SubmissionInvalidatedEvent {
	return SubmissionInvalidatedEvent{
		BaseEvent:    NewBaseEvent(EventSubmissionInvalidated, strconv.FormatInt(submissionID, 10)),
		ContestID:    contestID,
		TeamID:       teamID,
		ProblemID:    problemID,
		SubmissionID: submissionID,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Scoring Events
// ═══════════════════════════════════════════════════════════════════════════

// ScoreRowUpdatedEvent is emitted after a score cache row recompute.
type ScoreRowUpdatedEvent struct {
	BaseEvent
	ContestID     int64 `json:"contest_id"`
	TeamID        int64 `json:"team_id"`
	ProblemID     int64 `json:"problem_id"`
	BecameCorrect bool  `json:"became_correct"`
}

// Payload implements Event interface.
func (e ScoreRowUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":     e.ContestID,
		"team_id":        e.TeamID,
		"problem_id":     e.ProblemID,
		"became_correct": e.BecameCorrect,
	}
}

// NewScoreRowUpdatedEvent creates a new ScoreRowUpdatedEvent.
func NewScoreRowUpdatedEvent(contestID, teamID, problemID int64, becameCorrect bool) ScoreRowUpdatedEvent {
	return ScoreRowUpdatedEvent{
		BaseEvent:     NewBaseEvent(EventScoreRowUpdated, strconv.FormatInt(contestID, 10)),
		ContestID:     contestID,
		TeamID:        teamID,
		ProblemID:     problemID,
		BecameCorrect: becameCorrect,
	}
}

// RankRowUpdatedEvent is emitted after a rank cache row recompute. Consumers
// use it to invalidate rendered scoreboard caches.
type RankRowUpdatedEvent struct {
	BaseEvent
	ContestID int64 `json:"contest_id"`
	TeamID    int64 `json:"team_id"`
	Points    int   `json:"points"`
	TotalTime int64 `json:"total_time"`
}

// Payload implements Event interface.
func (e RankRowUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id": e.ContestID,
		"team_id":    e.TeamID,
		"points":     e.Points,
		"total_time": e.TotalTime,
	}
}

// NewRankRowUpdatedEvent creates a new RankRowUpdatedEvent.
func NewRankRowUpdatedEvent(contestID, teamID int64, points int, totalTime int64) RankRowUpdatedEvent {
	return RankRowUpdatedEvent{
		BaseEvent: NewBaseEvent(EventRankRowUpdated, strconv.FormatInt(contestID, 10)),
		ContestID: contestID,
		TeamID:    teamID,
		Points:    points,
		TotalTime: totalTime,
	}
}

// FirstToSolveEvent is emitted when a team is the first in its sort-order
// class to solve a problem.
type FirstToSolveEvent struct {
	BaseEvent
	ContestID int64   `json:"contest_id"`
	TeamID    int64   `json:"team_id"`
	ProblemID int64   `json:"problem_id"`
	SolveTime float64 `json:"solve_time"`
}

// Payload implements Event interface.
func (e FirstToSolveEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id": e.ContestID,
		"team_id":    e.TeamID,
		"problem_id": e.ProblemID,
		"solve_time": e.SolveTime,
	}
}

// NewFirstToSolveEvent creates a new FirstToSolveEvent.
func NewFirstToSolveEvent(contestID, teamID, problemID int64, solveTime float64) FirstToSolveEvent {
	return FirstToSolveEvent{
		BaseEvent: NewBaseEvent(EventFirstToSolve, strconv.FormatInt(contestID, 10)),
		ContestID: contestID,
		TeamID:    teamID,
		ProblemID: problemID,
		SolveTime: solveTime,
	}
}

// CacheRebuiltEvent is emitted after a full truncate-and-replay rebuild.
type CacheRebuiltEvent struct {
	BaseEvent
	ContestID   int64         `json:"contest_id"`
	RunID       string        `json:"run_id"`
	RowsRebuilt int           `json:"rows_rebuilt"`
	Duration    time.Duration `json:"duration"`
}

// Payload implements Event interface.
func (e CacheRebuiltEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"contest_id":   e.ContestID,
		"run_id":       e.RunID,
		"rows_rebuilt": e.RowsRebuilt,
		"duration":     e.Duration.String(),
	}
}

// NewCacheRebuiltEvent creates a new CacheRebuiltEvent.
func NewCacheRebuiltEvent(contestID int64, runID string, rowsRebuilt int, duration time.Duration) CacheRebuiltEvent {
	return CacheRebuiltEvent{
		BaseEvent:   NewBaseEvent(EventCacheRebuilt, strconv.FormatInt(contestID, 10)),
		ContestID:   contestID,
		RunID:       runID,
		RowsRebuilt: rowsRebuilt,
		Duration:    duration,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}
