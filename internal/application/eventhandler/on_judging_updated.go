// Package eventhandler содержит обработчики доменных событий.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/codearena/scoring-engine/internal/application/command"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/pkg/retry"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON JUDGING UPDATED HANDLER
// Обрабатывает события судейского конвейера и запускает пересчёт строки
// score-кеша.
//
// Два типа событий сходятся в одну операцию:
// 1. judging.result_changed — появился или изменился вердикт
// 2. judging.submission_invalidated — посылка аннулирована жюри
//
// В обоих случаях строка (контест, команда, задача) пересчитывается с нуля
// по истории посылок, поэтому обработчику не важно, что именно изменилось.
//
// Пересчёт сериализуется advisory-блокировкой с ограниченным ожиданием.
// Конкурирующие события по одной строке дают ErrLockContention — это штатная
// ситуация, обработчик повторяет попытку с экспоненциальной задержкой.
// ═══════════════════════════════════════════════════════════════════════════

// OnJudgingUpdatedHandler обрабатывает события судейского конвейера.
type OnJudgingUpdatedHandler struct {
	// Command handler пересчёта строки score-кеша
	scoreHandler *command.CalculateScoreRowHandler

	// Logger для структурированного логирования
	logger *slog.Logger

	// Configuration
	config JudgingUpdatedConfig

	// Retrier для повторов при конкуренции за блокировку строки
	retrier *retry.Retrier
}

// JudgingUpdatedConfig содержит конфигурацию обработчика.
type JudgingUpdatedConfig struct {
	// MaxAttempts — сколько раз пытаться пересчитать строку при
	// конкуренции за блокировку (включая первую попытку).
	MaxAttempts int

	// InitialBackoff — задержка перед первым повтором.
	InitialBackoff time.Duration

	// MaxBackoff — максимальная задержка между повторами.
	MaxBackoff time.Duration

	// HandleTimeout — ограничение на всю обработку события, включая
	// повторы. Без него застрявшая блокировка задержит всю очередь.
	HandleTimeout time.Duration
}

// DefaultJudgingUpdatedConfig возвращает конфигурацию по умолчанию.
func DefaultJudgingUpdatedConfig() JudgingUpdatedConfig {
	return JudgingUpdatedConfig{
		MaxAttempts:    5,
		InitialBackoff: 200 * time.Millisecond,
		MaxBackoff:     5 * time.Second,
		HandleTimeout:  30 * time.Second,
	}
}

// NewOnJudgingUpdatedHandler создаёт новый обработчик судейских событий.
func NewOnJudgingUpdatedHandler(
	scoreHandler *command.CalculateScoreRowHandler,
	logger *slog.Logger,
	config JudgingUpdatedConfig,
) *OnJudgingUpdatedHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if config.MaxAttempts <= 0 {
		config.MaxAttempts = DefaultJudgingUpdatedConfig().MaxAttempts
	}

	return &OnJudgingUpdatedHandler{
		scoreHandler: scoreHandler,
		logger:       logger.With("handler", "on_judging_updated"),
		config:       config,
		retrier: retry.New(
			retry.WithMaxAttempts(config.MaxAttempts),
			retry.WithInitialDelay(config.InitialBackoff),
			retry.WithMaxDelay(config.MaxBackoff),
			retry.WithRetryIf(shared.IsLockContention),
		),
	}
}

// Handle обрабатывает событие судейского конвейера.
// Реализует интерфейс shared.EventHandler.
func (h *OnJudgingUpdatedHandler) Handle(event shared.Event) error {
	ctx := context.Background()
	if h.config.HandleTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.HandleTimeout)
		defer cancel()
	}

	// Type assertion для получения ключа строки
	cmd, ok := h.commandFor(event)
	if !ok {
		h.logger.Warn("received unsupported event",
			"event_type", event.EventType(),
		)
		return nil
	}

	h.logger.Info("processing judging event",
		"event_type", event.EventType(),
		"contest_id", cmd.ContestID,
		"team_id", cmd.TeamID,
		"problem_id", cmd.ProblemID,
	)

	// Пересчитываем строку. ErrLockContention повторяем: параллельное
	// событие по той же строке держит блокировку доли секунды.
	var result *command.CalculateScoreRowResult
	err := h.retrier.Do(ctx, func(ctx context.Context) error {
		var calcErr error
		result, calcErr = h.scoreHandler.Handle(ctx, cmd)
		return calcErr
	})
	if err != nil {
		h.logger.Error("failed to recalculate score row",
			"contest_id", cmd.ContestID,
			"team_id", cmd.TeamID,
			"problem_id", cmd.ProblemID,
			"error", err,
		)
		return fmt.Errorf("recalculate score row: %w", err)
	}

	h.logger.Info("judging event processed successfully",
		"contest_id", cmd.ContestID,
		"team_id", cmd.TeamID,
		"problem_id", cmd.ProblemID,
		"became_correct", result.BecameCorrect,
		"rank_updated", result.RankUpdated,
	)

	return nil
}

// commandFor строит команду пересчёта из поддерживаемых типов событий.
func (h *OnJudgingUpdatedHandler) commandFor(event shared.Event) (command.CalculateScoreRowCommand, bool) {
	switch e := event.(type) {
	case shared.JudgingResultChangedEvent:
		return command.CalculateScoreRowCommand{
			ContestID:     shared.ContestID(e.ContestID),
			TeamID:        shared.TeamID(e.TeamID),
			ProblemID:     shared.ProblemID(e.ProblemID),
			UpdateRank:    true,
			CorrelationID: e.CorrelationID,
		}, true
	case shared.SubmissionInvalidatedEvent:
		return command.CalculateScoreRowCommand{
			ContestID:     shared.ContestID(e.ContestID),
			TeamID:        shared.TeamID(e.TeamID),
			ProblemID:     shared.ProblemID(e.ProblemID),
			UpdateRank:    true,
			CorrelationID: e.CorrelationID,
		}, true
	default:
		return command.CalculateScoreRowCommand{}, false
	}
}
