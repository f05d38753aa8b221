// Package eventhandler содержит обработчики доменных событий.
// Обработчики связывают конвейер пересчёта с побочными эффектами:
// судейские события запускают пересчёт кеш-строк, а события пересчёта
// сбрасывают собранные табло в Redis.
package eventhandler

import (
	"context"
	"log/slog"
	"time"

	"github.com/codearena/scoring-engine/internal/application/query"
	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON SCOREBOARD CHANGED HANDLER
// Сбрасывает кешированные табло контеста после изменения score- или
// rank-кеша.
//
// Табло собирается из кеш-строк и кешируется в Redis целиком. Любое
// изменение строки делает собранное табло устаревшим, поэтому проще
// сбросить все варианты табло контеста, чем точечно их обновлять:
// следующий запрос соберёт табло заново.
//
// Сброс — это оптимизация свежести, а не корректности: у записей в Redis
// есть короткий TTL, и устаревшее табло в худшем случае живёт до его
// истечения. Поэтому ошибка сброса логируется, но не возвращается.
// ═══════════════════════════════════════════════════════════════════════════

// OnScoreboardChangedHandler сбрасывает кешированные табло контеста.
type OnScoreboardChangedHandler struct {
	// Cache собранных табло (интерфейс из application layer)
	scoreboardCache query.ScoreboardCache

	// Logger для структурированного логирования
	logger *slog.Logger

	// Configuration
	config ScoreboardChangedConfig
}

// ScoreboardChangedConfig содержит конфигурацию обработчика.
type ScoreboardChangedConfig struct {
	// InvalidateTimeout — ограничение на операцию сброса в Redis.
	InvalidateTimeout time.Duration
}

// DefaultScoreboardChangedConfig возвращает конфигурацию по умолчанию.
func DefaultScoreboardChangedConfig() ScoreboardChangedConfig {
	return ScoreboardChangedConfig{
		InvalidateTimeout: 2 * time.Second,
	}
}

// NewOnScoreboardChangedHandler создаёт новый обработчик изменений кеша.
func NewOnScoreboardChangedHandler(
	scoreboardCache query.ScoreboardCache,
	logger *slog.Logger,
	config ScoreboardChangedConfig,
) *OnScoreboardChangedHandler {
	if logger == nil {
		logger = slog.Default()
	}

	return &OnScoreboardChangedHandler{
		scoreboardCache: scoreboardCache,
		logger:          logger.With("handler", "on_scoreboard_changed"),
		config:          config,
	}
}

// Handle обрабатывает событие изменения кеша.
// Реализует интерфейс shared.EventHandler.
func (h *OnScoreboardChangedHandler) Handle(event shared.Event) error {
	if h.scoreboardCache == nil {
		return nil
	}

	contestID, ok := h.contestIDFor(event)
	if !ok {
		h.logger.Warn("received unsupported event",
			"event_type", event.EventType(),
		)
		return nil
	}

	ctx := context.Background()
	if h.config.InvalidateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.config.InvalidateTimeout)
		defer cancel()
	}

	if err := h.scoreboardCache.InvalidateContest(ctx, contestID); err != nil {
		// Не критично: TTL записи ограничивает время жизни устаревшего табло
		h.logger.Error("failed to invalidate scoreboard cache",
			"contest_id", contestID,
			"event_type", event.EventType(),
			"error", err,
		)
		return nil
	}

	h.logger.Debug("scoreboard cache invalidated",
		"contest_id", contestID,
		"event_type", event.EventType(),
	)

	return nil
}

// contestIDFor извлекает контест из поддерживаемых типов событий.
func (h *OnScoreboardChangedHandler) contestIDFor(event shared.Event) (shared.ContestID, bool) {
	switch e := event.(type) {
	case shared.ScoreRowUpdatedEvent:
		return shared.ContestID(e.ContestID), true
	case shared.RankRowUpdatedEvent:
		return shared.ContestID(e.ContestID), true
	case shared.FirstToSolveEvent:
		return shared.ContestID(e.ContestID), true
	case shared.CacheRebuiltEvent:
		return shared.ContestID(e.ContestID), true
	default:
		return 0, false
	}
}
