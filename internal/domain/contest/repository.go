package contest

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// Repository определяет доступ к метаданным контестов.
// Реализации находятся в infrastructure/persistence.
type Repository interface {
	// GetByID возвращает контест по идентификатору.
	// Возвращает shared.ErrContestNotFound, если контест не существует.
	GetByID(ctx context.Context, id shared.ContestID) (*Contest, error)

	// ListActive возвращает все активные (не деактивированные) контесты.
	ListActive(ctx context.Context) ([]*Contest, error)
}
