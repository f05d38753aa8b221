package problem

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// Repository определяет доступ к задачам контеста.
type Repository interface {
	// ListForContest возвращает задачи контеста, открытые для сабмитов,
	// упорядоченные по метке (ShortName).
	ListForContest(ctx context.Context, contestID shared.ContestID) ([]*ContestProblem, error)

	// GetByID возвращает привязку задачи к контесту.
	// Возвращает shared.ErrProblemNotFound, если привязки нет.
	GetByID(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID) (*ContestProblem, error)
}
