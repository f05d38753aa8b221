package submission

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ScoringQuery задаёт выборку сабмитов для пересчёта одной строки score cache.
type ScoringQuery struct {
	ContestID shared.ContestID
	TeamID    shared.TeamID
	ProblemID shared.ProblemID

	// ExcludeCompilerError - исключить сабмиты, чей единственный вердикт -
	// ошибка компиляции (режим compile_penalty = false).
	ExcludeCompilerError bool
}

// ScoringKey - пара (команда, задача), по которой есть валидные сабмиты.
// Используется при полном перестроении кеша.
type ScoringKey struct {
	TeamID    shared.TeamID
	ProblemID shared.ProblemID
}

// Repository определяет доступ к сабмитам для подсчёта очков.
type Repository interface {
	// ListForScoring возвращает валидные сабмиты по ключу (contest, team,
	// problem), отправленные до конца контеста, по возрастанию времени
	// отправки. К каждому присоединено актуальное судейство, если есть.
	ListForScoring(ctx context.Context, q ScoringQuery) ([]*Submission, error)

	// CountEarlierPending считает сабмиты команд того же sort-order
	// класса по той же задаче, отправленные строго раньше (с точностью до
	// 4 знаков), которые всё ещё валидны и либо ждут судейства (нет
	// judgehost), либо имеют актуальное судейство с пустым или правильным
	// вердиктом. Ноль означает, что команда первой решила задачу.
	CountEarlierPending(ctx context.Context, contestID shared.ContestID, problemID shared.ProblemID, sortOrder shared.SortOrder, before shared.ContestSeconds) (int, error)

	// ListScoringKeys возвращает все пары (команда, задача) контеста,
	// по которым есть валидные сабмиты. Используется при rebuild.
	ListScoringKeys(ctx context.Context, contestID shared.ContestID) ([]ScoringKey, error)
}
