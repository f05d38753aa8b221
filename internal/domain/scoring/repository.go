package scoring

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORIES & LOCKER
// ══════════════════════════════════════════════════════════════════════════════

// ScoreRepository определяет доступ к таблице score cache.
// Кеш долговечный, но перестраиваемый: truncate + повторный пересчёт всех
// строк обязан дать идентичное содержимое.
type ScoreRepository interface {
	// Upsert заменяет строку целиком (replace-семантика по ключу
	// контест+команда+задача).
	Upsert(ctx context.Context, row *ScoreRow) error

	// Get возвращает строку по ключу.
	// Возвращает shared.ErrScoreRowNotFound, если строки нет.
	Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (*ScoreRow, error)

	// ListForTeam возвращает все строки команды в контесте.
	ListForTeam(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) ([]*ScoreRow, error)

	// ListForContest возвращает все строки контеста (для сборки табло).
	ListForContest(ctx context.Context, contestID shared.ContestID) ([]*ScoreRow, error)

	// SolveTimesForTeams возвращает времена решений указанных команд
	// в нужном варианте: материал для тайбрейкера.
	SolveTimesForTeams(ctx context.Context, contestID shared.ContestID, teamIDs []shared.TeamID, variant Variant) (map[shared.TeamID][]shared.ContestSeconds, error)

	// Truncate удаляет все строки контеста (перед rebuild).
	Truncate(ctx context.Context, contestID shared.ContestID) error
}

// RankRepository определяет доступ к таблице rank cache.
type RankRepository interface {
	// Upsert заменяет строку целиком (replace-семантика по ключу
	// контест+команда).
	Upsert(ctx context.Context, row *RankRow) error

	// Get возвращает строку по ключу.
	// Возвращает shared.ErrRankRowNotFound, если строки нет.
	Get(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (*RankRow, error)

	// ListForContest возвращает все строки контеста.
	ListForContest(ctx context.Context, contestID shared.ContestID) ([]*RankRow, error)

	// CountBetter считает команды того же sort-order класса со строго
	// лучшим счётом в данном варианте: больше баллов, либо равные баллы
	// и меньше времени. Учитываются только включённые команды.
	CountBetter(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant Variant, score RankScore) (int, error)

	// ListTied возвращает команды того же sort-order класса с полностью
	// равным счётом в данном варианте (включая саму команду).
	ListTied(ctx context.Context, contestID shared.ContestID, sortOrder shared.SortOrder, variant Variant, score RankScore) ([]shared.TeamID, error)

	// Truncate удаляет все строки контеста (перед rebuild).
	Truncate(ctx context.Context, contestID shared.ContestID) error
}

// RowLocker сериализует конкурентные пересчёты одной и той же строки.
// Ожидание ограничено: по таймауту возвращается ошибка с видом
// shared.ErrLockContention, и пересчёт не выполняется. Блокировки берутся
// вне транзакций; ошибка освобождения фатальна (shared.ErrLockRelease).
type RowLocker interface {
	// LockScoreRow берёт блокировку строки score cache.
	LockScoreRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID, problemID shared.ProblemID) (Unlocker, error)

	// LockRankRow берёт блокировку строки rank cache.
	LockRankRow(ctx context.Context, contestID shared.ContestID, teamID shared.TeamID) (Unlocker, error)
}

// Unlocker освобождает ранее взятую блокировку.
type Unlocker interface {
	// Unlock освобождает блокировку. Ошибка означает серьёзный сбой
	// целостности и должна всплыть наружу.
	Unlock(ctx context.Context) error
}
