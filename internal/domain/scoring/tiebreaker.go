package scoring

import (
	"sort"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// TIEBREAKER
// ══════════════════════════════════════════════════════════════════════════════

// TeamScore - материал для тайбрейкера: зачтённые времена решённых задач
// одной команды. Используется только при полном равенстве баллов и
// штрафного времени.
type TeamScore struct {
	TeamID shared.TeamID

	// SolveTimes - зачтённые времена (ScoreTime) всех решённых задач,
	// в произвольном порядке.
	SolveTimes []int64
}

// NewTeamScore создаёт TeamScore.
func NewTeamScore(teamID shared.TeamID) *TeamScore {
	return &TeamScore{TeamID: teamID}
}

// AddSolveTime добавляет время решения.
func (t *TeamScore) AddSolveTime(scored int64) {
	t.SolveTimes = append(t.SolveTimes, scored)
}

// CompareTeamScores определяет порядок двух команд с одинаковым счётом.
// Правило: времена решений сортируются по убыванию и сравниваются
// полексикографически; у кого на очередной позиции время меньше (последнее
// решение раньше), тот выше. Если одна последовательность - префикс другой,
// команды считаются равными. Возвращает отрицательное значение, если a выше
// b, положительное - если ниже, ноль при равенстве.
func CompareTeamScores(a, b *TeamScore) int {
	at := descending(a.SolveTimes)
	bt := descending(b.SolveTimes)

	n := len(at)
	if len(bt) < n {
		n = len(bt)
	}
	for i := 0; i < n; i++ {
		if at[i] != bt[i] {
			if at[i] < bt[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// descending возвращает отсортированную по убыванию копию.
func descending(times []int64) []int64 {
	out := make([]int64, len(times))
	copy(out, times)
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}
