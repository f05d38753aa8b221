package scoring

import (
	"fmt"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// RANK CACHE ROW
// ══════════════════════════════════════════════════════════════════════════════

// RankScore - агрегат одного варианта для команды: баллы и штрафное время.
type RankScore struct {
	// Points - сумма баллов решённых задач.
	Points int

	// TotalTime - ручной штраф команды плюс сумма зачтённых времён
	// решений и штрафов за попытки.
	TotalTime int64
}

// BetterThan возвращает true, если счёт строго лучше другого:
// больше баллов, либо равные баллы и меньше времени.
func (s RankScore) BetterThan(other RankScore) bool {
	if s.Points != other.Points {
		return s.Points > other.Points
	}
	return s.TotalTime < other.TotalTime
}

// Equal возвращает true, если баллы и время совпадают.
func (s RankScore) Equal(other RankScore) bool {
	return s.Points == other.Points && s.TotalTime == other.TotalTime
}

// RankRow - материализованная строка rank cache: оба варианта для одной
// пары (контест, команда). Чистая детерминированная функция от строк
// score cache команды: пересчёт с нуля всегда даёт тот же результат.
type RankRow struct {
	ContestID shared.ContestID
	TeamID    shared.TeamID

	// Public - публичный вариант.
	Public RankScore

	// Restricted - закрытый вариант.
	Restricted RankScore
}

// Score возвращает счёт нужного варианта.
func (r *RankRow) Score(v Variant) RankScore {
	if v == VariantRestricted {
		return r.Restricted
	}
	return r.Public
}

// SetScore записывает счёт нужного варианта.
func (r *RankRow) SetScore(v Variant, s RankScore) {
	if v == VariantRestricted {
		r.Restricted = s
	} else {
		r.Public = s
	}
}

// String возвращает строковое представление для логирования.
func (r *RankRow) String() string {
	return fmt.Sprintf("RankRow{C: %d, T: %d, restricted: %d pts / %d}",
		r.ContestID, r.TeamID, r.Restricted.Points, r.Restricted.TotalTime)
}
