package scoring

import (
	"fmt"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// SCORE CACHE ROW
// ══════════════════════════════════════════════════════════════════════════════

// ScoreCell - агрегат одного варианта для пары (команда, задача).
type ScoreCell struct {
	// Attempts - количество осуждённых сабмитов, учтённых как попытки.
	Attempts int

	// Pending - количество сабмитов, ещё ждущих видимого вердикта.
	Pending int

	// SolveTime - контестное время принятого решения (0, если не решено).
	SolveTime shared.ContestSeconds

	// Correct - решена ли задача в этом варианте.
	Correct bool
}

// Solved возвращает true, если ячейка отмечена как решённая.
func (c ScoreCell) Solved() bool {
	return c.Correct
}

// ScoreRow - материализованная строка score cache: оба варианта для одного
// ключа (контест, команда, задача). Строка перезаписывается целиком при
// каждом пересчёте; частичных обновлений не бывает.
type ScoreRow struct {
	ContestID shared.ContestID
	TeamID    shared.TeamID
	ProblemID shared.ProblemID

	// Public - публичный вариант (с учётом заморозки).
	Public ScoreCell

	// Restricted - закрытый вариант (всегда актуален).
	Restricted ScoreCell

	// FirstToSolve - первой ли эта команда решила задачу в своём
	// sort-order классе. Имеет смысл только при Restricted.Correct.
	FirstToSolve bool
}

// Cell возвращает ячейку нужного варианта.
func (r *ScoreRow) Cell(v Variant) ScoreCell {
	if v == VariantRestricted {
		return r.Restricted
	}
	return r.Public
}

// SetCell записывает ячейку нужного варианта.
func (r *ScoreRow) SetCell(v Variant, c ScoreCell) {
	if v == VariantRestricted {
		r.Restricted = c
	} else {
		r.Public = c
	}
}

// CorrectFor возвращает true, если задача решена в данном варианте.
func (r *ScoreRow) CorrectFor(v Variant) bool {
	return r.Cell(v).Correct
}

// String возвращает строковое представление для логирования.
func (r *ScoreRow) String() string {
	return fmt.Sprintf("ScoreRow{C: %d, T: %d, P: %d, restricted: %d/%d correct=%t}",
		r.ContestID, r.TeamID, r.ProblemID,
		r.Restricted.Attempts, r.Restricted.Pending, r.Restricted.Correct)
}
