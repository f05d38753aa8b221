package scoring

import (
	"errors"
	"sort"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// STANDINGS
// ══════════════════════════════════════════════════════════════════════════════

// Standing - позиция одной команды на табло: счёт, ячейки по задачам и
// вычисленный ранг внутри её sort-order класса.
type Standing struct {
	// TeamID - команда.
	TeamID shared.TeamID

	// SortOrder - класс ранжирования команды.
	SortOrder shared.SortOrder

	// Score - счёт выбранного варианта из rank cache.
	Score RankScore

	// Cells - ячейки по задачам (только задачи с сабмитами).
	Cells map[shared.ProblemID]ScoreCell

	// FirstToSolve - задачи, решённые этой командой первой в классе.
	FirstToSolve map[shared.ProblemID]bool

	// Rank - позиция внутри класса, начиная с 1. Команды с полностью
	// равным счётом (включая тайбрейкер) делят ранг.
	Rank int
}

// NewStanding создаёт позицию команды.
func NewStanding(teamID shared.TeamID, sortOrder shared.SortOrder, score RankScore) *Standing {
	return &Standing{
		TeamID:       teamID,
		SortOrder:    sortOrder,
		Score:        score,
		Cells:        make(map[shared.ProblemID]ScoreCell),
		FirstToSolve: make(map[shared.ProblemID]bool),
	}
}

// SetCell записывает ячейку задачи.
func (s *Standing) SetCell(problemID shared.ProblemID, cell ScoreCell, firstToSolve bool) {
	s.Cells[problemID] = cell
	if firstToSolve {
		s.FirstToSolve[problemID] = true
	}
}

// teamScore собирает материал тайбрейкера из решённых ячеек.
func (s *Standing) teamScore(inSeconds bool) *TeamScore {
	ts := NewTeamScore(s.TeamID)
	for _, cell := range s.Cells {
		if cell.Correct {
			ts.AddSolveTime(ScoreTime(cell.SolveTime, inSeconds))
		}
	}
	return ts
}

// Standings - отсортированный список позиций одного варианта табло.
// Классы ранжирования независимы: ранги считаются внутри класса, на табло
// классы идут подряд по возрастанию sort order.
type Standings struct {
	variant   Variant
	inSeconds bool
	entries   []*Standing
	byTeam    map[shared.TeamID]*Standing
}

// NewStandings создаёт пустой список позиций.
func NewStandings(variant Variant, inSeconds bool) *Standings {
	return &Standings{
		variant:   variant,
		inSeconds: inSeconds,
		byTeam:    make(map[shared.TeamID]*Standing),
	}
}

// Variant возвращает вариант табло.
func (s *Standings) Variant() Variant {
	return s.variant
}

// Add добавляет позицию команды.
func (s *Standings) Add(st *Standing) error {
	if st == nil {
		return ErrNilStanding
	}
	if _, exists := s.byTeam[st.TeamID]; exists {
		return ErrDuplicateTeam
	}
	s.entries = append(s.entries, st)
	s.byTeam[st.TeamID] = st
	return nil
}

// GetByTeam возвращает позицию команды.
func (s *Standings) GetByTeam(teamID shared.TeamID) *Standing {
	return s.byTeam[teamID]
}

// All возвращает все позиции в отсортированном порядке.
func (s *Standings) All() []*Standing {
	out := make([]*Standing, len(s.entries))
	copy(out, s.entries)
	return out
}

// Count возвращает количество позиций.
func (s *Standings) Count() int {
	return len(s.entries)
}

// Sort упорядочивает позиции и присваивает ранги. Порядок внутри класса:
// баллы по убыванию, штрафное время по возрастанию, тайбрейкер, затем
// идентификатор команды для стабильности отображения.
func (s *Standings) Sort() {
	scores := make(map[shared.TeamID]*TeamScore, len(s.entries))
	for _, e := range s.entries {
		scores[e.TeamID] = e.teamScore(s.inSeconds)
	}

	sort.Slice(s.entries, func(i, j int) bool {
		a, b := s.entries[i], s.entries[j]
		if a.SortOrder != b.SortOrder {
			return a.SortOrder < b.SortOrder
		}
		if !a.Score.Equal(b.Score) {
			return a.Score.BetterThan(b.Score)
		}
		if cmp := CompareTeamScores(scores[a.TeamID], scores[b.TeamID]); cmp != 0 {
			return cmp < 0
		}
		return a.TeamID < b.TeamID
	})

	// Ранги внутри класса; полный паритет (счёт + тайбрейкер) делит ранг.
	pos := 0
	for i, e := range s.entries {
		if i > 0 && s.entries[i-1].SortOrder == e.SortOrder {
			pos++
			prev := s.entries[i-1]
			if prev.Score.Equal(e.Score) && CompareTeamScores(scores[prev.TeamID], scores[e.TeamID]) == 0 {
				e.Rank = prev.Rank
				continue
			}
			e.Rank = pos + 1
			continue
		}
		pos = 0
		e.Rank = 1
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNilStanding - попытка добавить nil позицию.
	ErrNilStanding = errors.New("cannot add nil standing")

	// ErrDuplicateTeam - команда уже есть в списке позиций.
	ErrDuplicateTeam = errors.New("team already exists in standings")
)
