// Package problem содержит доменную модель задачи в рамках контеста.
// Одна и та же задача может участвовать в разных контестах с разным
// количеством баллов, поэтому моделируется связка ContestProblem.
package problem

import (
	"errors"
	"fmt"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST PROBLEM
// ══════════════════════════════════════════════════════════════════════════════

// ContestProblem представляет задачу, привязанную к контесту.
type ContestProblem struct {
	// ProblemID - идентификатор задачи.
	ProblemID shared.ProblemID

	// ContestID - идентификатор контеста.
	ContestID shared.ContestID

	// ShortName - метка задачи на табло ("A", "B", ...).
	ShortName string

	// Name - полное название задачи.
	Name string

	// Points - количество баллов за решение.
	Points int

	// Color - цвет шарика задачи на табло.
	Color string

	// AllowSubmit - открыта ли задача для сабмитов. Закрытые задачи
	// не участвуют в подсчёте баллов.
	AllowSubmit bool
}

// NewContestProblem создаёт привязку задачи к контесту с валидацией.
func NewContestProblem(contestID shared.ContestID, problemID shared.ProblemID, shortName, name string, points int) (*ContestProblem, error) {
	if !contestID.IsValid() {
		return nil, shared.ErrInvalidContestID
	}
	if !problemID.IsValid() {
		return nil, ErrInvalidProblemID
	}
	if shortName == "" {
		return nil, ErrEmptyShortName
	}
	if points < 0 {
		return nil, shared.ErrInvalidPointValue
	}
	if points == 0 {
		points = DefaultPoints
	}

	return &ContestProblem{
		ContestID:   contestID,
		ProblemID:   problemID,
		ShortName:   shortName,
		Name:        name,
		Points:      points,
		AllowSubmit: true,
	}, nil
}

// DefaultPoints - баллы задачи, если контест не использует систему баллов.
const DefaultPoints = 1

// String возвращает строковое представление для логирования.
func (p *ContestProblem) String() string {
	return fmt.Sprintf("ContestProblem{Contest: %d, Problem: %d, ShortName: %s}",
		p.ContestID, p.ProblemID, p.ShortName)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrInvalidProblemID - невалидный идентификатор задачи.
	ErrInvalidProblemID = errors.New("invalid problem id")

	// ErrEmptyShortName - задача без метки.
	ErrEmptyShortName = errors.New("problem short name cannot be empty")
)
