// Package submission содержит доменную модель сабмитов и их вердиктов.
// Сабмиты принадлежат внешнему judging-пайплайну: scoring-engine их только
// читает. У сабмита в каждый момент не больше одного валидного judging,
// остальные инвалидированы пересудейством.
package submission

import (
	"errors"
	"fmt"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VERDICT
// ══════════════════════════════════════════════════════════════════════════════

// Verdict - результат судейства сабмита.
type Verdict string

const (
	// VerdictPending - вердикта ещё нет (судейство не завершено).
	VerdictPending Verdict = ""
	// VerdictCorrect - решение принято.
	VerdictCorrect Verdict = "correct"
	// VerdictCompilerError - ошибка компиляции.
	VerdictCompilerError Verdict = "compiler-error"
	// VerdictWrongAnswer - неверный ответ.
	VerdictWrongAnswer Verdict = "wrong-answer"
	// VerdictTimeLimit - превышен лимит времени.
	VerdictTimeLimit Verdict = "timelimit"
	// VerdictRunError - ошибка выполнения.
	VerdictRunError Verdict = "run-error"
	// VerdictNoOutput - решение ничего не вывело.
	VerdictNoOutput Verdict = "no-output"
	// VerdictMemoryLimit - превышен лимит памяти.
	VerdictMemoryLimit Verdict = "memory-limit"
)

// IsCorrect возвращает true для принятого решения.
func (v Verdict) IsCorrect() bool {
	return v == VerdictCorrect
}

// IsEmpty возвращает true, если вердикт ещё не вынесен.
func (v Verdict) IsEmpty() bool {
	return v == VerdictPending
}

// IsValid проверяет, что вердикт из известного множества.
func (v Verdict) IsValid() bool {
	switch v {
	case VerdictPending, VerdictCorrect, VerdictCompilerError, VerdictWrongAnswer,
		VerdictTimeLimit, VerdictRunError, VerdictNoOutput, VerdictMemoryLimit:
		return true
	}
	return false
}

// ══════════════════════════════════════════════════════════════════════════════
// JUDGING
// ══════════════════════════════════════════════════════════════════════════════

// Judging представляет одно судейство сабмита.
type Judging struct {
	// ID - уникальный идентификатор судейства.
	ID int64

	// SubmissionID - сабмит, к которому относится судейство.
	SubmissionID shared.SubmissionID

	// Verdict - результат (пустой, пока судейство идёт).
	Verdict Verdict

	// Verified - подтверждено ли судьёй вручную.
	Verified bool

	// Valid - актуально ли судейство (false после пересудейства).
	Valid bool

	// EndTime - момент окончания судейства (nil, пока идёт).
	EndTime *time.Time
}

// Finished возвращает true, если судейство завершено.
func (j *Judging) Finished() bool {
	return j.EndTime != nil && !j.Verdict.IsEmpty()
}

// ══════════════════════════════════════════════════════════════════════════════
// SUBMISSION ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Submission представляет один сабмит. Неизменяем после создания, кроме
// флага Valid (инвалидированные сабмиты исключаются из подсчёта целиком).
type Submission struct {
	// ID - уникальный идентификатор сабмита.
	ID shared.SubmissionID

	// ContestID, TeamID, ProblemID - ключ строки score cache.
	ContestID shared.ContestID
	TeamID    shared.TeamID
	ProblemID shared.ProblemID

	// SubmitTime - абсолютный момент отправки.
	SubmitTime time.Time

	// ContestTime - контестное время отправки (секунды от старта).
	ContestTime shared.ContestSeconds

	// Valid - учитывается ли сабмит в подсчёте.
	Valid bool

	// AfterFreeze - отправлен ли сабмит после заморозки табло.
	AfterFreeze bool

	// Judgehost - хост, судящий сабмит (пустой = ещё в очереди).
	Judgehost string

	// Judging - актуальное судейство (nil, если судейства ещё нет).
	Judging *Judging
}

// Pending возвращает true, если сабмит ещё не имеет видимого вердикта:
// судейства нет, вердикт пуст, или судейство не подтверждено при
// включённой обязательной верификации.
func (s *Submission) Pending(verificationRequired bool) bool {
	if s.Judging == nil {
		return true
	}
	if s.Judging.Verdict.IsEmpty() {
		return true
	}
	if verificationRequired && !s.Judging.Verified {
		return true
	}
	return false
}

// Verdict возвращает вердикт актуального судейства.
func (s *Submission) Verdict() Verdict {
	if s.Judging == nil {
		return VerdictPending
	}
	return s.Judging.Verdict
}

// Queued возвращает true, пока сабмиту не назначен judgehost.
func (s *Submission) Queued() bool {
	return s.Judgehost == ""
}

// String возвращает строковое представление для логирования.
func (s *Submission) String() string {
	return fmt.Sprintf("Submission{ID: %d, Team: %d, Problem: %d, T: %s}",
		s.ID, s.TeamID, s.ProblemID, s.ContestTime)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrNoJudging - у сабмита нет актуального судейства.
	ErrNoJudging = errors.New("submission has no active judging")
)
