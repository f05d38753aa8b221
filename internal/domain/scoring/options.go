package scoring

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// OPTIONS
// ══════════════════════════════════════════════════════════════════════════════

// Options - снимок конфигурации подсчёта. Загружается один раз на входе
// в операцию и передаётся явно: никаких чтений конфигурации из глубины
// алгоритма.
type Options struct {
	// PenaltyTime - штраф в минутах за каждую неудачную попытку
	// до принятого решения.
	PenaltyTime int

	// ScoreInSeconds - считать время в секундах вместо минут.
	ScoreInSeconds bool

	// CompilePenalty - учитывать ли сабмиты с ошибкой компиляции
	// как попытки.
	CompilePenalty bool

	// VerificationRequired - вердикт виден только после ручного
	// подтверждения судьёй.
	VerificationRequired bool

	// ShowPending - показывать ли колонку pending на публичном табло.
	ShowPending bool
}

// DefaultOptions возвращает значения по умолчанию.
func DefaultOptions() Options {
	return Options{
		PenaltyTime:          20,
		ScoreInSeconds:       false,
		CompilePenalty:       true,
		VerificationRequired: false,
		ShowPending:          true,
	}
}

// OptionsProvider загружает снимок конфигурации подсчёта для контеста.
type OptionsProvider interface {
	// OptionsForContest возвращает опции подсчёта данного контеста.
	OptionsForContest(ctx context.Context, contestID shared.ContestID) (Options, error)
}
