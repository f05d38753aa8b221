// Package contest содержит доменную модель контеста CodeArena Scoring Engine.
// Контест определяет временные рамки соревнования: старт, финиш, заморозку
// и разморозку табло. Вся логика видимости результатов выводится из этих
// таймстемпов, ничего не хранится отдельно.
package contest

import (
	"errors"
	"fmt"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CONTEST ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Contest представляет одно соревнование.
// Freeze/Unfreeze/Deactivate опциональны: nil означает, что фаза не настроена.
type Contest struct {
	// ID - уникальный идентификатор контеста.
	ID shared.ContestID

	// Name - полное название контеста.
	Name string

	// ShortName - короткое имя для URL и логов.
	ShortName string

	// StartTime - момент старта контеста.
	StartTime time.Time

	// EndTime - момент окончания контеста. Сабмиты после него не учитываются.
	EndTime time.Time

	// FreezeTime - момент заморозки публичного табло (опционально).
	FreezeTime *time.Time

	// UnfreezeTime - момент разморозки публичного табло (опционально).
	UnfreezeTime *time.Time

	// DeactivateTime - момент, после которого контест скрыт (опционально).
	DeactivateTime *time.Time

	// Enabled - активен ли контест.
	Enabled bool
}

// NewContest создаёт контест с валидацией временных рамок.
func NewContest(id shared.ContestID, name, shortName string, start, end time.Time) (*Contest, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidContestID
	}
	if name == "" {
		return nil, ErrEmptyName
	}
	if !end.After(start) {
		return nil, ErrInvalidTimeOrder
	}

	return &Contest{
		ID:        id,
		Name:      name,
		ShortName: shortName,
		StartTime: start,
		EndTime:   end,
		Enabled:   true,
	}, nil
}

// WithFreeze задаёт время заморозки табло.
func (c *Contest) WithFreeze(freeze time.Time) (*Contest, error) {
	if freeze.Before(c.StartTime) || freeze.After(c.EndTime) {
		return nil, ErrFreezeOutOfRange
	}
	c.FreezeTime = &freeze
	return c, nil
}

// WithUnfreeze задаёт время разморозки табло.
func (c *Contest) WithUnfreeze(unfreeze time.Time) (*Contest, error) {
	if c.FreezeTime == nil {
		return nil, ErrUnfreezeWithoutFreeze
	}
	if unfreeze.Before(*c.FreezeTime) {
		return nil, ErrInvalidTimeOrder
	}
	c.UnfreezeTime = &unfreeze
	return c, nil
}

// ContestTime переводит абсолютный момент в контестное время:
// секунды, прошедшие от старта (может быть отрицательным до старта).
func (c *Contest) ContestTime(t time.Time) shared.ContestSeconds {
	return shared.ContestSeconds(t.Sub(c.StartTime).Seconds())
}

// IsAfterFreeze возвращает true, если момент t попадает в замороженную фазу:
// после FreezeTime и до UnfreezeTime (если она задана).
func (c *Contest) IsAfterFreeze(t time.Time) bool {
	if c.FreezeTime == nil {
		return false
	}
	if t.Before(*c.FreezeTime) {
		return false
	}
	if c.UnfreezeTime != nil && !t.Before(*c.UnfreezeTime) {
		return false
	}
	return true
}

// FreezeData строит снимок видимости табло на момент now.
func (c *Contest) FreezeData(now time.Time) FreezeData {
	return NewFreezeData(c, now)
}

// String возвращает строковое представление для логирования.
func (c *Contest) String() string {
	return fmt.Sprintf("Contest{ID: %d, ShortName: %s, Start: %s}",
		c.ID, c.ShortName, c.StartTime.Format(time.RFC3339))
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyName - контест без названия.
	ErrEmptyName = errors.New("contest name cannot be empty")

	// ErrInvalidTimeOrder - нарушен порядок start < end (или freeze < unfreeze).
	ErrInvalidTimeOrder = errors.New("contest times out of order")

	// ErrFreezeOutOfRange - заморозка вне интервала контеста.
	ErrFreezeOutOfRange = errors.New("freeze time must be within the contest")

	// ErrUnfreezeWithoutFreeze - разморозка без заморозки.
	ErrUnfreezeWithoutFreeze = errors.New("unfreeze time requires a freeze time")
)
