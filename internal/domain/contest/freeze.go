package contest

import "time"

// ══════════════════════════════════════════════════════════════════════════════
// FREEZE DATA
// ══════════════════════════════════════════════════════════════════════════════

// FreezeData - чистый снимок фазы контеста на конкретный момент времени.
// Вычисляется из таймстемпов контеста, никогда не хранится. Все решения о
// том, какой вариант табло показывать (публичный замороженный или жюри),
// принимаются через его предикаты.
type FreezeData struct {
	now            time.Time
	startTime      time.Time
	endTime        time.Time
	freezeTime     *time.Time
	unfreezeTime   *time.Time
	deactivateTime *time.Time
}

// NewFreezeData строит FreezeData для контеста на момент now.
func NewFreezeData(c *Contest, now time.Time) FreezeData {
	return FreezeData{
		now:            now,
		startTime:      c.StartTime,
		endTime:        c.EndTime,
		freezeTime:     c.FreezeTime,
		unfreezeTime:   c.UnfreezeTime,
		deactivateTime: c.DeactivateTime,
	}
}

// Started возвращает true, если контест уже стартовал.
// До старта табло не существует для публики.
func (f FreezeData) Started() bool {
	return !f.now.Before(f.startTime)
}

// Running возвращает true, если контест идёт прямо сейчас.
func (f FreezeData) Running() bool {
	return f.Started() && f.now.Before(f.endTime)
}

// Stopped возвращает true, если контест закончился.
func (f FreezeData) Stopped() bool {
	return !f.now.Before(f.endTime)
}

// ShowFrozen возвращает true, если публичное табло сейчас заморожено:
// момент заморозки пройден, разморозка ещё не наступила.
func (f FreezeData) ShowFrozen() bool {
	if f.freezeTime == nil {
		return false
	}
	if f.now.Before(*f.freezeTime) {
		return false
	}
	if f.unfreezeTime != nil && !f.now.Before(*f.unfreezeTime) {
		return false
	}
	return true
}

// ShowFinal возвращает true, если для данного зрителя можно показывать
// финальные результаты. Жюри видит финал сразу после окончания контеста;
// публика - только когда табло разморожено.
func (f FreezeData) ShowFinal(jury bool) bool {
	if !f.Stopped() {
		return false
	}
	if jury {
		return true
	}
	return !f.ShowFrozen()
}

// Active возвращает true, пока контест не деактивирован.
func (f FreezeData) Active() bool {
	return f.deactivateTime == nil || f.now.Before(*f.deactivateTime)
}
