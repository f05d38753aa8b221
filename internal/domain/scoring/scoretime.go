package scoring

import "github.com/codearena/scoring-engine/internal/domain/shared"

// ══════════════════════════════════════════════════════════════════════════════
// SCORE TIME & PENALTY
// ══════════════════════════════════════════════════════════════════════════════
// Единственное место, где контестное время превращается в очки. Та же
// математика применяется и при пересчёте rank cache, и при отображении,
// иначе табло и рейтинг разойдутся.

// ScoreTime переводит контестное время в единицы подсчёта: целые минуты
// (по умолчанию) или целые секунды, всегда с округлением вниз.
func ScoreTime(t shared.ContestSeconds, inSeconds bool) int64 {
	sec := int64(t.Float64())
	if t.Float64() < 0 {
		// Отрицательное контестное время (сабмит до старта) не встречается
		// в подсчёте, но floor обязан быть честным.
		if float64(sec) > t.Float64() {
			sec--
		}
	}
	if inSeconds {
		return sec
	}
	return sec / 60
}

// Penalty возвращает штрафное время за неудачные попытки: решённая задача
// стоит (attempts-1) штрафов, нерешённая - ничего. В секундном режиме
// штраф конвертируется из минут.
func Penalty(solved bool, attempts, penaltyTime int, inSeconds bool) int64 {
	if !solved || attempts <= 1 {
		return 0
	}
	p := int64(attempts-1) * int64(penaltyTime)
	if inSeconds {
		p *= 60
	}
	return p
}
