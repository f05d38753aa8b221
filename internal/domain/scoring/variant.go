// Package scoring содержит ядро подсчёта очков CodeArena Scoring Engine:
// строки score cache и rank cache, математику штрафов, тайбрейкер и модель
// табло. Всё табло строится из одной истории сабмитов в двух вариантах:
// публичном (подчиняется заморозке) и закрытом (всегда актуален, для жюри).
package scoring

// ══════════════════════════════════════════════════════════════════════════════
// VARIANT
// ══════════════════════════════════════════════════════════════════════════════

// Variant - вариант табло. Ровно два значения: публичный и закрытый.
// Общий алгоритм параметризуется вариантом вместо дублирования кода.
type Variant int

const (
	// VariantPublic - публичное табло: после заморозки новые результаты
	// видны только как pending.
	VariantPublic Variant = iota

	// VariantRestricted - закрытое табло жюри: всегда актуальные данные.
	VariantRestricted
)

// Variants возвращает оба варианта для итерации.
func Variants() [2]Variant {
	return [2]Variant{VariantPublic, VariantRestricted}
}

// IsValid проверяет, что значение из известного множества.
func (v Variant) IsValid() bool {
	return v == VariantPublic || v == VariantRestricted
}

// String возвращает строковое представление для логирования.
func (v Variant) String() string {
	switch v {
	case VariantPublic:
		return "public"
	case VariantRestricted:
		return "restricted"
	default:
		return "unknown"
	}
}

// SelectVariant выбирает вариант для зрителя: жюри и любой зритель после
// разморозки видят закрытый вариант.
func SelectVariant(jury, showFinal bool) Variant {
	if jury || showFinal {
		return VariantRestricted
	}
	return VariantPublic
}
