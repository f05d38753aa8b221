package scoring

import "github.com/codearena/scoring-engine/internal/domain/shared"

// ══════════════════════════════════════════════════════════════════════════════
// FILTER
// ══════════════════════════════════════════════════════════════════════════════

// Filter ограничивает набор команд на отрендеренном табло. Чистые данные:
// на алгоритм подсчёта фильтр не влияет, только на выборку команд.
type Filter struct {
	affiliations []int64
	countries    []shared.Country
	categories   []int64
	teams        []shared.TeamID
}

// NewFilter создаёт фильтр. Пустые срезы означают "без ограничения".
func NewFilter(affiliations []int64, countries []shared.Country, categories []int64, teams []shared.TeamID) Filter {
	return Filter{
		affiliations: affiliations,
		countries:    countries,
		categories:   categories,
		teams:        teams,
	}
}

// EmptyFilter возвращает фильтр без ограничений.
func EmptyFilter() Filter {
	return Filter{}
}

// Affiliations возвращает фильтр по аффилиациям.
func (f Filter) Affiliations() []int64 {
	return f.affiliations
}

// Countries возвращает фильтр по странам.
func (f Filter) Countries() []shared.Country {
	return f.countries
}

// Categories возвращает фильтр по категориям.
func (f Filter) Categories() []int64 {
	return f.categories
}

// Teams возвращает явный список команд.
func (f Filter) Teams() []shared.TeamID {
	return f.teams
}

// IsEmpty возвращает true, если фильтр ничего не ограничивает.
func (f Filter) IsEmpty() bool {
	return len(f.affiliations) == 0 && len(f.countries) == 0 &&
		len(f.categories) == 0 && len(f.teams) == 0
}
