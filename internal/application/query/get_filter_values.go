package query

import (
	"context"
	"sort"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET FILTER VALUES QUERY
// Доступные значения фильтра табло: аффилиации, страны и категории,
// видимые данному зрителю. К алгоритму ранжирования отношения не имеет,
// чистый справочный запрос для UI.
// ══════════════════════════════════════════════════════════════════════════════

// GetFilterValuesQuery содержит параметры запроса значений фильтра.
type GetFilterValuesQuery struct {
	// ContestID - контест.
	ContestID shared.ContestID

	// Jury - запрос от жюри: включает скрытые категории.
	Jury bool
}

// Validate проверяет корректность параметров запроса.
func (q *GetFilterValuesQuery) Validate() error {
	if !q.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	return nil
}

// AffiliationDTO - аффилиация в списке значений фильтра.
type AffiliationDTO struct {
	// ID - идентификатор аффилиации.
	ID int64 `json:"id"`

	// Name - название организации.
	Name string `json:"name"`

	// Country - код страны (пустой, если нет).
	Country string `json:"country,omitempty"`
}

// GetFilterValuesResult содержит доступные значения фильтра.
type GetFilterValuesResult struct {
	// Affiliations - аффилиации команд контеста.
	Affiliations []AffiliationDTO `json:"affiliations"`

	// Countries - коды стран, отсортированные по алфавиту.
	Countries []string `json:"countries"`

	// Categories - категории, видимые зрителю.
	Categories []CategoryDTO `json:"categories"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetFilterValuesHandler обрабатывает запросы значений фильтра.
type GetFilterValuesHandler struct {
	teamRepo team.Repository
}

// NewGetFilterValuesHandler создаёт новый обработчик.
func NewGetFilterValuesHandler(teamRepo team.Repository) *GetFilterValuesHandler {
	return &GetFilterValuesHandler{teamRepo: teamRepo}
}

// Handle выполняет запрос значений фильтра.
func (h *GetFilterValuesHandler) Handle(ctx context.Context, query GetFilterValuesQuery) (*GetFilterValuesResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetFilterValues", shared.ErrValidation, "invalid query", err)
	}

	affiliations, err := h.teamRepo.ListAffiliations(ctx, query.ContestID, query.Jury)
	if err != nil {
		return nil, shared.WrapError("query", "GetFilterValues", shared.ErrExternalService, "failed to load affiliations", err)
	}

	categories, err := h.teamRepo.ListCategories(ctx, query.Jury)
	if err != nil {
		return nil, shared.WrapError("query", "GetFilterValues", shared.ErrExternalService, "failed to load categories", err)
	}

	result := &GetFilterValuesResult{
		Affiliations: make([]AffiliationDTO, 0, len(affiliations)),
		Categories:   make([]CategoryDTO, 0, len(categories)),
		GeneratedAt:  time.Now().UTC(),
	}

	countrySet := make(map[string]struct{})
	for _, a := range affiliations {
		result.Affiliations = append(result.Affiliations, AffiliationDTO{
			ID:      a.ID,
			Name:    a.Name,
			Country: a.Country.String(),
		})
		if !a.Country.IsEmpty() {
			countrySet[a.Country.String()] = struct{}{}
		}
	}

	result.Countries = make([]string, 0, len(countrySet))
	for c := range countrySet {
		result.Countries = append(result.Countries, c)
	}
	sort.Strings(result.Countries)

	for _, c := range categories {
		result.Categories = append(result.Categories, CategoryDTO{
			ID:        c.ID,
			Name:      c.Name,
			SortOrder: c.SortOrder.Int(),
			Color:     c.Color,
		})
	}

	return result, nil
}
