package team

import (
	"context"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ListOptions задаёт параметры выборки команд для табло.
type ListOptions struct {
	// Jury - выборка для жюри: включает скрытые категории.
	Jury bool

	// AffiliationIDs - фильтр по аффилиациям (пусто = все).
	AffiliationIDs []int64

	// CategoryIDs - фильтр по категориям (пусто = все).
	CategoryIDs []int64

	// Countries - фильтр по странам (пусто = все).
	Countries []shared.Country

	// TeamIDs - явный список команд (пусто = все).
	TeamIDs []shared.TeamID
}

// Repository определяет доступ к командам, категориям и аффилиациям.
type Repository interface {
	// GetByID возвращает команду с загруженной категорией и аффилиацией.
	// Возвращает shared.ErrTeamNotFound, если команда не существует.
	GetByID(ctx context.Context, id shared.TeamID) (*Team, error)

	// ListForScoreboard возвращает включённые команды контеста, прошедшие
	// фильтр. Категория каждой команды загружена; команда без категории -
	// ошибка данных (shared.ErrMissingSortOrder).
	ListForScoreboard(ctx context.Context, contestID shared.ContestID, opts ListOptions) ([]*Team, error)

	// ListCategories возвращает категории, упорядоченные по sort order,
	// имени и идентификатору. Для не-жюри только видимые.
	ListCategories(ctx context.Context, jury bool) ([]*Category, error)

	// ListAffiliations возвращает аффилиации команд контеста, видимых
	// данному зрителю, для построения значений фильтра.
	ListAffiliations(ctx context.Context, contestID shared.ContestID, jury bool) ([]*Affiliation, error)
}
