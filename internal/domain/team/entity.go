// Package team содержит доменную модель команды, категории и аффилиации.
// Категория определяет sort-order класс: команды из разных классов никогда
// не соревнуются между собой за позицию в рейтинге.
package team

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATEGORY
// ══════════════════════════════════════════════════════════════════════════════

// Category представляет категорию команд (например, "Participants",
// "Observers"). SortOrder разбивает табло на независимые классы ранжирования.
type Category struct {
	// ID - уникальный идентификатор категории.
	ID int64

	// Name - название категории.
	Name string

	// SortOrder - класс ранжирования.
	SortOrder shared.SortOrder

	// Color - цвет фона строк этой категории на табло (CSS-значение).
	Color string

	// Visible - показывать ли категорию на публичном табло.
	Visible bool
}

var colorRegex = regexp.MustCompile(`^(#[0-9a-fA-F]{3}|#[0-9a-fA-F]{6}|[a-zA-Z]+)?$`)

// NewCategory создаёт категорию с валидацией.
func NewCategory(id int64, name string, sortOrder shared.SortOrder, color string) (*Category, error) {
	if id <= 0 {
		return nil, ErrInvalidCategoryID
	}
	if name == "" {
		return nil, ErrEmptyCategoryName
	}
	if !sortOrder.IsValid() {
		return nil, shared.ErrMissingSortOrder
	}
	if !colorRegex.MatchString(color) {
		return nil, shared.ErrInvalidCategoryColor
	}

	return &Category{
		ID:        id,
		Name:      name,
		SortOrder: sortOrder,
		Color:     color,
		Visible:   true,
	}, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// AFFILIATION
// ══════════════════════════════════════════════════════════════════════════════

// Affiliation представляет организацию, от которой выступает команда.
type Affiliation struct {
	// ID - уникальный идентификатор аффилиации.
	ID int64

	// Name - название организации.
	Name string

	// Country - ISO 3166-1 alpha-3 код страны (может быть пустым).
	Country shared.Country
}

// ══════════════════════════════════════════════════════════════════════════════
// TEAM ENTITY
// ══════════════════════════════════════════════════════════════════════════════

// Team представляет одну команду-участника.
type Team struct {
	// ID - уникальный идентификатор команды.
	ID shared.TeamID

	// Name - отображаемое имя команды.
	Name string

	// CategoryID - категория команды (sort-order класс).
	CategoryID int64

	// Category - загруженная категория (может быть nil).
	Category *Category

	// AffiliationID - организация команды (0 = нет).
	AffiliationID int64

	// Affiliation - загруженная аффилиация (может быть nil).
	Affiliation *Affiliation

	// PenaltyOffset - ручной штраф команды, базовое слагаемое totalTime.
	PenaltyOffset int64

	// Enabled - участвует ли команда в подсчёте.
	Enabled bool
}

// NewTeam создаёт команду с валидацией.
func NewTeam(id shared.TeamID, name string, categoryID int64) (*Team, error) {
	if !id.IsValid() {
		return nil, shared.ErrInvalidTeamID
	}
	if name == "" {
		return nil, ErrEmptyTeamName
	}
	if categoryID <= 0 {
		return nil, ErrInvalidCategoryID
	}

	return &Team{
		ID:         id,
		Name:       name,
		CategoryID: categoryID,
		Enabled:    true,
	}, nil
}

// SortOrder возвращает класс ранжирования команды.
// Категория обязана быть загружена: без неё корректный рейтинг невозможен.
func (t *Team) SortOrder() (shared.SortOrder, error) {
	if t.Category == nil {
		return 0, shared.ErrMissingSortOrder
	}
	return t.Category.SortOrder, nil
}

// Visible возвращает true, если команду видно на публичном табло.
func (t *Team) Visible() bool {
	return t.Enabled && (t.Category == nil || t.Category.Visible)
}

// Country возвращает код страны команды (пустой, если не задан).
func (t *Team) Country() shared.Country {
	if t.Affiliation == nil {
		return ""
	}
	return t.Affiliation.Country
}

// String возвращает строковое представление для логирования.
func (t *Team) String() string {
	return fmt.Sprintf("Team{ID: %d, Name: %s, Category: %d}", t.ID, t.Name, t.CategoryID)
}

// ══════════════════════════════════════════════════════════════════════════════
// DOMAIN ERRORS
// ══════════════════════════════════════════════════════════════════════════════

var (
	// ErrEmptyTeamName - команда без имени.
	ErrEmptyTeamName = errors.New("team name cannot be empty")

	// ErrEmptyCategoryName - категория без названия.
	ErrEmptyCategoryName = errors.New("category name cannot be empty")

	// ErrInvalidCategoryID - невалидный идентификатор категории.
	ErrInvalidCategoryID = errors.New("invalid category id")
)
