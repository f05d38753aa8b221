// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
	"github.com/codearena/scoring-engine/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET SCOREBOARD QUERY
// Собирает полное табло контеста: строки из кеша, метаданные команд и задач.
// Чтение без блокировок: снимок может гоняться с пересчётом, следующий
// запрос увидит обновлённую строку.
// ══════════════════════════════════════════════════════════════════════════════

// GetScoreboardQuery содержит параметры запроса табло.
type GetScoreboardQuery struct {
	// ContestID - контест.
	ContestID shared.ContestID

	// Jury - запрос от жюри: всегда актуальные данные, скрытые категории видны.
	Jury bool

	// VisibleOnly - жюри запрашивает публичный состав команд
	// (актуальные данные, но без скрытых категорий).
	VisibleOnly bool

	// Filter ограничивает набор команд.
	Filter scoring.Filter

	// Now - момент, на который строится табло (zero = текущее время).
	Now time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetScoreboardQuery) Validate() error {
	if !q.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	return nil
}

// ProblemDTO - задача в шапке табло.
type ProblemDTO struct {
	// ProblemID - идентификатор задачи.
	ProblemID int64 `json:"problem_id"`

	// Label - метка задачи ("A", "B", ...).
	Label string `json:"label"`

	// Name - полное название.
	Name string `json:"name"`

	// Points - баллы за решение.
	Points int `json:"points"`

	// Color - цвет шарика задачи.
	Color string `json:"color,omitempty"`
}

// CategoryDTO - категория команд на табло.
type CategoryDTO struct {
	// ID - идентификатор категории.
	ID int64 `json:"id"`

	// Name - название.
	Name string `json:"name"`

	// SortOrder - класс ранжирования.
	SortOrder int `json:"sort_order"`

	// Color - цвет фона строк категории.
	Color string `json:"color,omitempty"`
}

// ScoreCellDTO - одна ячейка табло: команда × задача.
type ScoreCellDTO struct {
	// ProblemID - задача.
	ProblemID int64 `json:"problem_id"`

	// Attempts - количество осуждённых попыток.
	Attempts int `json:"attempts"`

	// Pending - количество сабмитов без видимого вердикта.
	Pending int `json:"pending"`

	// Solved - решена ли задача.
	Solved bool `json:"solved"`

	// SolveTime - зачтённое время решения в единицах подсчёта
	// (минуты или секунды, по конфигурации контеста).
	SolveTime int64 `json:"solve_time"`

	// FirstToSolve - решила ли команда задачу первой в своём классе.
	FirstToSolve bool `json:"first_to_solve"`
}

// ScoreboardRowDTO - строка табло: команда со счётом и ячейками.
type ScoreboardRowDTO struct {
	// Rank - позиция внутри sort-order класса (0 = скрыта).
	Rank int `json:"rank,omitempty"`

	// TeamID - команда.
	TeamID int64 `json:"team_id"`

	// TeamName - отображаемое имя.
	TeamName string `json:"team_name"`

	// CategoryID - категория команды.
	CategoryID int64 `json:"category_id"`

	// SortOrder - класс ранжирования.
	SortOrder int `json:"sort_order"`

	// Affiliation - название организации (пустое, если нет).
	Affiliation string `json:"affiliation,omitempty"`

	// Country - код страны (пустой, если нет).
	Country string `json:"country,omitempty"`

	// Points - сумма баллов.
	Points int `json:"points"`

	// TotalTime - суммарное штрафное время.
	TotalTime int64 `json:"total_time"`

	// Cells - ячейки по задачам, в порядке задач на табло.
	Cells []ScoreCellDTO `json:"cells"`
}

// ScoreboardDTO - полное табло.
type ScoreboardDTO struct {
	// ContestID - контест.
	ContestID int64 `json:"contest_id"`

	// ContestName - название контеста.
	ContestName string `json:"contest_name"`

	// Variant - вариант данных: "public" или "restricted".
	Variant string `json:"variant"`

	// StartTime - старт контеста (RFC 3339).
	StartTime string `json:"start_time"`

	// EndTime - конец контеста (RFC 3339).
	EndTime string `json:"end_time"`

	// Length - длительность контеста в нотации H:MM:SS.
	Length string `json:"length"`

	// FreezeTime - момент заморозки (RFC 3339), если настроена.
	FreezeTime string `json:"freeze_time,omitempty"`

	// Frozen - находится ли публичное табло в заморозке.
	Frozen bool `json:"frozen"`

	// Final - окончательные ли результаты.
	Final bool `json:"final"`

	// Problems - задачи в шапке.
	Problems []ProblemDTO `json:"problems"`

	// Categories - категории, присутствующие на табло.
	Categories []CategoryDTO `json:"categories"`

	// Rows - строки в порядке ранжирования.
	Rows []ScoreboardRowDTO `json:"rows"`
}

// GetScoreboardResult содержит результат запроса табло.
type GetScoreboardResult struct {
	// Available - доступно ли табло. До старта контеста не-жюри
	// получает false без ошибки: ничего не утекает заранее.
	Available bool `json:"available"`

	// Scoreboard - табло (nil, если Available = false).
	Scoreboard *ScoreboardDTO `json:"scoreboard,omitempty"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// ScoreboardCache кеширует собранные табло между запросами.
// Реализация живёт в инфраструктурном слое; nil отключает кеширование.
type ScoreboardCache interface {
	// Get возвращает закешированное табло или shared.ErrNotFound.
	Get(ctx context.Context, key string) (*ScoreboardDTO, error)

	// Set сохраняет табло под ключом.
	Set(ctx context.Context, key string, sb *ScoreboardDTO) error

	// InvalidateContest сбрасывает все табло контеста.
	InvalidateContest(ctx context.Context, contestID shared.ContestID) error
}

// ══════════════════════════════════════════════════════════════════════════════
// HANDLER
// ══════════════════════════════════════════════════════════════════════════════

// GetScoreboardHandler обрабатывает запросы полного табло.
type GetScoreboardHandler struct {
	contestRepo contest.Repository
	teamRepo    team.Repository
	problemRepo problem.Repository
	scoreRepo   scoring.ScoreRepository
	rankRepo    scoring.RankRepository
	options     scoring.OptionsProvider
	cache       ScoreboardCache
}

// NewGetScoreboardHandler создаёт новый обработчик.
func NewGetScoreboardHandler(
	contestRepo contest.Repository,
	teamRepo team.Repository,
	problemRepo problem.Repository,
	scoreRepo scoring.ScoreRepository,
	rankRepo scoring.RankRepository,
	options scoring.OptionsProvider,
	cache ScoreboardCache,
) *GetScoreboardHandler {
	return &GetScoreboardHandler{
		contestRepo: contestRepo,
		teamRepo:    teamRepo,
		problemRepo: problemRepo,
		scoreRepo:   scoreRepo,
		rankRepo:    rankRepo,
		options:     options,
		cache:       cache,
	}
}

// Handle выполняет запрос табло.
func (h *GetScoreboardHandler) Handle(ctx context.Context, query GetScoreboardQuery) (*GetScoreboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrValidation, "invalid query", err)
	}

	cnt, err := h.contestRepo.GetByID(ctx, query.ContestID)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrNotFound, "contest not found", err)
	}

	fd := cnt.FreezeData(query.Now)

	// До старта публичного табло не существует. Это отсутствие, не ошибка.
	if !fd.Started() && !query.Jury {
		return &GetScoreboardResult{
			Available:   false,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	// Кеш собранных табло имеет смысл только для публичного запроса без
	// фильтра: это горячий путь во время заморозки.
	cacheKey := ""
	if h.cache != nil && !query.Jury && query.Filter.IsEmpty() {
		cacheKey = scoreboardCacheKey(query.ContestID, fd)
		if cached, err := h.cache.Get(ctx, cacheKey); err == nil && cached != nil {
			return &GetScoreboardResult{
				Available:   true,
				Scoreboard:  cached,
				GeneratedAt: time.Now().UTC(),
			}, nil
		}
	}

	sb, err := h.assemble(ctx, cnt, fd, query.Jury, query.VisibleOnly, query.Filter)
	if err != nil {
		return nil, err
	}

	if cacheKey != "" {
		_ = h.cache.Set(ctx, cacheKey, sb)
	}

	return &GetScoreboardResult{
		Available:   true,
		Scoreboard:  sb,
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// assemble собирает табло из кешей и метаданных.
func (h *GetScoreboardHandler) assemble(
	ctx context.Context,
	cnt *contest.Contest,
	fd contest.FreezeData,
	jury bool,
	visibleOnly bool,
	filter scoring.Filter,
) (*ScoreboardDTO, error) {
	opts, err := h.options.OptionsForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load scoring options", err)
	}

	variant := scoring.SelectVariant(jury, fd.ShowFinal(jury))

	includeHidden := jury && !visibleOnly
	teams, err := h.teamRepo.ListForScoreboard(ctx, cnt.ID, filterToListOptions(includeHidden, filter))
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load teams", err)
	}

	problems, err := h.problemRepo.ListForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load problems", err)
	}

	categories, err := h.teamRepo.ListCategories(ctx, includeHidden)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load categories", err)
	}

	scoreRows, err := h.scoreRepo.ListForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load score cache", err)
	}

	rankRows, err := h.rankRepo.ListForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetScoreboard", shared.ErrExternalService, "failed to load rank cache", err)
	}

	standings, err := buildStandings(teams, scoreRows, rankRows, variant, opts)
	if err != nil {
		return nil, err
	}

	return buildScoreboardDTO(cnt, fd, variant, opts, teams, problems, categories, standings, jury), nil
}

// buildStandings превращает строки кеша в отсортированный список позиций.
func buildStandings(
	teams []*team.Team,
	scoreRows []*scoring.ScoreRow,
	rankRows []*scoring.RankRow,
	variant scoring.Variant,
	opts scoring.Options,
) (*scoring.Standings, error) {
	rankByTeam := make(map[shared.TeamID]*scoring.RankRow, len(rankRows))
	for _, r := range rankRows {
		rankByTeam[r.TeamID] = r
	}

	scoresByTeam := make(map[shared.TeamID][]*scoring.ScoreRow, len(teams))
	for _, r := range scoreRows {
		scoresByTeam[r.TeamID] = append(scoresByTeam[r.TeamID], r)
	}

	standings := scoring.NewStandings(variant, opts.ScoreInSeconds)
	for _, tm := range teams {
		sortOrder, err := tm.SortOrder()
		if err != nil {
			return nil, err
		}

		// Команда без rank row ещё ничего не решила: нулевой счёт.
		score := scoring.RankScore{}
		if rank, ok := rankByTeam[tm.ID]; ok {
			score = rank.Score(variant)
		}

		st := scoring.NewStanding(tm.ID, sortOrder, score)
		for _, row := range scoresByTeam[tm.ID] {
			cell := row.Cell(variant)
			st.SetCell(row.ProblemID, cell, row.FirstToSolve && cell.Correct)
		}
		if err := standings.Add(st); err != nil {
			return nil, shared.WrapError("query", "GetScoreboard", shared.ErrInvalidState, "duplicate team in standings", err)
		}
	}

	standings.Sort()
	return standings, nil
}

// buildScoreboardDTO собирает итоговый DTO из отсортированных позиций.
func buildScoreboardDTO(
	cnt *contest.Contest,
	fd contest.FreezeData,
	variant scoring.Variant,
	opts scoring.Options,
	teams []*team.Team,
	problems []*problem.ContestProblem,
	categories []*team.Category,
	standings *scoring.Standings,
	jury bool,
) *ScoreboardDTO {
	teamByID := make(map[shared.TeamID]*team.Team, len(teams))
	for _, tm := range teams {
		teamByID[tm.ID] = tm
	}

	sb := &ScoreboardDTO{
		ContestID:   cnt.ID.Int64(),
		ContestName: cnt.Name,
		Variant:     variant.String(),
		StartTime:   timeutil.FormatAPI(cnt.StartTime),
		EndTime:     timeutil.FormatAPI(cnt.EndTime),
		Length:      timeutil.FormatRelative(cnt.EndTime.Sub(cnt.StartTime)),
		Frozen:      fd.ShowFrozen(),
		Final:       fd.ShowFinal(jury),
		Problems:    make([]ProblemDTO, 0, len(problems)),
		Categories:  make([]CategoryDTO, 0, len(categories)),
		Rows:        make([]ScoreboardRowDTO, 0, standings.Count()),
	}
	if cnt.FreezeTime != nil {
		sb.FreezeTime = timeutil.FormatAPI(*cnt.FreezeTime)
	}

	for _, p := range problems {
		sb.Problems = append(sb.Problems, ProblemDTO{
			ProblemID: p.ProblemID.Int64(),
			Label:     p.ShortName,
			Name:      p.Name,
			Points:    p.Points,
			Color:     p.Color,
		})
	}

	for _, c := range categories {
		sb.Categories = append(sb.Categories, CategoryDTO{
			ID:        c.ID,
			Name:      c.Name,
			SortOrder: c.SortOrder.Int(),
			Color:     c.Color,
		})
	}

	for _, st := range standings.All() {
		tm := teamByID[st.TeamID]
		if tm == nil {
			continue
		}

		row := ScoreboardRowDTO{
			Rank:       st.Rank,
			TeamID:     st.TeamID.Int64(),
			TeamName:   tm.Name,
			CategoryID: tm.CategoryID,
			SortOrder:  st.SortOrder.Int(),
			Country:    tm.Country().String(),
			Points:     st.Score.Points,
			TotalTime:  st.Score.TotalTime,
			Cells:      make([]ScoreCellDTO, 0, len(problems)),
		}
		if tm.Affiliation != nil {
			row.Affiliation = tm.Affiliation.Name
		}

		// Ячейки в порядке задач на табло; задачи без сабмитов дают
		// пустую ячейку.
		for _, p := range problems {
			cell := st.Cells[p.ProblemID]
			row.Cells = append(row.Cells, ScoreCellDTO{
				ProblemID:    p.ProblemID.Int64(),
				Attempts:     cell.Attempts,
				Pending:      cell.Pending,
				Solved:       cell.Correct,
				SolveTime:    scoring.ScoreTime(cell.SolveTime, opts.ScoreInSeconds),
				FirstToSolve: st.FirstToSolve[p.ProblemID],
			})
		}

		sb.Rows = append(sb.Rows, row)
	}

	return sb
}

// filterToListOptions переводит фильтр табло в параметры выборки команд.
func filterToListOptions(includeHidden bool, f scoring.Filter) team.ListOptions {
	return team.ListOptions{
		Jury:           includeHidden,
		AffiliationIDs: f.Affiliations(),
		CategoryIDs:    f.Categories(),
		Countries:      f.Countries(),
		TeamIDs:        f.Teams(),
	}
}

// scoreboardCacheKey строит ключ кеша: фаза заморозки входит в ключ, чтобы
// переход фазы сразу обесценил старые записи.
func scoreboardCacheKey(contestID shared.ContestID, fd contest.FreezeData) string {
	phase := "running"
	switch {
	case fd.ShowFrozen():
		phase = "frozen"
	case fd.Stopped():
		phase = "final"
	}
	return "scoreboard:" + contestID.String() + ":" + phase
}
