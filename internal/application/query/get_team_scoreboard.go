package query

import (
	"context"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TEAM SCOREBOARD QUERY
// Табло одной команды: та же сборка, но с единственной строкой. Во время
// заморозки публичный зритель не видит ранг команды.
// ══════════════════════════════════════════════════════════════════════════════

// GetTeamScoreboardQuery содержит параметры запроса табло команды.
type GetTeamScoreboardQuery struct {
	// ContestID - контест.
	ContestID shared.ContestID

	// TeamID - команда.
	TeamID shared.TeamID

	// Jury - запрос от жюри.
	Jury bool

	// Now - момент, на который строится табло (zero = текущее время).
	Now time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetTeamScoreboardQuery) Validate() error {
	if !q.ContestID.IsValid() {
		return shared.ErrInvalidContestID
	}
	if !q.TeamID.IsValid() {
		return shared.ErrInvalidTeamID
	}
	if q.Now.IsZero() {
		q.Now = time.Now().UTC()
	}
	return nil
}

// GetTeamScoreboardResult содержит результат запроса табло команды.
type GetTeamScoreboardResult struct {
	// Available - доступно ли табло (false до старта для не-жюри).
	Available bool `json:"available"`

	// Row - строка команды (nil, если Available = false).
	Row *ScoreboardRowDTO `json:"row,omitempty"`

	// Problems - задачи в шапке.
	Problems []ProblemDTO `json:"problems,omitempty"`

	// RankVisible - показан ли ранг. Во время заморозки публичный
	// зритель ранга не видит.
	RankVisible bool `json:"rank_visible"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetTeamScoreboardHandler обрабатывает запросы табло одной команды.
type GetTeamScoreboardHandler struct {
	contestRepo contest.Repository
	teamRepo    team.Repository
	problemRepo problem.Repository
	scoreRepo   scoring.ScoreRepository
	rankRepo    scoring.RankRepository
	options     scoring.OptionsProvider
	rankQuery   *GetTeamRankHandler
}

// NewGetTeamScoreboardHandler создаёт новый обработчик.
func NewGetTeamScoreboardHandler(
	contestRepo contest.Repository,
	teamRepo team.Repository,
	problemRepo problem.Repository,
	scoreRepo scoring.ScoreRepository,
	rankRepo scoring.RankRepository,
	options scoring.OptionsProvider,
	rankQuery *GetTeamRankHandler,
) *GetTeamScoreboardHandler {
	return &GetTeamScoreboardHandler{
		contestRepo: contestRepo,
		teamRepo:    teamRepo,
		problemRepo: problemRepo,
		scoreRepo:   scoreRepo,
		rankRepo:    rankRepo,
		options:     options,
		rankQuery:   rankQuery,
	}
}

// Handle выполняет запрос табло команды.
func (h *GetTeamScoreboardHandler) Handle(ctx context.Context, query GetTeamScoreboardQuery) (*GetTeamScoreboardResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrValidation, "invalid query", err)
	}

	cnt, err := h.contestRepo.GetByID(ctx, query.ContestID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrNotFound, "contest not found", err)
	}

	fd := cnt.FreezeData(query.Now)
	if !fd.Started() && !query.Jury {
		return &GetTeamScoreboardResult{
			Available:   false,
			GeneratedAt: time.Now().UTC(),
		}, nil
	}

	opts, err := h.options.OptionsForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrExternalService, "failed to load scoring options", err)
	}

	variant := scoring.SelectVariant(query.Jury, fd.ShowFinal(query.Jury))

	tm, err := h.teamRepo.GetByID(ctx, query.TeamID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrNotFound, "team not found", err)
	}
	sortOrder, err := tm.SortOrder()
	if err != nil {
		return nil, err
	}

	problems, err := h.problemRepo.ListForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrExternalService, "failed to load problems", err)
	}

	scoreRows, err := h.scoreRepo.ListForTeam(ctx, cnt.ID, query.TeamID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrExternalService, "failed to load score cache", err)
	}

	score := scoring.RankScore{}
	if rank, err := h.rankRepo.Get(ctx, cnt.ID, query.TeamID); err == nil {
		score = rank.Score(variant)
	} else if !shared.IsNotFound(err) {
		return nil, shared.WrapError("query", "GetTeamScoreboard", shared.ErrExternalService, "failed to load rank cache", err)
	}

	row := &ScoreboardRowDTO{
		TeamID:     query.TeamID.Int64(),
		TeamName:   tm.Name,
		CategoryID: tm.CategoryID,
		SortOrder:  sortOrder.Int(),
		Country:    tm.Country().String(),
		Points:     score.Points,
		TotalTime:  score.TotalTime,
		Cells:      make([]ScoreCellDTO, 0, len(problems)),
	}
	if tm.Affiliation != nil {
		row.Affiliation = tm.Affiliation.Name
	}

	cellByProblem := make(map[shared.ProblemID]*scoring.ScoreRow, len(scoreRows))
	for _, r := range scoreRows {
		cellByProblem[r.ProblemID] = r
	}
	for _, p := range problems {
		dto := ScoreCellDTO{ProblemID: p.ProblemID.Int64()}
		if r, ok := cellByProblem[p.ProblemID]; ok {
			cell := r.Cell(variant)
			dto.Attempts = cell.Attempts
			dto.Pending = cell.Pending
			dto.Solved = cell.Correct
			dto.SolveTime = scoring.ScoreTime(cell.SolveTime, opts.ScoreInSeconds)
			dto.FirstToSolve = r.FirstToSolve && cell.Correct
		}
		row.Cells = append(row.Cells, dto)
	}

	// Ранг скрыт от публики на время заморозки: позиция выдала бы
	// результаты, которых на замороженном табло не видно.
	rankVisible := query.Jury || !fd.ShowFrozen()
	if rankVisible && h.rankQuery != nil {
		rankResult, err := h.rankQuery.Handle(ctx, GetTeamRankQuery{
			ContestID: query.ContestID,
			TeamID:    query.TeamID,
			Jury:      query.Jury,
			Now:       query.Now,
		})
		if err != nil {
			return nil, err
		}
		row.Rank = rankResult.Rank
	}

	problemDTOs := make([]ProblemDTO, 0, len(problems))
	for _, p := range problems {
		problemDTOs = append(problemDTOs, ProblemDTO{
			ProblemID: p.ProblemID.Int64(),
			Label:     p.ShortName,
			Name:      p.Name,
			Points:    p.Points,
			Color:     p.Color,
		})
	}

	return &GetTeamScoreboardResult{
		Available:   true,
		Row:         row,
		Problems:    problemDTOs,
		RankVisible: rankVisible,
		GeneratedAt: time.Now().UTC(),
	}, nil
}
