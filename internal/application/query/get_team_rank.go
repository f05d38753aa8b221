package query

import (
	"context"
	"time"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
)

// ══════════════════════════════════════════════════════════════════════════════
// GET TEAM RANK QUERY
// Вычисляет позицию команды внутри её sort-order класса: количество строго
// лучших команд плюс один, с разрешением полных ничьих тайбрейкером.
// ══════════════════════════════════════════════════════════════════════════════

// GetTeamRankQuery содержит параметры запроса ранга.
type GetTeamRankQuery struct {
	// ContestID - контест.
	ContestID shared.ContestID

	// TeamID - команда.
	TeamID shared.TeamID

	// Jury - запрос от жюри: всегда актуальные данные.
	Jury bool

	// Now - момент, на который вычисляется ранг (zero = текущее время).
	Now time.Time
}

// Validate проверяет корректность параметров запроса.
func (q *GetTeamRankQuery) Validate() error {
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

// GetTeamRankResult содержит результат запроса ранга.
type GetTeamRankResult struct {
	// Rank - позиция команды внутри её класса, начиная с 1.
	Rank int `json:"rank"`

	// Points - баллы команды в выбранном варианте.
	Points int `json:"points"`

	// TotalTime - штрафное время команды в выбранном варианте.
	TotalTime int64 `json:"total_time"`

	// Variant - вариант данных: "public" или "restricted".
	Variant string `json:"variant"`

	// GeneratedAt - время генерации результата.
	GeneratedAt time.Time `json:"generated_at"`
}

// GetTeamRankHandler обрабатывает запросы ранга команды.
type GetTeamRankHandler struct {
	contestRepo contest.Repository
	teamRepo    team.Repository
	scoreRepo   scoring.ScoreRepository
	rankRepo    scoring.RankRepository
	options     scoring.OptionsProvider
}

// NewGetTeamRankHandler создаёт новый обработчик.
func NewGetTeamRankHandler(
	contestRepo contest.Repository,
	teamRepo team.Repository,
	scoreRepo scoring.ScoreRepository,
	rankRepo scoring.RankRepository,
	options scoring.OptionsProvider,
) *GetTeamRankHandler {
	return &GetTeamRankHandler{
		contestRepo: contestRepo,
		teamRepo:    teamRepo,
		scoreRepo:   scoreRepo,
		rankRepo:    rankRepo,
		options:     options,
	}
}

// Handle выполняет запрос ранга.
func (h *GetTeamRankHandler) Handle(ctx context.Context, query GetTeamRankQuery) (*GetTeamRankResult, error) {
	if err := query.Validate(); err != nil {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrValidation, "invalid query", err)
	}

	cnt, err := h.contestRepo.GetByID(ctx, query.ContestID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrNotFound, "contest not found", err)
	}

	opts, err := h.options.OptionsForContest(ctx, cnt.ID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrExternalService, "failed to load scoring options", err)
	}

	fd := cnt.FreezeData(query.Now)
	variant := scoring.SelectVariant(query.Jury, fd.ShowFinal(query.Jury))

	tm, err := h.teamRepo.GetByID(ctx, query.TeamID)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrNotFound, "team not found", err)
	}
	sortOrder, err := tm.SortOrder()
	if err != nil {
		return nil, err
	}

	score := scoring.RankScore{}
	if rank, err := h.rankRepo.Get(ctx, query.ContestID, query.TeamID); err == nil {
		score = rank.Score(variant)
	} else if !shared.IsNotFound(err) {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrExternalService, "failed to load rank cache", err)
	}

	better, err := h.rankRepo.CountBetter(ctx, query.ContestID, sortOrder, variant, score)
	if err != nil {
		return nil, shared.WrapError("query", "GetTeamRank", shared.ErrExternalService, "failed to count better teams", err)
	}
	rank := better + 1

	// Ничьи есть только у команд с баллами: нулевые счёты делят позицию.
	if score.Points > 0 {
		resolved, err := h.resolveTies(ctx, query.ContestID, query.TeamID, sortOrder, variant, score, opts)
		if err != nil {
			return nil, err
		}
		rank += resolved
	}

	return &GetTeamRankResult{
		Rank:        rank,
		Points:      score.Points,
		TotalTime:   score.TotalTime,
		Variant:     variant.String(),
		GeneratedAt: time.Now().UTC(),
	}, nil
}

// resolveTies возвращает количество команд с полностью равным счётом,
// которых тайбрейкер ставит строго выше данной.
func (h *GetTeamRankHandler) resolveTies(
	ctx context.Context,
	contestID shared.ContestID,
	teamID shared.TeamID,
	sortOrder shared.SortOrder,
	variant scoring.Variant,
	score scoring.RankScore,
	opts scoring.Options,
) (int, error) {
	tied, err := h.rankRepo.ListTied(ctx, contestID, sortOrder, variant, score)
	if err != nil {
		return 0, shared.WrapError("query", "GetTeamRank", shared.ErrExternalService, "failed to list tied teams", err)
	}
	if len(tied) <= 1 {
		return 0, nil
	}

	solveTimes, err := h.scoreRepo.SolveTimesForTeams(ctx, contestID, tied, variant)
	if err != nil {
		return 0, shared.WrapError("query", "GetTeamRank", shared.ErrExternalService, "failed to load solve times", err)
	}

	scores := make(map[shared.TeamID]*scoring.TeamScore, len(tied))
	for _, id := range tied {
		ts := scoring.NewTeamScore(id)
		for _, t := range solveTimes[id] {
			ts.AddSolveTime(scoring.ScoreTime(t, opts.ScoreInSeconds))
		}
		scores[id] = ts
	}

	mine, ok := scores[teamID]
	if !ok {
		mine = scoring.NewTeamScore(teamID)
	}

	ahead := 0
	for _, id := range tied {
		if id == teamID {
			continue
		}
		if scoring.CompareTeamScores(scores[id], mine) < 0 {
			ahead++
		}
	}
	return ahead, nil
}
