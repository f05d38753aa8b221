package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/contest"
	"github.com/codearena/scoring-engine/internal/domain/problem"
	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/team"
	"github.com/codearena/scoring-engine/internal/infrastructure/persistence/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

var contestStart = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type queryEnv struct {
	store *memory.Store
}

func newQueryEnv(t *testing.T) *queryEnv {
	t.Helper()

	store := memory.NewStore()

	cnt, err := contest.NewContest(1, "Test Contest", "test", contestStart, contestStart.Add(5*time.Hour))
	require.NoError(t, err)
	_, err = cnt.WithFreeze(contestStart.Add(4 * time.Hour))
	require.NoError(t, err)
	_, err = cnt.WithUnfreeze(contestStart.Add(6 * time.Hour))
	require.NoError(t, err)
	store.PutContest(cnt)

	participants, err := team.NewCategory(1, "Participants", 0, "#ffffff")
	require.NoError(t, err)
	store.PutCategory(participants)
	observers, err := team.NewCategory(2, "Observers", 1, "")
	require.NoError(t, err)
	store.PutCategory(observers)

	store.PutAffiliation(&team.Affiliation{ID: 1, Name: "CodeArena University", Country: "KAZ"})
	store.PutAffiliation(&team.Affiliation{ID: 2, Name: "Tech Institute", Country: "NLD"})

	for id, cat := range map[int64]int64{1: 1, 2: 1, 3: 1, 4: 2} {
		tm, err := team.NewTeam(shared.TeamID(id), "Team "+shared.TeamID(id).String(), cat)
		require.NoError(t, err)
		tm.AffiliationID = 1 + id%2
		store.PutTeam(tm)
	}

	pa, err := problem.NewContestProblem(1, 1, "A", "Apples", 0)
	require.NoError(t, err)
	store.PutProblem(pa)
	pb, err := problem.NewContestProblem(1, 2, "B", "Bananas", 0)
	require.NoError(t, err)
	store.PutProblem(pb)

	return &queryEnv{store: store}
}

// seedSolved stores both cache rows for a team that solved one problem.
func (e *queryEnv) seedSolved(teamID, problemID int64, solveMinutes int64, attempts int) {
	ctx := context.Background()
	cell := scoring.ScoreCell{
		Attempts:  attempts,
		SolveTime: shared.ContestSeconds(solveMinutes * 60),
		Correct:   true,
	}
	_ = e.store.ScoreRows().Upsert(ctx, &scoring.ScoreRow{
		ContestID:  1,
		TeamID:     shared.TeamID(teamID),
		ProblemID:  shared.ProblemID(problemID),
		Public:     cell,
		Restricted: cell,
	})
}

func (e *queryEnv) seedRank(teamID int64, points int, totalTime int64) {
	score := scoring.RankScore{Points: points, TotalTime: totalTime}
	_ = e.store.RankRows().Upsert(context.Background(), &scoring.RankRow{
		ContestID:  1,
		TeamID:     shared.TeamID(teamID),
		Public:     score,
		Restricted: score,
	})
}

func (e *queryEnv) scoreboard() *GetScoreboardHandler {
	return NewGetScoreboardHandler(
		e.store.Contests(), e.store.Teams(), e.store.Problems(),
		e.store.ScoreRows(), e.store.RankRows(), e.store.Options(), nil)
}

// ─────────────────────────────────────────────────────────────────────────────
// Full scoreboard
// ─────────────────────────────────────────────────────────────────────────────

func TestGetScoreboard_PreStartHiddenFromPublic(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Now:       contestStart.Add(-time.Hour),
	})
	require.NoError(t, err)

	assert.False(t, result.Available)
	assert.Nil(t, result.Scoreboard)
}

func TestGetScoreboard_PreStartVisibleToJury(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Jury:      true,
		Now:       contestStart.Add(-time.Hour),
	})
	require.NoError(t, err)

	assert.True(t, result.Available)
	require.NotNil(t, result.Scoreboard)
	assert.Equal(t, "restricted", result.Scoreboard.Variant)
}

func TestGetScoreboard_RankMonotonicity(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)
	env.seedSolved(2, 1, 30, 1)
	env.seedSolved(2, 2, 60, 1)
	env.seedRank(2, 2, 90)
	env.seedRank(3, 0, 0)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Jury:      true,
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	rows := result.Scoreboard.Rows
	require.Len(t, rows, 4)

	// Within a class, more points always means a better rank.
	for i := 0; i < len(rows)-1; i++ {
		if rows[i].SortOrder != rows[i+1].SortOrder {
			continue
		}
		if rows[i].Points > rows[i+1].Points {
			assert.Less(t, rows[i].Rank, rows[i+1].Rank)
		}
	}
	assert.Equal(t, int64(2), rows[0].TeamID)
	assert.Equal(t, 1, rows[0].Rank)
}

func TestGetScoreboard_TieStability(t *testing.T) {
	env := newQueryEnv(t)
	// Same points and time, but team 1's last solve is earlier.
	env.seedSolved(1, 1, 5, 1)
	env.seedSolved(1, 2, 85, 1)
	env.seedRank(1, 2, 90)
	env.seedSolved(2, 1, 2, 1)
	env.seedSolved(2, 2, 88, 1)
	env.seedRank(2, 2, 90)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Jury:      true,
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	rows := result.Scoreboard.Rows
	assert.Equal(t, int64(1), rows[0].TeamID)
	assert.Equal(t, 1, rows[0].Rank)
	assert.Equal(t, int64(2), rows[1].TeamID)
	assert.Equal(t, 2, rows[1].Rank)
}

func TestGetScoreboard_ClassesRankIndependently(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)
	env.seedSolved(4, 1, 30, 1)
	env.seedRank(4, 1, 30)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Jury:      true,
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	var team4 *ScoreboardRowDTO
	for i := range result.Scoreboard.Rows {
		if result.Scoreboard.Rows[i].TeamID == 4 {
			team4 = &result.Scoreboard.Rows[i]
		}
	}
	require.NotNil(t, team4)
	// The observer class has its own rank sequence.
	assert.Equal(t, 1, team4.Rank)
}

func TestGetScoreboard_FilterByTeam(t *testing.T) {
	env := newQueryEnv(t)
	env.seedRank(1, 0, 0)
	env.seedRank(2, 0, 0)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Filter:    scoring.NewFilter(nil, nil, nil, []shared.TeamID{2}),
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	require.Len(t, result.Scoreboard.Rows, 1)
	assert.Equal(t, int64(2), result.Scoreboard.Rows[0].TeamID)
}

func TestGetScoreboard_FilterByCountry(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Filter:    scoring.NewFilter(nil, []shared.Country{"KAZ"}, nil, nil),
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	for _, row := range result.Scoreboard.Rows {
		assert.Equal(t, "KAZ", row.Country)
	}
	assert.NotEmpty(t, result.Scoreboard.Rows)
}

func TestGetScoreboard_PublicVariantDuringFreeze(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Now:       contestStart.Add(4*time.Hour + 30*time.Minute),
	})
	require.NoError(t, err)

	assert.Equal(t, "public", result.Scoreboard.Variant)
	assert.True(t, result.Scoreboard.Frozen)
}

func TestGetScoreboard_RestrictedAfterUnfreeze(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Now:       contestStart.Add(7 * time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, "restricted", result.Scoreboard.Variant)
	assert.True(t, result.Scoreboard.Final)
}

func TestGetScoreboard_EmptyCellsForAllProblems(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)

	result, err := env.scoreboard().Handle(context.Background(), GetScoreboardQuery{
		ContestID: 1,
		Jury:      true,
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	for _, row := range result.Scoreboard.Rows {
		assert.Len(t, row.Cells, 2)
	}
}
