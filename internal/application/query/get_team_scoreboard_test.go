package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func (e *queryEnv) teamScoreboard() *GetTeamScoreboardHandler {
	return NewGetTeamScoreboardHandler(
		e.store.Contests(), e.store.Teams(), e.store.Problems(),
		e.store.ScoreRows(), e.store.RankRows(), e.store.Options(),
		e.rankHandler())
}

func TestGetTeamScoreboard_PreStartHiddenFromPublic(t *testing.T) {
	env := newQueryEnv(t)

	result, err := env.teamScoreboard().Handle(context.Background(), GetTeamScoreboardQuery{
		ContestID: 1,
		TeamID:    1,
		Now:       contestStart.Add(-time.Hour),
	})
	require.NoError(t, err)

	assert.False(t, result.Available)
	assert.Nil(t, result.Row)
}

func TestGetTeamScoreboard_SingleRow(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 2)
	env.seedRank(1, 1, 40)

	result, err := env.teamScoreboard().Handle(context.Background(), GetTeamScoreboardQuery{
		ContestID: 1,
		TeamID:    1,
		Jury:      true,
		Now:       contestStart.Add(2 * time.Hour),
	})
	require.NoError(t, err)

	require.NotNil(t, result.Row)
	assert.Equal(t, int64(1), result.Row.TeamID)
	assert.Equal(t, 1, result.Row.Points)
	assert.Equal(t, int64(40), result.Row.TotalTime)
	require.Len(t, result.Row.Cells, 2)
	assert.True(t, result.Row.Cells[0].Solved)
	assert.Equal(t, int64(20), result.Row.Cells[0].SolveTime)
	assert.False(t, result.Row.Cells[1].Solved)
}

func TestGetTeamScoreboard_RankHiddenDuringFreeze(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)

	frozen := contestStart.Add(4*time.Hour + 30*time.Minute)

	public, err := env.teamScoreboard().Handle(context.Background(), GetTeamScoreboardQuery{
		ContestID: 1,
		TeamID:    1,
		Now:       frozen,
	})
	require.NoError(t, err)
	assert.False(t, public.RankVisible)
	assert.Equal(t, 0, public.Row.Rank)

	jury, err := env.teamScoreboard().Handle(context.Background(), GetTeamScoreboardQuery{
		ContestID: 1,
		TeamID:    1,
		Jury:      true,
		Now:       frozen,
	})
	require.NoError(t, err)
	assert.True(t, jury.RankVisible)
	assert.Equal(t, 1, jury.Row.Rank)
}

func TestGetTeamScoreboard_UnknownTeam(t *testing.T) {
	env := newQueryEnv(t)

	_, err := env.teamScoreboard().Handle(context.Background(), GetTeamScoreboardQuery{
		ContestID: 1,
		TeamID:    shared.TeamID(99),
		Jury:      true,
		Now:       contestStart.Add(time.Hour),
	})
	require.Error(t, err)
	assert.True(t, shared.IsNotFound(err))
}
