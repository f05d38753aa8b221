package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func (e *queryEnv) rankHandler() *GetTeamRankHandler {
	return NewGetTeamRankHandler(
		e.store.Contests(), e.store.Teams(),
		e.store.ScoreRows(), e.store.RankRows(), e.store.Options())
}

func (e *queryEnv) teamRank(t *testing.T, teamID int64, jury bool, now time.Time) *GetTeamRankResult {
	t.Helper()
	result, err := e.rankHandler().Handle(context.Background(), GetTeamRankQuery{
		ContestID: 1,
		TeamID:    shared.TeamID(teamID),
		Jury:      jury,
		Now:       now,
	})
	require.NoError(t, err)
	return result
}

func TestGetTeamRank_BetterCountPlusOne(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)
	env.seedSolved(2, 1, 30, 1)
	env.seedSolved(2, 2, 60, 1)
	env.seedRank(2, 2, 90)
	env.seedRank(3, 0, 0)

	now := contestStart.Add(2 * time.Hour)
	assert.Equal(t, 1, env.teamRank(t, 2, true, now).Rank)
	assert.Equal(t, 2, env.teamRank(t, 1, true, now).Rank)
	assert.Equal(t, 3, env.teamRank(t, 3, true, now).Rank)
}

func TestGetTeamRank_ZeroScoresShareRank(t *testing.T) {
	env := newQueryEnv(t)
	env.seedRank(1, 0, 0)
	env.seedRank(2, 0, 0)

	now := contestStart.Add(2 * time.Hour)
	assert.Equal(t, 1, env.teamRank(t, 1, true, now).Rank)
	assert.Equal(t, 1, env.teamRank(t, 2, true, now).Rank)
}

func TestGetTeamRank_TiebreakerOrdersEqualScores(t *testing.T) {
	env := newQueryEnv(t)
	// Identical points and total time; team 1's last solve is earlier.
	env.seedSolved(1, 1, 5, 1)
	env.seedSolved(1, 2, 85, 1)
	env.seedRank(1, 2, 90)
	env.seedSolved(2, 1, 2, 1)
	env.seedSolved(2, 2, 88, 1)
	env.seedRank(2, 2, 90)

	now := contestStart.Add(2 * time.Hour)
	assert.Equal(t, 1, env.teamRank(t, 1, true, now).Rank)
	assert.Equal(t, 2, env.teamRank(t, 2, true, now).Rank)
}

func TestGetTeamRank_FullTieSharesRank(t *testing.T) {
	env := newQueryEnv(t)
	env.seedSolved(1, 1, 20, 1)
	env.seedRank(1, 1, 20)
	env.seedSolved(2, 1, 20, 1)
	env.seedRank(2, 1, 20)

	now := contestStart.Add(2 * time.Hour)
	assert.Equal(t, 1, env.teamRank(t, 1, true, now).Rank)
	assert.Equal(t, 1, env.teamRank(t, 2, true, now).Rank)
}

func TestGetTeamRank_OtherClassDoesNotCompete(t *testing.T) {
	env := newQueryEnv(t)
	// Observer team 4 outperforms participant team 1 but is ranked in
	// its own class.
	env.seedSolved(4, 1, 10, 1)
	env.seedRank(4, 1, 10)
	env.seedSolved(1, 1, 30, 1)
	env.seedRank(1, 1, 30)

	now := contestStart.Add(2 * time.Hour)
	assert.Equal(t, 1, env.teamRank(t, 1, true, now).Rank)
	assert.Equal(t, 1, env.teamRank(t, 4, true, now).Rank)
}

func TestGetTeamRank_VariantSelection(t *testing.T) {
	env := newQueryEnv(t)

	now := contestStart.Add(4*time.Hour + 30*time.Minute)
	assert.Equal(t, "restricted", env.teamRank(t, 1, true, now).Variant)
	assert.Equal(t, "public", env.teamRank(t, 1, false, now).Variant)

	afterUnfreeze := contestStart.Add(7 * time.Hour)
	assert.Equal(t, "restricted", env.teamRank(t, 1, false, afterUnfreeze).Variant)
}
