package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/scoring"
	"github.com/codearena/scoring-engine/internal/domain/shared"
	"github.com/codearena/scoring-engine/internal/domain/submission"
)

func (e *testEnv) rankOf(t *testing.T, teamID int64) *scoring.RankRow {
	t.Helper()
	result, err := e.rank.Handle(context.Background(), UpdateRankCacheCommand{
		ContestID: 1,
		TeamID:    shared.TeamID(teamID),
	})
	require.NoError(t, err)
	return result.Row
}

func TestUpdateRankCache_SumsPointsAndTime(t *testing.T) {
	env := newTestEnv(t)
	// A solved at 20 min on the second attempt, B solved at 60 min first try.
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.addSubmission(3, 1, 2, 60*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, false)
	env.calc(t, 1, 2, false)

	row := env.rankOf(t, 1)

	assert.Equal(t, 2, row.Restricted.Points)
	// 20 + one failed attempt at 20 penalty minutes + 60.
	assert.Equal(t, int64(100), row.Restricted.TotalTime)
	assert.Equal(t, 2, row.Public.Points)
}

func TestUpdateRankCache_UnsolvedContributesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.calc(t, 1, 1, false)

	row := env.rankOf(t, 1)

	assert.Equal(t, 0, row.Restricted.Points)
	assert.Equal(t, int64(0), row.Restricted.TotalTime)
}

func TestUpdateRankCache_PenaltyOffset(t *testing.T) {
	env := newTestEnv(t)
	tm, err := env.store.Teams().GetByID(context.Background(), 1)
	require.NoError(t, err)
	tm.PenaltyOffset = 15

	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, false)

	row := env.rankOf(t, 1)
	assert.Equal(t, int64(35), row.Restricted.TotalTime)
}

func TestUpdateRankCache_SecondsMode(t *testing.T) {
	env := newTestEnv(t)
	opts := scoring.DefaultOptions()
	opts.ScoreInSeconds = true
	env.store.SetOptions(1, opts)

	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, false)

	row := env.rankOf(t, 1)
	// 1200 seconds + one failed attempt at 20 penalty minutes in seconds.
	assert.Equal(t, int64(1200+20*60), row.Restricted.TotalTime)
}

func TestUpdateRankCache_FreezeSplitsVariants(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 4*time.Hour+10*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, false)

	row := env.rankOf(t, 1)

	assert.Equal(t, 1, row.Restricted.Points)
	assert.Equal(t, 0, row.Public.Points)
}

func TestUpdateRankCache_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, false)

	first := env.rankOf(t, 1)
	second := env.rankOf(t, 1)

	assert.Equal(t, first, second)
}

func TestUpdateRankCache_LockContention(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetLockTimeout(50 * time.Millisecond)

	ctx := context.Background()
	unlock, err := env.store.Locker().LockRankRow(ctx, 1, 1)
	require.NoError(t, err)
	defer func() { _ = unlock.Unlock(ctx) }()

	_, err = env.rank.Handle(ctx, UpdateRankCacheCommand{ContestID: 1, TeamID: 1})
	require.Error(t, err)
	assert.True(t, shared.IsLockContention(err))
}
