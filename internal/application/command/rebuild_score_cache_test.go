package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/submission"
)

func newRebuildHandler(env *testEnv) *RebuildScoreCacheHandler {
	return NewRebuildScoreCacheHandler(
		env.store.Submissions(), env.store.ScoreRows(), env.store.RankRows(),
		env.score, env.rank, nil)
}

func TestRebuildScoreCache_EquivalentToIncremental(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.addSubmission(3, 2, 1, 30*time.Minute, submission.VerdictCorrect)
	env.addSubmission(4, 2, 2, 4*time.Hour+5*time.Minute, submission.VerdictCorrect)

	// Incremental path: one recompute per judging result.
	env.calc(t, 1, 1, true)
	env.calc(t, 2, 1, true)
	env.calc(t, 2, 2, true)

	ctx := context.Background()
	scoreBefore, err := env.store.ScoreRows().ListForContest(ctx, 1)
	require.NoError(t, err)
	rankBefore, err := env.store.RankRows().ListForContest(ctx, 1)
	require.NoError(t, err)

	result, err := newRebuildHandler(env).Handle(ctx, RebuildScoreCacheCommand{ContestID: 1})
	require.NoError(t, err)

	assert.Equal(t, 3, result.RowsRebuilt)
	assert.Equal(t, 2, result.TeamsRebuilt)
	assert.NotEmpty(t, result.RunID)

	scoreAfter, err := env.store.ScoreRows().ListForContest(ctx, 1)
	require.NoError(t, err)
	rankAfter, err := env.store.RankRows().ListForContest(ctx, 1)
	require.NoError(t, err)

	assert.Equal(t, scoreBefore, scoreAfter)
	assert.Equal(t, rankBefore, rankAfter)
}

func TestRebuildScoreCache_EmptyContest(t *testing.T) {
	env := newTestEnv(t)

	result, err := newRebuildHandler(env).Handle(context.Background(), RebuildScoreCacheCommand{ContestID: 1})
	require.NoError(t, err)

	assert.Equal(t, 0, result.RowsRebuilt)
	assert.Equal(t, 0, result.TeamsRebuilt)
}

func TestRebuildScoreCache_DropsStaleRows(t *testing.T) {
	env := newTestEnv(t)
	sub := env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.calc(t, 1, 1, true)

	// The submission is invalidated afterwards; a rebuild must not
	// resurrect the row from the old cache contents.
	sub.Valid = false

	ctx := context.Background()
	_, err := newRebuildHandler(env).Handle(ctx, RebuildScoreCacheCommand{ContestID: 1})
	require.NoError(t, err)

	rows, err := env.store.ScoreRows().ListForContest(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, rows)
}
