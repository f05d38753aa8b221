package command

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
	"github.com/codearena/scoring-engine/internal/domain/submission"
	"github.com/codearena/scoring-engine/internal/domain/team"
	"github.com/codearena/scoring-engine/internal/infrastructure/persistence/memory"
)

// ─────────────────────────────────────────────────────────────────────────────
// Fixtures
// ─────────────────────────────────────────────────────────────────────────────

var contestStart = time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

type testEnv struct {
	store *memory.Store
	score *CalculateScoreRowHandler
	rank  *UpdateRankCacheHandler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()

	cnt, err := contest.NewContest(1, "Test Contest", "test", contestStart, contestStart.Add(5*time.Hour))
	require.NoError(t, err)
	_, err = cnt.WithFreeze(contestStart.Add(4 * time.Hour))
	require.NoError(t, err)
	store.PutContest(cnt)

	participants, err := team.NewCategory(1, "Participants", 0, "#ffffff")
	require.NoError(t, err)
	store.PutCategory(participants)
	observers, err := team.NewCategory(2, "Observers", 1, "")
	require.NoError(t, err)
	store.PutCategory(observers)

	for id, cat := range map[int64]int64{1: 1, 2: 1, 3: 2} {
		tm, err := team.NewTeam(shared.TeamID(id), "Team "+shared.TeamID(id).String(), cat)
		require.NoError(t, err)
		store.PutTeam(tm)
	}

	pa, err := problem.NewContestProblem(1, 1, "A", "Apples", 0)
	require.NoError(t, err)
	store.PutProblem(pa)
	pb, err := problem.NewContestProblem(1, 2, "B", "Bananas", 0)
	require.NoError(t, err)
	store.PutProblem(pb)

	rank := NewUpdateRankCacheHandler(
		store.Teams(), store.Problems(), store.ScoreRows(), store.RankRows(),
		store.Locker(), store.Options(), nil)
	score := NewCalculateScoreRowHandler(
		store.Teams(), store.Submissions(), store.ScoreRows(),
		store.Locker(), store.Options(), rank, nil)

	return &testEnv{store: store, score: score, rank: rank}
}

// addSubmission stores a judged (or pending, for empty verdict) submission
// at the given contest-relative offset.
func (e *testEnv) addSubmission(id, teamID, problemID int64, at time.Duration, verdict submission.Verdict) *submission.Submission {
	sub := &submission.Submission{
		ID:          shared.SubmissionID(id),
		ContestID:   1,
		TeamID:      shared.TeamID(teamID),
		ProblemID:   shared.ProblemID(problemID),
		SubmitTime:  contestStart.Add(at),
		ContestTime: shared.ContestSeconds(at.Seconds()),
		Valid:       true,
		AfterFreeze: at >= 4*time.Hour,
		Judgehost:   "judgehost-1",
	}
	if verdict != submission.VerdictPending {
		end := sub.SubmitTime.Add(10 * time.Second)
		sub.Judging = &submission.Judging{
			ID:           id,
			SubmissionID: sub.ID,
			Verdict:      verdict,
			Verified:     true,
			Valid:        true,
			EndTime:      &end,
		}
	}
	e.store.PutSubmission(sub)
	return sub
}

func (e *testEnv) calc(t *testing.T, teamID, problemID int64, updateRank bool) *CalculateScoreRowResult {
	t.Helper()
	result, err := e.score.Handle(context.Background(), CalculateScoreRowCommand{
		ContestID:  1,
		TeamID:     shared.TeamID(teamID),
		ProblemID:  shared.ProblemID(problemID),
		UpdateRank: updateRank,
	})
	require.NoError(t, err)
	return result
}

// ─────────────────────────────────────────────────────────────────────────────
// Score row recompute
// ─────────────────────────────────────────────────────────────────────────────

func TestCalculateScoreRow_FirstCorrectWins(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)
	env.addSubmission(3, 1, 1, 30*time.Minute, submission.VerdictCorrect)

	result := env.calc(t, 1, 1, false)

	row := result.Row
	assert.True(t, row.Restricted.Correct)
	assert.InDelta(t, 1200.0, row.Restricted.SolveTime.Float64(), 0.001)
	// The walk stops at the first correct submission; the later one is
	// never counted.
	assert.Equal(t, 2, row.Restricted.Attempts)
	assert.Equal(t, 0, row.Restricted.Pending)
	assert.True(t, result.BecameCorrect)
}

func TestCalculateScoreRow_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	first := env.calc(t, 1, 1, false)
	second := env.calc(t, 1, 1, false)

	assert.Equal(t, first.Row, second.Row)
	assert.True(t, first.BecameCorrect)
	assert.False(t, second.BecameCorrect)
}

func TestCalculateScoreRow_FreezeVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 4*time.Hour+10*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row

	// Restricted sees the verdict; the public variant shows only a
	// pending submission until the unfreeze.
	assert.True(t, row.Restricted.Correct)
	assert.Equal(t, 1, row.Restricted.Attempts)
	assert.False(t, row.Public.Correct)
	assert.Equal(t, 0, row.Public.Attempts)
	assert.Equal(t, 1, row.Public.Pending)
}

func TestCalculateScoreRow_FreezeWithoutPendingDisplay(t *testing.T) {
	env := newTestEnv(t)
	opts := scoring.DefaultOptions()
	opts.ShowPending = false
	env.store.SetOptions(1, opts)
	env.addSubmission(1, 1, 1, 4*time.Hour+10*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row

	assert.Equal(t, 0, row.Public.Pending)
	assert.Equal(t, 0, row.Public.Attempts)
}

func TestCalculateScoreRow_PendingSubmission(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictPending)

	row := env.calc(t, 1, 1, false).Row

	assert.Equal(t, 1, row.Public.Pending)
	assert.Equal(t, 1, row.Restricted.Pending)
	assert.Equal(t, 0, row.Restricted.Attempts)
}

func TestCalculateScoreRow_VerificationRequired(t *testing.T) {
	env := newTestEnv(t)
	opts := scoring.DefaultOptions()
	opts.VerificationRequired = true
	env.store.SetOptions(1, opts)

	sub := env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictCorrect)
	sub.Judging.Verified = false

	row := env.calc(t, 1, 1, false).Row

	// Unverified verdicts stay pending for everyone.
	assert.False(t, row.Restricted.Correct)
	assert.Equal(t, 1, row.Restricted.Pending)
	assert.Equal(t, 1, row.Public.Pending)

	sub.Judging.Verified = true
	row = env.calc(t, 1, 1, false).Row
	assert.True(t, row.Restricted.Correct)
}

func TestCalculateScoreRow_CompilerErrorExcluded(t *testing.T) {
	env := newTestEnv(t)
	opts := scoring.DefaultOptions()
	opts.CompilePenalty = false
	env.store.SetOptions(1, opts)

	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictCompilerError)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row

	assert.True(t, row.Restricted.Correct)
	assert.Equal(t, 1, row.Restricted.Attempts)
}

func TestCalculateScoreRow_CompilerErrorCounted(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictCompilerError)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row

	assert.Equal(t, 2, row.Restricted.Attempts)
}

func TestCalculateScoreRow_InvalidSubmissionIgnored(t *testing.T) {
	env := newTestEnv(t)
	sub := env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictCorrect)
	sub.Valid = false

	row := env.calc(t, 1, 1, false).Row

	assert.False(t, row.Restricted.Correct)
	assert.Equal(t, 0, row.Restricted.Attempts)
}

// ─────────────────────────────────────────────────────────────────────────────
// First to solve
// ─────────────────────────────────────────────────────────────────────────────

func TestCalculateScoreRow_FirstToSolve(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row
	assert.True(t, row.FirstToSolve)
}

func TestCalculateScoreRow_FirstToSolve_BlockedByEarlierPending(t *testing.T) {
	env := newTestEnv(t)
	// Team 2 (same class) has an unjudged submission before team 1's solve.
	env.addSubmission(1, 2, 1, 10*time.Minute, submission.VerdictPending)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row
	assert.False(t, row.FirstToSolve)
}

func TestCalculateScoreRow_FirstToSolve_EarlierWrongDoesNotBlock(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 2, 1, 10*time.Minute, submission.VerdictWrongAnswer)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row
	assert.True(t, row.FirstToSolve)
}

func TestCalculateScoreRow_FirstToSolve_OtherClassIgnored(t *testing.T) {
	env := newTestEnv(t)
	// Team 3 is in a different sort-order class; its earlier pending
	// submission does not compete for first-to-solve.
	env.addSubmission(1, 3, 1, 10*time.Minute, submission.VerdictPending)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	row := env.calc(t, 1, 1, false).Row
	assert.True(t, row.FirstToSolve)
}

// ─────────────────────────────────────────────────────────────────────────────
// Rank follow-up and locking
// ─────────────────────────────────────────────────────────────────────────────

func TestCalculateScoreRow_TriggersRankUpdate(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	result := env.calc(t, 1, 1, true)
	assert.True(t, result.RankUpdated)

	rank, err := env.store.RankRows().Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, rank.Restricted.Points)
	assert.Equal(t, int64(20), rank.Restricted.TotalTime)
}

func TestCalculateScoreRow_NoRankUpdateForIncorrectRow(t *testing.T) {
	env := newTestEnv(t)
	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictWrongAnswer)

	result := env.calc(t, 1, 1, true)
	assert.False(t, result.RankUpdated)

	_, err := env.store.RankRows().Get(context.Background(), 1, 1)
	assert.True(t, shared.IsNotFound(err))
}

func TestCalculateScoreRow_RankUpdateWhenPenaltyChanges(t *testing.T) {
	env := newTestEnv(t)
	pending := env.addSubmission(1, 1, 1, 10*time.Minute, submission.VerdictPending)
	env.addSubmission(2, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	result := env.calc(t, 1, 1, true)
	require.True(t, result.RankUpdated)
	rank, err := env.store.RankRows().Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20), rank.Restricted.TotalTime)

	// The pending submission is judged wrong: correctness stays true but
	// the attempt count, and with it the penalty, changes.
	end := pending.SubmitTime.Add(10 * time.Second)
	pending.Judging = &submission.Judging{
		ID:           1,
		SubmissionID: pending.ID,
		Verdict:      submission.VerdictWrongAnswer,
		Verified:     true,
		Valid:        true,
		EndTime:      &end,
	}

	result = env.calc(t, 1, 1, true)
	assert.False(t, result.BecameCorrect)
	assert.True(t, result.RankUpdated)
	assert.Equal(t, 2, result.Row.Restricted.Attempts)

	rank, err = env.store.RankRows().Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(40), rank.Restricted.TotalTime)
}

func TestCalculateScoreRow_RankUpdateWhenSolveInvalidated(t *testing.T) {
	env := newTestEnv(t)
	sub := env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	result := env.calc(t, 1, 1, true)
	require.True(t, result.RankUpdated)

	// The solve is invalidated after a rejudge: the row loses its
	// correctness and the rank row has to follow.
	sub.Valid = false

	result = env.calc(t, 1, 1, true)
	assert.False(t, result.Row.Restricted.Correct)
	assert.True(t, result.RankUpdated)

	rank, err := env.store.RankRows().Get(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, rank.Restricted.Points)
	assert.Equal(t, int64(0), rank.Restricted.TotalTime)
}

func TestCalculateScoreRow_LockContention(t *testing.T) {
	env := newTestEnv(t)
	env.store.SetLockTimeout(50 * time.Millisecond)
	env.addSubmission(1, 1, 1, 20*time.Minute, submission.VerdictCorrect)

	ctx := context.Background()
	unlock, err := env.store.Locker().LockScoreRow(ctx, 1, 1, 1)
	require.NoError(t, err)

	_, err = env.score.Handle(ctx, CalculateScoreRowCommand{ContestID: 1, TeamID: 1, ProblemID: 1})
	require.Error(t, err)
	assert.True(t, shared.IsLockContention(err))

	require.NoError(t, unlock.Unlock(ctx))

	_, err = env.score.Handle(ctx, CalculateScoreRowCommand{ContestID: 1, TeamID: 1, ProblemID: 1})
	assert.NoError(t, err)
}

func TestCalculateScoreRow_Validation(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.score.Handle(context.Background(), CalculateScoreRowCommand{})
	require.Error(t, err)
	assert.True(t, shared.IsValidation(err))
}
