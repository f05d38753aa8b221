package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func score(teamID int64, times ...int64) *TeamScore {
	ts := NewTeamScore(shared.TeamID(teamID))
	ts.SolveTimes = times
	return ts
}

func TestCompareTeamScores_EarlierLastSolveWins(t *testing.T) {
	a := score(1, 5, 100)
	b := score(2, 5, 120)

	assert.Negative(t, CompareTeamScores(a, b))
	assert.Positive(t, CompareTeamScores(b, a))
}

func TestCompareTeamScores_LastSolveDecidesBeforeEarlierOnes(t *testing.T) {
	// a solved its last problem at 90, b at 100. a wins even though b was
	// faster on every earlier problem.
	a := score(1, 80, 85, 90)
	b := score(2, 1, 2, 100)

	assert.Negative(t, CompareTeamScores(a, b))
}

func TestCompareTeamScores_SecondFromLastBreaksTie(t *testing.T) {
	a := score(1, 10, 100)
	b := score(2, 30, 100)

	assert.Negative(t, CompareTeamScores(a, b))
}

func TestCompareTeamScores_Equal(t *testing.T) {
	a := score(1, 10, 50, 100)
	b := score(2, 100, 10, 50)

	// Order of insertion does not matter.
	assert.Zero(t, CompareTeamScores(a, b))
}

func TestCompareTeamScores_PrefixCountsAsEqual(t *testing.T) {
	a := score(1, 100)
	b := score(2, 100, 10)

	assert.Zero(t, CompareTeamScores(a, b))
}

func TestCompareTeamScores_NoSolves(t *testing.T) {
	a := score(1)
	b := score(2)

	assert.Zero(t, CompareTeamScores(a, b))
}

func TestCompareTeamScores_TotalOrder(t *testing.T) {
	// Antisymmetry and transitivity over a small fixed set.
	set := []*TeamScore{
		score(1, 100),
		score(2, 90),
		score(3, 90, 10),
		score(4, 90, 20),
		score(5),
	}

	for _, a := range set {
		for _, b := range set {
			assert.Equal(t, CompareTeamScores(a, b), -CompareTeamScores(b, a))
		}
	}

	for _, a := range set {
		for _, b := range set {
			for _, c := range set {
				if CompareTeamScores(a, b) < 0 && CompareTeamScores(b, c) < 0 {
					assert.Negative(t, CompareTeamScores(a, c))
				}
			}
		}
	}
}
