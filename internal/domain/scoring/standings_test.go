package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func standing(teamID int64, sortOrder int, points int, totalTime int64) *Standing {
	return NewStanding(shared.TeamID(teamID), shared.SortOrder(sortOrder), RankScore{Points: points, TotalTime: totalTime})
}

func TestStandings_SortByPointsThenTime(t *testing.T) {
	s := NewStandings(VariantRestricted, false)
	require.NoError(t, s.Add(standing(1, 0, 2, 300)))
	require.NoError(t, s.Add(standing(2, 0, 3, 500)))
	require.NoError(t, s.Add(standing(3, 0, 2, 100)))

	s.Sort()

	all := s.All()
	assert.Equal(t, shared.TeamID(2), all[0].TeamID)
	assert.Equal(t, shared.TeamID(3), all[1].TeamID)
	assert.Equal(t, shared.TeamID(1), all[2].TeamID)
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, 2, all[1].Rank)
	assert.Equal(t, 3, all[2].Rank)
}

func TestStandings_SortOrdersAreIndependent(t *testing.T) {
	s := NewStandings(VariantRestricted, false)
	require.NoError(t, s.Add(standing(1, 1, 5, 100)))
	require.NoError(t, s.Add(standing(2, 0, 1, 900)))

	s.Sort()

	// The unofficial class sorts after the official one but still gets
	// rank 1 within its own class.
	all := s.All()
	assert.Equal(t, shared.TeamID(2), all[0].TeamID)
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, shared.TeamID(1), all[1].TeamID)
	assert.Equal(t, 1, all[1].Rank)
}

func TestStandings_TiebreakerOrdersEqualScores(t *testing.T) {
	a := standing(1, 0, 1, 50)
	a.SetCell(10, ScoreCell{Correct: true, SolveTime: 300}, false) // solved at minute 5
	b := standing(2, 0, 1, 50)
	b.SetCell(10, ScoreCell{Correct: true, SolveTime: 480}, false) // solved at minute 8

	s := NewStandings(VariantRestricted, false)
	require.NoError(t, s.Add(b))
	require.NoError(t, s.Add(a))

	s.Sort()

	all := s.All()
	assert.Equal(t, shared.TeamID(1), all[0].TeamID)
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, 2, all[1].Rank)
}

func TestStandings_FullTieSharesRank(t *testing.T) {
	a := standing(1, 0, 1, 50)
	a.SetCell(10, ScoreCell{Correct: true, SolveTime: 300}, false)
	b := standing(2, 0, 1, 50)
	b.SetCell(10, ScoreCell{Correct: true, SolveTime: 300}, false)
	c := standing(3, 0, 1, 60)

	s := NewStandings(VariantRestricted, false)
	require.NoError(t, s.Add(a))
	require.NoError(t, s.Add(b))
	require.NoError(t, s.Add(c))

	s.Sort()

	all := s.All()
	assert.Equal(t, 1, all[0].Rank)
	assert.Equal(t, 1, all[1].Rank)
	assert.Equal(t, 3, all[2].Rank)
}

func TestStandings_DuplicateTeamRejected(t *testing.T) {
	s := NewStandings(VariantPublic, false)
	require.NoError(t, s.Add(standing(1, 0, 0, 0)))

	err := s.Add(standing(1, 0, 0, 0))
	assert.ErrorIs(t, err, ErrDuplicateTeam)
}

func TestStandings_RankMonotonicity(t *testing.T) {
	// More points always means a strictly better rank within a class.
	s := NewStandings(VariantRestricted, false)
	for i := int64(1); i <= 6; i++ {
		require.NoError(t, s.Add(standing(i, 0, int(i), 1000-i*10)))
	}

	s.Sort()

	all := s.All()
	for i := 1; i < len(all); i++ {
		if all[i-1].Score.Points > all[i].Score.Points {
			assert.Less(t, all[i-1].Rank, all[i].Rank)
		}
	}
}
