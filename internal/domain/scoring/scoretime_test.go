package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func TestScoreTime_Minutes(t *testing.T) {
	tests := []struct {
		name string
		in   shared.ContestSeconds
		want int64
	}{
		{"zero", 0, 0},
		{"under a minute", 59.9, 0},
		{"exactly one minute", 60, 1},
		{"twenty minutes and change", 1234.5, 20},
		{"five hours", 18000, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ScoreTime(tt.in, false))
		})
	}
}

func TestScoreTime_Seconds(t *testing.T) {
	assert.Equal(t, int64(0), ScoreTime(0.4, true))
	assert.Equal(t, int64(59), ScoreTime(59.9, true))
	assert.Equal(t, int64(1234), ScoreTime(1234.5, true))
}

func TestPenalty_Unsolved(t *testing.T) {
	assert.Equal(t, int64(0), Penalty(false, 5, 20, false))
}

func TestPenalty_FirstAttemptSolve(t *testing.T) {
	assert.Equal(t, int64(0), Penalty(true, 1, 20, false))
}

func TestPenalty_Minutes(t *testing.T) {
	// Three failed attempts before the accepted one.
	assert.Equal(t, int64(60), Penalty(true, 4, 20, false))
}

func TestPenalty_Seconds(t *testing.T) {
	assert.Equal(t, int64(3600), Penalty(true, 4, 20, true))
}
