package contest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContest(t *testing.T) *Contest {
	t.Helper()

	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	c, err := NewContest(1, "Test Contest", "test", start, start.Add(5*time.Hour))
	require.NoError(t, err)

	_, err = c.WithFreeze(start.Add(4 * time.Hour))
	require.NoError(t, err)
	_, err = c.WithUnfreeze(start.Add(6 * time.Hour))
	require.NoError(t, err)

	return c
}

func TestFreezeData_BeforeStart(t *testing.T) {
	c := testContest(t)
	f := c.FreezeData(c.StartTime.Add(-time.Minute))

	assert.False(t, f.Started())
	assert.False(t, f.Running())
	assert.False(t, f.ShowFrozen())
}

func TestFreezeData_Running(t *testing.T) {
	c := testContest(t)
	f := c.FreezeData(c.StartTime.Add(time.Hour))

	assert.True(t, f.Started())
	assert.True(t, f.Running())
	assert.False(t, f.ShowFrozen())
	assert.False(t, f.ShowFinal(true))
}

func TestFreezeData_FrozenPhase(t *testing.T) {
	c := testContest(t)
	f := c.FreezeData(c.StartTime.Add(4*time.Hour + time.Minute))

	assert.True(t, f.Running())
	assert.True(t, f.ShowFrozen())
}

func TestFreezeData_EndedButStillFrozen(t *testing.T) {
	c := testContest(t)
	f := c.FreezeData(c.StartTime.Add(5*time.Hour + time.Minute))

	assert.True(t, f.Stopped())
	assert.True(t, f.ShowFrozen())
	// Jury sees the final standings, the public does not yet.
	assert.True(t, f.ShowFinal(true))
	assert.False(t, f.ShowFinal(false))
}

func TestFreezeData_Unfrozen(t *testing.T) {
	c := testContest(t)
	f := c.FreezeData(c.StartTime.Add(7 * time.Hour))

	assert.False(t, f.ShowFrozen())
	assert.True(t, f.ShowFinal(false))
}

func TestFreezeData_NoFreezeConfigured(t *testing.T) {
	start := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	c, err := NewContest(2, "No Freeze", "nofreeze", start, start.Add(time.Hour))
	require.NoError(t, err)

	f := c.FreezeData(start.Add(2 * time.Hour))
	assert.False(t, f.ShowFrozen())
	assert.True(t, f.ShowFinal(false))
}

func TestContest_IsAfterFreeze(t *testing.T) {
	c := testContest(t)

	assert.False(t, c.IsAfterFreeze(c.StartTime.Add(time.Hour)))
	assert.True(t, c.IsAfterFreeze(c.StartTime.Add(4*time.Hour+time.Second)))
	assert.False(t, c.IsAfterFreeze(c.StartTime.Add(7*time.Hour)))
}

func TestContest_ContestTime(t *testing.T) {
	c := testContest(t)

	assert.InDelta(t, 3600.0, c.ContestTime(c.StartTime.Add(time.Hour)).Float64(), 0.001)
	assert.InDelta(t, -60.0, c.ContestTime(c.StartTime.Add(-time.Minute)).Float64(), 0.001)
}
