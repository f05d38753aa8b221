package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
	ran  chan struct{}
	err  error
}

func newStubJob(name string) *stubJob {
	return &stubJob{name: name, ran: make(chan struct{}, 8)}
}

func (j *stubJob) Name() string        { return j.name }
func (j *stubJob) Description() string { return "stub job" }

func (j *stubJob) Run(ctx context.Context) error {
	j.ran <- struct{}{}
	return j.err
}

func TestScheduler_RegisterValidation(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Minute)), ErrNilJob)
	assert.ErrorIs(t, s.Register(newStubJob("rebuild"), nil), ErrNilSchedule)

	require.NoError(t, s.Register(newStubJob("rebuild"), NewIntervalSchedule(time.Minute)))
	assert.ErrorIs(t, s.Register(newStubJob("rebuild"), NewIntervalSchedule(time.Minute)), ErrJobAlreadyExists)
}

func TestScheduler_StartStopLifecycle(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())

	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)

	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)

	require.NoError(t, s.Stop())
	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
}

func TestScheduler_RunsDueJob(t *testing.T) {
	s := NewScheduler(DefaultSchedulerConfig())
	job := newStubJob("warm-scoreboards")
	require.NoError(t, s.Register(job, NewIntervalSchedule(100*time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	defer func() { _ = s.Stop() }()

	select {
	case <-job.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("job was not launched")
	}
}

func TestIntervalSchedule_Next(t *testing.T) {
	sched := NewIntervalSchedule(5 * time.Minute)
	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)

	assert.Equal(t, base.Add(5*time.Minute), sched.Next(base))
	assert.Equal(t, "@every 5m0s", sched.String())
}

func TestParseCronExpression(t *testing.T) {
	expr, err := ParseCronExpression("30 3 * * *")
	require.NoError(t, err)

	base := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	next := expr.Next(base)
	assert.Equal(t, time.Date(2026, 6, 2, 3, 30, 0, 0, time.UTC), next)

	_, err = ParseCronExpression("not a cron")
	assert.Error(t, err)
}
