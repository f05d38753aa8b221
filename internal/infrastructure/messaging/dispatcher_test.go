package messaging

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codearena/scoring-engine/internal/domain/shared"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestDispatcher() *Dispatcher {
	config := DefaultDispatcherConfig(nil)
	config.RetryConfig.InitialBackoff = time.Millisecond
	config.RetryConfig.MaxBackoff = 5 * time.Millisecond
	return NewDispatcher(config)
}

func TestDispatcher_RoutesEventToHandler(t *testing.T) {
	d := newTestDispatcher()
	defer func() { _ = d.Stop() }()

	var calls int32
	err := d.RegisterHandler(shared.EventScoreRowUpdated, HandlerRegistration{
		Name: "record-call",
		Handler: func(event shared.Event) error {
			atomic.AddInt32(&calls, 1)
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(shared.NewScoreRowUpdatedEvent(1, 2, 3, true)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	// No registration for this type, dispatch is a no-op.
	require.NoError(t, d.Dispatch(shared.NewCacheRebuiltEvent(1, "run-1", 10, time.Second)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDispatcher_RetriesUntilSuccess(t *testing.T) {
	d := newTestDispatcher()
	defer func() { _ = d.Stop() }()

	var attempts int32
	err := d.RegisterHandler(shared.EventJudgingResultChanged, HandlerRegistration{
		Name:       "flaky-recompute",
		MaxRetries: 3,
		Handler: func(event shared.Event) error {
			if atomic.AddInt32(&attempts, 1) < 3 {
				return errors.New("transient")
			}
			return nil
		},
	})
	require.NoError(t, err)

	require.NoError(t, d.Dispatch(shared.NewJudgingResultChangedEvent(1, 2, 3, 4, "AC")))
	assert.Equal(t, int32(3), atomic.LoadInt32(&attempts))
	assert.Equal(t, 0, d.DeadLetterQueue().Size())
}

func TestDispatcher_DeadLetterAfterExhaustedRetries(t *testing.T) {
	d := newTestDispatcher()
	defer func() { _ = d.Stop() }()

	err := d.RegisterHandler(shared.EventJudgingResultChanged, HandlerRegistration{
		Name:       "broken-recompute",
		MaxRetries: 1,
		Handler: func(event shared.Event) error {
			return errors.New("persistent failure")
		},
	})
	require.NoError(t, err)

	err = d.Dispatch(shared.NewJudgingResultChangedEvent(1, 2, 3, 4, "AC"))
	require.Error(t, err)

	entries := d.DeadLetterQueue().Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken-recompute", entries[0].HandlerName)
	assert.Equal(t, 2, entries[0].Attempts)
	assert.Equal(t, shared.EventJudgingResultChanged, entries[0].Event.EventType())
}

func TestDispatcher_RecoveryMiddlewareTurnsPanicIntoError(t *testing.T) {
	d := newTestDispatcher()
	defer func() { _ = d.Stop() }()
	d.Use(RecoveryMiddleware(discardLogger()))

	err := d.RegisterHandler(shared.EventSubmissionInvalidated, HandlerRegistration{
		Name:       "panicky",
		MaxRetries: 1,
		Handler: func(event shared.Event) error {
			panic("boom")
		},
	})
	require.NoError(t, err)

	err = d.Dispatch(shared.NewSubmissionInvalidatedEvent(1, 2, 3, 4))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "handler panic")
}

func TestDispatcher_StartSubscribesToBus(t *testing.T) {
	busConfig := DefaultInMemoryEventBusConfig()
	busConfig.AsyncMode = false
	bus := NewInMemoryEventBus(busConfig)

	config := DefaultDispatcherConfig(bus)
	d := NewDispatcher(config)
	defer func() { _ = d.Stop() }()

	var calls int32
	require.NoError(t, d.Register(shared.EventRankRowUpdated, "count", func(event shared.Event) error {
		atomic.AddInt32(&calls, 1)
		return nil
	}))
	require.NoError(t, d.Start())

	require.NoError(t, bus.Publish(shared.NewRankRowUpdatedEvent(1, 2, 3, 40)))
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDeadLetterQueue_DropsOldestWhenFull(t *testing.T) {
	q := NewDeadLetterQueue(2)

	for i, name := range []string{"first", "second", "third"} {
		q.Add(DeadLetterEntry{
			Event:       shared.NewScoreRowUpdatedEvent(1, int64(i), 1, false),
			HandlerName: name,
		})
	}

	require.Equal(t, 2, q.Size())
	entries := q.Entries()
	assert.Equal(t, "second", entries[0].HandlerName)
	assert.Equal(t, "third", entries[1].HandlerName)
}
