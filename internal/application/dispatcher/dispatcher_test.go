package dispatcher

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldclaims/fieldclaims/internal/domain/event"
)

type recordingLogger struct {
	errorCount atomic.Int32
}

func (l *recordingLogger) Info(msg string, keysAndValues ...interface{}) {}
func (l *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	l.errorCount.Add(1)
}

func TestDispatch_RoutesToSubscribedHandlers(t *testing.T) {
	d := New(&recordingLogger{})

	var calls atomic.Int32
	d.Subscribe(event.TypeClaimCreated, "counter", func(ctx context.Context, evt *event.Event) error {
		calls.Add(1)
		return nil
	})
	d.Subscribe(event.TypeClaimPaid, "other", func(ctx context.Context, evt *event.Event) error {
		t.Error("handler for a different type must not run")
		return nil
	})

	d.Dispatch(context.Background(), event.New(event.TypeClaimCreated, 7, 9, nil))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(1), calls.Load())
}

func TestDispatch_HandlerErrorsDoNotPropagate(t *testing.T) {
	logger := &recordingLogger{}
	d := New(logger)

	d.Subscribe(event.TypeUnitSubmitted, "failing", func(ctx context.Context, evt *event.Event) error {
		return errors.New("notification endpoint down")
	})

	d.Dispatch(context.Background(), event.New(event.TypeUnitSubmitted, 7, 9, nil))
	require.NoError(t, d.Close())

	assert.Equal(t, int32(1), logger.errorCount.Load())
}

func TestDispatch_RecoversFromHandlerPanic(t *testing.T) {
	logger := &recordingLogger{}
	d := New(logger)

	d.Subscribe(event.TypeUnitApproved, "panicking", func(ctx context.Context, evt *event.Event) error {
		panic("boom")
	})
	var survived atomic.Bool
	d.Subscribe(event.TypeUnitApproved, "surviving", func(ctx context.Context, evt *event.Event) error {
		survived.Store(true)
		return nil
	})

	d.Dispatch(context.Background(), event.New(event.TypeUnitApproved, 7, 9, nil))
	require.NoError(t, d.Close())

	assert.True(t, survived.Load())
	assert.Equal(t, int32(1), logger.errorCount.Load())
}

func TestDispatch_AfterCloseDropsEvent(t *testing.T) {
	d := New(&recordingLogger{})

	var calls atomic.Int32
	d.Subscribe(event.TypeClaimPaid, "counter", func(ctx context.Context, evt *event.Event) error {
		calls.Add(1)
		return nil
	})

	require.NoError(t, d.Close())
	d.Dispatch(context.Background(), event.New(event.TypeClaimPaid, 7, 9, nil))

	assert.Equal(t, int32(0), calls.Load())
	assert.Error(t, d.Close())
}

// Exercises Close racing concurrent Dispatch calls: every handler that was
// admitted must have finished by the time Close returns, and no Dispatch
// may slip past the closed check into a Close that already started waiting.
func TestClose_WaitsForConcurrentDispatches(t *testing.T) {
	d := New(&recordingLogger{})

	var started, finished atomic.Int32
	d.Subscribe(event.TypeUnitSubmitted, "slow", func(ctx context.Context, evt *event.Event) error {
		started.Add(1)
		finished.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d.Dispatch(context.Background(), event.New(event.TypeUnitSubmitted, 7, 9, nil))
		}()
	}

	require.NoError(t, d.Close())
	assert.Equal(t, started.Load(), finished.Load())

	wg.Wait()
	assert.Equal(t, started.Load(), finished.Load())
}
