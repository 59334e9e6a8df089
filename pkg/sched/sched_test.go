package sched

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-pink/pink/pkg/errors"
)

func TestGoAppliesOnWaitingGoroutine(t *testing.T) {
	s := New()
	var events []string
	s.On(EventBegin, func(e Event) { events = append(events, "begin") })
	s.On(EventEnd, func(e Event) { events = append(events, "end") })
	s.On(EventSettled, func(Event) { events = append(events, "settled") })

	var applied any
	id := s.Go("fetch", func(ctx context.Context) (any, error) {
		return "data", nil
	}, func(v any, err error) error {
		applied = v
		return err
	})
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Outstanding())

	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, "data", applied)
	assert.Equal(t, 0, s.Outstanding())
	assert.Equal(t, []string{"begin", "end", "settled"}, events)
}

func TestNestedTasksSettleOnce(t *testing.T) {
	s := New()
	settled := 0
	s.On(EventSettled, func(Event) { settled++ })

	var order []string
	s.Go("outer", func(context.Context) (any, error) { return nil, nil }, func(any, error) error {
		order = append(order, "outer")
		s.Go("inner", func(context.Context) (any, error) { return nil, nil }, func(any, error) error {
			order = append(order, "inner")
			return nil
		})
		return nil
	})
	require.NoError(t, s.Wait(context.Background()))
	assert.Equal(t, []string{"outer", "inner"}, order)
	assert.Equal(t, 1, settled)
}

func TestWaitJoinsErrors(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	s.Go("a", func(context.Context) (any, error) { return nil, boom }, func(_ any, err error) error { return err })
	s.Go("b", func(context.Context) (any, error) { panic("bad") }, nil)

	err := s.Wait(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	var pe *errors.PanicError
	assert.True(t, errors.As(err, &pe))
	assert.NoError(t, s.Wait(context.Background()), "errors are reported once")
}

func TestWaitHonorsContext(t *testing.T) {
	s := New()
	release := make(chan struct{})
	s.Go("slow", func(context.Context) (any, error) {
		<-release
		return nil, nil
	}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, s.Wait(context.Background()))
}

func TestDispatchFromOtherGoroutines(t *testing.T) {
	s := New()
	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go s.Dispatch(func() {})
	}
	go func() {
		s.Dispatch(func() { close(done) })
	}()
	deadline := time.After(time.Second)
	for {
		s.Flush()
		select {
		case <-done:
			return
		case <-deadline:
			t.Fatal("dispatched callback never ran")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestCloseCancelsTasks(t *testing.T) {
	s := New()
	s.Go("wait", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, func(_ any, err error) error { return err })
	s.Close()
	assert.ErrorIs(t, s.Wait(context.Background()), context.Canceled)
}

func TestRunDrainsUntilCancelled(t *testing.T) {
	s := New()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	ran := make(chan struct{})
	s.Dispatch(func() { close(ran) })
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatched callback did not run")
	}

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return")
	}
}
