package audit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu     sync.Mutex
	events []Event
	fail   error
	writes int
}

func (s *captureSink) Name() string { return "capture" }

func (s *captureSink) Write(_ context.Context, events []Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.fail != nil {
		return s.fail
	}
	s.events = append(s.events, events...)
	return nil
}

func (s *captureSink) Close() error { return nil }

func (s *captureSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func (s *captureSink) snapshot() []Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Event(nil), s.events...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestWorker_DeliversEventsInOrder(t *testing.T) {
	pub := NewPublisher(16)
	sink := &captureSink{}
	worker := NewWorker(pub, []Sink{sink}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub.Emit(Event{Path: "/qa", Decision: "allow", Reason: "authenticated"})
	pub.Emit(Event{Path: "/claim", Decision: "redirect", Reason: "no_session"})

	require.Eventually(t, func() bool { return sink.count() == 2 }, time.Second, 10*time.Millisecond)

	events := sink.snapshot()
	assert.Equal(t, "/qa", events[0].Path)
	assert.Equal(t, "/claim", events[1].Path)
	assert.NotEmpty(t, events[0].ID)
	assert.False(t, events[0].Time.IsZero())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestWorker_FlushesBufferOnShutdown(t *testing.T) {
	pub := NewPublisher(16)
	sink := &captureSink{}
	worker := NewWorker(pub, []Sink{sink}, discardLogger())

	for i := range 5 {
		pub.Emit(Event{Path: "/discover", Reason: string(rune('a' + i))})
	}

	// Cancel before the worker ever runs: Run must still flush what is
	// buffered before returning.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := worker.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 5, sink.count())
	assert.Equal(t, 0, pub.Pending())
}

func TestWorker_FailingSinkDoesNotStopOthers(t *testing.T) {
	pub := NewPublisher(16)
	broken := &captureSink{fail: errors.New("kafka unreachable")}
	healthy := &captureSink{}
	worker := NewWorker(pub, []Sink{broken, healthy}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	pub.Emit(Event{Path: "/qa", Decision: "allow"})

	require.Eventually(t, func() bool { return healthy.count() == 1 }, time.Second, 10*time.Millisecond)

	// The worker keeps accepting new work after a sink failure.
	pub.Emit(Event{Path: "/claim", Decision: "redirect"})
	require.Eventually(t, func() bool { return healthy.count() == 2 }, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	broken.mu.Lock()
	assert.GreaterOrEqual(t, broken.writes, 2)
	broken.mu.Unlock()
}

func TestWorker_BatchesLargeBacklog(t *testing.T) {
	pub := NewPublisher(256)
	sink := &captureSink{}
	worker := NewWorker(pub, []Sink{sink}, discardLogger())

	for range 150 {
		pub.Emit(Event{Path: "/qa"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, worker.Run(ctx), context.Canceled)

	assert.Equal(t, 150, sink.count())
	sink.mu.Lock()
	assert.GreaterOrEqual(t, sink.writes, 3, "150 events should arrive in batches of at most %d", drainBatchSize)
	sink.mu.Unlock()
}
