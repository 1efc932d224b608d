package audit

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublisher_AssignsIDAndTime(t *testing.T) {
	pub := NewPublisher(8)

	before := time.Now().UTC()
	pub.Emit(Event{Path: "/qa", Decision: "allow", Reason: "authenticated"})
	after := time.Now().UTC()

	batch := pub.buf.DequeueBatch(1)
	require.Len(t, batch, 1)

	_, err := uuid.Parse(batch[0].ID)
	assert.NoError(t, err, "ID should be a generated UUID")
	assert.True(t, !batch[0].Time.Before(before), "time should be >= before")
	assert.True(t, !batch[0].Time.After(after), "time should be <= after")
}

func TestPublisher_PreservesCallerIDAndTime(t *testing.T) {
	pub := NewPublisher(8)
	at := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)

	pub.Emit(Event{ID: "fixed", Time: at, Path: "/discover"})

	batch := pub.buf.DequeueBatch(1)
	require.Len(t, batch, 1)
	assert.Equal(t, "fixed", batch[0].ID)
	assert.Equal(t, at, batch[0].Time)
}

func TestPublisher_EmitNeverBlocks(t *testing.T) {
	pub := NewPublisher(2)

	// No worker is draining: every Emit past capacity drops the oldest
	// instead of blocking the caller.
	done := make(chan struct{})
	go func() {
		for i := range 10 {
			pub.Emit(Event{Path: "/claim", Reason: string(rune('a' + i))})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked with a full buffer")
	}

	assert.Equal(t, 2, pub.Pending())
	assert.Equal(t, int64(8), pub.Dropped())
}

func TestPublisher_WakeSignalCoalesces(t *testing.T) {
	pub := NewPublisher(8)

	for range 5 {
		pub.Emit(Event{Path: "/qa"})
	}

	// The wake channel holds at most one token no matter how many events
	// were emitted; one drain pass picks up everything.
	assert.Len(t, pub.wake, 1)
	assert.Equal(t, 5, pub.Pending())
}
