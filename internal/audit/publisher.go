package audit

import (
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var droppedTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "sessiongate_audit_events_dropped_total",
	Help: "Total number of audit events dropped because the buffer was full",
})

// Publisher accepts audit events on the request path and hands them to a
// background worker through a bounded buffer. Emit never blocks: when the
// buffer is full the oldest event is dropped and counted.
type Publisher struct {
	buf  *RingBuffer
	wake chan struct{}
}

// NewPublisher creates a publisher with a buffer of the given capacity.
func NewPublisher(capacity int) *Publisher {
	return &Publisher{
		buf:  NewRingBuffer(capacity),
		wake: make(chan struct{}, 1),
	}
}

// Emit queues an event for delivery, assigning an ID and timestamp when the
// caller left them unset.
func (p *Publisher) Emit(event Event) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Time.IsZero() {
		event.Time = time.Now().UTC()
	}
	if p.buf.Enqueue(event) {
		droppedTotal.Inc()
	}
	select {
	case p.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of events waiting for delivery.
func (p *Publisher) Pending() int {
	return p.buf.Len()
}

// Dropped returns the total number of events dropped since startup.
func (p *Publisher) Dropped() int64 {
	return p.buf.Dropped()
}
