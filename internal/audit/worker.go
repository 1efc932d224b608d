package audit

import (
	"context"
	"log/slog"
	"time"
)

const (
	drainBatchSize = 64
	flushTimeout   = 5 * time.Second
)

// Worker drains the publisher's buffer in the background and writes batches
// to every configured sink. A failing sink is logged and skipped so one slow
// destination never stalls the others.
type Worker struct {
	pub    *Publisher
	sinks  []Sink
	logger *slog.Logger
}

func NewWorker(pub *Publisher, sinks []Sink, logger *slog.Logger) *Worker {
	return &Worker{pub: pub, sinks: sinks, logger: logger}
}

// Run processes events until ctx is cancelled, then flushes whatever is
// still buffered before returning ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
			w.drain(flushCtx)
			cancel()
			return ctx.Err()
		case <-w.pub.wake:
			w.drain(ctx)
		}
	}
}

func (w *Worker) drain(ctx context.Context) {
	for {
		batch := w.pub.buf.DequeueBatch(drainBatchSize)
		if len(batch) == 0 {
			return
		}
		for _, sink := range w.sinks {
			if err := sink.Write(ctx, batch); err != nil {
				w.logger.Warn("audit sink write failed",
					"sink", sink.Name(),
					"events", len(batch),
					"error", err,
				)
			}
		}
	}
}
