package pipeline

import (
	"context"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// RunIngestPipeline drains q into sink in batches until ctx is done, then
// flushes whatever is still queued.
func RunIngestPipeline(ctx context.Context, q ports.ReadingQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) {
	idle := pol.IdleSleep
	if idle <= 0 {
		idle = 5 * time.Millisecond
	}

	for {
		select {
		case <-ctx.Done():
			for writeBatch(q, sink, pol, obs) {
			}
			return
		default:
		}

		if !writeBatch(q, sink, pol, obs) {
			select {
			case <-ctx.Done():
			case <-time.After(idle):
			}
		}
	}
}

// writeBatch returns false when the queue was empty.
func writeBatch(q ports.ReadingQueue, sink ports.Sink, pol ports.Policy, obs ports.Observability) bool {
	batch := q.DequeueBatch(pol.MaxBatchSize)
	if len(batch) == 0 {
		return false
	}

	start := time.Now()
	if err := sink.WriteBatch(batch); err != nil {
		obs.LogError("sink_write_failed", err,
			ports.Field{Key: "sink", Value: sink.Name()},
			ports.Field{Key: "dropped", Value: len(batch)},
		)
		obs.IncCounter("nuro_sink_failures_total", 1)
		return true
	}
	obs.ObserveLatency("nuro_sink_latency_seconds", time.Since(start).Seconds())
	obs.IncCounter("nuro_readings_persisted_total", float64(len(batch)))
	return true
}
