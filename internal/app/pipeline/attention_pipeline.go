package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// RunAttentionPipeline starts col and feeds its samples through proc until
// ctx is done or the collector closes the channel. Collectors close the
// channel once they stop producing.
func RunAttentionPipeline(ctx context.Context, col ports.Collector, proc *Processor, buffer int, obs ports.Observability) error {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan *domain.Sample, buffer)

	if err := col.Start(ch); err != nil {
		return fmt.Errorf("start collector: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case s, ok := <-ch:
			if !ok {
				obs.LogInfo("collector_stream_closed")
				return nil
			}
			if s == nil {
				continue
			}
			proc.ProcessContext(ctx, s)
		}
	}
}

// enqueueWithPolicy hands r to q. Under the "block" policy it retries every
// IdleSleep until the queue has room or ctx is done.
func enqueueWithPolicy(ctx context.Context, q ports.ReadingQueue, r domain.Reading, pol ports.Policy, obs ports.Observability) bool {
	sleep := pol.IdleSleep
	if sleep <= 0 {
		sleep = 5 * time.Millisecond
	}

	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		if ok := q.Enqueue(r); ok {
			return true
		}

		switch pol.OnQueueFull {
		case "block":
			if timer == nil {
				timer = time.NewTimer(sleep)
			} else {
				timer.Reset(sleep)
			}
			select {
			case <-ctx.Done():
				obs.LogError("queue_full_cancelled", ctx.Err())
				return false
			case <-timer.C:
			}
		case "drop", "reject", "":
			obs.LogError("queue_full_drop", fmt.Errorf("queue length exceeded capacity %d", pol.MaxQueueLen))
			return false
		default:
			obs.LogError("queue_policy_invalid", fmt.Errorf("policy=%s", pol.OnQueueFull))
			return false
		}
	}
}
