package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

func TestRunAttentionPipelineDrainsCollector(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	col := &sliceCollector{samples: []*domain.Sample{
		domain.NewSample(t0, 0.9),
		nil,
		domain.NewSample(t0.Add(2*time.Second), 0.1),
		domain.NewSample(t0.Add(4*time.Second), 0.1),
	}}
	sub := &recordingSubmitter{}
	obs := &mockObs{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second}, sub, obs)

	if err := RunAttentionPipeline(context.Background(), col, p, 1, obs); err != nil {
		t.Fatalf("pipeline error: %v", err)
	}
	if p.History().Len() != 3 {
		t.Fatalf("expected 3 readings, got %d", p.History().Len())
	}
	if sub.count() != 1 {
		t.Fatalf("expected one alert, got %d", sub.count())
	}
	if !obs.hasInfo("collector_stream_closed") {
		t.Fatalf("expected stream closed log")
	}
}

func TestRunAttentionPipelineStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	blocking := &blockingCollector{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second}, &recordingSubmitter{}, &mockObs{})
	if err := RunAttentionPipeline(ctx, blocking, p, 0, &mockObs{}); err != nil {
		t.Fatalf("expected clean stop, got %v", err)
	}
}

type blockingCollector struct{}

func (blockingCollector) Start(chan<- *domain.Sample) error { return nil }
func (blockingCollector) Stop() error                       { return nil }

func TestEnqueueWithPolicyBlock(t *testing.T) {
	queue := &mockQueue{}
	queue.failures = 1

	pol := ports.Policy{
		OnQueueFull: "block",
		IdleSleep:   time.Millisecond,
	}
	obs := &mockObs{}

	if ok := enqueueWithPolicy(context.Background(), queue, domain.Reading{}, pol, obs); !ok {
		t.Fatalf("expected enqueue to eventually succeed")
	}
	if queue.calls != 2 {
		t.Fatalf("expected two enqueue attempts, got %d", queue.calls)
	}
}

func TestEnqueueWithPolicyDrop(t *testing.T) {
	queue := &mockQueue{failAlways: true}
	pol := ports.Policy{
		OnQueueFull: "drop",
	}
	obs := &mockObs{}

	if ok := enqueueWithPolicy(context.Background(), queue, domain.Reading{}, pol, obs); ok {
		t.Fatalf("expected enqueueWithPolicy to fail")
	}
	if len(obs.errors) == 0 {
		t.Fatalf("expected drop to log an error")
	}
}

func TestEnqueueWithPolicyBlockHonoursCancel(t *testing.T) {
	queue := &mockQueue{failAlways: true}
	pol := ports.Policy{OnQueueFull: "block", IdleSleep: time.Millisecond}
	obs := &mockObs{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if ok := enqueueWithPolicy(ctx, queue, domain.Reading{}, pol, obs); ok {
		t.Fatalf("expected enqueue to give up once ctx is done")
	}
	if len(obs.errors) == 0 {
		t.Fatalf("expected the abandoned reading to be logged")
	}
}

func TestRunAttentionPipelineFullBlockingQueueStopsOnCancel(t *testing.T) {
	t0 := time.Unix(1700000000, 0)
	col := &sliceCollector{samples: []*domain.Sample{
		domain.NewSample(t0, 0.1),
		domain.NewSample(t0.Add(time.Second), 0.1),
		domain.NewSample(t0.Add(2*time.Second), 0.1),
	}}
	sub := &recordingSubmitter{}
	obs := &mockObs{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second}, sub, obs)
	p.Persist(&mockQueue{failAlways: true}, ports.Policy{OnQueueFull: "block", IdleSleep: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunAttentionPipeline(ctx, col, p, 1, obs) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("pipeline error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("pipeline still blocked after cancel")
	}
	if sub.count() != 1 {
		t.Fatalf("expected the first LOW reading to fire before the queue blocked, got %d", sub.count())
	}
}
