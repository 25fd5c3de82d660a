package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

func TestDispatcherRunsJobsAndReportsResults(t *testing.T) {
	obs := &mockObs{}
	results := make(chan *domain.AlertResult, 1)
	action := funcAction(func(ctx context.Context, a domain.Alert) *domain.AlertResult {
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("alert context should carry a deadline")
		}
		return &domain.AlertResult{Alert: a, Message: "ok"}
	})

	d := NewDispatcher(action, DispatcherConfig{Timeout: time.Second}, obs, func(r *domain.AlertResult) { results <- r })
	d.Start(context.Background())

	if !d.Submit(domain.Alert{Episode: 7}) {
		t.Fatalf("submit rejected")
	}

	select {
	case res := <-results:
		if res.Alert.Episode != 7 || res.Message != "ok" {
			t.Fatalf("unexpected result %+v", res)
		}
		if res.Started.IsZero() || res.Finished.IsZero() {
			t.Fatalf("timestamps not filled in")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for alert result")
	}

	if err := d.Close(context.Background()); err != nil {
		t.Fatalf("close: %v", err)
	}
	if d.Submit(domain.Alert{}) {
		t.Fatalf("submit after close must be rejected")
	}
	if err := d.Close(context.Background()); !errors.Is(err, ErrDispatcherClosed) {
		t.Fatalf("expected ErrDispatcherClosed, got %v", err)
	}
}

func TestDispatcherJobSurvivesParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan error, 1)
	release := make(chan struct{})

	action := funcAction(func(jobCtx context.Context, a domain.Alert) *domain.AlertResult {
		<-release
		results <- jobCtx.Err()
		return &domain.AlertResult{Alert: a}
	})
	d := NewDispatcher(action, DispatcherConfig{Timeout: 5 * time.Second}, &mockObs{}, nil)
	d.Start(ctx)
	d.Submit(domain.Alert{})

	cancel()
	close(release)

	select {
	case err := <-results:
		if err != nil {
			t.Fatalf("job context cancelled with parent: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("job did not run")
	}
	_ = d.Close(context.Background())
}

func TestDispatcherFullQueueRejects(t *testing.T) {
	block := make(chan struct{})
	action := funcAction(func(_ context.Context, a domain.Alert) *domain.AlertResult {
		<-block
		return &domain.AlertResult{Alert: a}
	})
	d := NewDispatcher(action, DispatcherConfig{QueueSize: 1}, &mockObs{}, nil)

	// Worker not started yet: the single slot fills and the next submit fails.
	if !d.Submit(domain.Alert{Episode: 1}) {
		t.Fatalf("first submit should fit")
	}
	if d.Submit(domain.Alert{Episode: 2}) {
		t.Fatalf("second submit should be rejected")
	}

	d.Start(context.Background())
	close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := d.Close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestDispatcherRecoversPanickingAction(t *testing.T) {
	obs := &mockObs{}
	results := make(chan *domain.AlertResult, 1)
	action := funcAction(func(context.Context, domain.Alert) *domain.AlertResult {
		panic("boom")
	})
	d := NewDispatcher(action, DispatcherConfig{}, obs, func(r *domain.AlertResult) { results <- r })
	d.Start(context.Background())
	d.Submit(domain.Alert{})

	select {
	case res := <-results:
		if !res.Failed() || res.Errors[0].Step != domain.StepDispatch {
			t.Fatalf("expected dispatch failure, got %+v", res.Errors)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out")
	}
	_ = d.Close(context.Background())

	if obs.counter("nuro_alerts_failed_total") != 1 {
		t.Fatalf("expected failed alert counter")
	}
}
