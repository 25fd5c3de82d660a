package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var (
	errDispatchRejected = errors.New("alert dispatcher rejected job")
	// ErrDispatcherClosed is returned by Close when called twice.
	ErrDispatcherClosed = errors.New("dispatcher already closed")
)

const (
	DefaultAlertTimeout  = 30 * time.Second
	DefaultDispatchQueue = 4
)

type DispatcherConfig struct {
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher runs alert work on one background worker so the sample path
// never waits on network calls.
type Dispatcher struct {
	action   ports.AlertAction
	obs      ports.Observability
	onResult func(*domain.AlertResult)
	timeout  time.Duration

	mu     sync.RWMutex
	jobs   chan domain.Alert
	closed bool

	done chan struct{}
}

var _ AlertSubmitter = (*Dispatcher)(nil)

func NewDispatcher(action ports.AlertAction, cfg DispatcherConfig, obs ports.Observability, onResult func(*domain.AlertResult)) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = DefaultDispatchQueue
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultAlertTimeout
	}
	return &Dispatcher{
		action:   action,
		obs:      obs,
		onResult: onResult,
		timeout:  cfg.Timeout,
		jobs:     make(chan domain.Alert, cfg.QueueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the worker. Jobs run on a context detached from ctx, so
// cancelling ctx does not abort an alert already in flight.
func (d *Dispatcher) Start(ctx context.Context) {
	base := context.WithoutCancel(ctx)
	go func() {
		defer close(d.done)
		for alert := range d.jobs {
			d.run(base, alert)
		}
	}()
}

// Submit enqueues alert without blocking.
func (d *Dispatcher) Submit(alert domain.Alert) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}
	select {
	case d.jobs <- alert:
		d.obs.SetGauge("nuro_alert_queue_length", float64(len(d.jobs)))
		return true
	default:
		return false
	}
}

// Close stops accepting jobs and waits for queued ones until ctx is done.
// Work still running after ctx expires is left to finish on its own.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrDispatcherClosed
	}
	d.closed = true
	close(d.jobs)
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("dispatcher drain: %w", ctx.Err())
	}
}

func (d *Dispatcher) run(base context.Context, alert domain.Alert) {
	ctx, cancel := context.WithTimeout(base, d.timeout)
	defer cancel()

	start := time.Now()
	res := d.fire(ctx, alert)
	if res.Started.IsZero() {
		res.Started = start
	}
	if res.Finished.IsZero() {
		res.Finished = time.Now()
	}

	d.obs.ObserveLatency("nuro_alert_duration_seconds", time.Since(start).Seconds())
	d.obs.RecordAlert(res)
	if res.Failed() {
		d.obs.IncCounter("nuro_alerts_failed_total", 1)
		d.obs.LogWarn("alert_partial_failure",
			ports.Field{Key: "episode", Value: alert.Episode},
			ports.Field{Key: "errors", Value: res.ErrorStrings()},
			ports.Field{Key: "delivered", Value: res.Delivered()},
		)
	} else {
		d.obs.LogInfo("alert_completed",
			ports.Field{Key: "episode", Value: alert.Episode},
			ports.Field{Key: "delivered", Value: res.Delivered()},
		)
	}

	if d.onResult != nil {
		d.onResult(res)
	}
}

func (d *Dispatcher) fire(ctx context.Context, alert domain.Alert) (res *domain.AlertResult) {
	defer func() {
		if r := recover(); r != nil {
			res = &domain.AlertResult{Alert: alert}
			res.AddError(domain.StepDispatch, "alert action panicked", fmt.Errorf("%v", r))
		}
	}()

	res = d.action.Fire(ctx, alert)
	if res == nil {
		res = &domain.AlertResult{Alert: alert}
		res.AddError(domain.StepDispatch, "alert action returned no result", nil)
	}
	return res
}
