package nurobuckle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/adapters/dashboard"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/observability"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/queue"
	"github.com/BCIDriver/Nurobuckle/internal/adapters/sink"
	"github.com/BCIDriver/Nurobuckle/internal/app/pipeline"
	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// RuntimeOption customizes the dependencies used by Runtime.
type RuntimeOption func(*runtimeOverrides)

type runtimeOverrides struct {
	collector     Collector
	sink          Sink
	queue         ReadingQueue
	observability Observability
	adapter       ActionAdapter
	action        AlertAction
	recorder      Recorder
	logger        *zerolog.Logger
	registry      *prometheus.Registry
	onOutcome     []func(Outcome)
	onAlert       []func(*AlertResult)
}

// WithCollector injects a custom sample source (PushCollector, a test double).
func WithCollector(col Collector) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.collector = col
	}
}

// WithSink persists accepted readings somewhere other than TimescaleDB.
func WithSink(s Sink) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.sink = s
	}
}

// WithQueue replaces the in-memory persistence queue.
func WithQueue(q ReadingQueue) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.queue = q
	}
}

// WithObservability replaces the Prometheus + zerolog backend.
func WithObservability(obs Observability) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.observability = obs
	}
}

// WithActionAdapter replaces the location, places and notification providers
// while keeping the standard alert sequence.
func WithActionAdapter(a ActionAdapter) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.adapter = a
	}
}

// WithAlertAction replaces the whole alert sequence.
func WithAlertAction(a AlertAction) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.action = a
	}
}

// WithRecorder appends every raw sample to rec. The runtime closes it on shutdown.
func WithRecorder(rec Recorder) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.recorder = rec
	}
}

func WithLogger(log zerolog.Logger) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.logger = &log
	}
}

// WithRegistry registers metrics on reg instead of a fresh registry.
func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return func(o *runtimeOverrides) {
		o.registry = reg
	}
}

// WithOutcomeHandler runs fn on the pipeline goroutine after every sample.
// fn must not block.
func WithOutcomeHandler(fn func(Outcome)) RuntimeOption {
	return func(o *runtimeOverrides) {
		if fn != nil {
			o.onOutcome = append(o.onOutcome, fn)
		}
	}
}

// WithAlertHandler runs fn on the dispatcher goroutine after every alert.
func WithAlertHandler(fn func(*AlertResult)) RuntimeOption {
	return func(o *runtimeOverrides) {
		if fn != nil {
			o.onAlert = append(o.onAlert, fn)
		}
	}
}

// Runtime wires collector -> processor -> trigger -> dispatcher, plus the
// optional persistence path and dashboard, and exposes lifecycle hooks for
// embedding Nurobuckle inside any Go service.
type Runtime struct {
	cfg *Config
	log zerolog.Logger
	obs ports.Observability
	reg *prometheus.Registry

	collector  ports.Collector
	proc       *pipeline.Processor
	dispatcher *pipeline.Dispatcher
	queue      ports.ReadingQueue
	sink       ports.Sink
	recorder   ports.Recorder
	dash       *dashboard.Server

	db            *sql.DB
	closers       []func() error
	alertHandlers []func(*AlertResult)

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	pipeDone chan error
	started  bool
	stopOnce sync.Once
	stopErr  error
}

// NewRuntime bootstraps the default adapters for cfg: the configured
// collector, the alert sequence over the real providers, the Timescale sink
// when timescale.conn_string is set, and the dashboard when http.enabled.
// Unset fields of cfg are filled with defaults. ctx bounds the connection
// checks made while building.
func NewRuntime(ctx context.Context, cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()

	var o runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	var log zerolog.Logger
	if o.logger != nil {
		log = *o.logger
	} else {
		l, err := observability.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return nil, err
		}
		log = l
	}

	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	obs := o.observability
	if obs == nil {
		obs = observability.NewPromObs(reg, log)
	}

	rt := &Runtime{
		cfg:           cfg,
		log:           log,
		obs:           obs,
		reg:           reg,
		recorder:      o.recorder,
		alertHandlers: o.onAlert,
	}

	col := o.collector
	if col == nil {
		c, err := NewCollector(cfg, obs, log)
		if err != nil {
			return nil, rt.abort(err)
		}
		col = c
	}
	rt.collector = col

	action, closers, err := newAlertAction(ctx, cfg, &o, log)
	if err != nil {
		return nil, rt.abort(err)
	}
	rt.closers = append(rt.closers, closers...)

	rt.dispatcher = pipeline.NewDispatcher(action, pipeline.DispatcherConfig{
		QueueSize: cfg.Alert.QueueSize,
		Timeout:   cfg.Alert.Timeout,
	}, obs, rt.handleAlert)

	rt.proc = pipeline.NewProcessor(pipeline.ProcessorConfig{
		Interval:        cfg.Pipeline.Interval,
		Threshold:       cfg.Pipeline.Threshold,
		HistoryCapacity: cfg.Pipeline.HistoryCapacity,
		LogInterval:     cfg.Pipeline.LogInterval,
	}, rt.dispatcher, obs)

	snk := o.sink
	if snk == nil && cfg.Timescale.Enabled() {
		db, err := sink.Open(ctx, cfg.Timescale.ConnString)
		if err != nil {
			return nil, rt.abort(err)
		}
		rt.db = db
		ts := sink.NewTimescaleSink(db, cfg.Timescale.Table, cfg.Timescale.AlertTable)
		ts.SetWriteTimeout(cfg.Timescale.WriteTimeout)
		if err := ts.EnsureSchema(ctx); err != nil {
			return nil, rt.abort(err)
		}
		snk = ts
	}
	if snk != nil {
		rt.sink = snk
		rt.queue = o.queue
		if rt.queue == nil {
			rt.queue = queue.NewMemQueue(cfg.Policy.MaxQueueLen)
		}
		rt.proc.Persist(rt.queue, cfg.Policy)
	}

	if rt.recorder != nil {
		rt.proc.OnOutcome(rt.record)
	}

	if cfg.HTTP.Enabled {
		rt.dash = dashboard.NewServer(dashboard.Config{
			Addr:         cfg.HTTP.Addr,
			HistoryLimit: cfg.HTTP.HistoryLimit,
		}, dashboard.Deps{
			State:    dashboard.NewState(rt.proc.Threshold()),
			History:  rt.proc.History(),
			Alerts:   rt.dispatcher,
			Gatherer: reg,
			Obs:      obs,
			Log:      log,
		})
		rt.proc.OnOutcome(rt.publish)
	}

	for _, fn := range o.onOutcome {
		rt.proc.OnOutcome(fn)
	}

	return rt, nil
}

// Start launches the pipeline, the dispatcher worker, the ingest loop and the
// dashboard. It returns immediately; call Run to block on a context instead.
func (rt *Runtime) Start(ctx context.Context) error {
	if rt == nil {
		return fmt.Errorf("runtime is nil")
	}
	if rt.started {
		return fmt.Errorf("runtime already started")
	}
	rt.started = true

	runCtx, cancel := context.WithCancel(ctx)
	rt.cancel = cancel

	rt.dispatcher.Start(runCtx)

	if rt.sink != nil {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			pipeline.RunIngestPipeline(runCtx, rt.queue, rt.sink, rt.cfg.Policy, rt.obs)
		}()
	}

	if rt.dash != nil {
		rt.wg.Add(1)
		go func() {
			defer rt.wg.Done()
			if err := rt.dash.Run(runCtx); err != nil {
				rt.obs.LogError("dashboard_failed", err)
			}
		}()
	}

	rt.pipeDone = make(chan error, 1)
	rt.wg.Add(1)
	go func() {
		defer rt.wg.Done()
		rt.pipeDone <- pipeline.RunAttentionPipeline(runCtx, rt.collector, rt.proc, rt.cfg.Pipeline.Buffer, rt.obs)
	}()

	rt.obs.LogInfo("runtime_started",
		ports.Field{Key: "source", Value: rt.cfg.Device.Source},
		ports.Field{Key: "threshold", Value: rt.proc.Threshold()},
		ports.Field{Key: "interval", Value: rt.cfg.Pipeline.Interval.String()},
		ports.Field{Key: "persist", Value: rt.sink != nil},
		ports.Field{Key: "dashboard", Value: rt.dash != nil},
	)
	return nil
}

// Run starts the runtime and blocks until ctx is done or the collector stream
// ends, then shuts down giving in-flight alerts alert.shutdown_grace to finish.
func (rt *Runtime) Run(ctx context.Context) error {
	if err := rt.Start(ctx); err != nil {
		return err
	}

	var pipeErr error
	select {
	case <-ctx.Done():
	case pipeErr = <-rt.pipeDone:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rt.cfg.Alert.ShutdownGrace)
	defer cancel()
	return errors.Join(pipeErr, rt.Shutdown(shutdownCtx))
}

// Shutdown stops the collector and background loops, drains the alert queue
// until ctx is done, and releases connections. It is safe to call twice.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	rt.stopOnce.Do(func() {
		var errs []error

		if rt.collector != nil {
			if err := rt.collector.Stop(); err != nil {
				errs = append(errs, fmt.Errorf("stop collector: %w", err))
			}
		}
		if rt.cancel != nil {
			rt.cancel()
		}
		rt.wg.Wait()

		if rt.started {
			if err := rt.dispatcher.Close(ctx); err != nil {
				errs = append(errs, err)
			}
		}

		if rt.recorder != nil {
			if err := rt.recorder.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close recorder: %w", err))
			}
		}

		errs = append(errs, rt.closeResources())
		rt.stopErr = errors.Join(errs...)
		rt.obs.LogInfo("runtime_stopped")
	})
	return rt.stopErr
}

// TestAlert queues a manual alert built from the latest reading. The trigger
// is not involved, so an open episode stays open.
func (rt *Runtime) TestAlert() bool {
	reading, ok := rt.proc.History().Last()
	if !ok {
		reading = domain.Reading{Timestamp: time.Now()}
	}
	return rt.dispatcher.Submit(domain.Alert{
		Reading:   reading,
		Threshold: rt.proc.Threshold(),
		Manual:    true,
		Raised:    time.Now(),
	})
}

// History returns the retained readings, oldest first.
func (rt *Runtime) History() []Reading {
	return rt.proc.History().Snapshot()
}

// Handler exposes the dashboard routes for embedding, or nil when the
// dashboard is disabled.
func (rt *Runtime) Handler() http.Handler {
	if rt.dash == nil {
		return nil
	}
	return rt.dash.Handler()
}

// Registry is where the runtime's metrics are registered.
func (rt *Runtime) Registry() *prometheus.Registry { return rt.reg }

func (rt *Runtime) record(out Outcome) {
	if out.Sample == nil {
		return
	}
	if _, err := rt.recorder.Append(out.Sample); err != nil {
		rt.obs.LogError("capture_append_failed", err)
	}
}

func (rt *Runtime) publish(out Outcome) {
	if !out.Accepted {
		return
	}
	state, episodes := rt.proc.Trigger().State()
	rt.dash.ObserveReading(out.Reading, state == pipeline.StateArmed, episodes)
}

func (rt *Runtime) handleAlert(res *domain.AlertResult) {
	if as, ok := rt.sink.(ports.AlertSink); ok {
		if err := as.WriteAlert(res); err != nil {
			rt.obs.LogError("alert_persist_failed", err,
				ports.Field{Key: "episode", Value: res.Alert.Episode})
		}
	}
	if rt.dash != nil {
		rt.dash.ObserveAlert(res)
	}
	for _, fn := range rt.alertHandlers {
		fn(res)
	}
}

func (rt *Runtime) abort(err error) error {
	return errors.Join(err, rt.closeResources())
}

func (rt *Runtime) closeResources() error {
	var errs []error
	if rt.db != nil {
		if err := rt.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
		rt.db = nil
	}
	for _, c := range rt.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	rt.closers = nil
	return errors.Join(errs...)
}

// FireTestAlert runs the alert sequence once, synchronously, against the
// providers described by cfg (or the WithActionAdapter/WithAlertAction
// overrides). Other options are ignored.
func FireTestAlert(ctx context.Context, cfg *Config, reading Reading, opts ...RuntimeOption) (*AlertResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	cfg.ApplyDefaults()
	var o runtimeOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	log := zerolog.Nop()
	if o.logger != nil {
		log = *o.logger
	}

	action, closers, err := newAlertAction(ctx, cfg, &o, log)
	if err != nil {
		return nil, err
	}
	defer func() {
		for _, c := range closers {
			_ = c()
		}
	}()

	alertCtx, cancel := context.WithTimeout(ctx, cfg.Alert.Timeout)
	defer cancel()

	return action.Fire(alertCtx, domain.Alert{
		Reading:   reading,
		Threshold: cfg.Pipeline.Threshold,
		Manual:    true,
		Raised:    time.Now(),
	}), nil
}
