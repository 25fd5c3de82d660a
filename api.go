package nurobuckle

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	base "github.com/BCIDriver/Nurobuckle/pkg/nurobuckle"
)

// Device sources and attention classes.
const (
	SourceCortex    = base.SourceCortex
	SourceSimulator = base.SourceSimulator
	SourceReplay    = base.SourceReplay

	StatusLow    = base.StatusLow
	StatusNormal = base.StatusNormal
)

// Re-exported errors for convenience.
var (
	ErrCollectorClosed   = base.ErrCollectorClosed
	ErrCollectorFull     = base.ErrCollectorFull
	ErrChannelSinkClosed = base.ErrChannelSinkClosed
)

// Type aliases so consumers can import github.com/BCIDriver/Nurobuckle directly.
type (
	Config           = base.Config
	Policy           = base.Policy
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Runtime          = base.Runtime
	RuntimeOption    = base.RuntimeOption
	PushCollector    = base.PushCollector
	ReadingBatchFunc = base.ReadingBatchFunc
	Sample           = base.Sample
	Reading          = base.Reading
	Score            = base.Score
	Status           = base.Status
	Alert            = base.Alert
	AlertResult      = base.AlertResult
	Outcome          = base.Outcome
	Collector        = base.Collector
	Sink             = base.Sink
	ReadingQueue     = base.ReadingQueue
	Observability    = base.Observability
	ActionAdapter    = base.ActionAdapter
	AlertAction      = base.AlertAction
	Recorder         = base.Recorder
	CaptureReport    = base.CaptureReport
	Upload           = base.Upload
)

// Config helpers.
func LoadConfig(path string) (*Config, error) {
	return base.LoadConfig(path)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...RuntimeOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInCollector(col Collector) StreamInOption {
	return base.StreamInCollector(col)
}

func StreamInRecorder(rec Recorder) StreamInOption {
	return base.StreamInRecorder(rec)
}

func StreamInObservability(obs Observability) StreamInOption {
	return base.StreamInObservability(obs)
}

func StreamOutSink(s Sink) StreamOutOption {
	return base.StreamOutSink(s)
}

func StreamOutQueue(q ReadingQueue) StreamOutOption {
	return base.StreamOutQueue(q)
}

func StreamOutCallback(name string, fn ReadingBatchFunc) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

func StreamOutOutcomes(fn func(Outcome)) StreamOutOption {
	return base.StreamOutOutcomes(fn)
}

func StreamOutAlerts(fn func(*AlertResult)) StreamOutOption {
	return base.StreamOutAlerts(fn)
}

func StreamOutActions(a ActionAdapter) StreamOutOption {
	return base.StreamOutActions(a)
}

// Runtime and options.
func NewRuntime(ctx context.Context, cfg *Config, opts ...RuntimeOption) (*Runtime, error) {
	return base.NewRuntime(ctx, cfg, opts...)
}

func WithCollector(col Collector) RuntimeOption {
	return base.WithCollector(col)
}

func WithSink(s Sink) RuntimeOption {
	return base.WithSink(s)
}

func WithQueue(q ReadingQueue) RuntimeOption {
	return base.WithQueue(q)
}

func WithObservability(obs Observability) RuntimeOption {
	return base.WithObservability(obs)
}

func WithActionAdapter(a ActionAdapter) RuntimeOption {
	return base.WithActionAdapter(a)
}

func WithAlertAction(a AlertAction) RuntimeOption {
	return base.WithAlertAction(a)
}

func WithRecorder(rec Recorder) RuntimeOption {
	return base.WithRecorder(rec)
}

func WithLogger(log zerolog.Logger) RuntimeOption {
	return base.WithLogger(log)
}

func WithRegistry(reg *prometheus.Registry) RuntimeOption {
	return base.WithRegistry(reg)
}

func WithOutcomeHandler(fn func(Outcome)) RuntimeOption {
	return base.WithOutcomeHandler(fn)
}

func WithAlertHandler(fn func(*AlertResult)) RuntimeOption {
	return base.WithAlertHandler(fn)
}

// Collectors and sinks.
func NewPushCollector(buffer int) *PushCollector {
	return base.NewPushCollector(buffer)
}

func NewCallbackSink(name string, fn ReadingBatchFunc) Sink {
	return base.NewCallbackSink(name, fn)
}

func NewChannelSink(name string, buffer int) (Sink, <-chan []Reading, func()) {
	return base.NewChannelSink(name, buffer)
}

// FireTestAlert runs the alert sequence once against the configured providers.
func FireTestAlert(ctx context.Context, cfg *Config, reading Reading, opts ...RuntimeOption) (*AlertResult, error) {
	return base.FireTestAlert(ctx, cfg, reading, opts...)
}

// Capture records raw device samples to cfg.Capture.Path and optionally archives the file.
func Capture(ctx context.Context, cfg *Config, log zerolog.Logger) (*CaptureReport, error) {
	return base.Capture(ctx, cfg, log)
}
