package pipeline

import (
	"context"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// Outcome describes what happened to one sample on its way through the chain.
type Outcome struct {
	Sample     *domain.Sample
	Reading    domain.Reading
	Scored     bool
	OutOfRange bool
	Accepted   bool
	Decision   Decision
}

type ProcessorConfig struct {
	Interval        time.Duration
	Threshold       float64
	HistoryCapacity int
	// LogInterval spaces the periodic status line; zero disables it.
	LogInterval time.Duration
}

// Processor owns the decision path: Normalize -> Sampler -> Classifier -> Trigger.
// Process must be called from a single goroutine.
type Processor struct {
	sampler    *Sampler
	classifier Classifier
	trigger    *Trigger
	obs        ports.Observability

	queue  ports.ReadingQueue
	policy ports.Policy

	logInterval time.Duration
	lastLog     time.Time

	listeners []func(Outcome)
}

func NewProcessor(cfg ProcessorConfig, sub AlertSubmitter, obs ports.Observability) *Processor {
	if cfg.Threshold == 0 {
		cfg.Threshold = DefaultThreshold
	}
	return &Processor{
		sampler:     NewSampler(cfg.Interval, NewHistory(cfg.HistoryCapacity)),
		classifier:  Classifier{Threshold: cfg.Threshold},
		trigger:     NewTrigger(cfg.Threshold, sub, obs),
		obs:         obs,
		logInterval: cfg.LogInterval,
	}
}

// Persist forwards every accepted reading to q under pol.
func (p *Processor) Persist(q ports.ReadingQueue, pol ports.Policy) {
	p.queue = q
	p.policy = pol
}

// OnOutcome registers fn to run after every processed sample.
func (p *Processor) OnOutcome(fn func(Outcome)) {
	p.listeners = append(p.listeners, fn)
}

func (p *Processor) History() *History { return p.sampler.History() }

func (p *Processor) Trigger() *Trigger { return p.trigger }

func (p *Processor) Threshold() float64 { return p.classifier.Threshold }

func (p *Processor) Process(s *domain.Sample) Outcome {
	return p.ProcessContext(context.Background(), s)
}

// ProcessContext is Process with ctx bounding the wait on a full persistence
// queue under the "block" policy.
func (p *Processor) ProcessContext(ctx context.Context, s *domain.Sample) Outcome {
	out := p.process(ctx, s)
	for _, fn := range p.listeners {
		fn(out)
	}
	return out
}

func (p *Processor) process(ctx context.Context, s *domain.Sample) Outcome {
	out := Outcome{Sample: s}
	p.obs.IncCounter("nuro_samples_received_total", 1)

	score, ok, outOfRange := Normalize(s)
	if !ok {
		p.obs.IncCounter("nuro_samples_skipped_total", 1)
		return out
	}
	out.Scored = true
	out.OutOfRange = outOfRange
	if outOfRange {
		raw, _ := s.RawValue()
		p.obs.IncCounter("nuro_samples_out_of_range_total", 1)
		p.obs.LogWarn("sample_out_of_range",
			ports.Field{Key: "raw", Value: raw},
			ports.Field{Key: "score", Value: score.String()},
		)
	}

	out.Reading = domain.Reading{
		Timestamp: s.Timestamp,
		Score:     score,
		Status:    p.classifier.Classify(score),
		HeadsetID: s.HeadsetID,
	}
	if !p.sampler.AcceptReading(out.Reading) {
		p.obs.IncCounter("nuro_samples_debounced_total", 1)
		return out
	}
	out.Accepted = true
	p.obs.IncCounter("nuro_samples_accepted_total", 1)
	p.obs.SetGauge("nuro_attention_score", float64(score))

	out.Decision = p.trigger.Observe(out.Reading)

	if p.queue != nil {
		if !enqueueWithPolicy(ctx, p.queue, out.Reading, p.policy, p.obs) {
			p.obs.IncCounter("nuro_queue_dropped_total", 1)
		}
		p.obs.SetGauge("nuro_queue_length", float64(p.queue.Len()))
	}

	p.logStatus(out.Reading)
	return out
}

func (p *Processor) logStatus(r domain.Reading) {
	if p.logInterval <= 0 {
		return
	}
	if !p.lastLog.IsZero() && r.Timestamp.Sub(p.lastLog) < p.logInterval {
		return
	}
	p.lastLog = r.Timestamp

	state, episodes := p.trigger.State()
	p.obs.LogInfo("attention_status",
		ports.Field{Key: "score", Value: r.Score.String()},
		ports.Field{Key: "status", Value: r.Status.String()},
		ports.Field{Key: "trigger", Value: state.String()},
		ports.Field{Key: "episodes", Value: episodes},
		ports.Field{Key: "history", Value: p.sampler.History().Len()},
	)
}
