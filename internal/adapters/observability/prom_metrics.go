package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// PromObs implements ports.Observability with Prometheus metrics and zerolog.
// Unknown metric names are ignored.
type PromObs struct {
	log zerolog.Logger

	counters map[string]prometheus.Counter
	gauges   map[string]prometheus.Gauge
	histos   map[string]prometheus.Observer

	deliveries   *prometheus.CounterVec
	stepFailures *prometheus.CounterVec
	lastAlert    prometheus.Gauge
}

var _ ports.Observability = (*PromObs)(nil)

func NewPromObs(reg prometheus.Registerer, log zerolog.Logger) *PromObs {
	counter := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{Name: name, Help: help})
	}
	gauge := func(name, help string) prometheus.Gauge {
		return prometheus.NewGauge(prometheus.GaugeOpts{Name: name, Help: help})
	}

	p := &PromObs{
		log: log,
		counters: map[string]prometheus.Counter{
			"nuro_samples_received_total":     counter("nuro_samples_received_total", "Device samples delivered by the collector."),
			"nuro_samples_accepted_total":     counter("nuro_samples_accepted_total", "Samples accepted by the debounced sampler."),
			"nuro_samples_debounced_total":    counter("nuro_samples_debounced_total", "Samples rejected inside the debounce interval."),
			"nuro_samples_skipped_total":      counter("nuro_samples_skipped_total", "Samples with an inactive or absent attention channel."),
			"nuro_samples_out_of_range_total": counter("nuro_samples_out_of_range_total", "Raw attention values outside [0,1] that were clamped."),
			"nuro_samples_malformed_total":    counter("nuro_samples_malformed_total", "Device ticks that could not be parsed."),
			"nuro_alerts_fired_total":         counter("nuro_alerts_fired_total", "Fatigue alert episodes opened by the trigger."),
			"nuro_alerts_failed_total":        counter("nuro_alerts_failed_total", "Alerts whose sequence finished with at least one failed step."),
			"nuro_alert_jobs_dropped_total":   counter("nuro_alert_jobs_dropped_total", "Alerts the dispatcher could not accept."),
			"nuro_readings_persisted_total":   counter("nuro_readings_persisted_total", "Readings written to the sink."),
			"nuro_sink_failures_total":        counter("nuro_sink_failures_total", "Sink batch writes that failed."),
			"nuro_queue_dropped_total":        counter("nuro_queue_dropped_total", "Readings lost to the persistence queue policy."),
		},
		gauges: map[string]prometheus.Gauge{
			"nuro_attention_score":     gauge("nuro_attention_score", "Last accepted attention score (0-10)."),
			"nuro_trigger_armed":       gauge("nuro_trigger_armed", "1 while the alert trigger is armed."),
			"nuro_queue_length":        gauge("nuro_queue_length", "Readings waiting in the persistence queue."),
			"nuro_alert_queue_length":  gauge("nuro_alert_queue_length", "Alerts waiting for the dispatcher worker."),
			"nuro_dashboard_listeners": gauge("nuro_dashboard_listeners", "Connected dashboard websocket clients."),
		},
		histos: map[string]prometheus.Observer{
			"nuro_alert_duration_seconds": prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "nuro_alert_duration_seconds",
				Help:    "Wall time of the full alert sequence.",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
			}),
			"nuro_sink_latency_seconds": prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "nuro_sink_latency_seconds",
				Help:    "Latency of one sink batch write.",
				Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
			}),
		},
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nuro_alert_deliveries_total",
			Help: "Notification attempts by result.",
		}, []string{"result"}),
		stepFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nuro_alert_step_failures_total",
			Help: "Failed or empty alert steps.",
		}, []string{"step"}),
		lastAlert: gauge("nuro_last_alert_timestamp_seconds", "Unix time the last alert sequence finished."),
	}

	if reg != nil {
		for _, c := range p.counters {
			reg.MustRegister(c)
		}
		for _, g := range p.gauges {
			reg.MustRegister(g)
		}
		for _, h := range p.histos {
			reg.MustRegister(h.(prometheus.Collector))
		}
		reg.MustRegister(p.deliveries, p.stepFailures, p.lastAlert)
	}
	return p
}

// Logger exposes the underlying logger for components that log directly.
func (p *PromObs) Logger() zerolog.Logger { return p.log }

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	withFields(p.log.Info(), fields).Msg(msg)
}

func (p *PromObs) LogWarn(msg string, fields ...ports.Field) {
	withFields(p.log.Warn(), fields).Msg(msg)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	withFields(p.log.Error().Err(err), fields).Msg(msg)
}

func (p *PromObs) LogCritical(msg string, err error, fields ...ports.Field) {
	withFields(p.log.Error().Err(err).Bool("critical", true), fields).Msg(msg)
}

func (p *PromObs) IncCounter(name string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.Add(v)
	}
}

func (p *PromObs) ObserveLatency(name string, seconds float64) {
	if h, ok := p.histos[name]; ok {
		h.Observe(seconds)
	}
}

func (p *PromObs) SetGauge(name string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.Set(v)
	}
}

func (p *PromObs) RecordAlert(res *domain.AlertResult) {
	if res == nil {
		return
	}
	for _, d := range res.Deliveries {
		if d.Ack != nil {
			p.deliveries.WithLabelValues("ok").Inc()
		} else {
			p.deliveries.WithLabelValues("error").Inc()
		}
	}
	for _, e := range res.Errors {
		p.stepFailures.WithLabelValues(e.Step).Inc()
	}
	if !res.Finished.IsZero() {
		p.lastAlert.Set(float64(res.Finished.Unix()))
	}
}

func withFields(ev *zerolog.Event, fields []ports.Field) *zerolog.Event {
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	return ev
}
