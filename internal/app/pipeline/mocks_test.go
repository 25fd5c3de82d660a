package pipeline

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

type mockQueue struct {
	mu         sync.Mutex
	failures   int32
	failAlways bool
	calls      int
	items      []domain.Reading
}

func (m *mockQueue) Enqueue(r domain.Reading) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failAlways {
		return false
	}
	if atomic.LoadInt32(&m.failures) > 0 {
		atomic.AddInt32(&m.failures, -1)
		return false
	}
	m.items = append(m.items, r)
	return true
}

func (m *mockQueue) DequeueBatch(max int) []domain.Reading {
	m.mu.Lock()
	defer m.mu.Unlock()
	if max <= 0 || max > len(m.items) {
		max = len(m.items)
	}
	out := m.items[:max]
	m.items = m.items[max:]
	return out
}

func (m *mockQueue) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type mockObs struct {
	mu       sync.Mutex
	errors   []error
	warns    []string
	infos    []string
	counters map[string]float64
	alerts   []*domain.AlertResult
}

func (m *mockObs) LogInfo(msg string, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.infos = append(m.infos, msg)
}

func (m *mockObs) LogWarn(msg string, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.warns = append(m.warns, msg)
}

func (m *mockObs) LogError(_ string, err error, _ ...ports.Field) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

func (m *mockObs) LogCritical(string, error, ...ports.Field) {}

func (m *mockObs) IncCounter(name string, v float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.counters == nil {
		m.counters = map[string]float64{}
	}
	m.counters[name] += v
}

func (m *mockObs) ObserveLatency(string, float64) {}
func (m *mockObs) SetGauge(string, float64)       {}

func (m *mockObs) RecordAlert(res *domain.AlertResult) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.alerts = append(m.alerts, res)
}

func (m *mockObs) counter(name string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counters[name]
}

func (m *mockObs) hasInfo(msg string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.infos {
		if s == msg {
			return true
		}
	}
	return false
}

type recordingSubmitter struct {
	mu     sync.Mutex
	alerts []domain.Alert
	reject bool
}

func (r *recordingSubmitter) Submit(a domain.Alert) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.reject {
		return false
	}
	r.alerts = append(r.alerts, a)
	return true
}

func (r *recordingSubmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.alerts)
}

// funcAction adapts a function to ports.AlertAction.
type funcAction func(ctx context.Context, a domain.Alert) *domain.AlertResult

func (f funcAction) Fire(ctx context.Context, a domain.Alert) *domain.AlertResult { return f(ctx, a) }

type sliceCollector struct {
	samples []*domain.Sample
	stopped atomic.Bool
}

func (c *sliceCollector) Start(out chan<- *domain.Sample) error {
	go func() {
		defer close(out)
		for _, s := range c.samples {
			out <- s
		}
	}()
	return nil
}

func (c *sliceCollector) Stop() error {
	c.stopped.Store(true)
	return nil
}
