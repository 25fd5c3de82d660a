package nurobuckle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type stubCollector struct{}

func (s *stubCollector) Start(out chan<- *Sample) error { return nil }
func (s *stubCollector) Stop() error                    { return nil }

type stubSink struct{}

func (s *stubSink) WriteBatch([]Reading) error { return nil }
func (s *stubSink) Name() string               { return "stub" }

type stubQueue struct{}

func (s *stubQueue) Enqueue(Reading) bool       { return true }
func (s *stubQueue) DequeueBatch(int) []Reading { return nil }
func (s *stubQueue) Len() int                   { return 0 }

type stubObservability struct{}

func (s *stubObservability) LogInfo(string, ...Field)            {}
func (s *stubObservability) LogWarn(string, ...Field)            {}
func (s *stubObservability) LogError(string, error, ...Field)    {}
func (s *stubObservability) LogCritical(string, error, ...Field) {}
func (s *stubObservability) IncCounter(string, float64)          {}
func (s *stubObservability) ObserveLatency(string, float64)      {}
func (s *stubObservability) SetGauge(string, float64)            {}
func (s *stubObservability) RecordAlert(*AlertResult)            {}

// fakeAdapter resolves everything and records notifications.
type fakeAdapter struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeAdapter) ResolveCurrentLocation(context.Context) (Location, error) {
	return Location{Coordinate: Coordinate{Lat: 37.39, Lng: -122.08}, City: "Mountain View"}, nil
}

func (f *fakeAdapter) FindNearestAssistancePoint(context.Context, Location) (*POI, error) {
	return &POI{Name: "Rest Stop", Location: Coordinate{Lat: 37.42, Lng: -122.1}}, nil
}

func (f *fakeAdapter) FindNearbyPOIs(context.Context, Location, string, int) ([]POI, error) {
	return []POI{{Name: "Diner", Rating: 4.2}}, nil
}

func (f *fakeAdapter) DispatchNotification(_ context.Context, recipient, _ string) (Ack, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, recipient)
	return Ack{Channel: "fake", ID: recipient}, nil
}

func testConfig() *Config {
	cfg := &Config{}
	cfg.Device.Source = SourceSimulator
	cfg.Pipeline.Interval = time.Second
	cfg.Pipeline.Threshold = 8
	cfg.Alert.Contacts = []string{"+15550001"}
	cfg.Policy = Policy{MaxQueueLen: 16, MaxBatchSize: 8, IdleSleep: time.Millisecond, OnQueueFull: "drop"}
	return cfg
}

func TestNewRuntimeWithCustomAdapters(t *testing.T) {
	col := &stubCollector{}
	snk := &stubSink{}
	q := &stubQueue{}
	obs := &stubObservability{}

	rt, err := NewRuntime(context.Background(), testConfig(),
		WithCollector(col),
		WithSink(snk),
		WithQueue(q),
		WithObservability(obs),
		WithActionAdapter(&fakeAdapter{}),
		WithLogger(zerolog.Nop()),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	if rt.collector != col {
		t.Fatalf("expected custom collector to be used")
	}
	if rt.sink != snk {
		t.Fatalf("expected custom sink to be used")
	}
	if rt.queue != q {
		t.Fatalf("expected custom queue to be used")
	}
	if rt.obs != obs {
		t.Fatalf("expected custom observability to be used")
	}
	if rt.db != nil {
		t.Fatalf("expected db to be nil when custom sink is provided")
	}
	if rt.dash != nil {
		t.Fatalf("dashboard should be off unless http.enabled")
	}
}

func TestNewRuntimeWithoutSinkSkipsPersistence(t *testing.T) {
	rt, err := NewRuntime(context.Background(), testConfig(),
		WithCollector(&stubCollector{}),
		WithActionAdapter(&fakeAdapter{}),
		WithLogger(zerolog.Nop()),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}
	if rt.sink != nil || rt.queue != nil {
		t.Fatalf("no sink expected without timescale.conn_string")
	}
	if rt.Registry() == nil {
		t.Fatalf("expected a metrics registry")
	}
}

func TestRuntimeFiresOnceAndPersists(t *testing.T) {
	col := NewPushCollector(8)
	adapter := &fakeAdapter{}

	var (
		mu       sync.Mutex
		persist  []Reading
		alerts   []*AlertResult
		outcomes = make(chan Outcome, 8)
	)
	snk := NewCallbackSink("test", func(batch []Reading) error {
		mu.Lock()
		defer mu.Unlock()
		persist = append(persist, batch...)
		return nil
	})

	rt, err := NewRuntime(context.Background(), testConfig(),
		WithCollector(col),
		WithSink(snk),
		WithActionAdapter(adapter),
		WithLogger(zerolog.Nop()),
		WithOutcomeHandler(func(o Outcome) { outcomes <- o }),
		WithAlertHandler(func(res *AlertResult) {
			mu.Lock()
			defer mu.Unlock()
			alerts = append(alerts, res)
		}),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- rt.Run(ctx) }()

	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	for _, p := range []struct {
		at  time.Duration
		raw float64
	}{{0, 0.95}, {500 * time.Millisecond, 0.95}, {1500 * time.Millisecond, 0.3}} {
		if err := col.PushValue(t0.Add(p.at), p.raw); err != nil {
			t.Fatalf("push: %v", err)
		}
	}

	var accepted int
	for i := 0; i < 3; i++ {
		select {
		case o := <-outcomes:
			if o.Accepted {
				accepted++
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for outcome %d", i)
		}
	}
	if accepted != 2 {
		t.Fatalf("expected 2 accepted readings, got %d", accepted)
	}

	cancel()
	select {
	case err := <-runErr:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(alerts) != 1 {
		t.Fatalf("expected exactly one alert, got %d", len(alerts))
	}
	if alerts[0].Alert.Reading.Score != 3.0 || alerts[0].Alert.Manual {
		t.Fatalf("unexpected alert: %+v", alerts[0].Alert)
	}
	if len(adapter.sent) != 1 || adapter.sent[0] != "+15550001" {
		t.Fatalf("expected one notification, got %v", adapter.sent)
	}
	if len(persist) != 2 || persist[0].Score != 9.5 || persist[1].Status != StatusLow {
		t.Fatalf("unexpected persisted readings: %+v", persist)
	}

	if err := rt.Shutdown(context.Background()); err != nil {
		t.Fatalf("second Shutdown should be a no-op, got %v", err)
	}
}

func TestRuntimeTestAlertBypassesTrigger(t *testing.T) {
	adapter := &fakeAdapter{}
	done := make(chan *AlertResult, 1)
	rt, err := NewRuntime(context.Background(), testConfig(),
		WithCollector(NewPushCollector(1)),
		WithActionAdapter(adapter),
		WithLogger(zerolog.Nop()),
		WithAlertHandler(func(res *AlertResult) { done <- res }),
	)
	if err != nil {
		t.Fatalf("NewRuntime returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := rt.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer rt.Shutdown(context.Background())

	if !rt.TestAlert() {
		t.Fatalf("expected test alert to be queued")
	}
	select {
	case res := <-done:
		if !res.Alert.Manual {
			t.Fatalf("expected manual alert")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("test alert did not complete")
	}

	if state, episodes := rt.proc.Trigger().State(); episodes != 0 || state.String() != "ARMED" {
		t.Fatalf("trigger should be untouched, got %s/%d", state, episodes)
	}
}

func TestFireTestAlert(t *testing.T) {
	adapter := &fakeAdapter{}
	res, err := FireTestAlert(context.Background(), testConfig(), Reading{Score: 9.9}, WithActionAdapter(adapter))
	if err != nil {
		t.Fatalf("FireTestAlert: %v", err)
	}
	if !res.Alert.Manual || res.Failed() {
		t.Fatalf("unexpected result: %+v errors=%v", res.Alert, res.ErrorStrings())
	}
	if res.Delivered() != 1 {
		t.Fatalf("expected one delivery, got %d", res.Delivered())
	}
}
