package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/BCIDriver/Nurobuckle/internal/app/alerting"
	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

func TestProcessorEndToEnd(t *testing.T) {
	sub := &recordingSubmitter{}
	obs := &mockObs{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second, Threshold: 8.0, HistoryCapacity: 10}, sub, obs)

	t0 := time.Unix(1700000000, 0)
	first := p.Process(domain.NewSample(t0, 0.95))
	second := p.Process(domain.NewSample(t0.Add(500*time.Millisecond), 0.95))
	third := p.Process(domain.NewSample(t0.Add(1500*time.Millisecond), 0.3))

	if !first.Accepted || first.Reading.Score != 9.5 || first.Reading.Status != domain.StatusNormal {
		t.Fatalf("unexpected first outcome %+v", first)
	}
	if second.Accepted {
		t.Fatalf("second sample should be debounced")
	}
	if !third.Accepted || third.Reading.Score != 3.0 || third.Reading.Status != domain.StatusLow {
		t.Fatalf("unexpected third outcome %+v", third)
	}
	if third.Decision != DecisionFire {
		t.Fatalf("expected fire, got %s", third.Decision)
	}
	if sub.count() != 1 {
		t.Fatalf("expected exactly one alert, got %d", sub.count())
	}
	if p.History().Len() != 2 {
		t.Fatalf("expected 2 readings in history, got %d", p.History().Len())
	}
	if obs.counter("nuro_samples_debounced_total") != 1 {
		t.Fatalf("expected debounced counter to be 1")
	}
}

func TestProcessorOutOfRangeWarns(t *testing.T) {
	obs := &mockObs{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second}, &recordingSubmitter{}, obs)

	out := p.Process(domain.NewSample(time.Now(), 1.4))
	if !out.Accepted || !out.OutOfRange || out.Reading.Score != 10 {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if obs.counter("nuro_samples_out_of_range_total") != 1 || len(obs.warns) != 1 {
		t.Fatalf("expected out-of-range warning and counter")
	}
}

func TestProcessorPersistsAndNotifiesListeners(t *testing.T) {
	q := &mockQueue{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second}, &recordingSubmitter{}, &mockObs{})
	p.Persist(q, ports.Policy{OnQueueFull: "drop"})

	var seen []Outcome
	p.OnOutcome(func(o Outcome) { seen = append(seen, o) })

	t0 := time.Unix(0, 0)
	p.Process(domain.NewSample(t0, 0.9))
	p.Process(domain.NewSample(t0.Add(100*time.Millisecond), 0.9))
	p.Process(&domain.Sample{Timestamp: t0.Add(2 * time.Second)})

	if len(seen) != 3 {
		t.Fatalf("listener should see every sample, saw %d", len(seen))
	}
	if q.Len() != 1 {
		t.Fatalf("only accepted readings are persisted, got %d", q.Len())
	}
}

func TestProcessorStatusLogInterval(t *testing.T) {
	obs := &mockObs{}
	p := NewProcessor(ProcessorConfig{Interval: time.Second, LogInterval: 10 * time.Second}, &recordingSubmitter{}, obs)

	t0 := time.Unix(0, 0)
	for i := 0; i < 12; i++ {
		p.Process(domain.NewSample(t0.Add(time.Duration(i)*time.Second), 0.9))
	}

	n := 0
	for _, msg := range obs.infos {
		if msg == "attention_status" {
			n++
		}
	}
	if n != 2 {
		t.Fatalf("expected 2 status lines over 12s, got %d", n)
	}
}

type failingNotifyAdapter struct {
	sends int
}

func (f *failingNotifyAdapter) ResolveCurrentLocation(context.Context) (domain.Location, error) {
	return domain.Location{Coordinate: domain.Coordinate{Lat: 37.77, Lng: -122.42}}, nil
}

func (f *failingNotifyAdapter) FindNearestAssistancePoint(context.Context, domain.Location) (*domain.POI, error) {
	return &domain.POI{Name: "Chevron", Location: domain.Coordinate{Lat: 37.78, Lng: -122.42}}, nil
}

func (f *failingNotifyAdapter) FindNearbyPOIs(context.Context, domain.Location, string, int) ([]domain.POI, error) {
	return []domain.POI{{Name: "Diner", Rating: 4}}, nil
}

func (f *failingNotifyAdapter) DispatchNotification(context.Context, string, string) (domain.Ack, error) {
	f.sends++
	return domain.Ack{}, errors.New("sms provider unavailable")
}

func TestFailedNotificationKeepsTriggerFired(t *testing.T) {
	adapter := &failingNotifyAdapter{}
	responder := alerting.NewResponder(adapter, alerting.Options{Contacts: []string{"+15550001"}}, zerolog.Nop())

	obs := &mockObs{}
	results := make(chan *domain.AlertResult, 4)
	d := NewDispatcher(responder, DispatcherConfig{Timeout: time.Second}, obs, func(r *domain.AlertResult) { results <- r })
	d.Start(context.Background())
	defer d.Close(context.Background())

	p := NewProcessor(ProcessorConfig{Interval: time.Second}, d, obs)
	t0 := time.Unix(1700000000, 0)

	if out := p.Process(domain.NewSample(t0, 0.2)); out.Decision != DecisionFire {
		t.Fatalf("expected fire, got %s", out.Decision)
	}

	select {
	case res := <-results:
		if !res.Failed() || res.Delivered() != 0 {
			t.Fatalf("expected failed delivery, got %+v", res.Deliveries)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for alert result")
	}

	for i := 1; i <= 3; i++ {
		if out := p.Process(domain.NewSample(t0.Add(time.Duration(i)*time.Second), 0.2)); out.Decision != DecisionSuppress {
			t.Fatalf("sample %d: expected suppress, got %s", i, out.Decision)
		}
	}
	if st, _ := p.Trigger().State(); st != StateFired {
		t.Fatalf("expected FIRED, got %s", st)
	}
	if adapter.sends != 1 {
		t.Fatalf("notification must not be retried, sent %d times", adapter.sends)
	}

	if out := p.Process(domain.NewSample(t0.Add(4*time.Second), 0.9)); out.Decision != DecisionRearm {
		t.Fatalf("expected rearm, got %s", out.Decision)
	}
}
