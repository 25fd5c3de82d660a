package pipeline

import (
	"sync"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// TriggerState is the alert episode state.
type TriggerState int

const (
	StateArmed TriggerState = iota
	StateFired
)

func (s TriggerState) String() string {
	if s == StateFired {
		return "FIRED"
	}
	return "ARMED"
}

func (s TriggerState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Decision is what the trigger did with one classified reading.
type Decision int

const (
	DecisionNone Decision = iota
	DecisionFire
	DecisionSuppress
	DecisionRearm
)

func (d Decision) String() string {
	switch d {
	case DecisionFire:
		return "fire"
	case DecisionSuppress:
		return "suppress"
	case DecisionRearm:
		return "rearm"
	default:
		return "none"
	}
}

// AlertSubmitter accepts alert work without blocking. It returns false when
// the work was rejected.
type AlertSubmitter interface {
	Submit(alert domain.Alert) bool
}

// Trigger fires at most one alert per contiguous run of LOW readings. The
// transition to FIRED happens before the alert work is handed off, so a
// failed or rejected alert is never retried inside the same episode.
type Trigger struct {
	mu        sync.Mutex
	state     TriggerState
	episode   uint64
	lastFired time.Time

	threshold float64
	sub       AlertSubmitter
	obs       ports.Observability
}

func NewTrigger(threshold float64, sub AlertSubmitter, obs ports.Observability) *Trigger {
	return &Trigger{threshold: threshold, sub: sub, obs: obs}
}

// Observe advances the state machine with r.Status.
func (t *Trigger) Observe(r domain.Reading) Decision {
	t.mu.Lock()
	var (
		decision Decision
		alert    domain.Alert
	)
	switch {
	case t.state == StateArmed && r.Status == domain.StatusLow:
		t.state = StateFired
		t.episode++
		t.lastFired = r.Timestamp
		decision = DecisionFire
		alert = domain.Alert{
			Reading:   r,
			Threshold: t.threshold,
			Episode:   t.episode,
			Raised:    time.Now(),
		}
	case t.state == StateFired && r.Status == domain.StatusLow:
		decision = DecisionSuppress
	case t.state == StateFired && r.Status == domain.StatusNormal:
		t.state = StateArmed
		decision = DecisionRearm
	default:
		decision = DecisionNone
	}
	armed := t.state == StateArmed
	t.mu.Unlock()

	switch decision {
	case DecisionFire:
		t.fire(alert)
	case DecisionRearm:
		t.obs.LogInfo("trigger_rearmed", ports.Field{Key: "score", Value: r.Score.String()})
	}
	t.obs.SetGauge("nuro_trigger_armed", boolGauge(armed))
	return decision
}

func (t *Trigger) fire(alert domain.Alert) {
	t.obs.LogWarn("alert_fired",
		ports.Field{Key: "episode", Value: alert.Episode},
		ports.Field{Key: "score", Value: alert.Reading.Score.String()},
		ports.Field{Key: "threshold", Value: alert.Threshold},
	)
	t.obs.IncCounter("nuro_alerts_fired_total", 1)

	if t.sub == nil || !t.sub.Submit(alert) {
		t.obs.IncCounter("nuro_alert_jobs_dropped_total", 1)
		t.obs.LogError("alert_submit_rejected", errDispatchRejected, ports.Field{Key: "episode", Value: alert.Episode})
	}
}

// State returns the current state and the number of episodes fired so far.
func (t *Trigger) State() (TriggerState, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state, t.episode
}

// LastFired is the timestamp of the reading that opened the current or last episode.
func (t *Trigger) LastFired() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastFired
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
