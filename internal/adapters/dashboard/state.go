package dashboard

import (
	"sync"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// Status is the JSON body of GET /api/status.
type Status struct {
	Reading   *domain.Reading `json:"reading,omitempty"`
	Threshold float64         `json:"threshold"`
	Trigger   string          `json:"trigger"`
	Episodes  uint64          `json:"episodes"`
	Readings  uint64          `json:"readings"`
	Alerts    uint64          `json:"alerts"`
	LastAlert *AlertView      `json:"last_alert,omitempty"`
}

// AlertView adds the flattened step errors that AlertResult keeps out of JSON.
type AlertView struct {
	*domain.AlertResult
	Failed bool     `json:"failed"`
	Errors []string `json:"errors,omitempty"`
}

func NewAlertView(res *domain.AlertResult) *AlertView {
	return &AlertView{AlertResult: res, Failed: res.Failed(), Errors: res.ErrorStrings()}
}

// State is the dashboard's view of the session. It is written from the
// pipeline and dispatcher goroutines and read by HTTP handlers.
type State struct {
	mu        sync.RWMutex
	threshold float64
	last      *domain.Reading
	armed     bool
	episodes  uint64
	readings  uint64
	alerts    uint64
	lastAlert *domain.AlertResult
}

func NewState(threshold float64) *State {
	return &State{threshold: threshold, armed: true}
}

func (s *State) ObserveReading(r domain.Reading, armed bool, episodes uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &r
	s.armed = armed
	s.episodes = episodes
	s.readings++
}

func (s *State) ObserveAlert(res *domain.AlertResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastAlert = res
	s.alerts++
}

func (s *State) Threshold() float64 { return s.threshold }

func (s *State) LastReading() (domain.Reading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.last == nil {
		return domain.Reading{}, false
	}
	return *s.last, true
}

func (s *State) LastAlert() *domain.AlertResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastAlert
}

func (s *State) Snapshot() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Threshold: s.threshold,
		Trigger:   "ARMED",
		Episodes:  s.episodes,
		Readings:  s.readings,
		Alerts:    s.alerts,
	}
	if !s.armed {
		st.Trigger = "FIRED"
	}
	if s.last != nil {
		r := *s.last
		st.Reading = &r
	}
	if s.lastAlert != nil {
		st.LastAlert = NewAlertView(s.lastAlert)
	}
	return st
}
