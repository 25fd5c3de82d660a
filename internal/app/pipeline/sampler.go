package pipeline

import (
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// Sampler accepts at most one score per interval and records accepted
// readings in its History. It is not safe for concurrent Accept calls; the
// pipeline goroutine owns it.
type Sampler struct {
	interval     time.Duration
	lastAccepted time.Time
	primed       bool
	history      *History
}

func NewSampler(interval time.Duration, history *History) *Sampler {
	if history == nil {
		history = NewHistory(DefaultHistoryCapacity)
	}
	return &Sampler{interval: interval, history: history}
}

// Accept reports whether a score observed at ts passes the debounce window.
// Accepted scores are appended to History.
func (s *Sampler) Accept(ts time.Time, score domain.Score) bool {
	return s.AcceptReading(domain.Reading{Timestamp: ts, Score: score})
}

// AcceptReading is Accept for a reading that already carries its status.
func (s *Sampler) AcceptReading(r domain.Reading) bool {
	if s.primed && r.Timestamp.Sub(s.lastAccepted) < s.interval {
		return false
	}
	s.primed = true
	s.lastAccepted = r.Timestamp
	s.history.Push(r)
	return true
}

func (s *Sampler) History() *History { return s.history }

func (s *Sampler) Interval() time.Duration { return s.interval }
