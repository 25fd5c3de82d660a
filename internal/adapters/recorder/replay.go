package recorder

import (
	"errors"
	"sync"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

var errReplayStopped = errors.New("replay stopped")

// ReplayCollector streams a capture file as if it came from the device.
// Speed scales the recorded gaps between samples; 0 replays without waiting.
type ReplayCollector struct {
	path  string
	speed float64

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	err     error
	sent    uint64
	stopped bool
}

var _ ports.Collector = (*ReplayCollector)(nil)

func NewReplayCollector(path string, speed float64) *ReplayCollector {
	return &ReplayCollector{path: path, speed: speed}
}

func (c *ReplayCollector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	stop, done := c.stop, c.done
	c.mu.Unlock()

	go func() {
		defer close(done)
		defer close(out)

		var prev time.Time
		err := ReadFile(c.path, 0, func(_ ports.RecordID, s *domain.Sample) error {
			if c.speed > 0 && !prev.IsZero() {
				if gap := s.Timestamp.Sub(prev); gap > 0 {
					select {
					case <-time.After(time.Duration(float64(gap) / c.speed)):
					case <-stop:
						return errReplayStopped
					}
				}
			}
			prev = s.Timestamp

			select {
			case out <- s:
				c.mu.Lock()
				c.sent++
				c.mu.Unlock()
				return nil
			case <-stop:
				return errReplayStopped
			}
		})
		if errors.Is(err, errReplayStopped) {
			err = nil
		}
		c.mu.Lock()
		c.err = err
		c.mu.Unlock()
	}()
	return nil
}

// Stop ends the replay and returns any read error it hit.
func (c *ReplayCollector) Stop() error {
	c.mu.Lock()
	if c.stop == nil {
		c.mu.Unlock()
		return nil
	}
	if !c.stopped {
		c.stopped = true
		close(c.stop)
	}
	done := c.done
	c.mu.Unlock()

	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Sent is the number of samples delivered so far.
func (c *ReplayCollector) Sent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}
