package nurobuckle

import (
	"errors"
	"sync"
	"time"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

var (
	// ErrCollectorClosed is returned by Push after Stop.
	ErrCollectorClosed = errors.New("nurobuckle: collector closed")
	// ErrCollectorFull is returned by Push when the buffer is full.
	ErrCollectorFull = errors.New("nurobuckle: collector buffer full")
)

// PushCollector lets callers that already own a device connection feed
// samples into the runtime. Push never blocks.
type PushCollector struct {
	pending chan *domain.Sample
	stop    chan struct{}

	mu      sync.Mutex
	seq     uint64
	closed  bool
	started bool
}

func NewPushCollector(buffer int) *PushCollector {
	if buffer <= 0 {
		buffer = 64
	}
	return &PushCollector{
		pending: make(chan *domain.Sample, buffer),
		stop:    make(chan struct{}),
	}
}

// Start forwards pushed samples to out until Stop, then closes out.
func (c *PushCollector) Start(out chan<- *domain.Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCollectorClosed
	}
	if c.started {
		return errors.New("nurobuckle: collector already started")
	}
	c.started = true

	go func() {
		defer close(out)
		for {
			select {
			case <-c.stop:
				return
			case s := <-c.pending:
				select {
				case out <- s:
				case <-c.stop:
					return
				}
			}
		}
	}()
	return nil
}

func (c *PushCollector) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.stop)
	}
	return nil
}

// Push queues s. A zero Seq is replaced with the next sequence number.
func (c *PushCollector) Push(s Sample) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCollectorClosed
	}
	c.seq++
	if s.Seq == 0 {
		s.Seq = c.seq
	}
	select {
	case c.pending <- &s:
		return nil
	default:
		return ErrCollectorFull
	}
}

// PushValue queues an active sample with the raw attention value (0..1).
func (c *PushCollector) PushValue(ts time.Time, raw float64) error {
	return c.Push(*domain.NewSample(ts, raw))
}
