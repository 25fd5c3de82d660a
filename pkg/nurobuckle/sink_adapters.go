package nurobuckle

import (
	"errors"
	"fmt"
	"sync"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// ErrChannelSinkClosed is returned when a channel sink is written to after being closed.
var ErrChannelSinkClosed = errors.New("nurobuckle: channel sink closed")

// ReadingBatchFunc receives batches of accepted readings in order.
type ReadingBatchFunc func([]Reading) error

// NewCallbackSink adapts a function into a Sink so callers can persist
// readings without defining a type.
func NewCallbackSink(name string, fn ReadingBatchFunc) Sink {
	if name == "" {
		name = "callback"
	}
	return &callbackSink{name: name, fn: fn}
}

// NewChannelSink exposes batches on a channel. It returns the sink, the
// read-only channel and a close function to call during shutdown.
func NewChannelSink(name string, buffer int) (Sink, <-chan []Reading, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan []Reading, buffer)
	s := &channelSink{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return s, ch, s.close
}

type callbackSink struct {
	name string
	fn   ReadingBatchFunc
}

func (s *callbackSink) WriteBatch(readings []domain.Reading) error {
	if s.fn == nil {
		return fmt.Errorf("callback sink %q: nil handler", s.name)
	}
	if len(readings) == 0 {
		return nil
	}
	return s.fn(copyBatch(readings))
}

func (s *callbackSink) Name() string { return s.name }

type channelSink struct {
	name   string
	ch     chan []Reading
	closed chan struct{}
	once   sync.Once
	// mu keeps ch open while a WriteBatch is sending.
	mu sync.RWMutex
}

func (s *channelSink) WriteBatch(readings []domain.Reading) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	default:
	}

	if len(readings) == 0 {
		return nil
	}

	select {
	case <-s.closed:
		return ErrChannelSinkClosed
	case s.ch <- copyBatch(readings):
		return nil
	}
}

func (s *channelSink) Name() string { return s.name }

func (s *channelSink) close() {
	s.once.Do(func() {
		close(s.closed)
		s.mu.Lock()
		close(s.ch)
		s.mu.Unlock()
	})
}

func copyBatch(readings []domain.Reading) []Reading {
	out := make([]Reading, len(readings))
	copy(out, readings)
	return out
}
