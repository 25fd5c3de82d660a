package pipeline

import (
	"sync"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
)

// DefaultHistoryCapacity keeps eight hours of one-per-minute readings.
const DefaultHistoryCapacity = 480

// History is a fixed-capacity ring of readings. Only the sampler writes to it;
// readers always receive copies.
type History struct {
	mu   sync.RWMutex
	buf  []domain.Reading
	head int
	size int
}

func NewHistory(capacity int) *History {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &History{buf: make([]domain.Reading, capacity)}
}

// Push appends r, evicting the oldest reading when full.
func (h *History) Push(r domain.Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	idx := (h.head + h.size) % len(h.buf)
	h.buf[idx] = r
	if h.size < len(h.buf) {
		h.size++
		return
	}
	h.head = (h.head + 1) % len(h.buf)
}

// Snapshot returns the readings oldest first.
func (h *History) Snapshot() []domain.Reading {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]domain.Reading, h.size)
	for i := 0; i < h.size; i++ {
		out[i] = h.buf[(h.head+i)%len(h.buf)]
	}
	return out
}

// Recent returns up to n of the newest readings, oldest first.
func (h *History) Recent(n int) []domain.Reading {
	all := h.Snapshot()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// Last returns the newest reading.
func (h *History) Last() (domain.Reading, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.size == 0 {
		return domain.Reading{}, false
	}
	return h.buf[(h.head+h.size-1)%len(h.buf)], true
}

func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.size
}

func (h *History) Cap() int { return len(h.buf) }
