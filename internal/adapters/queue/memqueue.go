package queue

import (
	"sync"

	"github.com/BCIDriver/Nurobuckle/internal/domain"
	"github.com/BCIDriver/Nurobuckle/internal/ports"
)

// MemQueue is a bounded FIFO of readings backed by a ring buffer.
type MemQueue struct {
	mu   sync.Mutex
	buf  []domain.Reading
	head int
	size int
}

func NewMemQueue(capacity int) *MemQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &MemQueue{buf: make([]domain.Reading, capacity)}
}

// Enqueue returns false when the queue is full.
func (q *MemQueue) Enqueue(r domain.Reading) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == len(q.buf) {
		return false
	}
	q.buf[(q.head+q.size)%len(q.buf)] = r
	q.size++
	return true
}

// DequeueBatch removes up to max readings; max <= 0 drains the queue.
func (q *MemQueue) DequeueBatch(max int) []domain.Reading {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.size == 0 {
		return nil
	}
	if max <= 0 || max > q.size {
		max = q.size
	}
	out := make([]domain.Reading, max)
	for i := range out {
		out[i] = q.buf[(q.head+i)%len(q.buf)]
	}
	q.head = (q.head + max) % len(q.buf)
	q.size -= max
	return out
}

func (q *MemQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.size
}

func (q *MemQueue) Cap() int { return len(q.buf) }

var _ ports.ReadingQueue = (*MemQueue)(nil)
