package trace

import "sync"

// RingBuffer keeps the most recent entries up to a fixed capacity.
// It is safe for concurrent use.
type RingBuffer struct {
	mu    sync.RWMutex
	buf   []Entry
	next  int
	count int
	total int
}

// NewRingBuffer creates a ring buffer holding up to size entries.
// A non-positive size falls back to 200.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 200
	}
	return &RingBuffer{buf: make([]Entry, size)}
}

// Add records an entry, evicting the oldest when full.
func (rb *RingBuffer) Add(e Entry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buf[rb.next] = e
	rb.next = (rb.next + 1) % len(rb.buf)
	rb.count = min(rb.count+1, len(rb.buf))
	rb.total++
}

// Last returns up to n most recent entries, oldest first.
func (rb *RingBuffer) Last(n int) []Entry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n = min(n, rb.count)
	if n <= 0 {
		return nil
	}

	out := make([]Entry, n)
	size := len(rb.buf)
	start := (rb.next - n + size) % size
	for i := range out {
		out[i] = rb.buf[(start+i)%size]
	}
	return out
}

// Count returns the number of entries currently held.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Total returns the number of entries ever added, including evicted ones.
func (rb *RingBuffer) Total() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.total
}

// CountKind returns how many held entries have the given kind.
func (rb *RingBuffer) CountKind(k Kind) int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	n := 0
	size := len(rb.buf)
	start := (rb.next - rb.count + size) % size
	for i := range rb.count {
		if rb.buf[(start+i)%size].Kind == k {
			n++
		}
	}
	return n
}
