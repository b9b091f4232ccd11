package logs

import (
	"sync"

	"github.com/charliek/npcctl/internal/domain"
)

// RingBuffer is a fixed-size circular buffer for log entries. It stamps each
// entry with a sequence number so readers can resume after the last line seen.
type RingBuffer struct {
	mu       sync.RWMutex
	entries  []domain.LogEntry
	head     int    // next write position
	count    int    // current number of entries
	capacity int    // max entries
	nextSeq  uint64 // sequence number for the next write
}

// NewRingBuffer creates a new ring buffer with the given capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1000
	}
	return &RingBuffer{
		entries:  make([]domain.LogEntry, capacity),
		capacity: capacity,
		nextSeq:  1,
	}
}

// Write stores entry and returns it with its sequence number set
func (b *RingBuffer) Write(entry domain.LogEntry) domain.LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry.Seq = b.nextSeq
	b.nextSeq++

	b.entries[b.head] = entry
	b.head = (b.head + 1) % b.capacity

	if b.count < b.capacity {
		b.count++
	}
	return entry
}

// Read returns all entries in chronological order
func (b *RingBuffer) Read() []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastLocked(b.count)
}

// ReadLast returns the last n entries in chronological order
func (b *RingBuffer) ReadLast(n int) []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 {
		return nil
	}
	return b.lastLocked(n)
}

// ReadSince returns entries with a sequence number greater than seq.
// Entries already evicted from the buffer are silently skipped.
func (b *RingBuffer) ReadSince(seq uint64) []domain.LogEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if seq >= b.nextSeq-1 {
		return nil
	}
	pending := b.nextSeq - 1 - seq
	if pending > uint64(b.count) {
		pending = uint64(b.count)
	}
	return b.lastLocked(int(pending))
}

// lastLocked copies out the newest n entries. Callers hold b.mu.
func (b *RingBuffer) lastLocked(n int) []domain.LogEntry {
	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	// head points one past the newest entry whether or not the buffer is full
	start := (b.head - n + b.capacity) % b.capacity

	result := make([]domain.LogEntry, n)
	for i := 0; i < n; i++ {
		result[i] = b.entries[(start+i)%b.capacity]
	}
	return result
}

// LastSeq returns the sequence number of the newest entry, or 0 when empty
func (b *RingBuffer) LastSeq() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.nextSeq - 1
}

// Count returns the current number of entries in the buffer
func (b *RingBuffer) Count() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.count
}

// Capacity returns the maximum capacity of the buffer
func (b *RingBuffer) Capacity() int {
	return b.capacity
}

// Clear removes all entries from the buffer. Sequence numbers keep increasing.
func (b *RingBuffer) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.head = 0
	b.count = 0
}
