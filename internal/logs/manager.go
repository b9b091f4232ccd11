// Package logs implements the append-only log sink shown to the user: a ring
// buffer of timestamped lines with filtered queries, channel subscriptions and
// synchronous listeners.
package logs

import (
	"sync"
	"time"

	"github.com/charliek/npcctl/internal/domain"
)

// ManagerConfig holds configuration for the log manager
type ManagerConfig struct {
	BufferSize         int // Number of entries to keep in ring buffer
	SubscriptionBuffer int // Buffer size for subscription channels
}

// DefaultManagerConfig returns the default configuration
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		BufferSize:         5000,
		SubscriptionBuffer: 100,
	}
}

// Listener is called synchronously for every entry written to the sink
type Listener func(domain.LogEntry)

// Manager manages log storage and subscriptions
type Manager struct {
	buffer        *RingBuffer
	subscriptions *SubscriptionManager

	// writeMu keeps sequence order and delivery order identical
	writeMu sync.Mutex

	listenerMu     sync.RWMutex
	listeners      map[int]Listener
	nextListenerID int
}

// NewManager creates a new log manager
func NewManager(config ManagerConfig) *Manager {
	if config.BufferSize <= 0 {
		config.BufferSize = DefaultManagerConfig().BufferSize
	}
	if config.SubscriptionBuffer <= 0 {
		config.SubscriptionBuffer = DefaultManagerConfig().SubscriptionBuffer
	}

	return &Manager{
		buffer:        NewRingBuffer(config.BufferSize),
		subscriptions: NewSubscriptionManager(config.SubscriptionBuffer),
		listeners:     make(map[int]Listener),
	}
}

// Write adds a log entry to the buffer and delivers it to subscribers and
// listeners. A zero timestamp is replaced with the current time.
func (m *Manager) Write(entry domain.LogEntry) domain.LogEntry {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	entry = m.buffer.Write(entry)
	m.subscriptions.Broadcast(entry)

	m.listenerMu.RLock()
	defer m.listenerMu.RUnlock()
	for _, l := range m.listeners {
		l(entry)
	}
	return entry
}

// Append writes a line from source on stream
func (m *Manager) Append(source string, stream domain.Stream, line string) domain.LogEntry {
	return m.Write(domain.LogEntry{
		Source: source,
		Stream: stream,
		Line:   line,
	})
}

// System writes a line produced by npcctl itself
func (m *Manager) System(line string) domain.LogEntry {
	return m.Append(domain.SourceApp, domain.StreamSystem, line)
}

// AddListener registers l and returns a function that removes it.
// Listeners must not write to the manager.
func (m *Manager) AddListener(l Listener) func() {
	m.listenerMu.Lock()
	id := m.nextListenerID
	m.nextListenerID++
	m.listeners[id] = l
	m.listenerMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.listenerMu.Lock()
			delete(m.listeners, id)
			m.listenerMu.Unlock()
		})
	}
}

// Query retrieves log entries matching the filter.
// Returns the entries and the total count before limiting.
func (m *Manager) Query(filter domain.LogFilter, limit int) ([]domain.LogEntry, int, error) {
	return FilterEntriesLimit(m.buffer.Read(), filter, limit)
}

// QuerySince retrieves entries newer than seq matching the filter
func (m *Manager) QuerySince(filter domain.LogFilter, seq uint64, limit int) ([]domain.LogEntry, int, error) {
	return FilterEntriesLimit(m.buffer.ReadSince(seq), filter, limit)
}

// Subscribe creates a subscription for log entries matching the filter
func (m *Manager) Subscribe(filter domain.LogFilter) (string, <-chan domain.LogEntry, error) {
	sub, err := m.subscriptions.Subscribe(filter)
	if err != nil {
		return "", nil, err
	}
	return sub.ID(), sub.Channel(), nil
}

// Unsubscribe removes a subscription
func (m *Manager) Unsubscribe(id string) {
	m.subscriptions.Unsubscribe(id)
}

// Stats returns statistics about the log manager
func (m *Manager) Stats() domain.LogStats {
	return domain.LogStats{
		TotalEntries: m.buffer.Count(),
		BufferSize:   m.buffer.Capacity(),
		Subscribers:  m.subscriptions.Count(),
	}
}

// Close closes the manager and all subscriptions
func (m *Manager) Close() {
	m.subscriptions.Close()
}
