package logs

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/charliek/npcctl/internal/domain"
)

// Subscription delivers matching entries on a buffered channel. A slow
// reader loses entries rather than blocking the relay; Dropped counts them
// and the gap shows up in the sequence numbers.
type Subscription struct {
	id      string
	ch      chan domain.LogEntry
	filter  *Filter
	mu      sync.Mutex // guards ch against send after close
	closed  bool
	dropped atomic.Uint64
}

func newSubscription(filter domain.LogFilter, bufferSize int) (*Subscription, error) {
	f, err := NewFilter(filter)
	if err != nil {
		return nil, err
	}
	return &Subscription{
		id:     uuid.NewString(),
		ch:     make(chan domain.LogEntry, bufferSize),
		filter: f,
	}, nil
}

// ID returns the subscription ID
func (s *Subscription) ID() string { return s.id }

// Channel returns the receive side. It is closed on Unsubscribe.
func (s *Subscription) Channel() <-chan domain.LogEntry { return s.ch }

// Dropped returns how many matching entries did not fit in the channel
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Send queues entry if it matches. It returns false only when the entry
// was lost: the subscription is closed or its buffer is full.
func (s *Subscription) Send(entry domain.LogEntry) bool {
	if !s.filter.Matches(entry) {
		return true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	select {
	case s.ch <- entry:
		return true
	default:
		s.dropped.Add(1)
		return false
	}
}

// Close closes the channel. Repeated calls are no-ops.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// SubscriptionManager fans entries out to subscriptions
type SubscriptionManager struct {
	mu         sync.RWMutex
	subs       map[string]*Subscription
	bufferSize int
}

// NewSubscriptionManager creates a manager whose channels hold bufferSize
// entries
func NewSubscriptionManager(bufferSize int) *SubscriptionManager {
	if bufferSize <= 0 {
		bufferSize = DefaultManagerConfig().SubscriptionBuffer
	}
	return &SubscriptionManager{
		subs:       make(map[string]*Subscription),
		bufferSize: bufferSize,
	}
}

// Subscribe registers a subscription for entries matching filter
func (m *SubscriptionManager) Subscribe(filter domain.LogFilter) (*Subscription, error) {
	sub, err := newSubscription(filter, m.bufferSize)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.subs[sub.id] = sub
	m.mu.Unlock()
	return sub, nil
}

// Unsubscribe removes and closes the subscription. Unknown IDs are ignored.
func (m *SubscriptionManager) Unsubscribe(id string) {
	m.mu.Lock()
	sub := m.subs[id]
	delete(m.subs, id)
	m.mu.Unlock()

	if sub != nil {
		sub.Close()
	}
}

// Broadcast offers entry to every subscription and returns how many lost it
func (m *SubscriptionManager) Broadcast(entry domain.LogEntry) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	lost := 0
	for _, sub := range m.subs {
		if !sub.Send(entry) {
			lost++
		}
	}
	return lost
}

// Count returns the number of subscriptions
func (m *SubscriptionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Close closes and forgets every subscription
func (m *SubscriptionManager) Close() {
	m.mu.Lock()
	subs := m.subs
	m.subs = make(map[string]*Subscription)
	m.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}
