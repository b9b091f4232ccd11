package supervisor

import (
	"sort"
	"sync"

	"github.com/charliek/npcctl/internal/domain"
)

// dispatcher delivers state changes to listeners on its own goroutine, in the
// order they were pushed. Pushing never blocks, so changes can be queued while
// the supervisor lock is held and listeners may call back into the supervisor.
type dispatcher struct {
	mu        sync.Mutex
	queue     []domain.StateChange
	listeners map[int]func(domain.StateChange)
	nextID    int

	wake      chan struct{}
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once
}

func newDispatcher() *dispatcher {
	d := &dispatcher{
		listeners: make(map[int]func(domain.StateChange)),
		wake:      make(chan struct{}, 1),
		quit:      make(chan struct{}),
		stopped:   make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *dispatcher) add(fn func(domain.StateChange)) func() {
	d.mu.Lock()
	id := d.nextID
	d.nextID++
	d.listeners[id] = fn
	d.mu.Unlock()

	return func() {
		d.mu.Lock()
		delete(d.listeners, id)
		d.mu.Unlock()
	}
}

func (d *dispatcher) push(change domain.StateChange) {
	d.mu.Lock()
	d.queue = append(d.queue, change)
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

func (d *dispatcher) run() {
	defer close(d.stopped)
	for {
		select {
		case <-d.wake:
			d.deliver()
		case <-d.quit:
			d.deliver()
			return
		}
	}
}

func (d *dispatcher) deliver() {
	for {
		d.mu.Lock()
		if len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil

		ids := make([]int, 0, len(d.listeners))
		for id := range d.listeners {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		listeners := make([]func(domain.StateChange), 0, len(ids))
		for _, id := range ids {
			listeners = append(listeners, d.listeners[id])
		}
		d.mu.Unlock()

		for _, change := range batch {
			for _, l := range listeners {
				l(change)
			}
		}
	}
}

// close delivers anything still queued and stops the goroutine
func (d *dispatcher) close() {
	d.closeOnce.Do(func() {
		close(d.quit)
	})
	<-d.stopped
}
