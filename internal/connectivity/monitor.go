package connectivity

import (
	"context"
	"sync"
)

// Monitor tracks a single best-effort reachability boolean and notifies
// subscribers on every transition. It never fails; the signal may lag
// true reachability, which callers must tolerate.
type Monitor struct {
	mu          sync.RWMutex
	online      bool
	subscribers map[int64]chan bool
	nextID      int64
	bufferSize  int
}

// NewMonitor constructs a Monitor seeded with the given initial state.
func NewMonitor(initiallyOnline bool) *Monitor {
	return &Monitor{
		online:      initiallyOnline,
		subscribers: make(map[int64]chan bool),
		bufferSize:  4,
	}
}

// Online reports the current state without blocking.
func (m *Monitor) Online() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.online
}

// Set records a fresh observation. Subscribers are notified only when
// the value actually changes.
func (m *Monitor) Set(online bool) {
	m.mu.Lock()
	if m.online == online {
		m.mu.Unlock()
		return
	}
	m.online = online
	streams := make([]chan bool, 0, len(m.subscribers))
	for _, stream := range m.subscribers {
		streams = append(streams, stream)
	}
	m.mu.Unlock()

	for _, stream := range streams {
		select {
		case stream <- online:
		default:
			// Slow subscriber; it will resample Online() on its next read.
		}
	}
}

// Subscribe registers for transition notifications. The returned channel
// receives the new value on each change and is unregistered when the
// context is cancelled.
func (m *Monitor) Subscribe(ctx context.Context) <-chan bool {
	stream := make(chan bool, m.bufferSize)

	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.subscribers[id] = stream
	m.mu.Unlock()

	go func() {
		<-ctx.Done()
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}()

	return stream
}
