package store

import (
	"sync"
	"time"
)

// subscriberBuffer is the channel capacity given to each subscriber.
const subscriberBuffer = 32

// MemoryStore is an in-memory implementation of [Store].
//
// Subscribers receive updates via buffered channels. Updates are sent
// non-blocking; if a subscriber's buffer is full, the update is dropped
// for that subscriber. Every snapshot is complete, so a subscriber that
// misses one catches up on the next.
type MemoryStore struct {
	mu          sync.RWMutex
	current     Snapshot
	subscribers map[chan Snapshot]struct{}
	subMu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory [Store] starting with theme.
func NewMemoryStore(theme string) *MemoryStore {
	return &MemoryStore{
		current:     Snapshot{Theme: theme},
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// Render implements [Store].
func (m *MemoryStore) Render(seq uint64, active bool, nodes int, fragment string, checkedAt time.Time) {
	m.mu.Lock()
	m.current.Seq = seq
	m.current.Active = active
	m.current.Nodes = nodes
	m.current.Fragment = fragment
	m.current.CheckedAt = checkedAt
	m.notifySubscribers(m.current)
	m.mu.Unlock()
}

// SetTheme implements [Store].
func (m *MemoryStore) SetTheme(theme string) {
	m.mu.Lock()
	m.current.Theme = theme
	m.notifySubscribers(m.current)
	m.mu.Unlock()
}

// Get implements [Store].
func (m *MemoryStore) Get() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.current
}

// Subscribe implements [Store].
func (m *MemoryStore) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, subscriberBuffer)

	m.subMu.Lock()
	m.subscribers[ch] = struct{}{}
	m.subMu.Unlock()

	return ch
}

// Unsubscribe implements [Store].
func (m *MemoryStore) Unsubscribe(ch <-chan Snapshot) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for subCh := range m.subscribers {
		if subCh == ch {
			delete(m.subscribers, subCh)
			close(subCh)
			break
		}
	}
}

// notifySubscribers sends snap to all active subscribers without blocking.
// Callers hold m.mu so subscribers see snapshots in the order they were
// made.
func (m *MemoryStore) notifySubscribers(snap Snapshot) {
	m.subMu.RLock()
	defer m.subMu.RUnlock()

	for ch := range m.subscribers {
		select {
		case ch <- snap:
		default:
			// subscriber is slow, drop the message
		}
	}
}
