// testing.go: in-memory Interface implementation for tests in other packages.
package statestore

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is a map-backed state store for tests. It honors the same
// seeding and ordering semantics as the database-backed stores but keeps
// everything in process memory.
type MemStore struct {
	mu           sync.Mutex
	bools        map[string]bool
	ints         map[string]int
	doorEvents   []DoorEvent
	speechEvents []SpeechEvent
	nextDoorID   uint
	nextSpeechID uint
}

// NewMemStore returns an open, seeded in-memory store.
func NewMemStore() *MemStore {
	m := &MemStore{
		bools: make(map[string]bool),
		ints:  make(map[string]int),
	}
	_ = m.SeedDefaults()
	return m
}

func (m *MemStore) Open() error  { return nil }
func (m *MemStore) Close() error { return nil }

func (m *MemStore) SeedDefaults() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range seededStates.bools {
		if _, ok := m.bools[key]; !ok {
			m.bools[key] = false
		}
	}
	for _, key := range seededStates.ints {
		if _, ok := m.ints[key]; !ok {
			m.ints[key] = UnknownReading
		}
	}
	if _, ok := m.ints[KeyPendingSince]; !ok {
		m.ints[KeyPendingSince] = 0
	}
	return nil
}

func (m *MemStore) GetBool(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.bools[key]
	if !ok {
		return false, fmt.Errorf("bool state %q does not exist", key)
	}
	return value, nil
}

func (m *MemStore) SetBool(key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.bools[key]; !ok {
		return fmt.Errorf("bool state %q does not exist, store not seeded", key)
	}
	m.bools[key] = value
	return nil
}

func (m *MemStore) GetInt(key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.ints[key]
	if !ok {
		return 0, fmt.Errorf("int state %q does not exist", key)
	}
	return value, nil
}

func (m *MemStore) SetInt(key string, value int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.ints[key]; !ok {
		return fmt.Errorf("int state %q does not exist, store not seeded", key)
	}
	m.ints[key] = value
	return nil
}

func (m *MemStore) AddDoorEvent(event *DoorEvent) error {
	if event.Duration < 0 {
		return fmt.Errorf("door event duration must not be negative, got %d", event.Duration)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextDoorID++
	event.ID = m.nextDoorID
	m.doorEvents = append(m.doorEvents, *event)
	return nil
}

func (m *MemStore) LatestDoorEvents(limit int) ([]DoorEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	events := make([]DoorEvent, len(m.doorEvents))
	copy(events, m.doorEvents)
	sort.Slice(events, func(i, j int) bool { return events[i].ID > events[j].ID })
	if limit < len(events) {
		events = events[:limit]
	}
	return events, nil
}

func (m *MemStore) AddSpeechEvent(event *SpeechEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if event.Timestamp == 0 {
		event.Timestamp = time.Now().Unix()
	}
	m.nextSpeechID++
	event.ID = m.nextSpeechID
	m.speechEvents = append(m.speechEvents, *event)
	return nil
}

func (m *MemStore) PendingSpeechEvents() ([]SpeechEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pending []SpeechEvent
	for _, event := range m.speechEvents {
		if !event.Executed {
			pending = append(pending, event)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		if pending[i].Timestamp != pending[j].Timestamp {
			return pending[i].Timestamp < pending[j].Timestamp
		}
		return pending[i].ID < pending[j].ID
	})
	return pending, nil
}

func (m *MemStore) MarkSpeechExecuted(id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.speechEvents {
		if m.speechEvents[i].ID == id {
			m.speechEvents[i].Executed = true
			return nil
		}
	}
	return fmt.Errorf("speech event %d not found", id)
}

// Update runs fn directly; MemStore writes are individually atomic and the
// tests that need rollback semantics use the SQLite store.
func (m *MemStore) Update(fn func(Accessor) error) error {
	return fn(m)
}

var _ Interface = (*MemStore)(nil)
