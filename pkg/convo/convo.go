// Package convo keeps conversation state shared between connectors:
// situational context facts and the history of what the robot has said.
package convo

import (
	"encoding/json"
	"sync"
	"time"
)

// maxHistory caps the robot message history.
const maxHistory = 200

// Entry is one robot utterance.
type Entry struct {
	Time time.Time `json:"time"`
	Text string    `json:"text"`
}

// Memory holds shared conversation state. All data persists to the
// configured Store backend.
type Memory struct {
	mu sync.RWMutex

	// Context stores situational facts, e.g. "greeting_conversation_finished".
	Context map[string]any `json:"context"`

	// History stores recent robot utterances, oldest first.
	History []Entry `json:"history"`

	store Store
	now   func() time.Time
}

// New creates an in-memory store with no persistence.
func New() *Memory {
	return &Memory{
		Context: make(map[string]any),
		now:     time.Now,
	}
}

// NewWithStore creates a memory with a persistence backend and loads any
// existing data.
func NewWithStore(store Store) *Memory {
	m := New()
	m.store = store
	m.Load()
	return m
}

// NewWithFile creates a memory that persists to a JSON file.
func NewWithFile(path string) *Memory {
	return NewWithStore(NewJSONStore(path))
}

// UpdateContext merges values into the context and saves.
func (m *Memory) UpdateContext(values map[string]any) {
	if len(values) == 0 {
		return
	}
	m.mu.Lock()
	for k, v := range values {
		m.Context[k] = v
	}
	m.mu.Unlock()

	m.Save()
}

// GetContext retrieves a context value and whether it was found.
func (m *Memory) GetContext(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.Context[key]
	return v, ok
}

// StoreRobotMessage appends an utterance to the history and saves.
func (m *Memory) StoreRobotMessage(text string) {
	m.mu.Lock()
	m.History = append(m.History, Entry{Time: m.now(), Text: text})
	if len(m.History) > maxHistory {
		m.History = m.History[len(m.History)-maxHistory:]
	}
	m.mu.Unlock()

	m.Save()
}

// RobotMessages returns the recorded utterance texts, oldest first.
func (m *Memory) RobotMessages() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	texts := make([]string, len(m.History))
	for i, e := range m.History {
		texts[i] = e.Text
	}
	return texts
}

// Save persists memory to the configured store.
func (m *Memory) Save() error {
	if m.store == nil {
		return nil
	}

	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	return m.store.Save(data)
}

// Load reads memory from the configured store. Missing data is not an error.
func (m *Memory) Load() error {
	if m.store == nil {
		return nil
	}

	data, err := m.store.Load()
	if err != nil {
		return err
	}
	if data == nil {
		return nil
	}

	var loaded Memory
	if err := json.Unmarshal(data, &loaded); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if loaded.Context != nil {
		m.Context = loaded.Context
	}
	if loaded.History != nil {
		m.History = loaded.History
	}
	return nil
}

// Close releases resources held by the store.
func (m *Memory) Close() error {
	if m.store == nil {
		return nil
	}
	return m.store.Close()
}
