// Package pending keeps transcriptions of voice notes whose translation is
// deferred until a user presses the translate button.
package pending

import (
	"sync"
)

// Key identifies the bot message that carries the translate button.
type Key struct {
	ChatID    string
	MessageID string
}

// Store maps [Key] to transcribed text. The front end owns the lifecycle; no
// TTL is enforced here.
type Store interface {
	Put(key Key, text string)
	Get(key Key) (string, bool)
	// Take returns and removes the text for key.
	Take(key Key) (string, bool)
	Delete(key Key)
	Len() int
}

// Memory is an in-process [Store] safe for concurrent use.
type Memory struct {
	mu   sync.Mutex
	text map[Key]string
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{text: make(map[Key]string)}
}

func (m *Memory) Put(key Key, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.text[key] = text
}

func (m *Memory) Get(key Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.text[key]
	return t, ok
}

func (m *Memory) Take(key Key) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.text[key]
	if ok {
		delete(m.text, key)
	}
	return t, ok
}

func (m *Memory) Delete(key Key) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.text, key)
}

func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.text)
}
