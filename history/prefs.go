package history

import gosync "sync"

// PrefStore is the opaque string-keyed preference store the history is
// persisted in. A missing key reads as "" with a nil error.
type PrefStore interface {
	GetString(key string) (string, error)
	SetString(key, value string) error
}

// MemoryPrefs is a PrefStore that lives only as long as the process.
type MemoryPrefs struct {
	mu     gosync.RWMutex
	values map[string]string
}

// NewMemoryPrefs creates an empty in-memory store.
func NewMemoryPrefs() *MemoryPrefs {
	return &MemoryPrefs{values: make(map[string]string)}
}

func (m *MemoryPrefs) GetString(key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[key], nil
}

func (m *MemoryPrefs) SetString(key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
