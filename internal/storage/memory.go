package storage

import (
	"context"
	"io"
	"sync"
)

// MemoryStore keeps objects in process. URLs point at BaseURL.
type MemoryStore struct {
	BaseURL string
	// FailPut makes every Put fail with this error.
	FailPut error

	mu      sync.Mutex
	objects map[string][]byte
}

func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{BaseURL: baseURL, objects: map[string][]byte{}}
}

func (m *MemoryStore) Put(_ context.Context, key, _ string, body io.Reader, _ int64) (string, error) {
	if m.FailPut != nil {
		return "", m.FailPut
	}
	b, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = b
	return m.BaseURL + "/" + key, nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

func (m *MemoryStore) Object(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.objects[key]
	return b, ok
}

func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.objects)
}
