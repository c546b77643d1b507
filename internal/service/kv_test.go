package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/alexanderramin/routinebuzz/internal/repository"
)

// memoryKV is an in-memory repository.KVRepo.
type memoryKV struct {
	mu     sync.Mutex
	data   map[string]string
	writes map[string]int
	getErr error
}

func newMemoryKV() *memoryKV {
	return &memoryKV{data: make(map[string]string), writes: make(map[string]int)}
}

func (m *memoryKV) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return "", fmt.Errorf("kv entry %s: %w", key, repository.ErrNotFound)
	}
	return v, nil
}

func (m *memoryKV) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.writes[key]++
	return nil
}

func (m *memoryKV) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *memoryKV) raw(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	return v, ok
}

func (m *memoryKV) put(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
}

func (m *memoryKV) writeCount(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes[key]
}
