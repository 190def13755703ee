package pwa

import (
	"context"
	"net/http"
	"sort"
	"sync"
)

// Entry is a stored response
type Entry struct {
	Status int         `json:"status"`
	Header http.Header `json:"header,omitempty"`
	Body   []byte      `json:"body"`
}

// Cache is a set of named response caches, keyed by request URI
type Cache interface {
	Get(ctx context.Context, cache, key string) (*Entry, bool, error)
	Put(ctx context.Context, cache, key string, e *Entry) error
	Names(ctx context.Context) ([]string, error)
	Delete(ctx context.Context, cache string) error
}

// MemoryCache keeps responses for the life of the process
type MemoryCache struct {
	mu     sync.RWMutex
	caches map[string]map[string]*Entry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{caches: make(map[string]map[string]*Entry)}
}

func (m *MemoryCache) Get(_ context.Context, cache, key string) (*Entry, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.caches[cache][key]
	return e, ok, nil
}

func (m *MemoryCache) Put(_ context.Context, cache, key string, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.caches[cache] == nil {
		m.caches[cache] = make(map[string]*Entry)
	}
	m.caches[cache][key] = e
	return nil
}

func (m *MemoryCache) Names(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.caches))
	for name := range m.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (m *MemoryCache) Delete(_ context.Context, cache string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.caches, cache)
	return nil
}
