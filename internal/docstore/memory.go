package docstore

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/glucokeeper/internal/common"
)

// Fault lets tests make a Memory store fail. It is called before every
// operation; a non-nil result is returned instead of performing it.
type Fault func(op, path string) error

// Memory is an in-process Store. It is safe for concurrent use.
type Memory struct {
	mu    sync.RWMutex
	docs  map[string][]byte
	fault Fault
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{docs: make(map[string][]byte)}
}

// SetFault installs f; nil removes it.
func (m *Memory) SetFault(f Fault) {
	m.mu.Lock()
	m.fault = f
	m.mu.Unlock()
}

func (m *Memory) check(op, path string) error {
	m.mu.RLock()
	f := m.fault
	m.mu.RUnlock()
	if f == nil {
		return nil
	}
	return f(op, path)
}

func (m *Memory) Put(ctx context.Context, path string, body []byte) error {
	if err := m.check("put", path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[path] = append([]byte(nil), body...)
	return nil
}

func (m *Memory) Get(ctx context.Context, path string) ([]byte, error) {
	if err := m.check("get", path); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	body, ok := m.docs[path]
	if !ok {
		return nil, common.ErrNotFound
	}
	return append([]byte(nil), body...), nil
}

func (m *Memory) List(ctx context.Context, collection string) (map[string][]byte, error) {
	if err := m.check("list", collection); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte)
	for p, body := range m.docs {
		if c, id := Split(p); c == collection {
			out[id] = append([]byte(nil), body...)
		}
	}
	return out, nil
}

func (m *Memory) Delete(ctx context.Context, path string) error {
	if err := m.check("delete", path); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, path)
	return nil
}

// Len returns the number of stored documents.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// Dump returns a copy of every document keyed by path.
func (m *Memory) Dump() map[string][]byte {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(m.docs))
	for p, body := range m.docs {
		out[p] = append([]byte(nil), body...)
	}
	return out
}
