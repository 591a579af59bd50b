package storage

import (
	"context"
	"sync"
)

// Memory is an in-process Backend. Values are copied on the way in and out.
// Failures can be injected per operation, which is how tests simulate a
// throwing or quota-limited substrate.
type Memory struct {
	mu      sync.RWMutex
	entries map[string][]byte
	closed  bool

	getErr    error
	setErr    error
	deleteErr error
}

// NewMemory creates an empty in-memory backend.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.closed {
		return nil, ErrClosed
	}
	v, ok := m.entries[key]
	if !ok {
		return nil, ErrNotFound
	}
	return copyBytes(v), nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	if m.closed {
		return ErrClosed
	}
	m.entries[key] = copyBytes(value)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if m.closed {
		return ErrClosed
	}
	delete(m.entries, key)
	return nil
}

func (m *Memory) Ping(_ context.Context) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.entries = nil
	return nil
}

// FailGet makes every subsequent Get return err. nil restores normal behaviour.
func (m *Memory) FailGet(err error) {
	m.mu.Lock()
	m.getErr = err
	m.mu.Unlock()
}

// FailSet makes every subsequent Set return err.
func (m *Memory) FailSet(err error) {
	m.mu.Lock()
	m.setErr = err
	m.mu.Unlock()
}

// FailDelete makes every subsequent Delete return err.
func (m *Memory) FailDelete(err error) {
	m.mu.Lock()
	m.deleteErr = err
	m.mu.Unlock()
}

// Len reports the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
