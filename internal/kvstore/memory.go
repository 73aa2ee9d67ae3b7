package kvstore

import (
	"context"
	"strings"
	"sync"
)

// Memory is a process-local Engine. It never dies, so OnState callbacks are
// retained but only ever fire from test helpers (see FlipState).
type Memory struct {
	mu     sync.RWMutex
	data   map[string]string
	state  []func(alive bool)
	closed bool
}

func NewMemory() *Memory {
	return &Memory{data: map[string]string{}}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return "", ErrClosed
	}
	v, ok := m.data[key]
	if !ok {
		return "", ErrKeyNotFound
	}
	return v, nil
}

func (m *Memory) Put(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	m.data[key] = value
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrClosed
	}
	delete(m.data, key)
	return nil
}

func (m *Memory) List(_ context.Context, prefix string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string)
	for k, v := range m.data {
		if strings.HasPrefix(k, prefix) {
			out[k] = v
		}
	}
	return out, nil
}

func (m *Memory) OnState(fn func(alive bool)) {
	if fn == nil {
		return
	}
	m.mu.Lock()
	m.state = append(m.state, fn)
	m.mu.Unlock()
}

// FlipState fires the registered liveness callbacks. Tests use it to drive
// the preference store's dead-engine fallback without a real backend.
func (m *Memory) FlipState(alive bool) {
	m.mu.RLock()
	fns := append([]func(bool){}, m.state...)
	m.mu.RUnlock()
	for _, fn := range fns {
		fn(alive)
	}
}

func (m *Memory) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	return nil
}
