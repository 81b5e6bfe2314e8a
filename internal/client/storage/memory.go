package storage

import (
	"context"
	"sync"
)

// memoryBackend es el "disco" compartido por todas las pestañas.
type memoryBackend struct {
	mu     sync.RWMutex
	data   map[string]string
	subs   map[int]memorySub
	nextID int
}

type memorySub struct {
	owner *Memory
	fn    func(Change)
}

// Memory es una pestaña sobre un backend en memoria.
type Memory struct {
	b *memoryBackend
}

var _ Storage = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{b: &memoryBackend{
		data: map[string]string{},
		subs: map[int]memorySub{},
	}}
}

// NewTab devuelve otra instancia sobre el mismo backend.
func (m *Memory) NewTab() *Memory {
	return &Memory{b: m.b}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.b.mu.RLock()
	defer m.b.mu.RUnlock()

	v, ok := m.b.data[key]
	if !ok {
		return "", ErrNotFound
	}
	return v, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.b.mu.Lock()
	m.b.data[key] = value
	fns := m.othersLocked()
	m.b.mu.Unlock()

	notify(fns, Change{Key: key, Value: value})
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.b.mu.Lock()
	_, existed := m.b.data[key]
	delete(m.b.data, key)
	fns := m.othersLocked()
	m.b.mu.Unlock()

	if existed {
		notify(fns, Change{Key: key, Deleted: true})
	}
	return nil
}

func (m *Memory) Subscribe(_ context.Context, fn func(Change)) (func(), error) {
	m.b.mu.Lock()
	id := m.b.nextID
	m.b.nextID++
	m.b.subs[id] = memorySub{owner: m, fn: fn}
	m.b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.b.mu.Lock()
			delete(m.b.subs, id)
			m.b.mu.Unlock()
		})
	}, nil
}

func (m *Memory) othersLocked() []func(Change) {
	out := make([]func(Change), 0, len(m.b.subs))
	for _, s := range m.b.subs {
		if s.owner != m {
			out = append(out, s.fn)
		}
	}
	return out
}

// Los callbacks corren fuera del lock: pueden volver a leer/escribir.
func notify(fns []func(Change), c Change) {
	for _, fn := range fns {
		fn(c)
	}
}
