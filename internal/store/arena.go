package store

import (
	"sync"

	"go.uber.org/zap"
)

// Arena es un mapa acotado por clave de usuario. Cada entrada lleva su propio mutex, de
// modo que usuarios distintos nunca comparten lock. Al superar la capacidad se expulsa
// sincrónicamente la entrada admitida hace más tiempo.
type Arena[T any] struct {
	mu       sync.Mutex
	capacity int
	entries  map[string]*Entry[T]
	order    []string
	newValue func(key string) *T
	logger   *zap.Logger
	name     string
}

// Entry protege un valor por usuario.
type Entry[T any] struct {
	mu    sync.Mutex
	key   string
	value *T
}

// With ejecuta fn con acceso exclusivo al valor.
func (e *Entry[T]) With(fn func(v *T)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	fn(e.value)
}

func (e *Entry[T]) Key() string { return e.key }

func NewArena[T any](name string, capacity int, newValue func(key string) *T, logger *zap.Logger) *Arena[T] {
	if capacity <= 0 {
		capacity = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Arena[T]{
		capacity: capacity,
		entries:  make(map[string]*Entry[T], capacity),
		newValue: newValue,
		logger:   logger,
		name:     name,
	}
}

// GetOrCreate devuelve la entrada de key, creándola (y expulsando si hace falta).
func (a *Arena[T]) GetOrCreate(key string) *Entry[T] {
	a.mu.Lock()
	defer a.mu.Unlock()
	if e, ok := a.entries[key]; ok {
		return e
	}
	for len(a.entries) >= a.capacity && len(a.order) > 0 {
		oldest := a.order[0]
		a.order = a.order[1:]
		delete(a.entries, oldest)
		a.logger.Info("arena eviction", zap.String("arena", a.name), zap.String("user_id", oldest))
	}
	e := &Entry[T]{key: key, value: a.newValue(key)}
	a.entries[key] = e
	a.order = append(a.order, key)
	return e
}

// Get no crea entradas.
func (a *Arena[T]) Get(key string) (*Entry[T], bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	e, ok := a.entries[key]
	return e, ok
}

func (a *Arena[T]) Delete(key string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.entries[key]; !ok {
		return
	}
	delete(a.entries, key)
	for i, k := range a.order {
		if k == key {
			a.order = append(a.order[:i], a.order[i+1:]...)
			break
		}
	}
}

func (a *Arena[T]) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.entries)
}
