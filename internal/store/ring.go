package store

// Ring es un buffer append-only de capacidad fija; al llenarse descarta el más antiguo.
// No es seguro para uso concurrente: se protege con el mutex de la Entry que lo contiene.
type Ring[T any] struct {
	items []T
	start int
	size  int
}

func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Ring[T]{items: make([]T, capacity)}
}

// Push agrega v y devuelve true si se descartó un elemento.
func (r *Ring[T]) Push(v T) bool {
	c := len(r.items)
	if r.size < c {
		r.items[(r.start+r.size)%c] = v
		r.size++
		return false
	}
	r.items[r.start] = v
	r.start = (r.start + 1) % c
	return true
}

func (r *Ring[T]) Len() int { return r.size }

func (r *Ring[T]) Cap() int { return len(r.items) }

// Last devuelve el elemento más reciente.
func (r *Ring[T]) Last() (T, bool) {
	var zero T
	if r.size == 0 {
		return zero, false
	}
	return r.items[(r.start+r.size-1)%len(r.items)], true
}

// Items devuelve una copia en orden cronológico (más antiguo primero).
func (r *Ring[T]) Items() []T {
	out := make([]T, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.items[(r.start+i)%len(r.items)]
	}
	return out
}

// Tail devuelve los últimos n elementos en orden cronológico.
func (r *Ring[T]) Tail(n int) []T {
	all := r.Items()
	if n <= 0 || n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}
