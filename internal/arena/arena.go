// Package arena implements the per-render node arena: a chunked bump
// allocator whose contents are released wholesale when the render generation
// it belongs to is superseded.
package arena

const defaultChunk = 64

// Generation identifies one fill of an arena. Zero is never a live generation.
type Generation uint64

// Arena hands out *T values from fixed-size chunks. Reset drops every chunk
// and bumps the generation; values allocated before the reset stay reachable
// through the garbage collector but report themselves as stale.
type Arena[T any] struct {
	chunks    [][]T
	chunkSize int
	used      int // values handed out from the last chunk
	gen       Generation
	allocs    int
}

// New creates an arena whose chunks hold chunkHint values; zero selects the
// default.
func New[T any](chunkHint int) *Arena[T] {
	if chunkHint <= 0 {
		chunkHint = defaultChunk
	}
	return &Arena[T]{chunkSize: chunkHint, gen: 1}
}

// Alloc stores value in the arena and returns its address together with the
// generation it was allocated in.
func (a *Arena[T]) Alloc(value T) (*T, Generation) {
	if len(a.chunks) == 0 || a.used == a.chunkSize {
		a.chunks = append(a.chunks, make([]T, a.chunkSize))
		a.used = 0
	}
	chunk := a.chunks[len(a.chunks)-1]
	chunk[a.used] = value
	p := &chunk[a.used]
	a.used++
	a.allocs++
	return p, a.gen
}

// Generation returns the current generation.
func (a *Arena[T]) Generation() Generation {
	if a == nil {
		return 0
	}
	return a.gen
}

// Live reports whether gen is the arena's current generation.
func (a *Arena[T]) Live(gen Generation) bool {
	return a != nil && gen != 0 && gen == a.gen
}

// Len returns the number of values allocated in the current generation.
func (a *Arena[T]) Len() int {
	if a == nil {
		return 0
	}
	return a.allocs
}

// Reset releases every chunk and starts a new generation.
func (a *Arena[T]) Reset() {
	for i := range a.chunks {
		a.chunks[i] = nil
	}
	a.chunks = a.chunks[:0]
	a.used = 0
	a.allocs = 0
	a.gen++
}
