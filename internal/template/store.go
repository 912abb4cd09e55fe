package template

import (
	"fmt"
	"sync"

	"fortio.org/safecast"
)

// Store interns templates. It is safe for concurrent use so several runtimes
// in one process share a single cache.
type Store struct {
	mu     sync.RWMutex
	byName map[string]*Template
	byID   []*Template // index = ID-1
}

// Default is the process-wide template cache.
var Default = NewStore()

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{byName: make(map[string]*Template)}
}

// Intern validates roots and returns the canonical template for name.
// Interning the same shape twice returns the first pointer; reusing a name
// for a different shape is an error.
func (s *Store) Intern(name string, roots ...Node) (*Template, error) {
	s.mu.RLock()
	existing := s.byName[name]
	s.mu.RUnlock()

	t, err := compile(name, roots)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Fingerprint != t.Fingerprint {
			return nil, &ShapeError{Template: name, Msg: "name already interned with a different shape"}
		}
		return existing, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing = s.byName[name]; existing != nil {
		if existing.Fingerprint != t.Fingerprint {
			return nil, &ShapeError{Template: name, Msg: "name already interned with a different shape"}
		}
		return existing, nil
	}
	id, err := safecast.Conv[uint32](len(s.byID) + 1)
	if err != nil {
		return nil, fmt.Errorf("template store full: %w", err)
	}
	t.ID = ID(id)
	s.byID = append(s.byID, t)
	s.byName[name] = t
	return t, nil
}

// Lookup returns the template with the given ID.
func (s *Store) Lookup(id ID) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if id == NoID || int(id) > len(s.byID) {
		return nil, false
	}
	return s.byID[id-1], true
}

// ByName returns the template interned under name.
func (s *Store) ByName(name string) (*Template, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.byName[name]
	return t, ok
}

// Len returns the number of interned templates.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// All returns every template in ID order.
func (s *Store) All() []*Template {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Template, len(s.byID))
	copy(out, s.byID)
	return out
}

// New interns into the Default store.
func New(name string, roots ...Node) (*Template, error) {
	return Default.Intern(name, roots...)
}

// MustNew is New for package-level template declarations.
func MustNew(name string, roots ...Node) *Template {
	t, err := New(name, roots...)
	if err != nil {
		panic(err)
	}
	return t
}
