package points

import (
	"sort"
	"sync"
	"time"
)

// Value is the latest decoded reading of one named point.
type Value struct {
	Name    string    `json:"name"`
	Kind    string    `json:"kind"`
	Num     float64   `json:"num"`
	Text    string    `json:"text"`
	Updated time.Time `json:"updated"`
}

// Store caches the latest value per point name for the admin surface.
type Store struct {
	mu    sync.RWMutex
	items map[string]Value
}

// NewStore creates an empty point store.
func NewStore() *Store {
	return &Store{items: make(map[string]Value)}
}

// Publish records v as the latest value for its name, stamping Updated when
// the caller left it zero.
func (s *Store) Publish(v Value) {
	if v.Updated.IsZero() {
		v.Updated = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[v.Name] = v
}

// Get returns the latest value for name.
func (s *Store) Get(name string) (Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.items[name]
	return v, ok
}

// List returns all point values sorted by name.
func (s *Store) List() []Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Value, 0, len(s.items))
	for _, v := range s.items {
		list = append(list, v)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Name < list[j].Name
	})
	return list
}
