package binding

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrInvalidBinding = errors.New("binding: width must be at least one word")
	ErrNilConsumer    = errors.New("binding: consumer is nil")
)

// Consumer receives the complete word set of a satisfied binding, in
// ascending address order, exactly once per dispatch. The consumer owns
// decoding; it must not mutate the registry or re-enter the register write
// path from inside Consume.
type Consumer interface {
	Consume(words []uint16)
}

// ConsumerFunc adapts a plain function to the Consumer interface.
type ConsumerFunc func(words []uint16)

func (f ConsumerFunc) Consume(words []uint16) { f(words) }

// Binding associates a base register address with a multi-word logical value:
// Width consecutive registers starting at Addr, handed to Consumer as a unit.
type Binding struct {
	Addr     uint16
	Width    int
	Consumer Consumer
}

// Registry stores bindings keyed by base address. At most one binding exists
// per address; registering at an occupied address replaces the previous
// binding entirely.
type Registry struct {
	mu    sync.RWMutex
	items map[uint16]Binding
}

// NewRegistry creates an empty binding registry.
func NewRegistry() *Registry {
	return &Registry{items: make(map[uint16]Binding)}
}

// Register stores a binding at addr, replacing any existing one.
func (r *Registry) Register(addr uint16, width int, c Consumer) error {
	if width < 1 {
		return fmt.Errorf("%w: got %d at address %d", ErrInvalidBinding, width, addr)
	}
	if c == nil {
		return fmt.Errorf("%w: address %d", ErrNilConsumer, addr)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[addr] = Binding{Addr: addr, Width: width, Consumer: c}
	return nil
}

// Lookup returns the binding registered exactly at addr. It never scans
// ranges: an address inside a binding's span but not equal to its base does
// not match.
func (r *Registry) Lookup(addr uint16) (Binding, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.items[addr]
	return b, ok
}

// Unregister removes any binding at addr. Removing an absent address is a
// no-op.
func (r *Registry) Unregister(addr uint16) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, addr)
}

// Len returns the number of registered bindings.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.items)
}

// Snapshot returns all bindings in ascending address order.
func (r *Registry) Snapshot() []Binding {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]Binding, 0, len(r.items))
	for _, b := range r.items {
		list = append(list, b)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].Addr < list[j].Addr
	})
	return list
}
