package bank

import (
	"errors"
	"fmt"
)

var ErrOutOfRange = errors.New("bank: register address out of range")

// WriteListener is notified after every successful write with the start
// address and the words written, in ascending address order. Listeners run
// synchronously on the writer's goroutine; the caller is expected to
// serialize writes (see server.Engine).
type WriteListener func(start uint16, words []uint16)

// Bank is a flat addressable array of 16-bit registers. It carries no
// internal locking: one exclusive lock around {bank, binding registry,
// dispatcher} per request is the concurrency discipline, owned by the caller.
type Bank struct {
	name      string
	words     []uint16
	listeners []WriteListener
}

// New creates a bank of size zeroed registers.
func New(name string, size int) *Bank {
	return &Bank{name: name, words: make([]uint16, size)}
}

func (b *Bank) Name() string { return b.name }
func (b *Bank) Size() int    { return len(b.words) }

// Subscribe adds a post-write listener. Listeners are invoked in
// subscription order after the write has been applied.
func (b *Bank) Subscribe(fn WriteListener) {
	b.listeners = append(b.listeners, fn)
}

// Get returns the register at addr.
func (b *Bank) Get(addr uint16) (uint16, error) {
	if int(addr) >= len(b.words) {
		return 0, fmt.Errorf("%w: %s[%d]", ErrOutOfRange, b.name, addr)
	}
	return b.words[addr], nil
}

// GetRange returns count registers starting at addr.
func (b *Bank) GetRange(addr uint16, count int) ([]uint16, error) {
	if count < 0 || int(addr)+count > len(b.words) {
		return nil, fmt.Errorf("%w: %s[%d+%d]", ErrOutOfRange, b.name, addr, count)
	}
	out := make([]uint16, count)
	copy(out, b.words[addr:int(addr)+count])
	return out, nil
}

// Set writes one register and notifies listeners.
func (b *Bank) Set(addr uint16, w uint16) error {
	return b.SetRange(addr, []uint16{w})
}

// SetRange writes a contiguous run of registers starting at addr and then
// notifies listeners. The bounds check covers the whole run before any word
// is written; a rejected write leaves the bank untouched and listeners
// silent. An empty run succeeds without touching the bank.
func (b *Bank) SetRange(addr uint16, words []uint16) error {
	if int(addr)+len(words) > len(b.words) {
		return fmt.Errorf("%w: %s[%d+%d]", ErrOutOfRange, b.name, addr, len(words))
	}
	copy(b.words[addr:], words)
	for _, fn := range b.listeners {
		fn(addr, words)
	}
	return nil
}

// Pair bundles the holding and input banks so the write hook wiring stays
// symmetric between the two.
type Pair struct {
	Holding *Bank
	Input   *Bank
}

// NewPair creates the two standard register banks.
func NewPair(holdingSize, inputSize int) *Pair {
	return &Pair{
		Holding: New("holding", holdingSize),
		Input:   New("input", inputSize),
	}
}
