package server

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/mfeldt/regbank/internal/bank"
	"github.com/mfeldt/regbank/internal/binding"
	"github.com/mfeldt/regbank/internal/observability"
)

// Engine is the serialized core of the server: register banks, per-bank
// binding registries, and the dispatcher wired as a post-write listener on
// both banks. One mutex covers a whole request, so a batch's storage write
// and its consumer invocations form one atomic transaction and no
// registration can land mid-scan.
type Engine struct {
	mu    sync.Mutex
	node  string
	banks *bank.Pair

	holdingReg *binding.Registry
	inputReg   *binding.Registry
}

// NewEngine wires the dispatcher to both banks. The dispatcher only ever
// runs from inside a successful bank write, which keeps the "storage first,
// dispatch second" ordering a structural property rather than a call-site
// convention.
func NewEngine(node string, banks *bank.Pair, holdingReg, inputReg *binding.Registry) *Engine {
	e := &Engine{
		node:       node,
		banks:      banks,
		holdingReg: holdingReg,
		inputReg:   inputReg,
	}
	banks.Holding.Subscribe(e.dispatchListener(holdingReg, banks.Holding.Name()))
	banks.Input.Subscribe(e.dispatchListener(inputReg, banks.Input.Name()))
	return e
}

func (e *Engine) dispatchListener(reg *binding.Registry, bankName string) bank.WriteListener {
	return func(start uint16, words []uint16) {
		res := binding.Dispatch(reg, start, words)
		observability.RecordDispatch(e.node, bankName, res.Dispatched, res.Skipped)
		if res.Dispatched > 0 {
			log.Debug().
				Str("bank", bankName).
				Uint16("start", start).
				Int("words", len(words)).
				Int("dispatched", res.Dispatched).
				Int("skipped", res.Skipped).
				Msg("batch_dispatched")
		}
	}
}

// WriteHoldingRegisters applies one write-multiple batch to the holding bank.
// A failed write leaves the bank untouched and the dispatcher silent.
func (e *Engine) WriteHoldingRegisters(start uint16, words []uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks.Holding.SetRange(start, words)
}

// WriteHoldingRegister applies a single-register write. A one-word batch
// flows through the same hook, so one-word bindings still dispatch.
func (e *Engine) WriteHoldingRegister(addr, value uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks.Holding.Set(addr, value)
}

// SetInputRegisters is the in-process write path for the input bank, used by
// device feeders. Modbus clients cannot write input registers, but the hook
// wiring is identical to the holding bank.
func (e *Engine) SetInputRegisters(start uint16, words []uint16) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks.Input.SetRange(start, words)
}

func (e *Engine) ReadHoldingRegisters(start uint16, count int) ([]uint16, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks.Holding.GetRange(start, count)
}

func (e *Engine) ReadInputRegisters(start uint16, count int) ([]uint16, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.banks.Input.GetRange(start, count)
}
