// Package binding owns the multi-word value engine.
//
// Ownership boundary:
// - binding registry (base address -> width + consumer)
// - write batch dispatch (exactly-once consumer invocation)
//
// Binding does not own register storage, wire framing, or decoding; consumers
// carry the decode logic and storage notifies the dispatcher through a
// post-write hook.
package binding
