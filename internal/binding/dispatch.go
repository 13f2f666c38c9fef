package binding

// Result summarizes one dispatch pass over a write batch.
type Result struct {
	// Dispatched counts consumers invoked.
	Dispatched int
	// Skipped counts words that matched no fully-satisfiable binding.
	Skipped int
}

// Dispatch scans one write batch left to right against the registry and
// invokes the consumer of every binding whose full word span lies inside the
// batch. A binding matches only when the cursor sits exactly on its base
// address. Words at unbound addresses, and words at a bound address whose
// binding needs more words than the batch still holds, are skipped one word
// at a time and never revisited.
//
// Dispatch holds no state between batches. Write-multiple-registers is an
// atomic protocol operation, so a logical value is only ever complete within
// a single batch; a value split across two requests is dropped, not queued.
// The scan itself has no failure path: an empty batch, unbound addresses and
// partial matches are all normal.
func Dispatch(reg *Registry, start uint16, words []uint16) Result {
	var res Result
	cursor := start
	for off := 0; off < len(words); {
		b, ok := reg.Lookup(cursor)
		if !ok || b.Width > len(words)-off {
			off++
			cursor++
			res.Skipped++
			continue
		}
		b.Consumer.Consume(words[off : off+b.Width])
		off += b.Width
		cursor += uint16(b.Width)
		res.Dispatched++
	}
	return res
}
