package snapshot

import "helix/infra/memory"

// Reader is a thin adapter over memory.ReaderEpoch marking the
// boundaries of a consistent snapshot read. Epoching and reclamation
// are handled by infra/memory.
type Reader struct {
	epoch *memory.ReaderEpoch
}

func NewReader() *Reader {
	r := &Reader{epoch: &memory.ReaderEpoch{}}
	r.End()
	return r
}

// Begin marks the start of a consistent snapshot.
func (r *Reader) Begin() {
	r.epoch.Enter()
}

// End marks the end of a snapshot.
func (r *Reader) End() {
	r.epoch.Exit()
}

// Epoch exposes the underlying epoch for reclaimers.
func (r *Reader) Epoch() *memory.ReaderEpoch {
	return r.epoch
}
