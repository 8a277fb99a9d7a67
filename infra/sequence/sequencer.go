package sequence

import "sync/atomic"

// Sequencer issues strictly monotonic sequence IDs. Commands and the
// events they emit share one sequence space so replay is deterministic.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer. Pass 0 on a fresh start, or the last
// recovered sequence after replay.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next sequence ID.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued sequence.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset sets the sequencer to a specific value after recovery.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
