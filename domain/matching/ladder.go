package matching

import "github.com/google/btree"

const ladderDegree = 32

// Ladder is a price-ordered collection of Levels for one side or stop
// category. Bid-style ladders order price descending (best = highest),
// ask-style ladders ascending (best = lowest). At most one Level exists
// per price.
type Ladder struct {
	side Side
	tree *btree.BTreeG[*Level]
}

// NewBidLadder creates a ladder whose best level is the highest price.
func NewBidLadder(side Side) *Ladder {
	return &Ladder{
		side: side,
		tree: btree.NewG(ladderDegree, func(a, b *Level) bool { return a.Price > b.Price }),
	}
}

// NewAskLadder creates a ladder whose best level is the lowest price.
func NewAskLadder(side Side) *Ladder {
	return &Ladder{
		side: side,
		tree: btree.NewG(ladderDegree, func(a, b *Level) bool { return a.Price < b.Price }),
	}
}

// Best returns the extremal-price level, or nil when the ladder is empty.
func (d *Ladder) Best() *Level {
	lvl, ok := d.tree.Min()
	if !ok {
		return nil
	}
	return lvl
}

// Find returns the level at an exact price, or nil.
func (d *Ladder) Find(price uint64) *Level {
	lvl, ok := d.tree.Get(&Level{Price: price})
	if !ok {
		return nil
	}
	return lvl
}

// GetOrCreate returns the level at price, creating it lazily on the first
// order insert. The second result reports whether a new level was created.
func (d *Ladder) GetOrCreate(price uint64) (*Level, bool) {
	if lvl := d.Find(price); lvl != nil {
		return lvl, false
	}
	lvl := &Level{Price: price, Side: d.side}
	d.tree.ReplaceOrInsert(lvl)
	return lvl, true
}

// Remove deletes the level at price. Levels are removed as soon as their
// last order leaves, so an empty level never persists.
func (d *Ladder) Remove(price uint64) {
	d.tree.Delete(&Level{Price: price})
}

// Len returns the number of levels in the ladder.
func (d *Ladder) Len() int { return d.tree.Len() }

// Each visits levels in priority order (best first).
func (d *Ladder) Each(fn func(*Level) bool) {
	d.tree.Ascend(fn)
}

// EachFrom visits levels in priority order starting from the level at or
// beyond the pivot price. For a bid-style ladder that is every level with
// price <= pivot, highest first; for an ask-style ladder every level with
// price >= pivot, lowest first. Stop triggering uses this to walk exactly
// the levels traded through, closest to the market first.
func (d *Ladder) EachFrom(pivot uint64, fn func(*Level) bool) {
	d.tree.AscendGreaterOrEqual(&Level{Price: pivot}, fn)
}
