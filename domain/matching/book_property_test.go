package matching

import (
	"testing"

	"pgregory.net/rapid"
)

// checkAggregates walks every ladder and verifies that level aggregates
// match the orders actually chained into them and that no empty level
// survives.
func checkAggregates(t *rapid.T, book *OrderBook) {
	seen := 0
	check := func(lvl *Level) bool {
		var volume uint64
		count := 0
		for o := lvl.Front(); o != nil; o = o.Next() {
			volume += o.LeavesQuantity
			count++
		}
		if count == 0 {
			t.Fatalf("empty level at %d survived in its ladder", lvl.Price)
		}
		if volume != lvl.TotalVolume {
			t.Fatalf("level %d volume = %d, orders sum to %d", lvl.Price, lvl.TotalVolume, volume)
		}
		if count != lvl.OrderCount {
			t.Fatalf("level %d count = %d, chain has %d", lvl.Price, lvl.OrderCount, count)
		}
		seen += count
		return true
	}
	book.bids.Each(check)
	book.asks.Each(check)
	book.buyStops.Each(check)
	book.sellStops.Each(check)
	book.trailingBuyStops.Each(check)
	book.trailingSellStops.Each(check)

	if seen != book.Size() {
		t.Fatalf("ladders hold %d orders, index holds %d", seen, book.Size())
	}
}

// TestBookAggregatesProperty drives the book with random operation
// sequences and checks the aggregation invariants after every step.
func TestBookAggregatesProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewOrderBook(NewSymbol(1, "PROP"), nil)
		book.SetClock(func() uint64 { return 1 })

		nextID := uint64(1)
		live := make([]uint64, 0, 64)

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0, 1: // add
				side := Buy
				if rapid.Bool().Draw(t, "sell") {
					side = Sell
				}
				price := uint64(rapid.IntRange(90, 110).Draw(t, "price"))
				qty := uint64(rapid.IntRange(1, 20).Draw(t, "qty"))
				o := BuyLimit(nextID, 1, price, qty)
				if side == Sell {
					o = SellLimit(nextID, 1, price, qty)
				}
				if err := book.AddOrder(&o); err != nil {
					t.Fatalf("AddOrder: %v", err)
				}
				nextID++
			case 2: // delete
				if len(live) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "victim")
				_ = book.DeleteOrder(live[idx])
			case 3: // reduce
				if len(live) == 0 {
					continue
				}
				idx := rapid.IntRange(0, len(live)-1).Draw(t, "target")
				_ = book.ReduceOrder(live[idx], uint64(rapid.IntRange(1, 5).Draw(t, "by")))
			}

			// Refresh the live id set from the index.
			live = live[:0]
			book.EachOrder(func(o *Order) {
				live = append(live, o.ID)
			})

			checkAggregates(t, book)

			// The book must never stay crossed after an operation.
			if bid, ask := book.BestBid(), book.BestAsk(); bid != nil && ask != nil {
				if bid.Price >= ask.Price {
					t.Fatalf("book crossed: bid %d >= ask %d", bid.Price, ask.Price)
				}
			}
		}
	})
}

// TestAddDeleteRestoresBookProperty checks that adding and immediately
// cancelling an order is observationally a no-op.
func TestAddDeleteRestoresBookProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		book := NewOrderBook(NewSymbol(1, "PROP"), nil)
		book.SetClock(func() uint64 { return 1 })

		// Seed a one-sided book so the probe order cannot match.
		seedCount := rapid.IntRange(0, 8).Draw(t, "seed")
		for i := 0; i < seedCount; i++ {
			price := uint64(rapid.IntRange(80, 99).Draw(t, "seedPrice"))
			qty := uint64(rapid.IntRange(1, 20).Draw(t, "seedQty"))
			o := BuyLimit(uint64(i+1), 1, price, qty)
			if err := book.AddOrder(&o); err != nil {
				t.Fatalf("seed: %v", err)
			}
		}

		type levelState struct {
			volume uint64
			orders int
		}
		before := make(map[uint64]levelState)
		book.Bids(func(lvl *Level) bool {
			before[lvl.Price] = levelState{volume: lvl.TotalVolume, orders: lvl.OrderCount}
			return true
		})

		price := uint64(rapid.IntRange(80, 99).Draw(t, "probePrice"))
		qty := uint64(rapid.IntRange(1, 20).Draw(t, "probeQty"))
		probe := BuyLimit(1000, 1, price, qty)
		if err := book.AddOrder(&probe); err != nil {
			t.Fatalf("probe add: %v", err)
		}
		if err := book.DeleteOrder(1000); err != nil {
			t.Fatalf("probe delete: %v", err)
		}

		after := make(map[uint64]levelState)
		book.Bids(func(lvl *Level) bool {
			after[lvl.Price] = levelState{volume: lvl.TotalVolume, orders: lvl.OrderCount}
			return true
		})

		if len(before) != len(after) {
			t.Fatalf("level set changed: %d -> %d levels", len(before), len(after))
		}
		for price, s := range before {
			if after[price] != s {
				t.Fatalf("level %d changed: %+v -> %+v", price, s, after[price])
			}
		}
	})
}
