package snapshot

import (
	"encoding/gob"
	"fmt"
	"os"

	"helix/domain/matching"
	"helix/infra/memory"
)

// Load restores symbols, books and resting orders from a snapshot file.
// A missing file is not an error; it just means a fresh start. Orders
// are allocated from the pool so restored and live orders share one
// reclamation path. Returns the sequence the snapshot was taken at.
func Load(
	path string,
	manager *matching.MarketManager,
	pool *memory.Pool[matching.Order],
) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return 0, fmt.Errorf("decode snapshot: %w", err)
	}

	for _, e := range s.Symbols {
		sym := matching.NewSymbol(e.ID, e.Name)
		if err := manager.AddSymbol(sym); err != nil {
			return 0, fmt.Errorf("restore symbol %d: %w", e.ID, err)
		}
		if !e.HasBook {
			continue
		}
		if err := manager.AddOrderBook(sym); err != nil {
			return 0, fmt.Errorf("restore book %d: %w", e.ID, err)
		}
	}

	for _, e := range s.Orders {
		o := pool.Get()
		*o = matching.Order{
			ID:               e.ID,
			SymbolID:         e.SymbolID,
			Side:             matching.Side(e.Side),
			Type:             matching.OrderType(e.Type),
			TIF:              matching.TimeInForce(e.TIF),
			Price:            e.Price,
			StopPrice:        e.StopPrice,
			TrailingDistance: e.TrailingDistance,
			TrailingStep:     e.TrailingStep,
			Quantity:         e.Quantity,
			LeavesQuantity:   e.LeavesQuantity,
			ExecutedQuantity: e.ExecutedQuantity,
		}
		if err := manager.AddOrder(o); err != nil {
			return 0, fmt.Errorf("restore order %d: %w", e.ID, err)
		}
	}

	return s.Seq, nil
}
