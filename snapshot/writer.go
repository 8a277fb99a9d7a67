package snapshot

import (
	"encoding/gob"
	"os"
	"path/filepath"
	"time"

	"helix/domain/matching"
)

type Writer struct {
	Dir string
}

// Write captures all symbols and resting orders across the manager's
// books at the given sequence. The file is written atomically via a
// temp file rename so a crash mid-write never leaves a torn snapshot.
func (w *Writer) Write(seq uint64, manager *matching.MarketManager) error {
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return err
	}

	s := Snapshot{
		Seq:     seq,
		Created: time.Now(),
		Orders:  make([]OrderEntry, 0, 1024),
	}

	for _, sym := range manager.Symbols() {
		book := manager.OrderBook(sym.ID)
		s.Symbols = append(s.Symbols, SymbolEntry{ID: sym.ID, Name: sym.Name, HasBook: book != nil})
		if book == nil {
			continue
		}
		book.EachOrder(func(o *matching.Order) {
			s.Orders = append(s.Orders, OrderEntry{
				ID:               o.ID,
				SymbolID:         o.SymbolID,
				Side:             uint8(o.Side),
				Type:             uint8(o.Type),
				TIF:              uint8(o.TIF),
				Price:            o.Price,
				StopPrice:        o.StopPrice,
				TrailingDistance: o.TrailingDistance,
				TrailingStep:     o.TrailingStep,
				Quantity:         o.Quantity,
				LeavesQuantity:   o.LeavesQuantity,
				ExecutedQuantity: o.ExecutedQuantity,
			})
		})
	}

	tmp := filepath.Join(w.Dir, "snapshot.bin.tmp")
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	if err := gob.NewEncoder(f).Encode(&s); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(tmp, filepath.Join(w.Dir, "snapshot.bin"))
}

func (w *Writer) Path() string {
	return filepath.Join(w.Dir, "snapshot.bin")
}
