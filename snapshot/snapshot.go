package snapshot

import "time"

type Snapshot struct {
	Seq     uint64
	Created time.Time
	Symbols []SymbolEntry
	Orders  []OrderEntry
}

type SymbolEntry struct {
	ID      uint32
	Name    string
	HasBook bool
}

type OrderEntry struct {
	ID               uint64
	SymbolID         uint32
	Side             uint8
	Type             uint8
	TIF              uint8
	Price            uint64
	StopPrice        uint64
	TrailingDistance uint64
	TrailingStep     uint64
	Quantity         uint64
	LeavesQuantity   uint64
	ExecutedQuantity uint64
}
