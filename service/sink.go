package service

import (
	"encoding/json"
	"sync/atomic"

	"go.uber.org/zap"

	"helix/domain/matching"
	"helix/infra/memory"
	"helix/infra/sequence"
	exitwal "helix/infra/wal/exit"
)

// Event is the wire form of an engine event in the outbox and on the
// Kafka topic.
type Event struct {
	V        int    `json:"v"`
	Seq      uint64 `json:"seq"`
	Type     string `json:"type"`
	Symbol   string `json:"symbol"`
	SymbolID uint32 `json:"symbol_id"`

	OrderID   uint64 `json:"order_id,omitempty"`
	Side      string `json:"side,omitempty"`
	Kind      string `json:"kind,omitempty"`
	Price     uint64 `json:"price,omitempty"`
	Quantity  uint64 `json:"quantity,omitempty"`
	Volume    uint64 `json:"volume,omitempty"`
	Orders    int    `json:"orders,omitempty"`
	Top       bool   `json:"top,omitempty"`
	Timestamp uint64 `json:"timestamp,omitempty"`
}

// EventSink sits in the engine fan-out. It stamps public market events
// with sequence numbers, writes them to the durable outbox, and retires
// deleted orders into the reclamation ring.
//
// During WAL replay the sink is muted: the outbox already holds or has
// delivered those events, only retirement stays active.
type EventSink struct {
	seq    *sequence.Sequencer
	outbox *exitwal.Outbox
	ring   *memory.RetireRing
	log    *zap.Logger
	muted  atomic.Bool
}

func NewEventSink(
	seq *sequence.Sequencer,
	outbox *exitwal.Outbox,
	ring *memory.RetireRing,
	log *zap.Logger,
) *EventSink {
	if log == nil {
		log = zap.NewNop()
	}
	return &EventSink{seq: seq, outbox: outbox, ring: ring, log: log}
}

func (s *EventSink) Mute()   { s.muted.Store(true) }
func (s *EventSink) Unmute() { s.muted.Store(false) }

func (s *EventSink) publish(e Event) {
	if s.muted.Load() || s.outbox == nil {
		return
	}
	e.V = 1
	e.Seq = s.seq.Next()

	payload, err := json.Marshal(e)
	if err != nil {
		s.log.Error("marshal event", zap.Error(err))
		return
	}
	if err := s.outbox.Put(e.Seq, payload); err != nil {
		s.log.Error("outbox put", zap.Uint64("seq", e.Seq), zap.Error(err))
	}
}

func (s *EventSink) OnAddSymbol(sym matching.Symbol) {
	s.publish(Event{Type: "symbol_added", Symbol: sym.Name, SymbolID: sym.ID})
}

func (s *EventSink) OnDeleteSymbol(sym matching.Symbol) {
	s.publish(Event{Type: "symbol_deleted", Symbol: sym.Name, SymbolID: sym.ID})
}

func (s *EventSink) OnAddOrderBook(sym matching.Symbol) {
	s.publish(Event{Type: "book_added", Symbol: sym.Name, SymbolID: sym.ID})
}

func (s *EventSink) OnDeleteOrderBook(sym matching.Symbol) {
	s.publish(Event{Type: "book_deleted", Symbol: sym.Name, SymbolID: sym.ID})
}

func (s *EventSink) OnLevelUpdate(sym matching.Symbol, u matching.LevelUpdate) {
	s.publish(Event{
		Type:     "level",
		Symbol:   sym.Name,
		SymbolID: sym.ID,
		Kind:     u.Kind.String(),
		Side:     u.Side.String(),
		Price:    u.Price,
		Volume:   u.Volume,
		Orders:   u.Orders,
		Top:      u.Top,
	})
}

func (s *EventSink) OnAddOrder(matching.Symbol, *matching.Order) {}

func (s *EventSink) OnUpdateOrder(matching.Symbol, *matching.Order) {}

// OnDeleteOrder retires the order once the book has dropped it. If the
// ring is full the order is leaked to the GC instead of reused, which
// is safe.
func (s *EventSink) OnDeleteOrder(_ matching.Symbol, o *matching.Order) {
	if s.ring != nil {
		_ = s.ring.Enqueue(o)
	}
}

func (s *EventSink) OnExecution(sym matching.Symbol, orderID, price, quantity, timestamp uint64) {
	s.publish(Event{
		Type:      "execution",
		Symbol:    sym.Name,
		SymbolID:  sym.ID,
		OrderID:   orderID,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
	})
}

func (s *EventSink) OnTrade(sym matching.Symbol, price, quantity, timestamp uint64) {
	s.publish(Event{
		Type:      "trade",
		Symbol:    sym.Name,
		SymbolID:  sym.ID,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
	})
}

func (s *EventSink) OnError(message string) {
	s.log.Warn("engine error", zap.String("message", message))
}
