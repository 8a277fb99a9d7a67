package service

import (
	"sync"

	"go.uber.org/zap"

	"helix/domain/matching"
	"helix/infra/memory"
	"helix/infra/sequence"
	entrywal "helix/infra/wal/entry"
	"helix/snapshot"
)

// MarketService is the only write entry point into the engine. A single
// mutex serializes all mutations, which keeps the matching path free of
// internal locking.
type MarketService struct {
	mu sync.Mutex

	manager *matching.MarketManager
	pool    *memory.Pool[matching.Order]
	ring    *memory.RetireRing
	reader  *snapshot.Reader
	seq     *sequence.Sequencer
	wal     *entrywal.WAL
	log     *zap.Logger
}

func NewMarketService(
	manager *matching.MarketManager,
	pool *memory.Pool[matching.Order],
	ring *memory.RetireRing,
	reader *snapshot.Reader,
	seq *sequence.Sequencer,
	wal *entrywal.WAL,
	log *zap.Logger,
) *MarketService {
	if log == nil {
		log = zap.NewNop()
	}
	return &MarketService{
		manager: manager,
		pool:    pool,
		ring:    ring,
		reader:  reader,
		seq:     seq,
		wal:     wal,
		log:     log,
	}
}

// logAndApply writes the command record first, then applies the
// mutation. A command that fails domain validation stays in the log;
// replay hits the identical error and skips it, so the rebuilt state
// matches the live one.
func (s *MarketService) logAndApply(t entrywal.RecordType, payload []byte, apply func() error) error {
	seq := s.seq.Next()
	if err := s.wal.Append(entrywal.NewRecord(t, seq, payload)); err != nil {
		s.log.Error("wal append", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}
	if err := apply(); err != nil {
		s.log.Debug("command rejected", zap.Uint64("seq", seq), zap.Error(err))
		return err
	}
	return nil
}

// ----- Admin -----

func (s *MarketService) AddSymbol(id uint32, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordAddSymbol, encodeSymbolCommand(id, name), func() error {
		return s.manager.AddSymbol(matching.NewSymbol(id, name))
	})
}

func (s *MarketService) DeleteSymbol(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordDeleteSymbol, encodeSymbolCommand(id, ""), func() error {
		return s.manager.DeleteSymbol(id)
	})
}

func (s *MarketService) AddOrderBook(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordAddBook, encodeSymbolCommand(id, ""), func() error {
		sym, ok := s.manager.Symbol(id)
		if !ok {
			return matching.ErrSymbolNotFound
		}
		return s.manager.AddOrderBook(sym)
	})
}

func (s *MarketService) DeleteOrderBook(id uint32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordDeleteBook, encodeSymbolCommand(id, ""), func() error {
		return s.manager.DeleteOrderBook(id)
	})
}

// ----- Orders -----

func (s *MarketService) PlaceOrder(req OrderRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordAdd, encodeOrderCommand(req), func() error {
		o := s.pool.Get()
		req.fill(o)
		if err := s.manager.AddOrder(o); err != nil {
			s.pool.Put(o)
			return err
		}
		return nil
	})
}

func (s *MarketService) CancelOrder(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordCancel, encodeCancelCommand(id), func() error {
		return s.manager.DeleteOrder(id)
	})
}

func (s *MarketService) ReduceOrder(id, quantity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordReduce, encodeReduceCommand(id, quantity), func() error {
		return s.manager.ReduceOrder(id, quantity)
	})
}

func (s *MarketService) ModifyOrder(id, newPrice, newQuantity uint64, mitigate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordModify, encodeModifyCommand(id, newPrice, newQuantity, mitigate), func() error {
		return s.manager.ModifyOrder(id, newPrice, newQuantity, mitigate)
	})
}

func (s *MarketService) ReplaceOrder(id, newPrice, newQuantity uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.logAndApply(entrywal.RecordReplace, encodeReplaceCommand(id, newPrice, newQuantity), func() error {
		return s.manager.ReplaceOrder(id, newPrice, newQuantity)
	})
}

// ----- Queries -----

// BookDepth is one side of a depth snapshot.
type BookDepth struct {
	Symbol    matching.Symbol
	LastPrice uint64
	Bids      []matching.LevelView
	Asks      []matching.LevelView
}

// Depth returns the top levels of both sides of a book. The read runs
// under the engine mutex; depth requests are cheap relative to a
// matching pass.
func (s *MarketService) Depth(symbolID uint32, limit int) (BookDepth, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reader.Begin()
	defer s.reader.End()

	book := s.manager.OrderBook(symbolID)
	if book == nil {
		return BookDepth{}, matching.ErrBookNotFound
	}

	d := BookDepth{
		Symbol:    book.Symbol(),
		LastPrice: book.LastPrice(),
	}
	book.Bids(func(lvl *matching.Level) bool {
		d.Bids = append(d.Bids, lvl.View())
		return limit <= 0 || len(d.Bids) < limit
	})
	book.Asks(func(lvl *matching.Level) bool {
		d.Asks = append(d.Asks, lvl.View())
		return limit <= 0 || len(d.Asks) < limit
	})
	return d, nil
}

// OrderStatus is a read-only copy of a working order.
type OrderStatus struct {
	ID               uint64
	SymbolID         uint32
	Side             string
	Type             string
	TIF              string
	Price            uint64
	StopPrice        uint64
	Quantity         uint64
	LeavesQuantity   uint64
	ExecutedQuantity uint64
}

func (s *MarketService) Order(symbolID uint32, id uint64) (OrderStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.reader.Begin()
	defer s.reader.End()

	book := s.manager.OrderBook(symbolID)
	if book == nil {
		return OrderStatus{}, matching.ErrBookNotFound
	}
	o := book.Order(id)
	if o == nil {
		return OrderStatus{}, matching.ErrOrderNotFound
	}
	return OrderStatus{
		ID:               o.ID,
		SymbolID:         o.SymbolID,
		Side:             o.Side.String(),
		Type:             o.Type.String(),
		TIF:              o.TIF.String(),
		Price:            o.Price,
		StopPrice:        o.StopPrice,
		Quantity:         o.Quantity,
		LeavesQuantity:   o.LeavesQuantity,
		ExecutedQuantity: o.ExecutedQuantity,
	}, nil
}

func (s *MarketService) Symbols() []matching.Symbol {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.manager.Symbols()
}

// ----- Reclamation -----

// AdvanceEpoch reclaims retired orders that no reader can still see.
// Called periodically by the reclaim job.
func (s *MarketService) AdvanceEpoch() {
	memory.AdvanceEpochAndReclaim(s.ring, s.pool, s.reader.Epoch())
}
