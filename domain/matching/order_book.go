package matching

import "time"

// OrderBook holds the canonical state of all resting orders for one
// instrument: bid/ask ladders, stop and trailing-stop ladders, and an id
// index locating every live order. It is single-writer and deterministic;
// every public operation runs to completion and either fully succeeds,
// emitting its events in order, or fails with no state change.
type OrderBook struct {
	symbol  Symbol
	handler Handler
	now     func() uint64

	bids *Ladder
	asks *Ladder

	buyStops          *Ladder
	sellStops         *Ladder
	trailingBuyStops  *Ladder
	trailingSellStops *Ladder

	orders map[uint64]*Order

	// lastPrice is the last traded price; zero until the first trade.
	// It drives stop triggering and trailing recalculation.
	lastPrice uint64
}

// NewOrderBook creates an empty book for the symbol. A nil handler is
// replaced with a no-op one.
func NewOrderBook(symbol Symbol, handler Handler) *OrderBook {
	if handler == nil {
		handler = NopHandler{}
	}
	return &OrderBook{
		symbol:            symbol,
		handler:           handler,
		now:               func() uint64 { return uint64(time.Now().UnixNano()) },
		bids:              NewBidLadder(Buy),
		asks:              NewAskLadder(Sell),
		buyStops:          NewBidLadder(Buy),
		sellStops:         NewAskLadder(Sell),
		trailingBuyStops:  NewBidLadder(Buy),
		trailingSellStops: NewAskLadder(Sell),
		orders:            make(map[uint64]*Order),
	}
}

// SetClock overrides the timestamp source. Used for deterministic replay
// and tests.
func (b *OrderBook) SetClock(now func() uint64) { b.now = now }

// Symbol returns the instrument this book serves.
func (b *OrderBook) Symbol() Symbol { return b.symbol }

// Size returns the number of live orders in the book, stop orders included.
func (b *OrderBook) Size() int { return len(b.orders) }

// Empty reports whether the book holds no orders at all.
func (b *OrderBook) Empty() bool { return len(b.orders) == 0 }

// LastPrice returns the last traded price, or zero before the first trade.
func (b *OrderBook) LastPrice() uint64 { return b.lastPrice }

// Order returns the live order with the given id, or nil. The result must
// be treated as read-only.
func (b *OrderBook) Order(id uint64) *Order { return b.orders[id] }

// BestBid returns the highest-priced bid level, or nil.
func (b *OrderBook) BestBid() *Level { return b.bids.Best() }

// BestAsk returns the lowest-priced ask level, or nil.
func (b *OrderBook) BestAsk() *Level { return b.asks.Best() }

// BestBuyStop returns the highest-priced buy stop level, or nil.
func (b *OrderBook) BestBuyStop() *Level { return b.buyStops.Best() }

// BestSellStop returns the lowest-priced sell stop level, or nil.
func (b *OrderBook) BestSellStop() *Level { return b.sellStops.Best() }

// BestTrailingBuyStop returns the best trailing buy stop level, or nil.
func (b *OrderBook) BestTrailingBuyStop() *Level { return b.trailingBuyStops.Best() }

// BestTrailingSellStop returns the best trailing sell stop level, or nil.
func (b *OrderBook) BestTrailingSellStop() *Level { return b.trailingSellStops.Best() }

// GetBid returns the bid level at an exact price, or nil.
func (b *OrderBook) GetBid(price uint64) *Level { return b.bids.Find(price) }

// GetAsk returns the ask level at an exact price, or nil.
func (b *OrderBook) GetAsk(price uint64) *Level { return b.asks.Find(price) }

// GetLevel returns the visible level for a side and price, or nil.
func (b *OrderBook) GetLevel(side Side, price uint64) *Level {
	if side == Buy {
		return b.GetBid(price)
	}
	return b.GetAsk(price)
}

// Bids visits bid levels best-first.
func (b *OrderBook) Bids(fn func(*Level) bool) { b.bids.Each(fn) }

// Asks visits ask levels best-first.
func (b *OrderBook) Asks(fn func(*Level) bool) { b.asks.Each(fn) }

// EachOrder visits every live order in the book, visible ladders first,
// then stop ladders. Used for snapshots.
func (b *OrderBook) EachOrder(fn func(*Order)) {
	visit := func(lvl *Level) bool {
		for o := lvl.Front(); o != nil; o = o.Next() {
			fn(o)
		}
		return true
	}
	b.bids.Each(visit)
	b.asks.Each(visit)
	b.buyStops.Each(visit)
	b.sellStops.Each(visit)
	b.trailingBuyStops.Each(visit)
	b.trailingSellStops.Each(visit)
}

// AddOrder admits an order into the book. Market and limit orders are
// matched against resting liquidity immediately; stop variants rest in
// their stop ladder until the market trades through the trigger price.
func (b *OrderBook) AddOrder(o *Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if _, ok := b.orders[o.ID]; ok {
		return ErrDuplicateOrder
	}
	if o.Type.IsStop() {
		b.addStopOrder(o)
		return nil
	}
	return b.addVisibleOrder(o)
}

// DeleteOrder cancels a live order and removes its level if it was the
// last one resting there.
func (b *OrderBook) DeleteOrder(id uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	b.unlinkOrder(b.ladderFor(o), o)
	delete(b.orders, id)
	b.handler.OnDeleteOrder(b.symbol, o)
	return nil
}

// ReduceOrder decreases the open quantity of a live order. Reducing to
// zero behaves exactly like DeleteOrder.
func (b *OrderBook) ReduceOrder(id uint64, quantity uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if quantity == 0 || quantity > o.LeavesQuantity {
		return ErrInvalidQuantity
	}
	if quantity == o.LeavesQuantity {
		return b.DeleteOrder(id)
	}
	lad := b.ladderFor(o)
	lvl := o.level
	lvl.reduce(quantity)
	o.LeavesQuantity -= quantity
	b.emitLevel(lad, lvl, LevelChange, lad.Best() == lvl)
	b.handler.OnUpdateOrder(b.symbol, o)
	return nil
}

// ModifyOrder changes the price and quantity of a live order in place.
// With mitigation the new open quantity is reduced by what has already
// executed, never below zero. The order loses time priority and, for
// visible orders, the modified order is matched like a fresh one.
func (b *OrderBook) ModifyOrder(id uint64, newPrice, newQuantity uint64, mitigate bool) error {
	o, ok := b.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if newPrice == 0 {
		return ErrInvalidPrice
	}
	if newQuantity == 0 {
		return ErrInvalidQuantity
	}

	lad := b.ladderFor(o)
	b.unlinkOrder(lad, o)

	if o.Type.IsStop() {
		o.StopPrice = newPrice
	} else {
		o.Price = newPrice
	}
	leaves := newQuantity
	if mitigate {
		if newQuantity > o.ExecutedQuantity {
			leaves = newQuantity - o.ExecutedQuantity
		} else {
			leaves = 0
		}
	}
	o.Quantity = newQuantity
	o.LeavesQuantity = leaves

	if leaves == 0 {
		delete(b.orders, id)
		b.handler.OnDeleteOrder(b.symbol, o)
		return nil
	}
	b.handler.OnUpdateOrder(b.symbol, o)

	if o.Type.IsStop() {
		b.linkOrder(lad, o)
		return nil
	}
	// A modified all-or-none keeps the rests-whole rule: unfillable in
	// full means no partial match, it re-rests at the new price.
	if o.TIF == AON && o.Type == Limit && !b.fillable(o) {
		b.linkOrder(b.restingLadder(o), o)
		return nil
	}
	traded := b.match(o)
	b.rest(o)
	if traded {
		b.afterTrade()
	}
	return nil
}

// ReplaceOrder atomically cancels a live order and re-adds it under the
// same id with a new price and quantity. The replacement joins the back
// of the FIFO queue at the new price.
func (b *OrderBook) ReplaceOrder(id uint64, newPrice, newQuantity uint64) error {
	o, ok := b.orders[id]
	if !ok {
		return ErrOrderNotFound
	}
	if newPrice == 0 {
		return ErrInvalidPrice
	}
	if newQuantity == 0 {
		return ErrInvalidQuantity
	}

	b.unlinkOrder(b.ladderFor(o), o)
	delete(b.orders, id)
	b.handler.OnDeleteOrder(b.symbol, o)

	if o.Type.IsStop() {
		o.StopPrice = newPrice
	} else {
		o.Price = newPrice
	}
	o.Quantity = newQuantity
	o.LeavesQuantity = newQuantity
	o.ExecutedQuantity = 0

	if o.Type.IsStop() {
		b.addStopOrder(o)
		return nil
	}
	b.handler.OnAddOrder(b.symbol, o)
	if o.TIF == AON && o.Type == Limit && !b.fillable(o) {
		b.orders[o.ID] = o
		b.linkOrder(b.restingLadder(o), o)
		return nil
	}
	traded := b.match(o)
	b.rest(o)
	if traded {
		b.afterTrade()
	}
	return nil
}

// ---- admission ----

func (b *OrderBook) addVisibleOrder(o *Order) error {
	// FOK must be satisfiable in full before any state is touched; a
	// market all-or-none degenerates to the same check.
	if o.TIF == FOK || (o.TIF == AON && o.Type == Market) {
		if !b.fillable(o) {
			return ErrUnfillableOrder
		}
	}
	b.handler.OnAddOrder(b.symbol, o)

	// A limit all-or-none that cannot fill in full rests whole rather
	// than matching partially.
	if o.TIF == AON && o.Type == Limit && !b.fillable(o) {
		b.orders[o.ID] = o
		b.linkOrder(b.restingLadder(o), o)
		return nil
	}

	traded := b.match(o)
	b.rest(o)
	if traded {
		b.afterTrade()
	}
	return nil
}

func (b *OrderBook) addStopOrder(o *Order) {
	b.handler.OnAddOrder(b.symbol, o)
	b.orders[o.ID] = o
	b.linkOrder(b.stopLadderFor(o), o)
}

// ---- matching ----

// match consumes resting liquidity from the opposite ladder best-price
// first, oldest order first within a level. It reports whether any trade
// happened. Executions are emitted resting side first, then the incoming
// side, then the trade itself.
func (b *OrderBook) match(o *Order) bool {
	opp := b.asks
	if o.Side == Sell {
		opp = b.bids
	}

	traded := false
	for o.LeavesQuantity > 0 {
		best := opp.Best()
		if best == nil || !b.crosses(o, best.Price) {
			break
		}
		head := best.Front()
		// A resting all-or-none fills in one piece or not at all; if the
		// incoming quantity cannot cover it, it blocks its level.
		if head.TIF == AON && head.LeavesQuantity > o.LeavesQuantity {
			break
		}

		quantity := minQuantity(o.LeavesQuantity, head.LeavesQuantity)
		price := head.Price
		timestamp := b.now()

		b.fillResting(opp, head, quantity, timestamp)
		_ = o.Fill(quantity)
		b.handler.OnExecution(b.symbol, o.ID, price, quantity, timestamp)

		b.lastPrice = price
		b.handler.OnTrade(b.symbol, price, quantity, timestamp)
		traded = true
	}
	return traded
}

func (b *OrderBook) crosses(o *Order, price uint64) bool {
	if o.Type == Market {
		return true
	}
	if o.Side == Buy {
		return price <= o.Price
	}
	return price >= o.Price
}

func (b *OrderBook) fillResting(lad *Ladder, o *Order, quantity, timestamp uint64) {
	price := o.Price
	b.handler.OnExecution(b.symbol, o.ID, price, quantity, timestamp)

	lvl := o.level
	lvl.reduce(quantity)
	_ = o.Fill(quantity)

	if o.LeavesQuantity == 0 {
		wasBest := lad.Best() == lvl
		lvl.unlink(o)
		if lvl.Empty() {
			lad.Remove(lvl.Price)
			b.emitLevel(lad, lvl, LevelDelete, wasBest)
		} else {
			b.emitLevel(lad, lvl, LevelChange, wasBest)
		}
		delete(b.orders, o.ID)
		b.handler.OnDeleteOrder(b.symbol, o)
		return
	}
	b.emitLevel(lad, lvl, LevelChange, lad.Best() == lvl)
	b.handler.OnUpdateOrder(b.symbol, o)
}

// fillable simulates the match pass without mutating state, honoring the
// same crossing and all-or-none blocking rules, and reports whether the
// order would fill completely.
func (b *OrderBook) fillable(o *Order) bool {
	opp := b.asks
	if o.Side == Sell {
		opp = b.bids
	}

	remaining := o.LeavesQuantity
	blocked := false
	opp.Each(func(lvl *Level) bool {
		if remaining == 0 || !b.crosses(o, lvl.Price) {
			return false
		}
		for res := lvl.Front(); res != nil && remaining > 0; res = res.Next() {
			if res.TIF == AON && res.LeavesQuantity > remaining {
				blocked = true
				return false
			}
			remaining -= minQuantity(remaining, res.LeavesQuantity)
		}
		return !blocked
	})
	return remaining == 0
}

// rest places the unfilled remainder of an incoming order, or retires the
// order when nothing can rest (filled, market remainder, or IOC).
func (b *OrderBook) rest(o *Order) {
	if o.LeavesQuantity > 0 && o.Type == Limit && (o.TIF == GTC || o.TIF == AON) {
		b.orders[o.ID] = o
		b.linkOrder(b.restingLadder(o), o)
		return
	}
	delete(b.orders, o.ID)
	b.handler.OnDeleteOrder(b.symbol, o)
}

// ---- stop triggering ----

// afterTrade runs the stop engine until it reaches a fixed point: each
// pass promotes every stop the last trade traded through and re-levels
// trailing stops; promotions can trade and trigger further stops.
func (b *OrderBook) afterTrade() {
	for {
		activated := b.activateStops()
		b.recalcTrailingStops()
		if !activated {
			return
		}
	}
}

func (b *OrderBook) activateStops() bool {
	price := b.lastPrice
	if price == 0 {
		return false
	}
	activated := false
	if b.activateLadder(b.buyStops, price) {
		activated = true
	}
	if b.activateLadder(b.sellStops, price) {
		activated = true
	}
	if b.activateLadder(b.trailingBuyStops, price) {
		activated = true
	}
	if b.activateLadder(b.trailingSellStops, price) {
		activated = true
	}
	return activated
}

// activateLadder promotes every stop order triggered by a trade at price.
// Levels closest to the trade price go first, FIFO within a level; the
// ordering is fixed so replays are deterministic.
func (b *OrderBook) activateLadder(lad *Ladder, price uint64) bool {
	var pending []*Order
	lad.EachFrom(price, func(lvl *Level) bool {
		for o := lvl.Front(); o != nil; o = o.Next() {
			pending = append(pending, o)
		}
		return true
	})
	for _, o := range pending {
		b.promote(lad, o)
	}
	return len(pending) > 0
}

// promote converts a triggered stop into a live market or limit order and
// runs it through matching. The order keeps its identity; only its ladder
// membership is re-created.
func (b *OrderBook) promote(lad *Ladder, o *Order) {
	b.unlinkOrder(lad, o)

	switch o.Type {
	case Stop, TrailingStop:
		o.Type = Market
		o.TIF = IOC
	case StopLimit, TrailingStopLimit:
		o.Type = Limit
	}
	b.handler.OnUpdateOrder(b.symbol, o)

	b.match(o)
	b.rest(o)
}

// recalcTrailingStops re-levels trailing stops against the last trade
// price. A stop only ever moves in the order's favor and only when the
// move is at least the order's trailing step.
func (b *OrderBook) recalcTrailingStops() {
	price := b.lastPrice
	if price == 0 {
		return
	}
	b.retrail(b.trailingSellStops, price)
	b.retrail(b.trailingBuyStops, price)
}

type trailingMove struct {
	order   *Order
	newStop uint64
}

func (b *OrderBook) retrail(lad *Ladder, price uint64) {
	var moves []trailingMove
	lad.Each(func(lvl *Level) bool {
		for o := lvl.Front(); o != nil; o = o.Next() {
			if newStop, ok := b.trailTarget(o, price); ok {
				moves = append(moves, trailingMove{order: o, newStop: newStop})
			}
		}
		return true
	})
	for _, m := range moves {
		o := m.order
		b.unlinkOrder(lad, o)
		if o.Type == TrailingStopLimit {
			// Preserve the limit offset relative to the stop.
			if m.newStop > o.StopPrice {
				o.Price += m.newStop - o.StopPrice
			} else {
				delta := o.StopPrice - m.newStop
				if o.Price > delta {
					o.Price -= delta
				}
			}
		}
		o.StopPrice = m.newStop
		b.linkOrder(lad, o)
		b.handler.OnUpdateOrder(b.symbol, o)
	}
}

func (b *OrderBook) trailTarget(o *Order, price uint64) (uint64, bool) {
	if o.Side == Sell {
		if price <= o.TrailingDistance {
			return 0, false
		}
		newStop := price - o.TrailingDistance
		if newStop > o.StopPrice && newStop-o.StopPrice >= o.TrailingStep {
			return newStop, true
		}
		return 0, false
	}
	newStop := price + o.TrailingDistance
	if newStop < o.StopPrice && o.StopPrice-newStop >= o.TrailingStep {
		return newStop, true
	}
	return 0, false
}

// ---- ladder bookkeeping ----

func (b *OrderBook) restingLadder(o *Order) *Ladder {
	if o.Side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) stopLadderFor(o *Order) *Ladder {
	if o.Type.IsTrailing() {
		if o.Side == Buy {
			return b.trailingBuyStops
		}
		return b.trailingSellStops
	}
	if o.Side == Buy {
		return b.buyStops
	}
	return b.sellStops
}

func (b *OrderBook) ladderFor(o *Order) *Ladder {
	if o.Type.IsStop() {
		return b.stopLadderFor(o)
	}
	return b.restingLadder(o)
}

func (b *OrderBook) priceKey(o *Order) uint64 {
	if o.Type.IsStop() {
		return o.StopPrice
	}
	return o.Price
}

func (b *OrderBook) linkOrder(lad *Ladder, o *Order) {
	lvl, created := lad.GetOrCreate(b.priceKey(o))
	lvl.link(o)
	kind := LevelChange
	if created {
		kind = LevelAdd
	}
	b.emitLevel(lad, lvl, kind, lad.Best() == lvl)
}

func (b *OrderBook) unlinkOrder(lad *Ladder, o *Order) {
	lvl := o.level
	wasBest := lad.Best() == lvl
	lvl.unlink(o)
	if lvl.Empty() {
		lad.Remove(lvl.Price)
		b.emitLevel(lad, lvl, LevelDelete, wasBest)
		return
	}
	b.emitLevel(lad, lvl, LevelChange, wasBest)
}

func (b *OrderBook) emitLevel(lad *Ladder, lvl *Level, kind LevelUpdateKind, top bool) {
	b.handler.OnLevelUpdate(b.symbol, LevelUpdate{
		Kind:   kind,
		Side:   lvl.Side,
		Price:  lvl.Price,
		Volume: lvl.TotalVolume,
		Orders: lvl.OrderCount,
		Top:    top,
	})
}

func minQuantity(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
