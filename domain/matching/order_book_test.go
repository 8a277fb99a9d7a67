package matching

import "testing"

type execEvent struct {
	OrderID  uint64
	Price    uint64
	Quantity uint64
}

// capture records engine events in emission order.
type capture struct {
	NopHandler

	executions []execEvent
	trades     []execEvent
	updates    []LevelUpdate
	deleted    []uint64
	promoted   []uint64
}

func (c *capture) OnLevelUpdate(_ Symbol, u LevelUpdate) {
	c.updates = append(c.updates, u)
}

func (c *capture) OnExecution(_ Symbol, orderID, price, quantity, _ uint64) {
	c.executions = append(c.executions, execEvent{OrderID: orderID, Price: price, Quantity: quantity})
}

func (c *capture) OnTrade(_ Symbol, price, quantity, _ uint64) {
	c.trades = append(c.trades, execEvent{Price: price, Quantity: quantity})
}

func (c *capture) OnDeleteOrder(_ Symbol, o *Order) {
	c.deleted = append(c.deleted, o.ID)
}

func (c *capture) OnUpdateOrder(_ Symbol, o *Order) {
	c.promoted = append(c.promoted, o.ID)
}

func newTestBook() (*OrderBook, *capture) {
	c := &capture{}
	book := NewOrderBook(NewSymbol(1, "TEST"), c)
	book.SetClock(func() uint64 { return 1 })
	return book, c
}

func mustAdd(t *testing.T, book *OrderBook, o Order) {
	t.Helper()
	if err := book.AddOrder(&o); err != nil {
		t.Fatalf("AddOrder(%d): %v", o.ID, err)
	}
}

func TestEmptyBook(t *testing.T) {
	book, _ := newTestBook()
	if !book.Empty() || book.Size() != 0 {
		t.Error("new book should be empty")
	}
	if book.BestBid() != nil || book.BestAsk() != nil {
		t.Error("empty book should have no best bid/ask")
	}
	if book.BestBuyStop() != nil || book.BestSellStop() != nil {
		t.Error("empty book should have no best stops")
	}
}

func TestLimitOrderRests(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))

	bid := book.BestBid()
	if bid == nil {
		t.Fatal("expected best bid")
	}
	if bid.Price != 100 || bid.TotalVolume != 10 || bid.OrderCount != 1 {
		t.Errorf("best bid = {%d %d %d}, want {100 10 1}", bid.Price, bid.TotalVolume, bid.OrderCount)
	}
	if book.BestAsk() != nil {
		t.Error("ask side should stay empty")
	}
}

func TestCrossingSellExecutesAtRestingPrice(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, SellLimit(2, 1, 100, 4))

	want := []execEvent{
		{OrderID: 1, Price: 100, Quantity: 4},
		{OrderID: 2, Price: 100, Quantity: 4},
	}
	if len(c.executions) != len(want) {
		t.Fatalf("executions = %v, want %v", c.executions, want)
	}
	for i, e := range want {
		if c.executions[i] != e {
			t.Errorf("execution[%d] = %v, want %v", i, c.executions[i], e)
		}
	}

	bid := book.BestBid()
	if bid == nil || bid.Price != 100 || bid.TotalVolume != 6 {
		t.Errorf("best bid after partial fill = %+v, want price 100 volume 6", bid)
	}
	if book.Order(2) != nil {
		t.Error("incoming order fully filled, must not rest")
	}
	if book.LastPrice() != 100 {
		t.Errorf("last price = %d, want 100", book.LastPrice())
	}
}

func TestPriceTimePriority(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 5))
	mustAdd(t, book, BuyLimit(2, 1, 100, 5))
	mustAdd(t, book, SellLimit(3, 1, 100, 7))

	// Order 1 arrived first at 100, so it fills completely before order 2.
	if len(c.executions) < 4 {
		t.Fatalf("expected 4 executions, got %v", c.executions)
	}
	if c.executions[0].OrderID != 1 || c.executions[0].Quantity != 5 {
		t.Errorf("first fill = %v, want order 1 qty 5", c.executions[0])
	}
	if c.executions[2].OrderID != 2 || c.executions[2].Quantity != 2 {
		t.Errorf("second resting fill = %v, want order 2 qty 2", c.executions[2])
	}
	if o := book.Order(2); o == nil || o.LeavesQuantity != 3 {
		t.Errorf("order 2 leaves = %+v, want 3", o)
	}
}

func TestBetterPriceFillsFirst(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 105, 5))
	mustAdd(t, book, SellLimit(2, 1, 101, 5))
	mustAdd(t, book, BuyLimit(3, 1, 105, 10))

	if c.executions[0].OrderID != 2 || c.executions[0].Price != 101 {
		t.Errorf("first fill = %v, want order 2 at 101", c.executions[0])
	}
	if c.executions[2].OrderID != 1 || c.executions[2].Price != 105 {
		t.Errorf("second fill = %v, want order 1 at 105", c.executions[2])
	}
}

func TestAddDeleteRoundTrip(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, SellLimit(2, 1, 110, 10))

	mustAdd(t, book, BuyLimit(3, 1, 105, 5))
	if err := book.DeleteOrder(3); err != nil {
		t.Fatalf("DeleteOrder: %v", err)
	}

	if book.Size() != 2 {
		t.Errorf("size = %d, want 2", book.Size())
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 100 || bid.TotalVolume != 10 {
		t.Errorf("best bid = %+v, want price 100 volume 10", bid)
	}
	if book.GetBid(105) != nil {
		t.Error("level at 105 must be gone")
	}
}

func TestDuplicateOrderRejected(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))

	dup := BuyLimit(1, 1, 101, 5)
	if err := book.AddOrder(&dup); err != ErrDuplicateOrder {
		t.Errorf("err = %v, want ErrDuplicateOrder", err)
	}
	if book.Size() != 1 || book.BestBid().Price != 100 {
		t.Error("rejected duplicate must not change the book")
	}
}

func TestUnknownOrderOperations(t *testing.T) {
	book, _ := newTestBook()
	if err := book.DeleteOrder(42); err != ErrOrderNotFound {
		t.Errorf("DeleteOrder err = %v, want ErrOrderNotFound", err)
	}
	if err := book.ReduceOrder(42, 1); err != ErrOrderNotFound {
		t.Errorf("ReduceOrder err = %v, want ErrOrderNotFound", err)
	}
	if err := book.ReplaceOrder(42, 100, 1); err != ErrOrderNotFound {
		t.Errorf("ReplaceOrder err = %v, want ErrOrderNotFound", err)
	}
}

func TestInvalidOrdersRejected(t *testing.T) {
	book, _ := newTestBook()

	zeroQty := BuyLimit(1, 1, 100, 0)
	if err := book.AddOrder(&zeroQty); err != ErrInvalidQuantity {
		t.Errorf("zero quantity err = %v, want ErrInvalidQuantity", err)
	}
	zeroPrice := BuyLimit(2, 1, 0, 10)
	if err := book.AddOrder(&zeroPrice); err != ErrInvalidPrice {
		t.Errorf("zero price err = %v, want ErrInvalidPrice", err)
	}
	if !book.Empty() {
		t.Error("rejected orders must not enter the book")
	}
}

func TestReduceOrder(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, SellLimit(4, 1, 100, 10))

	if err := book.ReduceOrder(4, 3); err != nil {
		t.Fatalf("ReduceOrder: %v", err)
	}
	if ask := book.BestAsk(); ask == nil || ask.TotalVolume != 7 {
		t.Errorf("ask volume = %+v, want 7", ask)
	}

	if err := book.ReduceOrder(4, 20); err != ErrInvalidQuantity {
		t.Errorf("over-reduce err = %v, want ErrInvalidQuantity", err)
	}

	// Reducing the full remainder deletes the level entirely.
	if err := book.ReduceOrder(4, 7); err != nil {
		t.Fatalf("ReduceOrder to zero: %v", err)
	}
	if book.BestAsk() != nil || !book.Empty() {
		t.Error("level at 100 must be deleted once its last order is gone")
	}
}

func TestReplaceOrderLosesPriority(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 5))
	mustAdd(t, book, BuyLimit(2, 1, 100, 5))

	if err := book.ReplaceOrder(1, 100, 5); err != nil {
		t.Fatalf("ReplaceOrder: %v", err)
	}
	// Order 1 re-added at the same price sits behind order 2 now.
	lvl := book.BestBid()
	if lvl == nil || lvl.Front().ID != 2 {
		t.Errorf("front of level = %+v, want order 2", lvl.Front())
	}
	if lvl.TotalVolume != 10 || lvl.OrderCount != 2 {
		t.Errorf("level = {%d %d}, want {10 2}", lvl.TotalVolume, lvl.OrderCount)
	}
}

func TestReplaceOrderNewPrice(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 5))

	if err := book.ReplaceOrder(1, 101, 8); err != nil {
		t.Fatalf("ReplaceOrder: %v", err)
	}
	if book.GetBid(100) != nil {
		t.Error("old level must be removed")
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 101 || bid.TotalVolume != 8 {
		t.Errorf("best bid = %+v, want price 101 volume 8", bid)
	}
	if o := book.Order(1); o == nil || o.ExecutedQuantity != 0 {
		t.Errorf("replaced order = %+v, want fresh executed quantity", o)
	}
}

func TestModifyOrderMitigated(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, SellLimit(2, 1, 100, 4)) // order 1 executed 4

	if err := book.ModifyOrder(1, 99, 7, true); err != nil {
		t.Fatalf("ModifyOrder: %v", err)
	}
	// Mitigated leaves = 7 - 4 already executed = 3.
	o := book.Order(1)
	if o == nil || o.LeavesQuantity != 3 || o.Price != 99 {
		t.Errorf("order = %+v, want leaves 3 at 99", o)
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 99 || bid.TotalVolume != 3 {
		t.Errorf("best bid = %+v, want price 99 volume 3", bid)
	}
}

func TestModifyOrderMitigatedToZeroDeletes(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, SellLimit(2, 1, 100, 6))

	if err := book.ModifyOrder(1, 100, 5, true); err != nil {
		t.Fatalf("ModifyOrder: %v", err)
	}
	if book.Order(1) != nil || !book.Empty() {
		t.Error("mitigated order with nothing left must be deleted")
	}
}

func TestMarketOrderSweepsLevels(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))
	mustAdd(t, book, SellLimit(2, 1, 101, 5))
	mustAdd(t, book, BuyMarket(3, 1, 8))

	if len(c.trades) != 2 {
		t.Fatalf("trades = %v, want 2", c.trades)
	}
	if c.trades[0].Price != 100 || c.trades[1].Price != 101 {
		t.Errorf("trade prices = %v, want 100 then 101", c.trades)
	}
	if ask := book.BestAsk(); ask == nil || ask.Price != 101 || ask.TotalVolume != 2 {
		t.Errorf("best ask = %+v, want price 101 volume 2", ask)
	}
	if book.Order(3) != nil {
		t.Error("market order must never rest")
	}
}

func TestMarketOrderRemainderCancelled(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))
	mustAdd(t, book, BuyMarket(2, 1, 8))

	if book.Order(2) != nil {
		t.Error("unfilled market remainder must be cancelled, not rested")
	}
	if book.BestAsk() != nil {
		t.Error("resting liquidity should be consumed")
	}
}

func TestIOCRemainderCancelled(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))

	ioc := BuyLimit(2, 1, 100, 8)
	ioc.TIF = IOC
	mustAdd(t, book, ioc)

	if book.Order(2) != nil {
		t.Error("IOC remainder must not rest")
	}
	if o := book.Order(1); o != nil {
		t.Errorf("resting order should be fully filled, got %+v", o)
	}
}

func TestFOKRejectedAtomically(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))
	before := len(c.updates)

	fok := BuyLimit(2, 1, 100, 8)
	fok.TIF = FOK
	if err := book.AddOrder(&fok); err != ErrUnfillableOrder {
		t.Fatalf("err = %v, want ErrUnfillableOrder", err)
	}

	if len(c.executions) != 0 {
		t.Error("rejected FOK must produce no executions")
	}
	if len(c.updates) != before {
		t.Error("rejected FOK must produce no level updates")
	}
	if ask := book.BestAsk(); ask == nil || ask.TotalVolume != 5 || ask.OrderCount != 1 {
		t.Errorf("ask level = %+v, must be untouched", ask)
	}
	if book.Size() != 1 {
		t.Errorf("size = %d, want 1", book.Size())
	}
}

func TestFOKFilledWhenSatisfiable(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))
	mustAdd(t, book, SellLimit(2, 1, 101, 5))

	fok := BuyLimit(3, 1, 101, 8)
	fok.TIF = FOK
	mustAdd(t, book, fok)

	if o := book.Order(3); o != nil {
		t.Errorf("FOK must not rest, got %+v", o)
	}
	if ask := book.BestAsk(); ask == nil || ask.Price != 101 || ask.TotalVolume != 2 {
		t.Errorf("best ask = %+v, want price 101 volume 2", ask)
	}
}

func TestAONRestsWhenUnfillable(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))

	aon := BuyLimit(2, 1, 100, 8)
	aon.TIF = AON
	mustAdd(t, book, aon)

	if len(c.executions) != 0 {
		t.Error("unfillable AON must not match partially")
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 100 || bid.TotalVolume != 8 {
		t.Errorf("best bid = %+v, want the whole AON resting", bid)
	}
}

func TestRestingAONBlocksLevel(t *testing.T) {
	book, c := newTestBook()
	aon := SellLimit(1, 1, 100, 10)
	aon.TIF = AON
	mustAdd(t, book, aon)

	mustAdd(t, book, BuyLimit(2, 1, 100, 4))
	if len(c.executions) != 0 {
		t.Error("resting AON cannot fill partially")
	}
	if bid := book.BestBid(); bid == nil || bid.TotalVolume != 4 {
		t.Errorf("incoming remainder should rest, got %+v", bid)
	}
}

func TestModifiedAONRestsWhenUnfillable(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))

	aon := BuyLimit(2, 1, 99, 8)
	aon.TIF = AON
	mustAdd(t, book, aon)

	// Moving the AON onto the ask must not let it match partially.
	if err := book.ModifyOrder(2, 100, 8, false); err != nil {
		t.Fatalf("ModifyOrder: %v", err)
	}
	if len(c.executions) != 0 {
		t.Error("modified unfillable AON must not match partially")
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 100 || bid.TotalVolume != 8 {
		t.Errorf("best bid = %+v, want whole AON resting at 100", bid)
	}
	if ask := book.BestAsk(); ask == nil || ask.TotalVolume != 5 {
		t.Errorf("best ask = %+v, must be untouched", ask)
	}
}

func TestReplacedAONRestsWhenUnfillable(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellLimit(1, 1, 100, 5))

	aon := BuyLimit(2, 1, 99, 8)
	aon.TIF = AON
	mustAdd(t, book, aon)

	if err := book.ReplaceOrder(2, 100, 8); err != nil {
		t.Fatalf("ReplaceOrder: %v", err)
	}
	if len(c.executions) != 0 {
		t.Error("replaced unfillable AON must not match partially")
	}
	if bid := book.BestBid(); bid == nil || bid.Price != 100 || bid.TotalVolume != 8 {
		t.Errorf("best bid = %+v, want whole AON resting at 100", bid)
	}
	if o := book.Order(2); o == nil || o.LeavesQuantity != 8 {
		t.Errorf("order 2 = %+v, want leaves 8", o)
	}
}

func TestStopOrderRestsWithoutMatching(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyStopLimit(3, 1, 120, 121, 10))

	if book.BestBid() != nil || book.BestAsk() != nil {
		t.Error("stop order must not touch visible ladders")
	}
	stop := book.BestBuyStop()
	if stop == nil || stop.Price != 120 || stop.TotalVolume != 10 {
		t.Errorf("best buy stop = %+v, want price 120 volume 10", stop)
	}
	if book.Size() != 1 {
		t.Errorf("size = %d, want 1", book.Size())
	}
}

func TestStopPromotionOnTrade(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyStopLimit(3, 1, 120, 121, 10))

	// A trade at 120 goes through the stop's trigger price.
	mustAdd(t, book, SellLimit(4, 1, 120, 5))
	mustAdd(t, book, BuyLimit(5, 1, 120, 5))

	if book.BestBuyStop() != nil {
		t.Error("triggered stop must leave the stop ladder")
	}
	bid := book.BestBid()
	if bid == nil || bid.Price != 121 || bid.TotalVolume != 10 {
		t.Errorf("best bid = %+v, want promoted limit at 121 volume 10", bid)
	}
	if o := book.Order(3); o == nil || o.Type != Limit {
		t.Errorf("order 3 = %+v, want live limit order", o)
	}
}

func TestStopMarketPromotionExecutes(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, SellStop(1, 1, 95, 5))
	mustAdd(t, book, BuyLimit(2, 1, 94, 5))
	mustAdd(t, book, BuyLimit(3, 1, 95, 3))

	// Trade at 95 triggers the sell stop, which goes off as a market
	// order into the remaining bids.
	mustAdd(t, book, SellLimit(4, 1, 95, 3))

	if book.BestSellStop() != nil {
		t.Error("sell stop must have triggered")
	}
	var stopFill *execEvent
	for i := range c.executions {
		if c.executions[i].OrderID == 1 {
			stopFill = &c.executions[i]
		}
	}
	if stopFill == nil || stopFill.Price != 94 || stopFill.Quantity != 5 {
		t.Errorf("stop fill = %+v, want 5 at 94", stopFill)
	}
}

func TestStopPromotionCascade(t *testing.T) {
	book, _ := newTestBook()
	// First stop trades through the second stop's trigger.
	mustAdd(t, book, SellStop(1, 1, 98, 5))
	mustAdd(t, book, SellStop(2, 1, 95, 5))
	mustAdd(t, book, BuyLimit(3, 1, 95, 10))
	mustAdd(t, book, BuyLimit(4, 1, 98, 2))

	// Trade at 98 triggers stop 1; its market fill at 95 triggers stop 2.
	mustAdd(t, book, SellLimit(5, 1, 98, 2))

	if book.BestSellStop() != nil {
		t.Error("both stops must have triggered")
	}
	if book.Order(1) != nil || book.Order(2) != nil {
		t.Error("promoted market stops must be fully consumed")
	}
	// 10 resting at 95 minus 5 from each promoted stop leaves nothing.
	if bid := book.GetBid(95); bid != nil {
		t.Errorf("bid at 95 = %+v, want level fully consumed", bid)
	}
}

func TestStopPromotionClosestToMarketFirst(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, BuyStopLimit(1, 1, 105, 130, 1))
	mustAdd(t, book, BuyStopLimit(2, 1, 110, 131, 1))

	mustAdd(t, book, SellLimit(3, 1, 112, 1))
	mustAdd(t, book, BuyLimit(4, 1, 112, 1))

	// Both stops trigger on the trade at 112; the one at 110 is closer
	// to the trade price and must promote first.
	var promoted []uint64
	for _, id := range c.promoted {
		if id == 1 || id == 2 {
			promoted = append(promoted, id)
		}
	}
	if len(promoted) != 2 || promoted[0] != 2 || promoted[1] != 1 {
		t.Errorf("promotion order = %v, want [2 1]", promoted)
	}
}

func TestTrailingSellStopRecalc(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, TrailingSellStop(5, 1, 95, 10, 5, 0))

	// Trade at 110 pulls the stop up to 105.
	mustAdd(t, book, SellLimit(6, 1, 110, 1))
	mustAdd(t, book, BuyLimit(7, 1, 110, 1))

	if o := book.Order(5); o == nil || o.StopPrice != 105 {
		t.Errorf("stop price = %+v, want 105", o)
	}
	if lvl := book.BestTrailingSellStop(); lvl == nil || lvl.Price != 105 {
		t.Errorf("trailing ladder level = %+v, want 105", lvl)
	}

	// A lower trade at 108 must never move the stop against the order.
	mustAdd(t, book, SellLimit(8, 1, 108, 1))
	mustAdd(t, book, BuyLimit(9, 1, 108, 1))

	if o := book.Order(5); o == nil || o.StopPrice != 105 {
		t.Errorf("stop price after adverse move = %+v, want 105", o)
	}
}

func TestTrailingStepHysteresis(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, TrailingSellStop(5, 1, 95, 10, 5, 3))

	// 102 - 5 = 97: a 2-tick improvement, below the 3-tick step.
	mustAdd(t, book, SellLimit(6, 1, 102, 1))
	mustAdd(t, book, BuyLimit(7, 1, 102, 1))
	if o := book.Order(5); o == nil || o.StopPrice != 95 {
		t.Errorf("stop price = %+v, want unchanged 95", o)
	}

	// 104 - 5 = 99: a 4-tick improvement, above the step.
	mustAdd(t, book, SellLimit(8, 1, 104, 1))
	mustAdd(t, book, BuyLimit(9, 1, 104, 1))
	if o := book.Order(5); o == nil || o.StopPrice != 99 {
		t.Errorf("stop price = %+v, want 99", o)
	}
}

func TestTrailingStopTriggers(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, TrailingSellStop(1, 1, 95, 5, 5, 0))
	mustAdd(t, book, BuyLimit(2, 1, 94, 10))

	// Trade down at 95 goes through the trigger.
	mustAdd(t, book, BuyLimit(3, 1, 95, 1))
	mustAdd(t, book, SellLimit(4, 1, 95, 1))

	if book.BestTrailingSellStop() != nil {
		t.Error("trailing stop must have triggered")
	}
	if o := book.Order(1); o != nil {
		t.Errorf("promoted trailing market stop should be filled, got %+v", o)
	}
	if bid := book.GetBid(94); bid == nil || bid.TotalVolume != 5 {
		t.Errorf("bid at 94 = %+v, want volume 5 after stop fill", bid)
	}
}

func TestTrailingStopLimitKeepsOffset(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, TrailingSellStopLimit(1, 1, 95, 93, 10, 5, 0))

	mustAdd(t, book, SellLimit(2, 1, 110, 1))
	mustAdd(t, book, BuyLimit(3, 1, 110, 1))

	o := book.Order(1)
	if o == nil || o.StopPrice != 105 || o.Price != 103 {
		t.Errorf("order = %+v, want stop 105 limit 103", o)
	}
}

func TestGetLevels(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, BuyLimit(2, 1, 105, 15))
	mustAdd(t, book, SellLimit(3, 1, 110, 20))
	mustAdd(t, book, SellLimit(4, 1, 115, 25))

	if book.GetBid(100) == nil || book.GetBid(105) == nil {
		t.Error("expected bid levels at 100 and 105")
	}
	if book.GetAsk(110) == nil || book.GetAsk(115) == nil {
		t.Error("expected ask levels at 110 and 115")
	}
	if book.GetBid(99) != nil || book.GetAsk(120) != nil {
		t.Error("absent levels must return nil")
	}
	if lvl := book.GetLevel(Sell, 110); lvl == nil || lvl.Price != 110 {
		t.Errorf("GetLevel = %+v, want ask 110", lvl)
	}
}

func TestLevelAggregates(t *testing.T) {
	book, _ := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, BuyLimit(2, 1, 100, 15))

	lvl := book.BestBid()
	if lvl.TotalVolume != 25 || lvl.OrderCount != 2 {
		t.Errorf("level = {%d %d}, want {25 2}", lvl.TotalVolume, lvl.OrderCount)
	}

	if err := book.DeleteOrder(1); err != nil {
		t.Fatal(err)
	}
	lvl = book.BestBid()
	if lvl.TotalVolume != 15 || lvl.OrderCount != 1 {
		t.Errorf("level = {%d %d}, want {15 1}", lvl.TotalVolume, lvl.OrderCount)
	}
}

func TestLevelUpdateStream(t *testing.T) {
	book, c := newTestBook()
	mustAdd(t, book, BuyLimit(1, 1, 100, 10))
	mustAdd(t, book, BuyLimit(2, 1, 100, 5))
	if err := book.DeleteOrder(1); err != nil {
		t.Fatal(err)
	}
	if err := book.DeleteOrder(2); err != nil {
		t.Fatal(err)
	}

	kinds := make([]LevelUpdateKind, 0, len(c.updates))
	for _, u := range c.updates {
		kinds = append(kinds, u.Kind)
	}
	want := []LevelUpdateKind{LevelAdd, LevelChange, LevelChange, LevelDelete}
	if len(kinds) != len(want) {
		t.Fatalf("updates = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Errorf("update[%d] = %v, want %v", i, kinds[i], want[i])
		}
	}
}
