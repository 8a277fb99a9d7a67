package service

import (
	"encoding/json"
	"testing"

	"helix/domain/matching"
	"helix/infra/memory"
	"helix/infra/sequence"
	entrywal "helix/infra/wal/entry"
	exitwal "helix/infra/wal/exit"
	"helix/snapshot"
)

type fixture struct {
	svc    *MarketService
	sink   *EventSink
	outbox *exitwal.Outbox
	walDir string
	pool   *memory.Pool[matching.Order]
	seq    *sequence.Sequencer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	walDir := t.TempDir()
	w, err := entrywal.Open(entrywal.Config{Dir: walDir, SegmentSize: 64 << 20})
	if err != nil {
		t.Fatalf("open wal: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })

	outbox, err := exitwal.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open outbox: %v", err)
	}
	t.Cleanup(func() { _ = outbox.Close() })

	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })
	ring := memory.NewRetireRing(1 << 12)
	seq := sequence.New(0)
	reader := snapshot.NewReader()

	sink := NewEventSink(seq, outbox, ring, nil)
	manager := matching.NewMarketManager(sink)

	svc := NewMarketService(manager, pool, ring, reader, seq, w, nil)
	return &fixture{svc: svc, sink: sink, outbox: outbox, walDir: walDir, pool: pool, seq: seq}
}

func limitReq(id uint64, side matching.Side, price, qty uint64) OrderRequest {
	return OrderRequest{
		ID:       id,
		SymbolID: 1,
		Side:     side,
		Type:     matching.Limit,
		TIF:      matching.GTC,
		Price:    price,
		Quantity: qty,
	}
}

func setupMarket(t *testing.T, f *fixture) {
	t.Helper()
	if err := f.svc.AddSymbol(1, "BTCUSD"); err != nil {
		t.Fatalf("add symbol: %v", err)
	}
	if err := f.svc.AddOrderBook(1); err != nil {
		t.Fatalf("add book: %v", err)
	}
}

func TestPlaceAndMatchThroughService(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	if err := f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 10)); err != nil {
		t.Fatalf("place buy: %v", err)
	}
	if err := f.svc.PlaceOrder(limitReq(2, matching.Sell, 100, 4)); err != nil {
		t.Fatalf("place sell: %v", err)
	}

	d, err := f.svc.Depth(1, 0)
	if err != nil {
		t.Fatalf("depth: %v", err)
	}
	if len(d.Bids) != 1 || d.Bids[0].Volume != 6 {
		t.Fatalf("bids = %+v, want one level volume 6", d.Bids)
	}
	if len(d.Asks) != 0 {
		t.Fatalf("asks = %+v, want empty", d.Asks)
	}
	if d.LastPrice != 100 {
		t.Fatalf("last price = %d, want 100", d.LastPrice)
	}

	st, err := f.svc.Order(1, 1)
	if err != nil {
		t.Fatalf("order status: %v", err)
	}
	if st.LeavesQuantity != 6 || st.ExecutedQuantity != 4 {
		t.Fatalf("status = %+v", st)
	}
}

func TestRejectedCommandReturnsDomainError(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	if err := f.svc.CancelOrder(999); err != matching.ErrOrderNotFound {
		t.Fatalf("cancel unknown = %v, want ErrOrderNotFound", err)
	}

	bad := limitReq(1, matching.Buy, 0, 10)
	if err := f.svc.PlaceOrder(bad); err != matching.ErrInvalidPrice {
		t.Fatalf("invalid place = %v, want ErrInvalidPrice", err)
	}
}

func TestEventsLandInOutbox(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	_ = f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 5))
	_ = f.svc.PlaceOrder(limitReq(2, matching.Sell, 100, 5))

	var types []string
	var lastSeq uint64
	err := f.outbox.ScanByState(exitwal.StateNew, func(seq uint64, rec exitwal.EventRecord) error {
		if seq <= lastSeq {
			t.Errorf("outbox seq %d not increasing after %d", seq, lastSeq)
		}
		lastSeq = seq

		var e Event
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return err
		}
		types = append(types, e.Type)
		return nil
	})
	if err != nil {
		t.Fatalf("scan: %v", err)
	}

	var trades, executions int
	for _, typ := range types {
		switch typ {
		case "trade":
			trades++
		case "execution":
			executions++
		}
	}
	if trades != 1 {
		t.Fatalf("trades in outbox = %d, want 1 (types %v)", trades, types)
	}
	if executions != 2 {
		t.Fatalf("executions in outbox = %d, want 2 (types %v)", executions, types)
	}
}

func TestReplayRebuildsState(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	_ = f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 10))
	_ = f.svc.PlaceOrder(limitReq(2, matching.Buy, 99, 5))
	_ = f.svc.PlaceOrder(limitReq(3, matching.Sell, 100, 4))
	_ = f.svc.CancelOrder(2)
	// A rejected command must replay as a no-op, not derail recovery.
	_ = f.svc.CancelOrder(777)

	liveSeq := f.seq.Current()

	rebuilt := matching.NewMarketManager(nil)
	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })
	seqGen := sequence.New(0)

	if err := ReplayFromWAL(f.walDir, 0, rebuilt, pool, seqGen, nil); err != nil {
		t.Fatalf("replay: %v", err)
	}

	if seqGen.Current() == 0 || seqGen.Current() > liveSeq {
		t.Fatalf("sequencer after replay = %d, live = %d", seqGen.Current(), liveSeq)
	}

	book := rebuilt.OrderBook(1)
	if book == nil {
		t.Fatal("book not rebuilt")
	}
	if book.Size() != 1 {
		t.Fatalf("rebuilt book size = %d, want 1", book.Size())
	}

	o := book.Order(1)
	if o == nil {
		t.Fatal("order 1 missing after replay")
	}
	if o.LeavesQuantity != 6 || o.ExecutedQuantity != 4 {
		t.Fatalf("order 1 = leaves %d exec %d, want 6/4", o.LeavesQuantity, o.ExecutedQuantity)
	}
	if book.Order(2) != nil {
		t.Fatal("cancelled order 2 survived replay")
	}
	if book.LastPrice() != 100 {
		t.Fatalf("last price after replay = %d, want 100", book.LastPrice())
	}
}

func TestSnapshotPlusWALRestart(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	// State covered by the snapshot: order 1 partially filled down to 6.
	_ = f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 10))
	_ = f.svc.PlaceOrder(limitReq(2, matching.Sell, 100, 4))

	w := &snapshot.Writer{Dir: t.TempDir()}
	f.svc.snapshotOnce(w)
	snapCut := f.seq.Current()

	// Traffic after the snapshot lives only in the WAL.
	_ = f.svc.PlaceOrder(limitReq(3, matching.Sell, 100, 2))

	liveSeq := f.seq.Current()
	live := f.svc.manager.OrderBook(1).Order(1)
	if live == nil || live.LeavesQuantity != 4 {
		t.Fatalf("live leaves = %+v, want 4", live)
	}

	// Restart the way main.go does: snapshot first, then the log past it.
	restored := matching.NewMarketManager(nil)
	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })
	seqGen := sequence.New(0)

	snapSeq, err := snapshot.Load(w.Path(), restored, pool)
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if snapSeq != snapCut {
		t.Fatalf("snapshot seq = %d, want %d", snapSeq, snapCut)
	}
	seqGen.Reset(snapSeq)
	if err := ReplayFromWAL(f.walDir, snapSeq, restored, pool, seqGen, nil); err != nil {
		t.Fatalf("replay: %v", err)
	}

	// Covered records in the surviving active segment must not be
	// applied a second time on top of the restored book.
	o := restored.OrderBook(1).Order(1)
	if o == nil {
		t.Fatal("order 1 missing after restart")
	}
	if o.LeavesQuantity != 4 || o.ExecutedQuantity != 6 {
		t.Fatalf("order 1 after restart = leaves %d exec %d, want 4/6", o.LeavesQuantity, o.ExecutedQuantity)
	}
	if seqGen.Current() <= snapSeq || seqGen.Current() > liveSeq {
		t.Fatalf("sequencer after restart = %d, want in (%d, %d]", seqGen.Current(), snapSeq, liveSeq)
	}
}

func TestReplayNeverRewindsSequencer(t *testing.T) {
	manager := matching.NewMarketManager(nil)
	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })

	// An empty WAL directory: everything was truncated after a snapshot.
	seqGen := sequence.New(500)
	if err := ReplayFromWAL(t.TempDir(), 500, manager, pool, seqGen, nil); err != nil {
		t.Fatalf("replay: %v", err)
	}
	if seqGen.Current() != 500 {
		t.Fatalf("sequencer = %d after empty replay, want 500", seqGen.Current())
	}
}

func TestMutedSinkPublishesNothing(t *testing.T) {
	f := newFixture(t)

	f.sink.Mute()
	setupMarket(t, f)
	_ = f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 5))
	_ = f.svc.PlaceOrder(limitReq(2, matching.Sell, 100, 5))
	f.sink.Unmute()

	count := 0
	_ = f.outbox.ScanByState(exitwal.StateNew, func(uint64, exitwal.EventRecord) error {
		count++
		return nil
	})
	if count != 0 {
		t.Fatalf("outbox has %d events while muted, want 0", count)
	}
}

func TestSnapshotJobTruncatesWAL(t *testing.T) {
	f := newFixture(t)
	setupMarket(t, f)

	_ = f.svc.PlaceOrder(limitReq(1, matching.Buy, 100, 10))

	w := &snapshot.Writer{Dir: t.TempDir()}
	f.svc.snapshotOnce(w)

	restored := matching.NewMarketManager(nil)
	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })
	seq, err := snapshot.Load(w.Path(), restored, pool)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if seq != f.seq.Current() {
		t.Fatalf("snapshot seq = %d, want %d", seq, f.seq.Current())
	}
	if restored.OrderBook(1) == nil || restored.OrderBook(1).Order(1) == nil {
		t.Fatal("snapshot missing book state")
	}
}
