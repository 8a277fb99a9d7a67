package http

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"helix/domain/matching"
	"helix/service"
)

// Feed bridges the engine fan-out to websocket clients. It implements
// matching.Handler; each event is converted to the public wire form and
// broadcast to the matching hub.
type Feed struct {
	trades *hub[service.Event]
	levels *hub[service.Event]
	log    *zap.Logger
}

func NewFeed(log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	return &Feed{
		trades: newHub[service.Event](),
		levels: newHub[service.Event](),
		log:    log,
	}
}

func (f *Feed) OnAddSymbol(matching.Symbol)                    {}
func (f *Feed) OnDeleteSymbol(matching.Symbol)                 {}
func (f *Feed) OnAddOrderBook(matching.Symbol)                 {}
func (f *Feed) OnDeleteOrderBook(matching.Symbol)              {}
func (f *Feed) OnAddOrder(matching.Symbol, *matching.Order)    {}
func (f *Feed) OnUpdateOrder(matching.Symbol, *matching.Order) {}
func (f *Feed) OnDeleteOrder(matching.Symbol, *matching.Order) {}

func (f *Feed) OnLevelUpdate(sym matching.Symbol, u matching.LevelUpdate) {
	f.levels.Broadcast(service.Event{
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

func (f *Feed) OnExecution(sym matching.Symbol, orderID, price, quantity, timestamp uint64) {
	f.trades.Broadcast(service.Event{
		Type:      "execution",
		Symbol:    sym.Name,
		SymbolID:  sym.ID,
		OrderID:   orderID,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
	})
}

func (f *Feed) OnTrade(sym matching.Symbol, price, quantity, timestamp uint64) {
	f.trades.Broadcast(service.Event{
		Type:      "trade",
		Symbol:    sym.Name,
		SymbolID:  sym.ID,
		Price:     price,
		Quantity:  quantity,
		Timestamp: timestamp,
	})
}

func (f *Feed) OnError(message string) {
	f.log.Warn("engine error", zap.String("message", message))
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(*http.Request) bool { return true },
}

// writeWait bounds how long a single frame write may block on a stalled
// client before the connection is dropped.
const writeWait = 10 * time.Second

func (f *Feed) streamTrades(w http.ResponseWriter, r *http.Request) {
	f.stream(w, r, f.trades)
}

func (f *Feed) streamLevels(w http.ResponseWriter, r *http.Request) {
	f.stream(w, r, f.levels)
}

func (f *Feed) stream(w http.ResponseWriter, r *http.Request, h *hub[service.Event]) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.log.Debug("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	sub := h.Subscribe(256)
	defer h.Unsubscribe(sub)

	// Drain client frames so pings and closes are processed.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				h.Unsubscribe(sub)
				return
			}
		}
	}()

	for e := range sub.ch {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(e); err != nil {
			return
		}
	}
}
