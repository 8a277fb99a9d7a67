package matching

// Handler receives every event the matching engine produces, in the exact
// sequence the algorithm emits them. Orders passed to callbacks must be
// treated as read-only; they remain owned by the book.
type Handler interface {
	OnAddSymbol(symbol Symbol)
	OnDeleteSymbol(symbol Symbol)

	OnAddOrderBook(symbol Symbol)
	OnDeleteOrderBook(symbol Symbol)

	OnLevelUpdate(symbol Symbol, update LevelUpdate)

	OnAddOrder(symbol Symbol, order *Order)
	OnUpdateOrder(symbol Symbol, order *Order)
	OnDeleteOrder(symbol Symbol, order *Order)

	OnExecution(symbol Symbol, orderID uint64, price, quantity, timestamp uint64)
	OnTrade(symbol Symbol, price, quantity, timestamp uint64)

	OnError(message string)
}

// NopHandler implements Handler with no-ops. Concrete handlers embed it and
// override only the callbacks they care about.
type NopHandler struct{}

func (NopHandler) OnAddSymbol(Symbol)                              {}
func (NopHandler) OnDeleteSymbol(Symbol)                           {}
func (NopHandler) OnAddOrderBook(Symbol)                           {}
func (NopHandler) OnDeleteOrderBook(Symbol)                        {}
func (NopHandler) OnLevelUpdate(Symbol, LevelUpdate)               {}
func (NopHandler) OnAddOrder(Symbol, *Order)                       {}
func (NopHandler) OnUpdateOrder(Symbol, *Order)                    {}
func (NopHandler) OnDeleteOrder(Symbol, *Order)                    {}
func (NopHandler) OnExecution(Symbol, uint64, uint64, uint64, uint64) {}
func (NopHandler) OnTrade(Symbol, uint64, uint64, uint64)          {}
func (NopHandler) OnError(string)                                  {}

// FanOut republishes every event to an ordered list of handlers. All
// consumers observe the same total order of events.
type FanOut struct {
	handlers []Handler
}

// NewFanOut creates a fan-out over the given handlers. Nil entries are
// skipped so optional consumers can be wired conditionally.
func NewFanOut(handlers ...Handler) *FanOut {
	f := &FanOut{}
	for _, h := range handlers {
		if h != nil {
			f.handlers = append(f.handlers, h)
		}
	}
	return f
}

// Attach appends another consumer to the fan-out.
func (f *FanOut) Attach(h Handler) {
	if h != nil {
		f.handlers = append(f.handlers, h)
	}
}

func (f *FanOut) OnAddSymbol(s Symbol) {
	for _, h := range f.handlers {
		h.OnAddSymbol(s)
	}
}

func (f *FanOut) OnDeleteSymbol(s Symbol) {
	for _, h := range f.handlers {
		h.OnDeleteSymbol(s)
	}
}

func (f *FanOut) OnAddOrderBook(s Symbol) {
	for _, h := range f.handlers {
		h.OnAddOrderBook(s)
	}
}

func (f *FanOut) OnDeleteOrderBook(s Symbol) {
	for _, h := range f.handlers {
		h.OnDeleteOrderBook(s)
	}
}

func (f *FanOut) OnLevelUpdate(s Symbol, u LevelUpdate) {
	for _, h := range f.handlers {
		h.OnLevelUpdate(s, u)
	}
}

func (f *FanOut) OnAddOrder(s Symbol, o *Order) {
	for _, h := range f.handlers {
		h.OnAddOrder(s, o)
	}
}

func (f *FanOut) OnUpdateOrder(s Symbol, o *Order) {
	for _, h := range f.handlers {
		h.OnUpdateOrder(s, o)
	}
}

func (f *FanOut) OnDeleteOrder(s Symbol, o *Order) {
	for _, h := range f.handlers {
		h.OnDeleteOrder(s, o)
	}
}

func (f *FanOut) OnExecution(s Symbol, orderID, price, quantity, timestamp uint64) {
	for _, h := range f.handlers {
		h.OnExecution(s, orderID, price, quantity, timestamp)
	}
}

func (f *FanOut) OnTrade(s Symbol, price, quantity, timestamp uint64) {
	for _, h := range f.handlers {
		h.OnTrade(s, price, quantity, timestamp)
	}
}

func (f *FanOut) OnError(message string) {
	for _, h := range f.handlers {
		h.OnError(message)
	}
}
