package matching

// MarketManager owns the collection of order books keyed by symbol id,
// routes operations to the right book, and republishes every book event
// to the external handler. It tracks which book each live order belongs
// to so callers can address orders by id alone.
type MarketManager struct {
	handler Handler

	symbols map[uint32]Symbol
	books   map[uint32]*OrderBook

	// orderSymbols routes Delete/Reduce/Modify/Replace by order id. It is
	// maintained by intercepting the books' own add/delete callbacks, so
	// it stays consistent with fills and promotions the books perform
	// internally.
	orderSymbols map[uint64]uint32
}

// NewMarketManager creates a manager publishing to the given handler.
func NewMarketManager(handler Handler) *MarketManager {
	if handler == nil {
		handler = NopHandler{}
	}
	return &MarketManager{
		handler:      handler,
		symbols:      make(map[uint32]Symbol),
		books:        make(map[uint32]*OrderBook),
		orderSymbols: make(map[uint64]uint32),
	}
}

// AddSymbol registers a new instrument.
func (m *MarketManager) AddSymbol(symbol Symbol) error {
	if _, ok := m.symbols[symbol.ID]; ok {
		return ErrDuplicateSymbol
	}
	m.symbols[symbol.ID] = symbol
	m.handler.OnAddSymbol(symbol)
	return nil
}

// DeleteSymbol removes an instrument. Its order book must be deleted first.
func (m *MarketManager) DeleteSymbol(id uint32) error {
	symbol, ok := m.symbols[id]
	if !ok {
		return ErrSymbolNotFound
	}
	if _, ok := m.books[id]; ok {
		return ErrDuplicateBook
	}
	delete(m.symbols, id)
	m.handler.OnDeleteSymbol(symbol)
	return nil
}

// Symbol returns a registered symbol.
func (m *MarketManager) Symbol(id uint32) (Symbol, bool) {
	s, ok := m.symbols[id]
	return s, ok
}

// Symbols returns all registered symbols.
func (m *MarketManager) Symbols() []Symbol {
	out := make([]Symbol, 0, len(m.symbols))
	for _, s := range m.symbols {
		out = append(out, s)
	}
	return out
}

// AddOrderBook creates the book for a registered symbol.
func (m *MarketManager) AddOrderBook(symbol Symbol) error {
	if _, ok := m.symbols[symbol.ID]; !ok {
		return ErrSymbolNotFound
	}
	if _, ok := m.books[symbol.ID]; ok {
		return ErrDuplicateBook
	}
	m.books[symbol.ID] = NewOrderBook(symbol, &managerSink{manager: m})
	m.handler.OnAddOrderBook(symbol)
	return nil
}

// DeleteOrderBook tears down the book for a symbol, dropping its orders.
func (m *MarketManager) DeleteOrderBook(id uint32) error {
	book, ok := m.books[id]
	if !ok {
		return ErrBookNotFound
	}
	book.EachOrder(func(o *Order) {
		delete(m.orderSymbols, o.ID)
	})
	delete(m.books, id)
	m.handler.OnDeleteOrderBook(book.Symbol())
	return nil
}

// OrderBook returns the book for a symbol, or nil.
func (m *MarketManager) OrderBook(id uint32) *OrderBook {
	return m.books[id]
}

// AddOrder routes a new order to its symbol's book.
func (m *MarketManager) AddOrder(o *Order) error {
	book, ok := m.books[o.SymbolID]
	if !ok {
		return ErrBookNotFound
	}
	return book.AddOrder(o)
}

// DeleteOrder cancels a live order by id.
func (m *MarketManager) DeleteOrder(id uint64) error {
	book, err := m.bookOf(id)
	if err != nil {
		return err
	}
	return book.DeleteOrder(id)
}

// ReduceOrder decreases the open quantity of a live order by id.
func (m *MarketManager) ReduceOrder(id uint64, quantity uint64) error {
	book, err := m.bookOf(id)
	if err != nil {
		return err
	}
	return book.ReduceOrder(id, quantity)
}

// ModifyOrder changes price and quantity of a live order by id.
func (m *MarketManager) ModifyOrder(id uint64, newPrice, newQuantity uint64, mitigate bool) error {
	book, err := m.bookOf(id)
	if err != nil {
		return err
	}
	return book.ModifyOrder(id, newPrice, newQuantity, mitigate)
}

// ReplaceOrder cancels and re-adds a live order by id at a new price and
// quantity.
func (m *MarketManager) ReplaceOrder(id uint64, newPrice, newQuantity uint64) error {
	book, err := m.bookOf(id)
	if err != nil {
		return err
	}
	return book.ReplaceOrder(id, newPrice, newQuantity)
}

func (m *MarketManager) bookOf(id uint64) (*OrderBook, error) {
	symbolID, ok := m.orderSymbols[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	book, ok := m.books[symbolID]
	if !ok {
		return nil, ErrBookNotFound
	}
	return book, nil
}

// managerSink is the handler each book publishes into. It keeps the
// manager's order routing table current and forwards everything to the
// external handler unchanged.
type managerSink struct {
	manager *MarketManager
}

func (s *managerSink) OnAddSymbol(symbol Symbol)    { s.manager.handler.OnAddSymbol(symbol) }
func (s *managerSink) OnDeleteSymbol(symbol Symbol) { s.manager.handler.OnDeleteSymbol(symbol) }
func (s *managerSink) OnAddOrderBook(symbol Symbol) { s.manager.handler.OnAddOrderBook(symbol) }
func (s *managerSink) OnDeleteOrderBook(symbol Symbol) {
	s.manager.handler.OnDeleteOrderBook(symbol)
}

func (s *managerSink) OnLevelUpdate(symbol Symbol, update LevelUpdate) {
	s.manager.handler.OnLevelUpdate(symbol, update)
}

func (s *managerSink) OnAddOrder(symbol Symbol, o *Order) {
	s.manager.orderSymbols[o.ID] = symbol.ID
	s.manager.handler.OnAddOrder(symbol, o)
}

func (s *managerSink) OnUpdateOrder(symbol Symbol, o *Order) {
	s.manager.handler.OnUpdateOrder(symbol, o)
}

func (s *managerSink) OnDeleteOrder(symbol Symbol, o *Order) {
	delete(s.manager.orderSymbols, o.ID)
	s.manager.handler.OnDeleteOrder(symbol, o)
}

func (s *managerSink) OnExecution(symbol Symbol, orderID, price, quantity, timestamp uint64) {
	s.manager.handler.OnExecution(symbol, orderID, price, quantity, timestamp)
}

func (s *managerSink) OnTrade(symbol Symbol, price, quantity, timestamp uint64) {
	s.manager.handler.OnTrade(symbol, price, quantity, timestamp)
}

func (s *managerSink) OnError(message string) { s.manager.handler.OnError(message) }
