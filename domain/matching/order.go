package matching

// Side of an order.
type Side uint8

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Sell {
		return "SELL"
	}
	return "BUY"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// OrderType determines how an order enters the book.
type OrderType uint8

const (
	Market OrderType = iota
	Limit
	Stop
	StopLimit
	TrailingStop
	TrailingStopLimit
)

func (t OrderType) String() string {
	switch t {
	case Market:
		return "MARKET"
	case Limit:
		return "LIMIT"
	case Stop:
		return "STOP"
	case StopLimit:
		return "STOP_LIMIT"
	case TrailingStop:
		return "TRAILING_STOP"
	case TrailingStopLimit:
		return "TRAILING_STOP_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// IsStop reports whether the order rests in a stop ladder until triggered.
func (t OrderType) IsStop() bool {
	return t == Stop || t == StopLimit || t == TrailingStop || t == TrailingStopLimit
}

// IsTrailing reports whether the stop price tracks the market.
func (t OrderType) IsTrailing() bool {
	return t == TrailingStop || t == TrailingStopLimit
}

// TimeInForce is the matching policy of an order.
type TimeInForce uint8

const (
	GTC TimeInForce = iota // good till cancelled
	IOC                    // immediate or cancel
	FOK                    // fill or kill
	AON                    // all or none
)

func (tif TimeInForce) String() string {
	switch tif {
	case IOC:
		return "IOC"
	case FOK:
		return "FOK"
	case AON:
		return "AON"
	default:
		return "GTC"
	}
}

// Order is the identity and working state of one order. While resting it is
// owned by the OrderBook; the Level it belongs to only references it through
// the intrusive prev/next chain.
type Order struct {
	ID       uint64
	SymbolID uint32

	Side Side
	Type OrderType
	TIF  TimeInForce

	// Price is the limit price. It is ignored for pure market orders.
	Price uint64
	// StopPrice is the trigger price for stop variants.
	StopPrice uint64
	// TrailingDistance and TrailingStep control trailing stop recalculation.
	// The stop price follows the last trade price at TrailingDistance and is
	// re-levelled only when the favorable move is at least TrailingStep.
	TrailingDistance uint64
	TrailingStep     uint64

	Quantity         uint64
	LeavesQuantity   uint64
	ExecutedQuantity uint64

	// Intrusive FIFO chain within the owning Level.
	next  *Order
	prev  *Order
	level *Level
}

// Next returns the order behind this one in its level's FIFO queue.
func (o *Order) Next() *Order { return o.next }

// Fill consumes quantity from the order's open interest, moving it from
// leaves to executed. It fails if quantity exceeds what is left.
func (o *Order) Fill(quantity uint64) error {
	if quantity == 0 || quantity > o.LeavesQuantity {
		return ErrInvalidQuantity
	}
	o.LeavesQuantity -= quantity
	o.ExecutedQuantity += quantity
	return nil
}

// Validate checks the order fields before it is admitted to a book.
func (o *Order) Validate() error {
	if o.Quantity == 0 || o.LeavesQuantity == 0 || o.LeavesQuantity > o.Quantity {
		return ErrInvalidQuantity
	}
	switch o.Type {
	case Limit:
		if o.Price == 0 {
			return ErrInvalidPrice
		}
	case Stop, TrailingStop:
		if o.StopPrice == 0 {
			return ErrInvalidPrice
		}
	case StopLimit, TrailingStopLimit:
		if o.Price == 0 || o.StopPrice == 0 {
			return ErrInvalidPrice
		}
	}
	if o.Type.IsTrailing() && o.TrailingDistance == 0 {
		return ErrInvalidPrice
	}
	return nil
}

func newOrder(id uint64, symbolID uint32, side Side, typ OrderType, tif TimeInForce, price, stopPrice, quantity uint64) Order {
	return Order{
		ID:             id,
		SymbolID:       symbolID,
		Side:           side,
		Type:           typ,
		TIF:            tif,
		Price:          price,
		StopPrice:      stopPrice,
		Quantity:       quantity,
		LeavesQuantity: quantity,
	}
}

// BuyMarket creates a market order on the buy side.
func BuyMarket(id uint64, symbolID uint32, quantity uint64) Order {
	return newOrder(id, symbolID, Buy, Market, IOC, 0, 0, quantity)
}

// SellMarket creates a market order on the sell side.
func SellMarket(id uint64, symbolID uint32, quantity uint64) Order {
	return newOrder(id, symbolID, Sell, Market, IOC, 0, 0, quantity)
}

// BuyLimit creates a good-till-cancelled limit buy.
func BuyLimit(id uint64, symbolID uint32, price, quantity uint64) Order {
	return newOrder(id, symbolID, Buy, Limit, GTC, price, 0, quantity)
}

// SellLimit creates a good-till-cancelled limit sell.
func SellLimit(id uint64, symbolID uint32, price, quantity uint64) Order {
	return newOrder(id, symbolID, Sell, Limit, GTC, price, 0, quantity)
}

// BuyStop creates a stop-market buy triggered at stopPrice.
func BuyStop(id uint64, symbolID uint32, stopPrice, quantity uint64) Order {
	return newOrder(id, symbolID, Buy, Stop, GTC, 0, stopPrice, quantity)
}

// SellStop creates a stop-market sell triggered at stopPrice.
func SellStop(id uint64, symbolID uint32, stopPrice, quantity uint64) Order {
	return newOrder(id, symbolID, Sell, Stop, GTC, 0, stopPrice, quantity)
}

// BuyStopLimit creates a stop-limit buy: triggered at stopPrice, then works
// as a limit order at price.
func BuyStopLimit(id uint64, symbolID uint32, stopPrice, price, quantity uint64) Order {
	return newOrder(id, symbolID, Buy, StopLimit, GTC, price, stopPrice, quantity)
}

// SellStopLimit creates a stop-limit sell.
func SellStopLimit(id uint64, symbolID uint32, stopPrice, price, quantity uint64) Order {
	return newOrder(id, symbolID, Sell, StopLimit, GTC, price, stopPrice, quantity)
}

// TrailingBuyStop creates a trailing stop-market buy. The stop price trails
// the last trade price from above at the given distance.
func TrailingBuyStop(id uint64, symbolID uint32, stopPrice, quantity, distance, step uint64) Order {
	o := newOrder(id, symbolID, Buy, TrailingStop, GTC, 0, stopPrice, quantity)
	o.TrailingDistance = distance
	o.TrailingStep = step
	return o
}

// TrailingSellStop creates a trailing stop-market sell. The stop price trails
// the last trade price from below at the given distance.
func TrailingSellStop(id uint64, symbolID uint32, stopPrice, quantity, distance, step uint64) Order {
	o := newOrder(id, symbolID, Sell, TrailingStop, GTC, 0, stopPrice, quantity)
	o.TrailingDistance = distance
	o.TrailingStep = step
	return o
}

// TrailingBuyStopLimit creates a trailing stop-limit buy. Both the stop price
// and the limit price are shifted when the stop trails.
func TrailingBuyStopLimit(id uint64, symbolID uint32, stopPrice, price, quantity, distance, step uint64) Order {
	o := newOrder(id, symbolID, Buy, TrailingStopLimit, GTC, price, stopPrice, quantity)
	o.TrailingDistance = distance
	o.TrailingStep = step
	return o
}

// TrailingSellStopLimit creates a trailing stop-limit sell.
func TrailingSellStopLimit(id uint64, symbolID uint32, stopPrice, price, quantity, distance, step uint64) Order {
	o := newOrder(id, symbolID, Sell, TrailingStopLimit, GTC, price, stopPrice, quantity)
	o.TrailingDistance = distance
	o.TrailingStep = step
	return o
}
