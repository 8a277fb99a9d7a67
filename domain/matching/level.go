package matching

// LevelUpdateKind classifies a change to a price level.
type LevelUpdateKind uint8

const (
	LevelAdd LevelUpdateKind = iota
	LevelChange
	LevelDelete
)

func (k LevelUpdateKind) String() string {
	switch k {
	case LevelAdd:
		return "ADD"
	case LevelChange:
		return "UPDATE"
	default:
		return "DELETE"
	}
}

// LevelUpdate describes one incremental price level transition so consumers
// can maintain book state without re-scanning.
type LevelUpdate struct {
	Kind   LevelUpdateKind
	Side   Side
	Price  uint64
	Volume uint64
	Orders int
	// Top is set when the update touched the best level of its ladder.
	Top bool
}

// Level aggregates all orders resting at one price on one side. Orders at
// the same price execute in arrival order, so the level keeps an intrusive
// FIFO chain through the orders themselves.
type Level struct {
	Price uint64
	Side  Side

	TotalVolume uint64
	OrderCount  int

	head *Order
	tail *Order
}

// Front returns the oldest order at this level.
func (l *Level) Front() *Order { return l.head }

// Empty reports whether no orders remain at this level.
func (l *Level) Empty() bool { return l.head == nil }

func (l *Level) link(o *Order) {
	if l.head == nil {
		l.head = o
		l.tail = o
	} else {
		l.tail.next = o
		o.prev = l.tail
		l.tail = o
	}
	o.level = l
	l.TotalVolume += o.LeavesQuantity
	l.OrderCount++
}

func (l *Level) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		l.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		l.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.level = nil
	l.TotalVolume -= o.LeavesQuantity
	l.OrderCount--
}

func (l *Level) reduce(quantity uint64) {
	l.TotalVolume -= quantity
}

// View is a read-only snapshot of the level aggregates.
func (l *Level) View() LevelView {
	return LevelView{
		Side:   l.Side,
		Price:  l.Price,
		Volume: l.TotalVolume,
		Orders: l.OrderCount,
	}
}

// LevelView is the queryable projection of a Level.
type LevelView struct {
	Side   Side
	Price  uint64
	Volume uint64
	Orders int
}
