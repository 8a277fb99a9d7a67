package matching

import "errors"

// All errors are local and recoverable: a failed operation leaves the book
// untouched and the caller decides what to do with the rejection.
var (
	ErrDuplicateOrder  = errors.New("matching: duplicate order id")
	ErrOrderNotFound   = errors.New("matching: order not found")
	ErrInvalidQuantity = errors.New("matching: invalid quantity")
	ErrInvalidPrice    = errors.New("matching: invalid price")
	ErrUnfillableOrder = errors.New("matching: order cannot be fully filled")
	ErrDuplicateSymbol = errors.New("matching: duplicate symbol id")
	ErrSymbolNotFound  = errors.New("matching: symbol not found")
	ErrDuplicateBook   = errors.New("matching: order book already exists")
	ErrBookNotFound    = errors.New("matching: order book not found")
)
