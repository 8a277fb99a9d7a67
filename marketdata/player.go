package marketdata

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"helix/domain/matching"
)

// Player reads a journal and dispatches every record to a handler in
// recorded order. Symbols seen in the stream are tracked so later
// records resolve to full Symbol values even when the handler never
// saw the original add.
type Player struct {
	symbols map[uint32]matching.Symbol
}

func NewPlayer() *Player {
	return &Player{symbols: make(map[uint32]matching.Symbol)}
}

// Play replays the journal at path into h. It returns the number of
// records dispatched, excluding the start and end markers.
func (p *Player) Play(path string, h matching.Handler) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	return p.PlayStream(bufio.NewReader(f), h)
}

func (p *Player) PlayStream(r io.Reader, h matching.Handler) (int, error) {
	if h == nil {
		h = matching.NopHandler{}
	}

	count := 0
	for {
		tag, payload, err := readFrame(r)
		if err != nil {
			if err == io.EOF {
				return count, nil
			}
			return count, err
		}

		if err := p.dispatch(tag, payload, h); err != nil {
			return count, err
		}
		if tag != TagStart && tag != TagEnd {
			count++
		}
	}
}

func (p *Player) symbol(id uint32) matching.Symbol {
	if s, ok := p.symbols[id]; ok {
		return s
	}
	return matching.Symbol{ID: id}
}

func (p *Player) dispatch(tag byte, payload []byte, h matching.Handler) error {
	switch tag {
	case TagStart, TagEnd:
		return nil

	case TagSymbol:
		action, s, err := decodeSymbol(payload)
		if err != nil {
			return err
		}
		switch action {
		case actionAdd:
			p.symbols[s.ID] = s
			h.OnAddSymbol(s)
		case actionDelete:
			h.OnDeleteSymbol(s)
			delete(p.symbols, s.ID)
		case actionAddBook:
			h.OnAddOrderBook(p.symbol(s.ID))
		case actionDeleteBook:
			h.OnDeleteOrderBook(p.symbol(s.ID))
		default:
			return fmt.Errorf("%w: symbol action %d", ErrBadFrame, action)
		}
		return nil

	case TagLevel:
		id, u, err := decodeLevel(payload)
		if err != nil {
			return err
		}
		h.OnLevelUpdate(p.symbol(id), u)
		return nil

	case TagOrder:
		action, id, o, err := decodeOrder(payload)
		if err != nil {
			return err
		}
		switch action {
		case actionAdd:
			h.OnAddOrder(p.symbol(id), &o)
		case actionUpdate:
			h.OnUpdateOrder(p.symbol(id), &o)
		case actionDelete:
			h.OnDeleteOrder(p.symbol(id), &o)
		default:
			return fmt.Errorf("%w: order action %d", ErrBadFrame, action)
		}
		return nil

	case TagExecution:
		id, orderID, price, qty, ts, err := decodeExecution(payload)
		if err != nil {
			return err
		}
		h.OnExecution(p.symbol(id), orderID, price, qty, ts)
		return nil

	case TagTrade:
		id, price, qty, ts, err := decodeTrade(payload)
		if err != nil {
			return err
		}
		h.OnTrade(p.symbol(id), price, qty, ts)
		return nil

	case TagError:
		h.OnError(string(payload))
		return nil

	default:
		return fmt.Errorf("%w: unknown tag %q", ErrBadFrame, tag)
	}
}
