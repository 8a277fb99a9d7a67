// Package marketdata persists the full event stream of the matching
// engine to a journal and replays it. The journal is the audit trail:
// playing it back through a fresh handler reproduces every book state
// transition in order.
package marketdata

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"helix/domain/matching"
	"helix/infra/wal"
)

// Record tags, one byte each, written as the first byte of the frame.
const (
	TagStart     = 'S'
	TagEnd       = 'E'
	TagSymbol    = 'Y'
	TagLevel     = 'U'
	TagTrade     = 'T'
	TagOrder     = 'O'
	TagExecution = 'X'
	TagError     = '!'
)

// Symbol and order records carry an action discriminator so one tag
// covers the whole lifecycle.
const (
	actionAdd = iota
	actionUpdate
	actionDelete
	actionAddBook
	actionDeleteBook
)

var ErrBadFrame = errors.New("marketdata: bad frame")

// frame: [tag:1][len:4][payload][crc:4], crc over tag+len+payload.
func writeFrame(w io.Writer, tag byte, payload []byte) error {
	buf := make([]byte, 1+4+len(payload)+4)
	buf[0] = tag
	binary.BigEndian.PutUint32(buf[1:5], uint32(len(payload)))
	copy(buf[5:], payload)
	crc := wal.CRC32(buf[:5+len(payload)])
	binary.BigEndian.PutUint32(buf[5+len(payload):], crc)

	_, err := w.Write(buf)
	return err
}

func readFrame(r io.Reader) (tag byte, payload []byte, err error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return 0, nil, err
	}

	l := binary.BigEndian.Uint32(header[1:5])
	body := make([]byte, l+4)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("%w: truncated payload", ErrBadFrame)
	}

	crc := binary.BigEndian.Uint32(body[l:])
	if !wal.CRC32Valid(append(header, body[:l]...), crc) {
		return 0, nil, fmt.Errorf("%w: crc mismatch", ErrBadFrame)
	}
	return header[0], body[:l], nil
}

func encodeSymbol(action byte, s matching.Symbol) []byte {
	name := []byte(s.Name)
	buf := make([]byte, 1+4+2+len(name))
	buf[0] = action
	binary.BigEndian.PutUint32(buf[1:5], s.ID)
	binary.BigEndian.PutUint16(buf[5:7], uint16(len(name)))
	copy(buf[7:], name)
	return buf
}

func decodeSymbol(b []byte) (action byte, s matching.Symbol, err error) {
	if len(b) < 7 {
		return 0, s, fmt.Errorf("%w: short symbol record", ErrBadFrame)
	}
	n := int(binary.BigEndian.Uint16(b[5:7]))
	if len(b) != 7+n {
		return 0, s, fmt.Errorf("%w: symbol name length", ErrBadFrame)
	}
	return b[0], matching.Symbol{
		ID:   binary.BigEndian.Uint32(b[1:5]),
		Name: string(b[7:]),
	}, nil
}

func encodeLevel(symbolID uint32, u matching.LevelUpdate) []byte {
	buf := make([]byte, 4+1+1+8+8+4+1)
	binary.BigEndian.PutUint32(buf[0:4], symbolID)
	buf[4] = byte(u.Kind)
	buf[5] = byte(u.Side)
	binary.BigEndian.PutUint64(buf[6:14], u.Price)
	binary.BigEndian.PutUint64(buf[14:22], u.Volume)
	binary.BigEndian.PutUint32(buf[22:26], uint32(u.Orders))
	if u.Top {
		buf[26] = 1
	}
	return buf
}

func decodeLevel(b []byte) (symbolID uint32, u matching.LevelUpdate, err error) {
	if len(b) != 27 {
		return 0, u, fmt.Errorf("%w: level record length", ErrBadFrame)
	}
	return binary.BigEndian.Uint32(b[0:4]), matching.LevelUpdate{
		Kind:   matching.LevelUpdateKind(b[4]),
		Side:   matching.Side(b[5]),
		Price:  binary.BigEndian.Uint64(b[6:14]),
		Volume: binary.BigEndian.Uint64(b[14:22]),
		Orders: int(binary.BigEndian.Uint32(b[22:26])),
		Top:    b[26] == 1,
	}, nil
}

func encodeOrder(action byte, symbolID uint32, o *matching.Order) []byte {
	buf := make([]byte, 1+4+8+1+1+1+8+8+8+8+8+8+8)
	buf[0] = action
	binary.BigEndian.PutUint32(buf[1:5], symbolID)
	binary.BigEndian.PutUint64(buf[5:13], o.ID)
	buf[13] = byte(o.Side)
	buf[14] = byte(o.Type)
	buf[15] = byte(o.TIF)
	binary.BigEndian.PutUint64(buf[16:24], o.Price)
	binary.BigEndian.PutUint64(buf[24:32], o.StopPrice)
	binary.BigEndian.PutUint64(buf[32:40], o.TrailingDistance)
	binary.BigEndian.PutUint64(buf[40:48], o.TrailingStep)
	binary.BigEndian.PutUint64(buf[48:56], o.Quantity)
	binary.BigEndian.PutUint64(buf[56:64], o.LeavesQuantity)
	binary.BigEndian.PutUint64(buf[64:72], o.ExecutedQuantity)
	return buf
}

func decodeOrder(b []byte) (action byte, symbolID uint32, o matching.Order, err error) {
	if len(b) != 72 {
		return 0, 0, o, fmt.Errorf("%w: order record length", ErrBadFrame)
	}
	symbolID = binary.BigEndian.Uint32(b[1:5])
	o = matching.Order{
		ID:               binary.BigEndian.Uint64(b[5:13]),
		SymbolID:         symbolID,
		Side:             matching.Side(b[13]),
		Type:             matching.OrderType(b[14]),
		TIF:              matching.TimeInForce(b[15]),
		Price:            binary.BigEndian.Uint64(b[16:24]),
		StopPrice:        binary.BigEndian.Uint64(b[24:32]),
		TrailingDistance: binary.BigEndian.Uint64(b[32:40]),
		TrailingStep:     binary.BigEndian.Uint64(b[40:48]),
		Quantity:         binary.BigEndian.Uint64(b[48:56]),
		LeavesQuantity:   binary.BigEndian.Uint64(b[56:64]),
		ExecutedQuantity: binary.BigEndian.Uint64(b[64:72]),
	}
	return b[0], symbolID, o, nil
}

func encodeExecution(symbolID uint32, orderID, price, quantity, timestamp uint64) []byte {
	buf := make([]byte, 4+8+8+8+8)
	binary.BigEndian.PutUint32(buf[0:4], symbolID)
	binary.BigEndian.PutUint64(buf[4:12], orderID)
	binary.BigEndian.PutUint64(buf[12:20], price)
	binary.BigEndian.PutUint64(buf[20:28], quantity)
	binary.BigEndian.PutUint64(buf[28:36], timestamp)
	return buf
}

func decodeExecution(b []byte) (symbolID uint32, orderID, price, quantity, timestamp uint64, err error) {
	if len(b) != 36 {
		err = fmt.Errorf("%w: execution record length", ErrBadFrame)
		return
	}
	return binary.BigEndian.Uint32(b[0:4]),
		binary.BigEndian.Uint64(b[4:12]),
		binary.BigEndian.Uint64(b[12:20]),
		binary.BigEndian.Uint64(b[20:28]),
		binary.BigEndian.Uint64(b[28:36]),
		nil
}

func encodeTrade(symbolID uint32, price, quantity, timestamp uint64) []byte {
	buf := make([]byte, 4+8+8+8)
	binary.BigEndian.PutUint32(buf[0:4], symbolID)
	binary.BigEndian.PutUint64(buf[4:12], price)
	binary.BigEndian.PutUint64(buf[12:20], quantity)
	binary.BigEndian.PutUint64(buf[20:28], timestamp)
	return buf
}

func decodeTrade(b []byte) (symbolID uint32, price, quantity, timestamp uint64, err error) {
	if len(b) != 28 {
		err = fmt.Errorf("%w: trade record length", ErrBadFrame)
		return
	}
	return binary.BigEndian.Uint32(b[0:4]),
		binary.BigEndian.Uint64(b[4:12]),
		binary.BigEndian.Uint64(b[12:20]),
		binary.BigEndian.Uint64(b[20:28]),
		nil
}
