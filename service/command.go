package service

import (
	"encoding/binary"
	"errors"

	"helix/domain/matching"
)

var ErrBadCommand = errors.New("service: bad command payload")

// OrderRequest carries everything needed to build an order. It is the
// unit the command WAL stores for RecordAdd.
type OrderRequest struct {
	ID               uint64
	SymbolID         uint32
	Side             matching.Side
	Type             matching.OrderType
	TIF              matching.TimeInForce
	Price            uint64
	StopPrice        uint64
	TrailingDistance uint64
	TrailingStep     uint64
	Quantity         uint64
}

// [symbolID:4][id:8][side:1][type:1][tif:1][price:8][stop:8][dist:8][step:8][qty:8]
func encodeOrderCommand(r OrderRequest) []byte {
	buf := make([]byte, 4+8+1+1+1+8+8+8+8+8)
	binary.BigEndian.PutUint32(buf[0:4], r.SymbolID)
	binary.BigEndian.PutUint64(buf[4:12], r.ID)
	buf[12] = byte(r.Side)
	buf[13] = byte(r.Type)
	buf[14] = byte(r.TIF)
	binary.BigEndian.PutUint64(buf[15:23], r.Price)
	binary.BigEndian.PutUint64(buf[23:31], r.StopPrice)
	binary.BigEndian.PutUint64(buf[31:39], r.TrailingDistance)
	binary.BigEndian.PutUint64(buf[39:47], r.TrailingStep)
	binary.BigEndian.PutUint64(buf[47:55], r.Quantity)
	return buf
}

func decodeOrderCommand(b []byte) (OrderRequest, error) {
	if len(b) != 55 {
		return OrderRequest{}, ErrBadCommand
	}
	return OrderRequest{
		SymbolID:         binary.BigEndian.Uint32(b[0:4]),
		ID:               binary.BigEndian.Uint64(b[4:12]),
		Side:             matching.Side(b[12]),
		Type:             matching.OrderType(b[13]),
		TIF:              matching.TimeInForce(b[14]),
		Price:            binary.BigEndian.Uint64(b[15:23]),
		StopPrice:        binary.BigEndian.Uint64(b[23:31]),
		TrailingDistance: binary.BigEndian.Uint64(b[31:39]),
		TrailingStep:     binary.BigEndian.Uint64(b[39:47]),
		Quantity:         binary.BigEndian.Uint64(b[47:55]),
	}, nil
}

// fill materializes the request into a pool-allocated order.
func (r OrderRequest) fill(o *matching.Order) {
	*o = matching.Order{
		ID:               r.ID,
		SymbolID:         r.SymbolID,
		Side:             r.Side,
		Type:             r.Type,
		TIF:              r.TIF,
		Price:            r.Price,
		StopPrice:        r.StopPrice,
		TrailingDistance: r.TrailingDistance,
		TrailingStep:     r.TrailingStep,
		Quantity:         r.Quantity,
		LeavesQuantity:   r.Quantity,
	}
}

// [id:8]
func encodeCancelCommand(id uint64) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, id)
	return buf
}

func decodeCancelCommand(b []byte) (uint64, error) {
	if len(b) != 8 {
		return 0, ErrBadCommand
	}
	return binary.BigEndian.Uint64(b), nil
}

// [id:8][qty:8]
func encodeReduceCommand(id, quantity uint64) []byte {
	buf := make([]byte, 16)
	binary.BigEndian.PutUint64(buf[0:8], id)
	binary.BigEndian.PutUint64(buf[8:16], quantity)
	return buf
}

func decodeReduceCommand(b []byte) (id, quantity uint64, err error) {
	if len(b) != 16 {
		return 0, 0, ErrBadCommand
	}
	return binary.BigEndian.Uint64(b[0:8]), binary.BigEndian.Uint64(b[8:16]), nil
}

// [id:8][price:8][qty:8][mitigate:1]
func encodeModifyCommand(id, price, quantity uint64, mitigate bool) []byte {
	buf := make([]byte, 25)
	binary.BigEndian.PutUint64(buf[0:8], id)
	binary.BigEndian.PutUint64(buf[8:16], price)
	binary.BigEndian.PutUint64(buf[16:24], quantity)
	if mitigate {
		buf[24] = 1
	}
	return buf
}

func decodeModifyCommand(b []byte) (id, price, quantity uint64, mitigate bool, err error) {
	if len(b) != 25 {
		return 0, 0, 0, false, ErrBadCommand
	}
	return binary.BigEndian.Uint64(b[0:8]),
		binary.BigEndian.Uint64(b[8:16]),
		binary.BigEndian.Uint64(b[16:24]),
		b[24] == 1,
		nil
}

// [id:8][price:8][qty:8]
func encodeReplaceCommand(id, price, quantity uint64) []byte {
	buf := make([]byte, 24)
	binary.BigEndian.PutUint64(buf[0:8], id)
	binary.BigEndian.PutUint64(buf[8:16], price)
	binary.BigEndian.PutUint64(buf[16:24], quantity)
	return buf
}

func decodeReplaceCommand(b []byte) (id, price, quantity uint64, err error) {
	if len(b) != 24 {
		return 0, 0, 0, ErrBadCommand
	}
	return binary.BigEndian.Uint64(b[0:8]),
		binary.BigEndian.Uint64(b[8:16]),
		binary.BigEndian.Uint64(b[16:24]),
		nil
}

// [symbolID:4][nameLen:2][name]
func encodeSymbolCommand(id uint32, name string) []byte {
	buf := make([]byte, 6+len(name))
	binary.BigEndian.PutUint32(buf[0:4], id)
	binary.BigEndian.PutUint16(buf[4:6], uint16(len(name)))
	copy(buf[6:], name)
	return buf
}

func decodeSymbolCommand(b []byte) (uint32, string, error) {
	if len(b) < 6 {
		return 0, "", ErrBadCommand
	}
	n := int(binary.BigEndian.Uint16(b[4:6]))
	if len(b) != 6+n {
		return 0, "", ErrBadCommand
	}
	return binary.BigEndian.Uint32(b[0:4]), string(b[6:]), nil
}
