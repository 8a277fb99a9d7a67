// Package exit is the durable event outbox. Market events are written
// here in the same transaction path that produced them and drained to
// the broker by the broadcaster job, so a crash between "event emitted"
// and "event published" never loses an event.
package exit

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"
)

// -------------------- State --------------------

type EventState uint8

const (
	StateNew EventState = iota
	StateSent
	StateAcked
	StateFailed
)

func (s EventState) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// -------------------- Record --------------------

type EventRecord struct {
	State       EventState
	Retries     uint32
	LastAttempt int64
	Payload     []byte
}

// binary encoding: [state:1][retries:4][lastAttempt:8][payload]
func encodeRecord(r EventRecord) []byte {
	buf := make([]byte, 1+4+8+len(r.Payload))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[13:], r.Payload)
	return buf
}

func decodeRecord(b []byte) (EventRecord, error) {
	if len(b) < 13 {
		return EventRecord{}, errors.New("short outbox record")
	}
	rec := EventRecord{
		State:       EventState(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
	}
	if len(b) > 13 {
		rec.Payload = append([]byte(nil), b[13:]...)
	}
	return rec, nil
}

// -------------------- Outbox --------------------

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{
		DisableWAL: false,
	})
	if err != nil {
		return nil, err
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// -------------------- API --------------------

// Put stores a freshly emitted event keyed by its sequence number.
func (o *Outbox) Put(seq uint64, payload []byte) error {
	rec := EventRecord{
		State:   StateNew,
		Payload: payload,
	}
	return o.db.Set(keyFor(seq), encodeRecord(rec), pebble.Sync)
}

// UpdateState transitions an event after a send, ack or failure,
// keeping its payload.
func (o *Outbox) UpdateState(seq uint64, state EventState, retries uint32) error {
	cur, err := o.Get(seq)
	if err != nil {
		return err
	}
	cur.State = state
	cur.Retries = retries
	cur.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encodeRecord(cur), pebble.Sync)
}

// Delete removes acked events during cleanup.
func (o *Outbox) Delete(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

func (o *Outbox) Get(seq uint64) (EventRecord, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if err != nil {
		return EventRecord{}, err
	}
	defer closer.Close()

	return decodeRecord(val)
}

// -------------------- Scan --------------------

// ScanByState iterates events in the given state in sequence order.
// The broadcaster drains StateNew through this.
func (o *Outbox) ScanByState(
	state EventState,
	fn func(seq uint64, rec EventRecord) error,
) error {
	iter, err := o.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte("event/"),
		UpperBound: []byte("event/~"),
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeRecord(iter.Value())
		if err != nil {
			return err
		}
		if rec.State != state {
			continue
		}

		seq, err := parseKey(iter.Key())
		if err != nil {
			return err
		}

		if err := fn(seq, rec); err != nil {
			return err
		}
	}
	return iter.Error()
}

// -------------------- Helpers --------------------

func keyFor(seq uint64) []byte {
	return []byte(fmt.Sprintf("event/%020d", seq))
}

func parseKey(b []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(bytes.TrimPrefix(b, []byte("event/"))), "%d", &seq)
	return seq, err
}
