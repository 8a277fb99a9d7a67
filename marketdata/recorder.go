package marketdata

import (
	"bufio"
	"encoding/binary"
	"os"
	"path/filepath"
	"sync"
	"time"

	"helix/domain/matching"
)

// Recorder journals every engine event to a file. It implements
// matching.Handler and is wired into the fan-out next to the live
// consumers, so the journal and the live feed see the same order.
type Recorder struct {
	mu   sync.Mutex
	file *os.File
	buf  *bufio.Writer
	err  error
}

func NewRecorder(path string) (*Recorder, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}

	r := &Recorder{file: f, buf: bufio.NewWriter(f)}
	r.write(TagStart, tsPayload())
	return r, nil
}

func tsPayload() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(time.Now().UnixNano()))
	return buf
}

func (r *Recorder) write(tag byte, payload []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	r.err = writeFrame(r.buf, tag, payload)
}

// Err reports the first write failure. Once set the recorder drops all
// subsequent events.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *Recorder) Flush() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return r.err
	}
	return r.buf.Flush()
}

func (r *Recorder) Close() error {
	r.write(TagEnd, tsPayload())

	r.mu.Lock()
	defer r.mu.Unlock()

	ferr := r.buf.Flush()
	cerr := r.file.Close()
	if r.err != nil {
		return r.err
	}
	if ferr != nil {
		return ferr
	}
	return cerr
}

func (r *Recorder) OnAddSymbol(s matching.Symbol) {
	r.write(TagSymbol, encodeSymbol(actionAdd, s))
}

func (r *Recorder) OnDeleteSymbol(s matching.Symbol) {
	r.write(TagSymbol, encodeSymbol(actionDelete, s))
}

func (r *Recorder) OnAddOrderBook(s matching.Symbol) {
	r.write(TagSymbol, encodeSymbol(actionAddBook, s))
}

func (r *Recorder) OnDeleteOrderBook(s matching.Symbol) {
	r.write(TagSymbol, encodeSymbol(actionDeleteBook, s))
}

func (r *Recorder) OnLevelUpdate(s matching.Symbol, u matching.LevelUpdate) {
	r.write(TagLevel, encodeLevel(s.ID, u))
}

func (r *Recorder) OnAddOrder(s matching.Symbol, o *matching.Order) {
	r.write(TagOrder, encodeOrder(actionAdd, s.ID, o))
}

func (r *Recorder) OnUpdateOrder(s matching.Symbol, o *matching.Order) {
	r.write(TagOrder, encodeOrder(actionUpdate, s.ID, o))
}

func (r *Recorder) OnDeleteOrder(s matching.Symbol, o *matching.Order) {
	r.write(TagOrder, encodeOrder(actionDelete, s.ID, o))
}

func (r *Recorder) OnExecution(s matching.Symbol, orderID, price, quantity, timestamp uint64) {
	r.write(TagExecution, encodeExecution(s.ID, orderID, price, quantity, timestamp))
}

func (r *Recorder) OnTrade(s matching.Symbol, price, quantity, timestamp uint64) {
	r.write(TagTrade, encodeTrade(s.ID, price, quantity, timestamp))
}

func (r *Recorder) OnError(message string) {
	r.write(TagError, []byte(message))
}
