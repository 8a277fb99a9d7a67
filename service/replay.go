package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"helix/domain/matching"
	"helix/infra/memory"
	"helix/infra/sequence"
	entrywal "helix/infra/wal/entry"
)

// ReplayFromWAL rebuilds manager state from the command log. It must
// run before the service accepts traffic, with the event sink muted.
// Records with sequence <= after are already covered by the snapshot
// the caller restored and are skipped; truncation keeps the active
// segment, so covered records routinely survive in the log.
//
// Commands whose domain application fails are skipped: they failed the
// same way live, so skipping reproduces the live outcome. Undecodable
// payloads abort the replay; that is corruption, not history.
func ReplayFromWAL(
	walDir string,
	after uint64,
	manager *matching.MarketManager,
	pool *memory.Pool[matching.Order],
	seqGen *sequence.Sequencer,
	log *zap.Logger,
) error {
	if log == nil {
		log = zap.NewNop()
	}

	applied, skipped, covered := 0, 0, 0
	lastSeq, err := entrywal.Replay(walDir, func(rec *entrywal.Record) error {
		if rec.Seq <= after {
			covered++
			return nil
		}
		err := applyRecord(rec, manager, pool)
		switch {
		case err == nil:
			applied++
		case isDomainError(err):
			skipped++
		default:
			return fmt.Errorf("seq %d: %w", rec.Seq, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	// The sequencer may already sit past the log when every record is
	// covered by the snapshot. Never rewind it.
	if lastSeq > seqGen.Current() {
		seqGen.Reset(lastSeq)
	}
	log.Info("wal replay complete",
		zap.Uint64("last_seq", lastSeq),
		zap.Int("applied", applied),
		zap.Int("skipped", skipped),
		zap.Int("covered", covered))
	return nil
}

func applyRecord(
	rec *entrywal.Record,
	manager *matching.MarketManager,
	pool *memory.Pool[matching.Order],
) error {
	switch rec.Type {
	case entrywal.RecordAdd:
		req, err := decodeOrderCommand(rec.Data)
		if err != nil {
			return err
		}
		o := pool.Get()
		req.fill(o)
		if err := manager.AddOrder(o); err != nil {
			pool.Put(o)
			return err
		}
		return nil

	case entrywal.RecordCancel:
		id, err := decodeCancelCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.DeleteOrder(id)

	case entrywal.RecordReduce:
		id, qty, err := decodeReduceCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.ReduceOrder(id, qty)

	case entrywal.RecordModify:
		id, price, qty, mitigate, err := decodeModifyCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.ModifyOrder(id, price, qty, mitigate)

	case entrywal.RecordReplace:
		id, price, qty, err := decodeReplaceCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.ReplaceOrder(id, price, qty)

	case entrywal.RecordAddSymbol:
		id, name, err := decodeSymbolCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.AddSymbol(matching.NewSymbol(id, name))

	case entrywal.RecordDeleteSymbol:
		id, _, err := decodeSymbolCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.DeleteSymbol(id)

	case entrywal.RecordAddBook:
		id, _, err := decodeSymbolCommand(rec.Data)
		if err != nil {
			return err
		}
		sym, ok := manager.Symbol(id)
		if !ok {
			return matching.ErrSymbolNotFound
		}
		return manager.AddOrderBook(sym)

	case entrywal.RecordDeleteBook:
		id, _, err := decodeSymbolCommand(rec.Data)
		if err != nil {
			return err
		}
		return manager.DeleteOrderBook(id)

	default:
		return fmt.Errorf("%w: record type %d", ErrBadCommand, rec.Type)
	}
}

func isDomainError(err error) bool {
	for _, known := range []error{
		matching.ErrDuplicateOrder,
		matching.ErrOrderNotFound,
		matching.ErrInvalidQuantity,
		matching.ErrInvalidPrice,
		matching.ErrUnfillableOrder,
		matching.ErrDuplicateSymbol,
		matching.ErrSymbolNotFound,
		matching.ErrDuplicateBook,
		matching.ErrBookNotFound,
	} {
		if errors.Is(err, known) {
			return true
		}
	}
	return false
}
