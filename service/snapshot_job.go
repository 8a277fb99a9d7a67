package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"helix/snapshot"
)

// StartSnapshotJob periodically writes a full-state snapshot and drops
// WAL segments the snapshot covers. The write runs under the engine
// mutex so it captures a consistent sequence boundary.
func (s *MarketService) StartSnapshotJob(ctx context.Context, dir string, interval time.Duration) {
	w := &snapshot.Writer{Dir: dir}

	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.snapshotOnce(w)
			}
		}
	}()
}

func (s *MarketService) snapshotOnce(w *snapshot.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	seq := s.seq.Current()
	if err := w.Write(seq, s.manager); err != nil {
		s.log.Error("snapshot write", zap.Uint64("seq", seq), zap.Error(err))
		return
	}
	if err := s.wal.TruncateBefore(seq); err != nil {
		s.log.Warn("wal truncate", zap.Uint64("seq", seq), zap.Error(err))
		return
	}
	s.log.Info("snapshot written", zap.Uint64("seq", seq))
}

// StartReclaimJob periodically advances the reclamation epoch.
func (s *MarketService) StartReclaimJob(ctx context.Context, interval time.Duration) {
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.AdvanceEpoch()
			}
		}
	}()
}
