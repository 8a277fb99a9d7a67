package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"go.uber.org/zap"

	apihttp "helix/api/http"
	"helix/domain/matching"
	"helix/infra/kafka"
	"helix/infra/memory"
	"helix/infra/sequence"
	entrywal "helix/infra/wal/entry"
	exitwal "helix/infra/wal/exit"
	"helix/internal/config"
	"helix/jobs/broadcaster"
	"helix/marketdata"
	"helix/service"
	signalgen "helix/signal"
	"helix/snapshot"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---------------- Durable logs ----------------

	entryWAL, err := entrywal.Open(entrywal.Config{
		Dir:             cfg.WALDir,
		SegmentSize:     cfg.WALSegmentSize,
		SegmentDuration: time.Minute,
	})
	if err != nil {
		return fmt.Errorf("open command wal: %w", err)
	}
	defer entryWAL.Close()

	outbox, err := exitwal.Open(cfg.OutboxDir)
	if err != nil {
		return fmt.Errorf("open outbox: %w", err)
	}
	defer outbox.Close()

	// ---------------- Memory ----------------

	pool := memory.NewPool(func() *matching.Order { return &matching.Order{} })
	ring := memory.NewRetireRing(cfg.RetireRingSize)
	reader := snapshot.NewReader()
	seqGen := sequence.New(0)

	// ---------------- Event consumers ----------------

	sink := service.NewEventSink(seqGen, outbox, ring, log)

	recorder, err := marketdata.NewRecorder(cfg.JournalPath)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer recorder.Close()

	signalProducer := kafka.NewProducer(cfg.KafkaBrokers, cfg.SignalTopic)
	defer signalProducer.Close()
	signals := signalgen.NewGenerator(ctx, signalProducer, cfg.SignalThreshold, log)

	feed := apihttp.NewFeed(log)

	manager := matching.NewMarketManager(matching.NewFanOut(sink, recorder, signals, feed))

	// ---------------- Recovery ----------------

	sink.Mute()
	snapSeq, err := snapshot.Load(filepath.Join(cfg.SnapshotDir, "snapshot.bin"), manager, pool)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if snapSeq > 0 {
		seqGen.Reset(snapSeq)
		log.Info("snapshot restored", zap.Uint64("seq", snapSeq))
	}
	if err := service.ReplayFromWAL(cfg.WALDir, snapSeq, manager, pool, seqGen, log); err != nil {
		return fmt.Errorf("wal replay: %w", err)
	}
	sink.Unmute()

	// ---------------- Service and jobs ----------------

	svc := service.NewMarketService(manager, pool, ring, reader, seqGen, entryWAL, log)

	svc.StartSnapshotJob(ctx, cfg.SnapshotDir, cfg.SnapshotEvery)
	svc.StartReclaimJob(ctx, cfg.ReclaimEvery)

	bc, err := broadcaster.New(outbox, cfg.KafkaBrokers, cfg.EventTopic, cfg.BroadcastEvery, log)
	if err != nil {
		return fmt.Errorf("init broadcaster: %w", err)
	}
	defer bc.Close()
	bc.Start(ctx)

	// ---------------- HTTP ----------------

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: apihttp.NewRouter(apihttp.NewServer(svc, feed, log)),
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("engine listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}
	if err := entryWAL.Sync(); err != nil {
		log.Warn("wal sync", zap.Error(err))
	}
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, err
	}
	cfg.Level = lvl
	return cfg.Build()
}
