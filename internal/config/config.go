// Package config loads runtime configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the engine.
type Config struct {
	Port     int
	LogLevel string

	WALDir          string
	WALSegmentSize  int64
	OutboxDir       string
	SnapshotDir     string
	JournalPath     string
	RetireRingSize  uint64
	SnapshotEvery   time.Duration
	ReclaimEvery    time.Duration
	BroadcastEvery  time.Duration
	ShutdownTimeout time.Duration

	KafkaBrokers    []string
	EventTopic      string
	SignalTopic     string
	SignalThreshold uint64
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	segmentSize, err := getInt64("WAL_SEGMENT_SIZE", 64<<20)
	if err != nil {
		return nil, fmt.Errorf("invalid WAL_SEGMENT_SIZE: %w", err)
	}
	if segmentSize <= 0 {
		return nil, fmt.Errorf("invalid WAL_SEGMENT_SIZE: must be positive")
	}

	ringSize, err := getInt64("RETIRE_RING_SIZE", 1<<16)
	if err != nil {
		return nil, fmt.Errorf("invalid RETIRE_RING_SIZE: %w", err)
	}
	if ringSize <= 0 || ringSize&(ringSize-1) != 0 {
		return nil, fmt.Errorf("invalid RETIRE_RING_SIZE: must be a positive power of two")
	}

	snapshotEvery, err := getDuration("SNAPSHOT_INTERVAL", 1*time.Minute)
	if err != nil {
		return nil, fmt.Errorf("invalid SNAPSHOT_INTERVAL: %w", err)
	}

	reclaimEvery, err := getDuration("RECLAIM_INTERVAL", 1*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid RECLAIM_INTERVAL: %w", err)
	}

	broadcastEvery, err := getDuration("BROADCAST_INTERVAL", 250*time.Millisecond)
	if err != nil {
		return nil, fmt.Errorf("invalid BROADCAST_INTERVAL: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	threshold, err := getInt64("SIGNAL_THRESHOLD", 100000)
	if err != nil {
		return nil, fmt.Errorf("invalid SIGNAL_THRESHOLD: %w", err)
	}
	if threshold <= 0 {
		return nil, fmt.Errorf("invalid SIGNAL_THRESHOLD: must be positive")
	}

	return &Config{
		Port:     port,
		LogLevel: logLevel,

		WALDir:          getStr("WAL_DIR", "data/wal"),
		WALSegmentSize:  segmentSize,
		OutboxDir:       getStr("OUTBOX_DIR", "data/outbox"),
		SnapshotDir:     getStr("SNAPSHOT_DIR", "data/snapshots"),
		JournalPath:     getStr("JOURNAL_PATH", "data/events.journal"),
		RetireRingSize:  uint64(ringSize),
		SnapshotEvery:   snapshotEvery,
		ReclaimEvery:    reclaimEvery,
		BroadcastEvery:  broadcastEvery,
		ShutdownTimeout: shutdownTimeout,

		KafkaBrokers:    getList("KAFKA_BROKERS", []string{"localhost:9092"}),
		EventTopic:      getStr("EVENT_TOPIC", "market.events"),
		SignalTopic:     getStr("SIGNAL_TOPIC", "market.signals"),
		SignalThreshold: uint64(threshold),
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getInt64(key string, defaultVal int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseInt(v, 10, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func getList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	parts := strings.Split(v, ",")
	out := parts[:0]
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
