// Package broadcaster drains the durable event outbox to Kafka. Events
// move NEW -> SENT -> ACKED; anything not acked is retried on the next
// tick, so at-least-once delivery survives restarts.
package broadcaster

import (
	"context"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	exitwal "helix/infra/wal/exit"
)

type Broadcaster struct {
	outbox   *exitwal.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *zap.Logger
}

func New(
	outbox *exitwal.Outbox,
	brokers []string,
	topic string,
	interval time.Duration,
	log *zap.Logger,
) (*Broadcaster, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}

	if interval <= 0 {
		interval = 250 * time.Millisecond
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Broadcaster{
		outbox:   outbox,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}, nil
}

func (b *Broadcaster) Start(ctx context.Context) {
	b.log.Info("broadcaster started",
		zap.String("topic", b.topic),
		zap.Duration("interval", b.interval))

	go func() {
		ticker := time.NewTicker(b.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				b.drainOnce()
			}
		}
	}()
}

// drainOnce publishes every NEW event in sequence order. A send failure
// stops the pass; the event stays SENT and is retried next tick.
func (b *Broadcaster) drainOnce() {
	err := b.outbox.ScanByState(exitwal.StateNew, func(seq uint64, rec exitwal.EventRecord) error {
		if err := b.outbox.UpdateState(seq, exitwal.StateSent, rec.Retries+1); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.StringEncoder(strconv.FormatUint(seq, 10)),
			Value: sarama.ByteEncoder(rec.Payload),
		}

		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("publish failed, will retry",
				zap.Uint64("seq", seq),
				zap.Uint32("retries", rec.Retries+1),
				zap.Error(err))
			return nil
		}

		if err := b.outbox.UpdateState(seq, exitwal.StateAcked, rec.Retries+1); err != nil {
			return err
		}
		return b.outbox.Delete(seq)
	})
	if err != nil {
		b.log.Error("outbox drain failed", zap.Error(err))
	}

	// Events stuck in SENT were interrupted mid-publish; requeue them.
	_ = b.outbox.ScanByState(exitwal.StateSent, func(seq uint64, rec exitwal.EventRecord) error {
		if time.Since(time.Unix(0, rec.LastAttempt)) < b.interval {
			return nil
		}
		return b.outbox.UpdateState(seq, exitwal.StateNew, rec.Retries)
	})
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}
