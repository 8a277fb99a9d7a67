// Package signal watches the trade stream and publishes alerts for
// trades whose notional value crosses a configured threshold.
package signal

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"helix/domain/matching"
)

// DefaultThreshold is the notional value (price * quantity) at which a
// trade is considered big enough to signal.
const DefaultThreshold uint64 = 100000

// Publisher is satisfied by the kafka producer.
type Publisher interface {
	Send(ctx context.Context, key, value []byte) error
}

type Signal struct {
	SymbolID  uint32 `json:"symbol_id"`
	Symbol    string `json:"symbol"`
	Price     uint64 `json:"price"`
	Quantity  uint64 `json:"quantity"`
	Notional  uint64 `json:"notional"`
	Timestamp uint64 `json:"timestamp"`
}

// Generator implements matching.Handler and publishes a Signal for
// every trade at or above the threshold. Publish failures are logged
// and the signal is dropped.
type Generator struct {
	matching.NopHandler

	threshold uint64
	publisher Publisher
	ctx       context.Context
	log       *zap.Logger
}

func NewGenerator(ctx context.Context, publisher Publisher, threshold uint64, log *zap.Logger) *Generator {
	if threshold == 0 {
		threshold = DefaultThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Generator{
		threshold: threshold,
		publisher: publisher,
		ctx:       ctx,
		log:       log,
	}
}

func (g *Generator) OnTrade(symbol matching.Symbol, price, quantity, timestamp uint64) {
	notional := price * quantity
	if notional < g.threshold {
		return
	}

	sig := Signal{
		SymbolID:  symbol.ID,
		Symbol:    symbol.Name,
		Price:     price,
		Quantity:  quantity,
		Notional:  notional,
		Timestamp: timestamp,
	}

	value, err := json.Marshal(sig)
	if err != nil {
		g.log.Error("marshal signal", zap.Error(err))
		return
	}

	key := []byte(fmt.Sprintf("%d", symbol.ID))
	if err := g.publisher.Send(g.ctx, key, value); err != nil {
		g.log.Error("publish signal",
			zap.Uint32("symbol", symbol.ID),
			zap.Uint64("notional", notional),
			zap.Error(err))
	}
}
