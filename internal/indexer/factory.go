package indexer

import (
	"context"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

// pairCreated registers a pair announced by the factory: the factory
// row is created or bumped, both tokens are ensured, and the pair is
// inserted with zeroed accumulators. The returned address tells the
// runtime to start following the pair's own events.
func (h *Handlers) pairCreated(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec pairCreatedEvent) (felt.Felt, error) {
	factoryID := ev.FromAddress.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", rec.Pair.Hex()).Int64("total_pairs", rec.TotalPairs).Msg("handle PairCreated")

	factory, err := s.FindOneAndUpdate(ctx, models.CollFactories,
		bson.M{"id": factoryID},
		bson.M{"$inc": bson.M{"pair_count": 1}})
	if err != nil {
		return felt.Felt{}, err
	}
	if factory == nil {
		err := s.InsertOne(ctx, models.CollFactories, bson.M{
			"id":                   factoryID,
			"pair_count":           int64(1),
			"total_volume_usd":     models.D(decimal.Zero),
			"total_volume_eth":     models.D(decimal.Zero),
			"untracked_volume_usd": models.D(decimal.Zero),
			"total_liquidity_usd":  models.D(decimal.Zero),
			"total_liquidity_eth":  models.D(decimal.Zero),
			"transaction_count":    int64(0),
		})
		if err != nil {
			return felt.Felt{}, err
		}
	}

	token0, err := h.createToken(ctx, s, bc, rec.Token0)
	if err != nil {
		return felt.Felt{}, err
	}
	token1, err := h.createToken(ctx, s, bc, rec.Token1)
	if err != nil {
		return felt.Felt{}, err
	}

	err = s.InsertOne(ctx, models.CollPairs, bson.M{
		"id":                       rec.Pair.Hex(),
		"token0_id":                models.Str(token0, "id"),
		"token1_id":                models.Str(token1, "id"),
		"reserve0":                 models.D(decimal.Zero),
		"reserve1":                 models.D(decimal.Zero),
		"total_supply":             models.D(decimal.Zero),
		"reserve_eth":              models.D(decimal.Zero),
		"reserve_usd":              models.D(decimal.Zero),
		"tracked_reserve_eth":      models.D(decimal.Zero),
		"token0_price":             models.D(decimal.Zero),
		"token1_price":             models.D(decimal.Zero),
		"volume_token0":            models.D(decimal.Zero),
		"volume_token1":            models.D(decimal.Zero),
		"volume_usd":               models.D(decimal.Zero),
		"untracked_volume_usd":     models.D(decimal.Zero),
		"transaction_count":        int64(0),
		"created_at_timestamp":     bc.Timestamp,
		"created_at_block":         bc.Number,
		"liquidity_provider_count": int64(0),
	})
	if err != nil {
		return felt.Felt{}, err
	}
	return rec.Pair, nil
}
