package indexer

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

// Roll-up windows are written in two steps. snapshot* upserts the
// window row with the entity's current totals, carrying the
// window-local counters over from the previous version of the row;
// update* then accumulates those counters with $inc. Splitting the two
// keeps the snapshot idempotent within a window.

func dayWindow(ts time.Time) (int64, time.Time) {
	id := ts.Unix() / 86400
	return id, time.Unix(id*86400, 0).UTC()
}

func hourWindow(ts time.Time) (int64, time.Time) {
	id := ts.Unix() / 3600
	return id, time.Unix(id*3600, 0).UTC()
}

func (h *Handlers) snapshotExchangeDay(ctx context.Context, s store.Storage, bc *BlockContext) error {
	factory, err := s.FindOne(ctx, models.CollFactories, bson.M{"id": h.factory})
	if err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("day snapshot before the factory exists at block %d", bc.Number)
	}

	dayID, dayStart := dayWindow(bc.Timestamp)
	filter := bson.M{"address": h.factory, "day_id": dayID}
	prev, err := s.FindOne(ctx, models.CollExchangeDayData, filter)
	if err != nil {
		return err
	}

	_, err = s.FindOneAndReplace(ctx, models.CollExchangeDayData, filter, bson.M{
		"address":                h.factory,
		"day_id":                 dayID,
		"date":                   dayStart,
		"total_liquidity_usd":    factory["total_liquidity_usd"],
		"total_liquidity_eth":    factory["total_liquidity_eth"],
		"total_volume_usd":       factory["total_volume_usd"],
		"transaction_count":      models.Int64(factory, "transaction_count"),
		"daily_volume_usd":       models.D(models.Dec(prev, "daily_volume_usd")),
		"daily_volume_eth":       models.D(models.Dec(prev, "daily_volume_eth")),
		"daily_volume_untracked": models.D(models.Dec(prev, "daily_volume_untracked")),
	}, true)
	return err
}

func (h *Handlers) updateExchangeDay(ctx context.Context, s store.Storage, bc *BlockContext, update bson.M) error {
	dayID, _ := dayWindow(bc.Timestamp)
	_, err := s.FindOneAndUpdate(ctx, models.CollExchangeDayData,
		bson.M{"address": h.factory, "day_id": dayID}, update)
	return err
}

func (h *Handlers) snapshotPairDay(ctx context.Context, s store.Storage, bc *BlockContext, pairID string) error {
	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("day snapshot for unknown pair %s at block %d", pairID, bc.Number)
	}

	dayID, dayStart := dayWindow(bc.Timestamp)
	filter := bson.M{"pair_id": pairID, "day_id": dayID}
	prev, err := s.FindOne(ctx, models.CollPairDayData, filter)
	if err != nil {
		return err
	}

	_, err = s.FindOneAndReplace(ctx, models.CollPairDayData, filter, bson.M{
		"pair_id":             pairID,
		"day_id":              dayID,
		"date":                dayStart,
		"token0_id":           pair["token0_id"],
		"token1_id":           pair["token1_id"],
		"total_supply":        pair["total_supply"],
		"reserve0":            pair["reserve0"],
		"reserve1":            pair["reserve1"],
		"reserve_usd":         pair["reserve_usd"],
		"token0_price":        pair["token0_price"],
		"token1_price":        pair["token1_price"],
		"transaction_count":   models.Int64(prev, "transaction_count"),
		"daily_volume_token0": models.D(models.Dec(prev, "daily_volume_token0")),
		"daily_volume_token1": models.D(models.Dec(prev, "daily_volume_token1")),
		"daily_volume_usd":    models.D(models.Dec(prev, "daily_volume_usd")),
	}, true)
	return err
}

func (h *Handlers) updatePairDay(ctx context.Context, s store.Storage, bc *BlockContext, pairID string, update bson.M) error {
	dayID, _ := dayWindow(bc.Timestamp)
	_, err := s.FindOneAndUpdate(ctx, models.CollPairDayData,
		bson.M{"pair_id": pairID, "day_id": dayID}, update)
	return err
}

func (h *Handlers) snapshotPairHour(ctx context.Context, s store.Storage, bc *BlockContext, pairID string) error {
	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("hour snapshot for unknown pair %s at block %d", pairID, bc.Number)
	}

	hourID, hourStart := hourWindow(bc.Timestamp)
	filter := bson.M{"pair_id": pairID, "hour_id": hourID}
	prev, err := s.FindOne(ctx, models.CollPairHourData, filter)
	if err != nil {
		return err
	}

	_, err = s.FindOneAndReplace(ctx, models.CollPairHourData, filter, bson.M{
		"pair_id":              pairID,
		"hour_id":              hourID,
		"date":                 hourStart,
		"token0_id":            pair["token0_id"],
		"token1_id":            pair["token1_id"],
		"total_supply":         pair["total_supply"],
		"reserve0":             pair["reserve0"],
		"reserve1":             pair["reserve1"],
		"reserve_usd":          pair["reserve_usd"],
		"transaction_count":    models.Int64(prev, "transaction_count"),
		"hourly_volume_token0": models.D(models.Dec(prev, "hourly_volume_token0")),
		"hourly_volume_token1": models.D(models.Dec(prev, "hourly_volume_token1")),
		"hourly_volume_usd":    models.D(models.Dec(prev, "hourly_volume_usd")),
	}, true)
	return err
}

func (h *Handlers) updatePairHour(ctx context.Context, s store.Storage, bc *BlockContext, pairID string, update bson.M) error {
	hourID, _ := hourWindow(bc.Timestamp)
	_, err := s.FindOneAndUpdate(ctx, models.CollPairHourData,
		bson.M{"pair_id": pairID, "hour_id": hourID}, update)
	return err
}

func (h *Handlers) snapshotTokenDay(ctx context.Context, s store.Storage, bc *BlockContext, tokenID string) error {
	token, err := s.FindOne(ctx, models.CollTokens, bson.M{"id": tokenID})
	if err != nil {
		return err
	}
	if token == nil {
		return fmt.Errorf("day snapshot for unknown token %s at block %d", tokenID, bc.Number)
	}

	derived := models.Dec(token, "derived_eth")
	liquidityToken := models.Dec(token, "total_liquidity")
	liquidityETH := liquidityToken.Mul(derived)

	dayID, dayStart := dayWindow(bc.Timestamp)
	filter := bson.M{"token_id": tokenID, "day_id": dayID}
	prev, err := s.FindOne(ctx, models.CollTokenDayData, filter)
	if err != nil {
		return err
	}

	_, err = s.FindOneAndReplace(ctx, models.CollTokenDayData, filter, bson.M{
		"token_id":              tokenID,
		"day_id":                dayID,
		"date":                  dayStart,
		"price_usd":             models.D(derived.Mul(bc.EthPrice)),
		"total_liquidity_token": models.D(liquidityToken),
		"total_liquidity_eth":   models.D(liquidityETH),
		"total_liquidity_usd":   models.D(liquidityETH.Mul(bc.EthPrice)),
		"transaction_count":     models.Int64(prev, "transaction_count"),
		"daily_volume_token":    models.D(models.Dec(prev, "daily_volume_token")),
		"daily_volume_eth":      models.D(models.Dec(prev, "daily_volume_eth")),
		"daily_volume_usd":      models.D(models.Dec(prev, "daily_volume_usd")),
	}, true)
	return err
}

func (h *Handlers) updateTokenDay(ctx context.Context, s store.Storage, bc *BlockContext, tokenID string, update bson.M) error {
	dayID, _ := dayWindow(bc.Timestamp)
	_, err := s.FindOneAndUpdate(ctx, models.CollTokenDayData,
		bson.M{"token_id": tokenID, "day_id": dayID}, update)
	return err
}
