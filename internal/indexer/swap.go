package indexer

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

var two = decimal.NewFromInt(2)

// swap records a trade: the tracked and untracked USD figures, the
// volume accumulators on both tokens, the pair and the factory, the
// swap row itself, and the roll-up windows.
func (h *Handlers) swap(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec swapEvent) error {
	pairID := ev.FromAddress.Hex()
	txHash := ev.TransactionHash.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", pairID).Str("tx", txHash).Msg("handle Swap")

	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("swap for unknown pair %s at block %d", pairID, bc.Number)
	}
	token0, token1, err := h.pairTokens(ctx, s, pair)
	if err != nil {
		return err
	}

	dec0 := int32(models.Int64(token0, "decimals"))
	dec1 := int32(models.Int64(token1, "decimals"))
	amount0In := felt.ToDecimal(rec.Amount0In, dec0)
	amount1In := felt.ToDecimal(rec.Amount1In, dec1)
	amount0Out := felt.ToDecimal(rec.Amount0Out, dec0)
	amount1Out := felt.ToDecimal(rec.Amount1Out, dec1)
	amount0Total := amount0In.Add(amount0Out)
	amount1Total := amount1In.Add(amount1Out)

	// Untracked figure: both legs at their derived prices, averaged.
	derivedETH := models.Dec(token1, "derived_eth").Mul(amount1Total).
		Add(models.Dec(token0, "derived_eth").Mul(amount0Total)).
		Div(two)
	derivedUSD := derivedETH.Mul(bc.EthPrice)

	trackedUSD := h.oracle.TrackedVolumeUSD(token0, amount0Total, token1, amount1Total, bc.EthPrice)
	trackedETH := decimal.Zero
	if !bc.EthPrice.IsZero() {
		trackedETH = trackedUSD.Div(bc.EthPrice)
	}

	if err := h.bumpUser(ctx, s, rec.To.Hex(), "swap_count"); err != nil {
		return err
	}

	_, err = s.FindOneAndUpdate(ctx, models.CollTokens,
		bson.M{"id": models.Str(token0, "id")},
		bson.M{"$inc": bson.M{
			"trade_volume":         models.D(amount0Total),
			"trade_volume_usd":     models.D(trackedUSD),
			"untracked_volume_usd": models.D(derivedUSD),
			"transaction_count":    1,
		}})
	if err != nil {
		return err
	}
	_, err = s.FindOneAndUpdate(ctx, models.CollTokens,
		bson.M{"id": models.Str(token1, "id")},
		bson.M{"$inc": bson.M{
			"trade_volume":         models.D(amount1Total),
			"trade_volume_usd":     models.D(trackedUSD),
			"untracked_volume_usd": models.D(derivedUSD),
			"transaction_count":    1,
		}})
	if err != nil {
		return err
	}

	_, err = s.FindOneAndUpdate(ctx, models.CollPairs,
		bson.M{"id": pairID},
		bson.M{"$inc": bson.M{
			"volume_usd":           models.D(trackedUSD),
			"volume_token0":        models.D(amount0Total),
			"volume_token1":        models.D(amount1Total),
			"untracked_volume_usd": models.D(derivedUSD),
			"transaction_count":    1,
		}})
	if err != nil {
		return err
	}

	_, err = s.FindOneAndUpdate(ctx, models.CollFactories,
		bson.M{"id": h.factory},
		bson.M{"$inc": bson.M{
			"total_volume_usd":     models.D(trackedUSD),
			"total_volume_eth":     models.D(trackedETH),
			"untracked_volume_usd": models.D(derivedUSD),
			"transaction_count":    1,
		}})
	if err != nil {
		return err
	}

	if err := h.createTransaction(ctx, s, bc, txHash); err != nil {
		return err
	}

	amountUSD := trackedUSD
	if derivedUSD.GreaterThan(amountUSD) {
		amountUSD = derivedUSD
	}
	err = s.InsertOne(ctx, models.CollSwaps, bson.M{
		"transaction_hash": txHash,
		"log_index":        ev.LogIndex,
		"pair_id":          pairID,
		"timestamp":        bc.Timestamp,
		"sender":           rec.Sender.Hex(),
		"from":             rec.Sender.Hex(),
		"to":               rec.To.Hex(),
		"amount0_in":       models.D(amount0In),
		"amount1_in":       models.D(amount1In),
		"amount0_out":      models.D(amount0Out),
		"amount1_out":      models.D(amount1Out),
		"amount_usd":       models.D(amountUSD),
	})
	if err != nil {
		return err
	}

	if err := h.snapshotExchangeDay(ctx, s, bc); err != nil {
		return err
	}
	err = h.updateExchangeDay(ctx, s, bc, bson.M{"$inc": bson.M{
		"daily_volume_usd":       models.D(trackedUSD),
		"daily_volume_eth":       models.D(trackedETH),
		"daily_volume_untracked": models.D(derivedUSD),
	}})
	if err != nil {
		return err
	}

	if err := h.snapshotPairDay(ctx, s, bc, pairID); err != nil {
		return err
	}
	err = h.updatePairDay(ctx, s, bc, pairID, bson.M{"$inc": bson.M{
		"transaction_count":   1,
		"daily_volume_token0": models.D(amount0Total),
		"daily_volume_token1": models.D(amount1Total),
		"daily_volume_usd":    models.D(trackedUSD),
	}})
	if err != nil {
		return err
	}

	if err := h.snapshotPairHour(ctx, s, bc, pairID); err != nil {
		return err
	}
	err = h.updatePairHour(ctx, s, bc, pairID, bson.M{"$inc": bson.M{
		"transaction_count":    1,
		"hourly_volume_token0": models.D(amount0Total),
		"hourly_volume_token1": models.D(amount1Total),
		"hourly_volume_usd":    models.D(trackedUSD),
	}})
	if err != nil {
		return err
	}

	sides := []struct {
		tokenID string
		amount  decimal.Decimal
		derived decimal.Decimal
	}{
		{models.Str(token0, "id"), amount0Total, models.Dec(token0, "derived_eth")},
		{models.Str(token1, "id"), amount1Total, models.Dec(token1, "derived_eth")},
	}
	for _, side := range sides {
		amountETH := side.amount.Mul(side.derived)
		if err := h.snapshotTokenDay(ctx, s, bc, side.tokenID); err != nil {
			return err
		}
		err := h.updateTokenDay(ctx, s, bc, side.tokenID, bson.M{"$inc": bson.M{
			"transaction_count":  1,
			"daily_volume_token": models.D(side.amount),
			"daily_volume_eth":   models.D(amountETH),
			"daily_volume_usd":   models.D(amountETH.Mul(bc.EthPrice)),
		}})
		if err != nil {
			return err
		}
	}
	return nil
}
