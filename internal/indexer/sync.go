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

// sync applies a reserve update: spot prices, token liquidity deltas,
// the derived ETH/USD reserves and the factory liquidity totals. The
// derived ETH prices of both tokens are refreshed first so the tracked
// figures use current values.
func (h *Handlers) sync(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec syncEvent) error {
	pairID := ev.FromAddress.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", pairID).Msg("handle Sync")

	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("sync for unknown pair %s at block %d", pairID, bc.Number)
	}
	token0, token1, err := h.pairTokens(ctx, s, pair)
	if err != nil {
		return err
	}

	reserve0 := felt.ToDecimal(rec.Reserve0, int32(models.Int64(token0, "decimals")))
	reserve1 := felt.ToDecimal(rec.Reserve1, int32(models.Int64(token1, "decimals")))

	oldPair, err := s.FindOneAndUpdate(ctx, models.CollPairs,
		bson.M{"id": pairID},
		bson.M{"$set": bson.M{
			"reserve0":     models.D(reserve0),
			"reserve1":     models.D(reserve1),
			"token0_price": models.D(felt.Ratio(reserve0, reserve1)),
			"token1_price": models.D(felt.Ratio(reserve1, reserve0)),
		}})
	if err != nil {
		return err
	}

	// Each token's global liquidity moves by the delta of this pair's
	// own reserve.
	liquidity0 := models.Dec(token0, "total_liquidity").Sub(models.Dec(oldPair, "reserve0")).Add(reserve0)
	liquidity1 := models.Dec(token1, "total_liquidity").Sub(models.Dec(oldPair, "reserve1")).Add(reserve1)
	_, err = s.FindOneAndUpdate(ctx, models.CollTokens,
		bson.M{"id": models.Str(token0, "id")},
		bson.M{"$set": bson.M{"total_liquidity": models.D(liquidity0)}})
	if err != nil {
		return err
	}
	_, err = s.FindOneAndUpdate(ctx, models.CollTokens,
		bson.M{"id": models.Str(token1, "id")},
		bson.M{"$set": bson.M{"total_liquidity": models.D(liquidity1)}})
	if err != nil {
		return err
	}

	derived0, err := h.oracle.FindEthPerToken(ctx, s, models.Str(token0, "id"))
	if err != nil {
		return err
	}
	derived1, err := h.oracle.FindEthPerToken(ctx, s, models.Str(token1, "id"))
	if err != nil {
		return err
	}
	token0["derived_eth"] = models.D(derived0)
	token1["derived_eth"] = models.D(derived1)

	trackedLiquidityUSD := h.oracle.TrackedLiquidityUSD(token0, reserve0, token1, reserve1, bc.EthPrice)
	trackedLiquidityETH := decimal.Zero
	if !bc.EthPrice.IsZero() {
		trackedLiquidityETH = trackedLiquidityUSD.Div(bc.EthPrice)
	}

	reserveETH := reserve0.Mul(derived0).Add(reserve1.Mul(derived1))
	reserveUSD := reserveETH.Mul(bc.EthPrice)

	_, err = s.FindOneAndUpdate(ctx, models.CollPairs,
		bson.M{"id": pairID},
		bson.M{"$set": bson.M{
			"tracked_reserve_eth": models.D(trackedLiquidityETH),
			"reserve_eth":         models.D(reserveETH),
			"reserve_usd":         models.D(reserveUSD),
		}})
	if err != nil {
		return err
	}

	factory, err := s.FindOne(ctx, models.CollFactories, bson.M{"id": h.factory})
	if err != nil {
		return err
	}
	if factory == nil {
		return fmt.Errorf("sync for pair %s before the factory exists", pairID)
	}
	totalLiquidityETH := models.Dec(factory, "total_liquidity_eth").
		Sub(models.Dec(oldPair, "tracked_reserve_eth")).
		Add(trackedLiquidityETH)

	_, err = s.FindOneAndUpdate(ctx, models.CollFactories,
		bson.M{"id": h.factory},
		bson.M{"$set": bson.M{
			"total_liquidity_eth": models.D(totalLiquidityETH),
			"total_liquidity_usd": models.D(totalLiquidityETH.Mul(bc.EthPrice)),
		}})
	return err
}
