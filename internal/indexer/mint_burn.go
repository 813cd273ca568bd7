package indexer

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

// mint completes the open mint row with the event amounts and fans out
// to the per-entity counters and roll-up windows.
func (h *Handlers) mint(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec mintEvent) error {
	pairID := ev.FromAddress.Hex()
	txHash := ev.TransactionHash.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", pairID).Str("tx", txHash).Msg("handle Mint")

	tx, err := s.FindOne(ctx, models.CollTransactions, bson.M{"hash": txHash})
	if err != nil {
		return err
	}
	if tx == nil {
		return fmt.Errorf("mint without a transaction record in %s at block %d", txHash, bc.Number)
	}

	mints, err := s.Find(ctx, models.CollMints,
		bson.M{"pair_id": pairID, "transaction_hash": txHash},
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return err
	}
	if len(mints) == 0 {
		return fmt.Errorf("mint without a transfer-opened row in %s at block %d", txHash, bc.Number)
	}

	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("mint for unknown pair %s at block %d", pairID, bc.Number)
	}
	token0, token1, err := h.pairTokens(ctx, s, pair)
	if err != nil {
		return err
	}

	if err := h.updateTransactionCount(ctx, s, pairID, token0, token1); err != nil {
		return err
	}

	amount0 := felt.ToDecimal(rec.Amount0, int32(models.Int64(token0, "decimals")))
	amount1 := felt.ToDecimal(rec.Amount1, int32(models.Int64(token1, "decimals")))
	amountETH := models.Dec(token1, "derived_eth").Mul(amount1).
		Add(models.Dec(token0, "derived_eth").Mul(amount0))
	amountUSD := amountETH.Mul(bc.EthPrice)

	mint, err := s.FindOneAndUpdate(ctx, models.CollMints,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": int64(len(mints) - 1)},
		bson.M{"$set": bson.M{
			"sender":     rec.Sender.Hex(),
			"amount0":    models.D(amount0),
			"amount1":    models.D(amount1),
			"amount_usd": models.D(amountUSD),
		}})
	if err != nil {
		return err
	}

	to := models.Str(mint, "to")
	if err := h.bumpUser(ctx, s, to, "mint_count"); err != nil {
		return err
	}
	if err := h.createLiquiditySnapshot(ctx, s, bc, pairID, to); err != nil {
		return err
	}
	return h.liquidityRollups(ctx, s, bc, pair)
}

// burn completes the last burn row of the transaction. A Burn whose
// transaction was never recorded is skipped: the pair can emit the
// event without any LP-token transfer preceding it.
func (h *Handlers) burn(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec burnEvent) error {
	pairID := ev.FromAddress.Hex()
	txHash := ev.TransactionHash.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", pairID).Str("tx", txHash).Msg("handle Burn")

	tx, err := s.FindOne(ctx, models.CollTransactions, bson.M{"hash": txHash})
	if err != nil {
		return err
	}
	if tx == nil {
		h.log.Warn().Str("tx", txHash).Msg("burn without a transaction record, skipping")
		return nil
	}

	burns, err := s.Find(ctx, models.CollBurns,
		bson.M{"pair_id": pairID, "transaction_hash": txHash},
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return err
	}
	if len(burns) == 0 {
		return fmt.Errorf("burn without a transfer-opened row in %s at block %d", txHash, bc.Number)
	}

	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("burn for unknown pair %s at block %d", pairID, bc.Number)
	}
	token0, token1, err := h.pairTokens(ctx, s, pair)
	if err != nil {
		return err
	}

	if err := h.updateTransactionCount(ctx, s, pairID, token0, token1); err != nil {
		return err
	}

	amount0 := felt.ToDecimal(rec.Amount0, int32(models.Int64(token0, "decimals")))
	amount1 := felt.ToDecimal(rec.Amount1, int32(models.Int64(token1, "decimals")))
	amountETH := models.Dec(token1, "derived_eth").Mul(amount1).
		Add(models.Dec(token0, "derived_eth").Mul(amount0))
	amountUSD := amountETH.Mul(bc.EthPrice)

	burn, err := s.FindOneAndUpdate(ctx, models.CollBurns,
		bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": int64(len(burns) - 1)},
		bson.M{"$set": bson.M{
			"amount0":    models.D(amount0),
			"amount1":    models.D(amount1),
			"amount_usd": models.D(amountUSD),
		}})
	if err != nil {
		return err
	}

	sender := models.Str(burn, "sender")
	if err := h.bumpUser(ctx, s, sender, "burn_count"); err != nil {
		return err
	}
	if err := h.createLiquiditySnapshot(ctx, s, bc, pairID, sender); err != nil {
		return err
	}
	return h.liquidityRollups(ctx, s, bc, pair)
}

// liquidityRollups ticks the roll-up windows a mint or burn touches: a
// transaction count on the pair day and hour, the exchange day
// snapshot, and both token days.
func (h *Handlers) liquidityRollups(ctx context.Context, s store.Storage, bc *BlockContext, pair bson.M) error {
	pairID := models.Str(pair, "id")
	inc := bson.M{"$inc": bson.M{"transaction_count": 1}}

	if err := h.snapshotPairDay(ctx, s, bc, pairID); err != nil {
		return err
	}
	if err := h.updatePairDay(ctx, s, bc, pairID, inc); err != nil {
		return err
	}
	if err := h.snapshotPairHour(ctx, s, bc, pairID); err != nil {
		return err
	}
	if err := h.updatePairHour(ctx, s, bc, pairID, inc); err != nil {
		return err
	}
	if err := h.snapshotExchangeDay(ctx, s, bc); err != nil {
		return err
	}
	for _, tokenID := range []string{models.Str(pair, "token0_id"), models.Str(pair, "token1_id")} {
		if err := h.snapshotTokenDay(ctx, s, bc, tokenID); err != nil {
			return err
		}
		if err := h.updateTokenDay(ctx, s, bc, tokenID, inc); err != nil {
			return err
		}
	}
	return nil
}
