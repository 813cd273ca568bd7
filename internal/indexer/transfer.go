package indexer

import (
	"context"
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

// LP tokens always carry 18 decimals.
const lpTokenDecimals = 18

// Every pair emits one sentinel transfer when locking its minimum
// liquidity: 1000 raw units from the zero address to address one.
var (
	lockValue = uint256.NewInt(1000)
	addrOne   = felt.FromUint64(1)
)

// transfer reconciles a raw LP-token transfer into logical mint and
// burn rows and keeps the per-user liquidity positions current. The
// raw legs arrive before the pair's own Mint/Burn event, so rows are
// opened here and completed there.
func (h *Handlers) transfer(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event, rec transferEvent) error {
	pairAddr := ev.FromAddress
	pairID := pairAddr.Hex()
	txHash := ev.TransactionHash.Hex()
	h.log.Info().Int64("block", bc.Number).Str("pair", pairID).Str("tx", txHash).Msg("handle Transfer")

	if rec.From.IsZero() && rec.To == addrOne && rec.Value.Eq(lockValue) {
		return nil
	}

	value := felt.ToDecimal(rec.Value, lpTokenDecimals)

	if err := h.createTransaction(ctx, s, bc, txHash); err != nil {
		return err
	}

	mints, err := s.Find(ctx, models.CollMints,
		bson.M{"pair_id": pairID, "transaction_hash": txHash},
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return err
	}

	switch {
	case rec.From.IsZero():
		// New LP tokens. Open a mint row unless the last one is still
		// waiting for its Mint event.
		_, err := s.FindOneAndUpdate(ctx, models.CollPairs,
			bson.M{"id": pairID},
			bson.M{"$inc": bson.M{"total_supply": models.D(value)}})
		if err != nil {
			return err
		}
		if len(mints) == 0 || isCompleteMint(mints[len(mints)-1]) {
			err := s.InsertOne(ctx, models.CollMints, bson.M{
				"transaction_hash": txHash,
				"index":            int64(len(mints)),
				"pair_id":          pairID,
				"to":               rec.To.Hex(),
				"sender":           nil,
				"liquidity":        models.D(value),
				"timestamp":        bc.Timestamp,
			})
			if err != nil {
				return err
			}
		}
	case h.zapIn[rec.From]:
		// An aggregator forwarded the freshly minted tokens; point the
		// open mint at the real recipient.
		if len(mints) == 0 {
			return fmt.Errorf("zap-in transfer without a mint in tx %s at block %d", txHash, bc.Number)
		}
		_, err := s.FindOneAndUpdate(ctx, models.CollMints,
			bson.M{"pair_id": pairID, "transaction_hash": txHash, "index": int64(len(mints) - 1)},
			bson.M{"$set": bson.M{"to": rec.To.Hex(), "zap_in": true}})
		if err != nil {
			return err
		}
	}

	if rec.To == pairAddr {
		// Tokens parked on the pair itself announce a burn.
		burns, err := s.Find(ctx, models.CollBurns,
			bson.M{"pair_id": pairID, "transaction_hash": txHash},
			store.FindQuery{OrderBy: "index"})
		if err != nil {
			return err
		}
		err = s.InsertOne(ctx, models.CollBurns, bson.M{
			"transaction_hash": txHash,
			"index":            int64(len(burns)),
			"pair_id":          pairID,
			"sender":           rec.From.Hex(),
			"to":               rec.To.Hex(),
			"liquidity":        models.D(value),
			"timestamp":        bc.Timestamp,
			"needs_complete":   true,
		})
		if err != nil {
			return err
		}
	}

	if rec.To.IsZero() && rec.From == pairAddr {
		if err := h.finishBurn(ctx, s, bc, pairID, txHash, rec, value, mints); err != nil {
			return err
		}
	}

	for _, endpoint := range []felt.Felt{rec.From, rec.To} {
		if endpoint.IsZero() || endpoint == pairAddr {
			continue
		}
		raw, err := h.chain.BalanceOf(ctx, pairAddr, endpoint, bc.Hash)
		if err != nil {
			return fmt.Errorf("balance of %s in %s: %w", endpoint.Hex(), pairID, err)
		}
		balance := felt.ToDecimal(raw, lpTokenDecimals)
		if err := h.replaceLiquidityPosition(ctx, s, pairID, endpoint.Hex(), balance); err != nil {
			return err
		}
		if err := h.createLiquiditySnapshot(ctx, s, bc, pairID, endpoint.Hex()); err != nil {
			return err
		}
	}
	return nil
}

// finishBurn applies the canonical burn leg, where the pair sends its
// own tokens to the zero address: supply decreases, the pending burn
// row is completed (or created when the transfer skipped the pair),
// and a protocol-fee mint left open in the same transaction is folded
// into the burn.
func (h *Handlers) finishBurn(ctx context.Context, s store.Storage, bc *BlockContext, pairID, txHash string, rec transferEvent, value decimal.Decimal, mints []bson.M) error {
	_, err := s.FindOneAndUpdate(ctx, models.CollPairs,
		bson.M{"id": pairID},
		bson.M{"$inc": bson.M{"total_supply": models.D(value.Neg())}})
	if err != nil {
		return err
	}

	burns, err := s.Find(ctx, models.CollBurns,
		bson.M{"pair_id": pairID, "transaction_hash": txHash},
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return err
	}

	var burn bson.M
	if len(burns) > 0 {
		last := burns[len(burns)-1]
		if models.Bool(last, "needs_complete") {
			burn = last
			delete(burn, "_id")
			delete(burn, "_chain")
		}
	}
	if burn == nil {
		burn = bson.M{
			"transaction_hash": txHash,
			"index":            int64(len(burns)),
			"pair_id":          pairID,
			"sender":           rec.From.Hex(),
			"to":               rec.To.Hex(),
			"liquidity":        models.D(value),
			"timestamp":        bc.Timestamp,
			"needs_complete":   false,
		}
	}

	// An open mint in the same transaction is the protocol-fee mint
	// that belongs to this burn.
	if len(mints) > 0 && !isCompleteMint(mints[len(mints)-1]) {
		mint := mints[len(mints)-1]
		burn["fee_to"] = mint["to"]
		burn["fee_liquidity"] = mint["liquidity"]
		err := s.DeleteOne(ctx, models.CollMints, bson.M{
			"transaction_hash": models.Str(mint, "transaction_hash"),
			"index":            models.Int64(mint, "index"),
		})
		if err != nil {
			return err
		}
	}

	if models.Bool(burn, "needs_complete") {
		_, err := s.FindOneAndReplace(ctx, models.CollBurns,
			bson.M{"transaction_hash": txHash, "index": models.Int64(burn, "index")},
			burn, false)
		return err
	}
	return s.InsertOne(ctx, models.CollBurns, burn)
}

// isCompleteMint reports whether the Mint event already filled in the
// row's sender.
func isCompleteMint(mint bson.M) bool {
	return models.StrPtr(mint, "sender") != nil
}
