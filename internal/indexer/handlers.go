package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/holiman/uint256"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/pricing"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

// TokenReader is the read-only contract surface the handlers need:
// token metadata when a pair first appears and LP-token balances on
// transfer. Every call pins to the hash of the block being indexed.
type TokenReader interface {
	TokenName(ctx context.Context, token, blockHash felt.Felt) (string, error)
	TokenSymbol(ctx context.Context, token, blockHash felt.Felt) (string, error)
	TokenDecimals(ctx context.Context, token, blockHash felt.Felt) (int64, error)
	TokenTotalSupply(ctx context.Context, token, blockHash felt.Felt) (*uint256.Int, error)
	BalanceOf(ctx context.Context, token, owner, blockHash felt.Felt) (*uint256.Int, error)
}

// BlockContext carries the per-block values shared by every handler of
// the block. EthPrice is read once, before the first event.
type BlockContext struct {
	Number    int64
	Hash      felt.Felt
	Timestamp time.Time
	EthPrice  decimal.Decimal
}

// Handlers turns decoded events into entity writes. A single instance
// serves the whole run; per-block state travels in BlockContext.
type Handlers struct {
	chain   TokenReader
	oracle  *pricing.Oracle
	factory string
	zapIn   map[felt.Felt]bool
	log     zerolog.Logger
}

func NewHandlers(chain TokenReader, oracle *pricing.Oracle, profile *config.ChainProfile, log zerolog.Logger) *Handlers {
	zapIn := make(map[felt.Felt]bool, len(profile.ZapIn))
	for _, addr := range profile.ZapIn {
		zapIn[addr] = true
	}
	return &Handlers{
		chain:   chain,
		oracle:  oracle,
		factory: profile.Factory.Hex(),
		zapIn:   zapIn,
		log:     log,
	}
}

// Handle decodes and applies a single event. When the event announces
// a new pair its address is returned so the runtime can widen the
// subscription; otherwise the returned felt is zero. Events with an
// unknown key or a malformed payload are logged and skipped.
func (h *Handlers) Handle(ctx context.Context, s store.Storage, bc *BlockContext, ev *stream.Event) (felt.Felt, error) {
	if len(ev.Keys) == 0 {
		h.log.Warn().Int64("block", bc.Number).Str("from", ev.FromAddress.Hex()).Msg("event without keys")
		return felt.Felt{}, nil
	}
	switch ev.Keys[0] {
	case keyPairCreated:
		rec, err := decodePairCreated(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return h.pairCreated(ctx, s, bc, ev, rec)
	case keyTransfer:
		rec, err := decodeTransfer(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return felt.Felt{}, h.transfer(ctx, s, bc, ev, rec)
	case keySync:
		rec, err := decodeSync(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return felt.Felt{}, h.sync(ctx, s, bc, ev, rec)
	case keyMint:
		rec, err := decodeMint(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return felt.Felt{}, h.mint(ctx, s, bc, ev, rec)
	case keyBurn:
		rec, err := decodeBurn(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return felt.Felt{}, h.burn(ctx, s, bc, ev, rec)
	case keySwap:
		rec, err := decodeSwap(ev.Data)
		if err != nil {
			h.skip(bc, ev, err)
			return felt.Felt{}, nil
		}
		return felt.Felt{}, h.swap(ctx, s, bc, ev, rec)
	default:
		h.log.Warn().Int64("block", bc.Number).Str("key", ev.Keys[0].Hex()).Msg("unhandled event key")
		return felt.Felt{}, nil
	}
}

func (h *Handlers) skip(bc *BlockContext, ev *stream.Event, err error) {
	h.log.Warn().Err(err).
		Int64("block", bc.Number).
		Str("from", ev.FromAddress.Hex()).
		Str("tx", ev.TransactionHash.Hex()).
		Msg("skipping undecodable event")
}

// createToken returns the token document for address, creating it from
// on-chain metadata when first referenced. New tokens start with a
// derived ETH price of one until the oracle refines it.
func (h *Handlers) createToken(ctx context.Context, s store.Storage, bc *BlockContext, address felt.Felt) (bson.M, error) {
	id := address.Hex()
	token, err := s.FindOne(ctx, models.CollTokens, bson.M{"id": id})
	if err != nil || token != nil {
		return token, err
	}

	name, err := h.chain.TokenName(ctx, address, bc.Hash)
	if err != nil {
		return nil, fmt.Errorf("token %s name: %w", id, err)
	}
	symbol, err := h.chain.TokenSymbol(ctx, address, bc.Hash)
	if err != nil {
		return nil, fmt.Errorf("token %s symbol: %w", id, err)
	}
	decimals, err := h.chain.TokenDecimals(ctx, address, bc.Hash)
	if err != nil {
		return nil, fmt.Errorf("token %s decimals: %w", id, err)
	}
	supply, err := h.chain.TokenTotalSupply(ctx, address, bc.Hash)
	if err != nil {
		return nil, fmt.Errorf("token %s total supply: %w", id, err)
	}

	token = bson.M{
		"id":                   id,
		"name":                 name,
		"symbol":               symbol,
		"decimals":             decimals,
		"total_supply":         models.D(felt.ToDecimal(supply, int32(decimals))),
		"trade_volume":         models.D(decimal.Zero),
		"trade_volume_usd":     models.D(decimal.Zero),
		"untracked_volume_usd": models.D(decimal.Zero),
		"transaction_count":    int64(0),
		"total_liquidity":      models.D(decimal.Zero),
		"derived_eth":          models.D(decimal.NewFromInt(1)),
	}
	if err := s.InsertOne(ctx, models.CollTokens, token); err != nil {
		return nil, err
	}
	h.log.Info().Str("token", id).Str("symbol", symbol).Msg("new token")
	return token, nil
}

// createTransaction records the transaction row once; later calls for
// the same hash are no-ops.
func (h *Handlers) createTransaction(ctx context.Context, s store.Storage, bc *BlockContext, hash string) error {
	tx, err := s.FindOne(ctx, models.CollTransactions, bson.M{"hash": hash})
	if err != nil || tx != nil {
		return err
	}
	return s.InsertOne(ctx, models.CollTransactions, bson.M{
		"hash":            hash,
		"block_number":    bc.Number,
		"block_timestamp": bc.Timestamp,
	})
}

func (h *Handlers) findOrCreateUser(ctx context.Context, s store.Storage, id string) (bson.M, error) {
	user, err := s.FindOne(ctx, models.CollUsers, bson.M{"id": id})
	if err != nil || user != nil {
		return user, err
	}
	user = bson.M{
		"id":                id,
		"transaction_count": int64(0),
		"swap_count":        int64(0),
		"mint_count":        int64(0),
		"burn_count":        int64(0),
	}
	if err := s.InsertOne(ctx, models.CollUsers, user); err != nil {
		return nil, err
	}
	return user, nil
}

// bumpUser creates the user on first sight and increments the named
// counter together with the transaction count.
func (h *Handlers) bumpUser(ctx context.Context, s store.Storage, id, counter string) error {
	user, err := h.findOrCreateUser(ctx, s, id)
	if err != nil {
		return err
	}
	_, err = s.FindOneAndUpdate(ctx, models.CollUsers,
		bson.M{"id": models.Str(user, "id")},
		bson.M{"$inc": bson.M{"transaction_count": 1, counter: 1}})
	return err
}

// replaceLiquidityPosition overwrites the user's current LP-token
// balance in the pair.
func (h *Handlers) replaceLiquidityPosition(ctx context.Context, s store.Storage, pairID, userID string, balance decimal.Decimal) error {
	_, err := s.FindOneAndReplace(ctx, models.CollLiquidityPositions,
		bson.M{"pair_address": pairID, "user": userID},
		bson.M{
			"pair_address":            pairID,
			"user":                    userID,
			"liquidity_token_balance": models.D(balance),
		}, true)
	return err
}

// createLiquiditySnapshot freezes the user's position together with
// the pair state at the current block.
func (h *Handlers) createLiquiditySnapshot(ctx context.Context, s store.Storage, bc *BlockContext, pairID, userID string) error {
	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": pairID})
	if err != nil {
		return err
	}
	if pair == nil {
		return fmt.Errorf("snapshot for unknown pair %s at block %d", pairID, bc.Number)
	}
	token0, token1, err := h.pairTokens(ctx, s, pair)
	if err != nil {
		return err
	}
	position, err := s.FindOne(ctx, models.CollLiquidityPositions, bson.M{"pair_address": pairID, "user": userID})
	if err != nil {
		return err
	}
	if position == nil {
		return fmt.Errorf("snapshot for %s without a position in pair %s at block %d", userID, pairID, bc.Number)
	}

	return s.InsertOne(ctx, models.CollLiquiditySnapshots, bson.M{
		"pair_address":                 pairID,
		"user":                         userID,
		"timestamp":                    bc.Timestamp,
		"block":                        bc.Number,
		"token0_price_usd":             models.D(models.Dec(token0, "derived_eth").Mul(bc.EthPrice)),
		"token1_price_usd":             models.D(models.Dec(token1, "derived_eth").Mul(bc.EthPrice)),
		"reserve0":                     pair["reserve0"],
		"reserve1":                     pair["reserve1"],
		"reserve_usd":                  pair["reserve_usd"],
		"liquidity_token_total_supply": pair["total_supply"],
		"liquidity_token_balance":      position["liquidity_token_balance"],
	})
}

// pairTokens loads both token documents of a pair, failing when either
// is missing.
func (h *Handlers) pairTokens(ctx context.Context, s store.Storage, pair bson.M) (bson.M, bson.M, error) {
	token0, err := s.FindOne(ctx, models.CollTokens, bson.M{"id": models.Str(pair, "token0_id")})
	if err != nil {
		return nil, nil, err
	}
	if token0 == nil {
		return nil, nil, fmt.Errorf("pair %s references unknown token0 %s", models.Str(pair, "id"), models.Str(pair, "token0_id"))
	}
	token1, err := s.FindOne(ctx, models.CollTokens, bson.M{"id": models.Str(pair, "token1_id")})
	if err != nil {
		return nil, nil, err
	}
	if token1 == nil {
		return nil, nil, fmt.Errorf("pair %s references unknown token1 %s", models.Str(pair, "id"), models.Str(pair, "token1_id"))
	}
	return token0, token1, nil
}

// updateTransactionCount bumps the factory, both tokens and the pair.
func (h *Handlers) updateTransactionCount(ctx context.Context, s store.Storage, pairID string, token0, token1 bson.M) error {
	inc := bson.M{"$inc": bson.M{"transaction_count": 1}}
	if _, err := s.FindOneAndUpdate(ctx, models.CollFactories, bson.M{"id": h.factory}, inc); err != nil {
		return err
	}
	if _, err := s.FindOneAndUpdate(ctx, models.CollTokens, bson.M{"id": models.Str(token0, "id")}, inc); err != nil {
		return err
	}
	if _, err := s.FindOneAndUpdate(ctx, models.CollTokens, bson.M{"id": models.Str(token1, "id")}, inc); err != nil {
		return err
	}
	_, err := s.FindOneAndUpdate(ctx, models.CollPairs, bson.M{"id": pairID}, inc)
	return err
}
