package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"swapscan/internal/models"
)

type indexSpec struct {
	coll string
	keys bson.D
}

var indexSpecs = []indexSpec{
	{models.CollFactories, bson.D{{Key: "id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollTokens, bson.D{{Key: "id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollTokens, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollTokens, bson.D{{Key: "_chain.valid_from", Value: 1}}},
	{models.CollPairs, bson.D{{Key: "id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairs, bson.D{{Key: "id", Value: 1}, {Key: "_chain.valid_to", Value: 1}, {Key: "_chain.valid_from", Value: 1}}},
	{models.CollPairs, bson.D{{Key: "token0_id", Value: 1}, {Key: "token1_id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairs, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairs, bson.D{{Key: "_chain.valid_from", Value: 1}}},
	{models.CollUsers, bson.D{{Key: "id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollTransactions, bson.D{{Key: "hash", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollBlocks, bson.D{{Key: "number", Value: -1}}},
	{models.CollMints, bson.D{{Key: "pair_id", Value: 1}, {Key: "transaction_hash", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollMints, bson.D{{Key: "to", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollBurns, bson.D{{Key: "pair_id", Value: 1}, {Key: "transaction_hash", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollBurns, bson.D{{Key: "sender", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollSwaps, bson.D{{Key: "pair_id", Value: 1}, {Key: "transaction_hash", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollSwaps, bson.D{{Key: "to", Value: 1}, {Key: "timestamp", Value: 1}}},
	{models.CollLiquidityPositions, bson.D{{Key: "pair_address", Value: 1}, {Key: "user", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollLiquiditySnapshots, bson.D{{Key: "block", Value: 1}}},
	{models.CollLiquiditySnapshots, bson.D{{Key: "user", Value: 1}, {Key: "block", Value: 1}}},
	{models.CollExchangeDayData, bson.D{{Key: "address", Value: 1}, {Key: "day_id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollExchangeDayData, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairDayData, bson.D{{Key: "pair_id", Value: 1}, {Key: "day_id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairDayData, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairHourData, bson.D{{Key: "pair_id", Value: 1}, {Key: "hour_id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollPairHourData, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollTokenDayData, bson.D{{Key: "token_id", Value: 1}, {Key: "day_id", Value: 1}, {Key: "_chain.valid_to", Value: 1}}},
	{models.CollTokenDayData, bson.D{{Key: "_chain.valid_to", Value: 1}}},
	{models.CollCumulativePrices, bson.D{{Key: "pair", Value: 1}, {Key: "block", Value: 1}}},
}

// EnsureIndexes creates the indexes the handlers and the server query
// against. Creation is idempotent.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	for _, spec := range indexSpecs {
		model := mongo.IndexModel{Keys: spec.keys}
		if _, err := s.db.Collection(spec.coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.coll, err)
		}
	}
	return nil
}

// EnsureContestIndexes creates the indexes for the contest result
// collections under the given prefix.
func (s *Store) EnsureContestIndexes(ctx context.Context, prefix string) error {
	specs := []indexSpec{
		{prefix, bson.D{{Key: "user", Value: 1}}},
		{prefix, bson.D{{Key: "is_eligible", Value: 1}}},
		{prefix + "_block", bson.D{{Key: "user", Value: 1}, {Key: "block", Value: 1}}},
	}
	for _, spec := range specs {
		model := mongo.IndexModel{Keys: spec.keys}
		if _, err := s.db.Collection(spec.coll).Indexes().CreateOne(ctx, model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.coll, err)
		}
	}
	return nil
}
