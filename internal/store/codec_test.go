package store

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swapscan/internal/models"
)

func TestTokenDocRoundTrip(t *testing.T) {
	t.Parallel()

	tok := models.Token{
		ID:             "0x49d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7",
		Name:           "Ether",
		Symbol:         "ETH",
		Decimals:       18,
		TotalSupply:    decimal.RequireFromString("1000000.5"),
		TradeVolume:    decimal.RequireFromString("12.25"),
		DerivedETH:     decimal.NewFromInt(1),
		TotalLiquidity: decimal.Zero,
	}

	doc, err := ToDoc(tok)
	if err != nil {
		t.Fatalf("ToDoc: %v", err)
	}
	if _, ok := doc["total_supply"].(primitive.Decimal128); !ok {
		t.Fatalf("total_supply stored as %T, want Decimal128", doc["total_supply"])
	}
	if doc["symbol"] != "ETH" {
		t.Fatalf("symbol = %v", doc["symbol"])
	}
	if got := models.Int64(doc, "decimals"); got != 18 {
		t.Fatalf("decimals = %d, want 18", got)
	}

	var back models.Token
	if err := FromDoc(doc, &back); err != nil {
		t.Fatalf("FromDoc: %v", err)
	}
	if !back.TotalSupply.Equal(tok.TotalSupply) {
		t.Fatalf("total_supply = %s, want %s", back.TotalSupply, tok.TotalSupply)
	}
	if !back.DerivedETH.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("derived_eth = %s, want 1", back.DerivedETH)
	}
	if back.ID != tok.ID || back.Decimals != 18 {
		t.Fatalf("round trip mismatch: %+v", back)
	}
}

func TestFromDocAcceptsLooseNumerics(t *testing.T) {
	t.Parallel()

	doc := bson.M{
		"id":              "0xa",
		"total_supply":    int64(42),
		"trade_volume":    int32(7),
		"derived_eth":     1.5,
		"total_liquidity": nil,
	}
	var tok models.Token
	if err := FromDoc(doc, &tok); err != nil {
		t.Fatalf("FromDoc: %v", err)
	}
	if !tok.TotalSupply.Equal(decimal.NewFromInt(42)) {
		t.Fatalf("total_supply = %s, want 42", tok.TotalSupply)
	}
	if !tok.TradeVolume.Equal(decimal.NewFromInt(7)) {
		t.Fatalf("trade_volume = %s, want 7", tok.TradeVolume)
	}
	if !tok.DerivedETH.Equal(decimal.RequireFromString("1.5")) {
		t.Fatalf("derived_eth = %s, want 1.5", tok.DerivedETH)
	}
	if !tok.TotalLiquidity.IsZero() {
		t.Fatalf("null total_liquidity = %s, want 0", tok.TotalLiquidity)
	}
}

func TestContestCheckpointRoundTrip(t *testing.T) {
	t.Parallel()

	ts := time.Date(2023, 3, 1, 12, 0, 0, 0, time.UTC)
	cp := models.LPContest{
		User:              "0xabc",
		Block:             41180,
		Timestamp:         ts,
		ContestValue:      decimal.RequireFromString("123456.789"),
		TotalLPValue:      decimal.RequireFromString("26.5"),
		TotalTimeEligible: 3600,
		IsEligible:        false,
		LPTokenBalances: map[string]decimal.Decimal{
			"0xpair": decimal.RequireFromString("0.001"),
		},
		LPValues: map[string]decimal.Decimal{
			"0xpair": decimal.RequireFromString("26.5"),
		},
	}

	doc, err := ToDoc(cp)
	if err != nil {
		t.Fatalf("ToDoc: %v", err)
	}
	balances := models.DecMap(doc, "lp_token_balances")
	if got, ok := balances["0xpair"]; !ok || !got.Equal(decimal.RequireFromString("0.001")) {
		t.Fatalf("lp_token_balances = %v", balances)
	}
	if _, ok := doc["timestamp"].(primitive.DateTime); !ok {
		t.Fatalf("timestamp stored as %T, want DateTime", doc["timestamp"])
	}

	var back models.LPContest
	if err := FromDoc(doc, &back); err != nil {
		t.Fatalf("FromDoc: %v", err)
	}
	if !back.ContestValue.Equal(cp.ContestValue) {
		t.Fatalf("contest_value = %s, want %s", back.ContestValue, cp.ContestValue)
	}
	if !back.Timestamp.Equal(ts) {
		t.Fatalf("timestamp = %s, want %s", back.Timestamp, ts)
	}
	if !back.LPValues["0xpair"].Equal(cp.LPValues["0xpair"]) {
		t.Fatalf("lp_values = %v", back.LPValues)
	}
}

func TestWithBlockPredicate(t *testing.T) {
	t.Parallel()

	q := WithBlock(bson.M{"id": "0xa"}, nil)
	if q["_chain.valid_to"] != nil {
		t.Fatalf("current predicate = %v", q)
	}
	if _, ok := q["$or"]; ok {
		t.Fatalf("current predicate should not use $or: %v", q)
	}

	b := int64(100)
	q = WithBlock(bson.M{"id": "0xa"}, &b)
	branches, ok := q["$or"].(bson.A)
	if !ok || len(branches) != 2 {
		t.Fatalf("block predicate = %v", q)
	}
	if q["id"] != "0xa" {
		t.Fatalf("filter fields dropped: %v", q)
	}
}
