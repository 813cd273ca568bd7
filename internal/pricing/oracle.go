// Package pricing derives ETH and USD valuations from pool state. The
// whitelist of counter-assets is the price authority: a token is worth
// what its deepest whitelisted pool says, and amounts touching
// non-whitelisted assets carry no tracked value.
package pricing

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/models"
	"swapscan/internal/store"
)

var (
	one = decimal.NewFromInt(1)
	two = decimal.NewFromInt(2)
)

// Oracle answers price questions against the indexed pool state.
type Oracle struct {
	eth             string
	whitelist       []string
	ethUSDCPair     string
	minLiquidityETH decimal.Decimal
}

// NewOracle builds an oracle from the chain profile.
func NewOracle(p *config.ChainProfile) *Oracle {
	wl := make([]string, len(p.Whitelist))
	for i, f := range p.Whitelist {
		wl[i] = f.Hex()
	}
	return &Oracle{
		eth:             p.ETH.Hex(),
		whitelist:       wl,
		ethUSDCPair:     p.ETHUSDCPair.Hex(),
		minLiquidityETH: p.MinLiquidityETH,
	}
}

// Whitelisted reports whether the token id is a whitelisted
// counter-asset.
func (o *Oracle) Whitelisted(id string) bool {
	for _, w := range o.whitelist {
		if w == id {
			return true
		}
	}
	return false
}

// EthPrice returns the USD price of ETH read from the reference
// ETH/USDC pool, zero before that pool exists.
func (o *Oracle) EthPrice(ctx context.Context, s store.Storage) (decimal.Decimal, error) {
	pair, err := s.FindOne(ctx, models.CollPairs, bson.M{"id": o.ethUSDCPair})
	if err != nil {
		return decimal.Zero, err
	}
	if pair == nil {
		return decimal.Zero, nil
	}
	return models.Dec(pair, "token1_price"), nil
}

// FindEthPerToken returns the ETH value of one unit of the token. The
// whitelist is scanned in order; the first pool against a whitelisted
// counter-asset with enough reserve wins and the refreshed value is
// written through to the token document. Tokens with no priced pool
// stay at zero.
func (o *Oracle) FindEthPerToken(ctx context.Context, s store.Storage, tokenID string) (decimal.Decimal, error) {
	if tokenID == o.eth {
		return one, nil
	}

	for _, w := range o.whitelist {
		derived, found, err := o.derivedFromPair(ctx, s,
			bson.M{"token0_id": tokenID, "token1_id": w}, "token1_price", w)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			return derived, o.writeDerived(ctx, s, tokenID, derived)
		}

		derived, found, err = o.derivedFromPair(ctx, s,
			bson.M{"token0_id": w, "token1_id": tokenID}, "token0_price", w)
		if err != nil {
			return decimal.Zero, err
		}
		if found {
			return derived, o.writeDerived(ctx, s, tokenID, derived)
		}
	}
	return decimal.Zero, nil
}

func (o *Oracle) derivedFromPair(ctx context.Context, s store.Storage, filter bson.M, priceField, counterID string) (decimal.Decimal, bool, error) {
	pair, err := s.FindOne(ctx, models.CollPairs, filter)
	if err != nil || pair == nil {
		return decimal.Zero, false, err
	}
	if models.Dec(pair, "reserve_eth").LessThan(o.minLiquidityETH) {
		return decimal.Zero, false, nil
	}
	counter, err := s.FindOne(ctx, models.CollTokens, bson.M{"id": counterID})
	if err != nil {
		return decimal.Zero, false, err
	}
	if counter == nil {
		return decimal.Zero, false, fmt.Errorf("whitelisted token %s has a pair but no token record", counterID)
	}
	return models.Dec(pair, priceField).Mul(models.Dec(counter, "derived_eth")), true, nil
}

func (o *Oracle) writeDerived(ctx context.Context, s store.Storage, tokenID string, derived decimal.Decimal) error {
	_, err := s.FindOneAndUpdate(ctx, models.CollTokens,
		bson.M{"id": tokenID},
		bson.M{"$set": bson.M{"derived_eth": models.D(derived)}})
	return err
}

// TrackedLiquidityUSD values a pair's two amounts counting only
// whitelisted sides: both whitelisted sums the sides, one whitelisted
// doubles it, none is worth zero.
func (o *Oracle) TrackedLiquidityUSD(token0 bson.M, amount0 decimal.Decimal, token1 bson.M, amount1 decimal.Decimal, ethPrice decimal.Decimal) decimal.Decimal {
	price0 := models.Dec(token0, "derived_eth").Mul(ethPrice)
	price1 := models.Dec(token1, "derived_eth").Mul(ethPrice)

	w0 := o.Whitelisted(models.Str(token0, "id"))
	w1 := o.Whitelisted(models.Str(token1, "id"))

	switch {
	case w0 && w1:
		return amount0.Mul(price0).Add(amount1.Mul(price1))
	case w0:
		return amount0.Mul(price0).Mul(two)
	case w1:
		return amount1.Mul(price1).Mul(two)
	default:
		return decimal.Zero
	}
}

// TrackedVolumeUSD is the average USD value of the two swap legs.
func (o *Oracle) TrackedVolumeUSD(token0 bson.M, amount0 decimal.Decimal, token1 bson.M, amount1 decimal.Decimal, ethPrice decimal.Decimal) decimal.Decimal {
	price0 := models.Dec(token0, "derived_eth").Mul(ethPrice)
	price1 := models.Dec(token1, "derived_eth").Mul(ethPrice)
	return amount0.Mul(price0).Add(amount1.Mul(price1)).Div(two)
}
