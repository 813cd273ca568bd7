package contest

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
)

// Series maintains the per-pair LP-token price series the scoring
// integrates over. Each row holds the LP-token USD price at one
// indexed block plus two running sums: a plain one and a
// seconds-weighted one.
type Series struct {
	contest *config.ContestProfile
}

func NewSeries(contest *config.ContestProfile) *Series {
	return &Series{contest: contest}
}

// Extend appends rows for pair up to block to, starting where the
// series left off (or at the contest start block). Rows exist only at
// blocks the indexer stored; pair state is constant between versions,
// so versioned reads fill the gaps.
func (s *Series) Extend(ctx context.Context, db store.ReadWriter, pair string, to int64) error {
	last, err := db.FindPlain(ctx, models.CollCumulativePrices, bson.M{"pair": pair},
		store.FindQuery{OrderBy: "block", Desc: true, Limit: 1})
	if err != nil {
		return fmt.Errorf("series tail for %s: %w", pair, err)
	}

	from := s.contest.StartBlock
	var prev bson.M
	if len(last) > 0 {
		prev = last[0]
		from = models.Int64(prev, "block") + 1
	}
	if from > to {
		return nil
	}

	blocks, err := db.FindPlain(ctx, models.CollBlocks,
		bson.M{"number": bson.M{"$gte": from, "$lte": to}},
		store.FindQuery{OrderBy: "number"})
	if err != nil {
		return fmt.Errorf("blocks %d..%d: %w", from, to, err)
	}

	for _, blk := range blocks {
		number := models.Int64(blk, "number")
		ts := models.Time(blk, "timestamp")

		state, err := db.FindOneDoc(ctx, models.CollPairs, bson.M{"id": pair}, &number)
		if err != nil {
			return fmt.Errorf("pair %s at block %d: %w", pair, number, err)
		}
		if state == nil {
			// Pair not deployed yet at this height.
			continue
		}

		price := felt.Ratio(models.Dec(state, "reserve_usd"), models.Dec(state, "total_supply"))
		cum := price
		timeCum := price
		if prev != nil {
			elapsed := decimal.NewFromInt(int64(ts.Sub(models.Time(prev, "timestamp")) / time.Second))
			cum = models.Dec(prev, "cum_price_usd").Add(price)
			timeCum = models.Dec(prev, "time_cum_price_usd").Add(price.Mul(elapsed))
		}

		row := bson.M{
			"pair":               pair,
			"block":              number,
			"timestamp":          ts,
			"price_usd":          models.D(price),
			"cum_price_usd":      models.D(cum),
			"time_cum_price_usd": models.D(timeCum),
		}
		if err := db.InsertPlain(ctx, models.CollCumulativePrices, row); err != nil {
			return fmt.Errorf("append series for %s: %w", pair, err)
		}
		prev = row
	}
	return nil
}
