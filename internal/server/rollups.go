package server

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
)

type exchangeDayWhere struct {
	DateLt *Time
	DateGt *Time
}

type exchangeDayArgs struct {
	listArgs
	Where *exchangeDayWhere
}

// ExchangeDayDatas lists the exchange-wide daily roll-ups.
func (r *Resolver) ExchangeDayDatas(ctx context.Context, args exchangeDayArgs) ([]*exchangeDayResolver, error) {
	filter := bson.M{}
	if args.Where != nil {
		timeRange(filter, "date", args.Where.DateLt, args.Where.DateGt)
	}
	docs, err := r.db.FindDocs(ctx, models.CollExchangeDayData, filter, nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*exchangeDayResolver, len(docs))
	for i, doc := range docs {
		out[i] = &exchangeDayResolver{doc: doc}
	}
	return out, nil
}

type exchangeDayResolver struct {
	doc bson.M
}

func (d *exchangeDayResolver) ID() FieldElement           { return FieldElement(models.Str(d.doc, "address")) }
func (d *exchangeDayResolver) DayID() Long                { return Long(models.Int64(d.doc, "day_id")) }
func (d *exchangeDayResolver) Date() Time                 { return Time{models.Time(d.doc, "date")} }
func (d *exchangeDayResolver) TotalVolumeUSD() Decimal    { return dec(d.doc, "total_volume_usd") }
func (d *exchangeDayResolver) DailyVolumeUSD() Decimal    { return dec(d.doc, "daily_volume_usd") }
func (d *exchangeDayResolver) DailyVolumeETH() Decimal    { return dec(d.doc, "daily_volume_eth") }
func (d *exchangeDayResolver) TotalLiquidityUSD() Decimal { return dec(d.doc, "total_liquidity_usd") }
func (d *exchangeDayResolver) TotalLiquidityETH() Decimal { return dec(d.doc, "total_liquidity_eth") }

type pairWindowWhere struct {
	Pair   *FieldElement
	PairIn *[]FieldElement
	DateLt *Time
	DateGt *Time
}

func (w *pairWindowWhere) filter() bson.M {
	f := bson.M{}
	if w == nil {
		return f
	}
	if w.Pair != nil {
		f["pair_id"] = string(*w.Pair)
	}
	if w.PairIn != nil && len(*w.PairIn) > 0 {
		f["pair_id"] = bson.M{"$in": hexIn(*w.PairIn)}
	}
	timeRange(f, "date", w.DateLt, w.DateGt)
	return f
}

type pairWindowArgs struct {
	listArgs
	Where *pairWindowWhere
}

// PairDayDatas lists per-pool daily roll-ups.
func (r *Resolver) PairDayDatas(ctx context.Context, args pairWindowArgs) ([]*pairDayResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollPairDayData, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*pairDayResolver, len(docs))
	for i, doc := range docs {
		out[i] = &pairDayResolver{doc: doc}
	}
	return out, nil
}

type pairDayResolver struct {
	doc bson.M
}

func (d *pairDayResolver) PairID() FieldElement      { return FieldElement(models.Str(d.doc, "pair_id")) }
func (d *pairDayResolver) DayID() Long               { return Long(models.Int64(d.doc, "day_id")) }
func (d *pairDayResolver) Date() Time                { return Time{models.Time(d.doc, "date")} }
func (d *pairDayResolver) DailyVolumeToken0() Decimal { return dec(d.doc, "daily_volume_token0") }
func (d *pairDayResolver) DailyVolumeToken1() Decimal { return dec(d.doc, "daily_volume_token1") }
func (d *pairDayResolver) DailyVolumeUSD() Decimal   { return dec(d.doc, "daily_volume_usd") }
func (d *pairDayResolver) TotalSupply() Decimal      { return dec(d.doc, "total_supply") }
func (d *pairDayResolver) ReserveUSD() Decimal       { return dec(d.doc, "reserve_usd") }
func (d *pairDayResolver) Token0Price() Decimal      { return dec(d.doc, "token0_price") }
func (d *pairDayResolver) Token1Price() Decimal      { return dec(d.doc, "token1_price") }

// PairHourDatas lists per-pool hourly roll-ups.
func (r *Resolver) PairHourDatas(ctx context.Context, args pairWindowArgs) ([]*pairHourResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollPairHourData, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*pairHourResolver, len(docs))
	for i, doc := range docs {
		out[i] = &pairHourResolver{doc: doc}
	}
	return out, nil
}

type pairHourResolver struct {
	doc bson.M
}

func (d *pairHourResolver) PairID() FieldElement        { return FieldElement(models.Str(d.doc, "pair_id")) }
func (d *pairHourResolver) HourID() Long                { return Long(models.Int64(d.doc, "hour_id")) }
func (d *pairHourResolver) Date() Time                  { return Time{models.Time(d.doc, "date")} }
func (d *pairHourResolver) HourlyVolumeToken0() Decimal { return dec(d.doc, "hourly_volume_token0") }
func (d *pairHourResolver) HourlyVolumeToken1() Decimal { return dec(d.doc, "hourly_volume_token1") }
func (d *pairHourResolver) HourlyVolumeUSD() Decimal    { return dec(d.doc, "hourly_volume_usd") }
func (d *pairHourResolver) TotalSupply() Decimal        { return dec(d.doc, "total_supply") }
func (d *pairHourResolver) ReserveUSD() Decimal         { return dec(d.doc, "reserve_usd") }

type tokenDayWhere struct {
	Token  *FieldElement
	DateLt *Time
	DateGt *Time
}

type tokenDayArgs struct {
	listArgs
	Where *tokenDayWhere
}

// TokenDayDatas lists per-token daily roll-ups.
func (r *Resolver) TokenDayDatas(ctx context.Context, args tokenDayArgs) ([]*tokenDayResolver, error) {
	filter := bson.M{}
	if args.Where != nil {
		if args.Where.Token != nil {
			filter["token_id"] = string(*args.Where.Token)
		}
		timeRange(filter, "date", args.Where.DateLt, args.Where.DateGt)
	}
	docs, err := r.db.FindDocs(ctx, models.CollTokenDayData, filter, nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*tokenDayResolver, len(docs))
	for i, doc := range docs {
		out[i] = &tokenDayResolver{doc: doc}
	}
	return out, nil
}

type tokenDayResolver struct {
	doc bson.M
}

func (d *tokenDayResolver) TokenID() FieldElement        { return FieldElement(models.Str(d.doc, "token_id")) }
func (d *tokenDayResolver) DayID() Long                  { return Long(models.Int64(d.doc, "day_id")) }
func (d *tokenDayResolver) Date() Time                   { return Time{models.Time(d.doc, "date")} }
func (d *tokenDayResolver) PriceUSD() Decimal            { return dec(d.doc, "price_usd") }
func (d *tokenDayResolver) TotalLiquidityToken() Decimal { return dec(d.doc, "total_liquidity_token") }
func (d *tokenDayResolver) TotalLiquidityETH() Decimal   { return dec(d.doc, "total_liquidity_eth") }
func (d *tokenDayResolver) TotalLiquidityUSD() Decimal   { return dec(d.doc, "total_liquidity_usd") }
func (d *tokenDayResolver) DailyVolumeToken() Decimal    { return dec(d.doc, "daily_volume_token") }
func (d *tokenDayResolver) DailyVolumeETH() Decimal      { return dec(d.doc, "daily_volume_eth") }
func (d *tokenDayResolver) DailyVolumeUSD() Decimal      { return dec(d.doc, "daily_volume_usd") }
