package server

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

type factoryWhere struct {
	ID *FieldElement
}

type factoriesArgs struct {
	Block *blockConstraint
	Where *factoryWhere
}

// Factories lists the factory rows, optionally at a past block.
func (r *Resolver) Factories(ctx context.Context, args factoriesArgs) ([]*factoryResolver, error) {
	filter := bson.M{}
	if args.Where != nil && args.Where.ID != nil {
		filter["id"] = string(*args.Where.ID)
	}
	docs, err := r.db.FindDocs(ctx, models.CollFactories, filter, args.Block.at(), store.FindQuery{})
	if err != nil {
		return nil, err
	}
	out := make([]*factoryResolver, len(docs))
	for i, doc := range docs {
		out[i] = &factoryResolver{doc: doc}
	}
	return out, nil
}

type factoryResolver struct {
	doc bson.M
}

func (f *factoryResolver) ID() FieldElement            { return FieldElement(models.Str(f.doc, "id")) }
func (f *factoryResolver) PairCount() Long             { return Long(models.Int64(f.doc, "pair_count")) }
func (f *factoryResolver) TotalVolumeUSD() Decimal     { return dec(f.doc, "total_volume_usd") }
func (f *factoryResolver) TotalVolumeETH() Decimal     { return dec(f.doc, "total_volume_eth") }
func (f *factoryResolver) UntrackedVolumeUSD() Decimal { return dec(f.doc, "untracked_volume_usd") }
func (f *factoryResolver) TotalLiquidityUSD() Decimal  { return dec(f.doc, "total_liquidity_usd") }
func (f *factoryResolver) TotalLiquidityETH() Decimal  { return dec(f.doc, "total_liquidity_eth") }
func (f *factoryResolver) TxCount() Long               { return Long(models.Int64(f.doc, "transaction_count")) }

// Tokens lists registered tokens.
func (r *Resolver) Tokens(ctx context.Context, args listArgs) ([]*tokenResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollTokens, bson.M{}, nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*tokenResolver, len(docs))
	for i, doc := range docs {
		out[i] = &tokenResolver{doc: doc}
	}
	return out, nil
}

type tokenResolver struct {
	doc bson.M
}

func (t *tokenResolver) ID() FieldElement        { return FieldElement(models.Str(t.doc, "id")) }
func (t *tokenResolver) Name() string            { return models.Str(t.doc, "name") }
func (t *tokenResolver) Symbol() string          { return models.Str(t.doc, "symbol") }
func (t *tokenResolver) Decimals() int32         { return int32(models.Int64(t.doc, "decimals")) }
func (t *tokenResolver) TotalLiquidity() Decimal { return dec(t.doc, "total_liquidity") }

type pairWhere struct {
	ID     *FieldElement
	IDIn   *[]FieldElement
	Token0 *FieldElement
	Token1 *FieldElement
}

func (w *pairWhere) filter() bson.M {
	f := bson.M{}
	if w == nil {
		return f
	}
	if w.ID != nil {
		f["id"] = string(*w.ID)
	}
	if w.IDIn != nil && len(*w.IDIn) > 0 {
		f["id"] = bson.M{"$in": hexIn(*w.IDIn)}
	}
	if w.Token0 != nil {
		f["token0_id"] = string(*w.Token0)
	}
	if w.Token1 != nil {
		f["token1_id"] = string(*w.Token1)
	}
	return f
}

type pairsArgs struct {
	listArgs
	Block *blockConstraint
	Where *pairWhere
}

// Pairs lists pools, optionally at a past block.
func (r *Resolver) Pairs(ctx context.Context, args pairsArgs) ([]*pairResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollPairs, args.Where.filter(), args.Block.at(), args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*pairResolver, len(docs))
	for i, doc := range docs {
		out[i] = &pairResolver{r: r, doc: doc}
	}
	return out, nil
}

type pairResolver struct {
	r   *Resolver
	doc bson.M
}

func (p *pairResolver) ID() FieldElement { return FieldElement(models.Str(p.doc, "id")) }

func (p *pairResolver) Token0(ctx context.Context) (*tokenResolver, error) {
	return p.r.tokenByID(ctx, models.Str(p.doc, "token0_id"))
}

func (p *pairResolver) Token1(ctx context.Context) (*tokenResolver, error) {
	return p.r.tokenByID(ctx, models.Str(p.doc, "token1_id"))
}

func (p *pairResolver) TxCount() Long               { return Long(models.Int64(p.doc, "transaction_count")) }
func (p *pairResolver) Reserve0() Decimal           { return dec(p.doc, "reserve0") }
func (p *pairResolver) Reserve1() Decimal           { return dec(p.doc, "reserve1") }
func (p *pairResolver) ReserveUSD() Decimal         { return dec(p.doc, "reserve_usd") }
func (p *pairResolver) TotalSupply() Decimal        { return dec(p.doc, "total_supply") }
func (p *pairResolver) TrackedReserveETH() Decimal  { return dec(p.doc, "tracked_reserve_eth") }
func (p *pairResolver) ReserveETH() Decimal         { return dec(p.doc, "reserve_eth") }
func (p *pairResolver) VolumeToken0() Decimal       { return dec(p.doc, "volume_token0") }
func (p *pairResolver) VolumeToken1() Decimal       { return dec(p.doc, "volume_token1") }
func (p *pairResolver) VolumeUSD() Decimal          { return dec(p.doc, "volume_usd") }
func (p *pairResolver) UntrackedVolumeUSD() Decimal { return dec(p.doc, "untracked_volume_usd") }
func (p *pairResolver) Token0Price() Decimal        { return dec(p.doc, "token0_price") }
func (p *pairResolver) Token1Price() Decimal        { return dec(p.doc, "token1_price") }
func (p *pairResolver) CreatedAtTimestamp() Time    { return Time{models.Time(p.doc, "created_at_timestamp")} }

type userWhere struct {
	ID   *FieldElement
	IDIn *[]FieldElement
}

func (w *userWhere) filter() bson.M {
	f := bson.M{}
	if w == nil {
		return f
	}
	if w.ID != nil {
		f["id"] = string(*w.ID)
	}
	if w.IDIn != nil && len(*w.IDIn) > 0 {
		f["id"] = bson.M{"$in": hexIn(*w.IDIn)}
	}
	return f
}

type usersArgs struct {
	listArgs
	Block *blockConstraint
	Where *userWhere
}

// Users lists accounts that interacted with the exchange.
func (r *Resolver) Users(ctx context.Context, args usersArgs) ([]*userResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollUsers, args.Where.filter(), args.Block.at(), args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*userResolver, len(docs))
	for i, doc := range docs {
		out[i] = &userResolver{doc: doc}
	}
	return out, nil
}

type userResolver struct {
	doc bson.M
}

func (u *userResolver) ID() FieldElement { return FieldElement(models.Str(u.doc, "id")) }
func (u *userResolver) TxCount() Long    { return Long(models.Int64(u.doc, "transaction_count")) }
func (u *userResolver) MintCount() Long  { return Long(models.Int64(u.doc, "mint_count")) }
func (u *userResolver) BurnCount() Long  { return Long(models.Int64(u.doc, "burn_count")) }
func (u *userResolver) SwapCount() Long  { return Long(models.Int64(u.doc, "swap_count")) }

type positionWhere struct {
	Pair *FieldElement
	User *FieldElement
}

func (w *positionWhere) filter() bson.M {
	f := bson.M{}
	if w == nil {
		return f
	}
	if w.Pair != nil {
		f["pair_address"] = string(*w.Pair)
	}
	if w.User != nil {
		f["user"] = string(*w.User)
	}
	return f
}

type positionsArgs struct {
	listArgs
	Where *positionWhere
}

// LiquidityPositions lists current LP-token balances.
func (r *Resolver) LiquidityPositions(ctx context.Context, args positionsArgs) ([]*liquidityPositionResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollLiquidityPositions, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*liquidityPositionResolver, len(docs))
	for i, doc := range docs {
		out[i] = &liquidityPositionResolver{r: r, doc: doc}
	}
	return out, nil
}

type liquidityPositionResolver struct {
	r   *Resolver
	doc bson.M
}

func (p *liquidityPositionResolver) ID() string {
	return fmt.Sprintf("%s-$%s", models.Str(p.doc, "pair_address"), models.Str(p.doc, "user"))
}

func (p *liquidityPositionResolver) Pair(ctx context.Context) (*pairResolver, error) {
	return p.r.pairByID(ctx, models.Str(p.doc, "pair_address"))
}

func (p *liquidityPositionResolver) User(ctx context.Context) (*userResolver, error) {
	return p.r.userByID(ctx, models.Str(p.doc, "user"))
}

func (p *liquidityPositionResolver) LiquidityTokenBalance() Decimal {
	return dec(p.doc, "liquidity_token_balance")
}

// LiquidityPositionSnapshots lists per-block position snapshots.
func (r *Resolver) LiquidityPositionSnapshots(ctx context.Context, args positionsArgs) ([]*liquiditySnapshotResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollLiquiditySnapshots, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*liquiditySnapshotResolver, len(docs))
	for i, doc := range docs {
		out[i] = &liquiditySnapshotResolver{r: r, doc: doc}
	}
	return out, nil
}

type liquiditySnapshotResolver struct {
	r   *Resolver
	doc bson.M
}

func (s *liquiditySnapshotResolver) ID() string {
	return fmt.Sprintf("%s-$%s", models.Str(s.doc, "pair_address"), models.Str(s.doc, "user"))
}

func (s *liquiditySnapshotResolver) Pair(ctx context.Context) (*pairResolver, error) {
	return s.r.pairByID(ctx, models.Str(s.doc, "pair_address"))
}

func (s *liquiditySnapshotResolver) User(ctx context.Context) (*userResolver, error) {
	return s.r.userByID(ctx, models.Str(s.doc, "user"))
}

func (s *liquiditySnapshotResolver) Timestamp() Time         { return Time{models.Time(s.doc, "timestamp")} }
func (s *liquiditySnapshotResolver) Block() Long             { return Long(models.Int64(s.doc, "block")) }
func (s *liquiditySnapshotResolver) ReserveUsd() Decimal     { return dec(s.doc, "reserve_usd") }
func (s *liquiditySnapshotResolver) Token0PriceUsd() Decimal { return dec(s.doc, "token0_price_usd") }
func (s *liquiditySnapshotResolver) Token1PriceUsd() Decimal { return dec(s.doc, "token1_price_usd") }
func (s *liquiditySnapshotResolver) Reserve0() Decimal       { return dec(s.doc, "reserve0") }
func (s *liquiditySnapshotResolver) Reserve1() Decimal       { return dec(s.doc, "reserve1") }

func (s *liquiditySnapshotResolver) LiquidityTokenTotalSupply() Decimal {
	return dec(s.doc, "liquidity_token_total_supply")
}

func (s *liquiditySnapshotResolver) LiquidityTokenBalance() Decimal {
	return dec(s.doc, "liquidity_token_balance")
}
