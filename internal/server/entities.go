package server

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

type blockWhere struct {
	ID          *FieldElement
	TimestampLt *Time
	TimestampGt *Time
}

func (w *blockWhere) filter() bson.M {
	f := bson.M{}
	if w == nil {
		return f
	}
	if w.ID != nil {
		f["hash"] = string(*w.ID)
	}
	timeRange(f, "timestamp", w.TimestampLt, w.TimestampGt)
	return f
}

type blocksArgs struct {
	listArgs
	Where *blockWhere
}

// Blocks lists indexed blocks.
func (r *Resolver) Blocks(ctx context.Context, args blocksArgs) ([]*blockResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollBlocks, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*blockResolver, len(docs))
	for i, doc := range docs {
		out[i] = &blockResolver{doc: doc}
	}
	return out, nil
}

type blockResolver struct {
	doc bson.M
}

func (b *blockResolver) ID() FieldElement         { return FieldElement(models.Str(b.doc, "hash")) }
func (b *blockResolver) Number() Long             { return Long(models.Int64(b.doc, "number")) }
func (b *blockResolver) ParentHash() FieldElement { return FieldElement(models.Str(b.doc, "parent_hash")) }
func (b *blockResolver) Timestamp() Time          { return Time{models.Time(b.doc, "timestamp")} }

type transactionWhere struct {
	ID *FieldElement
}

type transactionsArgs struct {
	listArgs
	Where *transactionWhere
}

// Transactions lists transactions that touched the exchange.
func (r *Resolver) Transactions(ctx context.Context, args transactionsArgs) ([]*transactionResolver, error) {
	filter := bson.M{}
	if args.Where != nil && args.Where.ID != nil {
		filter["hash"] = string(*args.Where.ID)
	}
	docs, err := r.db.FindDocs(ctx, models.CollTransactions, filter, nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*transactionResolver, len(docs))
	for i, doc := range docs {
		out[i] = &transactionResolver{r: r, doc: doc}
	}
	return out, nil
}

type transactionResolver struct {
	r   *Resolver
	doc bson.M
}

func (t *transactionResolver) ID() FieldElement { return FieldElement(models.Str(t.doc, "hash")) }
func (t *transactionResolver) Timestamp() Time  { return Time{models.Time(t.doc, "block_timestamp")} }

func (t *transactionResolver) Mints(ctx context.Context) ([]*mintResolver, error) {
	docs, err := t.r.db.FindDocs(ctx, models.CollMints,
		bson.M{"transaction_hash": models.Str(t.doc, "hash")}, nil,
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return nil, err
	}
	out := make([]*mintResolver, len(docs))
	for i, doc := range docs {
		out[i] = &mintResolver{r: t.r, doc: doc}
	}
	return out, nil
}

func (t *transactionResolver) Burns(ctx context.Context) ([]*burnResolver, error) {
	docs, err := t.r.db.FindDocs(ctx, models.CollBurns,
		bson.M{"transaction_hash": models.Str(t.doc, "hash")}, nil,
		store.FindQuery{OrderBy: "index"})
	if err != nil {
		return nil, err
	}
	out := make([]*burnResolver, len(docs))
	for i, doc := range docs {
		out[i] = &burnResolver{r: t.r, doc: doc}
	}
	return out, nil
}

func (t *transactionResolver) Swaps(ctx context.Context) ([]*swapResolver, error) {
	docs, err := t.r.db.FindDocs(ctx, models.CollSwaps,
		bson.M{"transaction_hash": models.Str(t.doc, "hash")}, nil,
		store.FindQuery{OrderBy: "log_index"})
	if err != nil {
		return nil, err
	}
	out := make([]*swapResolver, len(docs))
	for i, doc := range docs {
		out[i] = &swapResolver{r: t.r, doc: doc}
	}
	return out, nil
}

type swapWhere struct {
	Pair   *FieldElement
	PairIn *[]FieldElement
	To     *FieldElement
}

func (w *swapWhere) filter() bson.M {
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
	if w.To != nil {
		f["to"] = string(*w.To)
	}
	return f
}

type swapsArgs struct {
	listArgs
	Where *swapWhere
}

// Swaps lists swap events.
func (r *Resolver) Swaps(ctx context.Context, args swapsArgs) ([]*swapResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollSwaps, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*swapResolver, len(docs))
	for i, doc := range docs {
		out[i] = &swapResolver{r: r, doc: doc}
	}
	return out, nil
}

type swapResolver struct {
	r   *Resolver
	doc bson.M
}

func (s *swapResolver) ID() string {
	return fmt.Sprintf("%s-%d", models.Str(s.doc, "transaction_hash"), models.Int64(s.doc, "log_index"))
}

func (s *swapResolver) TransactionHash() FieldElement {
	return FieldElement(models.Str(s.doc, "transaction_hash"))
}

func (s *swapResolver) Timestamp() Time { return Time{models.Time(s.doc, "timestamp")} }

func (s *swapResolver) Pair(ctx context.Context) (*pairResolver, error) {
	return s.r.pairByID(ctx, models.Str(s.doc, "pair_id"))
}

func (s *swapResolver) PairID() FieldElement  { return FieldElement(models.Str(s.doc, "pair_id")) }
func (s *swapResolver) Sender() FieldElement  { return FieldElement(models.Str(s.doc, "sender")) }
func (s *swapResolver) To() FieldElement      { return FieldElement(models.Str(s.doc, "to")) }
func (s *swapResolver) Amount0In() Decimal    { return dec(s.doc, "amount0_in") }
func (s *swapResolver) Amount0Out() Decimal   { return dec(s.doc, "amount0_out") }
func (s *swapResolver) Amount1In() Decimal    { return dec(s.doc, "amount1_in") }
func (s *swapResolver) Amount1Out() Decimal   { return dec(s.doc, "amount1_out") }
func (s *swapResolver) AmountUSD() Decimal    { return dec(s.doc, "amount_usd") }

type mintWhere struct {
	Pair   *FieldElement
	PairIn *[]FieldElement
	To     *FieldElement
}

func (w *mintWhere) filter() bson.M {
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
	if w.To != nil {
		f["to"] = string(*w.To)
	}
	return f
}

type mintsArgs struct {
	listArgs
	Where *mintWhere
}

// Mints lists liquidity deposits.
func (r *Resolver) Mints(ctx context.Context, args mintsArgs) ([]*mintResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollMints, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*mintResolver, len(docs))
	for i, doc := range docs {
		out[i] = &mintResolver{r: r, doc: doc}
	}
	return out, nil
}

type mintResolver struct {
	r   *Resolver
	doc bson.M
}

func (m *mintResolver) ID() string {
	return fmt.Sprintf("%s-%d", models.Str(m.doc, "transaction_hash"), models.Int64(m.doc, "index"))
}

func (m *mintResolver) TransactionHash() FieldElement {
	return FieldElement(models.Str(m.doc, "transaction_hash"))
}

func (m *mintResolver) Timestamp() Time { return Time{models.Time(m.doc, "timestamp")} }

func (m *mintResolver) Pair(ctx context.Context) (*pairResolver, error) {
	return m.r.pairByID(ctx, models.Str(m.doc, "pair_id"))
}

// Sender is unset until the pair's Mint event completes the row.
func (m *mintResolver) Sender() FieldElement {
	if s := models.StrPtr(m.doc, "sender"); s != nil {
		return FieldElement(*s)
	}
	return FieldElement("0x0")
}

func (m *mintResolver) To() FieldElement   { return FieldElement(models.Str(m.doc, "to")) }
func (m *mintResolver) Liquidity() Decimal { return dec(m.doc, "liquidity") }
func (m *mintResolver) Amount0() Decimal   { return dec(m.doc, "amount0") }
func (m *mintResolver) Amount1() Decimal   { return dec(m.doc, "amount1") }
func (m *mintResolver) AmountUSD() Decimal { return dec(m.doc, "amount_usd") }
func (m *mintResolver) ZapIn() bool        { return models.Bool(m.doc, "zap_in") }

type burnWhere struct {
	Pair   *FieldElement
	PairIn *[]FieldElement
	Sender *FieldElement
}

func (w *burnWhere) filter() bson.M {
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
	if w.Sender != nil {
		f["sender"] = string(*w.Sender)
	}
	return f
}

type burnsArgs struct {
	listArgs
	Where *burnWhere
}

// Burns lists liquidity withdrawals.
func (r *Resolver) Burns(ctx context.Context, args burnsArgs) ([]*burnResolver, error) {
	docs, err := r.db.FindDocs(ctx, models.CollBurns, args.Where.filter(), nil, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*burnResolver, len(docs))
	for i, doc := range docs {
		out[i] = &burnResolver{r: r, doc: doc}
	}
	return out, nil
}

type burnResolver struct {
	r   *Resolver
	doc bson.M
}

func (b *burnResolver) ID() string {
	return fmt.Sprintf("%s-%d", models.Str(b.doc, "transaction_hash"), models.Int64(b.doc, "index"))
}

func (b *burnResolver) TransactionHash() FieldElement {
	return FieldElement(models.Str(b.doc, "transaction_hash"))
}

func (b *burnResolver) Timestamp() Time { return Time{models.Time(b.doc, "timestamp")} }

func (b *burnResolver) Pair(ctx context.Context) (*pairResolver, error) {
	return b.r.pairByID(ctx, models.Str(b.doc, "pair_id"))
}

func (b *burnResolver) Sender() FieldElement { return FieldElement(models.Str(b.doc, "sender")) }
func (b *burnResolver) To() FieldElement     { return FieldElement(models.Str(b.doc, "to")) }
func (b *burnResolver) Liquidity() Decimal   { return dec(b.doc, "liquidity") }
func (b *burnResolver) Amount0() Decimal     { return dec(b.doc, "amount0") }
func (b *burnResolver) Amount1() Decimal     { return dec(b.doc, "amount1") }
func (b *burnResolver) AmountUSD() Decimal   { return dec(b.doc, "amount_usd") }
