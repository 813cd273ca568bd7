package indexer

import (
	"context"
	"fmt"
	"testing"
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

var (
	testFactory = felt.MustParse("0xfac")
	testTokenA  = felt.MustParse("0xaa")
	testTokenB  = felt.MustParse("0xbb")
	testPair    = felt.MustParse("0xabcd")
	testRouter  = felt.MustParse("0x2a9")
	userU       = felt.MustParse("0x7e1")
	feeTo       = felt.MustParse("0xfee")
)

var baseTime = time.Date(2022, 5, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testProfile() *config.ChainProfile {
	return &config.ChainProfile{
		Factory:         testFactory,
		StartBlock:      100,
		ZapIn:           []felt.Felt{testRouter},
		ETH:             felt.MustParse("0xe"),
		Whitelist:       []felt.Felt{felt.MustParse("0xe"), felt.MustParse("0xc")},
		ETHUSDCPair:     felt.MustParse("0xec"),
		MinLiquidityETH: decimal.NewFromInt(1),
	}
}

// fakeChain serves token metadata and balances from fixed maps.
type fakeChain struct {
	names    map[felt.Felt]string
	symbols  map[felt.Felt]string
	decimals map[felt.Felt]int64
	supplies map[felt.Felt]*uint256.Int
	balances map[[2]felt.Felt]*uint256.Int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		names:    map[felt.Felt]string{},
		symbols:  map[felt.Felt]string{},
		decimals: map[felt.Felt]int64{},
		supplies: map[felt.Felt]*uint256.Int{},
		balances: map[[2]felt.Felt]*uint256.Int{},
	}
}

func (f *fakeChain) addToken(addr felt.Felt, name, symbol string, decimals int64, supply uint64) {
	f.names[addr] = name
	f.symbols[addr] = symbol
	f.decimals[addr] = decimals
	f.supplies[addr] = uint256.NewInt(supply)
}

func (f *fakeChain) setBalance(token, owner felt.Felt, balance uint64) {
	f.balances[[2]felt.Felt{token, owner}] = uint256.NewInt(balance)
}

func (f *fakeChain) TokenName(_ context.Context, token, _ felt.Felt) (string, error) {
	name, ok := f.names[token]
	if !ok {
		return "", fmt.Errorf("unknown token %s", token.Hex())
	}
	return name, nil
}

func (f *fakeChain) TokenSymbol(_ context.Context, token, _ felt.Felt) (string, error) {
	symbol, ok := f.symbols[token]
	if !ok {
		return "", fmt.Errorf("unknown token %s", token.Hex())
	}
	return symbol, nil
}

func (f *fakeChain) TokenDecimals(_ context.Context, token, _ felt.Felt) (int64, error) {
	decimals, ok := f.decimals[token]
	if !ok {
		return 0, fmt.Errorf("unknown token %s", token.Hex())
	}
	return decimals, nil
}

func (f *fakeChain) TokenTotalSupply(_ context.Context, token, _ felt.Felt) (*uint256.Int, error) {
	supply, ok := f.supplies[token]
	if !ok {
		return nil, fmt.Errorf("unknown token %s", token.Hex())
	}
	return supply, nil
}

func (f *fakeChain) BalanceOf(_ context.Context, token, owner, _ felt.Felt) (*uint256.Int, error) {
	balance, ok := f.balances[[2]felt.Felt{token, owner}]
	if !ok {
		return nil, fmt.Errorf("no balance for %s in %s", owner.Hex(), token.Hex())
	}
	return balance, nil
}

func newTestHandlers(fake *fakeChain) *Handlers {
	profile := testProfile()
	return NewHandlers(fake, pricing.NewOracle(profile), profile, zerolog.Nop())
}

func blockCtx(number int64, ethPrice string) *BlockContext {
	return &BlockContext{
		Number:    number,
		Hash:      felt.FromUint64(uint64(number)),
		Timestamp: baseTime.Add(time.Duration(number) * time.Second),
		EthPrice:  dec(ethPrice),
	}
}

// seedPair plays the factory's PairCreated through the handler so the
// factory, both tokens and the pair exist.
func seedPair(t *testing.T, ctx context.Context, m *store.Memory, h *Handlers, fake *fakeChain) {
	t.Helper()
	fake.addToken(testTokenA, "Token A", "TKA", 18, 0)
	fake.addToken(testTokenB, "USD Coin", "USDC", 6, 0)
	ev := &stream.Event{
		FromAddress:     testFactory,
		Keys:            []felt.Felt{keyPairCreated},
		Data:            []felt.Felt{testTokenA, testTokenB, testPair, felt.FromUint64(1)},
		TransactionHash: felt.MustParse("0x100"),
	}
	pair, err := h.Handle(ctx, m, blockCtx(100, "0"), ev)
	if err != nil {
		t.Fatalf("PairCreated: %v", err)
	}
	if pair != testPair {
		t.Fatalf("new pair = %s, want %s", pair.Hex(), testPair.Hex())
	}
}

func mustFindOne(t *testing.T, ctx context.Context, m *store.Memory, coll string, filter bson.M) bson.M {
	t.Helper()
	doc, err := m.FindOne(ctx, coll, filter)
	if err != nil {
		t.Fatalf("find %s %v: %v", coll, filter, err)
	}
	if doc == nil {
		t.Fatalf("no %s document matching %v", coll, filter)
	}
	return doc
}

func wantDec(t *testing.T, doc bson.M, key, want string) {
	t.Helper()
	if got := models.Dec(doc, key); !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", key, got, want)
	}
}

func TestPairCreatedSeedsEntities(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)
	fake := newFakeChain()
	h := newTestHandlers(fake)

	seedPair(t, ctx, m, h, fake)

	factory := mustFindOne(t, ctx, m, models.CollFactories, bson.M{"id": testFactory.Hex()})
	if got := models.Int64(factory, "pair_count"); got != 1 {
		t.Fatalf("pair_count = %d, want 1", got)
	}
	wantDec(t, factory, "total_volume_usd", "0")

	token0 := mustFindOne(t, ctx, m, models.CollTokens, bson.M{"id": testTokenA.Hex()})
	wantDec(t, token0, "derived_eth", "1")
	if got := models.Str(token0, "symbol"); got != "TKA" {
		t.Fatalf("symbol = %q, want TKA", got)
	}
	if got := models.Int64(token0, "decimals"); got != 18 {
		t.Fatalf("decimals = %d, want 18", got)
	}
	token1 := mustFindOne(t, ctx, m, models.CollTokens, bson.M{"id": testTokenB.Hex()})
	wantDec(t, token1, "derived_eth", "1")

	pair := mustFindOne(t, ctx, m, models.CollPairs, bson.M{"id": testPair.Hex()})
	wantDec(t, pair, "reserve0", "0")
	wantDec(t, pair, "total_supply", "0")
	wantDec(t, pair, "volume_usd", "0")
	if got := models.Int64(pair, "created_at_block"); got != 100 {
		t.Fatalf("created_at_block = %d, want 100", got)
	}
	if got := models.Str(pair, "token0_id"); got != testTokenA.Hex() {
		t.Fatalf("token0_id = %s, want %s", got, testTokenA.Hex())
	}

	// A second PairCreated bumps the counter instead of reinserting.
	fake.addToken(felt.MustParse("0xcc"), "Other", "OTH", 18, 0)
	ev := &stream.Event{
		FromAddress:     testFactory,
		Keys:            []felt.Felt{keyPairCreated},
		Data:            []felt.Felt{testTokenA, felt.MustParse("0xcc"), felt.MustParse("0xbeef"), felt.FromUint64(2)},
		TransactionHash: felt.MustParse("0x101"),
	}
	if _, err := h.Handle(ctx, m, blockCtx(100, "0"), ev); err != nil {
		t.Fatalf("second PairCreated: %v", err)
	}
	factory = mustFindOne(t, ctx, m, models.CollFactories, bson.M{"id": testFactory.Hex()})
	if got := models.Int64(factory, "pair_count"); got != 2 {
		t.Fatalf("pair_count = %d, want 2", got)
	}
}

func TestTransferSentinelIgnored(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(101)
	h := newTestHandlers(newFakeChain())

	ev := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{{}, felt.FromUint64(1), felt.FromUint64(1000), {}},
		TransactionHash: felt.MustParse("0x200"),
	}
	if _, err := h.Handle(ctx, m, blockCtx(101, "0"), ev); err != nil {
		t.Fatalf("sentinel transfer: %v", err)
	}

	txs, err := m.Find(ctx, models.CollTransactions, bson.M{}, store.FindQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(txs) != 0 {
		t.Fatalf("sentinel transfer recorded %d transactions, want 0", len(txs))
	}
}

func TestMintFlow(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)
	fake := newFakeChain()
	h := newTestHandlers(fake)
	seedPair(t, ctx, m, h, fake)

	m.SetBlock(101)
	bc := blockCtx(101, "0")
	txHash := felt.MustParse("0x200")
	fake.setBalance(testPair, userU, 10000000000000000000)

	transfer := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{{}, userU, felt.FromUint64(10000000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, transfer); err != nil {
		t.Fatalf("transfer: %v", err)
	}

	mint := &stream.Event{
		FromAddress: testPair,
		Keys:        []felt.Felt{keyMint},
		Data: []felt.Felt{
			userU,
			felt.FromUint64(1000000000000000000), {},
			felt.FromUint64(2000000000), {},
		},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, mint); err != nil {
		t.Fatalf("mint: %v", err)
	}

	pair := mustFindOne(t, ctx, m, models.CollPairs, bson.M{"id": testPair.Hex()})
	wantDec(t, pair, "total_supply", "10")

	row := mustFindOne(t, ctx, m, models.CollMints, bson.M{"transaction_hash": txHash.Hex()})
	if got := models.Str(row, "to"); got != userU.Hex() {
		t.Fatalf("mint to = %s, want %s", got, userU.Hex())
	}
	sender := models.StrPtr(row, "sender")
	if sender == nil || *sender != userU.Hex() {
		t.Fatalf("mint sender = %v, want %s", sender, userU.Hex())
	}
	wantDec(t, row, "liquidity", "10")
	wantDec(t, row, "amount0", "1")
	wantDec(t, row, "amount1", "2000")

	position := mustFindOne(t, ctx, m, models.CollLiquidityPositions,
		bson.M{"pair_address": testPair.Hex(), "user": userU.Hex()})
	wantDec(t, position, "liquidity_token_balance", "10")

	snapshots, err := m.Find(ctx, models.CollLiquiditySnapshots, bson.M{"user": userU.Hex()}, store.FindQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("got %d snapshots, want 2 (transfer and mint)", len(snapshots))
	}
	wantDec(t, snapshots[0], "liquidity_token_balance", "10")

	user := mustFindOne(t, ctx, m, models.CollUsers, bson.M{"id": userU.Hex()})
	if got := models.Int64(user, "mint_count"); got != 1 {
		t.Fatalf("mint_count = %d, want 1", got)
	}
	if got := models.Int64(user, "transaction_count"); got != 1 {
		t.Fatalf("user transaction_count = %d, want 1", got)
	}

	factory := mustFindOne(t, ctx, m, models.CollFactories, bson.M{"id": testFactory.Hex()})
	if got := models.Int64(factory, "transaction_count"); got != 1 {
		t.Fatalf("factory transaction_count = %d, want 1", got)
	}

	day := mustFindOne(t, ctx, m, models.CollPairDayData, bson.M{"pair_id": testPair.Hex()})
	if got := models.Int64(day, "transaction_count"); got != 1 {
		t.Fatalf("pair day transaction_count = %d, want 1", got)
	}
	wantDec(t, day, "total_supply", "10")
}

func TestZapInTransferReassignsMint(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)
	fake := newFakeChain()
	h := newTestHandlers(fake)
	seedPair(t, ctx, m, h, fake)

	m.SetBlock(101)
	bc := blockCtx(101, "0")
	txHash := felt.MustParse("0x300")
	fake.setBalance(testPair, testRouter, 7000000000000000000)
	fake.setBalance(testPair, userU, 7000000000000000000)

	mintLeg := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{{}, testRouter, felt.FromUint64(7000000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, mintLeg); err != nil {
		t.Fatalf("mint leg: %v", err)
	}

	fake.setBalance(testPair, testRouter, 0)
	forward := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{testRouter, userU, felt.FromUint64(7000000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, forward); err != nil {
		t.Fatalf("forward leg: %v", err)
	}

	row := mustFindOne(t, ctx, m, models.CollMints, bson.M{"transaction_hash": txHash.Hex()})
	if got := models.Str(row, "to"); got != userU.Hex() {
		t.Fatalf("mint to = %s, want %s", got, userU.Hex())
	}
	if !models.Bool(row, "zap_in") {
		t.Fatal("mint not flagged as zap_in")
	}
	if models.StrPtr(row, "sender") != nil {
		t.Fatal("mint sender set before the Mint event")
	}

	pair := mustFindOne(t, ctx, m, models.CollPairs, bson.M{"id": testPair.Hex()})
	wantDec(t, pair, "total_supply", "7")

	routerPos := mustFindOne(t, ctx, m, models.CollLiquidityPositions,
		bson.M{"pair_address": testPair.Hex(), "user": testRouter.Hex()})
	wantDec(t, routerPos, "liquidity_token_balance", "0")
	userPos := mustFindOne(t, ctx, m, models.CollLiquidityPositions,
		bson.M{"pair_address": testPair.Hex(), "user": userU.Hex()})
	wantDec(t, userPos, "liquidity_token_balance", "7")
}

func TestBurnWithProtocolFee(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)
	fake := newFakeChain()
	h := newTestHandlers(fake)
	seedPair(t, ctx, m, h, fake)

	m.SetBlock(102)
	bc := blockCtx(102, "0")
	txHash := felt.MustParse("0x400")
	fake.setBalance(testPair, feeTo, 100000000000000000)
	fake.setBalance(testPair, userU, 0)

	// Protocol-fee mint with no Mint event of its own.
	feeLeg := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{{}, feeTo, felt.FromUint64(100000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, feeLeg); err != nil {
		t.Fatalf("fee leg: %v", err)
	}

	park := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{userU, testPair, felt.FromUint64(5000000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, park); err != nil {
		t.Fatalf("park leg: %v", err)
	}

	destroy := &stream.Event{
		FromAddress:     testPair,
		Keys:            []felt.Felt{keyTransfer},
		Data:            []felt.Felt{testPair, {}, felt.FromUint64(5000000000000000000), {}},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, destroy); err != nil {
		t.Fatalf("destroy leg: %v", err)
	}

	burnEv := &stream.Event{
		FromAddress: testPair,
		Keys:        []felt.Felt{keyBurn},
		Data: []felt.Felt{
			userU,
			felt.FromUint64(500000000000000000), {},
			felt.FromUint64(1000000000), {},
			userU,
		},
		TransactionHash: txHash,
	}
	if _, err := h.Handle(ctx, m, bc, burnEv); err != nil {
		t.Fatalf("burn: %v", err)
	}

	mints, err := m.Find(ctx, models.CollMints, bson.M{"transaction_hash": txHash.Hex()}, store.FindQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(mints) != 0 {
		t.Fatalf("fee mint not folded away, %d mint rows remain", len(mints))
	}

	burns, err := m.Find(ctx, models.CollBurns, bson.M{"transaction_hash": txHash.Hex()}, store.FindQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(burns) != 1 {
		t.Fatalf("got %d burn rows, want 1", len(burns))
	}
	burn := burns[0]
	if got := models.Str(burn, "fee_to"); got != feeTo.Hex() {
		t.Fatalf("fee_to = %s, want %s", got, feeTo.Hex())
	}
	wantDec(t, burn, "fee_liquidity", "0.1")
	wantDec(t, burn, "liquidity", "5")
	wantDec(t, burn, "amount0", "0.5")
	wantDec(t, burn, "amount1", "1000")
	if got := models.StrPtr(burn, "sender"); got == nil || *got != userU.Hex() {
		t.Fatalf("burn sender = %v, want %s", got, userU.Hex())
	}

	pair := mustFindOne(t, ctx, m, models.CollPairs, bson.M{"id": testPair.Hex()})
	wantDec(t, pair, "total_supply", "-4.9")

	user := mustFindOne(t, ctx, m, models.CollUsers, bson.M{"id": userU.Hex()})
	if got := models.Int64(user, "burn_count"); got != 1 {
		t.Fatalf("burn_count = %d, want 1", got)
	}
}

func TestBurnWithoutTransactionSkipped(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)
	fake := newFakeChain()
	h := newTestHandlers(fake)
	seedPair(t, ctx, m, h, fake)

	m.SetBlock(103)
	ev := &stream.Event{
		FromAddress: testPair,
		Keys:        []felt.Felt{keyBurn},
		Data: []felt.Felt{
			userU,
			felt.FromUint64(1), {},
			felt.FromUint64(1), {},
			userU,
		},
		TransactionHash: felt.MustParse("0xdead"),
	}
	if _, err := h.Handle(ctx, m, blockCtx(103, "0"), ev); err != nil {
		t.Fatalf("burn without transaction: %v", err)
	}

	burns, err := m.Find(ctx, models.CollBurns, bson.M{}, store.FindQuery{})
	if err != nil {
		t.Fatal(err)
	}
	if len(burns) != 0 {
		t.Fatalf("got %d burn rows, want 0", len(burns))
	}
}

func TestSyncAppliesReserveDelta(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	m := store.NewMemory()
	m.SetBlock(100)

	seed := []struct {
		coll string
		doc  bson.M
	}{
		{models.CollFactories, bson.M{
			"id":                  testFactory.Hex(),
			"pair_count":          int64(1),
			"total_liquidity_eth": models.D(decimal.Zero),
			"total_liquidity_usd": models.D(decimal.Zero),
		}},
		{models.CollTokens, bson.M{
			"id":              testTokenA.Hex(),
			"decimals":        int64(6),
			"total_liquidity": models.D(dec("300")),
			"derived_eth":     models.D(decimal.Zero),
		}},
		{models.CollTokens, bson.M{
			"id":              testTokenB.Hex(),
			"decimals":        int64(6),
			"total_liquidity": models.D(dec("80")),
			"derived_eth":     models.D(decimal.Zero),
		}},
		{models.CollPairs, bson.M{
			"id":                  testPair.Hex(),
			"token0_id":           testTokenA.Hex(),
			"token1_id":           testTokenB.Hex(),
			"reserve0":            models.D(dec("100")),
			"reserve1":            models.D(dec("50")),
			"tracked_reserve_eth": models.D(decimal.Zero),
			"total_supply":        models.D(decimal.Zero),
		}},
	}
	for _, s := range seed {
		if err := m.InsertOne(ctx, s.coll, s.doc); err != nil {
			t.Fatal(err)
		}
	}

	m.SetBlock(101)
	h := newTestHandlers(newFakeChain())
	ev := &stream.Event{
		FromAddress: testPair,
		Keys:        []felt.Felt{keySync},
		Data: []felt.Felt{
			felt.FromUint64(150000000), {},
			felt.FromUint64(60000000), {},
		},
		TransactionHash: felt.MustParse("0x500"),
	}
	if _, err := h.Handle(ctx, m, blockCtx(101, "0"), ev); err != nil {
		t.Fatalf("sync: %v", err)
	}

	pair := mustFindOne(t, ctx, m, models.CollPairs, bson.M{"id": testPair.Hex()})
	wantDec(t, pair, "reserve0", "150")
	wantDec(t, pair, "reserve1", "60")
	wantDec(t, pair, "token0_price", "2.5")
	wantDec(t, pair, "token1_price", "0.4")

	token0 := mustFindOne(t, ctx, m, models.CollTokens, bson.M{"id": testTokenA.Hex()})
	wantDec(t, token0, "total_liquidity", "350")
	token1 := mustFindOne(t, ctx, m, models.CollTokens, bson.M{"id": testTokenB.Hex()})
	wantDec(t, token1, "total_liquidity", "90")

	// The prior version still answers for the old block.
	at := int64(100)
	old, err := m.FindOneDoc(ctx, models.CollPairs, bson.M{"id": testPair.Hex()}, &at)
	if err != nil {
		t.Fatal(err)
	}
	wantDec(t, old, "reserve0", "100")
}
