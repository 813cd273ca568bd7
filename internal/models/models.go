// Package models defines the documents stored in Mongo and helpers for
// working with raw BSON documents.
//
// Every id field holds the 0x-prefixed minimal lowercase hex form of a
// field element. Monetary fields are Decimal128 in storage and
// decimal.Decimal in Go.
package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Chain is the bitemporal validity interval stamped on every versioned
// document. ValidFrom is inclusive, ValidTo exclusive; a nil ValidTo
// marks the current version.
type Chain struct {
	ValidFrom int64  `bson:"valid_from"`
	ValidTo   *int64 `bson:"valid_to"`
}

// Factory represents the 'factories' collection.
type Factory struct {
	ID               string `bson:"id"`
	PairCount        int64  `bson:"pair_count"`
	TransactionCount int64  `bson:"transaction_count"`

	TotalVolumeUSD     decimal.Decimal `bson:"total_volume_usd"`
	TotalVolumeETH     decimal.Decimal `bson:"total_volume_eth"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TotalLiquidityUSD  decimal.Decimal `bson:"total_liquidity_usd"`
	TotalLiquidityETH  decimal.Decimal `bson:"total_liquidity_eth"`
}

// Token represents the 'tokens' collection.
type Token struct {
	ID       string `bson:"id"`
	Name     string `bson:"name"`
	Symbol   string `bson:"symbol"`
	Decimals int64  `bson:"decimals"`

	TotalSupply        decimal.Decimal `bson:"total_supply"`
	TradeVolume        decimal.Decimal `bson:"trade_volume"`
	TradeVolumeUSD     decimal.Decimal `bson:"trade_volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TransactionCount   int64           `bson:"transaction_count"`
	TotalLiquidity     decimal.Decimal `bson:"total_liquidity"`
	DerivedETH         decimal.Decimal `bson:"derived_eth"`
}

// Pair represents the 'pairs' collection.
type Pair struct {
	ID       string `bson:"id"`
	Token0ID string `bson:"token0_id"`
	Token1ID string `bson:"token1_id"`

	Reserve0    decimal.Decimal `bson:"reserve0"`
	Reserve1    decimal.Decimal `bson:"reserve1"`
	TotalSupply decimal.Decimal `bson:"total_supply"`

	ReserveETH        decimal.Decimal `bson:"reserve_eth"`
	ReserveUSD        decimal.Decimal `bson:"reserve_usd"`
	TrackedReserveETH decimal.Decimal `bson:"tracked_reserve_eth"`

	Token0Price decimal.Decimal `bson:"token0_price"`
	Token1Price decimal.Decimal `bson:"token1_price"`

	VolumeToken0       decimal.Decimal `bson:"volume_token0"`
	VolumeToken1       decimal.Decimal `bson:"volume_token1"`
	VolumeUSD          decimal.Decimal `bson:"volume_usd"`
	UntrackedVolumeUSD decimal.Decimal `bson:"untracked_volume_usd"`
	TransactionCount   int64           `bson:"transaction_count"`

	CreatedAtTimestamp     time.Time `bson:"created_at_timestamp"`
	CreatedAtBlock         int64     `bson:"created_at_block"`
	LiquidityProviderCount int64     `bson:"liquidity_provider_count"`
}

// User represents the 'users' collection.
type User struct {
	ID               string `bson:"id"`
	TransactionCount int64  `bson:"transaction_count"`
	SwapCount        int64  `bson:"swap_count"`
	MintCount        int64  `bson:"mint_count"`
	BurnCount        int64  `bson:"burn_count"`
}

// Transaction represents the 'transactions' collection.
type Transaction struct {
	Hash           string    `bson:"hash"`
	BlockNumber    int64     `bson:"block_number"`
	BlockTimestamp time.Time `bson:"block_timestamp"`
}

// Block represents the 'blocks' collection.
type Block struct {
	Number     int64     `bson:"number"`
	Hash       string    `bson:"hash"`
	ParentHash string    `bson:"parent_hash"`
	Timestamp  time.Time `bson:"timestamp"`
}

// Mint represents the 'mints' collection: a logical liquidity deposit
// reconciled from LP-token transfers and the explicit Mint event.
// Sender stays nil until the Mint event finalizes the row.
type Mint struct {
	TransactionHash string  `bson:"transaction_hash"`
	Index           int64   `bson:"index"`
	PairID          string  `bson:"pair_id"`
	To              string  `bson:"to"`
	Sender          *string `bson:"sender"`

	Liquidity decimal.Decimal `bson:"liquidity"`
	Amount0   decimal.Decimal `bson:"amount0"`
	Amount1   decimal.Decimal `bson:"amount1"`
	AmountUSD decimal.Decimal `bson:"amount_usd"`

	Timestamp time.Time `bson:"timestamp"`
	ZapIn     bool      `bson:"zap_in"`
}

// Burn represents the 'burns' collection.
type Burn struct {
	TransactionHash string `bson:"transaction_hash"`
	Index           int64  `bson:"index"`
	PairID          string `bson:"pair_id"`
	Sender          string `bson:"sender"`
	To              string `bson:"to"`

	Liquidity decimal.Decimal `bson:"liquidity"`
	Amount0   decimal.Decimal `bson:"amount0"`
	Amount1   decimal.Decimal `bson:"amount1"`
	AmountUSD decimal.Decimal `bson:"amount_usd"`

	Timestamp     time.Time `bson:"timestamp"`
	NeedsComplete bool      `bson:"needs_complete"`

	FeeTo        *string          `bson:"fee_to,omitempty"`
	FeeLiquidity *decimal.Decimal `bson:"fee_liquidity,omitempty"`
}

// Swap represents the 'swaps' collection.
type Swap struct {
	TransactionHash string    `bson:"transaction_hash"`
	LogIndex        int64     `bson:"log_index"`
	PairID          string    `bson:"pair_id"`
	Timestamp       time.Time `bson:"timestamp"`

	Amount0In  decimal.Decimal `bson:"amount0_in"`
	Amount1In  decimal.Decimal `bson:"amount1_in"`
	Amount0Out decimal.Decimal `bson:"amount0_out"`
	Amount1Out decimal.Decimal `bson:"amount1_out"`

	Sender    string          `bson:"sender"`
	To        string          `bson:"to"`
	From      string          `bson:"from"`
	AmountUSD decimal.Decimal `bson:"amount_usd"`
}

// LiquidityPosition represents the 'liquidity_positions' collection:
// the current LP-token balance of a user in a pair, replaced wholesale
// on every transfer touching the user.
type LiquidityPosition struct {
	PairAddress           string          `bson:"pair_address"`
	User                  string          `bson:"user"`
	LiquidityTokenBalance decimal.Decimal `bson:"liquidity_token_balance"`
}

// LiquidityPositionSnapshot represents the
// 'liquidity_position_snapshots' collection: a position frozen with
// the pair state at the block it was taken.
type LiquidityPositionSnapshot struct {
	PairAddress string    `bson:"pair_address"`
	User        string    `bson:"user"`
	Timestamp   time.Time `bson:"timestamp"`
	Block       int64     `bson:"block"`

	Token0PriceUSD decimal.Decimal `bson:"token0_price_usd"`
	Token1PriceUSD decimal.Decimal `bson:"token1_price_usd"`

	Reserve0                  decimal.Decimal `bson:"reserve0"`
	Reserve1                  decimal.Decimal `bson:"reserve1"`
	ReserveUSD                decimal.Decimal `bson:"reserve_usd"`
	LiquidityTokenTotalSupply decimal.Decimal `bson:"liquidity_token_total_supply"`
	LiquidityTokenBalance     decimal.Decimal `bson:"liquidity_token_balance"`
}

// ExchangeDayData represents the 'exchange_day_data' collection.
type ExchangeDayData struct {
	Address string    `bson:"address"`
	DayID   int64     `bson:"day_id"`
	Date    time.Time `bson:"date"`

	TotalLiquidityUSD decimal.Decimal `bson:"total_liquidity_usd"`
	TotalLiquidityETH decimal.Decimal `bson:"total_liquidity_eth"`
	TransactionCount  int64           `bson:"transaction_count"`

	DailyVolumeUSD       decimal.Decimal `bson:"daily_volume_usd"`
	DailyVolumeETH       decimal.Decimal `bson:"daily_volume_eth"`
	DailyVolumeUntracked decimal.Decimal `bson:"daily_volume_untracked"`
	TotalVolumeUSD       decimal.Decimal `bson:"total_volume_usd"`
}

// PairDayData represents the 'pair_day_data' collection.
type PairDayData struct {
	PairID   string    `bson:"pair_id"`
	DayID    int64     `bson:"day_id"`
	Date     time.Time `bson:"date"`
	Token0ID string    `bson:"token0_id"`
	Token1ID string    `bson:"token1_id"`

	TotalSupply decimal.Decimal `bson:"total_supply"`
	Reserve0    decimal.Decimal `bson:"reserve0"`
	Reserve1    decimal.Decimal `bson:"reserve1"`
	ReserveUSD  decimal.Decimal `bson:"reserve_usd"`

	TransactionCount  int64           `bson:"transaction_count"`
	DailyVolumeToken0 decimal.Decimal `bson:"daily_volume_token0"`
	DailyVolumeToken1 decimal.Decimal `bson:"daily_volume_token1"`
	DailyVolumeUSD    decimal.Decimal `bson:"daily_volume_usd"`

	Token0Price decimal.Decimal `bson:"token0_price"`
	Token1Price decimal.Decimal `bson:"token1_price"`
}

// PairHourData represents the 'pair_hour_data' collection.
type PairHourData struct {
	PairID   string    `bson:"pair_id"`
	HourID   int64     `bson:"hour_id"`
	Date     time.Time `bson:"date"`
	Token0ID string    `bson:"token0_id"`
	Token1ID string    `bson:"token1_id"`

	TotalSupply decimal.Decimal `bson:"total_supply"`
	Reserve0    decimal.Decimal `bson:"reserve0"`
	Reserve1    decimal.Decimal `bson:"reserve1"`
	ReserveUSD  decimal.Decimal `bson:"reserve_usd"`

	TransactionCount   int64           `bson:"transaction_count"`
	HourlyVolumeToken0 decimal.Decimal `bson:"hourly_volume_token0"`
	HourlyVolumeToken1 decimal.Decimal `bson:"hourly_volume_token1"`
	HourlyVolumeUSD    decimal.Decimal `bson:"hourly_volume_usd"`
}

// TokenDayData represents the 'token_day_data' collection.
type TokenDayData struct {
	TokenID string    `bson:"token_id"`
	DayID   int64     `bson:"day_id"`
	Date    time.Time `bson:"date"`

	PriceUSD            decimal.Decimal `bson:"price_usd"`
	TotalLiquidityToken decimal.Decimal `bson:"total_liquidity_token"`
	TotalLiquidityETH   decimal.Decimal `bson:"total_liquidity_eth"`
	TotalLiquidityUSD   decimal.Decimal `bson:"total_liquidity_usd"`

	TransactionCount int64           `bson:"transaction_count"`
	DailyVolumeToken decimal.Decimal `bson:"daily_volume_token"`
	DailyVolumeETH   decimal.Decimal `bson:"daily_volume_eth"`
	DailyVolumeUSD   decimal.Decimal `bson:"daily_volume_usd"`
}

// PairCumulativePrice represents the 'pair_block_cumulative_price'
// collection: one point of the per-pair LP-token price series the
// contest scheduler extends block by block.
type PairCumulativePrice struct {
	Pair      string    `bson:"pair"`
	Block     int64     `bson:"block"`
	Timestamp time.Time `bson:"timestamp"`

	PriceUSD        decimal.Decimal `bson:"price_usd"`
	CumPriceUSD     decimal.Decimal `bson:"cum_price_usd"`
	TimeCumPriceUSD decimal.Decimal `bson:"time_cum_price_usd"`
}

// LPContest is the per-user contest checkpoint, replaced on every
// aggregation run. The balance and value maps are keyed by pair id.
type LPContest struct {
	User      string    `bson:"user"`
	Block     int64     `bson:"block"`
	Timestamp time.Time `bson:"timestamp"`

	ContestValue      decimal.Decimal `bson:"contest_value"`
	TotalLPValue      decimal.Decimal `bson:"total_lp_value"`
	TotalTimeEligible int64           `bson:"total_time_eligible"`
	IsEligible        bool            `bson:"is_eligible"`

	LPTokenBalances map[string]decimal.Decimal `bson:"lp_token_balances"`
	LPValues        map[string]decimal.Decimal `bson:"lp_values"`
}

// LPContestBlock is the append-only journal behind LPContest, one row
// per aggregation run.
type LPContestBlock struct {
	User      string    `bson:"user"`
	Block     int64     `bson:"block"`
	Timestamp time.Time `bson:"timestamp"`

	ContestValue      decimal.Decimal `bson:"contest_value"`
	TotalLPValue      decimal.Decimal `bson:"total_lp_value"`
	TotalTimeEligible int64           `bson:"total_time_eligible"`
	IsEligible        bool            `bson:"is_eligible"`

	LPTokenBalances map[string]decimal.Decimal `bson:"lp_token_balances"`
	LPValues        map[string]decimal.Decimal `bson:"lp_values"`
}
