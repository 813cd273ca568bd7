package models

// Collection names. Contest collections are named at runtime from the
// configured contest prefix.
const (
	CollFactories          = "factories"
	CollTokens             = "tokens"
	CollPairs              = "pairs"
	CollUsers              = "users"
	CollTransactions       = "transactions"
	CollBlocks             = "blocks"
	CollMints              = "mints"
	CollBurns              = "burns"
	CollSwaps              = "swaps"
	CollLiquidityPositions = "liquidity_positions"
	CollLiquiditySnapshots = "liquidity_position_snapshots"
	CollExchangeDayData    = "exchange_day_data"
	CollPairDayData        = "pair_day_data"
	CollPairHourData       = "pair_hour_data"
	CollTokenDayData       = "token_day_data"
	CollCumulativePrices   = "pair_block_cumulative_price"
	CollStatus             = "status"
)
