package config

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"swapscan/internal/felt"
)

// ChainProfile holds the per-network contract addresses and contest
// parameters. The compiled-in mainnet profile is the default; a YAML
// file named by SWAPSCAN_CONFIG overrides only the fields it sets.
type ChainProfile struct {
	// Factory is the AMM factory contract whose PairCreated events
	// seed the pair registry.
	Factory felt.Felt `yaml:"factory"`
	// StartBlock is where a fresh deployment begins indexing.
	StartBlock int64 `yaml:"start_block"`
	// ZapIn lists router contracts whose mints are flagged as zap-ins.
	ZapIn []felt.Felt `yaml:"zap_in"`

	// ETH is the canonical ETH token contract.
	ETH felt.Felt `yaml:"eth"`
	// Whitelist lists tokens trusted enough to price other tokens
	// against, in probe order.
	Whitelist []felt.Felt `yaml:"whitelist"`
	// ETHUSDCPair anchors the ETH/USD price.
	ETHUSDCPair felt.Felt `yaml:"eth_usdc_pair"`
	// MinLiquidityETH is the smallest ETH reserve a pool needs before
	// the oracle will trust its price.
	MinLiquidityETH decimal.Decimal `yaml:"min_liquidity_eth"`

	// Contest configures the LP contest aggregation pipeline.
	Contest ContestProfile `yaml:"contest"`
}

// ContestProfile configures the liquidity-provider contest.
type ContestProfile struct {
	// Prefix names the contest collections and queues.
	Prefix string `yaml:"prefix"`
	// StartBlock and EndBlock bound the scored block range, inclusive.
	StartBlock int64 `yaml:"start_block"`
	EndBlock   int64 `yaml:"end_block"`
	// Interval is the block spacing between scored checkpoints.
	Interval int64 `yaml:"interval"`
	// PageSize is how many users a single block task fans out before
	// enqueueing a continuation.
	PageSize int64 `yaml:"page_size"`
	// MinValueUSD is the total LP value a user must hold for a block
	// to count toward eligibility.
	MinValueUSD decimal.Decimal `yaml:"min_value_usd"`
	// MinSeconds is the eligible time needed to qualify.
	MinSeconds int64 `yaml:"min_seconds"`
	// BlockTaskTTLSeconds and UserTaskTTLSeconds expire queued tasks
	// that were not picked up in time.
	BlockTaskTTLSeconds int64 `yaml:"block_task_ttl_seconds"`
	UserTaskTTLSeconds  int64 `yaml:"user_task_ttl_seconds"`
	// EligiblePairs lists the pools whose positions score in the
	// contest.
	EligiblePairs []felt.Felt `yaml:"eligible_pairs"`
	// StablePairs marks the subset of EligiblePairs whose swap volume
	// counts at half weight in the volume contest.
	StablePairs []felt.Felt `yaml:"stable_pairs"`
}

// Enabled reports whether the contest pipeline should run at all.
func (c ContestProfile) Enabled() bool {
	return c.Prefix != "" && c.EndBlock > 0
}

// BlockCollection is the per-user running aggregate collection.
func (c ContestProfile) BlockCollection() string {
	return c.Prefix + "_block"
}

// Collection is the final per-user standings collection.
func (c ContestProfile) Collection() string {
	return c.Prefix
}

// MainnetProfile returns the compiled-in mainnet profile.
func MainnetProfile() ChainProfile {
	return ChainProfile{
		Factory:    felt.MustParse("0x00dad44c139a476c7a17fc8141e6db680e9abc9f56fe249a105094c44382c2fd"),
		StartBlock: 10760,
		ZapIn: []felt.Felt{
			felt.MustParse("0x029a303b928b9391ce797ec27d011d3937054bee783ca7831df792bae00c925c"),
		},
		ETH: felt.MustParse("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"),
		Whitelist: []felt.Felt{
			// ETH
			felt.MustParse("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7"),
			// DAI
			felt.MustParse("0x00da114221cb83fa859dbdb4c44beeaa0bb37c7537ad5ae66fe5e0efd20e6eb3"),
			// USDC
			felt.MustParse("0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8"),
			// USDT
			felt.MustParse("0x068f5c6a61780768455de69077e07e89787839bf8166decfbf92b645209c0fb8"),
			// wBTC
			felt.MustParse("0x03fe2b97c1fd336e750087d68b9b867997fd64a2661ff3ca5a7c771641e8e7ac"),
		},
		ETHUSDCPair:     felt.MustParse("0x4d0390b777b424e43839cd1e744799f3de6c176c7e32c1812a41dbd9c19db6a"),
		MinLiquidityETH: decimal.Zero,
		Contest: ContestProfile{
			Prefix:              "lp_contest_1_final",
			StartBlock:          41080,
			EndBlock:            125200,
			Interval:            100,
			PageSize:            10000,
			MinValueUSD:         decimal.NewFromInt(25),
			MinSeconds:          2592000,
			BlockTaskTTLSeconds: 300,
			UserTaskTTLSeconds:  3600,
			EligiblePairs: []felt.Felt{
				// ETH/USDC
				felt.MustParse("0x4d0390b777b424e43839cd1e744799f3de6c176c7e32c1812a41dbd9c19db6a"),
				// ETH/USDT
				felt.MustParse("0x45e7131d776dddc137e30bdd490b431c7144677e97bf9369f629ed8d3fb7dd6"),
				// DAI/ETH
				felt.MustParse("0x7e2a13b40fc1119ec55e0bcf9428eedaa581ab3c924561ad4e955f95da63138"),
				// WBTC/ETH
				felt.MustParse("0x260e98362e0949fefff8b4de85367c035e44f734c9f8069b6ce2075ae86b45c"),
				// LORDS/ETH
				felt.MustParse("0x2b3030c04e9c920bd66c6a8dc209717bbefa1ea5f8bc8ebabd639e5a4766502"),
				// WBTC/USDC
				felt.MustParse("0x5a8054e5ca0b277b295a830e53bd71a6a6943b42d0dbb22329437522bc80c8"),
				// WBTC/USDT
				felt.MustParse("0x44d13ad98a46fd2322ef2637e5e4c292ce8822f47b7cb9a1d581176a801c1a0"),
				// DAI/WBTC
				felt.MustParse("0x39c183c8e5a2df130eefa6fbaa3b8aad89b29891f6272cb0c90deaa93ec6315"),
				// LORDS/USDC
				felt.MustParse("0x7f409bd2e266e00486566dd3cb72bacc6996f49c0b19f04c0a8b5bd7bf991d1"),
				// WBTC/wstETH
				felt.MustParse("0x16220c67cdff746f2afd4178524a2dc9e49ff15567694277fa2302130576678"),
				// wstETH/USDC
				felt.MustParse("0x74855288dbb974584593acf7bd738572cce3d8f90a7076722d0a624a97d2620"),
				// LORDS/USDT
				felt.MustParse("0x51184e312f09abcbf28132d6ef58259a6ebe9b5e7e32b5200427fdc96973f94"),
				// DAI/LORDS
				felt.MustParse("0x56dc2aa83379f195de35ee699a270c76f1c2840b8b97385689d9137b38d9f44"),
				// LORDS/WBTC
				felt.MustParse("0x54a6698d6ac927713cf66c2f595948991e0a27e1b1ac04956c32026d94a8f99"),
				// wstETH/USDT
				felt.MustParse("0x33863afb8968fc40bc588a7c839faea1d47bb43d034b8ba19f0b8acb7191522"),
				// LORDS/wstETH
				felt.MustParse("0x781694f7f5f4dc9d7273e669ab0f9c8a0bd2d2279cc238e53522cd2e028c69c"),
				// DAI/wstETH
				felt.MustParse("0x73ffa5c873e39a2e8ea21494133081f4202b0dd583e50383a231b1f6f136a85"),
				// USDC/USDT
				felt.MustParse("0x5801bdad32f343035fb242e98d1e9371ae85bc1543962fedea16c59b35bd19b"),
				// DAI/USDC
				felt.MustParse("0xcfd39f5244f7b617418c018204a8a9f9a7f72e71f0ef38f968eeb2a9ca302b"),
				// DAI/USDT
				felt.MustParse("0xf0f5b3eed258344152e1f17baf84a2e1b621cd754b625bec169e8595aea767"),
				// wstETH/ETH
				felt.MustParse("0x70cda8400d7b1ee9e21f7194d320b9ad9c7a2b27e0d15a5a9967b9fefe10c76"),
			},
			StablePairs: []felt.Felt{
				// USDC/USDT
				felt.MustParse("0x5801bdad32f343035fb242e98d1e9371ae85bc1543962fedea16c59b35bd19b"),
				// DAI/USDC
				felt.MustParse("0xcfd39f5244f7b617418c018204a8a9f9a7f72e71f0ef38f968eeb2a9ca302b"),
				// DAI/USDT
				felt.MustParse("0xf0f5b3eed258344152e1f17baf84a2e1b621cd754b625bec169e8595aea767"),
				// wstETH/ETH
				felt.MustParse("0x70cda8400d7b1ee9e21f7194d320b9ad9c7a2b27e0d15a5a9967b9fefe10c76"),
			},
		},
	}
}

// LoadProfile reads a YAML profile, layered over the mainnet defaults.
func LoadProfile(path string) (*ChainProfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read chain profile: %w", err)
	}

	profile := MainnetProfile()
	if err := yaml.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("parse chain profile %s: %w", path, err)
	}

	return &profile, nil
}
