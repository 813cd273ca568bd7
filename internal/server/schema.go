package server

// Schema is the GraphQL surface of the indexed database. Entity and
// input names follow the storage documents; ids and addresses travel
// as canonical minimal hex.
const Schema = `
    schema {
        query: Query
    }

    "Fixed-point amount rendered as a string."
    scalar Decimal
    "Instant in unix seconds."
    scalar Time
    "Field element as 0x-prefixed minimal hex."
    scalar FieldElement
    "64-bit integer."
    scalar Long
    "Flat object of decimal values keyed by hex address."
    scalar Map

    type Query {
        blocks(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: BlockWhere): [Block!]!
        factories(block: BlockConstraint, where: FactoryWhere): [Factory!]!
        tokens(first: Int = 100, skip: Int = 0): [Token!]!
        pairs(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", block: BlockConstraint, where: PairWhere): [Pair!]!
        users(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", block: BlockConstraint, where: UserWhere): [User!]!
        transactions(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: TransactionWhere): [Transaction!]!
        swaps(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: SwapWhere): [Swap!]!
        mints(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: MintWhere): [Mint!]!
        burns(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: BurnWhere): [Burn!]!
        liquidityPositions(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: PositionWhere): [LiquidityPosition!]!
        liquidityPositionSnapshots(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: PositionWhere): [LiquidityPositionSnapshot!]!
        exchangeDayDatas(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: ExchangeDayWhere): [ExchangeDayData!]!
        pairDayDatas(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: PairDayWhere): [PairDayData!]!
        pairHourDatas(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: PairDayWhere): [PairHourData!]!
        tokenDayDatas(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: TokenDayWhere): [TokenDayData!]!
        lpContests(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc"): [LPContest!]!
        lpContestBlocks(first: Int = 100, skip: Int = 0, orderBy: String, orderByDirection: String = "asc", where: ContestWhere!): [LPContestBlock!]!
        lpContestPercentile(where: ContestWhere!): LPContestRanking!
        lpContestNftRanks: LPContestNFTRanks!
        volumeContest(first: Int = 100, skip: Int = 0, where: VolumeContestWhere!): VolumeContest!
    }

    "Pins versioned entities to their state as of one block."
    input BlockConstraint {
        number: Int
    }

    input BlockWhere {
        id: FieldElement
        timestampLt: Time
        timestampGt: Time
    }

    input FactoryWhere {
        id: FieldElement
    }

    input PairWhere {
        id: FieldElement
        idIn: [FieldElement!]
        token0: FieldElement
        token1: FieldElement
    }

    input UserWhere {
        id: FieldElement
        idIn: [FieldElement!]
    }

    input TransactionWhere {
        id: FieldElement
    }

    input SwapWhere {
        pair: FieldElement
        pairIn: [FieldElement!]
        to: FieldElement
    }

    input MintWhere {
        pair: FieldElement
        pairIn: [FieldElement!]
        to: FieldElement
    }

    input BurnWhere {
        pair: FieldElement
        pairIn: [FieldElement!]
        sender: FieldElement
    }

    input PositionWhere {
        pair: FieldElement
        user: FieldElement
    }

    input ExchangeDayWhere {
        dateLt: Time
        dateGt: Time
    }

    input PairDayWhere {
        pair: FieldElement
        pairIn: [FieldElement!]
        dateLt: Time
        dateGt: Time
    }

    input TokenDayWhere {
        token: FieldElement
        dateLt: Time
        dateGt: Time
    }

    input ContestWhere {
        user: FieldElement!
    }

    input VolumeContestWhere {
        user: FieldElement!
        "Contest start day, YYYY-MM-DD, taken as UTC midnight."
        startDate: String!
    }

    "A finalized block."
    type Block {
        id: FieldElement!
        number: Long!
        parentHash: FieldElement!
        timestamp: Time!
    }

    "The AMM factory with its exchange-wide totals."
    type Factory {
        id: FieldElement!
        pairCount: Long!
        totalVolumeUSD: Decimal!
        totalVolumeETH: Decimal!
        untrackedVolumeUSD: Decimal!
        totalLiquidityUSD: Decimal!
        totalLiquidityETH: Decimal!
        txCount: Long!
    }

    type Token {
        id: FieldElement!
        name: String!
        symbol: String!
        decimals: Int!
        totalLiquidity: Decimal!
    }

    "A liquidity pool and its running accumulators."
    type Pair {
        id: FieldElement!
        token0: Token!
        token1: Token!
        txCount: Long!
        reserve0: Decimal!
        reserve1: Decimal!
        reserveUSD: Decimal!
        totalSupply: Decimal!
        trackedReserveETH: Decimal!
        reserveETH: Decimal!
        volumeToken0: Decimal!
        volumeToken1: Decimal!
        volumeUSD: Decimal!
        untrackedVolumeUSD: Decimal!
        token0Price: Decimal!
        token1Price: Decimal!
        createdAtTimestamp: Time!
    }

    type User {
        id: FieldElement!
        txCount: Long!
        mintCount: Long!
        burnCount: Long!
        swapCount: Long!
    }

    type Transaction {
        id: FieldElement!
        timestamp: Time!
        mints: [Mint!]!
        burns: [Burn!]!
        swaps: [Swap!]!
    }

    type Mint {
        id: String!
        transactionHash: FieldElement!
        timestamp: Time!
        pair: Pair!
        sender: FieldElement!
        to: FieldElement!
        liquidity: Decimal!
        amount0: Decimal!
        amount1: Decimal!
        amountUSD: Decimal!
        zapIn: Boolean!
    }

    type Burn {
        id: String!
        transactionHash: FieldElement!
        timestamp: Time!
        pair: Pair!
        sender: FieldElement!
        to: FieldElement!
        liquidity: Decimal!
        amount0: Decimal!
        amount1: Decimal!
        amountUSD: Decimal!
    }

    type Swap {
        id: String!
        transactionHash: FieldElement!
        timestamp: Time!
        pair: Pair!
        pairId: FieldElement!
        sender: FieldElement!
        to: FieldElement!
        amount0In: Decimal!
        amount0Out: Decimal!
        amount1In: Decimal!
        amount1Out: Decimal!
        amountUSD: Decimal!
    }

    "A user's current LP-token balance in one pool."
    type LiquidityPosition {
        id: String!
        pair: Pair!
        user: User!
        liquidityTokenBalance: Decimal!
    }

    "A position frozen at one block, with the pool state beside it."
    type LiquidityPositionSnapshot {
        id: String!
        pair: Pair!
        user: User!
        timestamp: Time!
        block: Long!
        reserveUsd: Decimal!
        token0PriceUsd: Decimal!
        token1PriceUsd: Decimal!
        reserve0: Decimal!
        reserve1: Decimal!
        liquidityTokenTotalSupply: Decimal!
        liquidityTokenBalance: Decimal!
    }

    type ExchangeDayData {
        id: FieldElement!
        dayId: Long!
        date: Time!
        totalVolumeUSD: Decimal!
        dailyVolumeUSD: Decimal!
        dailyVolumeETH: Decimal!
        totalLiquidityUSD: Decimal!
        totalLiquidityETH: Decimal!
    }

    type PairDayData {
        pairId: FieldElement!
        dayId: Long!
        date: Time!
        dailyVolumeToken0: Decimal!
        dailyVolumeToken1: Decimal!
        dailyVolumeUSD: Decimal!
        totalSupply: Decimal!
        reserveUSD: Decimal!
        token0Price: Decimal!
        token1Price: Decimal!
    }

    type PairHourData {
        pairId: FieldElement!
        hourId: Long!
        date: Time!
        hourlyVolumeToken0: Decimal!
        hourlyVolumeToken1: Decimal!
        hourlyVolumeUSD: Decimal!
        totalSupply: Decimal!
        reserveUSD: Decimal!
    }

    type TokenDayData {
        tokenId: FieldElement!
        dayId: Long!
        date: Time!
        priceUSD: Decimal!
        totalLiquidityToken: Decimal!
        totalLiquidityETH: Decimal!
        totalLiquidityUSD: Decimal!
        dailyVolumeToken: Decimal!
        dailyVolumeETH: Decimal!
        dailyVolumeUSD: Decimal!
    }

    "A user's standing in the LP contest."
    type LPContest {
        user: User!
        block: Long!
        timestamp: Time!
        contestValue: Decimal!
        totalLpValue: Decimal!
        totalTimeEligible: Long!
        isEligible: Boolean!
    }

    "One journaled contest checkpoint with its per-pool breakdown."
    type LPContestBlock {
        user: User!
        block: Long!
        timestamp: Time!
        contestValue: Decimal!
        totalLpValue: Decimal!
        totalTimeEligible: Long!
        isEligible: Boolean!
        lpTokenBalances: Map!
        lpValues: Map!
    }

    "A user's rank among eligible contest participants."
    type LPContestRanking {
        rank: Int
        totalEligible: Int
        percentileRank: Int
        contestValue: Decimal
    }

    "Rank boundaries of the contest NFT tiers."
    type LPContestNFTRanks {
        L1P1Start: Int!
        L1P1End: Int!
        L1P2Start: Int!
        L1P2End: Int!
        L1P3Start: Int!
        L1P3End: Int!
        L1P4Start: Int!
        L1P4End: Int!
        L1P5Start: Int!
        L1P5End: Int!
    }

    type ContestWeek {
        id: Int!
        name: String!
        startDt: Time!
        endDt: Time!
        volume: Decimal!
        score: Decimal!
    }

    "A user's swap volume scored over the eight contest weeks."
    type VolumeContest {
        user: User!
        weeks: [ContestWeek!]!
        totalContestScore: Decimal!
        totalContestVolume: Decimal!
        nftLevel: Int!
    }
`
