package server

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/models"
	"swapscan/internal/store"
)

// contestValueShift rescales stored contest values, which carry a 1e4
// fixed-point factor, to their display unit.
const contestValueShift = -4

const volumeContestWeeks = 8

var weeklyHardCap = decimal.NewFromInt(1000)
var stablePoolMultiplier = decimal.NewFromFloat(0.5)

type contestWhere struct {
	User FieldElement
}

type lpContestsArgs struct {
	listArgs
}

// LPContests lists the final contest standings.
func (r *Resolver) LPContests(ctx context.Context, args lpContestsArgs) ([]*lpContestResolver, error) {
	docs, err := r.db.FindPlain(ctx, r.contest.Collection(), bson.M{}, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*lpContestResolver, len(docs))
	for i, doc := range docs {
		out[i] = &lpContestResolver{r: r, doc: doc}
	}
	return out, nil
}

type lpContestBlocksArgs struct {
	listArgs
	Where contestWhere
}

// LPContestBlocks lists one user's journaled contest checkpoints.
func (r *Resolver) LPContestBlocks(ctx context.Context, args lpContestBlocksArgs) ([]*lpContestBlockResolver, error) {
	filter := bson.M{"user": string(args.Where.User)}
	docs, err := r.db.FindPlain(ctx, r.contest.BlockCollection(), filter, args.query())
	if err != nil {
		return nil, err
	}
	out := make([]*lpContestBlockResolver, len(docs))
	for i, doc := range docs {
		out[i] = &lpContestBlockResolver{lpContestResolver{r: r, doc: doc}}
	}
	return out, nil
}

type lpContestResolver struct {
	r   *Resolver
	doc bson.M
}

func (c *lpContestResolver) User(ctx context.Context) (*userResolver, error) {
	return c.r.userByID(ctx, models.Str(c.doc, "user"))
}

func (c *lpContestResolver) Block() Long     { return Long(models.Int64(c.doc, "block")) }
func (c *lpContestResolver) Timestamp() Time { return Time{models.Time(c.doc, "timestamp")} }

func (c *lpContestResolver) ContestValue() Decimal {
	return Decimal{models.Dec(c.doc, "contest_value").Shift(contestValueShift)}
}

func (c *lpContestResolver) TotalLpValue() Decimal { return dec(c.doc, "total_lp_value") }

func (c *lpContestResolver) TotalTimeEligible() Long {
	return Long(models.Int64(c.doc, "total_time_eligible"))
}

func (c *lpContestResolver) IsEligible() bool { return models.Bool(c.doc, "is_eligible") }

type lpContestBlockResolver struct {
	lpContestResolver
}

func (c *lpContestBlockResolver) LpTokenBalances() Map {
	return toMap(models.DecMap(c.doc, "lp_token_balances"))
}

func (c *lpContestBlockResolver) LpValues() Map {
	return toMap(models.DecMap(c.doc, "lp_values"))
}

type lpContestPercentileArgs struct {
	Where contestWhere
}

// LPContestPercentile ranks one user's contest value among all
// eligible participants. The rank is the position of the user's value
// in the descending value list; the percentile places its midpoint.
func (r *Resolver) LPContestPercentile(ctx context.Context, args lpContestPercentileArgs) (*lpContestRankingResolver, error) {
	user := string(args.Where.User)
	standing, err := r.db.FindOnePlain(ctx, r.contest.Collection(), bson.M{"user": user})
	if err != nil {
		return nil, err
	}
	if standing == nil {
		return nil, fmt.Errorf("no contest standing for %s", user)
	}
	rawValue := standing["contest_value"]

	pipeline := []bson.M{
		{"$match": bson.M{"is_eligible": true}},
		{"$group": bson.M{"_id": nil, "contest_values": bson.M{"$push": "$contest_value"}}},
		{"$project": bson.M{"count": bson.M{"$size": "$contest_values"}, "contest_values": 1}},
		{"$unwind": "$contest_values"},
		{"$sort": bson.M{"contest_values": -1}},
		{"$group": bson.M{"_id": nil, "contest_values": bson.M{"$push": "$contest_values"}, "count": bson.M{"$first": "$count"}}},
		{"$project": bson.M{
			"count": 1,
			"rank":  bson.M{"$indexOfArray": bson.A{"$contest_values", rawValue}},
			"percentileRank": bson.M{"$multiply": bson.A{
				bson.M{"$divide": bson.A{100, "$count"}},
				bson.M{"$subtract": bson.A{bson.M{"$indexOfArray": bson.A{"$contest_values", rawValue}}, 0.5}},
			}},
		}},
	}
	rows, err := r.db.Aggregate(ctx, r.contest.Collection(), pipeline)
	if err != nil {
		return nil, err
	}

	value := Decimal{models.Dec(standing, "contest_value").Shift(contestValueShift)}
	res := &lpContestRankingResolver{contestValue: &value}
	if len(rows) == 1 {
		rank := int32(models.Int64(rows[0], "rank"))
		count := int32(models.Int64(rows[0], "count"))
		pctRaw, _ := rows[0]["percentileRank"].(float64)
		pct := int32(math.RoundToEven(pctRaw))
		res.rank = &rank
		res.totalEligible = &count
		res.percentile = &pct
	}
	return res, nil
}

type lpContestRankingResolver struct {
	rank          *int32
	totalEligible *int32
	percentile    *int32
	contestValue  *Decimal
}

func (l *lpContestRankingResolver) Rank() *int32           { return l.rank }
func (l *lpContestRankingResolver) TotalEligible() *int32  { return l.totalEligible }
func (l *lpContestRankingResolver) PercentileRank() *int32 { return l.percentile }
func (l *lpContestRankingResolver) ContestValue() *Decimal { return l.contestValue }

// LPContestNFTRanks returns the rank boundaries of the five NFT
// tiers, cut at fixed percentages of the eligible population.
func (r *Resolver) LPContestNFTRanks(ctx context.Context) (*lpContestNFTRanksResolver, error) {
	docs, err := r.db.FindPlain(ctx, r.contest.Collection(), bson.M{"is_eligible": true}, store.FindQuery{})
	if err != nil {
		return nil, err
	}
	return &lpContestNFTRanksResolver{total: int32(len(docs))}, nil
}

type lpContestNFTRanksResolver struct {
	total int32
}

func (n *lpContestNFTRanksResolver) L1P1Start() int32 { return 11 }
func (n *lpContestNFTRanksResolver) L1P1End() int32   { return 2 * n.total / 100 }
func (n *lpContestNFTRanksResolver) L1P2Start() int32 { return n.L1P1End() + 1 }
func (n *lpContestNFTRanksResolver) L1P2End() int32   { return 10 * n.total / 100 }
func (n *lpContestNFTRanksResolver) L1P3Start() int32 { return n.L1P2End() + 1 }
func (n *lpContestNFTRanksResolver) L1P3End() int32   { return 25 * n.total / 100 }
func (n *lpContestNFTRanksResolver) L1P4Start() int32 { return n.L1P3End() + 1 }
func (n *lpContestNFTRanksResolver) L1P4End() int32   { return 55 * n.total / 100 }
func (n *lpContestNFTRanksResolver) L1P5Start() int32 { return n.L1P4End() + 1 }
func (n *lpContestNFTRanksResolver) L1P5End() int32   { return n.total }

type volumeContestWhere struct {
	User      FieldElement
	StartDate string
}

type volumeContestArgs struct {
	First int32
	Skip  int32
	Where volumeContestWhere
}

// VolumeContest scores a user's swap volume over eight seven-day
// windows. Stable-pool volume counts at half weight and each week's
// score is capped.
func (r *Resolver) VolumeContest(ctx context.Context, args volumeContestArgs) (*volumeContestResolver, error) {
	user := string(args.Where.User)
	start, err := time.Parse("2006-01-02", args.Where.StartDate)
	if err != nil {
		return nil, fmt.Errorf("startDate: %w", err)
	}

	eligible := make(bson.A, len(r.contest.EligiblePairs))
	for i, p := range r.contest.EligiblePairs {
		eligible[i] = p.Hex()
	}
	stable := make(map[string]bool, len(r.contest.StablePairs))
	for _, p := range r.contest.StablePairs {
		stable[p.Hex()] = true
	}

	totalVolume := decimal.Zero
	totalScore := decimal.Zero
	weeks := make([]*contestWeekResolver, 0, volumeContestWeeks)
	for n := 1; n <= volumeContestWeeks; n++ {
		weekStart := start.AddDate(0, 0, 7*(n-1))
		weekEnd := start.AddDate(0, 0, 7*n).Add(-time.Millisecond)

		docs, err := r.db.FindPlain(ctx, models.CollSwaps, bson.M{
			"to":        user,
			"timestamp": bson.M{"$gte": weekStart, "$lte": weekEnd},
			"pair_id":   bson.M{"$in": eligible},
		}, store.FindQuery{Skip: int64(args.Skip), Limit: int64(args.First)})
		if err != nil {
			return nil, err
		}

		volume := decimal.Zero
		for _, doc := range docs {
			amount := models.Dec(doc, "amount_usd")
			if stable[models.Str(doc, "pair_id")] {
				amount = amount.Mul(stablePoolMultiplier)
			}
			volume = volume.Add(amount)
		}
		score := decimal.Min(volume, weeklyHardCap)

		weeks = append(weeks, &contestWeekResolver{
			id:     int32(n),
			start:  weekStart,
			end:    weekEnd,
			volume: volume,
			score:  score,
		})
		totalVolume = totalVolume.Add(volume)
		totalScore = totalScore.Add(score)
	}

	return &volumeContestResolver{
		r:           r,
		user:        user,
		weeks:       weeks,
		totalVolume: totalVolume,
		totalScore:  totalScore,
	}, nil
}

type contestWeekResolver struct {
	id     int32
	start  time.Time
	end    time.Time
	volume decimal.Decimal
	score  decimal.Decimal
}

func (w *contestWeekResolver) ID() int32       { return w.id }
func (w *contestWeekResolver) Name() string    { return fmt.Sprintf("week_%d", w.id) }
func (w *contestWeekResolver) StartDt() Time   { return Time{w.start} }
func (w *contestWeekResolver) EndDt() Time     { return Time{w.end} }
func (w *contestWeekResolver) Volume() Decimal { return Decimal{w.volume} }
func (w *contestWeekResolver) Score() Decimal  { return Decimal{w.score} }

type volumeContestResolver struct {
	r           *Resolver
	user        string
	weeks       []*contestWeekResolver
	totalVolume decimal.Decimal
	totalScore  decimal.Decimal
}

func (v *volumeContestResolver) User(ctx context.Context) (*userResolver, error) {
	return v.r.userByID(ctx, v.user)
}

func (v *volumeContestResolver) Weeks() []*contestWeekResolver { return v.weeks }
func (v *volumeContestResolver) TotalContestScore() Decimal    { return Decimal{v.totalScore} }
func (v *volumeContestResolver) TotalContestVolume() Decimal   { return Decimal{v.totalVolume} }
func (v *volumeContestResolver) NFTLevel() int32               { return volumeNFTLevel(v.totalScore) }

// volumeNFTLevel maps a total score to the published campaign tiers.
func volumeNFTLevel(score decimal.Decimal) int32 {
	between := func(lo, hi int64) bool {
		return score.GreaterThan(decimal.NewFromInt(lo)) && score.LessThanOrEqual(decimal.NewFromInt(hi))
	}
	switch {
	case score.GreaterThan(decimal.NewFromInt(8000)):
		return 1
	case between(6000, 7999):
		return 2
	case between(4000, 5999):
		return 3
	case between(2000, 3999):
		return 4
	case between(500, 1999):
		return 5
	default:
		return 0
	}
}
