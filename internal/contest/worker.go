package contest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	machinery "github.com/RichardKnop/machinery/v1"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/store"
)

// Worker executes the aggregation tasks. A block task extends the
// price series and fans out one user task per liquidity provider; a
// user task folds the provider's snapshot history into their standing.
type Worker struct {
	db      store.ReadWriter
	queue   *machinery.Server
	redis   *redis.Client
	contest *config.ContestProfile
	series  *Series
	log     zerolog.Logger

	eligible []string
}

func NewWorker(db store.ReadWriter, queue *machinery.Server, rdb *redis.Client, contest *config.ContestProfile, log zerolog.Logger) *Worker {
	eligible := make([]string, 0, len(contest.EligiblePairs))
	for _, p := range contest.EligiblePairs {
		eligible = append(eligible, p.Hex())
	}
	return &Worker{
		db:       db,
		queue:    queue,
		redis:    rdb,
		contest:  contest,
		series:   NewSeries(contest),
		log:      log.With().Str("component", "contest-worker").Logger(),
		eligible: eligible,
	}
}

// Register binds the task handlers on the shared queue.
func (w *Worker) Register() error {
	return w.queue.RegisterTasks(map[string]interface{}{
		taskAggregateBlock: w.AggregateBlock,
		taskAggregateUser:  w.AggregateUser,
	})
}

// Launch runs both queue consumers until one fails or ctx is
// canceled. Block tasks are serialized; user tasks fan out.
func (w *Worker) Launch(ctx context.Context, userConcurrency int) error {
	blocks := w.queue.NewCustomQueueWorker("blocks", 1, blockQueue(w.contest))
	users := w.queue.NewCustomQueueWorker("users", userConcurrency, userQueue(w.contest))

	errs := make(chan error, 2)
	blocks.LaunchAsync(errs)
	users.LaunchAsync(errs)

	defer blocks.Quit()
	defer users.Quit()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	}
}

func expired(expiresAt int64) bool {
	return expiresAt > 0 && time.Now().Unix() > expiresAt
}

func (w *Worker) gateKey() string {
	return w.contest.Prefix + "_last_block_done"
}

// lastBlockDone reads the newest fully-aggregated block. Gate misses
// degrade to re-aggregation, which is idempotent, so read errors only
// warn.
func (w *Worker) lastBlockDone(ctx context.Context) int64 {
	if w.redis == nil {
		return 0
	}
	val, err := w.redis.Get(ctx, w.gateKey()).Int64()
	if errors.Is(err, redis.Nil) {
		return 0
	}
	if err != nil {
		w.log.Warn().Err(err).Msg("reading aggregation gate")
		return 0
	}
	return val
}

func (w *Worker) setLastBlockDone(ctx context.Context, block int64) {
	if w.redis == nil {
		return
	}
	if err := w.redis.SetEx(ctx, w.gateKey(), block, 30*24*time.Hour).Err(); err != nil {
		w.log.Warn().Err(err).Int64("block", block).Msg("writing aggregation gate")
	}
}

// AggregateBlock scores one page of users at one checkpoint block.
// The first page extends the price series and checks the gate; a full
// page enqueues its continuation, and the final page records the
// block as done.
func (w *Worker) AggregateBlock(block, offset, expiresAt int64) error {
	ctx := context.Background()
	if expired(expiresAt) {
		w.log.Warn().Int64("block", block).Int64("offset", offset).Msg("dropping expired block task")
		return nil
	}

	if offset == 0 {
		if done := w.lastBlockDone(ctx); block <= done {
			w.log.Info().Int64("block", block).Int64("done", done).Msg("block already aggregated")
			return nil
		}
		for _, pair := range w.eligible {
			if err := w.series.Extend(ctx, w.db, pair, block); err != nil {
				return err
			}
		}
	}

	ts, err := w.blockTimestamp(ctx, block)
	if err != nil {
		return err
	}
	users, err := w.users(ctx, block)
	if err != nil {
		return err
	}

	page, done := userPage(users, offset, w.contest.PageSize)
	for _, user := range page {
		if _, err := w.queue.SendTask(userSignature(w.contest, user, block, ts.Unix())); err != nil {
			return fmt.Errorf("enqueue user %s: %w", user, err)
		}
	}
	w.log.Info().Int64("block", block).Int64("offset", offset).Int("users", len(page)).Msg("scheduled user aggregation")

	if done {
		w.setLastBlockDone(ctx, block)
		return nil
	}
	if _, err := w.queue.SendTask(blockSignature(w.contest, block, offset+w.contest.PageSize)); err != nil {
		return fmt.Errorf("enqueue continuation: %w", err)
	}
	return nil
}

// users returns every address that held an eligible-pair position at
// or before block, sorted so continuation pages stay stable.
func (w *Worker) users(ctx context.Context, block int64) ([]string, error) {
	vals, err := w.db.Distinct(ctx, models.CollLiquiditySnapshots, "user", bson.M{
		"pair_address": bson.M{"$in": w.eligible},
		"block":        bson.M{"$lte": block},
	})
	if err != nil {
		return nil, fmt.Errorf("distinct users at block %d: %w", block, err)
	}
	users := make([]string, 0, len(vals))
	for _, v := range vals {
		if s, ok := v.(string); ok {
			users = append(users, s)
		}
	}
	sort.Strings(users)
	return users, nil
}

// userPage slices one page out of the sorted user list. done reports
// that no continuation is needed.
func userPage(users []string, offset, size int64) ([]string, bool) {
	if offset >= int64(len(users)) {
		return nil, true
	}
	end := offset + size
	if end > int64(len(users)) {
		end = int64(len(users))
	}
	return users[offset:end], end-offset < size
}

// blockTimestamp returns the timestamp of the newest indexed block at
// or below number.
func (w *Worker) blockTimestamp(ctx context.Context, number int64) (time.Time, error) {
	rows, err := w.db.FindPlain(ctx, models.CollBlocks,
		bson.M{"number": bson.M{"$lte": number}},
		store.FindQuery{OrderBy: "number", Desc: true, Limit: 1})
	if err != nil {
		return time.Time{}, fmt.Errorf("block %d: %w", number, err)
	}
	if len(rows) == 0 {
		return time.Time{}, fmt.Errorf("no indexed block at or below %d", number)
	}
	return models.Time(rows[0], "timestamp"), nil
}

// AggregateUser folds a user's snapshots since their last checkpoint
// into their standing at block.
func (w *Worker) AggregateUser(user string, block, ts, expiresAt int64) error {
	if expired(expiresAt) {
		w.log.Warn().Str("user", user).Int64("block", block).Msg("dropping expired user task")
		return nil
	}
	return w.aggregateUser(context.Background(), user, block, time.Unix(ts, 0).UTC())
}

// userState is a user's running aggregate between two checkpoints.
type userState struct {
	block        int64
	ts           time.Time
	value        decimal.Decimal
	timeEligible int64
	eligible     bool

	balances map[string]decimal.Decimal
	values   map[string]decimal.Decimal
}

func (w *Worker) aggregateUser(ctx context.Context, user string, latestBlock int64, latestTs time.Time) error {
	st, err := w.loadCheckpoint(ctx, user)
	if err != nil {
		return err
	}

	snaps, err := w.db.FindDocs(ctx, models.CollLiquiditySnapshots, bson.M{
		"user":         user,
		"pair_address": bson.M{"$in": w.eligible},
		"block":        bson.M{"$gt": st.block, "$lte": latestBlock},
	}, nil, store.FindQuery{OrderBy: "block"})
	if err != nil {
		return fmt.Errorf("snapshots for %s: %w", user, err)
	}

	for i, snap := range snaps {
		block := models.Int64(snap, "block")
		pair := models.Str(snap, "pair_address")
		// Several snapshots of one position in one block collapse to
		// the last.
		if i+1 < len(snaps) {
			next := snaps[i+1]
			if models.Int64(next, "block") == block && models.Str(next, "pair_address") == pair {
				continue
			}
		}
		if err := w.advance(ctx, st, block, models.Time(snap, "timestamp")); err != nil {
			return err
		}
		balance := models.Dec(snap, "liquidity_token_balance")
		st.balances[pair] = balance
		st.values[pair] = felt.Ratio(models.Dec(snap, "reserve_usd"), models.Dec(snap, "liquidity_token_total_supply")).Mul(balance)
	}

	if err := w.advance(ctx, st, latestBlock, latestTs); err != nil {
		return err
	}
	return w.persist(ctx, user, st)
}

// loadCheckpoint resumes from the user's stored standing, falling back
// to their reconstructed state at the contest start block.
func (w *Worker) loadCheckpoint(ctx context.Context, user string) (*userState, error) {
	doc, err := w.db.FindOnePlain(ctx, w.contest.Collection(), bson.M{"user": user})
	if err != nil {
		return nil, fmt.Errorf("checkpoint for %s: %w", user, err)
	}
	if doc == nil {
		return w.initialState(ctx, user)
	}
	return &userState{
		block:        models.Int64(doc, "block"),
		ts:           models.Time(doc, "timestamp"),
		value:        models.Dec(doc, "contest_value"),
		timeEligible: models.Int64(doc, "total_time_eligible"),
		eligible:     models.Bool(doc, "is_eligible"),
		balances:     models.DecMap(doc, "lp_token_balances"),
		values:       models.DecMap(doc, "lp_values"),
	}, nil
}

// initialState prices the user's holdings as of the contest start
// block from their latest pre-start snapshot in each eligible pair.
func (w *Worker) initialState(ctx context.Context, user string) (*userState, error) {
	start := w.contest.StartBlock
	ts, err := w.blockTimestamp(ctx, start)
	if err != nil {
		return nil, err
	}
	st := &userState{
		block:    start,
		ts:       ts,
		balances: map[string]decimal.Decimal{},
		values:   map[string]decimal.Decimal{},
	}

	vals, err := w.db.Distinct(ctx, models.CollLiquiditySnapshots, "pair_address", bson.M{
		"user":         user,
		"pair_address": bson.M{"$in": w.eligible},
		"block":        bson.M{"$lt": start},
	})
	if err != nil {
		return nil, fmt.Errorf("pre-start pairs for %s: %w", user, err)
	}

	for _, v := range vals {
		pair, ok := v.(string)
		if !ok {
			continue
		}
		snaps, err := w.db.FindDocs(ctx, models.CollLiquiditySnapshots, bson.M{
			"user":         user,
			"pair_address": pair,
			"block":        bson.M{"$lt": start},
		}, nil, store.FindQuery{OrderBy: "block", Desc: true, Limit: 1})
		if err != nil {
			return nil, fmt.Errorf("pre-start snapshot for %s in %s: %w", user, pair, err)
		}
		if len(snaps) == 0 {
			continue
		}
		balance := models.Dec(snaps[0], "liquidity_token_balance")
		if balance.IsZero() {
			continue
		}

		state, err := w.db.FindOneDoc(ctx, models.CollPairs, bson.M{"id": pair}, &start)
		if err != nil {
			return nil, fmt.Errorf("pair %s at block %d: %w", pair, start, err)
		}
		if state == nil {
			continue
		}
		st.balances[pair] = balance
		st.values[pair] = felt.Ratio(models.Dec(state, "reserve_usd"), models.Dec(state, "total_supply")).Mul(balance)
	}
	return st, nil
}

// advance accrues the span (st.block, block]: each balance times the
// growth of its pair's time-weighted price sum, plus eligible seconds
// while total holdings stay above the threshold.
func (w *Worker) advance(ctx context.Context, st *userState, block int64, ts time.Time) error {
	if block <= st.block {
		return nil
	}

	contribution := decimal.Zero
	for pair, balance := range st.balances {
		if balance.IsZero() {
			continue
		}
		cumNow, err := w.timeCumAt(ctx, pair, block)
		if err != nil {
			return err
		}
		cumThen, err := w.timeCumAt(ctx, pair, st.block)
		if err != nil {
			return err
		}
		contribution = contribution.Add(balance.Mul(cumNow.Sub(cumThen)))
	}

	total := decimal.Zero
	for _, v := range st.values {
		total = total.Add(v)
	}
	if total.GreaterThan(w.contest.MinValueUSD) {
		st.timeEligible += int64(ts.Sub(st.ts) / time.Second)
		if st.timeEligible > w.contest.MinSeconds {
			st.eligible = true
		}
	}

	st.value = st.value.Add(contribution)
	st.block = block
	st.ts = ts
	return nil
}

// timeCumAt reads the time-weighted cumulative price of pair at the
// newest series row at or below block. Zero before the series starts.
func (w *Worker) timeCumAt(ctx context.Context, pair string, block int64) (decimal.Decimal, error) {
	rows, err := w.db.FindPlain(ctx, models.CollCumulativePrices, bson.M{
		"pair":  pair,
		"block": bson.M{"$lte": block},
	}, store.FindQuery{OrderBy: "block", Desc: true, Limit: 1})
	if err != nil {
		return decimal.Zero, fmt.Errorf("series for %s at %d: %w", pair, block, err)
	}
	if len(rows) == 0 {
		return decimal.Zero, nil
	}
	return models.Dec(rows[0], "time_cum_price_usd"), nil
}

// persist journals the state and replaces the user's standing row.
func (w *Worker) persist(ctx context.Context, user string, st *userState) error {
	total := decimal.Zero
	balances := bson.M{}
	values := bson.M{}
	for pair, b := range st.balances {
		balances[pair] = models.D(b)
	}
	for pair, v := range st.values {
		values[pair] = models.D(v)
		total = total.Add(v)
	}

	row := bson.M{
		"user":                user,
		"block":               st.block,
		"timestamp":           st.ts,
		"contest_value":       models.D(st.value),
		"total_lp_value":      models.D(total),
		"total_time_eligible": st.timeEligible,
		"is_eligible":         st.eligible,
		"lp_token_balances":   balances,
		"lp_values":           values,
	}
	if err := w.db.InsertPlain(ctx, w.contest.BlockCollection(), row); err != nil {
		return fmt.Errorf("journal %s: %w", user, err)
	}
	if err := w.db.ReplacePlain(ctx, w.contest.Collection(), bson.M{"user": user}, row, true); err != nil {
		return fmt.Errorf("standings %s: %w", user, err)
	}
	w.log.Debug().Str("user", user).Int64("block", st.block).Str("value", st.value.String()).Msg("user aggregated")
	return nil
}
