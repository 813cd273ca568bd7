// Package indexer drives the exchange state machine. It consumes the
// finalized block stream, decodes the factory and pair events, and
// applies them to the versioned store in strict block order. Pairs
// discovered at runtime widen the stream subscription on the fly, and
// the stored cursor lets a restarted process resume where it stopped.
package indexer

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"

	"swapscan/internal/config"
	"swapscan/internal/felt"
	"swapscan/internal/models"
	"swapscan/internal/pricing"
	"swapscan/internal/store"
	"swapscan/internal/stream"
)

// Ticker is notified once per block, before the block's events are
// applied. The contest scheduler implements it to enqueue aggregation
// work at its own cadence.
type Ticker interface {
	OnBlock(ctx context.Context, block int64) error
}

// Config carries the runtime settings of one indexing run.
type Config struct {
	StreamURL string
	// Restart drops the whole database so the run starts over from the
	// profile's start block.
	Restart bool
	// ReconnectWait is the pause between stream reconnect attempts.
	ReconnectWait time.Duration
}

// Service owns the stream subscription and applies blocks as they
// arrive.
type Service struct {
	store    *store.Store
	handlers *Handlers
	profile  *config.ChainProfile
	ticker   Ticker
	cfg      Config
	log      zerolog.Logger
	filter   stream.Filter
}

// NewService wires the indexing runtime. ticker may be nil when no
// contest is configured.
func NewService(st *store.Store, chain TokenReader, profile *config.ChainProfile, ticker Ticker, cfg Config, log zerolog.Logger) *Service {
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 5 * time.Second
	}
	log = log.With().Str("component", "indexer").Logger()
	return &Service{
		store:    st,
		handlers: NewHandlers(chain, pricing.NewOracle(profile), profile, log),
		profile:  profile,
		ticker:   ticker,
		cfg:      cfg,
		log:      log,
	}
}

// Start runs the indexing loop until ctx is cancelled. Stream failures
// reconnect from the stored cursor indefinitely; storage and contract
// failures abort the run so a supervisor can restart it cleanly.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.Restart {
		s.log.Info().Msg("restart requested, dropping indexed state")
		if err := s.store.Drop(ctx); err != nil {
			return err
		}
	}
	if err := s.store.EnsureIndexes(ctx); err != nil {
		return err
	}

	for {
		if err := s.run(ctx); err != nil {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.ReconnectWait):
		}
		s.log.Info().Msg("reconnecting")
	}
}

// run processes one stream session: subscribe at the cursor and apply
// blocks until the connection drops. A nil return means the session
// ended on a stream error and should be retried.
func (s *Service) run(ctx context.Context) error {
	cursor, err := s.store.Cursor(ctx)
	if err != nil {
		return err
	}
	if cursor == 0 {
		cursor = s.profile.StartBlock - 1
	}

	filter, err := s.buildFilter(ctx)
	if err != nil {
		return err
	}
	s.filter = filter

	client, err := stream.Dial(ctx, s.cfg.StreamURL)
	if err != nil {
		s.log.Warn().Err(err).Msg("stream dial failed")
		return nil
	}
	defer client.Close()

	if err := client.Subscribe(s.filter, cursor); err != nil {
		s.log.Warn().Err(err).Msg("subscribe failed")
		return nil
	}
	s.log.Info().Int64("cursor", cursor).Int("subscriptions", len(s.filter.Events)).Msg("subscribed")

	for {
		block, err := client.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.log.Warn().Err(err).Msg("stream closed")
			return nil
		}
		if err := s.processBlock(ctx, client, block); err != nil {
			return err
		}
	}
}

// buildFilter assembles the subscription: the factory's PairCreated
// plus the five pair event keys of every pair already indexed, so a
// resumed run keeps following its pairs.
func (s *Service) buildFilter(ctx context.Context) (stream.Filter, error) {
	filter := stream.Filter{WeakHeader: true}
	filter.Add(s.profile.Factory, keyPairCreated)

	pairs, err := s.store.FindDocs(ctx, models.CollPairs, bson.M{}, nil, store.FindQuery{OrderBy: "created_at_block"})
	if err != nil {
		return stream.Filter{}, err
	}
	for _, pair := range pairs {
		addr, err := felt.Parse(models.Str(pair, "id"))
		if err != nil {
			return stream.Filter{}, fmt.Errorf("pair id %q: %w", models.Str(pair, "id"), err)
		}
		for _, key := range pairEventKeys {
			filter.Add(addr, key)
		}
	}
	return filter, nil
}

// processBlock applies one block inside a write session pinned to its
// number: the contest tick and header row first, then every event in
// order, then the cursor.
func (s *Service) processBlock(ctx context.Context, client *stream.Client, block *stream.Block) error {
	number := block.Header.Number
	sess := s.store.Session(number)

	s.log.Info().Int64("block", number).Int("events", len(block.Events)).Msg("handle block")

	if s.ticker != nil {
		if err := s.ticker.OnBlock(ctx, number-1); err != nil {
			return fmt.Errorf("contest tick at block %d: %w", number, err)
		}
	}

	err := sess.InsertOne(ctx, models.CollBlocks, bson.M{
		"number":      number,
		"hash":        block.Header.Hash.Hex(),
		"parent_hash": block.Header.ParentHash.Hex(),
		"timestamp":   block.Header.Timestamp,
	})
	if err != nil {
		return err
	}

	if len(block.Events) > 0 {
		ethPrice, err := s.handlers.oracle.EthPrice(ctx, sess)
		if err != nil {
			return err
		}
		bc := &BlockContext{
			Number:    number,
			Hash:      block.Header.Hash,
			Timestamp: block.Header.Timestamp,
			EthPrice:  ethPrice,
		}
		for i := range block.Events {
			pair, err := s.handlers.Handle(ctx, sess, bc, &block.Events[i])
			if err != nil {
				return fmt.Errorf("block %d event %d: %w", number, i, err)
			}
			if !pair.IsZero() {
				if err := s.follow(client, pair); err != nil {
					return err
				}
			}
		}
	}

	return s.store.SaveCursor(ctx, number)
}

// follow widens the live subscription with the five event keys of a
// freshly created pair.
func (s *Service) follow(client *stream.Client, pair felt.Felt) error {
	for _, key := range pairEventKeys {
		s.filter.Add(pair, key)
	}
	if err := client.UpdateFilter(s.filter); err != nil {
		return fmt.Errorf("widen filter for pair %s: %w", pair.Hex(), err)
	}
	s.log.Info().Str("pair", pair.Hex()).Msg("following new pair")
	return nil
}
