package contest

import (
	"context"
	"fmt"

	machinery "github.com/RichardKnop/machinery/v1"
	"github.com/rs/zerolog"

	"swapscan/internal/config"
)

// Scheduler enqueues one block-aggregation task per contest checkpoint.
// The indexer calls OnBlock with the previous block number before it
// applies a new block, so a checkpoint is only scheduled once every
// entity version at that height exists.
type Scheduler struct {
	queue   *machinery.Server
	contest *config.ContestProfile
	log     zerolog.Logger
}

func NewScheduler(queue *machinery.Server, contest *config.ContestProfile, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		queue:   queue,
		contest: contest,
		log:     log.With().Str("component", "contest-scheduler").Logger(),
	}
}

// OnBlock enqueues an aggregation task when block is a checkpoint
// inside the contest window. Off-cadence blocks are a no-op.
func (s *Scheduler) OnBlock(ctx context.Context, block int64) error {
	if block < s.contest.StartBlock || block > s.contest.EndBlock {
		return nil
	}
	if block%s.contest.Interval != 0 {
		return nil
	}

	if _, err := s.queue.SendTaskWithContext(ctx, blockSignature(s.contest, block, 0)); err != nil {
		return fmt.Errorf("enqueue block %d: %w", block, err)
	}
	s.log.Info().Int64("block", block).Msg("enqueued block aggregation")
	return nil
}
