// Package contest scores liquidity providers over a fixed block
// window. The indexer tick enqueues one aggregation task per
// checkpoint block; workers extend the per-pair cumulative price
// series and fold each user's position history into a running score.
package contest

import (
	"fmt"
	"time"

	machinery "github.com/RichardKnop/machinery/v1"
	machineryconfig "github.com/RichardKnop/machinery/v1/config"
	"github.com/RichardKnop/machinery/v1/tasks"

	"swapscan/internal/config"
)

const (
	taskAggregateBlock = "aggregate_block"
	taskAggregateUser  = "aggregate_user"
)

// NewQueue opens the machinery server backed by the contest's Redis
// broker. The scheduler and the worker processes share it.
func NewQueue(redisURL string, contest *config.ContestProfile) (*machinery.Server, error) {
	cnf := &machineryconfig.Config{
		Broker:          redisURL,
		DefaultQueue:    contest.Prefix + "_tasks",
		ResultBackend:   redisURL,
		ResultsExpireIn: 3600,
	}
	server, err := machinery.NewServer(cnf)
	if err != nil {
		return nil, fmt.Errorf("machinery server: %w", err)
	}
	return server, nil
}

// Block and user tasks ride separate queues so one slow fan-out cannot
// starve the per-user workers.

func blockQueue(contest *config.ContestProfile) string {
	return contest.Prefix + "_blocks"
}

func userQueue(contest *config.ContestProfile) string {
	return contest.Prefix + "_users"
}

// Tasks expire by argument rather than broker feature: each signature
// carries an expires_at unix timestamp and the handler drops the task
// when it is picked up too late.

func blockSignature(contest *config.ContestProfile, block, offset int64) *tasks.Signature {
	expiresAt := time.Now().Unix() + contest.BlockTaskTTLSeconds
	return &tasks.Signature{
		Name:       taskAggregateBlock,
		RoutingKey: blockQueue(contest),
		Args: []tasks.Arg{
			{Name: "block", Type: "int64", Value: block},
			{Name: "offset", Type: "int64", Value: offset},
			{Name: "expires_at", Type: "int64", Value: expiresAt},
		},
	}
}

func userSignature(contest *config.ContestProfile, user string, block int64, ts int64) *tasks.Signature {
	expiresAt := time.Now().Unix() + contest.UserTaskTTLSeconds
	return &tasks.Signature{
		Name:       taskAggregateUser,
		RoutingKey: userQueue(contest),
		Args: []tasks.Arg{
			{Name: "user", Type: "string", Value: user},
			{Name: "block", Type: "int64", Value: block},
			{Name: "timestamp", Type: "int64", Value: ts},
			{Name: "expires_at", Type: "int64", Value: expiresAt},
		},
	}
}
