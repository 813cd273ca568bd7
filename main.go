package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"

	"swapscan/internal/chain"
	"swapscan/internal/config"
	"swapscan/internal/contest"
	"swapscan/internal/indexer"
	"swapscan/internal/server"
	"swapscan/internal/store"
)

// BuildCommit is set at build time via -ldflags.
var BuildCommit = "dev"

func main() {
	// Best effort; the environment wins over the file.
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	app := &cli.App{
		Name:    "swapscan",
		Usage:   "AMM exchange indexer, contest worker and GraphQL server",
		Version: BuildCommit,
		Commands: []*cli.Command{
			indexerCommand(log),
			serverCommand(log),
			workerCommand(log),
		},
	}
	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("swapscan exited")
	}
}

func indexerCommand(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "indexer",
		Usage: "consume the block stream and index exchange state",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "restart",
				Usage: "drop all indexed state and start over from the profile's start block",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.StreamURL == "" {
				return fmt.Errorf("STREAM_URL is required")
			}
			if cfg.MongoURL == "" {
				return fmt.Errorf("MONGO_URL is required")
			}
			if cfg.RPCURL == "" {
				return fmt.Errorf("RPC_URL is required")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Connect(ctx, cfg.MongoURL, cfg.DatabaseName())
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			caller, err := chain.Dial(ctx, chain.Config{
				URL: cfg.RPCURL,
				RPS: envFloat("RPC_RATE_LIMIT_RPS", 10),
			})
			if err != nil {
				return err
			}
			defer caller.Close()

			var ticker indexer.Ticker
			if cfg.Profile.Contest.Enabled() {
				if cfg.RedisURL == "" {
					return fmt.Errorf("REDIS_URL is required when a contest window is configured")
				}
				queue, err := contest.NewQueue(cfg.RedisURL, &cfg.Profile.Contest)
				if err != nil {
					return err
				}
				ticker = contest.NewScheduler(queue, &cfg.Profile.Contest, log)
			}

			log.Info().
				Str("indexer_id", cfg.IndexerID).
				Int64("start_block", cfg.Profile.StartBlock).
				Bool("restart", c.Bool("restart")).
				Msg("starting indexer")

			svc := indexer.NewService(st, caller, &cfg.Profile, ticker, indexer.Config{
				StreamURL: cfg.StreamURL,
				Restart:   c.Bool("restart"),
			}, log)
			return svc.Start(ctx)
		},
	}
}

func serverCommand(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "server",
		Usage: "serve the GraphQL query API",
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.MongoURL == "" {
				return fmt.Errorf("MONGO_URL is required")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Connect(ctx, cfg.MongoURL, cfg.DatabaseName())
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			srv, err := server.NewServer(st, &cfg.Profile.Contest, strconv.Itoa(cfg.Port), log)
			if err != nil {
				return err
			}

			errs := make(chan error, 1)
			go func() { errs <- srv.Start() }()

			select {
			case err := <-errs:
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}

func workerCommand(log zerolog.Logger) *cli.Command {
	return &cli.Command{
		Name:  "worker",
		Usage: "run the contest aggregation queue consumers",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:  "concurrency",
				Value: 10,
				Usage: "parallel user aggregation tasks",
			},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if cfg.MongoURL == "" {
				return fmt.Errorf("MONGO_URL is required")
			}
			if cfg.RedisURL == "" {
				return fmt.Errorf("REDIS_URL is required")
			}
			if !cfg.Profile.Contest.Enabled() {
				return fmt.Errorf("profile has no contest window configured")
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			st, err := store.Connect(ctx, cfg.MongoURL, cfg.DatabaseName())
			if err != nil {
				return err
			}
			defer st.Close(context.Background())

			if err := st.EnsureContestIndexes(ctx, cfg.Profile.Contest.Prefix); err != nil {
				return err
			}

			queue, err := contest.NewQueue(cfg.RedisURL, &cfg.Profile.Contest)
			if err != nil {
				return err
			}

			opts, err := redis.ParseURL(cfg.RedisURL)
			if err != nil {
				return fmt.Errorf("parse REDIS_URL: %w", err)
			}
			rdb := redis.NewClient(opts)
			defer rdb.Close()

			w := contest.NewWorker(st, queue, rdb, &cfg.Profile.Contest, log)
			if err := w.Register(); err != nil {
				return err
			}

			concurrency := c.Int("concurrency")
			log.Info().
				Str("contest", cfg.Profile.Contest.Prefix).
				Int("concurrency", concurrency).
				Msg("starting contest worker")
			return w.Launch(ctx, concurrency)
		},
	}
}

func envFloat(key string, fallback float64) float64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return n
}
