// Package config loads runtime configuration from the environment and
// an optional YAML chain profile.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

const (
	// DefaultIndexerID names the deployment when INDEXER_ID is unset.
	// The Mongo database name is derived from it.
	DefaultIndexerID = "swapscan-mainnet-1"

	// DefaultPort is the GraphQL listen port when PORT is unset.
	DefaultPort = 8000
)

// Config carries every runtime setting shared by the indexer, the
// GraphQL server and the contest worker.
type Config struct {
	// StreamURL is the websocket endpoint of the chain event stream.
	StreamURL string
	// MongoURL is the connection string of the Mongo deployment.
	MongoURL string
	// RPCURL is the JSON-RPC endpoint used for contract calls.
	RPCURL string
	// RedisURL is the broker behind the contest task queue.
	RedisURL string
	// IndexerID names this deployment and derives the database name.
	IndexerID string
	// Port is the GraphQL listen port.
	Port int

	// Profile holds the chain addresses and contest parameters.
	Profile ChainProfile
}

// FromEnv builds a Config from the process environment. Required
// variables are checked per command, not here, so every command can
// start with only the settings it needs.
func FromEnv() (*Config, error) {
	cfg := &Config{
		StreamURL: os.Getenv("STREAM_URL"),
		MongoURL:  os.Getenv("MONGO_URL"),
		RPCURL:    os.Getenv("RPC_URL"),
		RedisURL:  os.Getenv("REDIS_URL"),
		IndexerID: envOr("INDEXER_ID", DefaultIndexerID),
		Port:      DefaultPort,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", v, err)
		}
		cfg.Port = port
	}

	cfg.Profile = MainnetProfile()
	if path := os.Getenv("SWAPSCAN_CONFIG"); path != "" {
		profile, err := LoadProfile(path)
		if err != nil {
			return nil, err
		}
		cfg.Profile = *profile
	}

	return cfg, nil
}

// DatabaseName derives the Mongo database name from the indexer id.
// Mongo forbids dashes in database names.
func (c *Config) DatabaseName() string {
	return strings.ReplaceAll(c.IndexerID, "-", "_")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
