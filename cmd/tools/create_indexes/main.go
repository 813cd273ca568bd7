package main

import (
	"context"
	"fmt"
	"log"

	"github.com/joho/godotenv"

	"swapscan/internal/config"
	"swapscan/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.MongoURL == "" {
		log.Fatal("MONGO_URL is required")
	}

	ctx := context.Background()
	st, err := store.Connect(ctx, cfg.MongoURL, cfg.DatabaseName())
	if err != nil {
		log.Fatalf("connect: %v", err)
	}
	defer st.Close(ctx)

	if err := st.EnsureIndexes(ctx); err != nil {
		log.Fatalf("create indexes: %v", err)
	}
	fmt.Printf("Entity indexes created on database %q.\n", cfg.DatabaseName())

	if contest := cfg.Profile.Contest; contest.Enabled() {
		if err := st.EnsureContestIndexes(ctx, contest.Prefix); err != nil {
			log.Fatalf("create contest indexes: %v", err)
		}
		fmt.Printf("Contest indexes created for %q.\n", contest.Prefix)
	}
}
