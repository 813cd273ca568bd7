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

	before, err := st.Cursor(ctx)
	if err != nil {
		log.Fatalf("read cursor: %v", err)
	}
	if err := st.ResetCursor(ctx); err != nil {
		log.Fatalf("reset cursor: %v", err)
	}

	if before == 0 {
		fmt.Println("No cursor found. It might have already been reset or never existed.")
	} else {
		fmt.Printf("Deleted cursor at block %d. The indexer will resume from the profile's start block on next run.\n", before)
	}
}
