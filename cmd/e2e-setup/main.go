package main

import (
	"context"
	"flag"
	"log"

	"credits-engine/internal/config"
	"credits-engine/internal/infra/db/postgres"
	"credits-engine/internal/infra/db/seed"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/redis"
)

// This script is for setting up a clean, predictable database state
// for manual end-to-end testing.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()
	ctx := context.Background()

	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	// --- Connect to Postgres ---
	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	// 1. Clean the Redis cache, locks and rate-limit counters.
	if cfg.Redis.URL != "" {
		log.Println("[1/3] Wiping Redis...")
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Fatalf("redis connection failed: %v", err)
		}
		defer redisClient.Close()
		if err := redisClient.FlushDB(ctx); err != nil {
			log.Fatalf("failed to flush redis: %v", err)
		}
	} else {
		log.Println("[1/3] Redis not configured, skipping")
	}

	// 2. Clean the database completely.
	log.Println("[2/3] Wiping all existing database data...")
	_, err = pool.Exec(ctx, `TRUNCATE orders, users, templates, plans RESTART IDENTITY CASCADE;`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	// 3. Seed the default catalog.
	log.Println("[3/3] Seeding plans and templates...")
	if _, err := seed.Catalog(ctx, postgres.NewPostgresPlanRepo(pool), postgres.NewPostgresTemplateRepo(pool), cfg.Orders.Currency, logger); err != nil {
		log.Fatalf("failed to seed catalog: %v", err)
	}

	log.Println("--- ✅ E2E Environment Setup Complete ---")
}
