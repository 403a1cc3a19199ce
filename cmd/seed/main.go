package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"credits-engine/internal/config"
	pg "credits-engine/internal/infra/db/postgres"
	"credits-engine/internal/infra/db/seed"
	"credits-engine/internal/infra/logging"
	"credits-engine/internal/infra/web"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	mintAdmin := flag.String("mint-admin", "", "also print an admin bearer token for this subject")
	flag.Parse()

	// ---- Config ----
	cfg, err := config.LoadConfig(*cfgPath, false)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger := logging.New(cfg.Log, true)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// Connect Postgres
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, 4)
	if err != nil {
		log.Fatalf("postgres: %v", err)
	}
	defer pool.Close()

	n, err := seed.Catalog(ctx, pg.NewPostgresPlanRepo(pool), pg.NewPostgresTemplateRepo(pool), cfg.Orders.Currency, logger)
	if err != nil {
		log.Fatalf("seed: %v", err)
	}
	if n > 0 {
		fmt.Printf("✅ Seeded %d plans.\n", n)
	}

	if *mintAdmin != "" {
		token, err := web.NewAuthManager(cfg.Auth.JWTSecret, 30*24*time.Hour).Mint(*mintAdmin, web.RoleAdmin)
		if err != nil {
			log.Fatalf("mint token: %v", err)
		}
		fmt.Println(token)
	}
}
