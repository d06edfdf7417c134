package main

import (
	"context"
	"flag"
	"log"
	"os"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/migrate"
	"storefront/internal/seed"
)

func main() {
	var withMigrate bool
	flag.BoolVar(&withMigrate, "migrate", true, "Apply pending migrations before seeding")
	flag.Parse()

	cfg := config.FromEnv()
	logger := log.New(os.Stdout, "[seed] ", log.LstdFlags|log.LUTC|log.Lshortfile)

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString)
	if err != nil {
		logger.Fatalf("connect db: %v", err)
	}
	defer pool.Close()

	if withMigrate {
		if err := migrate.Apply(ctx, pool); err != nil {
			logger.Fatalf("apply migrations: %v", err)
		}
	}
	if err := seed.Apply(ctx, pool, logger); err != nil {
		logger.Fatalf("seed demo data: %v", err)
	}
	logger.Printf("demo accounts use password %q", seed.DemoPassword)
}
