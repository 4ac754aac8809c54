// clean-db truncates scanner PostgreSQL tables to free space.
// Usage: set POSTGRES_DSN (same as for the scanner), then run:
//
//	go run ./cmd/clean-db
//	# or
//	POSTGRES_DSN='host=... port=5432 user=... password=... dbname=... sslmode=require' ./clean-db
package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/config"
	"github.com/vchatzisotiriou/my-ArbitrageBot/internal/pkg/storage"
)

func main() {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN environment variable is required")
	}

	pg, err := storage.NewPostgresStorage(&config.PostgresConfig{DSN: dsn})
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pg.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pg.CleanTables(ctx); err != nil {
		log.Fatalf("Failed to clean tables: %v", err)
	}

	log.Println("Done. Scanner tables cleared.")
}
