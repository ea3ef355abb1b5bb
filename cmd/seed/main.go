package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"

	"github.com/hamdam-bot/hamdam/internal/config"
	"github.com/hamdam-bot/hamdam/internal/db"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/seed"
)

func main() {
	_ = godotenv.Load(".env")

	cfg := config.New()

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("failed to init db: %v", err)
	}

	store := kv.NewStore(cfg)
	if err := store.Ping(context.Background()); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	if err := seed.SeedTestData(context.Background(), database, store); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	log.Println("Seeding completed.")
}
