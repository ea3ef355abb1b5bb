package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"gorm.io/gorm"

	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/repository"
)

var seedNames = []string{
	"علی", "رضا", "محمد", "حسین", "امیر",
	"سارا", "مریم", "زهرا", "فاطمه", "نرگس",
}

// SeedTestData resets both stores and populates them with demo data.
//
// Behavior:
//  1. Clears the `reports` and `chat_archives` tables.
//  2. Flushes the Redis database (development only; this is destructive).
//  3. Creates 10 demo users (5 male, 5 female) with random coin balances.
//  4. Files a couple of reports so the admin views have something to show.
//
// Compatible with both MySQL and SQLite.
func SeedTestData(ctx context.Context, db *gorm.DB, store *kv.Store) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	// --- Fresh start ---
	if err := db.Exec("DELETE FROM reports").Error; err != nil {
		return fmt.Errorf("failed to clear reports: %w", err)
	}
	if err := db.Exec("DELETE FROM chat_archives").Error; err != nil {
		return fmt.Errorf("failed to clear chat archives: %w", err)
	}
	if err := store.Client.FlushDB(ctx).Err(); err != nil {
		return fmt.Errorf("failed to flush redis: %w", err)
	}

	log.Println("Cleared existing data")

	// --- Seed users (5 male, 5 female) ---
	users := repository.NewUserRepository(store)
	for i, name := range seedNames {
		gender := repository.GenderMale
		if i >= 5 {
			gender = repository.GenderFemale
		}

		u := &repository.User{
			TelegramID: int64(1000 + i),
			Name:       name,
			Gender:     gender,
			Province:   "تهران",
			City:       "تهران",
			Age:        18 + r.Intn(20),
			ProfilePic: fmt.Sprintf("seed-photo-%d", i),
			Coins:      int64(5 + r.Intn(50)),
		}
		if err := users.Create(ctx, u); err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}
	}
	log.Println("Seeded 10 users.")

	// --- Seed a few reports ---
	reports := repository.NewReportRepository(db)
	if err := reports.Create(ctx, 1000, 1005, "seeded report"); err != nil {
		return fmt.Errorf("failed to seed report: %w", err)
	}
	if err := reports.Create(ctx, 1001, 1005, "seeded report"); err != nil {
		return fmt.Errorf("failed to seed report: %w", err)
	}

	return nil
}
