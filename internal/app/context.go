package app

import (
	"log/slog"

	"github.com/hamdam-bot/hamdam/internal/kv"
	"gorm.io/gorm"
)

// AppContext holds shared dependencies (audit DB, Redis-backed KV store, logger).
type AppContext struct {
	DB     *gorm.DB
	KV     *kv.Store
	Logger *slog.Logger
}

// New creates a new AppContext
func New(db *gorm.DB, store *kv.Store, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:     db,
		KV:     store,
		Logger: logger,
	}
}
