package repository

import (
	"context"

	"github.com/hamdam-bot/hamdam/internal/db"
	"gorm.io/gorm"
)

// ChatArchiveRepository persists a row per ended session.
type ChatArchiveRepository struct {
	db *gorm.DB
}

func NewChatArchiveRepository(database *gorm.DB) *ChatArchiveRepository {
	return &ChatArchiveRepository{db: database}
}

func (r *ChatArchiveRepository) Create(ctx context.Context, rec *db.ChatArchive) error {
	return r.db.WithContext(ctx).Create(rec).Error
}

// CountForUser returns how many archived chats the user appears in, on
// either side of the pair.
func (r *ChatArchiveRepository) CountForUser(ctx context.Context, userID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.ChatArchive{}).
		Where("user_a_id = ? OR user_b_id = ?", userID, userID).
		Count(&count).Error
	return count, err
}
