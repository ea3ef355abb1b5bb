package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/hamdam-bot/hamdam/internal/db"
	"github.com/hamdam-bot/hamdam/internal/repository"
)

// setup in-memory DB
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc: func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
	})
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	if err := database.AutoMigrate(&db.Report{}, &db.ChatArchive{}); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return database
}

func TestCreateReportAndCount(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewReportRepository(dbase)

	require.NoError(t, repo.Create(ctx, 1, 99, "spam"))
	require.NoError(t, repo.Create(ctx, 2, 99, "abuse"))
	require.NoError(t, repo.Create(ctx, 99, 1, "retaliation"))

	n, err := repo.CountAgainstUser(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountAgainstUser(ctx, 7)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChatArchiveCountsBothSides(t *testing.T) {
	ctx := context.Background()
	dbase := setupTestDB(t)
	repo := repository.NewChatArchiveRepository(dbase)

	started := time.Now().UTC().Add(-time.Minute)
	require.NoError(t, repo.Create(ctx, &db.ChatArchive{
		UserAID: 1, UserBID: 2, StartedAt: started, EndedAt: time.Now().UTC(), EndedBy: 1,
	}))
	require.NoError(t, repo.Create(ctx, &db.ChatArchive{
		UserAID: 3, UserBID: 1, StartedAt: started, EndedAt: time.Now().UTC(), EndedBy: 3, Reported: true,
	}))

	n, err := repo.CountForUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = repo.CountForUser(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
