package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/repository"
)

// setup in-memory Redis
func setupKV(t *testing.T) *kv.Store {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("failed to start miniredis: %v", err)
	}
	t.Cleanup(func() { mr.Close() })
	return kv.NewStoreFromClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
}

func TestCreateAndGetUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	u := &repository.User{
		TelegramID: 42,
		Name:       "علی",
		Gender:     repository.GenderMale,
		Province:   "تهران",
		City:       "تهران",
		Age:        25,
		ProfilePic: "photo-ref",
		Coins:      15,
	}
	require.NoError(t, repo.Create(ctx, u))
	assert.Equal(t, uint64(1), u.ID)
	assert.Equal(t, "ref_42", u.ReferralCode)

	got, err := repo.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, u.Name, got.Name)
	assert.Equal(t, u.Gender, got.Gender)
	assert.Equal(t, u.Age, got.Age)
	assert.Equal(t, int64(15), got.Coins)
	assert.Equal(t, "ref_42", got.ReferralCode)
	assert.False(t, got.RegisteredAt.IsZero())
	assert.False(t, got.Banned(got.RegisteredAt))
}

func TestGetUnknownUser(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	_, err := repo.Get(ctx, 99)
	assert.ErrorIs(t, err, svcErr.ErrNotFound)

	exists, err := repo.Exists(ctx, 99)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUserIDsAreSequential(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	for i := int64(1); i <= 3; i++ {
		u := &repository.User{TelegramID: 100 + i, Name: "user", Gender: repository.GenderFemale}
		require.NoError(t, repo.Create(ctx, u))
		assert.Equal(t, uint64(i), u.ID)
	}
}

func TestGetByReferralCode(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	require.NoError(t, repo.Create(ctx, &repository.User{TelegramID: 42, Name: "علی", Gender: repository.GenderMale}))

	got, err := repo.GetByReferralCode(ctx, "ref_42")
	require.NoError(t, err)
	assert.Equal(t, int64(42), got.TelegramID)

	_, err = repo.GetByReferralCode(ctx, "ref_999")
	assert.ErrorIs(t, err, svcErr.ErrNotFound)
}

func TestDebitCoins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	require.NoError(t, repo.Create(ctx, &repository.User{TelegramID: 1, Name: "علی", Gender: repository.GenderMale, Coins: 5}))

	bal, err := repo.DebitCoins(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), bal)

	// A short balance refuses and leaves the balance alone.
	_, err = repo.DebitCoins(ctx, 1, 3)
	assert.ErrorIs(t, err, svcErr.ErrInsufficientCoins)

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Coins)
}

func TestDebitUpToStopsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	require.NoError(t, repo.Create(ctx, &repository.User{TelegramID: 1, Name: "علی", Gender: repository.GenderMale, Coins: 1}))

	bal, err := repo.DebitUpTo(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)

	// Already empty: nothing to take.
	bal, err = repo.DebitUpTo(ctx, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(0), bal)
}

func TestAddCoins(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	require.NoError(t, repo.Create(ctx, &repository.User{TelegramID: 1, Name: "علی", Gender: repository.GenderMale, Coins: 5}))

	bal, err := repo.AddCoins(ctx, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(15), bal)
}

func TestBannedUntil(t *testing.T) {
	ctx := context.Background()
	repo := repository.NewUserRepository(setupKV(t))

	require.NoError(t, repo.Create(ctx, &repository.User{TelegramID: 1, Name: "علی", Gender: repository.GenderMale}))

	now := time.Now().UTC()
	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.False(t, got.Banned(now))

	until := now.Add(24 * time.Hour)
	require.NoError(t, repo.SetBannedUntil(ctx, 1, until))

	got, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, got.Banned(now))
	assert.False(t, got.Banned(until.Add(time.Second)))

	// Lifting the ban.
	require.NoError(t, repo.SetBannedUntil(ctx, 1, time.Time{}))
	got, err = repo.Get(ctx, 1)
	require.NoError(t, err)
	assert.False(t, got.Banned(now))
}
