package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/redis/go-redis/v9"
)

// Canonical gender labels stored on the user record and in waiting buckets.
// The Persian keyboard labels map onto these at the dispatch boundary.
const (
	GenderMale   = "male"
	GenderFemale = "female"
)

// User is the profile record at user:{telegramID}. Created once when
// onboarding completes, mutated for its whole lifetime, never deleted.
type User struct {
	ID           uint64
	TelegramID   int64
	Name         string
	Gender       string
	Province     string
	City         string
	Age          int
	ProfilePic   string
	Coins        int64
	ReferralCode string
	RegisteredAt time.Time
	BannedUntil  time.Time // zero when not banned
}

// Banned reports whether the user is banned at the given instant.
func (u *User) Banned(now time.Time) bool {
	return !u.BannedUntil.IsZero() && u.BannedUntil.After(now)
}

// UserRepository owns user records and coin balances. Coins are a hash field
// so every mutation is a single HINCRBY and the guarded debit is one script.
type UserRepository struct {
	kv *kv.Store
}

func NewUserRepository(store *kv.Store) *UserRepository {
	return &UserRepository{kv: store}
}

// debitScript refuses to take the balance below zero. Returns the new
// balance, or -1 when the balance is short.
var debitScript = redis.NewScript(`
local bal = tonumber(redis.call('HGET', KEYS[1], 'coins')) or 0
local n = tonumber(ARGV[1])
if bal < n then
	return -1
end
return redis.call('HINCRBY', KEYS[1], 'coins', -n)
`)

// debitUpToScript takes as much of the requested amount as the balance
// allows. Used for the matched partner, whose balance was checked when they
// enqueued but may have moved since.
var debitUpToScript = redis.NewScript(`
local bal = tonumber(redis.call('HGET', KEYS[1], 'coins')) or 0
local n = tonumber(ARGV[1])
if bal < n then
	n = bal
end
if n <= 0 then
	return bal
end
return redis.call('HINCRBY', KEYS[1], 'coins', -n)
`)

// Create assigns the next user id, derives the immutable referral code from
// the Telegram id, and writes both the record and the refcode:{code} mapping.
//
// Behavior:
//   - ID comes from the atomic counter:users increment (no duplicate ids
//     under concurrent creation).
//   - ReferralCode is always "ref_<telegramID>"; any value on u is replaced.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	id, err := r.kv.Incr(ctx, kv.CounterKey("users"))
	if err != nil {
		return fmt.Errorf("allocate user id: %w", err)
	}
	u.ID = uint64(id)
	u.ReferralCode = fmt.Sprintf("ref_%d", u.TelegramID)
	if u.RegisteredAt.IsZero() {
		u.RegisteredAt = time.Now().UTC()
	}

	key := kv.UserKey(u.TelegramID)
	fields := map[string]interface{}{
		"id":            u.ID,
		"name":          u.Name,
		"gender":        u.Gender,
		"province":      u.Province,
		"city":          u.City,
		"age":           u.Age,
		"profile_pic":   u.ProfilePic,
		"coins":         u.Coins,
		"referral_code": u.ReferralCode,
		"registered_at": u.RegisteredAt.Unix(),
		"banned_until":  bannedField(u.BannedUntil),
	}
	if err := r.kv.Client.HSet(ctx, key, fields).Err(); err != nil {
		return fmt.Errorf("write user %d: %w", u.TelegramID, err)
	}

	return r.kv.Set(ctx, kv.RefCodeKey(u.ReferralCode), u.TelegramID, 0)
}

// Get loads a user record, or ErrNotFound.
func (r *UserRepository) Get(ctx context.Context, telegramID int64) (*User, error) {
	fields, err := r.kv.Client.HGetAll(ctx, kv.UserKey(telegramID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, svcErr.ErrNotFound
	}
	return userFromHash(telegramID, fields), nil
}

// Exists is the cheap registration check used by the dispatcher.
func (r *UserRepository) Exists(ctx context.Context, telegramID int64) (bool, error) {
	return r.kv.Exists(ctx, kv.UserKey(telegramID))
}

// GetByReferralCode resolves refcode:{code} to its owner, or ErrNotFound.
func (r *UserRepository) GetByReferralCode(ctx context.Context, code string) (*User, error) {
	raw, err := r.kv.Get(ctx, kv.RefCodeKey(code))
	if kv.IsMiss(err) {
		return nil, svcErr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("corrupt refcode mapping %q: %w", code, err)
	}
	return r.Get(ctx, telegramID)
}

// AddCoins credits (or with a negative n, bluntly debits) the balance and
// returns the new value. Guarded spends must go through DebitCoins.
func (r *UserRepository) AddCoins(ctx context.Context, telegramID int64, n int64) (int64, error) {
	return r.kv.Client.HIncrBy(ctx, kv.UserKey(telegramID), "coins", n).Result()
}

// DebitCoins atomically takes n coins, failing with ErrInsufficientCoins
// when the live balance is short. The check and the decrement run as one
// script, so a concurrent spend cannot push the balance negative.
func (r *UserRepository) DebitCoins(ctx context.Context, telegramID int64, n int64) (int64, error) {
	bal, err := debitScript.Run(ctx, r.kv.Client, []string{kv.UserKey(telegramID)}, n).Int64()
	if err != nil {
		return 0, err
	}
	if bal < 0 {
		return 0, svcErr.ErrInsufficientCoins
	}
	return bal, nil
}

// DebitUpTo takes up to n coins, stopping at zero. Returns the new balance.
func (r *UserRepository) DebitUpTo(ctx context.Context, telegramID int64, n int64) (int64, error) {
	return debitUpToScript.Run(ctx, r.kv.Client, []string{kv.UserKey(telegramID)}, n).Int64()
}

// SetBannedUntil stamps (or with a zero time, lifts) a ban.
func (r *UserRepository) SetBannedUntil(ctx context.Context, telegramID int64, until time.Time) error {
	return r.kv.Client.HSet(ctx, kv.UserKey(telegramID), "banned_until", bannedField(until)).Err()
}

func bannedField(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func userFromHash(telegramID int64, fields map[string]string) *User {
	u := &User{
		TelegramID:   telegramID,
		Name:         fields["name"],
		Gender:       fields["gender"],
		Province:     fields["province"],
		City:         fields["city"],
		ProfilePic:   fields["profile_pic"],
		ReferralCode: fields["referral_code"],
	}
	u.ID, _ = strconv.ParseUint(fields["id"], 10, 64)
	u.Age, _ = strconv.Atoi(fields["age"])
	u.Coins, _ = strconv.ParseInt(fields["coins"], 10, 64)
	if ts, _ := strconv.ParseInt(fields["registered_at"], 10, 64); ts > 0 {
		u.RegisteredAt = time.Unix(ts, 0).UTC()
	}
	if ts, _ := strconv.ParseInt(fields["banned_until"], 10, 64); ts > 0 {
		u.BannedUntil = time.Unix(ts, 0).UTC()
	}
	return u
}
