package match

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/redis/go-redis/v9"
)

// SessionTable is the symmetric pairing map: an active chat between A and B
// is two pointers, chat:A and chat:B, so partner lookup is one read from
// either side. Both pointers are always created and destroyed together.
type SessionTable struct {
	kv *kv.Store
}

func NewSessionTable(store *kv.Store) *SessionTable {
	return &SessionTable{kv: store}
}

// createSessionScript writes both directions only if neither user already
// has a session. Refusing inside the script closes the double-match window:
// two concurrent pairings that share a user cannot both commit.
var createSessionScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 or redis.call('EXISTS', KEYS[2]) == 1 then
	return 0
end
redis.call('SET', KEYS[1], ARGV[2] .. ':' .. ARGV[3])
redis.call('SET', KEYS[2], ARGV[1] .. ':' .. ARGV[3])
return 1
`)

// endSessionScript reads the caller's pointer and deletes both directions in
// one step, so no interleaving can observe a half-torn-down session.
var endSessionScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if not v then
	return false
end
local sep = string.find(v, ':')
local partner = string.sub(v, 1, sep - 1)
redis.call('DEL', KEYS[1], 'chat:' .. partner)
return v
`)

// Create pairs two users. Fails with ErrAlreadyInChat when either side
// already has a partner, leaving both pointers untouched.
func (t *SessionTable) Create(ctx context.Context, a, b int64) error {
	now := time.Now().Unix()
	ok, err := createSessionScript.Run(ctx, t.kv.Client,
		[]string{kv.ChatKey(a), kv.ChatKey(b)},
		a, b, now,
	).Int64()
	if err != nil {
		return err
	}
	if ok == 0 {
		return svcErr.ErrAlreadyInChat
	}
	return nil
}

// Get returns the user's partner and when the session started, or
// ErrNotInChat.
func (t *SessionTable) Get(ctx context.Context, userID int64) (partnerID int64, startedAt time.Time, err error) {
	raw, err := t.kv.Get(ctx, kv.ChatKey(userID))
	if kv.IsMiss(err) {
		return 0, time.Time{}, svcErr.ErrNotInChat
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return parseSessionValue(raw)
}

// InChat reports whether the user has an active session.
func (t *SessionTable) InChat(ctx context.Context, userID int64) (bool, error) {
	return t.kv.Exists(ctx, kv.ChatKey(userID))
}

// End tears the session down from the caller's side, removing both
// directions together, and returns who the partner was. ErrNotInChat when
// there was no session — including when the partner already ended it.
func (t *SessionTable) End(ctx context.Context, userID int64) (partnerID int64, startedAt time.Time, err error) {
	raw, err := endSessionScript.Run(ctx, t.kv.Client, []string{kv.ChatKey(userID)}).Text()
	if err == redis.Nil {
		return 0, time.Time{}, svcErr.ErrNotInChat
	}
	if err != nil {
		return 0, time.Time{}, err
	}
	return parseSessionValue(raw)
}

func parseSessionValue(raw string) (int64, time.Time, error) {
	partnerStr, startedStr, ok := strings.Cut(raw, ":")
	if !ok {
		return 0, time.Time{}, fmt.Errorf("corrupt session value %q", raw)
	}
	partnerID, err := strconv.ParseInt(partnerStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("corrupt session value %q: %w", raw, err)
	}
	started, err := strconv.ParseInt(startedStr, 10, 64)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("corrupt session value %q: %w", raw, err)
	}
	return partnerID, time.Unix(started, 0).UTC(), nil
}
