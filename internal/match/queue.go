package match

import (
	"context"
	"strconv"
	"time"

	"github.com/hamdam-bot/hamdam/internal/kv"
	"github.com/hamdam-bot/hamdam/internal/repository"
	"github.com/redis/go-redis/v9"
)

// WaitingTTL is the maximum residency of a waiting entry. Older entries are
// treated as absent and pruned on the next claim against their bucket.
const WaitingTTL = time.Hour

// WaitingQueue holds users who asked for a partner and got none. Each
// (ownGender, desiredGender) pair is one sorted set scored by enqueue time,
// so a seeker reads exactly one bucket — the mirror of their request — and
// the oldest compatible entry comes out first.
type WaitingQueue struct {
	kv *kv.Store
}

func NewWaitingQueue(store *kv.Store) *WaitingQueue {
	return &WaitingQueue{kv: store}
}

// claimScript prunes entries older than the residency window, then pops the
// oldest member that isn't the seeker. The prune, the scan and the removal
// run as one script: two concurrent seekers can never claim the same entry,
// and a claimed entry is gone before anyone else can observe it.
var claimScript = redis.NewScript(`
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', ARGV[2])
local members = redis.call('ZRANGE', KEYS[1], 0, -1)
for _, member in ipairs(members) do
	if member ~= ARGV[1] then
		redis.call('ZREM', KEYS[1], member)
		return member
	end
end
return false
`)

// Enqueue records a standing request by a user with gender own looking for
// want. Overwrite-by-member makes a repeated request idempotent — the user
// keeps their original position unless they were already pruned.
func (q *WaitingQueue) Enqueue(ctx context.Context, userID int64, own, want string) error {
	bucket := kv.WaitingBucket(own, want)
	now := float64(time.Now().Unix())

	pipe := q.kv.Client.TxPipeline()
	pipe.ZAddNX(ctx, bucket, redis.Z{Score: now, Member: strconv.FormatInt(userID, 10)})
	// Bucket hygiene: the set dies well after its youngest member would.
	pipe.Expire(ctx, bucket, 2*WaitingTTL)
	_, err := pipe.Exec(ctx)
	return err
}

// FindAndClaim scans the bucket of users whose own gender is want and who
// want own — mutual compatibility is built into the bucket key — and
// atomically removes and returns the oldest live entry other than the
// seeker. found is false when the bucket holds no compatible entry.
func (q *WaitingQueue) FindAndClaim(ctx context.Context, seekerID int64, own, want string) (partnerID int64, found bool, err error) {
	bucket := kv.WaitingBucket(want, own)
	cutoff := time.Now().Add(-WaitingTTL).Unix()

	raw, err := claimScript.Run(ctx, q.kv.Client,
		[]string{bucket},
		strconv.FormatInt(seekerID, 10), cutoff,
	).Text()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}

	partnerID, err = strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return partnerID, true, nil
}

// Withdraw removes any waiting entry for the user. Their own gender pins the
// entry to one of exactly two buckets, so this is two direct removals, not
// a keyspace scan.
func (q *WaitingQueue) Withdraw(ctx context.Context, userID int64, own string) error {
	member := strconv.FormatInt(userID, 10)
	pipe := q.kv.Client.TxPipeline()
	pipe.ZRem(ctx, kv.WaitingBucket(own, repository.GenderMale), member)
	pipe.ZRem(ctx, kv.WaitingBucket(own, repository.GenderFemale), member)
	_, err := pipe.Exec(ctx)
	return err
}

// IsWaiting reports whether the user has a live (unexpired) entry.
func (q *WaitingQueue) IsWaiting(ctx context.Context, userID int64, own string) (bool, error) {
	member := strconv.FormatInt(userID, 10)
	cutoff := float64(time.Now().Add(-WaitingTTL).Unix())

	for _, want := range []string{repository.GenderMale, repository.GenderFemale} {
		score, err := q.kv.Client.ZScore(ctx, kv.WaitingBucket(own, want), member).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return false, err
		}
		if score >= cutoff {
			return true, nil
		}
	}
	return false, nil
}
