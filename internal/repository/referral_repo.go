package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	svcErr "github.com/hamdam-bot/hamdam/internal/errors"
	"github.com/hamdam-bot/hamdam/internal/kv"
)

// Referral records who invited whom. One record per invited user, written
// once when their onboarding completes, never mutated.
type Referral struct {
	ID        uint64
	InviterID int64
	InvitedID int64
	Code      string
	CreatedAt time.Time
}

type ReferralRepository struct {
	kv *kv.Store
}

func NewReferralRepository(store *kv.Store) *ReferralRepository {
	return &ReferralRepository{kv: store}
}

func (r *ReferralRepository) Create(ctx context.Context, ref *Referral) error {
	id, err := r.kv.Incr(ctx, kv.CounterKey("referrals"))
	if err != nil {
		return fmt.Errorf("allocate referral id: %w", err)
	}
	ref.ID = uint64(id)
	if ref.CreatedAt.IsZero() {
		ref.CreatedAt = time.Now().UTC()
	}

	fields := map[string]interface{}{
		"id":         ref.ID,
		"inviter_id": ref.InviterID,
		"invited_id": ref.InvitedID,
		"code":       ref.Code,
		"created_at": ref.CreatedAt.Unix(),
	}
	return r.kv.Client.HSet(ctx, kv.ReferralKey(ref.InvitedID), fields).Err()
}

// Get returns the referral that brought in the given user, or ErrNotFound.
func (r *ReferralRepository) Get(ctx context.Context, invitedID int64) (*Referral, error) {
	fields, err := r.kv.Client.HGetAll(ctx, kv.ReferralKey(invitedID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, svcErr.ErrNotFound
	}

	ref := &Referral{InvitedID: invitedID, Code: fields["code"]}
	ref.ID, _ = strconv.ParseUint(fields["id"], 10, 64)
	ref.InviterID, _ = strconv.ParseInt(fields["inviter_id"], 10, 64)
	if ts, _ := strconv.ParseInt(fields["created_at"], 10, 64); ts > 0 {
		ref.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return ref, nil
}
