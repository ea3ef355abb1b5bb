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

// Payment status values. A payment leaves pending exactly once.
const (
	PaymentPending = "pending"
	PaymentSuccess = "success"
	PaymentFailed  = "failed"
)

// Payment is the record at payment:{authority}, keyed by the gateway's
// opaque authority token so the verification callback can find it.
type Payment struct {
	ID        uint64
	UserID    int64
	Amount    int64 // toman
	Coins     int64 // coins granted on success
	Authority string
	Status    string
	CreatedAt time.Time
}

type PaymentRepository struct {
	kv *kv.Store
}

func NewPaymentRepository(store *kv.Store) *PaymentRepository {
	return &PaymentRepository{kv: store}
}

// resolveScript transitions pending -> ARGV[1] exactly once.
// Returns -1 when the payment is unknown, 0 when it already left pending,
// 1 when this call won the transition.
var resolveScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('HGET', KEYS[1], 'status') ~= 'pending' then
	return 0
end
redis.call('HSET', KEYS[1], 'status', ARGV[1])
return 1
`)

// Create persists a fresh pending payment.
func (r *PaymentRepository) Create(ctx context.Context, p *Payment) error {
	id, err := r.kv.Incr(ctx, kv.CounterKey("payments"))
	if err != nil {
		return fmt.Errorf("allocate payment id: %w", err)
	}
	p.ID = uint64(id)
	p.Status = PaymentPending
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}

	fields := map[string]interface{}{
		"id":         p.ID,
		"user_id":    p.UserID,
		"amount":     p.Amount,
		"coins":      p.Coins,
		"status":     p.Status,
		"created_at": p.CreatedAt.Unix(),
	}
	return r.kv.Client.HSet(ctx, kv.PaymentKey(p.Authority), fields).Err()
}

// Get loads a payment by authority token, or ErrNotFound.
func (r *PaymentRepository) Get(ctx context.Context, authority string) (*Payment, error) {
	fields, err := r.kv.Client.HGetAll(ctx, kv.PaymentKey(authority)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, svcErr.ErrNotFound
	}

	p := &Payment{Authority: authority, Status: fields["status"]}
	p.ID, _ = strconv.ParseUint(fields["id"], 10, 64)
	p.UserID, _ = strconv.ParseInt(fields["user_id"], 10, 64)
	p.Amount, _ = strconv.ParseInt(fields["amount"], 10, 64)
	p.Coins, _ = strconv.ParseInt(fields["coins"], 10, 64)
	if ts, _ := strconv.ParseInt(fields["created_at"], 10, 64); ts > 0 {
		p.CreatedAt = time.Unix(ts, 0).UTC()
	}
	return p, nil
}

// Resolve moves the payment out of pending. The status check and the write
// are one script, which is the idempotency guard against duplicate gateway
// callbacks: only the first caller gets won=true and may credit coins.
func (r *PaymentRepository) Resolve(ctx context.Context, authority, status string) (won bool, err error) {
	res, err := resolveScript.Run(ctx, r.kv.Client, []string{kv.PaymentKey(authority)}, status).Int64()
	if err != nil {
		return false, err
	}
	switch res {
	case -1:
		return false, svcErr.ErrNotFound
	case 0:
		return false, nil
	default:
		return true, nil
	}
}
