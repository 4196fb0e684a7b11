package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

// SessionStore remembers open checkout sessions and which trade offers already
// have a payment in flight.
type SessionStore interface {
	Save(ctx context.Context, rec *models.CheckoutRecord) error
	Lookup(ctx context.Context, sessionID string) (*models.CheckoutRecord, error)
	MarkCompleted(ctx context.Context, sessionID string) error
	ClaimTrade(ctx context.Context, offerKey string) (*models.CheckoutSession, bool, error)
	StoreTrade(ctx context.Context, offerKey string, sess *models.CheckoutSession) error
	ReleaseTrade(ctx context.Context, offerKey string) error
}

// CheckoutRegistry is the redis SessionStore. Session records live in
// payment:<sessionID> hashes; trade claims in trade-checkout:<offer> strings.
type CheckoutRegistry struct {
	Redis *redis.Client
	ttl   time.Duration
}

func NewCheckoutRegistry(redisClient *redis.Client, ttl time.Duration) *CheckoutRegistry {
	return &CheckoutRegistry{Redis: redisClient, ttl: ttl}
}

func paymentKey(sessionID string) string {
	return fmt.Sprintf("payment:%s", sessionID)
}

func tradeCheckoutKey(offerKey string) string {
	return fmt.Sprintf("trade-checkout:%s", offerKey)
}

func (r *CheckoutRegistry) Save(ctx context.Context, rec *models.CheckoutRecord) error {
	key := paymentKey(rec.SessionID)
	_, err := r.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key,
			"kind", string(rec.Kind),
			"ref", rec.Ref,
			"user_id", rec.UserID,
			"status", "pending",
			"created_at", rec.CreatedAt.Unix(),
		)
		pipe.Expire(ctx, key, r.ttl)
		return nil
	})
	return err
}

func (r *CheckoutRegistry) Lookup(ctx context.Context, sessionID string) (*models.CheckoutRecord, error) {
	data, err := r.Redis.HGetAll(ctx, paymentKey(sessionID)).Result()
	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, status.ErrSessionNotFound
	}
	created, _ := strconv.ParseInt(data["created_at"], 10, 64)
	return &models.CheckoutRecord{
		SessionID: sessionID,
		Kind:      models.PaymentKind(data["kind"]),
		Ref:       data["ref"],
		UserID:    data["user_id"],
		Status:    data["status"],
		CreatedAt: time.Unix(created, 0).UTC(),
	}, nil
}

func (r *CheckoutRegistry) MarkCompleted(ctx context.Context, sessionID string) error {
	return r.Redis.HSet(ctx, paymentKey(sessionID), "status", "completed").Err()
}

// ClaimTrade reserves the right to open a checkout for an offer. When another
// caller already opened one, its session is returned with claimed=false.
func (r *CheckoutRegistry) ClaimTrade(ctx context.Context, offerKey string) (*models.CheckoutSession, bool, error) {
	key := tradeCheckoutKey(offerKey)
	claimed, err := r.Redis.SetNX(ctx, key, "", r.ttl).Result()
	if err != nil {
		return nil, false, err
	}
	if claimed {
		return nil, true, nil
	}

	raw, err := r.Redis.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && raw == "") {
		return nil, false, status.ErrPaymentInFlight
	}
	if err != nil {
		return nil, false, err
	}
	var sess models.CheckoutSession
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, false, fmt.Errorf("decode trade checkout: %w", err)
	}
	return &sess, false, nil
}

func (r *CheckoutRegistry) StoreTrade(ctx context.Context, offerKey string, sess *models.CheckoutSession) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return r.Redis.Set(ctx, tradeCheckoutKey(offerKey), string(raw), redis.KeepTTL).Err()
}

func (r *CheckoutRegistry) ReleaseTrade(ctx context.Context, offerKey string) error {
	return r.Redis.Del(ctx, tradeCheckoutKey(offerKey)).Err()
}
