package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/models"
)

// SessionOpener creates hosted checkout sessions on a payment gateway.
type SessionOpener interface {
	CreateCheckoutSession(ctx context.Context, req *payment.CheckoutRequest) (*payment.Session, error)
}

// CheckoutService opens gateway sessions and records what each one pays for.
type CheckoutService struct {
	opener   SessionOpener
	sessions SessionStore
	log      *slog.Logger
	now      func() time.Time
}

func NewCheckoutService(opener SessionOpener, sessions SessionStore, logger *slog.Logger) *CheckoutService {
	return &CheckoutService{
		opener:   opener,
		sessions: sessions,
		log:      logger,
		now:      time.Now,
	}
}

// Open creates a session for the order or ticket identified by ref. Failing to
// record the session is logged only; the redirect and webhook metadata still
// correlate the payment.
func (c *CheckoutService) Open(ctx context.Context, kind models.PaymentKind, ref, userID string, req *payment.CheckoutRequest) (*models.CheckoutSession, error) {
	sess, err := c.opener.CreateCheckoutSession(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("open %s checkout: %w", kind, err)
	}

	rec := &models.CheckoutRecord{
		SessionID: sess.ID,
		Kind:      kind,
		Ref:       ref,
		UserID:    userID,
		Status:    "pending",
		CreatedAt: c.now(),
	}
	if err := c.sessions.Save(ctx, rec); err != nil {
		c.log.Warn("failed to record checkout session", "session_id", sess.ID, "kind", kind, "ref", ref, "error", err)
	}
	return &models.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}

func (c *CheckoutService) Sessions() SessionStore {
	return c.sessions
}
