package services

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	pubnub "github.com/pubnub/go/v7"

	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type orderSettler interface {
	ConfirmPayment(ctx context.Context, orderID string) (*models.Order, error)
}

type tradeSettler interface {
	Confirm(ctx context.Context, ticketID, recipientID string) (*models.OwnedTicket, error)
	PendingRecipient(ctx context.Context, ticketID string) (string, error)
}

// PaymentOutcome is what a completed payment settled.
type PaymentOutcome struct {
	Kind   models.PaymentKind  `json:"kind"`
	Order  *models.Order       `json:"order,omitempty"`
	Ticket *models.OwnedTicket `json:"ticket,omitempty"`
}

// PaymentService turns gateway completions into order and trade
// confirmations. Redirects, signed webhooks and realtime notifications all
// end up here.
type PaymentService struct {
	orders    orderSettler
	trades    tradeSettler
	sessions  SessionStore
	verifiers []payment.WebhookVerifier
	log       *slog.Logger
}

func NewPaymentService(orders orderSettler, trades tradeSettler, sessions SessionStore, verifiers []payment.WebhookVerifier, logger *slog.Logger) *PaymentService {
	return &PaymentService{
		orders:    orders,
		trades:    trades,
		sessions:  sessions,
		verifiers: verifiers,
		log:       logger,
	}
}

// Complete settles whatever sessionID paid for. The session registry is
// consulted first; gateway metadata is the fallback when the record expired.
func (s *PaymentService) Complete(ctx context.Context, sessionID string, metadata map[string]string) (*PaymentOutcome, error) {
	rec, err := s.sessions.Lookup(ctx, sessionID)
	if errors.Is(err, status.ErrSessionNotFound) && len(metadata) > 0 {
		rec = recordFromMetadata(sessionID, metadata)
	} else if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, status.ErrSessionNotFound
	}

	var out *PaymentOutcome
	switch rec.Kind {
	case models.PaymentForOrder:
		order, err := s.orders.ConfirmPayment(ctx, rec.Ref)
		if err != nil {
			return nil, err
		}
		out = &PaymentOutcome{Kind: rec.Kind, Order: order}
	case models.PaymentForTrade:
		ticket, err := s.trades.Confirm(ctx, rec.Ref, rec.UserID)
		if err != nil {
			return nil, err
		}
		out = &PaymentOutcome{Kind: rec.Kind, Ticket: ticket}
	default:
		return nil, status.Validationf("unknown payment kind %q", rec.Kind)
	}

	if err := s.sessions.MarkCompleted(ctx, sessionID); err != nil {
		s.log.Warn("failed to mark session completed", "session_id", sessionID, "error", err)
	}
	s.log.Info("payment completed", "session_id", sessionID, "kind", rec.Kind, "ref", rec.Ref)
	return out, nil
}

func recordFromMetadata(sessionID string, md map[string]string) *models.CheckoutRecord {
	switch models.PaymentKind(md["kind"]) {
	case models.PaymentForOrder:
		if md["orderId"] == "" {
			return nil
		}
		return &models.CheckoutRecord{SessionID: sessionID, Kind: models.PaymentForOrder, Ref: md["orderId"]}
	case models.PaymentForTrade:
		if md["ticketId"] == "" || md["recipientId"] == "" {
			return nil
		}
		return &models.CheckoutRecord{
			SessionID: sessionID,
			Kind:      models.PaymentForTrade,
			Ref:       md["ticketId"],
			UserID:    md["recipientId"],
		}
	}
	return nil
}

// Callback handles the payer's redirect back from checkout. The redirect is
// trusted as proof of payment; a cancelled checkout changes nothing.
func (s *PaymentService) Callback(ctx context.Context, kind models.PaymentKind, success bool, ref string) (*PaymentOutcome, error) {
	if ref == "" {
		return nil, status.Validationf("missing payment reference")
	}
	if !success {
		s.log.Info("checkout cancelled by payer", "kind", kind, "ref", ref)
		return nil, nil
	}

	switch kind {
	case models.PaymentForOrder:
		order, err := s.orders.ConfirmPayment(ctx, ref)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: kind, Order: order}, nil
	case models.PaymentForTrade:
		recipientID, err := s.trades.PendingRecipient(ctx, ref)
		if err != nil {
			return nil, err
		}
		ticket, err := s.trades.Confirm(ctx, ref, recipientID)
		if err != nil {
			return nil, err
		}
		return &PaymentOutcome{Kind: kind, Ticket: ticket}, nil
	default:
		return nil, status.Validationf("unknown payment kind %q", kind)
	}
}

// HandleWebhook verifies a signed gateway event and settles completed sessions.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*PaymentOutcome, error) {
	var lastErr error
	for _, v := range s.verifiers {
		completed, err := v.VerifyWebhook(payload, signature)
		if err != nil {
			lastErr = err
			continue
		}
		if completed == nil {
			return nil, nil
		}
		return s.Complete(ctx, completed.SessionID, completed.Metadata)
	}
	if lastErr != nil {
		s.log.Warn("webhook rejected", "error", lastErr)
	}
	return nil, status.New(status.ErrAuth, "invalid webhook signature")
}

// Listen settles sessions reported on a PubNub channel until ctx ends.
func (s *PaymentService) Listen(ctx context.Context, pn *pubnub.PubNub, channel string) {
	listener := pubnub.NewListener()

	pn.AddListener(listener)
	pn.Subscribe().
		Channels([]string{channel}).
		Execute()
	defer func() {
		pn.Unsubscribe().Channels([]string{channel}).Execute()
		pn.RemoveListener(listener)
	}()

	s.log.Info("listening for payment notifications", "channel", channel)
	for {
		select {
		case <-ctx.Done():
			return
		case st := <-listener.Status:
			if st.Error {
				s.log.Warn("payment channel status error", "category", st.Category)
			}
		case <-listener.Presence:
		case message := <-listener.Message:
			go s.handleNotification(ctx, message)
		}
	}
}

func (s *PaymentService) handleNotification(ctx context.Context, message *pubnub.PNMessage) {
	raw, err := json.Marshal(message.Message)
	if err != nil {
		s.log.Warn("unreadable payment notification", "error", err)
		return
	}
	var n models.PaymentNotification
	if err := json.Unmarshal(raw, &n); err != nil || n.SessionID == "" {
		s.log.Warn("malformed payment notification", "payload", string(raw))
		return
	}
	if n.Status != "success" {
		s.log.Info("ignoring payment notification", "session_id", n.SessionID, "status", n.Status)
		return
	}
	if _, err := s.Complete(ctx, n.SessionID, nil); err != nil {
		s.log.Error("failed to settle notified payment", "session_id", n.SessionID, "error", err)
	}
}
