package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/security"
)

type InitiateTradeRequest struct {
	RecipientEmail string `json:"recipient_email" validate:"required,email"`
	Password       string `json:"password" validate:"required"`
}

type TradeConfig struct {
	PublicURL string
	Expiry    time.Duration
}

// TradeService runs the offer, accept, pay and confirm protocol for handing
// an owned ticket to another user.
type TradeService struct {
	store      *store.Store
	reputation *ReputationLedger
	checkout   *CheckoutService
	notifier   Notifier
	monitor    *monitoring.Monitor
	cfg        TradeConfig
	log        *slog.Logger
	now        func() time.Time
}

func NewTradeService(
	st *store.Store,
	reputation *ReputationLedger,
	checkout *CheckoutService,
	notifier Notifier,
	monitor *monitoring.Monitor,
	cfg TradeConfig,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		store:      st,
		reputation: reputation,
		checkout:   checkout,
		notifier:   notifier,
		monitor:    monitor,
		cfg:        cfg,
		log:        logger,
		now:        time.Now,
	}
}

// Initiate offers fromUserID's ticket to the account registered under
// recipientEmail. The offer is written to the trade history immediately.
func (s *TradeService) Initiate(ctx context.Context, ticketID, fromUserID, recipientEmail, password string) (*models.OwnedTicket, error) {
	sender, err := s.store.FindAccount(ctx, fromUserID)
	if err != nil {
		return nil, err
	}
	ok, err := security.CheckPassword(sender.PasswordHash, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		s.monitor.TrackTradeOperation("initiate", "rejected")
		return nil, status.ErrInvalidCredentials
	}

	recipient, err := s.store.FindAccountByEmail(ctx, recipientEmail)
	if errors.Is(err, status.ErrUserNotFound) {
		return nil, status.ErrRecipientNotFound
	}
	if err != nil {
		return nil, err
	}
	if recipient.ID == sender.ID {
		return nil, status.ErrSelfTrade
	}
	if sender.IsBlocked {
		return nil, status.ErrUserBlocked
	}

	now := s.now()
	err = s.store.RunInTx(ctx, func(tx *store.Store) error {
		offered, err := tx.MarkPendingTrade(ctx, ticketID, sender.ID, recipient.ID, now)
		if err != nil {
			return err
		}
		if !offered {
			if _, err := tx.FindOwnedTicket(ctx, ticketID); err != nil {
				return err
			}
			return status.ErrTicketNotEligible
		}
		return tx.InsertTradeEntry(ctx, &models.TradeEntry{
			ID:         uuid.New().String(),
			TicketID:   ticketID,
			FromUserID: sender.ID,
			ToUserID:   recipient.ID,
			TradeDate:  now,
		})
	})
	if err != nil {
		s.monitor.TrackTradeOperation("initiate", "rejected")
		return nil, err
	}

	s.monitor.TrackTradeOperation("initiate", "ok")
	s.log.Info("trade offered", "ticket_id", ticketID, "from", sender.ID, "to", recipient.ID)
	s.notifier.Notify(recipient.ID, models.Notification{
		Type:    "trade_offer",
		Message: fmt.Sprintf("%s wants to transfer a ticket to you", sender.Name),
		Ref:     ticketID,
	})
	return s.store.FindOwnedTicket(ctx, ticketID)
}

func (s *TradeService) ListPendingForRecipient(ctx context.Context, userID string) ([]*models.OwnedTicket, error) {
	return s.store.ListPendingForRecipient(ctx, userID)
}

// pendingFor loads a ticket and checks it is an open offer to recipientID.
func (s *TradeService) pendingFor(ctx context.Context, ticketID, recipientID string) (*models.OwnedTicket, error) {
	ticket, err := s.store.FindOwnedTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if !ticket.IsPendingTrade || ticket.PendingRecipientID != recipientID {
		return nil, status.ErrTicketNotEligible
	}
	if ticket.PendingTradeCreatedAt == nil || ticket.PendingTradeCreatedAt.Before(s.now().Add(-s.cfg.Expiry)) {
		return nil, status.ErrTicketNotEligible
	}
	return ticket, nil
}

// Accept opens the recipient's payment for an offer. While a session for the
// same offer is open, repeated calls return it instead of opening another.
func (s *TradeService) Accept(ctx context.Context, ticketID, recipientID string) (*models.CheckoutSession, error) {
	ticket, err := s.pendingFor(ctx, ticketID, recipientID)
	if err != nil {
		s.monitor.TrackTradeOperation("accept", "rejected")
		return nil, err
	}

	offerKey := fmt.Sprintf("%s:%s:%d", ticket.ID, recipientID, ticket.PendingTradeCreatedAt.UnixMilli())
	sessions := s.checkout.Sessions()
	existing, claimed, err := sessions.ClaimTrade(ctx, offerKey)
	if err != nil {
		return nil, err
	}
	if !claimed {
		s.log.Info("trade checkout already open", "ticket_id", ticketID, "session_id", existing.ID)
		return existing, nil
	}

	tt, err := s.store.FindTicketType(ctx, ticket.TicketTypeID)
	if err != nil {
		s.release(ctx, offerKey)
		return nil, err
	}

	sess, err := s.checkout.Open(ctx, models.PaymentForTrade, ticket.ID, recipientID, &payment.CheckoutRequest{
		LineItems: []payment.LineItem{{
			Description: fmt.Sprintf("Ticket transfer - %s", tt.Name),
			UnitAmount:  tt.Price,
			Quantity:    1,
		}},
		SuccessURL: callbackURL(s.cfg.PublicURL, models.PaymentForTrade, true, "ticketId", ticket.ID),
		CancelURL:  callbackURL(s.cfg.PublicURL, models.PaymentForTrade, false, "ticketId", ticket.ID),
		Metadata: map[string]string{
			"kind":        string(models.PaymentForTrade),
			"ticketId":    ticket.ID,
			"recipientId": recipientID,
			"senderId":    ticket.OwnerID,
		},
	})
	if err != nil {
		s.release(ctx, offerKey)
		s.log.Error("failed to open trade checkout", "ticket_id", ticketID, "error", err)
		return nil, err
	}
	if err := sessions.StoreTrade(ctx, offerKey, sess); err != nil {
		s.log.Warn("failed to remember trade checkout", "ticket_id", ticketID, "error", err)
	}

	s.monitor.TrackTradeOperation("accept", "ok")
	return sess, nil
}

func (s *TradeService) release(ctx context.Context, offerKey string) {
	if err := s.checkout.Sessions().ReleaseTrade(ctx, offerKey); err != nil {
		s.log.Warn("failed to release trade checkout claim", "offer", offerKey, "error", err)
	}
}

// Confirm completes a paid trade. Ownership moves and both reputations change
// in one transaction; a second confirm finds no open offer and changes nothing.
func (s *TradeService) Confirm(ctx context.Context, ticketID, recipientID string) (*models.OwnedTicket, error) {
	notBefore := s.now().Add(-s.cfg.Expiry)

	var senderID string
	err := s.store.RunInTx(ctx, func(tx *store.Store) error {
		ticket, err := tx.FindOwnedTicket(ctx, ticketID)
		if err != nil {
			return err
		}
		if !ticket.IsPendingTrade || ticket.PendingRecipientID != recipientID {
			return status.ErrTicketNotEligible
		}
		wasTraded := ticket.IsTraded
		senderID = ticket.OwnerID

		moved, err := tx.TransferTicket(ctx, ticketID, senderID, recipientID, notBefore)
		if err != nil {
			return err
		}
		if !moved {
			return status.ErrTicketNotEligible
		}

		penalty := -1
		if wasTraded {
			penalty = -2
		}
		ledger := s.reputation.WithStore(tx)
		if err := ledger.Adjust(ctx, senderID, penalty); err != nil {
			return err
		}
		return ledger.Adjust(ctx, recipientID, 1)
	})
	if err != nil {
		s.monitor.TrackTradeOperation("confirm", "rejected")
		if status.KindOf(err) == status.ErrInternal {
			s.log.Error("trade confirmation failed", "ticket_id", ticketID, "recipient_id", recipientID, "error", err)
		}
		return nil, err
	}

	s.monitor.TrackTradeOperation("confirm", "ok")
	s.log.Info("trade completed", "ticket_id", ticketID, "from", senderID, "to", recipientID)
	s.notifier.Notify(senderID, models.Notification{
		Type:    "trade_completed",
		Message: "Your ticket transfer has been completed",
		Ref:     ticketID,
	})
	return s.store.FindOwnedTicket(ctx, ticketID)
}

// Cancel declines an offer. Ownership and history are left as they are.
func (s *TradeService) Cancel(ctx context.Context, ticketID, recipientID string) error {
	cleared, err := s.store.ClearPendingTrade(ctx, ticketID, recipientID)
	if err != nil {
		return err
	}
	if !cleared {
		if _, err := s.store.FindOwnedTicket(ctx, ticketID); err != nil {
			return err
		}
		s.monitor.TrackTradeOperation("cancel", "rejected")
		return status.ErrTicketNotEligible
	}
	s.monitor.TrackTradeOperation("cancel", "ok")
	s.log.Info("trade declined", "ticket_id", ticketID, "recipient_id", recipientID)
	return nil
}

// ExpirePendingTrades returns offers older than the expiry window to their owners.
func (s *TradeService) ExpirePendingTrades(ctx context.Context) (int64, error) {
	return s.store.ExpirePendingTrades(ctx, s.now().Add(-s.cfg.Expiry))
}

func (s *TradeService) ListTrades(ctx context.Context) ([]models.TradeEntry, error) {
	return s.store.ListTrades(ctx)
}

// PendingRecipient returns who an open offer on ticketID is addressed to.
func (s *TradeService) PendingRecipient(ctx context.Context, ticketID string) (string, error) {
	ticket, err := s.store.FindOwnedTicket(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if !ticket.IsPendingTrade {
		return "", status.ErrTicketNotEligible
	}
	return ticket.PendingRecipientID, nil
}
