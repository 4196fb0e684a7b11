package services

import (
	"context"
	"log/slog"
	"time"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
)

// TicketService is the owner-facing view of issued tickets.
type TicketService struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewTicketService(st *store.Store, logger *slog.Logger) *TicketService {
	return &TicketService{store: st, log: logger, now: time.Now}
}

func (s *TicketService) ListOwned(ctx context.Context, userID string) ([]*models.OwnedTicket, error) {
	return s.store.ListOwnedTickets(ctx, userID)
}

func (s *TicketService) GetOwned(ctx context.Context, userID, ticketID string) (*models.OwnedTicket, error) {
	ticket, err := s.store.FindOwnedTicket(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if ticket.OwnerID != userID {
		return nil, status.ErrTicketNotFound
	}
	return ticket, nil
}

// QRPayload builds the scannable document for a ticket. The timestamp is
// fresh on every call.
func (s *TicketService) QRPayload(ctx context.Context, userID, ticketID string) (*models.QRPayload, error) {
	ticket, err := s.GetOwned(ctx, userID, ticketID)
	if err != nil {
		return nil, err
	}
	tt, err := s.store.FindTicketType(ctx, ticket.TicketTypeID)
	if err != nil {
		return nil, err
	}
	return &models.QRPayload{
		TicketID:   ticket.ID,
		EventID:    ticket.EventID,
		TicketType: tt.Name,
		OwnerID:    ticket.OwnerID,
		Timestamp:  s.now().UnixMilli(),
	}, nil
}
