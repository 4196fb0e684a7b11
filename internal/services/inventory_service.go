package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
)

// InventoryService is the ledger of per-ticket-type seat counts.
type InventoryService struct {
	store   *store.Store
	monitor *monitoring.Monitor
	log     *slog.Logger
	now     func() time.Time
}

func NewInventoryService(st *store.Store, monitor *monitoring.Monitor, logger *slog.Logger) *InventoryService {
	return &InventoryService{store: st, monitor: monitor, log: logger, now: time.Now}
}

// WithStore returns a copy bound to st, typically a transaction.
func (s *InventoryService) WithStore(st *store.Store) *InventoryService {
	cp := *s
	cp.store = st
	return &cp
}

// ReserveAndSell atomically moves quantity seats from available to sold.
func (s *InventoryService) ReserveAndSell(ctx context.Context, ticketTypeID string, quantity int) (*models.TicketType, error) {
	if quantity <= 0 {
		return nil, status.Validationf("quantity must be positive")
	}
	tt, err := s.store.ReserveAndSell(ctx, ticketTypeID, quantity)
	if err != nil {
		if errors.Is(err, status.ErrInsufficientSeats) {
			s.monitor.TrackSeatRaceLost(ticketTypeID)
		}
		return nil, err
	}
	if tt.Status == models.TicketTypeSoldOut {
		s.log.Info("ticket type sold out", "ticket_type_id", tt.ID, "event_id", tt.EventID)
	}
	return tt, nil
}

type TicketTypeInput struct {
	Name       string          `json:"name" validate:"required,max=100"`
	Price      decimal.Decimal `json:"price"`
	TotalSeats int             `json:"total_seats" validate:"gte=0"`
}

type TicketTypeUpdate struct {
	Name       *string          `json:"name" validate:"omitempty,max=100"`
	Price      *decimal.Decimal `json:"price"`
	TotalSeats *int             `json:"total_seats" validate:"omitempty,gte=0"`
}

func (s *InventoryService) AddTicketType(ctx context.Context, eventID string, in TicketTypeInput) (*models.TicketType, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, status.Validationf("ticket type name is required")
	}
	if in.Price.IsNegative() {
		return nil, status.Validationf("price cannot be negative")
	}
	if in.TotalSeats < 0 {
		return nil, status.Validationf("total seats cannot be negative")
	}
	if _, err := s.store.FindEvent(ctx, eventID); err != nil {
		return nil, err
	}

	tt := &models.TicketType{
		ID:             uuid.New().String(),
		EventID:        eventID,
		Name:           strings.TrimSpace(in.Name),
		Price:          in.Price,
		TotalSeats:     in.TotalSeats,
		AvailableSeats: in.TotalSeats,
		Status:         models.TicketTypeAvailable,
		CreatedAt:      s.now(),
	}
	if tt.TotalSeats == 0 {
		tt.Status = models.TicketTypeSoldOut
	}
	if err := s.store.InsertTicketType(ctx, tt); err != nil {
		return nil, err
	}
	return tt, nil
}

func (s *InventoryService) Get(ctx context.Context, id string) (*models.TicketType, error) {
	return s.store.FindTicketType(ctx, id)
}

func (s *InventoryService) ListByEvent(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	if _, err := s.store.FindEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.store.ListTicketTypesByEvent(ctx, eventID)
}

// UpdateTicketType changes name and price freely; the seat total only while
// nothing has been sold.
func (s *InventoryService) UpdateTicketType(ctx context.Context, id string, in TicketTypeUpdate) (*models.TicketType, error) {
	if in.Price != nil && in.Price.IsNegative() {
		return nil, status.Validationf("price cannot be negative")
	}
	if in.TotalSeats != nil && *in.TotalSeats < 0 {
		return nil, status.Validationf("total seats cannot be negative")
	}

	err := s.store.RunInTx(ctx, func(tx *store.Store) error {
		current, err := tx.FindTicketType(ctx, id)
		if err != nil {
			return err
		}
		name, price := current.Name, current.Price
		if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
			name = strings.TrimSpace(*in.Name)
		}
		if in.Price != nil {
			price = *in.Price
		}
		if err := tx.UpdateTicketTypeDetails(ctx, id, name, price); err != nil {
			return err
		}
		if in.TotalSeats != nil && *in.TotalSeats != current.TotalSeats {
			return tx.ResizeTicketType(ctx, id, *in.TotalSeats)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.store.FindTicketType(ctx, id)
}

func (s *InventoryService) DeleteTicketType(ctx context.Context, id string) error {
	return s.store.DeleteTicketType(ctx, id)
}
