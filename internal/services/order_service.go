package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/utils"
)

type OrderItemRequest struct {
	TicketTypeID string `json:"ticket_type_id" validate:"required"`
	Quantity     int    `json:"quantity" validate:"required,min=1"`
}

type ContactRequest struct {
	FullName string `json:"full_name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Phone    string `json:"phone" validate:"required"`
}

type PlaceOrderRequest struct {
	EventID string             `json:"event_id" validate:"required"`
	Items   []OrderItemRequest `json:"items" validate:"required,min=1,dive"`
	Contact ContactRequest     `json:"contact"`
}

// CheckoutResult is returned when a checkout has been opened for an order.
type CheckoutResult struct {
	Order      *models.Order `json:"order"`
	SessionID  string        `json:"session_id"`
	SessionURL string        `json:"session_url"`
}

type OrderConfig struct {
	PublicURL    string
	Expiry       time.Duration
	StallTimeout time.Duration
}

type OrderService struct {
	store     *store.Store
	inventory *InventoryService
	checkout  *CheckoutService
	notifier  Notifier
	monitor   *monitoring.Monitor
	cfg       OrderConfig
	log       *slog.Logger
	now       func() time.Time
}

func NewOrderService(
	st *store.Store,
	inventory *InventoryService,
	checkout *CheckoutService,
	notifier Notifier,
	monitor *monitoring.Monitor,
	cfg OrderConfig,
	logger *slog.Logger,
) *OrderService {
	return &OrderService{
		store:     st,
		inventory: inventory,
		checkout:  checkout,
		notifier:  notifier,
		monitor:   monitor,
		cfg:       cfg,
		log:       logger,
		now:       time.Now,
	}
}

// PlaceOrder validates the selection, records a pending order and opens a
// checkout for it. Seats are only checked here, never reserved.
func (s *OrderService) PlaceOrder(ctx context.Context, userID string, req PlaceOrderRequest) (*CheckoutResult, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	user, err := s.store.FindAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBlocked {
		return nil, status.ErrUserBlocked
	}

	event, err := s.store.FindEvent(ctx, req.EventID)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	items := make([]models.LineItem, 0, len(req.Items))
	lines := make([]payment.LineItem, 0, len(req.Items))
	for _, item := range req.Items {
		tt, err := s.store.FindTicketType(ctx, item.TicketTypeID)
		if errors.Is(err, status.ErrTicketTypeNotFound) {
			return nil, status.ErrInvalidTicketSelection
		}
		if err != nil {
			return nil, err
		}
		if tt.EventID != event.ID {
			return nil, status.ErrInvalidTicketSelection
		}
		if tt.AvailableSeats < item.Quantity {
			return nil, &status.InsufficientSeatsError{TicketTypeID: tt.ID}
		}

		total = total.Add(tt.Price.Mul(decimal.NewFromInt(int64(item.Quantity))))
		items = append(items, models.LineItem{TicketTypeID: tt.ID, Quantity: item.Quantity})
		lines = append(lines, payment.LineItem{
			Description: fmt.Sprintf("%s - %s", event.Title, tt.Name),
			UnitAmount:  tt.Price,
			Quantity:    int64(item.Quantity),
		})
	}

	order := &models.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		EventID:    event.ID,
		Items:      items,
		TotalPrice: total,
		Status:     models.OrderPending,
		Contact: models.Contact{
			FullName: req.Contact.FullName,
			Email:    req.Contact.Email,
			Phone:    req.Contact.Phone,
		},
		OwnedTicketIDs: []string{},
		CreatedAt:      s.now(),
	}
	if err := s.store.InsertOrder(ctx, order); err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}
	s.monitor.TrackOrderTransition(string(models.OrderPending))

	sess, err := s.checkout.Open(ctx, models.PaymentForOrder, order.ID, userID, &payment.CheckoutRequest{
		LineItems:  lines,
		SuccessURL: callbackURL(s.cfg.PublicURL, models.PaymentForOrder, true, "orderId", order.ID),
		CancelURL:  callbackURL(s.cfg.PublicURL, models.PaymentForOrder, false, "orderId", order.ID),
		Metadata: map[string]string{
			"kind":    string(models.PaymentForOrder),
			"orderId": order.ID,
		},
	})
	if err != nil {
		// the order stays pending and is swept by expiry
		s.log.Error("failed to open order checkout", "order_id", order.ID, "error", err)
		return nil, err
	}
	if err := s.store.SetCheckoutSession(ctx, order.ID, sess.ID); err != nil {
		s.log.Warn("failed to record session on order", "order_id", order.ID, "session_id", sess.ID, "error", err)
	}
	order.CheckoutSessionID = sess.ID

	s.log.Info("order placed", "order_id", order.ID, "user_id", userID, "total", total.String())
	return &CheckoutResult{Order: order, SessionID: sess.ID, SessionURL: sess.URL}, nil
}

// callbackURL is where the gateway redirects the payer once checkout ends.
func callbackURL(publicURL string, kind models.PaymentKind, success bool, idParam, id string) string {
	q := url.Values{}
	q.Set("kind", string(kind))
	q.Set("success", strconv.FormatBool(success))
	q.Set(idParam, id)
	return strings.TrimRight(publicURL, "/") + "/api/v1/payments/callback?" + q.Encode()
}

// ConfirmPayment settles a paid order. Repeated or concurrent calls for the
// same order mint tickets once; later callers get the order as it stands.
func (s *OrderService) ConfirmPayment(ctx context.Context, orderID string) (*models.Order, error) {
	claimed, err := s.store.MarkProcessing(ctx, orderID, s.now())
	if err != nil {
		return nil, fmt.Errorf("claim order %s: %w", orderID, err)
	}
	if !claimed {
		order, err := s.store.FindOrder(ctx, orderID)
		if err != nil {
			return nil, err
		}
		if order.Settled() {
			s.log.Info("order already settled", "order_id", orderID, "status", order.Status)
		} else {
			s.log.Info("order confirmation already in progress", "order_id", orderID)
		}
		return order, nil
	}
	s.monitor.TrackOrderTransition(string(models.OrderProcessing))

	return s.settle(ctx, orderID)
}

// settle runs the remaining steps for an order this caller holds in processing.
func (s *OrderService) settle(ctx context.Context, orderID string) (*models.Order, error) {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		s.revert(ctx, orderID)
		return nil, err
	}

	if err := s.sellItems(ctx, order); err != nil {
		s.revert(ctx, orderID)
		if errors.Is(err, status.ErrInsufficientSeats) {
			s.log.Warn("seats ran out during confirmation", "order_id", orderID, "error", err)
			return nil, err
		}
		s.log.Error("failed to sell order items", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("sell order %s: %w", orderID, err)
	}

	minted, err := s.mintTickets(ctx, order)
	if err != nil {
		s.revert(ctx, orderID)
		s.log.Error("failed to mint tickets", "order_id", orderID, "error", err)
		return nil, fmt.Errorf("mint tickets for order %s: %w", orderID, err)
	}

	ticketIDs, err := s.store.ListOrderTicketIDs(ctx, orderID)
	if err != nil {
		s.revert(ctx, orderID)
		return nil, fmt.Errorf("list tickets for order %s: %w", orderID, err)
	}
	paid, err := s.store.MarkPaid(ctx, orderID, ticketIDs, s.now())
	if err != nil {
		s.revert(ctx, orderID)
		return nil, fmt.Errorf("finalize order %s: %w", orderID, err)
	}
	if !paid {
		s.log.Error("order left processing before it could be finalized", "order_id", orderID)
		return nil, status.New(status.ErrInternal, "order could not be finalized")
	}

	s.monitor.TrackOrderTransition(string(models.OrderPaid))
	s.monitor.TrackTicketsMinted(minted)
	s.log.Info("order paid", "order_id", orderID, "tickets", len(ticketIDs))
	s.notifier.Notify(order.UserID, models.Notification{
		Type:    "order_paid",
		Message: fmt.Sprintf("Your order is confirmed, %d tickets issued", len(ticketIDs)),
		Ref:     orderID,
	})

	return s.store.FindOrder(ctx, orderID)
}

// sellItems takes inventory for each unsold line, in request order. Each line
// is sold and flagged in one transaction so a resumed order skips it.
func (s *OrderService) sellItems(ctx context.Context, order *models.Order) error {
	for i, item := range order.Items {
		if item.Sold {
			continue
		}
		err := s.store.RunInTx(ctx, func(tx *store.Store) error {
			if _, err := s.inventory.WithStore(tx).ReserveAndSell(ctx, item.TicketTypeID, item.Quantity); err != nil {
				return err
			}
			ok, err := tx.MarkItemSold(ctx, order.ID, i)
			if err != nil {
				return err
			}
			if !ok {
				return errLineAlreadySold
			}
			return nil
		})
		if errors.Is(err, errLineAlreadySold) {
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

var errLineAlreadySold = errors.New("order line already sold")

// mintTickets issues the tickets each line is still missing.
func (s *OrderService) mintTickets(ctx context.Context, order *models.Order) (int, error) {
	minted := 0
	for i, item := range order.Items {
		have, err := s.store.CountOrderLineTickets(ctx, order.ID, i)
		if err != nil {
			return minted, err
		}
		if have >= item.Quantity {
			continue
		}
		err = s.store.RunInTx(ctx, func(tx *store.Store) error {
			for n := have; n < item.Quantity; n++ {
				if err := tx.InsertOwnedTicket(ctx, &models.OwnedTicket{
					ID:           uuid.New().String(),
					TicketTypeID: item.TicketTypeID,
					EventID:      order.EventID,
					OwnerID:      order.UserID,
					OrderID:      order.ID,
					OrderLine:    i,
					CreatedAt:    s.now(),
				}); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return minted, err
		}
		minted += item.Quantity - have
	}
	return minted, nil
}

func (s *OrderService) revert(ctx context.Context, orderID string) {
	ok, err := s.store.RevertToPending(ctx, orderID)
	if err != nil {
		s.log.Error("failed to revert order to pending", "order_id", orderID, "error", err)
		return
	}
	if ok {
		s.monitor.TrackOrderTransition(string(models.OrderPending))
	}
}

func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]*models.Order, error) {
	return s.store.ListOrdersByUser(ctx, userID)
}

// GetOrderDetail hides other users' orders behind not found.
func (s *OrderService) GetOrderDetail(ctx context.Context, userID, orderID string) (*models.Order, error) {
	order, err := s.store.FindOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, status.ErrOrderNotFound
	}
	return order, nil
}

// CancelExpiredOrders cancels pending orders older than the expiry window.
func (s *OrderService) CancelExpiredOrders(ctx context.Context) (int64, error) {
	n, err := s.store.CancelExpiredOrders(ctx, s.now().Add(-s.cfg.Expiry))
	if err != nil {
		return 0, err
	}
	for i := int64(0); i < n; i++ {
		s.monitor.TrackOrderTransition(string(models.OrderCancelled))
	}
	return n, nil
}

// RecoverStalledOrders resumes confirmations abandoned mid-way, for example by
// a crash between selling seats and marking the order paid.
func (s *OrderService) RecoverStalledOrders(ctx context.Context) (int, error) {
	now := s.now()
	stalled, err := s.store.ListStalledOrders(ctx, now.Add(-s.cfg.StallTimeout))
	if err != nil {
		return 0, err
	}

	resumed := 0
	for _, order := range stalled {
		if order.ProcessingStartedAt == nil {
			continue
		}
		ok, err := s.store.ReclaimStalled(ctx, order.ID, *order.ProcessingStartedAt, now)
		if err != nil {
			s.log.Error("failed to reclaim stalled order", "order_id", order.ID, "error", err)
			continue
		}
		if !ok {
			continue
		}
		s.log.Warn("resuming stalled order", "order_id", order.ID, "started_at", order.ProcessingStartedAt)
		if _, err := s.settle(ctx, order.ID); err != nil {
			s.log.Error("stalled order not recovered", "order_id", order.ID, "error", err)
			continue
		}
		resumed++
	}
	return resumed, nil
}
