package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type orderRow struct {
	ID                  string          `db:"id"`
	UserID              string          `db:"user_id"`
	EventID             string          `db:"event_id"`
	TotalPrice          decimal.Decimal `db:"total_price"`
	Status              string          `db:"status"`
	OwnedTicketIDs      string          `db:"owned_ticket_ids"`
	FullName            string          `db:"full_name"`
	Email               string          `db:"email"`
	Phone               string          `db:"phone"`
	CheckoutSessionID   string          `db:"checkout_session_id"`
	ProcessingStartedAt int64           `db:"processing_started_at"`
	PaidAt              int64           `db:"paid_at"`
	Created             int64           `db:"created"`
}

type orderItemRow struct {
	OrderID      string `db:"order_id"`
	LineNo       int    `db:"line_no"`
	TicketTypeID string `db:"ticket_type_id"`
	Quantity     int    `db:"quantity"`
	Sold         bool   `db:"sold"`
}

func (r *orderRow) model() (*models.Order, error) {
	o := &models.Order{
		ID:         r.ID,
		UserID:     r.UserID,
		EventID:    r.EventID,
		TotalPrice: r.TotalPrice,
		Status:     models.OrderStatus(r.Status),
		Contact: models.Contact{
			FullName: r.FullName,
			Email:    r.Email,
			Phone:    r.Phone,
		},
		CheckoutSessionID:   r.CheckoutSessionID,
		ProcessingStartedAt: fromMillisPtr(r.ProcessingStartedAt),
		PaidAt:              fromMillisPtr(r.PaidAt),
		CreatedAt:           fromMillis(r.Created),
	}
	if err := json.Unmarshal([]byte(r.OwnedTicketIDs), &o.OwnedTicketIDs); err != nil {
		return nil, err
	}
	return o, nil
}

// InsertOrder stores the order and its line items in one transaction.
func (s *Store) InsertOrder(ctx context.Context, o *models.Order) error {
	return s.RunInTx(ctx, func(tx *Store) error {
		_, err := tx.db.Insert("orders", dbx.Params{
			"id":                  o.ID,
			"user_id":             o.UserID,
			"event_id":            o.EventID,
			"total_price":         o.TotalPrice.String(),
			"status":              string(o.Status),
			"owned_ticket_ids":    "[]",
			"full_name":           o.Contact.FullName,
			"email":               o.Contact.Email,
			"phone":               o.Contact.Phone,
			"checkout_session_id": o.CheckoutSessionID,
			"created":             toMillis(o.CreatedAt),
		}).WithContext(ctx).Execute()
		if err != nil {
			return err
		}
		for i, item := range o.Items {
			_, err := tx.db.Insert("order_items", dbx.Params{
				"order_id":       o.ID,
				"line_no":        i,
				"ticket_type_id": item.TicketTypeID,
				"quantity":       item.Quantity,
				"sold":           false,
			}).WithContext(ctx).Execute()
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) FindOrder(ctx context.Context, id string) (*models.Order, error) {
	var row orderRow
	err := s.db.Select("*").From("orders").Where(dbx.HashExp{"id": id}).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	orders, err := s.withItems(ctx, []orderRow{row})
	if err != nil {
		return nil, err
	}
	return orders[0], nil
}

func (s *Store) ListOrdersByUser(ctx context.Context, userID string) ([]*models.Order, error) {
	var rows []orderRow
	err := s.db.Select("*").From("orders").
		Where(dbx.HashExp{"user_id": userID}).
		OrderBy("created DESC").
		WithContext(ctx).All(&rows)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, rows)
}

// ListStalledOrders returns processing orders whose confirmation started before cutoff.
func (s *Store) ListStalledOrders(ctx context.Context, cutoff time.Time) ([]*models.Order, error) {
	var rows []orderRow
	err := s.db.Select("*").From("orders").
		Where(dbx.HashExp{"status": string(models.OrderProcessing)}).
		AndWhere(dbx.NewExp("processing_started_at < {:cutoff}", dbx.Params{"cutoff": toMillis(cutoff)})).
		OrderBy("processing_started_at ASC").
		WithContext(ctx).All(&rows)
	if err != nil {
		return nil, err
	}
	return s.withItems(ctx, rows)
}

func (s *Store) withItems(ctx context.Context, rows []orderRow) ([]*models.Order, error) {
	if len(rows) == 0 {
		return []*models.Order{}, nil
	}
	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}

	var items []orderItemRow
	err := s.db.Select("*").From("order_items").
		Where(dbx.In("order_id", ids...)).
		OrderBy("order_id ASC", "line_no ASC").
		WithContext(ctx).All(&items)
	if err != nil {
		return nil, err
	}
	byOrder := make(map[string][]models.LineItem, len(rows))
	for _, it := range items {
		byOrder[it.OrderID] = append(byOrder[it.OrderID], models.LineItem{
			TicketTypeID: it.TicketTypeID,
			Quantity:     it.Quantity,
			Sold:         it.Sold,
		})
	}

	orders := make([]*models.Order, 0, len(rows))
	for i := range rows {
		o, err := rows[i].model()
		if err != nil {
			return nil, err
		}
		o.Items = byOrder[o.ID]
		orders = append(orders, o)
	}
	return orders, nil
}

func (s *Store) SetCheckoutSession(ctx context.Context, orderID, sessionID string) error {
	_, err := s.db.Update("orders", dbx.Params{"checkout_session_id": sessionID}, dbx.HashExp{"id": orderID}).
		WithContext(ctx).Execute()
	return err
}

// MarkProcessing claims a pending order with no owned tickets for confirmation.
func (s *Store) MarkProcessing(ctx context.Context, orderID string, now time.Time) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE orders SET status = {:processing}, processing_started_at = {:now}
		WHERE id = {:id} AND status = {:pending} AND owned_ticket_ids = '[]'`,
	).Bind(dbx.Params{
		"id":         orderID,
		"now":        toMillis(now),
		"processing": string(models.OrderProcessing),
		"pending":    string(models.OrderPending),
	}).WithContext(ctx).Execute())
}

// ReclaimStalled re-stamps a processing order, but only if its stamp is still
// the one the caller observed.
func (s *Store) ReclaimStalled(ctx context.Context, orderID string, observed, now time.Time) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE orders SET processing_started_at = {:now}
		WHERE id = {:id} AND status = {:processing} AND processing_started_at = {:observed}`,
	).Bind(dbx.Params{
		"id":         orderID,
		"now":        toMillis(now),
		"observed":   toMillis(observed),
		"processing": string(models.OrderProcessing),
	}).WithContext(ctx).Execute())
}

// RevertToPending rolls a processing order back to pending.
func (s *Store) RevertToPending(ctx context.Context, orderID string) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE orders SET status = {:pending}, processing_started_at = 0
		WHERE id = {:id} AND status = {:processing}`,
	).Bind(dbx.Params{
		"id":         orderID,
		"pending":    string(models.OrderPending),
		"processing": string(models.OrderProcessing),
	}).WithContext(ctx).Execute())
}

// MarkItemSold flags one line item as having taken its seats from inventory.
func (s *Store) MarkItemSold(ctx context.Context, orderID string, lineNo int) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE order_items SET sold = TRUE
		WHERE order_id = {:id} AND line_no = {:line} AND sold = FALSE`,
	).Bind(dbx.Params{"id": orderID, "line": lineNo}).WithContext(ctx).Execute())
}

// MarkPaid finalizes a processing order with its minted tickets.
func (s *Store) MarkPaid(ctx context.Context, orderID string, ticketIDs []string, now time.Time) (bool, error) {
	if ticketIDs == nil {
		ticketIDs = []string{}
	}
	raw, err := json.Marshal(ticketIDs)
	if err != nil {
		return false, err
	}
	return affected(s.db.NewQuery(`
		UPDATE orders SET status = {:paid}, owned_ticket_ids = {:tickets}, paid_at = {:now}
		WHERE id = {:id} AND status = {:processing}`,
	).Bind(dbx.Params{
		"id":         orderID,
		"tickets":    string(raw),
		"now":        toMillis(now),
		"paid":       string(models.OrderPaid),
		"processing": string(models.OrderProcessing),
	}).WithContext(ctx).Execute())
}

// CancelExpiredOrders cancels pending orders created before cutoff.
func (s *Store) CancelExpiredOrders(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.NewQuery(
		"UPDATE orders SET status = {:cancelled} WHERE status = {:pending} AND created < {:cutoff}",
	).Bind(dbx.Params{
		"cancelled": string(models.OrderCancelled),
		"pending":   string(models.OrderPending),
		"cutoff":    toMillis(cutoff),
	}).WithContext(ctx).Execute()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
