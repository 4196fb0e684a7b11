package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/pocketbase/dbx"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type ownedTicketRow struct {
	ID                    string `db:"id"`
	TicketTypeID          string `db:"ticket_type_id"`
	EventID               string `db:"event_id"`
	OwnerID               string `db:"owner_id"`
	OrderID               string `db:"order_id"`
	OrderLine             int    `db:"order_line"`
	IsTraded              bool   `db:"is_traded"`
	IsPendingTrade        bool   `db:"is_pending_trade"`
	PendingRecipientID    string `db:"pending_recipient_id"`
	PendingTradeCreatedAt int64  `db:"pending_trade_created_at"`
	Created               int64  `db:"created"`
}

func (r *ownedTicketRow) model() *models.OwnedTicket {
	return &models.OwnedTicket{
		ID:                    r.ID,
		TicketTypeID:          r.TicketTypeID,
		EventID:               r.EventID,
		OwnerID:               r.OwnerID,
		OrderID:               r.OrderID,
		OrderLine:             r.OrderLine,
		IsTraded:              r.IsTraded,
		IsPendingTrade:        r.IsPendingTrade,
		PendingRecipientID:    r.PendingRecipientID,
		PendingTradeCreatedAt: fromMillisPtr(r.PendingTradeCreatedAt),
		TradeHistory:          []models.TradeEntry{},
		CreatedAt:             fromMillis(r.Created),
	}
}

func (s *Store) InsertOwnedTicket(ctx context.Context, t *models.OwnedTicket) error {
	_, err := s.db.Insert("owned_tickets", dbx.Params{
		"id":               t.ID,
		"ticket_type_id":   t.TicketTypeID,
		"event_id":         t.EventID,
		"owner_id":         t.OwnerID,
		"order_id":         t.OrderID,
		"order_line":       t.OrderLine,
		"is_traded":        t.IsTraded,
		"is_pending_trade": false,
		"created":          toMillis(t.CreatedAt),
	}).WithContext(ctx).Execute()
	return err
}

// CountOrderLineTickets counts the tickets already minted for one order line.
func (s *Store) CountOrderLineTickets(ctx context.Context, orderID string, lineNo int) (int, error) {
	var n int
	err := s.db.Select("COUNT(*)").From("owned_tickets").
		Where(dbx.HashExp{"order_id": orderID, "order_line": lineNo}).
		WithContext(ctx).Row(&n)
	return n, err
}

// ListOrderTicketIDs returns the ids of tickets minted for an order in mint order.
func (s *Store) ListOrderTicketIDs(ctx context.Context, orderID string) ([]string, error) {
	var ids []string
	err := s.db.Select("id").From("owned_tickets").
		Where(dbx.HashExp{"order_id": orderID}).
		OrderBy("order_line ASC", "created ASC", "id ASC").
		WithContext(ctx).Column(&ids)
	return ids, err
}

func (s *Store) FindOwnedTicket(ctx context.Context, id string) (*models.OwnedTicket, error) {
	var row ownedTicketRow
	err := s.db.Select("*").From("owned_tickets").Where(dbx.HashExp{"id": id}).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTicketNotFound
	}
	if err != nil {
		return nil, err
	}
	tickets, err := s.withHistory(ctx, []ownedTicketRow{row})
	if err != nil {
		return nil, err
	}
	return tickets[0], nil
}

func (s *Store) ListOwnedTickets(ctx context.Context, ownerID string) ([]*models.OwnedTicket, error) {
	return s.listOwned(ctx, dbx.HashExp{"owner_id": ownerID})
}

func (s *Store) ListPendingForRecipient(ctx context.Context, recipientID string) ([]*models.OwnedTicket, error) {
	return s.listOwned(ctx, dbx.HashExp{"is_pending_trade": true, "pending_recipient_id": recipientID})
}

func (s *Store) listOwned(ctx context.Context, where dbx.Expression) ([]*models.OwnedTicket, error) {
	var rows []ownedTicketRow
	err := s.db.Select("*").From("owned_tickets").Where(where).
		OrderBy("created DESC", "id ASC").
		WithContext(ctx).All(&rows)
	if err != nil {
		return nil, err
	}
	return s.withHistory(ctx, rows)
}

func (s *Store) withHistory(ctx context.Context, rows []ownedTicketRow) ([]*models.OwnedTicket, error) {
	tickets := make([]*models.OwnedTicket, 0, len(rows))
	if len(rows) == 0 {
		return tickets, nil
	}
	ids := make([]any, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	history, err := s.listTrades(ctx, dbx.In("ticket_id", ids...), "trade_date ASC")
	if err != nil {
		return nil, err
	}
	byTicket := make(map[string][]models.TradeEntry, len(rows))
	for _, h := range history {
		byTicket[h.TicketID] = append(byTicket[h.TicketID], h)
	}
	for i := range rows {
		t := rows[i].model()
		if h, ok := byTicket[t.ID]; ok {
			t.TradeHistory = h
		}
		tickets = append(tickets, t)
	}
	return tickets, nil
}

// MarkPendingTrade offers an idle ticket owned by ownerID to recipientID.
func (s *Store) MarkPendingTrade(ctx context.Context, ticketID, ownerID, recipientID string, now time.Time) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE owned_tickets
		SET is_pending_trade = TRUE, pending_recipient_id = {:recipient}, pending_trade_created_at = {:now}
		WHERE id = {:id} AND owner_id = {:owner} AND is_pending_trade = FALSE`,
	).Bind(dbx.Params{
		"id":        ticketID,
		"owner":     ownerID,
		"recipient": recipientID,
		"now":       toMillis(now),
	}).WithContext(ctx).Execute())
}

// ClearPendingTrade withdraws the offer addressed to recipientID.
func (s *Store) ClearPendingTrade(ctx context.Context, ticketID, recipientID string) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE owned_tickets
		SET is_pending_trade = FALSE, pending_recipient_id = '', pending_trade_created_at = 0
		WHERE id = {:id} AND is_pending_trade = TRUE AND pending_recipient_id = {:recipient}`,
	).Bind(dbx.Params{"id": ticketID, "recipient": recipientID}).WithContext(ctx).Execute())
}

// TransferTicket hands a pending ticket from senderID to recipientID if the
// offer is still open and was made at or after notBefore.
func (s *Store) TransferTicket(ctx context.Context, ticketID, senderID, recipientID string, notBefore time.Time) (bool, error) {
	return affected(s.db.NewQuery(`
		UPDATE owned_tickets
		SET owner_id = {:recipient}, is_traded = TRUE,
		    is_pending_trade = FALSE, pending_recipient_id = '', pending_trade_created_at = 0
		WHERE id = {:id} AND owner_id = {:sender} AND is_pending_trade = TRUE
		  AND pending_recipient_id = {:recipient} AND pending_trade_created_at >= {:notBefore}`,
	).Bind(dbx.Params{
		"id":        ticketID,
		"sender":    senderID,
		"recipient": recipientID,
		"notBefore": toMillis(notBefore),
	}).WithContext(ctx).Execute())
}

// ExpirePendingTrades clears offers made before cutoff.
func (s *Store) ExpirePendingTrades(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.NewQuery(`
		UPDATE owned_tickets
		SET is_pending_trade = FALSE, pending_recipient_id = '', pending_trade_created_at = 0
		WHERE is_pending_trade = TRUE AND pending_trade_created_at < {:cutoff}`,
	).Bind(dbx.Params{"cutoff": toMillis(cutoff)}).WithContext(ctx).Execute()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
