package store

import (
	"context"

	"github.com/pocketbase/dbx"

	"ticket-marketplace/models"
)

type tradeRow struct {
	ID         string `db:"id"`
	TicketID   string `db:"ticket_id"`
	FromUserID string `db:"from_user_id"`
	ToUserID   string `db:"to_user_id"`
	TradeDate  int64  `db:"trade_date"`
}

func (r *tradeRow) model() models.TradeEntry {
	return models.TradeEntry{
		ID:         r.ID,
		TicketID:   r.TicketID,
		FromUserID: r.FromUserID,
		ToUserID:   r.ToUserID,
		TradeDate:  fromMillis(r.TradeDate),
	}
}

func (s *Store) InsertTradeEntry(ctx context.Context, e *models.TradeEntry) error {
	_, err := s.db.Insert("trade_history", dbx.Params{
		"id":           e.ID,
		"ticket_id":    e.TicketID,
		"from_user_id": e.FromUserID,
		"to_user_id":   e.ToUserID,
		"trade_date":   toMillis(e.TradeDate),
	}).WithContext(ctx).Execute()
	return err
}

// ListTrades returns every recorded trade offer, newest first.
func (s *Store) ListTrades(ctx context.Context) ([]models.TradeEntry, error) {
	return s.listTrades(ctx, nil, "trade_date DESC")
}

func (s *Store) listTrades(ctx context.Context, where dbx.Expression, order string) ([]models.TradeEntry, error) {
	var rows []tradeRow
	q := s.db.Select("*").From("trade_history")
	if where != nil {
		q = q.Where(where)
	}
	if err := q.OrderBy(order, "id ASC").WithContext(ctx).All(&rows); err != nil {
		return nil, err
	}
	entries := make([]models.TradeEntry, 0, len(rows))
	for i := range rows {
		entries = append(entries, rows[i].model())
	}
	return entries, nil
}

// TraderStats is the per-user input of the scalper heuristic.
type TraderStats struct {
	UserID          string `db:"user_id"`
	TotalTickets    int    `db:"total_tickets"`
	Trades          int    `db:"trades"`
	ReputationScore int    `db:"reputation_score"`
}

// ListTraderStats aggregates ticket and trade counts for every user who has
// ever owned or offered a ticket.
func (s *Store) ListTraderStats(ctx context.Context) ([]TraderStats, error) {
	var stats []TraderStats
	err := s.db.NewQuery(`
		SELECT a.id AS user_id,
		       a.reputation_score AS reputation_score,
		       (SELECT COUNT(*) FROM owned_tickets o WHERE o.owner_id = a.id) AS total_tickets,
		       (SELECT COUNT(DISTINCT h.ticket_id) FROM trade_history h WHERE h.from_user_id = a.id) AS trades
		FROM accounts a
		WHERE EXISTS (SELECT 1 FROM owned_tickets o WHERE o.owner_id = a.id)
		   OR EXISTS (SELECT 1 FROM trade_history h WHERE h.from_user_id = a.id)
		ORDER BY a.id`,
	).WithContext(ctx).All(&stats)
	return stats, err
}
