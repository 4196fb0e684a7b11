package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/pocketbase/dbx"
	"github.com/shopspring/decimal"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

type ticketTypeRow struct {
	ID             string          `db:"id"`
	EventID        string          `db:"event_id"`
	Name           string          `db:"name"`
	Price          decimal.Decimal `db:"price"`
	TotalSeats     int             `db:"total_seats"`
	AvailableSeats int             `db:"available_seats"`
	SoldCount      int             `db:"sold_count"`
	Status         string          `db:"status"`
	Created        int64           `db:"created"`
}

func (r *ticketTypeRow) model() *models.TicketType {
	return &models.TicketType{
		ID:             r.ID,
		EventID:        r.EventID,
		Name:           r.Name,
		Price:          r.Price,
		TotalSeats:     r.TotalSeats,
		AvailableSeats: r.AvailableSeats,
		SoldCount:      r.SoldCount,
		Status:         models.TicketTypeStatus(r.Status),
		CreatedAt:      fromMillis(r.Created),
	}
}

func (s *Store) InsertTicketType(ctx context.Context, t *models.TicketType) error {
	_, err := s.db.Insert("ticket_types", dbx.Params{
		"id":              t.ID,
		"event_id":        t.EventID,
		"name":            t.Name,
		"price":           t.Price.String(),
		"total_seats":     t.TotalSeats,
		"available_seats": t.AvailableSeats,
		"sold_count":      t.SoldCount,
		"status":          string(t.Status),
		"created":         toMillis(t.CreatedAt),
	}).WithContext(ctx).Execute()
	return err
}

func (s *Store) FindTicketType(ctx context.Context, id string) (*models.TicketType, error) {
	var row ticketTypeRow
	err := s.db.Select("*").From("ticket_types").Where(dbx.HashExp{"id": id}).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrTicketTypeNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

func (s *Store) ListTicketTypesByEvent(ctx context.Context, eventID string) ([]*models.TicketType, error) {
	var rows []ticketTypeRow
	err := s.db.Select("*").From("ticket_types").
		Where(dbx.HashExp{"event_id": eventID}).
		OrderBy("created ASC", "id ASC").
		WithContext(ctx).All(&rows)
	if err != nil {
		return nil, err
	}
	types := make([]*models.TicketType, 0, len(rows))
	for i := range rows {
		types = append(types, rows[i].model())
	}
	return types, nil
}

// UpdateTicketTypeDetails changes name and price, which never affect inventory.
func (s *Store) UpdateTicketTypeDetails(ctx context.Context, id, name string, price decimal.Decimal) error {
	ok, err := affected(s.db.Update("ticket_types", dbx.Params{
		"name":  name,
		"price": price.String(),
	}, dbx.HashExp{"id": id}).WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrTicketTypeNotFound
	}
	return nil
}

// ResizeTicketType sets a new seat total. Only allowed while nothing has been sold.
func (s *Store) ResizeTicketType(ctx context.Context, id string, totalSeats int) error {
	ok, err := affected(s.db.NewQuery(`
		UPDATE ticket_types
		SET total_seats = {:total},
		    available_seats = {:total},
		    status = CASE WHEN {:total} > 0 THEN {:available} ELSE {:soldOut} END
		WHERE id = {:id} AND sold_count = 0`,
	).Bind(dbx.Params{
		"id":        id,
		"total":     totalSeats,
		"available": string(models.TicketTypeAvailable),
		"soldOut":   string(models.TicketTypeSoldOut),
	}).WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.FindTicketType(ctx, id); err != nil {
		return err
	}
	return status.ErrSeatsLocked
}

// DeleteTicketType removes a ticket type that has no sales.
func (s *Store) DeleteTicketType(ctx context.Context, id string) error {
	ok, err := affected(s.db.Delete("ticket_types", dbx.HashExp{"id": id, "sold_count": 0}).WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	if _, err := s.FindTicketType(ctx, id); err != nil {
		return err
	}
	return status.ErrSeatsLocked
}

// ReserveAndSell decrements available seats and increments the sold count in
// one conditional update. It fails with InsufficientSeatsError when fewer than
// quantity seats remain at write time.
func (s *Store) ReserveAndSell(ctx context.Context, id string, quantity int) (*models.TicketType, error) {
	ok, err := affected(s.db.NewQuery(`
		UPDATE ticket_types
		SET available_seats = available_seats - {:qty},
		    sold_count = sold_count + {:qty},
		    status = CASE WHEN available_seats - {:qty} = 0 THEN {:soldOut} ELSE status END
		WHERE id = {:id} AND available_seats >= {:qty}`,
	).Bind(dbx.Params{
		"id":      id,
		"qty":     quantity,
		"soldOut": string(models.TicketTypeSoldOut),
	}).WithContext(ctx).Execute())
	if err != nil {
		return nil, err
	}
	if !ok {
		if _, err := s.FindTicketType(ctx, id); err != nil {
			return nil, err
		}
		return nil, &status.InsufficientSeatsError{TicketTypeID: id}
	}
	return s.FindTicketType(ctx, id)
}
