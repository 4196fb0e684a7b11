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

type eventRow struct {
	ID            string `db:"id"`
	Title         string `db:"title"`
	Description   string `db:"description"`
	Venue         string `db:"venue"`
	Category      string `db:"category"`
	Image         string `db:"image"`
	EventDate     int64  `db:"event_date"`
	SaleStartDate int64  `db:"sale_start_date"`
	Status        string `db:"status"`
	Created       int64  `db:"created"`
}

func (r *eventRow) model() *models.Event {
	return &models.Event{
		ID:            r.ID,
		Title:         r.Title,
		Description:   r.Description,
		Venue:         r.Venue,
		Category:      r.Category,
		Image:         r.Image,
		EventDate:     fromMillis(r.EventDate),
		SaleStartDate: fromMillis(r.SaleStartDate),
		Status:        models.EventStatus(r.Status),
		CreatedAt:     fromMillis(r.Created),
	}
}

func eventParams(e *models.Event) dbx.Params {
	return dbx.Params{
		"title":           e.Title,
		"description":     e.Description,
		"venue":           e.Venue,
		"category":        e.Category,
		"image":           e.Image,
		"event_date":      toMillis(e.EventDate),
		"sale_start_date": toMillis(e.SaleStartDate),
		"status":          string(e.Status),
	}
}

func (s *Store) InsertEvent(ctx context.Context, e *models.Event) error {
	params := eventParams(e)
	params["id"] = e.ID
	params["created"] = toMillis(e.CreatedAt)
	_, err := s.db.Insert("events", params).WithContext(ctx).Execute()
	return err
}

func (s *Store) UpdateEvent(ctx context.Context, e *models.Event) error {
	ok, err := affected(s.db.Update("events", eventParams(e), dbx.HashExp{"id": e.ID}).WithContext(ctx).Execute())
	if err != nil {
		return err
	}
	if !ok {
		return status.ErrEventNotFound
	}
	return nil
}

// DeleteEvent removes an event that has no sold tickets and no open orders,
// together with its ticket types.
func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	return s.RunInTx(ctx, func(tx *Store) error {
		ok, err := affected(tx.db.NewQuery(`
			DELETE FROM events
			WHERE id = {:id}
			  AND NOT EXISTS (SELECT 1 FROM ticket_types t WHERE t.event_id = {:id} AND t.sold_count > 0)
			  AND NOT EXISTS (SELECT 1 FROM orders o WHERE o.event_id = {:id} AND o.status <> {:cancelled})`,
		).Bind(dbx.Params{"id": id, "cancelled": string(models.OrderCancelled)}).WithContext(ctx).Execute())
		if err != nil {
			return err
		}
		if !ok {
			if _, err := tx.FindEvent(ctx, id); err != nil {
				return err
			}
			return status.ErrEventHasSales
		}
		_, err = tx.db.Delete("ticket_types", dbx.HashExp{"event_id": id}).WithContext(ctx).Execute()
		return err
	})
}

func (s *Store) FindEvent(ctx context.Context, id string) (*models.Event, error) {
	var row eventRow
	err := s.db.Select("*").From("events").Where(dbx.HashExp{"id": id}).WithContext(ctx).One(&row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, status.ErrEventNotFound
	}
	if err != nil {
		return nil, err
	}
	return row.model(), nil
}

func (s *Store) ListEvents(ctx context.Context) ([]*models.Event, error) {
	var rows []eventRow
	if err := s.db.Select("*").From("events").OrderBy("event_date ASC").WithContext(ctx).All(&rows); err != nil {
		return nil, err
	}
	events := make([]*models.Event, 0, len(rows))
	for i := range rows {
		events = append(events, rows[i].model())
	}
	return events, nil
}

// CompletePastEvents moves ongoing events whose date is before now to completed.
func (s *Store) CompletePastEvents(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.NewQuery(
		"UPDATE events SET status = {:completed} WHERE status = {:ongoing} AND event_date < {:now}",
	).Bind(dbx.Params{
		"completed": string(models.EventCompleted),
		"ongoing":   string(models.EventOngoing),
		"now":       toMillis(now),
	}).WithContext(ctx).Execute()
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
