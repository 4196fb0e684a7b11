package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
)

type EventService struct {
	store *store.Store
	log   *slog.Logger
	now   func() time.Time
}

func NewEventService(st *store.Store, logger *slog.Logger) *EventService {
	return &EventService{store: st, log: logger, now: time.Now}
}

type EventInput struct {
	Title         string    `json:"title" validate:"required,max=200"`
	Description   string    `json:"description"`
	Venue         string    `json:"venue" validate:"required"`
	Category      string    `json:"category"`
	Image         string    `json:"image" validate:"omitempty,url"`
	EventDate     time.Time `json:"event_date" validate:"required"`
	SaleStartDate time.Time `json:"sale_start_date"`
}

func (in EventInput) check() error {
	if strings.TrimSpace(in.Title) == "" {
		return status.Validationf("title is required")
	}
	if in.EventDate.IsZero() {
		return status.Validationf("event date is required")
	}
	if !in.SaleStartDate.IsZero() && in.SaleStartDate.After(in.EventDate) {
		return status.Validationf("sales cannot start after the event")
	}
	return nil
}

func (s *EventService) Create(ctx context.Context, in EventInput) (*models.Event, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	e := &models.Event{
		ID:            uuid.New().String(),
		Title:         strings.TrimSpace(in.Title),
		Description:   in.Description,
		Venue:         in.Venue,
		Category:      in.Category,
		Image:         in.Image,
		EventDate:     in.EventDate,
		SaleStartDate: in.SaleStartDate,
		Status:        models.EventOngoing,
		CreatedAt:     s.now(),
	}
	if !e.EventDate.After(s.now()) {
		e.Status = models.EventCompleted
	}
	if err := s.store.InsertEvent(ctx, e); err != nil {
		return nil, err
	}
	s.log.Info("event created", "event_id", e.ID, "title", e.Title)
	return e, nil
}

func (s *EventService) Update(ctx context.Context, id string, in EventInput) (*models.Event, error) {
	if err := in.check(); err != nil {
		return nil, err
	}
	e, err := s.store.FindEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	e.Title = strings.TrimSpace(in.Title)
	e.Description = in.Description
	e.Venue = in.Venue
	e.Category = in.Category
	e.Image = in.Image
	e.EventDate = in.EventDate
	e.SaleStartDate = in.SaleStartDate
	if e.EventDate.After(s.now()) {
		e.Status = models.EventOngoing
	} else {
		e.Status = models.EventCompleted
	}
	if err := s.store.UpdateEvent(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *EventService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteEvent(ctx, id)
}

func (s *EventService) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.store.FindEvent(ctx, id)
}

func (s *EventService) List(ctx context.Context) ([]*models.Event, error) {
	return s.store.ListEvents(ctx)
}

// CompletePastEvents marks ongoing events whose date has passed as completed.
func (s *EventService) CompletePastEvents(ctx context.Context) (int64, error) {
	return s.store.CompletePastEvents(ctx, s.now())
}
