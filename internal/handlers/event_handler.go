package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/models"
	"ticket-marketplace/utils"
)

type EventHandler struct {
	events    *services.EventService
	inventory *services.InventoryService
}

func NewEventHandler(events *services.EventService, inventory *services.InventoryService) *EventHandler {
	return &EventHandler{events: events, inventory: inventory}
}

type eventDetail struct {
	*models.Event
	TicketTypes []*models.TicketType `json:"ticket_types"`
}

func (h *EventHandler) ListEvents(e *core.RequestEvent) error {
	events, err := h.events.List(e.Request.Context())
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", events)
}

func (h *EventHandler) GetEvent(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	event, err := h.events.Get(ctx, e.Request.PathValue("eventId"))
	if err != nil {
		return fail(e, err)
	}
	types, err := h.inventory.ListByEvent(ctx, event.ID)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", eventDetail{Event: event, TicketTypes: types})
}

func (h *EventHandler) CreateEvent(e *core.RequestEvent) error {
	var in services.EventInput
	if err := bind(e, &in); err != nil {
		return fail(e, err)
	}
	if err := utils.ValidateStruct(in); err != nil {
		return fail(e, err)
	}
	event, err := h.events.Create(e.Request.Context(), in)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusCreated, "Event created", event)
}

func (h *EventHandler) UpdateEvent(e *core.RequestEvent) error {
	var in services.EventInput
	if err := bind(e, &in); err != nil {
		return fail(e, err)
	}
	if err := utils.ValidateStruct(in); err != nil {
		return fail(e, err)
	}
	event, err := h.events.Update(e.Request.Context(), e.Request.PathValue("eventId"), in)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Event updated", event)
}

func (h *EventHandler) DeleteEvent(e *core.RequestEvent) error {
	if err := h.events.Delete(e.Request.Context(), e.Request.PathValue("eventId")); err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Event deleted", nil)
}

func (h *EventHandler) ListTicketTypes(e *core.RequestEvent) error {
	types, err := h.inventory.ListByEvent(e.Request.Context(), e.Request.PathValue("eventId"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", types)
}

func (h *EventHandler) GetTicketType(e *core.RequestEvent) error {
	tt, err := h.inventory.Get(e.Request.Context(), e.Request.PathValue("ticketTypeId"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", tt)
}

func (h *EventHandler) AddTicketType(e *core.RequestEvent) error {
	var in services.TicketTypeInput
	if err := bind(e, &in); err != nil {
		return fail(e, err)
	}
	if err := utils.ValidateStruct(in); err != nil {
		return fail(e, err)
	}
	tt, err := h.inventory.AddTicketType(e.Request.Context(), e.Request.PathValue("eventId"), in)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusCreated, "Ticket type added", tt)
}

func (h *EventHandler) UpdateTicketType(e *core.RequestEvent) error {
	var in services.TicketTypeUpdate
	if err := bind(e, &in); err != nil {
		return fail(e, err)
	}
	if err := utils.ValidateStruct(in); err != nil {
		return fail(e, err)
	}
	tt, err := h.inventory.UpdateTicketType(e.Request.Context(), e.Request.PathValue("ticketTypeId"), in)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Ticket type updated", tt)
}

func (h *EventHandler) DeleteTicketType(e *core.RequestEvent) error {
	if err := h.inventory.DeleteTicketType(e.Request.Context(), e.Request.PathValue("ticketTypeId")); err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Ticket type deleted", nil)
}
