package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/utils"
)

type TicketHandler struct {
	tickets *services.TicketService
	trades  *services.TradeService
}

func NewTicketHandler(tickets *services.TicketService, trades *services.TradeService) *TicketHandler {
	return &TicketHandler{tickets: tickets, trades: trades}
}

func (h *TicketHandler) ListTickets(e *core.RequestEvent) error {
	tickets, err := h.tickets.ListOwned(e.Request.Context(), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", tickets)
}

func (h *TicketHandler) GetTicket(e *core.RequestEvent) error {
	ticket, err := h.tickets.GetOwned(e.Request.Context(), userID(e), e.Request.PathValue("ticketId"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", ticket)
}

func (h *TicketHandler) QRCode(e *core.RequestEvent) error {
	payload, err := h.tickets.QRPayload(e.Request.Context(), userID(e), e.Request.PathValue("ticketId"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", payload)
}

func (h *TicketHandler) InitiateTrade(e *core.RequestEvent) error {
	var req services.InitiateTradeRequest
	if err := bind(e, &req); err != nil {
		return fail(e, err)
	}
	if err := utils.ValidateStruct(req); err != nil {
		return fail(e, err)
	}
	ticket, err := h.trades.Initiate(e.Request.Context(), e.Request.PathValue("ticketId"), userID(e), req.RecipientEmail, req.Password)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Trade offer sent", ticket)
}

func (h *TicketHandler) ListPendingTrades(e *core.RequestEvent) error {
	tickets, err := h.trades.ListPendingForRecipient(e.Request.Context(), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", tickets)
}

func (h *TicketHandler) AcceptTrade(e *core.RequestEvent) error {
	sess, err := h.trades.Accept(e.Request.Context(), e.Request.PathValue("ticketId"), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Checkout created", sess)
}

func (h *TicketHandler) ConfirmTrade(e *core.RequestEvent) error {
	ticket, err := h.trades.Confirm(e.Request.Context(), e.Request.PathValue("ticketId"), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Trade completed", ticket)
}

func (h *TicketHandler) CancelTrade(e *core.RequestEvent) error {
	if err := h.trades.Cancel(e.Request.Context(), e.Request.PathValue("ticketId"), userID(e)); err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Trade declined", nil)
}
