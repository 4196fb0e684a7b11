package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
)

type AdminHandler struct {
	users   *services.UserService
	trades  *services.TradeService
	scalper *services.ScalperService
}

func NewAdminHandler(users *services.UserService, trades *services.TradeService, scalper *services.ScalperService) *AdminHandler {
	return &AdminHandler{users: users, trades: trades, scalper: scalper}
}

func (h *AdminHandler) ListTrades(e *core.RequestEvent) error {
	trades, err := h.trades.ListTrades(e.Request.Context())
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", trades)
}

// Suspects runs the scalper classifier over all traders.
func (h *AdminHandler) Suspects(e *core.RequestEvent) error {
	results, err := h.scalper.Detect(e.Request.Context())
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", results)
}

func (h *AdminHandler) ListUsers(e *core.RequestEvent) error {
	users, err := h.users.ListUsers(e.Request.Context())
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", users)
}

func (h *AdminHandler) BlockUser(e *core.RequestEvent) error {
	var req struct {
		Blocked bool `json:"blocked"`
	}
	if err := bind(e, &req); err != nil {
		return fail(e, err)
	}
	if err := h.users.SetBlocked(e.Request.Context(), e.Request.PathValue("userId"), req.Blocked); err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "User updated", nil)
}
