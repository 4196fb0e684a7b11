package handlers

import (
	"net/http"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
)

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) PlaceOrder(e *core.RequestEvent) error {
	var req services.PlaceOrderRequest
	if err := bind(e, &req); err != nil {
		return fail(e, err)
	}
	res, err := h.orders.PlaceOrder(e.Request.Context(), userID(e), req)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusCreated, "Checkout created", res)
}

func (h *OrderHandler) ListOrders(e *core.RequestEvent) error {
	orders, err := h.orders.GetUserOrders(e.Request.Context(), userID(e))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", orders)
}

func (h *OrderHandler) GetOrder(e *core.RequestEvent) error {
	order, err := h.orders.GetOrderDetail(e.Request.Context(), userID(e), e.Request.PathValue("orderId"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "", order)
}
