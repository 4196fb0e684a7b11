package handlers

import (
	"io"
	"net/http"
	"strconv"

	"github.com/pocketbase/pocketbase/core"

	"ticket-marketplace/internal/services"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

const maxWebhookBody = 64 << 10

type PaymentHandler struct {
	payments *services.PaymentService
}

func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// Callback is the redirect target of a finished or abandoned checkout.
func (h *PaymentHandler) Callback(e *core.RequestEvent) error {
	q := e.Request.URL.Query()
	kind := models.PaymentKind(q.Get("kind"))
	success, err := strconv.ParseBool(q.Get("success"))
	if err != nil {
		return fail(e, status.Validationf("success must be true or false"))
	}

	ref := q.Get("orderId")
	if kind == models.PaymentForTrade {
		ref = q.Get("ticketId")
	}

	out, err := h.payments.Callback(e.Request.Context(), kind, success, ref)
	if err != nil {
		return fail(e, err)
	}
	if out == nil {
		return ok(e, http.StatusOK, "Payment cancelled", nil)
	}
	return ok(e, http.StatusOK, "Payment confirmed", out)
}

func (h *PaymentHandler) Webhook(e *core.RequestEvent) error {
	payload, err := io.ReadAll(http.MaxBytesReader(e.Response, e.Request.Body, maxWebhookBody))
	if err != nil {
		return fail(e, status.Validationf("unreadable webhook body"))
	}
	out, err := h.payments.HandleWebhook(e.Request.Context(), payload, e.Request.Header.Get("Stripe-Signature"))
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Webhook processed", out)
}

// SimulatePayment completes a simulated checkout session. Development only.
func (h *PaymentHandler) SimulatePayment(e *core.RequestEvent) error {
	out, err := h.payments.Complete(e.Request.Context(), e.Request.PathValue("sessionId"), nil)
	if err != nil {
		return fail(e, err)
	}
	return ok(e, http.StatusOK, "Payment simulated", out)
}
