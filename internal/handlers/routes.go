package handlers

import (
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/router"

	"ticket-marketplace/security"
)

// API bundles the handlers mounted under /api/v1.
type API struct {
	Auth        *Authenticator
	RateLimiter *security.RateLimiter
	Accounts    *AuthHandler
	Events      *EventHandler
	Orders      *OrderHandler
	Tickets     *TicketHandler
	Payments    *PaymentHandler
	Admin       *AdminHandler

	// Development exposes the simulated payment endpoint.
	Development bool
}

func (a *API) Register(r *router.Router[*core.RequestEvent]) {
	v1 := r.Group("/api/v1")

	// Auth
	v1.POST("/auth/register", a.Accounts.Register).BindFunc(a.RateLimiter.AntiBot)
	v1.POST("/auth/login", a.Accounts.Login).BindFunc(a.RateLimiter.AntiBot)
	v1.GET("/users/me", a.Accounts.Me).BindFunc(a.Auth.RequireAuth)

	// Catalogue
	v1.GET("/events", a.Events.ListEvents)
	v1.GET("/events/{eventId}", a.Events.GetEvent)
	v1.GET("/events/{eventId}/ticket-types", a.Events.ListTicketTypes)
	v1.GET("/ticket-types/{ticketTypeId}", a.Events.GetTicketType)

	// Orders
	orders := v1.Group("/orders").BindFunc(a.Auth.RequireAuth)
	orders.POST("", a.Orders.PlaceOrder).BindFunc(a.RateLimiter.AntiBot)
	orders.GET("", a.Orders.ListOrders)
	orders.GET("/{orderId}", a.Orders.GetOrder)

	// Owned tickets and trades
	tickets := v1.Group("/tickets").BindFunc(a.Auth.RequireAuth)
	tickets.GET("", a.Tickets.ListTickets)
	tickets.GET("/pending-trades", a.Tickets.ListPendingTrades)
	tickets.GET("/{ticketId}", a.Tickets.GetTicket)
	tickets.GET("/{ticketId}/qr", a.Tickets.QRCode)
	tickets.POST("/{ticketId}/trade", a.Tickets.InitiateTrade).BindFunc(a.RateLimiter.AntiBot)
	tickets.POST("/{ticketId}/trade/accept", a.Tickets.AcceptTrade)
	tickets.POST("/{ticketId}/trade/confirm", a.Tickets.ConfirmTrade)
	tickets.POST("/{ticketId}/trade/cancel", a.Tickets.CancelTrade)

	// Payments
	v1.GET("/payments/callback", a.Payments.Callback)
	v1.POST("/payments/webhook", a.Payments.Webhook)
	if a.Development {
		v1.POST("/payments/simulate/{sessionId}", a.Payments.SimulatePayment)
	}

	// Admin
	admin := v1.Group("/admin").BindFunc(a.Auth.RequireAuth, a.Auth.RequireAdmin)
	admin.POST("/events", a.Events.CreateEvent)
	admin.PUT("/events/{eventId}", a.Events.UpdateEvent)
	admin.DELETE("/events/{eventId}", a.Events.DeleteEvent)
	admin.POST("/events/{eventId}/ticket-types", a.Events.AddTicketType)
	admin.PATCH("/ticket-types/{ticketTypeId}", a.Events.UpdateTicketType)
	admin.DELETE("/ticket-types/{ticketTypeId}", a.Events.DeleteTicketType)
	admin.GET("/trades", a.Admin.ListTrades)
	admin.GET("/suspects", a.Admin.Suspects)
	admin.GET("/users", a.Admin.ListUsers)
	admin.POST("/users/{userId}/block", a.Admin.BlockUser)
}
