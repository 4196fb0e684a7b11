package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderPaid       OrderStatus = "paid"
	OrderCancelled  OrderStatus = "cancelled"
)

type LineItem struct {
	TicketTypeID string `json:"ticket_type_id"`
	Quantity     int    `json:"quantity"`
	Sold         bool   `json:"-"`
}

type Contact struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Order struct {
	ID                  string          `json:"id"`
	UserID              string          `json:"user_id"`
	EventID             string          `json:"event_id"`
	Items               []LineItem      `json:"items"`
	TotalPrice          decimal.Decimal `json:"total_price"`
	Status              OrderStatus     `json:"status"`
	OwnedTicketIDs      []string        `json:"owned_ticket_ids"`
	Contact             Contact         `json:"contact"`
	CheckoutSessionID   string          `json:"checkout_session_id,omitempty"`
	ProcessingStartedAt *time.Time      `json:"-"`
	PaidAt              *time.Time      `json:"paid_at,omitempty"`
	CreatedAt           time.Time       `json:"created_at"`
}

// Settled reports whether the order has reached a state confirmation no longer changes.
func (o *Order) Settled() bool {
	return o.Status == OrderPaid || o.Status == OrderCancelled
}
