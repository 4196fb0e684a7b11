package models

import (
	"time"
)

type PaymentKind string

const (
	PaymentForOrder PaymentKind = "order"
	PaymentForTrade PaymentKind = "trade"
)

// CheckoutSession is the handle the client follows to pay.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"session_url"`
}

// CheckoutRecord correlates a gateway session with the order or trade it pays for.
type CheckoutRecord struct {
	SessionID string      `json:"session_id"`
	Kind      PaymentKind `json:"kind"`
	Ref       string      `json:"ref"` // order id or ticket id
	UserID    string      `json:"user_id"`
	Status    string      `json:"status"` // pending, completed
	CreatedAt time.Time   `json:"created_at"`
}

type PaymentNotification struct {
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// Notification is pushed to a user's realtime channel.
type Notification struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Ref     string `json:"ref,omitempty"`
}
