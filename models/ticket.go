package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TicketTypeStatus string

const (
	TicketTypeAvailable TicketTypeStatus = "available"
	TicketTypeSoldOut   TicketTypeStatus = "sold_out"
)

// TicketType is the sellable category of an event and holds its seat inventory.
type TicketType struct {
	ID             string           `json:"id"`
	EventID        string           `json:"event_id"`
	Name           string           `json:"name"`
	Price          decimal.Decimal  `json:"price"`
	TotalSeats     int              `json:"total_seats"`
	AvailableSeats int              `json:"available_seats"`
	SoldCount      int              `json:"sold_count"`
	Status         TicketTypeStatus `json:"status"` // available, sold_out
	CreatedAt      time.Time        `json:"created_at"`
}

// OwnedTicket is one issued ticket bound to its current owner.
type OwnedTicket struct {
	ID                    string       `json:"id"`
	TicketTypeID          string       `json:"ticket_type_id"`
	EventID               string       `json:"event_id"`
	OwnerID               string       `json:"owner_id"`
	OrderID               string       `json:"order_id"`
	OrderLine             int          `json:"-"`
	IsTraded              bool         `json:"is_traded"`
	IsPendingTrade        bool         `json:"is_pending_trade"`
	PendingRecipientID    string       `json:"pending_recipient_id,omitempty"`
	PendingTradeCreatedAt *time.Time   `json:"pending_trade_created_at,omitempty"`
	TradeHistory          []TradeEntry `json:"trade_history"`
	CreatedAt             time.Time    `json:"created_at"`
}

type TradeEntry struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	FromUserID string    `json:"from_user_id"`
	ToUserID   string    `json:"to_user_id"`
	TradeDate  time.Time `json:"trade_date"`
}

// QRPayload is the document encoded into a ticket's QR code.
type QRPayload struct {
	TicketID   string `json:"ticketId"`
	EventID    string `json:"eventId"`
	TicketType string `json:"ticketType"`
	OwnerID    string `json:"ownerId"`
	Timestamp  int64  `json:"timestamp"`
}
