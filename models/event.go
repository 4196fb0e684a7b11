package models

import (
	"time"
)

type EventStatus string

const (
	EventOngoing   EventStatus = "ongoing"
	EventCompleted EventStatus = "completed"
)

type Event struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	Venue         string      `json:"venue"`
	Category      string      `json:"category"`
	Image         string      `json:"image,omitempty"`
	EventDate     time.Time   `json:"event_date"`
	SaleStartDate time.Time   `json:"sale_start_date"`
	Status        EventStatus `json:"status"` // ongoing, completed
	CreatedAt     time.Time   `json:"created_at"`
}
