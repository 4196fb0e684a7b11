package models

import "time"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type User struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            Role      `json:"role"`
	ReputationScore int       `json:"reputation_score"`
	IsBlocked       bool      `json:"is_blocked"`
	CreatedAt       time.Time `json:"created_at"`
}

type ScalperResult struct {
	UserID          string `json:"user_id"`
	TotalTickets    int    `json:"total_tickets"`
	Trades          int    `json:"trades"`
	ReputationScore int    `json:"reputation_score"`
	IsScalper       bool   `json:"is_scalper"`
	Error           string `json:"error,omitempty"`
}
