package status

import (
	"errors"
	"fmt"
)

// Error kinds. Every domain error unwraps to exactly one of these.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not found")
	ErrConflict   = errors.New("conflict")
	ErrAuth       = errors.New("unauthorized")
	ErrInternal   = errors.New("internal error")
)

var (
	ErrEventNotFound      = New(ErrNotFound, "event not found")
	ErrTicketTypeNotFound = New(ErrNotFound, "ticket type not found")
	ErrOrderNotFound      = New(ErrNotFound, "order not found")
	ErrTicketNotFound     = New(ErrNotFound, "ticket not found")
	ErrUserNotFound       = New(ErrNotFound, "user not found")
	ErrRecipientNotFound  = New(ErrNotFound, "recipient not found")
	ErrSessionNotFound    = New(ErrNotFound, "payment session not found")

	ErrInvalidTicketSelection = New(ErrValidation, "invalid ticket selection")
	ErrSelfTrade              = New(ErrValidation, "cannot trade a ticket to yourself")

	ErrInvalidCredentials = New(ErrAuth, "invalid email or password")
	ErrUserBlocked        = New(ErrAuth, "user is blocked")
	ErrForbidden          = New(ErrAuth, "access denied")

	ErrInsufficientSeats = New(ErrConflict, "insufficient seats")
	ErrTicketNotEligible = New(ErrConflict, "ticket is not eligible for this trade action")
	ErrEmailTaken        = New(ErrConflict, "email already registered")
	ErrSeatsLocked       = New(ErrConflict, "total seats cannot change once tickets are sold")
	ErrPaymentInFlight   = New(ErrConflict, "payment already in progress")
	ErrEventHasSales     = New(ErrConflict, "event has sold tickets or open orders")
)

// Error is a domain error carrying a user-visible message and its kind.
type Error struct {
	kind error
	msg  string
}

func New(kind error, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

func (e *Error) Error() string { return e.msg }

func (e *Error) Unwrap() error { return e.kind }

// Validationf builds an ad hoc validation error.
func Validationf(format string, args ...any) error {
	return New(ErrValidation, fmt.Sprintf(format, args...))
}

// InsufficientSeatsError names the ticket type whose inventory could not cover a sale.
type InsufficientSeatsError struct {
	TicketTypeID string
}

func (e *InsufficientSeatsError) Error() string {
	return fmt.Sprintf("insufficient seats for ticket type %s", e.TicketTypeID)
}

func (e *InsufficientSeatsError) Is(target error) bool {
	return target == ErrInsufficientSeats || target == ErrConflict
}

// KindOf returns the kind sentinel for err. Unknown errors are internal.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrNotFound, ErrConflict, ErrAuth} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return ErrInternal
}

// Message is the text safe to show a client for err.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var seats *InsufficientSeatsError
	if errors.As(err, &seats) {
		return seats.Error()
	}
	var e *Error
	if errors.As(err, &e) {
		return e.msg
	}
	if KindOf(err) == ErrInternal {
		return "internal server error"
	}
	return err.Error()
}
