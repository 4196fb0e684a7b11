package services

import (
	"context"
	"encoding/json"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/models"
)

func TestQRPayload(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tt := f.ticketType(t, f.event(t).ID, 10, 50)
	ticket := f.ownedTicket(t, tt, "alice")

	qr, err := f.tickets.QRPayload(ctx, "alice", ticket.ID)
	require.NoError(t, err)

	raw, err := json.Marshal(qr)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"ticketId": "`+ticket.ID+`",
		"eventId": "`+tt.EventID+`",
		"ticketType": "Standard",
		"ownerId": "alice",
		"timestamp": `+strconv.FormatInt(epoch.UnixMilli(), 10)+`
	}`, string(raw))

	f.clock = f.clock.Add(time.Second)
	again, err := f.tickets.QRPayload(ctx, "alice", ticket.ID)
	require.NoError(t, err)
	assert.Greater(t, again.Timestamp, qr.Timestamp)

	_, err = f.tickets.QRPayload(ctx, "bob", ticket.ID)
	assert.ErrorIs(t, err, status.ErrTicketNotFound)
}

func TestPaidOrderTicketsStayTraceable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.user(t, "alice", "alice-pass")
	event := f.event(t)
	tt := f.ticketType(t, event.ID, 10, 50)
	order := f.order(t, "alice", event.ID, models.LineItem{TicketTypeID: tt.ID, Quantity: 2})

	paid, err := f.orders.ConfirmPayment(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, paid.OwnedTicketIDs, 2)

	for _, id := range paid.OwnedTicketIDs {
		ticket, err := f.tickets.GetOwned(ctx, "alice", id)
		require.NoError(t, err)
		assert.Equal(t, order.ID, ticket.OrderID)
	}

	owned, err := f.tickets.ListOwned(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, owned, 2)

	stats, err := f.st.ListTraderStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].TotalTickets)
}
