package store_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/internal/store/storetest"
	"ticket-marketplace/models"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func seedTicketType(t *testing.T, st *store.Store, id string, seats int) {
	t.Helper()
	require.NoError(t, st.InsertTicketType(context.Background(), &models.TicketType{
		ID:             id,
		EventID:        "event-1",
		Name:           "Standard",
		Price:          decimal.NewFromInt(50),
		TotalSeats:     seats,
		AvailableSeats: seats,
		Status:         models.TicketTypeAvailable,
		CreatedAt:      epoch,
	}))
}

func TestReserveAndSell_NeverOversells(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	seedTicketType(t, st, "tt-1", 10)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		sold int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(qty int) {
			defer wg.Done()
			_, err := st.ReserveAndSell(ctx, "tt-1", qty)
			if err == nil {
				mu.Lock()
				sold += qty
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, status.ErrInsufficientSeats)
		}(i%3 + 1)
	}
	wg.Wait()

	tt, err := st.FindTicketType(ctx, "tt-1")
	require.NoError(t, err)
	assert.LessOrEqual(t, sold, 10)
	assert.GreaterOrEqual(t, tt.AvailableSeats, 0)
	assert.Equal(t, sold, tt.SoldCount)
	assert.Equal(t, 10, tt.AvailableSeats+tt.SoldCount)
}

func TestReserveAndSell_SoldOut(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	seedTicketType(t, st, "tt-1", 4)

	tt, err := st.ReserveAndSell(ctx, "tt-1", 3)
	require.NoError(t, err)
	assert.Equal(t, models.TicketTypeAvailable, tt.Status)
	assert.Equal(t, 1, tt.AvailableSeats)

	tt, err = st.ReserveAndSell(ctx, "tt-1", 1)
	require.NoError(t, err)
	assert.Equal(t, models.TicketTypeSoldOut, tt.Status)
	assert.Equal(t, 0, tt.AvailableSeats)
	assert.Equal(t, 4, tt.SoldCount)

	_, err = st.ReserveAndSell(ctx, "tt-1", 1)
	var seats *status.InsufficientSeatsError
	require.True(t, errors.As(err, &seats))
	assert.Equal(t, "tt-1", seats.TicketTypeID)
}

func TestReserveAndSell_UnknownTicketType(t *testing.T) {
	st := storetest.New(t)

	_, err := st.ReserveAndSell(context.Background(), "missing", 1)
	assert.ErrorIs(t, err, status.ErrTicketTypeNotFound)
}

func TestResizeTicketType_LockedAfterFirstSale(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()
	seedTicketType(t, st, "tt-1", 10)

	require.NoError(t, st.ResizeTicketType(ctx, "tt-1", 8))
	tt, err := st.FindTicketType(ctx, "tt-1")
	require.NoError(t, err)
	assert.Equal(t, 8, tt.TotalSeats)
	assert.Equal(t, 8, tt.AvailableSeats)

	_, err = st.ReserveAndSell(ctx, "tt-1", 2)
	require.NoError(t, err)

	assert.ErrorIs(t, st.ResizeTicketType(ctx, "tt-1", 20), status.ErrSeatsLocked)
	assert.ErrorIs(t, st.DeleteTicketType(ctx, "tt-1"), status.ErrSeatsLocked)
	assert.ErrorIs(t, st.ResizeTicketType(ctx, "missing", 5), status.ErrTicketTypeNotFound)
}

func TestOrderTransitions(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	order := &models.Order{
		ID:         "order-1",
		UserID:     "user-1",
		EventID:    "event-1",
		Items:      []models.LineItem{{TicketTypeID: "tt-1", Quantity: 2}, {TicketTypeID: "tt-2", Quantity: 1}},
		TotalPrice: decimal.NewFromInt(150),
		Status:     models.OrderPending,
		CreatedAt:  epoch,
	}
	require.NoError(t, st.InsertOrder(ctx, order))

	ok, err := st.MarkProcessing(ctx, "order-1", epoch)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = st.MarkProcessing(ctx, "order-1", epoch)
	require.NoError(t, err)
	assert.False(t, ok, "a processing order cannot be claimed twice")

	ok, err = st.MarkItemSold(ctx, "order-1", 1)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = st.MarkItemSold(ctx, "order-1", 1)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = st.MarkPaid(ctx, "order-1", []string{"a", "b", "c"}, epoch)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := st.FindOrder(ctx, "order-1")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, got.Status)
	assert.Equal(t, []string{"a", "b", "c"}, got.OwnedTicketIDs)
	require.Len(t, got.Items, 2)
	assert.False(t, got.Items[0].Sold)
	assert.True(t, got.Items[1].Sold)
	assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(150)))

	ok, err = st.RevertToPending(ctx, "order-1")
	require.NoError(t, err)
	assert.False(t, ok, "paid orders never revert")
}

func TestCancelExpiredOrders(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	for _, o := range []struct {
		id      string
		created time.Time
	}{
		{"old", epoch.Add(-25 * time.Hour)},
		{"fresh", epoch.Add(-time.Hour)},
	} {
		require.NoError(t, st.InsertOrder(ctx, &models.Order{
			ID: o.id, UserID: "u", EventID: "e", TotalPrice: decimal.Zero,
			Status: models.OrderPending, CreatedAt: o.created,
		}))
	}

	n, err := st.CancelExpiredOrders(ctx, epoch.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	old, err := st.FindOrder(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, models.OrderCancelled, old.Status)

	fresh, err := st.FindOrder(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, fresh.Status)
}

func TestTransferTicket_RespectsOfferAge(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	require.NoError(t, st.InsertOwnedTicket(ctx, &models.OwnedTicket{
		ID: "ticket-1", TicketTypeID: "tt-1", EventID: "e", OwnerID: "alice", OrderID: "o", CreatedAt: epoch,
	}))

	ok, err := st.MarkPendingTrade(ctx, "ticket-1", "alice", "bob", epoch)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = st.MarkPendingTrade(ctx, "ticket-1", "alice", "carol", epoch)
	require.NoError(t, err)
	assert.False(t, ok, "only one outstanding offer per ticket")

	ok, err = st.TransferTicket(ctx, "ticket-1", "alice", "bob", epoch.Add(time.Minute))
	require.NoError(t, err)
	assert.False(t, ok, "offers older than the cutoff are not transferable")

	ok, err = st.TransferTicket(ctx, "ticket-1", "alice", "bob", epoch)
	require.NoError(t, err)
	assert.True(t, ok)

	ticket, err := st.FindOwnedTicket(ctx, "ticket-1")
	require.NoError(t, err)
	assert.Equal(t, "bob", ticket.OwnerID)
	assert.True(t, ticket.IsTraded)
	assert.False(t, ticket.IsPendingTrade)
	assert.Empty(t, ticket.PendingRecipientID)
	assert.Nil(t, ticket.PendingTradeCreatedAt)
}

func TestListTraderStats(t *testing.T) {
	st := storetest.New(t)
	ctx := context.Background()

	for _, u := range []string{"alice", "bob", "idle"} {
		require.NoError(t, st.CreateAccount(ctx, &models.User{
			ID: u, Email: u + "@example.com", PasswordHash: "x", Role: models.RoleUser, CreatedAt: epoch,
		}))
	}
	require.NoError(t, st.AdjustReputation(ctx, "alice", -3))

	for _, id := range []string{"t1", "t2"} {
		require.NoError(t, st.InsertOwnedTicket(ctx, &models.OwnedTicket{
			ID: id, TicketTypeID: "tt", EventID: "e", OwnerID: "bob", OrderID: "o", CreatedAt: epoch,
		}))
	}
	// alice offered t1 twice, counted once
	for i, to := range []string{"bob", "carol"} {
		require.NoError(t, st.InsertTradeEntry(ctx, &models.TradeEntry{
			ID: to, TicketID: "t1", FromUserID: "alice", ToUserID: to, TradeDate: epoch.Add(time.Duration(i) * time.Hour),
		}))
	}

	stats, err := st.ListTraderStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.Equal(t, store.TraderStats{UserID: "alice", TotalTickets: 0, Trades: 1, ReputationScore: -3}, stats[0])
	assert.Equal(t, store.TraderStats{UserID: "bob", TotalTickets: 2, Trades: 0, ReputationScore: 0}, stats[1])
}
