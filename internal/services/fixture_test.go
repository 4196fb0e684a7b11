package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"ticket-marketplace/internal/services/payment"
	"ticket-marketplace/internal/status"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/internal/store/storetest"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/security"
)

var epoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type mockOpener struct {
	mock.Mock
}

func (m *mockOpener) CreateCheckoutSession(ctx context.Context, req *payment.CheckoutRequest) (*payment.Session, error) {
	args := m.Called(ctx, req)
	sess, _ := args.Get(0).(*payment.Session)
	return sess, args.Error(1)
}

// memSessions is an in-process SessionStore.
type memSessions struct {
	mu      sync.Mutex
	records map[string]*models.CheckoutRecord
	trades  map[string]*models.CheckoutSession
}

func newMemSessions() *memSessions {
	return &memSessions{
		records: map[string]*models.CheckoutRecord{},
		trades:  map[string]*models.CheckoutSession{},
	}
}

func (m *memSessions) Save(_ context.Context, rec *models.CheckoutRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.records[rec.SessionID] = &cp
	return nil
}

func (m *memSessions) Lookup(_ context.Context, sessionID string) (*models.CheckoutRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[sessionID]
	if !ok {
		return nil, status.ErrSessionNotFound
	}
	cp := *rec
	return &cp, nil
}

func (m *memSessions) MarkCompleted(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec, ok := m.records[sessionID]; ok {
		rec.Status = "completed"
	}
	return nil
}

func (m *memSessions) ClaimTrade(_ context.Context, offerKey string) (*models.CheckoutSession, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, ok := m.trades[offerKey]
	if !ok {
		m.trades[offerKey] = nil
		return nil, true, nil
	}
	if sess == nil {
		return nil, false, status.ErrPaymentInFlight
	}
	return sess, false, nil
}

func (m *memSessions) StoreTrade(_ context.Context, offerKey string, sess *models.CheckoutSession) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.trades[offerKey] = sess
	return nil
}

func (m *memSessions) ReleaseTrade(_ context.Context, offerKey string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.trades, offerKey)
	return nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent map[string][]models.Notification
}

func (r *recordingNotifier) Notify(userID string, n models.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sent == nil {
		r.sent = map[string][]models.Notification{}
	}
	r.sent[userID] = append(r.sent[userID], n)
}

func (r *recordingNotifier) to(userID string) []models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[userID]
}

type fixture struct {
	st       *store.Store
	opener   *mockOpener
	sessions *memSessions
	notifier *recordingNotifier
	clock    time.Time

	inventory  *InventoryService
	events     *EventService
	orders     *OrderService
	tickets    *TicketService
	trades     *TradeService
	reputation *ReputationLedger
	users      *UserService
	payments   *PaymentService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		st:       storetest.New(t),
		opener:   &mockOpener{},
		sessions: newMemSessions(),
		notifier: &recordingNotifier{},
		clock:    epoch,
	}
	now := func() time.Time { return f.clock }
	logger := discardLogger()
	monitor := monitoring.NewMonitor()

	checkout := NewCheckoutService(f.opener, f.sessions, logger)
	checkout.now = now

	f.inventory = NewInventoryService(f.st, monitor, logger)
	f.inventory.now = now
	f.events = NewEventService(f.st, logger)
	f.events.now = now
	f.reputation = NewReputationLedger(f.st, logger)

	f.orders = NewOrderService(f.st, f.inventory, checkout, f.notifier, monitor, OrderConfig{
		PublicURL:    "https://tickets.example.com",
		Expiry:       24 * time.Hour,
		StallTimeout: 10 * time.Minute,
	}, logger)
	f.orders.now = now

	f.tickets = NewTicketService(f.st, logger)
	f.tickets.now = now

	f.trades = NewTradeService(f.st, f.reputation, checkout, f.notifier, monitor, TradeConfig{
		PublicURL: "https://tickets.example.com",
		Expiry:    24 * time.Hour,
	}, logger)
	f.trades.now = now

	f.users = NewUserService(f.st, security.NewTokenIssuer("test-secret", time.Hour), logger)
	f.users.now = now

	f.payments = NewPaymentService(f.orders, f.trades, f.sessions, nil, logger)
	return f
}

func (f *fixture) user(t *testing.T, id, password string) *models.User {
	t.Helper()
	hash, err := security.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		ID:           id,
		Name:         id,
		Email:        id + "@example.com",
		PasswordHash: hash,
		Role:         models.RoleUser,
		CreatedAt:    f.clock,
	}
	require.NoError(t, f.st.CreateAccount(context.Background(), u))
	return u
}

func (f *fixture) event(t *testing.T) *models.Event {
	t.Helper()
	e, err := f.events.Create(context.Background(), EventInput{
		Title:     "Open Air",
		Venue:     "Riverside",
		EventDate: f.clock.Add(30 * 24 * time.Hour),
	})
	require.NoError(t, err)
	return e
}

func (f *fixture) ticketType(t *testing.T, eventID string, seats int, price int64) *models.TicketType {
	t.Helper()
	tt, err := f.inventory.AddTicketType(context.Background(), eventID, TicketTypeInput{
		Name:       "Standard",
		Price:      decimal.NewFromInt(price),
		TotalSeats: seats,
	})
	require.NoError(t, err)
	return tt
}

// order stores a pending order directly, bypassing checkout.
func (f *fixture) order(t *testing.T, userID, eventID string, items ...models.LineItem) *models.Order {
	t.Helper()
	o := &models.Order{
		ID:         uuid.New().String(),
		UserID:     userID,
		EventID:    eventID,
		Items:      items,
		TotalPrice: decimal.Zero,
		Status:     models.OrderPending,
		CreatedAt:  f.clock,
	}
	require.NoError(t, f.st.InsertOrder(context.Background(), o))
	return o
}

// ownedTicket issues a ticket to ownerID without going through an order.
func (f *fixture) ownedTicket(t *testing.T, tt *models.TicketType, ownerID string) *models.OwnedTicket {
	t.Helper()
	ticket := &models.OwnedTicket{
		ID:           uuid.New().String(),
		TicketTypeID: tt.ID,
		EventID:      tt.EventID,
		OwnerID:      ownerID,
		OrderID:      "seed",
		CreatedAt:    f.clock,
	}
	require.NoError(t, f.st.InsertOwnedTicket(context.Background(), ticket))
	return ticket
}

func (f *fixture) reputationOf(t *testing.T, userID string) int {
	t.Helper()
	u, err := f.st.FindAccount(context.Background(), userID)
	require.NoError(t, err)
	return u.ReputationScore
}

func (f *fixture) stubCheckout(sessionID string) {
	f.opener.On("CreateCheckoutSession", mock.Anything, mock.Anything).
		Return(&payment.Session{ID: sessionID, URL: "https://pay.example.com/" + sessionID}, nil)
}
