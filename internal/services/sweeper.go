package services

import (
	"context"
	"log/slog"
	"time"

	"ticket-marketplace/monitoring"
)

// Sweeper runs the periodic maintenance jobs and records their effect.
type Sweeper struct {
	orders  *OrderService
	trades  *TradeService
	events  *EventService
	monitor *monitoring.Monitor
	log     *slog.Logger
	timeout time.Duration
}

func NewSweeper(orders *OrderService, trades *TradeService, events *EventService, monitor *monitoring.Monitor, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		orders:  orders,
		trades:  trades,
		events:  events,
		monitor: monitor,
		log:     logger,
		timeout: 2 * time.Minute,
	}
}

func (s *Sweeper) run(name string, fn func(ctx context.Context) (int64, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	start := time.Now()
	n, err := fn(ctx)
	s.monitor.TrackSweep(name, n, time.Since(start))
	if err != nil {
		s.log.Error("sweep failed", "sweep", name, "error", err)
		return
	}
	if n > 0 {
		s.log.Info("sweep finished", "sweep", name, "affected", n)
	}
}

func (s *Sweeper) ExpireOrders() {
	s.run("order_expiry", s.orders.CancelExpiredOrders)
}

func (s *Sweeper) ExpireTrades() {
	s.run("trade_expiry", s.trades.ExpirePendingTrades)
}

func (s *Sweeper) RecoverOrders() {
	s.run("order_recovery", func(ctx context.Context) (int64, error) {
		n, err := s.orders.RecoverStalledOrders(ctx)
		return int64(n), err
	})
}

func (s *Sweeper) CompleteEvents() {
	s.run("event_completion", s.events.CompletePastEvents)
}
