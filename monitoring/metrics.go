package monitoring

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	orderTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "order_transitions_total",
			Help: "Order state transitions by target status",
		},
		[]string{"status"},
	)

	seatRaceLosses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "seat_race_losses_total",
			Help: "Confirmations rejected because inventory ran out at write time",
		},
		[]string{"ticket_type_id"},
	)

	ticketsMinted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tickets_minted_total",
			Help: "Owned tickets issued for paid orders",
		},
	)

	tradeOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "trade_operations_total",
			Help: "Trade escrow operations",
		},
		[]string{"operation", "status"},
	)

	sweepDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sweep_duration_seconds",
			Help:    "Duration of scheduled sweeps",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"sweep"},
	)

	sweepAffected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sweep_affected_total",
			Help: "Records changed by scheduled sweeps",
		},
		[]string{"sweep"},
	)

	scalperScores = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scalper_scores_total",
			Help: "Scalper scorer outcomes",
		},
		[]string{"outcome"},
	)
)

// Monitor records marketplace metrics. The zero value is ready to use.
type Monitor struct{}

func NewMonitor() *Monitor {
	return &Monitor{}
}

func (m *Monitor) TrackOrderTransition(status string) {
	orderTransitions.WithLabelValues(status).Inc()
}

func (m *Monitor) TrackSeatRaceLost(ticketTypeID string) {
	seatRaceLosses.WithLabelValues(ticketTypeID).Inc()
}

func (m *Monitor) TrackTicketsMinted(n int) {
	ticketsMinted.Add(float64(n))
}

func (m *Monitor) TrackTradeOperation(operation, status string) {
	tradeOperations.WithLabelValues(operation, status).Inc()
}

func (m *Monitor) TrackSweep(sweep string, affected int64, duration time.Duration) {
	sweepDuration.WithLabelValues(sweep).Observe(duration.Seconds())
	sweepAffected.WithLabelValues(sweep).Add(float64(affected))
}

func (m *Monitor) TrackScalperScore(outcome string) {
	scalperScores.WithLabelValues(outcome).Inc()
}

// Serve exposes /metrics on port until ctx is cancelled.
func Serve(ctx context.Context, port string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: ":" + port, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("metrics server listening", "port", port)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("metrics server stopped", "error", err)
	}
}
