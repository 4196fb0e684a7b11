package services

import (
	"context"
	"log/slog"

	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"

	"ticket-marketplace/internal/services/scorer"
	"ticket-marketplace/internal/store"
	"ticket-marketplace/models"
	"ticket-marketplace/monitoring"
	"ticket-marketplace/utils"
)

// ScalperService runs the advisory scalper classifier over every trader.
type ScalperService struct {
	store       *store.Store
	scorer      scorer.Scorer
	cb          *gobreaker.CircuitBreaker
	concurrency int
	monitor     *monitoring.Monitor
	log         *slog.Logger
}

func NewScalperService(st *store.Store, sc scorer.Scorer, cb *gobreaker.CircuitBreaker, concurrency int, monitor *monitoring.Monitor, logger *slog.Logger) *ScalperService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &ScalperService{
		store:       st,
		scorer:      sc,
		cb:          cb,
		concurrency: concurrency,
		monitor:     monitor,
		log:         logger,
	}
}

// Detect scores each user who has held or offered a ticket. A scorer failure
// for one user is reported on that user's row only.
func (s *ScalperService) Detect(ctx context.Context) ([]models.ScalperResult, error) {
	stats, err := s.store.ListTraderStats(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.ScalperResult, len(stats))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i, st := range stats {
		g.Go(func() error {
			res := models.ScalperResult{
				UserID:          st.UserID,
				TotalTickets:    st.TotalTickets,
				Trades:          st.Trades,
				ReputationScore: st.ReputationScore,
			}
			flagged, err := utils.ExecuteWithBreaker(s.cb, func() (bool, error) {
				return s.scorer.IsScalper(gctx, scorer.Input{
					TotalTickets:    st.TotalTickets,
					Trades:          st.Trades,
					ReputationScore: st.ReputationScore,
				})
			})
			switch {
			case err != nil:
				s.log.Warn("scalper scoring failed", "user_id", st.UserID, "error", err)
				s.monitor.TrackScalperScore("error")
				res.Error = err.Error()
			case flagged:
				s.monitor.TrackScalperScore("scalper")
				res.IsScalper = true
			default:
				s.monitor.TrackScalperScore("clean")
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}
