package services

import (
	"context"
	"log/slog"

	"ticket-marketplace/internal/store"
)

// ReputationLedger accumulates signed trust scores per user.
type ReputationLedger struct {
	store *store.Store
	log   *slog.Logger
}

func NewReputationLedger(st *store.Store, logger *slog.Logger) *ReputationLedger {
	return &ReputationLedger{store: st, log: logger}
}

func (r *ReputationLedger) WithStore(st *store.Store) *ReputationLedger {
	cp := *r
	cp.store = st
	return &cp
}

// Adjust adds delta to the user's score. There is no floor or ceiling.
func (r *ReputationLedger) Adjust(ctx context.Context, userID string, delta int) error {
	if err := r.store.AdjustReputation(ctx, userID, delta); err != nil {
		return err
	}
	r.log.Debug("reputation adjusted", "user_id", userID, "delta", delta)
	return nil
}
