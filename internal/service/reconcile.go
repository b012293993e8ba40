package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/internal/storage"
	"github.com/dyike/StockSync/models"
)

// Reconciler merges a freshly built record with the durable purchased
// amount and writes it back. Persistence is best effort: failures are
// logged and the merged in-memory record is still returned.
type Reconciler struct {
	repo    *storage.StockRepository
	timeout time.Duration
}

func NewReconciler(repo *storage.StockRepository, timeout time.Duration) *Reconciler {
	return &Reconciler{repo: repo, timeout: timeout}
}

func (r *Reconciler) Reconcile(ctx context.Context, fresh *models.StockRecord) *models.StockRecord {
	logger := log.With().Str("symbol", fresh.CompanyCode).Str("date", fresh.RequestDate).Logger()

	var (
		amount int64
		exists bool
	)
	err := storeCall(ctx, r.timeout, func(ctx context.Context) error {
		var err error
		amount, exists, err = r.repo.PurchasedAmount(ctx, fresh.CompanyCode)
		return err
	})
	if err != nil {
		logger.Error().Err(err).Msg("reading purchased amount failed, returning unpersisted record")
		return fresh
	}

	merged := *fresh
	if exists {
		merged.PurchasedAmount = amount
	}

	if err := storeCall(ctx, r.timeout, func(ctx context.Context) error {
		return r.repo.SaveStock(ctx, &merged)
	}); err != nil {
		logger.Error().Err(err).Msg("persisting stock failed")
		return &merged
	}
	for _, w := range merged.PerformanceWindows {
		if err := storeCall(ctx, r.timeout, func(ctx context.Context) error {
			return r.repo.SavePerformance(ctx, w)
		}); err != nil {
			logger.Error().Err(err).Msg("persisting performance window failed")
			return &merged
		}
	}
	for _, c := range merged.Competitors {
		if err := storeCall(ctx, r.timeout, func(ctx context.Context) error {
			return r.repo.SaveCompetitor(ctx, merged.CompanyCode, c)
		}); err != nil {
			logger.Error().Err(err).Str("competitor", c.CompanyCode).Msg("persisting competitor failed")
			return &merged
		}
	}

	logger.Debug().Int64("purchased_amount", merged.PurchasedAmount).Msg("record reconciled")
	return &merged
}

// storeCall gives a single store round trip its own deadline.
func storeCall(ctx context.Context, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(ctx)
}
