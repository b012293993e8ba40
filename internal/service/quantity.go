package service

import (
	"context"
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/models"
	"github.com/dyike/StockSync/pkg/dataflows"
)

// AdjustQuantity adds delta to the stored purchased amount of symbol,
// clamping at zero and creating the row when absent. It bypasses the result
// cache and leaves market data untouched.
//
// The read and the write are not locked against concurrent adjustments of
// the same symbol; the last writer wins, including when two adjustments
// both create the row.
func (s *StockService) AdjustQuantity(ctx context.Context, symbol string, delta int64) (*models.Holding, error) {
	if err := ValidateSymbol(symbol); err != nil {
		return nil, err
	}
	code := dataflows.NormalizeSymbol(symbol)

	var (
		current int64
		exists  bool
	)
	err := storeCall(ctx, s.storeTimeout, func(ctx context.Context) error {
		var err error
		current, exists, err = s.repo.PurchasedAmount(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}

	next := clampedAdd(current, delta)
	if err := storeCall(ctx, s.storeTimeout, func(ctx context.Context) error {
		return s.repo.SetPurchasedAmount(ctx, code, next, exists)
	}); err != nil {
		return nil, err
	}

	var holding *models.Holding
	err = storeCall(ctx, s.storeTimeout, func(ctx context.Context) error {
		var err error
		holding, err = s.repo.Holding(ctx, code)
		return err
	})
	if err != nil {
		return nil, err
	}
	if holding == nil {
		return nil, fmt.Errorf("stock %s not found after update", code)
	}

	log.Info().Str("symbol", code).Int64("delta", delta).Int64("purchased_amount", holding.PurchasedAmount).Msg("purchased amount updated")
	return holding, nil
}

func clampedAdd(current, delta int64) int64 {
	if delta > 0 && current > math.MaxInt64-delta {
		return math.MaxInt64
	}
	next := current + delta
	if next < 0 {
		return 0
	}
	return next
}
