// Package storetest holds behaviour checks shared by every storage.Store.
package storetest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dyike/StockSync/internal/storage"
	"github.com/dyike/StockSync/models"
)

// Run exercises store through the repository the pipeline uses.
func Run(t *testing.T, newStore func(t *testing.T) storage.Store) {
	t.Run("EmptySelect", func(t *testing.T) {
		store := newStore(t)
		rows, err := store.Select(context.Background(), storage.TableStocks, storage.Filter{storage.KeyCompanyCode: "NONE"})
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(rows) != 0 {
			t.Fatalf("expected no rows, got %v", rows)
		}
	})

	t.Run("InsertUpdateReadBack", func(t *testing.T) {
		ctx := context.Background()
		repo := storage.NewStockRepository(newStore(t))

		if err := repo.SetPurchasedAmount(ctx, "yelp", 100, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
		amount, exists, err := repo.PurchasedAmount(ctx, "YELP")
		if err != nil || !exists || amount != 100 {
			t.Fatalf("PurchasedAmount = (%d, %v, %v), want (100, true, nil)", amount, exists, err)
		}

		if err := repo.SetPurchasedAmount(ctx, "YELP", 50, true); err != nil {
			t.Fatalf("update: %v", err)
		}
		holding, err := repo.Holding(ctx, "Yelp")
		if err != nil {
			t.Fatalf("Holding: %v", err)
		}
		if holding == nil || holding.CompanyCode != "YELP" || holding.PurchasedAmount != 50 {
			t.Fatalf("unexpected holding %+v", holding)
		}
	})

	t.Run("DuplicateInsert", func(t *testing.T) {
		ctx := context.Background()
		repo := storage.NewStockRepository(newStore(t))
		if err := repo.SetPurchasedAmount(ctx, "AAPL", 1, false); err != nil {
			t.Fatalf("insert: %v", err)
		}
		err := repo.SetPurchasedAmount(ctx, "AAPL", 2, false)
		if !errors.Is(err, storage.ErrDuplicateKey) {
			t.Fatalf("expected ErrDuplicateKey, got %v", err)
		}
	})

	t.Run("UpsertReplacesByCode", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		repo := storage.NewStockRepository(store)

		record := &models.StockRecord{
			Status:          models.StatusActive,
			PurchasedAmount: 7,
			PurchasedStatus: models.PurchasedConfirmed,
			RequestDate:     "2024-03-14",
			CompanyCode:     "msft",
			CompanyName:     "Microsoft Corp.",
			Quote:           models.Quote{Open: 1, High: 2, Low: 0.5, Close: 1.5},
		}
		if err := repo.SaveStock(ctx, record); err != nil {
			t.Fatalf("SaveStock: %v", err)
		}
		record.PurchasedAmount = 9
		record.RequestDate = "2024-03-15"
		if err := repo.SaveStock(ctx, record); err != nil {
			t.Fatalf("SaveStock again: %v", err)
		}

		rows, err := store.Select(ctx, storage.TableStocks, storage.Filter{storage.KeyCompanyCode: "MSFT"}, "request_date", "company_name")
		if err != nil {
			t.Fatalf("Select: %v", err)
		}
		if len(rows) != 1 {
			t.Fatalf("expected a single MSFT row, got %v", rows)
		}
		if rows[0]["request_date"] != "2024-03-15" || rows[0]["company_name"] != "Microsoft Corp." {
			t.Fatalf("unexpected row %v", rows[0])
		}
		amount, _, err := repo.PurchasedAmount(ctx, "msft")
		if err != nil || amount != 9 {
			t.Fatalf("PurchasedAmount = (%d, %v), want 9", amount, err)
		}
	})

	t.Run("PerformanceAndCompetitors", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		repo := storage.NewStockRepository(store)

		window := models.PerformanceWindow{CompanyCode: "aapl", ObservedAt: time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), FiveDayPct: 1.5}
		for i := 0; i < 2; i++ {
			window.OneYearPct = float64(i)
			if err := repo.SavePerformance(ctx, window); err != nil {
				t.Fatalf("SavePerformance: %v", err)
			}
		}
		rows, err := store.Select(ctx, storage.TablePerformance, storage.Filter{storage.KeyCompanyCode: "AAPL"}, "date_time")
		if err != nil || len(rows) != 1 {
			t.Fatalf("expected one performance row, got %v (%v)", rows, err)
		}
		if rows[0]["date_time"] != "2024-03-15T00:00:00Z" {
			t.Fatalf("unexpected date_time %v", rows[0]["date_time"])
		}

		peer := models.Competitor{Name: "Microsoft Corp.", CompanyCode: "msft", PercentChange: 0.5, MarketCap: models.MarketCap{Value: 3.2e12, Currency: "USD"}}
		if err := repo.SaveCompetitor(ctx, "AAPL", peer); err != nil {
			t.Fatalf("SaveCompetitor: %v", err)
		}
		if err := repo.SaveCompetitor(ctx, "GOOG", peer); err != nil {
			t.Fatalf("SaveCompetitor: %v", err)
		}
		rows, err = store.Select(ctx, storage.TableCompetitors, storage.Filter{storage.KeyCompanyCode: "MSFT"}, "peer_of", "market_cap_currency")
		if err != nil || len(rows) != 1 {
			t.Fatalf("expected one competitor row, got %v (%v)", rows, err)
		}
		if rows[0]["peer_of"] != "GOOG" || rows[0]["market_cap_currency"] != "USD" {
			t.Fatalf("unexpected competitor row %v", rows[0])
		}
	})

	t.Run("RejectsUnknownNames", func(t *testing.T) {
		ctx := context.Background()
		store := newStore(t)
		err := store.Upsert(ctx, storage.TableStocks, storage.Row{storage.KeyCompanyCode: "X", "bogus": 1}, storage.KeyCompanyCode)
		if !errors.Is(err, storage.ErrUnknownColumn) {
			t.Fatalf("expected ErrUnknownColumn, got %v", err)
		}
		_, err = store.Select(ctx, "users", nil)
		if !errors.Is(err, storage.ErrUnknownTable) {
			t.Fatalf("expected ErrUnknownTable, got %v", err)
		}
	})
}
