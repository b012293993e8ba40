package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/StockSync/models"
)

// StockRepository maps domain records onto the durable tables. Codes are
// stored upper-cased.
type StockRepository struct {
	store Store
}

func NewStockRepository(store Store) *StockRepository {
	return &StockRepository{store: store}
}

func durableCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// PurchasedAmount returns the stored amount for code and whether a stock row exists.
func (r *StockRepository) PurchasedAmount(ctx context.Context, code string) (int64, bool, error) {
	rows, err := r.store.Select(ctx, TableStocks, Filter{KeyCompanyCode: durableCode(code)}, "purchased_amount")
	if err != nil {
		return 0, false, fmt.Errorf("select purchased amount for %s: %w", code, err)
	}
	if len(rows) == 0 {
		return 0, false, nil
	}
	amount, err := asInt64(rows[0]["purchased_amount"])
	if err != nil {
		return 0, true, fmt.Errorf("purchased amount for %s: %w", code, err)
	}
	return amount, true, nil
}

func (r *StockRepository) SaveStock(ctx context.Context, record *models.StockRecord) error {
	row := Row{
		KeyCompanyCode:     durableCode(record.CompanyCode),
		"status":           record.Status,
		"purchased_amount": record.PurchasedAmount,
		"purchased_status": record.PurchasedStatus,
		"request_date":     record.RequestDate,
		"company_name":     record.CompanyName,
		"open":             record.Quote.Open,
		"high":             record.Quote.High,
		"low":              record.Quote.Low,
		"close":            record.Quote.Close,
	}
	if err := r.store.Upsert(ctx, TableStocks, row, KeyCompanyCode); err != nil {
		return fmt.Errorf("upsert stock %s: %w", row[KeyCompanyCode], err)
	}
	return nil
}

func (r *StockRepository) SavePerformance(ctx context.Context, w models.PerformanceWindow) error {
	row := Row{
		KeyCompanyCode: durableCode(w.CompanyCode),
		"date_time":    w.ObservedAt.UTC().Format(time.RFC3339),
		"five_days":    w.FiveDayPct,
		"one_month":    w.OneMonthPct,
		"three_months": w.ThreeMonthPct,
		"year_to_date": w.YTDPct,
		"one_year":     w.OneYearPct,
	}
	if err := r.store.Upsert(ctx, TablePerformance, row, KeyCompanyCode); err != nil {
		return fmt.Errorf("upsert performance %s: %w", row[KeyCompanyCode], err)
	}
	return nil
}

// SaveCompetitor upserts a peer keyed by its own code; peerOf records the
// stock whose page listed it.
func (r *StockRepository) SaveCompetitor(ctx context.Context, peerOf string, c models.Competitor) error {
	row := Row{
		KeyCompanyCode:        durableCode(c.CompanyCode),
		"name":                c.Name,
		"percent_change":      c.PercentChange,
		"market_cap_value":    c.MarketCap.Value,
		"market_cap_currency": c.MarketCap.Currency,
		"peer_of":             durableCode(peerOf),
	}
	if err := r.store.Upsert(ctx, TableCompetitors, row, KeyCompanyCode); err != nil {
		return fmt.Errorf("upsert competitor %s: %w", row[KeyCompanyCode], err)
	}
	return nil
}

// SetPurchasedAmount writes amount for code, updating the existing row or
// inserting a new one. An insert that loses a race to another writer falls
// back to an update.
func (r *StockRepository) SetPurchasedAmount(ctx context.Context, code string, amount int64, exists bool) error {
	code = durableCode(code)
	if !exists {
		err := r.store.Insert(ctx, TableStocks, Row{KeyCompanyCode: code, "purchased_amount": amount})
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrDuplicateKey) {
			return fmt.Errorf("insert stock %s: %w", code, err)
		}
	}
	if err := r.store.Update(ctx, TableStocks, Row{"purchased_amount": amount}, Filter{KeyCompanyCode: code}); err != nil {
		return fmt.Errorf("update purchased amount for %s: %w", code, err)
	}
	return nil
}

// Holding reads back the stored amount for code. It returns nil when no row exists.
func (r *StockRepository) Holding(ctx context.Context, code string) (*models.Holding, error) {
	rows, err := r.store.Select(ctx, TableStocks, Filter{KeyCompanyCode: durableCode(code)}, KeyCompanyCode, "purchased_amount")
	if err != nil {
		return nil, fmt.Errorf("select holding %s: %w", code, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	amount, err := asInt64(rows[0]["purchased_amount"])
	if err != nil {
		return nil, fmt.Errorf("purchased amount for %s: %w", code, err)
	}
	storedCode, _ := rows[0][KeyCompanyCode].(string)
	return &models.Holding{CompanyCode: storedCode, PurchasedAmount: amount}, nil
}

func asInt64(v any) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("non-integer amount %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected amount type %T", v)
	}
}
