package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

const (
	TableStocks      = "stocks"
	TablePerformance = "performance_data"
	TableCompetitors = "competitors"

	KeyCompanyCode = "company_code"
)

var (
	ErrUnknownTable  = errors.New("unknown table")
	ErrUnknownColumn = errors.New("unknown column")
	ErrDuplicateKey  = errors.New("duplicate key")
)

// Row is one record keyed by column name.
type Row map[string]any

// Filter matches rows whose columns equal every given value.
type Filter map[string]any

// Store is the durable record store the pipeline persists into.
type Store interface {
	Select(ctx context.Context, table string, filter Filter, columns ...string) ([]Row, error)
	Upsert(ctx context.Context, table string, row Row, conflictKey string) error
	Update(ctx context.Context, table string, patch Row, filter Filter) error
	Insert(ctx context.Context, table string, row Row) error
	Close() error
}

// Tables lists the columns of every durable table. company_code is unique
// in each of them.
var Tables = map[string][]string{
	TableStocks: {
		"company_code", "status", "purchased_amount", "purchased_status", "request_date",
		"company_name", "open", "high", "low", "close",
	},
	TablePerformance: {
		"company_code", "date_time", "five_days", "one_month", "three_months", "year_to_date", "one_year",
	},
	TableCompetitors: {
		"company_code", "name", "percent_change", "market_cap_value", "market_cap_currency", "peer_of",
	},
}

// CheckColumns verifies that table exists and has every named column.
func CheckColumns(table string, columns ...string) error {
	known, ok := Tables[table]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownTable, table)
	}
	for _, col := range columns {
		found := false
		for _, k := range known {
			if k == col {
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("%w: %s.%s", ErrUnknownColumn, table, col)
		}
	}
	return nil
}

// SortedKeys returns the column names of m in a stable order.
func SortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinColumns(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	out = append(out, a...)
	return append(out, b...)
}
