package models

import (
	"time"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

const (
	StatusActive       = "active"
	PurchasedConfirmed = "confirmed"

	SectionPerformance = "performance"
	SectionCompetitors = "competitors"
)

// Quote is one trading day's OHLC values.
type Quote struct {
	Open  float64 `json:"open"`
	High  float64 `json:"high"`
	Low   float64 `json:"low"`
	Close float64 `json:"close"`
}

type PerformanceWindow struct {
	CompanyCode   string    `json:"company_code"`
	ObservedAt    time.Time `json:"observed_at"`
	FiveDayPct    float64   `json:"five_day_pct"`
	OneMonthPct   float64   `json:"one_month_pct"`
	ThreeMonthPct float64   `json:"three_month_pct"`
	YTDPct        float64   `json:"ytd_pct"`
	OneYearPct    float64   `json:"one_year_pct"`
}

// MarketCap is an absolute value in the base unit of Currency.
type MarketCap struct {
	Value    float64 `json:"value"`
	Currency string  `json:"currency"`
}

// Display formats the value with the currency's grapheme, e.g. "$3,200,000,000.00".
func (m MarketCap) Display() string {
	cur := money.GetCurrency(m.Currency)
	if cur == nil {
		return decimal.NewFromFloat(m.Value).StringFixed(2) + " " + m.Currency
	}
	minor := decimal.NewFromFloat(m.Value).Shift(int32(cur.Fraction)).Round(0).IntPart()
	return money.New(minor, cur.Code).Display()
}

type Competitor struct {
	Name          string    `json:"name"`
	CompanyCode   string    `json:"company_code"`
	PercentChange float64   `json:"percent_change"`
	MarketCap     MarketCap `json:"market_cap"`
}

// StockRecord aggregates everything known about a symbol for one date.
// PurchasedAmount is user state and is only changed by quantity updates.
type StockRecord struct {
	Status             string              `json:"status"`
	PurchasedAmount    int64               `json:"purchased_amount"`
	PurchasedStatus    string              `json:"purchased_status"`
	RequestDate        string              `json:"request_date"`
	CompanyCode        string              `json:"company_code"`
	CompanyName        string              `json:"company_name"`
	Quote              Quote               `json:"quote"`
	PerformanceWindows []PerformanceWindow `json:"performance_windows"`
	Competitors        []Competitor        `json:"competitors"`
	// MissingSections names page sections that were not found, so an empty
	// list can be told apart from an absent section.
	MissingSections []string `json:"missing_sections"`
}

func (r *StockRecord) HasSection(name string) bool {
	for _, s := range r.MissingSections {
		if s == name {
			return false
		}
	}
	return true
}

// Holding is the durable owned quantity for a symbol.
type Holding struct {
	CompanyCode     string `json:"company_code"`
	PurchasedAmount int64  `json:"purchased_amount"`
}
