package models

import (
	"encoding/json"
	"fmt"
)

const (
	PolygonDocsURL          = "https://polygon.io/docs/stocks/get_v1_open-close__stockscompany_code___date"
	MarketWatchCompaniesURL = "https://www.marketwatch.com/tools/markets/stocks/country/united-states"
)

// UnavailableNotice is returned instead of a record when the quote provider
// has confirmed there is no data for the symbol and date.
type UnavailableNotice struct {
	Message                string `json:"message"`
	Info                   string `json:"info"`
	PolygonDocs            string `json:"polygon_docs"`
	MarketWatchCompanyCode string `json:"marketwatch_company_codes"`
}

func NewUnavailableNotice(symbol, date string) *UnavailableNotice {
	return &UnavailableNotice{
		Message:                fmt.Sprintf("Data unavailable for stock %s on date %s.", symbol, date),
		Info:                   "Please check the available dates and stock symbols.",
		PolygonDocs:            PolygonDocsURL,
		MarketWatchCompanyCode: MarketWatchCompaniesURL,
	}
}

// FetchResult holds exactly one of Record or Notice.
type FetchResult struct {
	Record *StockRecord
	Notice *UnavailableNotice
}

func (r FetchResult) Available() bool {
	return r.Record != nil
}

func (r FetchResult) MarshalJSON() ([]byte, error) {
	if r.Record != nil {
		return json.Marshal(r.Record)
	}
	return json.Marshal(r.Notice)
}
