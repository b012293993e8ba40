package dataflows

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/dyike/StockSync/models"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

const polygonNotFound = "NOT_FOUND"

type polygonOpenClose struct {
	Status  string  `json:"status"`
	Symbol  string  `json:"symbol"`
	From    string  `json:"from"`
	Open    float64 `json:"open"`
	High    float64 `json:"high"`
	Low     float64 `json:"low"`
	Close   float64 `json:"close"`
	Message string  `json:"message"`
}

// PolygonClient reads daily open/close values from the Polygon REST API.
type PolygonClient struct {
	client *resty.Client
	apiKey string
}

func NewPolygonClient(baseURL, apiKey string, timeout time.Duration) *PolygonClient {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	return &PolygonClient{
		client: client,
		apiKey: apiKey,
	}
}

func (p *PolygonClient) GetDailyQuote(ctx context.Context, symbol, date string) (*models.Quote, error) {
	path := fmt.Sprintf("/v1/open-close/%s/%s", url.PathEscape(symbol), url.PathEscape(date))

	log.Debug().Str("symbol", symbol).Str("date", date).Msg("requesting polygon open-close")
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("apiKey", p.apiKey).
		Get(path)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch quote for %s: %w", symbol, err)
	}

	var body polygonOpenClose
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return nil, fmt.Errorf("failed to decode quote for %s (HTTP %d): %w", symbol, resp.StatusCode(), err)
	}

	// Polygon signals a missing day in the body; the status code alone is not reliable.
	if body.Status == polygonNotFound {
		return nil, fmt.Errorf("%s on %s: %w", symbol, date, ErrQuoteNotFound)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("HTTP error %d when fetching quote for %s: %s", resp.StatusCode(), symbol, body.Message)
	}

	return &models.Quote{
		Open:  body.Open,
		High:  body.High,
		Low:   body.Low,
		Close: body.Close,
	}, nil
}
