package dataflows

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dyike/StockSync/models"
	lpconfig "github.com/longportapp/openapi-go/config"
	"github.com/longportapp/openapi-go/quote"
	"github.com/rs/zerolog/log"
)

// maxLongportSticks is the largest candlestick count the API returns in one call.
const maxLongportSticks = 1000

type LongportConfig struct {
	AppKey      string
	AppSecret   string
	AccessToken string
}

type LongportClient struct {
	quoteCtx *quote.QuoteContext
	now      func() time.Time
}

func NewLongportClient(cfg LongportConfig) (*LongportClient, error) {
	if cfg.AppKey == "" || cfg.AppSecret == "" || cfg.AccessToken == "" {
		return nil, errors.New("longport API credentials not configured")
	}

	conf, err := lpconfig.New(lpconfig.WithConfigKey(cfg.AppKey, cfg.AppSecret, cfg.AccessToken))
	if err != nil {
		return nil, err
	}

	quoteContext, err := quote.NewFromCfg(conf)
	if err != nil {
		return nil, err
	}

	return &LongportClient{
		quoteCtx: quoteContext,
		now:      time.Now,
	}, nil
}

// GetDailyQuote pulls enough daily candlesticks to reach date and returns
// the one for that day.
func (lpc *LongportClient) GetDailyQuote(ctx context.Context, symbol, date string) (*models.Quote, error) {
	if lpc.quoteCtx == nil {
		return nil, errors.New("quote context is nil")
	}
	day, err := ParseDate(date)
	if err != nil {
		return nil, err
	}

	count, capped := stickCount(lpc.now(), day)
	if count < 1 {
		return nil, fmt.Errorf("%s on %s: %w", symbol, date, ErrQuoteNotFound)
	}

	lpSymbol := LongportSymbol(symbol)
	log.Debug().Str("symbol", lpSymbol).Int("count", count).Msg("requesting longport candlesticks")
	sticks, err := lpc.quoteCtx.Candlesticks(ctx, lpSymbol, quote.PeriodDay, int32(count), quote.AdjustTypeNo)
	if err != nil {
		return nil, fmt.Errorf("failed to get candlesticks for %s: %w", lpSymbol, err)
	}

	for _, stick := range sticks {
		if stick == nil {
			continue
		}
		if time.Unix(stick.Timestamp, 0).In(marketLocation()).Format(DateLayout) != date {
			continue
		}
		open, _ := stick.Open.Float64()
		high, _ := stick.High.Float64()
		low, _ := stick.Low.Float64()
		closePrice, _ := stick.Close.Float64()
		return &models.Quote{Open: open, High: high, Low: low, Close: closePrice}, nil
	}

	return nil, missingStickError(symbol, date, capped)
}

// stickCount returns how many daily candlesticks reach back to day from now,
// capped at maxLongportSticks. capped reports whether the cap applied.
func stickCount(now, day time.Time) (count int, capped bool) {
	count = int(now.Sub(day).Hours()/24) + 2
	if count > maxLongportSticks {
		return maxLongportSticks, true
	}
	return count, false
}

func missingStickError(symbol, date string, capped bool) error {
	if capped {
		return fmt.Errorf("%s on %s: %w", symbol, date, ErrBeyondHistory)
	}
	return fmt.Errorf("%s on %s: %w", symbol, date, ErrQuoteNotFound)
}

// LongportSymbol adds the US market suffix when symbol has none.
func LongportSymbol(symbol string) string {
	symbol = NormalizeSymbol(symbol)
	if strings.Contains(symbol, ".") {
		return symbol
	}
	return symbol + ".US"
}
