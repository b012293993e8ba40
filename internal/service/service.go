package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/internal/cache"
	"github.com/dyike/StockSync/internal/parser"
	"github.com/dyike/StockSync/internal/storage"
	"github.com/dyike/StockSync/models"
	"github.com/dyike/StockSync/pkg/dataflows"
)

const defaultStoreTimeout = 10 * time.Second

// PageRetriever produces the raw quote page for a symbol.
type PageRetriever interface {
	Retrieve(ctx context.Context, symbol string) dataflows.Retrieval
}

// StockService runs the fetch pipeline and the quantity update.
type StockService struct {
	quotes       dataflows.QuoteProvider
	pages        PageRetriever
	repo         *storage.StockRepository
	reconciler   *Reconciler
	results      *cache.ResultCache
	now          func() time.Time
	storeTimeout time.Duration
}

type Option func(*StockService)

// WithClock overrides the time source used for performance observations.
func WithClock(now func() time.Time) Option {
	return func(s *StockService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithStoreTimeout bounds each durable store call separately.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *StockService) {
		if d > 0 {
			s.storeTimeout = d
		}
	}
}

func NewStockService(quotes dataflows.QuoteProvider, pages PageRetriever, repo *storage.StockRepository, results *cache.ResultCache, opts ...Option) *StockService {
	s := &StockService{
		quotes:       quotes,
		pages:        pages,
		repo:         repo,
		results:      results,
		now:          time.Now,
		storeTimeout: defaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.reconciler = NewReconciler(repo, s.storeTimeout)
	return s
}

// Fetch returns the reconciled record for symbol on date, or an advisory
// notice when the quote provider has no data for that day. Successful
// results are cached per (symbol, date); errors are not.
func (s *StockService) Fetch(ctx context.Context, symbol, date string) (models.FetchResult, error) {
	symbol = strings.TrimSpace(symbol)
	if err := ValidateSymbol(symbol); err != nil {
		return models.FetchResult{}, err
	}
	if err := ValidateDate(date); err != nil {
		return models.FetchResult{}, err
	}

	if cached, ok := s.results.Get(symbol, date); ok {
		log.Debug().Str("symbol", symbol).Str("date", date).Msg("result cache hit")
		return presentAs(cached, symbol, date), nil
	}

	result, err := s.run(ctx, symbol, date)
	if err != nil {
		return models.FetchResult{}, err
	}
	s.results.Add(symbol, date, result)
	return result, nil
}

// presentAs rewrites a cached result for a caller whose symbol may differ
// in case from the one that populated the cache entry.
func presentAs(result models.FetchResult, symbol, date string) models.FetchResult {
	out := models.FetchResult{}
	if result.Record != nil {
		rec := *result.Record
		rec.CompanyCode = symbol
		out.Record = &rec
	}
	if result.Notice != nil {
		out.Notice = models.NewUnavailableNotice(symbol, date)
	}
	return out
}

func (s *StockService) run(ctx context.Context, symbol, date string) (models.FetchResult, error) {
	logger := log.With().Str("symbol", symbol).Str("date", date).Logger()

	// The quote comes first: a confirmed missing day skips the scrape.
	quote, err := s.quotes.GetDailyQuote(ctx, dataflows.NormalizeSymbol(symbol), date)
	if errors.Is(err, dataflows.ErrQuoteNotFound) {
		logger.Info().Msg("quote not found, returning advisory")
		return models.FetchResult{Notice: models.NewUnavailableNotice(symbol, date)}, nil
	}
	if err != nil {
		return models.FetchResult{}, fmt.Errorf("fetch quote for %s on %s: %w", symbol, date, err)
	}

	retrieval := s.pages.Retrieve(ctx, symbol)
	if !retrieval.OK() {
		return models.FetchResult{}, retrieval.Err
	}
	logger.Debug().Str("source", string(retrieval.Source)).Str("url", retrieval.URL).Msg("quote page retrieved")

	doc, err := parser.NewDocument(retrieval.HTML)
	if err != nil {
		return models.FetchResult{}, err
	}
	page := parser.ParsePage(doc, symbol, s.now())

	record := &models.StockRecord{
		Status:             models.StatusActive,
		PurchasedStatus:    models.PurchasedConfirmed,
		RequestDate:        date,
		CompanyCode:        symbol,
		CompanyName:        page.CompanyName,
		Quote:              *quote,
		PerformanceWindows: []models.PerformanceWindow{},
		Competitors:        page.Competitors,
		MissingSections:    page.MissingSections,
	}
	if page.Performance != nil {
		record.PerformanceWindows = append(record.PerformanceWindows, *page.Performance)
	}

	return models.FetchResult{Record: s.reconciler.Reconcile(ctx, record)}, nil
}
