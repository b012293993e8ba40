package service

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/dyike/StockSync/internal/cache"
	"github.com/dyike/StockSync/internal/storage"
	"github.com/dyike/StockSync/models"
	"github.com/dyike/StockSync/pkg/dataflows"
)

const testBaseURL = "https://www.marketwatch.com"

type fakeQuotes struct {
	quote *models.Quote
	err   error
	calls int
}

func (f *fakeQuotes) GetDailyQuote(ctx context.Context, symbol, date string) (*models.Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	return &q, nil
}

type fakeFetcher struct {
	html string
	err  error
	urls []string
}

func (f *fakeFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	f.urls = append(f.urls, targetURL)
	return f.html, f.err
}

type fakeRenderer struct {
	html    string
	err     error
	calls   int
	url     string
	waitFor string
}

func (f *fakeRenderer) Render(ctx context.Context, targetURL, waitFor string) (string, error) {
	f.calls++
	f.url = targetURL
	f.waitFor = waitFor
	return f.html, f.err
}

// flakyStore fails every upsert but serves reads and quantity writes.
type flakyStore struct {
	*storage.MemoryStore
}

func (f flakyStore) Upsert(ctx context.Context, table string, row storage.Row, conflictKey string) error {
	return errors.New("store unavailable")
}

func loadFixture(t *testing.T) string {
	t.Helper()
	data, err := os.ReadFile("../parser/testdata/quote_page.html")
	if err != nil {
		t.Fatalf("read fixture: %v", err)
	}
	return string(data)
}

func newTestService(t *testing.T, quotes dataflows.QuoteProvider, pages PageRetriever, store storage.Store) *StockService {
	t.Helper()
	results, err := cache.NewResultCache(16)
	if err != nil {
		t.Fatalf("NewResultCache() error = %v", err)
	}
	clock := func() time.Time { return time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC) }
	return NewStockService(quotes, pages, storage.NewStockRepository(store), results, WithClock(clock))
}

func directPages(html string) *dataflows.Retriever {
	return dataflows.NewRetriever(&fakeFetcher{html: html}, nil, testBaseURL, "column--aside")
}

func sampleQuote() *models.Quote {
	return &models.Quote{Open: 169.58, High: 172.71, Low: 169.11, Close: 172.04}
}

func TestFetchNotFoundSkipsScrape(t *testing.T) {
	quotes := &fakeQuotes{err: dataflows.ErrQuoteNotFound}
	fetcher := &fakeFetcher{html: "<html></html>"}
	svc := newTestService(t, quotes, dataflows.NewRetriever(fetcher, nil, testBaseURL, ""), storage.NewMemoryStore())

	result, err := svc.Fetch(context.Background(), "ZZZZ", "1999-01-01")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Available() || result.Notice == nil {
		t.Fatalf("expected advisory notice, got %+v", result)
	}
	if result.Notice.Message != "Data unavailable for stock ZZZZ on date 1999-01-01." {
		t.Errorf("Message = %q", result.Notice.Message)
	}
	if len(fetcher.urls) != 0 {
		t.Errorf("scrape attempted: %v", fetcher.urls)
	}
}

func TestFetchFallsBackToRenderer(t *testing.T) {
	fetcher := &fakeFetcher{err: &dataflows.TransportError{URL: "x", Err: errors.New("connection reset")}}
	renderer := &fakeRenderer{html: loadFixture(t)}
	pages := dataflows.NewRetriever(fetcher, renderer, testBaseURL, "column--aside")
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, pages, storage.NewMemoryStore())

	result, err := svc.Fetch(context.Background(), "AAPL", "2024-05-01")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if renderer.calls != 1 {
		t.Fatalf("renderer calls = %d, want 1", renderer.calls)
	}
	wantURL := "https://www.marketwatch.com/investing/stock/aapl?mod=u.s.-market-data"
	if renderer.url != wantURL || renderer.waitFor != "column--aside" {
		t.Errorf("renderer got (%q, %q)", renderer.url, renderer.waitFor)
	}

	record := result.Record
	if record == nil {
		t.Fatal("expected a record")
	}
	if record.CompanyName != "Apple Inc." {
		t.Errorf("CompanyName = %q", record.CompanyName)
	}
	if len(record.PerformanceWindows) != 1 || record.PerformanceWindows[0].FiveDayPct != 1.52 {
		t.Errorf("PerformanceWindows = %+v", record.PerformanceWindows)
	}
	if len(record.Competitors) != 3 {
		t.Errorf("got %d competitors, want 3", len(record.Competitors))
	}
	if record.Status != models.StatusActive || record.PurchasedStatus != models.PurchasedConfirmed {
		t.Errorf("status fields = %q/%q", record.Status, record.PurchasedStatus)
	}
	if record.Quote != *sampleQuote() {
		t.Errorf("Quote = %+v", record.Quote)
	}
}

func TestFetchFailsWhenBothPathsFail(t *testing.T) {
	fetcher := &fakeFetcher{err: &dataflows.TransportError{URL: "x", Err: errors.New("dial tcp: refused")}}
	renderer := &fakeRenderer{err: errors.New("proxy 502")}
	quotes := &fakeQuotes{quote: sampleQuote()}
	svc := newTestService(t, quotes, dataflows.NewRetriever(fetcher, renderer, testBaseURL, "column--aside"), storage.NewMemoryStore())

	_, err := svc.Fetch(context.Background(), "AAPL", "2024-05-01")
	if !errors.Is(err, dataflows.ErrFetchFailed) {
		t.Fatalf("Fetch() error = %v, want ErrFetchFailed", err)
	}
	if IsValidation(err) {
		t.Error("fetch failure must not be a validation error")
	}

	// Failures are not cached.
	_, _ = svc.Fetch(context.Background(), "AAPL", "2024-05-01")
	if quotes.calls != 2 {
		t.Errorf("quote calls = %d, want 2", quotes.calls)
	}
}

const marketCapPage = `<html><body>
<h1 class="company__name">Example Corp</h1>
<div class="Competitors"><table>
<tr class="table__row"><td class="table__cell w50"><a href="/investing/stock/aaa">A Co</a></td><td class="table__cell w25"><bg-quote>1.00%</bg-quote></td><td class="table__cell w25 number">$3.2B</td></tr>
<tr class="table__row"><td class="table__cell w50"><a href="/investing/stock/bbb?countrycode=ch">B AG</a></td><td class="table__cell w25"><bg-quote>-0.50%</bg-quote></td><td class="table__cell w25 number">CHF150M</td></tr>
<tr class="table__row"><td class="table__cell w50"><a href="/investing/stock/ccc/">C plc</a></td><td class="table__cell w25"><bg-quote>0.00%</bg-quote></td><td class="table__cell w25 number">£900</td></tr>
</table></div>
</body></html>`

func TestFetchNormalizesMarketCaps(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(marketCapPage), storage.NewMemoryStore())

	result, err := svc.Fetch(context.Background(), "EXM", "2024-05-01")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	want := []models.MarketCap{
		{Value: 3.2e9, Currency: "USD"},
		{Value: 1.5e8, Currency: "CHF"},
		{Value: 900, Currency: "GBP"},
	}
	got := result.Record.Competitors
	if len(got) != len(want) {
		t.Fatalf("got %d competitors, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].MarketCap != want[i] {
			t.Errorf("competitor %d market cap = %+v, want %+v", i, got[i].MarketCap, want[i])
		}
	}
	if !result.Record.HasSection(models.SectionCompetitors) || result.Record.HasSection(models.SectionPerformance) {
		t.Errorf("MissingSections = %v", result.Record.MissingSections)
	}
	if len(result.Record.PerformanceWindows) != 0 || result.Record.PerformanceWindows == nil {
		t.Errorf("PerformanceWindows = %#v, want empty list", result.Record.PerformanceWindows)
	}
}

func TestFetchMissingSections(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages("<html><body></body></html>"), storage.NewMemoryStore())

	result, err := svc.Fetch(context.Background(), "AAPL", "2024-05-01")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	record := result.Record
	if record.CompanyName != "Unknown" {
		t.Errorf("CompanyName = %q", record.CompanyName)
	}
	if len(record.MissingSections) != 2 {
		t.Errorf("MissingSections = %v", record.MissingSections)
	}
	if record.Competitors == nil || len(record.Competitors) != 0 {
		t.Errorf("Competitors = %#v", record.Competitors)
	}
}

func TestFetchCachesResults(t *testing.T) {
	quotes := &fakeQuotes{quote: sampleQuote()}
	fetcher := &fakeFetcher{html: loadFixture(t)}
	svc := newTestService(t, quotes, dataflows.NewRetriever(fetcher, nil, testBaseURL, ""), storage.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.Fetch(ctx, "AAPL", "2024-05-01"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Fetch(ctx, "aapl", "2024-05-01"); err != nil {
		t.Fatal(err)
	}
	if quotes.calls != 1 || len(fetcher.urls) != 1 {
		t.Errorf("upstream calls = %d quote / %d page, want 1/1", quotes.calls, len(fetcher.urls))
	}

	if _, err := svc.Fetch(ctx, "AAPL", "2024-05-02"); err != nil {
		t.Fatal(err)
	}
	if quotes.calls != 2 {
		t.Errorf("a new date must miss the cache, quote calls = %d", quotes.calls)
	}
}

func TestFetchCacheHitKeepsCallerSymbol(t *testing.T) {
	quotes := &fakeQuotes{quote: sampleQuote()}
	svc := newTestService(t, quotes, directPages(loadFixture(t)), storage.NewMemoryStore())
	ctx := context.Background()

	for _, symbol := range []string{"aapl", "AAPL", "Aapl"} {
		result, err := svc.Fetch(ctx, symbol, "2024-05-01")
		if err != nil {
			t.Fatalf("Fetch(%q) error = %v", symbol, err)
		}
		if result.Record.CompanyCode != symbol {
			t.Errorf("Fetch(%q) CompanyCode = %q", symbol, result.Record.CompanyCode)
		}
	}
	if quotes.calls != 1 {
		t.Errorf("quote calls = %d, want 1", quotes.calls)
	}

	again, err := svc.Fetch(ctx, "aapl", "2024-05-01")
	if err != nil {
		t.Fatal(err)
	}
	if again.Record.CompanyCode != "aapl" {
		t.Errorf("cached entry was rewritten, CompanyCode = %q", again.Record.CompanyCode)
	}
}

func TestFetchCachedNoticeKeepsCallerSymbol(t *testing.T) {
	quotes := &fakeQuotes{err: dataflows.ErrQuoteNotFound}
	svc := newTestService(t, quotes, directPages(""), storage.NewMemoryStore())
	ctx := context.Background()

	tests := []struct {
		symbol string
		want   string
	}{
		{"zzzz", "Data unavailable for stock zzzz on date 1999-01-01."},
		{"ZZZZ", "Data unavailable for stock ZZZZ on date 1999-01-01."},
	}
	for _, tt := range tests {
		result, err := svc.Fetch(ctx, tt.symbol, "1999-01-01")
		if err != nil {
			t.Fatalf("Fetch(%q) error = %v", tt.symbol, err)
		}
		if result.Notice == nil || result.Notice.Message != tt.want {
			t.Errorf("Fetch(%q) notice = %+v, want %q", tt.symbol, result.Notice, tt.want)
		}
	}
	if quotes.calls != 1 {
		t.Errorf("quote calls = %d, want 1", quotes.calls)
	}
}

func TestFetchValidation(t *testing.T) {
	tests := []struct {
		name   string
		symbol string
		date   string
	}{
		{"empty symbol", "  ", "2024-05-01"},
		{"long symbol", "TOOLONG", "2024-05-01"},
		{"bad date", "AAPL", "2024/05/01"},
		{"impossible date", "AAPL", "2024-02-30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quotes := &fakeQuotes{quote: sampleQuote()}
			svc := newTestService(t, quotes, directPages(""), storage.NewMemoryStore())
			_, err := svc.Fetch(context.Background(), tt.symbol, tt.date)
			if !IsValidation(err) {
				t.Fatalf("Fetch() error = %v, want validation error", err)
			}
			if quotes.calls != 0 {
				t.Errorf("quote provider called %d times", quotes.calls)
			}
		})
	}
}

func TestFetchPreservesPurchasedAmount(t *testing.T) {
	store := storage.NewMemoryStore()
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(loadFixture(t)), store)
	ctx := context.Background()

	if _, err := svc.AdjustQuantity(ctx, "aapl", 42); err != nil {
		t.Fatalf("AdjustQuantity() error = %v", err)
	}
	for _, date := range []string{"2024-05-01", "2024-05-02"} {
		result, err := svc.Fetch(ctx, "aapl", date)
		if err != nil {
			t.Fatalf("Fetch(%s) error = %v", date, err)
		}
		if result.Record.PurchasedAmount != 42 {
			t.Errorf("Fetch(%s) PurchasedAmount = %d, want 42", date, result.Record.PurchasedAmount)
		}
		if result.Record.CompanyCode != "aapl" {
			t.Errorf("CompanyCode = %q, want the symbol as given", result.Record.CompanyCode)
		}
	}

	holding, err := storage.NewStockRepository(store).Holding(ctx, "AAPL")
	if err != nil || holding == nil {
		t.Fatalf("Holding() = %v, %v", holding, err)
	}
	if holding.PurchasedAmount != 42 {
		t.Errorf("durable amount = %d, want 42", holding.PurchasedAmount)
	}

	rows, err := store.Select(ctx, storage.TableCompetitors, storage.Filter{"peer_of": "AAPL"})
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 3 {
		t.Errorf("persisted %d competitors, want 3", len(rows))
	}
}

func TestFetchToleratesPersistenceFailure(t *testing.T) {
	mem := storage.NewMemoryStore()
	ctx := context.Background()
	if err := storage.NewStockRepository(mem).SetPurchasedAmount(ctx, "AAPL", 9, false); err != nil {
		t.Fatal(err)
	}
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(loadFixture(t)), flakyStore{mem})

	result, err := svc.Fetch(ctx, "AAPL", "2024-05-01")
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.Record == nil || result.Record.PurchasedAmount != 9 {
		t.Fatalf("record = %+v, want purchased amount 9", result.Record)
	}
	if result.Record.CompanyName != "Apple Inc." {
		t.Errorf("CompanyName = %q", result.Record.CompanyName)
	}
}

func TestAdjustQuantity(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(""), storage.NewMemoryStore())
	ctx := context.Background()

	steps := []struct {
		delta int64
		want  int64
	}{
		{100, 100},
		{100, 200},
		{-50, 150},
		{-50, 100},
		{-1000, 0},
		{50, 50},
	}
	for _, step := range steps {
		holding, err := svc.AdjustQuantity(ctx, "YELP", step.delta)
		if err != nil {
			t.Fatalf("AdjustQuantity(%d) error = %v", step.delta, err)
		}
		if holding.PurchasedAmount != step.want {
			t.Errorf("AdjustQuantity(%d) = %d, want %d", step.delta, holding.PurchasedAmount, step.want)
		}
		if holding.CompanyCode != "YELP" {
			t.Errorf("CompanyCode = %q", holding.CompanyCode)
		}
	}
}

func TestAdjustQuantityScenario(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(""), storage.NewMemoryStore())
	ctx := context.Background()

	for _, delta := range []int64{100, 100, -50} {
		if _, err := svc.AdjustQuantity(ctx, "YELP", delta); err != nil {
			t.Fatal(err)
		}
	}
	holding, err := svc.AdjustQuantity(ctx, "yelp", 0)
	if err != nil {
		t.Fatal(err)
	}
	if holding.PurchasedAmount != 150 {
		t.Errorf("amount = %d, want 150", holding.PurchasedAmount)
	}
}

func TestAdjustQuantityInverse(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(""), storage.NewMemoryStore())
	ctx := context.Background()

	if _, err := svc.AdjustQuantity(ctx, "MSFT", 30); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.AdjustQuantity(ctx, "MSFT", 20); err != nil {
		t.Fatal(err)
	}
	holding, err := svc.AdjustQuantity(ctx, "MSFT", -20)
	if err != nil {
		t.Fatal(err)
	}
	if holding.PurchasedAmount != 30 {
		t.Errorf("amount = %d, want 30", holding.PurchasedAmount)
	}
}

func TestAdjustQuantityRejectsBadSymbol(t *testing.T) {
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(""), storage.NewMemoryStore())
	if _, err := svc.AdjustQuantity(context.Background(), "ABCDEF", 1); !IsValidation(err) {
		t.Fatalf("AdjustQuantity() error = %v, want validation error", err)
	}
}

func TestClampedAdd(t *testing.T) {
	const maxInt64 = int64(^uint64(0) >> 1)
	tests := []struct {
		current, delta, want int64
	}{
		{0, 5, 5},
		{5, -10, 0},
		{maxInt64 - 1, 10, maxInt64},
		{10, -10, 0},
	}
	for _, tt := range tests {
		if got := clampedAdd(tt.current, tt.delta); got != tt.want {
			t.Errorf("clampedAdd(%d, %d) = %d, want %d", tt.current, tt.delta, got, tt.want)
		}
	}
}

func TestDefaultDate(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 30, 0, 0, time.Local)
	if got := DefaultDate(now); got != "2024-02-29" {
		t.Errorf("DefaultDate() = %q, want 2024-02-29", got)
	}
}

// racingStore creates the stock row right after the first stocks read, as a
// concurrent first-time adjustment would.
type racingStore struct {
	*storage.MemoryStore
	raced bool
}

func (r *racingStore) Select(ctx context.Context, table string, filter storage.Filter, columns ...string) ([]storage.Row, error) {
	rows, err := r.MemoryStore.Select(ctx, table, filter, columns...)
	if err == nil && table == storage.TableStocks && !r.raced {
		r.raced = true
		err = r.MemoryStore.Insert(ctx, storage.TableStocks, storage.Row{storage.KeyCompanyCode: "YELP", "purchased_amount": int64(3)})
	}
	return rows, err
}

func TestAdjustQuantityConcurrentCreate(t *testing.T) {
	store := &racingStore{MemoryStore: storage.NewMemoryStore()}
	svc := newTestService(t, &fakeQuotes{quote: sampleQuote()}, directPages(""), store)

	holding, err := svc.AdjustQuantity(context.Background(), "YELP", 5)
	if err != nil {
		t.Fatalf("AdjustQuantity() error = %v", err)
	}
	if holding.PurchasedAmount != 5 {
		t.Errorf("amount = %d, want 5", holding.PurchasedAmount)
	}
}

// slowStore records the time left before each call's deadline and then
// stalls for pause.
type slowStore struct {
	*storage.MemoryStore
	pause     time.Duration
	remaining []time.Duration
}

func (s *slowStore) wait(ctx context.Context) {
	if deadline, ok := ctx.Deadline(); ok {
		s.remaining = append(s.remaining, time.Until(deadline))
	} else {
		s.remaining = append(s.remaining, 0)
	}
	time.Sleep(s.pause)
}

func (s *slowStore) Select(ctx context.Context, table string, filter storage.Filter, columns ...string) ([]storage.Row, error) {
	s.wait(ctx)
	return s.MemoryStore.Select(ctx, table, filter, columns...)
}

func (s *slowStore) Upsert(ctx context.Context, table string, row storage.Row, conflictKey string) error {
	s.wait(ctx)
	return s.MemoryStore.Upsert(ctx, table, row, conflictKey)
}

func (s *slowStore) Update(ctx context.Context, table string, patch storage.Row, filter storage.Filter) error {
	s.wait(ctx)
	return s.MemoryStore.Update(ctx, table, patch, filter)
}

func (s *slowStore) Insert(ctx context.Context, table string, row storage.Row) error {
	s.wait(ctx)
	return s.MemoryStore.Insert(ctx, table, row)
}

func assertFreshDeadlines(t *testing.T, remaining []time.Duration, timeout time.Duration, calls int) {
	t.Helper()
	if len(remaining) != calls {
		t.Fatalf("store calls = %d, want %d", len(remaining), calls)
	}
	for i, left := range remaining {
		if left < timeout-25*time.Millisecond || left > timeout {
			t.Errorf("call %d started with %v left, want close to %v", i, left, timeout)
		}
	}
}

func TestReconcileDeadlinePerStoreCall(t *testing.T) {
	const timeout = time.Second
	store := &slowStore{MemoryStore: storage.NewMemoryStore(), pause: 50 * time.Millisecond}
	reconciler := NewReconciler(storage.NewStockRepository(store), timeout)

	record := &models.StockRecord{
		CompanyCode:        "AAPL",
		RequestDate:        "2024-05-01",
		PerformanceWindows: []models.PerformanceWindow{{CompanyCode: "AAPL", FiveDayPct: 1.2}},
		Competitors: []models.Competitor{
			{Name: "Microsoft Corp.", CompanyCode: "MSFT"},
			{Name: "Alphabet Inc. Cl A", CompanyCode: "GOOGL"},
		},
	}
	merged := reconciler.Reconcile(context.Background(), record)
	if merged.CompanyCode != "AAPL" {
		t.Fatalf("CompanyCode = %q", merged.CompanyCode)
	}
	// one read, the stock row, one performance window and two competitors
	assertFreshDeadlines(t, store.remaining, timeout, 5)
}

func TestAdjustQuantityDeadlinePerStoreCall(t *testing.T) {
	const timeout = time.Second
	store := &slowStore{MemoryStore: storage.NewMemoryStore(), pause: 50 * time.Millisecond}
	results, err := cache.NewResultCache(16)
	if err != nil {
		t.Fatal(err)
	}
	svc := NewStockService(&fakeQuotes{quote: sampleQuote()}, directPages(""), storage.NewStockRepository(store), results, WithStoreTimeout(timeout))

	if _, err := svc.AdjustQuantity(context.Background(), "NVDA", 10); err != nil {
		t.Fatalf("AdjustQuantity() error = %v", err)
	}
	assertFreshDeadlines(t, store.remaining, timeout, 3)
}
