package dataflows

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestLongportSymbol(t *testing.T) {
	cases := map[string]string{
		"aapl":   "AAPL.US",
		"700.HK": "700.HK",
		" yelp ": "YELP.US",
	}
	for in, want := range cases {
		if got := LongportSymbol(in); got != want {
			t.Fatalf("LongportSymbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStickCount(t *testing.T) {
	now := time.Date(2024, 5, 2, 15, 0, 0, 0, time.UTC)
	tests := []struct {
		name       string
		day        time.Time
		wantCount  int
		wantCapped bool
	}{
		{"yesterday", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC), 3, false},
		{"future", time.Date(2024, 5, 5, 0, 0, 0, 0, time.UTC), 0, false},
		{"at the cap", now.AddDate(0, 0, -(maxLongportSticks - 2)), maxLongportSticks, false},
		{"five years back", time.Date(2019, 5, 1, 0, 0, 0, 0, time.UTC), maxLongportSticks, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, capped := stickCount(now, tt.day)
			if count != tt.wantCount || capped != tt.wantCapped {
				t.Errorf("stickCount() = (%d, %v), want (%d, %v)", count, capped, tt.wantCount, tt.wantCapped)
			}
		})
	}
}

func TestMissingStickError(t *testing.T) {
	err := missingStickError("AAPL", "2019-05-01", true)
	if !errors.Is(err, ErrBeyondHistory) || errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("capped lookup error = %v", err)
	}
	err = missingStickError("AAPL", "2024-04-27", false)
	if !errors.Is(err, ErrQuoteNotFound) {
		t.Fatalf("uncapped lookup error = %v", err)
	}
}

func TestLongportClient_GetDailyQuote(t *testing.T) {
	client, err := NewLongportClient(LongportConfig{
		AppKey:      os.Getenv("LONGPORT_APP_KEY"),
		AppSecret:   os.Getenv("LONGPORT_APP_SECRET"),
		AccessToken: os.Getenv("LONGPORT_ACCESS_TOKEN"),
	})
	if err != nil {
		t.Skipf("Skipping test due to missing Longport API credentials: %v", err)
	}

	day := time.Now().AddDate(0, 0, -7)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}

	q, err := client.GetDailyQuote(context.Background(), "AAPL", day.Format(DateLayout))
	if err != nil {
		t.Skipf("no candlestick for %s: %v", day.Format(DateLayout), err)
	}
	if q.Close <= 0 {
		t.Errorf("expected a positive close, got %+v", q)
	}
}
