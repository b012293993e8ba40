package cache

import (
	"fmt"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/rs/zerolog/log"

	"github.com/dyike/StockSync/models"
)

type Key struct {
	Symbol string
	Date   string
}

func NewKey(symbol, date string) Key {
	return Key{
		Symbol: strings.ToUpper(strings.TrimSpace(symbol)),
		Date:   strings.TrimSpace(date),
	}
}

// ResultCache memoizes pipeline results per (symbol, date). Entries never
// expire; once capacity is reached the least recently used key is evicted.
// Cached records are shared and must not be mutated by callers.
type ResultCache struct {
	entries *lru.Cache[Key, models.FetchResult]
}

func NewResultCache(size int) (*ResultCache, error) {
	entries, err := lru.NewWithEvict[Key, models.FetchResult](size, func(key Key, _ models.FetchResult) {
		log.Debug().Str("symbol", key.Symbol).Str("date", key.Date).Msg("evicted cached result")
	})
	if err != nil {
		return nil, fmt.Errorf("create result cache: %w", err)
	}
	return &ResultCache{entries: entries}, nil
}

func (c *ResultCache) Get(symbol, date string) (models.FetchResult, bool) {
	return c.entries.Get(NewKey(symbol, date))
}

func (c *ResultCache) Add(symbol, date string, result models.FetchResult) {
	c.entries.Add(NewKey(symbol, date), result)
}

func (c *ResultCache) Len() int {
	return c.entries.Len()
}

// Purge drops every entry.
func (c *ResultCache) Purge() {
	c.entries.Purge()
}
