package dataflows

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// Source tells which path produced a page.
type Source string

const (
	SourceDirect  Source = "direct"
	SourceProxied Source = "proxied"
	SourceFailed  Source = "failed"
)

// Retrieval is the outcome of fetching a quote page. HTML is set for the
// direct and proxied sources, Err for the failed one.
type Retrieval struct {
	Source Source
	URL    string
	HTML   string
	Err    error
}

func (r Retrieval) OK() bool {
	return r.Source != SourceFailed
}

// Retriever fetches the quote page directly and falls back to a renderer
// exactly once when the direct request fails at the transport level.
type Retriever struct {
	fetcher  PageFetcher
	renderer Renderer
	baseURL  string
	waitFor  string
}

// NewRetriever builds a Retriever. renderer may be nil, in which case a
// transport failure is final.
func NewRetriever(fetcher PageFetcher, renderer Renderer, baseURL, waitFor string) *Retriever {
	return &Retriever{
		fetcher:  fetcher,
		renderer: renderer,
		baseURL:  baseURL,
		waitFor:  waitFor,
	}
}

func (r *Retriever) Retrieve(ctx context.Context, symbol string) Retrieval {
	targetURL := QuotePageURL(r.baseURL, symbol)

	html, err := r.fetcher.Fetch(ctx, targetURL)
	if err == nil {
		return Retrieval{Source: SourceDirect, URL: targetURL, HTML: html}
	}

	var transportErr *TransportError
	if !errors.As(err, &transportErr) || r.renderer == nil {
		return Retrieval{Source: SourceFailed, URL: targetURL, Err: fmt.Errorf("%w: %w", ErrFetchFailed, err)}
	}

	log.Warn().Err(err).Str("symbol", symbol).Msg("direct fetch failed, falling back to renderer")
	html, renderErr := r.renderer.Render(ctx, targetURL, r.waitFor)
	if renderErr != nil {
		return Retrieval{
			Source: SourceFailed,
			URL:    targetURL,
			Err:    fmt.Errorf("%w: direct: %w; render: %w", ErrFetchFailed, err, renderErr),
		}
	}
	return Retrieval{Source: SourceProxied, URL: targetURL, HTML: html}
}
