package dataflows

import (
	"context"
	"fmt"
	"mime"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/encoding/htmlindex"
)

// PageFetcher retrieves an HTML document. A connection level failure is
// reported as *TransportError; an HTTP error status is not a failure.
type PageFetcher interface {
	Fetch(ctx context.Context, targetURL string) (string, error)
}

// browserHeaders keep the quote site from serving its bot challenge.
var browserHeaders = map[string]string{
	"User-Agent":                "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:87.0) Gecko/20100101 Firefox/87.0",
	"Accept":                    "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8",
	"Accept-Language":           "en-US,en;q=0.5",
	"Connection":                "keep-alive",
	"Upgrade-Insecure-Requests": "1",
	"Cache-Control":             "max-age=0",
}

// DirectFetcher performs a plain GET with browser-like headers.
type DirectFetcher struct {
	client *resty.Client
}

func NewDirectFetcher(timeout time.Duration) *DirectFetcher {
	client := resty.New()
	client.SetTimeout(timeout)
	client.SetHeaders(browserHeaders)

	return &DirectFetcher{client: client}
}

func (f *DirectFetcher) Fetch(ctx context.Context, targetURL string) (string, error) {
	log.Debug().Str("url", targetURL).Msg("fetching page")
	resp, err := f.client.R().SetContext(ctx).Get(targetURL)
	if err != nil {
		return "", &TransportError{URL: targetURL, Err: err}
	}
	if resp.IsError() {
		log.Warn().Str("url", targetURL).Int("status", resp.StatusCode()).Msg("page returned error status, parsing body anyway")
	}

	return decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
}

// decodeBody converts the body to UTF-8 when the Content-Type names another charset.
func decodeBody(body []byte, contentType string) (string, error) {
	if contentType == "" {
		return string(body), nil
	}
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	charset := strings.ToLower(strings.TrimSpace(params["charset"]))
	if charset == "" || charset == "utf-8" || charset == "utf8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		log.Warn().Str("charset", charset).Msg("unknown page charset, using body as is")
		return string(body), nil
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return "", fmt.Errorf("failed to decode %s body: %w", charset, err)
	}
	return string(decoded), nil
}
