package dataflows

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog/log"
)

// Renderer produces the HTML of targetURL after client-side rendering has
// made the waitFor anchor appear.
type Renderer interface {
	Render(ctx context.Context, targetURL, waitFor string) (string, error)
}

// ZenRowsRenderer renders pages through the ZenRows scraping API.
type ZenRowsRenderer struct {
	client *resty.Client
	apiKey string
}

func NewZenRowsRenderer(baseURL, apiKey string, timeout time.Duration) *ZenRowsRenderer {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout)

	return &ZenRowsRenderer{
		client: client,
		apiKey: apiKey,
	}
}

func (z *ZenRowsRenderer) Render(ctx context.Context, targetURL, waitFor string) (string, error) {
	log.Debug().Str("url", targetURL).Str("wait_for", waitFor).Msg("rendering page through zenrows")
	resp, err := z.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"url":           targetURL,
			"apikey":        z.apiKey,
			"js_render":     "true",
			"wait_for":      waitFor,
			"premium_proxy": "true",
			"wait":          "15",
		}).
		Get("/v1/")
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", targetURL, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("HTTP error %d when rendering %s", resp.StatusCode(), targetURL)
	}

	return decodeBody(resp.Body(), resp.Header().Get("Content-Type"))
}

// ChromeRenderer renders pages in a local headless Chrome.
type ChromeRenderer struct {
	timeout time.Duration
}

func NewChromeRenderer(timeout time.Duration) *ChromeRenderer {
	return &ChromeRenderer{timeout: timeout}
}

func (c *ChromeRenderer) Render(ctx context.Context, targetURL, waitFor string) (string, error) {
	ctx, cancel := chromedp.NewContext(ctx)
	defer cancel()
	ctx, cancel = context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var html string
	log.Debug().Str("url", targetURL).Str("wait_for", waitFor).Msg("rendering page in headless chrome")
	err := chromedp.Run(ctx,
		chromedp.Navigate(targetURL),
		chromedp.WaitVisible(anchorSelector(waitFor), chromedp.ByQuery),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("failed to render %s: %w", targetURL, err)
	}
	return html, nil
}

// anchorSelector turns a bare class name such as "column--aside" into a CSS selector.
func anchorSelector(waitFor string) string {
	waitFor = strings.TrimSpace(waitFor)
	if waitFor == "" {
		return "body"
	}
	if strings.ContainsAny(waitFor[:1], ".#[") || strings.ContainsAny(waitFor, " >") {
		return waitFor
	}
	return "." + waitFor
}
