package parser

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyike/StockSync/models"
	"github.com/rs/zerolog/log"
)

const (
	CompetitorsSelector = "div.Competitors"

	nameCellSelector    = "td.table__cell.w50"
	percentCellSelector = "td.table__cell.w25:not(.number)"
	capCellSelector     = "td.table__cell.w25.number"
)

// ParseCompetitors reads peer rows in page order. Rows without a name cell
// are layout rows and are dropped silently; rows with malformed values are
// skipped and logged.
func ParseCompetitors(section *goquery.Selection) ([]models.Competitor, error) {
	if section == nil || section.Length() == 0 {
		return []models.Competitor{}, ErrMissingSection
	}

	competitors := []models.Competitor{}
	section.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		nameCell := row.Find(nameCellSelector).First()
		if nameCell.Length() == 0 {
			return
		}

		competitor, err := parseCompetitorRow(nameCell, row)
		if err != nil {
			log.Warn().Err(err).Int("row", i).Msg("skipping competitor row")
			return
		}
		competitors = append(competitors, competitor)
	})

	return competitors, nil
}

func parseCompetitorRow(nameCell, row *goquery.Selection) (models.Competitor, error) {
	link := nameCell.Find("a[href]").First()
	href, ok := link.Attr("href")
	if !ok {
		return models.Competitor{}, fmt.Errorf("competitor link not found")
	}
	code := CompanyCodeFromHref(href)
	if code == "" {
		return models.Competitor{}, fmt.Errorf("no company code in link %q", href)
	}

	name := strings.TrimSpace(link.Text())
	if name == "" {
		name = strings.TrimSpace(nameCell.Text())
	}

	percentCell := row.Find(percentCellSelector).First()
	percentText := strings.TrimSpace(percentCell.Find("bg-quote").First().Text())
	if percentText == "" {
		percentText = strings.TrimSpace(percentCell.Text())
	}
	percent, err := ParsePercent(percentText)
	if err != nil {
		return models.Competitor{}, err
	}

	value, currency, err := ParseMarketCap(row.Find(capCellSelector).First().Text())
	if err != nil {
		return models.Competitor{}, err
	}

	return models.Competitor{
		Name:          name,
		CompanyCode:   code,
		PercentChange: percent,
		MarketCap: models.MarketCap{
			Value:    value,
			Currency: currency,
		},
	}, nil
}

// CompanyCodeFromHref returns the last non-empty path segment of a link,
// ignoring any query string or fragment.
func CompanyCodeFromHref(href string) string {
	path := href
	if u, err := url.Parse(href); err == nil {
		path = u.Path
	} else if i := strings.IndexAny(href, "?#"); i >= 0 {
		path = href[:i]
	}

	segments := strings.Split(path, "/")
	for i := len(segments) - 1; i >= 0; i-- {
		if s := strings.TrimSpace(segments[i]); s != "" {
			return s
		}
	}
	return ""
}
