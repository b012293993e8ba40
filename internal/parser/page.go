package parser

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyike/StockSync/models"
	"github.com/rs/zerolog/log"
)

const (
	CompanyNameSelector = "h1.company__name"
	UnknownCompany      = "Unknown"
)

// Page is everything extracted from one quote page. Performance is nil when
// the performance section was not found.
type Page struct {
	CompanyName     string
	Performance     *models.PerformanceWindow
	Competitors     []models.Competitor
	MissingSections []string
}

func NewDocument(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, nil
}

// CompanyName returns the page heading, or "Unknown" when it is absent.
func CompanyName(doc *goquery.Document) string {
	name := strings.TrimSpace(doc.Find(CompanyNameSelector).First().Text())
	if name == "" {
		return UnknownCompany
	}
	return name
}

// ParsePage extracts the company name, performance windows and competitors.
// Missing sections degrade to empty values and are listed in MissingSections.
func ParsePage(doc *goquery.Document, companyCode string, observedAt time.Time) *Page {
	page := &Page{
		CompanyName:     CompanyName(doc),
		MissingSections: []string{},
	}

	window, err := ParsePerformance(doc.Find(PerformanceSelector).First(), companyCode, observedAt)
	switch {
	case errors.Is(err, ErrMissingSection):
		log.Warn().Str("symbol", companyCode).Msg("performance section not found")
		page.MissingSections = append(page.MissingSections, models.SectionPerformance)
	case err == nil:
		page.Performance = &window
	}

	competitors, err := ParseCompetitors(doc.Find(CompetitorsSelector).First())
	if errors.Is(err, ErrMissingSection) {
		log.Warn().Str("symbol", companyCode).Msg("competitors section not found")
		page.MissingSections = append(page.MissingSections, models.SectionCompetitors)
	}
	page.Competitors = competitors

	return page
}
