package parser

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/dyike/StockSync/models"
	"github.com/rs/zerolog/log"
)

const (
	PerformanceSelector = "div.performance"

	rowSelector       = "tr.table__row"
	labelCellSelector = "td.table__cell"
	perfValueSelector = "li.content__item.value.ignore-color"
)

type windowSetter func(w *models.PerformanceWindow, v float64)

var performanceLabels = map[string]windowSetter{
	"5 day":   func(w *models.PerformanceWindow, v float64) { w.FiveDayPct = v },
	"1 month": func(w *models.PerformanceWindow, v float64) { w.OneMonthPct = v },
	"3 month": func(w *models.PerformanceWindow, v float64) { w.ThreeMonthPct = v },
	"ytd":     func(w *models.PerformanceWindow, v float64) { w.YTDPct = v },
	"1 year":  func(w *models.PerformanceWindow, v float64) { w.OneYearPct = v },
}

// ParsePerformance reads the five performance windows from the performance
// section. Windows the section does not list stay at zero, unknown labels are
// ignored and a row whose value cannot be parsed is skipped.
func ParsePerformance(section *goquery.Selection, companyCode string, observedAt time.Time) (models.PerformanceWindow, error) {
	window := models.PerformanceWindow{
		CompanyCode: companyCode,
		ObservedAt:  observedAt,
	}
	if section == nil || section.Length() == 0 {
		return window, ErrMissingSection
	}

	section.Find(rowSelector).Each(func(i int, row *goquery.Selection) {
		label := normalizeLabel(row.Find(labelCellSelector).First().Text())
		set, ok := performanceLabels[label]
		if !ok {
			return
		}

		text := strings.TrimSpace(row.Find(perfValueSelector).First().Text())
		value, err := ParsePercent(text)
		if err != nil {
			log.Warn().Err(err).Str("symbol", companyCode).Str("label", label).Msg("skipping performance row")
			return
		}
		set(&window, value)
	})

	return window, nil
}

func normalizeLabel(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}
