package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/StockSync/models"
)

// UI styles
var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED")).
		Background(lipgloss.Color("#1F2937")).
		Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#3B82F6")).
		Padding(0, 1).
		Width(72)

	labelStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Width(14)

	positiveStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	negativeStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#EF4444"))

	warningStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F59E0B")).
		Bold(true)
)

// RenderRecord renders a reconciled stock record for the terminal.
func RenderRecord(r *models.StockRecord) string {
	title := titleStyle.Render(fmt.Sprintf("%s  %s  %s", strings.ToUpper(r.CompanyCode), r.CompanyName, r.RequestDate))

	quote := sectionStyle.Render(strings.Join([]string{
		row("Open", fmt.Sprintf("%.2f", r.Quote.Open)),
		row("High", fmt.Sprintf("%.2f", r.Quote.High)),
		row("Low", fmt.Sprintf("%.2f", r.Quote.Low)),
		row("Close", fmt.Sprintf("%.2f", r.Quote.Close)),
		row("Purchased", fmt.Sprintf("%d (%s)", r.PurchasedAmount, r.PurchasedStatus)),
	}, "\n"))

	var perf []string
	if !r.HasSection(models.SectionPerformance) {
		perf = append(perf, warningStyle.Render("performance section not found"))
	}
	for _, w := range r.PerformanceWindows {
		perf = append(perf,
		row("5 Day", percent(w.FiveDayPct)),
		row("1 Month", percent(w.OneMonthPct)),
		row("3 Month", percent(w.ThreeMonthPct)),
		row("YTD", percent(w.YTDPct)),
		row("1 Year", percent(w.OneYearPct)),
		)
	}

	var peers []string
	if !r.HasSection(models.SectionCompetitors) {
		peers = append(peers, warningStyle.Render("competitors section not found"))
	} else if len(r.Competitors) == 0 {
		peers = append(peers, "no competitors listed")
	}
	for _, c := range r.Competitors {
		peers = append(peers, fmt.Sprintf("%-28s %-8s %s  %s",
		truncate(c.Name, 28), strings.ToUpper(c.CompanyCode), percent(c.PercentChange), c.MarketCap.Display()))
	}

	parts := []string{title, quote}
	if len(perf) > 0 {
		parts = append(parts, sectionStyle.Render(strings.Join(perf, "\n")))
	}
	parts = append(parts, sectionStyle.Render(strings.Join(peers, "\n")))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// RenderNotice renders the advisory returned for a missing trading day.
func RenderNotice(n *models.UnavailableNotice) string {
	return sectionStyle.Render(strings.Join([]string{
		warningStyle.Render(n.Message),
		n.Info,
		row("Quote docs", n.PolygonDocs),
		row("Symbols", n.MarketWatchCompanyCode),
	}, "\n"))
}

func RenderHolding(h *models.Holding) string {
	return sectionStyle.Render(row(h.CompanyCode, fmt.Sprintf("%d units", h.PurchasedAmount)))
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func percent(v float64) string {
	s := fmt.Sprintf("%+.2f%%", v)
	if v < 0 {
		return negativeStyle.Render(s)
	}
	return positiveStyle.Render(s)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
