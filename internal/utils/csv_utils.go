package utils

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dyike/StockSync/models"
)

type CSVManager struct {
	basePath string
}

func NewCSVManager(basePath string) *CSVManager {
	return &CSVManager{
		basePath: basePath,
	}
}

// Dir is data/csv/{SYMBOL}/ under the base path.
func (c *CSVManager) Dir(symbol string) string {
	return filepath.Join(c.basePath, "csv", strings.ToUpper(symbol))
}

// WriteRecordCSV exports the performance windows and competitors of a
// record, one file each, and returns the written paths.
func (c *CSVManager) WriteRecordCSV(record *models.StockRecord) ([]string, error) {
	dirPath := c.Dir(record.CompanyCode)
	if err := os.MkdirAll(dirPath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	prefix := fmt.Sprintf("%s_%s", strings.ToUpper(record.CompanyCode), record.RequestDate)

	perfRows := [][]string{{"Symbol", "ObservedAt", "FiveDay", "OneMonth", "ThreeMonth", "YTD", "OneYear"}}
	for _, w := range record.PerformanceWindows {
		perfRows = append(perfRows, []string{
			strings.ToUpper(w.CompanyCode),
			w.ObservedAt.UTC().Format(time.RFC3339),
			formatFloat(w.FiveDayPct),
			formatFloat(w.OneMonthPct),
			formatFloat(w.ThreeMonthPct),
			formatFloat(w.YTDPct),
			formatFloat(w.OneYearPct),
		})
	}

	peerRows := [][]string{{"PeerOf", "Symbol", "Name", "PercentChange", "MarketCap", "Currency"}}
	for _, p := range record.Competitors {
		peerRows = append(peerRows, []string{
			strings.ToUpper(record.CompanyCode),
			strings.ToUpper(p.CompanyCode),
			p.Name,
			formatFloat(p.PercentChange),
			strconv.FormatFloat(p.MarketCap.Value, 'f', 0, 64),
			p.MarketCap.Currency,
		})
	}

	var written []string
	for _, f := range []struct {
		name string
		rows [][]string
	}{
		{prefix + "_performance.csv", perfRows},
		{prefix + "_competitors.csv", peerRows},
	} {
		path := filepath.Join(dirPath, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

func writeCSV(path string, rows [][]string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	if err := writeRows(file, rows); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

// writeRows writes rows as CSV and closes w, reporting the close error when
// the write itself succeeded.
func writeRows(w io.WriteCloser, rows [][]string) error {
	if err := csv.NewWriter(w).WriteAll(rows); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
