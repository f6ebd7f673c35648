// Package export writes harvested articles to CSV or Markdown and reads
// the XLSX task workbook that drives batch runs.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"

	"gubanews/internal/guba"
	"gubanews/internal/logging"
)

// csvHeader matches the column layout downstream notebooks expect.
var csvHeader = []string{"标题", "链接", "发布时间", "内容"}

// CSVPath returns the per-code output file under dir.
func CSVPath(dir, code string) string {
	return filepath.Join(dir, code+".csv")
}

// WriteCSV writes articles to path, creating parent directories.
func WriteCSV(path string, articles []guba.Article) error {
	timer := logging.StartTimer(logging.CategoryExport, "write csv")
	defer timer.Stop()

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, a := range articles {
		record := []string{
			a.Title,
			a.URL,
			a.Published.Format(guba.TimeLayout),
			a.Content,
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write article %d: %w", a.PostID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}

	logging.Export("wrote %d articles to %s", len(articles), path)
	return nil
}
